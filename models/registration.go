package models

import "time"

type RegistrationStatus string

const (
	RegistrationPending   RegistrationStatus = "pending"
	RegistrationConfirmed RegistrationStatus = "confirmed"
	RegistrationCancelled RegistrationStatus = "cancelled"
)

type PaymentMethod string

const (
	PaymentCash     PaymentMethod = "cash"
	PaymentTransfer PaymentMethod = "transfer"
	PaymentCard     PaymentMethod = "card"
)

type PaymentStatus string

const (
	PaymentPending   PaymentStatus = "pending"
	PaymentConfirmed PaymentStatus = "confirmed"
	PaymentFailed    PaymentStatus = "failed"
)

var (
	registrationStatusLabels = map[RegistrationStatus]string{
		RegistrationPending:   "Pendiente",
		RegistrationConfirmed: "Confirmada",
		RegistrationCancelled: "Cancelada",
	}
	paymentMethodLabels = map[PaymentMethod]string{
		PaymentCash:     "Efectivo",
		PaymentTransfer: "Transferencia",
		PaymentCard:     "Tarjeta",
	}
	paymentStatusLabels = map[PaymentStatus]string{
		PaymentPending:   "Pendiente",
		PaymentConfirmed: "Confirmado",
		PaymentFailed:    "Fallido",
	}
)

func (s RegistrationStatus) Valid() bool { _, ok := registrationStatusLabels[s]; return ok }
func (m PaymentMethod) Valid() bool      { _, ok := paymentMethodLabels[m]; return ok }
func (s PaymentStatus) Valid() bool      { _, ok := paymentStatusLabels[s]; return ok }

func (s RegistrationStatus) Label() string { return labelOr(registrationStatusLabels, s) }
func (m PaymentMethod) Label() string      { return labelOr(paymentMethodLabels, m) }
func (s PaymentStatus) Label() string      { return labelOr(paymentStatusLabels, s) }

func labelOr[K ~string](labels map[K]string, k K) string {
	if l, ok := labels[k]; ok {
		return l
	}
	return string(k)
}

// CanTransitionTo разрешает только pending→confirmed, confirmed→pending и любой→failed.
func (s PaymentStatus) CanTransitionTo(next PaymentStatus) bool {
	switch next {
	case PaymentFailed:
		return true
	case PaymentConfirmed:
		return s == PaymentPending
	case PaymentPending:
		return s == PaymentConfirmed
	default:
		return false
	}
}

// RegistrationStatusFor maps a payment status onto the registration lifecycle.
func RegistrationStatusFor(p PaymentStatus) RegistrationStatus {
	switch p {
	case PaymentConfirmed:
		return RegistrationConfirmed
	case PaymentFailed:
		return RegistrationCancelled
	default:
		return RegistrationPending
	}
}

// Registration представляет заявку пользователя на турнир.
type Registration struct {
	ID            int                `json:"id" db:"id"`
	UserID        int                `json:"user_id" db:"user_id"`
	TournamentID  int                `json:"tournament_id" db:"tournament_id"`
	Status        RegistrationStatus `json:"status" db:"status"`
	PaymentMethod PaymentMethod      `json:"payment_method" db:"payment_method"`
	PaymentStatus PaymentStatus      `json:"payment_status" db:"payment_status"`
	PaymentNotes  *string            `json:"payment_notes,omitempty" db:"payment_notes"`
	Amount        *float64           `json:"amount,omitempty" db:"amount"`
	TeamName      *string            `json:"team_name,omitempty" db:"team_name"`
	RegisteredAt  time.Time          `json:"registered_at" db:"registered_at"`

	User       *User       `json:"user,omitempty" db:"-"`
	Tournament *Tournament `json:"tournament,omitempty" db:"-"`
}

// Active registrations count towards the tournament's limit.
func (r *Registration) Active() bool {
	return r.Status != RegistrationCancelled
}
