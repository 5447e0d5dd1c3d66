package models

import "time"

// TournamentStatus представляет статусы турнира, соответствующие ENUM в БД.
type TournamentStatus string

const (
	StatusDraft              TournamentStatus = "draft"
	StatusPublished          TournamentStatus = "published"
	StatusRegistrationOpen   TournamentStatus = "registration_open"
	StatusRegistrationClosed TournamentStatus = "registration_closed"
	StatusOngoing            TournamentStatus = "ongoing"
	StatusFinished           TournamentStatus = "finished"
	StatusCancelled          TournamentStatus = "cancelled"
)

var tournamentStatusLabels = map[TournamentStatus]string{
	StatusDraft:              "Borrador",
	StatusPublished:          "Publicado",
	StatusRegistrationOpen:   "Inscripciones abiertas",
	StatusRegistrationClosed: "Inscripciones cerradas",
	StatusOngoing:            "En curso",
	StatusFinished:           "Finalizado",
	StatusCancelled:          "Cancelado",
}

// TournamentStatuses returns every status in display order.
func TournamentStatuses() []TournamentStatus {
	return []TournamentStatus{
		StatusDraft,
		StatusPublished,
		StatusRegistrationOpen,
		StatusRegistrationClosed,
		StatusOngoing,
		StatusFinished,
		StatusCancelled,
	}
}

func (s TournamentStatus) Valid() bool {
	_, ok := tournamentStatusLabels[s]
	return ok
}

// Label возвращает человекочитаемое название статуса.
func (s TournamentStatus) Label() string {
	if l, ok := tournamentStatusLabels[s]; ok {
		return l
	}
	return string(s)
}

// Tournament представляет турнир.
type Tournament struct {
	ID          int       `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description *string   `json:"description,omitempty" db:"description"`
	GameID      int       `json:"game_id" db:"game_id"`
	StartDate   time.Time `json:"start_date" db:"start_date"`
	EndDate     time.Time `json:"end_date" db:"end_date"`

	RegistrationStart *time.Time `json:"registration_start,omitempty" db:"registration_start"`
	RegistrationEnd   *time.Time `json:"registration_end,omitempty" db:"registration_end"`
	EntryFee          *float64   `json:"entry_fee,omitempty" db:"entry_fee"`

	HasRegistrationLimit bool `json:"has_registration_limit" db:"has_registration_limit"`
	RegistrationLimit    *int `json:"registration_limit,omitempty" db:"registration_limit"`

	Status             TournamentStatus `json:"status" db:"status"`
	RegistrationsCount int              `json:"registrations_count" db:"registrations_count"`
	CreatedAt          time.Time        `json:"created_at" db:"created_at"`

	ImageKey *string `json:"-" db:"image_key"`
	ImageURL *string `json:"image_url,omitempty" db:"-"`

	Game *Game `json:"game,omitempty" db:"-"`
}

// AcceptsRegistrations reports whether a self-registration is allowed at now.
func (t *Tournament) AcceptsRegistrations(now time.Time) bool {
	if t.Status != StatusRegistrationOpen {
		return false
	}
	if t.RegistrationStart != nil && now.Before(*t.RegistrationStart) {
		return false
	}
	if t.RegistrationEnd != nil && now.After(*t.RegistrationEnd) {
		return false
	}
	return !t.IsFull()
}

// IsFull is true only when a limit is set and reached.
func (t *Tournament) IsFull() bool {
	if !t.HasRegistrationLimit || t.RegistrationLimit == nil {
		return false
	}
	return t.RegistrationsCount >= *t.RegistrationLimit
}

// RegistrationProgress returns the filled share of the limit in [0, 1], or -1 without a limit.
func (t *Tournament) RegistrationProgress() float64 {
	if !t.HasRegistrationLimit || t.RegistrationLimit == nil || *t.RegistrationLimit <= 0 {
		return -1
	}
	p := float64(t.RegistrationsCount) / float64(*t.RegistrationLimit)
	if p > 1 {
		return 1
	}
	return p
}

// GameName is used by list search; empty when the game was not loaded.
func (t *Tournament) GameName() string {
	if t.Game == nil {
		return ""
	}
	return t.Game.Name
}
