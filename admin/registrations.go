package admin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"

	"github.com/vulca/torneos/client"
	"github.com/vulca/torneos/filters"
	"github.com/vulca/torneos/forms"
	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/urls"
)

type RegistrationForm struct {
	UserID        int
	TournamentID  int
	PaymentMethod models.PaymentMethod
	PaymentStatus models.PaymentStatus
	PaymentNotes  string
	Amount        *float64
	TeamName      string
}

func (f RegistrationForm) Values() url.Values {
	v := url.Values{
		"user_id":        {""},
		"tournament_id":  {""},
		"payment_method": {string(f.PaymentMethod)},
		"payment_notes":  {f.PaymentNotes},
		"amount":         {""},
		"team_name":      {f.TeamName},
	}
	if f.UserID > 0 {
		v.Set("user_id", strconv.Itoa(f.UserID))
	}
	if f.TournamentID > 0 {
		v.Set("tournament_id", strconv.Itoa(f.TournamentID))
	}
	if f.PaymentStatus != "" {
		v.Set("payment_status", string(f.PaymentStatus))
	}
	if f.Amount != nil {
		v.Set("amount", strconv.FormatFloat(*f.Amount, 'f', -1, 64))
	}
	return v
}

var (
	RegistrationUser          = forms.NewField("user_id", func(v *RegistrationForm) *int { return &v.UserID })
	RegistrationTournament    = forms.NewField("tournament_id", func(v *RegistrationForm) *int { return &v.TournamentID })
	RegistrationPaymentMethod = forms.NewField("payment_method", func(v *RegistrationForm) *models.PaymentMethod { return &v.PaymentMethod })
	RegistrationPaymentStatus = forms.NewField("payment_status", func(v *RegistrationForm) *models.PaymentStatus { return &v.PaymentStatus })
	RegistrationPaymentNotes  = forms.NewField("payment_notes", func(v *RegistrationForm) *string { return &v.PaymentNotes })
	RegistrationAmount        = forms.NewField("amount", func(v *RegistrationForm) **float64 { return &v.Amount })
	RegistrationTeamName      = forms.NewField("team_name", func(v *RegistrationForm) *string { return &v.TeamName })
)

func RegistrationFormFrom(r models.Registration) forms.Assign[RegistrationForm] {
	return func(v *RegistrationForm) {
		*v = RegistrationForm{
			UserID:        r.UserID,
			TournamentID:  r.TournamentID,
			PaymentMethod: r.PaymentMethod,
			PaymentStatus: r.PaymentStatus,
			PaymentNotes:  deref(r.PaymentNotes),
			Amount:        r.Amount,
			TeamName:      deref(r.TeamName),
		}
	}
}

// paymentPayload carries the status the row showed, so the server rejects
// the action if someone else changed the registration meanwhile.
type paymentPayload struct {
	next     models.PaymentStatus
	expected models.PaymentStatus
}

func (p paymentPayload) Values() url.Values {
	return url.Values{
		"payment_status":          {string(p.next)},
		"expected_payment_status": {string(p.expected)},
	}
}

type RegistrationsPage struct {
	Context     PageContext
	Users       []models.User
	Tournaments []models.Tournament
	Form        *forms.Modal[RegistrationForm]
	Delete      *forms.Confirm[models.Registration]
	// Cancel asks before marking a payment as failed.
	Cancel *forms.Confirm[models.Registration]

	client        *client.Client
	registrations *records[models.Registration]
	editing       editor

	mu     sync.Mutex
	filter filters.RegistrationFilter
}

func NewRegistrationsPage(pc PageContext, regs []models.Registration, users []models.User, tournaments []models.Tournament, c *client.Client) (*RegistrationsPage, error) {
	if err := pc.check(c); err != nil {
		return nil, err
	}
	p := &RegistrationsPage{
		Context:       pc,
		Users:         users,
		Tournaments:   tournaments,
		client:        c,
		registrations: newRecords(regs, func(r models.Registration) int { return r.ID }),
		filter: filters.RegistrationFilter{
			Status:        filters.All,
			PaymentStatus: filters.All,
			PaymentMethod: filters.All,
			TournamentID:  filters.All,
		},
	}
	p.Form = forms.NewModal(RegistrationForm{
		PaymentMethod: models.PaymentCash,
		PaymentStatus: models.PaymentPending,
	}, p.save)
	p.Delete = forms.NewConfirm(p.destroy)
	p.Cancel = forms.NewConfirm(func(ctx context.Context, r models.Registration) error {
		if err := p.CancelPayment(ctx, r); err != nil {
			return err
		}
		p.Cancel.Close()
		return nil
	})
	return p, nil
}

func (p *RegistrationsPage) OpenCreate() {
	p.editing.set(0)
	p.Form.Open()
}

func (p *RegistrationsPage) OpenEdit(r models.Registration) {
	p.editing.set(r.ID)
	p.Form.Open(RegistrationFormFrom(r))
}

func (p *RegistrationsPage) CloseForm() {
	p.Form.Close()
	p.editing.set(0)
}

func (p *RegistrationsPage) SetFilter(f filters.RegistrationFilter) {
	p.mu.Lock()
	p.filter = f
	p.mu.Unlock()
}

func (p *RegistrationsPage) Filter() filters.RegistrationFilter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

func (p *RegistrationsPage) Registrations() []models.Registration {
	return p.registrations.all()
}

func (p *RegistrationsPage) Visible() []models.Registration {
	return filters.Registrations(p.registrations.all(), p.Filter())
}

func (p *RegistrationsPage) ShowTournament(r models.Registration) error {
	return p.client.NavigateTo(urls.TournamentsShow, urls.Params{"id": r.TournamentID})
}

// ConfirmPayment moves a pending payment to confirmed.
func (p *RegistrationsPage) ConfirmPayment(ctx context.Context, r models.Registration) error {
	return p.changePayment(ctx, r, models.PaymentConfirmed)
}

// RevertPayment moves a confirmed payment back to pending.
func (p *RegistrationsPage) RevertPayment(ctx context.Context, r models.Registration) error {
	return p.changePayment(ctx, r, models.PaymentPending)
}

// CancelPayment marks the payment as failed from any status.
func (p *RegistrationsPage) CancelPayment(ctx context.Context, r models.Registration) error {
	return p.changePayment(ctx, r, models.PaymentFailed)
}

func (p *RegistrationsPage) changePayment(ctx context.Context, r models.Registration, next models.PaymentStatus) error {
	if !r.PaymentStatus.CanTransitionTo(next) {
		return fmt.Errorf("%w: %s -> %s", ErrTransitionNotAllowed, r.PaymentStatus, next)
	}
	var (
		updated   models.Registration
		decodeErr error
	)
	payload := paymentPayload{next: next, expected: r.PaymentStatus}
	err := p.client.Action(ctx, urls.RegistrationsPayment, r.ID, payload,
		decodeInto("registration", &updated, &decodeErr))
	if err != nil {
		return err
	}
	if decodeErr != nil {
		return decodeErr
	}
	p.registrations.upsert(updated, keepRegistrationRelations)
	return nil
}

func (p *RegistrationsPage) save(ctx context.Context, v RegistrationForm) error {
	return save(ctx, p.client, p.editing.get(), v, "registration", p.Form.ReplaceErrors,
		func(r models.Registration) {
			if r.User == nil {
				r.User = p.userByID(r.UserID)
			}
			if r.Tournament == nil {
				r.Tournament = p.tournamentByID(r.TournamentID)
			}
			p.registrations.upsert(r, keepRegistrationRelations)
		},
		p.CloseForm,
	)
}

func (p *RegistrationsPage) destroy(ctx context.Context, r models.Registration) error {
	return p.client.Destroy(ctx, r.ID, func(*client.Response) {
		p.registrations.remove(r.ID)
		p.Delete.Close()
	})
}

func (p *RegistrationsPage) userByID(id int) *models.User {
	for i := range p.Users {
		if p.Users[i].ID == id {
			u := p.Users[i]
			return &u
		}
	}
	return nil
}

func (p *RegistrationsPage) tournamentByID(id int) *models.Tournament {
	for i := range p.Tournaments {
		if p.Tournaments[i].ID == id {
			t := p.Tournaments[i]
			return &t
		}
	}
	return nil
}

func keepRegistrationRelations(old, updated models.Registration) models.Registration {
	if updated.User == nil && old.UserID == updated.UserID {
		updated.User = old.User
	}
	if updated.Tournament == nil && old.TournamentID == updated.TournamentID {
		updated.Tournament = old.Tournament
	}
	return updated
}
