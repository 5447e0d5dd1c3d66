package admin

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"sync"
	"time"

	"github.com/vulca/torneos/client"
	"github.com/vulca/torneos/filters"
	"github.com/vulca/torneos/forms"
	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/urls"
)

// TournamentForm mirrors the tournament dialog. Nil pointers are sent as
// empty values, which clears the field on update.
type TournamentForm struct {
	Name                 string
	Description          string
	GameID               int
	StartDate            time.Time
	EndDate              time.Time
	RegistrationStart    *time.Time
	RegistrationEnd      *time.Time
	EntryFee             *float64
	HasRegistrationLimit bool
	RegistrationLimit    *int
	Status               models.TournamentStatus
}

func (f TournamentForm) Values() url.Values {
	v := url.Values{
		"name":                   {f.Name},
		"description":            {f.Description},
		"game_id":                {""},
		"start_date":             {formatTime(f.StartDate)},
		"end_date":               {formatTime(f.EndDate)},
		"registration_start":     {""},
		"registration_end":       {""},
		"entry_fee":              {""},
		"has_registration_limit": {strconv.FormatBool(f.HasRegistrationLimit)},
		"registration_limit":     {""},
	}
	if f.GameID > 0 {
		v.Set("game_id", strconv.Itoa(f.GameID))
	}
	if f.RegistrationStart != nil {
		v.Set("registration_start", formatTime(*f.RegistrationStart))
	}
	if f.RegistrationEnd != nil {
		v.Set("registration_end", formatTime(*f.RegistrationEnd))
	}
	if f.EntryFee != nil {
		v.Set("entry_fee", strconv.FormatFloat(*f.EntryFee, 'f', -1, 64))
	}
	if f.RegistrationLimit != nil {
		v.Set("registration_limit", strconv.Itoa(*f.RegistrationLimit))
	}
	if f.Status != "" {
		v.Set("status", string(f.Status))
	}
	return v
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.Format(time.RFC3339)
}

var (
	TournamentName        = forms.NewField("name", func(v *TournamentForm) *string { return &v.Name })
	TournamentDescription = forms.NewField("description", func(v *TournamentForm) *string { return &v.Description })
	TournamentGame        = forms.NewField("game_id", func(v *TournamentForm) *int { return &v.GameID })
	TournamentStart       = forms.NewField("start_date", func(v *TournamentForm) *time.Time { return &v.StartDate })
	TournamentEnd         = forms.NewField("end_date", func(v *TournamentForm) *time.Time { return &v.EndDate })
	TournamentEntryFee    = forms.NewField("entry_fee", func(v *TournamentForm) **float64 { return &v.EntryFee })
	TournamentHasLimit    = forms.NewField("has_registration_limit", func(v *TournamentForm) *bool { return &v.HasRegistrationLimit })
	TournamentLimit       = forms.NewField("registration_limit", func(v *TournamentForm) **int { return &v.RegistrationLimit })
	TournamentStatus      = forms.NewField("status", func(v *TournamentForm) *models.TournamentStatus { return &v.Status })
)

func TournamentFormFrom(t models.Tournament) forms.Assign[TournamentForm] {
	return func(v *TournamentForm) {
		*v = TournamentForm{
			Name:                 t.Name,
			Description:          deref(t.Description),
			GameID:               t.GameID,
			StartDate:            t.StartDate,
			EndDate:              t.EndDate,
			RegistrationStart:    t.RegistrationStart,
			RegistrationEnd:      t.RegistrationEnd,
			EntryFee:             t.EntryFee,
			HasRegistrationLimit: t.HasRegistrationLimit,
			RegistrationLimit:    t.RegistrationLimit,
			Status:               t.Status,
		}
	}
}

type statusPayload struct {
	status models.TournamentStatus
}

func (p statusPayload) Values() url.Values {
	return url.Values{"status": {string(p.status)}}
}

type TournamentsPage struct {
	Context PageContext
	Games   []models.Game
	Form    *forms.Modal[TournamentForm]
	Delete  *forms.Confirm[models.Tournament]

	client      *client.Client
	tournaments *records[models.Tournament]
	editing     editor

	mu     sync.Mutex
	filter filters.TournamentFilter
}

// NewTournamentsPage builds the page. games feed the game select and the
// game filter.
func NewTournamentsPage(pc PageContext, tournaments []models.Tournament, games []models.Game, c *client.Client) (*TournamentsPage, error) {
	if err := pc.check(c); err != nil {
		return nil, err
	}
	p := &TournamentsPage{
		Context:     pc,
		Games:       games,
		client:      c,
		tournaments: newRecords(tournaments, func(t models.Tournament) int { return t.ID }),
		filter:      filters.TournamentFilter{Status: filters.All, GameID: filters.All},
	}
	p.Form = forms.NewModal(TournamentForm{Status: models.StatusDraft}, p.save)
	p.Delete = forms.NewConfirm(p.destroy)
	return p, nil
}

func (p *TournamentsPage) OpenCreate() {
	p.editing.set(0)
	p.Form.Open()
}

func (p *TournamentsPage) OpenEdit(t models.Tournament) {
	p.editing.set(t.ID)
	p.Form.Open(TournamentFormFrom(t))
}

func (p *TournamentsPage) CloseForm() {
	p.Form.Close()
	p.editing.set(0)
}

func (p *TournamentsPage) SetFilter(f filters.TournamentFilter) {
	p.mu.Lock()
	p.filter = f
	p.mu.Unlock()
}

func (p *TournamentsPage) Filter() filters.TournamentFilter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.filter
}

func (p *TournamentsPage) Tournaments() []models.Tournament {
	return p.tournaments.all()
}

func (p *TournamentsPage) Visible() []models.Tournament {
	return filters.Tournaments(p.tournaments.all(), p.Filter())
}

func (p *TournamentsPage) ShowDetails(t models.Tournament) error {
	return p.client.NavigateTo(urls.TournamentsShow, urls.Params{"id": t.ID})
}

// ChangeStatus is the row quick action that moves a tournament to status.
func (p *TournamentsPage) ChangeStatus(ctx context.Context, t models.Tournament, status models.TournamentStatus) error {
	if !status.Valid() {
		return fmt.Errorf("unknown tournament status %q", status)
	}
	var (
		updated   models.Tournament
		decodeErr error
	)
	err := p.client.Action(ctx, urls.TournamentsStatus, t.ID, statusPayload{status: status},
		decodeInto("tournament", &updated, &decodeErr))
	if err != nil {
		return err
	}
	if decodeErr != nil {
		return decodeErr
	}
	p.tournaments.upsert(updated, keepTournamentGame)
	return nil
}

func (p *TournamentsPage) save(ctx context.Context, v TournamentForm) error {
	return save(ctx, p.client, p.editing.get(), v, "tournament", p.Form.ReplaceErrors,
		func(t models.Tournament) {
			if t.Game == nil {
				t.Game = p.gameByID(t.GameID)
			}
			p.tournaments.upsert(t, keepTournamentGame)
		},
		p.CloseForm,
	)
}

func (p *TournamentsPage) destroy(ctx context.Context, t models.Tournament) error {
	return p.client.Destroy(ctx, t.ID, func(*client.Response) {
		p.tournaments.remove(t.ID)
		p.Delete.Close()
	})
}

func (p *TournamentsPage) gameByID(id int) *models.Game {
	for i := range p.Games {
		if p.Games[i].ID == id {
			g := p.Games[i]
			return &g
		}
	}
	return nil
}

func keepTournamentGame(old, updated models.Tournament) models.Tournament {
	if updated.Game == nil && old.GameID == updated.GameID {
		updated.Game = old.Game
	}
	return updated
}
