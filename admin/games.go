package admin

import (
	"context"
	"net/url"
	"sync"

	"github.com/vulca/torneos/client"
	"github.com/vulca/torneos/filters"
	"github.com/vulca/torneos/forms"
	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/urls"
)

type GameForm struct {
	Name        string
	Description string
}

func (f GameForm) Values() url.Values {
	return url.Values{
		"name":        {f.Name},
		"description": {f.Description},
	}
}

var (
	GameName        = forms.NewField("name", func(v *GameForm) *string { return &v.Name })
	GameDescription = forms.NewField("description", func(v *GameForm) *string { return &v.Description })
)

// GameFormFrom prefills the form with g.
func GameFormFrom(g models.Game) forms.Assign[GameForm] {
	return func(v *GameForm) {
		v.Name = g.Name
		v.Description = deref(g.Description)
	}
}

type GamesPage struct {
	Context PageContext
	Form    *forms.Modal[GameForm]
	Delete  *forms.Confirm[models.Game]

	client  *client.Client
	games   *records[models.Game]
	editing editor

	mu     sync.Mutex
	search string
}

func NewGamesPage(pc PageContext, games []models.Game, c *client.Client) (*GamesPage, error) {
	if err := pc.check(c); err != nil {
		return nil, err
	}
	p := &GamesPage{
		Context: pc,
		client:  c,
		games:   newRecords(games, func(g models.Game) int { return g.ID }),
	}
	p.Form = forms.NewModal(GameForm{}, p.save)
	p.Delete = forms.NewConfirm(p.destroy)
	return p, nil
}

func (p *GamesPage) OpenCreate() {
	p.editing.set(0)
	p.Form.Open()
}

func (p *GamesPage) OpenEdit(g models.Game) {
	p.editing.set(g.ID)
	p.Form.Open(GameFormFrom(g))
}

func (p *GamesPage) CloseForm() {
	p.Form.Close()
	p.editing.set(0)
}

func (p *GamesPage) SetSearch(s string) {
	p.mu.Lock()
	p.search = s
	p.mu.Unlock()
}

func (p *GamesPage) Games() []models.Game {
	return p.games.all()
}

// Visible is the list after the search box.
func (p *GamesPage) Visible() []models.Game {
	p.mu.Lock()
	search := p.search
	p.mu.Unlock()
	return filters.Games(p.games.all(), search)
}

// ShowTournaments drills into the tournaments of g.
func (p *GamesPage) ShowTournaments(g models.Game) error {
	return p.client.NavigateTo(urls.TournamentsIndex, urls.Params{"game_id": g.ID})
}

func (p *GamesPage) save(ctx context.Context, v GameForm) error {
	id := p.editing.get()
	return save(ctx, p.client, id, v, "game", p.Form.ReplaceErrors,
		func(g models.Game) {
			p.games.upsert(g, func(old, updated models.Game) models.Game {
				if updated.TournamentsCount == 0 {
					updated.TournamentsCount = old.TournamentsCount
				}
				return updated
			})
		},
		p.CloseForm,
	)
}

func (p *GamesPage) destroy(ctx context.Context, g models.Game) error {
	return p.client.Destroy(ctx, g.ID, func(*client.Response) {
		p.games.remove(g.ID)
		p.Delete.Close()
	})
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
