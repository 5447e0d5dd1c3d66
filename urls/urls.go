// Package urls holds the named route table shared by the HTTP server and the
// admin client, so neither side builds raw paths by hand.
package urls

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"sort"
	"strings"
)

var (
	ErrUnknownRoute = errors.New("unknown route name")
	ErrMissingParam = errors.New("missing route parameter")
)

type Route struct {
	Name    string
	Method  string
	Pattern string
}

// Params fills {placeholders} of a pattern; leftover keys go to the query string.
type Params map[string]any

const (
	GamesIndex   = "games.index"
	GamesStore   = "games.store"
	GamesShow    = "games.show"
	GamesUpdate  = "games.update"
	GamesDestroy = "games.destroy"
	GamesImage   = "games.image"

	TournamentsIndex    = "tournaments.index"
	TournamentsStore    = "tournaments.store"
	TournamentsShow     = "tournaments.show"
	TournamentsUpdate   = "tournaments.update"
	TournamentsDestroy  = "tournaments.destroy"
	TournamentsImage    = "tournaments.image"
	TournamentsStatus   = "tournaments.status"
	TournamentsRegister = "tournaments.register"

	RegistrationsIndex   = "registrations.index"
	RegistrationsStore   = "registrations.store"
	RegistrationsShow    = "registrations.show"
	RegistrationsUpdate  = "registrations.update"
	RegistrationsDestroy = "registrations.destroy"
	RegistrationsPayment = "registrations.payment"

	UsersIndex     = "users.index"
	AuthLogin      = "auth.login"
	AuthRegister   = "auth.register"
	DashboardStats = "dashboard.stats"
	WSTournament   = "ws.tournament"
)

var table = map[string]Route{}

func init() {
	for _, r := range []Route{
		{GamesIndex, http.MethodGet, "/api/games"},
		{GamesStore, http.MethodPost, "/api/games"},
		{GamesShow, http.MethodGet, "/api/games/{id}"},
		{GamesUpdate, http.MethodPatch, "/api/games/{id}"},
		{GamesDestroy, http.MethodDelete, "/api/games/{id}"},
		{GamesImage, http.MethodPost, "/api/games/{id}/image"},

		{TournamentsIndex, http.MethodGet, "/api/tournaments"},
		{TournamentsStore, http.MethodPost, "/api/tournaments"},
		{TournamentsShow, http.MethodGet, "/api/tournaments/{id}"},
		{TournamentsUpdate, http.MethodPatch, "/api/tournaments/{id}"},
		{TournamentsDestroy, http.MethodDelete, "/api/tournaments/{id}"},
		{TournamentsImage, http.MethodPost, "/api/tournaments/{id}/image"},
		{TournamentsStatus, http.MethodPatch, "/api/tournaments/{id}/status"},
		{TournamentsRegister, http.MethodPost, "/api/tournaments/{id}/register"},

		{RegistrationsIndex, http.MethodGet, "/api/registrations"},
		{RegistrationsStore, http.MethodPost, "/api/registrations"},
		{RegistrationsShow, http.MethodGet, "/api/registrations/{id}"},
		{RegistrationsUpdate, http.MethodPatch, "/api/registrations/{id}"},
		{RegistrationsDestroy, http.MethodDelete, "/api/registrations/{id}"},
		{RegistrationsPayment, http.MethodPatch, "/api/registrations/{id}/payment"},

		{UsersIndex, http.MethodGet, "/api/users"},
		{AuthLogin, http.MethodPost, "/api/auth/login"},
		{AuthRegister, http.MethodPost, "/api/auth/register"},
		{DashboardStats, http.MethodGet, "/api/dashboard"},
		{WSTournament, http.MethodGet, "/ws/tournaments/{id}"},
	} {
		table[r.Name] = r
	}
}

func Lookup(name string) (Route, error) {
	r, ok := table[name]
	if !ok {
		return Route{}, fmt.Errorf("%w: %q", ErrUnknownRoute, name)
	}
	return r, nil
}

// All returns every route sorted by name.
func All() []Route {
	out := make([]Route, 0, len(table))
	for _, r := range table {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// Path resolves a route name to a concrete path.
func Path(name string, params Params) (string, error) {
	r, err := Lookup(name)
	if err != nil {
		return "", err
	}

	used := make(map[string]bool, len(params))
	var b strings.Builder
	rest := r.Pattern
	for {
		open := strings.IndexByte(rest, '{')
		if open < 0 {
			b.WriteString(rest)
			break
		}
		end := strings.IndexByte(rest[open:], '}')
		if end < 0 {
			return "", fmt.Errorf("route %q has a malformed pattern %q", name, r.Pattern)
		}
		key := rest[open+1 : open+end]
		v, ok := params[key]
		if !ok || fmt.Sprint(v) == "" {
			return "", fmt.Errorf("%w: %q for route %q", ErrMissingParam, key, name)
		}
		used[key] = true
		b.WriteString(rest[:open])
		b.WriteString(url.PathEscape(fmt.Sprint(v)))
		rest = rest[open+end+1:]
	}

	query := url.Values{}
	for k, v := range params {
		if !used[k] {
			query.Set(k, fmt.Sprint(v))
		}
	}
	if len(query) > 0 {
		return b.String() + "?" + query.Encode(), nil
	}
	return b.String(), nil
}

// MustPath is Path for names known at compile time.
func MustPath(name string, params Params) string {
	p, err := Path(name, params)
	if err != nil {
		panic(err)
	}
	return p
}
