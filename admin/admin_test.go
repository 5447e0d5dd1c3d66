package admin

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"reflect"
	"strings"
	"sync"
	"testing"

	"github.com/vulca/torneos/client"
	"github.com/vulca/torneos/filters"
	"github.com/vulca/torneos/forms"
	"github.com/vulca/torneos/models"
)

var adminCtx = PageContext{User: &models.User{ID: 1, Name: "Admin", Role: models.RoleAdmin}}

type call struct {
	method string
	path   string
	form   url.Values
}

// fakeAPI answers every request with the next queued reply and records it.
type fakeAPI struct {
	mu      sync.Mutex
	calls   []call
	replies []reply
}

type reply struct {
	status int
	body   any
}

func (f *fakeAPI) queue(status int, body any) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.replies = append(f.replies, reply{status, body})
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	_ = r.ParseForm()
	method := r.Method
	if m := r.PostForm.Get("_method"); m != "" {
		method = m
	}

	f.mu.Lock()
	f.calls = append(f.calls, call{method: method, path: r.URL.Path, form: r.PostForm})
	next := reply{status: http.StatusOK, body: map[string]any{}}
	if len(f.replies) > 0 {
		next, f.replies = f.replies[0], f.replies[1:]
	}
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(next.status)
	_ = json.NewEncoder(w).Encode(next.body)
}

func (f *fakeAPI) last() call {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[len(f.calls)-1]
}

func (f *fakeAPI) count() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

type notices []string

func (n *notices) Notify(m string) { *n = append(*n, m) }

func setup(t *testing.T, resource string) (*fakeAPI, *client.Client, *notices) {
	t.Helper()
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)

	n := &notices{}
	c, err := client.New(resource, client.Options{
		BaseURL:  srv.URL,
		Logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		Notifier: n,
	})
	if err != nil {
		t.Fatalf("client.New() error = %v", err)
	}
	t.Cleanup(c.Close)
	return api, c, n
}

func ptr[T any](v T) *T { return &v }

func TestPagesRequireAdmin(t *testing.T) {
	_, c, _ := setup(t, "games")
	userCtx := PageContext{User: &models.User{ID: 2, Role: models.RoleUser}}

	if _, err := NewGamesPage(userCtx, nil, c); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("NewGamesPage() error = %v, want ErrNotAdmin", err)
	}
	if _, err := NewTournamentsPage(PageContext{}, nil, nil, c); !errors.Is(err, ErrNotAdmin) {
		t.Fatalf("anonymous context error = %v, want ErrNotAdmin", err)
	}
	if _, err := NewRegistrationsPage(adminCtx, nil, nil, nil, nil); !errors.Is(err, ErrMissingClient) {
		t.Fatalf("nil client error = %v, want ErrMissingClient", err)
	}
}

func TestGamesPage_CreateMergesResponseAndClosesForm(t *testing.T) {
	api, c, _ := setup(t, "games")
	page, err := NewGamesPage(adminCtx, []models.Game{{ID: 1, Name: "Chess"}}, c)
	if err != nil {
		t.Fatal(err)
	}

	api.queue(http.StatusCreated, map[string]any{"game": map[string]any{"id": 2, "name": "Go"}})
	page.OpenCreate()
	forms.SetValue(page.Form, GameName, "Go")
	if err := page.Form.HandleSubmit(context.Background()); err != nil {
		t.Fatalf("HandleSubmit() error = %v", err)
	}

	if got := api.last(); got.method != http.MethodPost || got.path != "/api/games" || got.form.Get("name") != "Go" {
		t.Fatalf("unexpected request %+v", got)
	}
	if page.Form.IsOpen() {
		t.Fatal("form must close after a successful save")
	}
	games := page.Games()
	if len(games) != 2 || games[0].ID != 2 || games[1].ID != 1 {
		t.Fatalf("games = %+v", games)
	}
}

func TestGamesPage_EditSendsPartialUpdate(t *testing.T) {
	api, c, _ := setup(t, "games")
	desc := "Old"
	page, _ := NewGamesPage(adminCtx, []models.Game{{ID: 7, Name: "Chess", Description: &desc, TournamentsCount: 3}}, c)

	api.queue(http.StatusOK, map[string]any{"game": map[string]any{"id": 7, "name": "Chess 960"}})
	page.OpenEdit(page.Games()[0])
	if got := page.Form.Values(); got.Description != "Old" {
		t.Fatalf("edit must prefill values, got %+v", got)
	}
	forms.SetValue(page.Form, GameName, "Chess 960")
	forms.SetValue(page.Form, GameDescription, "")
	if err := page.Form.HandleSubmit(context.Background()); err != nil {
		t.Fatalf("HandleSubmit() error = %v", err)
	}

	got := api.last()
	if got.method != http.MethodPatch || got.path != "/api/games/7" {
		t.Fatalf("unexpected request %+v", got)
	}
	if v, ok := got.form["description"]; !ok || v[0] != "" {
		t.Fatalf("cleared description must be sent as empty value, form = %v", got.form)
	}
	g := page.Games()[0]
	if g.Name != "Chess 960" || g.TournamentsCount != 3 {
		t.Fatalf("merged game = %+v", g)
	}
}

func TestGamesPage_FieldErrorsKeepFormOpen(t *testing.T) {
	api, c, n := setup(t, "games")
	page, _ := NewGamesPage(adminCtx, nil, c)

	api.queue(http.StatusUnprocessableEntity, map[string]any{"error": map[string]string{"name": "El nombre es obligatorio."}})
	page.OpenCreate()
	err := page.Form.HandleSubmit(context.Background())

	var fe client.FieldErrors
	if !errors.As(err, &fe) {
		t.Fatalf("error = %v, want FieldErrors", err)
	}
	if !page.Form.IsOpen() {
		t.Fatal("form must stay open")
	}
	if want := map[string]string{"name": "El nombre es obligatorio."}; !reflect.DeepEqual(page.Form.Errors(), want) {
		t.Fatalf("Errors() = %v", page.Form.Errors())
	}
	if len(*n) != 1 {
		t.Fatalf("notices = %v", *n)
	}

	forms.SetValue(page.Form, GameName, "Chess")
	if len(page.Form.Errors()) != 0 {
		t.Fatal("editing the field must clear its error")
	}
}

func TestTournamentsPage_ResubmitReplacesFieldErrors(t *testing.T) {
	api, c, _ := setup(t, "tournaments")
	page, _ := NewTournamentsPage(adminCtx, nil, nil, c)
	page.OpenCreate()

	api.queue(http.StatusUnprocessableEntity, map[string]any{"error": map[string]string{
		"name":    "El nombre es obligatorio.",
		"game_id": "Selecciona un juego.",
	}})
	if err := page.Form.HandleSubmit(context.Background()); err == nil {
		t.Fatal("first submit must fail")
	}

	api.queue(http.StatusUnprocessableEntity, map[string]any{"error": map[string]string{
		"end_date": "La fecha de fin debe ser posterior al inicio.",
	}})
	if err := page.Form.HandleSubmit(context.Background()); err == nil {
		t.Fatal("second submit must fail")
	}

	want := map[string]string{"end_date": "La fecha de fin debe ser posterior al inicio."}
	if got := page.Form.Errors(); !reflect.DeepEqual(got, want) {
		t.Fatalf("Errors() = %v, want only the latest response %v", got, want)
	}
	if api.count() != 2 || !page.Form.IsOpen() {
		t.Fatalf("requests = %d, open = %v", api.count(), page.Form.IsOpen())
	}
}

func TestGamesPage_DeleteThroughConfirm(t *testing.T) {
	api, c, n := setup(t, "games")
	page, _ := NewGamesPage(adminCtx, []models.Game{{ID: 1, Name: "Chess"}, {ID: 2, Name: "Go"}}, c)

	api.queue(http.StatusConflict, map[string]any{"error": "game is used by tournaments"})
	page.Delete.Open(page.Games()[0])
	if err := page.Delete.Confirm(context.Background()); err == nil {
		t.Fatal("expected conflict error")
	}
	if !page.Delete.IsOpen() || len(page.Games()) != 2 {
		t.Fatal("failed delete must keep the dialog and the list")
	}
	if len(*n) != 1 || (*n)[0] != client.MessageDeleteFailed {
		t.Fatalf("notices = %v", *n)
	}

	api.queue(http.StatusOK, map[string]any{"message": "deleted"})
	page.Delete.Open(page.Games()[1])
	if err := page.Delete.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if got := api.last(); got.method != http.MethodDelete || got.path != "/api/games/2" {
		t.Fatalf("unexpected request %+v", got)
	}
	if page.Delete.IsOpen() {
		t.Fatal("dialog must close after delete")
	}
	if games := page.Games(); len(games) != 1 || games[0].ID != 1 {
		t.Fatalf("games = %+v", games)
	}
}

func TestGamesPage_VisibleAndNavigation(t *testing.T) {
	var target string
	api := &fakeAPI{}
	srv := httptest.NewServer(api)
	defer srv.Close()
	c, _ := client.New("games", client.Options{
		BaseURL:   srv.URL,
		Navigator: client.NavigatorFunc(func(u string) { target = u }),
	})
	defer c.Close()

	page, _ := NewGamesPage(adminCtx, []models.Game{{ID: 1, Name: "Chess"}, {ID: 2, Name: "Go"}}, c)
	page.SetSearch("CHE")
	if v := page.Visible(); len(v) != 1 || v[0].ID != 1 {
		t.Fatalf("Visible() = %+v", v)
	}

	if err := page.ShowTournaments(page.Games()[1]); err != nil {
		t.Fatal(err)
	}
	if !strings.HasSuffix(target, "/api/tournaments?game_id=2") {
		t.Fatalf("target = %q", target)
	}
	if api.count() != 0 {
		t.Fatal("navigation must not send data requests")
	}
}

func TestTournamentsPage_SaveAndStatusQuickAction(t *testing.T) {
	api, c, _ := setup(t, "tournaments")
	games := []models.Game{{ID: 3, Name: "Chess"}}
	page, err := NewTournamentsPage(adminCtx, nil, games, c)
	if err != nil {
		t.Fatal(err)
	}

	if got := page.Form.Values().Status; got != models.StatusDraft {
		t.Fatalf("initial status = %q, want draft", got)
	}

	api.queue(http.StatusCreated, map[string]any{"tournament": map[string]any{
		"id": 10, "name": "Copa", "game_id": 3, "status": "draft",
		"start_date": "2026-11-01T10:00:00Z", "end_date": "2026-11-02T10:00:00Z",
	}})
	page.OpenCreate()
	forms.SetValue(page.Form, TournamentName, "Copa")
	forms.SetValue(page.Form, TournamentGame, 3)
	forms.SetValue(page.Form, TournamentEntryFee, ptr(12.5))
	if err := page.Form.HandleSubmit(context.Background()); err != nil {
		t.Fatalf("HandleSubmit() error = %v", err)
	}

	sent := api.last().form
	if sent.Get("game_id") != "3" || sent.Get("entry_fee") != "12.5" || sent.Get("status") != "draft" {
		t.Fatalf("sent form = %v", sent)
	}
	if v, ok := sent["registration_limit"]; !ok || v[0] != "" {
		t.Fatalf("unset limit must be sent empty, form = %v", sent)
	}
	list := page.Tournaments()
	if len(list) != 1 || list[0].GameName() != "Chess" {
		t.Fatalf("tournaments = %+v", list)
	}

	api.queue(http.StatusOK, map[string]any{"tournament": map[string]any{
		"id": 10, "name": "Copa", "game_id": 3, "status": "registration_open",
	}})
	if err := page.ChangeStatus(context.Background(), list[0], models.StatusRegistrationOpen); err != nil {
		t.Fatalf("ChangeStatus() error = %v", err)
	}
	got := api.last()
	if got.method != http.MethodPatch || got.path != "/api/tournaments/10/status" || got.form.Get("status") != "registration_open" {
		t.Fatalf("unexpected request %+v", got)
	}
	updated := page.Tournaments()[0]
	if updated.Status != models.StatusRegistrationOpen || updated.GameName() != "Chess" {
		t.Fatalf("merged tournament = %+v", updated)
	}

	if err := page.ChangeStatus(context.Background(), updated, "paused"); err == nil {
		t.Fatal("unknown status must be rejected locally")
	}
}

func TestTournamentsPage_Filters(t *testing.T) {
	_, c, _ := setup(t, "tournaments")
	items := []models.Tournament{
		{ID: 1, Name: "Liga", GameID: 1, Status: models.StatusDraft},
		{ID: 2, Name: "Copa", GameID: 2, Status: models.StatusOngoing},
	}
	page, _ := NewTournamentsPage(adminCtx, items, nil, c)

	if len(page.Visible()) != 2 {
		t.Fatal("default filter must show everything")
	}
	page.SetFilter(filters.TournamentFilter{Status: string(models.StatusOngoing), GameID: filters.All})
	if v := page.Visible(); len(v) != 1 || v[0].ID != 2 {
		t.Fatalf("Visible() = %+v", v)
	}
}

func TestTournamentFormFromPrefillsEverything(t *testing.T) {
	limit := 16
	tour := models.Tournament{Name: "Copa", GameID: 2, HasRegistrationLimit: true, RegistrationLimit: &limit, Status: models.StatusPublished}
	m := forms.NewModal(TournamentForm{Status: models.StatusDraft}, nil)
	m.Open(TournamentFormFrom(tour))

	v := m.Values()
	if v.Name != "Copa" || v.GameID != 2 || !v.HasRegistrationLimit || *v.RegistrationLimit != 16 || v.Status != models.StatusPublished {
		t.Fatalf("values = %+v", v)
	}
	if got := v.Values().Get("has_registration_limit"); got != "true" {
		t.Fatalf("has_registration_limit = %q", got)
	}
}

func registrationsFixture() []models.Registration {
	return []models.Registration{
		{ID: 1, UserID: 1, TournamentID: 5, Status: models.RegistrationPending, PaymentStatus: models.PaymentPending,
			PaymentMethod: models.PaymentCash, User: &models.User{ID: 1, Name: "Ana"}},
		{ID: 2, UserID: 2, TournamentID: 5, Status: models.RegistrationConfirmed, PaymentStatus: models.PaymentConfirmed,
			PaymentMethod: models.PaymentCard, User: &models.User{ID: 2, Name: "Luis"}},
	}
}

func TestRegistrationsPage_QuickActions(t *testing.T) {
	api, c, _ := setup(t, "registrations")
	page, _ := NewRegistrationsPage(adminCtx, registrationsFixture(), nil, nil, c)
	ana := page.Registrations()[0]

	api.queue(http.StatusOK, map[string]any{"registration": map[string]any{
		"id": 1, "user_id": 1, "tournament_id": 5, "status": "confirmed", "payment_status": "confirmed", "payment_method": "cash",
	}})
	if err := page.ConfirmPayment(context.Background(), ana); err != nil {
		t.Fatalf("ConfirmPayment() error = %v", err)
	}
	got := api.last()
	if got.method != http.MethodPatch || got.path != "/api/registrations/1/payment" {
		t.Fatalf("unexpected request %+v", got)
	}
	if got.form.Get("payment_status") != "confirmed" || got.form.Get("expected_payment_status") != "pending" {
		t.Fatalf("form = %v", got.form)
	}
	updated := page.Registrations()[0]
	if updated.PaymentStatus != models.PaymentConfirmed || updated.User == nil || updated.User.Name != "Ana" {
		t.Fatalf("merged registration = %+v", updated)
	}

	calls := api.count()
	if err := page.ConfirmPayment(context.Background(), updated); !errors.Is(err, ErrTransitionNotAllowed) {
		t.Fatalf("confirming twice error = %v", err)
	}
	if api.count() != calls {
		t.Fatal("disallowed transitions must not reach the server")
	}

	api.queue(http.StatusOK, map[string]any{"registration": map[string]any{
		"id": 2, "user_id": 2, "tournament_id": 5, "status": "pending", "payment_status": "pending", "payment_method": "card",
	}})
	if err := page.RevertPayment(context.Background(), page.Registrations()[1]); err != nil {
		t.Fatalf("RevertPayment() error = %v", err)
	}
	if api.last().form.Get("expected_payment_status") != "confirmed" {
		t.Fatalf("form = %v", api.last().form)
	}
}

func TestRegistrationsPage_StaleQuickAction(t *testing.T) {
	api, c, n := setup(t, "registrations")
	page, _ := NewRegistrationsPage(adminCtx, registrationsFixture(), nil, nil, c)

	api.queue(http.StatusConflict, map[string]any{"error": "registration was changed by someone else"})
	err := page.ConfirmPayment(context.Background(), page.Registrations()[0])

	var se *client.StatusError
	if !errors.As(err, &se) || se.Status != http.StatusConflict {
		t.Fatalf("error = %v, want 409", err)
	}
	if page.Registrations()[0].PaymentStatus != models.PaymentPending {
		t.Fatal("list must keep the last known state")
	}
	if len(*n) != 1 || (*n)[0] != client.MessageActionFailed {
		t.Fatalf("notices = %v", *n)
	}
}

func TestRegistrationsPage_CancelNeedsConfirmation(t *testing.T) {
	api, c, _ := setup(t, "registrations")
	page, _ := NewRegistrationsPage(adminCtx, registrationsFixture(), nil, nil, c)

	api.queue(http.StatusOK, map[string]any{"registration": map[string]any{
		"id": 2, "user_id": 2, "tournament_id": 5, "status": "cancelled", "payment_status": "failed", "payment_method": "card",
	}})
	page.Cancel.Open(page.Registrations()[1])
	if err := page.Cancel.Confirm(context.Background()); err != nil {
		t.Fatalf("Confirm() error = %v", err)
	}
	if page.Cancel.IsOpen() {
		t.Fatal("dialog must close after cancelling")
	}
	if r := page.Registrations()[1]; r.PaymentStatus != models.PaymentFailed || r.Status != models.RegistrationCancelled {
		t.Fatalf("registration = %+v", r)
	}
	if api.last().form.Get("payment_status") != "failed" {
		t.Fatalf("form = %v", api.last().form)
	}
}

func TestRegistrationsPage_CreateFillsRelations(t *testing.T) {
	api, c, _ := setup(t, "registrations")
	users := []models.User{{ID: 4, Name: "Marta", Email: "marta@mail.test"}}
	tournaments := []models.Tournament{{ID: 5, Name: "Copa Vulca"}}
	page, _ := NewRegistrationsPage(adminCtx, nil, users, tournaments, c)

	api.queue(http.StatusCreated, map[string]any{"registration": map[string]any{
		"id": 30, "user_id": 4, "tournament_id": 5, "status": "pending", "payment_status": "pending", "payment_method": "transfer",
	}})
	page.OpenCreate()
	forms.SetValue(page.Form, RegistrationUser, 4)
	forms.SetValue(page.Form, RegistrationTournament, 5)
	forms.SetValue(page.Form, RegistrationPaymentMethod, models.PaymentTransfer)
	if err := page.Form.HandleSubmit(context.Background()); err != nil {
		t.Fatalf("HandleSubmit() error = %v", err)
	}

	sent := api.last().form
	if sent.Get("user_id") != "4" || sent.Get("payment_method") != "transfer" || sent.Get("payment_status") != "pending" {
		t.Fatalf("sent form = %v", sent)
	}
	page.SetFilter(filters.RegistrationFilter{Search: "copa", Status: filters.All})
	v := page.Visible()
	if len(v) != 1 || v[0].User == nil || v[0].User.Name != "Marta" {
		t.Fatalf("Visible() = %+v", v)
	}
}
