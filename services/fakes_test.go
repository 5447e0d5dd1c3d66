package services

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"maps"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/repositories"
	"github.com/vulca/torneos/storage"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type memStore struct {
	mu            sync.Mutex
	nextID        int
	users         map[int]models.User
	games         map[int]models.Game
	tournaments   map[int]models.Tournament
	registrations map[int]models.Registration
}

func newMemStore() *memStore {
	return &memStore{
		users:         map[int]models.User{},
		games:         map[int]models.Game{},
		tournaments:   map[int]models.Tournament{},
		registrations: map[int]models.Registration{},
	}
}

func (m *memStore) id() int {
	m.nextID++
	return m.nextID
}

// fakeTx restores the store when fn fails, like a rolled back transaction.
type fakeTx struct{ store *memStore }

func (tx fakeTx) WithinTx(ctx context.Context, fn func(exec repositories.SQLExecutor) error) error {
	if tx.store == nil {
		return fn(nil)
	}
	tx.store.mu.Lock()
	tournaments := maps.Clone(tx.store.tournaments)
	registrations := maps.Clone(tx.store.registrations)
	tx.store.mu.Unlock()

	err := fn(nil)
	if err != nil {
		tx.store.mu.Lock()
		tx.store.tournaments = tournaments
		tx.store.registrations = registrations
		tx.store.mu.Unlock()
	}
	return err
}

// --- users ---

type fakeUserRepo struct{ *memStore }

func (r fakeUserRepo) Create(ctx context.Context, u *models.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if strings.EqualFold(existing.Email, u.Email) {
			return repositories.ErrUserEmailConflict
		}
	}
	u.ID = r.id()
	u.CreatedAt = time.Now()
	r.users[u.ID] = *u
	return nil
}

func (r fakeUserRepo) GetByID(ctx context.Context, id int) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	u, ok := r.users[id]
	if !ok {
		return nil, repositories.ErrUserNotFound
	}
	return &u, nil
}

func (r fakeUserRepo) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range r.users {
		if strings.EqualFold(u.Email, email) {
			return &u, nil
		}
	}
	return nil, repositories.ErrUserNotFound
}

func (r fakeUserRepo) List(ctx context.Context) ([]models.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.User, 0, len(r.users))
	for _, u := range r.users {
		out = append(out, u)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeUserRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.users), nil
}

// --- games ---

type fakeGameRepo struct{ *memStore }

func (r fakeGameRepo) tournamentsOf(id int) int {
	n := 0
	for _, t := range r.tournaments {
		if t.GameID == id {
			n++
		}
	}
	return n
}

func (r fakeGameRepo) nameTaken(name string, except int) bool {
	for _, g := range r.games {
		if g.ID != except && g.Name == name {
			return true
		}
	}
	return false
}

func (r fakeGameRepo) Create(ctx context.Context, g *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.nameTaken(g.Name, 0) {
		return repositories.ErrGameNameConflict
	}
	g.ID = r.id()
	r.games[g.ID] = *g
	return nil
}

func (r fakeGameRepo) GetByID(ctx context.Context, id int) (*models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return nil, repositories.ErrGameNotFound
	}
	g.TournamentsCount = r.tournamentsOf(id)
	return &g, nil
}

func (r fakeGameRepo) GetAll(ctx context.Context) ([]models.Game, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Game, 0, len(r.games))
	for _, g := range r.games {
		g.TournamentsCount = r.tournamentsOf(g.ID)
		out = append(out, g)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (r fakeGameRepo) Update(ctx context.Context, g *models.Game) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[g.ID]; !ok {
		return repositories.ErrGameNotFound
	}
	if r.nameTaken(g.Name, g.ID) {
		return repositories.ErrGameNameConflict
	}
	r.games[g.ID] = *g
	return nil
}

func (r fakeGameRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[id]; !ok {
		return repositories.ErrGameNotFound
	}
	if r.tournamentsOf(id) > 0 {
		return repositories.ErrGameInUse
	}
	delete(r.games, id)
	return nil
}

func (r fakeGameRepo) UpdateImageKey(ctx context.Context, id int, key *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	g, ok := r.games[id]
	if !ok {
		return repositories.ErrGameNotFound
	}
	g.ImageKey = key
	r.games[id] = g
	return nil
}

func (r fakeGameRepo) Count(ctx context.Context) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.games), nil
}

// --- tournaments ---

type fakeTournamentRepo struct{ *memStore }

func (r fakeTournamentRepo) withGame(t models.Tournament) models.Tournament {
	if g, ok := r.games[t.GameID]; ok {
		t.Game = &models.Game{ID: g.ID, Name: g.Name}
	}
	return t
}

func (r fakeTournamentRepo) Create(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.games[t.GameID]; !ok {
		return repositories.ErrTournamentInvalidGame
	}
	t.ID = r.id()
	r.tournaments[t.ID] = *t
	return nil
}

func (r fakeTournamentRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return nil, repositories.ErrTournamentNotFound
	}
	t = r.withGame(t)
	return &t, nil
}

func (r fakeTournamentRepo) List(ctx context.Context, f repositories.ListTournamentsFilter) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Tournament, 0)
	for _, t := range r.tournaments {
		if f.GameID != nil && t.GameID != *f.GameID {
			continue
		}
		if f.Status != nil && t.Status != *f.Status {
			continue
		}
		out = append(out, r.withGame(t))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeTournamentRepo) Update(ctx context.Context, t *models.Tournament) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tournaments[t.ID]; !ok {
		return repositories.ErrTournamentNotFound
	}
	stored := *t
	stored.Game = nil
	r.tournaments[t.ID] = stored
	return nil
}

func (r fakeTournamentRepo) UpdateStatus(ctx context.Context, exec repositories.SQLExecutor, id int, status models.TournamentStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.Status = status
	r.tournaments[id] = t
	return nil
}

func (r fakeTournamentRepo) UpdateImageKey(ctx context.Context, id int, key *string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	t.ImageKey = key
	r.tournaments[id] = t
	return nil
}

func (r fakeTournamentRepo) AdjustRegistrationsCount(ctx context.Context, exec repositories.SQLExecutor, id int, delta int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	t, ok := r.tournaments[id]
	if !ok {
		return repositories.ErrTournamentNotFound
	}
	if delta > 0 && t.HasRegistrationLimit && t.RegistrationLimit != nil &&
		t.RegistrationsCount+delta > *t.RegistrationLimit {
		return repositories.ErrTournamentFull
	}
	t.RegistrationsCount += delta
	if t.RegistrationsCount < 0 {
		t.RegistrationsCount = 0
	}
	r.tournaments[id] = t
	return nil
}

func (r fakeTournamentRepo) Delete(ctx context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.tournaments[id]; !ok {
		return repositories.ErrTournamentNotFound
	}
	delete(r.tournaments, id)
	return nil
}

func (r fakeTournamentRepo) GetForAutoStatusUpdate(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Tournament, 0)
	for _, t := range r.tournaments {
		out = append(out, t)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeTournamentRepo) Count(ctx context.Context, status *models.TournamentStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, t := range r.tournaments {
		if status == nil || t.Status == *status {
			n++
		}
	}
	return n, nil
}

// --- registrations ---

type fakeRegistrationRepo struct{ *memStore }

func (r fakeRegistrationRepo) hydrate(reg models.Registration) models.Registration {
	if u, ok := r.users[reg.UserID]; ok {
		reg.User = &models.User{ID: u.ID, Name: u.Name, Email: u.Email}
	}
	if t, ok := r.tournaments[reg.TournamentID]; ok {
		reg.Tournament = &models.Tournament{ID: t.ID, Name: t.Name}
	}
	return reg
}

func (r fakeRegistrationRepo) Create(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[reg.UserID]; !ok {
		return repositories.ErrRegistrationUserInvalid
	}
	if _, ok := r.tournaments[reg.TournamentID]; !ok {
		return repositories.ErrRegistrationTournamentInvalid
	}
	for _, existing := range r.registrations {
		if existing.UserID == reg.UserID && existing.TournamentID == reg.TournamentID {
			return repositories.ErrRegistrationConflict
		}
	}
	reg.ID = r.id()
	reg.RegisteredAt = time.Now()
	stored := *reg
	stored.User, stored.Tournament = nil, nil
	r.registrations[reg.ID] = stored
	return nil
}

func (r fakeRegistrationRepo) GetByID(ctx context.Context, exec repositories.SQLExecutor, id int) (*models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registrations[id]
	if !ok {
		return nil, repositories.ErrRegistrationNotFound
	}
	reg = r.hydrate(reg)
	return &reg, nil
}

func (r fakeRegistrationRepo) List(ctx context.Context, f repositories.ListRegistrationsFilter) ([]models.Registration, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]models.Registration, 0)
	for _, reg := range r.registrations {
		if f.TournamentID != nil && reg.TournamentID != *f.TournamentID {
			continue
		}
		if f.UserID != nil && reg.UserID != *f.UserID {
			continue
		}
		if f.PaymentStatus != nil && reg.PaymentStatus != *f.PaymentStatus {
			continue
		}
		out = append(out, r.hydrate(reg))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

func (r fakeRegistrationRepo) Update(ctx context.Context, exec repositories.SQLExecutor, reg *models.Registration) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registrations[reg.ID]; !ok {
		return repositories.ErrRegistrationNotFound
	}
	stored := *reg
	stored.User, stored.Tournament = nil, nil
	r.registrations[reg.ID] = stored
	return nil
}

func (r fakeRegistrationRepo) UpdatePayment(ctx context.Context, exec repositories.SQLExecutor, id int, expected *models.PaymentStatus, next models.PaymentStatus, status models.RegistrationStatus) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	reg, ok := r.registrations[id]
	if !ok {
		return repositories.ErrRegistrationNotFound
	}
	if expected != nil && reg.PaymentStatus != *expected {
		return repositories.ErrRegistrationStale
	}
	reg.PaymentStatus = next
	reg.Status = status
	r.registrations[id] = reg
	return nil
}

func (r fakeRegistrationRepo) Delete(ctx context.Context, exec repositories.SQLExecutor, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.registrations[id]; !ok {
		return repositories.ErrRegistrationNotFound
	}
	delete(r.registrations, id)
	return nil
}

func (r fakeRegistrationRepo) Count(ctx context.Context, ps *models.PaymentStatus) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, reg := range r.registrations {
		if ps == nil || reg.PaymentStatus == *ps {
			n++
		}
	}
	return n, nil
}

// --- storage ---

type fakeUploader struct {
	mu      sync.Mutex
	objects map[string][]byte
	deleted []string
}

func newFakeUploader() *fakeUploader {
	return &fakeUploader{objects: map[string][]byte{}}
}

func (u *fakeUploader) Upload(ctx context.Context, key, contentType string, reader io.Reader) (*storage.UploadResult, error) {
	u.mu.Lock()
	defer u.mu.Unlock()
	var buf bytes.Buffer
	if _, err := io.Copy(&buf, reader); err != nil {
		return nil, err
	}
	u.objects[key] = buf.Bytes()
	return &storage.UploadResult{Key: key, Location: u.GetPublicURL(key)}, nil
}

func (u *fakeUploader) Delete(ctx context.Context, key string) error {
	u.mu.Lock()
	defer u.mu.Unlock()
	delete(u.objects, key)
	u.deleted = append(u.deleted, key)
	return nil
}

func (u *fakeUploader) GetPublicURL(key string) string {
	return "https://cdn.test/" + key
}

// --- notifier ---

type countEvent struct {
	TournamentID int
	Count        int
}

type fakeNotifier struct {
	mu     sync.Mutex
	events []countEvent
}

func (n *fakeNotifier) RegistrationsChanged(tournamentID, count int) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.events = append(n.events, countEvent{tournamentID, count})
}

func (n *fakeNotifier) last() (countEvent, bool) {
	n.mu.Lock()
	defer n.mu.Unlock()
	if len(n.events) == 0 {
		return countEvent{}, false
	}
	return n.events[len(n.events)-1], true
}

// --- fixtures ---

type fixture struct {
	store         *memStore
	users         fakeUserRepo
	games         fakeGameRepo
	tournaments   fakeTournamentRepo
	registrations fakeRegistrationRepo
	uploader      *fakeUploader
	notifier      *fakeNotifier
}

func newFixture() *fixture {
	s := newMemStore()
	return &fixture{
		store:         s,
		users:         fakeUserRepo{s},
		games:         fakeGameRepo{s},
		tournaments:   fakeTournamentRepo{s},
		registrations: fakeRegistrationRepo{s},
		uploader:      newFakeUploader(),
		notifier:      &fakeNotifier{},
	}
}

func (f *fixture) addUser(name, email string) models.User {
	u := models.User{Name: name, Email: email, Role: models.RoleUser}
	_ = f.users.Create(context.Background(), &u)
	return u
}

func (f *fixture) addGame(name string) models.Game {
	g := models.Game{Name: name}
	_ = f.games.Create(context.Background(), &g)
	return g
}

func (f *fixture) addTournament(t models.Tournament) models.Tournament {
	_ = f.tournaments.Create(context.Background(), &t)
	return t
}

func ptr[T any](v T) *T { return &v }
