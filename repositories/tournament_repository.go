package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/vulca/torneos/models"
)

var (
	ErrTournamentNotFound     = errors.New("tournament not found")
	ErrTournamentNameConflict = errors.New("tournament name conflict for this game")
	ErrTournamentInvalidGame  = errors.New("invalid game reference")
	ErrTournamentInUse        = errors.New("tournament is in use")
	ErrTournamentFull         = errors.New("tournament registration limit reached")
)

type ListTournamentsFilter struct {
	GameID *int
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

type TournamentRepository interface {
	Create(ctx context.Context, tournament *models.Tournament) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error)
	List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	Update(ctx context.Context, tournament *models.Tournament) error
	UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error
	UpdateImageKey(ctx context.Context, tournamentID int, imageKey *string) error
	AdjustRegistrationsCount(ctx context.Context, exec SQLExecutor, id int, delta int) error
	Delete(ctx context.Context, id int) error
	GetForAutoStatusUpdate(ctx context.Context, now time.Time) ([]models.Tournament, error)
	Count(ctx context.Context, status *models.TournamentStatus) (int, error)
}

type postgresTournamentRepository struct {
	db *sql.DB
}

func NewPostgresTournamentRepository(db *sql.DB) TournamentRepository {
	return &postgresTournamentRepository{db: db}
}

const tournamentColumns = `
	t.id, t.name, t.description, t.game_id, t.start_date, t.end_date,
	t.registration_start, t.registration_end, t.entry_fee,
	t.has_registration_limit, t.registration_limit, t.status, t.registrations_count,
	t.created_at, t.image_key, g.name`

func scanTournament(row interface{ Scan(dest ...any) error }, t *models.Tournament) error {
	var gameName sql.NullString
	err := row.Scan(
		&t.ID, &t.Name, &t.Description, &t.GameID, &t.StartDate, &t.EndDate,
		&t.RegistrationStart, &t.RegistrationEnd, &t.EntryFee,
		&t.HasRegistrationLimit, &t.RegistrationLimit, &t.Status, &t.RegistrationsCount,
		&t.CreatedAt, &t.ImageKey, &gameName,
	)
	if err != nil {
		return err
	}
	if gameName.Valid {
		t.Game = &models.Game{ID: t.GameID, Name: gameName.String}
	}
	return nil
}

func (r *postgresTournamentRepository) Create(ctx context.Context, t *models.Tournament) error {
	query := `
		INSERT INTO tournaments (
			name, description, game_id, start_date, end_date,
			registration_start, registration_end, entry_fee,
			has_registration_limit, registration_limit, status, image_key
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, registrations_count`

	err := r.db.QueryRowContext(ctx, query,
		t.Name, t.Description, t.GameID, t.StartDate, t.EndDate,
		t.RegistrationStart, t.RegistrationEnd, t.EntryFee,
		t.HasRegistrationLimit, t.RegistrationLimit, t.Status, t.ImageKey,
	).Scan(&t.ID, &t.CreatedAt, &t.RegistrationsCount)

	return handleTournamentError(err)
}

func (r *postgresTournamentRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments t
		LEFT JOIN games g ON g.id = t.game_id
		WHERE t.id = $1`

	t := &models.Tournament{}
	if err := scanTournament(executorOr(exec, r.db).QueryRowContext(ctx, query, id), t); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrTournamentNotFound
		}
		return nil, err
	}
	return t, nil
}

func (r *postgresTournamentRepository) List(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments t
		LEFT JOIN games g ON g.id = t.game_id
		WHERE 1=1`

	args := []interface{}{}
	argID := 1

	if filter.GameID != nil {
		query += fmt.Sprintf(" AND t.game_id = $%d", argID)
		args = append(args, *filter.GameID)
		argID++
	}
	if filter.Status != nil {
		query += fmt.Sprintf(" AND t.status = $%d", argID)
		args = append(args, *filter.Status)
		argID++
	}

	query += " ORDER BY t.start_date DESC, t.created_at DESC"

	if filter.Limit > 0 {
		query += fmt.Sprintf(" LIMIT $%d", argID)
		args = append(args, filter.Limit)
		argID++
	}
	if filter.Offset > 0 {
		query += fmt.Sprintf(" OFFSET $%d", argID)
		args = append(args, filter.Offset)
	}

	return r.query(ctx, query, args...)
}

func (r *postgresTournamentRepository) query(ctx context.Context, query string, args ...interface{}) ([]models.Tournament, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	tournaments := make([]models.Tournament, 0)
	for rows.Next() {
		var t models.Tournament
		if scanErr := scanTournament(rows, &t); scanErr != nil {
			return nil, scanErr
		}
		tournaments = append(tournaments, t)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Update(ctx context.Context, t *models.Tournament) error {
	// image_key и registrations_count обновляются отдельными методами
	query := `
		UPDATE tournaments SET
			name = $1,
			description = $2,
			game_id = $3,
			start_date = $4,
			end_date = $5,
			registration_start = $6,
			registration_end = $7,
			entry_fee = $8,
			has_registration_limit = $9,
			registration_limit = $10,
			status = $11
		WHERE id = $12`

	result, err := r.db.ExecContext(ctx, query,
		t.Name, t.Description, t.GameID, t.StartDate, t.EndDate,
		t.RegistrationStart, t.RegistrationEnd, t.EntryFee,
		t.HasRegistrationLimit, t.RegistrationLimit, t.Status,
		t.ID,
	)
	if err != nil {
		return handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateStatus(ctx context.Context, exec SQLExecutor, id int, status models.TournamentStatus) error {
	query := `UPDATE tournaments SET status = $1 WHERE id = $2`
	result, err := executorOr(exec, r.db).ExecContext(ctx, query, status, id)
	if err != nil {
		return handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

func (r *postgresTournamentRepository) UpdateImageKey(ctx context.Context, tournamentID int, imageKey *string) error {
	query := `UPDATE tournaments SET image_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, imageKey, tournamentID)
	if err != nil {
		return fmt.Errorf("failed to update tournament image key: %w", err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// AdjustRegistrationsCount сдвигает счётчик на delta. Увеличение не проходит
// сверх registration_limit: тогда возвращается ErrTournamentFull.
func (r *postgresTournamentRepository) AdjustRegistrationsCount(ctx context.Context, exec SQLExecutor, id int, delta int) error {
	db := executorOr(exec, r.db)
	query := `UPDATE tournaments SET registrations_count = GREATEST(registrations_count + $1, 0) WHERE id = $2`
	if delta > 0 {
		query = `UPDATE tournaments SET registrations_count = registrations_count + $1
			WHERE id = $2 AND (NOT has_registration_limit OR registration_limit IS NULL
				OR registrations_count + $1 <= registration_limit)`
	}
	result, err := db.ExecContext(ctx, query, delta, id)
	if err != nil {
		return fmt.Errorf("failed to adjust registrations count for tournament %d: %w", id, err)
	}
	if delta <= 0 {
		return checkAffectedRows(result, ErrTournamentNotFound)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows > 0 {
		return nil
	}
	var exists bool
	if err := db.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM tournaments WHERE id = $1)`, id).Scan(&exists); err != nil {
		return fmt.Errorf("failed to check tournament %d: %w", id, err)
	}
	if !exists {
		return ErrTournamentNotFound
	}
	return ErrTournamentFull
}

func (r *postgresTournamentRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM tournaments WHERE id = $1`
	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return handleTournamentError(err)
	}
	return checkAffectedRows(result, ErrTournamentNotFound)
}

// GetForAutoStatusUpdate выбирает турниры, чей статус должен смениться по датам.
func (r *postgresTournamentRepository) GetForAutoStatusUpdate(ctx context.Context, now time.Time) ([]models.Tournament, error) {
	query := `SELECT ` + tournamentColumns + `
		FROM tournaments t
		LEFT JOIN games g ON g.id = t.game_id
		WHERE
			(t.status = $1 AND t.registration_start IS NOT NULL AND t.registration_start <= $5) OR
			(t.status = $2 AND t.registration_end IS NOT NULL AND t.registration_end <= $5) OR
			(t.status IN ($1, $2, $3) AND t.start_date <= $5) OR
			(t.status = $4 AND t.end_date <= $5)`

	tournaments, err := r.query(ctx, query,
		models.StatusPublished,          // $1
		models.StatusRegistrationOpen,   // $2
		models.StatusRegistrationClosed, // $3
		models.StatusOngoing,            // $4
		now,                             // $5
	)
	if err != nil {
		return nil, fmt.Errorf("failed to query tournaments for auto status update: %w", err)
	}
	return tournaments, nil
}

func (r *postgresTournamentRepository) Count(ctx context.Context, status *models.TournamentStatus) (int, error) {
	var n int
	var err error
	if status == nil {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournaments`).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM tournaments WHERE status = $1`, *status).Scan(&n)
	}
	return n, err
}

func handleTournamentError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505":
			if pqErr.Constraint == "tournaments_game_id_name_key" {
				return ErrTournamentNameConflict
			}
		case "23503":
			if pqErr.Constraint == "tournaments_game_id_fkey" {
				return ErrTournamentInvalidGame
			}
			return ErrTournamentInUse
		}
	}
	return err
}
