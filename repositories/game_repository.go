package repositories

import (
	"context"
	"database/sql"
	"errors"

	"github.com/lib/pq"
	"github.com/vulca/torneos/models"
)

var (
	ErrGameNotFound     = errors.New("game not found")
	ErrGameNameConflict = errors.New("game name conflict")
	ErrGameInUse        = errors.New("game cannot be deleted as it has tournaments") // FK при удалении
)

type GameRepository interface {
	Create(ctx context.Context, game *models.Game) error
	GetByID(ctx context.Context, id int) (*models.Game, error)
	GetAll(ctx context.Context) ([]models.Game, error)
	Update(ctx context.Context, game *models.Game) error
	Delete(ctx context.Context, id int) error
	UpdateImageKey(ctx context.Context, gameID int, imageKey *string) error
	Count(ctx context.Context) (int, error)
}

type postgresGameRepository struct {
	db *sql.DB
}

func NewPostgresGameRepository(db *sql.DB) GameRepository {
	return &postgresGameRepository{db: db}
}

func (r *postgresGameRepository) Create(ctx context.Context, game *models.Game) error {
	query := `INSERT INTO games (name, description, image_key) VALUES ($1, $2, $3) RETURNING id, created_at`

	err := r.db.QueryRowContext(ctx, query, game.Name, game.Description, game.ImageKey).Scan(&game.ID, &game.CreatedAt)
	return handleGameError(err)
}

func (r *postgresGameRepository) GetByID(ctx context.Context, id int) (*models.Game, error) {
	query := `
		SELECT g.id, g.name, g.description, g.image_key, g.created_at,
			(SELECT COUNT(*) FROM tournaments t WHERE t.game_id = g.id)
		FROM games g
		WHERE g.id = $1`

	var game models.Game
	err := r.db.QueryRowContext(ctx, query, id).Scan(
		&game.ID, &game.Name, &game.Description, &game.ImageKey, &game.CreatedAt, &game.TournamentsCount,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrGameNotFound
		}
		return nil, err
	}
	return &game, nil
}

func (r *postgresGameRepository) GetAll(ctx context.Context) ([]models.Game, error) {
	query := `
		SELECT g.id, g.name, g.description, g.image_key, g.created_at, COUNT(t.id)
		FROM games g
		LEFT JOIN tournaments t ON t.game_id = g.id
		GROUP BY g.id
		ORDER BY g.name ASC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	games := make([]models.Game, 0)
	for rows.Next() {
		var game models.Game
		if scanErr := rows.Scan(
			&game.ID, &game.Name, &game.Description, &game.ImageKey, &game.CreatedAt, &game.TournamentsCount,
		); scanErr != nil {
			return nil, scanErr
		}
		games = append(games, game)
	}

	if err = rows.Err(); err != nil {
		return nil, err
	}
	return games, nil
}

func (r *postgresGameRepository) Update(ctx context.Context, game *models.Game) error {
	query := `UPDATE games SET name = $1, description = $2 WHERE id = $3`

	result, err := r.db.ExecContext(ctx, query, game.Name, game.Description, game.ID)
	if err != nil {
		return handleGameError(err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) Delete(ctx context.Context, id int) error {
	query := `DELETE FROM games WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return handleGameError(err)
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) UpdateImageKey(ctx context.Context, gameID int, imageKey *string) error {
	query := `UPDATE games SET image_key = $1 WHERE id = $2`
	result, err := r.db.ExecContext(ctx, query, imageKey, gameID)
	if err != nil {
		return err
	}
	return checkAffectedRows(result, ErrGameNotFound)
}

func (r *postgresGameRepository) Count(ctx context.Context) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM games`).Scan(&n)
	return n, err
}

func handleGameError(err error) error {
	if err == nil {
		return nil
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "games_name_key" {
				return ErrGameNameConflict
			}
		case "23503": // foreign_key_violation, ON DELETE RESTRICT у tournaments
			return ErrGameInUse
		}
	}
	return err
}
