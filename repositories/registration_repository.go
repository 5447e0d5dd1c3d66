package repositories

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
	"github.com/vulca/torneos/models"
)

var (
	ErrRegistrationNotFound          = errors.New("registration not found")
	ErrRegistrationConflict          = errors.New("user is already registered for this tournament")
	ErrRegistrationUserInvalid       = errors.New("registration user invalid")
	ErrRegistrationTournamentInvalid = errors.New("registration tournament invalid")
	ErrRegistrationStale             = errors.New("registration payment status changed concurrently")
)

type ListRegistrationsFilter struct {
	TournamentID  *int
	UserID        *int
	PaymentStatus *models.PaymentStatus
}

type RegistrationRepository interface {
	Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error)
	List(ctx context.Context, filter ListRegistrationsFilter) ([]models.Registration, error)
	Update(ctx context.Context, exec SQLExecutor, reg *models.Registration) error
	// UpdatePayment меняет статус оплаты; если expected != nil, обновление
	// выполняется только при совпадении текущего статуса.
	UpdatePayment(ctx context.Context, exec SQLExecutor, id int, expected *models.PaymentStatus, next models.PaymentStatus, status models.RegistrationStatus) error
	Delete(ctx context.Context, exec SQLExecutor, id int) error
	Count(ctx context.Context, paymentStatus *models.PaymentStatus) (int, error)
}

type postgresRegistrationRepository struct {
	db *sql.DB
}

func NewPostgresRegistrationRepository(db *sql.DB) RegistrationRepository {
	return &postgresRegistrationRepository{db: db}
}

const registrationSelect = `
	SELECT
		r.id, r.user_id, r.tournament_id, r.status, r.payment_method, r.payment_status,
		r.payment_notes, r.amount, r.team_name, r.registered_at,
		u.name, u.email, t.name
	FROM registrations r
	JOIN users u ON u.id = r.user_id
	JOIN tournaments t ON t.id = r.tournament_id`

func scanRegistration(row interface{ Scan(dest ...any) error }, reg *models.Registration) error {
	var userName, userEmail, tournamentName string
	err := row.Scan(
		&reg.ID, &reg.UserID, &reg.TournamentID, &reg.Status, &reg.PaymentMethod, &reg.PaymentStatus,
		&reg.PaymentNotes, &reg.Amount, &reg.TeamName, &reg.RegisteredAt,
		&userName, &userEmail, &tournamentName,
	)
	if err != nil {
		return err
	}
	reg.User = &models.User{ID: reg.UserID, Name: userName, Email: userEmail}
	reg.Tournament = &models.Tournament{ID: reg.TournamentID, Name: tournamentName}
	return nil
}

func (r *postgresRegistrationRepository) Create(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	query := `
		INSERT INTO registrations (
			user_id, tournament_id, status, payment_method, payment_status,
			payment_notes, amount, team_name
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING id, registered_at`

	err := executorOr(exec, r.db).QueryRowContext(ctx, query,
		reg.UserID, reg.TournamentID, reg.Status, reg.PaymentMethod, reg.PaymentStatus,
		reg.PaymentNotes, reg.Amount, reg.TeamName,
	).Scan(&reg.ID, &reg.RegisteredAt)
	if err != nil {
		if mapped := handleRegistrationError(err); mapped != err {
			return mapped
		}
		return fmt.Errorf("failed to create registration: %w", err)
	}
	return nil
}

func (r *postgresRegistrationRepository) GetByID(ctx context.Context, exec SQLExecutor, id int) (*models.Registration, error) {
	reg := &models.Registration{}
	err := scanRegistration(executorOr(exec, r.db).QueryRowContext(ctx, registrationSelect+` WHERE r.id = $1`, id), reg)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrRegistrationNotFound
		}
		return nil, err
	}
	return reg, nil
}

func (r *postgresRegistrationRepository) List(ctx context.Context, filter ListRegistrationsFilter) ([]models.Registration, error) {
	query := registrationSelect + ` WHERE 1=1`
	args := []interface{}{}
	argID := 1

	if filter.TournamentID != nil {
		query += fmt.Sprintf(" AND r.tournament_id = $%d", argID)
		args = append(args, *filter.TournamentID)
		argID++
	}
	if filter.UserID != nil {
		query += fmt.Sprintf(" AND r.user_id = $%d", argID)
		args = append(args, *filter.UserID)
		argID++
	}
	if filter.PaymentStatus != nil {
		query += fmt.Sprintf(" AND r.payment_status = $%d", argID)
		args = append(args, *filter.PaymentStatus)
	}
	query += " ORDER BY r.registered_at DESC, r.id DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	registrations := make([]models.Registration, 0)
	for rows.Next() {
		var reg models.Registration
		if scanErr := scanRegistration(rows, &reg); scanErr != nil {
			return nil, scanErr
		}
		registrations = append(registrations, reg)
	}
	if err = rows.Err(); err != nil {
		return nil, err
	}
	return registrations, nil
}

func (r *postgresRegistrationRepository) Update(ctx context.Context, exec SQLExecutor, reg *models.Registration) error {
	query := `
		UPDATE registrations SET
			status = $1,
			payment_method = $2,
			payment_status = $3,
			payment_notes = $4,
			amount = $5,
			team_name = $6
		WHERE id = $7`

	result, err := executorOr(exec, r.db).ExecContext(ctx, query,
		reg.Status, reg.PaymentMethod, reg.PaymentStatus, reg.PaymentNotes, reg.Amount, reg.TeamName,
		reg.ID,
	)
	if err != nil {
		return handleRegistrationError(err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) UpdatePayment(ctx context.Context, exec SQLExecutor, id int, expected *models.PaymentStatus, next models.PaymentStatus, status models.RegistrationStatus) error {
	executor := executorOr(exec, r.db)
	var (
		result sql.Result
		err    error
	)
	if expected == nil {
		result, err = executor.ExecContext(ctx,
			`UPDATE registrations SET payment_status = $1, status = $2 WHERE id = $3`,
			next, status, id)
	} else {
		result, err = executor.ExecContext(ctx,
			`UPDATE registrations SET payment_status = $1, status = $2 WHERE id = $3 AND payment_status = $4`,
			next, status, id, *expected)
	}
	if err != nil {
		return handleRegistrationError(err)
	}
	if expected == nil {
		return checkAffectedRows(result, ErrRegistrationNotFound)
	}
	// Строка есть, но статус уже другой
	return checkAffectedRows(result, ErrRegistrationStale)
}

func (r *postgresRegistrationRepository) Delete(ctx context.Context, exec SQLExecutor, id int) error {
	result, err := executorOr(exec, r.db).ExecContext(ctx, `DELETE FROM registrations WHERE id = $1`, id)
	if err != nil {
		return handleRegistrationError(err)
	}
	return checkAffectedRows(result, ErrRegistrationNotFound)
}

func (r *postgresRegistrationRepository) Count(ctx context.Context, paymentStatus *models.PaymentStatus) (int, error) {
	var n int
	var err error
	if paymentStatus == nil {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations`).Scan(&n)
	} else {
		err = r.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM registrations WHERE payment_status = $1`, *paymentStatus).Scan(&n)
	}
	return n, err
}

func handleRegistrationError(err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		switch pqErr.Code {
		case "23505": // unique_violation
			if pqErr.Constraint == "registrations_user_id_tournament_id_key" {
				return ErrRegistrationConflict
			}
		case "23503": // foreign_key_violation
			switch pqErr.Constraint {
			case "registrations_user_id_fkey":
				return ErrRegistrationUserInvalid
			case "registrations_tournament_id_fkey":
				return ErrRegistrationTournamentInvalid
			}
		}
	}
	return err
}
