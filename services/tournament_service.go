package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/repositories"
	"github.com/vulca/torneos/storage"
	"golang.org/x/sync/errgroup"
)

var (
	ErrTournamentNameConflict  = errors.New("tournament name already exists for this game")
	ErrTournamentInvalidStatus = errors.New("invalid tournament status provided")
)

type TournamentService interface {
	CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error)
	GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error)
	GetTournamentDetails(ctx context.Context, id int) (*TournamentDetails, error)
	ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error)
	UpdateTournament(ctx context.Context, id int, input UpdateTournamentInput) (*models.Tournament, error)
	UpdateTournamentStatus(ctx context.Context, id int, status models.TournamentStatus) (*models.Tournament, error)
	DeleteTournament(ctx context.Context, id int) error
	UploadTournamentImage(ctx context.Context, id int, file io.Reader, contentType string) (*models.Tournament, error)
	AutoUpdateTournamentStatusesByDates(ctx context.Context) error
}

type CreateTournamentInput struct {
	Name                 string                  `json:"name"`
	Description          *string                 `json:"description"`
	GameID               int                     `json:"game_id"`
	StartDate            time.Time               `json:"start_date"`
	EndDate              time.Time               `json:"end_date"`
	RegistrationStart    *time.Time              `json:"registration_start"`
	RegistrationEnd      *time.Time              `json:"registration_end"`
	EntryFee             *float64                `json:"entry_fee"`
	HasRegistrationLimit bool                    `json:"has_registration_limit"`
	RegistrationLimit    *int                    `json:"registration_limit"`
	Status               models.TournamentStatus `json:"status"`
}

type UpdateTournamentInput struct {
	Name                 *string                  `json:"name"`
	Description          *string                  `json:"description"`
	GameID               *int                     `json:"game_id"`
	StartDate            *time.Time               `json:"start_date"`
	EndDate              *time.Time               `json:"end_date"`
	RegistrationStart    Optional[time.Time]      `json:"registration_start"`
	RegistrationEnd      Optional[time.Time]      `json:"registration_end"`
	EntryFee             Optional[float64]        `json:"entry_fee"`
	HasRegistrationLimit *bool                    `json:"has_registration_limit"`
	RegistrationLimit    Optional[int]            `json:"registration_limit"`
	Status               *models.TournamentStatus `json:"status"`
}

type ListTournamentsFilter struct {
	GameID *int
	Status *models.TournamentStatus
	Limit  int
	Offset int
}

// TournamentDetails: данные страницы турнира.
type TournamentDetails struct {
	Tournament    *models.Tournament    `json:"tournament"`
	Registrations []models.Registration `json:"registrations"`
}

type tournamentService struct {
	tournamentRepo   repositories.TournamentRepository
	gameRepo         repositories.GameRepository
	registrationRepo repositories.RegistrationRepository
	uploader         storage.FileUploader
	logger           *slog.Logger
	now              func() time.Time
}

func NewTournamentService(
	tournamentRepo repositories.TournamentRepository,
	gameRepo repositories.GameRepository,
	registrationRepo repositories.RegistrationRepository,
	uploader storage.FileUploader,
	logger *slog.Logger,
) TournamentService {
	return &tournamentService{
		tournamentRepo:   tournamentRepo,
		gameRepo:         gameRepo,
		registrationRepo: registrationRepo,
		uploader:         uploader,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *tournamentService) CreateTournament(ctx context.Context, input CreateTournamentInput) (*models.Tournament, error) {
	status := input.Status
	if status == "" {
		status = models.StatusDraft
	}
	t := &models.Tournament{
		Name:                 strings.TrimSpace(input.Name),
		Description:          trimOptional(input.Description),
		GameID:               input.GameID,
		StartDate:            input.StartDate,
		EndDate:              input.EndDate,
		RegistrationStart:    input.RegistrationStart,
		RegistrationEnd:      input.RegistrationEnd,
		EntryFee:             input.EntryFee,
		HasRegistrationLimit: input.HasRegistrationLimit,
		RegistrationLimit:    input.RegistrationLimit,
		Status:               status,
	}

	if err := s.validate(ctx, t); err != nil {
		return nil, err
	}

	if err := s.tournamentRepo.Create(ctx, t); err != nil {
		return nil, s.mapWriteError(err)
	}
	return t, nil
}

func (s *tournamentService) validate(ctx context.Context, t *models.Tournament) error {
	v := NewValidationError()

	if t.Name == "" {
		v.Add("name", "El nombre es obligatorio.")
	}
	if t.GameID <= 0 {
		v.Add("game_id", "Selecciona un juego.")
	} else if _, err := s.gameRepo.GetByID(ctx, t.GameID); err != nil {
		if !errors.Is(err, repositories.ErrGameNotFound) {
			return fmt.Errorf("failed to check game %d: %w", t.GameID, err)
		}
		v.Add("game_id", "El juego seleccionado no existe.")
	}

	if t.StartDate.IsZero() {
		v.Add("start_date", "La fecha de inicio es obligatoria.")
	}
	if t.EndDate.IsZero() {
		v.Add("end_date", "La fecha de fin es obligatoria.")
	} else if !t.StartDate.IsZero() && t.EndDate.Before(t.StartDate) {
		v.Add("end_date", "La fecha de fin debe ser posterior a la de inicio.")
	}

	if t.RegistrationStart != nil && t.RegistrationEnd != nil && t.RegistrationEnd.Before(*t.RegistrationStart) {
		v.Add("registration_end", "El cierre de inscripciones debe ser posterior a la apertura.")
	}
	if t.RegistrationEnd != nil && !t.StartDate.IsZero() && t.RegistrationEnd.After(t.StartDate) {
		v.Add("registration_end", "Las inscripciones deben cerrar antes del inicio del torneo.")
	}

	if t.EntryFee != nil && *t.EntryFee < 0 {
		v.Add("entry_fee", "La cuota de inscripción no puede ser negativa.")
	}

	if t.HasRegistrationLimit {
		if t.RegistrationLimit == nil || *t.RegistrationLimit < 1 {
			v.Add("registration_limit", "Indica un límite de inscripciones mayor que cero.")
		}
	} else {
		t.RegistrationLimit = nil
	}

	if !t.Status.Valid() {
		v.Add("status", "Estado no válido.")
	}

	return v.OrNil()
}

func (s *tournamentService) mapWriteError(err error) error {
	switch {
	case errors.Is(err, repositories.ErrTournamentNotFound):
		return ErrTournamentNotFound
	case errors.Is(err, repositories.ErrTournamentNameConflict):
		v := NewValidationError()
		v.Add("name", "Ya existe un torneo con ese nombre para este juego.")
		return fmt.Errorf("%w: %w", ErrTournamentNameConflict, v)
	case errors.Is(err, repositories.ErrTournamentInvalidGame):
		v := NewValidationError()
		v.Add("game_id", "El juego seleccionado no existe.")
		return v
	default:
		return fmt.Errorf("failed to save tournament: %w", err)
	}
}

func (s *tournamentService) GetTournamentByID(ctx context.Context, id int) (*models.Tournament, error) {
	t, err := s.tournamentRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to get tournament by id %d: %w", id, err)
	}
	populateTournamentImageURL(t, s.uploader)
	return t, nil
}

// GetTournamentDetails загружает турнир и его заявки параллельно.
func (s *tournamentService) GetTournamentDetails(ctx context.Context, id int) (*TournamentDetails, error) {
	details := &TournamentDetails{}

	g, gCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		t, err := s.GetTournamentByID(gCtx, id)
		if err != nil {
			return err
		}
		details.Tournament = t
		return nil
	})
	g.Go(func() error {
		regs, err := s.registrationRepo.List(gCtx, repositories.ListRegistrationsFilter{TournamentID: &id})
		if err != nil {
			return fmt.Errorf("failed to list registrations for tournament %d: %w", id, err)
		}
		details.Registrations = regs
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return details, nil
}

func (s *tournamentService) ListTournaments(ctx context.Context, filter ListTournamentsFilter) ([]models.Tournament, error) {
	tournaments, err := s.tournamentRepo.List(ctx, repositories.ListTournamentsFilter{
		GameID: filter.GameID,
		Status: filter.Status,
		Limit:  filter.Limit,
		Offset: filter.Offset,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list tournaments: %w", err)
	}
	for i := range tournaments {
		populateTournamentImageURL(&tournaments[i], s.uploader)
	}
	return tournaments, nil
}

func (s *tournamentService) UpdateTournament(ctx context.Context, id int, input UpdateTournamentInput) (*models.Tournament, error) {
	t, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if input.Name != nil {
		t.Name = strings.TrimSpace(*input.Name)
	}
	if input.Description != nil {
		t.Description = trimOptional(input.Description)
	}
	if input.GameID != nil {
		t.GameID = *input.GameID
	}
	if input.StartDate != nil {
		t.StartDate = *input.StartDate
	}
	if input.EndDate != nil {
		t.EndDate = *input.EndDate
	}
	input.RegistrationStart.apply(&t.RegistrationStart)
	input.RegistrationEnd.apply(&t.RegistrationEnd)
	input.EntryFee.apply(&t.EntryFee)
	if input.HasRegistrationLimit != nil {
		t.HasRegistrationLimit = *input.HasRegistrationLimit
	}
	input.RegistrationLimit.apply(&t.RegistrationLimit)
	if input.Status != nil {
		t.Status = *input.Status
	}

	if err := s.validate(ctx, t); err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.Update(ctx, t); err != nil {
		return nil, s.mapWriteError(err)
	}
	if input.GameID != nil {
		// Название игры могло измениться вместе с game_id
		return s.GetTournamentByID(ctx, id)
	}
	return t, nil
}

func (s *tournamentService) UpdateTournamentStatus(ctx context.Context, id int, status models.TournamentStatus) (*models.Tournament, error) {
	if !status.Valid() {
		return nil, ErrTournamentInvalidStatus
	}
	if err := s.tournamentRepo.UpdateStatus(ctx, nil, id, status); err != nil {
		return nil, s.mapWriteError(err)
	}
	return s.GetTournamentByID(ctx, id)
}

func (s *tournamentService) DeleteTournament(ctx context.Context, id int) error {
	t, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return err
	}
	if err := s.tournamentRepo.Delete(ctx, id); err != nil {
		return s.mapWriteError(err)
	}
	if t.ImageKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *t.ImageKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete tournament image", slog.Int("tournament_id", id), slog.Any("error", err))
		}
	}
	return nil
}

func (s *tournamentService) UploadTournamentImage(ctx context.Context, id int, file io.Reader, contentType string) (*models.Tournament, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	t, err := s.GetTournamentByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldKey := t.ImageKey
	newKey, err := uploadImage(ctx, s.uploader, "tournaments", id, file, contentType)
	if err != nil {
		return nil, err
	}
	if err := s.tournamentRepo.UpdateImageKey(ctx, id, &newKey); err != nil {
		if delErr := s.uploader.Delete(ctx, newKey); delErr != nil {
			s.logger.WarnContext(ctx, "failed to delete orphaned image", slog.String("key", newKey), slog.Any("error", delErr))
		}
		return nil, s.mapWriteError(err)
	}
	if oldKey != nil && *oldKey != "" {
		if err := s.uploader.Delete(ctx, *oldKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete previous tournament image", slog.String("key", *oldKey), slog.Any("error", err))
		}
	}

	t.ImageKey = &newKey
	t.ImageURL = nil
	populateTournamentImageURL(t, s.uploader)
	return t, nil
}

// NextStatusByDates возвращает статус, который турнир должен иметь в момент now.
// Черновики, завершённые и отменённые турниры не меняются.
func NextStatusByDates(t *models.Tournament, now time.Time) models.TournamentStatus {
	switch t.Status {
	case models.StatusOngoing:
		if !now.Before(t.EndDate) {
			return models.StatusFinished
		}
		return t.Status
	case models.StatusPublished, models.StatusRegistrationOpen, models.StatusRegistrationClosed:
		if !now.Before(t.StartDate) {
			return models.StatusOngoing
		}
	default:
		return t.Status
	}

	regEnded := t.RegistrationEnd != nil && !now.Before(*t.RegistrationEnd)
	switch t.Status {
	case models.StatusPublished:
		if t.RegistrationStart != nil && !now.Before(*t.RegistrationStart) {
			if regEnded {
				return models.StatusRegistrationClosed
			}
			return models.StatusRegistrationOpen
		}
	case models.StatusRegistrationOpen:
		if regEnded {
			return models.StatusRegistrationClosed
		}
	}
	return t.Status
}

func (s *tournamentService) AutoUpdateTournamentStatusesByDates(ctx context.Context) error {
	now := s.now()
	candidates, err := s.tournamentRepo.GetForAutoStatusUpdate(ctx, now)
	if err != nil {
		return err
	}

	var errs []error
	for i := range candidates {
		t := &candidates[i]
		next := NextStatusByDates(t, now)
		if next == t.Status {
			continue
		}
		if err := s.tournamentRepo.UpdateStatus(ctx, nil, t.ID, next); err != nil {
			s.logger.ErrorContext(ctx, "failed to auto-update tournament status",
				slog.Int("tournament_id", t.ID), slog.String("from", string(t.Status)), slog.String("to", string(next)), slog.Any("error", err))
			errs = append(errs, err)
			continue
		}
		s.logger.InfoContext(ctx, "tournament status updated by dates",
			slog.Int("tournament_id", t.ID), slog.String("from", string(t.Status)), slog.String("to", string(next)))
	}
	return errors.Join(errs...)
}
