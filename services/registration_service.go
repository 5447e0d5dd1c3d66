package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/repositories"
)

var (
	ErrRegistrationNotOpen      = errors.New("tournament registration is not open")
	ErrTournamentFull           = errors.New("tournament registration is full")
	ErrRegistrationConflict     = errors.New("user is already registered for this tournament")
	ErrInvalidPaymentTransition = errors.New("invalid payment status transition")
	ErrRegistrationStale        = errors.New("registration was modified by someone else, reload and retry")
)

// RegistrationNotifier получает новое число заявок турнира после каждого изменения.
type RegistrationNotifier interface {
	RegistrationsChanged(tournamentID int, count int)
}

type RegistrationService interface {
	CreateRegistration(ctx context.Context, input CreateRegistrationInput) (*models.Registration, error)
	Register(ctx context.Context, userID, tournamentID int, input SelfRegistrationInput) (*RegistrationResult, error)
	GetRegistration(ctx context.Context, id int) (*models.Registration, error)
	ListRegistrations(ctx context.Context, filter ListRegistrationsFilter) ([]models.Registration, error)
	UpdateRegistration(ctx context.Context, id int, input UpdateRegistrationInput) (*models.Registration, error)
	ChangePaymentStatus(ctx context.Context, id int, next models.PaymentStatus, expected *models.PaymentStatus) (*models.Registration, error)
	DeleteRegistration(ctx context.Context, id int) error
}

// CreateRegistrationInput: заявка, созданная администратором.
type CreateRegistrationInput struct {
	UserID        int                  `json:"user_id"`
	TournamentID  int                  `json:"tournament_id"`
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	PaymentStatus models.PaymentStatus `json:"payment_status"`
	PaymentNotes  *string              `json:"payment_notes"`
	Amount        *float64             `json:"amount"`
	TeamName      *string              `json:"team_name"`
}

// SelfRegistrationInput: заявка пользователя на открытый турнир.
type SelfRegistrationInput struct {
	PaymentMethod models.PaymentMethod `json:"payment_method"`
	TeamName      *string              `json:"team_name"`
}

type UpdateRegistrationInput struct {
	PaymentMethod *models.PaymentMethod `json:"payment_method"`
	PaymentStatus *models.PaymentStatus `json:"payment_status"`
	PaymentNotes  *string               `json:"payment_notes"`
	Amount        Optional[float64]     `json:"amount"`
	TeamName      *string               `json:"team_name"`
}

type ListRegistrationsFilter struct {
	TournamentID  *int
	UserID        *int
	PaymentStatus *models.PaymentStatus
}

// RegistrationResult: CheckoutURL заполнен, если оплату нужно завершить на внешней странице.
type RegistrationResult struct {
	Registration *models.Registration `json:"registration"`
	CheckoutURL  string               `json:"checkout_url,omitempty"`
}

type registrationService struct {
	tx               repositories.Transactor
	registrationRepo repositories.RegistrationRepository
	tournamentRepo   repositories.TournamentRepository
	userRepo         repositories.UserRepository
	checkout         CheckoutService
	notifier         RegistrationNotifier
	logger           *slog.Logger
	now              func() time.Time
}

func NewRegistrationService(
	tx repositories.Transactor,
	registrationRepo repositories.RegistrationRepository,
	tournamentRepo repositories.TournamentRepository,
	userRepo repositories.UserRepository,
	checkout CheckoutService,
	notifier RegistrationNotifier,
	logger *slog.Logger,
) RegistrationService {
	return &registrationService{
		tx:               tx,
		registrationRepo: registrationRepo,
		tournamentRepo:   tournamentRepo,
		userRepo:         userRepo,
		checkout:         checkout,
		notifier:         notifier,
		logger:           logger,
		now:              time.Now,
	}
}

func (s *registrationService) CreateRegistration(ctx context.Context, input CreateRegistrationInput) (*models.Registration, error) {
	v := NewValidationError()

	if input.UserID <= 0 {
		v.Add("user_id", "Selecciona un usuario.")
	} else if _, err := s.userRepo.GetByID(ctx, input.UserID); err != nil {
		if !errors.Is(err, repositories.ErrUserNotFound) {
			return nil, fmt.Errorf("failed to check user %d: %w", input.UserID, err)
		}
		v.Add("user_id", "El usuario seleccionado no existe.")
	}

	var tournament *models.Tournament
	if input.TournamentID <= 0 {
		v.Add("tournament_id", "Selecciona un torneo.")
	} else {
		t, err := s.tournamentRepo.GetByID(ctx, nil, input.TournamentID)
		if err != nil {
			if !errors.Is(err, repositories.ErrTournamentNotFound) {
				return nil, fmt.Errorf("failed to check tournament %d: %w", input.TournamentID, err)
			}
			v.Add("tournament_id", "El torneo seleccionado no existe.")
		}
		tournament = t
	}

	method := input.PaymentMethod
	if method == "" {
		method = models.PaymentCash
	}
	if !method.Valid() {
		v.Add("payment_method", "Método de pago no válido.")
	}
	paymentStatus := input.PaymentStatus
	if paymentStatus == "" {
		paymentStatus = models.PaymentPending
	}
	if !paymentStatus.Valid() {
		v.Add("payment_status", "Estado de pago no válido.")
	}
	if input.Amount != nil && *input.Amount < 0 {
		v.Add("amount", "El importe no puede ser negativo.")
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	amount := input.Amount
	if amount == nil {
		amount = tournament.EntryFee
	}

	reg := &models.Registration{
		UserID:        input.UserID,
		TournamentID:  input.TournamentID,
		Status:        models.RegistrationStatusFor(paymentStatus),
		PaymentMethod: method,
		PaymentStatus: paymentStatus,
		PaymentNotes:  trimOptional(input.PaymentNotes),
		Amount:        amount,
		TeamName:      trimOptional(input.TeamName),
	}
	if err := s.insert(ctx, reg); err != nil {
		return nil, err
	}
	return s.GetRegistration(ctx, reg.ID)
}

func (s *registrationService) Register(ctx context.Context, userID, tournamentID int, input SelfRegistrationInput) (*RegistrationResult, error) {
	user, err := s.userRepo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, repositories.ErrUserNotFound) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to load user %d: %w", userID, err)
	}
	tournament, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		if errors.Is(err, repositories.ErrTournamentNotFound) {
			return nil, ErrTournamentNotFound
		}
		return nil, fmt.Errorf("failed to load tournament %d: %w", tournamentID, err)
	}

	if tournament.IsFull() {
		return nil, ErrTournamentFull
	}
	if !tournament.AcceptsRegistrations(s.now()) {
		return nil, ErrRegistrationNotOpen
	}

	method := input.PaymentMethod
	if method == "" {
		method = models.PaymentCash
	}
	if !method.Valid() {
		v := NewValidationError()
		v.Add("payment_method", "Método de pago no válido.")
		return nil, v
	}

	reg := &models.Registration{
		UserID:        user.ID,
		TournamentID:  tournament.ID,
		Status:        models.RegistrationPending,
		PaymentMethod: method,
		PaymentStatus: models.PaymentPending,
		Amount:        tournament.EntryFee,
		TeamName:      trimOptional(input.TeamName),
	}
	if err := s.insert(ctx, reg); err != nil {
		return nil, err
	}
	reg.User = user
	reg.Tournament = tournament

	result := &RegistrationResult{Registration: reg}
	if method == models.PaymentCard && tournament.EntryFee != nil && *tournament.EntryFee > 0 && s.checkout != nil {
		url, err := s.checkout.CheckoutURL(reg, tournament)
		if err != nil {
			// Заявка уже создана; пользователь может оплатить позже
			s.logger.ErrorContext(ctx, "failed to build checkout url", slog.Int("registration_id", reg.ID), slog.Any("error", err))
		}
		result.CheckoutURL = url
	}
	return result, nil
}

func (s *registrationService) insert(ctx context.Context, reg *models.Registration) error {
	err := s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.registrationRepo.Create(ctx, exec, reg); err != nil {
			return err
		}
		if reg.Active() {
			return s.tournamentRepo.AdjustRegistrationsCount(ctx, exec, reg.TournamentID, 1)
		}
		return nil
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrRegistrationConflict):
			v := NewValidationError()
			v.Add("user_id", "El usuario ya está inscrito en este torneo.")
			return fmt.Errorf("%w: %w", ErrRegistrationConflict, v)
		case errors.Is(err, repositories.ErrTournamentFull):
			return ErrTournamentFull
		case errors.Is(err, repositories.ErrRegistrationUserInvalid):
			return ErrUserNotFound
		case errors.Is(err, repositories.ErrRegistrationTournamentInvalid), errors.Is(err, repositories.ErrTournamentNotFound):
			return ErrTournamentNotFound
		default:
			return fmt.Errorf("failed to create registration: %w", err)
		}
	}
	s.notifyCount(ctx, reg.TournamentID)
	return nil
}

func (s *registrationService) GetRegistration(ctx context.Context, id int) (*models.Registration, error) {
	reg, err := s.registrationRepo.GetByID(ctx, nil, id)
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return nil, ErrRegistrationNotFound
		}
		return nil, fmt.Errorf("failed to get registration %d: %w", id, err)
	}
	return reg, nil
}

func (s *registrationService) ListRegistrations(ctx context.Context, filter ListRegistrationsFilter) ([]models.Registration, error) {
	regs, err := s.registrationRepo.List(ctx, repositories.ListRegistrationsFilter{
		TournamentID:  filter.TournamentID,
		UserID:        filter.UserID,
		PaymentStatus: filter.PaymentStatus,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to list registrations: %w", err)
	}
	return regs, nil
}

func (s *registrationService) UpdateRegistration(ctx context.Context, id int, input UpdateRegistrationInput) (*models.Registration, error) {
	reg, err := s.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	wasActive := reg.Active()

	v := NewValidationError()
	if input.PaymentMethod != nil {
		if !input.PaymentMethod.Valid() {
			v.Add("payment_method", "Método de pago no válido.")
		}
		reg.PaymentMethod = *input.PaymentMethod
	}
	if input.PaymentStatus != nil && *input.PaymentStatus != reg.PaymentStatus {
		switch {
		case !input.PaymentStatus.Valid():
			v.Add("payment_status", "Estado de pago no válido.")
		case !reg.PaymentStatus.CanTransitionTo(*input.PaymentStatus):
			v.Add("payment_status", fmt.Sprintf("No se puede pasar de %q a %q.",
				reg.PaymentStatus.Label(), input.PaymentStatus.Label()))
		}
		reg.PaymentStatus = *input.PaymentStatus
		reg.Status = models.RegistrationStatusFor(reg.PaymentStatus)
	}
	if input.PaymentNotes != nil {
		reg.PaymentNotes = trimOptional(input.PaymentNotes)
	}
	input.Amount.apply(&reg.Amount)
	if reg.Amount != nil && *reg.Amount < 0 {
		v.Add("amount", "El importe no puede ser negativo.")
	}
	if input.TeamName != nil {
		reg.TeamName = trimOptional(input.TeamName)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.registrationRepo.Update(ctx, exec, reg); err != nil {
			return err
		}
		return s.adjustCount(ctx, exec, reg.TournamentID, wasActive, reg.Active())
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrRegistrationNotFound):
			return nil, ErrRegistrationNotFound
		case errors.Is(err, repositories.ErrTournamentFull):
			return nil, ErrTournamentFull
		default:
			return nil, fmt.Errorf("failed to update registration %d: %w", id, err)
		}
	}
	if wasActive != reg.Active() {
		s.notifyCount(ctx, reg.TournamentID)
	}
	return reg, nil
}

// ChangePaymentStatus: быстрое действие из списка заявок. Если expected задан,
// изменение применяется только когда текущий статус совпадает с ним.
func (s *registrationService) ChangePaymentStatus(ctx context.Context, id int, next models.PaymentStatus, expected *models.PaymentStatus) (*models.Registration, error) {
	if !next.Valid() {
		v := NewValidationError()
		v.Add("payment_status", "Estado de pago no válido.")
		return nil, v
	}
	reg, err := s.GetRegistration(ctx, id)
	if err != nil {
		return nil, err
	}
	if expected != nil && *expected != reg.PaymentStatus {
		return nil, ErrRegistrationStale
	}
	if !reg.PaymentStatus.CanTransitionTo(next) {
		return nil, fmt.Errorf("%w: %s -> %s", ErrInvalidPaymentTransition, reg.PaymentStatus, next)
	}

	wasActive := reg.Active()
	current := reg.PaymentStatus
	status := models.RegistrationStatusFor(next)
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.registrationRepo.UpdatePayment(ctx, exec, id, &current, next, status); err != nil {
			return err
		}
		return s.adjustCount(ctx, exec, reg.TournamentID, wasActive, status != models.RegistrationCancelled)
	})
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrRegistrationStale):
			return nil, ErrRegistrationStale
		case errors.Is(err, repositories.ErrRegistrationNotFound):
			return nil, ErrRegistrationNotFound
		case errors.Is(err, repositories.ErrTournamentFull):
			return nil, ErrTournamentFull
		default:
			return nil, fmt.Errorf("failed to change payment status of registration %d: %w", id, err)
		}
	}

	reg.PaymentStatus = next
	reg.Status = status
	if wasActive != reg.Active() {
		s.notifyCount(ctx, reg.TournamentID)
	}
	s.logger.InfoContext(ctx, "registration payment status changed",
		slog.Int("registration_id", id), slog.String("from", string(current)), slog.String("to", string(next)))
	return reg, nil
}

func (s *registrationService) DeleteRegistration(ctx context.Context, id int) error {
	reg, err := s.GetRegistration(ctx, id)
	if err != nil {
		return err
	}
	err = s.tx.WithinTx(ctx, func(exec repositories.SQLExecutor) error {
		if err := s.registrationRepo.Delete(ctx, exec, id); err != nil {
			return err
		}
		return s.adjustCount(ctx, exec, reg.TournamentID, reg.Active(), false)
	})
	if err != nil {
		if errors.Is(err, repositories.ErrRegistrationNotFound) {
			return ErrRegistrationNotFound
		}
		return fmt.Errorf("failed to delete registration %d: %w", id, err)
	}
	if reg.Active() {
		s.notifyCount(ctx, reg.TournamentID)
	}
	return nil
}

func (s *registrationService) adjustCount(ctx context.Context, exec repositories.SQLExecutor, tournamentID int, wasActive, isActive bool) error {
	switch {
	case wasActive && !isActive:
		return s.tournamentRepo.AdjustRegistrationsCount(ctx, exec, tournamentID, -1)
	case !wasActive && isActive:
		return s.tournamentRepo.AdjustRegistrationsCount(ctx, exec, tournamentID, 1)
	}
	return nil
}

func (s *registrationService) notifyCount(ctx context.Context, tournamentID int) {
	if s.notifier == nil {
		return
	}
	t, err := s.tournamentRepo.GetByID(ctx, nil, tournamentID)
	if err != nil {
		s.logger.WarnContext(ctx, "failed to reload tournament for notification", slog.Int("tournament_id", tournamentID), slog.Any("error", err))
		return
	}
	s.notifier.RegistrationsChanged(tournamentID, t.RegistrationsCount)
}

// displayName используется в сообщениях для пользователя.
func displayName(reg *models.Registration) string {
	if reg.TeamName != nil && strings.TrimSpace(*reg.TeamName) != "" {
		return *reg.TeamName
	}
	if reg.User != nil {
		return reg.User.Name
	}
	return fmt.Sprintf("#%d", reg.ID)
}
