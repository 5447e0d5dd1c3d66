package handlers

import (
	"context"
	"io"

	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/services"
)

type stubGameService struct {
	services.GameService
	create func(services.CreateGameInput) (*models.Game, error)
	update func(int, services.UpdateGameInput) (*models.Game, error)
	delete func(int) error
	upload func(int, string) (*models.Game, error)
}

func (s *stubGameService) CreateGame(ctx context.Context, in services.CreateGameInput) (*models.Game, error) {
	return s.create(in)
}

func (s *stubGameService) UpdateGame(ctx context.Context, id int, in services.UpdateGameInput) (*models.Game, error) {
	return s.update(id, in)
}

func (s *stubGameService) DeleteGame(ctx context.Context, id int) error {
	return s.delete(id)
}

func (s *stubGameService) UploadGameImage(ctx context.Context, id int, file io.Reader, contentType string) (*models.Game, error) {
	return s.upload(id, contentType)
}

type stubRegistrationService struct {
	services.RegistrationService
	register      func(userID, tournamentID int, in services.SelfRegistrationInput) (*services.RegistrationResult, error)
	changePayment func(id int, next models.PaymentStatus, expected *models.PaymentStatus) (*models.Registration, error)
	update        func(id int, in services.UpdateRegistrationInput) (*models.Registration, error)
}

func (s *stubRegistrationService) Register(ctx context.Context, userID, tournamentID int, in services.SelfRegistrationInput) (*services.RegistrationResult, error) {
	return s.register(userID, tournamentID, in)
}

func (s *stubRegistrationService) ChangePaymentStatus(ctx context.Context, id int, next models.PaymentStatus, expected *models.PaymentStatus) (*models.Registration, error) {
	return s.changePayment(id, next, expected)
}

func (s *stubRegistrationService) UpdateRegistration(ctx context.Context, id int, in services.UpdateRegistrationInput) (*models.Registration, error) {
	return s.update(id, in)
}

type stubTournamentService struct {
	services.TournamentService
	update func(id int, in services.UpdateTournamentInput) (*models.Tournament, error)
	list   func(f services.ListTournamentsFilter) ([]models.Tournament, error)
}

func (s *stubTournamentService) UpdateTournament(ctx context.Context, id int, in services.UpdateTournamentInput) (*models.Tournament, error) {
	return s.update(id, in)
}

func (s *stubTournamentService) ListTournaments(ctx context.Context, f services.ListTournamentsFilter) ([]models.Tournament, error) {
	return s.list(f)
}
