package services

import (
	"context"
	"fmt"

	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/repositories"
	"golang.org/x/sync/errgroup"
)

type DashboardService interface {
	GetStats(ctx context.Context) (models.DashboardStats, error)
}

type dashboardService struct {
	gameRepo         repositories.GameRepository
	tournamentRepo   repositories.TournamentRepository
	registrationRepo repositories.RegistrationRepository
	userRepo         repositories.UserRepository
}

func NewDashboardService(
	gameRepo repositories.GameRepository,
	tournamentRepo repositories.TournamentRepository,
	registrationRepo repositories.RegistrationRepository,
	userRepo repositories.UserRepository,
) DashboardService {
	return &dashboardService{
		gameRepo:         gameRepo,
		tournamentRepo:   tournamentRepo,
		registrationRepo: registrationRepo,
		userRepo:         userRepo,
	}
}

func (s *dashboardService) GetStats(ctx context.Context) (models.DashboardStats, error) {
	var stats models.DashboardStats
	open := models.StatusRegistrationOpen
	pending := models.PaymentPending

	g, gCtx := errgroup.WithContext(ctx)
	count := func(dst *int, name string, fn func(context.Context) (int, error)) {
		g.Go(func() error {
			n, err := fn(gCtx)
			if err != nil {
				return fmt.Errorf("failed to count %s: %w", name, err)
			}
			*dst = n
			return nil
		})
	}
	count(&stats.GamesTotal, "games", s.gameRepo.Count)
	count(&stats.UsersTotal, "users", s.userRepo.Count)
	count(&stats.TournamentsTotal, "tournaments", func(ctx context.Context) (int, error) {
		return s.tournamentRepo.Count(ctx, nil)
	})
	count(&stats.OpenTournaments, "open tournaments", func(ctx context.Context) (int, error) {
		return s.tournamentRepo.Count(ctx, &open)
	})
	count(&stats.RegistrationsTotal, "registrations", func(ctx context.Context) (int, error) {
		return s.registrationRepo.Count(ctx, nil)
	})
	count(&stats.PendingPayments, "pending payments", func(ctx context.Context) (int, error) {
		return s.registrationRepo.Count(ctx, &pending)
	})

	if err := g.Wait(); err != nil {
		return models.DashboardStats{}, err
	}
	return stats, nil
}
