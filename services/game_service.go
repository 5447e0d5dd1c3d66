package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"

	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/repositories"
	"github.com/vulca/torneos/storage"
)

var (
	ErrGameNameConflict = errors.New("game name already exists")
	ErrGameInUse        = errors.New("game cannot be deleted while it has tournaments")
)

const maxGameNameLength = 100

type GameService interface {
	CreateGame(ctx context.Context, input CreateGameInput) (*models.Game, error)
	GetGameByID(ctx context.Context, id int) (*models.Game, error)
	GetAllGames(ctx context.Context) ([]models.Game, error)
	UpdateGame(ctx context.Context, id int, input UpdateGameInput) (*models.Game, error)
	DeleteGame(ctx context.Context, id int) error
	UploadGameImage(ctx context.Context, id int, file io.Reader, contentType string) (*models.Game, error)
}

type CreateGameInput struct {
	Name        string  `json:"name"`
	Description *string `json:"description"`
}

// UpdateGameInput: nil означает "поле не передано".
type UpdateGameInput struct {
	Name        *string `json:"name"`
	Description *string `json:"description"`
}

type gameService struct {
	gameRepo repositories.GameRepository
	uploader storage.FileUploader
	logger   *slog.Logger
}

func NewGameService(gameRepo repositories.GameRepository, uploader storage.FileUploader, logger *slog.Logger) GameService {
	return &gameService{
		gameRepo: gameRepo,
		uploader: uploader,
		logger:   logger,
	}
}

func validateGameName(v *ValidationError, name string) {
	switch {
	case name == "":
		v.Add("name", "El nombre es obligatorio.")
	case len([]rune(name)) > maxGameNameLength:
		v.Add("name", fmt.Sprintf("El nombre no puede superar %d caracteres.", maxGameNameLength))
	}
}

func (s *gameService) CreateGame(ctx context.Context, input CreateGameInput) (*models.Game, error) {
	v := NewValidationError()
	name := strings.TrimSpace(input.Name)
	validateGameName(v, name)
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	game := &models.Game{
		Name:        name,
		Description: trimOptional(input.Description),
	}

	if err := s.gameRepo.Create(ctx, game); err != nil {
		if errors.Is(err, repositories.ErrGameNameConflict) {
			return nil, gameNameTaken()
		}
		return nil, fmt.Errorf("failed to create game: %w", err)
	}
	return game, nil
}

func gameNameTaken() error {
	v := NewValidationError()
	v.Add("name", "Ya existe un juego con ese nombre.")
	return fmt.Errorf("%w: %w", ErrGameNameConflict, v)
}

func (s *gameService) GetGameByID(ctx context.Context, id int) (*models.Game, error) {
	game, err := s.gameRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to get game by id %d: %w", id, err)
	}
	populateGameImageURL(game, s.uploader)
	return game, nil
}

func (s *gameService) GetAllGames(ctx context.Context) ([]models.Game, error) {
	games, err := s.gameRepo.GetAll(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to get all games: %w", err)
	}
	if games == nil {
		return []models.Game{}, nil
	}
	for i := range games {
		populateGameImageURL(&games[i], s.uploader)
	}
	return games, nil
}

func (s *gameService) UpdateGame(ctx context.Context, id int, input UpdateGameInput) (*models.Game, error) {
	game, err := s.GetGameByID(ctx, id)
	if err != nil {
		return nil, err
	}

	v := NewValidationError()
	if input.Name != nil {
		game.Name = strings.TrimSpace(*input.Name)
		validateGameName(v, game.Name)
	}
	if input.Description != nil {
		game.Description = trimOptional(input.Description)
	}
	if err := v.OrNil(); err != nil {
		return nil, err
	}

	if err := s.gameRepo.Update(ctx, game); err != nil {
		switch {
		case errors.Is(err, repositories.ErrGameNotFound):
			return nil, ErrGameNotFound
		case errors.Is(err, repositories.ErrGameNameConflict):
			return nil, gameNameTaken()
		default:
			return nil, fmt.Errorf("failed to update game (id: %d): %w", id, err)
		}
	}
	return game, nil
}

func (s *gameService) DeleteGame(ctx context.Context, id int) error {
	game, err := s.gameRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrGameNotFound) {
			return ErrGameNotFound
		}
		return fmt.Errorf("failed to load game %d before delete: %w", id, err)
	}
	if game.TournamentsCount > 0 {
		return ErrGameInUse
	}

	if err := s.gameRepo.Delete(ctx, id); err != nil {
		switch {
		case errors.Is(err, repositories.ErrGameNotFound):
			return ErrGameNotFound
		case errors.Is(err, repositories.ErrGameInUse):
			return ErrGameInUse
		default:
			return fmt.Errorf("failed to delete game (id: %d): %w", id, err)
		}
	}

	if game.ImageKey != nil && s.uploader != nil {
		if err := s.uploader.Delete(ctx, *game.ImageKey); err != nil {
			s.logger.WarnContext(ctx, "failed to delete game image", slog.Int("game_id", id), slog.Any("error", err))
		}
	}
	return nil
}

func (s *gameService) UploadGameImage(ctx context.Context, id int, file io.Reader, contentType string) (*models.Game, error) {
	if s.uploader == nil {
		return nil, ErrUploadsDisabled
	}
	game, err := s.GetGameByID(ctx, id)
	if err != nil {
		return nil, err
	}

	oldKey := game.ImageKey
	newKey, err := uploadImage(ctx, s.uploader, "games", id, file, contentType)
	if err != nil {
		return nil, err
	}

	if err := s.gameRepo.UpdateImageKey(ctx, id, &newKey); err != nil {
		s.discardUpload(ctx, newKey)
		if errors.Is(err, repositories.ErrGameNotFound) {
			return nil, ErrGameNotFound
		}
		return nil, fmt.Errorf("failed to save image key for game %d: %w", id, err)
	}
	if oldKey != nil && *oldKey != "" {
		s.discardUpload(ctx, *oldKey)
	}

	game.ImageKey = &newKey
	game.ImageURL = nil
	populateGameImageURL(game, s.uploader)
	return game, nil
}

func (s *gameService) discardUpload(ctx context.Context, key string) {
	if err := s.uploader.Delete(ctx, key); err != nil {
		s.logger.WarnContext(ctx, "failed to delete image object", slog.String("key", key), slog.Any("error", err))
	}
}

// uploadImage кладёт изображение в хранилище и возвращает ключ объекта.
func uploadImage(ctx context.Context, uploader storage.FileUploader, resource string, id int, file io.Reader, contentType string) (string, error) {
	key, err := storage.ImageKey(resource, id, contentType)
	if err != nil {
		v := NewValidationError()
		v.Add("image", "Formato de imagen no soportado.")
		return "", v
	}
	if _, err := uploader.Upload(ctx, key, contentType, file); err != nil {
		return "", fmt.Errorf("failed to upload %s image: %w", resource, err)
	}
	return key, nil
}
