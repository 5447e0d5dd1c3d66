package services

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/vulca/torneos/models"
)

func TestGameService_CreateGame(t *testing.T) {
	f := newFixture()
	svc := NewGameService(f.games, nil, discardLogger())
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, CreateGameInput{Name: "  Valorant ", Description: ptr("  ")})
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}
	if game.Name != "Valorant" {
		t.Errorf("Name = %q, want trimmed %q", game.Name, "Valorant")
	}
	if game.Description != nil {
		t.Errorf("blank description should be stored as nil, got %q", *game.Description)
	}

	_, err = svc.CreateGame(ctx, CreateGameInput{Name: "Valorant"})
	if !errors.Is(err, ErrGameNameConflict) {
		t.Fatalf("duplicate name: error = %v, want ErrGameNameConflict", err)
	}
	fields, ok := FieldErrors(err)
	if !ok || fields["name"] == "" {
		t.Errorf("duplicate name should carry a field error for name, got %v", fields)
	}
}

func TestGameService_CreateGameValidation(t *testing.T) {
	svc := NewGameService(newFixture().games, nil, discardLogger())

	tests := []struct {
		name  string
		input string
	}{
		{"empty", ""},
		{"blank", "   "},
		{"too long", strings.Repeat("x", maxGameNameLength+1)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateGame(context.Background(), CreateGameInput{Name: tt.input})
			if !errors.Is(err, ErrValidationFailed) {
				t.Fatalf("error = %v, want validation failure", err)
			}
			fields, _ := FieldErrors(err)
			if _, ok := fields["name"]; !ok {
				t.Errorf("expected error on name, got %v", fields)
			}
		})
	}
}

func TestGameService_UpdateGamePartial(t *testing.T) {
	f := newFixture()
	svc := NewGameService(f.games, nil, discardLogger())
	ctx := context.Background()

	game, err := svc.CreateGame(ctx, CreateGameInput{Name: "Dota 2", Description: ptr("MOBA")})
	if err != nil {
		t.Fatalf("CreateGame() error = %v", err)
	}

	updated, err := svc.UpdateGame(ctx, game.ID, UpdateGameInput{Name: ptr("Dota 2 Reborn")})
	if err != nil {
		t.Fatalf("UpdateGame() error = %v", err)
	}
	if updated.Name != "Dota 2 Reborn" {
		t.Errorf("Name = %q", updated.Name)
	}
	if updated.Description == nil || *updated.Description != "MOBA" {
		t.Errorf("description not sent, must be kept; got %v", updated.Description)
	}

	updated, err = svc.UpdateGame(ctx, game.ID, UpdateGameInput{Description: ptr("")})
	if err != nil {
		t.Fatalf("UpdateGame() error = %v", err)
	}
	if updated.Description != nil {
		t.Errorf("empty description must clear the field")
	}

	if _, err := svc.UpdateGame(ctx, 999, UpdateGameInput{Name: ptr("x")}); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("missing game: error = %v, want ErrGameNotFound", err)
	}
}

func TestGameService_DeleteGameInUse(t *testing.T) {
	f := newFixture()
	svc := NewGameService(f.games, nil, discardLogger())
	ctx := context.Background()

	used := f.addGame("League of Legends")
	free := f.addGame("Chess")
	f.addTournament(models.Tournament{Name: "Copa", GameID: used.ID, Status: models.StatusDraft})

	if err := svc.DeleteGame(ctx, used.ID); !errors.Is(err, ErrGameInUse) {
		t.Fatalf("DeleteGame(used) error = %v, want ErrGameInUse", err)
	}
	if _, err := svc.GetGameByID(ctx, used.ID); err != nil {
		t.Errorf("game in use must survive, got %v", err)
	}

	if err := svc.DeleteGame(ctx, free.ID); err != nil {
		t.Fatalf("DeleteGame(free) error = %v", err)
	}
	if _, err := svc.GetGameByID(ctx, free.ID); !errors.Is(err, ErrGameNotFound) {
		t.Errorf("deleted game still found: %v", err)
	}
}

func TestGameService_UploadGameImage(t *testing.T) {
	f := newFixture()
	ctx := context.Background()
	game := f.addGame("Rocket League")

	if _, err := NewGameService(f.games, nil, discardLogger()).UploadGameImage(ctx, game.ID, strings.NewReader("x"), "image/png"); !errors.Is(err, ErrUploadsDisabled) {
		t.Fatalf("without uploader: error = %v, want ErrUploadsDisabled", err)
	}

	svc := NewGameService(f.games, f.uploader, discardLogger())
	first, err := svc.UploadGameImage(ctx, game.ID, strings.NewReader("png-bytes"), "image/png")
	if err != nil {
		t.Fatalf("UploadGameImage() error = %v", err)
	}
	if first.ImageURL == nil || !strings.HasPrefix(*first.ImageURL, "https://cdn.test/games/") {
		t.Fatalf("ImageURL = %v", first.ImageURL)
	}

	second, err := svc.UploadGameImage(ctx, game.ID, strings.NewReader("jpg-bytes"), "image/jpeg")
	if err != nil {
		t.Fatalf("second UploadGameImage() error = %v", err)
	}
	if _, still := f.uploader.objects[*first.ImageKey]; still {
		t.Errorf("previous image %q should have been deleted", *first.ImageKey)
	}
	if _, ok := f.uploader.objects[*second.ImageKey]; !ok {
		t.Errorf("new image %q missing from storage", *second.ImageKey)
	}

	_, err = svc.UploadGameImage(ctx, game.ID, strings.NewReader("%PDF"), "application/pdf")
	fields, ok := FieldErrors(err)
	if !ok || fields["image"] == "" {
		t.Errorf("unsupported type: error = %v, want image field error", err)
	}
}
