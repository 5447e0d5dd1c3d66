package services

import (
	"strings"

	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/storage"
)

func derefString(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

// trimOptional возвращает nil для пустой строки после TrimSpace.
func trimOptional(s *string) *string {
	if s == nil {
		return nil
	}
	v := strings.TrimSpace(*s)
	if v == "" {
		return nil
	}
	return &v
}

func populateGameImageURL(game *models.Game, uploader storage.FileUploader) {
	if game != nil && game.ImageKey != nil && *game.ImageKey != "" && uploader != nil {
		if url := uploader.GetPublicURL(*game.ImageKey); url != "" {
			game.ImageURL = &url
		}
	}
}

func populateTournamentImageURL(tournament *models.Tournament, uploader storage.FileUploader) {
	if tournament != nil && tournament.ImageKey != nil && *tournament.ImageKey != "" && uploader != nil {
		if url := uploader.GetPublicURL(*tournament.ImageKey); url != "" {
			tournament.ImageURL = &url
		}
	}
}
