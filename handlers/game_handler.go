package handlers

import (
	"net/http"

	"github.com/vulca/torneos/services"
)

type GameHandler struct {
	gameService services.GameService
}

func NewGameHandler(gs services.GameService) *GameHandler {
	return &GameHandler{
		gameService: gs,
	}
}

func createGameFromForm(input *services.CreateGameInput) func(*form) error {
	return func(f *form) error {
		input.Name = f.str("name")
		input.Description = f.optString("description")
		return nil
	}
}

func updateGameFromForm(input *services.UpdateGameInput) func(*form) error {
	return func(f *form) error {
		input.Name = f.optString("name")
		input.Description = f.optString("description")
		return nil
	}
}

// ListGames godoc
// @Summary  List games
// @Tags     games
// @Produce  json
// @Success  200 {object} map[string][]models.Game
// @Router   /api/games [get]
func (h *GameHandler) ListGames(w http.ResponseWriter, r *http.Request) {
	games, err := h.gameService.GetAllGames(r.Context())
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"games": games}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateGame godoc
// @Summary  Create a game
// @Tags     games
// @Accept   json,x-www-form-urlencoded
// @Produce  json
// @Param    input body services.CreateGameInput true "Game"
// @Success  201 {object} map[string]models.Game
// @Failure  422 {object} map[string]map[string]string
// @Router   /api/games [post]
func (h *GameHandler) CreateGame(w http.ResponseWriter, r *http.Request) {
	var input services.CreateGameInput
	if !decodeInput(w, r, &input, createGameFromForm(&input)) {
		return
	}

	game, err := h.gameService.CreateGame(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *GameHandler) GetGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	game, err := h.gameService.GetGameByID(r.Context(), gameID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateGame godoc
// @Summary  Partially update a game
// @Tags     games
// @Param    id    path int                      true "Game ID"
// @Param    input body services.UpdateGameInput true "Fields to change"
// @Success  200 {object} map[string]models.Game
// @Router   /api/games/{id} [patch]
func (h *GameHandler) UpdateGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateGameInput
	if !decodeInput(w, r, &input, updateGameFromForm(&input)) {
		return
	}

	game, err := h.gameService.UpdateGame(r.Context(), gameID, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteGame godoc
// @Summary  Delete a game
// @Tags     games
// @Param    id path int true "Game ID"
// @Success  204
// @Failure  409 {object} map[string]string "game still has tournaments"
// @Router   /api/games/{id} [delete]
func (h *GameHandler) DeleteGame(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.gameService.DeleteGame(r.Context(), gameID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *GameHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	gameID, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	file, contentType, err := readImage(w, r)
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	defer file.Close()

	game, err := h.gameService.UploadGameImage(r.Context(), gameID, file, contentType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"game": game}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
