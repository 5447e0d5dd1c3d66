package handlers

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/vulca/torneos/middleware"
	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/services"
)

const defaultTournamentsLimit = 50

type TournamentHandler struct {
	tournamentService   services.TournamentService
	registrationService services.RegistrationService
}

func NewTournamentHandler(ts services.TournamentService, rs services.RegistrationService) *TournamentHandler {
	return &TournamentHandler{
		tournamentService:   ts,
		registrationService: rs,
	}
}

func createTournamentFromForm(input *services.CreateTournamentInput) func(*form) error {
	return func(f *form) error {
		input.Name = f.str("name")
		input.Description = f.optString("description")
		input.GameID = f.integer("game_id")
		input.StartDate = f.timeValue("start_date")
		input.EndDate = f.timeValue("end_date")
		input.RegistrationStart = f.optTime("registration_start")
		input.RegistrationEnd = f.optTime("registration_end")
		input.EntryFee = f.optFloat("entry_fee")
		if v := f.optBool("has_registration_limit"); v != nil {
			input.HasRegistrationLimit = *v
		}
		input.RegistrationLimit = f.optInt("registration_limit")
		input.Status = models.TournamentStatus(f.str("status"))
		return nil
	}
}

func updateTournamentFromForm(input *services.UpdateTournamentInput) func(*form) error {
	return func(f *form) error {
		input.Name = f.optString("name")
		input.Description = f.optString("description")
		input.GameID = f.optInt("game_id")
		input.StartDate = f.optTime("start_date")
		input.EndDate = f.optTime("end_date")
		input.RegistrationStart = optionalTime(f, "registration_start")
		input.RegistrationEnd = optionalTime(f, "registration_end")
		input.EntryFee = optionalFloat(f, "entry_fee")
		input.HasRegistrationLimit = f.optBool("has_registration_limit")
		input.RegistrationLimit = optionalInt(f, "registration_limit")
		if f.has("status") {
			status := models.TournamentStatus(f.str("status"))
			input.Status = &status
		}
		return nil
	}
}

// ListTournaments godoc
// @Summary  List tournaments
// @Tags     tournaments
// @Param    game_id query int    false "Game filter"
// @Param    status  query string false "Status filter"
// @Success  200 {object} map[string][]models.Tournament
// @Router   /api/tournaments [get]
func (h *TournamentHandler) ListTournaments(w http.ResponseWriter, r *http.Request) {
	var filter services.ListTournamentsFilter
	query := r.URL.Query()

	gameID, err := queryInt(r, "game_id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	filter.GameID = gameID

	if statusStr := query.Get("status"); statusStr != "" {
		status := models.TournamentStatus(statusStr)
		if !status.Valid() {
			badRequestResponse(w, r, services.ErrTournamentInvalidStatus)
			return
		}
		filter.Status = &status
	}

	filter.Limit = defaultTournamentsLimit
	if limit, err := queryInt(r, "limit"); err != nil {
		badRequestResponse(w, r, err)
		return
	} else if limit != nil {
		filter.Limit = *limit
	}
	if offsetStr := query.Get("offset"); offsetStr != "" {
		offset, err := strconv.Atoi(offsetStr)
		if err != nil || offset < 0 {
			badRequestResponse(w, r, errors.New("invalid offset query parameter"))
			return
		}
		filter.Offset = offset
	}

	tournaments, err := h.tournamentService.ListTournaments(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournaments": tournaments}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateTournament godoc
// @Summary  Create a tournament
// @Tags     tournaments
// @Param    input body services.CreateTournamentInput true "Tournament"
// @Success  201 {object} map[string]models.Tournament
// @Failure  422 {object} map[string]map[string]string
// @Router   /api/tournaments [post]
func (h *TournamentHandler) CreateTournament(w http.ResponseWriter, r *http.Request) {
	var input services.CreateTournamentInput
	if !decodeInput(w, r, &input, createTournamentFromForm(&input)) {
		return
	}

	tournament, err := h.tournamentService.CreateTournament(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetTournament отдаёт турнир вместе со списком заявок.
func (h *TournamentHandler) GetTournament(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	details, err := h.tournamentService.GetTournamentDetails(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": details.Tournament, "registrations": details.Registrations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) UpdateTournament(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateTournamentInput
	if !decodeInput(w, r, &input, updateTournamentFromForm(&input)) {
		return
	}

	tournament, err := h.tournamentService.UpdateTournament(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateStatus: быстрое действие: меняет только статус турнира.
func (h *TournamentHandler) UpdateStatus(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input struct {
		Status models.TournamentStatus `json:"status"`
	}
	fromForm := func(f *form) error {
		input.Status = models.TournamentStatus(f.str("status"))
		return nil
	}
	if !decodeInput(w, r, &input, fromForm) {
		return
	}

	tournament, err := h.tournamentService.UpdateTournamentStatus(r.Context(), id, input.Status)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *TournamentHandler) DeleteTournament(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.tournamentService.DeleteTournament(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *TournamentHandler) UploadImage(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
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

	tournament, err := h.tournamentService.UploadTournamentImage(r.Context(), id, file, contentType)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"tournament": tournament}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Register godoc
// @Summary  Register the current user for a tournament
// @Tags     tournaments
// @Param    id    path int                            true "Tournament ID"
// @Param    input body services.SelfRegistrationInput true "Payment method and team"
// @Success  201 {object} services.RegistrationResult
// @Success  303 "redirect to hosted checkout (form submissions)"
// @Router   /api/tournaments/{id}/register [post]
func (h *TournamentHandler) Register(w http.ResponseWriter, r *http.Request) {
	userID, err := middleware.GetUserIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required to register")
		return
	}
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.SelfRegistrationInput
	fromForm := func(f *form) error {
		input.PaymentMethod = models.PaymentMethod(f.str("payment_method"))
		input.TeamName = f.optString("team_name")
		return nil
	}
	if !decodeInput(w, r, &input, fromForm) {
		return
	}

	result, err := h.registrationService.Register(r.Context(), userID, id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	// Обычная HTML-форма уходит сразу на страницу оплаты
	if result.CheckoutURL != "" && !isJSONRequest(r) && !acceptsJSON(r) {
		http.Redirect(w, r, result.CheckoutURL, http.StatusSeeOther)
		return
	}
	if err := writeJSON(w, http.StatusCreated, result, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func acceptsJSON(r *http.Request) bool {
	return r.Header.Get("Accept") == "application/json"
}
