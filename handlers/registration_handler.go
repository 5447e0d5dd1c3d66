package handlers

import (
	"net/http"

	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/services"
)

type RegistrationHandler struct {
	registrationService services.RegistrationService
}

func NewRegistrationHandler(rs services.RegistrationService) *RegistrationHandler {
	return &RegistrationHandler{
		registrationService: rs,
	}
}

func createRegistrationFromForm(input *services.CreateRegistrationInput) func(*form) error {
	return func(f *form) error {
		input.UserID = f.integer("user_id")
		input.TournamentID = f.integer("tournament_id")
		input.PaymentMethod = models.PaymentMethod(f.str("payment_method"))
		input.PaymentStatus = models.PaymentStatus(f.str("payment_status"))
		input.PaymentNotes = f.optString("payment_notes")
		input.Amount = f.optFloat("amount")
		input.TeamName = f.optString("team_name")
		return nil
	}
}

func updateRegistrationFromForm(input *services.UpdateRegistrationInput) func(*form) error {
	return func(f *form) error {
		if f.has("payment_method") {
			m := models.PaymentMethod(f.str("payment_method"))
			input.PaymentMethod = &m
		}
		if f.has("payment_status") {
			s := models.PaymentStatus(f.str("payment_status"))
			input.PaymentStatus = &s
		}
		input.PaymentNotes = f.optString("payment_notes")
		input.Amount = optionalFloat(f, "amount")
		input.TeamName = f.optString("team_name")
		return nil
	}
}

// PaymentStatusInput: тело быстрого действия. ExpectedPaymentStatus включает
// проверку, что запись не изменилась с момента загрузки списка.
type PaymentStatusInput struct {
	PaymentStatus         models.PaymentStatus  `json:"payment_status"`
	ExpectedPaymentStatus *models.PaymentStatus `json:"expected_payment_status"`
}

// ListRegistrations godoc
// @Summary  List registrations
// @Tags     registrations
// @Param    tournament_id  query int    false "Tournament filter"
// @Param    user_id        query int    false "User filter"
// @Param    payment_status query string false "Payment status filter"
// @Success  200 {object} map[string][]models.Registration
// @Router   /api/registrations [get]
func (h *RegistrationHandler) ListRegistrations(w http.ResponseWriter, r *http.Request) {
	var filter services.ListRegistrationsFilter
	var err error

	if filter.TournamentID, err = queryInt(r, "tournament_id"); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if filter.UserID, err = queryInt(r, "user_id"); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	if raw := r.URL.Query().Get("payment_status"); raw != "" {
		status := models.PaymentStatus(raw)
		if !status.Valid() {
			badRequestResponse(w, r, errInvalidQuery("payment_status"))
			return
		}
		filter.PaymentStatus = &status
	}

	regs, err := h.registrationService.ListRegistrations(r.Context(), filter)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registrations": regs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) CreateRegistration(w http.ResponseWriter, r *http.Request) {
	var input services.CreateRegistrationInput
	if !decodeInput(w, r, &input, createRegistrationFromForm(&input)) {
		return
	}

	reg, err := h.registrationService.CreateRegistration(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) GetRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	reg, err := h.registrationService.GetRegistration(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) UpdateRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input services.UpdateRegistrationInput
	if !decodeInput(w, r, &input, updateRegistrationFromForm(&input)) {
		return
	}

	reg, err := h.registrationService.UpdateRegistration(r.Context(), id, input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ChangePaymentStatus godoc
// @Summary  Quick action: change payment status
// @Tags     registrations
// @Param    id    path int                true "Registration ID"
// @Param    input body PaymentStatusInput true "New status"
// @Success  200 {object} map[string]models.Registration
// @Failure  409 {object} map[string]string "stale or invalid transition"
// @Router   /api/registrations/{id}/payment [patch]
func (h *RegistrationHandler) ChangePaymentStatus(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var input PaymentStatusInput
	fromForm := func(f *form) error {
		input.PaymentStatus = models.PaymentStatus(f.str("payment_status"))
		if f.str("expected_payment_status") != "" {
			expected := models.PaymentStatus(f.str("expected_payment_status"))
			input.ExpectedPaymentStatus = &expected
		}
		return nil
	}
	if !decodeInput(w, r, &input, fromForm) {
		return
	}

	reg, err := h.registrationService.ChangePaymentStatus(r.Context(), id, input.PaymentStatus, input.ExpectedPaymentStatus)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"registration": reg}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

func (h *RegistrationHandler) DeleteRegistration(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "id")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.registrationService.DeleteRegistration(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
