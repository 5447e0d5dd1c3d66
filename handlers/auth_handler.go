package handlers

import (
	"net/http"
	"time"

	"github.com/vulca/torneos/middleware"
	"github.com/vulca/torneos/models"
	"github.com/vulca/torneos/services"
)

type AuthHandler struct {
	authService services.AuthService
	jwtSecret   []byte
	now         func() time.Time
}

func NewAuthHandler(authService services.AuthService, jwtSecret string) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		jwtSecret:   []byte(jwtSecret),
		now:         time.Now,
	}
}

func (h *AuthHandler) respondWithToken(w http.ResponseWriter, r *http.Request, status int, user *models.User) {
	token, err := middleware.NewToken(h.jwtSecret, user, h.now())
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}
	if err := writeJSON(w, status, jsonResponse{"token": token, "user": user}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// Register godoc
// @Summary  Sign up
// @Tags     auth
// @Param    input body services.RegisterInput true "Account"
// @Success  201 {object} map[string]interface{}
// @Failure  422 {object} map[string]map[string]string
// @Router   /api/auth/register [post]
func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var input services.RegisterInput
	fromForm := func(f *form) error {
		input.Name = f.str("name")
		input.Email = f.str("email")
		input.Password = f.str("password")
		return nil
	}
	if !decodeInput(w, r, &input, fromForm) {
		return
	}

	user, err := h.authService.Register(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondWithToken(w, r, http.StatusCreated, user)
}

// Login godoc
// @Summary  Sign in
// @Tags     auth
// @Param    input body services.LoginInput true "Credentials"
// @Success  200 {object} map[string]interface{}
// @Failure  401 {object} map[string]string
// @Router   /api/auth/login [post]
func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var input services.LoginInput
	fromForm := func(f *form) error {
		input.Email = f.str("email")
		input.Password = f.str("password")
		return nil
	}
	if !decodeInput(w, r, &input, fromForm) {
		return
	}

	if input.Email == "" || input.Password == "" {
		v := services.NewValidationError()
		if input.Email == "" {
			v.Add("email", "El correo es obligatorio.")
		}
		if input.Password == "" {
			v.Add("password", "La contraseña es obligatoria.")
		}
		failedValidationResponse(w, r, v.Fields)
		return
	}

	user, err := h.authService.Login(r.Context(), input)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}
	h.respondWithToken(w, r, http.StatusOK, user)
}
