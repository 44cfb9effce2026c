package handlers

import (
	"net/http"
	"time"

	"github.com/cybermouflons/CTFNote/middleware"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/services"
)

const defaultRegistrationTokenTTL = 7 * 24 * time.Hour

type AuthHandler struct {
	profileService *services.ProfileService
	auth           *middleware.Authenticator
}

func NewAuthHandler(ps *services.ProfileService, auth *middleware.Authenticator) *AuthHandler {
	return &AuthHandler{profileService: ps, auth: auth}
}

// LoginHandler обрабатывает POST /auth/login
func (h *AuthHandler) LoginHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	profile, err := h.profileService.Login(r.Context(), input.Username, input.Password)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	token, err := h.auth.GenerateToken(profile)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"token": token, "profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// RegisterHandler обрабатывает POST /auth/register
func (h *AuthHandler) RegisterHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Token    string `json:"token"`
		Username string `json:"username"`
		Password string `json:"password"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	profile, err := h.profileService.RegisterWithToken(r.Context(), input.Token, input.Username, input.Password)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	token, err := h.auth.GenerateToken(profile)
	if err != nil {
		serverErrorResponse(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"token": token, "profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// CreateRegistrationTokenHandler обрабатывает POST /auth/registration-tokens
func (h *AuthHandler) CreateRegistrationTokenHandler(w http.ResponseWriter, r *http.Request) {
	var input struct {
		Role     models.ProfileRole `json:"role"`
		TTLHours int                `json:"ttl_hours"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ttl := defaultRegistrationTokenTTL
	if input.TTLHours > 0 {
		ttl = time.Duration(input.TTLHours) * time.Hour
	}

	token, err := h.profileService.CreateRegistrationToken(r.Context(), input.Role, ttl)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"registration_token": token}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
