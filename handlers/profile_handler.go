package handlers

import (
	"net/http"

	"github.com/cybermouflons/CTFNote/middleware"
	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/services"
)

type ProfileHandler struct {
	profileService *services.ProfileService
}

func NewProfileHandler(ps *services.ProfileService) *ProfileHandler {
	return &ProfileHandler{profileService: ps}
}

// MeHandler обрабатывает GET /profiles/me
func (h *ProfileHandler) MeHandler(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	profile, err := h.profileService.GetProfileByID(r.Context(), profileID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"profile": profile}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateRoleHandler обрабатывает PUT /profiles/{profileID}/role
func (h *ProfileHandler) UpdateRoleHandler(w http.ResponseWriter, r *http.Request) {
	profileID, err := getIDFromURL(r, "profileID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
	actorID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		Role models.ProfileRole `json:"role"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.profileService.UpdateRole(r.Context(), profileID, input.Role, actorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// LinkDiscordHandler обрабатывает PUT /profiles/me/discord
func (h *ProfileHandler) LinkDiscordHandler(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	var input struct {
		DiscordID string `json:"discord_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.profileService.LinkDiscord(r.Context(), profileID, input.DiscordID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ResetDiscordHandler обрабатывает DELETE /profiles/me/discord
func (h *ProfileHandler) ResetDiscordHandler(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	if err := h.profileService.ResetDiscordID(r.Context(), profileID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// AccessibleCTFsHandler обрабатывает GET /profiles/me/ctfs
func (h *ProfileHandler) AccessibleCTFsHandler(w http.ResponseWriter, r *http.Request) {
	profileID, err := middleware.GetProfileIDFromContext(r.Context())
	if err != nil {
		unauthorizedResponse(w, r, "authentication required")
		return
	}

	ctfs, err := h.profileService.ListAccessibleCTFs(r.Context(), profileID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ctfs": ctfs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
