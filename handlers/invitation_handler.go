package handlers

import (
	"net/http"

	"github.com/cybermouflons/CTFNote/middleware"
	"github.com/cybermouflons/CTFNote/services"
)

type InvitationHandler struct {
	invitationService *services.InvitationService
}

func NewInvitationHandler(is *services.InvitationService) *InvitationHandler {
	return &InvitationHandler{invitationService: is}
}

// InviteHandler обрабатывает POST /ctfs/{ctfID}/invitations
func (h *InvitationHandler) InviteHandler(w http.ResponseWriter, r *http.Request) {
	ctfID, err := getIDFromURL(r, "ctfID")
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
		ProfileID int `json:"profile_id"`
	}
	if err := readJSON(w, r, &input); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.invitationService.Invite(r.Context(), ctfID, input.ProfileID, actorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UninviteHandler обрабатывает DELETE /ctfs/{ctfID}/invitations/{profileID}
func (h *InvitationHandler) UninviteHandler(w http.ResponseWriter, r *http.Request) {
	ctfID, err := getIDFromURL(r, "ctfID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}
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

	if err := h.invitationService.Uninvite(r.Context(), ctfID, profileID, actorID); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListHandler обрабатывает GET /ctfs/{ctfID}/invitations
func (h *InvitationHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	ctfID, err := getIDFromURL(r, "ctfID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	invitations, err := h.invitationService.ListByCTF(r.Context(), ctfID)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"invitations": invitations}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
