package handlers

import (
	"net/http"

	"github.com/cybermouflons/CTFNote/models"
	"github.com/cybermouflons/CTFNote/services"
)

type CTFHandler struct {
	ctfService *services.CTFService
}

func NewCTFHandler(cs *services.CTFService) *CTFHandler {
	return &CTFHandler{ctfService: cs}
}

// CreateHandler обрабатывает POST /ctfs
func (h *CTFHandler) CreateHandler(w http.ResponseWriter, r *http.Request) {
	var ctf models.CTF
	if err := readJSON(w, r, &ctf); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.ctfService.CreateCTF(r.Context(), &ctf); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusCreated, jsonResponse{"ctf": ctf}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetByIDHandler обрабатывает GET /ctfs/{ctfID}
func (h *CTFHandler) GetByIDHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "ctfID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	ctf, err := h.ctfService.GetCTFByID(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ctf": ctf}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// ListHandler обрабатывает GET /ctfs
func (h *CTFHandler) ListHandler(w http.ResponseWriter, r *http.Request) {
	var (
		ctfs []*models.CTF
		err  error
	)
	if r.URL.Query().Get("incoming") == "true" {
		ctfs, err = h.ctfService.ListIncomingCTFs(r.Context())
	} else {
		ctfs, err = h.ctfService.ListCTFs(r.Context())
	}
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ctfs": ctfs}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpdateHandler обрабатывает PUT /ctfs/{ctfID}
func (h *CTFHandler) UpdateHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "ctfID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var ctf models.CTF
	if err := readJSON(w, r, &ctf); err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.ctfService.UpdateCTF(r.Context(), id, &ctf); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"ctf": ctf}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// DeleteHandler обрабатывает DELETE /ctfs/{ctfID}
func (h *CTFHandler) DeleteHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "ctfID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	if err := h.ctfService.DeleteCTF(r.Context(), id); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// UploadLogoHandler обрабатывает POST /ctfs/{ctfID}/logo
func (h *CTFHandler) UploadLogoHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "ctfID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	contentType := r.Header.Get("Content-Type")
	location, err := h.ctfService.UploadLogo(r.Context(), id, contentType, r.Body)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"logo_url": location}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// GetSecretsHandler обрабатывает GET /ctfs/{ctfID}/secrets
func (h *CTFHandler) GetSecretsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "ctfID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	secrets, err := h.ctfService.GetSecrets(r.Context(), id)
	if err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"secrets": secrets}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}

// UpsertSecretsHandler обрабатывает PUT /ctfs/{ctfID}/secrets
func (h *CTFHandler) UpsertSecretsHandler(w http.ResponseWriter, r *http.Request) {
	id, err := getIDFromURL(r, "ctfID")
	if err != nil {
		badRequestResponse(w, r, err)
		return
	}

	var secret models.CTFSecret
	if err := readJSON(w, r, &secret); err != nil {
		badRequestResponse(w, r, err)
		return
	}
	secret.CtfID = id

	if err := h.ctfService.UpsertSecrets(r.Context(), &secret); err != nil {
		mapServiceErrorToHTTP(w, r, err)
		return
	}

	if err := writeJSON(w, http.StatusOK, jsonResponse{"secrets": secret}, nil); err != nil {
		serverErrorResponse(w, r, err)
	}
}
