package api

import (
	"encoding/json"
	"net/http"

	profilesvc "minerva/internal/services/profile"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// ProfileHandler exposes research profile management over JSON
type ProfileHandler struct {
	service *profilesvc.Service
	log     *logger.Logger
}

// NewProfileHandler creates the profile route handler
func NewProfileHandler(service *profilesvc.Service, log *logger.Logger) *ProfileHandler {
	return &ProfileHandler{service: service, log: log}
}

// Register mounts the profile routes
func (h *ProfileHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /profiles", h.handleCreate)
	mux.HandleFunc("GET /profiles", h.handleList)
	mux.HandleFunc("GET /profiles/{id}", h.handleGet)
	mux.HandleFunc("DELETE /profiles/{id}", h.handleDelete)
}

type createProfileRequest struct {
	FinancialLiteracy string            `json:"financial_literacy"`
	DisplayName       string            `json:"display_name,omitempty"`
	Preferences       map[string]string `json:"preferences,omitempty"`
}

func (h *ProfileHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	p, err := h.service.Create(r.Context(), profilesvc.CreateParams{
		FinancialLiteracy: req.FinancialLiteracy,
		DisplayName:       req.DisplayName,
		Preferences:       req.Preferences,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, p)
}

func (h *ProfileHandler) handleList(w http.ResponseWriter, r *http.Request) {
	profiles, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"profiles": profiles,
		"count":    len(profiles),
	})
}

func (h *ProfileHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	p, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, p)
}

func (h *ProfileHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	if err := h.service.Delete(r.Context(), id); err != nil {
		writeError(w, h.log, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}
