package api

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/google/uuid"

	"minerva/internal/domain/research"
	researchsvc "minerva/internal/services/research"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// ResearchHandler exposes the research lifecycle over JSON
type ResearchHandler struct {
	service *researchsvc.Service
	log     *logger.Logger
}

// NewResearchHandler creates the research route handler
func NewResearchHandler(service *researchsvc.Service, log *logger.Logger) *ResearchHandler {
	return &ResearchHandler{service: service, log: log}
}

// Register mounts the research routes
func (h *ResearchHandler) Register(mux *http.ServeMux) {
	mux.HandleFunc("POST /research", h.handleCreate)
	mux.HandleFunc("GET /research", h.handleList)
	mux.HandleFunc("GET /research/{id}", h.handleGet)
	mux.HandleFunc("DELETE /research/{id}", h.handleDelete)
	mux.HandleFunc("POST /research/{id}/execute", h.handleExecute)
	mux.HandleFunc("PUT /research/{id}/context", h.handleSetContext)
	mux.HandleFunc("PUT /research/{id}/profile", h.handleSetProfile)
}

type createResearchRequest struct {
	StockSymbol  string            `json:"stock_symbol"`
	Timeframe    string            `json:"timeframe"`
	WorkflowType string            `json:"workflow_type"`
	ProfileID    *uuid.UUID        `json:"profile_id,omitempty"`
	Parameters   map[string]string `json:"parameters,omitempty"`
}

func (h *ResearchHandler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	res, err := h.service.Create(r.Context(), researchsvc.CreateParams{
		Symbol:       req.StockSymbol,
		Timeframe:    research.Timeframe(req.Timeframe),
		WorkflowType: req.WorkflowType,
		ProfileID:    req.ProfileID,
		Parameters:   req.Parameters,
	})
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusCreated, res)
}

func (h *ResearchHandler) handleList(w http.ResponseWriter, r *http.Request) {
	researches, err := h.service.List(r.Context())
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, map[string]interface{}{
		"researches": researches,
		"count":      len(researches),
	})
}

func (h *ResearchHandler) handleGet(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	res, err := h.service.Get(r.Context(), id)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func (h *ResearchHandler) handleDelete(w http.ResponseWriter, r *http.Request) {
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

type executeResearchRequest struct {
	Question string `json:"question,omitempty"`
}

type executeResearchResponse struct {
	Research *research.Research `json:"research"`
	Success  bool               `json:"success"`
}

func (h *ResearchHandler) handleExecute(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	// Body is optional; a bare POST runs with the stored parameters
	var req executeResearchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
		writeError(w, h.log, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	execCtx := map[string]interface{}{}
	if req.Question != "" {
		execCtx["question"] = req.Question
	}

	res, success, err := h.service.Execute(r.Context(), id, execCtx)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, executeResearchResponse{Research: res, Success: success})
}

type setContextRequest struct {
	Parameters map[string]string `json:"parameters"`
}

func (h *ResearchHandler) handleSetContext(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req setContextRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	res, err := h.service.SetContext(r.Context(), id, req.Parameters)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

type setProfileRequest struct {
	ProfileID *uuid.UUID `json:"profile_id"`
}

func (h *ResearchHandler) handleSetProfile(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	var req setProfileRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.log, errors.Wrap(errors.ErrInvalidInput, "invalid request body"))
		return
	}

	res, err := h.service.SetProfile(r.Context(), id, req.ProfileID)
	if err != nil {
		writeError(w, h.log, err)
		return
	}

	writeJSON(w, http.StatusOK, res)
}

func pathID(r *http.Request) (uuid.UUID, error) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		return uuid.Nil, errors.Wrap(errors.ErrInvalidInput, "invalid id in path")
	}
	return id, nil
}
