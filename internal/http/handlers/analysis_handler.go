package handlers

import (
	"encoding/json"
	"net/http"

	"web_accessibility_analyzer/internal/domain/models"
	"web_accessibility_analyzer/internal/pkg/errors"
	"web_accessibility_analyzer/internal/service"

	"github.com/go-chi/chi/v5"
	log "github.com/sirupsen/logrus"
)

type AnalysisHandler struct {
	service *service.AnalysisService
	log     *log.Logger
}

type CreateAnalysisRequest struct {
	URL string `json:"url"`
}

type CreateAnalysisResponse struct {
	Message  string           `json:"message"`
	Analysis *models.Analysis `json:"analysis"`
}

type MessageResponse struct {
	Message string `json:"message"`
}

func NewAnalysisHandler(service *service.AnalysisService, log *log.Logger) *AnalysisHandler {
	return &AnalysisHandler{
		service: service,
		log:     log,
	}
}

func (h *AnalysisHandler) Create(w http.ResponseWriter, r *http.Request) {
	h.log.Debug(`create analysis handler called`)

	var request CreateAnalysisRequest
	if err := json.NewDecoder(r.Body).Decode(&request); err != nil {
		sendError(w, `failed to decode request body`, errors.NewValidationError(`body`, err.Error()), http.StatusBadRequest)
		return
	}

	analysis, err := h.service.Create(r.Context(), request.URL)
	if err != nil {
		sendError(w, `failed to create analysis`, err, statusFor(err))
		return
	}

	h.writeJSON(w, http.StatusCreated, CreateAnalysisResponse{
		Message:  `analysis started`,
		Analysis: analysis,
	})
}

func (h *AnalysisHandler) List(w http.ResponseWriter, r *http.Request) {
	analyses, err := h.service.List(r.Context())
	if err != nil {
		sendError(w, `failed to list analyses`, err, statusFor(err))
		return
	}
	h.writeJSON(w, http.StatusOK, analyses)
}

func (h *AnalysisHandler) Get(w http.ResponseWriter, r *http.Request) {
	analysis, err := h.service.Get(r.Context(), chi.URLParam(r, `id`))
	if err != nil {
		sendError(w, `failed to get analysis`, err, statusFor(err))
		return
	}
	h.writeJSON(w, http.StatusOK, analysis)
}

func (h *AnalysisHandler) Delete(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Delete(r.Context(), chi.URLParam(r, `id`)); err != nil {
		sendError(w, `failed to delete analysis`, err, statusFor(err))
		return
	}
	h.writeJSON(w, http.StatusOK, MessageResponse{Message: `analysis deleted`})
}

func (h *AnalysisHandler) writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set(`Content-Type`, `application/json`)
	w.WriteHeader(code)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.log.WithError(err).Error(`failed to encode response`)
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.IsValidation(err):
		return http.StatusBadRequest
	case errors.Is(err, errors.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}
