package handlers

import (
	"net/http"

	"web_accessibility_analyzer/internal/service"
)

type ReadyHandler struct {
	service *service.AnalysisService
}

func NewReadyHandler(service *service.AnalysisService) *ReadyHandler {
	return &ReadyHandler{
		service: service,
	}
}

// Handle reports ready once the record store answers.
func (h *ReadyHandler) Handle(w http.ResponseWriter, r *http.Request) {
	if err := h.service.Ready(r.Context()); err != nil {
		sendError(w, `record store unavailable`, err, http.StatusServiceUnavailable)
		return
	}
	w.WriteHeader(http.StatusOK)
	w.Write([]byte("OK"))
}
