package handlers

import (
	"encoding/json"
	"net/http"

	log "github.com/sirupsen/logrus"
)

type ErrorResponse struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	Code    int    `json:"code"`
}

// sendError writes the error body with code. Details of server-side failures
// are logged but not echoed to the client.
func sendError(w http.ResponseWriter, message string, err error, code int) {
	fields := log.Fields{
		"error": err,
		"code":  code,
	}
	if code >= http.StatusInternalServerError {
		log.WithFields(fields).Error(message)
	} else {
		log.WithFields(fields).Warn(message)
	}

	response := ErrorResponse{
		Message: message,
		Code:    code,
	}
	if code < http.StatusInternalServerError {
		response.Error = err.Error()
	} else {
		response.Error = http.StatusText(code)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	json.NewEncoder(w).Encode(response)
}
