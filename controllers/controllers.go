package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"caravan_server/models"
)

// WriteJSONResponse writes a JSON payload with the given status code.
func WriteJSONResponse(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}

// WriteServiceError maps the service error taxonomy onto HTTP statuses:
// validation → 400, not found → 404, remote I/O → 502, anything else → 500.
func WriteServiceError(w http.ResponseWriter, err error) {
	var validationErr *models.ValidationError
	var notFoundErr *models.NotFoundError
	var remoteErr *models.RemoteIOError

	switch {
	case errors.As(err, &validationErr):
		WriteJSONResponse(w, http.StatusBadRequest, map[string]string{"error": validationErr.Error()})
	case errors.As(err, &notFoundErr):
		WriteJSONResponse(w, http.StatusNotFound, map[string]string{"error": notFoundErr.Error()})
	case errors.As(err, &remoteErr):
		WriteJSONResponse(w, http.StatusBadGateway, map[string]string{"error": "remote store unavailable, please retry"})
	default:
		WriteJSONResponse(w, http.StatusInternalServerError, map[string]string{"error": "internal error"})
	}
}

// HealthCheckHandler provides a basic health check
func HealthCheckHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, map[string]string{"status": "healthy"})
}

// WelcomeHandler provides a welcome message
func WelcomeHandler(w http.ResponseWriter, r *http.Request) {
	WriteJSONResponse(w, http.StatusOK, map[string]string{"message": "Welcome to the Caravan API"})
}
