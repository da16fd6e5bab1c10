package httpx

import (
	"encoding/json"
	"net/http"

	"inkroom/internal/apperr"
)

func JSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

// Error maps the error taxonomy to a status code and writes a JSON body.
func Error(w http.ResponseWriter, err error) {
	status := http.StatusInternalServerError
	switch {
	case apperr.IsValidation(err):
		status = http.StatusBadRequest
	case apperr.IsConflict(err):
		status = http.StatusConflict
	case apperr.IsNotFound(err):
		status = http.StatusNotFound
	case apperr.IsGeneration(err):
		status = http.StatusBadGateway
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		msg = "internal server error"
	}
	JSON(w, status, map[string]string{"error": msg})
}
