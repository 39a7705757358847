package errors

import (
	"encoding/json"
	"net/http"
)

// ErrorResponse is the body of every failed request.
type ErrorResponse struct {
	Success bool   `json:"success"`
	Error   int    `json:"error"`
	Message string `json:"message"`
}

// RespondError writes a standardized error response to the HTTP response writer
func RespondError(w http.ResponseWriter, status int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(ErrorResponse{
		Success: false,
		Error:   status,
		Message: message,
	})
}

// RespondBadRequest writes a 400 response.
func RespondBadRequest(w http.ResponseWriter) {
	RespondError(w, http.StatusBadRequest, MsgBadRequest)
}

// RespondNotFound writes a 404 response.
func RespondNotFound(w http.ResponseWriter) {
	RespondError(w, http.StatusNotFound, MsgNotFound)
}

// RespondMethodNotAllowed writes a 405 response.
func RespondMethodNotAllowed(w http.ResponseWriter) {
	RespondError(w, http.StatusMethodNotAllowed, MsgMethodNotAllowed)
}

// RespondUnprocessable writes a 422 response.
func RespondUnprocessable(w http.ResponseWriter) {
	RespondError(w, http.StatusUnprocessableEntity, MsgUnprocessable)
}

// RespondInternalError writes an internal server error response
func RespondInternalError(w http.ResponseWriter) {
	RespondError(w, http.StatusInternalServerError, MsgInternalError)
}

// RespondJSON writes a success payload with the given status.
func RespondJSON(w http.ResponseWriter, status int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(payload)
}
