package utils

import (
	"encoding/json"
	"net/http"

	"github.com/pratik-mahalle/stagingctl/internal/pkg/errors"
)

// SuccessResponse represents a successful API response
type SuccessResponse struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
}

// ErrorResponse represents an error API response
type ErrorResponse struct {
	Success bool        `json:"success"`
	Error   ErrorDetail `json:"error"`
}

// ErrorDetail contains error details
type ErrorDetail struct {
	Code     string      `json:"code"`
	Message  string      `json:"message"`
	Resource string      `json:"resource,omitempty"`
	Details  interface{} `json:"details,omitempty"`
}

// WriteJSON writes a JSON response
func WriteJSON(w http.ResponseWriter, status int, data interface{}) error {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	return json.NewEncoder(w).Encode(data)
}

// WriteSuccess writes a successful JSON response
func WriteSuccess(w http.ResponseWriter, status int, data interface{}) error {
	return WriteJSON(w, status, SuccessResponse{
		Success: true,
		Data:    data,
	})
}

// WriteError writes an error JSON response from AppError
func WriteError(w http.ResponseWriter, status int, err *errors.AppError) error {
	return WriteJSON(w, status, ErrorResponse{
		Error: ErrorDetail{
			Code:     err.Code,
			Message:  err.Message,
			Resource: err.Resource,
			Details:  err.Details,
		},
	})
}
