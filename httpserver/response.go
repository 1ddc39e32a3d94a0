package httpserver

import (
	"net/http"

	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
)

// Envelope statuses.
const (
	StatusSuccess = "success"
	StatusFail    = "fail"
	StatusError   = "error"
)

// Envelope is the JSON wrapper every rainlogger endpoint replies with:
//
//	{"status": "success", "message": "Rainlog added successfully", "data": {...}}
//	{"status": "fail", "message": "Measurement must be non-negative."}
//
// Status is "success" for 2xx, "fail" for client errors and "error" for
// server errors. Data is omitted on failures.
type Envelope[T any] struct {
	Status  string `json:"status"`
	Message string `json:"message,omitempty"`
	Token   string `json:"token,omitempty"`
	Data    T      `json:"data,omitempty"`
}

// WriteJSON writes v as JSON with the given status code.
//
// Encoding errors are logged but not returned since headers are already
// written at that point.
func WriteJSON(w http.ResponseWriter, statusCode int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Error().
			Err(err).
			Int("status_code", statusCode).
			Msg("failed to encode JSON response")
	}
}

// WriteSuccess writes a success envelope carrying data.
//
// Example:
//
//	httpserver.WriteSuccess(w, http.StatusCreated, "Rainlog added successfully",
//	    map[string]any{"rainlog": log})
func WriteSuccess[T any](w http.ResponseWriter, statusCode int, message string, data T) {
	WriteJSON(w, statusCode, Envelope[T]{
		Status:  StatusSuccess,
		Message: message,
		Data:    data,
	})
}

// WriteError writes a failure envelope. The status field is derived from
// the code: "error" for 5xx, "fail" otherwise.
func WriteError(w http.ResponseWriter, statusCode int, message string) {
	status := StatusFail
	if statusCode >= http.StatusInternalServerError {
		status = StatusError
	}
	WriteJSON(w, statusCode, Envelope[any]{
		Status:  status,
		Message: message,
	})
}

// WriteNoContent writes an empty 204 reply.
func WriteNoContent(w http.ResponseWriter) {
	w.WriteHeader(http.StatusNoContent)
}

// DecodeJSON decodes the request body into v, rejecting unknown fields
// and trailing data.
func DecodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, maxRequestBody))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if dec.More() {
		return errTrailingData
	}
	return nil
}
