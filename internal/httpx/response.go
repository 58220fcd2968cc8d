package httpx

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/dejobratic/centralcompras/internal/validation"
	"github.com/go-chi/chi/v5"
)

const maxBodyBytes = 1 << 20

// ErrorBody is the JSON shape of every error response.
type ErrorBody struct {
	Error      string                 `json:"error"`
	Violations []validation.Violation `json:"violations,omitempty"`
}

// MarshalJSON encodes payload exactly as WriteJSON would write it.
func MarshalJSON(payload any) ([]byte, error) {
	var buf bytes.Buffer
	if err := json.NewEncoder(&buf).Encode(payload); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

func WriteJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func WriteError(w http.ResponseWriter, status int, message string) {
	WriteJSON(w, status, ErrorBody{Error: message})
}

// WriteValidation answers 422 with the violation list.
func WriteValidation(w http.ResponseWriter, err *validation.Error) {
	WriteJSON(w, http.StatusUnprocessableEntity, ErrorBody{
		Error:      "validation failed",
		Violations: err.Violations,
	})
}

// Status pairs a sentinel error with the response status it maps to.
type Status struct {
	Err  error
	Code int
}

// WriteDomainError maps err onto the first matching status, validation errors
// onto 422, and anything else onto 500.
func WriteDomainError(w http.ResponseWriter, err error, statuses ...Status) {
	var verr *validation.Error
	if errors.As(err, &verr) {
		WriteValidation(w, verr)
		return
	}
	for _, s := range statuses {
		if errors.Is(err, s.Err) {
			WriteError(w, s.Code, err.Error())
			return
		}
	}
	WriteError(w, http.StatusInternalServerError, "internal server error")
}

// DecodeJSON reads a bounded JSON body into dst, rejecting unknown fields.
func DecodeJSON(r *http.Request, dst any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		return fmt.Errorf("invalid JSON payload: %w", err)
	}
	return nil
}

// IDParam parses a positive integer chi URL parameter.
func IDParam(r *http.Request, name string) (int64, error) {
	raw := chi.URLParam(r, name)
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil || id <= 0 {
		return 0, validation.Failf(name, "gt", "must be a positive integer")
	}
	return id, nil
}
