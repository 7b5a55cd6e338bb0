// Package httpjson writes JSON responses and the {code, message} error body
// shared by the services.
package httpjson

import (
	"encoding/json"
	"net/http"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/pkg/logger"
)

// ErrorBody is the error payload of every endpoint.
type ErrorBody struct {
	Code    apperr.Code `json:"code"`
	Message string      `json:"message"`
}

func Write(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v != nil {
		_ = json.NewEncoder(w).Encode(v)
	}
}

// Error maps err to a status and writes it. Server-side failures are logged
// at error level, client mistakes at debug.
func Error(w http.ResponseWriter, r *http.Request, err error) {
	status := apperr.HTTPStatus(err)
	l := logger.Ctx(r.Context())
	if status >= http.StatusInternalServerError {
		l.Error().Err(err).Int("status", status).Msg("request failed")
	} else {
		l.Debug().Err(err).Int("status", status).Msg("request rejected")
	}
	Write(w, status, ErrorBody{Code: apperr.CodeOf(err), Message: err.Error()})
}

// Decode reads a JSON request body into v, rejecting unknown fields.
func Decode(r *http.Request, v any) error {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return apperr.InvalidInput("invalid request body: %v", err)
	}
	return nil
}
