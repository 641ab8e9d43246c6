// Package httpx holds the JSON envelope and error mapping shared by all
// handlers.
package httpx

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/samber/oops"
	"go.uber.org/zap"

	"github.com/ovaphlow/pitchfork/service-task-go/internal/apperr"
)

// Envelope is the body of every API response.
type Envelope struct {
	Success bool                `json:"success"`
	Message string              `json:"message,omitempty"`
	Data    any                 `json:"data,omitempty"`
	Errors  []apperr.FieldError `json:"errors,omitempty"`
}

// WriteJSON writes v with the given status code.
func WriteJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// OK writes a success envelope.
func OK(w http.ResponseWriter, status int, msg string, data any) {
	WriteJSON(w, status, Envelope{Success: true, Message: msg, Data: data})
}

// Fail writes a failure envelope.
func Fail(w http.ResponseWriter, status int, msg string, fields ...apperr.FieldError) {
	WriteJSON(w, status, Envelope{Success: false, Message: msg, Errors: fields})
}

// StatusOf maps an error kind to its HTTP status.
func StatusOf(kind apperr.Kind) int {
	switch kind {
	case apperr.KindValidation, apperr.KindConflict:
		return http.StatusBadRequest
	case apperr.KindAuthentication:
		return http.StatusUnauthorized
	case apperr.KindNotFound:
		return http.StatusNotFound
	case apperr.KindRateLimited:
		return http.StatusTooManyRequests
	case apperr.KindTooLarge:
		return http.StatusRequestEntityTooLarge
	default:
		return http.StatusInternalServerError
	}
}

// Error writes err as an envelope. Domain errors carry their own message;
// anything else is logged and answered with a generic 500.
func Error(w http.ResponseWriter, r *http.Request, logger *zap.SugaredLogger, err error) {
	if e, ok := apperr.As(err); ok && e.Kind != apperr.KindInternal {
		logger.Debugw("request rejected", "method", r.Method, "path", r.URL.Path, "err", err)
		Fail(w, StatusOf(e.Kind), e.Message, e.Fields...)
		return
	}
	kv := []any{"method", r.Method, "path", r.URL.Path, "err", err}
	if oe, ok := oops.AsOops(err); ok {
		kv = append(kv, "domain", oe.Domain(), "context", oe.Context())
	}
	logger.Errorw("request failed", kv...)
	Fail(w, http.StatusInternalServerError, "Server Error")
}

// DecodeJSON reads the request body into dst. An empty body leaves dst
// untouched so that validation reports the missing fields.
func DecodeJSON(r *http.Request, dst any) error {
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		var tooLarge *http.MaxBytesError
		switch {
		case errors.Is(err, io.EOF):
			return nil
		case errors.As(err, &tooLarge):
			return apperr.TooLarge("Request entity too large").WithCause(err)
		}
		return apperr.BadRequest("Invalid JSON body").WithCause(err)
	}
	return nil
}
