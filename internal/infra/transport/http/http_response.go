package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/mkrupp/micropost/internal/domain"
	"github.com/mkrupp/micropost/internal/infra/logging"
)

// InternalErrorMessage is the only thing a caller learns about an unexpected failure.
const InternalErrorMessage = "internal server error"

// ErrRouteNotFound answers requests that match no route.
var ErrRouteNotFound = domain.NewError(domain.ErrNotFound, "route not found")

//nolint:gochecknoglobals
var kindStatus = []struct {
	kind   error
	status int
}{
	{domain.ErrInvalidInput, http.StatusBadRequest},
	{domain.ErrConflict, http.StatusBadRequest},
	{domain.ErrUnauthenticated, http.StatusUnauthorized},
	{domain.ErrUnauthorized, http.StatusUnauthorized},
	{domain.ErrForbidden, http.StatusForbidden},
	{domain.ErrNotFound, http.StatusNotFound},
}

// StatusFromError maps an error to the HTTP status and the message shown to
// the caller. Only *domain.Error messages are exposed; anything else is a 500.
func StatusFromError(err error) (int, string) {
	var public *domain.Error
	if !errors.As(err, &public) {
		return http.StatusInternalServerError, InternalErrorMessage
	}

	for _, ks := range kindStatus {
		if errors.Is(public.Kind, ks.kind) {
			return ks.status, public.Msg
		}
	}

	return http.StatusInternalServerError, InternalErrorMessage
}

// WriteJSON writes v as the JSON response body with the given status.
func WriteJSON(w http.ResponseWriter, status int, v any) error {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(v); err != nil {
		return fmt.Errorf("encode response: %w", err)
	}

	return nil
}

// WriteError writes the response for err. It must be the only write of the
// response.
func WriteError(w http.ResponseWriter, err error) {
	status, msg := StatusFromError(err)

	_ = WriteJSON(w, status, domain.MessageResponse{Message: msg})
}

// NotFound is the catch-all handler of a mux.
func NotFound(w http.ResponseWriter, _ *http.Request) {
	WriteError(w, ErrRouteNotFound)
}

// Fail writes the response for err and returns err, so that handlers can
// answer and report a failure in one statement.
func Fail(w http.ResponseWriter, err error) error {
	WriteError(w, err)

	return err
}

// ErrorLevel is the level a handler failure is logged at: caller mistakes
// are warnings, everything answered with a 500 is an error.
func ErrorLevel(err error) logging.Level {
	if status, _ := StatusFromError(err); status < http.StatusInternalServerError {
		return logging.LevelWarn
	}

	return logging.LevelError
}

// DecodeJSON decodes the request body into v, reading at most maxBytes.
func DecodeJSON(w http.ResponseWriter, r *http.Request, maxBytes int64, v any) error {
	if maxBytes > 0 {
		r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
	}

	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return errors.Join(domain.ErrMalformedBody, fmt.Errorf("decode body: %w", err))
	}

	return nil
}
