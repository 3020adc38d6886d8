package server

import (
	"errors"
	"log/slog"
	"net/http"

	throttleservice "github.com/EdouardYu/ZeroDay/internal/loginattempt/service"
	tokenservice "github.com/EdouardYu/ZeroDay/internal/token/service"
	userservice "github.com/EdouardYu/ZeroDay/internal/user/service"
	validation "github.com/EdouardYu/ZeroDay/internal/validation/service"
)

// writeError maps a flow error to its HTTP status. Client-correctable
// failures keep their message; anything unmapped is a server error and its
// detail stays out of the response.
func writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		slog.Error("request failed", "error", err)
		writeJSON(w, status, map[string]string{"error": "internal error"})
		return
	}
	writeJSON(w, status, map[string]string{"error": err.Error()})
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, throttleservice.ErrTooManyAttempts):
		return http.StatusTooManyRequests
	case errors.Is(err, userservice.ErrBadCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, validation.ErrInvalidCode),
		errors.Is(err, validation.ErrExpiredCode),
		errors.Is(err, validation.ErrDisabledCode),
		errors.Is(err, tokenservice.ErrNoActiveToken),
		errors.Is(err, userservice.ErrEmailTaken),
		errors.Is(err, userservice.ErrUnknownEmail),
		errors.Is(err, userservice.ErrAlreadyEnabled),
		errors.Is(err, userservice.ErrNotYetEnabled):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}
