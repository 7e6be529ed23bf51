package handler

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/go-auth-otp/internal/domain"
)

// maxBodyBytes bounds JSON request bodies on the auth endpoints.
const maxBodyBytes = 1 << 20

// MessageEnvelope is the generic response wrapper.
type MessageEnvelope struct {
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
}

// AuthEnvelope wraps register, login and verify-otp responses.
type AuthEnvelope struct {
	Success     bool                   `json:"success"`
	Message     string                 `json:"message,omitempty"`
	Token       string                 `json:"token"`
	ExpiresAt   time.Time              `json:"expires_at"`
	User        *domain.AccountSummary `json:"user,omitempty"`
	PhoneNumber string                 `json:"phone_number,omitempty"`
}

// OTPEnvelope acknowledges send-otp. OTP is only set when code echo is enabled.
type OTPEnvelope struct {
	Message     string    `json:"message"`
	PhoneNumber string    `json:"phone_number"`
	ExpiresAt   time.Time `json:"expires_at"`
	OTP         string    `json:"otp,omitempty"`
}

// StatusEnvelope is the root health response.
type StatusEnvelope struct {
	Status string    `json:"status"`
	Store  string    `json:"store"`
	Time   time.Time `json:"time,omitzero"`
	Error  string    `json:"error,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, MessageEnvelope{Error: msg})
}

// writeServiceError maps a workflow error to its HTTP status. Internal errors
// already carry a caller-safe message.
func writeServiceError(w http.ResponseWriter, err error) {
	writeError(w, statusFor(err), err.Error())
}

func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, domain.ErrUnauthorized):
		return http.StatusUnauthorized
	default:
		return http.StatusInternalServerError
	}
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst interface{}) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(dst); err != nil {
		return fmt.Errorf("invalid request body: %w", domain.ErrBadRequest)
	}
	return nil
}
