package handler

import (
	"net/http"

	"github.com/go-auth-otp/internal/application/auth"
)

// AuthHandler exposes the credential workflow over HTTP.
type AuthHandler struct {
	svc      auth.Service
	echoCode bool
}

// NewAuthHandler builds the handler. echoCode returns issued OTPs in the
// send-otp response and must stay off in production.
func NewAuthHandler(svc auth.Service, echoCode bool) *AuthHandler {
	return &AuthHandler{svc: svc, echoCode: echoCode}
}

func (h *AuthHandler) Register(w http.ResponseWriter, r *http.Request) {
	var req auth.RegisterRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := h.svc.Register(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, AuthEnvelope{
		Success:   true,
		Message:   "User registered successfully",
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.Account,
	})
}

func (h *AuthHandler) Login(w http.ResponseWriter, r *http.Request) {
	var req auth.LoginRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := h.svc.Login(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Success:   true,
		Token:     res.Token,
		ExpiresAt: res.ExpiresAt,
		User:      res.Account,
	})
}

func (h *AuthHandler) SendOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.SendOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	out, err := h.svc.SendOTP(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	env := OTPEnvelope{
		Message:     "OTP sent successfully",
		PhoneNumber: out.PhoneNumber,
		ExpiresAt:   out.ExpiresAt,
	}
	if h.echoCode {
		env.OTP = out.Code
	}
	writeJSON(w, http.StatusOK, env)
}

func (h *AuthHandler) VerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req auth.VerifyOTPRequest
	if err := decodeJSON(w, r, &req); err != nil {
		writeServiceError(w, err)
		return
	}
	res, err := h.svc.VerifyOTP(r.Context(), req)
	if err != nil {
		writeServiceError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, AuthEnvelope{
		Success:     true,
		Message:     "OTP verified, login successful",
		Token:       res.Token,
		ExpiresAt:   res.ExpiresAt,
		PhoneNumber: res.PhoneNumber,
	})
}
