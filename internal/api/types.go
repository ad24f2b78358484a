package api

import (
	"encoding/json"
	"fmt"
	"strings"
)

// StatusOTPRequired is the login status that starts a second-factor challenge.
const StatusOTPRequired = "OTP_REQUIRED"

// LoginRequest is the body of POST /auth/login.
type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// LoginResponse is either a token or an OTP challenge.
type LoginResponse struct {
	Token     string `json:"token,omitempty"`
	Status    string `json:"status,omitempty"`
	Email     string `json:"email,omitempty"`
	Message   string `json:"message,omitempty"`
	// ExpiresAt is display-only. Servers send either an ISO string or a
	// [year, month, day, hour, minute, second] array.
	ExpiresAt json.RawMessage `json:"expiresAt,omitempty"`
}

// OTPRequired reports whether the server asked for a one-time passcode.
func (r *LoginResponse) OTPRequired() bool {
	return r.Status == StatusOTPRequired
}

// Expiry renders ExpiresAt for display, or "" when it is absent or in a
// shape it does not recognize.
func (r *LoginResponse) Expiry() string {
	if len(r.ExpiresAt) == 0 {
		return ""
	}
	var s string
	if err := json.Unmarshal(r.ExpiresAt, &s); err == nil {
		return s
	}
	var parts []int
	if err := json.Unmarshal(r.ExpiresAt, &parts); err != nil || len(parts) < 3 {
		return ""
	}
	for len(parts) < 6 {
		parts = append(parts, 0)
	}
	out := fmt.Sprintf("%04d-%02d-%02dT%02d:%02d:%02d", parts[0], parts[1], parts[2], parts[3], parts[4], parts[5])
	return strings.TrimSuffix(out, ":00")
}

// RegisterRequest is the body of POST /auth/register.
type RegisterRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// VerifyOTPRequest is the body of POST /auth/verify-otp.
type VerifyOTPRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// AuthResponse is returned by a successful verification.
type AuthResponse struct {
	Token string `json:"token,omitempty"`
	Email string `json:"email,omitempty"`
}

// MessageResponse is a bare {message} body.
type MessageResponse struct {
	Message string `json:"message,omitempty"`
}
