package mockcovid

import (
	"crypto/rand"
	"encoding/json"
	"fmt"
	"math/big"
	"net/http"
	"net/mail"
	"net/url"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/sipico/covid-counter-client/internal/record"
)

// authCookie mirrors the cookie the real service sets next to the JSON token.
const authCookie = "Authorization"

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type registerRequest struct {
	Name     string `json:"name"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type verifyRequest struct {
	Email string `json:"email"`
	Code  string `json:"code"`
}

// handleLogin handles POST /auth/login.
func (a *API) handleLogin(w http.ResponseWriter, r *http.Request) {
	var req loginRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	user, ok := a.state.checkPassword(req.Email, req.Password)
	if !ok {
		writeError(w, http.StatusUnauthorized, "Invalid credentials")
		return
	}

	if user.OTPEnabled {
		code, err := newOTPCode()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "Failed to issue passcode")
			return
		}
		expiresAt := time.Now().Add(a.otpTTL)
		a.state.issueOTP(user.Email, code, expiresAt)
		writeJSON(w, http.StatusOK, map[string]string{
			"status":    "OTP_REQUIRED",
			"message":   "A verification code was sent to your email.",
			"email":     user.Email,
			"expiresAt": expiresAt.UTC().Format(time.RFC3339),
		})
		return
	}

	a.writeToken(w, user.Email)
}

// handleRegister handles POST /auth/register.
func (a *API) handleRegister(w http.ResponseWriter, r *http.Request) {
	var req registerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if strings.TrimSpace(req.Name) == "" || req.Password == "" {
		writeError(w, http.StatusBadRequest, "Name, email and password are required")
		return
	}
	if _, err := mail.ParseAddress(req.Email); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid email address")
		return
	}

	if err := a.state.AddUser(req.Name, req.Email, req.Password, false); err != nil {
		if err == ErrEmailTaken {
			writeError(w, http.StatusConflict, "Email already registered")
			return
		}
		writeError(w, http.StatusInternalServerError, "Registration failed")
		return
	}

	a.writeToken(w, req.Email)
}

// handleVerifyOTP handles POST /auth/verify-otp.
func (a *API) handleVerifyOTP(w http.ResponseWriter, r *http.Request) {
	var req verifyRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}

	if !a.state.consumeOTP(req.Email, strings.TrimSpace(req.Code), time.Now()) {
		writeError(w, http.StatusUnauthorized, "Invalid or expired code")
		return
	}

	a.writeToken(w, req.Email)
}

// handleLogout handles POST /auth/logout by expiring the auth cookie.
func (a *API) handleLogout(w http.ResponseWriter, _ *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"message": "Logged out. Remove token on client."})
}

func (a *API) writeToken(w http.ResponseWriter, email string) {
	token, err := a.issueToken(email)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to issue token")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     authCookie,
		Value:    token,
		Path:     "/",
		MaxAge:   int(a.tokenTTL.Seconds()),
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
	writeJSON(w, http.StatusOK, map[string]string{"token": token, "email": email})
}

// handleList handles GET on a dataset collection.
func (a *API) handleList(ds datasetSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		a.state.recordQuery(ds.path, q)

		rows := a.state.Rows(ds.path)
		out := make([]record.Record, 0, len(rows))
		for _, row := range rows {
			if ds.match(q, row) {
				out = append(out, row)
			}
		}
		writeJSON(w, http.StatusOK, out)
	}
}

// handleUpdate handles PUT on a single dataset row.
func (a *API) handleUpdate(ds datasetSpec) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		// chi hands back the raw segment when the path needed non-default escaping
		key, err := url.PathUnescape(chi.URLParam(r, "key"))
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid record key")
			return
		}

		dec := json.NewDecoder(r.Body)
		dec.UseNumber()
		var payload record.Record
		if err := dec.Decode(&payload); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid request body")
			return
		}

		updated, ok := a.state.update(ds.path, key, payload)
		if !ok {
			writeError(w, http.StatusNotFound, fmt.Sprintf("Record not found: %s", key))
			return
		}
		writeJSON(w, http.StatusOK, updated)
	}
}

func newOTPCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(1_000_000))
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%06d", n.Int64()), nil
}

// writeJSON writes v as a JSON response with the given status code.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	//nolint:errcheck
	json.NewEncoder(w).Encode(v)
}

// writeError writes a {message} error body.
func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"message": message})
}
