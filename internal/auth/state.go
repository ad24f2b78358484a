package auth

import "github.com/sipico/covid-counter-client/internal/session"

// State is the authentication state, derived from the session store.
type State int

const (
	// StateLoggedOut means no credential and no pending challenge.
	StateLoggedOut State = iota

	// StateAwaitingOTP means a login attempt is waiting for its one-time
	// passcode.
	StateAwaitingOTP

	// StateAuthenticated means a credential is stored.
	StateAuthenticated
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateLoggedOut:
		return "LOGGED_OUT"
	case StateAwaitingOTP:
		return "AWAITING_OTP"
	case StateAuthenticated:
		return "AUTHENTICATED"
	default:
		return "UNKNOWN"
	}
}

// StateOf derives the state from s. A credential wins over a stale
// challenge.
func StateOf(s *session.Store) State {
	switch {
	case s.HasCredential():
		return StateAuthenticated
	case s.HasPendingChallenge():
		return StateAwaitingOTP
	default:
		return StateLoggedOut
	}
}

// Form identifies one submitting view.
type Form string

const (
	FormLogin    Form = "login"
	FormOTP      Form = "otp"
	FormRegister Form = "register"
)

// FormState is the per-form submission status.
type FormState struct {
	Busy bool
	Err  string
}
