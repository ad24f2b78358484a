// Package auth drives the login, one-time-passcode and registration flows.
//
// The state is never stored separately: it is derived from the session
// store on every read, so a restarted process resumes the same state.
package auth

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/sipico/covid-counter-client/internal/api"
	"github.com/sipico/covid-counter-client/internal/logging"
	"github.com/sipico/covid-counter-client/internal/metrics"
	"github.com/sipico/covid-counter-client/internal/session"
)

// Fallback messages for failures that carry no text of their own.
const (
	LoginFailed    = "Login failed"
	OTPFailed      = "OTP verification failed"
	RegisterFailed = "Register failed"
)

// Event names recorded in the auth events metric.
const (
	eventLogin       = "login"
	eventOTPRequired = "otp_required"
	eventOTPVerified = "otp_verified"
	eventRegister    = "register"
	eventLogout      = "logout"
	eventReset       = "reset"
	eventFailure     = "failure"
)

// API is the part of the API client the machine calls.
type API interface {
	Login(ctx context.Context, req *api.LoginRequest) (*api.LoginResponse, error)
	Register(ctx context.Context, req *api.RegisterRequest) error
	VerifyOTP(ctx context.Context, req *api.VerifyOTPRequest) (*api.AuthResponse, error)
	Logout(ctx context.Context) error
}

// Notice is the server's description of the current OTP challenge. It is
// only known to the process that received the challenge.
type Notice struct {
	Message   string
	ExpiresAt string
}

// Option configures a Machine.
type Option func(*Machine)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(m *Machine) {
		m.logger = logger
	}
}

// WithOnChange registers a function called with the new state after every
// transition or form status change.
func WithOnChange(f func(State)) Option {
	return func(m *Machine) {
		m.onChange = f
	}
}

// Machine is the authentication state machine.
type Machine struct {
	session  *session.Store
	client   API
	logger   *slog.Logger
	onChange func(State)

	mu     sync.Mutex
	forms  map[Form]*FormState
	notice Notice
}

// New creates a Machine over an opened session store.
func New(s *session.Store, client API, opts ...Option) *Machine {
	m := &Machine{
		session: s,
		client:  client,
		logger:  logging.Discard(),
		forms: map[Form]*FormState{
			FormLogin:    {},
			FormOTP:      {},
			FormRegister: {},
		},
	}
	for _, opt := range opts {
		opt(m)
	}
	return m
}

// State returns the current state.
func (m *Machine) State() State {
	return StateOf(m.session)
}

// PendingEmail returns the address awaiting a passcode, if any.
func (m *Machine) PendingEmail() string {
	c, ok := m.session.PendingChallenge()
	if !ok {
		return ""
	}
	return c.PendingEmail
}

// Notice returns the server's message for the current challenge.
func (m *Machine) Notice() Notice {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.notice
}

// Form returns the status of one form.
func (m *Machine) Form(f Form) FormState {
	m.mu.Lock()
	defer m.mu.Unlock()
	if fs, ok := m.forms[f]; ok {
		return *fs
	}
	return FormState{}
}

// Login submits credentials. A token authenticates immediately; an
// OTP_REQUIRED status starts a challenge for the returned email.
func (m *Machine) Login(ctx context.Context, email, password string) error {
	email = strings.TrimSpace(email)
	if err := m.begin(FormLogin); err != nil {
		return err
	}
	if err := validateLogin(email, password); err != nil {
		return m.fail(FormLogin, err, LoginFailed)
	}

	resp, err := m.client.Login(ctx, &api.LoginRequest{Email: email, Password: password})
	if err != nil {
		return m.fail(FormLogin, err, LoginFailed)
	}

	switch {
	case resp.Token != "":
		if err := m.authenticate(ctx, resp.Token); err != nil {
			return m.fail(FormLogin, err, LoginFailed)
		}
		m.logger.Info("logged in", "email", email)
		metrics.RecordAuthEvent(eventLogin)

	case resp.OTPRequired():
		pending := resp.Email
		if pending == "" {
			pending = email
		}
		prev, hadPrev := m.session.PendingChallenge()
		if err := m.session.SetPendingChallenge(ctx, &session.Challenge{PendingEmail: pending}); err != nil {
			return m.fail(FormLogin, err, LoginFailed)
		}
		// A new attempt replaces any previous session.
		if err := m.session.SetCredential(ctx, ""); err != nil {
			var restore *session.Challenge
			if hadPrev {
				restore = &prev
			}
			_ = m.session.SetPendingChallenge(ctx, restore) //nolint:errcheck
			return m.fail(FormLogin, err, LoginFailed)
		}
		m.mu.Lock()
		m.notice = Notice{Message: resp.Message, ExpiresAt: resp.Expiry()}
		m.forms[FormOTP] = &FormState{}
		m.mu.Unlock()
		m.logger.Info("one-time passcode required", "email", pending)
		metrics.RecordAuthEvent(eventOTPRequired)

	default:
		return m.fail(FormLogin, ErrUnexpectedResponse, LoginFailed)
	}

	m.done(FormLogin)
	return nil
}

// VerifyOTP exchanges a passcode for a credential. An empty email means the
// pending challenge's address. Only allowed while awaiting a passcode.
func (m *Machine) VerifyOTP(ctx context.Context, email, code string) error {
	if m.State() != StateAwaitingOTP {
		return ErrInvalidTransition
	}
	email = strings.TrimSpace(email)
	if email == "" {
		email = m.PendingEmail()
	}
	code = strings.TrimSpace(code)

	if err := m.begin(FormOTP); err != nil {
		return err
	}
	if err := validateOTP(email, code); err != nil {
		return m.fail(FormOTP, err, OTPFailed)
	}

	resp, err := m.client.VerifyOTP(ctx, &api.VerifyOTPRequest{Email: email, Code: code})
	if err != nil {
		return m.fail(FormOTP, err, OTPFailed)
	}
	if resp.Token == "" {
		return m.fail(FormOTP, ErrNoCredential, OTPFailed)
	}
	if err := m.authenticate(ctx, resp.Token); err != nil {
		return m.fail(FormOTP, err, OTPFailed)
	}

	m.logger.Info("one-time passcode verified", "email", email)
	metrics.RecordAuthEvent(eventOTPVerified)
	m.done(FormOTP)
	return nil
}

// Reset abandons the pending challenge.
func (m *Machine) Reset(ctx context.Context) error {
	if m.State() != StateAwaitingOTP {
		return ErrInvalidTransition
	}
	if err := m.session.SetPendingChallenge(ctx, nil); err != nil {
		return fmt.Errorf("failed to clear challenge: %w", err)
	}

	m.mu.Lock()
	m.notice = Notice{}
	m.forms[FormOTP] = &FormState{}
	m.mu.Unlock()

	metrics.RecordAuthEvent(eventReset)
	m.notify()
	return nil
}

// Logout clears the credential and any challenge, then tells the server.
// The server call is best effort: its failure is logged, not returned.
func (m *Machine) Logout(ctx context.Context) error {
	if err := m.session.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear session: %w", err)
	}

	m.mu.Lock()
	m.notice = Notice{}
	for f := range m.forms {
		m.forms[f] = &FormState{}
	}
	m.mu.Unlock()

	if err := m.client.Logout(ctx); err != nil {
		m.logger.Warn("server logout failed", "error", err)
	}

	m.logger.Info("logged out")
	metrics.RecordAuthEvent(eventLogout)
	m.notify()
	return nil
}

// Register creates an account. It never yields a credential: on success
// the machine is LoggedOut and the user still has to log in.
func (m *Machine) Register(ctx context.Context, name, email, password string) error {
	name = strings.TrimSpace(name)
	email = strings.TrimSpace(email)
	if err := m.begin(FormRegister); err != nil {
		return err
	}
	if err := validateRegister(name, email, password); err != nil {
		return m.fail(FormRegister, err, RegisterFailed)
	}

	if err := m.client.Register(ctx, &api.RegisterRequest{Name: name, Email: email, Password: password}); err != nil {
		return m.fail(FormRegister, err, RegisterFailed)
	}
	if err := m.session.Clear(ctx); err != nil {
		return m.fail(FormRegister, err, RegisterFailed)
	}

	m.mu.Lock()
	m.notice = Notice{}
	m.mu.Unlock()

	m.logger.Info("registered", "email", email)
	metrics.RecordAuthEvent(eventRegister)
	m.done(FormRegister)
	return nil
}

// authenticate stores the credential and drops the challenge.
func (m *Machine) authenticate(ctx context.Context, token string) error {
	if err := m.session.SetCredential(ctx, token); err != nil {
		return fmt.Errorf("failed to store credential: %w", err)
	}
	if err := m.session.SetPendingChallenge(ctx, nil); err != nil {
		return fmt.Errorf("failed to clear challenge: %w", err)
	}
	m.mu.Lock()
	m.notice = Notice{}
	m.mu.Unlock()
	return nil
}

// begin marks f busy and clears its previous error.
func (m *Machine) begin(f Form) error {
	m.mu.Lock()
	fs := m.forms[f]
	if fs.Busy {
		m.mu.Unlock()
		return ErrBusy
	}
	fs.Busy = true
	fs.Err = ""
	m.mu.Unlock()

	m.notify()
	return nil
}

func (m *Machine) done(f Form) {
	m.mu.Lock()
	m.forms[f].Busy = false
	m.mu.Unlock()

	m.notify()
}

// fail records err's user-facing message on f and returns err.
func (m *Machine) fail(f Form, err error, fallback string) error {
	msg := api.Message(err, fallback)

	m.mu.Lock()
	m.forms[f].Busy = false
	m.forms[f].Err = msg
	m.mu.Unlock()

	var verr *ValidationError
	if !errors.As(err, &verr) {
		m.logger.Warn("auth request failed", "form", string(f), "error", err)
		metrics.RecordAuthEvent(eventFailure)
	}
	m.notify()
	return err
}

func (m *Machine) notify() {
	if m.onChange != nil {
		m.onChange(m.State())
	}
}
