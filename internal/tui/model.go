// Package tui is the interactive terminal dashboard: login, one-time
// passcode and registration forms in front of the four dataset tabs.
package tui

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"

	"github.com/sipico/covid-counter-client/internal/auth"
	"github.com/sipico/covid-counter-client/internal/dataset"
	"github.com/sipico/covid-counter-client/internal/debounce"
	"github.com/sipico/covid-counter-client/internal/guard"
	"github.com/sipico/covid-counter-client/internal/listing"
	"github.com/sipico/covid-counter-client/internal/logging"
	"github.com/sipico/covid-counter-client/internal/session"
)

// Config carries the collaborators the dashboard drives.
type Config struct {
	Session *session.Store
	Auth    *auth.Machine
	Lister  listing.Lister
	Logger  *slog.Logger
	// Window is the filter debounce window; zero means the default.
	Window time.Duration
	// Clock drives filter debouncing; nil means real time.
	Clock debounce.Clock
}

type (
	// changedMsg reports that a list controller's state moved.
	changedMsg struct{}

	authDoneMsg struct {
		form auth.Form
		err  error
	}

	saveDoneMsg struct {
		tab int
		err error
	}

	logoutDoneMsg struct {
		err error
	}
)

// Model is the bubbletea model for the whole client.
type Model struct {
	ctx     context.Context
	session *session.Store
	auth    *auth.Machine
	logger  *slog.Logger

	route  guard.Route
	status string

	login    *form
	otp      *form
	register *form
	busy     map[auth.Form]bool

	dash    *dashboard
	changes chan struct{}

	width, height int
}

// New builds the model. ctx bounds every request the dashboard makes.
func New(ctx context.Context, cfg Config) *Model {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Discard()
	}

	m := &Model{
		ctx:     ctx,
		session: cfg.Session,
		auth:    cfg.Auth,
		logger:  logger,
		busy:    make(map[auth.Form]bool),
		changes: make(chan struct{}, 1),
		login: newForm("Log in",
			fieldSpec{label: "Email", placeholder: "you@example.com"},
			fieldSpec{label: "Password", secret: true},
		),
		otp: newForm("Verify",
			fieldSpec{label: "One-time passcode", placeholder: "123456", charLimit: 12},
		),
		register: newForm("Create account",
			fieldSpec{label: "Name"},
			fieldSpec{label: "Email", placeholder: "you@example.com"},
			fieldSpec{label: "Password", secret: true},
		),
	}

	signal := func() {
		select {
		case m.changes <- struct{}{}:
		default:
		}
	}
	opts := []listing.Option{
		listing.WithLogger(logger),
		listing.WithWindow(cfg.Window),
		listing.WithOnChange(signal),
	}
	if cfg.Clock != nil {
		opts = append(opts, listing.WithClock(cfg.Clock))
	}
	m.dash = newDashboard(dataset.All(), cfg.Lister, opts...)

	// A pending challenge survives restarts; resume it.
	start := string(guard.RouteRoot)
	if auth.StateOf(m.session) == auth.StateAwaitingOTP {
		start = string(guard.RouteOTP)
	}
	m.navigate(start)
	return m
}

// Route is the view currently shown.
func (m *Model) Route() guard.Route {
	return m.route
}

// navigate resolves path through the route guard and enters the result.
func (m *Model) navigate(path string) {
	d := guard.Resolve(path, m.session)
	if d.Redirected {
		m.logger.Debug("navigation redirected", "requested", path, "route", string(d.Route))
	}
	m.route = d.Route

	switch d.Route {
	case guard.RouteDashboard:
		m.dash.enter(m.ctx)
	case guard.RouteLogin:
		m.login.setFocus(0)
	case guard.RouteOTP:
		m.otp.reset()
	case guard.RouteRegister:
		m.register.setFocus(0)
	}
}

// Close stops every list controller.
func (m *Model) Close() {
	m.dash.close()
}

// listen waits for the next controller change.
func (m *Model) listen() tea.Cmd {
	return func() tea.Msg {
		select {
		case <-m.changes:
			return changedMsg{}
		case <-m.ctx.Done():
			return nil
		}
	}
}

func (m *Model) Init() tea.Cmd {
	return m.listen()
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width, m.height = msg.Width, msg.Height
		return m, nil

	case changedMsg:
		m.dash.sync()
		return m, m.listen()

	case authDoneMsg:
		return m, m.authDone(msg)

	case saveDoneMsg:
		m.dash.saveDone(msg)
		return m, nil

	case logoutDoneMsg:
		if msg.err != nil {
			m.status = "Logout failed: " + msg.err.Error()
		} else {
			m.status = "Logged out."
		}
		// The guard sends a cleared session back to the login view.
		m.navigate(string(guard.RouteDashboard))
		return m, nil

	case tea.KeyMsg:
		if msg.String() == "ctrl+c" {
			return m, tea.Quit
		}
		switch m.route {
		case guard.RouteLogin:
			return m, m.updateLogin(msg)
		case guard.RouteOTP:
			return m, m.updateOTP(msg)
		case guard.RouteRegister:
			return m, m.updateRegister(msg)
		case guard.RouteDashboard:
			return m, m.updateDashboard(msg)
		}
	}
	return m, nil
}

// formKeys handles focus movement shared by the auth forms. It returns
// submit=true when enter should submit f.
func formKeys(f *form, msg tea.KeyMsg) (handled, submit bool) {
	switch msg.String() {
	case "tab", "down":
		f.next()
		return true, false
	case "shift+tab", "up":
		f.prev()
		return true, false
	case "enter":
		if f.onLast() {
			return true, true
		}
		f.next()
		return true, false
	}
	return false, false
}

func (m *Model) updateLogin(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+r":
		m.status = ""
		m.navigate(string(guard.RouteRegister))
		return nil
	case "esc":
		return tea.Quit
	}
	if handled, submit := formKeys(m.login, msg); handled {
		if !submit {
			return nil
		}
		email, password := m.login.value(0), m.login.value(1)
		return m.submit(auth.FormLogin, func(ctx context.Context) error {
			return m.auth.Login(ctx, email, password)
		})
	}
	return m.login.update(msg)
}

func (m *Model) updateOTP(msg tea.KeyMsg) tea.Cmd {
	switch msg.String() {
	case "ctrl+x", "esc":
		if m.busy[auth.FormOTP] {
			return nil
		}
		if err := m.auth.Reset(m.ctx); err != nil {
			m.logger.Warn("reset failed", "error", err)
		}
		m.navigate(string(guard.RouteLogin))
		return nil
	}
	if handled, submit := formKeys(m.otp, msg); handled {
		if !submit {
			return nil
		}
		code := m.otp.value(0)
		return m.submit(auth.FormOTP, func(ctx context.Context) error {
			return m.auth.VerifyOTP(ctx, "", code)
		})
	}
	return m.otp.update(msg)
}

func (m *Model) updateRegister(msg tea.KeyMsg) tea.Cmd {
	if msg.String() == "esc" {
		m.navigate(string(guard.RouteLogin))
		return nil
	}
	if handled, submit := formKeys(m.register, msg); handled {
		if !submit {
			return nil
		}
		name, email, password := m.register.value(0), m.register.value(1), m.register.value(2)
		return m.submit(auth.FormRegister, func(ctx context.Context) error {
			return m.auth.Register(ctx, name, email, password)
		})
	}
	return m.register.update(msg)
}

// submit runs one auth request off the update loop. A form already
// submitting ignores further submits.
func (m *Model) submit(f auth.Form, run func(context.Context) error) tea.Cmd {
	if m.busy[f] {
		return nil
	}
	m.busy[f] = true
	m.status = ""
	ctx := m.ctx
	return func() tea.Msg {
		return authDoneMsg{form: f, err: run(ctx)}
	}
}

func (m *Model) authDone(msg authDoneMsg) tea.Cmd {
	m.busy[msg.form] = false
	if msg.err != nil {
		if errors.Is(msg.err, auth.ErrInvalidTransition) {
			// The session moved underneath the form.
			m.navigate(string(m.route))
		}
		return nil
	}

	switch msg.form {
	case auth.FormLogin:
		m.login.reset()
		if m.auth.State() == auth.StateAwaitingOTP {
			m.navigate(string(guard.RouteOTP))
		} else {
			m.navigate(string(guard.RouteDashboard))
		}
	case auth.FormOTP:
		m.navigate(string(guard.RouteDashboard))
	case auth.FormRegister:
		m.register.reset()
		m.status = "Account created. Please log in."
		m.navigate(string(guard.RouteLogin))
	}
	return nil
}

func (m *Model) logout() tea.Cmd {
	ctx := m.ctx
	return func() tea.Msg {
		return logoutDoneMsg{err: m.auth.Logout(ctx)}
	}
}

func (m *Model) View() string {
	var b strings.Builder
	switch m.route {
	case guard.RouteLogin:
		b.WriteString(m.viewLogin())
	case guard.RouteOTP:
		b.WriteString(m.viewOTP())
	case guard.RouteRegister:
		b.WriteString(m.viewRegister())
	case guard.RouteDashboard:
		b.WriteString(m.viewDashboard())
	}
	return b.String()
}
