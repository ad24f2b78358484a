package tui

import (
	"strings"

	"github.com/sipico/covid-counter-client/internal/auth"
	"github.com/sipico/covid-counter-client/internal/view"
)

func (m *Model) formView(title string, f *form, which auth.Form, extra, help string) string {
	var b strings.Builder
	b.WriteString(view.TitleStyle.Render(title) + "\n\n")
	if extra != "" {
		b.WriteString(extra + "\n\n")
	}
	b.WriteString(f.view(m.busy[which] || m.auth.Form(which).Busy))
	if msg := m.auth.Form(which).Err; msg != "" {
		b.WriteString("\n " + view.ErrorStyle.Render(msg) + "\n")
	}
	if m.status != "" {
		b.WriteString("\n " + view.NoticeStyle.Render(m.status) + "\n")
	}
	b.WriteString("\n" + helpStyle.Render(" "+help))
	return b.String()
}

func (m *Model) viewLogin() string {
	return m.formView("Log in to COVID Counter", m.login, auth.FormLogin, "",
		"tab/shift+tab: navigate • enter: submit • ctrl+r: register • esc: quit")
}

func (m *Model) viewOTP() string {
	var extra []string
	extra = append(extra, " A one-time passcode was sent to "+m.auth.PendingEmail()+".")
	n := m.auth.Notice()
	if n.Message != "" {
		extra = append(extra, " "+view.NoticeStyle.Render(n.Message))
	}
	if n.ExpiresAt != "" {
		extra = append(extra, " "+view.MutedStyle.Render("Expires: "+n.ExpiresAt))
	}
	return m.formView("Verify your login", m.otp, auth.FormOTP, strings.Join(extra, "\n"),
		"enter: verify • ctrl+x/esc: start over • ctrl+c: quit")
}

func (m *Model) viewRegister() string {
	return m.formView("Create an account", m.register, auth.FormRegister, "",
		"tab/shift+tab: navigate • enter: submit • esc: back to login")
}
