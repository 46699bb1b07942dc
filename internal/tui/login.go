package tui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
)

// LoginFunc performs the login. Returning an error keeps the form open.
type LoginFunc func(ctx context.Context, email, password string) error

const (
	emailField = iota
	passwordField
)

type loginKeyMap struct {
	next   key.Binding
	prev   key.Binding
	submit key.Binding
	cancel key.Binding
}

func newLoginKeyMap() *loginKeyMap {
	return &loginKeyMap{
		next: key.NewBinding(
			key.WithKeys("tab", "down"),
			key.WithHelp("tab", "Next field"),
		),
		prev: key.NewBinding(
			key.WithKeys("shift+tab", "up"),
			key.WithHelp("shift+tab", "Previous field"),
		),
		submit: key.NewBinding(
			key.WithKeys("enter"),
			key.WithHelp("enter", "Sign in"),
		),
		cancel: key.NewBinding(
			key.WithKeys("esc", "ctrl+c"),
			key.WithHelp("esc", "Cancel"),
		),
	}
}

// loginResultMsg carries the outcome of a LoginFunc call.
type loginResultMsg struct {
	err error
}

// LoginModel is the email/password form shown by `dataport login`.
type LoginModel struct {
	ctx        context.Context
	login      LoginFunc
	keys       *loginKeyMap
	inputs     []textinput.Model
	focus      int
	submitting bool
	err        error
	width      int

	// Done is set once the login succeeded; Cancelled when the user gave up.
	Done      bool
	Cancelled bool
}

// NewLoginModel builds the form. email pre-fills the first field.
func NewLoginModel(ctx context.Context, login LoginFunc, email string) LoginModel {
	emailInput := textinput.New()
	emailInput.Placeholder = "you@example.com"
	emailInput.Prompt = "Email    "
	emailInput.CharLimit = 254
	emailInput.Width = 40
	emailInput.SetValue(email)

	passwordInput := textinput.New()
	passwordInput.Placeholder = "password"
	passwordInput.Prompt = "Password "
	passwordInput.EchoMode = textinput.EchoPassword
	passwordInput.EchoCharacter = '•'
	passwordInput.Width = 40

	m := LoginModel{
		ctx:    ctx,
		login:  login,
		keys:   newLoginKeyMap(),
		inputs: []textinput.Model{emailInput, passwordInput},
	}
	if email != "" {
		m.focus = passwordField
	}
	m.inputs[m.focus].Focus()
	return m
}

func (m LoginModel) Init() tea.Cmd {
	return textinput.Blink
}

// Email returns the current email value.
func (m LoginModel) Email() string {
	return strings.TrimSpace(m.inputs[emailField].Value())
}

// Err returns the last login error shown in the form.
func (m LoginModel) Err() error {
	return m.err
}

func (m LoginModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case loginResultMsg:
		m.submitting = false
		if msg.err != nil {
			m.err = msg.err
			m.inputs[passwordField].Reset()
			return m, m.setFocus(passwordField)
		}
		m.err = nil
		m.Done = true
		return m, tea.Quit

	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case tea.KeyMsg:
		if key.Matches(msg, m.keys.cancel) {
			m.Cancelled = true
			return m, tea.Quit
		}
		if m.submitting {
			return m, nil
		}
		switch {
		case key.Matches(msg, m.keys.next):
			return m, m.setFocus((m.focus + 1) % len(m.inputs))
		case key.Matches(msg, m.keys.prev):
			return m, m.setFocus((m.focus + len(m.inputs) - 1) % len(m.inputs))
		case key.Matches(msg, m.keys.submit):
			if m.focus == emailField {
				return m, m.setFocus(passwordField)
			}
			return m.submit()
		}
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *LoginModel) setFocus(i int) tea.Cmd {
	m.inputs[m.focus].Blur()
	m.focus = i
	return m.inputs[m.focus].Focus()
}

func (m LoginModel) submit() (tea.Model, tea.Cmd) {
	email := m.Email()
	password := m.inputs[passwordField].Value()
	if email == "" || password == "" {
		m.err = errors.New("email and password are required")
		return m, nil
	}

	m.submitting = true
	m.err = nil
	ctx, login := m.ctx, m.login
	return m, func() tea.Msg {
		return loginResultMsg{err: login(ctx, email, password)}
	}
}

func (m LoginModel) View() string {
	var sb strings.Builder
	sb.WriteString(titleStyle.Render("DataPort login"))
	sb.WriteString("\n\n")
	for i, input := range m.inputs {
		sb.WriteString(input.View())
		if i < len(m.inputs)-1 {
			sb.WriteString("\n")
		}
	}
	sb.WriteString("\n\n")

	switch {
	case m.submitting:
		sb.WriteString(statusMessageStyle("Signing in..."))
	case m.err != nil:
		sb.WriteString(errorMessageStyle(fmt.Sprintf("Login failed: %v", m.err)))
	case m.Done:
		sb.WriteString(completeMessageStyle("Logged in"))
	}
	sb.WriteString("\n\n")
	sb.WriteString(helpStyle.Render("tab next field • enter sign in • esc cancel"))

	style := docStyle
	if m.width > 0 {
		style = style.MaxWidth(m.width)
	}
	return style.Render(sb.String())
}

var _ tea.Model = LoginModel{}
