package ui

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/list"
	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/mediadesk/internal/api"
	"github.com/desertthunder/mediadesk/internal/gate"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/session"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
)

// ViewState represents the current view in the TUI.
type ViewState int

const (
	CheckingView ViewState = iota
	LoginView
	DashboardView
)

// Accounts is the slice of the user service the TUI drives.
type Accounts interface {
	Login(ctx context.Context, creds models.Credentials) (*models.LoginResult, error)
	Logout() error
	List(ctx context.Context) ([]models.User, error)
}

// Options wires the TUI to the session layer.
type Options struct {
	Store    *session.Store
	Gate     *gate.Gate
	Accounts Accounts
	// Refresher is started when the dashboard mounts and stopped when it unmounts. Optional.
	Refresher *tasks.Refresher
	// Progress must be the channel the Refresher reports to.
	Progress <-chan tasks.ProgressUpdate
}

// Model represents the TUI application state.
type Model struct {
	ctx       context.Context
	view      ViewState
	store     *session.Store
	gate      *gate.Gate
	accounts  Accounts
	refresher *tasks.Refresher
	progress  <-chan tasks.ProgressUpdate
	stop      func()
	width     int
	height    int
	spinner   spinner.Model
	inputs    []textinput.Model
	focus     int
	busy      bool
	userList  list.Model
	flash     string
	status    string
	err       error
	help      help.Model
	keys      keyMap
}

const (
	emailField = iota
	passwordField
)

// NewModel creates a new TUI model with the provided dependencies.
func NewModel(ctx context.Context, opts Options) *Model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = styles.title.UnsetMarginBottom()

	email := textinput.New()
	email.Placeholder = "you@example.com"
	email.Prompt = styles.label.Render("Email")
	email.CharLimit = 254

	password := textinput.New()
	password.Placeholder = "password"
	password.Prompt = styles.label.Render("Password")
	password.EchoMode = textinput.EchoPassword
	password.EchoCharacter = '•'

	userList := list.New(nil, list.NewDefaultDelegate(), 0, 0)
	userList.Title = "Users"

	return &Model{
		ctx:       ctx,
		view:      CheckingView,
		store:     opts.Store,
		gate:      opts.Gate,
		accounts:  opts.Accounts,
		refresher: opts.Refresher,
		progress:  opts.Progress,
		spinner:   sp,
		inputs:    []textinput.Model{email, password},
		userList:  userList,
		help:      help.New(),
		keys:      newKeyMap(),
	}
}

// ViewState returns the active view.
func (m *Model) ViewState() ViewState { return m.view }

// Init starts the spinner, runs the auth gate and begins listening for refresher progress.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{m.spinner.Tick, m.checkSession()}
	if m.progress != nil {
		cmds = append(cmds, m.waitForProgress())
	}
	return tea.Batch(cmds...)
}

// Close stops the refresher if it is running. Safe to call more than once.
func (m *Model) Close() {
	if m.stop != nil {
		m.stop()
		m.stop = nil
	}
}

// Update handles incoming messages and updates the model state.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.userList.SetSize(msg.Width-4, msg.Height-8)
		return m, nil

	case tea.KeyMsg:
		switch m.view {
		case CheckingView:
			if key.Matches(msg, m.keys.abort) {
				return m, m.quit()
			}
			return m, nil
		case LoginView:
			return m.handleLoginKeys(msg)
		case DashboardView:
			return m.handleDashboardKeys(msg)
		}

	case spinner.TickMsg:
		if m.view != CheckingView && !m.busy {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case Msg:
		return m.handleMsg(msg)
	}

	return m.updateComponents(msg)
}

func (m *Model) handleMsg(msg Msg) (tea.Model, tea.Cmd) {
	switch msg.kind {
	case MsgGateChecked:
		d := msg.data.(gate.Decision)
		if d.Allowed() {
			return m, m.enterDashboard()
		}
		return m, m.enterLogin(reasonFlash(d.Reason))

	case MsgLoginFinished:
		res := msg.data.(loginResult)
		m.busy = false
		if res.err != nil {
			return m, m.enterLogin(loginFlash(res.err))
		}
		return m, m.enterDashboard()

	case MsgUsersFetched:
		res := msg.data.(usersResult)
		if m.view != DashboardView {
			return m, nil
		}
		m.busy = false
		if res.err != nil {
			if errors.Is(res.err, api.ErrSessionExpired) {
				return m, m.enterLogin(api.MsgSessionExpired)
			}
			m.err = res.err
			return m, nil
		}
		m.err = nil
		cmd := m.userList.SetItems(userItems(res.users))
		m.status = fmt.Sprintf("%d users", len(res.users))
		return m, cmd

	case MsgProgressUpdate:
		update := msg.data.(tasks.ProgressUpdate)
		if m.view != DashboardView {
			return m, m.waitForProgress()
		}
		if update.Phase == tasks.Logout {
			return m, tea.Batch(m.enterLogin(api.MsgSessionExpired), m.waitForProgress())
		}
		m.status = update.Message
		return m, m.waitForProgress()

	case MsgLoggedOut:
		if err, _ := msg.data.(error); err != nil {
			return m, m.enterLogin(fmt.Sprintf("Logout incomplete: %v", err))
		}
		return m, m.enterLogin("")
	}
	return m, nil
}

// View renders the UI based on the current view state.
func (m *Model) View() string {
	switch m.view {
	case CheckingView:
		return fmt.Sprintf("%s Checking session...", m.spinner.View())
	case LoginView:
		return m.renderLogin()
	case DashboardView:
		return m.renderDashboard()
	default:
		return ""
	}
}

func (m *Model) enterLogin(flash string) tea.Cmd {
	m.Close()
	m.view = LoginView
	m.flash = flash
	m.status = ""
	m.err = nil
	m.busy = false
	m.userList.SetItems(nil)
	m.inputs[passwordField].SetValue("")
	m.focus = emailField
	if m.inputs[emailField].Value() != "" {
		m.focus = passwordField
	}
	return m.focusInput()
}

func (m *Model) enterDashboard() tea.Cmd {
	m.view = DashboardView
	m.flash = ""
	m.inputs[passwordField].SetValue("")
	m.busy = true

	cmds := []tea.Cmd{m.fetchUsers(), m.spinner.Tick}
	if m.refresher != nil && m.stop == nil {
		m.stop = m.refresher.Start(m.ctx)
	}
	return tea.Batch(cmds...)
}

func (m *Model) focusInput() tea.Cmd {
	for i := range m.inputs {
		m.inputs[i].Blur()
	}
	return m.inputs[m.focus].Focus()
}

func (m *Model) quit() tea.Cmd {
	m.Close()
	return tea.Quit
}

func (m *Model) handleLoginKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.abort):
		return m, m.quit()
	case m.busy:
		return m, nil
	case key.Matches(msg, m.keys.next):
		m.focus = (m.focus + 1) % len(m.inputs)
		return m, m.focusInput()
	case key.Matches(msg, m.keys.submit):
		if m.focus == emailField {
			m.focus = passwordField
			return m, m.focusInput()
		}
		creds := models.Credentials{
			Email:    strings.TrimSpace(m.inputs[emailField].Value()),
			Password: m.inputs[passwordField].Value(),
		}
		m.busy = true
		m.flash = ""
		return m, tea.Batch(m.login(creds), m.spinner.Tick)
	}

	var cmd tea.Cmd
	m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	return m, cmd
}

func (m *Model) handleDashboardKeys(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.userList.FilterState() == list.Filtering {
		var cmd tea.Cmd
		m.userList, cmd = m.userList.Update(msg)
		return m, cmd
	}

	switch {
	case key.Matches(msg, m.keys.quit):
		return m, m.quit()
	case key.Matches(msg, m.keys.reload):
		if m.busy {
			return m, nil
		}
		m.busy = true
		return m, tea.Batch(m.fetchUsers(), m.spinner.Tick)
	case key.Matches(msg, m.keys.logout):
		m.Close()
		return m, m.logout()
	}

	var cmd tea.Cmd
	m.userList, cmd = m.userList.Update(msg)
	return m, cmd
}

func (m *Model) updateComponents(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	switch m.view {
	case LoginView:
		m.inputs[m.focus], cmd = m.inputs[m.focus].Update(msg)
	case DashboardView:
		m.userList, cmd = m.userList.Update(msg)
	}
	return m, cmd
}

func (m *Model) checkSession() tea.Cmd {
	return func() tea.Msg {
		return gateCheckedMsg(m.gate.Check(m.ctx))
	}
}

func (m *Model) login(creds models.Credentials) tea.Cmd {
	return func() tea.Msg {
		res, err := m.accounts.Login(m.ctx, creds)
		return loginFinishedMsg(res, err)
	}
}

func (m *Model) logout() tea.Cmd {
	return func() tea.Msg {
		return loggedOutMsg(m.accounts.Logout())
	}
}

func (m *Model) fetchUsers() tea.Cmd {
	return func() tea.Msg {
		users, err := m.accounts.List(m.ctx)
		return usersFetchedMsg(users, err)
	}
}

func (m *Model) waitForProgress() tea.Cmd {
	ch := m.progress
	if ch == nil {
		return nil
	}
	return func() tea.Msg {
		update, ok := <-ch
		if !ok {
			return nil
		}
		return progressUpdateMsg(update)
	}
}

func reasonFlash(r gate.Reason) string {
	switch r {
	case gate.ReasonExpired, gate.ReasonRejected:
		return api.MsgSessionExpired
	default:
		return ""
	}
}

func loginFlash(err error) string {
	switch {
	case errors.Is(err, shared.ErrMissingArgument):
		return "Email and password are required."
	case errors.Is(err, shared.ErrAuthFailed):
		return "Invalid email or password."
	case errors.Is(err, api.ErrNetworkFailure):
		return "Could not reach the server."
	}
	if msg, _, ok := api.ServerMessage(err); ok {
		return msg
	}
	return api.MsgInternalError
}

// errorText is the dashboard's status line for a failed call.
func errorText(err error) string {
	if msg, _, ok := api.ServerMessage(err); ok {
		return msg
	}
	return err.Error()
}

func (m *Model) renderLogin() string {
	var b strings.Builder
	b.WriteString(styles.banner.Render("mediadesk"))
	b.WriteString("\n\n")
	b.WriteString(styles.title.Render("Sign in"))
	b.WriteString("\n")
	for _, in := range m.inputs {
		b.WriteString(in.View())
		b.WriteString("\n")
	}
	if m.busy {
		b.WriteString("\n" + m.spinner.View() + " Signing in...")
	}
	if m.flash != "" {
		b.WriteString("\n" + styles.err.Render(m.flash))
	}

	helpKeys := []key.Binding{m.keys.next, m.keys.submit, m.keys.abort}
	b.WriteString("\n\n" + m.help.ShortHelpView(helpKeys))
	return b.String()
}

func (m *Model) renderDashboard() string {
	header := styles.banner.Render("mediadesk")
	if u := m.store.UserProfile(); u != nil {
		header = fmt.Sprintf("%s %s", header, styles.ok.Render(u.FullName()))
	}

	status := styles.help.Render(m.status)
	if m.busy {
		status = m.spinner.View() + " Loading..."
	}
	if m.err != nil {
		status = styles.err.Render("Error: " + errorText(m.err))
	}

	helpKeys := []key.Binding{m.keys.up, m.keys.down, m.keys.reload, m.keys.logout, m.keys.quit}
	helpView := m.help.ShortHelpView(helpKeys)

	return fmt.Sprintf("%s\n\n%s\n%s\n\n%s", header, m.userList.View(), status, helpView)
}
