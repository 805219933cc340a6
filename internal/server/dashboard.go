package server

import (
	"context"
	"embed"
	"errors"
	"fmt"
	"html/template"
	"io"
	"net/http"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mediadesk/internal/api"
	"github.com/desertthunder/mediadesk/internal/gate"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/session"
	"github.com/desertthunder/mediadesk/internal/shared"
)

//go:embed templates/*.html
var templateFS embed.FS

const LoginPath = "/login"

// Accounts is the slice of the user service the dashboard needs.
type Accounts interface {
	Login(ctx context.Context, creds models.Credentials) (*models.LoginResult, error)
	Logout() error
	List(ctx context.Context) ([]models.User, error)
	AvatarURL(u *models.User) (string, error)
}

// DashboardOpts configures a [Dashboard].
type DashboardOpts struct {
	Store    *session.Store
	Gate     *gate.Gate
	Accounts Accounts
	Logger   *log.Logger
}

// Dashboard serves the login flow and the gated session pages.
type Dashboard struct {
	store    *session.Store
	gate     *gate.Gate
	accounts Accounts
	logger   *log.Logger
	pages    map[string]*template.Template
}

type page struct {
	Title     string
	SignedIn  bool
	Flash     string
	Email     string
	User      *models.User
	AvatarURL string
	Users     []models.User
}

var reasonFlash = map[gate.Reason]string{
	gate.ReasonNoToken:  "Please sign in to continue.",
	gate.ReasonExpired:  api.MsgSessionExpired,
	gate.ReasonRejected: api.MsgSessionExpired,
}

// NewDashboard parses the embedded templates and returns a ready [Dashboard].
func NewDashboard(opts DashboardOpts) (*Dashboard, error) {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	pages := make(map[string]*template.Template, 3)
	for _, name := range []string{"login", "home", "users"} {
		t, err := template.ParseFS(templateFS, "templates/base.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("failed to parse %s template: %w", name, err)
		}
		pages[name] = t
	}

	return &Dashboard{
		store:    opts.Store,
		gate:     opts.Gate,
		accounts: opts.Accounts,
		logger:   opts.Logger,
		pages:    pages,
	}, nil
}

// Register mounts the dashboard routes on r. Profile and user pages run behind [RequireSession].
func (d *Dashboard) Register(r *BasicRouter) {
	guard := RequireSession(d.gate, LoginPath)

	r.HandleFunc(http.MethodGet, LoginPath, d.loginForm)
	r.HandleFunc(http.MethodPost, LoginPath, d.login)
	r.HandleFunc(http.MethodPost, "/logout", d.logout)
	r.Handle(http.MethodGet, "/{$}", guard(http.HandlerFunc(d.home)))
	r.Handle(http.MethodGet, "/users", guard(http.HandlerFunc(d.users)))
}

func (d *Dashboard) render(w http.ResponseWriter, status int, name string, p page) {
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	if err := d.pages[name].ExecuteTemplate(w, "base", p); err != nil {
		d.logger.Error("template render failed", "page", name, "error", err)
	}
}

func (d *Dashboard) loginForm(w http.ResponseWriter, r *http.Request) {
	if d.store.IsAuthenticated() {
		http.Redirect(w, r, "/", http.StatusSeeOther)
		return
	}
	p := page{Title: "Sign in", Flash: reasonFlash[gate.Reason(r.URL.Query().Get("reason"))]}
	d.render(w, http.StatusOK, "login", p)
}

func (d *Dashboard) login(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		d.render(w, http.StatusBadRequest, "login", page{Title: "Sign in", Flash: "Invalid form submission."})
		return
	}

	creds := models.Credentials{Email: r.PostForm.Get("email"), Password: r.PostForm.Get("password")}
	if _, err := d.accounts.Login(r.Context(), creds); err != nil {
		d.logger.Warn("login failed", "email", creds.Email, "error", err)
		status, flash := http.StatusInternalServerError, api.MsgInternalError
		switch {
		case errors.Is(err, shared.ErrMissingArgument):
			status, flash = http.StatusBadRequest, "Email and password are required."
		case errors.Is(err, shared.ErrAuthFailed):
			status, flash = http.StatusUnauthorized, "Invalid email or password."
		default:
			if msg, code, ok := api.ServerMessage(err); ok {
				status, flash = upstreamStatus(code, http.StatusInternalServerError), msg
			}
		}
		d.render(w, status, "login", page{Title: "Sign in", Flash: flash, Email: creds.Email})
		return
	}

	http.Redirect(w, r, "/", http.StatusSeeOther)
}

func (d *Dashboard) logout(w http.ResponseWriter, r *http.Request) {
	if err := d.accounts.Logout(); err != nil {
		d.logger.Error("logout failed", "error", err)
	}
	http.Redirect(w, r, LoginPath, http.StatusSeeOther)
}

func (d *Dashboard) home(w http.ResponseWriter, r *http.Request) {
	u := d.store.UserProfile()
	p := page{Title: "Profile", SignedIn: true, User: u}
	if avatar, err := d.accounts.AvatarURL(u); err == nil {
		p.AvatarURL = avatar
	}
	d.render(w, http.StatusOK, "home", p)
}

func (d *Dashboard) users(w http.ResponseWriter, r *http.Request) {
	users, err := d.accounts.List(r.Context())
	if err != nil {
		if errors.Is(err, api.ErrSessionExpired) {
			http.Redirect(w, r, LoginPath+"?reason="+string(gate.ReasonRejected), http.StatusSeeOther)
			return
		}
		d.logger.Error("list users failed", "error", err)
		status, flash := http.StatusBadGateway, api.MsgInternalError
		if msg, code, ok := api.ServerMessage(err); ok {
			status, flash = upstreamStatus(code, http.StatusBadGateway), msg
		}
		d.render(w, status, "users", page{Title: "Users", SignedIn: true, Flash: flash})
		return
	}
	d.render(w, http.StatusOK, "users", page{Title: "Users", SignedIn: true, Users: users})
}

// upstreamStatus passes API error statuses through, falling back for anything that is not 4xx or 5xx.
func upstreamStatus(code, fallback int) int {
	if code < 400 || code > 599 {
		return fallback
	}
	return code
}
