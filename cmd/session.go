package main

import (
	"context"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediadesk/internal/session"
	"github.com/desertthunder/mediadesk/internal/shared"
)

type sessionSummary struct {
	Authenticated bool           `json:"authenticated"`
	LoggedIn      bool           `json:"logged_in"`
	HasRefresh    bool           `json:"has_refresh_token"`
	DeviceID      string         `json:"device_id,omitempty"`
	User          string         `json:"user,omitempty"`
	Email         string         `json:"email,omitempty"`
	Role          string         `json:"role,omitempty"`
	SuperAdmin    bool           `json:"super_admin"`
	Permissions   []string       `json:"permissions"`
	Country       string         `json:"country,omitempty"`
	Language      string         `json:"language,omitempty"`
	Settings      map[string]any `json:"settings,omitempty"`
	LoginTime     *time.Time     `json:"login_time,omitempty"`
}

// SessionShow prints the stored session state. Token values are never printed.
func (r *Runner) SessionShow(ctx context.Context, cmd *cli.Command) error {
	s := sessionSummary{
		Authenticated: r.store.IsAuthenticated(),
		LoggedIn:      r.store.LoggedIn(),
		HasRefresh:    r.store.RefreshToken() != "",
		DeviceID:      r.store.DeviceID(),
		SuperAdmin:    r.store.SuperAdmin(),
		Permissions:   r.store.Permissions(),
		Settings:      r.store.Settings(),
	}
	if u := r.store.UserProfile(); u != nil {
		s.User, s.Email, s.Role = u.FullName(), u.Email, u.Role
	}
	if c := r.store.Country(); c != nil {
		s.Country = c.Name
	}
	if l := r.store.Language(); l != nil {
		s.Language = l.Name
	}
	if t, ok := r.store.LoginTime(); ok {
		s.LoginTime = &t
	}

	if cmd.Bool("json") {
		return r.writeJSON(s, true)
	}

	r.writePlainHeader("Session")
	r.writePlain("Authenticated: %t\n", s.Authenticated)
	r.writePlain("Logged in:     %t\n", s.LoggedIn)
	r.writePlain("Refresh token: %t\n", s.HasRefresh)
	if s.User != "" {
		r.writePlain("User:          %s <%s> (%s)\n", s.User, s.Email, s.Role)
	}
	if s.LoginTime != nil {
		r.writePlain("Login time:    %s\n", s.LoginTime.Local().Format(time.RFC1123))
	}
	if s.DeviceID != "" {
		r.writePlain("Device:        %s\n", s.DeviceID)
	}
	if len(s.Permissions) > 0 {
		r.writePlain("Permissions:   %v\n", s.Permissions)
	}
	return nil
}

// SessionKeys lists stored session keys and when each was last written.
func (r *Runner) SessionKeys(ctx context.Context, cmd *cli.Command) error {
	if r.kv == nil {
		return fmt.Errorf("%w: session keys are only listed for the %q storage driver", shared.ErrServiceUnavailable, shared.StorageSQLite)
	}

	entries, err := r.kv.List(session.Namespace)
	if err != nil {
		return err
	}
	if len(entries) == 0 {
		return r.writePlain("No session keys stored\n")
	}

	for _, e := range entries {
		r.writePlain("%-32s %s\n", e.Key, e.UpdatedAt.Local().Format(time.RFC3339))
	}
	return nil
}
