package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// AuthLogin signs in and persists the session.
func (r *Runner) AuthLogin(ctx context.Context, cmd *cli.Command) error {
	creds := models.Credentials{Email: cmd.String("email"), Password: cmd.String("password")}

	r.logger.Info("signing in", "email", creds.Email)

	res, err := r.users.Login(ctx, creds)
	if err != nil {
		return err
	}

	r.logger.Info("authentication successful", "user", res.User.ID)
	r.writePlain("✓ Signed in as %s <%s>\n", res.User.FullName(), res.User.Email)
	if res.RefreshToken == "" {
		r.writePlain("No refresh token issued; 'auth refresh' will be unavailable.\n")
	}
	return nil
}

// AuthLogout clears every stored session value.
func (r *Runner) AuthLogout(ctx context.Context, cmd *cli.Command) error {
	if err := r.users.Logout(); err != nil {
		return err
	}
	return r.writePlain("✓ Signed out\n")
}

type authStatus struct {
	State    string     `json:"state"`
	Reason   string     `json:"reason,omitempty"`
	Error    string     `json:"error,omitempty"`
	User     string     `json:"user,omitempty"`
	Email    string     `json:"email,omitempty"`
	LoggedIn bool       `json:"logged_in"`
	Since    *time.Time `json:"since,omitempty"`
	Expires  *time.Time `json:"expires,omitempty"`
}

// AuthStatus runs the auth gate and reports the result.
func (r *Runner) AuthStatus(ctx context.Context, cmd *cli.Command) error {
	r.logger.Debug("checking auth status")

	d := r.gate.Check(ctx)
	status := authStatus{
		State:    d.State.String(),
		Reason:   string(d.Reason),
		LoggedIn: r.store.LoggedIn(),
	}
	if d.Err != nil {
		status.Error = d.Err.Error()
	}
	if u := r.store.UserProfile(); u != nil {
		status.User = u.FullName()
		status.Email = u.Email
	}
	if t, ok := r.store.LoginTime(); ok {
		status.Since = &t
	}
	if exp, ok := r.sessionExpiry(); ok {
		status.Expires = &exp
	}

	if cmd.Bool("json") {
		return r.writeJSON(status, true)
	}

	if !d.Allowed() {
		r.writePlain("✗ Not authenticated")
		if status.Reason != "" {
			r.writePlain(" (%s)", status.Reason)
		}
		return r.writePlain("\nRun 'mediadesk auth login' to sign in.\n")
	}

	r.writePlain("✓ Authenticated\n")
	if status.User != "" {
		r.writePlain("User: %s <%s>\n", status.User, status.Email)
	}
	if status.Since != nil {
		r.writePlain("Since: %s\n", status.Since.Local().Format(time.RFC1123))
	}
	if status.Expires != nil {
		r.writePlain("Token expires: %s\n", status.Expires.Local().Format(time.RFC1123))
	}
	return nil
}

func (r *Runner) sessionExpiry() (time.Time, bool) {
	tok, err := r.store.Token()
	if err != nil || tok.Expiry.IsZero() {
		return time.Time{}, false
	}
	return tok.Expiry, true
}

// AuthRefresh exchanges the stored refresh token for a new access token.
func (r *Runner) AuthRefresh(ctx context.Context, cmd *cli.Command) error {
	pair, err := r.client.RefreshToken(ctx)
	if err != nil {
		if errors.Is(err, shared.ErrNoRefreshToken) {
			return fmt.Errorf("%w: sign in again to obtain one", err)
		}
		return err
	}

	r.logger.Info("access token refreshed", "rotated", pair.RefreshToken != "")
	r.writePlain("✓ Access token refreshed\n")
	if exp, ok := r.sessionExpiry(); ok {
		r.writePlain("Token expires: %s\n", exp.Local().Format(time.RFC1123))
	}
	return nil
}
