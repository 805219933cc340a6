// Package gate decides whether a caller may enter a protected view.
//
// Every [Gate.Check] starts in [Checking] and resolves to [Authenticated] or [Unauthenticated].
// Nothing is cached between checks.
package gate

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mediadesk/internal/session"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// State is the gate's position in its check.
type State int

const (
	Checking State = iota
	Authenticated
	Unauthenticated
)

func (s State) String() string {
	switch s {
	case Checking:
		return "checking"
	case Authenticated:
		return "authenticated"
	case Unauthenticated:
		return "unauthenticated"
	default:
		return ""
	}
}

// Reason explains an [Unauthenticated] decision.
type Reason string

const (
	ReasonNone     Reason = ""
	ReasonNoToken  Reason = "no-token"
	ReasonExpired  Reason = "expired"
	ReasonRejected Reason = "rejected"
)

// Decision is the result of a check.
type Decision struct {
	State  State
	Reason Reason
	Err    error
}

// Allowed reports whether the protected view may render.
func (d Decision) Allowed() bool { return d.State == Authenticated }

// Validator confirms a token with the server.
type Validator interface {
	Validate(ctx context.Context) error
}

// ValidatorFunc adapts a function to [Validator].
type ValidatorFunc func(ctx context.Context) error

func (f ValidatorFunc) Validate(ctx context.Context) error { return f(ctx) }

// Options configures a [Gate].
type Options struct {
	Store *session.Store
	// Validator is optional. Without it only local checks run.
	Validator Validator
	Logger    *log.Logger
	// Now is used to evaluate token expiry. Defaults to [time.Now].
	Now func() time.Time
}

// Gate guards protected views.
type Gate struct {
	store     *session.Store
	validator Validator
	logger    *log.Logger
	now       func() time.Time
}

func New(opts Options) *Gate {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	if opts.Now == nil {
		opts.Now = time.Now
	}
	return &Gate{store: opts.Store, validator: opts.Validator, logger: opts.Logger, now: opts.Now}
}

// Check runs the gate:
//
//  1. no access token: Unauthenticated, even when a stale profile is cached
//  2. a JWT whose exp has passed: the session is cleared, Unauthenticated
//  3. a configured validator that fails: the session is cleared, Unauthenticated
//  4. otherwise Authenticated
func (g *Gate) Check(ctx context.Context) Decision {
	token := g.store.AccessToken()
	if token == "" {
		return Decision{State: Unauthenticated, Reason: ReasonNoToken}
	}

	if exp, ok := session.TokenExpiry(token); ok && !g.now().Before(exp) {
		g.reject("token expired", "exp", exp)
		return Decision{State: Unauthenticated, Reason: ReasonExpired, Err: shared.ErrTokenExpired}
	}

	if g.validator != nil {
		if err := g.validator.Validate(ctx); err != nil {
			if ctx.Err() != nil {
				return Decision{State: Unauthenticated, Reason: ReasonRejected, Err: ctx.Err()}
			}
			g.reject("token rejected", "error", err)
			return Decision{State: Unauthenticated, Reason: ReasonRejected, Err: err}
		}
	}

	return Decision{State: Authenticated}
}

func (g *Gate) reject(msg string, kv ...any) {
	g.logger.Info(msg, kv...)
	if err := g.store.ClearAll(); err != nil {
		g.logger.Error("failed to clear session", "error", err)
	}
}

// Require runs [Gate.Check] and converts a denial into an error wrapping [shared.ErrNotAuthenticated].
func (g *Gate) Require(ctx context.Context) error {
	d := g.Check(ctx)
	if d.Allowed() {
		return nil
	}

	msg := "run 'mediadesk auth login' first"
	switch d.Reason {
	case ReasonExpired:
		msg = "session expired, " + msg
	case ReasonRejected:
		msg = "session rejected by server, " + msg
	}
	if d.Err != nil && !errors.Is(d.Err, shared.ErrTokenExpired) {
		return fmt.Errorf("%w: %s: %v", shared.ErrNotAuthenticated, msg, d.Err)
	}
	return fmt.Errorf("%w: %s", shared.ErrNotAuthenticated, msg)
}
