package tasks

import (
	"context"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/mediadesk/internal/session"
	"github.com/desertthunder/mediadesk/internal/shared"
)

const DefaultRefreshInterval = 15 * time.Minute

// TickOutcome reports what a single refresh tick did.
type TickOutcome int

const (
	TickSkippedUnauthenticated TickOutcome = iota
	TickSkippedBusy
	TickRefreshed
	TickLoggedOut
	// TickCancelled means the context ended mid-fetch or another login replaced the session; the store is left as it was.
	TickCancelled
)

func (o TickOutcome) String() string {
	switch o {
	case TickSkippedUnauthenticated:
		return "skipped_unauthenticated"
	case TickSkippedBusy:
		return "skipped_busy"
	case TickRefreshed:
		return "refreshed"
	case TickLoggedOut:
		return "logged_out"
	case TickCancelled:
		return "cancelled"
	default:
		return ""
	}
}

// RefresherOpts configures a [Refresher].
type RefresherOpts struct {
	Store    *session.Store
	Fetcher  ProfileFetcher
	Interval time.Duration
	Logger   *log.Logger
	Progress chan<- ProgressUpdate
}

// Refresher periodically revalidates the session by re-fetching the user profile.
type Refresher struct {
	store    *session.Store
	fetcher  ProfileFetcher
	interval time.Duration
	logger   *log.Logger
	progress chan<- ProgressUpdate

	inflight sync.Mutex
}

// NewRefresher creates a [Refresher]. A zero interval uses [DefaultRefreshInterval].
func NewRefresher(opts RefresherOpts) *Refresher {
	if opts.Interval <= 0 {
		opts.Interval = DefaultRefreshInterval
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}
	return &Refresher{
		store:    opts.Store,
		fetcher:  opts.Fetcher,
		interval: opts.Interval,
		logger:   opts.Logger,
		progress: opts.Progress,
	}
}

// Interval returns the time between ticks.
func (r *Refresher) Interval() time.Duration { return r.interval }

// Tick runs one refresh cycle.
func (r *Refresher) Tick(ctx context.Context) TickOutcome {
	token := r.store.AccessToken()
	if token == "" {
		r.logger.Debug("refresh skipped", "reason", "unauthenticated")
		return TickSkippedUnauthenticated
	}
	if !r.inflight.TryLock() {
		r.logger.Debug("refresh skipped", "reason", "in flight")
		return TickSkippedBusy
	}
	defer r.inflight.Unlock()

	user, err := r.fetcher.Profile(ctx)
	if err == nil && user == nil {
		err = fmt.Errorf("%w: empty profile", shared.ErrUnexpectedResponse)
	}
	if err != nil && ctx.Err() != nil {
		r.logger.Debug("refresh cancelled", "error", err)
		return TickCancelled
	}
	if err != nil {
		return r.logout(err)
	}

	written, err := r.store.ReplaceUserProfileIf(token, user)
	if err != nil {
		return r.logout(err)
	}
	if !written {
		return r.superseded()
	}

	r.logger.Debug("session refreshed", "user", user.Email)
	sendProgress(r.progress, refreshedUpdate(TickRefreshed, user.Email))
	return TickRefreshed
}

func (r *Refresher) logout(cause error) TickOutcome {
	r.logger.Warn("session refresh failed, logging out", "error", cause)
	if err := r.store.ClearAll(); err != nil {
		r.logger.Error("failed to clear session", "error", err)
	}
	sendProgress(r.progress, loggedOutUpdate(TickLoggedOut, cause))
	return TickLoggedOut
}

// superseded handles a session that ended or changed while the fetch was in flight.
// The store is left alone: whoever cleared or replaced it owns its state.
func (r *Refresher) superseded() TickOutcome {
	if r.store.IsAuthenticated() {
		r.logger.Debug("refresh discarded", "reason", "session replaced")
		return TickCancelled
	}
	r.logger.Info("session ended during refresh")
	sendProgress(r.progress, loggedOutUpdate(TickLoggedOut, shared.ErrNotAuthenticated))
	return TickLoggedOut
}

// Start ticks immediately and then every interval on a single goroutine until ctx is done
// or stop is called. stop waits for the goroutine to exit and may be called more than once.
func (r *Refresher) Start(ctx context.Context) (stop func()) {
	ctx, cancel := context.WithCancel(ctx)
	done := make(chan struct{})

	go func() {
		defer close(done)

		r.Tick(ctx)

		ticker := time.NewTicker(r.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				r.Tick(ctx)
			}
		}
	}()

	r.logger.Debug("refresh loop started", "interval", r.interval)

	var once sync.Once
	return func() {
		once.Do(func() {
			cancel()
			<-done
			r.logger.Debug("refresh loop stopped")
		})
	}
}
