package main

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/charmbracelet/log"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediadesk/internal/api"
	"github.com/desertthunder/mediadesk/internal/gate"
	"github.com/desertthunder/mediadesk/internal/repositories"
	"github.com/desertthunder/mediadesk/internal/services"
	"github.com/desertthunder/mediadesk/internal/session"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	opts       RunnerOpts
	config     *shared.Config
	configPath string
	store      *session.Store
	kv         *repositories.KVRepository
	client     *api.Client
	users      *services.UserService
	media      *services.MediaService
	gate       *gate.Gate
	logger     *log.Logger
	output     io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Config     *shared.Config
	ConfigPath string
	Storage    session.Storage
	// KV is set when the session lives in SQLite and enables 'session keys'.
	KV         *repositories.KVRepository
	HTTPClient *http.Client
	Logger     *log.Logger
	Output     io.Writer
}

// NewRunner creates a new Runner with the provided configuration
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Config == nil {
		opts.Config = shared.DefaultConfig()
	}
	if opts.Logger == nil {
		opts.Logger = shared.NewLogger(nil)
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: opts.Config.API.Timeout}
	}
	if opts.Storage == nil {
		opts.Storage = session.NewMemoryStorage()
	}

	store := session.NewStore(opts.Storage, shared.WithLogger(opts.Logger, "component", "session"))
	client := api.NewClient(api.Options{
		BaseURL:      opts.Config.API.BaseURL(),
		AssetBaseURL: opts.Config.API.Host,
		RefreshPath:  opts.Config.API.RefreshPath,
		HTTPClient:   opts.HTTPClient,
		Store:        store,
		Logger:       shared.WithLogger(opts.Logger, "component", "api"),
		RateLimit:    opts.Config.API.RateLimit,
	})
	users := services.NewUserService(client, opts.Logger)

	gateOpts := gate.Options{Store: store, Logger: shared.WithLogger(opts.Logger, "component", "gate")}
	if opts.Config.Session.ValidateOnCheck {
		gateOpts.Validator = users
	}

	return &Runner{
		opts:       opts,
		config:     opts.Config,
		configPath: opts.ConfigPath,
		store:      store,
		kv:         opts.KV,
		client:     client,
		users:      users,
		media:      services.NewMediaService(client),
		gate:       gate.New(gateOpts),
		logger:     opts.Logger,
		output:     opts.Output,
	}
}

// OpenStorage opens the session backend selected by config.Session.StorageDriver.
//
// The returned close function releases the backend; kv is non-nil only for the sqlite driver.
func OpenStorage(ctx context.Context, config *shared.Config) (storage session.Storage, kv *repositories.KVRepository, closeFn func() error, err error) {
	switch config.Session.StorageDriver {
	case shared.StorageMemory:
		return session.NewMemoryStorage(), nil, func() error { return nil }, nil
	case shared.StorageRedis:
		client := repositories.NewRedisClient(config.Redis)
		rs := repositories.NewRedisStorage(client, config.Redis.Key)
		if err := rs.Ping(ctx); err != nil {
			rs.Close()
			return nil, nil, nil, err
		}
		return rs, nil, rs.Close, nil
	case shared.StorageSQLite, "":
		var db *sql.DB
		if db, err = shared.OpenDatabase(config.Database); err != nil {
			return nil, nil, nil, fmt.Errorf("%w: %v", shared.ErrStorage, err)
		}
		kv := repositories.NewKVRepository(db)
		return kv, kv, db.Close, nil
	default:
		return nil, nil, nil, fmt.Errorf("%w: unknown session.storage_driver %q", shared.ErrInvalidConfig, config.Session.StorageDriver)
	}
}

func (r *Runner) register() []*cli.Command {
	commands := []*cli.Command{}
	for _, fn := range [](func(*Runner) *cli.Command){
		setupCommand, authCommand, usersCommand, mediaCommand, exportCommand, apiCommand, sessionCommand, tuiCommand, serveCommand,
	} {
		commands = append(commands, fn(r))
	}

	return commands
}

// requireSession is the Before hook for commands that need a signed-in user.
func (r *Runner) requireSession(ctx context.Context, cmd *cli.Command) (context.Context, error) {
	return ctx, r.gate.Require(ctx)
}

// SetLogger rebuilds the runner's services so every component logs to l.
func (r *Runner) SetLogger(l *log.Logger) {
	opts := r.opts
	opts.Logger = l
	*r = *NewRunner(opts)
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	output, err := shared.MarshalJSON(data, pretty)
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(output); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}

	if _, err := r.output.Write([]byte("\n")); err != nil {
		return fmt.Errorf("failed to write newline: %w", err)
	}

	return nil
}

func (r *Runner) writePlain(format string, args ...any) error {
	text := fmt.Sprintf(format, args...)
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainln(format string, args ...any) error {
	text := "\n" + fmt.Sprintf(format, args...) + "\n"
	if _, err := r.output.Write([]byte(text)); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlainHeader(title string) {
	r.writePlain("═══════════════════════════════════════\n")
	r.writePlain("%v\n", title)
	r.writePlain("═══════════════════════════════════════\n")
}
