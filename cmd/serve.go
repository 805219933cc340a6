package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediadesk/internal/server"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
)

// Serve runs the web dashboard with the session refresher until interrupted.
func (r *Runner) Serve(ctx context.Context, cmd *cli.Command) error {
	addr := cmd.String("addr")
	if addr == "" {
		addr = r.config.Server.Addr()
	}

	logger := shared.WithLogger(r.logger, "component", "server")
	dashboard, err := server.NewDashboard(server.DashboardOpts{
		Store:    r.store,
		Gate:     r.gate,
		Accounts: r.users,
		Logger:   logger,
	})
	if err != nil {
		return err
	}

	router := server.NewBasicRouter()
	router.Use(server.Logging(logger))
	dashboard.Register(router)

	refresher := tasks.NewRefresher(tasks.RefresherOpts{
		Store:    r.store,
		Fetcher:  r.users,
		Interval: r.config.Session.RefreshInterval,
		Logger:   shared.WithLogger(r.logger, "component", "refresher"),
	})
	stop := refresher.Start(ctx)
	defer stop()

	url := "http://" + addr
	r.writePlain("Dashboard at %s\n", url)
	if cmd.Bool("open") {
		if err := shared.OpenBrowser(url); err != nil {
			r.logger.Warn("could not open browser", "error", err)
		}
	}
	if err := server.Run(ctx, addr, router, logger); err != nil {
		return fmt.Errorf("dashboard stopped: %w", err)
	}
	return nil
}
