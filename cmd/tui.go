package main

import (
	"context"
	"fmt"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
	"github.com/desertthunder/mediadesk/internal/ui"
)

// TUI launches the interactive terminal dashboard.
func (r *Runner) TUI(ctx context.Context, cmd *cli.Command) error {
	// Redirect logs to file to avoid interfering with TUI rendering
	fileLogger, err := shared.NewFileLogger(cmd.String("log-file"))
	if err != nil {
		return fmt.Errorf("failed to create file logger: %w", err)
	}
	r.SetLogger(fileLogger)

	progress := make(chan tasks.ProgressUpdate, 16)
	refresher := tasks.NewRefresher(tasks.RefresherOpts{
		Store:    r.store,
		Fetcher:  r.users,
		Interval: r.config.Session.RefreshInterval,
		Logger:   shared.WithLogger(fileLogger, "component", "refresher"),
		Progress: progress,
	})

	model := ui.NewModel(ctx, ui.Options{
		Store:     r.store,
		Gate:      r.gate,
		Accounts:  r.users,
		Refresher: refresher,
		Progress:  progress,
	})
	defer model.Close()

	p := tea.NewProgram(model, tea.WithAltScreen(), tea.WithContext(ctx))
	if _, err := p.Run(); err != nil {
		return fmt.Errorf("error running TUI: %w", err)
	}

	return nil
}
