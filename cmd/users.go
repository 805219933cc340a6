package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediadesk/internal/formatter"
	"github.com/desertthunder/mediadesk/internal/models"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// render writes t to stdout, or to a file when --output is set.
func (r *Runner) render(cmd *cli.Command, t *formatter.Table, raw any) error {
	format := cmd.String("format")
	if out := cmd.String("output"); out != "" {
		path, err := formatter.WriteExport(t, raw, format, out)
		if err != nil {
			return err
		}
		r.logger.Info("wrote output", "path", path, "rows", t.Len())
		return r.writePlain("✓ %d %s written to %s\n", t.Len(), t.Name, path)
	}
	return formatter.Render(r.output, t, raw, format)
}

// UsersList lists accounts.
func (r *Runner) UsersList(ctx context.Context, cmd *cli.Command) error {
	users, err := r.users.List(ctx)
	if err != nil {
		return err
	}
	return r.render(cmd, formatter.UsersTable(users), users)
}

// UsersAdd registers a new account.
func (r *Runner) UsersAdd(ctx context.Context, cmd *cli.Command) error {
	u := models.NewUser{
		FirstName:  cmd.String("first-name"),
		LastName:   cmd.String("last-name"),
		Email:      cmd.String("email"),
		Username:   cmd.String("username"),
		Password:   cmd.String("password"),
		Role:       cmd.String("role"),
		Bio:        cmd.String("bio"),
		Website:    cmd.String("website"),
		AvatarPath: cmd.String("avatar"),
	}

	created, err := r.users.Register(ctx, u)
	if err != nil {
		return err
	}

	r.logger.Info("user registered", "id", created.ID)
	return r.writePlain("✓ Registered %s <%s> (%s)\n", created.FullName(), created.Email, created.ID)
}

// UsersDelete deletes an account by ID.
func (r *Runner) UsersDelete(ctx context.Context, cmd *cli.Command) error {
	id := cmd.StringArg("id")
	if id == "" {
		return fmt.Errorf("%w: user id", shared.ErrMissingArgument)
	}

	if err := r.users.Delete(ctx, id); err != nil {
		return err
	}
	return r.writePlain("✓ Deleted user %s\n", id)
}

// UsersAvatar downloads the signed-in user's avatar.
func (r *Runner) UsersAvatar(ctx context.Context, cmd *cli.Command) error {
	u, err := r.users.Profile(ctx)
	if err != nil {
		return err
	}

	url, err := r.users.AvatarURL(u)
	if err != nil {
		return err
	}
	if url == "" {
		return fmt.Errorf("%w: %s has no avatar", shared.ErrInvalidInput, u.Email)
	}

	data, err := formatter.DownloadImage(url)
	if err != nil {
		return err
	}

	dest := cmd.String("output")
	if err := os.MkdirAll(filepath.Dir(dest), 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}
	if err := os.WriteFile(dest, data, 0644); err != nil {
		return fmt.Errorf("failed to write avatar: %w", err)
	}

	r.logger.Info("avatar saved", "path", dest, "bytes", len(data))
	return r.writePlain("✓ Avatar saved to %s\n", dest)
}
