package main

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediadesk/internal/api"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// APIGet makes an authenticated GET request and prints the JSON response.
func (r *Runner) APIGet(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}

	r.logger.Info("GET request", "path", path)

	resp, err := r.client.Get(ctx, path, nil)
	if err != nil {
		return err
	}
	return r.writeBody(resp, cmd.Bool("pretty"))
}

// APIPost makes an authenticated POST request with a JSON body.
func (r *Runner) APIPost(ctx context.Context, cmd *cli.Command) error {
	path := cmd.StringArg("path")
	data := cmd.String("data")

	if path == "" {
		return fmt.Errorf("%w: path", shared.ErrMissingArgument)
	}
	if data == "" {
		return fmt.Errorf("%w: --data flag is required", shared.ErrMissingArgument)
	}
	if err := shared.ValidateJSON([]byte(data)); err != nil {
		return fmt.Errorf("%w: data is not valid JSON", err)
	}

	r.logger.Info("POST request", "path", path)

	resp, err := r.client.Post(ctx, path, json.RawMessage(data))
	if err != nil {
		return err
	}
	return r.writeBody(resp, true)
}

// writeBody prints a JSON body re-encoded, or the raw body when it is not JSON.
func (r *Runner) writeBody(resp *api.Response, pretty bool) error {
	if len(resp.Body) == 0 {
		return r.writePlain("(%d, empty body)\n", resp.StatusCode)
	}

	var v any
	if err := json.Unmarshal(resp.Body, &v); err != nil {
		if _, err := r.output.Write(resp.Body); err != nil {
			return fmt.Errorf("failed to write output: %w", err)
		}
		return r.writePlain("\n")
	}
	return r.writeJSON(v, pretty)
}
