package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/mediadesk/internal/services"
	"github.com/desertthunder/mediadesk/internal/shared"
	"github.com/desertthunder/mediadesk/internal/tasks"
)

// Export writes the selected collections to disk with a manifest.
func (r *Runner) Export(ctx context.Context, cmd *cli.Command) error {
	var collections []tasks.Collection
	for _, name := range cmd.StringSlice("collection") {
		c, ok := tasks.ParseCollection(name)
		if !ok {
			return fmt.Errorf("%w: unknown collection %q", shared.ErrInvalidFlag, name)
		}
		collections = append(collections, c)
	}

	opts := tasks.BulkExportOpts{
		Format:     cmd.String("format"),
		OutputDir:  cmd.String("output"),
		NumWorkers: int(cmd.Int("workers")),
		RateLimit:  cmd.Float("rate"),
	}

	progressCh := make(chan tasks.ProgressUpdate, 50)
	done := make(chan struct{})
	go func() {
		defer close(done)
		for update := range progressCh {
			switch update.Phase {
			case tasks.FetchCollection:
				r.writePlain("📥 %s\n", update.Message)
			case tasks.ExportCollection:
				r.writePlain("   %s\n", update.Message)
			}
		}
	}()

	catalog := services.NewCatalog(r.users, r.media)
	result, err := tasks.BulkExport(ctx, progressCh, catalog, collections, opts)
	close(progressCh)
	<-done

	if result == nil {
		return err
	}

	r.writePlain("\n")
	r.writePlainHeader("Export Complete")
	r.writePlain("Directory: %s\n", result.OutputDirectory)
	r.writePlain("Succeeded: %d/%d\n", result.SuccessfulExports, result.TotalCollections)
	if result.ManifestPath != "" {
		r.writePlain("Manifest: %s\n", result.ManifestPath)
	}

	if result.FailedExports > 0 {
		r.writePlain("\nFailed collections:\n")
		for _, res := range result.Results {
			if !res.Success {
				r.writePlain("  - %s: %v\n", res.Collection, res.Error)
			}
		}
	}

	return err
}
