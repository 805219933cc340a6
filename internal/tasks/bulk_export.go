package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/mediadesk/internal/formatter"
	"github.com/desertthunder/mediadesk/internal/shared"
)

// BulkExportOpts contains configuration for bulk exports.
type BulkExportOpts struct {
	Format     string  // Export format: json, csv, markdown, txt
	OutputDir  string  // Base output directory (default: mediadesk_export_{epoch})
	NumWorkers int     // Concurrent workers (default: 3)
	RateLimit  float64 // Requests per second (default: 5)
}

// CollectionExportResult is the outcome of exporting one collection.
type CollectionExportResult struct {
	Collection Collection
	Records    int
	Files      []string
	Success    bool
	Error      error
}

// BulkExportResult summarizes a [BulkExport] run.
type BulkExportResult struct {
	TotalCollections  int
	SuccessfulExports int
	FailedExports     int
	OutputDirectory   string
	ManifestPath      string
	Results           []CollectionExportResult
}

// Manifest converts r into the manifest written next to the exported files.
func (r *BulkExportResult) Manifest(format string) *formatter.Manifest {
	m := &formatter.Manifest{
		Format:          format,
		OutputDirectory: r.OutputDirectory,
		Total:           r.TotalCollections,
		Successful:      r.SuccessfulExports,
		Failed:          r.FailedExports,
		CreatedAt:       time.Now().UTC(),
		Entries:         make([]formatter.ManifestEntry, 0, len(r.Results)),
	}
	for _, res := range r.Results {
		entry := formatter.ManifestEntry{
			Collection: string(res.Collection),
			Records:    res.Records,
			Files:      res.Files,
			Success:    res.Success,
		}
		if res.Error != nil {
			entry.Error = res.Error.Error()
		}
		m.Entries = append(m.Entries, entry)
	}
	return m
}

type exportJob struct {
	collection Collection
	table      *formatter.Table
	raw        any
}

// BulkExport exports collections concurrently with rate limiting and progress tracking.
//
// Fetches are issued sequentially through the limiter; writes fan out to a worker pool.
// Partial failures are recorded per collection and the manifest is always written.
func BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	src Source,
	collections []Collection,
	opts BulkExportOpts,
) (*BulkExportResult, error) {
	if src == nil {
		return nil, fmt.Errorf("%w: export source not initialized", shared.ErrServiceUnavailable)
	}
	if len(collections) == 0 {
		collections = Collections()
	}

	if opts.Format == "" {
		opts.Format = formatter.FormatJSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("mediadesk_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = 3
	}
	if opts.NumWorkers > 10 {
		opts.NumWorkers = 10
	}
	if opts.RateLimit <= 0 {
		opts.RateLimit = 5.0
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(collections)
	result := &BulkExportResult{
		TotalCollections: total,
		OutputDirectory:  opts.OutputDir,
		Results:          make([]CollectionExportResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)

	jobs := make(chan exportJob, total)
	results := make(chan CollectionExportResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, c := range collections {
			select {
			case <-ctx.Done():
				return
			default:
			}

			if err := limiter.Wait(ctx); err != nil {
				return
			}

			sendProgress(prog, fetchCollectionUpdate(i+1, total, c))

			table, raw, err := fetchCollection(ctx, src, c)
			if err != nil {
				results <- CollectionExportResult{
					Collection: c,
					Error:      fmt.Errorf("failed to fetch %s: %w", c, err),
				}
				continue
			}
			jobs <- exportJob{collection: c, table: table, raw: raw}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			sendProgress(prog, exportCompletedUpdate(completed, total, res.Collection, res.Records))
		} else {
			result.FailedExports++
			sendProgress(prog, exportFailedUpdate(completed, total, res.Collection, res.Error))
		}
	}

	manifestPath := filepath.Join(opts.OutputDir, "export_manifest.json")
	if err := formatter.WriteManifest(result.Manifest(opts.Format), manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath

	if err := ctx.Err(); err != nil {
		return result, err
	}
	return result, nil
}

// exportWorker is a worker goroutine that writes collections from the jobs channel.
func exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- CollectionExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		select {
		case <-ctx.Done():
			return
		default:
		}

		results <- exportCollection(job, opts)
	}
}

func exportCollection(j exportJob, opts BulkExportOpts) CollectionExportResult {
	result := CollectionExportResult{
		Collection: j.collection,
		Records:    j.table.Len(),
		Files:      []string{},
	}

	base := filepath.Join(opts.OutputDir, string(j.collection))
	path, err := formatter.WriteExport(j.table, j.raw, opts.Format, base)
	if err != nil {
		result.Error = fmt.Errorf("%s export failed: %w", opts.Format, err)
		return result
	}

	result.Files = []string{path}
	result.Success = true
	return result
}

func fetchCollection(ctx context.Context, src Source, c Collection) (*formatter.Table, any, error) {
	switch c {
	case Users:
		v, err := src.ListUsers(ctx)
		return formatter.UsersTable(v), v, err
	case Music:
		v, err := src.ListMusic(ctx)
		return formatter.MusicTable(v), v, err
	case Videos:
		v, err := src.ListVideos(ctx)
		return formatter.VideosTable(v), v, err
	case Livestreams:
		v, err := src.ListLivestreams(ctx)
		return formatter.LivestreamsTable(v), v, err
	case Donations:
		v, err := src.ListDonations(ctx)
		return formatter.DonationsTable(v), v, err
	default:
		return nil, nil, fmt.Errorf("%w: unknown collection %q", shared.ErrInvalidArgument, c)
	}
}
