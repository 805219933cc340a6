// Package tasks runs the background work of the client with real-time progress reporting.
//
// # Session Refresh
//
// [Refresher] keeps the cached user profile fresh. On [Refresher.Start] it ticks once, then
// again every interval (15 minutes by default):
//
//  1. Not authenticated: the tick does nothing and makes no network call.
//  2. A previous tick is still in flight: the tick is skipped. Ticks never overlap.
//  3. Otherwise the profile is fetched and written to the session store.
//     Any failure, including an expired session, logs the user out.
//
// The stop function returned by Start cancels the loop and waits for it to exit.
//
// # Bulk Export
//
// [BulkExport] writes user and media collections to disk using a worker pool and a
// rate limiter, then writes a manifest summarizing the results.
//
// # Progress Reporting
//
// # All operations use non-blocking channels for progress updates
//
// The [ProgressUpdate] struct contains phase, step counters, messages, and optional data.
// Updates use select with default to prevent blocking.
package tasks
