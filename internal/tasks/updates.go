package tasks

import (
	"fmt"
)

// ProgressUpdate represents a progress event during a long-running operation.
//
// Used to send real-time updates to the CLI or UI layer for display.
type ProgressUpdate struct {
	Phase   Phase  // Operation phase
	Step    int    // Current step number within phase
	Total   int    // Total steps in this phase
	Message string // Human-readable message for display
	Data    any    // Optional phase-specific data for advanced UIs
}

// Operation phase enumeration
type Phase int

const (
	RefreshSession Phase = iota
	Logout
	FetchCollection
	ExportCollection
)

func (p Phase) String() string {
	switch p {
	case RefreshSession:
		return "refresh_session"
	case Logout:
		return "logout"
	case FetchCollection:
		return "fetch_collection"
	case ExportCollection:
		return "export_collection"
	default:
		return ""
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

func refreshedUpdate(outcome TickOutcome, email string) ProgressUpdate {
	return ProgressUpdate{
		Phase:   RefreshSession,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Session refreshed (%s)", email),
		Data:    outcome,
	}
}

func loggedOutUpdate(outcome TickOutcome, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   Logout,
		Step:    1,
		Total:   1,
		Message: fmt.Sprintf("Logged out: %v", err),
		Data:    outcome,
	}
}

func fetchCollectionUpdate(step, total int, c Collection) ProgressUpdate {
	return ProgressUpdate{
		Phase:   FetchCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] Fetching %s...", step, total, c),
	}
}

func exportCompletedUpdate(step, total int, c Collection, records int) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✓ %s (%d records)", step, total, c, records),
	}
}

func exportFailedUpdate(step, total int, c Collection, err error) ProgressUpdate {
	return ProgressUpdate{
		Phase:   ExportCollection,
		Step:    step,
		Total:   total,
		Message: fmt.Sprintf("[%d/%d] ✗ %s: %v", step, total, c, err),
	}
}
