// Package downloader talks to the external download client. The import job
// only ever consumes completed history entries and their storage paths; the
// queue views exist for the activity UI and cancellation.
package downloader

import "context"

// Job statuses as the import pipeline understands them.
const (
	StatusCompleted = "Completed"
	StatusFailed    = "Failed"
)

// Job is one queue or history entry, keyed by the downloader-assigned id
// that doubles as the Activity id.
type Job struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Status      string  `json:"status"`
	Percentage  float64 `json:"percentage"`
	StoragePath string  `json:"storage_path,omitempty"`
}

type Downloader interface {
	// Download enqueues an NZB payload and returns the job id.
	Download(ctx context.Context, nzb []byte, name string) (string, error)
	Queue(ctx context.Context) (map[string]Job, error)
	History(ctx context.Context) (map[string]Job, error)
	RemoveFromQueue(ctx context.Context, id string) error
	RemoveFromHistory(ctx context.Context, id string) error
	// CategoryDir is the shared completed-download root for our category.
	// The import transaction must never delete it.
	CategoryDir(ctx context.Context) (string, error)
}
