package triage

import "context"

// Repository port (interface untuk persistence)
type Repository interface {
	Save(ctx context.Context, e *Entry) error
	Get(ctx context.Context, tenant string, id EntryID) (*Entry, error)

	// FindActiveBySubject returns the subject's open/acknowledged entry,
	// or nil when the subject has no active window.
	FindActiveBySubject(ctx context.Context, tenant, subject string) (*Entry, error)

	// ListActive returns open/acknowledged entries ordered by tier desc,
	// then creation time asc.
	ListActive(ctx context.Context, tenant string, limit int) ([]*Entry, error)

	UpdateStatus(ctx context.Context, tenant string, id EntryID, status Status) error
}
