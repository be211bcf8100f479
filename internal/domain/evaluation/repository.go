package evaluation

import "context"

// Repository persists evaluation runs.
type Repository interface {
	// Save writes the run, replacing any earlier copy with the same ID.
	Save(ctx context.Context, run *Run) error

	// FindByID loads a run. Unknown IDs yield errors.ErrRunNotFound.
	FindByID(ctx context.Context, id string) (*Run, error)

	// List returns the IDs of all stored runs, oldest first.
	List(ctx context.Context) ([]string, error)
}
