package research

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines operations for research persistence
type Repository interface {
	// GetByID retrieves a research by ID
	GetByID(ctx context.Context, id uuid.UUID) (*Research, error)

	// Save inserts or updates a research
	Save(ctx context.Context, research *Research) error

	// Delete removes a research
	Delete(ctx context.Context, id uuid.UUID) error

	// List retrieves all research records, newest first
	List(ctx context.Context) ([]*Research, error)

	// ListByStatus retrieves up to limit research records in the given state,
	// oldest first. Used by the background execution poller.
	ListByStatus(ctx context.Context, status Status, limit int) ([]*Research, error)
}
