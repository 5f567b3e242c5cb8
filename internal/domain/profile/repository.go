package profile

import (
	"context"

	"github.com/google/uuid"
)

// Repository defines operations for research profile persistence
type Repository interface {
	// GetByID retrieves a profile by ID
	GetByID(ctx context.Context, id uuid.UUID) (*ResearchProfile, error)

	// Save inserts or updates a profile
	Save(ctx context.Context, profile *ResearchProfile) error

	// Delete removes a profile
	Delete(ctx context.Context, id uuid.UUID) error

	// List retrieves all profiles
	List(ctx context.Context) ([]*ResearchProfile, error)
}
