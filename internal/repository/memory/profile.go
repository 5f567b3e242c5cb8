package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"minerva/internal/domain/profile"
	"minerva/pkg/errors"
)

// ProfileRepository is an in-memory research profile store.
type ProfileRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*profile.ResearchProfile
}

var _ profile.Repository = (*ProfileRepository)(nil)

// NewProfileRepository creates an empty store.
func NewProfileRepository() *ProfileRepository {
	return &ProfileRepository{items: map[uuid.UUID]*profile.ResearchProfile{}}
}

// GetByID retrieves a profile by ID.
func (r *ProfileRepository) GetByID(_ context.Context, id uuid.UUID) (*profile.ResearchProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	prof, ok := r.items[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrProfileNotFound, "profile %s", id)
	}
	return copyProfile(prof), nil
}

// Save inserts or updates a profile.
func (r *ProfileRepository) Save(_ context.Context, prof *profile.ResearchProfile) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[prof.ID] = copyProfile(prof)
	return nil
}

// Delete removes a profile.
func (r *ProfileRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return errors.Wrapf(errors.ErrProfileNotFound, "profile %s", id)
	}
	delete(r.items, id)
	return nil
}

// List retrieves all profiles, newest first.
func (r *ProfileRepository) List(_ context.Context) ([]*profile.ResearchProfile, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*profile.ResearchProfile, 0, len(r.items))
	for _, prof := range r.items {
		out = append(out, copyProfile(prof))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

func copyProfile(src *profile.ResearchProfile) *profile.ResearchProfile {
	dst := *src
	if src.Preferences != nil {
		dst.Preferences = make(map[string]string, len(src.Preferences))
		for k, v := range src.Preferences {
			dst.Preferences[k] = v
		}
	}
	if src.DisplayName != nil {
		name := *src.DisplayName
		dst.DisplayName = &name
	}
	return &dst
}
