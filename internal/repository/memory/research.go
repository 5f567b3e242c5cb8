// Package memory provides map-backed repositories. They serve tests and
// development runs without postgres; every read and write copies the entity
// so callers never alias the stored state.
package memory

import (
	"context"
	"sort"
	"sync"

	"github.com/google/uuid"

	"minerva/internal/domain/research"
	"minerva/pkg/errors"
)

// ResearchRepository is an in-memory research store.
type ResearchRepository struct {
	mu    sync.RWMutex
	items map[uuid.UUID]*research.Research
}

var _ research.Repository = (*ResearchRepository)(nil)

// NewResearchRepository creates an empty store.
func NewResearchRepository() *ResearchRepository {
	return &ResearchRepository{items: map[uuid.UUID]*research.Research{}}
}

// GetByID retrieves a research by ID.
func (r *ResearchRepository) GetByID(_ context.Context, id uuid.UUID) (*research.Research, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	res, ok := r.items[id]
	if !ok {
		return nil, errors.Wrapf(errors.ErrResearchNotFound, "research %s", id)
	}
	return copyResearch(res), nil
}

// Save inserts or updates a research.
func (r *ResearchRepository) Save(_ context.Context, res *research.Research) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[res.ID] = copyResearch(res)
	return nil
}

// Delete removes a research.
func (r *ResearchRepository) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.items[id]; !ok {
		return errors.Wrapf(errors.ErrResearchNotFound, "research %s", id)
	}
	delete(r.items, id)
	return nil
}

// List retrieves all research records, newest first.
func (r *ResearchRepository) List(_ context.Context) ([]*research.Research, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*research.Research, 0, len(r.items))
	for _, res := range r.items {
		out = append(out, copyResearch(res))
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out, nil
}

// ListByStatus retrieves up to limit research records in the given state,
// oldest first. limit <= 0 means no limit.
func (r *ResearchRepository) ListByStatus(_ context.Context, status research.Status, limit int) ([]*research.Research, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*research.Research, 0)
	for _, res := range r.items {
		if res.Status == status {
			out = append(out, copyResearch(res))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		return out[i].CreatedAt.Before(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func copyResearch(src *research.Research) *research.Research {
	dst := *src
	if src.Parameters != nil {
		dst.Parameters = make(map[string]string, len(src.Parameters))
		for k, v := range src.Parameters {
			dst.Parameters[k] = v
		}
	}
	if src.Results != nil {
		dst.Results = make(map[string]interface{}, len(src.Results))
		for k, v := range src.Results {
			dst.Results[k] = v
		}
	}
	if src.ErrorMessage != nil {
		msg := *src.ErrorMessage
		dst.ErrorMessage = &msg
	}
	if src.ProfileID != nil {
		id := *src.ProfileID
		dst.ProfileID = &id
	}
	return &dst
}
