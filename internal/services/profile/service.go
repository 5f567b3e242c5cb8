// Package profile manages the reader profiles that tailor research output.
package profile

import (
	"context"

	"github.com/google/uuid"

	"minerva/internal/domain/profile"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

// Service manages research profile lifecycle.
type Service struct {
	profiles profile.Repository
	log      *logger.Logger
}

// NewService wires the profile service.
func NewService(profiles profile.Repository, log *logger.Logger) *Service {
	return &Service{
		profiles: profiles,
		log:      log,
	}
}

// CreateParams carries a new profile request. An unknown literacy level
// falls back to beginner rather than failing the request.
type CreateParams struct {
	FinancialLiteracy string
	DisplayName       string
	Preferences       map[string]string
}

// Create persists a new research profile.
func (s *Service) Create(ctx context.Context, params CreateParams) (*profile.ResearchProfile, error) {
	p := profile.New(profile.FinancialLiteracy(params.FinancialLiteracy), params.DisplayName)
	for key, value := range params.Preferences {
		p.SetPreference(key, value)
	}

	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, errors.Wrap(err, "save profile")
	}

	s.log.Infow("Profile created",
		"profile_id", p.ID,
		"literacy", p.FinancialLiteracy,
	)

	return p, nil
}

// Get returns one profile by id.
func (s *Service) Get(ctx context.Context, id uuid.UUID) (*profile.ResearchProfile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get profile %s", id)
	}
	return p, nil
}

// List returns all profiles.
func (s *Service) List(ctx context.Context) ([]*profile.ResearchProfile, error) {
	profiles, err := s.profiles.List(ctx)
	if err != nil {
		return nil, errors.Wrap(err, "list profiles")
	}
	return profiles, nil
}

// SetPreference updates a single preference on an existing profile.
func (s *Service) SetPreference(ctx context.Context, id uuid.UUID, key, value string) (*profile.ResearchProfile, error) {
	p, err := s.profiles.GetByID(ctx, id)
	if err != nil {
		return nil, errors.Wrapf(err, "get profile %s", id)
	}

	p.SetPreference(key, value)
	if err := s.profiles.Save(ctx, p); err != nil {
		return nil, errors.Wrap(err, "save profile")
	}

	return p, nil
}

// Delete removes a profile. Research rows keep their profile_id; execution
// tolerates a missing profile and falls back to defaults.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.profiles.Delete(ctx, id); err != nil {
		return errors.Wrapf(err, "delete profile %s", id)
	}

	s.log.Infow("Profile deleted", "profile_id", id)
	return nil
}
