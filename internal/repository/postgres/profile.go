package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"minerva/internal/domain/profile"
	"minerva/pkg/errors"
)

// Compile-time check that we implement the interface
var _ profile.Repository = (*ProfileRepository)(nil)

// ProfileRepository implements profile.Repository using sqlx
type ProfileRepository struct {
	db DBTX
}

// NewProfileRepository creates a new research profile repository
func NewProfileRepository(db DBTX) *ProfileRepository {
	return &ProfileRepository{db: db}
}

// GetByID retrieves a profile by ID
func (r *ProfileRepository) GetByID(ctx context.Context, id uuid.UUID) (*profile.ResearchProfile, error) {
	query := `
		SELECT id, financial_literacy, preferences, display_name, created_at, updated_at
		FROM research_profiles
		WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	p, err := scanProfile(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrProfileNotFound, "profile %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get profile")
	}

	return p, nil
}

// Save inserts or updates a profile
func (r *ProfileRepository) Save(ctx context.Context, p *profile.ResearchProfile) error {
	preferencesJSON, err := json.Marshal(p.Preferences)
	if err != nil {
		return errors.Wrap(err, "marshal profile preferences")
	}

	query := `
		INSERT INTO research_profiles (
			id, financial_literacy, preferences, display_name, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6
		)
		ON CONFLICT (id) DO UPDATE SET
			financial_literacy = $2,
			preferences = $3,
			display_name = $4,
			updated_at = $6`

	_, err = r.db.ExecContext(ctx, query,
		p.ID, p.FinancialLiteracy, preferencesJSON, p.DisplayName, p.CreatedAt, p.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "save profile")
	}

	return nil
}

// Delete removes a profile
func (r *ProfileRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM research_profiles WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "delete profile")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete profile")
	}
	if affected == 0 {
		return errors.Wrapf(errors.ErrProfileNotFound, "profile %s", id)
	}

	return nil
}

// List retrieves all profiles, newest first
func (r *ProfileRepository) List(ctx context.Context) ([]*profile.ResearchProfile, error) {
	query := `
		SELECT id, financial_literacy, preferences, display_name, created_at, updated_at
		FROM research_profiles
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "list profiles")
	}
	defer rows.Close()

	var profiles []*profile.ResearchProfile
	for rows.Next() {
		p, err := scanProfile(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(err, "scan profile")
		}
		profiles = append(profiles, p)
	}

	return profiles, rows.Err()
}

func scanProfile(scan func(dest ...interface{}) error) (*profile.ResearchProfile, error) {
	var p profile.ResearchProfile
	var preferencesJSON []byte

	err := scan(
		&p.ID, &p.FinancialLiteracy, &preferencesJSON, &p.DisplayName, &p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	p.Preferences = map[string]string{}
	if len(preferencesJSON) > 0 {
		if err := json.Unmarshal(preferencesJSON, &p.Preferences); err != nil {
			return nil, errors.Wrap(err, "unmarshal profile preferences")
		}
	}

	return &p, nil
}
