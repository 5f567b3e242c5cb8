package postgres

import (
	"context"
	"database/sql"
	"encoding/json"

	"github.com/google/uuid"

	"minerva/internal/domain/research"
	"minerva/pkg/errors"
)

// Compile-time check that we implement the interface
var _ research.Repository = (*ResearchRepository)(nil)

const researchColumns = `id, stock_symbol, timeframe, profile_id, status, workflow_type,
	       parameters, results, error_message, created_at, updated_at`

// ResearchRepository implements research.Repository using sqlx
type ResearchRepository struct {
	db DBTX
}

// NewResearchRepository creates a new research repository
func NewResearchRepository(db DBTX) *ResearchRepository {
	return &ResearchRepository{db: db}
}

// GetByID retrieves a research by ID
func (r *ResearchRepository) GetByID(ctx context.Context, id uuid.UUID) (*research.Research, error) {
	query := `
		SELECT ` + researchColumns + `
		FROM researches
		WHERE id = $1`

	row := r.db.QueryRowContext(ctx, query, id)
	res, err := scanResearch(row.Scan)
	if err == sql.ErrNoRows {
		return nil, errors.Wrapf(errors.ErrResearchNotFound, "research %s", id)
	}
	if err != nil {
		return nil, errors.Wrap(err, "get research")
	}

	return res, nil
}

// Save inserts or updates a research
func (r *ResearchRepository) Save(ctx context.Context, res *research.Research) error {
	parametersJSON, err := json.Marshal(res.Parameters)
	if err != nil {
		return errors.Wrap(err, "marshal research parameters")
	}

	// Results stay NULL until the research has run
	var resultsJSON []byte
	if res.Results != nil {
		resultsJSON, err = json.Marshal(res.Results)
		if err != nil {
			return errors.Wrap(err, "marshal research results")
		}
	}

	query := `
		INSERT INTO researches (
			id, stock_symbol, timeframe, profile_id, status, workflow_type,
			parameters, results, error_message, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (id) DO UPDATE SET
			stock_symbol = $2,
			timeframe = $3,
			profile_id = $4,
			status = $5,
			workflow_type = $6,
			parameters = $7,
			results = $8,
			error_message = $9,
			updated_at = $11`

	_, err = r.db.ExecContext(ctx, query,
		res.ID, res.StockSymbol, res.Timeframe, res.ProfileID, res.Status, res.WorkflowType,
		parametersJSON, resultsJSON, res.ErrorMessage, res.CreatedAt, res.UpdatedAt,
	)
	if err != nil {
		return errors.Wrap(err, "save research")
	}

	return nil
}

// Delete removes a research
func (r *ResearchRepository) Delete(ctx context.Context, id uuid.UUID) error {
	query := `DELETE FROM researches WHERE id = $1`

	result, err := r.db.ExecContext(ctx, query, id)
	if err != nil {
		return errors.Wrap(err, "delete research")
	}

	affected, err := result.RowsAffected()
	if err != nil {
		return errors.Wrap(err, "delete research")
	}
	if affected == 0 {
		return errors.Wrapf(errors.ErrResearchNotFound, "research %s", id)
	}

	return nil
}

// List retrieves all research records, newest first
func (r *ResearchRepository) List(ctx context.Context) ([]*research.Research, error) {
	query := `
		SELECT ` + researchColumns + `
		FROM researches
		ORDER BY created_at DESC`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, errors.Wrap(err, "list researches")
	}
	defer rows.Close()

	return collectResearches(rows)
}

// ListByStatus retrieves up to limit research records in the given state,
// oldest first so the execution poller processes the backlog in order.
func (r *ResearchRepository) ListByStatus(ctx context.Context, status research.Status, limit int) ([]*research.Research, error) {
	query := `
		SELECT ` + researchColumns + `
		FROM researches
		WHERE status = $1
		ORDER BY created_at ASC`
	args := []interface{}{status}

	if limit > 0 {
		query += ` LIMIT $2`
		args = append(args, limit)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, errors.Wrap(err, "list researches by status")
	}
	defer rows.Close()

	return collectResearches(rows)
}

func collectResearches(rows *sql.Rows) ([]*research.Research, error) {
	var researches []*research.Research
	for rows.Next() {
		res, err := scanResearch(rows.Scan)
		if err != nil {
			return nil, errors.Wrap(err, "scan research")
		}
		researches = append(researches, res)
	}
	return researches, rows.Err()
}

func scanResearch(scan func(dest ...interface{}) error) (*research.Research, error) {
	var res research.Research
	var parametersJSON, resultsJSON []byte

	err := scan(
		&res.ID, &res.StockSymbol, &res.Timeframe, &res.ProfileID, &res.Status, &res.WorkflowType,
		&parametersJSON, &resultsJSON, &res.ErrorMessage, &res.CreatedAt, &res.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	res.Parameters = map[string]string{}
	if len(parametersJSON) > 0 {
		if err := json.Unmarshal(parametersJSON, &res.Parameters); err != nil {
			return nil, errors.Wrap(err, "unmarshal research parameters")
		}
	}
	if len(resultsJSON) > 0 {
		if err := json.Unmarshal(resultsJSON, &res.Results); err != nil {
			return nil, errors.Wrap(err, "unmarshal research results")
		}
	}

	return &res, nil
}
