package profile

import (
	"time"

	"github.com/google/uuid"
)

// ResearchProfile contextualizes how research output should be framed.
// Integrating applications handle their own user management and map users
// to profiles as needed; the engine only reads literacy and preferences.
type ResearchProfile struct {
	ID                uuid.UUID         `db:"id" json:"id"`
	FinancialLiteracy FinancialLiteracy `db:"financial_literacy" json:"financial_literacy"`
	Preferences       map[string]string `db:"-" json:"preferences"`
	DisplayName       *string           `db:"display_name" json:"display_name,omitempty"`

	CreatedAt time.Time `db:"created_at" json:"created_at"`
	UpdatedAt time.Time `db:"updated_at" json:"updated_at"`
}

// FinancialLiteracy represents the reader's sophistication level
type FinancialLiteracy string

const (
	LiteracyBeginner     FinancialLiteracy = "beginner"
	LiteracyIntermediate FinancialLiteracy = "intermediate"
	LiteracyAdvanced     FinancialLiteracy = "advanced"
)

// Valid checks if literacy level is known
func (l FinancialLiteracy) Valid() bool {
	return l == LiteracyBeginner || l == LiteracyIntermediate || l == LiteracyAdvanced
}

// New creates a profile with beginner defaults
func New(literacy FinancialLiteracy, displayName string) *ResearchProfile {
	if !literacy.Valid() {
		literacy = LiteracyBeginner
	}

	var name *string
	if displayName != "" {
		name = &displayName
	}

	now := time.Now().UTC()
	return &ResearchProfile{
		ID:                uuid.New(),
		FinancialLiteracy: literacy,
		Preferences:       map[string]string{},
		DisplayName:       name,
		CreatedAt:         now,
		UpdatedAt:         now,
	}
}

// SetPreference stores one research preference
func (p *ResearchProfile) SetPreference(key, value string) {
	if p.Preferences == nil {
		p.Preferences = map[string]string{}
	}
	p.Preferences[key] = value
	p.UpdatedAt = time.Now().UTC()
}
