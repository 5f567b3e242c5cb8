package api

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/domain/profile"
)

func TestProfileAPI_CreateGetListDelete(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/profiles", map[string]interface{}{
		"financial_literacy": "advanced",
		"display_name":       "Dana",
		"preferences":        map[string]string{"focus": "dividends"},
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created profile.ResearchProfile
	decodeBody(t, rec, &created)
	assert.Equal(t, profile.LiteracyAdvanced, created.FinancialLiteracy)
	assert.Equal(t, "dividends", created.Preferences["focus"])

	rec = doJSON(t, mux, http.MethodGet, "/profiles/"+created.ID.String(), nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var fetched profile.ResearchProfile
	decodeBody(t, rec, &fetched)
	assert.Equal(t, created.ID, fetched.ID)

	rec = doJSON(t, mux, http.MethodGet, "/profiles", nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listResp struct {
		Profiles []*profile.ResearchProfile `json:"profiles"`
		Count    int                        `json:"count"`
	}
	decodeBody(t, rec, &listResp)
	assert.Equal(t, 1, listResp.Count)

	rec = doJSON(t, mux, http.MethodDelete, "/profiles/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNoContent, rec.Code)

	rec = doJSON(t, mux, http.MethodGet, "/profiles/"+created.ID.String(), nil)
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestProfileAPI_UnknownLiteracyFallsBack(t *testing.T) {
	mux, _, _ := newTestMux(t)

	rec := doJSON(t, mux, http.MethodPost, "/profiles", map[string]interface{}{
		"financial_literacy": "wizard",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	var created profile.ResearchProfile
	decodeBody(t, rec, &created)
	assert.Equal(t, profile.LiteracyBeginner, created.FinancialLiteracy)
}
