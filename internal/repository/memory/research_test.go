package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/domain/profile"
	"minerva/internal/domain/research"
	"minerva/pkg/errors"
)

func newPending(t *testing.T, symbol string) *research.Research {
	t.Helper()
	res, err := research.New(symbol, research.TimeframeShort, "static", nil)
	require.NoError(t, err)
	return res
}

func TestResearchRepositoryRoundTrip(t *testing.T) {
	repo := NewResearchRepository()
	ctx := context.Background()

	res := newPending(t, "AAPL")
	res.SetParameter("question", "Is it overvalued?")
	require.NoError(t, repo.Save(ctx, res))

	loaded, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, res.ID, loaded.ID)
	assert.Equal(t, "AAPL", loaded.StockSymbol)
	assert.Equal(t, research.StatusPending, loaded.Status)
	assert.Equal(t, "Is it overvalued?", loaded.Question())

	loaded.Complete(map[string]interface{}{"status": "completed"})
	require.NoError(t, repo.Save(ctx, loaded))

	reloaded, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, research.StatusCompleted, reloaded.Status)
	assert.Equal(t, "completed", reloaded.Results["status"])
}

func TestResearchRepositoryUnknownID(t *testing.T) {
	repo := NewResearchRepository()

	_, err := repo.GetByID(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, errors.ErrResearchNotFound))

	err = repo.Delete(context.Background(), uuid.New())
	assert.True(t, errors.Is(err, errors.ErrResearchNotFound))
}

func TestResearchRepositoryCopiesOnReadAndWrite(t *testing.T) {
	repo := NewResearchRepository()
	ctx := context.Background()

	res := newPending(t, "AAPL")
	require.NoError(t, repo.Save(ctx, res))

	// Mutating the caller's entity after Save must not leak into the store.
	res.StockSymbol = "MSFT"
	res.SetParameter("question", "changed?")

	stored, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, "AAPL", stored.StockSymbol)
	assert.Empty(t, stored.Question())

	// Mutating a loaded entity must not change the store either.
	stored.Fail("broken")
	again, err := repo.GetByID(ctx, res.ID)
	require.NoError(t, err)
	assert.Equal(t, research.StatusPending, again.Status)
	assert.Nil(t, again.ErrorMessage)
}

func TestResearchRepositoryListNewestFirst(t *testing.T) {
	repo := NewResearchRepository()
	ctx := context.Background()

	older := newPending(t, "AAPL")
	older.CreatedAt = time.Now().UTC().Add(-time.Hour)
	newer := newPending(t, "MSFT")

	require.NoError(t, repo.Save(ctx, older))
	require.NoError(t, repo.Save(ctx, newer))

	all, err := repo.List(ctx)
	require.NoError(t, err)
	require.Len(t, all, 2)
	assert.Equal(t, "MSFT", all[0].StockSymbol)
	assert.Equal(t, "AAPL", all[1].StockSymbol)
}

func TestResearchRepositoryListByStatus(t *testing.T) {
	repo := NewResearchRepository()
	ctx := context.Background()

	first := newPending(t, "AAPL")
	first.CreatedAt = time.Now().UTC().Add(-2 * time.Hour)
	second := newPending(t, "MSFT")
	second.CreatedAt = time.Now().UTC().Add(-time.Hour)
	done := newPending(t, "GOOG")
	done.Complete(map[string]interface{}{})

	require.NoError(t, repo.Save(ctx, first))
	require.NoError(t, repo.Save(ctx, second))
	require.NoError(t, repo.Save(ctx, done))

	pending, err := repo.ListByStatus(ctx, research.StatusPending, 10)
	require.NoError(t, err)
	require.Len(t, pending, 2)
	assert.Equal(t, "AAPL", pending[0].StockSymbol)
	assert.Equal(t, "MSFT", pending[1].StockSymbol)

	capped, err := repo.ListByStatus(ctx, research.StatusPending, 1)
	require.NoError(t, err)
	require.Len(t, capped, 1)
	assert.Equal(t, "AAPL", capped[0].StockSymbol)
}

func TestProfileRepositoryRoundTrip(t *testing.T) {
	repo := NewProfileRepository()
	ctx := context.Background()

	prof := profile.New(profile.LiteracyAdvanced, "Dana")
	prof.SetPreference("focus", "dividends")
	require.NoError(t, repo.Save(ctx, prof))

	loaded, err := repo.GetByID(ctx, prof.ID)
	require.NoError(t, err)
	assert.Equal(t, profile.LiteracyAdvanced, loaded.FinancialLiteracy)
	assert.Equal(t, "dividends", loaded.Preferences["focus"])
	require.NotNil(t, loaded.DisplayName)
	assert.Equal(t, "Dana", *loaded.DisplayName)

	_, err = repo.GetByID(ctx, uuid.New())
	assert.True(t, errors.Is(err, errors.ErrProfileNotFound))

	require.NoError(t, repo.Delete(ctx, prof.ID))
	_, err = repo.GetByID(ctx, prof.ID)
	assert.True(t, errors.Is(err, errors.ErrProfileNotFound))
}
