package profile

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"minerva/internal/domain/profile"
	"minerva/internal/repository/memory"
	"minerva/pkg/errors"
	"minerva/pkg/logger"
)

func newService() (*Service, *memory.ProfileRepository) {
	repo := memory.NewProfileRepository()
	return NewService(repo, logger.Get()), repo
}

func TestService_Create_PersistsProfile(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{
		FinancialLiteracy: "advanced",
		DisplayName:       "Dana",
		Preferences:       map[string]string{"focus": "dividends"},
	})
	require.NoError(t, err)
	assert.Equal(t, profile.LiteracyAdvanced, p.FinancialLiteracy)

	stored, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "dividends", stored.Preferences["focus"])
	require.NotNil(t, stored.DisplayName)
	assert.Equal(t, "Dana", *stored.DisplayName)
}

func TestService_Create_UnknownLiteracyFallsBack(t *testing.T) {
	svc, _ := newService()

	p, err := svc.Create(context.Background(), CreateParams{FinancialLiteracy: "wizard"})
	require.NoError(t, err)
	assert.Equal(t, profile.LiteracyBeginner, p.FinancialLiteracy)
	assert.Nil(t, p.DisplayName)
}

func TestService_SetPreference_UpdatesStoredProfile(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{FinancialLiteracy: "intermediate"})
	require.NoError(t, err)

	_, err = svc.SetPreference(ctx, p.ID, "horizon", "long")
	require.NoError(t, err)

	stored, err := svc.Get(ctx, p.ID)
	require.NoError(t, err)
	assert.Equal(t, "long", stored.Preferences["horizon"])
}

func TestService_Delete_RemovesProfile(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	p, err := svc.Create(ctx, CreateParams{FinancialLiteracy: "beginner"})
	require.NoError(t, err)

	require.NoError(t, svc.Delete(ctx, p.ID))

	_, err = svc.Get(ctx, p.ID)
	assert.ErrorIs(t, err, errors.ErrProfileNotFound)

	err = svc.Delete(ctx, uuid.New())
	assert.ErrorIs(t, err, errors.ErrProfileNotFound)
}

func TestService_List_ReturnsAllProfiles(t *testing.T) {
	svc, _ := newService()
	ctx := context.Background()

	_, err := svc.Create(ctx, CreateParams{FinancialLiteracy: "beginner"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, CreateParams{FinancialLiteracy: "advanced"})
	require.NoError(t, err)

	profiles, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, profiles, 2)
}
