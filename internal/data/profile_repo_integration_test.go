package data

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainauth "github.com/hostelhub/portal/internal/domain/auth"
	apperrors "github.com/hostelhub/portal/internal/errors"
	"github.com/hostelhub/portal/internal/ports"
	"github.com/hostelhub/portal/internal/testutil"
)

func TestProfileRepo_Integration(t *testing.T) {
	db := testutil.SetupTestDB(t)
	at := time.Date(2025, 3, 1, 9, 30, 0, 0, time.UTC)
	repo := NewProfileRepoWithClock(db, testutil.FixedTimeFunc(at))
	ctx := t.Context()

	id := uuid.NewString()
	require.NoError(t, repo.InsertProfile(ctx, domainauth.Profile{
		ID: id, Email: "amina@hostel.test", FullName: "Amina Otieno", School: "Moi Girls", Age: 19,
	}))

	got, err := repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleStudent, got.Role)
	assert.Equal(t, "Moi Girls", got.School)
	assert.Equal(t, 19, got.Age)
	assert.True(t, got.CreatedAt.Equal(at))

	require.NoError(t, repo.UpdateRole(ctx, id, domainauth.RoleAdmin))
	got, err = repo.GetProfile(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, domainauth.RoleAdmin, got.Role)

	err = repo.InsertProfile(ctx, domainauth.Profile{ID: uuid.NewString(), Email: "amina@hostel.test"})
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeConflict, apperrors.GetCode(err))

	_, err = repo.GetProfile(ctx, uuid.NewString())
	require.ErrorIs(t, err, ports.ErrProfileNotFound)
	require.ErrorIs(t, repo.UpdateRole(ctx, uuid.NewString(), domainauth.RoleAdmin), ports.ErrProfileNotFound)
}
