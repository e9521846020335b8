package handler

import (
	"testing"
	"time"

	"github.com/main4/cmms/internal/model"
	"github.com/main4/cmms/pkg/apperr"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClaimInvitation_SingleUse(t *testing.T) {
	db := newTestDB(t, &model.UserInvitation{})

	inv := model.UserInvitation{
		TenantID:  1,
		Email:     "new@example.com",
		Token:     "0123456789abcdef0123456789abcdef0123456789abcdef0123456789abcdef",
		ExpiresAt: time.Now().Add(24 * time.Hour),
	}
	require.NoError(t, db.Create(&inv).Error)

	require.NoError(t, claimInvitation(db, inv.ID, time.Now()))

	// a second accept of the same token finds it already stamped
	err := claimInvitation(db, inv.ID, time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))

	var stored model.UserInvitation
	require.NoError(t, db.First(&stored, inv.ID).Error)
	assert.NotNil(t, stored.AcceptedAt)
}

func TestClaimInvitation_UnknownID(t *testing.T) {
	db := newTestDB(t, &model.UserInvitation{})

	err := claimInvitation(db, 999, time.Now())
	require.Error(t, err)
	assert.Equal(t, apperr.KindValidation, apperr.KindOf(err))
}

func TestNewInviteToken(t *testing.T) {
	a, err := newInviteToken()
	require.NoError(t, err)
	b, err := newInviteToken()
	require.NoError(t, err)

	assert.Len(t, a, 64)
	assert.NotEqual(t, a, b)
}
