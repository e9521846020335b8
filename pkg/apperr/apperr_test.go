package apperr

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func TestFromDB_MapsSentinelErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		kind Kind
	}{
		{"record not found", gorm.ErrRecordNotFound, KindNotFound},
		{"duplicated key", gorm.ErrDuplicatedKey, KindDuplicate},
		{"foreign key violated", gorm.ErrForeignKeyViolated, KindValidation},
		{"anything else", errors.New("connection reset"), KindInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			appErr := FromDB(tt.err)
			require.NotNil(t, appErr)
			assert.Equal(t, tt.kind, appErr.Kind)
		})
	}
}

func TestFromDB_NilPassesThrough(t *testing.T) {
	assert.Nil(t, FromDB(nil))
}

func TestFromDB_WrappedSentinelStillMatches(t *testing.T) {
	wrapped := fmt.Errorf("saving part: %w", gorm.ErrDuplicatedKey)
	appErr := FromDB(wrapped)
	require.NotNil(t, appErr)
	assert.Equal(t, KindDuplicate, appErr.Kind)
}

func TestKindOf(t *testing.T) {
	assert.Equal(t, KindForbidden, KindOf(New(KindForbidden, "no")))
	assert.Equal(t, KindInternal, KindOf(errors.New("plain")))

	// Kind survives wrapping by callers
	wrapped := fmt.Errorf("outer: %w", New(KindNotFound, "missing"))
	assert.Equal(t, KindNotFound, KindOf(wrapped))
}

func TestIsDuplicateAndIsNotFound(t *testing.T) {
	assert.True(t, IsDuplicate(FromDB(gorm.ErrDuplicatedKey)))
	assert.True(t, IsDuplicate(gorm.ErrDuplicatedKey))
	assert.False(t, IsDuplicate(FromDB(gorm.ErrRecordNotFound)))

	assert.True(t, IsNotFound(FromDB(gorm.ErrRecordNotFound)))
	assert.False(t, IsNotFound(errors.New("other")))
}

func TestErrorString(t *testing.T) {
	plain := New(KindValidation, "name is required")
	assert.Equal(t, "name is required", plain.Error())

	wrapped := Wrap(KindInternal, "operation failed", errors.New("boom"))
	assert.Equal(t, "operation failed: boom", wrapped.Error())
	assert.EqualError(t, errors.Unwrap(wrapped), "boom")
}
