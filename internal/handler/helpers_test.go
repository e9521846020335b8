package handler

import (
	"errors"
	"testing"

	"github.com/glebarez/sqlite"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// newTestDB opens an in-memory database migrated for the given models
func newTestDB(t *testing.T, models ...interface{}) *gorm.DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger:         gormlogger.Default.LogMode(gormlogger.Silent),
		TranslateError: true,
	})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)

	require.NoError(t, db.AutoMigrate(models...))
	return db
}

func TestRetryOnDuplicate_RetriesOnceOnDuplicate(t *testing.T) {
	calls := 0
	err := retryOnDuplicate(func() error {
		calls++
		if calls == 1 {
			return gorm.ErrDuplicatedKey
		}
		return nil
	})
	assert.NoError(t, err)
	assert.Equal(t, 2, calls)
}

func TestRetryOnDuplicate_GivesUpAfterSecondDuplicate(t *testing.T) {
	calls := 0
	err := retryOnDuplicate(func() error {
		calls++
		return gorm.ErrDuplicatedKey
	})
	assert.ErrorIs(t, err, gorm.ErrDuplicatedKey)
	assert.Equal(t, 2, calls)
}

func TestRetryOnDuplicate_OtherErrorsNotRetried(t *testing.T) {
	boom := errors.New("connection reset")
	calls := 0
	err := retryOnDuplicate(func() error {
		calls++
		return boom
	})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, calls)
}

func TestRetryOnDuplicate_SuccessRunsOnce(t *testing.T) {
	calls := 0
	assert.NoError(t, retryOnDuplicate(func() error {
		calls++
		return nil
	}))
	assert.Equal(t, 1, calls)
}
