package db

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/classtrack-dev/classtrack/internal/models"
)

func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", t.Name())
	database, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{TranslateError: true})
	require.NoError(t, err)
	require.NoError(t, Migrate(database))
	return database
}

func TestSeedDemoUsersIdempotent(t *testing.T) {
	database := openTestDB(t)

	require.NoError(t, SeedDemoUsers(database))
	require.NoError(t, SeedDemoUsers(database))

	var count int64
	require.NoError(t, database.Model(&models.User{}).Count(&count).Error)
	assert.EqualValues(t, 4, count)

	var admin models.User
	require.NoError(t, database.Where("username = ?", "admin").First(&admin).Error)
	assert.EqualValues(t, "admin", admin.Role)
}

// Migrate must install the partial indexes that keep pending registration
// requests unique per username and email.
func TestMigratePendingIndexes(t *testing.T) {
	database := openTestDB(t)

	first := models.RegistrationRequest{
		Username: "john",
		Email:    "john@example.com",
		Name:     "John",
		Role:     "student",
		Status:   models.RegistrationPending,
	}
	require.NoError(t, database.Create(&first).Error)

	dupe := models.RegistrationRequest{
		Username: "john",
		Email:    "other@example.com",
		Name:     "John",
		Role:     "student",
		Status:   models.RegistrationPending,
	}
	assert.ErrorIs(t, database.Create(&dupe).Error, gorm.ErrDuplicatedKey)

	// Terminal rows are outside the predicate, so history can accumulate.
	rejected := models.RegistrationRequest{
		Username: "john",
		Email:    "john2@example.com",
		Name:     "John",
		Role:     "student",
		Status:   models.RegistrationRejected,
	}
	assert.NoError(t, database.Create(&rejected).Error)

	// Soft-deleted rows are outside it too: a deleted pending request must
	// not hold its username or email hostage.
	require.NoError(t, database.Delete(&first).Error)
	again := models.RegistrationRequest{
		Username: "john",
		Email:    "john@example.com",
		Name:     "John",
		Role:     "student",
		Status:   models.RegistrationPending,
	}
	assert.NoError(t, database.Create(&again).Error)
}
