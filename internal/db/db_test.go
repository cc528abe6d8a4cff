package db

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"parking-share-backend/config"
	"parking-share-backend/internal/model"
)

func TestMigrate_ClaimIndexes(t *testing.T) {
	testDB, err := gorm.Open(sqlite.Open("file:migrate_test?mode=memory&cache=shared"), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, _ := testDB.DB()
	defer sqlDB.Close()

	require.NoError(t, Migrate(testDB))
	// Running twice must be harmless.
	require.NoError(t, Migrate(testDB))

	first := model.ParkingClaim{UserID: "u1", Floor: "3", SpotNumber: "12", Status: model.ClaimPending}
	require.NoError(t, testDB.Create(&first).Error)

	t.Run("second pending claim for the same user is rejected", func(t *testing.T) {
		err := testDB.Create(&model.ParkingClaim{UserID: "u1", Floor: "4", SpotNumber: "1", Status: model.ClaimPending}).Error
		assert.Error(t, err)
	})

	t.Run("same spot key claimed twice is rejected", func(t *testing.T) {
		err := testDB.Create(&model.ParkingClaim{UserID: "u2", Floor: "3", SpotNumber: "12", Status: model.ClaimPending}).Error
		assert.Error(t, err)
	})

	t.Run("rejected claims free the spot key", func(t *testing.T) {
		require.NoError(t, testDB.Model(&first).Update("status", model.ClaimRejected).Error)
		err := testDB.Create(&model.ParkingClaim{UserID: "u2", Floor: "3", SpotNumber: "12", Status: model.ClaimPending}).Error
		assert.NoError(t, err)
	})
}

func TestInit_UnsupportedDriver(t *testing.T) {
	_, err := Init(&config.DatabaseConfig{Driver: "mysql", DSN: "x"})
	assert.ErrorContains(t, err, "unsupported database driver")
}
