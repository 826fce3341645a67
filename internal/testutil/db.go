// Package testutil provides helpers shared by package tests.
package testutil

import (
	"fmt"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"smart-health-server/internal/models"
)

// NewDB returns a migrated in-memory SQLite database private to the test.
func NewDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := fmt.Sprintf("file:%s?mode=memory&cache=shared", uuid.NewString())
	db, err := models.InitDB(models.DatabaseConfig{Driver: "sqlite", DSN: dsn})
	require.NoError(t, err)
	require.NoError(t, models.Migrate(db))

	sqlDB, err := db.DB()
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqlDB.Close() })
	return db
}

// CreateUser inserts an active user with password "password123".
func CreateUser(t *testing.T, db *gorm.DB, username string, role models.Role) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Role:     role,
		IsActive: true,
	}
	require.NoError(t, user.SetPassword("password123"))
	require.NoError(t, db.Create(user).Error)
	return user
}

// CreateDoctor inserts a doctor account with its profile.
func CreateDoctor(t *testing.T, db *gorm.DB, username string) *models.DoctorProfile {
	t.Helper()

	user := CreateUser(t, db, username, models.RoleDoctor)
	profile := &models.DoctorProfile{UserID: user.ID, Specialization: "General", Location: "Kigali"}
	require.NoError(t, db.Create(profile).Error)
	profile.User = *user
	return profile
}

// CreatePatient inserts a patient account with its profile.
func CreatePatient(t *testing.T, db *gorm.DB, username string) *models.PatientProfile {
	t.Helper()

	user := CreateUser(t, db, username, models.RolePatient)
	profile := &models.PatientProfile{UserID: user.ID, Phone: "+250788000000"}
	require.NoError(t, db.Create(profile).Error)
	profile.User = *user
	return profile
}
