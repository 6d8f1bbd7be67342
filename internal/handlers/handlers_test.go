package handlers

import (
	"testing"
	"time"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/diewo77/emotion-tracker/internal/models"
	"github.com/diewo77/emotion-tracker/internal/policy"
)

func setupTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	// Use a unique in-memory database per test to avoid cross-test collisions.
	dsn := "file:" + t.Name() + "?mode=memory&cache=shared"
	db, err := gorm.Open(sqlite.Open(dsn), &gorm.Config{})
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	if err := db.AutoMigrate(&models.User{}, &models.Patient{}, &models.Analysis{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return db
}

func newTestGate(t *testing.T, db *gorm.DB) *policy.AuthGate {
	t.Helper()
	return policy.NewAuthGate(db, time.Minute)
}

func createUser(t *testing.T, db *gorm.DB, username, role string) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("password123"), bcrypt.DefaultCost)
	if err != nil {
		t.Fatalf("hash: %v", err)
	}
	user := models.User{
		Username:     username,
		Email:        username + "@test.local",
		PasswordHash: string(hash),
		Role:         role,
	}
	if err := db.Create(&user).Error; err != nil {
		t.Fatalf("create user: %v", err)
	}
	return &user
}

func createPatient(t *testing.T, db *gorm.DB, clinicianID uint, first, last string) *models.Patient {
	t.Helper()
	patient := models.Patient{
		FirstName:   first,
		LastName:    last,
		DateOfBirth: time.Date(1990, 4, 12, 0, 0, 0, 0, time.UTC),
		ClinicianID: clinicianID,
	}
	if err := db.Create(&patient).Error; err != nil {
		t.Fatalf("create patient: %v", err)
	}
	return &patient
}
