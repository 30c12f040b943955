package repository

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/plannerhq/momentum/internal/models"
)

// setupTestDB creates an in-memory SQLite database for testing.
func setupTestDB(t *testing.T) *DB {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open in-memory database: %v", err)
	}

	// Enable foreign key constraints (SQLite default is off)
	db.Exec("PRAGMA foreign_keys = ON")

	err = db.AutoMigrate(
		&models.User{},
		&models.Level{},
		&models.Achievement{},
		&models.UserAchievement{},
		&models.Streak{},
		&models.MomentumEvent{},
		&models.Task{},
		&models.Goal{},
		&models.GoalStep{},
		&models.TimeSlot{},
		&models.FocusSession{},
	)
	if err != nil {
		t.Fatalf("Failed to auto-migrate tables: %v", err)
	}

	return &DB{db}
}

// createTestUser creates a test user in the database.
func createTestUser(t *testing.T, db *DB, username string) *models.User {
	t.Helper()

	user := &models.User{
		Username: username,
		Email:    username + "@example.com",
		Timezone: "UTC",
		IsActive: true,
	}
	if err := db.Create(user).Error; err != nil {
		t.Fatalf("Failed to create test user: %v", err)
	}
	return user
}

// createTestAchievement creates a catalog achievement.
func createTestAchievement(t *testing.T, db *DB, name string, reward int) *models.Achievement {
	t.Helper()

	achievement := &models.Achievement{
		Name:           name,
		Description:    "test achievement",
		PointReward:    reward,
		Category:       models.CategoryProductivity,
		CriterionKind:  models.CriterionCount,
		CriterionValue: 10,
	}
	if err := db.Create(achievement).Error; err != nil {
		t.Fatalf("Failed to create test achievement: %v", err)
	}
	return achievement
}

// date builds a UTC calendar date.
func date(year int, month time.Month, day int) time.Time {
	return time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
}
