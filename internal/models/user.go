// Package models defines domain models for the momentum engine.
package models

import (
	"time"
)

// User represents a planner user together with their momentum state.
// The three point counters are independent running totals over different
// windows and only change through ledger award/deduct operations.
type User struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Username       string    `gorm:"uniqueIndex;not null;size:255" json:"username"`
	Email          string    `gorm:"size:255" json:"email"`
	Timezone       string    `gorm:"size:64;not null;default:UTC" json:"timezone"`
	IsActive       bool      `gorm:"not null;default:true" json:"is_active"`
	TotalPoints    int       `gorm:"not null;default:0" json:"total_points"`
	WeeklyPoints   int       `gorm:"not null;default:0" json:"weekly_points"`
	MonthlyPoints  int       `gorm:"not null;default:0" json:"monthly_points"`
	CurrentLevelID *uint     `gorm:"index" json:"current_level_id"`
	CurrentLevel   *Level    `gorm:"foreignKey:CurrentLevelID" json:"current_level,omitempty"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for User model.
func (User) TableName() string {
	return "users"
}

// Location resolves the user's IANA timezone, falling back to UTC when the
// stored value is empty or unknown.
func (u *User) Location() *time.Location {
	if u.Timezone == "" {
		return time.UTC
	}
	loc, err := time.LoadLocation(u.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

// LocalDate returns the calendar date of the given instant in the user's timezone.
func (u *User) LocalDate(at time.Time) time.Time {
	local := at.In(u.Location())
	return time.Date(local.Year(), local.Month(), local.Day(), 0, 0, 0, 0, local.Location())
}
