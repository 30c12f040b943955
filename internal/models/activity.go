package models

import (
	"time"
)

// The activity models mirror the planner entities whose completion feeds the
// momentum engine. Their CRUD surface lives elsewhere; the engine only reads
// them for achievement criteria and perfect week/month checks.

// Task represents a planner task.
type Task struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	User        User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title       string     `gorm:"size:255" json:"title"`
	Completed   bool       `gorm:"not null;default:false;index" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	DueDate     *time.Time `gorm:"index" json:"due_date"`
	TimeSpent   float64    `gorm:"not null;default:0" json:"time_spent"` // hours
	Complexity  int        `gorm:"not null;default:1" json:"complexity"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Task model.
func (Task) TableName() string {
	return "tasks"
}

// Goal represents a planner goal composed of steps.
type Goal struct {
	ID          uint       `gorm:"primaryKey" json:"id"`
	UserID      uint       `gorm:"not null;index" json:"user_id"`
	User        User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Title       string     `gorm:"size:255" json:"title"`
	Completed   bool       `gorm:"not null;default:false;index" json:"completed"`
	CompletedAt *time.Time `json:"completed_at"`
	Steps       []GoalStep `gorm:"foreignKey:GoalID" json:"steps,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
}

// TableName specifies the table name for Goal model.
func (Goal) TableName() string {
	return "goals"
}

// GoalStep represents one step of a goal.
type GoalStep struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	GoalID    uint      `gorm:"not null;index" json:"goal_id"`
	Title     string    `gorm:"size:255" json:"title"`
	Completed bool      `gorm:"not null;default:false" json:"completed"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// TableName specifies the table name for GoalStep model.
func (GoalStep) TableName() string {
	return "goal_steps"
}

// TimeSlot represents a scheduled block of time.
type TimeSlot struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	UserID    uint       `gorm:"not null;index" json:"user_id"`
	User      User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Date      time.Time  `gorm:"type:date;index" json:"date"`
	StartTime time.Time  `json:"start_time"`
	EndTime   time.Time  `json:"end_time"`
	Done      bool       `gorm:"not null;default:false;index" json:"done"`
	DoneAt    *time.Time `json:"done_at"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// TableName specifies the table name for TimeSlot model.
func (TimeSlot) TableName() string {
	return "time_slots"
}

// FocusSession represents one completed focused work session.
type FocusSession struct {
	ID              uint      `gorm:"primaryKey" json:"id"`
	UserID          uint      `gorm:"not null;index" json:"user_id"`
	User            User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	DurationMinutes int       `gorm:"not null" json:"duration_minutes"`
	CompletedAt     time.Time `gorm:"not null;index" json:"completed_at"`
	CreatedAt       time.Time `json:"created_at"`
}

// TableName specifies the table name for FocusSession model.
func (FocusSession) TableName() string {
	return "focus_sessions"
}
