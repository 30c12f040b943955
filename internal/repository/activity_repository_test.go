package repository

import (
	"testing"
	"time"

	"github.com/plannerhq/momentum/internal/models"
)

func completedTask(userID uint, at time.Time) *models.Task {
	return &models.Task{UserID: userID, Completed: true, CompletedAt: &at}
}

func TestActivityRepository_Counts(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	user := createTestUser(t, db, "alice")

	now := time.Now().UTC()
	db.Create(completedTask(user.ID, now))
	db.Create(completedTask(user.ID, now))
	db.Create(&models.Task{UserID: user.ID, Completed: false})
	db.Create(&models.Goal{UserID: user.ID, Completed: true, CompletedAt: &now})
	db.Create(&models.TimeSlot{UserID: user.ID, Date: date(2026, time.March, 2), Done: true, DoneAt: &now})

	tasks, err := repo.CountCompletedTasks(user.ID)
	if err != nil {
		t.Fatalf("CountCompletedTasks failed: %v", err)
	}
	if tasks != 2 {
		t.Errorf("completed tasks = %d, want 2", tasks)
	}

	goals, _ := repo.CountCompletedGoals(user.ID)
	if goals != 1 {
		t.Errorf("completed goals = %d, want 1", goals)
	}

	slots, _ := repo.CountCompletedTimeSlots(user.ID)
	if slots != 1 {
		t.Errorf("completed time slots = %d, want 1", slots)
	}
}

func TestActivityRepository_FocusSessions(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	user := createTestUser(t, db, "alice")

	now := time.Now().UTC()
	db.Create(&models.FocusSession{UserID: user.ID, DurationMinutes: 150, CompletedAt: now})
	db.Create(&models.FocusSession{UserID: user.ID, DurationMinutes: 45, CompletedAt: now})

	long, err := repo.CountFocusSessions(user.ID, 120)
	if err != nil {
		t.Fatalf("CountFocusSessions failed: %v", err)
	}
	if long != 1 {
		t.Errorf("2h+ sessions = %d, want 1", long)
	}

	hours, err := repo.SumFocusHours(user.ID)
	if err != nil {
		t.Fatalf("SumFocusHours failed: %v", err)
	}
	if hours != 3.25 {
		t.Errorf("focus hours = %f, want 3.25", hours)
	}

	// No sessions means zero, not an error.
	other := createTestUser(t, db, "bob")
	hours, err = repo.SumFocusHours(other.ID)
	if err != nil || hours != 0 {
		t.Errorf("empty focus hours = (%f, %v), want (0, nil)", hours, err)
	}
}

func TestActivityRepository_SumTaskHours(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	user := createTestUser(t, db, "alice")

	now := time.Now().UTC()
	db.Create(&models.Task{UserID: user.ID, Completed: true, CompletedAt: &now, TimeSpent: 1.5})
	db.Create(&models.Task{UserID: user.ID, Completed: true, CompletedAt: &now, TimeSpent: 2})
	db.Create(&models.Task{UserID: user.ID, Completed: false, TimeSpent: 8})

	hours, err := repo.SumTaskHours(user.ID)
	if err != nil {
		t.Fatalf("SumTaskHours failed: %v", err)
	}
	if hours != 3.5 {
		t.Errorf("task hours = %f, want 3.5 from completed tasks only", hours)
	}

	other := createTestUser(t, db, "bob")
	hours, err = repo.SumTaskHours(other.ID)
	if err != nil || hours != 0 {
		t.Errorf("empty task hours = (%f, %v), want (0, nil)", hours, err)
	}
}

func TestActivityRepository_CountGoalsWithCompletedSteps(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	user := createTestUser(t, db, "alice")

	now := time.Now().UTC()

	rich := &models.Goal{UserID: user.ID, Completed: true, CompletedAt: &now}
	db.Create(rich)
	for i := 0; i < 5; i++ {
		db.Create(&models.GoalStep{GoalID: rich.ID, Completed: true})
	}

	thin := &models.Goal{UserID: user.ID, Completed: true, CompletedAt: &now}
	db.Create(thin)
	db.Create(&models.GoalStep{GoalID: thin.ID, Completed: true})

	open := &models.Goal{UserID: user.ID, Completed: false}
	db.Create(open)
	for i := 0; i < 5; i++ {
		db.Create(&models.GoalStep{GoalID: open.ID, Completed: true})
	}

	count, err := repo.CountGoalsWithCompletedSteps(user.ID, 5)
	if err != nil {
		t.Fatalf("CountGoalsWithCompletedSteps failed: %v", err)
	}
	if count != 1 {
		t.Errorf("qualifying goals = %d, want 1", count)
	}
}

func TestActivityRepository_GetFeatureUsage(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	user := createTestUser(t, db, "alice")

	recent := time.Now().UTC().Add(-24 * time.Hour)
	old := time.Now().UTC().Add(-30 * 24 * time.Hour)

	db.Create(completedTask(user.ID, recent))
	db.Create(&models.Goal{UserID: user.ID, Completed: true, CompletedAt: &old})

	usage, err := repo.GetFeatureUsage(user.ID, time.Now().UTC().Add(-7*24*time.Hour))
	if err != nil {
		t.Fatalf("GetFeatureUsage failed: %v", err)
	}
	if !usage.Tasks {
		t.Error("recent task completion should register")
	}
	if usage.Goals {
		t.Error("goal completed a month ago should not register")
	}
	if usage.TimeSlots {
		t.Error("no time slots were completed")
	}
}

func TestActivityRepository_CountTasksDueBetween(t *testing.T) {
	db := setupTestDB(t)
	repo := NewActivityRepository(db)
	user := createTestUser(t, db, "alice")

	weekStart := date(2026, time.March, 2)
	weekEnd := weekStart.AddDate(0, 0, 7)
	now := time.Now().UTC()

	due1 := weekStart.AddDate(0, 0, 1)
	due2 := weekStart.AddDate(0, 0, 3)
	outside := weekEnd.AddDate(0, 0, 1)

	db.Create(&models.Task{UserID: user.ID, DueDate: &due1, Completed: true, CompletedAt: &now})
	db.Create(&models.Task{UserID: user.ID, DueDate: &due2, Completed: false})
	db.Create(&models.Task{UserID: user.ID, DueDate: &outside, Completed: true, CompletedAt: &now})

	total, completed, err := repo.CountTasksDueBetween(user.ID, weekStart, weekEnd)
	if err != nil {
		t.Fatalf("CountTasksDueBetween failed: %v", err)
	}
	if total != 2 || completed != 1 {
		t.Errorf("got total=%d completed=%d, want total=2 completed=1", total, completed)
	}
}
