package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/plannerhq/momentum/internal/models"
)

// ActivityRepository provides the read-side queries over planner activity
// (tasks, goals, time slots, focus sessions) that achievement criteria and
// the perfect week/month checks need. The activity CRUD surface lives in the
// planner proper, not here.
type ActivityRepository struct {
	db *gorm.DB
}

// NewActivityRepository creates a new activity repository.
func NewActivityRepository(db *DB) *ActivityRepository {
	return &ActivityRepository{db: db.DB}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *ActivityRepository) WithTx(tx *gorm.DB) *ActivityRepository {
	return &ActivityRepository{db: tx}
}

// CountCompletedTasks counts the user's completed tasks.
func (r *ActivityRepository) CountCompletedTasks(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Task{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed tasks: %w", err)
	}
	return count, nil
}

// CountCompletedGoals counts the user's completed goals.
func (r *ActivityRepository) CountCompletedGoals(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.Goal{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed goals: %w", err)
	}
	return count, nil
}

// CountCompletedTimeSlots counts the user's completed time slots.
func (r *ActivityRepository) CountCompletedTimeSlots(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.TimeSlot{}).
		Where("user_id = ? AND done = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed time slots: %w", err)
	}
	return count, nil
}

// CountFocusSessions counts the user's focus sessions of at least the given
// duration.
func (r *ActivityRepository) CountFocusSessions(userID uint, minMinutes int) (int64, error) {
	var count int64
	err := r.db.Model(&models.FocusSession{}).
		Where("user_id = ? AND duration_minutes >= ?", userID, minMinutes).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count focus sessions: %w", err)
	}
	return count, nil
}

// SumFocusHours returns the user's total focused work time in hours.
func (r *ActivityRepository) SumFocusHours(userID uint) (float64, error) {
	var minutes *float64
	err := r.db.Model(&models.FocusSession{}).
		Where("user_id = ?", userID).
		Select("SUM(duration_minutes)").
		Scan(&minutes).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum focus minutes: %w", err)
	}
	if minutes == nil {
		return 0, nil
	}
	return *minutes / 60.0, nil
}

// SumTaskHours returns the total time spent on the user's completed tasks.
func (r *ActivityRepository) SumTaskHours(userID uint) (float64, error) {
	var hours *float64
	err := r.db.Model(&models.Task{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Select("SUM(time_spent)").
		Scan(&hours).Error
	if err != nil {
		return 0, fmt.Errorf("failed to sum task hours: %w", err)
	}
	if hours == nil {
		return 0, nil
	}
	return *hours, nil
}

// GetCompletedTaskTimes returns the completion timestamps of the user's
// completed tasks. Local-hour filtering happens in the evaluator because the
// hour depends on the user's timezone.
func (r *ActivityRepository) GetCompletedTaskTimes(userID uint) ([]time.Time, error) {
	var tasks []models.Task
	err := r.db.
		Where("user_id = ? AND completed = ? AND completed_at IS NOT NULL", userID, true).
		Select("completed_at").
		Find(&tasks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to get completed task times: %w", err)
	}

	times := make([]time.Time, 0, len(tasks))
	for _, task := range tasks {
		if task.CompletedAt != nil {
			times = append(times, *task.CompletedAt)
		}
	}
	return times, nil
}

// CountGoalsWithCompletedSteps counts the user's completed goals that have at
// least minSteps completed steps.
func (r *ActivityRepository) CountGoalsWithCompletedSteps(userID uint, minSteps int) (int64, error) {
	var goalIDs []uint
	err := r.db.Model(&models.GoalStep{}).
		Where("completed = ?", true).
		Group("goal_id").
		Having("COUNT(*) >= ?", minSteps).
		Pluck("goal_id", &goalIDs).Error
	if err != nil {
		return 0, fmt.Errorf("failed to find goals with completed steps: %w", err)
	}
	if len(goalIDs) == 0 {
		return 0, nil
	}

	var count int64
	err = r.db.Model(&models.Goal{}).
		Where("user_id = ? AND completed = ? AND id IN ?", userID, true, goalIDs).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count goals with completed steps: %w", err)
	}
	return count, nil
}

// FeatureUsage reports which planner feature families the user touched since
// the given instant.
type FeatureUsage struct {
	Tasks     bool
	Goals     bool
	TimeSlots bool
}

// GetFeatureUsage checks which feature families the user completed activity
// in since the given instant.
func (r *ActivityRepository) GetFeatureUsage(userID uint, since time.Time) (FeatureUsage, error) {
	var usage FeatureUsage

	var taskCount int64
	err := r.db.Model(&models.Task{}).
		Where("user_id = ? AND completed = ? AND completed_at >= ?", userID, true, since).
		Count(&taskCount).Error
	if err != nil {
		return usage, fmt.Errorf("failed to check task usage: %w", err)
	}
	usage.Tasks = taskCount > 0

	var goalCount int64
	err = r.db.Model(&models.Goal{}).
		Where("user_id = ? AND completed = ? AND completed_at >= ?", userID, true, since).
		Count(&goalCount).Error
	if err != nil {
		return usage, fmt.Errorf("failed to check goal usage: %w", err)
	}
	usage.Goals = goalCount > 0

	var slotCount int64
	err = r.db.Model(&models.TimeSlot{}).
		Where("user_id = ? AND done = ? AND done_at >= ?", userID, true, since).
		Count(&slotCount).Error
	if err != nil {
		return usage, fmt.Errorf("failed to check time slot usage: %w", err)
	}
	usage.TimeSlots = slotCount > 0

	return usage, nil
}

// CountTasksDueBetween counts the user's tasks due inside [start, end) and
// how many of those are completed.
func (r *ActivityRepository) CountTasksDueBetween(userID uint, start, end time.Time) (total, completed int64, err error) {
	err = r.db.Model(&models.Task{}).
		Where("user_id = ? AND due_date >= ? AND due_date < ?", userID, start, end).
		Count(&total).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count due tasks: %w", err)
	}

	err = r.db.Model(&models.Task{}).
		Where("user_id = ? AND due_date >= ? AND due_date < ? AND completed = ?", userID, start, end, true).
		Count(&completed).Error
	if err != nil {
		return 0, 0, fmt.Errorf("failed to count completed due tasks: %w", err)
	}

	return total, completed, nil
}
