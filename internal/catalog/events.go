// Package catalog holds the static momentum data: the point table per event
// type, the achievement list, and the level ladder. Everything here is pure
// and read-only after startup seeding.
package catalog

import (
	"math"
	"time"
)

// Recognized event types. The vocabulary is extensible: unknown types are
// accepted by the engine and simply score zero base points.
const (
	EventTaskCompletion     = "task_completion"
	EventGoalCompletion     = "goal_completion"
	EventGoalStepCompletion = "goal_step_completion"
	EventTimeSlotCompletion = "time_slot_completion"
	EventFocusedSession     = "focused_session"
	EventFirstTaskOfDay     = "first_task_of_day"
	EventWeekendWarrior     = "weekend_warrior"
	EventEarlyBird          = "early_bird"
	EventNightOwl           = "night_owl"
	EventStreakMilestone    = "streak_milestone"
	EventGoalStreak         = "goal_streak"
	EventPerfectWeek        = "perfect_week"
	EventPerfectMonth       = "perfect_month"
	EventTaskComplexity     = "task_complexity"
)

// Streak buckets.
const (
	StreakDailyTasks      = "daily_tasks"
	StreakWeeklyGoals     = "weekly_goals"
	StreakFocusedSessions = "focused_sessions"
)

// EventMeta is the strongly typed payload carried by a momentum event.
// Fields that an event kind does not use are simply ignored; missing fields
// contribute neutrally to the point computation.
type EventMeta struct {
	DurationMinutes int        // focused_session
	Streak          int        // streak_milestone, goal_streak
	Complexity      int        // task_complexity
	IsWeekend       bool       // weekend bonus
	IsFirstTask     bool       // first-activity-of-day bonus
	CurrentStreak   int        // streak-length bonus
	CompletionTime  *time.Time // time-of-day bonus
	SpecialEvent    float64    // externally supplied multiplier, 0 = none
}

// Fixed base point values per event type.
var fixedPoints = map[string]int{
	EventTaskCompletion:     3,
	EventGoalCompletion:     15,
	EventGoalStepCompletion: 5,
	EventTimeSlotCompletion: 7,
	EventPerfectWeek:        30,
	EventFirstTaskOfDay:     2,
	EventWeekendWarrior:     10,
	EventEarlyBird:          5,
	EventNightOwl:           5,
	EventPerfectMonth:       150,
}

// BasePoints returns the base point value for an event before bonus
// multipliers. Unknown event types score zero so the event API stays
// forgiving to new activity types. The result is never negative.
func BasePoints(eventType string, meta EventMeta) int {
	if points, ok := fixedPoints[eventType]; ok {
		return points
	}

	switch eventType {
	case EventFocusedSession:
		points := meta.DurationMinutes / 3
		if points < 1 {
			points = 1
		}
		return points
	case EventStreakMilestone:
		return atLeastOne(meta.Streak) * 3
	case EventGoalStreak:
		return atLeastOne(meta.Streak) * 5
	case EventTaskComplexity:
		return atLeastOne(meta.Complexity) * 7
	}

	return 0
}

// Multiplier computes the combined bonus multiplier for an event. The factors
// are order-independent: weekend 1.2, first activity of the day 1.1, streak
// length capped at 2.0 (reached at a 20-day streak), early bird or night owl
// 1.15, plus an optional special-event multiplier.
func Multiplier(meta EventMeta) float64 {
	multiplier := 1.0

	if meta.IsWeekend {
		multiplier *= 1.2
	}
	if meta.IsFirstTask {
		multiplier *= 1.1
	}
	if meta.CurrentStreak > 0 {
		multiplier *= math.Min(1+float64(meta.CurrentStreak)*0.05, 2.0)
	}
	if meta.CompletionTime != nil {
		hour := meta.CompletionTime.Hour()
		if (hour >= 5 && hour < 9) || (hour >= 21 && hour < 24) {
			multiplier *= 1.15
		}
	}
	if meta.SpecialEvent > 0 {
		multiplier *= meta.SpecialEvent
	}

	return multiplier
}

// FinalPoints computes the points an event is worth: base points times the
// combined multiplier, floored to an integer.
func FinalPoints(eventType string, meta EventMeta) int {
	return int(float64(BasePoints(eventType, meta)) * Multiplier(meta))
}

// streakBuckets maps event types to the streak bucket they feed.
var streakBuckets = map[string]string{
	EventTaskCompletion:     StreakDailyTasks,
	EventFirstTaskOfDay:     StreakDailyTasks,
	EventTaskComplexity:     StreakDailyTasks,
	EventTimeSlotCompletion: StreakDailyTasks,
	EventGoalCompletion:     StreakWeeklyGoals,
	EventGoalStepCompletion: StreakWeeklyGoals,
	EventGoalStreak:         StreakWeeklyGoals,
	EventFocusedSession:     StreakFocusedSessions,
}

// StreakBucket returns the streak bucket an event type feeds, or "" when the
// event does not participate in streak tracking.
func StreakBucket(eventType string) string {
	return streakBuckets[eventType]
}

func atLeastOne(v int) int {
	if v < 1 {
		return 1
	}
	return v
}
