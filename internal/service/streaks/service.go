// Package streaks tracks consecutive-day activity per user and bucket.
package streaks

import (
	"time"

	"github.com/plannerhq/momentum/internal/catalog"
	"github.com/plannerhq/momentum/internal/models"
	"github.com/plannerhq/momentum/internal/repository"
	"github.com/plannerhq/momentum/pkg/logger"
)

// Streak update outcomes.
const (
	StateStarted   = "started"
	StateIncreased = "increased"
	StateReset     = "reset"
	StateUnchanged = "unchanged"
)

// StreakStore is the streak persistence the tracker depends on.
type StreakStore interface {
	Create(streak *models.Streak) error
	Update(streak *models.Streak) error
	GetByUserAndType(userID uint, streakType string) (*models.Streak, error)
	GetByUser(userID uint) ([]models.Streak, error)
}

// Result describes what happened to a streak after an activity event.
type Result struct {
	Bucket  string `json:"bucket"`
	State   string `json:"state"`
	Current int    `json:"current"`
	Longest int    `json:"longest"`
}

// Service applies activity events to the user's streak state.
type Service struct {
	streaks StreakStore
	log     *logger.Logger
}

// NewService creates a streak service backed by database repositories.
func NewService(db *repository.DB, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(repository.NewStreakRepository(db), log)
}

// NewServiceWithInterfaces creates a streak service with explicit
// dependencies, used by tests and by transaction-bound callers.
func NewServiceWithInterfaces(streaks StreakStore, log *logger.Logger) *Service {
	return &Service{streaks: streaks, log: log}
}

// Update applies an activity event to the streak bucket it feeds. Days are
// calendar dates in the user's timezone: a second event on the same local
// day is a no-op, the next day increments, and a gap of more than one day
// resets the current count to 1 while preserving the longest count. Events
// that feed no bucket return a nil result.
func (s *Service) Update(user *models.User, eventType string, at time.Time) (*Result, error) {
	bucket := catalog.StreakBucket(eventType)
	if bucket == "" {
		return nil, nil
	}

	today := user.LocalDate(at)

	streak, err := s.streaks.GetByUserAndType(user.ID, bucket)
	if err != nil {
		return nil, err
	}

	if streak == nil {
		streak = &models.Streak{
			UserID:           user.ID,
			StreakType:       bucket,
			CurrentCount:     1,
			LongestCount:     1,
			LastActivityDate: today,
		}
		if err := s.streaks.Create(streak); err != nil {
			return nil, err
		}
		return &Result{Bucket: bucket, State: StateStarted, Current: 1, Longest: 1}, nil
	}

	gap := daysBetween(streak.LastActivityDate, today)
	switch {
	case gap <= 0:
		// Same local day, or an out-of-order event from an earlier day.
		return &Result{
			Bucket:  bucket,
			State:   StateUnchanged,
			Current: streak.CurrentCount,
			Longest: streak.LongestCount,
		}, nil

	case gap == 1:
		streak.CurrentCount++
		if streak.CurrentCount > streak.LongestCount {
			streak.LongestCount = streak.CurrentCount
		}
		streak.LastActivityDate = today
		if err := s.streaks.Update(streak); err != nil {
			return nil, err
		}
		return &Result{
			Bucket:  bucket,
			State:   StateIncreased,
			Current: streak.CurrentCount,
			Longest: streak.LongestCount,
		}, nil

	default:
		s.log.Debug().
			Uint("user_id", user.ID).
			Str("bucket", bucket).
			Int("gap_days", gap).
			Msg("Streak broken, resetting")
		streak.CurrentCount = 1
		streak.LastActivityDate = today
		if err := s.streaks.Update(streak); err != nil {
			return nil, err
		}
		return &Result{
			Bucket:  bucket,
			State:   StateReset,
			Current: 1,
			Longest: streak.LongestCount,
		}, nil
	}
}

// Current returns the user's current count in one bucket, zero when the
// user has no history there.
func (s *Service) Current(userID uint, bucket string) (int, error) {
	streak, err := s.streaks.GetByUserAndType(userID, bucket)
	if err != nil {
		return 0, err
	}
	if streak == nil {
		return 0, nil
	}
	return streak.CurrentCount, nil
}

// All returns every streak row the user has.
func (s *Service) All(userID uint) ([]models.Streak, error) {
	return s.streaks.GetByUser(userID)
}

// daysBetween counts whole calendar days from a to b, ignoring the
// locations the dates were built in.
func daysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(ub.Sub(ua).Hours() / 24)
}
