// Package achievements evaluates the achievement catalog against a user's
// activity history and grants what they have earned.
package achievements

import (
	"time"

	"github.com/plannerhq/momentum/internal/catalog"
	"github.com/plannerhq/momentum/internal/metrics"
	"github.com/plannerhq/momentum/internal/models"
	"github.com/plannerhq/momentum/internal/repository"
	"github.com/plannerhq/momentum/pkg/logger"
)

// Focus sessions must run at least this long to count for Deep Work Master.
const deepWorkMinMinutes = 120

// Early Riser counts tasks completed before this local hour.
const earlyRiserHour = 9

// AchievementStore is the achievement persistence the evaluator depends on.
type AchievementStore interface {
	GetAll() ([]models.Achievement, error)
	GetByName(name string) (*models.Achievement, error)
	HasCompleted(userID, achievementID uint) (bool, error)
	Grant(userID, achievementID uint, at time.Time) error
	SetProgress(userID, achievementID uint, progress int) error
}

// ActivityStore is the planner activity read model the criteria query.
type ActivityStore interface {
	CountCompletedTasks(userID uint) (int64, error)
	CountCompletedGoals(userID uint) (int64, error)
	CountCompletedTimeSlots(userID uint) (int64, error)
	CountFocusSessions(userID uint, minMinutes int) (int64, error)
	SumTaskHours(userID uint) (float64, error)
	GetCompletedTaskTimes(userID uint) ([]time.Time, error)
	CountGoalsWithCompletedSteps(userID uint, minSteps int) (int64, error)
	GetFeatureUsage(userID uint, since time.Time) (repository.FeatureUsage, error)
}

// StreakStore is the streak read model the streak criteria query.
type StreakStore interface {
	GetByUserAndType(userID uint, streakType string) (*models.Streak, error)
}

// Ledger credits achievement point rewards.
type Ledger interface {
	Award(user *models.User, points int) (*models.Level, error)
}

// Service evaluates achievement criteria and grants completions.
type Service struct {
	achievements AchievementStore
	activity     ActivityStore
	streaks      StreakStore
	ledger       Ledger
	log          *logger.Logger
}

// NewService creates an achievement service backed by database repositories.
func NewService(db *repository.DB, ledger Ledger, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(
		repository.NewAchievementRepository(db),
		repository.NewActivityRepository(db),
		repository.NewStreakRepository(db),
		ledger,
		log,
	)
}

// NewServiceWithInterfaces creates an achievement service with explicit
// dependencies, used by tests and by transaction-bound callers.
func NewServiceWithInterfaces(
	achievements AchievementStore,
	activity ActivityStore,
	streaks StreakStore,
	ledger Ledger,
	log *logger.Logger,
) *Service {
	return &Service{
		achievements: achievements,
		activity:     activity,
		streaks:      streaks,
		ledger:       ledger,
		log:          log,
	}
}

// CheckAll evaluates every unearned achievement for the user, updating
// progress counters and granting any whose criterion is now met. Returns the
// achievements granted in this pass. Leaderboard Legend is excluded: it
// depends on a global ranking and is only granted by the daily sweep.
func (s *Service) CheckAll(user *models.User, now time.Time) ([]models.Achievement, error) {
	all, err := s.achievements.GetAll()
	if err != nil {
		return nil, err
	}

	var granted []models.Achievement
	for _, achievement := range all {
		if achievement.Name == catalog.AchievementLeaderboardLegend {
			continue
		}

		done, err := s.achievements.HasCompleted(user.ID, achievement.ID)
		if err != nil {
			return nil, err
		}
		if done {
			continue
		}

		progress, met, err := s.evaluate(user, achievement, now)
		if err != nil {
			return nil, err
		}

		if err := s.achievements.SetProgress(user.ID, achievement.ID, progress); err != nil {
			return nil, err
		}
		if !met {
			continue
		}

		if err := s.grant(user, &achievement, now); err != nil {
			return nil, err
		}
		granted = append(granted, achievement)
	}

	return granted, nil
}

// GrantByName grants one achievement directly, bypassing criterion
// evaluation. The sweep uses it for the leaderboard achievement. Granting an
// achievement the user already holds returns false without side effects.
func (s *Service) GrantByName(user *models.User, name string, now time.Time) (bool, error) {
	achievement, err := s.achievements.GetByName(name)
	if err != nil {
		return false, err
	}

	done, err := s.achievements.HasCompleted(user.ID, achievement.ID)
	if err != nil {
		return false, err
	}
	if done {
		return false, nil
	}

	if err := s.grant(user, achievement, now); err != nil {
		return false, err
	}
	return true, nil
}

func (s *Service) grant(user *models.User, achievement *models.Achievement, now time.Time) error {
	if err := s.achievements.Grant(user.ID, achievement.ID, now); err != nil {
		return err
	}
	if _, err := s.ledger.Award(user, achievement.PointReward); err != nil {
		return err
	}

	s.log.Info().
		Uint("user_id", user.ID).
		Str("achievement", achievement.Name).
		Int("reward", achievement.PointReward).
		Msg("Achievement earned")
	metrics.RecordAchievementAwarded(achievement.Name)
	return nil
}

// evaluate computes the user's progress toward one achievement and whether
// its criterion is met. Progress is measured in the criterion's own unit.
func (s *Service) evaluate(user *models.User, a models.Achievement, now time.Time) (int, bool, error) {
	switch a.CriterionKind {
	case models.CriterionCount:
		return s.evaluateCount(user, a)
	case models.CriterionStreak:
		return s.evaluateStreak(user, a)
	case models.CriterionTime:
		// Cumulative time is measured over completed tasks, not focus
		// sessions.
		hours, err := s.activity.SumTaskHours(user.ID)
		if err != nil {
			return 0, false, err
		}
		return int(hours), int(hours) >= a.CriterionValue, nil
	case models.CriterionSpecificTime:
		return s.evaluateTimeWindow(user, a)
	case models.CriterionCompound:
		return s.evaluateCompound(user, a, now)
	default:
		s.log.Warn().
			Str("achievement", a.Name).
			Str("kind", a.CriterionKind).
			Msg("Unknown achievement criterion kind")
		return 0, false, nil
	}
}

func (s *Service) evaluateCount(user *models.User, a models.Achievement) (int, bool, error) {
	var count int64
	var err error

	switch a.Name {
	case catalog.AchievementTaskMaster:
		count, err = s.activity.CountCompletedTasks(user.ID)
	case catalog.AchievementGoalCrusher:
		count, err = s.activity.CountCompletedGoals(user.ID)
	case catalog.AchievementTimeWizard:
		count, err = s.activity.CountCompletedTimeSlots(user.ID)
	case catalog.AchievementDeepWorkMaster:
		count, err = s.activity.CountFocusSessions(user.ID, deepWorkMinMinutes)
	default:
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	return int(count), int(count) >= a.CriterionValue, nil
}

// evaluateStreak judges streak achievements against the longest daily task
// streak ever reached, so breaking a streak after earning the run does not
// forfeit the achievement.
func (s *Service) evaluateStreak(user *models.User, a models.Achievement) (int, bool, error) {
	streak, err := s.streaks.GetByUserAndType(user.ID, catalog.StreakDailyTasks)
	if err != nil {
		return 0, false, err
	}
	if streak == nil {
		return 0, false, nil
	}
	return streak.LongestCount, streak.LongestCount >= a.CriterionValue, nil
}

// evaluateTimeWindow counts completions inside the achievement's local-time
// window. Hours are judged in the user's timezone.
func (s *Service) evaluateTimeWindow(user *models.User, a models.Achievement) (int, bool, error) {
	times, err := s.activity.GetCompletedTaskTimes(user.ID)
	if err != nil {
		return 0, false, err
	}

	loc := user.Location()
	count := 0
	for _, t := range times {
		if t.In(loc).Hour() < earlyRiserHour {
			count++
		}
	}
	return count, count >= a.CriterionValue, nil
}

func (s *Service) evaluateCompound(user *models.User, a models.Achievement, now time.Time) (int, bool, error) {
	switch a.Name {
	case catalog.AchievementGoalStrategist:
		count, err := s.activity.CountGoalsWithCompletedSteps(user.ID, 5)
		if err != nil {
			return 0, false, err
		}
		return int(count), int(count) >= a.CriterionValue, nil

	case catalog.AchievementProductivityPioneer:
		usage, err := s.activity.GetFeatureUsage(user.ID, now.AddDate(0, 0, -7))
		if err != nil {
			return 0, false, err
		}
		if usage.Tasks && usage.Goals && usage.TimeSlots {
			return 1, true, nil
		}
		return 0, false, nil

	default:
		return 0, false, nil
	}
}
