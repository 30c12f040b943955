// Package sweep implements the daily maintenance pass: perfect week and
// perfect month bonuses, weekly and monthly counter resets, the leaderboard
// achievement, and stale streak expiry.
package sweep

import (
	"context"
	"fmt"
	"time"

	"github.com/plannerhq/momentum/internal/catalog"
	"github.com/plannerhq/momentum/internal/config"
	"github.com/plannerhq/momentum/internal/metrics"
	"github.com/plannerhq/momentum/internal/models"
	"github.com/plannerhq/momentum/internal/repository"
	"github.com/plannerhq/momentum/internal/service/engine"
	"github.com/plannerhq/momentum/pkg/logger"
)

// UserStore is the user persistence the sweep depends on.
type UserStore interface {
	ListActive() ([]models.User, error)
	GetByID(id uint) (*models.User, error)
	Update(user *models.User) error
}

// ActivityStore answers the planned-vs-completed question for a window.
type ActivityStore interface {
	CountTasksDueBetween(userID uint, start, end time.Time) (total, completed int64, err error)
}

// EventStore guards time-boxed bonuses against double awards.
type EventStore interface {
	ExistsInWindow(userID uint, eventType string, start, end time.Time) (bool, error)
}

// StreakStore expires streaks that missed a day.
type StreakStore interface {
	ExpireStale(cutoff time.Time) (int64, error)
}

// Processor feeds bonus events back through the regular scoring path.
type Processor interface {
	Process(ctx context.Context, req engine.ProcessRequest) (*engine.ProcessResult, error)
}

// Granter awards achievements that bypass criterion evaluation.
type Granter interface {
	GrantByName(user *models.User, name string, now time.Time) (bool, error)
}

// Service runs the daily sweep over all active users. A failure for one
// user is logged and skipped so it cannot block the rest.
type Service struct {
	users     UserStore
	activity  ActivityStore
	events    EventStore
	streaks   StreakStore
	processor Processor
	granter   Granter
	cfg       config.MomentumConfig
	log       *logger.Logger
}

// NewService creates a sweep service backed by database repositories.
func NewService(
	db *repository.DB,
	processor Processor,
	granter Granter,
	cfg config.MomentumConfig,
	log *logger.Logger,
) *Service {
	return NewServiceWithInterfaces(
		repository.NewUserRepository(db),
		repository.NewActivityRepository(db),
		repository.NewEventRepository(db),
		repository.NewStreakRepository(db),
		processor,
		granter,
		cfg,
		log,
	)
}

// NewServiceWithInterfaces creates a sweep service with explicit
// dependencies, used by tests.
func NewServiceWithInterfaces(
	users UserStore,
	activity ActivityStore,
	events EventStore,
	streaks StreakStore,
	processor Processor,
	granter Granter,
	cfg config.MomentumConfig,
	log *logger.Logger,
) *Service {
	return &Service{
		users:     users,
		activity:  activity,
		events:    events,
		streaks:   streaks,
		processor: processor,
		granter:   granter,
		cfg:       cfg,
		log:       log,
	}
}

// RunDailySweep executes the full maintenance pass as of the given instant.
func (s *Service) RunDailySweep(ctx context.Context, now time.Time) error {
	start := time.Now()
	s.log.Info().Time("as_of", now).Msg("Starting daily sweep")

	users, err := s.users.ListActive()
	if err != nil {
		metrics.RecordSweepRun("error")
		return err
	}

	// The leaderboard achievement crowns the leader of a finished week, so it
	// only fires on the weekly boundary, and before any Monday reset can zero
	// the counters it reads.
	if now.UTC().Weekday() == time.Monday {
		s.checkLeaderboard(users, now)
	}

	for i := range users {
		user := &users[i]
		if err := s.sweepUserSafely(ctx, user, now); err != nil {
			s.log.Error().
				Err(err).
				Uint("user_id", user.ID).
				Msg("Sweep failed for user, continuing")
		}
	}

	expired, err := s.streaks.ExpireStale(streakCutoff(now))
	if err != nil {
		s.log.Error().Err(err).Msg("Failed to expire stale streaks")
	} else if expired > 0 {
		s.log.Info().Int64("count", expired).Msg("Expired stale streaks")
		metrics.RecordStreaksExpired(expired)
	}

	metrics.RecordSweepRun("success")
	metrics.ObserveSweepDuration(time.Since(start))
	s.log.Info().
		Int("users", len(users)).
		Dur("duration", time.Since(start)).
		Msg("Daily sweep finished")
	return nil
}

// sweepUserSafely converts a panic from one user's sweep into an error so a
// single bad row cannot take down the whole pass.
func (s *Service) sweepUserSafely(ctx context.Context, user *models.User, now time.Time) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("sweep panicked: %v", r)
		}
	}()
	return s.sweepUser(ctx, user, now)
}

// sweepUser runs the calendar-boundary work for one user. Boundaries are
// judged in the user's own timezone, so a sweep at a fixed server hour still
// hits each user's Monday and first-of-month correctly.
func (s *Service) sweepUser(ctx context.Context, user *models.User, now time.Time) error {
	localNow := now.In(user.Location())

	if localNow.Weekday() == time.Monday {
		if err := s.checkPerfectWeek(ctx, user, localNow); err != nil {
			return err
		}
		// The reset below zeroes whatever the bonus just added to the weekly
		// counter. The points still land in the totals and the ledger; only
		// the new week starts clean.
		if err := s.resetCounter(user.ID, func(u *models.User) { u.WeeklyPoints = 0 }); err != nil {
			return err
		}
	}

	if localNow.Day() == 1 {
		if err := s.checkPerfectMonth(ctx, user, localNow); err != nil {
			return err
		}
		// Same as the weekly case: the bonus's contribution to the monthly
		// counter is zeroed here, its total and ledger entry survive.
		if err := s.resetCounter(user.ID, func(u *models.User) { u.MonthlyPoints = 0 }); err != nil {
			return err
		}
	}

	return nil
}

// checkPerfectWeek awards the perfect week bonus for the week that just
// ended: every task due in it completed, with a configurable minimum so an
// empty week does not count. The event is stamped inside the window, which
// makes rerunning the sweep on the same day a no-op.
func (s *Service) checkPerfectWeek(ctx context.Context, user *models.User, localNow time.Time) error {
	weekEnd := startOfDay(localNow)
	weekStart := weekEnd.AddDate(0, 0, -7)

	return s.awardWindowBonus(ctx, user, catalog.EventPerfectWeek, weekStart, weekEnd, s.cfg.PerfectWeekMinTasks)
}

// checkPerfectMonth does the same for the month that just ended.
func (s *Service) checkPerfectMonth(ctx context.Context, user *models.User, localNow time.Time) error {
	monthEnd := startOfDay(localNow)
	monthStart := monthEnd.AddDate(0, -1, 0)

	return s.awardWindowBonus(ctx, user, catalog.EventPerfectMonth, monthStart, monthEnd, s.cfg.PerfectMonthMinTasks)
}

func (s *Service) awardWindowBonus(ctx context.Context, user *models.User, eventType string, start, end time.Time, minTasks int) error {
	total, completed, err := s.activity.CountTasksDueBetween(user.ID, start, end)
	if err != nil {
		return err
	}
	if total < int64(minTasks) || completed < total {
		return nil
	}

	awarded, err := s.events.ExistsInWindow(user.ID, eventType, start, end)
	if err != nil {
		return err
	}
	if awarded {
		return nil
	}

	_, err = s.processor.Process(ctx, engine.ProcessRequest{
		UserID:     user.ID,
		EventType:  eventType,
		OccurredAt: end.Add(-time.Second),
	})
	if err != nil {
		return err
	}

	s.log.Info().
		Uint("user_id", user.ID).
		Str("event_type", eventType).
		Time("window_start", start).
		Msg("Awarded window bonus")
	return nil
}

// checkLeaderboard grants the leaderboard achievement to the current weekly
// leader. Ties break toward the earliest registered user. A minimum point
// floor keeps a dead week from crowning a zero-point leader.
func (s *Service) checkLeaderboard(users []models.User, now time.Time) {
	var top *models.User
	for i := range users {
		if top == nil || users[i].WeeklyPoints > top.WeeklyPoints {
			top = &users[i]
		}
	}
	if top == nil || top.WeeklyPoints < s.cfg.LeaderboardMinPoints {
		return
	}

	granted, err := s.granter.GrantByName(top, catalog.AchievementLeaderboardLegend, now)
	if err != nil {
		s.log.Error().Err(err).Uint("user_id", top.ID).Msg("Failed to grant leaderboard achievement")
		return
	}
	if granted {
		s.log.Info().
			Uint("user_id", top.ID).
			Int("weekly_points", top.WeeklyPoints).
			Msg("Granted leaderboard achievement")
	}
}

// resetCounter re-reads the user and zeroes one counter. The re-read matters
// because a bonus awarded moments earlier changed the row.
func (s *Service) resetCounter(userID uint, zero func(*models.User)) error {
	fresh, err := s.users.GetByID(userID)
	if err != nil {
		return err
	}
	zero(fresh)
	return s.users.Update(fresh)
}

// streakCutoff returns the newest last-activity date that still counts as
// alive. Anything older missed at least one full day.
func streakCutoff(now time.Time) time.Time {
	return startOfDay(now.UTC()).AddDate(0, 0, -1)
}

func startOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}
