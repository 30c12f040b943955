// Package leaderboard is the read side of the momentum system: rankings,
// per-user progress, and summary statistics.
package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/plannerhq/momentum/internal/cache"
	"github.com/plannerhq/momentum/internal/metrics"
	"github.com/plannerhq/momentum/internal/models"
	"github.com/plannerhq/momentum/internal/repository"
	"github.com/plannerhq/momentum/pkg/logger"
)

// ErrUserNotRanked is returned when a user does not appear in a ranking.
var ErrUserNotRanked = errors.New("user not ranked")

// Ranking periods.
const (
	PeriodWeekly  = "weekly"
	PeriodMonthly = "monthly"
	PeriodAllTime = "all_time"
)

// ValidPeriod reports whether the period name is one the rankings support.
func ValidPeriod(period string) bool {
	switch period {
	case PeriodWeekly, PeriodMonthly, PeriodAllTime:
		return true
	}
	return false
}

// UserStore is the user read model the rankings depend on.
type UserStore interface {
	GetByID(id uint) (*models.User, error)
	ListAll() ([]models.User, error)
}

// LevelStore resolves the next rung of the ladder.
type LevelStore interface {
	GetAll() ([]models.Level, error)
	NextAbove(points int) (*models.Level, error)
}

// AchievementStore is the achievement read model.
type AchievementStore interface {
	GetAll() ([]models.Achievement, error)
	GetByCategory(category string) ([]models.Achievement, error)
	GetUserAchievements(userID uint) ([]models.UserAchievement, error)
	GetRecentCompleted(userID uint, limit int) ([]models.UserAchievement, error)
	CountCompleted(userID uint) (int64, error)
}

// StreakStore is the streak read model.
type StreakStore interface {
	GetByUser(userID uint) ([]models.Streak, error)
	GetActiveByUser(userID uint) ([]models.Streak, error)
	MaxLongest(userID uint) (int, error)
}

// ActivityStore supplies the lifetime activity counts for the stats view.
type ActivityStore interface {
	CountCompletedTasks(userID uint) (int64, error)
	CountCompletedGoals(userID uint) (int64, error)
	CountCompletedTimeSlots(userID uint) (int64, error)
	SumFocusHours(userID uint) (float64, error)
}

// EventStore lists a user's recent scoring history.
type EventStore interface {
	GetByUser(userID uint, limit int) ([]models.MomentumEvent, error)
}

// Entry is one row of a ranking.
type Entry struct {
	Rank             int    `json:"rank"`
	UserID           uint   `json:"user_id"`
	Username         string `json:"username"`
	Points           int    `json:"points"`
	Level            int    `json:"level"`
	LevelTitle       string `json:"level_title,omitempty"`
	AchievementCount int64  `json:"achievement_count"`
	LongestStreak    int    `json:"longest_streak"`
}

// Leaderboard is a ranked list for one period.
type Leaderboard struct {
	Period      string    `json:"period"`
	Entries     []Entry   `json:"entries"`
	GeneratedAt time.Time `json:"generated_at"`
}

// NextLevel describes the rung above the user's current one.
type NextLevel struct {
	Level          int     `json:"level"`
	Title          string  `json:"title"`
	PointsRequired int     `json:"points_required"`
	PointsNeeded   int     `json:"points_needed"`
	Progress       float64 `json:"progress"`
}

// Progress is the per-user momentum summary.
type Progress struct {
	UserID             uint                     `json:"user_id"`
	Username           string                   `json:"username"`
	TotalPoints        int                      `json:"total_points"`
	WeeklyPoints       int                      `json:"weekly_points"`
	MonthlyPoints      int                      `json:"monthly_points"`
	Level              int                      `json:"level"`
	LevelTitle         string                   `json:"level_title"`
	LevelProgress      float64                  `json:"level_progress"`
	Perks              models.Perks             `json:"perks"`
	NextLevel          *NextLevel               `json:"next_level,omitempty"`
	ActiveStreaks      []models.Streak          `json:"active_streaks"`
	RecentAchievements []models.UserAchievement `json:"recent_achievements"`
}

// RankResult locates one user inside a ranking.
type RankResult struct {
	Period     string `json:"period"`
	UserID     uint   `json:"user_id"`
	Rank       int    `json:"rank"`
	Points     int    `json:"points"`
	TotalUsers int    `json:"total_users"`
}

// Stats is the lifetime summary for one user.
type Stats struct {
	UserID             uint                   `json:"user_id"`
	TotalPoints        int                    `json:"total_points"`
	Level              int                    `json:"level"`
	CompletedTasks     int64                  `json:"completed_tasks"`
	CompletedGoals     int64                  `json:"completed_goals"`
	CompletedTimeSlots int64                  `json:"completed_time_slots"`
	FocusHours         float64                `json:"focus_hours"`
	AchievementsEarned int64                  `json:"achievements_earned"`
	LongestStreak      int                    `json:"longest_streak"`
	Rank               int                    `json:"rank"`
	RecentEvents       []models.MomentumEvent `json:"recent_events"`
}

// Service serves rankings and per-user read models, caching the expensive
// full-table ranking in Redis.
type Service struct {
	users        UserStore
	levels       LevelStore
	achievements AchievementStore
	streaks      StreakStore
	activity     ActivityStore
	events       EventStore
	cache        cache.Cache
	cacheTTL     time.Duration
	log          *logger.Logger
}

// NewService creates a query service backed by database repositories.
func NewService(db *repository.DB, c cache.Cache, cacheTTL time.Duration, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(
		repository.NewUserRepository(db),
		repository.NewLevelRepository(db),
		repository.NewAchievementRepository(db),
		repository.NewStreakRepository(db),
		repository.NewActivityRepository(db),
		repository.NewEventRepository(db),
		c,
		cacheTTL,
		log,
	)
}

// NewServiceWithInterfaces creates a query service with explicit
// dependencies, used by tests.
func NewServiceWithInterfaces(
	users UserStore,
	levels LevelStore,
	achievements AchievementStore,
	streaks StreakStore,
	activity ActivityStore,
	events EventStore,
	c cache.Cache,
	cacheTTL time.Duration,
	log *logger.Logger,
) *Service {
	return &Service{
		users:        users,
		levels:       levels,
		achievements: achievements,
		streaks:      streaks,
		activity:     activity,
		events:       events,
		cache:        c,
		cacheTTL:     cacheTTL,
		log:          log,
	}
}

// Leaderboard returns the top users for a period. Ranks are dense over the
// returned slice; ties keep registration order so repeated queries return a
// stable ordering. Results are cached briefly since the ranking scans every
// user.
func (s *Service) Leaderboard(ctx context.Context, period string, limit int) (*Leaderboard, error) {
	key := fmt.Sprintf("momentum:leaderboard:%s:%d", period, limit)

	if cached, err := s.cache.Get(ctx, key); err != nil {
		s.log.Warn().Err(err).Msg("Leaderboard cache read failed")
	} else if cached != "" {
		var board Leaderboard
		if err := json.Unmarshal([]byte(cached), &board); err == nil {
			metrics.RecordLeaderboardCache("hit")
			return &board, nil
		}
	}
	metrics.RecordLeaderboardCache("miss")

	entries, err := s.ranking(period)
	if err != nil {
		return nil, err
	}
	if limit > 0 && len(entries) > limit {
		entries = entries[:limit]
	}

	// The achievement and streak columns need a query per user, so they are
	// filled in only for the rows that survive the limit.
	for i := range entries {
		if entries[i].AchievementCount, err = s.achievements.CountCompleted(entries[i].UserID); err != nil {
			return nil, err
		}
		if entries[i].LongestStreak, err = s.streaks.MaxLongest(entries[i].UserID); err != nil {
			return nil, err
		}
	}

	board := &Leaderboard{
		Period:      period,
		Entries:     entries,
		GeneratedAt: time.Now().UTC(),
	}

	if err := s.cache.Set(ctx, key, board, s.cacheTTL); err != nil {
		s.log.Warn().Err(err).Msg("Leaderboard cache write failed")
	}
	return board, nil
}

// Rank locates one user in the full ranking for a period.
func (s *Service) Rank(ctx context.Context, userID uint, period string) (*RankResult, error) {
	entries, err := s.ranking(period)
	if err != nil {
		return nil, err
	}

	for _, entry := range entries {
		if entry.UserID == userID {
			return &RankResult{
				Period:     period,
				UserID:     userID,
				Rank:       entry.Rank,
				Points:     entry.Points,
				TotalUsers: len(entries),
			}, nil
		}
	}
	return nil, fmt.Errorf("user %d not ranked: %w", userID, ErrUserNotRanked)
}

// Progress builds the per-user momentum summary.
func (s *Service) Progress(ctx context.Context, userID uint) (*Progress, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	progress := &Progress{
		UserID:        user.ID,
		Username:      user.Username,
		TotalPoints:   user.TotalPoints,
		WeeklyPoints:  user.WeeklyPoints,
		MonthlyPoints: user.MonthlyPoints,
	}

	currentThreshold := 0
	if user.CurrentLevel != nil {
		progress.Level = user.CurrentLevel.LevelNumber
		progress.LevelTitle = user.CurrentLevel.Title
		currentThreshold = user.CurrentLevel.PointsRequired
		perks, err := user.CurrentLevel.DecodePerks()
		if err != nil {
			s.log.Warn().Err(err).Uint("user_id", userID).Msg("Failed to decode level perks")
		}
		progress.Perks = perks
	}

	next, err := s.levels.NextAbove(user.TotalPoints)
	if err != nil {
		return nil, err
	}
	if next != nil {
		span := next.PointsRequired - currentThreshold
		pct := 0.0
		if span > 0 {
			pct = float64(user.TotalPoints-currentThreshold) / float64(span) * 100
		}
		progress.LevelProgress = pct
		progress.NextLevel = &NextLevel{
			Level:          next.LevelNumber,
			Title:          next.Title,
			PointsRequired: next.PointsRequired,
			PointsNeeded:   next.PointsRequired - user.TotalPoints,
			Progress:       pct,
		}
	} else {
		// At the top of the ladder the band is complete no matter how far
		// past the threshold the total runs.
		progress.LevelProgress = 100
	}

	progress.ActiveStreaks, err = s.streaks.GetActiveByUser(userID)
	if err != nil {
		return nil, err
	}
	progress.RecentAchievements, err = s.achievements.GetRecentCompleted(userID, 5)
	if err != nil {
		return nil, err
	}
	return progress, nil
}

// Stats builds the lifetime statistics view.
func (s *Service) Stats(ctx context.Context, userID uint) (*Stats, error) {
	user, err := s.users.GetByID(userID)
	if err != nil {
		return nil, err
	}

	stats := &Stats{
		UserID:      user.ID,
		TotalPoints: user.TotalPoints,
	}
	if user.CurrentLevel != nil {
		stats.Level = user.CurrentLevel.LevelNumber
	}

	if stats.CompletedTasks, err = s.activity.CountCompletedTasks(userID); err != nil {
		return nil, err
	}
	if stats.CompletedGoals, err = s.activity.CountCompletedGoals(userID); err != nil {
		return nil, err
	}
	if stats.CompletedTimeSlots, err = s.activity.CountCompletedTimeSlots(userID); err != nil {
		return nil, err
	}
	if stats.FocusHours, err = s.activity.SumFocusHours(userID); err != nil {
		return nil, err
	}
	if stats.AchievementsEarned, err = s.achievements.CountCompleted(userID); err != nil {
		return nil, err
	}
	if stats.LongestStreak, err = s.streaks.MaxLongest(userID); err != nil {
		return nil, err
	}
	if stats.RecentEvents, err = s.events.GetByUser(userID, 10); err != nil {
		return nil, err
	}

	entries, err := s.ranking(PeriodAllTime)
	if err != nil {
		return nil, err
	}
	for _, entry := range entries {
		if entry.UserID == userID {
			stats.Rank = entry.Rank
			break
		}
	}
	return stats, nil
}

// UserAchievements lists every achievement tracking row for a user.
func (s *Service) UserAchievements(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	if _, err := s.users.GetByID(userID); err != nil {
		return nil, err
	}
	return s.achievements.GetUserAchievements(userID)
}

// UserStreaks lists every streak row for a user.
func (s *Service) UserStreaks(ctx context.Context, userID uint) ([]models.Streak, error) {
	if _, err := s.users.GetByID(userID); err != nil {
		return nil, err
	}
	return s.streaks.GetByUser(userID)
}

// Levels returns the full level ladder.
func (s *Service) Levels(ctx context.Context) ([]models.Level, error) {
	return s.levels.GetAll()
}

// Achievements returns the achievement catalog, optionally restricted to one
// category.
func (s *Service) Achievements(ctx context.Context, category string) ([]models.Achievement, error) {
	if category == "" {
		return s.achievements.GetAll()
	}
	return s.achievements.GetByCategory(category)
}

// ranking builds the full sorted ranking for a period.
func (s *Service) ranking(period string) ([]Entry, error) {
	users, err := s.users.ListAll()
	if err != nil {
		return nil, err
	}

	points := periodPoints(period)
	// ListAll orders by ID, and the stable sort preserves that order
	// within equal point totals.
	sort.SliceStable(users, func(i, j int) bool {
		return points(&users[i]) > points(&users[j])
	})

	entries := make([]Entry, 0, len(users))
	for i := range users {
		user := &users[i]
		entry := Entry{
			Rank:     i + 1,
			UserID:   user.ID,
			Username: user.Username,
			Points:   points(user),
		}
		if user.CurrentLevel != nil {
			entry.Level = user.CurrentLevel.LevelNumber
			entry.LevelTitle = user.CurrentLevel.Title
		}
		entries = append(entries, entry)
	}
	return entries, nil
}

func periodPoints(period string) func(*models.User) int {
	switch period {
	case PeriodWeekly:
		return func(u *models.User) int { return u.WeeklyPoints }
	case PeriodMonthly:
		return func(u *models.User) int { return u.MonthlyPoints }
	default:
		return func(u *models.User) int { return u.TotalPoints }
	}
}
