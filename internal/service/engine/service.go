// Package engine is the write path of the momentum system: it turns activity
// events into point awards, streak updates, achievement grants, and level
// changes, atomically per event.
package engine

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/plannerhq/momentum/internal/catalog"
	"github.com/plannerhq/momentum/internal/metrics"
	"github.com/plannerhq/momentum/internal/models"
	"github.com/plannerhq/momentum/internal/repository"
	"github.com/plannerhq/momentum/internal/service/achievements"
	"github.com/plannerhq/momentum/internal/service/ledger"
	"github.com/plannerhq/momentum/internal/service/streaks"
	"github.com/plannerhq/momentum/pkg/logger"
)

// Engine errors surfaced to the API layer.
var (
	ErrUserNotFound         = errors.New("user not found")
	ErrEventNotFound        = errors.New("event not found")
	ErrEventAlreadyReverted = errors.New("event already reverted")
	ErrEventUserMismatch    = errors.New("event belongs to a different user")
	ErrMissingEventType     = errors.New("event_type is required when no event_id is given")
)

// ProcessRequest describes one activity event to score.
type ProcessRequest struct {
	UserID     uint
	EventType  string
	EventID    string // optional; supplied by callers that need idempotency
	Metadata   map[string]interface{}
	OccurredAt time.Time // zero value means now
}

// AchievementGrant is the slice of an achievement the event response carries.
type AchievementGrant struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	PointReward int    `json:"point_reward"`
	Icon        string `json:"icon"`
}

// ProcessResult reports everything one event changed.
type ProcessResult struct {
	EventID         string             `json:"event_id"`
	EventType       string             `json:"event_type"`
	UserID          uint               `json:"user_id"`
	PointsAwarded   int                `json:"points_awarded"`
	TotalPoints     int                `json:"total_points"`
	WeeklyPoints    int                `json:"weekly_points"`
	MonthlyPoints   int                `json:"monthly_points"`
	Level           int                `json:"level"`
	LevelTitle      string             `json:"level_title"`
	LeveledUp       bool               `json:"leveled_up"`
	Streak          *streaks.Result    `json:"streak,omitempty"`
	NewAchievements []AchievementGrant `json:"new_achievements,omitempty"`
	Duplicate       bool               `json:"duplicate,omitempty"`
}

// RevertRequest undoes a previously processed event. When EventID is set the
// stored award amount is deducted exactly; otherwise the amount is recomputed
// from EventType and Metadata.
type RevertRequest struct {
	UserID    uint
	EventID   string
	EventType string
	Metadata  map[string]interface{}
}

// RevertResult reports the outcome of a reversal.
type RevertResult struct {
	EventID        string `json:"event_id,omitempty"`
	UserID         uint   `json:"user_id"`
	PointsDeducted int    `json:"points_deducted"`
	TotalPoints    int    `json:"total_points"`
	Level          int    `json:"level"`
	LeveledDown    bool   `json:"leveled_down"`
}

// Service is the momentum event processor. Each event runs in a single
// database transaction, and events for the same user are serialized through
// a per-user lock so concurrent submissions cannot race on the counters.
type Service struct {
	db           *repository.DB
	users        *repository.UserRepository
	levels       *repository.LevelRepository
	achievements *repository.AchievementRepository
	activity     *repository.ActivityRepository
	streaks      *repository.StreakRepository
	events       *repository.EventRepository
	locks        userLocks
	log          *logger.Logger
}

// NewService creates the event processor.
func NewService(db *repository.DB, log *logger.Logger) *Service {
	return &Service{
		db:           db,
		users:        repository.NewUserRepository(db),
		levels:       repository.NewLevelRepository(db),
		achievements: repository.NewAchievementRepository(db),
		activity:     repository.NewActivityRepository(db),
		streaks:      repository.NewStreakRepository(db),
		events:       repository.NewEventRepository(db),
		log:          log,
	}
}

// Process scores one event and applies all of its effects. Submitting the
// same EventID twice returns the stored outcome without reprocessing.
func (s *Service) Process(ctx context.Context, req ProcessRequest) (*ProcessResult, error) {
	unlock := s.locks.lock(req.UserID)
	defer unlock()

	occurredAt := req.OccurredAt
	if occurredAt.IsZero() {
		occurredAt = time.Now().UTC()
	}

	var result *ProcessResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		events := s.events.WithTx(tx)

		user, err := users.GetByID(req.UserID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}

		eventID := req.EventID
		if eventID != "" {
			existing, err := events.GetByEventID(eventID)
			if err != nil {
				return err
			}
			if existing != nil {
				result = s.duplicateResult(user, existing)
				return nil
			}
		} else {
			eventID = uuid.NewString()
		}

		meta := catalog.ParseMeta(req.Metadata)
		points := catalog.FinalPoints(req.EventType, meta)

		ledgerSvc := ledger.NewServiceWithInterfaces(users, s.levels.WithTx(tx), s.log)
		streakSvc := streaks.NewServiceWithInterfaces(s.streaks.WithTx(tx), s.log)

		streakResult, err := streakSvc.Update(user, req.EventType, occurredAt)
		if err != nil {
			return err
		}

		newLevel, err := ledgerSvc.Award(user, points)
		if err != nil {
			return err
		}

		if err := events.Create(&models.MomentumEvent{
			EventID:       eventID,
			UserID:        user.ID,
			EventType:     req.EventType,
			PointsAwarded: points,
			OccurredAt:    occurredAt,
		}); err != nil {
			return err
		}

		achSvc := achievements.NewServiceWithInterfaces(
			s.achievements.WithTx(tx),
			s.activity.WithTx(tx),
			s.streaks.WithTx(tx),
			ledgerSvc,
			s.log,
		)
		granted, err := achSvc.CheckAll(user, occurredAt)
		if err != nil {
			return err
		}

		result = &ProcessResult{
			EventID:         eventID,
			EventType:       req.EventType,
			UserID:          user.ID,
			PointsAwarded:   points,
			TotalPoints:     user.TotalPoints,
			WeeklyPoints:    user.WeeklyPoints,
			MonthlyPoints:   user.MonthlyPoints,
			Streak:          streakResult,
			NewAchievements: toGrants(granted),
			LeveledUp:       newLevel != nil,
		}
		if user.CurrentLevel != nil {
			result.Level = user.CurrentLevel.LevelNumber
			result.LevelTitle = user.CurrentLevel.Title
		}
		return nil
	})
	if err != nil {
		metrics.RecordEventProcessed(req.EventType, "error")
		return nil, err
	}

	if result.Duplicate {
		metrics.RecordEventProcessed(req.EventType, "duplicate")
		return result, nil
	}

	metrics.RecordEventProcessed(req.EventType, "success")
	metrics.RecordPointsAwarded(req.EventType, result.PointsAwarded)
	s.log.Info().
		Str("event_id", result.EventID).
		Str("event_type", req.EventType).
		Uint("user_id", req.UserID).
		Int("points", result.PointsAwarded).
		Msg("Processed momentum event")
	return result, nil
}

// Revert deducts the points an event awarded. With an EventID the stored
// amount is deducted exactly and the event is marked so it cannot be
// reverted twice. Without one the amount is recomputed from the event type
// and metadata, which only matches the original award when the caller
// resubmits identical metadata. Streaks and achievements are never unwound.
func (s *Service) Revert(ctx context.Context, req RevertRequest) (*RevertResult, error) {
	unlock := s.locks.lock(req.UserID)
	defer unlock()

	var result *RevertResult
	err := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		users := s.users.WithTx(tx)
		events := s.events.WithTx(tx)

		user, err := users.GetByID(req.UserID)
		if err != nil {
			if repository.IsNotFound(err) {
				return ErrUserNotFound
			}
			return err
		}

		var points int
		eventID := req.EventID
		if eventID != "" {
			event, err := events.GetByEventID(eventID)
			if err != nil {
				return err
			}
			if event == nil {
				return ErrEventNotFound
			}
			if event.UserID != req.UserID {
				return ErrEventUserMismatch
			}
			if event.Reverted {
				return ErrEventAlreadyReverted
			}
			points = event.PointsAwarded
			if err := events.MarkReverted(event); err != nil {
				return err
			}
		} else {
			if req.EventType == "" {
				return ErrMissingEventType
			}
			points = catalog.FinalPoints(req.EventType, catalog.ParseMeta(req.Metadata))
		}

		ledgerSvc := ledger.NewServiceWithInterfaces(users, s.levels.WithTx(tx), s.log)
		downLevel, err := ledgerSvc.Deduct(user, points)
		if err != nil {
			return err
		}

		result = &RevertResult{
			EventID:        eventID,
			UserID:         user.ID,
			PointsDeducted: points,
			TotalPoints:    user.TotalPoints,
			LeveledDown:    downLevel != nil,
		}
		if user.CurrentLevel != nil {
			result.Level = user.CurrentLevel.LevelNumber
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	metrics.RecordPointsReverted(result.PointsDeducted)
	s.log.Info().
		Str("event_id", result.EventID).
		Uint("user_id", req.UserID).
		Int("points", result.PointsDeducted).
		Msg("Reverted momentum event")
	return result, nil
}

// duplicateResult reports the user's current state for an event that was
// already processed under the same EventID.
func (s *Service) duplicateResult(user *models.User, event *models.MomentumEvent) *ProcessResult {
	result := &ProcessResult{
		EventID:       event.EventID,
		EventType:     event.EventType,
		UserID:        user.ID,
		PointsAwarded: event.PointsAwarded,
		TotalPoints:   user.TotalPoints,
		WeeklyPoints:  user.WeeklyPoints,
		MonthlyPoints: user.MonthlyPoints,
		Duplicate:     true,
	}
	if user.CurrentLevel != nil {
		result.Level = user.CurrentLevel.LevelNumber
		result.LevelTitle = user.CurrentLevel.Title
	}
	return result
}

func toGrants(granted []models.Achievement) []AchievementGrant {
	if len(granted) == 0 {
		return nil
	}
	grants := make([]AchievementGrant, 0, len(granted))
	for _, a := range granted {
		grants = append(grants, AchievementGrant{
			Name:        a.Name,
			Description: a.Description,
			PointReward: a.PointReward,
			Icon:        a.Icon,
		})
	}
	return grants
}

// userLocks serializes event processing per user. Locks are never removed;
// the map grows with the number of distinct users seen by this process.
type userLocks struct {
	locks sync.Map // uint -> *sync.Mutex
}

func (l *userLocks) lock(userID uint) func() {
	mu, _ := l.locks.LoadOrStore(userID, &sync.Mutex{})
	m := mu.(*sync.Mutex)
	m.Lock()
	return m.Unlock
}
