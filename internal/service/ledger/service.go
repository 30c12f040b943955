// Package ledger maintains the per-user point counters and the level
// derived from them. All point mutations in the system funnel through
// Award and Deduct so the counters and the level can never drift apart.
package ledger

import (
	"encoding/json"
	"fmt"

	"github.com/plannerhq/momentum/internal/catalog"
	"github.com/plannerhq/momentum/internal/metrics"
	"github.com/plannerhq/momentum/internal/models"
	"github.com/plannerhq/momentum/internal/repository"
	"github.com/plannerhq/momentum/pkg/logger"
)

// UserStore is the user persistence the ledger depends on.
type UserStore interface {
	Update(user *models.User) error
}

// LevelStore is the level ladder persistence the ledger depends on.
type LevelStore interface {
	GetByNumber(number int) (*models.Level, error)
	Create(level *models.Level) error
}

// Service applies point changes to a user and keeps their level in sync.
type Service struct {
	users  UserStore
	levels LevelStore
	log    *logger.Logger
}

// NewService creates a ledger service backed by database repositories.
func NewService(db *repository.DB, log *logger.Logger) *Service {
	return NewServiceWithInterfaces(
		repository.NewUserRepository(db),
		repository.NewLevelRepository(db),
		log,
	)
}

// NewServiceWithInterfaces creates a ledger service with explicit
// dependencies, used by tests and by transaction-bound callers.
func NewServiceWithInterfaces(users UserStore, levels LevelStore, log *logger.Logger) *Service {
	return &Service{users: users, levels: levels, log: log}
}

// Award credits points to all three counters and promotes the user through
// any levels the new total satisfies. Returns the level reached when the
// user leveled up, nil otherwise.
func (s *Service) Award(user *models.User, points int) (*models.Level, error) {
	if points < 0 {
		return nil, fmt.Errorf("cannot award negative points: %d", points)
	}

	user.TotalPoints += points
	user.WeeklyPoints += points
	user.MonthlyPoints += points

	newLevel, err := s.checkLevelUp(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.Update(user); err != nil {
		return nil, err
	}

	if newLevel != nil {
		s.log.Info().
			Uint("user_id", user.ID).
			Int("level", newLevel.LevelNumber).
			Str("title", newLevel.Title).
			Msg("User leveled up")
		metrics.RecordLevelUp("up")
	}

	return newLevel, nil
}

// Deduct removes points from the counters, clamping each at zero
// independently, and demotes the user when the lifetime total falls below
// the current level's threshold. Returns the level after demotion when one
// happened, nil otherwise.
func (s *Service) Deduct(user *models.User, points int) (*models.Level, error) {
	if points < 0 {
		return nil, fmt.Errorf("cannot deduct negative points: %d", points)
	}

	user.TotalPoints = clampZero(user.TotalPoints - points)
	user.WeeklyPoints = clampZero(user.WeeklyPoints - points)
	user.MonthlyPoints = clampZero(user.MonthlyPoints - points)

	newLevel, err := s.checkLevelDown(user)
	if err != nil {
		return nil, err
	}

	if err := s.users.Update(user); err != nil {
		return nil, err
	}

	if newLevel != nil {
		s.log.Info().
			Uint("user_id", user.ID).
			Int("level", newLevel.LevelNumber).
			Msg("User leveled down")
		metrics.RecordLevelUp("down")
	}

	return newLevel, nil
}

// EnsureLevel assigns the user their starting level when none is set yet.
func (s *Service) EnsureLevel(user *models.User) error {
	if user.CurrentLevelID != nil {
		return nil
	}
	level, err := s.levelRow(catalog.LevelForPoints(user.TotalPoints))
	if err != nil {
		return err
	}
	user.CurrentLevelID = &level.ID
	user.CurrentLevel = level
	return s.users.Update(user)
}

// checkLevelUp walks the ladder upward while the next threshold is met.
func (s *Service) checkLevelUp(user *models.User) (*models.Level, error) {
	current, err := s.currentLevelNumber(user)
	if err != nil {
		return nil, err
	}

	var reached *models.Level
	for current < catalog.MaxLevel() {
		next := catalog.Levels()[current] // ladder is zero-indexed by number-1
		if user.TotalPoints < next.PointsRequired {
			break
		}
		row, err := s.levelRow(next)
		if err != nil {
			return nil, err
		}
		user.CurrentLevelID = &row.ID
		user.CurrentLevel = row
		reached = row
		current = next.Number
	}
	return reached, nil
}

// checkLevelDown demotes at most one level per deduction, mirroring how a
// single reverted event can only undo the promotion it caused.
func (s *Service) checkLevelDown(user *models.User) (*models.Level, error) {
	current, err := s.currentLevelNumber(user)
	if err != nil {
		return nil, err
	}
	if current <= 1 {
		return nil, nil
	}

	def := catalog.Levels()[current-1]
	if user.TotalPoints >= def.PointsRequired {
		return nil, nil
	}

	row, err := s.levelRow(catalog.Levels()[current-2])
	if err != nil {
		return nil, err
	}
	user.CurrentLevelID = &row.ID
	user.CurrentLevel = row
	return row, nil
}

func (s *Service) currentLevelNumber(user *models.User) (int, error) {
	if user.CurrentLevelID == nil {
		level, err := s.levelRow(catalog.Levels()[0])
		if err != nil {
			return 0, err
		}
		user.CurrentLevelID = &level.ID
		user.CurrentLevel = level
		return level.LevelNumber, nil
	}
	if user.CurrentLevel != nil {
		return user.CurrentLevel.LevelNumber, nil
	}
	// Level not preloaded; the ID alone does not carry the number, so
	// resolve through the ladder position implied by the points.
	def := catalog.LevelForPoints(user.TotalPoints)
	row, err := s.levelRow(def)
	if err != nil {
		return 0, err
	}
	user.CurrentLevel = row
	return row.LevelNumber, nil
}

// levelRow fetches the persisted row for a ladder definition, creating it
// lazily when the catalog has not been seeded.
func (s *Service) levelRow(def catalog.LevelDef) (*models.Level, error) {
	row, err := s.levels.GetByNumber(def.Number)
	if err == nil {
		return row, nil
	}
	if !repository.IsNotFound(err) {
		return nil, err
	}

	perks, err := json.Marshal(def.Perks)
	if err != nil {
		return nil, fmt.Errorf("failed to encode perks for level %d: %w", def.Number, err)
	}
	level := &models.Level{
		LevelNumber:    def.Number,
		PointsRequired: def.PointsRequired,
		Title:          def.Title,
		Perks:          perks,
	}
	if err := s.levels.Create(level); err != nil {
		return nil, err
	}
	return level, nil
}

func clampZero(v int) int {
	if v < 0 {
		return 0
	}
	return v
}
