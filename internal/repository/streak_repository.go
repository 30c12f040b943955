package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/plannerhq/momentum/internal/models"
)

// StreakRepository handles streak database operations.
type StreakRepository struct {
	db *gorm.DB
}

// NewStreakRepository creates a new streak repository.
func NewStreakRepository(db *DB) *StreakRepository {
	return &StreakRepository{db: db.DB}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *StreakRepository) WithTx(tx *gorm.DB) *StreakRepository {
	return &StreakRepository{db: tx}
}

// Create creates a new streak row.
func (r *StreakRepository) Create(streak *models.Streak) error {
	if err := r.db.Create(streak).Error; err != nil {
		return fmt.Errorf("failed to create streak: %w", err)
	}
	return nil
}

// Update persists changes to a streak row.
func (r *StreakRepository) Update(streak *models.Streak) error {
	if err := r.db.Save(streak).Error; err != nil {
		return fmt.Errorf("failed to update streak: %w", err)
	}
	return nil
}

// GetByUserAndType retrieves one (user, bucket) streak, or nil when the user
// has no history in that bucket yet.
func (r *StreakRepository) GetByUserAndType(userID uint, streakType string) (*models.Streak, error) {
	var streak models.Streak
	err := r.db.
		Where("user_id = ? AND streak_type = ?", userID, streakType).
		First(&streak).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get streak %s for user %d: %w", streakType, userID, err)
	}
	return &streak, nil
}

// GetByUser retrieves all streaks for a user.
func (r *StreakRepository) GetByUser(userID uint) ([]models.Streak, error) {
	var streaks []models.Streak
	err := r.db.Where("user_id = ?", userID).Order("streak_type ASC").Find(&streaks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list streaks for user %d: %w", userID, err)
	}
	return streaks, nil
}

// GetActiveByUser retrieves the user's streaks with a non-zero current count.
func (r *StreakRepository) GetActiveByUser(userID uint) ([]models.Streak, error) {
	var streaks []models.Streak
	err := r.db.
		Where("user_id = ? AND current_count > 0", userID).
		Order("streak_type ASC").
		Find(&streaks).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list active streaks for user %d: %w", userID, err)
	}
	return streaks, nil
}

// MaxLongest returns the user's longest streak ever across all buckets.
func (r *StreakRepository) MaxLongest(userID uint) (int, error) {
	var longest *int
	err := r.db.Model(&models.Streak{}).
		Where("user_id = ?", userID).
		Select("MAX(longest_count)").
		Scan(&longest).Error
	if err != nil {
		return 0, fmt.Errorf("failed to get longest streak for user %d: %w", userID, err)
	}
	if longest == nil {
		return 0, nil
	}
	return *longest, nil
}

// ExpireStale zeroes the current count of every streak whose last activity
// date is strictly before the cutoff, preserving longest counts. Returns the
// number of rows reset.
func (r *StreakRepository) ExpireStale(cutoff time.Time) (int64, error) {
	result := r.db.Model(&models.Streak{}).
		Where("last_activity_date < ? AND current_count > 0", cutoff).
		Update("current_count", 0)
	if result.Error != nil {
		return 0, fmt.Errorf("failed to expire stale streaks: %w", result.Error)
	}
	return result.RowsAffected, nil
}
