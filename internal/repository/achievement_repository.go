package repository

import (
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/plannerhq/momentum/internal/models"
)

// AchievementRepository handles achievement catalog and per-user grant state.
type AchievementRepository struct {
	db *gorm.DB
}

// NewAchievementRepository creates a new achievement repository.
func NewAchievementRepository(db *DB) *AchievementRepository {
	return &AchievementRepository{db: db.DB}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *AchievementRepository) WithTx(tx *gorm.DB) *AchievementRepository {
	return &AchievementRepository{db: tx}
}

// GetAll retrieves the full achievement catalog.
func (r *AchievementRepository) GetAll() ([]models.Achievement, error) {
	var achievements []models.Achievement
	if err := r.db.Order("id ASC").Find(&achievements).Error; err != nil {
		return nil, fmt.Errorf("failed to list achievements: %w", err)
	}
	return achievements, nil
}

// GetByCategory retrieves the catalog filtered by category.
func (r *AchievementRepository) GetByCategory(category string) ([]models.Achievement, error) {
	var achievements []models.Achievement
	err := r.db.Where("category = ?", category).Order("id ASC").Find(&achievements).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list achievements for category %s: %w", category, err)
	}
	return achievements, nil
}

// GetByName retrieves a catalog achievement by its unique name.
func (r *AchievementRepository) GetByName(name string) (*models.Achievement, error) {
	var achievement models.Achievement
	if err := r.db.Where("name = ?", name).First(&achievement).Error; err != nil {
		return nil, fmt.Errorf("failed to get achievement %q: %w", name, err)
	}
	return &achievement, nil
}

// GetUserAchievement retrieves the tracking row for a (user, achievement)
// pair, or nil when none exists yet.
func (r *AchievementRepository) GetUserAchievement(userID, achievementID uint) (*models.UserAchievement, error) {
	var ua models.UserAchievement
	err := r.db.
		Where("user_id = ? AND achievement_id = ?", userID, achievementID).
		First(&ua).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user achievement: %w", err)
	}
	return &ua, nil
}

// HasCompleted reports whether the user already holds the achievement.
func (r *AchievementRepository) HasCompleted(userID, achievementID uint) (bool, error) {
	var count int64
	err := r.db.Model(&models.UserAchievement{}).
		Where("user_id = ? AND achievement_id = ? AND completed = ?", userID, achievementID, true).
		Count(&count).Error
	if err != nil {
		return false, fmt.Errorf("failed to check achievement completion: %w", err)
	}
	return count > 0, nil
}

// Grant upserts the tracking row to completed. Granting an already completed
// achievement is a no-op, which makes repeated evaluation passes safe.
func (r *AchievementRepository) Grant(userID, achievementID uint, at time.Time) error {
	existing, err := r.GetUserAchievement(userID, achievementID)
	if err != nil {
		return err
	}

	if existing == nil {
		ua := models.UserAchievement{
			UserID:        userID,
			AchievementID: achievementID,
			Completed:     true,
			CompletedAt:   &at,
		}
		if err := r.db.Create(&ua).Error; err != nil {
			return fmt.Errorf("failed to grant achievement: %w", err)
		}
		return nil
	}

	if existing.Completed {
		return nil
	}

	existing.Completed = true
	existing.CompletedAt = &at
	if err := r.db.Save(existing).Error; err != nil {
		return fmt.Errorf("failed to grant achievement: %w", err)
	}
	return nil
}

// SetProgress updates the progress counter on the tracking row, creating it
// lazily when missing. Progress on a completed row is left untouched.
func (r *AchievementRepository) SetProgress(userID, achievementID uint, progress int) error {
	existing, err := r.GetUserAchievement(userID, achievementID)
	if err != nil {
		return err
	}

	if existing == nil {
		ua := models.UserAchievement{
			UserID:        userID,
			AchievementID: achievementID,
			Progress:      progress,
		}
		if err := r.db.Create(&ua).Error; err != nil {
			return fmt.Errorf("failed to create user achievement: %w", err)
		}
		return nil
	}

	if existing.Completed {
		return nil
	}

	existing.Progress = progress
	if err := r.db.Save(existing).Error; err != nil {
		return fmt.Errorf("failed to update achievement progress: %w", err)
	}
	return nil
}

// GetUserAchievements retrieves all tracking rows for a user with the catalog
// achievement preloaded, most recently completed first.
func (r *AchievementRepository) GetUserAchievements(userID uint) ([]models.UserAchievement, error) {
	var uas []models.UserAchievement
	err := r.db.
		Where("user_id = ?", userID).
		Preload("Achievement").
		Order("completed_at DESC NULLS LAST").
		Find(&uas).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list user achievements: %w", err)
	}
	return uas, nil
}

// GetRecentCompleted retrieves the user's most recently completed
// achievements.
func (r *AchievementRepository) GetRecentCompleted(userID uint, limit int) ([]models.UserAchievement, error) {
	var uas []models.UserAchievement
	err := r.db.
		Where("user_id = ? AND completed = ?", userID, true).
		Preload("Achievement").
		Order("completed_at DESC").
		Limit(limit).
		Find(&uas).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list recent achievements: %w", err)
	}
	return uas, nil
}

// CountCompleted returns how many achievements the user holds.
func (r *AchievementRepository) CountCompleted(userID uint) (int64, error) {
	var count int64
	err := r.db.Model(&models.UserAchievement{}).
		Where("user_id = ? AND completed = ?", userID, true).
		Count(&count).Error
	if err != nil {
		return 0, fmt.Errorf("failed to count completed achievements: %w", err)
	}
	return count, nil
}
