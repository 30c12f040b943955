package repository

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/plannerhq/momentum/internal/models"
)

// LevelRepository handles level ladder database operations.
type LevelRepository struct {
	db *gorm.DB
}

// NewLevelRepository creates a new level repository.
func NewLevelRepository(db *DB) *LevelRepository {
	return &LevelRepository{db: db.DB}
}

// WithTx returns a copy of the repository bound to the given transaction.
func (r *LevelRepository) WithTx(tx *gorm.DB) *LevelRepository {
	return &LevelRepository{db: tx}
}

// Create creates a new level row.
func (r *LevelRepository) Create(level *models.Level) error {
	if err := r.db.Create(level).Error; err != nil {
		return fmt.Errorf("failed to create level %d: %w", level.LevelNumber, err)
	}
	return nil
}

// GetByID retrieves a level by primary key.
func (r *LevelRepository) GetByID(id uint) (*models.Level, error) {
	var level models.Level
	if err := r.db.First(&level, id).Error; err != nil {
		return nil, fmt.Errorf("failed to get level %d: %w", id, err)
	}
	return &level, nil
}

// GetByNumber retrieves a level by its ladder position.
func (r *LevelRepository) GetByNumber(number int) (*models.Level, error) {
	var level models.Level
	if err := r.db.Where("level_number = ?", number).First(&level).Error; err != nil {
		return nil, fmt.Errorf("failed to get level number %d: %w", number, err)
	}
	return &level, nil
}

// GetAll retrieves the full ladder in ascending order.
func (r *LevelRepository) GetAll() ([]models.Level, error) {
	var levels []models.Level
	if err := r.db.Order("level_number ASC").Find(&levels).Error; err != nil {
		return nil, fmt.Errorf("failed to list levels: %w", err)
	}
	return levels, nil
}

// NextAbove returns the cheapest level whose threshold exceeds the given
// points, or nil when the points already satisfy the top of the ladder.
func (r *LevelRepository) NextAbove(points int) (*models.Level, error) {
	var level models.Level
	err := r.db.
		Where("points_required > ?", points).
		Order("points_required ASC").
		First(&level).Error
	if err == gorm.ErrRecordNotFound {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get next level above %d points: %w", points, err)
	}
	return &level, nil
}
