package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
	"gorm.io/gorm"

	"github.com/plannerhq/momentum/internal/models"
)

// Override is the optional on-disk catalog override. Deployments can replace
// the built-in achievements or levels without a rebuild; an empty section
// keeps the built-in data.
type Override struct {
	Levels       []LevelDef       `yaml:"levels"`
	Achievements []AchievementDef `yaml:"achievements"`
}

// LoadOverride reads a catalog override file. A missing path is not an error.
func LoadOverride(path string) (*Override, error) {
	if path == "" {
		return &Override{}, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return &Override{}, nil
		}
		return nil, fmt.Errorf("failed to read catalog override: %w", err)
	}

	var override Override
	if err := yaml.Unmarshal(data, &override); err != nil {
		return nil, fmt.Errorf("failed to parse catalog override: %w", err)
	}
	return &override, nil
}

// Seed upserts the level ladder and achievement catalog into storage. It is
// idempotent: existing rows are matched by level number or achievement name
// and updated in place, so reseeding never duplicates catalog data.
func Seed(db *gorm.DB, override *Override) error {
	levels := levelLadder
	achievements := achievementList
	if override != nil {
		if len(override.Levels) > 0 {
			levels = override.Levels
		}
		if len(override.Achievements) > 0 {
			achievements = override.Achievements
		}
	}

	for _, def := range levels {
		perks, err := json.Marshal(def.Perks)
		if err != nil {
			return fmt.Errorf("failed to encode perks for level %d: %w", def.Number, err)
		}

		var existing models.Level
		err = db.Where("level_number = ?", def.Number).First(&existing).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			level := models.Level{
				LevelNumber:    def.Number,
				PointsRequired: def.PointsRequired,
				Title:          def.Title,
				Perks:          perks,
			}
			if err := db.Create(&level).Error; err != nil {
				return fmt.Errorf("failed to seed level %d: %w", def.Number, err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up level %d: %w", def.Number, err)
		default:
			existing.PointsRequired = def.PointsRequired
			existing.Title = def.Title
			existing.Perks = perks
			if err := db.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to update level %d: %w", def.Number, err)
			}
		}
	}

	for _, def := range achievements {
		var existing models.Achievement
		err := db.Where("name = ?", def.Name).First(&existing).Error
		switch {
		case err == gorm.ErrRecordNotFound:
			achievement := models.Achievement{
				Name:           def.Name,
				Description:    def.Description,
				PointReward:    def.PointReward,
				Category:       def.Category,
				CriterionKind:  def.CriterionKind,
				CriterionValue: def.CriterionValue,
				Icon:           def.Icon,
			}
			if err := db.Create(&achievement).Error; err != nil {
				return fmt.Errorf("failed to seed achievement %q: %w", def.Name, err)
			}
		case err != nil:
			return fmt.Errorf("failed to look up achievement %q: %w", def.Name, err)
		default:
			existing.Description = def.Description
			existing.PointReward = def.PointReward
			existing.Category = def.Category
			existing.CriterionKind = def.CriterionKind
			existing.CriterionValue = def.CriterionValue
			existing.Icon = def.Icon
			if err := db.Save(&existing).Error; err != nil {
				return fmt.Errorf("failed to update achievement %q: %w", def.Name, err)
			}
		}
	}

	return nil
}
