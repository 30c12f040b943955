package catalog

import (
	"github.com/plannerhq/momentum/internal/models"
)

// LevelDef describes one rung of the ladder before it is persisted.
type LevelDef struct {
	Number         int          `yaml:"number"`
	PointsRequired int          `yaml:"points_required"`
	Title          string       `yaml:"title"`
	Perks          models.Perks `yaml:"perks"`
}

// Levels returns the level ladder in ascending order. Level 1 requires zero
// points; thresholds are strictly increasing.
func Levels() []LevelDef {
	return levelLadder
}

// MaxLevel returns the highest level number in the ladder.
func MaxLevel() int {
	return levelLadder[len(levelLadder)-1].Number
}

// LevelForPoints returns the highest level whose threshold is satisfied by
// the given lifetime points.
func LevelForPoints(points int) LevelDef {
	level := levelLadder[0]
	for _, def := range levelLadder {
		if points >= def.PointsRequired {
			level = def
		}
	}
	return level
}

var levelLadder = []LevelDef{
	{
		Number:         1,
		PointsRequired: 0,
		Title:          "Productivity Rookie",
		Perks:          models.Perks{},
	},
	{
		Number:         2,
		PointsRequired: 100,
		Title:          "Efficiency Explorer",
		Perks:          models.Perks{CustomBackgrounds: true},
	},
	{
		Number:         3,
		PointsRequired: 300,
		Title:          "Momentum Builder",
		Perks:          models.Perks{CustomBackgrounds: true, AnalyticsAccess: true},
	},
	{
		Number:         4,
		PointsRequired: 700,
		Title:          "Progress Professional",
		Perks:          models.Perks{CustomBackgrounds: true, AnalyticsAccess: true, CustomThemes: true},
	},
	{
		Number:         5,
		PointsRequired: 1500,
		Title:          "Productivity Warrior",
		Perks: models.Perks{
			CustomBackgrounds: true,
			AnalyticsAccess:   true,
			CustomThemes:      true,
			AdvancedAnalytics: true,
		},
	},
	{
		Number:         6,
		PointsRequired: 3000,
		Title:          "Time Lord",
		Perks:          models.Perks{AllFeatures: true, SpecialBadge: true},
	},
	{
		Number:         7,
		PointsRequired: 6000,
		Title:          "Efficiency Emperor",
		Perks:          models.Perks{AllFeatures: true, SpecialBadge: true, MentorStatus: true},
	},
	{
		Number:         8,
		PointsRequired: 12000,
		Title:          "Productivity Legend",
		Perks: models.Perks{
			AllFeatures:        true,
			SpecialBadge:       true,
			MentorStatus:       true,
			CustomAchievements: true,
		},
	},
	{
		Number:         9,
		PointsRequired: 24000,
		Title:          "Momentum Master",
		Perks: models.Perks{
			AllFeatures:        true,
			SpecialBadge:       true,
			MentorStatus:       true,
			CustomAchievements: true,
		},
	},
	{
		Number:         10,
		PointsRequired: 50000,
		Title:          "Ultimate Achiever",
		Perks: models.Perks{
			AllFeatures:        true,
			SpecialBadge:       true,
			MentorStatus:       true,
			CustomAchievements: true,
			LegendaryStatus:    true,
		},
	},
}
