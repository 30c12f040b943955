package catalog

import (
	"github.com/plannerhq/momentum/internal/models"
)

// Achievement names referenced by the evaluator's compound checks.
const (
	AchievementTaskMaster          = "Task Master"
	AchievementGoalCrusher         = "Goal Crusher"
	AchievementStreakWarrior       = "Streak Warrior"
	AchievementWeeklyWonder        = "Weekly Wonder"
	AchievementEarlyRiser          = "Early Riser"
	AchievementTimeWizard          = "Time Wizard"
	AchievementDeepWorkMaster      = "Deep Work Master"
	AchievementFlowStateChampion   = "Flow State Champion"
	AchievementGoalStrategist      = "Goal Strategist"
	AchievementProductivityPioneer = "Productivity Pioneer"
	AchievementLeaderboardLegend   = "Leaderboard Legend"
)

// AchievementDef describes one achievement before it is persisted.
type AchievementDef struct {
	Name           string `yaml:"name"`
	Description    string `yaml:"description"`
	PointReward    int    `yaml:"point_reward"`
	Category       string `yaml:"category"`
	CriterionKind  string `yaml:"criterion_kind"`
	CriterionValue int    `yaml:"criterion_value"`
	Icon           string `yaml:"icon"`
}

var achievementList = []AchievementDef{
	{
		Name:           AchievementTaskMaster,
		Description:    "Complete 100 tasks",
		PointReward:    500,
		Category:       models.CategoryProductivity,
		CriterionKind:  models.CriterionCount,
		CriterionValue: 100,
		Icon:           "trophy",
	},
	{
		Name:           AchievementGoalCrusher,
		Description:    "Complete 10 goals",
		PointReward:    1000,
		Category:       models.CategoryProductivity,
		CriterionKind:  models.CriterionCount,
		CriterionValue: 10,
		Icon:           "target",
	},
	{
		Name:           AchievementStreakWarrior,
		Description:    "Maintain a 30-day task completion streak",
		PointReward:    1000,
		Category:       models.CategoryConsistency,
		CriterionKind:  models.CriterionStreak,
		CriterionValue: 30,
		Icon:           "fire",
	},
	{
		Name:           AchievementWeeklyWonder,
		Description:    "Complete all planned tasks for 4 consecutive weeks",
		PointReward:    2000,
		Category:       models.CategoryConsistency,
		CriterionKind:  models.CriterionStreak,
		CriterionValue: 28,
		Icon:           "calendar",
	},
	{
		Name:           AchievementEarlyRiser,
		Description:    "Complete 20 tasks before 9 AM",
		PointReward:    500,
		Category:       models.CategoryTimeManagement,
		CriterionKind:  models.CriterionSpecificTime,
		CriterionValue: 20,
		Icon:           "sun",
	},
	{
		Name:           AchievementTimeWizard,
		Description:    "Successfully complete 50 scheduled time slots",
		PointReward:    750,
		Category:       models.CategoryTimeManagement,
		CriterionKind:  models.CriterionCount,
		CriterionValue: 50,
		Icon:           "clock",
	},
	{
		Name:           AchievementDeepWorkMaster,
		Description:    "Complete 10 focused sessions of 2+ hours",
		PointReward:    1500,
		Category:       models.CategoryFocus,
		CriterionKind:  models.CriterionCount,
		CriterionValue: 10,
		Icon:           "zap",
	},
	{
		Name:           AchievementFlowStateChampion,
		Description:    "Accumulate 100 hours of focused work time",
		PointReward:    2000,
		Category:       models.CategoryFocus,
		CriterionKind:  models.CriterionTime,
		CriterionValue: 100,
		Icon:           "activity",
	},
	{
		Name:           AchievementGoalStrategist,
		Description:    "Create and complete 5 goals with at least 5 steps each",
		PointReward:    1500,
		Category:       models.CategoryGrowth,
		CriterionKind:  models.CriterionCompound,
		CriterionValue: 5,
		Icon:           "trending-up",
	},
	{
		Name:           AchievementProductivityPioneer,
		Description:    "Try all productivity features in a week",
		PointReward:    1000,
		Category:       models.CategoryGrowth,
		CriterionKind:  models.CriterionCompound,
		CriterionValue: 1,
		Icon:           "compass",
	},
	{
		Name:           AchievementLeaderboardLegend,
		Description:    "Reach #1 on weekly leaderboard",
		PointReward:    2000,
		Category:       models.CategorySocial,
		CriterionKind:  models.CriterionCompound,
		CriterionValue: 1,
		Icon:           "award",
	},
}
