package models

import (
	"encoding/json"
	"time"
)

// Level represents one rung of the level ladder. Catalog data, immutable
// after seeding; points_required is strictly increasing in level_number.
type Level struct {
	ID             uint            `gorm:"primaryKey" json:"id"`
	LevelNumber    int             `gorm:"uniqueIndex;not null" json:"level_number"`
	PointsRequired int             `gorm:"not null" json:"points_required"`
	Title          string          `gorm:"not null;size:100" json:"title"`
	Perks          json.RawMessage `gorm:"type:jsonb" json:"perks"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

// TableName specifies the table name for Level model.
func (Level) TableName() string {
	return "levels"
}

// Perks is the typed capability-flag record stored on a level. It is decoded
// once at the catalog boundary and never handled as opaque text elsewhere.
type Perks struct {
	CustomBackgrounds  bool `json:"custom_backgrounds,omitempty"`
	AnalyticsAccess    bool `json:"analytics_access,omitempty"`
	CustomThemes       bool `json:"custom_themes,omitempty"`
	AdvancedAnalytics  bool `json:"advanced_analytics,omitempty"`
	AllFeatures        bool `json:"all_features,omitempty"`
	SpecialBadge       bool `json:"special_badge,omitempty"`
	MentorStatus       bool `json:"mentor_status,omitempty"`
	CustomAchievements bool `json:"custom_achievements,omitempty"`
	LegendaryStatus    bool `json:"legendary_status,omitempty"`
}

// DecodePerks decodes the level's perk flags.
func (l *Level) DecodePerks() (Perks, error) {
	var p Perks
	if len(l.Perks) == 0 {
		return p, nil
	}
	err := json.Unmarshal(l.Perks, &p)
	return p, err
}

// Achievement criterion kinds.
const (
	CriterionCount        = "count"
	CriterionStreak       = "streak"
	CriterionTime         = "cumulative_time"
	CriterionSpecificTime = "specific_time_window"
	CriterionCompound     = "compound"
)

// Achievement categories.
const (
	CategoryProductivity   = "productivity"
	CategoryConsistency    = "consistency"
	CategoryMilestone      = "milestone"
	CategoryTimeManagement = "time_management"
	CategoryFocus          = "focus"
	CategoryGrowth         = "growth"
	CategorySocial         = "social"
)

// Achievement represents an earnable achievement. Catalog data, immutable
// after seeding.
type Achievement struct {
	ID             uint      `gorm:"primaryKey" json:"id"`
	Name           string    `gorm:"uniqueIndex;not null;size:100" json:"name"`
	Description    string    `gorm:"type:text" json:"description"`
	PointReward    int       `gorm:"not null" json:"point_reward"`
	Category       string    `gorm:"size:50;index" json:"category"`
	CriterionKind  string    `gorm:"size:50;not null" json:"criterion_kind"`
	CriterionValue int       `gorm:"not null" json:"criterion_value"`
	Icon           string    `gorm:"size:50" json:"icon"`
	CreatedAt      time.Time `json:"created_at"`
	UpdatedAt      time.Time `json:"updated_at"`
}

// TableName specifies the table name for Achievement model.
func (Achievement) TableName() string {
	return "achievements"
}

// UserAchievement tracks a user's progress toward one achievement. One row
// per (user, achievement) pair; once Completed flips to true it never reverts.
type UserAchievement struct {
	ID            uint        `gorm:"primaryKey" json:"id"`
	UserID        uint        `gorm:"not null;uniqueIndex:idx_user_achievement" json:"user_id"`
	User          User        `gorm:"foreignKey:UserID" json:"user,omitempty"`
	AchievementID uint        `gorm:"not null;uniqueIndex:idx_user_achievement" json:"achievement_id"`
	Achievement   Achievement `gorm:"foreignKey:AchievementID" json:"achievement,omitempty"`
	Progress      int         `gorm:"not null;default:0" json:"progress"`
	Completed     bool        `gorm:"not null;default:false" json:"completed"`
	CompletedAt   *time.Time  `json:"completed_at"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// TableName specifies the table name for UserAchievement model.
func (UserAchievement) TableName() string {
	return "user_achievements"
}

// Streak tracks consecutive-day activity for one (user, bucket) pair.
// LastActivityDate is a calendar date in the user's timezone. Invariant:
// LongestCount >= CurrentCount.
type Streak struct {
	ID               uint      `gorm:"primaryKey" json:"id"`
	UserID           uint      `gorm:"not null;uniqueIndex:idx_user_streak" json:"user_id"`
	User             User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	StreakType       string    `gorm:"size:50;not null;uniqueIndex:idx_user_streak" json:"streak_type"`
	CurrentCount     int       `gorm:"not null;default:0" json:"current_count"`
	LongestCount     int       `gorm:"not null;default:0" json:"longest_count"`
	LastActivityDate time.Time `gorm:"type:date;not null" json:"last_activity_date"`
	CreatedAt        time.Time `json:"created_at"`
	UpdatedAt        time.Time `json:"updated_at"`
}

// TableName specifies the table name for Streak model.
func (Streak) TableName() string {
	return "streaks"
}

// MomentumEvent records one processed event together with the points it
// actually awarded, so a revert deducts exactly what was granted.
type MomentumEvent struct {
	ID            uint      `gorm:"primaryKey" json:"id"`
	EventID       string    `gorm:"uniqueIndex;not null;size:36" json:"event_id"`
	UserID        uint      `gorm:"not null;index" json:"user_id"`
	User          User      `gorm:"foreignKey:UserID" json:"user,omitempty"`
	EventType     string    `gorm:"size:50;not null;index" json:"event_type"`
	PointsAwarded int       `gorm:"not null" json:"points_awarded"`
	Reverted      bool      `gorm:"not null;default:false" json:"reverted"`
	OccurredAt    time.Time `gorm:"not null;index" json:"occurred_at"`
	CreatedAt     time.Time `json:"created_at"`
}

// TableName specifies the table name for MomentumEvent model.
func (MomentumEvent) TableName() string {
	return "momentum_events"
}
