package leaderboard

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/plannerhq/momentum/internal/models"
	"github.com/plannerhq/momentum/pkg/logger"
	"github.com/plannerhq/momentum/test/mocks"
)

// Mock stores for testing
type mockUserStore struct {
	users     []models.User
	listCalls int
}

func (m *mockUserStore) GetByID(id uint) (*models.User, error) {
	for i := range m.users {
		if m.users[i].ID == id {
			return &m.users[i], nil
		}
	}
	return nil, errors.New("record not found")
}

func (m *mockUserStore) ListAll() ([]models.User, error) {
	m.listCalls++
	out := make([]models.User, len(m.users))
	copy(out, m.users)
	return out, nil
}

type mockLevelStore struct {
	levels []models.Level
}

func (m *mockLevelStore) GetAll() ([]models.Level, error) {
	return m.levels, nil
}

func (m *mockLevelStore) NextAbove(points int) (*models.Level, error) {
	for i := range m.levels {
		if m.levels[i].PointsRequired > points {
			return &m.levels[i], nil
		}
	}
	return nil, nil
}

type mockAchievementStore struct {
	all       []models.Achievement
	rows      []models.UserAchievement
	completed int64
}

func (m *mockAchievementStore) GetAll() ([]models.Achievement, error) { return m.all, nil }
func (m *mockAchievementStore) GetByCategory(category string) ([]models.Achievement, error) {
	var out []models.Achievement
	for _, a := range m.all {
		if a.Category == category {
			out = append(out, a)
		}
	}
	return out, nil
}
func (m *mockAchievementStore) GetUserAchievements(userID uint) ([]models.UserAchievement, error) {
	return m.rows, nil
}
func (m *mockAchievementStore) GetRecentCompleted(userID uint, limit int) ([]models.UserAchievement, error) {
	if len(m.rows) > limit {
		return m.rows[:limit], nil
	}
	return m.rows, nil
}
func (m *mockAchievementStore) CountCompleted(userID uint) (int64, error) { return m.completed, nil }

type mockStreakStore struct {
	streaks []models.Streak
	longest int
}

func (m *mockStreakStore) GetByUser(userID uint) ([]models.Streak, error) { return m.streaks, nil }
func (m *mockStreakStore) GetActiveByUser(userID uint) ([]models.Streak, error) {
	var active []models.Streak
	for _, s := range m.streaks {
		if s.CurrentCount > 0 {
			active = append(active, s)
		}
	}
	return active, nil
}
func (m *mockStreakStore) MaxLongest(userID uint) (int, error) { return m.longest, nil }

type mockActivityStore struct {
	tasks, goals, slots int64
	focusHours          float64
}

func (m *mockActivityStore) CountCompletedTasks(userID uint) (int64, error) { return m.tasks, nil }
func (m *mockActivityStore) CountCompletedGoals(userID uint) (int64, error) { return m.goals, nil }
func (m *mockActivityStore) CountCompletedTimeSlots(userID uint) (int64, error) {
	return m.slots, nil
}
func (m *mockActivityStore) SumFocusHours(userID uint) (float64, error) { return m.focusHours, nil }

type mockEventStore struct {
	events []models.MomentumEvent
}

func (m *mockEventStore) GetByUser(userID uint, limit int) ([]models.MomentumEvent, error) {
	if len(m.events) > limit {
		return m.events[:limit], nil
	}
	return m.events, nil
}

type testDeps struct {
	users        *mockUserStore
	levels       *mockLevelStore
	achievements *mockAchievementStore
	streaks      *mockStreakStore
	activity     *mockActivityStore
	events       *mockEventStore
	cache        *mocks.MockCache
}

func newTestService(deps *testDeps) *Service {
	return NewServiceWithInterfaces(
		deps.users,
		deps.levels,
		deps.achievements,
		deps.streaks,
		deps.activity,
		deps.events,
		deps.cache,
		time.Minute,
		logger.New("error", "console", "stdout"),
	)
}

func defaultDeps() *testDeps {
	level2 := &models.Level{ID: 2, LevelNumber: 2, PointsRequired: 100, Title: "Momentum Builder"}
	return &testDeps{
		users: &mockUserStore{users: []models.User{
			{ID: 1, Username: "ada", TotalPoints: 500, WeeklyPoints: 10, MonthlyPoints: 80, CurrentLevel: level2},
			{ID: 2, Username: "ben", TotalPoints: 150, WeeklyPoints: 50, MonthlyPoints: 60},
			{ID: 3, Username: "cal", TotalPoints: 150, WeeklyPoints: 30, MonthlyPoints: 90},
		}},
		levels: &mockLevelStore{levels: []models.Level{
			{ID: 1, LevelNumber: 1, PointsRequired: 0, Title: "Beginner"},
			{ID: 2, LevelNumber: 2, PointsRequired: 100, Title: "Momentum Builder"},
			{ID: 3, LevelNumber: 3, PointsRequired: 300, Title: "Consistent Achiever"},
		}},
		achievements: &mockAchievementStore{},
		streaks:      &mockStreakStore{},
		activity:     &mockActivityStore{},
		events:       &mockEventStore{},
		cache:        mocks.NewMockCache(),
	}
}

func TestLeaderboard_WeeklyOrder(t *testing.T) {
	svc := newTestService(defaultDeps())

	board, err := svc.Leaderboard(context.Background(), PeriodWeekly, 10)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}

	if board.Period != PeriodWeekly {
		t.Errorf("period = %s, want weekly", board.Period)
	}
	if len(board.Entries) != 3 {
		t.Fatalf("got %d entries, want 3", len(board.Entries))
	}
	wantOrder := []uint{2, 3, 1}
	for i, entry := range board.Entries {
		if entry.UserID != wantOrder[i] {
			t.Errorf("entry %d = user %d, want user %d", i, entry.UserID, wantOrder[i])
		}
		if entry.Rank != i+1 {
			t.Errorf("entry %d rank = %d, want %d", i, entry.Rank, i+1)
		}
	}
	if board.Entries[2].Level != 2 || board.Entries[2].LevelTitle != "Momentum Builder" {
		t.Errorf("level not carried into entry: %+v", board.Entries[2])
	}
}

func TestLeaderboard_EnrichesEntries(t *testing.T) {
	deps := defaultDeps()
	deps.achievements.completed = 4
	deps.streaks.longest = 12
	svc := newTestService(deps)

	board, err := svc.Leaderboard(context.Background(), PeriodWeekly, 10)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	for i, entry := range board.Entries {
		if entry.AchievementCount != 4 {
			t.Errorf("entry %d achievement count = %d, want 4", i, entry.AchievementCount)
		}
		if entry.LongestStreak != 12 {
			t.Errorf("entry %d longest streak = %d, want 12", i, entry.LongestStreak)
		}
	}
}

func TestLeaderboard_AllTimeTiesKeepIDOrder(t *testing.T) {
	svc := newTestService(defaultDeps())

	board, err := svc.Leaderboard(context.Background(), PeriodAllTime, 10)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}

	// Users 2 and 3 both have 150 points; the earlier ID ranks first.
	wantOrder := []uint{1, 2, 3}
	for i, entry := range board.Entries {
		if entry.UserID != wantOrder[i] {
			t.Errorf("entry %d = user %d, want user %d", i, entry.UserID, wantOrder[i])
		}
	}
}

func TestLeaderboard_Limit(t *testing.T) {
	svc := newTestService(defaultDeps())

	board, err := svc.Leaderboard(context.Background(), PeriodMonthly, 2)
	if err != nil {
		t.Fatalf("Leaderboard failed: %v", err)
	}
	if len(board.Entries) != 2 {
		t.Fatalf("got %d entries, want 2", len(board.Entries))
	}
	if board.Entries[0].UserID != 3 || board.Entries[1].UserID != 1 {
		t.Errorf("monthly order wrong: %+v", board.Entries)
	}
}

func TestLeaderboard_CachesResult(t *testing.T) {
	deps := defaultDeps()
	svc := newTestService(deps)

	first, err := svc.Leaderboard(context.Background(), PeriodWeekly, 10)
	if err != nil {
		t.Fatalf("first call failed: %v", err)
	}
	second, err := svc.Leaderboard(context.Background(), PeriodWeekly, 10)
	if err != nil {
		t.Fatalf("second call failed: %v", err)
	}

	if deps.users.listCalls != 1 {
		t.Errorf("ranking computed %d times, want 1", deps.users.listCalls)
	}
	if deps.cache.Sets != 1 {
		t.Errorf("cache written %d times, want 1", deps.cache.Sets)
	}

	firstJSON, _ := json.Marshal(first.Entries)
	secondJSON, _ := json.Marshal(second.Entries)
	if string(firstJSON) != string(secondJSON) {
		t.Errorf("cached entries differ from fresh entries")
	}
}

func TestLeaderboard_DistinctKeysPerPeriod(t *testing.T) {
	deps := defaultDeps()
	svc := newTestService(deps)

	if _, err := svc.Leaderboard(context.Background(), PeriodWeekly, 10); err != nil {
		t.Fatalf("weekly call failed: %v", err)
	}
	if _, err := svc.Leaderboard(context.Background(), PeriodMonthly, 10); err != nil {
		t.Fatalf("monthly call failed: %v", err)
	}
	if deps.users.listCalls != 2 {
		t.Errorf("ranking computed %d times, want 2 for two periods", deps.users.listCalls)
	}
}

func TestRank(t *testing.T) {
	svc := newTestService(defaultDeps())

	rank, err := svc.Rank(context.Background(), 3, PeriodWeekly)
	if err != nil {
		t.Fatalf("Rank failed: %v", err)
	}
	if rank.Rank != 2 {
		t.Errorf("rank = %d, want 2", rank.Rank)
	}
	if rank.Points != 30 {
		t.Errorf("points = %d, want 30", rank.Points)
	}
	if rank.TotalUsers != 3 {
		t.Errorf("total users = %d, want 3", rank.TotalUsers)
	}
}

func TestRank_NotRanked(t *testing.T) {
	svc := newTestService(defaultDeps())

	_, err := svc.Rank(context.Background(), 99, PeriodWeekly)
	if !errors.Is(err, ErrUserNotRanked) {
		t.Fatalf("expected ErrUserNotRanked, got %v", err)
	}
}

func TestProgress(t *testing.T) {
	deps := defaultDeps()
	deps.users.users = []models.User{{
		ID:          1,
		Username:    "ada",
		TotalPoints: 150,
		CurrentLevel: &models.Level{
			ID: 2, LevelNumber: 2, PointsRequired: 100, Title: "Momentum Builder",
			Perks: json.RawMessage(`{"custom_backgrounds":true}`),
		},
	}}
	deps.streaks.streaks = []models.Streak{
		{UserID: 1, StreakType: "daily_tasks", CurrentCount: 4, LongestCount: 9},
		{UserID: 1, StreakType: "weekly_goals", CurrentCount: 0, LongestCount: 2},
	}
	svc := newTestService(deps)

	progress, err := svc.Progress(context.Background(), 1)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}

	if progress.Level != 2 || progress.TotalPoints != 150 {
		t.Errorf("got level %d with %d points", progress.Level, progress.TotalPoints)
	}
	if !progress.Perks.CustomBackgrounds {
		t.Errorf("perks not decoded: %+v", progress.Perks)
	}
	next := progress.NextLevel
	if next == nil {
		t.Fatal("expected a next level")
	}
	if next.Level != 3 || next.PointsRequired != 300 {
		t.Errorf("next level = %+v", next)
	}
	if next.PointsNeeded != 150 {
		t.Errorf("points needed = %d, want 150", next.PointsNeeded)
	}
	if next.Progress != 25 {
		t.Errorf("progress = %f, want 25", next.Progress)
	}
	if progress.LevelProgress != 25 {
		t.Errorf("level progress = %f, want 25", progress.LevelProgress)
	}
	if len(progress.ActiveStreaks) != 1 || progress.ActiveStreaks[0].StreakType != "daily_tasks" {
		t.Errorf("active streaks = %+v", progress.ActiveStreaks)
	}
}

func TestProgress_TopLevel(t *testing.T) {
	deps := defaultDeps()
	deps.users.users = []models.User{{ID: 1, Username: "ada", TotalPoints: 50000}}
	svc := newTestService(deps)

	progress, err := svc.Progress(context.Background(), 1)
	if err != nil {
		t.Fatalf("Progress failed: %v", err)
	}
	if progress.NextLevel != nil {
		t.Errorf("no next level expected at the top, got %+v", progress.NextLevel)
	}
	if progress.LevelProgress != 100 {
		t.Errorf("level progress = %f, want 100 at the top level", progress.LevelProgress)
	}
}

func TestStats(t *testing.T) {
	deps := defaultDeps()
	deps.activity = &mockActivityStore{tasks: 42, goals: 3, slots: 7, focusHours: 12.5}
	deps.achievements.completed = 4
	deps.streaks.longest = 15
	deps.events.events = []models.MomentumEvent{
		{EventID: "a", UserID: 1, EventType: "task_completion", PointsAwarded: 3},
	}
	svc := newTestService(deps)

	stats, err := svc.Stats(context.Background(), 1)
	if err != nil {
		t.Fatalf("Stats failed: %v", err)
	}

	if stats.CompletedTasks != 42 || stats.CompletedGoals != 3 || stats.CompletedTimeSlots != 7 {
		t.Errorf("activity counts = %d/%d/%d", stats.CompletedTasks, stats.CompletedGoals, stats.CompletedTimeSlots)
	}
	if stats.FocusHours != 12.5 {
		t.Errorf("focus hours = %f, want 12.5", stats.FocusHours)
	}
	if stats.AchievementsEarned != 4 {
		t.Errorf("achievements = %d, want 4", stats.AchievementsEarned)
	}
	if stats.LongestStreak != 15 {
		t.Errorf("longest streak = %d, want 15", stats.LongestStreak)
	}
	if stats.Rank != 1 {
		t.Errorf("rank = %d, want 1 for the all-time leader", stats.Rank)
	}
	if len(stats.RecentEvents) != 1 {
		t.Errorf("recent events = %+v", stats.RecentEvents)
	}
}

func TestAchievements_CategoryFilter(t *testing.T) {
	deps := defaultDeps()
	deps.achievements.all = []models.Achievement{
		{Name: "Task Master", Category: models.CategoryProductivity},
		{Name: "Streak Warrior", Category: models.CategoryConsistency},
		{Name: "Weekly Wonder", Category: models.CategoryConsistency},
	}
	svc := newTestService(deps)

	all, err := svc.Achievements(context.Background(), "")
	if err != nil {
		t.Fatalf("Achievements failed: %v", err)
	}
	if len(all) != 3 {
		t.Errorf("got %d achievements, want 3", len(all))
	}

	consistency, err := svc.Achievements(context.Background(), models.CategoryConsistency)
	if err != nil {
		t.Fatalf("Achievements failed: %v", err)
	}
	if len(consistency) != 2 {
		t.Fatalf("got %d consistency achievements, want 2", len(consistency))
	}
	for _, a := range consistency {
		if a.Category != models.CategoryConsistency {
			t.Errorf("achievement %s has category %s", a.Name, a.Category)
		}
	}
}

func TestValidPeriod(t *testing.T) {
	for _, period := range []string{PeriodWeekly, PeriodMonthly, PeriodAllTime} {
		if !ValidPeriod(period) {
			t.Errorf("ValidPeriod(%q) = false", period)
		}
	}
	for _, period := range []string{"", "daily", "yearly", "ALL_TIME"} {
		if ValidPeriod(period) {
			t.Errorf("ValidPeriod(%q) = true", period)
		}
	}
}
