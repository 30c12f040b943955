package momentum

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"gorm.io/gorm"

	"github.com/plannerhq/momentum/internal/models"
	"github.com/plannerhq/momentum/internal/service/engine"
	"github.com/plannerhq/momentum/internal/service/leaderboard"
	"github.com/plannerhq/momentum/pkg/logger"
)

// Mock services for testing
type mockEventService struct {
	processResult *engine.ProcessResult
	processErr    error
	revertResult  *engine.RevertResult
	revertErr     error

	lastProcess engine.ProcessRequest
	lastRevert  engine.RevertRequest
}

func (m *mockEventService) Process(ctx context.Context, req engine.ProcessRequest) (*engine.ProcessResult, error) {
	m.lastProcess = req
	return m.processResult, m.processErr
}

func (m *mockEventService) Revert(ctx context.Context, req engine.RevertRequest) (*engine.RevertResult, error) {
	m.lastRevert = req
	return m.revertResult, m.revertErr
}

type mockQueryService struct {
	board        *leaderboard.Leaderboard
	rank         *leaderboard.RankResult
	rankErr      error
	progress     *leaderboard.Progress
	progressErr  error
	stats        *leaderboard.Stats
	achievements []models.UserAchievement
	streaks      []models.Streak
	levels       []models.Level
	catalog      []models.Achievement
	lastCategory string
}

func (m *mockQueryService) Leaderboard(ctx context.Context, period string, limit int) (*leaderboard.Leaderboard, error) {
	return m.board, nil
}
func (m *mockQueryService) Rank(ctx context.Context, userID uint, period string) (*leaderboard.RankResult, error) {
	return m.rank, m.rankErr
}
func (m *mockQueryService) Progress(ctx context.Context, userID uint) (*leaderboard.Progress, error) {
	return m.progress, m.progressErr
}
func (m *mockQueryService) Stats(ctx context.Context, userID uint) (*leaderboard.Stats, error) {
	return m.stats, nil
}
func (m *mockQueryService) UserAchievements(ctx context.Context, userID uint) ([]models.UserAchievement, error) {
	return m.achievements, nil
}
func (m *mockQueryService) UserStreaks(ctx context.Context, userID uint) ([]models.Streak, error) {
	return m.streaks, nil
}
func (m *mockQueryService) Levels(ctx context.Context) ([]models.Level, error) {
	return m.levels, nil
}
func (m *mockQueryService) Achievements(ctx context.Context, category string) ([]models.Achievement, error) {
	m.lastCategory = category
	return m.catalog, nil
}

type mockHealth struct {
	err error
}

func (m *mockHealth) Health() error { return m.err }

func setupTestRouter(events EventService, queries QueryService, health HealthChecker) *gin.Engine {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	handler := NewHandlerWithInterfaces(events, queries, health, logger.New("error", "console", "stdout"))
	handler.RegisterRoutes(router)
	return router
}

func postJSON(router *gin.Engine, path string, body interface{}) *httptest.ResponseRecorder {
	payload, _ := json.Marshal(body)
	req := httptest.NewRequest(http.MethodPost, path, bytes.NewReader(payload))
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func get(router *gin.Engine, path string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	w := httptest.NewRecorder()
	router.ServeHTTP(w, req)
	return w
}

func TestProcessEvent(t *testing.T) {
	events := &mockEventService{processResult: &engine.ProcessResult{
		EventID:       "evt-1",
		EventType:     "task_completion",
		UserID:        1,
		PointsAwarded: 3,
		TotalPoints:   103,
	}}
	router := setupTestRouter(events, &mockQueryService{}, nil)

	w := postJSON(router, "/api/v1/momentum/events", gin.H{
		"user_id":    1,
		"event_type": "task_completion",
		"metadata":   gin.H{"task_id": 42},
	})

	assert.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Contains(t, resp, "result")
	assert.Contains(t, resp, "generated_at")

	assert.Equal(t, uint(1), events.lastProcess.UserID)
	assert.Equal(t, "task_completion", events.lastProcess.EventType)
	assert.Equal(t, float64(42), events.lastProcess.Metadata["task_id"])
}

func TestProcessEvent_DuplicateReturns200(t *testing.T) {
	events := &mockEventService{processResult: &engine.ProcessResult{
		EventID:   "evt-1",
		Duplicate: true,
	}}
	router := setupTestRouter(events, &mockQueryService{}, nil)

	w := postJSON(router, "/api/v1/momentum/events", gin.H{
		"user_id":    1,
		"event_type": "task_completion",
		"event_id":   "evt-1",
	})
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestProcessEvent_InvalidBody(t *testing.T) {
	router := setupTestRouter(&mockEventService{}, &mockQueryService{}, nil)

	// event_type is required
	w := postJSON(router, "/api/v1/momentum/events", gin.H{"user_id": 1})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	// user_id is required
	w = postJSON(router, "/api/v1/momentum/events", gin.H{"event_type": "task_completion"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestProcessEvent_UserNotFound(t *testing.T) {
	events := &mockEventService{processErr: engine.ErrUserNotFound}
	router := setupTestRouter(events, &mockQueryService{}, nil)

	w := postJSON(router, "/api/v1/momentum/events", gin.H{
		"user_id":    99,
		"event_type": "task_completion",
	})
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestProcessEvent_InternalError(t *testing.T) {
	events := &mockEventService{processErr: errors.New("database gone")}
	router := setupTestRouter(events, &mockQueryService{}, nil)

	w := postJSON(router, "/api/v1/momentum/events", gin.H{
		"user_id":    1,
		"event_type": "task_completion",
	})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.NotContains(t, w.Body.String(), "database gone")
}

func TestRevertEvent(t *testing.T) {
	events := &mockEventService{revertResult: &engine.RevertResult{
		EventID:        "evt-1",
		UserID:         1,
		PointsDeducted: 3,
		TotalPoints:    100,
	}}
	router := setupTestRouter(events, &mockQueryService{}, nil)

	w := postJSON(router, "/api/v1/momentum/events/revert", gin.H{
		"user_id":  1,
		"event_id": "evt-1",
	})

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "evt-1", events.lastRevert.EventID)
}

func TestRevertEvent_ErrorMapping(t *testing.T) {
	cases := []struct {
		name string
		err  error
		code int
	}{
		{"user not found", engine.ErrUserNotFound, http.StatusNotFound},
		{"event not found", engine.ErrEventNotFound, http.StatusNotFound},
		{"already reverted", engine.ErrEventAlreadyReverted, http.StatusConflict},
		{"user mismatch", engine.ErrEventUserMismatch, http.StatusBadRequest},
		{"missing event type", engine.ErrMissingEventType, http.StatusBadRequest},
		{"internal", errors.New("boom"), http.StatusInternalServerError},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			router := setupTestRouter(&mockEventService{revertErr: tc.err}, &mockQueryService{}, nil)
			w := postJSON(router, "/api/v1/momentum/events/revert", gin.H{
				"user_id":  1,
				"event_id": "evt-1",
			})
			assert.Equal(t, tc.code, w.Code)
		})
	}
}

func TestGetLeaderboard(t *testing.T) {
	queries := &mockQueryService{board: &leaderboard.Leaderboard{
		Period: "weekly",
		Entries: []leaderboard.Entry{
			{Rank: 1, UserID: 2, Username: "ben", Points: 50},
			{Rank: 2, UserID: 1, Username: "ada", Points: 10},
		},
		GeneratedAt: time.Now().UTC(),
	}}
	router := setupTestRouter(&mockEventService{}, queries, nil)

	w := get(router, "/api/v1/momentum/leaderboard?period=weekly&limit=10")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, "weekly", resp["period"])
	assert.Equal(t, float64(2), resp["total_entries"])
	assert.Contains(t, resp, "leaderboard")
	assert.Contains(t, resp, "generated_at")
}

func TestGetLeaderboard_InvalidParams(t *testing.T) {
	router := setupTestRouter(&mockEventService{}, &mockQueryService{}, nil)

	for _, path := range []string{
		"/api/v1/momentum/leaderboard?period=daily",
		"/api/v1/momentum/leaderboard?limit=0",
		"/api/v1/momentum/leaderboard?limit=2000",
		"/api/v1/momentum/leaderboard?limit=abc",
	} {
		w := get(router, path)
		assert.Equal(t, http.StatusBadRequest, w.Code, "path %s", path)
	}
}

func TestGetUserProgress(t *testing.T) {
	queries := &mockQueryService{progress: &leaderboard.Progress{
		UserID:      1,
		Username:    "ada",
		TotalPoints: 150,
		Level:       2,
	}}
	router := setupTestRouter(&mockEventService{}, queries, nil)

	w := get(router, "/api/v1/momentum/users/1/progress")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "ada")
}

func TestGetUserProgress_NotFound(t *testing.T) {
	queries := &mockQueryService{progressErr: gorm.ErrRecordNotFound}
	router := setupTestRouter(&mockEventService{}, queries, nil)

	w := get(router, "/api/v1/momentum/users/99/progress")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUserProgress_InvalidID(t *testing.T) {
	router := setupTestRouter(&mockEventService{}, &mockQueryService{}, nil)

	w := get(router, "/api/v1/momentum/users/abc/progress")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetUserAchievements(t *testing.T) {
	completedAt := time.Now()
	queries := &mockQueryService{achievements: []models.UserAchievement{
		{UserID: 1, AchievementID: 1, Progress: 100, Completed: true, CompletedAt: &completedAt},
		{UserID: 1, AchievementID: 2, Progress: 40},
	}}
	router := setupTestRouter(&mockEventService{}, queries, nil)

	w := get(router, "/api/v1/momentum/users/1/achievements")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(1), resp["completed"])
}

func TestGetUserRank_NotRanked(t *testing.T) {
	queries := &mockQueryService{rankErr: leaderboard.ErrUserNotRanked}
	router := setupTestRouter(&mockEventService{}, queries, nil)

	w := get(router, "/api/v1/momentum/users/1/rank")
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestGetUserRank_InvalidPeriod(t *testing.T) {
	router := setupTestRouter(&mockEventService{}, &mockQueryService{}, nil)

	w := get(router, "/api/v1/momentum/users/1/rank?period=hourly")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestGetLevels(t *testing.T) {
	queries := &mockQueryService{levels: []models.Level{
		{LevelNumber: 1, Title: "Beginner"},
		{LevelNumber: 2, Title: "Momentum Builder", PointsRequired: 100},
	}}
	router := setupTestRouter(&mockEventService{}, queries, nil)

	w := get(router, "/api/v1/momentum/levels")

	assert.Equal(t, http.StatusOK, w.Code)

	var resp map[string]interface{}
	assert.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	assert.Equal(t, float64(2), resp["total_levels"])
}

func TestGetAchievementCatalog(t *testing.T) {
	queries := &mockQueryService{catalog: []models.Achievement{
		{Name: "Task Master", PointReward: 500},
	}}
	router := setupTestRouter(&mockEventService{}, queries, nil)

	w := get(router, "/api/v1/momentum/achievements")

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "Task Master")

	get(router, "/api/v1/momentum/achievements?category=consistency")
	assert.Equal(t, "consistency", queries.lastCategory)
}

func TestGetHealth(t *testing.T) {
	router := setupTestRouter(&mockEventService{}, &mockQueryService{}, &mockHealth{})

	w := get(router, "/health")
	assert.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), "healthy")
}

func TestGetHealth_Unhealthy(t *testing.T) {
	router := setupTestRouter(&mockEventService{}, &mockQueryService{}, &mockHealth{err: errors.New("connection refused")})

	w := get(router, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)
	assert.Contains(t, w.Body.String(), "unhealthy")
}
