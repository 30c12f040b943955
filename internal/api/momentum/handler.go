// Package momentum provides the REST API for the momentum engine. It exposes
// event submission and reversal plus the read endpoints for progress,
// achievements, streaks, rankings, and the static catalogs.
package momentum

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plannerhq/momentum/internal/models"
	"github.com/plannerhq/momentum/internal/repository"
	"github.com/plannerhq/momentum/internal/service/engine"
	"github.com/plannerhq/momentum/internal/service/leaderboard"
	"github.com/plannerhq/momentum/pkg/logger"
)

// EventService interface for the event write path.
type EventService interface {
	Process(ctx context.Context, req engine.ProcessRequest) (*engine.ProcessResult, error)
	Revert(ctx context.Context, req engine.RevertRequest) (*engine.RevertResult, error)
}

// QueryService interface for the read endpoints.
type QueryService interface {
	Leaderboard(ctx context.Context, period string, limit int) (*leaderboard.Leaderboard, error)
	Rank(ctx context.Context, userID uint, period string) (*leaderboard.RankResult, error)
	Progress(ctx context.Context, userID uint) (*leaderboard.Progress, error)
	Stats(ctx context.Context, userID uint) (*leaderboard.Stats, error)
	UserAchievements(ctx context.Context, userID uint) ([]models.UserAchievement, error)
	UserStreaks(ctx context.Context, userID uint) ([]models.Streak, error)
	Levels(ctx context.Context) ([]models.Level, error)
	Achievements(ctx context.Context, category string) ([]models.Achievement, error)
}

// HealthChecker reports backing store health.
type HealthChecker interface {
	Health() error
}

// Handler handles momentum API requests.
type Handler struct {
	events  EventService
	queries QueryService
	health  HealthChecker
	log     *logger.Logger
}

// NewHandler creates a new momentum handler.
func NewHandler(events *engine.Service, queries *leaderboard.Service, health HealthChecker, log *logger.Logger) *Handler {
	return &Handler{events: events, queries: queries, health: health, log: log}
}

// NewHandlerWithInterfaces creates a new momentum handler with interface dependencies (useful for testing).
func NewHandlerWithInterfaces(events EventService, queries QueryService, health HealthChecker, log *logger.Logger) *Handler {
	return &Handler{events: events, queries: queries, health: health, log: log}
}

// RegisterRoutes mounts the API under /api/v1/momentum.
func (h *Handler) RegisterRoutes(router *gin.Engine) {
	api := router.Group("/api/v1/momentum")
	{
		api.POST("/events", h.ProcessEvent)
		api.POST("/events/revert", h.RevertEvent)
		api.GET("/leaderboard", h.GetLeaderboard)
		api.GET("/levels", h.GetLevels)
		api.GET("/achievements", h.GetAchievementCatalog)
		api.GET("/users/:id/progress", h.GetUserProgress)
		api.GET("/users/:id/achievements", h.GetUserAchievements)
		api.GET("/users/:id/streaks", h.GetUserStreaks)
		api.GET("/users/:id/stats", h.GetUserStats)
		api.GET("/users/:id/rank", h.GetUserRank)
	}
	router.GET("/health", h.GetHealth)
}

// eventRequest is the submission payload for POST /events.
type eventRequest struct {
	UserID     uint                   `json:"user_id" binding:"required"`
	EventType  string                 `json:"event_type" binding:"required"`
	EventID    string                 `json:"event_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	OccurredAt *time.Time             `json:"occurred_at"`
}

// revertRequest is the payload for POST /events/revert.
type revertRequest struct {
	UserID    uint                   `json:"user_id" binding:"required"`
	EventID   string                 `json:"event_id"`
	EventType string                 `json:"event_type"`
	Metadata  map[string]interface{} `json:"metadata"`
}

// ProcessEvent scores one activity event.
// POST /api/v1/momentum/events.
func (h *Handler) ProcessEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	procReq := engine.ProcessRequest{
		UserID:    req.UserID,
		EventType: req.EventType,
		EventID:   req.EventID,
		Metadata:  req.Metadata,
	}
	if req.OccurredAt != nil {
		procReq.OccurredAt = *req.OccurredAt
	}

	result, err := h.events.Process(c.Request.Context(), procReq)
	if err != nil {
		if errors.Is(err, engine.ErrUserNotFound) {
			h.errorResponse(c, http.StatusNotFound, "User not found")
			return
		}
		h.log.Error().Err(err).Uint("user_id", req.UserID).Str("event_type", req.EventType).Msg("Failed to process event")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to process event")
		return
	}

	status := http.StatusCreated
	if result.Duplicate {
		status = http.StatusOK
	}
	c.JSON(status, gin.H{
		"result":       result,
		"generated_at": time.Now().UTC(),
	})
}

// RevertEvent undoes a previously scored event.
// POST /api/v1/momentum/events/revert.
func (h *Handler) RevertEvent(c *gin.Context) {
	var req revertRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.errorResponse(c, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}

	result, err := h.events.Revert(c.Request.Context(), engine.RevertRequest{
		UserID:    req.UserID,
		EventID:   req.EventID,
		EventType: req.EventType,
		Metadata:  req.Metadata,
	})
	if err != nil {
		switch {
		case errors.Is(err, engine.ErrUserNotFound):
			h.errorResponse(c, http.StatusNotFound, "User not found")
		case errors.Is(err, engine.ErrEventNotFound):
			h.errorResponse(c, http.StatusNotFound, "Event not found")
		case errors.Is(err, engine.ErrEventAlreadyReverted):
			h.errorResponse(c, http.StatusConflict, "Event already reverted")
		case errors.Is(err, engine.ErrEventUserMismatch), errors.Is(err, engine.ErrMissingEventType):
			h.errorResponse(c, http.StatusBadRequest, err.Error())
		default:
			h.log.Error().Err(err).Uint("user_id", req.UserID).Msg("Failed to revert event")
			h.errorResponse(c, http.StatusInternalServerError, "Failed to revert event")
		}
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"result":       result,
		"generated_at": time.Now().UTC(),
	})
}

// GetLeaderboard returns the ranked users for a period.
// GET /api/v1/momentum/leaderboard?period=weekly&limit=10.
func (h *Handler) GetLeaderboard(c *gin.Context) {
	period := c.DefaultQuery("period", leaderboard.PeriodWeekly)
	if err := h.validatePeriod(period); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	limit, err := h.parseLimit(c, 10)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	board, err := h.queries.Leaderboard(c.Request.Context(), period, limit)
	if err != nil {
		h.log.Error().Err(err).Str("period", period).Msg("Failed to get leaderboard")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve leaderboard")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"leaderboard":   board.Entries,
		"period":        board.Period,
		"total_entries": len(board.Entries),
		"generated_at":  board.GeneratedAt,
	})
}

// GetUserProgress returns the per-user momentum summary.
// GET /api/v1/momentum/users/:id/progress.
func (h *Handler) GetUserProgress(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	progress, err := h.queries.Progress(c.Request.Context(), userID)
	if err != nil {
		h.userError(c, userID, err, "Failed to retrieve user progress")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"progress":     progress,
		"generated_at": time.Now().UTC(),
	})
}

// GetUserAchievements returns the user's achievement state.
// GET /api/v1/momentum/users/:id/achievements.
func (h *Handler) GetUserAchievements(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	achievements, err := h.queries.UserAchievements(c.Request.Context(), userID)
	if err != nil {
		h.userError(c, userID, err, "Failed to retrieve user achievements")
		return
	}

	completed := 0
	for _, ua := range achievements {
		if ua.Completed {
			completed++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"achievements": achievements,
		"completed":    completed,
		"generated_at": time.Now().UTC(),
	})
}

// GetUserStreaks returns the user's streak state.
// GET /api/v1/momentum/users/:id/streaks.
func (h *Handler) GetUserStreaks(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	streaks, err := h.queries.UserStreaks(c.Request.Context(), userID)
	if err != nil {
		h.userError(c, userID, err, "Failed to retrieve user streaks")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"user_id":      userID,
		"streaks":      streaks,
		"generated_at": time.Now().UTC(),
	})
}

// GetUserStats returns the user's lifetime statistics.
// GET /api/v1/momentum/users/:id/stats.
func (h *Handler) GetUserStats(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	stats, err := h.queries.Stats(c.Request.Context(), userID)
	if err != nil {
		h.userError(c, userID, err, "Failed to retrieve user statistics")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"stats":        stats,
		"generated_at": time.Now().UTC(),
	})
}

// GetUserRank returns the user's position in a ranking, all-time unless a
// period is given.
// GET /api/v1/momentum/users/:id/rank?period=all_time.
func (h *Handler) GetUserRank(c *gin.Context) {
	userID, err := h.parseUserID(c)
	if err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}
	period := c.DefaultQuery("period", leaderboard.PeriodAllTime)
	if err := h.validatePeriod(period); err != nil {
		h.errorResponse(c, http.StatusBadRequest, err.Error())
		return
	}

	rank, err := h.queries.Rank(c.Request.Context(), userID, period)
	if err != nil {
		if errors.Is(err, leaderboard.ErrUserNotRanked) {
			h.errorResponse(c, http.StatusNotFound, "User not ranked")
			return
		}
		h.log.Error().Err(err).Uint("user_id", userID).Msg("Failed to get user rank")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve user rank")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"rank":         rank,
		"generated_at": time.Now().UTC(),
	})
}

// GetLevels returns the level ladder.
// GET /api/v1/momentum/levels.
func (h *Handler) GetLevels(c *gin.Context) {
	levels, err := h.queries.Levels(c.Request.Context())
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get level ladder")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve levels")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"levels":       levels,
		"total_levels": len(levels),
		"generated_at": time.Now().UTC(),
	})
}

// GetAchievementCatalog returns every earnable achievement, optionally
// filtered by category.
// GET /api/v1/momentum/achievements?category=consistency.
func (h *Handler) GetAchievementCatalog(c *gin.Context) {
	achievements, err := h.queries.Achievements(c.Request.Context(), c.Query("category"))
	if err != nil {
		h.log.Error().Err(err).Msg("Failed to get achievement catalog")
		h.errorResponse(c, http.StatusInternalServerError, "Failed to retrieve achievements")
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"achievements":       achievements,
		"total_achievements": len(achievements),
		"generated_at":       time.Now().UTC(),
	})
}

// GetHealth reports service health.
// GET /health.
func (h *Handler) GetHealth(c *gin.Context) {
	if h.health != nil {
		if err := h.health.Health(); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status":    "unhealthy",
				"error":     err.Error(),
				"timestamp": time.Now().UTC(),
			})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": time.Now().UTC(),
	})
}

// Helper functions

// parseUserID extracts and validates the user ID from the URL parameter.
func (h *Handler) parseUserID(c *gin.Context) (uint, error) {
	idStr := c.Param("id")
	id, err := strconv.ParseUint(idStr, 10, 32)
	if err != nil {
		return 0, fmt.Errorf("invalid user ID: %s", idStr)
	}
	return uint(id), nil
}

// parseLimit extracts and validates the limit query parameter.
func (h *Handler) parseLimit(c *gin.Context, defaultLimit int) (int, error) {
	limitStr := c.Query("limit")
	if limitStr == "" {
		return defaultLimit, nil
	}

	limit, err := strconv.Atoi(limitStr)
	if err != nil {
		return 0, fmt.Errorf("invalid limit parameter: %s", limitStr)
	}
	if limit < 1 {
		return 0, fmt.Errorf("limit must be greater than 0")
	}
	if limit > 1000 {
		return 0, fmt.Errorf("limit cannot exceed 1000")
	}
	return limit, nil
}

// validatePeriod validates the period parameter.
func (h *Handler) validatePeriod(period string) error {
	if !leaderboard.ValidPeriod(period) {
		return fmt.Errorf("invalid period: %s (valid: weekly, monthly, all_time)", period)
	}
	return nil
}

// userError maps a missing user to 404 and everything else to 500.
func (h *Handler) userError(c *gin.Context, userID uint, err error, message string) {
	if repository.IsNotFound(err) {
		h.errorResponse(c, http.StatusNotFound, "User not found")
		return
	}
	h.log.Error().Err(err).Uint("user_id", userID).Msg(message)
	h.errorResponse(c, http.StatusInternalServerError, message)
}

// errorResponse sends a standardized error response.
func (h *Handler) errorResponse(c *gin.Context, statusCode int, message string) {
	c.JSON(statusCode, gin.H{
		"error":     message,
		"timestamp": time.Now().UTC(),
	})
}
