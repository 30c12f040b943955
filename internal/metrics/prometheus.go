// Package metrics exposes Prometheus instrumentation for the momentum engine.
package metrics

import (
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/plannerhq/momentum/pkg/logger"
)

var (
	// EventsProcessed counts momentum events by type and outcome.
	EventsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momentum_events_processed_total",
			Help: "Total number of momentum events processed",
		},
		[]string{"event_type", "status"},
	)

	// PointsAwarded counts points credited to users by event type.
	PointsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momentum_points_awarded_total",
			Help: "Total points awarded, by event type",
		},
		[]string{"event_type"},
	)

	// PointsReverted counts points deducted through event reversal.
	PointsReverted = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "momentum_points_reverted_total",
			Help: "Total points deducted through event reversal",
		},
	)

	// AchievementsAwarded counts achievement grants by achievement name.
	AchievementsAwarded = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momentum_achievements_awarded_total",
			Help: "Total achievements awarded, by achievement name",
		},
		[]string{"achievement"},
	)

	// LevelUps counts level transitions in either direction.
	LevelUps = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momentum_level_transitions_total",
			Help: "Total level transitions, by direction",
		},
		[]string{"direction"},
	)

	// SweepRuns counts daily sweep executions by status.
	SweepRuns = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momentum_sweep_runs_total",
			Help: "Total daily sweep runs, by status",
		},
		[]string{"status"},
	)

	// SweepDuration observes how long a full sweep takes.
	SweepDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "momentum_sweep_duration_seconds",
			Help:    "Duration of daily sweep runs in seconds",
			Buckets: prometheus.ExponentialBuckets(0.1, 2, 10),
		},
	)

	// LastSweepRun records the unix timestamp of the last sweep.
	LastSweepRun = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "momentum_last_sweep_run_timestamp",
			Help: "Unix timestamp of the last daily sweep run",
		},
	)

	// StreaksExpired counts streaks zeroed out by the sweep.
	StreaksExpired = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "momentum_streaks_expired_total",
			Help: "Total streaks reset after missed days",
		},
	)

	// LeaderboardCache counts leaderboard cache lookups by result.
	LeaderboardCache = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "momentum_leaderboard_cache_total",
			Help: "Leaderboard cache lookups, by result",
		},
		[]string{"result"},
	)

	// HTTPRequestDuration observes API request latency.
	HTTPRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "momentum_http_request_duration_seconds",
			Help:    "HTTP request duration in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path", "status"},
	)
)

// RecordEventProcessed increments the processed-event counter.
func RecordEventProcessed(eventType, status string) {
	EventsProcessed.WithLabelValues(eventType, status).Inc()
}

// RecordPointsAwarded adds awarded points for an event type.
func RecordPointsAwarded(eventType string, points int) {
	if points > 0 {
		PointsAwarded.WithLabelValues(eventType).Add(float64(points))
	}
}

// RecordPointsReverted adds reverted points.
func RecordPointsReverted(points int) {
	if points > 0 {
		PointsReverted.Add(float64(points))
	}
}

// RecordAchievementAwarded increments the grant counter for an achievement.
func RecordAchievementAwarded(name string) {
	AchievementsAwarded.WithLabelValues(name).Inc()
}

// RecordLevelUp increments the level transition counter.
func RecordLevelUp(direction string) {
	LevelUps.WithLabelValues(direction).Inc()
}

// RecordSweepRun increments the sweep counter and stamps the last-run gauge.
func RecordSweepRun(status string) {
	SweepRuns.WithLabelValues(status).Inc()
	LastSweepRun.SetToCurrentTime()
}

// ObserveSweepDuration records the duration of a sweep run.
func ObserveSweepDuration(d time.Duration) {
	SweepDuration.Observe(d.Seconds())
}

// RecordStreaksExpired adds expired streak count.
func RecordStreaksExpired(n int64) {
	if n > 0 {
		StreaksExpired.Add(float64(n))
	}
}

// RecordLeaderboardCache increments the cache lookup counter.
func RecordLeaderboardCache(result string) {
	LeaderboardCache.WithLabelValues(result).Inc()
}

// ObserveHTTPRequest records latency for an API request.
func ObserveHTTPRequest(method, path, status string, d time.Duration) {
	HTTPRequestDuration.WithLabelValues(method, path, status).Observe(d.Seconds())
}

// StartServer serves /metrics on its own port.
func StartServer(port int, path string, log *logger.Logger) *http.Server {
	mux := http.NewServeMux()
	mux.Handle(path, promhttp.Handler())

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", port),
		Handler: mux,
	}

	go func() {
		log.Info().Int("port", port).Str("path", path).Msg("Starting metrics server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Error().Err(err).Msg("Metrics server failed")
		}
	}()

	return srv
}
