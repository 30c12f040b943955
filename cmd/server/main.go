package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plannerhq/momentum/internal/api/momentum"
	"github.com/plannerhq/momentum/internal/cache"
	"github.com/plannerhq/momentum/internal/catalog"
	"github.com/plannerhq/momentum/internal/config"
	"github.com/plannerhq/momentum/internal/metrics"
	"github.com/plannerhq/momentum/internal/repository"
	"github.com/plannerhq/momentum/internal/service/achievements"
	"github.com/plannerhq/momentum/internal/service/engine"
	"github.com/plannerhq/momentum/internal/service/ledger"
	"github.com/plannerhq/momentum/internal/service/leaderboard"
	"github.com/plannerhq/momentum/internal/service/sweep"
	"github.com/plannerhq/momentum/pkg/logger"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger.Init(cfg.Logging.Level, cfg.Logging.Format, cfg.Logging.Output)
	log := logger.Get()
	log.Info().Str("environment", cfg.Server.Environment).Msg("Starting momentum service")

	db, err := repository.NewDB(&cfg.Database.Postgres, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to database")
	}
	defer db.Close()

	if err := db.AutoMigrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to migrate database")
	}

	override, err := catalog.LoadOverride(cfg.Catalog.OverridePath)
	if err != nil {
		log.Fatal().Err(err).Str("path", cfg.Catalog.OverridePath).Msg("Failed to load catalog override")
	}
	if err := catalog.Seed(db.DB, override); err != nil {
		log.Fatal().Err(err).Msg("Failed to seed catalog")
	}

	redisCache, err := cache.NewRedisCache(&cfg.Database.Redis, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to Redis")
	}
	defer redisCache.Close()

	engineSvc := engine.NewService(db, log.Component("engine"))
	ledgerSvc := ledger.NewService(db, log.Component("ledger"))
	achievementSvc := achievements.NewService(db, ledgerSvc, log.Component("achievements"))
	querySvc := leaderboard.NewService(db, redisCache, cfg.Momentum.LeaderboardCacheTTL(), log.Component("leaderboard"))
	sweepSvc := sweep.NewService(db, engineSvc, achievementSvc, cfg.Momentum, log.Component("sweep"))

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(gin.Recovery())
	router.Use(requestLogger(log))

	handler := momentum.NewHandler(engineSvc, querySvc, db, log.Component("api"))
	handler.RegisterRoutes(router)

	var metricsSrv *http.Server
	if cfg.Metrics.Enabled {
		metricsSrv = metrics.StartServer(cfg.Metrics.Port, cfg.Metrics.Path, log)
	}

	var scheduler *sweep.Scheduler
	if cfg.Scheduler.Enabled {
		scheduler, err = sweep.NewScheduler(sweepSvc, &cfg.Scheduler, log.Component("scheduler"))
		if err != nil {
			log.Fatal().Err(err).Msg("Failed to build sweep scheduler")
		}
		scheduler.Start()
	}

	srv := &http.Server{
		Addr:    fmt.Sprintf(":%d", cfg.Server.Port),
		Handler: router,
	}
	go func() {
		log.Info().Int("port", cfg.Server.Port).Msg("Starting HTTP server")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("HTTP server failed")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	<-ctx.Done()
	log.Info().Msg("Shutting down")

	if scheduler != nil {
		scheduler.Stop()
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("HTTP server shutdown failed")
	}
	if metricsSrv != nil {
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			log.Error().Err(err).Msg("Metrics server shutdown failed")
		}
	}
	log.Info().Msg("Shutdown complete")
}

// requestLogger emits one structured log line per request and feeds the
// latency histogram.
func requestLogger(log *logger.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		elapsed := time.Since(start)

		path := c.FullPath()
		if path == "" {
			path = c.Request.URL.Path
		}
		status := c.Writer.Status()
		metrics.ObserveHTTPRequest(c.Request.Method, path, fmt.Sprintf("%d", status), elapsed)

		log.Info().
			Str("method", c.Request.Method).
			Str("path", path).
			Int("status", status).
			Dur("duration", elapsed).
			Msg("Request handled")
	}
}
