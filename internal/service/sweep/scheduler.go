package sweep

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/robfig/cron/v3"

	"github.com/plannerhq/momentum/internal/config"
	"github.com/plannerhq/momentum/pkg/logger"
)

// Scheduler runs the daily sweep at a fixed local time.
type Scheduler struct {
	cron *cron.Cron
	svc  *Service
	log  *logger.Logger
}

// NewScheduler builds a cron scheduler from the configured "HH:MM" time and
// timezone.
func NewScheduler(svc *Service, cfg *config.SchedulerConfig, log *logger.Logger) (*Scheduler, error) {
	loc, err := cfg.GetLocation()
	if err != nil {
		return nil, fmt.Errorf("invalid scheduler timezone: %w", err)
	}

	spec, err := cronSpec(cfg.Time)
	if err != nil {
		return nil, err
	}

	s := &Scheduler{
		cron: cron.New(
			cron.WithLocation(loc),
			cron.WithChain(cron.Recover(cronLogger{log})),
		),
		svc:  svc,
		log:  log,
	}

	_, err = s.cron.AddFunc(spec, func() {
		if err := s.svc.RunDailySweep(context.Background(), time.Now()); err != nil {
			s.log.Error().Err(err).Msg("Daily sweep failed")
		}
	})
	if err != nil {
		return nil, fmt.Errorf("failed to schedule daily sweep: %w", err)
	}

	return s, nil
}

// Start begins running the sweep on schedule.
func (s *Scheduler) Start() {
	s.log.Info().Msg("Starting sweep scheduler")
	s.cron.Start()
}

// Stop halts the scheduler and waits for a running sweep to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("Sweep scheduler stopped")
}

// cronLogger adapts our logger to the cron.Logger interface so recovered
// panics end up in the structured log.
type cronLogger struct {
	log *logger.Logger
}

func (c cronLogger) Info(msg string, keysAndValues ...interface{}) {
	c.log.Info().Fields(keysAndValues).Msg(msg)
}

func (c cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	c.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}

// cronSpec converts a "HH:MM" wall-clock time into a daily cron expression.
func cronSpec(hhmm string) (string, error) {
	parts := strings.Split(hhmm, ":")
	if len(parts) != 2 {
		return "", fmt.Errorf("invalid schedule time %q, want HH:MM", hhmm)
	}
	hour, err := strconv.Atoi(parts[0])
	if err != nil || hour < 0 || hour > 23 {
		return "", fmt.Errorf("invalid schedule hour in %q", hhmm)
	}
	minute, err := strconv.Atoi(parts[1])
	if err != nil || minute < 0 || minute > 59 {
		return "", fmt.Errorf("invalid schedule minute in %q", hhmm)
	}
	return fmt.Sprintf("%d %d * * *", minute, hour), nil
}
