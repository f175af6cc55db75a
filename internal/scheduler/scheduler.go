// Package scheduler resets the daily and weekly step counters on cron triggers.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/mooover/mooover-services/internal/events"
	"github.com/mooover/mooover-services/internal/metrics"
	"github.com/mooover/mooover-services/internal/services"
	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"
)

// Period selects which counters a reset zeroes.
type Period string

const (
	Daily  Period = "daily"
	Weekly Period = "weekly"

	// DefaultDaily fires at every midnight.
	DefaultDaily = "0 0 * * *"
	// DefaultWeekly fires at midnight between Sunday and Monday.
	DefaultWeekly  = "0 0 * * 1"
	DefaultTimeout = time.Minute
)

type Config struct {
	Location *time.Location
	Daily    string
	Weekly   string
	// Timeout bounds a single reset run.
	Timeout time.Duration
}

// Scheduler runs the counter resets. The two periods run independently: a failing or slow
// daily reset never holds back the weekly one.
type Scheduler struct {
	store     services.Store
	notifier  events.Notifier
	log       *zerolog.Logger
	cron      *cron.Cron
	location  *time.Location
	timeout   time.Duration
	schedules map[Period]cron.Schedule
}

func New(store services.Store, notifier events.Notifier, cfg Config, log *zerolog.Logger) (*Scheduler, error) {
	if cfg.Location == nil {
		cfg.Location = time.Local
	}
	if cfg.Daily == "" {
		cfg.Daily = DefaultDaily
	}
	if cfg.Weekly == "" {
		cfg.Weekly = DefaultWeekly
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if notifier == nil {
		notifier = events.NopNotifier{}
	}

	s := &Scheduler{
		store:     store,
		notifier:  notifier,
		log:       log,
		location:  cfg.Location,
		timeout:   cfg.Timeout,
		schedules: map[Period]cron.Schedule{},
	}

	logger := cronLogger{log}
	s.cron = cron.New(
		cron.WithLocation(cfg.Location),
		cron.WithLogger(logger),
		cron.WithChain(cron.Recover(logger), cron.SkipIfStillRunning(logger)),
	)

	for period, spec := range map[Period]string{Daily: cfg.Daily, Weekly: cfg.Weekly} {
		schedule, err := cron.ParseStandard(spec)
		if err != nil {
			return nil, fmt.Errorf("invalid %s reset schedule %q: %w", period, spec, err)
		}
		s.schedules[period] = schedule
		s.cron.Schedule(schedule, s.job(period))
	}
	return s, nil
}

func (s *Scheduler) job(period Period) cron.Job {
	return cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(s.log.WithContext(context.Background()), s.timeout)
		defer cancel()
		// failures are logged and counted by RunNow
		s.RunNow(ctx, period)
	})
}

// Start begins firing the resets in the background.
func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().
		Time("next_daily", s.Next(Daily)).
		Time("next_weekly", s.Next(Weekly)).
		Msg("reset scheduler started")
}

// Stop prevents new runs and waits for running resets or for ctx to end.
func (s *Scheduler) Stop(ctx context.Context) error {
	done := s.cron.Stop()
	select {
	case <-done.Done():
		s.log.Info().Msg("reset scheduler stopped")
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Next returns the next time period fires.
func (s *Scheduler) Next(period Period) time.Time {
	return s.NextAfter(period, time.Now())
}

// NextAfter returns the first trigger of period strictly after t, in the scheduler location.
func (s *Scheduler) NextAfter(period Period, t time.Time) time.Time {
	schedule, ok := s.schedules[period]
	if !ok {
		return time.Time{}
	}
	return schedule.Next(t.In(s.location))
}

// RunNow resets the counters of period on every user and group in one unit of work.
func (s *Scheduler) RunNow(ctx context.Context, period Period) (services.ResetResult, error) {
	var result services.ResetResult
	start := time.Now()

	err := s.store.Atomically(ctx, func(repo services.Repository) error {
		var err error
		switch period {
		case Daily:
			result, err = repo.ResetDailySteps(ctx)
		case Weekly:
			result, err = repo.ResetWeeklySteps(ctx)
		default:
			err = fmt.Errorf("unknown reset period %q", period)
		}
		return err
	})
	metrics.RecordReset(string(period), time.Since(start), err == nil)
	if err != nil {
		s.log.Error().Err(err).Str("period", string(period)).Msg("failed to reset steps")
		return services.ResetResult{}, err
	}

	s.log.Info().
		Str("period", string(period)).
		Int64("users", result.Users).
		Int64("groups", result.Groups).
		Dur("took", time.Since(start)).
		Msg("steps reset")

	event := events.NewEvent(events.StepsReset, "", "")
	event.Period = string(period)
	if err := s.notifier.Notify(ctx, event); err != nil {
		s.log.Warn().Err(err).Msg("failed to publish event")
	}
	return result, nil
}

// cronLogger routes cron's own messages to zerolog.
type cronLogger struct {
	log *zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
