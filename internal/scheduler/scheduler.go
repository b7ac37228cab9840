package scheduler

import (
	"context"
	"fmt"

	"github.com/robfig/cron/v3"
	"github.com/rs/zerolog"

	"github.com/fiscaldesk/pendency-service/internal/config"
	"github.com/fiscaldesk/pendency-service/internal/mailer"
)

// Job is one scheduled unit of work. Errors returned here are terminal for
// that run only; the next scheduled run proceeds normally.
type Job interface {
	Run(ctx context.Context) error
}

// Scheduler drives the time-based engines on a single in-process cron
// runner. SkipIfStillRunning enforces one live instance per job; there is no
// cross-process coordination, so deployments run exactly one scheduler.
type Scheduler struct {
	cron *cron.Cron
	log  zerolog.Logger
}

func New(
	cfg config.SchedulerConfig,
	reminders Job,
	escalations Job,
	milestones Job,
	queue *mailer.Queue,
	log zerolog.Logger,
) (*Scheduler, error) {
	log = log.With().Str("component", "scheduler").Logger()
	cronLog := cronLogger{log: log}

	runner := cron.New(cron.WithChain(
		cron.Recover(cronLog),
		cron.SkipIfStillRunning(cronLog),
	))

	s := &Scheduler{cron: runner, log: log}

	if _, err := runner.AddFunc(cfg.ReminderCron, s.wrap("reminders", reminders)); err != nil {
		return nil, fmt.Errorf("schedule reminders: %w", err)
	}
	if _, err := runner.AddFunc(cfg.EscalationCron, s.wrap("escalations", escalations)); err != nil {
		return nil, fmt.Errorf("schedule escalations: %w", err)
	}
	// The milestone job gates itself on the configured send hour, so the
	// cadence here only controls how often that gate is checked.
	if _, err := runner.AddFunc("@every "+cfg.MilestoneEvery, s.wrap("milestone-alerts", milestones)); err != nil {
		return nil, fmt.Errorf("schedule milestone alerts: %w", err)
	}
	if _, err := runner.AddFunc("@every "+cfg.QueueDrainEvery, func() {
		queue.Drain(context.Background())
	}); err != nil {
		return nil, fmt.Errorf("schedule queue drain: %w", err)
	}

	return s, nil
}

func (s *Scheduler) Start() {
	s.cron.Start()
	s.log.Info().Msg("scheduler started")
}

// Stop halts new runs and waits for in-flight jobs to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.log.Info().Msg("scheduler stopped")
}

// wrap keeps job failures local to the run: log and move on, never crash the
// process or suppress the next scheduled run.
func (s *Scheduler) wrap(name string, job Job) func() {
	return func() {
		if err := job.Run(context.Background()); err != nil {
			s.log.Error().Err(err).Str("job", name).Msg("scheduled job failed")
			return
		}
		s.log.Debug().Str("job", name).Msg("scheduled job finished")
	}
}

type cronLogger struct {
	log zerolog.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.log.Debug().Fields(keysAndValues).Msg(msg)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.log.Error().Err(err).Fields(keysAndValues).Msg(msg)
}
