// Package workers runs the periodic background jobs.
package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"
	log "github.com/sirupsen/logrus"

	"fantasy12/metrics"
	"fantasy12/services"
)

const (
	JobCloseRounds  = "close-rounds"
	JobSweepLimiter = "sweep-limiter"
	JobArchiveLogs  = "archive-logs"
)

type RoundCloser interface {
	CloseExpired(ctx context.Context) (int, error)
}

type Sweeper interface {
	Sweep() int
}

type LogArchiver interface {
	ArchiveDay(ctx context.Context, archiver services.Archiver, day time.Time) (int, error)
}

// Config selects the jobs to run. Nil dependencies disable their job.
type Config struct {
	RoundCloseInterval time.Duration
	Rounds             RoundCloser
	Limiter            Sweeper
	Audit              LogArchiver
	Archiver           services.Archiver
}

type Scheduler struct {
	sched  gocron.Scheduler
	ctx    context.Context
	cancel context.CancelFunc
	now    func() time.Time
}

func NewScheduler(cfg Config) (*Scheduler, error) {
	sched, err := gocron.NewScheduler(
		gocron.WithLocation(time.UTC),
		gocron.WithGlobalJobOptions(gocron.WithSingletonMode(gocron.LimitModeReschedule)),
	)
	if err != nil {
		return nil, fmt.Errorf("create scheduler: %w", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	s := &Scheduler{sched: sched, ctx: ctx, cancel: cancel, now: time.Now}

	if cfg.Rounds != nil {
		interval := cfg.RoundCloseInterval
		if interval <= 0 {
			interval = time.Minute
		}
		if err := s.add(JobCloseRounds, gocron.DurationJob(interval), cfg.Rounds.CloseExpired); err != nil {
			return nil, err
		}
	}
	if cfg.Limiter != nil {
		sweep := func(context.Context) (int, error) { return cfg.Limiter.Sweep(), nil }
		if err := s.add(JobSweepLimiter, gocron.DurationJob(time.Minute), sweep); err != nil {
			return nil, err
		}
	}
	if cfg.Audit != nil && cfg.Archiver != nil {
		daily := gocron.DailyJob(1, gocron.NewAtTimes(gocron.NewAtTime(0, 10, 0)))
		if err := s.add(JobArchiveLogs, daily, s.archiveYesterday(cfg.Audit, cfg.Archiver)); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// archiveYesterday ships the UTC day that ended before the run.
func (s *Scheduler) archiveYesterday(a LogArchiver, ar services.Archiver) func(context.Context) (int, error) {
	return func(ctx context.Context) (int, error) {
		return a.ArchiveDay(ctx, ar, s.now().UTC().AddDate(0, 0, -1))
	}
}

func (s *Scheduler) add(name string, def gocron.JobDefinition, fn func(context.Context) (int, error)) error {
	_, err := s.sched.NewJob(def, gocron.NewTask(s.task(name, fn)), gocron.WithName(name))
	if err != nil {
		return fmt.Errorf("schedule %s: %w", name, err)
	}
	return nil
}

// task wraps a job body with logging and run metrics.
func (s *Scheduler) task(name string, fn func(context.Context) (int, error)) func() {
	return func() {
		start := time.Now()
		n, err := fn(s.ctx)
		if err != nil {
			metrics.JobRuns.WithLabelValues(name, "error").Inc()
			log.WithError(err).WithField("job", name).Error("[Scheduler] job failed")
			return
		}
		metrics.JobRuns.WithLabelValues(name, "ok").Inc()
		entry := log.WithFields(log.Fields{"job": name, "affected": n, "duration": time.Since(start)})
		if n > 0 {
			entry.Info("[Scheduler] job done")
		} else {
			entry.Debug("[Scheduler] job done")
		}
	}
}

// JobNames lists the registered jobs.
func (s *Scheduler) JobNames() []string {
	var out []string
	for _, j := range s.sched.Jobs() {
		out = append(out, j.Name())
	}
	return out
}

func (s *Scheduler) Start() {
	s.sched.Start()
	log.WithField("jobs", s.JobNames()).Info("[Scheduler] started")
}

// Shutdown cancels running jobs and waits for them to return.
func (s *Scheduler) Shutdown() error {
	s.cancel()
	return s.sched.Shutdown()
}
