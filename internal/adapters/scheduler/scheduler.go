// Package scheduler runs periodic maintenance: history retention, expired
// share cleanup and gauge refreshes.
package scheduler

import (
	"context"
	"fmt"
	"time"

	"github.com/go-co-op/gocron/v2"

	"github.com/okian/lineup/pkg/logger"
	"github.com/okian/lineup/pkg/metrics"
)

// Job names, also used as metric labels.
const (
	JobRetention  = "history_retention"
	JobSharePurge = "share_purge"
	JobMetrics    = "metrics_refresh"
)

// Maintainer is the service surface the jobs drive.
type Maintainer interface {
	PruneHistory(ctx context.Context, retention time.Duration) (int, error)
	PurgeExpiredShares(ctx context.Context) (int, error)
	RefreshMetrics(ctx context.Context) error
}

// Scheduler owns a gocron scheduler and the maintenance jobs on it.
type Scheduler struct {
	s      gocron.Scheduler
	target Maintainer

	retention         time.Duration
	retentionInterval time.Duration
	metricsInterval   time.Duration
	runTimeout        time.Duration
	location          *time.Location

	ctx    context.Context
	cancel context.CancelFunc
	logger logger.Logger
}

// New creates a scheduler for target. Jobs are registered by Start.
func New(target Maintainer, opts ...Option) (*Scheduler, error) {
	sc := &Scheduler{
		target:            target,
		retentionInterval: time.Hour,
		metricsInterval:   5 * time.Second,
		runTimeout:        time.Minute,
		location:          time.UTC,
	}
	for _, opt := range opts {
		opt(sc)
	}
	if sc.logger == nil {
		sc.logger = logger.Get().Named("scheduler")
	}

	s, err := gocron.NewScheduler(gocron.WithLocation(sc.location))
	if err != nil {
		return nil, fmt.Errorf("failed to create scheduler: %w", err)
	}
	sc.s = s
	return sc, nil
}

// Start registers the jobs and starts the scheduler. The retention job is
// skipped when retention is disabled.
func (sc *Scheduler) Start(ctx context.Context) error {
	sc.ctx, sc.cancel = context.WithCancel(context.WithoutCancel(ctx))

	if sc.retention > 0 {
		if err := sc.add(JobRetention, sc.retentionInterval, sc.RunRetention); err != nil {
			return err
		}
	}
	if err := sc.add(JobSharePurge, sc.retentionInterval, sc.RunSharePurge); err != nil {
		return err
	}
	if err := sc.add(JobMetrics, sc.metricsInterval, sc.RunMetrics); err != nil {
		return err
	}

	sc.s.Start()
	sc.logger.Info(ctx, "scheduler started",
		logger.Int("jobs", len(sc.s.Jobs())),
		logger.Duration("retention", sc.retention),
		logger.Duration("retention_interval", sc.retentionInterval),
		logger.Duration("metrics_interval", sc.metricsInterval),
	)
	return nil
}

func (sc *Scheduler) add(name string, every time.Duration, run func(context.Context) error) error {
	_, err := sc.s.NewJob(
		gocron.DurationJob(every),
		gocron.NewTask(func() {
			ctx, cancel := context.WithTimeout(sc.ctx, sc.runTimeout)
			defer cancel()
			_ = run(ctx)
		}),
		gocron.WithName(name),
		gocron.WithSingletonMode(gocron.LimitModeReschedule),
	)
	if err != nil {
		return fmt.Errorf("failed to create %s job: %w", name, err)
	}
	return nil
}

// Stop waits for running jobs and shuts the scheduler down.
func (sc *Scheduler) Stop() error {
	if sc.cancel != nil {
		defer sc.cancel()
	}
	return sc.s.Shutdown()
}

// RunRetention deletes history older than the retention window.
func (sc *Scheduler) RunRetention(ctx context.Context) error {
	n, err := sc.target.PruneHistory(ctx, sc.retention)
	sc.record(ctx, JobRetention, err, logger.Int("removed", n))
	return err
}

// RunSharePurge removes expired shares.
func (sc *Scheduler) RunSharePurge(ctx context.Context) error {
	n, err := sc.target.PurgeExpiredShares(ctx)
	sc.record(ctx, JobSharePurge, err, logger.Int("removed", n))
	return err
}

// RunMetrics refreshes store and runtime gauges.
func (sc *Scheduler) RunMetrics(ctx context.Context) error {
	err := sc.target.RefreshMetrics(ctx)
	sc.record(ctx, JobMetrics, err)
	return err
}

func (sc *Scheduler) record(ctx context.Context, job string, err error, fields ...logger.Field) {
	if err != nil {
		metrics.RecordSchedulerRun(job, "error")
		metrics.RecordErrorByComponent("scheduler", job)
		sc.logger.Error(ctx, "scheduled job failed", append(fields, logger.String("job", job), logger.Error(err))...)
		return
	}
	metrics.RecordSchedulerRun(job, "ok")
	sc.logger.Debug(ctx, "scheduled job finished", append(fields, logger.String("job", job))...)
}
