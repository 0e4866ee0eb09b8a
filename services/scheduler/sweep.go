// Package schedsvc runs the periodic progress reconciliation sweep.
package schedsvc

import (
	"context"
	"fmt"
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"

	"github.com/rudradrivingschool/rudra-driving-school/core"
	"github.com/rudradrivingschool/rudra-driving-school/core/ride"
)

// Sweeper reconciles every admission and reports how many were processed.
type Sweeper interface {
	ReconcileAll(ctx context.Context) (int, error)
}

// Backfiller links legacy name-only rides to their admissions.
type Backfiller interface {
	Backfill(ctx context.Context) (ride.BackfillResult, error)
}

type Scheduler struct {
	cron       *cron.Cron
	sweeper    Sweeper
	backfiller Backfiller
	timeout time.Duration
	logger  core.Logger
}

// cronLogger routes cron's own messages to the app logger.
type cronLogger struct {
	logger core.Logger
}

func (l cronLogger) Info(msg string, keysAndValues ...interface{}) {
	l.logger.Debug("cron: "+msg, keysAndValues...)
}

func (l cronLogger) Error(err error, msg string, keysAndValues ...interface{}) {
	l.logger.Error("cron: "+msg, append([]interface{}{err}, keysAndValues...)...)
}

// New schedules the sweep on conf.Reconcile.Schedule, a cron spec ("@every 30m", "0 3 * * *").
// A sweep still running when the next one is due makes the next one skip.
func New(conf *core.Config, sweeper Sweeper, logger core.Logger) (*Scheduler, error) {
	cl := cronLogger{logger: logger}
	s := &Scheduler{
		cron:    cron.New(cron.WithLogger(cl), cron.WithChain(cron.Recover(cl), cron.SkipIfStillRunning(cl))),
		sweeper: sweeper,
		timeout: conf.Reconcile.Timeout,
		logger:  logger,
	}
	if _, err := s.cron.AddFunc(conf.Reconcile.Schedule, s.Sweep); err != nil {
		return nil, errors.Wrapf(err, "scheduling reconcile sweep %q", conf.Reconcile.Schedule)
	}
	return s, nil
}

// WithBackfill makes every sweep link legacy rides first, so their admissions are not recounted to zero.
func (s *Scheduler) WithBackfill(b Backfiller) *Scheduler {
	s.backfiller = b
	return s
}

// Sweep runs one reconciliation sweep, bounded by the configured timeout.
func (s *Scheduler) Sweep() {
	ctx := context.Background()
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}

	start := core.NowFunc()
	if s.backfiller != nil {
		res, err := s.backfiller.Backfill(ctx)
		if err != nil {
			s.logger.Warn("reconcile sweep: backfilling legacy rides", err)
		} else if res.Linked > 0 {
			s.logger.Info(fmt.Sprintf("reconcile sweep: %d legacy ride(s) linked", res.Linked))
		}
	}
	n, err := s.sweeper.ReconcileAll(ctx)
	if err != nil {
		s.logger.Error(fmt.Sprintf("reconcile sweep: %d admissions processed", n), err)
		return
	}
	s.logger.Info(fmt.Sprintf("reconcile sweep: %d admissions reconciled in %v", n, core.NowFunc().Sub(start)))
}

func (s *Scheduler) Start() {
	s.cron.Start()
}

// Stop stops scheduling and returns a context done once the running sweep, if any, is over.
func (s *Scheduler) Stop() context.Context {
	return s.cron.Stop()
}
