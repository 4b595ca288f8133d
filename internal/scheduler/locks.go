package scheduler

import (
	"context"
	"time"

	obsmetrics "github.com/smallbiznis/invoicepadi/internal/observability/metrics"
	"go.uber.org/zap"
)

const jobLockPrefix = "scheduler:job:"

// JobLocker is the distributed mutex shared by scheduler replicas.
type JobLocker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error)
	Release(ctx context.Context, key, token string) error
}

type jobLease struct {
	key   string
	token string
}

// acquire claims the job for one interval. The lease is held for the whole
// interval after a successful run so that other replicas skip it; a failed
// run releases it so the next tick can retry. Without a locker every
// replica runs its own schedule.
func (s *Scheduler) acquire(ctx context.Context, job string, interval time.Duration) (*jobLease, bool) {
	if s.locker == nil {
		return &jobLease{}, true
	}

	key := jobLockPrefix + job
	token, ok, err := s.locker.TryLock(ctx, key, interval)
	if err != nil {
		s.logger(ctx).Warn("scheduler.lock.failed", zap.String("job", job), zap.Error(err))
		obsmetrics.Scheduler().IncBatchDeferred(job, obsmetrics.SchedulerJobReasonUnknown)
		return nil, false
	}
	if !ok {
		s.logger(ctx).Debug("scheduler.lock.held", zap.String("job", job), zap.String("holder", s.lockHolder(ctx, key)))
		obsmetrics.Scheduler().IncBatchDeferred(job, obsmetrics.SchedulerBatchDeferredReasonLockHeld)
		return nil, false
	}
	return &jobLease{key: key, token: token}, true
}

func (s *Scheduler) release(ctx context.Context, lease *jobLease) {
	if s.locker == nil || lease == nil || lease.token == "" {
		return
	}
	if err := s.locker.Release(context.WithoutCancel(ctx), lease.key, lease.token); err != nil {
		s.logger(ctx).Warn("scheduler.lock.release_failed", zap.String("key", lease.key), zap.Error(err))
	}
}

type holderReporter interface {
	Holder(ctx context.Context, key string) (string, error)
}

func (s *Scheduler) lockHolder(ctx context.Context, key string) string {
	reporter, ok := s.locker.(holderReporter)
	if !ok {
		return ""
	}
	holder, err := reporter.Holder(ctx, key)
	if err != nil {
		return ""
	}
	return holder
}
