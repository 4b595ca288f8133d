package scheduler

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/config"
	invoicedomain "github.com/smallbiznis/invoicepadi/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/invoicepadi/internal/observability/metrics"
	"github.com/smallbiznis/invoicepadi/internal/ratelimit"
	subscriptiondomain "github.com/smallbiznis/invoicepadi/internal/subscription/domain"
	"go.uber.org/fx"
	"go.uber.org/zap"
)

var ErrInvalidConfig = errors.New("invalid_scheduler_config")

const (
	JobRenewalReport       = "renewal_report"
	JobAutoRenew           = "auto_renew"
	JobExpireSubscriptions = "expire_subscriptions"
	JobRecoverIntents      = "recover_payment_intents"
	JobMarkOverdueInvoices = "mark_overdue_invoices"
)

type Params struct {
	fx.In

	Log             *zap.Logger
	GenID           *snowflake.Node
	Clock           clock.Clock
	Billing         *config.BillingConfigHolder
	SubscriptionSvc subscriptiondomain.Service
	InvoiceSvc      invoicedomain.Service
	Locker          *ratelimit.Locker `optional:"true"`
	Config          Config            `optional:"true"`
}

type Scheduler struct {
	log             *zap.Logger
	cfg             Config
	genID           *snowflake.Node
	clock           clock.Clock
	billing         *config.BillingConfigHolder
	subscriptionSvc subscriptiondomain.Service
	invoiceSvc      invoicedomain.Service
	locker          JobLocker

	mu      sync.Mutex
	lastRun map[string]time.Time
}

type job struct {
	name     string
	interval time.Duration
	run      func(context.Context) error
}

func New(p Params) (*Scheduler, error) {
	if p.Log == nil || p.GenID == nil || p.Clock == nil || p.Billing == nil || p.SubscriptionSvc == nil || p.InvoiceSvc == nil {
		return nil, ErrInvalidConfig
	}
	s := &Scheduler{
		log:             p.Log.Named("scheduler").With(zap.String("component", "scheduler")),
		cfg:             p.Config.withDefaults(),
		genID:           p.GenID,
		clock:           p.Clock,
		billing:         p.Billing,
		subscriptionSvc: p.SubscriptionSvc,
		invoiceSvc:      p.InvoiceSvc,
		lastRun:         map[string]time.Time{},
	}
	if p.Locker != nil {
		s.locker = p.Locker
	}
	return s, nil
}

func (s *Scheduler) jobs() []job {
	billing := s.billing.Get()
	return []job{
		{JobRecoverIntents, billing.IntentRecoveryEvery, s.RecoverIntentsJob},
		{JobExpireSubscriptions, billing.ExpirySweepEvery, s.ExpireSubscriptionsJob},
		{JobMarkOverdueInvoices, billing.OverdueSweepEvery, s.MarkOverdueInvoicesJob},
		{JobRenewalReport, billing.RenewalReportEvery, s.RenewalReportJob},
		{JobAutoRenew, billing.AutoRenewEvery, s.AutoRenewJob},
	}
}

func (s *Scheduler) runJob(
	parent context.Context,
	name string,
	timeout time.Duration,
	fn func(ctx context.Context) error,
) error {
	start := s.clock.Now()
	ctx, cancel := context.WithTimeout(parent, timeout)
	defer cancel()

	ctx, run, owner := s.ensureJobRun(ctx, name)
	if owner {
		s.logJobStart(ctx, run)
	}
	log := s.logger(ctx).With(
		zap.String("job", name),
		zap.String("run_id", run.runID),
	)
	schedMetrics := obsmetrics.Scheduler()
	schedMetrics.IncJobRun(name)

	err := fn(ctx)
	schedMetrics.ObserveJobDuration(name, s.clock.Now().Sub(start))
	if owner {
		if err != nil && run.errorCount == 0 {
			run.IncError()
		}
		s.logJobFinish(ctx, run)
	}
	if err == nil {
		return nil
	}

	// Deadlines are soft: the next tick picks up where this one stopped.
	isTimeout := errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled)
	if isTimeout {
		schedMetrics.IncJobTimeout(name)
	}
	schedMetrics.IncJobError(name, err)
	if isTimeout {
		log.Warn("job timed out",
			zap.Duration("timeout", timeout),
			zap.Error(err),
		)
		return nil
	}

	return fmt.Errorf("%s: %w", name, err)
}

// RunOnce runs every enabled job whose interval has elapsed.
func (s *Scheduler) RunOnce(parent context.Context) error {
	var err error
	for _, j := range s.jobs() {
		if !s.isJobEnabled(j.name) || !s.due(j.name, j.interval) {
			continue
		}
		err = errors.Join(err, s.runScheduled(parent, j))
	}
	return err
}

func (s *Scheduler) runScheduled(ctx context.Context, j job) error {
	lease, ok := s.acquire(ctx, j.name, j.interval)
	if !ok {
		// Another replica owns this interval.
		s.markRun(j.name)
		return nil
	}

	err := s.runJob(ctx, j.name, s.cfg.JobTimeout, j.run)
	if err != nil {
		s.release(ctx, lease)
		return err
	}
	s.markRun(j.name)
	return nil
}

func (s *Scheduler) due(name string, interval time.Duration) bool {
	if interval <= 0 {
		return false
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	last, ok := s.lastRun[name]
	return !ok || s.clock.Now().Sub(last) >= interval
}

func (s *Scheduler) markRun(name string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.lastRun[name] = s.clock.Now()
}

func (s *Scheduler) RunForever(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.RunInterval)
	defer ticker.Stop()

	for {
		if err := s.RunOnce(ctx); err != nil {
			s.log.Warn("scheduler run failed", zap.Error(err))
		}

		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}

func (s *Scheduler) isJobEnabled(jobName string) bool {
	// An empty list enables every job.
	if len(s.cfg.EnabledJobs) == 0 {
		return true
	}
	for _, enabled := range s.cfg.EnabledJobs {
		if strings.EqualFold(enabled, jobName) {
			return true
		}
	}
	return false
}
