package scheduler

import (
	"context"
	"errors"

	obsmetrics "github.com/smallbiznis/invoicepadi/internal/observability/metrics"
	"go.uber.org/zap"
)

// RenewalReportJob logs the paid subscriptions expiring inside the
// renewal window. It changes nothing.
func (s *Scheduler) RenewalReportJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobRenewalReport)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	daysAhead := s.billing.Get().RenewalDaysAhead
	candidates, err := s.subscriptionSvc.GetSubscriptionsNeedingRenewal(ctx, daysAhead)
	if err != nil {
		s.logSchedulerError(ctx, "scheduler.renewal_report.failed", 0, err)
		return err
	}

	log := s.logger(ctx)
	for _, c := range candidates {
		log.Info("subscription.renewal.due",
			zap.String("subscriber_id", c.EntityID.String()),
			zap.String("plan", c.Plan),
			zap.Time("expiry", c.Expiry),
		)
	}
	run.AddProcessed(len(candidates))
	log.Info("renewal report", zap.Int("days_ahead", daysAhead), zap.Int("due", len(candidates)))
	return nil
}

// AutoRenewJob charges the stored card of every subscription expiring
// inside the renewal window. Individual failures are counted, not returned.
func (s *Scheduler) AutoRenewJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobAutoRenew)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	batch, err := s.subscriptionSvc.ProcessAutomaticRenewals(ctx, s.billing.Get().RenewalDaysAhead)
	if err != nil {
		s.logSchedulerError(ctx, "scheduler.auto_renew.failed", 0, err)
		return err
	}

	run.AddProcessed(batch.Processed)
	obsmetrics.Scheduler().AddBatchProcessed(JobAutoRenew, "subscriptions", batch.Successful)
	for _, f := range batch.Failures {
		s.logSchedulerError(ctx, "scheduler.auto_renew.entity_failed", f.EntityID, errors.New(f.Error))
	}
	s.logger(ctx).Info("automatic renewals processed",
		zap.Int("processed", batch.Processed),
		zap.Int("successful", batch.Successful),
		zap.Int("failed", batch.Failed),
	)
	return nil
}

// ExpireSubscriptionsJob moves every lapsed paid subscription to the free plan.
func (s *Scheduler) ExpireSubscriptionsJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobExpireSubscriptions)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	for {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		expired, err := s.subscriptionSvc.ExpireLapsed(ctx, s.cfg.BatchSize)
		if err != nil {
			s.logSchedulerError(ctx, "scheduler.expire.failed", 0, err)
			return err
		}
		run.AddProcessed(expired)
		obsmetrics.Scheduler().AddBatchProcessed(JobExpireSubscriptions, "subscriptions", expired)
		if expired < s.cfg.BatchSize {
			return nil
		}
	}
}

// RecoverIntentsJob reconciles subscription charges left PENDING by a
// gateway timeout.
func (s *Scheduler) RecoverIntentsJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobRecoverIntents)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	res, err := s.subscriptionSvc.RecoverPendingIntents(ctx, s.cfg.BatchSize)
	if err != nil {
		s.logSchedulerError(ctx, "scheduler.recovery.failed", 0, err)
		return err
	}

	run.AddProcessed(res.Completed + res.Failed)
	obsmetrics.Scheduler().AddBatchProcessed(JobRecoverIntents, "transactions", res.Completed+res.Failed)
	if res.Claimed > 0 {
		s.logger(ctx).Info("payment intents reconciled",
			zap.Int("claimed", res.Claimed),
			zap.Int("completed", res.Completed),
			zap.Int("failed", res.Failed),
			zap.Int("pending", res.Pending),
		)
	}
	return nil
}

// MarkOverdueInvoicesJob flags unpaid invoices whose due date has passed.
func (s *Scheduler) MarkOverdueInvoicesJob(ctx context.Context) error {
	ctx, run, owner := s.ensureJobRun(ctx, JobMarkOverdueInvoices)
	if owner {
		s.logJobStart(ctx, run)
		defer s.logJobFinish(ctx, run)
	}

	marked, err := s.invoiceSvc.MarkOverdue(ctx)
	if err != nil {
		s.logSchedulerError(ctx, "scheduler.overdue.failed", 0, err)
		return err
	}
	run.AddProcessed(int(marked))
	obsmetrics.Scheduler().AddBatchProcessed(JobMarkOverdueInvoices, "invoices", int(marked))
	return nil
}
