package scheduler

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/bwmarrin/snowflake"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/smallbiznis/invoicepadi/internal/clock"
	"github.com/smallbiznis/invoicepadi/internal/config"
	invoicedomain "github.com/smallbiznis/invoicepadi/internal/invoice/domain"
	obsmetrics "github.com/smallbiznis/invoicepadi/internal/observability/metrics"
	subscriptiondomain "github.com/smallbiznis/invoicepadi/internal/subscription/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeSubscriptions struct {
	subscriptiondomain.Service

	mu          sync.Mutex
	calls       map[string]int
	renewals    *subscriptiondomain.RenewalBatch
	renewErr    error
	lapsed      []int
	recovery    *subscriptiondomain.RecoveryResult
	candidates  []subscriptiondomain.RenewalCandidate
	daysAheadAt []int
}

func (f *fakeSubscriptions) hit(name string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.calls == nil {
		f.calls = map[string]int{}
	}
	f.calls[name]++
}

func (f *fakeSubscriptions) count(name string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls[name]
}

func (f *fakeSubscriptions) GetSubscriptionsNeedingRenewal(ctx context.Context, daysAhead int) ([]subscriptiondomain.RenewalCandidate, error) {
	f.hit("report")
	f.daysAheadAt = append(f.daysAheadAt, daysAhead)
	return f.candidates, nil
}

func (f *fakeSubscriptions) ProcessAutomaticRenewals(ctx context.Context, daysAhead int) (*subscriptiondomain.RenewalBatch, error) {
	f.hit("renew")
	if f.renewErr != nil {
		return nil, f.renewErr
	}
	if f.renewals != nil {
		return f.renewals, nil
	}
	return &subscriptiondomain.RenewalBatch{}, nil
}

func (f *fakeSubscriptions) ExpireLapsed(ctx context.Context, limit int) (int, error) {
	f.hit("expire")
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.lapsed) == 0 {
		return 0, nil
	}
	n := f.lapsed[0]
	f.lapsed = f.lapsed[1:]
	return n, nil
}

func (f *fakeSubscriptions) RecoverPendingIntents(ctx context.Context, limit int) (*subscriptiondomain.RecoveryResult, error) {
	f.hit("recover")
	if f.recovery != nil {
		return f.recovery, nil
	}
	return &subscriptiondomain.RecoveryResult{}, nil
}

type fakeInvoices struct {
	invoicedomain.Service
	calls int
}

func (f *fakeInvoices) MarkOverdue(ctx context.Context) (int64, error) {
	f.calls++
	return 3, nil
}

type fakeLocker struct {
	mu       sync.Mutex
	held     map[string]string
	released []string
	err      error
}

func (l *fakeLocker) TryLock(ctx context.Context, key string, ttl time.Duration) (string, bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.err != nil {
		return "", false, l.err
	}
	if l.held == nil {
		l.held = map[string]string{}
	}
	if _, ok := l.held[key]; ok {
		return "", false, nil
	}
	l.held[key] = "token-" + key
	return l.held[key], true, nil
}

func (l *fakeLocker) Holder(ctx context.Context, key string) (string, error) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.held[key], nil
}

func (l *fakeLocker) Release(ctx context.Context, key, token string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.held[key] == token {
		delete(l.held, key)
		l.released = append(l.released, key)
	}
	return nil
}

func newTestScheduler(t *testing.T, subs *fakeSubscriptions, invoices *fakeInvoices) (*Scheduler, *clock.FakeClock) {
	node, err := snowflake.NewNode(1)
	require.NoError(t, err)
	clk := clock.NewFakeClock(time.Date(2025, 3, 1, 9, 0, 0, 0, time.UTC))

	s, err := New(Params{
		Log:             zap.NewNop(),
		GenID:           node,
		Clock:           clk,
		Billing:         config.NewStaticBillingConfigHolder(config.DefaultBillingConfig()),
		SubscriptionSvc: subs,
		InvoiceSvc:      invoices,
		Config:          Config{BatchSize: 10},
	})
	require.NoError(t, err)
	return s, clk
}

func TestNewRequiresDependencies(t *testing.T) {
	_, err := New(Params{Log: zap.NewNop()})
	assert.ErrorIs(t, err, ErrInvalidConfig)
}

func TestRunOnceHonoursIntervals(t *testing.T) {
	subs := &fakeSubscriptions{}
	invoices := &fakeInvoices{}
	s, clk := newTestScheduler(t, subs, invoices)
	ctx := context.Background()

	require.NoError(t, s.RunOnce(ctx))
	for _, name := range []string{"report", "renew", "expire", "recover"} {
		assert.Equal(t, 1, subs.count(name), name)
	}
	assert.Equal(t, 1, invoices.calls)

	// Nothing is due a minute later.
	clk.Advance(time.Minute)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 1, subs.count("recover"))

	// Intent recovery runs every five minutes, expiry every hour.
	clk.Advance(5 * time.Minute)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 2, subs.count("recover"))
	assert.Equal(t, 1, subs.count("expire"))

	clk.Advance(time.Hour)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 2, subs.count("expire"))
	assert.Equal(t, 2, invoices.calls)
	assert.Equal(t, 1, subs.count("report"))

	// Daily report, weekly renewals.
	clk.Advance(24 * time.Hour)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 2, subs.count("report"))
	assert.Equal(t, 1, subs.count("renew"))

	clk.Advance(7 * 24 * time.Hour)
	require.NoError(t, s.RunOnce(ctx))
	assert.Equal(t, 2, subs.count("renew"))
	assert.Equal(t, []int{7, 7, 7}, subs.daysAheadAt)
}

func TestRunOnceEnabledJobs(t *testing.T) {
	subs := &fakeSubscriptions{}
	invoices := &fakeInvoices{}
	s, _ := newTestScheduler(t, subs, invoices)
	s.cfg.EnabledJobs = []string{"AUTO_RENEW"}

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 1, subs.count("renew"))
	assert.Zero(t, subs.count("report"))
	assert.Zero(t, invoices.calls)
}

func TestRunOnceSkipsJobsHeldByAnotherReplica(t *testing.T) {
	subs := &fakeSubscriptions{}
	invoices := &fakeInvoices{}
	s, _ := newTestScheduler(t, subs, invoices)
	locker := &fakeLocker{held: map[string]string{jobLockPrefix + JobAutoRenew: "other"}}
	s.locker = locker

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Zero(t, subs.count("renew"))
	assert.Equal(t, 1, subs.count("report"))

	// Successful runs keep their lease for the interval.
	assert.Contains(t, locker.held, jobLockPrefix+JobRenewalReport)
	assert.Empty(t, locker.released)
}

func TestFailedJobReleasesLease(t *testing.T) {
	subs := &fakeSubscriptions{renewErr: errors.New("db down")}
	invoices := &fakeInvoices{}
	s, clk := newTestScheduler(t, subs, invoices)
	locker := &fakeLocker{}
	s.locker = locker
	s.cfg.EnabledJobs = []string{JobAutoRenew}

	err := s.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "auto_renew")
	assert.Equal(t, []string{jobLockPrefix + JobAutoRenew}, locker.released)

	// Not marked as run, so the next tick retries.
	subs.renewErr = nil
	clk.Advance(time.Minute)
	require.NoError(t, s.RunOnce(context.Background()))
	assert.Equal(t, 2, subs.count("renew"))
}

func TestLockerErrorDefersJob(t *testing.T) {
	subs := &fakeSubscriptions{}
	s, _ := newTestScheduler(t, subs, &fakeInvoices{})
	s.locker = &fakeLocker{err: errors.New("redis unavailable")}

	require.NoError(t, s.RunOnce(context.Background()))
	assert.Zero(t, subs.count("renew"))
}

func TestExpireSubscriptionsDrainsBatches(t *testing.T) {
	subs := &fakeSubscriptions{lapsed: []int{10, 10, 4}}
	s, _ := newTestScheduler(t, subs, &fakeInvoices{})

	require.NoError(t, s.ExpireSubscriptionsJob(context.Background()))
	assert.Equal(t, 3, subs.count("expire"))
}

func TestAutoRenewCountsFailuresWithoutFailingTheJob(t *testing.T) {
	subs := &fakeSubscriptions{renewals: &subscriptiondomain.RenewalBatch{
		Processed:  2,
		Successful: 1,
		Failed:     1,
		Failures:   []subscriptiondomain.RenewalFailure{{EntityID: 42, Email: "a@b.ng", Error: "Insufficient funds"}},
	}}
	s, _ := newTestScheduler(t, subs, &fakeInvoices{})

	ctx, run, _ := s.ensureJobRun(context.Background(), JobAutoRenew)
	require.NoError(t, s.AutoRenewJob(ctx))
	assert.Equal(t, 2, run.processedCount)
	assert.Equal(t, 1, run.errorCount)
}

func TestRunJobTimeoutDoesNotReturnErrorAndIncrementsTimeout(t *testing.T) {
	registry := prometheus.NewRegistry()
	restore := swapPrometheusRegistry(registry)
	defer restore()

	obsmetrics.ResetSchedulerMetricsForTest()
	obsmetrics.SchedulerWithConfig(obsmetrics.Config{
		ServiceName: "invoicepadi",
		Environment: "test",
	})

	node, err := snowflake.NewNode(1)
	require.NoError(t, err)

	s := &Scheduler{log: zap.NewNop(), genID: node, clock: clock.NewFakeClock(time.Time{})}
	err = s.runJob(context.Background(), "timeout_job", 5*time.Millisecond, func(ctx context.Context) error {
		<-ctx.Done()
		return ctx.Err()
	})
	require.NoError(t, err)

	labels := map[string]string{
		"service": "invoicepadi",
		"env":     "test",
		"job":     "timeout_job",
	}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "invoicepadi_scheduler_job_timeouts_total", labels))

	errorLabels := map[string]string{
		"service": "invoicepadi",
		"env":     "test",
		"job":     "timeout_job",
		"reason":  obsmetrics.SchedulerJobReasonDeadlineExceeded,
	}
	assert.Equal(t, 1.0, getCounterValue(t, registry, "invoicepadi_scheduler_job_errors_total", errorLabels))
}

func swapPrometheusRegistry(registry *prometheus.Registry) func() {
	oldRegisterer := prometheus.DefaultRegisterer
	oldGatherer := prometheus.DefaultGatherer
	prometheus.DefaultRegisterer = registry
	prometheus.DefaultGatherer = registry
	return func() {
		prometheus.DefaultRegisterer = oldRegisterer
		prometheus.DefaultGatherer = oldGatherer
		obsmetrics.ResetSchedulerMetricsForTest()
	}
}

func getCounterValue(t *testing.T, registry *prometheus.Registry, name string, labels map[string]string) float64 {
	t.Helper()
	metricFamilies, err := registry.Gather()
	if err != nil {
		t.Fatalf("gather metrics: %v", err)
	}
	for _, mf := range metricFamilies {
		if mf.GetName() != name {
			continue
		}
		for _, metric := range mf.Metric {
			if !labelsMatch(metric, labels) {
				continue
			}
			if metric.Counter == nil {
				t.Fatalf("metric %s is not a counter", name)
			}
			return metric.GetCounter().GetValue()
		}
	}
	t.Fatalf("metric %s with labels %v not found", name, labels)
	return 0
}

func labelsMatch(metric *dto.Metric, labels map[string]string) bool {
	if len(metric.Label) != len(labels) {
		return false
	}
	for _, label := range metric.Label {
		if labels[label.GetName()] != label.GetValue() {
			return false
		}
	}
	return true
}
