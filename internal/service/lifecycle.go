package service

import (
	"context"
	"fmt"
	"runtime/debug"
	"sync"
	"time"

	"web_accessibility_analyzer/internal/domain/adaptors"
	"web_accessibility_analyzer/internal/domain/models"
	"web_accessibility_analyzer/internal/pkg/errors"
	"web_accessibility_analyzer/internal/pkg/metrics"

	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/semaphore"
)

const DefaultAuditTimeout = 60 * time.Second

// persistTimeout bounds the final store write of a background analysis.
const persistTimeout = 10 * time.Second

type LifecycleConfig struct {
	// AuditTimeout bounds one audit including the wait for a quiescent page.
	AuditTimeout time.Duration
	// MaxConcurrent caps concurrent audits; 0 means unlimited.
	MaxConcurrent int64
}

// LifecycleManager owns the processing -> completed/error transition of
// analyses. Analyses run detached from the request that created them.
type LifecycleManager struct {
	store    adaptors.AnalysisStore
	auditor  adaptors.PageAuditor
	notifier adaptors.AnalysisNotifier
	clock    adaptors.Clock
	timeout  time.Duration
	slots    *semaphore.Weighted
	inFlight sync.WaitGroup
	log      *log.Logger
}

func NewLifecycleManager(
	store adaptors.AnalysisStore,
	auditor adaptors.PageAuditor,
	notifier adaptors.AnalysisNotifier,
	clock adaptors.Clock,
	cfg LifecycleConfig,
	log *log.Logger,
) *LifecycleManager {
	if notifier == nil {
		notifier = adaptors.NopNotifier{}
	}
	if clock == nil {
		clock = adaptors.SystemClock{}
	}
	if cfg.AuditTimeout <= 0 {
		cfg.AuditTimeout = DefaultAuditTimeout
	}
	m := &LifecycleManager{
		store:    store,
		auditor:  auditor,
		notifier: notifier,
		clock:    clock,
		timeout:  cfg.AuditTimeout,
		log:      log,
	}
	if cfg.MaxConcurrent > 0 {
		m.slots = semaphore.NewWeighted(cfg.MaxConcurrent)
	}
	return m
}

// Start runs the analysis in the background and returns immediately.
func (m *LifecycleManager) Start(analysisID, url string) {
	metrics.AnalysesStartedTotal.Inc()
	m.inFlight.Add(1)
	go func() {
		defer m.inFlight.Done()
		m.Run(context.Background(), analysisID, url)
	}()
}

// Wait blocks until every started analysis has finished or ctx ends.
func (m *LifecycleManager) Wait(ctx context.Context) error {
	done := make(chan struct{})
	go func() {
		m.inFlight.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Run audits url and records the outcome on analysisID. It returns the
// status it recorded; it never panics and never returns an error, because
// there is no caller left to report to.
func (m *LifecycleManager) Run(ctx context.Context, analysisID, url string) (status models.Status) {
	metrics.AnalysesInFlight.Inc()
	defer metrics.AnalysesInFlight.Dec()

	entry := m.log.WithFields(log.Fields{`analysis_id`: analysisID, `url`: url})
	defer func() {
		if rec := recover(); rec != nil {
			entry.WithField(`stack`, string(debug.Stack())).Errorf(`analysis panic recovered: %v`, rec)
			status = m.failAfterPanic(ctx, entry, analysisID)
		}
	}()

	if m.slots != nil {
		if err := m.slots.Acquire(ctx, 1); err != nil {
			entry.WithError(err).Error(`failed to acquire audit slot`)
			return m.finish(ctx, entry, analysisID, models.Fail(m.clock.Now()))
		}
		defer m.slots.Release(1)
	}

	entry.Debug(`analysis started`)
	start := time.Now()
	result, err := m.audit(ctx, url)
	if err != nil {
		metrics.AuditDuration.WithLabelValues(`failure`).Observe(time.Since(start).Seconds())
		entry.WithError(err).Warn(`audit failed`)
		return m.finish(ctx, entry, analysisID, models.Fail(m.clock.Now()))
	}
	metrics.AuditDuration.WithLabelValues(`success`).Observe(time.Since(start).Seconds())

	score := Score(result)
	t, err := models.Complete(score, result.Normalize(), m.clock.Now())
	if err != nil {
		entry.WithError(err).Error(`failed to build completed transition`)
		return m.finish(ctx, entry, analysisID, models.Fail(m.clock.Now()))
	}
	metrics.AnalysisScore.Observe(float64(score))
	entry = entry.WithFields(log.Fields{`score`: score, `grade`: GradeFor(score)})
	return m.finish(ctx, entry, analysisID, t)
}

// audit opens a session, audits, and always closes the session before
// returning, including when the auditor panics.
func (m *LifecycleManager) audit(ctx context.Context, url string) (result *models.AuditResult, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			m.log.WithField(`stack`, string(debug.Stack())).Errorf(`audit panic recovered: %v`, rec)
			result, err = nil, fmt.Errorf("audit panicked: %v", rec)
		}
	}()

	auditCtx, cancel := context.WithTimeout(ctx, m.timeout)
	defer cancel()

	session, err := m.auditor.NewSession(auditCtx)
	if err != nil {
		return nil, errors.Wrap(err, `failed to open audit session`)
	}
	defer func() {
		if cErr := session.Close(); cErr != nil {
			m.log.WithError(cErr).Warn(`failed to close audit session`)
		}
	}()

	result, err = session.Audit(auditCtx, url)
	if err != nil {
		return nil, errors.Wrap(err, `failed to audit page`)
	}
	if result == nil {
		return nil, errors.New(`auditor returned no result`)
	}
	return result, nil
}

func (m *LifecycleManager) finish(ctx context.Context, entry *log.Entry, analysisID string, t models.Transition) models.Status {
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	metrics.AnalysesFinishedTotal.WithLabelValues(string(t.Status())).Inc()

	err := m.store.Update(ctx, analysisID, t)
	switch {
	case err == nil:
	case errors.Is(err, errors.ErrNotFound):
		entry.Info(`analysis deleted while in flight, dropping result`)
		return t.Status()
	case errors.Is(err, errors.ErrInvalidTransition):
		entry.Warn(`analysis already finished, dropping result`)
		return t.Status()
	default:
		entry.WithError(err).Error(`failed to persist analysis result`)
		return t.Status()
	}

	entry.WithField(`status`, t.Status()).Info(`analysis finished`)

	updated, err := m.store.Get(ctx, analysisID)
	if err != nil {
		entry.WithError(err).Debug(`failed to reload analysis for notification`)
		return t.Status()
	}
	m.notify(entry, updated)
	return t.Status()
}

// notify publishes the update. The record is already persisted, so a
// misbehaving notifier is logged and otherwise ignored.
func (m *LifecycleManager) notify(entry *log.Entry, analysis *models.Analysis) {
	defer func() {
		if rec := recover(); rec != nil {
			entry.Errorf(`notifier panic recovered: %v`, rec)
		}
	}()
	m.notifier.Notify(adaptors.EventAnalysisUpdated, analysis)
}

// failAfterPanic makes one attempt to record the analysis as failed after
// Run panicked before its result was persisted.
func (m *LifecycleManager) failAfterPanic(ctx context.Context, entry *log.Entry, analysisID string) models.Status {
	defer func() {
		if rec := recover(); rec != nil {
			entry.Errorf(`failed to record panicked analysis: %v`, rec)
		}
	}()

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), persistTimeout)
	defer cancel()

	metrics.AnalysesFinishedTotal.WithLabelValues(string(models.StatusError)).Inc()
	if err := m.store.Update(ctx, analysisID, models.Fail(m.clock.Now())); err != nil {
		entry.WithError(err).Warn(`failed to record panicked analysis`)
	}
	return models.StatusError
}
