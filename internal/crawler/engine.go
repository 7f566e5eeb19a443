package crawler

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/scrd/availability-crawler/internal/schedule"
	"github.com/scrd/availability-crawler/internal/session"
)

// Engine runs one site's branch-by-date sweep over a live session.
//
// Each (branch, date) unit executes independently: a navigation timeout or a
// missing element skips that unit, and the sweep moves on. Only the caller's
// cancellation stops a sweep early, and then only between units — calls on
// one session must never interleave.
type Engine struct {
	adapter   SiteAdapter
	days      int
	snapshots SnapshotSink
	logger    *zap.Logger
	now       func() time.Time
}

// NewEngine builds a sweep engine for one adapter. snapshots may be nil.
func NewEngine(adapter SiteAdapter, days int, snapshots SnapshotSink, logger *zap.Logger) *Engine {
	return &Engine{
		adapter:   adapter,
		days:      days,
		snapshots: snapshots,
		logger:    logger.With(zap.String("site", adapter.Site())),
		now:       time.Now,
	}
}

// WithClock overrides the time source, for tests.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// Sweep visits every (branch, date) unit and feeds extractions to sink.
// Branches run in catalog-declared order, dates ascending.
func (e *Engine) Sweep(ctx context.Context, sess session.Session, sink Sink) UnitCounters {
	var counters UnitCounters
	dates := schedule.Window(e.now(), e.days)

	for _, target := range e.adapter.Targets() {
		for _, date := range dates {
			if ctx.Err() != nil {
				e.logger.Info("sweep cancelled", zap.Int("units_done", counters.UnitsAttempted))
				return counters
			}
			counters.Add(e.runUnit(ctx, sess, sink, target, date))
		}
	}
	return counters
}

func (e *Engine) runUnit(
	ctx context.Context,
	sess session.Session,
	sink Sink,
	target Target,
	date time.Time,
) UnitCounters {
	var counters UnitCounters
	counters.UnitsAttempted = 1

	dateStr := schedule.Format(date)
	unitLog := e.logger.With(zap.String("branch", target.Key), zap.String("date", dateStr))

	if err := e.adapter.SelectBranch(ctx, sess, target); err != nil {
		e.skipUnit(ctx, sess, unitLog, target, dateStr, "select branch", err)
		counters.UnitsSkipped = 1
		return counters
	}
	if err := e.adapter.SelectDate(ctx, sess, date); err != nil {
		e.skipUnit(ctx, sess, unitLog, target, dateStr, "select date", err)
		counters.UnitsSkipped = 1
		return counters
	}
	extractions, err := e.adapter.Extract(ctx, sess)
	if err != nil {
		e.skipUnit(ctx, sess, unitLog, target, dateStr, "extract", err)
		counters.UnitsSkipped = 1
		return counters
	}

	counters.UnitsSucceeded = 1
	metrics().units.WithLabelValues(e.adapter.Site(), "succeeded").Inc()
	for _, raw := range extractions {
		switch sink.Ingest(ctx, raw) {
		case IngestWritten:
			counters.RecordsWritten++
		case IngestUnmatched:
			counters.Unmatched++
		case IngestWriteFailed:
			counters.WriteFailures++
		}
	}
	unitLog.Debug("unit done",
		zap.Int("labels", len(extractions)),
		zap.Int("written", counters.RecordsWritten),
	)
	return counters
}

func (e *Engine) skipUnit(
	ctx context.Context,
	sess session.Session,
	unitLog *zap.Logger,
	target Target,
	date string,
	stage string,
	err error,
) {
	unitLog.Warn("unit skipped", zap.String("stage", stage), zap.Error(err))
	metrics().units.WithLabelValues(e.adapter.Site(), "skipped").Inc()
	if e.snapshots == nil {
		return
	}
	html, snapErr := sess.Snapshot(ctx)
	if snapErr != nil {
		unitLog.Debug("snapshot unavailable", zap.Error(snapErr))
		return
	}
	e.snapshots.SaveUnit(e.adapter.Site(), target.Key, date, html)
}
