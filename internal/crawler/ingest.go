package crawler

import (
	"context"

	"go.uber.org/zap"

	"github.com/scrd/availability-crawler/internal/catalog"
	"github.com/scrd/availability-crawler/internal/resolver"
	"github.com/scrd/availability-crawler/internal/store"
)

// Sink consumes raw extractions as the engine produces them.
type Sink interface {
	Ingest(ctx context.Context, raw RawExtraction) IngestOutcome
}

// IngestOutcome says what became of one extraction.
type IngestOutcome int

// Outcomes of ingesting a single extraction.
const (
	IngestWritten IngestOutcome = iota
	IngestUnmatched
	IngestWriteFailed
)

// Ingestor resolves extractions against the catalog and upserts the result.
// Per-record failures are contained here: an unmatched label or a failed
// write never interrupts the sweep, the record is simply absent until the
// next crawl cycle refreshes it.
type Ingestor struct {
	resolver *resolver.Resolver
	store    store.Store
	logger   *zap.Logger
}

// NewIngestor wires a resolver and a store for one site's extractions.
func NewIngestor(res *resolver.Resolver, st store.Store, logger *zap.Logger) *Ingestor {
	return &Ingestor{
		resolver: res,
		store:    st,
		logger:   logger,
	}
}

// Ingest maps one extraction to its catalog identity and persists it.
// An empty slot list still produces a record: "confirmed no slots" must be
// distinguishable from "no data".
func (in *Ingestor) Ingest(ctx context.Context, raw RawExtraction) IngestOutcome {
	entry, err := in.resolve(raw)
	if err != nil {
		metrics().unmatchedLabels.WithLabelValues(raw.Site).Inc()
		return IngestUnmatched
	}

	rec := store.Record{
		Brand:          entry.Brand,
		Location:       entry.Location,
		Branch:         entry.Branch,
		Title:          entry.Title,
		NumericID:      entry.NumericID,
		Date:           raw.Date,
		AvailableTimes: raw.TimeSlots,
	}
	if err := in.store.Upsert(ctx, rec); err != nil {
		in.logger.Error("availability upsert failed",
			zap.String("site", raw.Site),
			zap.String("title", entry.Title),
			zap.String("date", raw.Date),
			zap.Error(err),
		)
		metrics().writeFailures.WithLabelValues(raw.Site).Inc()
		return IngestWriteFailed
	}

	metrics().recordsWritten.WithLabelValues(raw.Site).Inc()
	return IngestWritten
}

func (in *Ingestor) resolve(raw RawExtraction) (catalog.Entry, error) {
	if raw.ThemeCode != "" {
		if e, err := in.resolver.ResolveByKey(raw.ThemeCode); err == nil {
			return e, nil
		}
		// Fall through to label matching; a stale code should not drop an
		// otherwise resolvable label.
	}
	return in.resolver.Resolve(raw.RawLabel, raw.BranchHint)
}
