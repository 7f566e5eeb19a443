package crawler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrd/availability-crawler/internal/catalog"
	"github.com/scrd/availability-crawler/internal/resolver"
	"github.com/scrd/availability-crawler/internal/store"
)

func keyescapeEntries() []catalog.Entry {
	return []catalog.Entry{
		{
			Site: "keyescape", Brand: "키이스케이프", Location: "강남", Branch: "강남점",
			Title: "포레스트 (FORREST)", NumericID: 196, ThemeCode: "42",
		},
		{
			Site: "keyescape", Brand: "키이스케이프", Location: "홍대", Branch: "홍대점",
			Title: "어느 겨울밤", NumericID: 201, ThemeCode: "43",
		},
	}
}

func TestIngestResolvesDecoratedLabelAndPersists(t *testing.T) {
	t.Parallel()

	mem := store.NewMemoryStore(24 * time.Hour)
	res := resolver.New(keyescapeEntries(), 0, zap.NewNop())
	ing := NewIngestor(res, mem, zap.NewNop())

	outcome := ing.Ingest(context.Background(), RawExtraction{
		Site:       "keyescape",
		BranchHint: "강남점",
		RawLabel:   "[강남] 포레스트 (FORREST)",
		Date:       "2025-06-01",
		TimeSlots:  []string{"13:00", "14:30"},
	})
	require.Equal(t, IngestWritten, outcome)
	require.Equal(t, 1, mem.Len())

	rec, ok := mem.Get(store.KeyOf(store.Record{
		Brand: "키이스케이프", Title: "포레스트 (FORREST)", Date: "2025-06-01", Branch: "강남점",
	}))
	require.True(t, ok)
	require.Equal(t, 196, rec.NumericID)
	require.Equal(t, []string{"13:00", "14:30"}, rec.AvailableTimes)
	require.Equal(t, rec.UpdatedAt.Add(24*time.Hour), rec.ExpireAt)
}

func TestIngestEmptySlotListStillWritesARecord(t *testing.T) {
	t.Parallel()

	mem := store.NewMemoryStore(24 * time.Hour)
	res := resolver.New(keyescapeEntries(), 0, zap.NewNop())
	ing := NewIngestor(res, mem, zap.NewNop())

	outcome := ing.Ingest(context.Background(), RawExtraction{
		Site:       "keyescape",
		BranchHint: "홍대점",
		RawLabel:   "어느 겨울밤",
		Date:       "2025-06-02",
		TimeSlots:  nil,
	})
	require.Equal(t, IngestWritten, outcome)

	rec, ok := mem.Get(store.KeyOf(store.Record{
		Brand: "키이스케이프", Title: "어느 겨울밤", Date: "2025-06-02", Branch: "홍대점",
	}))
	require.True(t, ok)
	require.Empty(t, rec.AvailableTimes)
}

func TestIngestUnmatchedLabelIsDropped(t *testing.T) {
	t.Parallel()

	mem := store.NewMemoryStore(24 * time.Hour)
	res := resolver.New(keyescapeEntries(), 0, zap.NewNop())
	ing := NewIngestor(res, mem, zap.NewNop())

	outcome := ing.Ingest(context.Background(), RawExtraction{
		Site:     "keyescape",
		RawLabel: "전혀 다른 무언가",
		Date:     "2025-06-01",
	})
	require.Equal(t, IngestUnmatched, outcome)
	require.Zero(t, mem.Len())
}

func TestIngestThemeCodeBypassesLabelMatching(t *testing.T) {
	t.Parallel()

	mem := store.NewMemoryStore(24 * time.Hour)
	res := resolver.New(keyescapeEntries(), 0, zap.NewNop())
	ing := NewIngestor(res, mem, zap.NewNop())

	// The label alone would not match; the site-native code carries it.
	outcome := ing.Ingest(context.Background(), RawExtraction{
		Site:      "keyescape",
		ThemeCode: "43",
		RawLabel:  "lbl",
		Date:      "2025-06-03",
		TimeSlots: []string{"20:00"},
	})
	require.Equal(t, IngestWritten, outcome)

	rec, ok := mem.Get(store.KeyOf(store.Record{
		Brand: "키이스케이프", Title: "어느 겨울밤", Date: "2025-06-03", Branch: "홍대점",
	}))
	require.True(t, ok)
	require.Equal(t, 201, rec.NumericID)
}

type failingStore struct{}

func (failingStore) Upsert(context.Context, store.Record) error {
	return errors.New("connection reset")
}
func (failingStore) Close() {}

func TestIngestWriteFailureIsContained(t *testing.T) {
	t.Parallel()

	res := resolver.New(keyescapeEntries(), 0, zap.NewNop())
	ing := NewIngestor(res, failingStore{}, zap.NewNop())

	outcome := ing.Ingest(context.Background(), RawExtraction{
		Site:       "keyescape",
		BranchHint: "강남점",
		RawLabel:   "포레스트 (FORREST)",
		Date:       "2025-06-01",
	})
	require.Equal(t, IngestWriteFailed, outcome)
}
