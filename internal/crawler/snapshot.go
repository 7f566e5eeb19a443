package crawler

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"
)

// SnapshotSink archives a failing unit's DOM for selector-drift diagnosis.
type SnapshotSink interface {
	SaveUnit(site, branchKey, date, html string)
}

// FileSnapshotSink writes snapshots under a local debug directory.
type FileSnapshotSink struct {
	root     string
	maxBytes int64
	logger   *zap.Logger
}

// NewFileSnapshotSink returns a sink rooted at dir.
func NewFileSnapshotSink(root string, maxBytes int64, logger *zap.Logger) (*FileSnapshotSink, error) {
	if err := os.MkdirAll(root, 0o750); err != nil {
		return nil, fmt.Errorf("create snapshot dir %s: %w", root, err)
	}
	return &FileSnapshotSink{
		root:     root,
		maxBytes: maxBytes,
		logger:   logger,
	}, nil
}

// SaveUnit writes one snapshot; failures are logged, never propagated, since
// snapshots are diagnostics only.
func (s *FileSnapshotSink) SaveUnit(site, branchKey, date, html string) {
	if html == "" {
		return
	}
	if s.maxBytes > 0 && int64(len(html)) > s.maxBytes {
		s.logger.Debug("snapshot exceeds size cap, skipped",
			zap.String("site", site), zap.Int("bytes", len(html)))
		return
	}
	name := fmt.Sprintf("%s_%s_%s_%d.html",
		site, safeSegment(branchKey), date, time.Now().Unix())
	target := filepath.Join(s.root, site, name)
	if err := os.MkdirAll(filepath.Dir(target), 0o750); err != nil {
		s.logger.Warn("snapshot dir create failed", zap.Error(err))
		return
	}
	if err := os.WriteFile(target, []byte(html), 0o600); err != nil {
		s.logger.Warn("snapshot write failed", zap.String("path", target), zap.Error(err))
		return
	}
	s.logger.Debug("unit snapshot saved", zap.String("path", target))
}

func safeSegment(s string) string {
	if s == "" {
		return "default"
	}
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '-', r == '_':
			return r
		default:
			return '-'
		}
	}, s)
}
