package resolver

import (
	"errors"

	"go.uber.org/zap"

	"github.com/scrd/availability-crawler/internal/catalog"
)

// DefaultThreshold is the minimum fuzzy similarity accepted as a match.
// Per-site overrides exist because label-decoration noise differs per site.
const DefaultThreshold = 0.85

// ErrUnmatched reports a raw label no catalog entry claims. Unmatched
// extractions are logged and dropped; persisting them under a fabricated
// identity would corrupt the store's composite keys.
var ErrUnmatched = errors.New("no catalog match")

// Resolver resolves raw labels for one site against the catalog.
type Resolver struct {
	entries   []catalog.Entry
	threshold float64
	logger    *zap.Logger
}

// New builds a resolver over the site's catalog entries, in declaration
// order. A non-positive threshold selects DefaultThreshold.
func New(entries []catalog.Entry, threshold float64, logger *zap.Logger) *Resolver {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &Resolver{
		entries:   entries,
		threshold: threshold,
		logger:    logger,
	}
}

// Threshold returns the acceptance threshold in effect.
func (r *Resolver) Threshold() float64 {
	return r.threshold
}

// ResolveByKey looks an entry up by its site-native theme code, bypassing
// label matching entirely. Adapters use this when the site exposes a stable
// numeric key.
func (r *Resolver) ResolveByKey(themeCode string) (catalog.Entry, error) {
	if themeCode == "" {
		return catalog.Entry{}, ErrUnmatched
	}
	for _, e := range r.entries {
		if e.ThemeCode == themeCode {
			return e, nil
		}
	}
	return catalog.Entry{}, ErrUnmatched
}

// Resolve finds the catalog entry for a raw label scraped at branchHint.
// Exact normalized equality wins immediately; otherwise the best
// Jaro-Winkler score at or above the threshold is accepted, ties broken by
// catalog declaration order.
func (r *Resolver) Resolve(rawLabel, branchHint string) (catalog.Entry, error) {
	normalized := Normalize(rawLabel)
	if normalized == "" {
		return catalog.Entry{}, ErrUnmatched
	}

	candidates := r.branchCandidates(branchHint)
	for _, e := range candidates {
		if Normalize(e.Title) == normalized {
			return e, nil
		}
	}

	var (
		best      catalog.Entry
		bestScore float64
		found     bool
	)
	for _, e := range candidates {
		score := jaroWinkler(normalized, Normalize(e.Title))
		if score > bestScore {
			bestScore = score
			best = e
			found = true
		}
	}
	if found && bestScore >= r.threshold {
		r.logger.Debug("fuzzy label match",
			zap.String("raw", rawLabel),
			zap.String("title", best.Title),
			zap.Float64("score", bestScore),
		)
		return best, nil
	}

	r.logger.Warn("unmatched label",
		zap.String("raw", rawLabel),
		zap.String("branch", branchHint),
		zap.Float64("best_score", bestScore),
	)
	return catalog.Entry{}, ErrUnmatched
}

func (r *Resolver) branchCandidates(branchHint string) []catalog.Entry {
	if branchHint == "" {
		return r.entries
	}
	var out []catalog.Entry
	for _, e := range r.entries {
		if e.Branch == branchHint {
			out = append(out, e)
		}
	}
	return out
}
