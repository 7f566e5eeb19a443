// Package sites holds one adapter per supported reservation site. Adapters
// carry the site specifics (endpoints, selectors, script calls); the sweep
// loop and persistence live elsewhere.
package sites

import (
	"fmt"
	"strings"

	"go.uber.org/zap"

	"github.com/scrd/availability-crawler/internal/catalog"
	"github.com/scrd/availability-crawler/internal/config"
	"github.com/scrd/availability-crawler/internal/crawler"
)

// Build constructs the adapter for a configured site. entries is the site's
// slice of the catalog, in declaration order.
func Build(site string, cfg config.SiteConfig, entries []catalog.Entry, logger *zap.Logger) (crawler.SiteAdapter, error) {
	switch site {
	case "keyescape":
		return NewKeyescape(cfg, entries, logger), nil
	case "zeroworld":
		return NewZeroworld(cfg), nil
	case "goldenkey":
		return NewGoldenkey(cfg), nil
	case "beatphobia":
		return NewBeatphobia(cfg), nil
	default:
		return nil, fmt.Errorf("no adapter for site %q", site)
	}
}

// targetsFromConfig maps configured branches onto sweep targets.
func targetsFromConfig(branches []config.BranchConfig) []crawler.Target {
	out := make([]crawler.Target, 0, len(branches))
	for _, b := range branches {
		out = append(out, crawler.Target{Key: b.Key, Name: b.Name, URL: b.URL})
	}
	return out
}

// cleanText collapses runs of whitespace to single spaces. Scraped labels
// routinely carry newlines and indentation from the page markup.
func cleanText(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

// cleanSlot tidies one scraped time label. Sites append seat counts or
// status glyphs to the time text; only the leading time token is stable.
//
//	"14시 50분"       -> "14시 50분"
//	"13:00 (2/4)"     -> "13:00"
//	"20:30 마감임박"   -> "20:30"
func cleanSlot(s string) string {
	s = cleanText(s)
	if i := strings.IndexByte(s, '('); i >= 0 {
		s = strings.TrimSpace(s[:i])
	}
	fields := strings.Fields(s)
	if len(fields) >= 2 && isTimeToken(fields[0]) && !isTimeToken(fields[1]) {
		return fields[0]
	}
	return s
}

func isTimeToken(s string) bool {
	for _, r := range s {
		switch {
		case r >= '0' && r <= '9', r == ':', r == '시', r == '분':
		default:
			return false
		}
	}
	return s != ""
}
