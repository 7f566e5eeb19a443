package sites

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/scrd/availability-crawler/internal/catalog"
	"github.com/scrd/availability-crawler/internal/config"
	"github.com/scrd/availability-crawler/internal/crawler"
	"github.com/scrd/availability-crawler/internal/schedule"
	"github.com/scrd/availability-crawler/internal/session"
)

// Keyescape drives keyescape.co.kr's reservation page. The page is a single
// script-driven form: fun_days_select renders the theme list for a date, and
// fun_theme_select renders the slot list for one theme. Every branch's themes
// share that one page, so the sweep uses a single pseudo-target and the
// per-theme iteration happens inside Extract, keyed by the catalog's
// site-native theme codes.
type Keyescape struct {
	baseURL     string
	waitTimeout time.Duration
	entries     []catalog.Entry
	logger      *zap.Logger

	selThemeData string
	selTimeData  string
	selPossible  string
	scriptDate   string
	scriptTheme  string

	date string
}

// NewKeyescape builds the adapter from config plus the site's catalog slice.
func NewKeyescape(cfg config.SiteConfig, entries []catalog.Entry, logger *zap.Logger) *Keyescape {
	return &Keyescape{
		baseURL:      cfg.BaseURL,
		waitTimeout:  cfg.SiteWaitTimeout(),
		entries:      entries,
		logger:       logger.With(zap.String("site", "keyescape")),
		selThemeData: selector(cfg, "theme_data", "#theme_data"),
		selTimeData:  selector(cfg, "time_data", "#theme_time_data"),
		selPossible:  selector(cfg, "possible", "#theme_time_data li.possible"),
		scriptDate:   script(cfg, "select_date", "fun_days_select('%s', '0');"),
		scriptTheme:  script(cfg, "select_theme", "fun_theme_select('%s', '%s');"),
	}
}

func (k *Keyescape) Site() string   { return "keyescape" }
func (k *Keyescape) Family() string { return config.FamilyBrowser }

// Targets returns the single pseudo-target covering every branch.
func (k *Keyescape) Targets() []crawler.Target {
	return []crawler.Target{{Key: "all", Name: ""}}
}

// SelectBranch loads the reservation page. Branch selection proper happens
// theme by theme in Extract.
func (k *Keyescape) SelectBranch(ctx context.Context, sess session.Session, _ crawler.Target) error {
	return sess.Navigate(ctx, k.baseURL)
}

// SelectDate drives the date picker script and waits for the theme list.
func (k *Keyescape) SelectDate(ctx context.Context, sess session.Session, date time.Time) error {
	k.date = schedule.Format(date)
	if err := sess.Exec(ctx, fmt.Sprintf(k.scriptDate, k.date)); err != nil {
		return fmt.Errorf("select date %s: %w", k.date, err)
	}
	if err := sess.WaitVisible(ctx, k.selThemeData, k.waitTimeout); err != nil {
		return fmt.Errorf("theme list for %s: %w", k.date, err)
	}
	return nil
}

// Extract walks every catalog theme, selecting each in turn and reading its
// slot list. Failures are contained per theme: a theme whose select script
// fails is skipped for this cycle, and a theme whose slot list never shows
// yields a no-slots extraction, since the page renders nothing at all for
// themes with no sessions that day. Neither costs the remaining themes their
// data.
func (k *Keyescape) Extract(ctx context.Context, sess session.Session) ([]crawler.RawExtraction, error) {
	out := make([]crawler.RawExtraction, 0, len(k.entries))
	for _, entry := range k.entries {
		if entry.ThemeCode == "" {
			continue
		}
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := sess.Exec(ctx, fmt.Sprintf(k.scriptTheme, entry.ThemeCode, entry.ThemeIndex)); err != nil {
			k.logger.Warn("theme select failed, skipped",
				zap.String("theme_code", entry.ThemeCode), zap.Error(err))
			continue
		}

		var slots []string
		if err := sess.WaitVisible(ctx, k.selTimeData, k.waitTimeout); err == nil {
			elements, qerr := sess.QueryAll(ctx, k.selPossible)
			if qerr != nil {
				k.logger.Warn("slot query failed, recorded as no slots",
					zap.String("theme_code", entry.ThemeCode), zap.Error(qerr))
			}
			for _, el := range elements {
				if t := cleanSlot(el.Text); t != "" {
					slots = append(slots, t)
				}
			}
		}

		out = append(out, crawler.RawExtraction{
			Site:       k.Site(),
			BranchHint: entry.Branch,
			RawLabel:   entry.Title,
			ThemeCode:  entry.ThemeCode,
			Date:       k.date,
			TimeSlots:  slots,
		})
	}
	return out, nil
}

func selector(cfg config.SiteConfig, key, fallback string) string {
	if v, ok := cfg.Selectors[key]; ok && v != "" {
		return v
	}
	return fallback
}

func script(cfg config.SiteConfig, key, fallback string) string {
	if v, ok := cfg.Scripts[key]; ok && v != "" {
		return v
	}
	return fallback
}
