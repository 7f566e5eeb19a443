package sites

import (
	"context"
	"fmt"
	"time"

	"github.com/scrd/availability-crawler/internal/config"
	"github.com/scrd/availability-crawler/internal/crawler"
	"github.com/scrd/availability-crawler/internal/schedule"
	"github.com/scrd/availability-crawler/internal/session"
)

// Goldenkey reads 황금열쇠's reservation page, which renders availability
// server-side: one GET per (branch, date) with rev_days and s_zizum query
// parameters, no scripting involved. It is the document-family adapter.
type Goldenkey struct {
	baseURL     string
	waitTimeout time.Duration
	targets     []crawler.Target

	selThemeBox string
	selTitle    string
	selSlotLink string
	selPossible string
	selTime     string

	branch crawler.Target
	date   string
}

// NewGoldenkey builds the adapter from config.
func NewGoldenkey(cfg config.SiteConfig) *Goldenkey {
	return &Goldenkey{
		baseURL:     cfg.BaseURL,
		waitTimeout: cfg.SiteWaitTimeout(),
		targets:     targetsFromConfig(cfg.Branches),
		selThemeBox: selector(cfg, "theme_box", "div.theme_box"),
		selTitle:    selector(cfg, "title", "h3.h3_theme"),
		selSlotLink: selector(cfg, "slot_link", "div.time_Area ul.reserve_Time li a"),
		selPossible: selector(cfg, "possible", "span.possible"),
		selTime:     selector(cfg, "time", "span.time"),
	}
}

func (g *Goldenkey) Site() string   { return "goldenkey" }
func (g *Goldenkey) Family() string { return config.FamilyDocument }

func (g *Goldenkey) Targets() []crawler.Target { return g.targets }

// SelectBranch remembers the branch; it is encoded in the URL SelectDate
// fetches.
func (g *Goldenkey) SelectBranch(_ context.Context, _ session.Session, target crawler.Target) error {
	g.branch = target
	return nil
}

// SelectDate fetches the branch's page for the date and confirms the theme
// listing rendered.
func (g *Goldenkey) SelectDate(ctx context.Context, sess session.Session, date time.Time) error {
	g.date = schedule.Format(date)
	url := fmt.Sprintf("%s?rev_days=%s&s_zizum=%s&go=rev.make", g.baseURL, g.date, g.branch.Key)
	if err := sess.Navigate(ctx, url); err != nil {
		return fmt.Errorf("fetch %s %s: %w", g.branch.Key, g.date, err)
	}
	return sess.WaitVisible(ctx, g.selThemeBox, g.waitTimeout)
}

// Extract parses every theme box. A slot is bookable when its anchor is a
// real link (href present) and carries the possible marker; sold-out slots
// render the same markup minus both.
func (g *Goldenkey) Extract(ctx context.Context, sess session.Session) ([]crawler.RawExtraction, error) {
	boxes, err := sess.QueryAll(ctx, g.selThemeBox)
	if err != nil {
		return nil, fmt.Errorf("list theme boxes: %w", err)
	}

	out := make([]crawler.RawExtraction, 0, len(boxes))
	for _, box := range boxes {
		title, ok := box.First(g.selTitle)
		if !ok {
			continue
		}
		label := cleanText(title.Text)
		if label == "" {
			continue
		}

		links, err := box.Find(g.selSlotLink)
		if err != nil {
			return nil, fmt.Errorf("slots for %q: %w", label, err)
		}
		var slots []string
		for _, link := range links {
			if !link.HasAttr("href") {
				continue
			}
			if _, ok := link.First(g.selPossible); !ok {
				continue
			}
			timeEl, ok := link.First(g.selTime)
			if !ok {
				continue
			}
			if t := cleanSlot(timeEl.Text); t != "" {
				slots = append(slots, t)
			}
		}

		out = append(out, crawler.RawExtraction{
			Site:       g.Site(),
			BranchHint: g.branch.Name,
			RawLabel:   label,
			Date:       g.date,
			TimeSlots:  slots,
		})
	}
	return out, nil
}
