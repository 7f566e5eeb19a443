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

// Beatphobia drives xdungeon.net's reservation page. Branches are separate
// pages addressed by an s_zizum URL parameter; within a page, the date lives
// in a hidden form field that a fun_search() call re-renders the theme boxes
// from.
type Beatphobia struct {
	baseURL     string
	waitTimeout time.Duration
	targets     []crawler.Target

	selThemeBox string
	selBox      string
	selTitle    string
	selSlot     string
	scriptDate  string

	branch crawler.Target
	date   string
}

// NewBeatphobia builds the adapter from config.
func NewBeatphobia(cfg config.SiteConfig) *Beatphobia {
	return &Beatphobia{
		baseURL:     cfg.BaseURL,
		waitTimeout: cfg.SiteWaitTimeout(),
		targets:     targetsFromConfig(cfg.Branches),
		selThemeBox: selector(cfg, "theme_box", ".thm_box"),
		selBox:      selector(cfg, "box", ".thm_box .box"),
		selTitle:    selector(cfg, "title", ".img_box .tit"),
		selSlot:     selector(cfg, "slot", ".time_box ul li.sale:not(.dead) a"),
		scriptDate: script(cfg, "select_date",
			`document.querySelector('input[name="rev_days"]').value = '%s'; fun_search();`),
	}
}

func (b *Beatphobia) Site() string   { return "beatphobia" }
func (b *Beatphobia) Family() string { return config.FamilyBrowser }

func (b *Beatphobia) Targets() []crawler.Target { return b.targets }

// SelectBranch loads the branch's page and waits for the theme listing.
func (b *Beatphobia) SelectBranch(ctx context.Context, sess session.Session, target crawler.Target) error {
	b.branch = target
	url := target.URL
	if url == "" {
		url = fmt.Sprintf("%s?go=rev.main&s_zizum=%s", b.baseURL, target.Key)
	}
	if err := sess.Navigate(ctx, url); err != nil {
		return fmt.Errorf("open branch %s: %w", target.Key, err)
	}
	return sess.WaitVisible(ctx, b.selThemeBox, b.waitTimeout)
}

// SelectDate writes the date into the search form and re-renders.
func (b *Beatphobia) SelectDate(ctx context.Context, sess session.Session, date time.Time) error {
	b.date = schedule.Format(date)
	if err := sess.Exec(ctx, fmt.Sprintf(b.scriptDate, b.date)); err != nil {
		return fmt.Errorf("set date %s: %w", b.date, err)
	}
	return sess.WaitVisible(ctx, b.selThemeBox, b.waitTimeout)
}

// Extract reads every theme box; bookable slots are the sale entries not
// additionally marked dead.
func (b *Beatphobia) Extract(ctx context.Context, sess session.Session) ([]crawler.RawExtraction, error) {
	boxes, err := sess.QueryAll(ctx, b.selBox)
	if err != nil {
		return nil, fmt.Errorf("list theme boxes: %w", err)
	}

	out := make([]crawler.RawExtraction, 0, len(boxes))
	for _, box := range boxes {
		title, ok := box.First(b.selTitle)
		if !ok {
			continue
		}
		label := cleanText(title.Text)
		if label == "" {
			continue
		}

		anchors, err := box.Find(b.selSlot)
		if err != nil {
			return nil, fmt.Errorf("slots for %q: %w", label, err)
		}
		var slots []string
		for _, a := range anchors {
			if t := cleanSlot(a.Text); t != "" {
				slots = append(slots, t)
			}
		}

		out = append(out, crawler.RawExtraction{
			Site:       b.Site(),
			BranchHint: b.branch.Name,
			RawLabel:   label,
			Date:       b.date,
			TimeSlots:  slots,
		})
	}
	return out, nil
}
