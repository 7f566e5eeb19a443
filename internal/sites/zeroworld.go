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

// Zeroworld drives zerogangnam.com's reservation page: an inline datepicker
// whose day cells carry data-year/data-month/data-date attributes (month
// zero-based), a theme radio list, and a per-theme slot list. Labels come
// decorated with a bracketed location prefix ("[강남] 링") that resolution
// strips later.
type Zeroworld struct {
	baseURL     string
	waitTimeout time.Duration
	targets     []crawler.Target

	selCalendar   string
	selThemeList  string
	selThemeLabel string
	selTimeWrap   string
	selTimeLabel  string

	branch string
	date   string
}

// NewZeroworld builds the adapter from config.
func NewZeroworld(cfg config.SiteConfig) *Zeroworld {
	return &Zeroworld{
		baseURL:       cfg.BaseURL,
		waitTimeout:   cfg.SiteWaitTimeout(),
		targets:       targetsFromConfig(cfg.Branches),
		selCalendar:   selector(cfg, "calendar", "#calendar"),
		selThemeList:  selector(cfg, "theme_list", "#themeChoice"),
		selThemeLabel: selector(cfg, "theme_label", "#themeChoice label.hover2"),
		selTimeWrap:   selector(cfg, "time_wrap", "#themeTimeWrap"),
		selTimeLabel:  selector(cfg, "time_label", "#themeTimeWrap label.hover2"),
	}
}

func (z *Zeroworld) Site() string   { return "zeroworld" }
func (z *Zeroworld) Family() string { return config.FamilyBrowser }

func (z *Zeroworld) Targets() []crawler.Target { return z.targets }

// SelectBranch loads the reservation page and waits for the calendar.
func (z *Zeroworld) SelectBranch(ctx context.Context, sess session.Session, target crawler.Target) error {
	z.branch = target.Name
	url := z.baseURL
	if target.URL != "" {
		url = target.URL
	}
	if err := sess.Navigate(ctx, url); err != nil {
		return err
	}
	return sess.WaitVisible(ctx, z.selCalendar, z.waitTimeout)
}

// SelectDate clicks the matching datepicker cell and waits for the theme
// list. A missing or disabled cell throws inside the page, which the session
// surfaces as a failed Exec; the unit is then skipped instead of extracting
// whatever day the calendar was left showing.
func (z *Zeroworld) SelectDate(ctx context.Context, sess session.Session, date time.Time) error {
	z.date = schedule.Format(date)
	// data-month is zero-based.
	click := fmt.Sprintf(
		`(function() {
			var cell = document.querySelector(
				'.datepicker--cell.datepicker--cell-day[data-year="%d"][data-month="%d"][data-date="%d"]');
			if (!cell || cell.className.indexOf('-disabled-') !== -1) {
				throw new Error('date cell missing or disabled');
			}
			cell.scrollIntoView(true);
			cell.click();
		})();`,
		date.Year(), int(date.Month())-1, date.Day(),
	)
	if err := sess.Exec(ctx, click); err != nil {
		return fmt.Errorf("click date cell %s: %w", z.date, err)
	}
	if err := sess.WaitVisible(ctx, z.selThemeList, z.waitTimeout); err != nil {
		return fmt.Errorf("theme list for %s: %w", z.date, err)
	}
	return sess.WaitVisible(ctx, z.selThemeLabel, z.waitTimeout)
}

// Extract clicks through every theme radio and reads its slot list. A slot
// is bookable when its radio input is not disabled and its label has not been
// marked active by someone mid-booking.
func (z *Zeroworld) Extract(ctx context.Context, sess session.Session) ([]crawler.RawExtraction, error) {
	themes, err := sess.QueryAll(ctx, z.selThemeLabel)
	if err != nil {
		return nil, fmt.Errorf("list themes: %w", err)
	}

	out := make([]crawler.RawExtraction, 0, len(themes))
	for _, theme := range themes {
		radio, ok := theme.First("input[type='radio']")
		if !ok {
			continue
		}
		value := radio.Attr("value")
		label := cleanText(theme.Text)
		if label == "" {
			continue
		}

		click := fmt.Sprintf(
			`(function() {
				var radio = document.querySelector('%s input[type="radio"][value="%s"]');
				if (!radio) { return; }
				var label = radio.closest('label');
				(label || radio).scrollIntoView(true);
				(label || radio).click();
			})();`,
			z.selThemeList, value,
		)
		if err := sess.Exec(ctx, click); err != nil {
			return nil, fmt.Errorf("select theme %q: %w", label, err)
		}
		if err := sess.WaitVisible(ctx, z.selTimeLabel, z.waitTimeout); err != nil {
			return nil, fmt.Errorf("slot list for %q: %w", label, err)
		}

		slots, err := z.readSlots(ctx, sess)
		if err != nil {
			return nil, fmt.Errorf("slots for %q: %w", label, err)
		}
		out = append(out, crawler.RawExtraction{
			Site:       z.Site(),
			BranchHint: z.branch,
			RawLabel:   label,
			Date:       z.date,
			TimeSlots:  slots,
		})
	}
	return out, nil
}

func (z *Zeroworld) readSlots(ctx context.Context, sess session.Session) ([]string, error) {
	labels, err := sess.QueryAll(ctx, z.selTimeLabel)
	if err != nil {
		return nil, err
	}
	var slots []string
	for _, lbl := range labels {
		input, ok := lbl.First("input[name='reservationTime']")
		if !ok {
			continue
		}
		if input.HasAttr("disabled") || lbl.HasClass("active") {
			continue
		}
		if t := cleanSlot(lbl.Text); t != "" {
			slots = append(slots, t)
		}
	}
	return slots, nil
}
