package sites

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/scrd/availability-crawler/internal/catalog"
	"github.com/scrd/availability-crawler/internal/config"
	"github.com/scrd/availability-crawler/internal/session"
)

// stubSession replays canned element snapshots per selector, in order, and
// records everything the adapter asked of it.
type stubSession struct {
	navigations []string
	scripts     []string
	waits       []string

	queues  map[string][][]session.Element
	waitErr map[string]error
	execErr map[string]error
	navErr  error
}

func newStubSession() *stubSession {
	return &stubSession{
		queues:  map[string][][]session.Element{},
		waitErr: map[string]error{},
		execErr: map[string]error{},
	}
}

func (s *stubSession) enqueue(selector string, elements []session.Element) {
	s.queues[selector] = append(s.queues[selector], elements)
}

func (s *stubSession) Navigate(_ context.Context, url string) error {
	s.navigations = append(s.navigations, url)
	return s.navErr
}

func (s *stubSession) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	s.waits = append(s.waits, selector)
	return s.waitErr[selector]
}

func (s *stubSession) Exec(_ context.Context, script string) error {
	s.scripts = append(s.scripts, script)
	for fragment, err := range s.execErr {
		if strings.Contains(script, fragment) {
			return err
		}
	}
	return nil
}

func (s *stubSession) QueryAll(_ context.Context, selector string) ([]session.Element, error) {
	queue := s.queues[selector]
	if len(queue) == 0 {
		return nil, nil
	}
	head := queue[0]
	s.queues[selector] = queue[1:]
	return head, nil
}

func (s *stubSession) Snapshot(context.Context) (string, error) { return "", nil }
func (s *stubSession) Close(context.Context) error              { return nil }

// element builds a snapshot the way a live session would, from markup.
func element(t *testing.T, html string) session.Element {
	t.Helper()
	root := session.Element{HTML: html}
	matches, err := root.Find("body > *")
	require.NoError(t, err)
	require.Len(t, matches, 1)
	return matches[0]
}

func TestBuildDispatchesKnownSites(t *testing.T) {
	t.Parallel()

	cfg := config.SiteConfig{BaseURL: "https://example.test"}
	for _, site := range []string{"keyescape", "zeroworld", "goldenkey", "beatphobia"} {
		adapter, err := Build(site, cfg, nil, zap.NewNop())
		require.NoError(t, err)
		require.Equal(t, site, adapter.Site())
	}

	_, err := Build("roomlx", cfg, nil, zap.NewNop())
	require.ErrorContains(t, err, "no adapter")
}

func TestCleanSlot(t *testing.T) {
	t.Parallel()

	cases := map[string]string{
		"14시 50분":       "14시 50분",
		"13:00 (2/4)":   "13:00",
		"20:30 마감임박":    "20:30",
		"  12:00\n예약가능": "12:00",
		"밤 10시":         "밤 10시",
	}
	for in, want := range cases {
		require.Equal(t, want, cleanSlot(in), "input %q", in)
	}
}

func TestKeyescapeExtractWalksCatalogThemes(t *testing.T) {
	t.Parallel()

	entries := []catalog.Entry{
		{Site: "keyescape", Brand: "키이스케이프", Location: "강남", Branch: "강남점",
			Title: "월야애담", NumericID: 5, ThemeCode: "5", ThemeIndex: "0"},
		{Site: "keyescape", Brand: "키이스케이프", Location: "홍대", Branch: "홍대점",
			Title: "고백", NumericID: 43, ThemeCode: "43", ThemeIndex: "2"},
	}
	adapter := NewKeyescape(config.SiteConfig{BaseURL: "https://www.keyescape.co.kr/web/home.php?go=rev.make"}, entries, zap.NewNop())

	sess := newStubSession()
	sess.enqueue("#theme_time_data li.possible", []session.Element{
		element(t, `<li class="possible"><a>13:00</a></li>`),
		element(t, `<li class="possible"><a>14:30 (2/4)</a></li>`),
	})
	sess.enqueue("#theme_time_data li.possible", nil)

	require.NoError(t, adapter.SelectBranch(context.Background(), sess, adapter.Targets()[0]))
	require.NoError(t, adapter.SelectDate(context.Background(), sess, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))

	got, err := adapter.Extract(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, got, 2)

	require.Equal(t, "월야애담", got[0].RawLabel)
	require.Equal(t, "5", got[0].ThemeCode)
	require.Equal(t, "강남점", got[0].BranchHint)
	require.Equal(t, "2025-06-01", got[0].Date)
	require.Equal(t, []string{"13:00", "14:30"}, got[0].TimeSlots)

	// The second theme rendered no bookable slots; the extraction still
	// exists so "no slots" gets recorded.
	require.Equal(t, "고백", got[1].RawLabel)
	require.Empty(t, got[1].TimeSlots)

	require.Contains(t, sess.scripts[0], "fun_days_select('2025-06-01', '0')")
	require.Contains(t, sess.scripts[1], "fun_theme_select('5', '0')")
	require.Contains(t, sess.scripts[2], "fun_theme_select('43', '2')")
}

func TestKeyescapeExtractSurvivesSlotPanelTimeout(t *testing.T) {
	t.Parallel()

	entries := []catalog.Entry{
		{Site: "keyescape", Brand: "키이스케이프", Branch: "강남점",
			Title: "월야애담", NumericID: 5, ThemeCode: "5", ThemeIndex: "0"},
		{Site: "keyescape", Brand: "키이스케이프", Branch: "홍대점",
			Title: "고백", NumericID: 43, ThemeCode: "43", ThemeIndex: "2"},
	}
	adapter := NewKeyescape(config.SiteConfig{BaseURL: "https://www.keyescape.co.kr/web/home.php?go=rev.make"}, entries, zap.NewNop())

	sess := newStubSession()
	// The slot panel never renders when a theme has nothing bookable.
	sess.waitErr["#theme_time_data"] = session.ErrElementNotFound

	require.NoError(t, adapter.SelectBranch(context.Background(), sess, adapter.Targets()[0]))
	require.NoError(t, adapter.SelectDate(context.Background(), sess, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))

	got, err := adapter.Extract(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Empty(t, got[0].TimeSlots)
	require.Empty(t, got[1].TimeSlots)
}

func TestKeyescapeExtractSkipsThemeWhoseSelectFails(t *testing.T) {
	t.Parallel()

	entries := []catalog.Entry{
		{Site: "keyescape", Brand: "키이스케이프", Branch: "강남점",
			Title: "월야애담", NumericID: 5, ThemeCode: "5", ThemeIndex: "0"},
		{Site: "keyescape", Brand: "키이스케이프", Branch: "홍대점",
			Title: "고백", NumericID: 43, ThemeCode: "43", ThemeIndex: "2"},
	}
	adapter := NewKeyescape(config.SiteConfig{BaseURL: "https://www.keyescape.co.kr/web/home.php?go=rev.make"}, entries, zap.NewNop())

	sess := newStubSession()
	sess.execErr["fun_theme_select('5'"] = session.ErrUnexpectedPageState
	sess.enqueue("#theme_time_data li.possible", []session.Element{
		element(t, `<li class="possible"><a>13:00</a></li>`),
	})

	require.NoError(t, adapter.SelectBranch(context.Background(), sess, adapter.Targets()[0]))
	require.NoError(t, adapter.SelectDate(context.Background(), sess, time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)))

	// The broken theme is dropped; the one after it still comes through.
	got, err := adapter.Extract(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "고백", got[0].RawLabel)
	require.Equal(t, []string{"13:00"}, got[0].TimeSlots)
}

func TestZeroworldExtractFiltersDisabledAndActiveSlots(t *testing.T) {
	t.Parallel()

	adapter := NewZeroworld(config.SiteConfig{
		BaseURL:  "https://zerogangnam.com/reservation",
		Branches: []config.BranchConfig{{Key: "gangnam", Name: "강남점"}},
	})

	sess := newStubSession()
	sess.enqueue("#themeChoice label.hover2", []session.Element{
		element(t, `<label class="hover2"><input type="radio" value="23"> [강남] 링</label>`),
	})
	sess.enqueue("#themeTimeWrap label.hover2", []session.Element{
		element(t, `<label class="hover2"><input name="reservationTime"> 14시 50분</label>`),
		element(t, `<label class="hover2"><input name="reservationTime" disabled> 16시 10분</label>`),
		element(t, `<label class="hover2 active"><input name="reservationTime"> 17시 30분</label>`),
	})

	require.NoError(t, adapter.SelectBranch(context.Background(), sess, adapter.Targets()[0]))
	require.Equal(t, []string{"https://zerogangnam.com/reservation"}, sess.navigations)

	require.NoError(t, adapter.SelectDate(context.Background(), sess, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC)))
	// data-month is zero-based: March renders as 2.
	require.Contains(t, sess.scripts[0], `[data-year="2025"][data-month="2"][data-date="3"]`)

	got, err := adapter.Extract(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "[강남] 링", got[0].RawLabel)
	require.Equal(t, "강남점", got[0].BranchHint)
	require.Equal(t, []string{"14시 50분"}, got[0].TimeSlots)
}

func TestZeroworldSelectDateFailsWhenCellUnavailable(t *testing.T) {
	t.Parallel()

	adapter := NewZeroworld(config.SiteConfig{
		BaseURL:  "https://zerogangnam.com/reservation",
		Branches: []config.BranchConfig{{Key: "gangnam", Name: "강남점"}},
	})

	sess := newStubSession()
	sess.execErr["datepicker--cell"] = session.ErrUnexpectedPageState

	require.NoError(t, adapter.SelectBranch(context.Background(), sess, adapter.Targets()[0]))

	err := adapter.SelectDate(context.Background(), sess, time.Date(2025, 3, 3, 0, 0, 0, 0, time.UTC))
	require.ErrorIs(t, err, session.ErrUnexpectedPageState)
	// The click script raises in-page when the calendar has no such cell,
	// so a date outside the rendered month cannot pass silently.
	require.Contains(t, sess.scripts[0], "throw")
}

func TestGoldenkeyFetchesPerBranchDateURL(t *testing.T) {
	t.Parallel()

	adapter := NewGoldenkey(config.SiteConfig{
		BaseURL: "http://goldenkey.test/layout/res/home.php",
		Branches: []config.BranchConfig{
			{Key: "5", Name: "강남 (타임스퀘어)"},
		},
	})

	sess := newStubSession()
	sess.enqueue("div.theme_box", []session.Element{
		element(t, `<div class="theme_box">
			<h3 class="h3_theme">NOMON : THE ORDEAL</h3>
			<div class="time_Area"><ul class="reserve_Time">
				<li><a href="/res?t=1"><span class="time">12:00</span><span class="possible">예약가능</span></a></li>
				<li><a><span class="time">14:00</span></a></li>
				<li><a href="/res?t=3"><span class="time">16:00</span><span class="possible">예약가능</span></a></li>
			</ul></div>
		</div>`),
		element(t, `<div class="theme_box">
			<h3 class="h3_theme">섬 : 잊혀진 이야기 (미스터리)</h3>
			<div class="time_Area"><ul class="reserve_Time">
				<li><a><span class="time">13:00</span></a></li>
			</ul></div>
		</div>`),
	})

	target := adapter.Targets()[0]
	require.NoError(t, adapter.SelectBranch(context.Background(), sess, target))
	require.NoError(t, adapter.SelectDate(context.Background(), sess, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))
	require.Equal(t,
		[]string{"http://goldenkey.test/layout/res/home.php?rev_days=2025-06-02&s_zizum=5&go=rev.make"},
		sess.navigations)

	got, err := adapter.Extract(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, got, 2)
	require.Equal(t, "NOMON : THE ORDEAL", got[0].RawLabel)
	require.Equal(t, []string{"12:00", "16:00"}, got[0].TimeSlots)
	require.Equal(t, "강남 (타임스퀘어)", got[0].BranchHint)
	require.Empty(t, got[1].TimeSlots)
}

func TestBeatphobiaExtractSkipsDeadSlots(t *testing.T) {
	t.Parallel()

	adapter := NewBeatphobia(config.SiteConfig{
		BaseURL:  "https://xdungeon.net/layout/res/home.php",
		Branches: []config.BranchConfig{{Key: "3", Name: "홍대점"}},
	})

	sess := newStubSession()
	sess.enqueue(".thm_box .box", []session.Element{
		element(t, `<div class="box">
			<div class="img_box"><span class="tit">층간소음</span></div>
			<div class="time_box"><ul>
				<li class="sale"><a>13:40</a></li>
				<li class="sale dead"><a>15:20</a></li>
				<li class="sale"><a>17:00</a></li>
			</ul></div>
		</div>`),
	})

	target := adapter.Targets()[0]
	require.NoError(t, adapter.SelectBranch(context.Background(), sess, target))
	require.Equal(t,
		[]string{"https://xdungeon.net/layout/res/home.php?go=rev.main&s_zizum=3"},
		sess.navigations)

	require.NoError(t, adapter.SelectDate(context.Background(), sess, time.Date(2025, 6, 2, 0, 0, 0, 0, time.UTC)))
	require.Contains(t, sess.scripts[0], `value = '2025-06-02'`)
	require.Contains(t, sess.scripts[0], "fun_search()")

	got, err := adapter.Extract(context.Background(), sess)
	require.NoError(t, err)
	require.Len(t, got, 1)
	require.Equal(t, "층간소음", got[0].RawLabel)
	require.Equal(t, "홍대점", got[0].BranchHint)
	require.Equal(t, []string{"13:40", "17:00"}, got[0].TimeSlots)
}
