package session

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/chromedp/cdproto/emulation"
	"github.com/chromedp/chromedp"
	"go.uber.org/zap"
)

// BrowserPool owns one headless Chrome process and hands out tab-scoped
// sessions. The allocator is created lazily on first acquire so document-only
// runs never launch a browser.
type BrowserPool struct {
	logger *zap.Logger

	mu          sync.Mutex
	allocator   context.Context
	allocCancel context.CancelFunc
	browser     context.Context
	browserStop context.CancelFunc
}

// NewBrowserPool constructs an idle pool.
func NewBrowserPool(logger *zap.Logger) *BrowserPool {
	return &BrowserPool{logger: logger}
}

// Acquire starts (on first use) the shared browser and opens a dedicated tab
// for the caller. The returned session is exclusive to one task.
func (p *BrowserPool) Acquire(ctx context.Context, profile Profile) (Session, error) {
	browserCtx, err := p.ensureBrowser(profile.UserAgent)
	if err != nil {
		return nil, fmt.Errorf("acquire browser session: %w", err)
	}

	tabCtx, tabCancel := chromedp.NewContext(browserCtx)
	// Opening the tab eagerly surfaces allocator failures here, where they
	// fail a single task, instead of at the first navigate.
	if err := chromedp.Run(tabCtx, emulation.SetUserAgentOverride(profile.UserAgent)); err != nil {
		tabCancel()
		return nil, fmt.Errorf("open browser tab: %w", err)
	}

	return &browserSession{
		tab:         tabCtx,
		tabCancel:   tabCancel,
		waitTimeout: profile.WaitTimeout,
		settle:      profile.SettleDelay,
		logger:      p.logger.With(zap.String("site", profile.Site), zap.String("session", "browser")),
	}, nil
}

func (p *BrowserPool) ensureBrowser(userAgent string) (context.Context, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browser != nil {
		return p.browser, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", "new"),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("hide-scrollbars", true),
		chromedp.UserAgent(userAgent),
	)
	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	browserCtx, browserStop := chromedp.NewContext(allocCtx)
	if err := chromedp.Run(browserCtx); err != nil {
		browserStop()
		allocCancel()
		return nil, fmt.Errorf("chromedp warmup: %w", err)
	}

	p.allocator = allocCtx
	p.allocCancel = allocCancel
	p.browser = browserCtx
	p.browserStop = browserStop
	return p.browser, nil
}

// Close tears down the browser process if one was started.
func (p *BrowserPool) Close() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.browserStop != nil {
		p.browserStop()
		p.browserStop = nil
	}
	if p.allocCancel != nil {
		p.allocCancel()
		p.allocCancel = nil
	}
	p.browser = nil
	p.allocator = nil
}

// browserSession drives one Chrome tab.
type browserSession struct {
	tab         context.Context
	tabCancel   context.CancelFunc
	waitTimeout time.Duration
	settle      time.Duration
	logger      *zap.Logger
}

func (s *browserSession) Navigate(ctx context.Context, url string) error {
	tctx, cancel := s.bounded(ctx, s.waitTimeout)
	defer cancel()
	err := chromedp.Run(tctx,
		chromedp.Navigate(url),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return classify(err, ErrNavigationTimeout, "navigate %s", url)
	}
	return nil
}

func (s *browserSession) WaitVisible(ctx context.Context, selector string, timeout time.Duration) error {
	if timeout <= 0 {
		timeout = s.waitTimeout
	}
	tctx, cancel := s.bounded(ctx, timeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.WaitVisible(selector, chromedp.ByQuery)); err != nil {
		return classify(err, ErrElementNotFound, "wait for %s", selector)
	}
	return nil
}

func (s *browserSession) Exec(ctx context.Context, script string) error {
	tctx, cancel := s.bounded(ctx, s.waitTimeout)
	defer cancel()
	if err := chromedp.Run(tctx, chromedp.Evaluate(script, nil)); err != nil {
		return classify(err, ErrUnexpectedPageState, "exec script")
	}
	// Script-driven partial updates fire no load event; give the DOM a
	// moment to settle before it is queried.
	if s.settle > 0 {
		select {
		case <-time.After(s.settle):
		case <-ctx.Done():
			return ctx.Err()
		}
	}
	return nil
}

const queryAllJS = `(() => {
	return Array.from(document.querySelectorAll(%s)).map((el) => ({
		text: (el.innerText || el.textContent || "").trim(),
		html: el.outerHTML,
		attrs: Object.fromEntries(Array.from(el.attributes).map((a) => [a.name, a.value])),
	}));
})()`

func (s *browserSession) QueryAll(ctx context.Context, selector string) ([]Element, error) {
	tctx, cancel := s.bounded(ctx, s.waitTimeout)
	defer cancel()
	var out []Element
	js := fmt.Sprintf(queryAllJS, strconv.Quote(selector))
	if err := chromedp.Run(tctx, chromedp.Evaluate(js, &out)); err != nil {
		return nil, classify(err, ErrUnexpectedPageState, "query %s", selector)
	}
	return out, nil
}

func (s *browserSession) Snapshot(ctx context.Context) (string, error) {
	tctx, cancel := s.bounded(ctx, s.waitTimeout)
	defer cancel()
	var html string
	if err := chromedp.Run(tctx, chromedp.OuterHTML("html", &html, chromedp.ByQuery)); err != nil {
		return "", fmt.Errorf("snapshot dom: %w", err)
	}
	return html, nil
}

func (s *browserSession) Close(context.Context) error {
	s.tabCancel()
	return nil
}

func (s *browserSession) bounded(ctx context.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	tctx, cancel := context.WithTimeout(s.tab, timeout)
	stop := forwardCancel(ctx, cancel)
	return tctx, func() {
		stop()
		cancel()
	}
}

// forwardCancel propagates the caller's cancellation into a chromedp task
// context, which descends from the tab rather than the caller.
func forwardCancel(parent context.Context, cancel context.CancelFunc) func() {
	done := make(chan struct{})
	go func() {
		select {
		case <-parent.Done():
			cancel()
		case <-done:
		}
	}()
	return func() { close(done) }
}

func classify(err error, sentinel error, format string, args ...any) error {
	prefix := fmt.Sprintf(format, args...)
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w", prefix, sentinel)
	}
	return fmt.Errorf("%s: %w: %v", prefix, ErrUnexpectedPageState, err)
}
