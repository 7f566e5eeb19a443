package session

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/gocolly/colly/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// DocumentDialer builds sessions for static-HTML site families: one GET per
// page, no script execution, no waiting.
type DocumentDialer struct {
	logger *zap.Logger
}

// NewDocumentDialer constructs a dialer.
func NewDocumentDialer(logger *zap.Logger) *DocumentDialer {
	return &DocumentDialer{logger: logger}
}

// Acquire builds a document session honoring the profile's request pacing.
func (d *DocumentDialer) Acquire(_ context.Context, profile Profile) (Session, error) {
	timeout := profile.WaitTimeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	base := colly.NewCollector(colly.UserAgent(profile.UserAgent))
	base.AllowURLRevisit = true
	base.SetRequestTimeout(timeout)
	base.WithTransport(&http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        16,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     30 * time.Second,
		TLSHandshakeTimeout: 10 * time.Second,
	})

	var limiter *rate.Limiter
	if profile.RatePerSecond > 0 {
		limiter = rate.NewLimiter(rate.Limit(profile.RatePerSecond), 1)
	}

	return &documentSession{
		collector: base,
		limiter:   limiter,
		logger:    d.logger.With(zap.String("site", profile.Site), zap.String("session", "document")),
	}, nil
}

// documentSession holds the most recently fetched document.
type documentSession struct {
	collector *colly.Collector
	limiter   *rate.Limiter

	mu     sync.Mutex
	doc    *goquery.Document
	body   string
	url    string
	logger *zap.Logger
}

func (s *documentSession) Navigate(ctx context.Context, url string) error {
	if s.limiter != nil {
		if err := s.limiter.Wait(ctx); err != nil {
			return fmt.Errorf("rate limit %s: %w", url, err)
		}
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	c := s.collector.Clone()
	var (
		body     string
		status   int
		fetchErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
		status = r.StatusCode
	})
	c.OnError(func(r *colly.Response, err error) {
		if r != nil {
			status = r.StatusCode
		}
		fetchErr = err
	})

	if err := c.Visit(url); err != nil {
		fetchErr = err
	}
	c.Wait()

	switch {
	case status >= 400:
		return fmt.Errorf("fetch %s: status %d: %w", url, status, ErrUnexpectedPageState)
	case fetchErr != nil:
		return fmt.Errorf("fetch %s: %w: %v", url, ErrNavigationTimeout, fetchErr)
	case body == "":
		return fmt.Errorf("fetch %s: empty body: %w", url, ErrUnexpectedPageState)
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(body))
	if err != nil {
		return fmt.Errorf("parse %s: %w: %v", url, ErrUnexpectedPageState, err)
	}

	s.mu.Lock()
	s.doc = doc
	s.body = body
	s.url = url
	s.mu.Unlock()
	s.logger.Debug("document fetched", zap.String("url", url), zap.Int("bytes", len(body)))
	return nil
}

// WaitVisible on a static document is a presence check; there is nothing
// asynchronous to wait for.
func (s *documentSession) WaitVisible(_ context.Context, selector string, _ time.Duration) error {
	doc, err := s.current()
	if err != nil {
		return err
	}
	if doc.Find(selector).Length() == 0 {
		return fmt.Errorf("selector %s: %w", selector, ErrElementNotFound)
	}
	return nil
}

func (s *documentSession) Exec(context.Context, string) error {
	return ErrScriptUnsupported
}

func (s *documentSession) QueryAll(_ context.Context, selector string) ([]Element, error) {
	doc, err := s.current()
	if err != nil {
		return nil, err
	}
	return FromSelection(doc.Find(selector))
}

func (s *documentSession) Snapshot(context.Context) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return "", fmt.Errorf("no document loaded: %w", ErrUnexpectedPageState)
	}
	return s.body, nil
}

func (s *documentSession) Close(context.Context) error {
	return nil
}

func (s *documentSession) current() (*goquery.Document, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.doc == nil {
		return nil, fmt.Errorf("no document loaded: %w", ErrUnexpectedPageState)
	}
	return s.doc, nil
}
