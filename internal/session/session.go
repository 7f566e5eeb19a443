// Package session owns the page-interaction capability a crawl task drives.
//
// Two families exist: browser sessions (headless Chrome via chromedp, for
// sites that render availability with client-side script) and document
// sessions (one HTTP fetch per page, parsed statically). A session is
// exclusively owned by one crawl task for its whole sweep; calls on it are
// never safe to interleave.
package session

import (
	"context"
	"errors"
	"time"
)

// Sentinel errors for the per-unit failure taxonomy. All of them are
// non-fatal for a sweep: the failing (branch, date) unit is skipped and the
// sweep continues.
var (
	// ErrNavigationTimeout reports a page load that did not complete in time.
	ErrNavigationTimeout = errors.New("navigation timeout")
	// ErrElementNotFound reports content that never became present within the
	// bounded wait.
	ErrElementNotFound = errors.New("element not found")
	// ErrUnexpectedPageState reports a page that loaded but does not look like
	// the page the adapter expected.
	ErrUnexpectedPageState = errors.New("unexpected page state")
	// ErrScriptUnsupported reports script execution on a session family that
	// cannot run scripts.
	ErrScriptUnsupported = errors.New("script execution not supported")
)

// Session is the capability set adapters drive. Implementations block on
// Navigate/WaitVisible up to a bounded timeout.
type Session interface {
	// Navigate loads url and blocks until the document is ready.
	Navigate(ctx context.Context, url string) error
	// WaitVisible blocks until selector matches visible content, or fails
	// with ErrElementNotFound once timeout elapses.
	WaitVisible(ctx context.Context, selector string, timeout time.Duration) error
	// Exec runs a script in page context. Document sessions return
	// ErrScriptUnsupported.
	Exec(ctx context.Context, script string) error
	// QueryAll snapshots every element matching selector.
	QueryAll(ctx context.Context, selector string) ([]Element, error)
	// Snapshot returns the current DOM as HTML, for failure diagnostics.
	Snapshot(ctx context.Context) (string, error)
	// Close releases the session. Safe to call on every task exit path.
	Close(ctx context.Context) error
}

// Profile carries the per-site knobs a factory needs to build a session.
type Profile struct {
	Site          string
	Family        string
	UserAgent     string
	WaitTimeout   time.Duration
	SettleDelay   time.Duration
	RatePerSecond float64
}

// Factory acquires a session for one crawl task. Acquisition failure fails
// only that task, never the whole run.
type Factory interface {
	Acquire(ctx context.Context, profile Profile) (Session, error)
}
