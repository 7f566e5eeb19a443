package session

import (
	"context"
	"fmt"

	"go.uber.org/zap"
)

// Dialer routes acquisition to the right family backend. It is the one
// Factory the orchestrator sees.
type Dialer struct {
	browser  *BrowserPool
	document *DocumentDialer
}

// NewDialer wires both family backends.
func NewDialer(logger *zap.Logger) *Dialer {
	return &Dialer{
		browser:  NewBrowserPool(logger),
		document: NewDocumentDialer(logger),
	}
}

// Acquire hands out a session of the profile's family.
func (d *Dialer) Acquire(ctx context.Context, profile Profile) (Session, error) {
	switch profile.Family {
	case "browser":
		return d.browser.Acquire(ctx, profile)
	case "document":
		return d.document.Acquire(ctx, profile)
	default:
		return nil, fmt.Errorf("unknown session family %q", profile.Family)
	}
}

// Close releases shared resources (the browser process, if started).
func (d *Dialer) Close() {
	d.browser.Close()
}
