package crawler

import (
	"context"
	"time"

	"github.com/scrd/availability-crawler/internal/session"
)

// SiteAdapter is the capability set one reservation-site family implements.
// Adapters carry only site specifics (endpoints, selectors, scripts); the
// sweep loop, failure isolation, and persistence live in the engine.
type SiteAdapter interface {
	// Site returns the adapter's identifier, matching catalog entries.
	Site() string
	// Family reports which session kind the adapter drives.
	Family() string
	// Targets lists the branches to visit, in catalog-declared order.
	Targets() []Target
	// SelectBranch drives the session into the branch's context. Adapters
	// whose branch is encoded purely in the URL used by SelectDate may
	// no-op here.
	SelectBranch(ctx context.Context, sess session.Session, target Target) error
	// SelectDate drives the session to the given date and blocks until the
	// resulting content is observably present.
	SelectDate(ctx context.Context, sess session.Session, date time.Time) error
	// Extract returns one RawExtraction per raw label found for the
	// currently selected branch and date. Zero extractions is not an error.
	Extract(ctx context.Context, sess session.Session) ([]RawExtraction, error)
}
