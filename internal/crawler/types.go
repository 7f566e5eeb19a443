// Package crawler drives the crawl-extract-resolve-persist pipeline.
package crawler

import (
	"time"
)

// Target is one site location the sweep visits.
type Target struct {
	// Key is the site-native branch identifier (URL parameter, form value).
	Key string
	// Name is the branch as the catalog knows it; the resolver restricts
	// candidates with it.
	Name string
	// URL overrides the site base URL for branches hosted on their own page.
	URL string
}

// RawExtraction is one scraped observation before identity resolution.
// It is consumed immediately by the resolver and never persisted directly.
type RawExtraction struct {
	Site       string
	BranchHint string
	RawLabel   string
	// ThemeCode carries a site-native key when the adapter has one; it
	// short-circuits fuzzy matching.
	ThemeCode string
	Date      string
	TimeSlots []string
}

// UnitCounters tracks per-site sweep progress. A unit is one
// (branch, date) combination.
type UnitCounters struct {
	UnitsAttempted int
	UnitsSucceeded int
	UnitsSkipped   int
	RecordsWritten int
	Unmatched      int
	WriteFailures  int
}

// Add accumulates another counter set.
func (c *UnitCounters) Add(other UnitCounters) {
	c.UnitsAttempted += other.UnitsAttempted
	c.UnitsSucceeded += other.UnitsSucceeded
	c.UnitsSkipped += other.UnitsSkipped
	c.RecordsWritten += other.RecordsWritten
	c.Unmatched += other.Unmatched
	c.WriteFailures += other.WriteFailures
}

// TaskStatus is the lifecycle state of one site's crawl task.
type TaskStatus string

// Task status values reported per site.
const (
	TaskPending   TaskStatus = "pending"
	TaskRunning   TaskStatus = "running"
	TaskCompleted TaskStatus = "completed"
	TaskFailed    TaskStatus = "failed"
)

// TaskResult is what the orchestrator collects for each site before a run
// is considered complete.
type TaskResult struct {
	TaskID   string
	Site     string
	Status   TaskStatus
	Counters UnitCounters
	Err      error
	Duration time.Duration
}
