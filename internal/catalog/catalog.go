// Package catalog loads the canonical activity catalog.
//
// The catalog is the authority for activity identity: reservation sites render
// theme names with inconsistent decoration, while the catalog carries the
// stable numeric id, brand, and location for each theme. It is loaded once at
// startup from static configuration and never mutated afterwards.
package catalog

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/go-playground/validator/v10"
)

// Entry is one canonical activity identity.
type Entry struct {
	Site     string `json:"site" validate:"required"`
	Brand    string `json:"brand" validate:"required"`
	Location string `json:"location" validate:"required"`
	Branch   string `json:"branch" validate:"required"`
	Title    string `json:"title" validate:"required"`
	// NumericID is the stable external identifier downstream consumers key on.
	NumericID int `json:"id" validate:"required,gt=0"`

	// Optional site-native keys. When present, adapters can resolve an entry
	// directly without fuzzy title matching.
	BranchCode string `json:"branchCode,omitempty"`
	ThemeCode  string `json:"themeCode,omitempty"`
	ThemeIndex string `json:"themeIndex,omitempty"`
}

// Catalog is the loaded, read-only entry table. Declaration order is
// preserved; fuzzy-match ties resolve to the earliest entry.
type Catalog struct {
	entries []Entry
}

// Load reads and validates the catalog file at path.
func Load(path string) (*Catalog, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read catalog %s: %w", path, err)
	}
	return Parse(data)
}

// Parse decodes catalog JSON and validates every entry.
func Parse(data []byte) (*Catalog, error) {
	var entries []Entry
	if err := json.Unmarshal(data, &entries); err != nil {
		return nil, fmt.Errorf("decode catalog: %w", err)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("catalog is empty")
	}

	validate := validator.New()
	for i, e := range entries {
		if err := validate.Struct(e); err != nil {
			return nil, fmt.Errorf("catalog entry %d (%s/%s): %w", i, e.Brand, e.Title, err)
		}
	}
	return &Catalog{entries: entries}, nil
}

// Entries returns all entries in declaration order.
func (c *Catalog) Entries() []Entry {
	return c.entries
}

// Site returns the entries owned by one site adapter, in declaration order.
func (c *Catalog) Site(site string) []Entry {
	var out []Entry
	for _, e := range c.entries {
		if e.Site == site {
			out = append(out, e)
		}
	}
	return out
}

// Len reports the number of entries.
func (c *Catalog) Len() int {
	return len(c.entries)
}
