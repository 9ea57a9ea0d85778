package store

import (
	"time"

	"github.com/blackwell-systems/depaudit/internal/analyzer"
)

// Run is one recorded audit of a manifest.
type Run struct {
	ID            string // uuid
	ManifestPath  string // absolute
	Mode          analyzer.Mode
	CreatedAt     time.Time
	Declarations  int
	Flagged       int
	FlaggedSizeMB float64
}

// ShortID returns the first eight characters of the run ID.
func (r *Run) ShortID() string {
	if len(r.ID) <= 8 {
		return r.ID
	}
	return r.ID[:8]
}
