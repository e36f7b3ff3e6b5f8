// Package probe defines the external decoder contract (spec.md §6.4):
// per-format geospatial decoders are out of this core's scope, so this
// package only carries the interface boundary and an ordered registry that
// asks each decoder's CanDecode whether it claims a path. No decoder ships
// in this package; tests supply their own doubles.
package probe

import (
	"context"

	"github.com/btraven00/geoextent-core/internal/model"
)

// Decoder is pure with respect to the filesystem: read-only, no globals
// (spec.md §6.4). Siblings (e.g. a shapefile's .dbf/.prj) are available in
// the same directory as path.
type Decoder interface {
	// CanDecode reports whether this decoder claims responsibility for path.
	CanDecode(path string) bool

	// Decode returns the local extent, or a typed failure. Implementations
	// must not mutate any file on disk.
	Decode(ctx context.Context, path string, assumeWGS84 bool) (*model.Envelope, *model.TimeInterval, error)
}

// Registry is an ordered list of Decoders, first-match-wins, mirroring the
// provider registry's dispatch shape for consistency across the codebase.
type Registry struct {
	decoders []Decoder
}

func NewRegistry(decoders ...Decoder) *Registry {
	return &Registry{decoders: decoders}
}

// Find returns the first decoder claiming path, or ok=false.
func (r *Registry) Find(path string) (Decoder, bool) {
	for _, d := range r.decoders {
		if d.CanDecode(path) {
			return d, true
		}
	}
	return nil, false
}
