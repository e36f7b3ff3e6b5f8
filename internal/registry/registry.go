// Package registry is the ordered, startup-built sequence of provider
// adapters spec.md §4.2 requires: resolution is "first adapter whose
// matches(id) returns true wins", with specific adapters (Zenodo, PANGAEA,
// explicit Dataverse instances) registered before family base adapters
// (generic InvenioRDM, Dataverse, CKAN), and the catch-all
// GitHub adapter last.
//
// This generalizes the teacher's pkg/downloaders.Registry, which is a
// map[string]Downloader keyed by source type with no ordering guarantee --
// adequate when the caller always names the source type up front, but not
// when dispatch must pick the first matching adapter out of ~30 candidates
// for an opaque identifier.
package registry

import (
	"context"
	"sync"

	"github.com/btraven00/geoextent-core/internal/model"
	"github.com/btraven00/geoextent-core/internal/provider"
)

// Registry is an immutable-after-construction ordered list of adapters.
// Built once at startup (spec.md §3 "Ownership": "the immutable provider
// registry (built at startup; never mutated)"); adapters may only read it.
type Registry struct {
	adapters []provider.Adapter
	// matchCache memoizes the first matching adapter index per canonical id
	// for the process lifetime, since family adapters may probe the network
	// to confirm a host is really CKAN/STAC/Dataverse (spec.md §4.2).
	mu         sync.Mutex
	matchCache map[string]int // canonical id -> adapter index, or -1 for "no match"
}

// New builds a Registry from adapters in priority order: index 0 is tried
// first. Callers assemble the slice in the order spec.md §4.2 prescribes
// (specific adapters, then family bases, then GitHub last); New does not
// reorder its input.
func New(adapters []provider.Adapter) *Registry {
	return &Registry{
		adapters:   adapters,
		matchCache: make(map[string]int),
	}
}

// Resolve returns the first adapter whose Matches predicate accepts id.
func (r *Registry) Resolve(ctx context.Context, id model.Identifier) (provider.Adapter, bool) {
	r.mu.Lock()
	if idx, ok := r.matchCache[id.Canonical]; ok {
		r.mu.Unlock()
		if idx < 0 {
			return nil, false
		}
		return r.adapters[idx], true
	}
	r.mu.Unlock()

	for i, a := range r.adapters {
		if a.Matches(ctx, id) {
			r.mu.Lock()
			r.matchCache[id.Canonical] = i
			r.mu.Unlock()
			return a, true
		}
	}

	r.mu.Lock()
	r.matchCache[id.Canonical] = -1
	r.mu.Unlock()
	return nil, false
}

// AnyMatches implements identifier.Matcher: does any registered adapter
// recognize this canonical candidate string? Used by the Normalizer to
// reject unrecognized identifiers (spec.md §4.1) without re-running the
// full Resolve machinery or caching -- the Normalizer runs once per raw
// input, before an Identifier struct even exists to key the cache on.
func (r *Registry) AnyMatches(candidate string) bool {
	id := model.Identifier{Canonical: candidate}
	for _, a := range r.adapters {
		if a.Matches(context.Background(), id) {
			return true
		}
	}
	return false
}

// List returns the adapters in resolution order, for diagnostics.
func (r *Registry) List() []provider.Adapter {
	out := make([]provider.Adapter, len(r.adapters))
	copy(out, r.adapters)
	return out
}
