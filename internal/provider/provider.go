// Package provider defines the abstract provider-adapter contract (spec.md
// §4.6) that every concrete repository adapter implements, grounded on the
// teacher's pkg/downloaders.Downloader interface -- generalized from
// "download a dataset to disk" to "dispatch + enumerate + extract metadata
// for extent purposes", and from a map-keyed registry to the ordered,
// first-match-wins registry spec.md §4.2 requires.
package provider

import (
	"context"

	"github.com/btraven00/geoextent-core/internal/model"
)

// Metadata is what a provider's fetch_metadata call can yield: none of,
// some of, or all three of an envelope, a temporal interval, and a landing
// page to possibly follow (spec.md §4.6).
type Metadata struct {
	Envelope    *model.Envelope
	Temporal    *model.TimeInterval
	LandingPage string
}

// Adapter is the abstract provider contract (spec.md §4.6).
type Adapter interface {
	// Matches reports whether id (already normalized) is handled by this
	// adapter. May perform at most one lightweight network probe
	// (spec.md §4.2); implementations that probe must cache the result for
	// the process lifetime.
	Matches(ctx context.Context, id model.Identifier) bool

	// SupportsMetadata reports whether FetchMetadata can yield a usable
	// extent for this adapter at all.
	SupportsMetadata() bool

	// FetchMetadata never raises on missing fields -- it returns nulls
	// instead (spec.md §4.6 contract invariant).
	FetchMetadata(ctx context.Context, id model.Identifier) (Metadata, error)

	// EnumerateFiles uses only declared sizes from the provider API, never
	// HEADs files itself (that belongs to the Download Pool). filter, when
	// non-empty, restricts results to those extensions.
	EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error)

	// FriendlyName is used in error messages and attribution (spec.md §7).
	FriendlyName() string
}

// ExternalFollower is implemented by adapters whose FetchMetadata can
// return a LandingPage pointing at another registered provider (DEIMS-SDR
// in this build -- spec.md §4.7, §9 "cyclic references").
type ExternalFollower interface {
	Adapter
	FollowsExternal() bool
}
