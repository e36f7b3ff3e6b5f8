package envelope

import (
	"math"

	"github.com/btraven00/geoextent-core/internal/model"
)

// ValidationOptions configures WGS84 Validator heuristics (spec.md §4.8).
type ValidationOptions struct {
	AssumeWGS84ForUngeoreferenced bool
	// IsRaster/IsVector let the caller flag which trivial-magnitude
	// heuristic applies; both false means "unknown source kind", which
	// skips the magnitude heuristics but still checks range/degeneracy.
	IsRaster bool
	IsVector bool
}

// Validate rejects, with a reason, bounding boxes that are out of range,
// degenerate, or show the pixel-space / projected-coordinate symptoms
// spec.md §4.8 lists. A nil error means the envelope is accepted.
func Validate(env *model.Envelope, opts ValidationOptions) error {
	if env == nil {
		return errReason("nil envelope")
	}

	switch {
	case env.BBox != nil:
		return validateBBox(*env.BBox, opts)
	case env.Hull != nil:
		return validateHull(env.Hull.Vertices, opts)
	default:
		return errReason("envelope has neither bbox nor hull")
	}
}

type invalidEnvelopeError struct{ reason string }

func (e *invalidEnvelopeError) Error() string { return e.reason }

func errReason(reason string) error { return &invalidEnvelopeError{reason: reason} }

func validateBBox(b model.BoundingBox, opts ValidationOptions) error {
	if b.IsDegenerate() {
		return errReason("degenerate extent [0,0,0,0], likely uninitialized")
	}

	if !opts.AssumeWGS84ForUngeoreferenced {
		if opts.IsRaster && rasterLooksLikePixelSpace(b) {
			return errReason("raster coordinates look like pixel space, not geographic")
		}
		if opts.IsVector && vectorLooksProjected(b) {
			return errReason("vector coordinates look projected despite declared WGS84 CRS")
		}
	}

	if !b.InRange() {
		return errReason("bounding box outside [-180,180]x[-90,90]")
	}

	return nil
}

func validateHull(vertices []model.Point, opts ValidationOptions) error {
	if len(vertices) == 0 {
		return errReason("empty convex hull")
	}
	bb := model.BoundingBoxOf(vertices)
	return validateBBox(bb, opts)
}

// rasterLooksLikePixelSpace flags coordinate magnitudes that cannot be
// geographic (values > 180 in a declared-geographic CRS -- spec.md §4.8).
func rasterLooksLikePixelSpace(b model.BoundingBox) bool {
	return math.Abs(b.MinX) > 180 || math.Abs(b.MaxX) > 180 ||
		math.Abs(b.MinY) > 90 || math.Abs(b.MaxY) > 90
}

// vectorLooksProjected is a trivial heuristic: projected coordinates
// (easting/northing in meters) are usually many orders of magnitude larger
// than any valid lon/lat value.
func vectorLooksProjected(b model.BoundingBox) bool {
	const projectedThreshold = 1000.0
	return math.Abs(b.MinX) > projectedThreshold || math.Abs(b.MaxX) > projectedThreshold ||
		math.Abs(b.MinY) > projectedThreshold || math.Abs(b.MaxY) > projectedThreshold
}
