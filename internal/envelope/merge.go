// Package envelope implements the Extent Merger (spec.md §4.9) and the
// WGS84 Validator (spec.md §4.8). Internal computation stays in traditional
// GIS (lon, lat) order throughout; the swap to EPSG:4326-native (lat, lon)
// happens exactly once, in OutputBBox/OutputHull (output.go) -- spec.md §9's "coordinate
// order trap".
package envelope

import (
	"sort"

	"github.com/btraven00/geoextent-core/internal/model"
)

// Merge combines envelopes into one, associatively and commutatively
// (spec.md §8). A bbox input is treated as its four corners when the
// result must be a hull (useConvexHull); otherwise bbox+bbox merges as a
// bbox and any hull input forces the whole merge to hull.
func Merge(useConvexHull bool, envs ...*model.Envelope) *model.Envelope {
	var nonNil []*model.Envelope
	for _, e := range envs {
		if e != nil {
			nonNil = append(nonNil, e)
		}
	}
	if len(nonNil) == 0 {
		return nil
	}

	anyHull := useConvexHull
	for _, e := range nonNil {
		if e.Hull != nil {
			anyHull = true
		}
	}

	if !anyHull {
		return mergeBBoxes(nonNil)
	}
	return mergeHulls(nonNil)
}

func mergeBBoxes(envs []*model.Envelope) *model.Envelope {
	var points []model.Point
	for _, e := range envs {
		if e.BBox != nil {
			points = append(points, e.BBox.Corners()...)
		}
	}
	if len(points) == 0 {
		return nil
	}
	bb := model.BoundingBoxOf(points)
	return &model.Envelope{CRS: model.WGS84, BBox: &bb}
}

func mergeHulls(envs []*model.Envelope) *model.Envelope {
	var points []model.Point
	for _, e := range envs {
		switch {
		case e.Hull != nil:
			points = append(points, e.Hull.Vertices...)
		case e.BBox != nil:
			points = append(points, e.BBox.Corners()...)
		}
	}
	if len(points) == 0 {
		return nil
	}
	hull := ConvexHull(points)
	return &model.Envelope{CRS: model.WGS84, Hull: &model.ConvexHull{Vertices: hull}}
}

// ConvexHull computes the counter-clockwise convex hull of points via the
// monotone-chain (Andrew's) algorithm (spec.md §4.9), containing every
// input point (spec.md §8 invariant).
func ConvexHull(points []model.Point) []model.Point {
	pts := make([]model.Point, len(points))
	copy(pts, points)

	sort.Slice(pts, func(i, j int) bool {
		if pts[i].X != pts[j].X {
			return pts[i].X < pts[j].X
		}
		return pts[i].Y < pts[j].Y
	})

	pts = dedup(pts)
	n := len(pts)
	if n < 3 {
		return pts
	}

	hull := make([]model.Point, 0, 2*n)

	// lower hull
	for _, p := range pts {
		for len(hull) >= 2 && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	// upper hull
	lower := len(hull) + 1
	for i := n - 2; i >= 0; i-- {
		p := pts[i]
		for len(hull) >= lower && cross(hull[len(hull)-2], hull[len(hull)-1], p) <= 0 {
			hull = hull[:len(hull)-1]
		}
		hull = append(hull, p)
	}

	return hull[:len(hull)-1]
}

func dedup(pts []model.Point) []model.Point {
	out := pts[:0:0]
	for i, p := range pts {
		if i == 0 || p != pts[i-1] {
			out = append(out, p)
		}
	}
	return out
}

func cross(o, a, b model.Point) float64 {
	return (a.X-o.X)*(b.Y-o.Y) - (a.Y-o.Y)*(b.X-o.X)
}

// MergeTemporal is spec.md §4.9's temporal merge step, delegating to
// model.MergeTimeIntervals.
func MergeTemporal(intervals ...*model.TimeInterval) *model.TimeInterval {
	var present []model.TimeInterval
	for _, iv := range intervals {
		if iv != nil {
			present = append(present, *iv)
		}
	}
	if len(present) == 0 {
		return nil
	}
	merged := model.MergeTimeIntervals(present...)
	return &merged
}
