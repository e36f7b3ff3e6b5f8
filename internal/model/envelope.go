package model

import "math"

// CRS tags an Envelope's coordinate reference system. The only value that
// may cross a core component boundary is WGS84 (spec.md §3).
type CRS string

const WGS84 CRS = "EPSG:4326"

// Point is a traditional-GIS-order (x=lon, y=lat) coordinate. The swap to
// EPSG:4326-native (lat, lon) happens exactly once, at the output boundary
// (see internal/envelope/output.go), never earlier (spec.md §9 "coordinate
// order trap").
type Point struct {
	X float64 // longitude
	Y float64 // latitude
}

// Envelope is either a BoundingBox or a ConvexHull. Exactly one of the two
// pointer fields is non-nil.
type Envelope struct {
	CRS    CRS
	BBox   *BoundingBox
	Hull   *ConvexHull
}

// BoundingBox in traditional GIS (lon, lat) order internally.
type BoundingBox struct {
	MinX, MinY, MaxX, MaxY float64 // lon/lat
}

// ConvexHull is an ordered, counter-clockwise-wound set of vertices in
// lon/lat order, containing every input point (spec.md §8 invariant).
type ConvexHull struct {
	Vertices []Point
}

// IsDegenerate reports a [0,0,0,0]-style uninitialized bbox (spec.md §4.8).
func (b BoundingBox) IsDegenerate() bool {
	return b.MinX == 0 && b.MinY == 0 && b.MaxX == 0 && b.MaxY == 0
}

// InRange reports whether the box lies within [-180,180]x[-90,90].
func (b BoundingBox) InRange() bool {
	return b.MinX >= -180 && b.MaxX <= 180 && b.MinY >= -90 && b.MaxY <= 90 &&
		b.MinX <= b.MaxX && b.MinY <= b.MaxY
}

// Corners returns the bbox's four corners as a closed polygon's vertex set,
// used when merging a bbox into a convex hull (spec.md §4.9).
func (b BoundingBox) Corners() []Point {
	return []Point{
		{X: b.MinX, Y: b.MinY},
		{X: b.MaxX, Y: b.MinY},
		{X: b.MaxX, Y: b.MaxY},
		{X: b.MinX, Y: b.MaxY},
	}
}

// BoundingBoxOf computes the bbox of an arbitrary point set.
func BoundingBoxOf(points []Point) BoundingBox {
	b := BoundingBox{MinX: math.Inf(1), MinY: math.Inf(1), MaxX: math.Inf(-1), MaxY: math.Inf(-1)}
	for _, p := range points {
		if p.X < b.MinX {
			b.MinX = p.X
		}
		if p.X > b.MaxX {
			b.MaxX = p.X
		}
		if p.Y < b.MinY {
			b.MinY = p.Y
		}
		if p.Y > b.MaxY {
			b.MaxY = p.Y
		}
	}
	return b
}
