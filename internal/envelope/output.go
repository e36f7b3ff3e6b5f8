package envelope

import "github.com/btraven00/geoextent-core/internal/model"

// LatLon is the EPSG:4326-native (lat, lon) output pair. It exists only at
// the output boundary -- every internal computation uses model.Point's
// (lon, lat) "x, y" order instead (spec.md §3, §9).
type LatLon struct {
	Lat float64
	Lon float64
}

// OutputBBox is the single point where the (lon, lat) -> (lat, lon) swap
// happens (spec.md §9 "coordinate-order trap"). Never perform this swap
// anywhere else in the codebase.
func OutputBBox(b model.BoundingBox) (min, max LatLon) {
	return LatLon{Lat: b.MinY, Lon: b.MinX}, LatLon{Lat: b.MaxY, Lon: b.MaxX}
}

// OutputHull swaps an entire hull's vertices to (lat, lon) order at once.
func OutputHull(vertices []model.Point) []LatLon {
	out := make([]LatLon, len(vertices))
	for i, p := range vertices {
		out[i] = LatLon{Lat: p.Y, Lon: p.X}
	}
	return out
}
