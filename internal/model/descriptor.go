package model

// FileDescriptor is an adapter-produced record describing one remote file,
// without fetching it (spec.md §3 / §4.6). Restricted or embargoed files are
// tagged Restricted and must be excluded from selection with a warning.
type FileDescriptor struct {
	Name          string
	URL           string
	MimeHint      string
	ChecksumHint  string
	GroupKey      string
	DeclaredSize  *int64 // nil means unknown (spec.md §3 "declared_size (optional)")
	Restricted    bool
	RestrictedWhy string
}

// SizeOrZero returns the declared size, or 0 when unknown. Selection code
// should prefer SizeKnown()+DeclaredSize over this helper -- it exists only
// for places that need a definite int64 for display.
func (d FileDescriptor) SizeOrZero() int64 {
	if d.DeclaredSize == nil {
		return 0
	}
	return *d.DeclaredSize
}

// SizeKnown reports whether DeclaredSize was supplied by the provider.
func (d FileDescriptor) SizeKnown() bool {
	return d.DeclaredSize != nil
}

// IsGeospatialExtension reports whether Name's extension is one of the
// well-known geospatial formats, used by the geospatial_only filter
// (spec.md §4.3 step 1). extra supplements the built-in set with
// extra_geospatial_extensions from config.
func IsGeospatialExtension(name string, extra map[string]struct{}) bool {
	ext := lowerExt(name)
	if _, ok := geospatialExtensions[ext]; ok {
		return true
	}
	_, ok := extra[ext]
	return ok
}

func lowerExt(name string) string {
	i := len(name) - 1
	for i >= 0 && name[i] != '.' && name[i] != '/' {
		i--
	}
	if i < 0 || name[i] != '.' {
		return ""
	}
	ext := name[i+1:]
	out := make([]byte, len(ext))
	for j := 0; j < len(ext); j++ {
		c := ext[j]
		if c >= 'A' && c <= 'Z' {
			c += 'a' - 'A'
		}
		out[j] = c
	}
	return string(out)
}

// shapefileComponentExtensions are the sibling extensions of a multi-file
// format that must be selected and downloaded as one atomic unit (spec.md
// §3 "group_key... e.g. the four components of a shapefile"). Every other
// file gets no group key, so the Size Budget Selector can select a true
// subset of a dataset's files (spec.md §4.3 step 2).
var shapefileComponentExtensions = map[string]struct{}{
	"shp": {}, "shx": {}, "dbf": {}, "prj": {}, "cpg": {}, "sbn": {}, "sbx": {}, "qix": {}, "fbn": {}, "fbx": {}, "ain": {}, "aih": {},
}

// SiblingGroupKey returns the GroupKey an adapter should attach to a
// FileDescriptor named name, so multi-file format components travel
// together through selection (spec.md §4.3 step 2). It is empty for every
// ordinary, independently-selectable file.
func SiblingGroupKey(name string) string {
	ext := lowerExt(name)
	if _, ok := shapefileComponentExtensions[ext]; !ok {
		return ""
	}
	return stemOf(name)
}

// stemOf returns name without its final extension, so "dir/a.shp" and
// "dir/a.dbf" collapse to the same stem "dir/a".
func stemOf(name string) string {
	i := len(name) - 1
	for i >= 0 && name[i] != '.' && name[i] != '/' {
		i--
	}
	if i < 0 || name[i] != '.' {
		return name
	}
	return name[:i]
}

var geospatialExtensions = map[string]struct{}{
	"shp": {}, "shx": {}, "dbf": {}, "prj": {},
	"geojson": {}, "gpkg": {}, "kml": {}, "kmz": {},
	"tif": {}, "tiff": {}, "geotiff": {},
	"nc": {}, "hdf": {}, "hdf5": {}, "h5": {},
	"gml": {}, "las": {}, "laz": {},
	"csv": {}, "asc": {}, "grd": {},
}

// AncillaryPatterns are suffixes that mark a file as a sidecar the decoders
// may need on disk but which is never independently probed for extent
// (spec.md §4.5).
var AncillaryPatterns = []string{".ovr", ".aux.xml", ".msk", ".xml", ".cpg", ".qix"}

// IsAncillary reports whether name matches one of AncillaryPatterns.
func IsAncillary(name string) bool {
	for _, suf := range AncillaryPatterns {
		if hasSuffixFold(name, suf) {
			return true
		}
	}
	return false
}

func hasSuffixFold(s, suf string) bool {
	if len(s) < len(suf) {
		return false
	}
	tail := s[len(s)-len(suf):]
	for i := range tail {
		a, b := tail[i], suf[i]
		if a >= 'A' && a <= 'Z' {
			a += 'a' - 'A'
		}
		if b >= 'A' && b <= 'Z' {
			b += 'a' - 'A'
		}
		if a != b {
			return false
		}
	}
	return true
}
