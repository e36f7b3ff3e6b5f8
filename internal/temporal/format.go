// Package temporal renders TimeInterval values at a configured precision
// (spec.md §4.1 Temporal Formatter) and parses the wide variety of date
// strings providers hand back (CKAN's five naming conventions, Dataverse,
// DSpace, Dryad, Figshare and PANGAEA dates) using araddon/dateparse the way the teacher's go.mod
// already brings in for lenient date handling, rather than hand-rolling a
// format-guessing loop.
package temporal

import (
	"time"

	"github.com/araddon/dateparse"

	"github.com/btraven00/geoextent-core/internal/model"
)

// DefaultPrecision is spec.md §3's default rendering layout (%Y-%m-%d).
const DefaultPrecision = "2006-01-02"

// Format renders t at precision (a Go reference-time layout); precision
// defaults to DefaultPrecision when empty.
func Format(t time.Time, precision string) string {
	if precision == "" {
		precision = DefaultPrecision
	}
	return t.Format(precision)
}

// FormatInterval renders both endpoints of iv, using "" for an open
// endpoint (spec.md §3 "either endpoint may be null").
func FormatInterval(iv model.TimeInterval, precision string) (start, end string) {
	if iv.Start != nil {
		start = Format(*iv.Start, precision)
	}
	if iv.End != nil {
		end = Format(*iv.End, precision)
	}
	return start, end
}

// Parse leniently parses a provider-supplied date string of unknown format.
func Parse(s string) (time.Time, error) {
	return dateparse.ParseAny(s)
}

// ParseInterval parses a provider's (start, end) date string pair, leaving
// an endpoint nil when its string is empty -- never erroring on a missing
// endpoint (mirrors the adapter contract's "never raise on missing fields",
// spec.md §4.6).
func ParseInterval(startStr, endStr string) (model.TimeInterval, error) {
	var iv model.TimeInterval

	if startStr != "" {
		t, err := Parse(startStr)
		if err != nil {
			return iv, err
		}
		iv.Start = &t
	}

	if endStr != "" {
		t, err := Parse(endStr)
		if err != nil {
			return iv, err
		}
		iv.End = &t
	}

	return iv, nil
}
