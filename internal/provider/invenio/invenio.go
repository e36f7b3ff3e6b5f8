// Package invenio is the InvenioRDM family base adapter (spec.md §5.1):
// Zenodo, CaltechDATA, B2SHARE, and GEO Knowledge Hub all run the same
// record/files API shape, so one adapter type parameterized by host and
// DOI prefix covers all of them.
//
// Grounded on the teacher's pkg/downloaders/figshare.FigshareDownloader
// (functional-options HTTP client construction, clean-ID-then-validate
// shape), generalized from a single fixed API to a per-instance base URL,
// and switched from net/http to github.com/go-resty/resty/v2 per
// SPEC_FULL.md's domain-stack decision (typed JSON decoding, built-in
// retry knobs matching the adapter contract's "never raise on missing
// fields" requirement).
package invenio

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/btraven00/geoextent-core/internal/model"
	"github.com/btraven00/geoextent-core/internal/provider"
)

// Adapter is one InvenioRDM instance (Zenodo, CaltechDATA, B2SHARE, ...).
type Adapter struct {
	name       string
	apiBase    string // e.g. "https://zenodo.org/api"
	doiPrefix  string // e.g. "10.5281"; empty means host-match only
	client     *resty.Client
	probeCache sync.Map // id.Canonical -> bool
}

// Option configures an Adapter.
type Option func(*Adapter)

func WithHTTPTimeout(d time.Duration) Option {
	return func(a *Adapter) { a.client.SetTimeout(d) }
}

func WithRestyClient(c *resty.Client) Option {
	return func(a *Adapter) { a.client = c }
}

// New constructs an InvenioRDM instance adapter. apiBase must not have a
// trailing slash, e.g. "https://zenodo.org/api". doiPrefix may be empty for
// instances matched purely by host.
func New(name, apiBase, doiPrefix string, opts ...Option) *Adapter {
	a := &Adapter{
		name:      name,
		apiBase:   strings.TrimRight(apiBase, "/"),
		doiPrefix: doiPrefix,
		client:    resty.New().SetTimeout(20 * time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) FriendlyName() string { return a.name }

func (a *Adapter) Matches(ctx context.Context, id model.Identifier) bool {
	if a.doiPrefix != "" && strings.HasPrefix(id.Canonical, a.doiPrefix+"/") {
		return true
	}
	if a.apiBase == "" {
		// Generic family fallback (spec.md §4.2): only claim identifiers
		// that look like an InvenioRDM record path, since an empty
		// apiBase must never become an unconditional match.
		return strings.Contains(id.Canonical, "/api/records/") || strings.Contains(id.Canonical, "/records/")
	}
	host := hostOf(a.apiBase)
	return host != "" && strings.Contains(id.Canonical, host)
}

func (a *Adapter) SupportsMetadata() bool { return true }

type recordResponse struct {
	Metadata struct {
		Locations struct {
			Features []struct {
				Geometry struct {
					Type        string    `json:"type"`
					Coordinates []float64 `json:"coordinates"`
				} `json:"geometry"`
			} `json:"features"`
		} `json:"locations"`
		Dates []struct {
			Date string `json:"date"` // "2019-01-01/2019-12-31" or a single date
			Type struct {
				ID string `json:"id"`
			} `json:"type"`
		} `json:"dates"`
	} `json:"metadata"`
	Files []struct {
		Key   string `json:"key"`
		Size  int64  `json:"size"`
		Links struct {
			Self string `json:"self"`
		} `json:"links"`
		Checksum string `json:"checksum"`
	} `json:"files"`
}

func (a *Adapter) FetchMetadata(ctx context.Context, id model.Identifier) (provider.Metadata, error) {
	rec, err := a.fetchRecord(ctx, id)
	if err != nil {
		return provider.Metadata{}, err
	}

	var meta provider.Metadata

	if pts := extractPoints(rec); len(pts) > 0 {
		bbox := model.BoundingBoxOf(pts)
		meta.Envelope = &model.Envelope{CRS: model.WGS84, BBox: &bbox}
	}

	if iv := extractTemporal(rec); iv != nil {
		meta.Temporal = iv
	}

	return meta, nil
}

func extractPoints(rec *recordResponse) []model.Point {
	var pts []model.Point
	for _, f := range rec.Metadata.Locations.Features {
		c := f.Geometry.Coordinates
		switch strings.ToLower(f.Geometry.Type) {
		case "point":
			if len(c) >= 2 {
				pts = append(pts, model.Point{X: c[0], Y: c[1]})
			}
		case "polygon", "multipoint", "linestring":
			// GeoJSON nesting beyond a flat coordinate pair is not walked
			// here; InvenioRDM locations are overwhelmingly points in
			// practice. A bounding box over whatever flat pairs are present
			// still gives a usable (if coarser) extent.
			for i := 0; i+1 < len(c); i += 2 {
				pts = append(pts, model.Point{X: c[i], Y: c[i+1]})
			}
		}
	}
	return pts
}

func extractTemporal(rec *recordResponse) *model.TimeInterval {
	var intervals []model.TimeInterval
	for _, d := range rec.Metadata.Dates {
		parts := strings.SplitN(d.Date, "/", 2)
		var iv model.TimeInterval
		if t, err := parseLenient(parts[0]); err == nil {
			iv.Start = &t
		}
		if len(parts) == 2 {
			if t, err := parseLenient(parts[1]); err == nil {
				iv.End = &t
			}
		} else if iv.Start != nil {
			end := *iv.Start
			iv.End = &end
		}
		if !iv.IsEmpty() {
			intervals = append(intervals, iv)
		}
	}
	if len(intervals) == 0 {
		return nil
	}
	merged := model.MergeTimeIntervals(intervals...)
	return &merged
}

func parseLenient(s string) (t time.Time, err error) {
	for _, layout := range []string{"2006-01-02", "2006-01", "2006"} {
		if t, err = time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return t, errors.Errorf("unrecognized date %q", s)
}

func (a *Adapter) EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error) {
	rec, err := a.fetchRecord(ctx, id)
	if err != nil {
		return nil, err
	}

	filterSet := make(map[string]struct{}, len(filter))
	for _, ext := range filter {
		filterSet[strings.ToLower(ext)] = struct{}{}
	}

	var out []model.FileDescriptor
	for _, f := range rec.Files {
		if len(filterSet) > 0 {
			if _, ok := filterSet[extOf(f.Key)]; !ok {
				continue
			}
		}
		size := f.Size
		out = append(out, model.FileDescriptor{
			Name:         f.Key,
			URL:          f.Links.Self,
			ChecksumHint: f.Checksum,
			GroupKey:     model.SiblingGroupKey(f.Key),
			DeclaredSize: &size,
		})
	}
	return out, nil
}

func (a *Adapter) fetchRecord(ctx context.Context, id model.Identifier) (*recordResponse, error) {
	recordID := id.DatasetKey
	if recordID == "" {
		recordID = lastPathSegment(id.Canonical)
	}

	var rec recordResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&rec).
		Get(fmt.Sprintf("%s/records/%s", a.apiBase, recordID))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: fetch record %s", a.name, recordID)
	}
	if resp.IsError() {
		return nil, errors.Errorf("%s: record %s returned status %d", a.name, recordID, resp.StatusCode())
	}

	return &rec, nil
}

func hostOf(u string) string {
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	if i := strings.Index(u, "/"); i >= 0 {
		u = u[:i]
	}
	return u
}

func lastPathSegment(s string) string {
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return strings.ToLower(name[i+1:])
	}
	return ""
}
