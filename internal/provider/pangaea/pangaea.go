// Package pangaea adapts PANGAEA's metadata API: a dataset's DOI-suffixed
// endpoint with format=metadata_jsonld returns a "geoextent" coverage entry
// (already a bounding box, no GeoJSON nesting to flatten) and a
// minDateTime/maxDateTime date range, while the tabular or binary data file itself
// is a single flat download -- PANGAEA does not expose a file listing API,
// so enumeration yields the dataset's one canonical export.
package pangaea

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/btraven00/geoextent-core/internal/model"
	"github.com/btraven00/geoextent-core/internal/provider"
	"github.com/btraven00/geoextent-core/internal/temporal"
)

type Adapter struct {
	apiBase string
	client  *resty.Client
}

type Option func(*Adapter)

// WithAPIBase overrides the default doi.pangaea.de base, for pointing the
// adapter at a test double.
func WithAPIBase(base string) Option {
	return func(a *Adapter) { a.apiBase = strings.TrimRight(base, "/") }
}

// WithRestyClient overrides the adapter's HTTP client.
func WithRestyClient(c *resty.Client) Option {
	return func(a *Adapter) { a.client = c }
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		apiBase: "https://doi.pangaea.de",
		client:  resty.New().SetTimeout(20 * time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) FriendlyName() string { return "PANGAEA" }

func (a *Adapter) Matches(ctx context.Context, id model.Identifier) bool {
	return strings.Contains(id.Canonical, "pangaea.de") || strings.HasPrefix(id.Canonical, "10.1594/pangaea.")
}

func (a *Adapter) SupportsMetadata() bool { return true }

type metadataResponse struct {
	Coverage struct {
		GeoExtent struct {
			MinLongitude float64 `json:"westBoundLongitude"`
			MaxLongitude float64 `json:"eastBoundLongitude"`
			MinLatitude  float64 `json:"southBoundLatitude"`
			MaxLatitude  float64 `json:"northBoundLatitude"`
		} `json:"geoextent"`
		MinDate string `json:"minDateTime"`
		MaxDate string `json:"maxDateTime"`
	} `json:"coverage"`
	Citation struct {
		DOI string `json:"doi"`
	} `json:"citation"`
}

func (a *Adapter) FetchMetadata(ctx context.Context, id model.Identifier) (provider.Metadata, error) {
	md, err := a.fetchMetadata(ctx, id)
	if err != nil {
		return provider.Metadata{}, err
	}

	var meta provider.Metadata
	g := md.Coverage.GeoExtent
	if g.MinLongitude != 0 || g.MaxLongitude != 0 || g.MinLatitude != 0 || g.MaxLatitude != 0 {
		bbox := model.BoundingBox{MinX: g.MinLongitude, MinY: g.MinLatitude, MaxX: g.MaxLongitude, MaxY: g.MaxLatitude}
		meta.Envelope = &model.Envelope{CRS: model.WGS84, BBox: &bbox}
	}

	iv, err := temporal.ParseInterval(md.Coverage.MinDate, md.Coverage.MaxDate)
	if err == nil && !iv.IsEmpty() {
		meta.Temporal = &iv
	}

	return meta, nil
}

// EnumerateFiles returns PANGAEA's single canonical export as one
// descriptor -- there is no per-file listing API to page through.
func (a *Adapter) EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error) {
	datasetID := id.DatasetKey
	if datasetID == "" {
		datasetID = lastPathSegment(id.Canonical)
	}

	if len(filter) > 0 {
		allowed := false
		for _, ext := range filter {
			if strings.EqualFold(ext, "tab") {
				allowed = true
				break
			}
		}
		if !allowed {
			return nil, nil
		}
	}

	name := fmt.Sprintf("%s.tab", datasetID)
	return []model.FileDescriptor{{
		Name:     name,
		URL:      fmt.Sprintf("%s/10.1594/PANGAEA.%s?format=textfile", a.apiBase, datasetID),
		GroupKey: model.SiblingGroupKey(name),
	}}, nil
}

func (a *Adapter) fetchMetadata(ctx context.Context, id model.Identifier) (*metadataResponse, error) {
	datasetID := id.DatasetKey
	if datasetID == "" {
		datasetID = lastPathSegment(id.Canonical)
	}

	var md metadataResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&md).
		Get(fmt.Sprintf("%s/10.1594/PANGAEA.%s?format=metadata_jsonld", a.apiBase, datasetID))
	if err != nil {
		return nil, errors.Wrapf(err, "pangaea: fetch metadata %s", datasetID)
	}
	if resp.IsError() {
		return nil, errors.Errorf("pangaea: metadata %s returned status %d", datasetID, resp.StatusCode())
	}
	return &md, nil
}

func lastPathSegment(s string) string {
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "."); i >= 0 {
		return s[i+1:]
	}
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}
