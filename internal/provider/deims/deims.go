// Package deims adapts DEIMS-SDR: a site record's "dataset" relation
// routinely points at a landing page hosted elsewhere (most often Zenodo),
// so this adapter's metadata call may resolve to a bounding box directly
// from the site record's own boundaries field, or hand back a
// LandingPage for the orchestrator to follow into another registered
// provider (spec.md §4.7, §9 "cyclic references" -- the orchestrator, not
// this adapter, owns the depth cap and visited set).
package deims

import (
	"context"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/btraven00/geoextent-core/internal/model"
	"github.com/btraven00/geoextent-core/internal/provider"
)

type Adapter struct {
	apiBase string
	client  *resty.Client
}

type Option func(*Adapter)

// WithAPIBase overrides the default deims.org API base, for pointing the
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
		apiBase: "https://deims.org/api",
		client:  resty.New().SetTimeout(20 * time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) FriendlyName() string { return "DEIMS-SDR" }

func (a *Adapter) Matches(ctx context.Context, id model.Identifier) bool {
	return strings.Contains(id.Canonical, "deims.org")
}

// FollowsExternal reports that this adapter's FetchMetadata may return a
// LandingPage the caller should resolve through the registry again
// (spec.md §4.7).
func (a *Adapter) FollowsExternal() bool { return true }

func (a *Adapter) SupportsMetadata() bool { return true }

type siteResponse struct {
	Attributes struct {
		Geography struct {
			Boundaries struct {
				Bbox []float64 `json:"bbox"` // [west, south, east, north]
			} `json:"boundaries"`
		} `json:"geography"`
		Online struct {
			Dataset struct {
				URL string `json:"url"`
			} `json:"dataset"`
		} `json:"onlineDistribution"`
	} `json:"attributes"`
}

func (a *Adapter) FetchMetadata(ctx context.Context, id model.Identifier) (provider.Metadata, error) {
	site, err := a.fetchSite(ctx, id)
	if err != nil {
		return provider.Metadata{}, err
	}

	var meta provider.Metadata

	if b := site.Attributes.Geography.Boundaries.Bbox; len(b) == 4 {
		bbox := model.BoundingBox{MinX: b[0], MinY: b[1], MaxX: b[2], MaxY: b[3]}
		meta.Envelope = &model.Envelope{CRS: model.WGS84, BBox: &bbox}
	}

	if ds := site.Attributes.Online.Dataset.URL; ds != "" {
		meta.LandingPage = ds
	}

	return meta, nil
}

// EnumerateFiles returns nothing directly: DEIMS-SDR sites are metadata
// records, not file containers. Files, if any, live at the followed
// LandingPage.
func (a *Adapter) EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error) {
	return nil, nil
}

func (a *Adapter) fetchSite(ctx context.Context, id model.Identifier) (*siteResponse, error) {
	siteID := id.DatasetKey
	if siteID == "" {
		siteID = lastPathSegment(id.Canonical)
	}

	var site siteResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&site).
		Get(a.apiBase + "/sites/" + siteID)
	if err != nil {
		return nil, errors.Wrapf(err, "deims: fetch site %s", siteID)
	}
	if resp.IsError() {
		return nil, errors.Errorf("deims: site %s returned status %d", siteID, resp.StatusCode())
	}
	return &site, nil
}

func lastPathSegment(s string) string {
	s = strings.TrimRight(s, "/")
	if i := strings.LastIndex(s, "/"); i >= 0 {
		return s[i+1:]
	}
	return s
}
