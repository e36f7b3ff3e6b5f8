// Package dryad adapts Dryad's DOI-keyed dataset API: a dataset's locations
// and date coverage live under /api/v2/datasets/{urlencoded-doi}, and file
// enumeration is a second call to /api/v2/datasets/{urlencoded-doi}/files.
package dryad

import (
	"context"
	"fmt"
	"net/url"
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

// WithAPIBase overrides the default datadryad.org API base, for pointing
// the adapter at a test double.
func WithAPIBase(base string) Option {
	return func(a *Adapter) { a.apiBase = strings.TrimRight(base, "/") }
}

// WithRestyClient overrides the adapter's HTTP client.
func WithRestyClient(c *resty.Client) Option {
	return func(a *Adapter) { a.client = c }
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		apiBase: "https://datadryad.org/api/v2",
		client:  resty.New().SetTimeout(20 * time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) FriendlyName() string { return "Dryad" }

func (a *Adapter) Matches(ctx context.Context, id model.Identifier) bool {
	return strings.Contains(id.Canonical, "datadryad.org") || strings.HasPrefix(id.Canonical, "10.5061/dryad.")
}

func (a *Adapter) SupportsMetadata() bool { return true }

type datasetResponse struct {
	RelatedPublicationISSN string `json:"relatedPublicationISSN"`
	LocationCoverage       []struct {
		Place string  `json:"place"`
		Point []float64 `json:"point"` // [lon, lat], when present
	} `json:"locations"`
	PublicationDate string `json:"publicationDate"`
	Versions        []struct {
		Links struct {
			Self struct {
				Href string `json:"href"`
			} `json:"self"`
		} `json:"_links"`
	} `json:"_embedded,omitempty"`
}

func (a *Adapter) FetchMetadata(ctx context.Context, id model.Identifier) (provider.Metadata, error) {
	ds, err := a.fetchDataset(ctx, id)
	if err != nil {
		return provider.Metadata{}, err
	}

	var meta provider.Metadata

	var pts []model.Point
	for _, loc := range ds.LocationCoverage {
		if len(loc.Point) >= 2 {
			pts = append(pts, model.Point{X: loc.Point[0], Y: loc.Point[1]})
		}
	}
	if len(pts) > 0 {
		bbox := model.BoundingBoxOf(pts)
		meta.Envelope = &model.Envelope{CRS: model.WGS84, BBox: &bbox}
	}

	if ds.PublicationDate != "" {
		if t, err := temporal.Parse(ds.PublicationDate); err == nil {
			meta.Temporal = &model.TimeInterval{Start: &t, End: &t}
		}
	}

	return meta, nil
}

func (a *Adapter) EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error) {
	doi := doiOf(id)
	encoded := url.QueryEscape(doi)

	var files struct {
		Embedded struct {
			Stash_files []struct { //nolint:stylecheck // mirrors Dryad's actual JSON key
				Path string `json:"path"`
				Size int64  `json:"size"`
				Links struct {
					Download struct {
						Href string `json:"href"`
					} `json:"stash:download"`
				} `json:"_links"`
			} `json:"stash:files"`
		} `json:"_embedded"`
	}

	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&files).
		Get(fmt.Sprintf("%s/datasets/%s/files", a.apiBase, encoded))
	if err != nil {
		return nil, errors.Wrapf(err, "dryad: list files %s", doi)
	}
	if resp.IsError() {
		return nil, errors.Errorf("dryad: list files %s returned status %d", doi, resp.StatusCode())
	}

	filterSet := make(map[string]struct{}, len(filter))
	for _, ext := range filter {
		filterSet[strings.ToLower(ext)] = struct{}{}
	}

	var out []model.FileDescriptor
	for _, f := range files.Embedded.Stash_files {
		ext := extOf(f.Path)
		if len(filterSet) > 0 {
			if _, ok := filterSet[ext]; !ok {
				continue
			}
		}
		size := f.Size
		out = append(out, model.FileDescriptor{
			Name:         f.Path,
			URL:          a.apiBase + f.Links.Download.Href,
			GroupKey:     model.SiblingGroupKey(f.Path),
			DeclaredSize: &size,
		})
	}
	return out, nil
}

func (a *Adapter) fetchDataset(ctx context.Context, id model.Identifier) (*datasetResponse, error) {
	doi := doiOf(id)
	encoded := url.QueryEscape(doi)

	var ds datasetResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&ds).
		Get(fmt.Sprintf("%s/datasets/%s", a.apiBase, encoded))
	if err != nil {
		return nil, errors.Wrapf(err, "dryad: fetch dataset %s", doi)
	}
	if resp.IsError() {
		return nil, errors.Errorf("dryad: dataset %s returned status %d", doi, resp.StatusCode())
	}
	return &ds, nil
}

func doiOf(id model.Identifier) string {
	if strings.HasPrefix(id.Canonical, "10.") {
		return id.Canonical
	}
	return id.DatasetKey
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return strings.ToLower(name[i+1:])
	}
	return ""
}
