// Package stac is the STAC family adapter (spec.md §5.1): any STAC
// Collection URL, matched by a known-host list, the conventional
// "/stac/" or "/collections/" path segment, or (last resort) a JSON content-sniff of the
// identifier's own URL. extent.spatial.bbox and extent.temporal.interval
// map onto the envelope and temporal interval directly -- no coordinate
// reshuffling needed, unlike the GeoJSON-nested families.
package stac

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
	name   string
	hosts  []string
	client *resty.Client
}

type Option func(*Adapter)

func WithHosts(hosts ...string) Option {
	return func(a *Adapter) { a.hosts = hosts }
}

func New(name string, opts ...Option) *Adapter {
	a := &Adapter{
		name:   name,
		client: resty.New().SetTimeout(20 * time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) FriendlyName() string { return a.name }

func (a *Adapter) Matches(ctx context.Context, id model.Identifier) bool {
	for _, h := range a.hosts {
		if strings.Contains(id.Canonical, h) {
			return true
		}
	}
	if strings.Contains(id.Canonical, "/stac/") || strings.Contains(id.Canonical, "/collections/") {
		return true
	}
	return a.sniffsAsSTAC(ctx, id)
}

// sniffsAsSTAC does a single capped GET and looks for STAC's required
// "stac_version" field, for collection URLs that match none of the known
// hosts or path conventions (spec.md §4.2 "at most one probe, cached").
func (a *Adapter) sniffsAsSTAC(ctx context.Context, id model.Identifier) bool {
	if !strings.HasPrefix(id.Canonical, "http") {
		return false
	}
	var body struct {
		StacVersion string `json:"stac_version"`
	}
	resp, err := a.client.R().SetContext(ctx).SetResult(&body).Get(id.Canonical)
	if err != nil || resp.IsError() {
		return false
	}
	return body.StacVersion != ""
}

func (a *Adapter) SupportsMetadata() bool { return true }

type collectionResponse struct {
	Extent struct {
		Spatial struct {
			Bbox [][]float64 `json:"bbox"`
		} `json:"spatial"`
		Temporal struct {
			Interval [][]*string `json:"interval"`
		} `json:"temporal"`
	} `json:"extent"`
	Assets map[string]struct {
		Href  string `json:"href"`
		Title string `json:"title"`
		Type  string `json:"type"`
	} `json:"assets"`
}

func (a *Adapter) FetchMetadata(ctx context.Context, id model.Identifier) (provider.Metadata, error) {
	col, err := a.fetchCollection(ctx, id)
	if err != nil {
		return provider.Metadata{}, err
	}

	var meta provider.Metadata

	if len(col.Extent.Spatial.Bbox) > 0 && len(col.Extent.Spatial.Bbox[0]) >= 4 {
		b := col.Extent.Spatial.Bbox[0]
		bbox := model.BoundingBox{MinX: b[0], MinY: b[1], MaxX: b[2], MaxY: b[3]}
		meta.Envelope = &model.Envelope{CRS: model.WGS84, BBox: &bbox}
	}

	if len(col.Extent.Temporal.Interval) > 0 {
		pair := col.Extent.Temporal.Interval[0]
		var iv model.TimeInterval
		if len(pair) > 0 && pair[0] != nil {
			if t, err := time.Parse(time.RFC3339, *pair[0]); err == nil {
				iv.Start = &t
			}
		}
		if len(pair) > 1 && pair[1] != nil {
			if t, err := time.Parse(time.RFC3339, *pair[1]); err == nil {
				iv.End = &t
			}
		}
		if !iv.IsEmpty() {
			meta.Temporal = &iv
		}
	}

	return meta, nil
}

func (a *Adapter) EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error) {
	col, err := a.fetchCollection(ctx, id)
	if err != nil {
		return nil, err
	}

	filterSet := make(map[string]struct{}, len(filter))
	for _, ext := range filter {
		filterSet[strings.ToLower(ext)] = struct{}{}
	}

	var out []model.FileDescriptor
	for key, asset := range col.Assets {
		ext := extOf(asset.Href)
		if len(filterSet) > 0 {
			if _, ok := filterSet[ext]; !ok {
				continue
			}
		}
		out = append(out, model.FileDescriptor{
			Name:     key,
			URL:      asset.Href,
			MimeHint: asset.Type,
			GroupKey: model.SiblingGroupKey(key),
		})
	}
	return out, nil
}

func (a *Adapter) fetchCollection(ctx context.Context, id model.Identifier) (*collectionResponse, error) {
	var col collectionResponse
	resp, err := a.client.R().SetContext(ctx).SetResult(&col).Get(id.Canonical)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: fetch collection %s", a.name, id.Canonical)
	}
	if resp.IsError() {
		return nil, errors.Errorf("%s: collection %s returned status %d", a.name, id.Canonical, resp.StatusCode())
	}
	return &col, nil
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return strings.ToLower(name[i+1:])
	}
	return ""
}
