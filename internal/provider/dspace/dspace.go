// Package dspace is the DSpace 7.x family adapter (spec.md §5.1), used by
// TU Dresden Opara. DSpace's REST API models an item's metadata as a flat
// list of {key, value} pairs (Dublin Core plus local extensions) rather
// than InvenioRDM's or Dataverse's nested blocks, so this adapter reads the
// metadata array directly instead of sharing either of those shapes.
package dspace

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
	name    string
	apiBase string
	client  *resty.Client
}

type Option func(*Adapter)

func New(name, apiBase string, opts ...Option) *Adapter {
	a := &Adapter{
		name:    name,
		apiBase: strings.TrimRight(apiBase, "/"),
		client:  resty.New().SetTimeout(20 * time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) FriendlyName() string { return a.name }

func (a *Adapter) Matches(ctx context.Context, id model.Identifier) bool {
	return strings.Contains(id.Canonical, hostOf(a.apiBase))
}

func (a *Adapter) SupportsMetadata() bool { return true }

type itemResponse struct {
	Metadata map[string][]struct {
		Value string `json:"value"`
	} `json:"metadata"`
	UUID string `json:"uuid"`
}

type bundlesResponse struct {
	Embedded struct {
		Bundles []struct {
			Embedded struct {
				Bitstreams []struct {
					Name        string `json:"name"`
					SizeBytes   int64  `json:"sizeBytes"`
					Metadata    map[string][]struct {
						Value string `json:"value"`
					} `json:"metadata"`
					Links struct {
						Content struct {
							Href string `json:"href"`
						} `json:"content"`
					} `json:"_links"`
				} `json:"bitstreams"`
			} `json:"_embedded"`
		} `json:"bundles"`
	} `json:"_embedded"`
}

func (a *Adapter) FetchMetadata(ctx context.Context, id model.Identifier) (provider.Metadata, error) {
	item, err := a.fetchItem(ctx, id)
	if err != nil {
		return provider.Metadata{}, err
	}

	var meta provider.Metadata

	if bbox, ok := bboxFromDCMetadata(item.Metadata); ok {
		meta.Envelope = &model.Envelope{CRS: model.WGS84, BBox: &bbox}
	}

	if iv := temporalFromDCMetadata(item.Metadata); iv != nil {
		meta.Temporal = iv
	}

	return meta, nil
}

func dcValue(md map[string][]struct{ Value string `json:"value"` }, key string) string {
	vals, ok := md[key]
	if !ok || len(vals) == 0 {
		return ""
	}
	return vals[0].Value
}

// bboxFromDCMetadata reads the local "local.spatial.boundingbox" extension
// field DSpace installations commonly use for geographic coverage, encoded
// as "west,south,east,north".
func bboxFromDCMetadata(md map[string][]struct{ Value string `json:"value"` }) (model.BoundingBox, bool) {
	raw := dcValue(md, "local.spatial.boundingbox")
	if raw == "" {
		return model.BoundingBox{}, false
	}
	parts := strings.Split(raw, ",")
	if len(parts) != 4 {
		return model.BoundingBox{}, false
	}
	vals := make([]float64, 4)
	for i, p := range parts {
		var v float64
		if _, err := fmt.Sscanf(strings.TrimSpace(p), "%g", &v); err != nil {
			return model.BoundingBox{}, false
		}
		vals[i] = v
	}
	return model.BoundingBox{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}, true
}

func temporalFromDCMetadata(md map[string][]struct{ Value string `json:"value"` }) *model.TimeInterval {
	start := dcValue(md, "dc.coverage.temporal.start")
	end := dcValue(md, "dc.coverage.temporal.end")
	if start == "" && end == "" {
		if issued := dcValue(md, "dc.date.issued"); issued != "" {
			if t, err := temporal.Parse(issued); err == nil {
				return &model.TimeInterval{Start: &t, End: &t}
			}
		}
		return nil
	}
	iv, err := temporal.ParseInterval(start, end)
	if err != nil || iv.IsEmpty() {
		return nil
	}
	return &iv
}

func (a *Adapter) EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error) {
	item, err := a.fetchItem(ctx, id)
	if err != nil {
		return nil, err
	}

	bundles, err := a.fetchBundles(ctx, item.UUID)
	if err != nil {
		return nil, err
	}

	filterSet := make(map[string]struct{}, len(filter))
	for _, ext := range filter {
		filterSet[strings.ToLower(ext)] = struct{}{}
	}

	var out []model.FileDescriptor
	for _, b := range bundles.Embedded.Bundles {
		for _, bs := range b.Embedded.Bitstreams {
			ext := extOf(bs.Name)
			if len(filterSet) > 0 {
				if _, ok := filterSet[ext]; !ok {
					continue
				}
			}
			size := bs.SizeBytes
			out = append(out, model.FileDescriptor{
				Name:         bs.Name,
				URL:          bs.Links.Content.Href,
				GroupKey:     model.SiblingGroupKey(bs.Name),
				DeclaredSize: &size,
			})
		}
	}
	return out, nil
}

func (a *Adapter) fetchItem(ctx context.Context, id model.Identifier) (*itemResponse, error) {
	itemID := id.DatasetKey
	if itemID == "" {
		itemID = lastPathSegment(id.Canonical)
	}

	var item itemResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&item).
		Get(fmt.Sprintf("%s/core/items/%s", a.apiBase, itemID))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: fetch item %s", a.name, itemID)
	}
	if resp.IsError() {
		return nil, errors.Errorf("%s: item %s returned status %d", a.name, itemID, resp.StatusCode())
	}
	return &item, nil
}

func (a *Adapter) fetchBundles(ctx context.Context, itemUUID string) (*bundlesResponse, error) {
	var bundles bundlesResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&bundles).
		Get(fmt.Sprintf("%s/core/items/%s/bundles?embed=bitstreams", a.apiBase, itemUUID))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: fetch bundles for %s", a.name, itemUUID)
	}
	if resp.IsError() {
		return nil, errors.Errorf("%s: bundles for %s returned status %d", a.name, itemUUID, resp.StatusCode())
	}
	return &bundles, nil
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
