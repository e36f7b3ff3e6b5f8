// Package ckan is the CKAN family base adapter (spec.md §5.1): a generic
// adapter plus known-host fast path, reading package_show's "extras" array,
// where spatial metadata may arrive as a GeoJSON string, UK-style
// "bbox-north"/"bbox-south"/"bbox-east"/"bbox-west" keys, or a
// "west/south/east/north" dict, and temporal metadata is scattered across
// five recognized key naming conventions across CKAN deployments.
//
// Grounded on the teacher's pkg/downloaders/figshare pattern for an
// API-base-plus-options adapter, reusing internal/temporal's
// araddon/dateparse wrapper for the date-format chaos CKAN portals exhibit
// in practice.
package ckan

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/btraven00/geoextent-core/internal/model"
	"github.com/btraven00/geoextent-core/internal/provider"
	"github.com/btraven00/geoextent-core/internal/temporal"
)

// Adapter is one CKAN deployment (generic host match, or a known fast-path
// host list passed explicitly at construction).
type Adapter struct {
	name    string
	apiBase string // e.g. "https://data.gov.uk/api"
	hosts   []string
	client  *resty.Client
}

type Option func(*Adapter)

func WithHosts(hosts ...string) Option {
	return func(a *Adapter) { a.hosts = hosts }
}

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
	for _, h := range a.hosts {
		if strings.Contains(id.Canonical, h) {
			return true
		}
	}
	if a.apiBase == "" {
		// Generic family fallback (spec.md §4.2): only claim identifiers
		// that look like a CKAN action-API path.
		return strings.Contains(id.Canonical, "/api/3/action/")
	}
	return strings.Contains(id.Canonical, hostOf(a.apiBase))
}

func (a *Adapter) SupportsMetadata() bool { return true }

type packageShowResponse struct {
	Success bool `json:"success"`
	Result  struct {
		Extras []struct {
			Key   string `json:"key"`
			Value string `json:"value"`
		} `json:"extras"`
		Resources []struct {
			Name   string `json:"name"`
			URL    string `json:"url"`
			Size   string `json:"size"` // CKAN sends size as a string, sometimes absent
			Format string `json:"format"`
			Hash   string `json:"hash"`
		} `json:"resources"`
	} `json:"result"`
}

// temporalKeyConventions is the five recognized (start, end) extras key
// naming conventions CKAN deployments use (spec.md §5.1).
var temporalKeyConventions = [][2]string{
	{"temporal_start", "temporal_end"},
	{"temporal-extent-begin", "temporal-extent-end"},
	{"timerange_start", "timerange_end"},
	{"temporal_coverage_from", "temporal_coverage_to"},
	{"date_range_start", "date_range_end"},
}

func extrasMap(resp *packageShowResponse) map[string]string {
	m := make(map[string]string, len(resp.Result.Extras))
	for _, e := range resp.Result.Extras {
		m[e.Key] = e.Value
	}
	return m
}

func (a *Adapter) FetchMetadata(ctx context.Context, id model.Identifier) (provider.Metadata, error) {
	resp, err := a.packageShow(ctx, id)
	if err != nil {
		return provider.Metadata{}, err
	}

	extras := extrasMap(resp)
	var meta provider.Metadata

	if env := spatialFromExtras(extras); env != nil {
		meta.Envelope = env
	}

	if iv := temporalFromExtras(extras); iv != nil {
		meta.Temporal = iv
	}

	return meta, nil
}

func spatialFromExtras(extras map[string]string) *model.Envelope {
	if raw, ok := extras["spatial"]; ok && raw != "" {
		if env := envelopeFromGeoJSON(raw); env != nil {
			return env
		}
	}

	if bbox, ok := bboxFromUKStyle(extras); ok {
		return &model.Envelope{CRS: model.WGS84, BBox: &bbox}
	}

	if bbox, ok := bboxFromWSEN(extras); ok {
		return &model.Envelope{CRS: model.WGS84, BBox: &bbox}
	}

	return nil
}

func envelopeFromGeoJSON(raw string) *model.Envelope {
	var geo struct {
		Type        string          `json:"type"`
		Coordinates json.RawMessage `json:"coordinates"`
	}
	if err := json.Unmarshal([]byte(raw), &geo); err != nil {
		return nil
	}

	pts := flattenCoordinates(geo.Coordinates)
	if len(pts) == 0 {
		return nil
	}
	bbox := model.BoundingBoxOf(pts)
	return &model.Envelope{CRS: model.WGS84, BBox: &bbox}
}

// flattenCoordinates walks an arbitrarily nested GeoJSON coordinates array
// (Point, Polygon, MultiPolygon all nest differently) and collects every
// [lon, lat] pair found, which is sufficient to compute a bounding box even
// though it discards ring/polygon structure.
func flattenCoordinates(raw json.RawMessage) []model.Point {
	var generic any
	if err := json.Unmarshal(raw, &generic); err != nil {
		return nil
	}
	var pts []model.Point
	var walk func(any)
	walk = func(v any) {
		arr, ok := v.([]any)
		if !ok {
			return
		}
		if len(arr) == 2 {
			x, xok := arr[0].(float64)
			y, yok := arr[1].(float64)
			if xok && yok {
				pts = append(pts, model.Point{X: x, Y: y})
				return
			}
		}
		for _, el := range arr {
			walk(el)
		}
	}
	walk(generic)
	return pts
}

func bboxFromUKStyle(extras map[string]string) (model.BoundingBox, bool) {
	n, nok := parseFloat(extras["bbox-north"])
	s, sok := parseFloat(extras["bbox-south"])
	e, eok := parseFloat(extras["bbox-east"])
	w, wok := parseFloat(extras["bbox-west"])
	if nok && sok && eok && wok {
		return model.BoundingBox{MinX: w, MinY: s, MaxX: e, MaxY: n}, true
	}
	return model.BoundingBox{}, false
}

func bboxFromWSEN(extras map[string]string) (model.BoundingBox, bool) {
	w, wok := parseFloat(extras["west"])
	s, sok := parseFloat(extras["south"])
	e, eok := parseFloat(extras["east"])
	n, nok := parseFloat(extras["north"])
	if wok && sok && eok && nok {
		return model.BoundingBox{MinX: w, MinY: s, MaxX: e, MaxY: n}, true
	}
	return model.BoundingBox{}, false
}

func parseFloat(s string) (float64, bool) {
	if s == "" {
		return 0, false
	}
	f, err := strconv.ParseFloat(s, 64)
	return f, err == nil
}

func temporalFromExtras(extras map[string]string) *model.TimeInterval {
	for _, conv := range temporalKeyConventions {
		startStr, endStr := extras[conv[0]], extras[conv[1]]
		if startStr == "" && endStr == "" {
			continue
		}
		iv, err := temporal.ParseInterval(startStr, endStr)
		if err == nil && !iv.IsEmpty() {
			return &iv
		}
	}
	return nil
}

func (a *Adapter) EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error) {
	resp, err := a.packageShow(ctx, id)
	if err != nil {
		return nil, err
	}

	filterSet := make(map[string]struct{}, len(filter))
	for _, ext := range filter {
		filterSet[strings.ToLower(ext)] = struct{}{}
	}

	var out []model.FileDescriptor
	for _, r := range resp.Result.Resources {
		ext := strings.ToLower(r.Format)
		if len(filterSet) > 0 {
			if _, ok := filterSet[ext]; !ok {
				continue
			}
		}

		var size *int64
		if n, err := strconv.ParseInt(r.Size, 10, 64); err == nil {
			size = &n
		}

		out = append(out, model.FileDescriptor{
			Name:         r.Name,
			URL:          r.URL,
			ChecksumHint: r.Hash,
			GroupKey:     model.SiblingGroupKey(r.Name),
			DeclaredSize: size,
		})
	}
	return out, nil
}

func (a *Adapter) packageShow(ctx context.Context, id model.Identifier) (*packageShowResponse, error) {
	key := id.DatasetKey
	if key == "" {
		key = id.Canonical
	}

	var resp packageShowResponse
	r, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("id", key).
		SetResult(&resp).
		Get(fmt.Sprintf("%s/3/action/package_show", a.apiBase))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: package_show %s", a.name, key)
	}
	if r.IsError() || !resp.Success {
		return nil, errors.Errorf("%s: package_show %s failed (status %d)", a.name, key, r.StatusCode())
	}
	return &resp, nil
}

func hostOf(u string) string {
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	if i := strings.Index(u, "/"); i >= 0 {
		u = u[:i]
	}
	return u
}
