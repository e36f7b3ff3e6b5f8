// Package dataverse is the Dataverse family adapter (spec.md §5.1),
// covering 10+ institutional instances through one instance-parameterized
// type. Metadata comes from /api/datasets/:persistentId; restricted files
// are enumerated tagged Restricted, so the size budget selector leaves them
// out of the selection automatically (spec.md §4.3, §9).
package dataverse

import (
	"context"
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
	if a.apiBase == "" {
		// Generic family fallback (spec.md §4.2): only claim identifiers
		// that look like a Dataverse persistent-ID path.
		return strings.Contains(id.Canonical, "/api/datasets/") || strings.Contains(id.Canonical, "persistentId=")
	}
	return strings.Contains(id.Canonical, hostOf(a.apiBase))
}

func (a *Adapter) SupportsMetadata() bool { return true }

type datasetResponse struct {
	Data struct {
		LatestVersion struct {
			MetadataBlocks struct {
				Citation struct {
					Fields []field `json:"fields"`
				} `json:"citation"`
				Geospatial struct {
					Fields []field `json:"fields"`
				} `json:"geospatial"`
			} `json:"metadataBlocks"`
			Files []struct {
				DataFile struct {
					Filename    string `json:"filename"`
					Filesize    int64  `json:"filesize"`
					ContentType string `json:"contentType"`
					Checksum    struct {
						Value string `json:"value"`
					} `json:"md5"`
					ID int64 `json:"id"`
				} `json:"dataFile"`
				Restricted bool `json:"restricted"`
			} `json:"files"`
		} `json:"latestVersion"`
	} `json:"data"`
}

type field struct {
	TypeName string `json:"typeName"`
	Value    any    `json:"value"`
}

func (a *Adapter) FetchMetadata(ctx context.Context, id model.Identifier) (provider.Metadata, error) {
	ds, err := a.fetchDataset(ctx, id)
	if err != nil {
		return provider.Metadata{}, err
	}

	var meta provider.Metadata
	geo := ds.Data.LatestVersion.MetadataBlocks.Geospatial.Fields

	if bbox, ok := bboxFromGeospatialFields(geo); ok {
		meta.Envelope = &model.Envelope{CRS: model.WGS84, BBox: &bbox}
	}

	citation := ds.Data.LatestVersion.MetadataBlocks.Citation.Fields
	if iv := temporalFromCitationFields(citation); iv != nil {
		meta.Temporal = iv
	}

	return meta, nil
}

// bboxFromGeospatialFields reads Dataverse's "geographicBoundingBox"
// compound field, whose nested sub-fields carry west/east/north/south
// longitude/latitude values as strings.
func bboxFromGeospatialFields(fields []field) (model.BoundingBox, bool) {
	for _, f := range fields {
		if f.TypeName != "geographicBoundingBox" {
			continue
		}
		entries, ok := f.Value.([]any)
		if !ok || len(entries) == 0 {
			continue
		}
		entry, ok := entries[0].(map[string]any)
		if !ok {
			continue
		}
		w, wok := subFieldFloat(entry, "westLongitude")
		e, eok := subFieldFloat(entry, "eastLongitude")
		n, nok := subFieldFloat(entry, "northLatitude")
		s, sok := subFieldFloat(entry, "southLatitude")
		if wok && eok && nok && sok {
			return model.BoundingBox{MinX: w, MinY: s, MaxX: e, MaxY: n}, true
		}
	}
	return model.BoundingBox{}, false
}

func subFieldFloat(entry map[string]any, name string) (float64, bool) {
	raw, ok := entry[name]
	if !ok {
		return 0, false
	}
	sub, ok := raw.(map[string]any)
	if !ok {
		return 0, false
	}
	v, ok := sub["value"]
	if !ok {
		return 0, false
	}
	switch n := v.(type) {
	case float64:
		return n, true
	case string:
		f, err := strconv.ParseFloat(n, 64)
		return f, err == nil
	default:
		return 0, false
	}
}

func temporalFromCitationFields(fields []field) *model.TimeInterval {
	var start, end string
	for _, f := range fields {
		switch f.TypeName {
		case "dateOfCollectionStart", "productionDate":
			start, _ = f.Value.(string)
		case "dateOfCollectionEnd":
			end, _ = f.Value.(string)
		}
	}
	if start == "" && end == "" {
		return nil
	}
	iv, err := temporal.ParseInterval(start, end)
	if err != nil || iv.IsEmpty() {
		return nil
	}
	return &iv
}

func (a *Adapter) EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error) {
	ds, err := a.fetchDataset(ctx, id)
	if err != nil {
		return nil, err
	}

	filterSet := make(map[string]struct{}, len(filter))
	for _, ext := range filter {
		filterSet[strings.ToLower(ext)] = struct{}{}
	}

	var out []model.FileDescriptor
	for _, f := range ds.Data.LatestVersion.Files {
		if f.Restricted {
			out = append(out, model.FileDescriptor{
				Name:          f.DataFile.Filename,
				GroupKey:      model.SiblingGroupKey(f.DataFile.Filename),
				Restricted:    true,
				RestrictedWhy: "dataverse marks this file restricted",
			})
			continue
		}

		ext := extOf(f.DataFile.Filename)
		if len(filterSet) > 0 {
			if _, ok := filterSet[ext]; !ok {
				continue
			}
		}

		size := f.DataFile.Filesize
		out = append(out, model.FileDescriptor{
			Name:         f.DataFile.Filename,
			URL:          fmt.Sprintf("%s/access/datafile/%d", a.apiBase, f.DataFile.ID),
			MimeHint:     f.DataFile.ContentType,
			ChecksumHint: f.DataFile.Checksum.Value,
			GroupKey:     model.SiblingGroupKey(f.DataFile.Filename),
			DeclaredSize: &size,
		})
	}
	return out, nil
}

func (a *Adapter) fetchDataset(ctx context.Context, id model.Identifier) (*datasetResponse, error) {
	persistentID := id.Canonical
	if !strings.HasPrefix(persistentID, "doi:") && strings.HasPrefix(persistentID, "10.") {
		persistentID = "doi:" + persistentID
	}

	var ds datasetResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParam("persistentId", persistentID).
		SetResult(&ds).
		Get(fmt.Sprintf("%s/datasets/:persistentId", a.apiBase))
	if err != nil {
		return nil, errors.Wrapf(err, "%s: fetch dataset %s", a.name, persistentID)
	}
	if resp.IsError() {
		return nil, errors.Errorf("%s: dataset %s returned status %d", a.name, persistentID, resp.StatusCode())
	}
	return &ds, nil
}

func hostOf(u string) string {
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	if i := strings.Index(u, "/"); i >= 0 {
		u = u[:i]
	}
	return u
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return strings.ToLower(name[i+1:])
	}
	return ""
}
