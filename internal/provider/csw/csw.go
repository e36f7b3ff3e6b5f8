// Package csw is the CSW 2.0.2 metadata-only provider family (spec.md
// §5.1): BGR, BAW, MDI-DE, and GDI-DE all expose
// GetRecordById?outputSchema=...iso19139 endpoints returning ISO
// 19115/19139 XML records. This family never enumerates downloadable
// files -- metadata is the only strategy it supports.
package csw

import (
	"context"
	"encoding/xml"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/btraven00/geoextent-core/internal/model"
	"github.com/btraven00/geoextent-core/internal/provider"
)

type Adapter struct {
	name     string
	endpoint string // base CSW service URL, no query string
	hosts    []string
	client   *resty.Client
}

type Option func(*Adapter)

func WithHosts(hosts ...string) Option {
	return func(a *Adapter) { a.hosts = hosts }
}

func New(name, endpoint string, opts ...Option) *Adapter {
	a := &Adapter{
		name:     name,
		endpoint: strings.TrimRight(endpoint, "?"),
		client:   resty.New().SetTimeout(20 * time.Second),
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
	return strings.Contains(id.Canonical, hostOf(a.endpoint))
}

func (a *Adapter) SupportsMetadata() bool { return true }

// iso19139Record is a deliberately partial ISO 19139 metadata record --
// only the bounding-box and temporal-extent elements this adapter needs.
type iso19139Record struct {
	XMLName xml.Name `xml:"GetRecordByIdResponse"`
	MDMeta  struct {
		Identification struct {
			Extent struct {
				GeographicElement struct {
					BoundingBox struct {
						WestBoundLongitude  valueElem `xml:"westBoundLongitude"`
						EastBoundLongitude  valueElem `xml:"eastBoundLongitude"`
						SouthBoundLatitude  valueElem `xml:"southBoundLatitude"`
						NorthBoundLatitude  valueElem `xml:"northBoundLatitude"`
					} `xml:"EX_GeographicBoundingBox"`
				} `xml:"geographicElement"`
				TemporalElement struct {
					TimePeriod struct {
						BeginPosition string `xml:"beginPosition"`
						EndPosition   string `xml:"endPosition"`
					} `xml:"TimePeriod"`
				} `xml:"temporalElement"`
			} `xml:"EX_Extent"`
		} `xml:"identificationInfo>MD_DataIdentification"`
	} `xml:"MD_Metadata"`
}

type valueElem struct {
	Value string `xml:",chardata"`
}

func (v valueElem) Float() (float64, bool) {
	f, err := strconv.ParseFloat(strings.TrimSpace(v.Value), 64)
	return f, err == nil
}

func (a *Adapter) FetchMetadata(ctx context.Context, id model.Identifier) (provider.Metadata, error) {
	rec, err := a.getRecordByID(ctx, id)
	if err != nil {
		return provider.Metadata{}, err
	}

	var meta provider.Metadata
	bb := rec.MDMeta.Identification.Extent.GeographicElement.BoundingBox

	w, wok := bb.WestBoundLongitude.Float()
	e, eok := bb.EastBoundLongitude.Float()
	s, sok := bb.SouthBoundLatitude.Float()
	n, nok := bb.NorthBoundLatitude.Float()
	if wok && eok && sok && nok {
		bbox := model.BoundingBox{MinX: w, MinY: s, MaxX: e, MaxY: n}
		meta.Envelope = &model.Envelope{CRS: model.WGS84, BBox: &bbox}
	}

	period := rec.MDMeta.Identification.Extent.TemporalElement.TimePeriod
	var iv model.TimeInterval
	if t, err := parseISODate(period.BeginPosition); err == nil {
		iv.Start = &t
	}
	if t, err := parseISODate(period.EndPosition); err == nil {
		iv.End = &t
	}
	if !iv.IsEmpty() {
		meta.Temporal = &iv
	}

	return meta, nil
}

func parseISODate(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, errors.New("empty date")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02", "2006-01", "2006"} {
		if t, err := time.Parse(layout, s); err == nil {
			return t, nil
		}
	}
	return time.Time{}, errors.Errorf("unrecognized ISO19139 date %q", s)
}

// EnumerateFiles always returns empty: CSW 2.0.2 is metadata-only
// (spec.md §5.1).
func (a *Adapter) EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error) {
	return nil, nil
}

func (a *Adapter) getRecordByID(ctx context.Context, id model.Identifier) (*iso19139Record, error) {
	recordID := id.DatasetKey
	if recordID == "" {
		recordID = id.Canonical
	}

	var rec iso19139Record
	resp, err := a.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"service":      "CSW",
			"version":      "2.0.2",
			"request":      "GetRecordById",
			"id":           recordID,
			"outputSchema": "http://www.isotc211.org/2005/gmd",
		}).
		SetResult(&rec).
		Get(a.endpoint)
	if err != nil {
		return nil, errors.Wrapf(err, "%s: GetRecordById %s", a.name, recordID)
	}
	if resp.IsError() {
		return nil, errors.Errorf("%s: GetRecordById %s returned status %d", a.name, recordID, resp.StatusCode())
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
