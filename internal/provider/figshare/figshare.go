// Package figshare adapts the teacher's
// pkg/downloaders/figshare.FigshareDownloader: the same
// clean-ID/functional-options/article-JSON shape, generalized from
// "download every file" to "enumerate files and extract a geographic
// extent from the article's custom fields and tags", and switched from
// net/http to resty to match the rest of the provider family.
package figshare

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/btraven00/geoextent-core/internal/model"
	"github.com/btraven00/geoextent-core/internal/provider"
	"github.com/btraven00/geoextent-core/internal/temporal"
)

var figshareIDRE = regexp.MustCompile(`figshare\.com/articles/[^/]+/(\d+)`)
var figshareDOIRE = regexp.MustCompile(`^10\.6084/m9\.figshare\.(\d+)`)

type Adapter struct {
	apiBase string
	client  *resty.Client
}

type Option func(*Adapter)

func New(opts ...Option) *Adapter {
	a := &Adapter{
		apiBase: "https://api.figshare.com/v2",
		client:  resty.New().SetTimeout(20 * time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func WithAPIBase(base string) Option {
	return func(a *Adapter) { a.apiBase = strings.TrimRight(base, "/") }
}

func (a *Adapter) FriendlyName() string { return "Figshare" }

func (a *Adapter) Matches(ctx context.Context, id model.Identifier) bool {
	return strings.Contains(id.Canonical, "figshare.com") || figshareDOIRE.MatchString(id.Canonical)
}

func (a *Adapter) SupportsMetadata() bool { return true }

type articleResponse struct {
	CustomFields []struct {
		Name  string `json:"name"`
		Value any    `json:"value"`
	} `json:"custom_fields"`
	TimelinePosted string `json:"timeline_posted_date"`
	Files          []struct {
		Name        string `json:"name"`
		Size        int64  `json:"size"`
		DownloadURL string `json:"download_url"`
		ComputedMD5 string `json:"computed_md5"`
	} `json:"files"`
}

func (a *Adapter) FetchMetadata(ctx context.Context, id model.Identifier) (provider.Metadata, error) {
	art, err := a.fetchArticle(ctx, id)
	if err != nil {
		return provider.Metadata{}, err
	}

	var meta provider.Metadata

	if bbox, ok := bboxFromCustomFields(art.CustomFields); ok {
		meta.Envelope = &model.Envelope{CRS: model.WGS84, BBox: &bbox}
	}

	if art.TimelinePosted != "" {
		if t, err := temporal.Parse(art.TimelinePosted); err == nil {
			meta.Temporal = &model.TimeInterval{Start: &t, End: &t}
		}
	}

	return meta, nil
}

// bboxFromCustomFields reads Figshare's free-text "Geographic coverage"
// custom field, formatted "west,south,east,north" by convention among
// institutional Figshare portals using this field.
func bboxFromCustomFields(fields []struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}) (model.BoundingBox, bool) {
	for _, f := range fields {
		if !strings.EqualFold(f.Name, "Geographic coverage") {
			continue
		}
		raw, ok := f.Value.(string)
		if !ok {
			continue
		}
		parts := strings.Split(raw, ",")
		if len(parts) != 4 {
			continue
		}
		vals := make([]float64, 4)
		ok = true
		for i, p := range parts {
			v, err := strconv.ParseFloat(strings.TrimSpace(p), 64)
			if err != nil {
				ok = false
				break
			}
			vals[i] = v
		}
		if ok {
			return model.BoundingBox{MinX: vals[0], MinY: vals[1], MaxX: vals[2], MaxY: vals[3]}, true
		}
	}
	return model.BoundingBox{}, false
}

func (a *Adapter) EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error) {
	art, err := a.fetchArticle(ctx, id)
	if err != nil {
		return nil, err
	}

	filterSet := make(map[string]struct{}, len(filter))
	for _, ext := range filter {
		filterSet[strings.ToLower(ext)] = struct{}{}
	}

	var out []model.FileDescriptor
	for _, f := range art.Files {
		ext := extOf(f.Name)
		if len(filterSet) > 0 {
			if _, ok := filterSet[ext]; !ok {
				continue
			}
		}
		size := f.Size
		out = append(out, model.FileDescriptor{
			Name:         f.Name,
			URL:          f.DownloadURL,
			ChecksumHint: f.ComputedMD5,
			GroupKey:     model.SiblingGroupKey(f.Name),
			DeclaredSize: &size,
		})
	}
	return out, nil
}

func (a *Adapter) fetchArticle(ctx context.Context, id model.Identifier) (*articleResponse, error) {
	articleID := id.DatasetKey
	if articleID == "" {
		if m := figshareIDRE.FindStringSubmatch(id.Canonical); len(m) == 2 {
			articleID = m[1]
		} else if m := figshareDOIRE.FindStringSubmatch(id.Canonical); len(m) == 2 {
			articleID = m[1]
		}
	}
	if articleID == "" {
		return nil, errors.Errorf("figshare: could not extract article id from %q", id.Canonical)
	}

	var art articleResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&art).
		Get(fmt.Sprintf("%s/articles/%s", a.apiBase, articleID))
	if err != nil {
		return nil, errors.Wrapf(err, "figshare: fetch article %s", articleID)
	}
	if resp.IsError() {
		return nil, errors.Errorf("figshare: article %s returned status %d", articleID, resp.StatusCode())
	}
	return &art, nil
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return strings.ToLower(name[i+1:])
	}
	return ""
}
