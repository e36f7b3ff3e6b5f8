// Package osf adapts the Open Science Framework's JSON:API v2: a node's
// date_created/date_modified attributes stand in for temporal coverage
// (OSF has no native geospatial metadata field, so only file enumeration
// and a coarse temporal interval are available -- FetchMetadata never
// returns a non-nil Envelope for OSF), and files are listed through the
// node's "files" relationship, paginated via JSON:API's "next" links.
package osf

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

// WithAPIBase overrides the default api.osf.io base, for pointing the
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
		apiBase: "https://api.osf.io/v2",
		client:  resty.New().SetTimeout(20 * time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) FriendlyName() string { return "OSF" }

func (a *Adapter) Matches(ctx context.Context, id model.Identifier) bool {
	return strings.Contains(id.Canonical, "osf.io")
}

func (a *Adapter) SupportsMetadata() bool { return true }

type nodeResponse struct {
	Data struct {
		Attributes struct {
			DateCreated  time.Time `json:"date_created"`
			DateModified time.Time `json:"date_modified"`
		} `json:"attributes"`
		Relationships struct {
			Files struct {
				Links struct {
					Related struct {
						Href string `json:"href"`
					} `json:"related"`
				} `json:"links"`
			} `json:"files"`
		} `json:"relationships"`
	} `json:"data"`
}

func (a *Adapter) FetchMetadata(ctx context.Context, id model.Identifier) (provider.Metadata, error) {
	node, err := a.fetchNode(ctx, id)
	if err != nil {
		return provider.Metadata{}, err
	}

	start := node.Data.Attributes.DateCreated
	end := node.Data.Attributes.DateModified
	if end.Before(start) {
		end = start
	}

	return provider.Metadata{Temporal: &model.TimeInterval{Start: &start, End: &end}}, nil
}

type filesResponse struct {
	Data []struct {
		Attributes struct {
			Name string `json:"name"`
			Size int64  `json:"size"`
			Kind string `json:"kind"`
		} `json:"attributes"`
		Links struct {
			Download string `json:"download"`
		} `json:"links"`
	} `json:"data"`
	Links struct {
		Next string `json:"next"`
	} `json:"links"`
}

func (a *Adapter) EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error) {
	node, err := a.fetchNode(ctx, id)
	if err != nil {
		return nil, err
	}

	filterSet := make(map[string]struct{}, len(filter))
	for _, ext := range filter {
		filterSet[strings.ToLower(ext)] = struct{}{}
	}

	var out []model.FileDescriptor
	nextURL := node.Data.Relationships.Files.Links.Related.Href

	for nextURL != "" {
		var page filesResponse
		resp, err := a.client.R().SetContext(ctx).SetResult(&page).Get(nextURL)
		if err != nil {
			return nil, errors.Wrapf(err, "osf: list files for %s", id.Canonical)
		}
		if resp.IsError() {
			return nil, errors.Errorf("osf: list files for %s returned status %d", id.Canonical, resp.StatusCode())
		}

		for _, f := range page.Data {
			if f.Attributes.Kind != "file" {
				continue
			}
			ext := extOf(f.Attributes.Name)
			if len(filterSet) > 0 {
				if _, ok := filterSet[ext]; !ok {
					continue
				}
			}
			size := f.Attributes.Size
			out = append(out, model.FileDescriptor{
				Name:         f.Attributes.Name,
				URL:          f.Links.Download,
				GroupKey:     model.SiblingGroupKey(f.Attributes.Name),
				DeclaredSize: &size,
			})
		}

		nextURL = page.Links.Next
		if ctx.Err() != nil {
			return out, ctx.Err()
		}
	}

	return out, nil
}

func (a *Adapter) fetchNode(ctx context.Context, id model.Identifier) (*nodeResponse, error) {
	nodeID := id.DatasetKey
	if nodeID == "" {
		nodeID = lastPathSegment(id.Canonical)
	}

	var node nodeResponse
	resp, err := a.client.R().
		SetContext(ctx).
		SetResult(&node).
		Get(a.apiBase + "/nodes/" + nodeID + "/")
	if err != nil {
		return nil, errors.Wrapf(err, "osf: fetch node %s", nodeID)
	}
	if resp.IsError() {
		return nil, errors.Errorf("osf: node %s returned status %d", nodeID, resp.StatusCode())
	}
	return &node, nil
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
