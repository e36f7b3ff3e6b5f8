// Package github is the catch-all adapter (spec.md §4.2 "the catch-all
// GitHub adapter is last"): any owner/repo URL or bare "owner/repo"
// identifier that no more specific adapter claimed falls through to here.
// GitHub repositories carry no native geospatial or temporal metadata
// field, so SupportsMetadata is false -- this adapter only enumerates the
// repository's default-branch tree as candidate files, leaving extent
// extraction entirely to the downloaded files' own content (the Format
// Probe, out of this core's scope).
package github

import (
	"context"
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/pkg/errors"

	"github.com/btraven00/geoextent-core/internal/model"
	"github.com/btraven00/geoextent-core/internal/provider"
)

var githubURLRE = regexp.MustCompile(`github\.com/([^/]+)/([^/]+?)(?:\.git|/.*)?$`)
var ownerRepoRE = regexp.MustCompile(`^[A-Za-z0-9_.-]+/[A-Za-z0-9_.-]+$`)

type Adapter struct {
	apiBase string
	client  *resty.Client
}

type Option func(*Adapter)

// WithAPIBase overrides the GitHub API base URL, e.g. for a GitHub
// Enterprise instance or a test double.
func WithAPIBase(base string) Option {
	return func(a *Adapter) { a.apiBase = strings.TrimRight(base, "/") }
}

// WithRestyClient overrides the HTTP client, e.g. to inject auth headers
// or a test double.
func WithRestyClient(c *resty.Client) Option {
	return func(a *Adapter) { a.client = c }
}

func New(opts ...Option) *Adapter {
	a := &Adapter{
		apiBase: "https://api.github.com",
		client:  resty.New().SetTimeout(20 * time.Second),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

func (a *Adapter) FriendlyName() string { return "GitHub" }

func (a *Adapter) Matches(ctx context.Context, id model.Identifier) bool {
	return strings.Contains(id.Canonical, "github.com") || ownerRepoRE.MatchString(id.Canonical)
}

// SupportsMetadata is false: GitHub has no dataset-level geospatial or
// temporal field (spec.md §4.6 "some providers don't support one or the
// other").
func (a *Adapter) SupportsMetadata() bool { return false }

func (a *Adapter) FetchMetadata(ctx context.Context, id model.Identifier) (provider.Metadata, error) {
	return provider.Metadata{}, nil
}

type repoResponse struct {
	DefaultBranch string `json:"default_branch"`
}

type treeResponse struct {
	Tree []struct {
		Path string `json:"path"`
		Type string `json:"type"`
		Size int64  `json:"size"`
		SHA  string `json:"sha"`
	} `json:"tree"`
	Truncated bool `json:"truncated"`
}

func (a *Adapter) EnumerateFiles(ctx context.Context, id model.Identifier, filter []string) ([]model.FileDescriptor, error) {
	owner, repo, err := ownerRepo(id.Canonical)
	if err != nil {
		return nil, err
	}

	var info repoResponse
	resp, err := a.client.R().SetContext(ctx).SetResult(&info).Get(fmt.Sprintf("%s/repos/%s/%s", a.apiBase, owner, repo))
	if err != nil {
		return nil, errors.Wrapf(err, "github: fetch repo %s/%s", owner, repo)
	}
	if resp.IsError() {
		return nil, errors.Errorf("github: repo %s/%s returned status %d", owner, repo, resp.StatusCode())
	}

	var tree treeResponse
	resp, err = a.client.R().
		SetContext(ctx).
		SetResult(&tree).
		Get(fmt.Sprintf("%s/repos/%s/%s/git/trees/%s?recursive=1", a.apiBase, owner, repo, info.DefaultBranch))
	if err != nil {
		return nil, errors.Wrapf(err, "github: fetch tree %s/%s@%s", owner, repo, info.DefaultBranch)
	}
	if resp.IsError() {
		return nil, errors.Errorf("github: tree %s/%s@%s returned status %d", owner, repo, info.DefaultBranch, resp.StatusCode())
	}

	filterSet := make(map[string]struct{}, len(filter))
	for _, ext := range filter {
		filterSet[strings.ToLower(ext)] = struct{}{}
	}

	var out []model.FileDescriptor
	for _, entry := range tree.Tree {
		if entry.Type != "blob" {
			continue
		}
		ext := extOf(entry.Path)
		if len(filterSet) > 0 {
			if _, ok := filterSet[ext]; !ok {
				continue
			}
		}
		size := entry.Size
		out = append(out, model.FileDescriptor{
			Name:         entry.Path,
			URL:          fmt.Sprintf("https://raw.githubusercontent.com/%s/%s/%s/%s", owner, repo, info.DefaultBranch, entry.Path),
			ChecksumHint: entry.SHA,
			GroupKey:     model.SiblingGroupKey(entry.Path),
			DeclaredSize: &size,
		})
	}
	return out, nil
}

func ownerRepo(canonical string) (owner, repo string, err error) {
	if m := githubURLRE.FindStringSubmatch(canonical); len(m) == 3 {
		return m[1], strings.TrimSuffix(m[2], ".git"), nil
	}
	if ownerRepoRE.MatchString(canonical) {
		parts := strings.SplitN(canonical, "/", 2)
		return parts[0], parts[1], nil
	}
	return "", "", errors.Errorf("github: could not parse owner/repo from %q", canonical)
}

func extOf(name string) string {
	if i := strings.LastIndex(name, "."); i >= 0 {
		return strings.ToLower(name[i+1:])
	}
	return ""
}
