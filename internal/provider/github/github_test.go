package github

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btraven00/geoextent-core/internal/model"
)

func TestMatchesGithubURL(t *testing.T) {
	a := New()
	if !a.Matches(context.Background(), model.Identifier{Canonical: "https://github.com/acme/dataset"}) {
		t.Error("expected a match on a github.com URL")
	}
}

func TestMatchesBareOwnerRepo(t *testing.T) {
	a := New()
	if !a.Matches(context.Background(), model.Identifier{Canonical: "acme/dataset"}) {
		t.Error("expected a match on a bare owner/repo handle")
	}
}

func TestMatchesRejectsUnrelatedDOI(t *testing.T) {
	a := New()
	if a.Matches(context.Background(), model.Identifier{Canonical: "10.5281/zenodo.1234"}) {
		t.Error("expected no match on a DOI")
	}
}

func TestSupportsMetadataIsFalse(t *testing.T) {
	a := New()
	if a.SupportsMetadata() {
		t.Error("GitHub adapter must not claim metadata support")
	}
	meta, err := a.FetchMetadata(context.Background(), model.Identifier{Canonical: "acme/dataset"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Envelope != nil || meta.Temporal != nil {
		t.Errorf("expected empty metadata, got %+v", meta)
	}
}

func TestEnumerateFilesBuildsRawURLs(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/dataset", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"default_branch": "main"}`))
	})
	mux.HandleFunc("/repos/acme/dataset/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tree": [
			{"path": "data/a.geojson", "type": "blob", "size": 10, "sha": "abc"},
			{"path": "README.md", "type": "blob", "size": 5, "sha": "def"},
			{"path": "data", "type": "tree", "size": 0, "sha": "ghi"}
		], "truncated": false}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := New(WithAPIBase(srv.URL))

	files, err := a.EnumerateFiles(context.Background(), model.Identifier{Canonical: "acme/dataset"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 2 {
		t.Fatalf("expected 2 blob entries (dirs excluded), got %+v", files)
	}
	want := "https://raw.githubusercontent.com/acme/dataset/main/data/a.geojson"
	if files[0].URL != want {
		t.Errorf("URL = %q, want %q", files[0].URL, want)
	}
}

func TestEnumerateFilesAppliesExtensionFilter(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/repos/acme/dataset", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"default_branch": "main"}`))
	})
	mux.HandleFunc("/repos/acme/dataset/git/trees/main", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"tree": [
			{"path": "a.geojson", "type": "blob", "size": 10, "sha": "abc"},
			{"path": "README.md", "type": "blob", "size": 5, "sha": "def"}
		]}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	a := New(WithAPIBase(srv.URL))
	files, err := a.EnumerateFiles(context.Background(), model.Identifier{Canonical: "acme/dataset"}, []string{"geojson"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Name != "a.geojson" {
		t.Fatalf("unexpected files: %+v", files)
	}
}

func TestOwnerRepoParsing(t *testing.T) {
	cases := []struct {
		in, owner, repo string
	}{
		{"https://github.com/acme/dataset", "acme", "dataset"},
		{"https://github.com/acme/dataset.git", "acme", "dataset"},
		{"https://github.com/acme/dataset/tree/main", "acme", "dataset"},
		{"acme/dataset", "acme", "dataset"},
	}
	for _, tc := range cases {
		owner, repo, err := ownerRepo(tc.in)
		if err != nil {
			t.Errorf("ownerRepo(%q) error: %v", tc.in, err)
			continue
		}
		if owner != tc.owner || repo != tc.repo {
			t.Errorf("ownerRepo(%q) = (%q, %q), want (%q, %q)", tc.in, owner, repo, tc.owner, tc.repo)
		}
	}
}
