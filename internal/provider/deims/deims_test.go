package deims

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btraven00/geoextent-core/internal/model"
)

func TestMatchesDeimsHost(t *testing.T) {
	a := New()
	if !a.Matches(context.Background(), model.Identifier{Canonical: "https://deims.org/abc-123"}) {
		t.Fatal("expected deims.org match")
	}
	if a.Matches(context.Background(), model.Identifier{Canonical: "https://other.org/abc"}) {
		t.Fatal("should not match unrelated host")
	}
}

func TestFollowsExternalIsTrue(t *testing.T) {
	if !New().FollowsExternal() {
		t.Fatal("deims adapter must report FollowsExternal, since its metadata can point at another provider")
	}
}

func TestFetchMetadataBoundaryAndLandingPage(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/sites/abc-123", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"attributes":{
			"geography":{"boundaries":{"bbox":[10.0,50.0,12.0,52.0]}},
			"onlineDistribution":{"dataset":{"url":"https://zenodo.org/record/12345"}}
		}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	a := New(WithAPIBase(srv.URL))

	meta, err := a.FetchMetadata(context.Background(), model.Identifier{Canonical: "https://deims.org/abc-123", DatasetKey: "abc-123"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Envelope == nil || meta.Envelope.BBox.MinX != 10.0 {
		t.Fatalf("unexpected envelope %+v", meta.Envelope)
	}
	if meta.LandingPage != "https://zenodo.org/record/12345" {
		t.Fatalf("expected landing page to be surfaced, got %q", meta.LandingPage)
	}
}

func TestEnumerateFilesAlwaysEmpty(t *testing.T) {
	a := New()
	files, err := a.EnumerateFiles(context.Background(), model.Identifier{Canonical: "https://deims.org/abc"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files != nil {
		t.Fatalf("expected nil, site records aren't file containers, got %+v", files)
	}
}

func TestFetchSiteFallsBackToLastPathSegment(t *testing.T) {
	var gotPath string
	mux := http.NewServeMux()
	mux.HandleFunc("/sites/xyz", func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		w.Write([]byte(`{"attributes":{}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	a := New(WithAPIBase(srv.URL))

	_, err := a.FetchMetadata(context.Background(), model.Identifier{Canonical: "https://deims.org/xyz"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if gotPath != "/sites/xyz" {
		t.Errorf("expected fallback to last path segment, got %q", gotPath)
	}
}
