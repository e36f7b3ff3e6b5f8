package ckan

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btraven00/geoextent-core/internal/model"
)

func newTestAdapter(t *testing.T, handler http.Handler) (*Adapter, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New("Test CKAN", srv.URL), srv
}

func TestMatchesKnownHost(t *testing.T) {
	a := New("Senckenberg", "https://ckan.senckenberg.de/api", WithHosts("senckenberg.de"))
	id := model.Identifier{Canonical: "https://ckan.senckenberg.de/dataset/foo"}
	if !a.Matches(context.Background(), id) {
		t.Fatal("expected host match")
	}
}

func TestGenericFallbackOnlyMatchesActionPath(t *testing.T) {
	a := New("CKAN", "")
	matches := a.Matches(context.Background(), model.Identifier{Canonical: "https://example.org/api/3/action/package_show?id=x"})
	if !matches {
		t.Fatal("expected action-path match")
	}
	noMatch := a.Matches(context.Background(), model.Identifier{Canonical: "https://example.org/dataset/foo"})
	if noMatch {
		t.Fatal("generic fallback should not match a bare dataset path")
	}
}

func TestFetchMetadataSpatialFromGeoJSON(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/3/action/package_show", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.Write([]byte(`{"success":true,"result":{"extras":[
			{"key":"spatial","value":"{\"type\":\"Polygon\",\"coordinates\":[[[10,50],[12,50],[12,52],[10,52],[10,50]]]}"},
			{"key":"temporal_start","value":"2020-01-01"},
			{"key":"temporal_end","value":"2020-12-31"}
		],"resources":[]}}`))
	})
	a, _ := newTestAdapter(t, mux)

	meta, err := a.FetchMetadata(context.Background(), model.Identifier{Canonical: "x", DatasetKey: "ds1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Envelope == nil || meta.Envelope.BBox == nil {
		t.Fatal("expected bbox from geojson spatial extra")
	}
	if meta.Envelope.BBox.MinX != 10 || meta.Envelope.BBox.MaxX != 12 {
		t.Errorf("unexpected bbox %+v", meta.Envelope.BBox)
	}
	if meta.Temporal == nil {
		t.Fatal("expected temporal interval")
	}
}

func TestFetchMetadataUKStyleBbox(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/3/action/package_show", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"result":{"extras":[
			{"key":"bbox-north","value":"52.0"},
			{"key":"bbox-south","value":"50.0"},
			{"key":"bbox-east","value":"12.0"},
			{"key":"bbox-west","value":"10.0"}
		],"resources":[]}}`))
	})
	a, _ := newTestAdapter(t, mux)

	meta, err := a.FetchMetadata(context.Background(), model.Identifier{Canonical: "x", DatasetKey: "ds1"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Envelope == nil || meta.Envelope.BBox.MinY != 50.0 || meta.Envelope.BBox.MaxY != 52.0 {
		t.Fatalf("unexpected envelope %+v", meta.Envelope)
	}
}

func TestEnumerateFilesFiltersByFormat(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/3/action/package_show", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"success":true,"result":{"extras":[],"resources":[
			{"name":"data.csv","url":"https://x/data.csv","size":"1024","format":"csv"},
			{"name":"readme.txt","url":"https://x/readme.txt","size":"","format":"txt"}
		]}}`))
	})
	a, _ := newTestAdapter(t, mux)

	files, err := a.EnumerateFiles(context.Background(), model.Identifier{Canonical: "x", DatasetKey: "ds1"}, []string{"csv"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Name != "data.csv" {
		t.Fatalf("expected single filtered csv file, got %+v", files)
	}
	if files[0].DeclaredSize == nil || *files[0].DeclaredSize != 1024 {
		t.Errorf("expected parsed size 1024, got %+v", files[0].DeclaredSize)
	}
}

func TestPackageShowFailureSurfacesError(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/3/action/package_show", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})
	a, _ := newTestAdapter(t, mux)

	_, err := a.FetchMetadata(context.Background(), model.Identifier{Canonical: "x", DatasetKey: "missing"})
	if err == nil {
		t.Fatal("expected error on 404")
	}
}
