package dspace

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btraven00/geoextent-core/internal/model"
)

func TestMatchesHost(t *testing.T) {
	a := New("TU Dresden Opara", "https://opara.zih.tu-dresden.de/server/api")
	if !a.Matches(context.Background(), model.Identifier{Canonical: "https://opara.zih.tu-dresden.de/server/api/core/items/abc"}) {
		t.Fatal("expected host match")
	}
	if a.Matches(context.Background(), model.Identifier{Canonical: "https://example.org/x"}) {
		t.Fatal("should not match unrelated host")
	}
}

func TestFetchMetadataFromDCExtensionFields(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/core/items/abc", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uuid":"abc","metadata":{
			"local.spatial.boundingbox":[{"value":"10.0,50.0,12.0,52.0"}],
			"dc.coverage.temporal.start":[{"value":"2017-01-01"}],
			"dc.coverage.temporal.end":[{"value":"2017-12-31"}]
		}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	a := New("Opara", srv.URL)

	meta, err := a.FetchMetadata(context.Background(), model.Identifier{Canonical: "x", DatasetKey: "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Envelope == nil || meta.Envelope.BBox.MinX != 10.0 || meta.Envelope.BBox.MaxY != 52.0 {
		t.Fatalf("unexpected envelope %+v", meta.Envelope)
	}
	if meta.Temporal == nil {
		t.Fatal("expected temporal interval")
	}
}

func TestFetchMetadataFallsBackToIssuedDate(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/core/items/abc", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uuid":"abc","metadata":{"dc.date.issued":[{"value":"2015-03-01"}]}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	a := New("Opara", srv.URL)

	meta, err := a.FetchMetadata(context.Background(), model.Identifier{Canonical: "x", DatasetKey: "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Temporal == nil || meta.Temporal.Start == nil {
		t.Fatal("expected single-point interval from dc.date.issued fallback")
	}
}

func TestEnumerateFilesWalksBundlesAndBitstreams(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/core/items/abc", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"uuid":"abc","metadata":{}}`))
	})
	mux.HandleFunc("/core/items/abc/bundles", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"_embedded":{"bundles":[{"_embedded":{"bitstreams":[
			{"name":"data.csv","sizeBytes":500,"_links":{"content":{"href":"https://x/content/1"}}}
		]}}]}}`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	a := New("Opara", srv.URL)

	files, err := a.EnumerateFiles(context.Background(), model.Identifier{Canonical: "x", DatasetKey: "abc"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(files) != 1 || files[0].Name != "data.csv" {
		t.Fatalf("expected single bitstream descriptor, got %+v", files)
	}
}
