package csw

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/btraven00/geoextent-core/internal/model"
)

func TestMatchesKnownHost(t *testing.T) {
	a := New("BGR", "https://www.bgr.bund.de/geonetwork/srv/eng/csw", WithHosts("bgr.bund.de"))
	id := model.Identifier{Canonical: "https://www.bgr.bund.de/geonetwork/srv/eng/csw?request=GetRecordById&id=abc"}
	if !a.Matches(context.Background(), id) {
		t.Fatal("expected host match")
	}
	if a.Matches(context.Background(), model.Identifier{Canonical: "https://other.example/x"}) {
		t.Fatal("should not match unrelated host")
	}
}

func TestFetchMetadataParsesISO19139(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/csw", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/xml")
		w.Write([]byte(`<GetRecordByIdResponse>
			<MD_Metadata>
				<identificationInfo>
					<MD_DataIdentification>
						<EX_Extent>
							<geographicElement>
								<EX_GeographicBoundingBox>
									<westBoundLongitude>10.0</westBoundLongitude>
									<eastBoundLongitude>12.0</eastBoundLongitude>
									<southBoundLatitude>50.0</southBoundLatitude>
									<northBoundLatitude>52.0</northBoundLatitude>
								</EX_GeographicBoundingBox>
							</geographicElement>
							<temporalElement>
								<TimePeriod>
									<beginPosition>2019-01-01</beginPosition>
									<endPosition>2019-12-31</endPosition>
								</TimePeriod>
							</temporalElement>
						</EX_Extent>
					</MD_DataIdentification>
				</identificationInfo>
			</MD_Metadata>
		</GetRecordByIdResponse>`))
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	a := New("BGR", srv.URL+"/csw")

	meta, err := a.FetchMetadata(context.Background(), model.Identifier{Canonical: "x", DatasetKey: "abc"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if meta.Envelope == nil || meta.Envelope.BBox.MinX != 10.0 || meta.Envelope.BBox.MaxY != 52.0 {
		t.Fatalf("unexpected envelope: %+v", meta.Envelope)
	}
	if meta.Temporal == nil || meta.Temporal.Start == nil || meta.Temporal.End == nil {
		t.Fatal("expected temporal interval")
	}
}

func TestEnumerateFilesAlwaysEmpty(t *testing.T) {
	a := New("BGR", "https://example.org/csw")
	files, err := a.EnumerateFiles(context.Background(), model.Identifier{Canonical: "x"}, nil)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if files != nil {
		t.Fatalf("expected nil, metadata-only family returns no files, got %+v", files)
	}
}

func TestGetRecordByIDErrorStatus(t *testing.T) {
	mux := http.NewServeMux()
	mux.HandleFunc("/csw", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()
	a := New("BGR", srv.URL+"/csw")

	_, err := a.FetchMetadata(context.Background(), model.Identifier{Canonical: "x", DatasetKey: "abc"})
	if err == nil {
		t.Fatal("expected error on 500")
	}
}
