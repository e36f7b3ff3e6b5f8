package orchestrator

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/btraven00/geoextent-core/internal/config"
	"github.com/btraven00/geoextent-core/internal/errs"
	"github.com/btraven00/geoextent-core/internal/model"
	"github.com/btraven00/geoextent-core/internal/probe"
	"github.com/btraven00/geoextent-core/internal/provider"
	"github.com/btraven00/geoextent-core/internal/registry"
)

// fixedDecoder is a probe.Decoder double that always claims a path and
// returns a fixed envelope, so download-path tests can exercise a decoded
// result without a real format reader.
type fixedDecoder struct{ env *model.Envelope }

func (f fixedDecoder) CanDecode(string) bool { return true }
func (f fixedDecoder) Decode(context.Context, string, bool) (*model.Envelope, *model.TimeInterval, error) {
	return f.env, nil, nil
}

// stubAdapter is a minimal provider.Adapter double whose behavior is
// entirely configured by its fields, so state-machine branches can be
// exercised without a network round trip.
type stubAdapter struct {
	name            string
	matches         bool
	supportsMeta    bool
	metadata        provider.Metadata
	metadataErr     error
	descriptors     []model.FileDescriptor
	enumerateErr    error
}

func (s *stubAdapter) Matches(context.Context, model.Identifier) bool { return s.matches }
func (s *stubAdapter) SupportsMetadata() bool                         { return s.supportsMeta }
func (s *stubAdapter) FetchMetadata(context.Context, model.Identifier) (provider.Metadata, error) {
	return s.metadata, s.metadataErr
}
func (s *stubAdapter) EnumerateFiles(context.Context, model.Identifier, []string) ([]model.FileDescriptor, error) {
	return s.descriptors, s.enumerateErr
}
func (s *stubAdapter) FriendlyName() string { return s.name }

func bbox(minX, minY, maxX, maxY float64) *model.Envelope {
	return &model.Envelope{CRS: model.WGS84, BBox: &model.BoundingBox{MinX: minX, MinY: minY, MaxX: maxX, MaxY: maxY}}
}

func newOrchestrator(t *testing.T, adapter provider.Adapter, cfg config.Config) *Orchestrator {
	t.Helper()
	reg := registry.New([]provider.Adapter{adapter})
	return New(reg, probe.NewRegistry(), cfg)
}

func TestRunOneUnrecognizedIdentifier(t *testing.T) {
	adapter := &stubAdapter{name: "Zenodo", matches: false}
	o := newOrchestrator(t, adapter, config.Default())

	res := o.RunOne(context.Background(), "!!!not-an-id???")
	require.Error(t, res.Err)
	assert.True(t, errs.Is(res.Err, errs.KindUnrecognizedID))
}

func TestRunOneMetadataStrategySucceeds(t *testing.T) {
	adapter := &stubAdapter{
		name:         "Zenodo",
		matches:      true,
		supportsMeta: true,
		metadata:     provider.Metadata{Envelope: bbox(-10, -10, 10, 10)},
	}
	cfg := config.Default()
	cfg.Strategy = config.StrategyMetadataOnly
	o := newOrchestrator(t, adapter, cfg)

	res := o.RunOne(context.Background(), "10.5281/zenodo.1234")
	require.NoError(t, res.Err)
	require.NotNil(t, res.Envelope)
	assert.Equal(t, model.StrategyMetadata, res.StrategyUsed)
	assert.Equal(t, "Zenodo", res.Provider)
}

func TestRunOneMetadataOnlyRejectsInvalidEnvelope(t *testing.T) {
	adapter := &stubAdapter{
		name:         "Zenodo",
		matches:      true,
		supportsMeta: true,
		metadata:     provider.Metadata{Envelope: &model.Envelope{CRS: model.WGS84, BBox: &model.BoundingBox{}}},
	}
	cfg := config.Default()
	cfg.Strategy = config.StrategyMetadataOnly
	o := newOrchestrator(t, adapter, cfg)

	res := o.RunOne(context.Background(), "10.5281/zenodo.1234")
	assert.Error(t, res.Err)
}

func TestRunOneAutoAttemptsDownloadWhenMetadataEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("1,2,3"))
	}))
	defer srv.Close()

	size := int64(5)
	adapter := &stubAdapter{
		name:         "Zenodo",
		matches:      true,
		supportsMeta: true,
		metadata:     provider.Metadata{}, // no envelope, no temporal
		descriptors:  []model.FileDescriptor{{Name: "data.csv", URL: srv.URL, DeclaredSize: &size}},
	}
	cfg := config.Default()
	o := newOrchestrator(t, adapter, cfg)

	res := o.RunOne(context.Background(), "10.5281/zenodo.1234")
	// No decoder is registered, so the download path itself will find
	// nothing decodable -- but it must have been attempted (not short
	// circuited on the empty metadata), surfacing an empty_result error
	// rather than silently succeeding with a metadata strategy.
	require.Error(t, res.Err)
	assert.True(t, errs.Is(res.Err, errs.KindEmptyResult))
}

func TestRunOneDownloadOnlyStrategySkipsMetadata(t *testing.T) {
	adapter := &stubAdapter{
		name:         "Zenodo",
		matches:      true,
		supportsMeta: true,
		metadata:     provider.Metadata{Envelope: bbox(-1, -1, 1, 1)},
		descriptors:  nil, // empty enumeration
	}
	cfg := config.Default()
	cfg.Strategy = config.StrategyDownloadOnly
	o := newOrchestrator(t, adapter, cfg)

	res := o.RunOne(context.Background(), "10.5281/zenodo.1234")
	require.Error(t, res.Err)
	assert.True(t, errs.Is(res.Err, errs.KindEmptyResult))
}

func TestRunOneMetadataFirstFallsBackOnError(t *testing.T) {
	adapter := &stubAdapter{
		name:         "Zenodo",
		matches:      true,
		supportsMeta: true,
		metadataErr:  errs.New(errs.KindProviderTransient, "Zenodo", nil, nil),
		descriptors:  nil,
	}
	cfg := config.Default()
	cfg.Strategy = config.StrategyMetadataFirst
	o := newOrchestrator(t, adapter, cfg)

	res := o.RunOne(context.Background(), "10.5281/zenodo.1234")
	// metadata failed, so it must have fallen through to download, which
	// itself fails on an empty enumeration -- not the original metadata error.
	require.Error(t, res.Err)
	assert.True(t, errs.Is(res.Err, errs.KindEmptyResult))
}

func TestRunBatchIsolatesFailures(t *testing.T) {
	good := &stubAdapter{name: "Good", matches: true, supportsMeta: true, metadata: provider.Metadata{Envelope: bbox(0, 0, 1, 1)}}
	reg := registry.New([]provider.Adapter{good})
	cfg := config.Default()
	cfg.Strategy = config.StrategyMetadataOnly
	o := New(reg, probe.NewRegistry(), cfg)

	batch := o.RunBatch(context.Background(), []string{"10.5281/zenodo.1", "!!!garbage!!!"})

	assert.Equal(t, 2, batch.Total)
	assert.Equal(t, 1, batch.Successful)
	assert.Equal(t, 1, batch.Failed)
	require.NotNil(t, batch.MergedEnvelope)
}

func TestRunOneAutoPrefersDownloadOverMetadata(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte("dummy file contents"))
	}))
	defer srv.Close()

	size := int64(len("dummy file contents"))
	downloadEnvelope := bbox(10, 10, 20, 20)
	adapter := &stubAdapter{
		name:         "Zenodo",
		matches:      true,
		supportsMeta: true,
		// Metadata alone would already satisfy the empty-result check, but
		// spec.md §4.8's auto branch must still attempt DOWNLOAD first.
		metadata:    provider.Metadata{Envelope: bbox(-1, -1, 1, 1)},
		descriptors: []model.FileDescriptor{{Name: "data.csv", URL: srv.URL, DeclaredSize: &size}},
	}
	cfg := config.Default() // Strategy == auto by default

	reg := registry.New([]provider.Adapter{adapter})
	o := New(reg, probe.NewRegistry(fixedDecoder{env: downloadEnvelope}), cfg)

	res := o.RunOne(context.Background(), "10.5281/zenodo.1234")
	require.NoError(t, res.Err)
	require.NotNil(t, res.Envelope)
	assert.Equal(t, model.StrategyDownload, res.StrategyUsed)
	assert.Equal(t, *downloadEnvelope.BBox, *res.Envelope.BBox)
}

func TestRunOneAutoFallsBackToMetadataWhenDownloadEmpty(t *testing.T) {
	adapter := &stubAdapter{
		name:         "GEO Knowledge Hub",
		matches:      true,
		supportsMeta: true,
		metadata:     provider.Metadata{Envelope: bbox(-1, -1, 1, 1)},
		descriptors:  nil, // enumerate_files reports no files
	}
	cfg := config.Default() // Strategy == auto by default
	o := newOrchestrator(t, adapter, cfg)

	res := o.RunOne(context.Background(), "10.5281/zenodo.1234")
	require.NoError(t, res.Err)
	require.NotNil(t, res.Envelope)
	assert.Equal(t, model.StrategyMetadataFallback, res.StrategyUsed)
}

func TestRunOneCyclicFollowExternalIsBounded(t *testing.T) {
	// An adapter that always hands back its own landing page would recurse
	// forever without the visited-set cycle guard.
	adapter := &stubAdapter{
		name:         "DEIMS-SDR",
		matches:      true,
		supportsMeta: true,
		metadata:     provider.Metadata{LandingPage: "10.5281/zenodo.9999"},
	}

	cfg := config.Default()
	cfg.Strategy = config.StrategyMetadataOnly
	reg := registry.New([]provider.Adapter{adapter})
	o := New(reg, probe.NewRegistry(), cfg)

	res := o.RunOne(context.Background(), "10.5281/zenodo.9999")
	require.Error(t, res.Err)
	assert.True(t, errs.Is(res.Err, errs.KindProviderPermanent))
}
