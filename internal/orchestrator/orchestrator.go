// Package orchestrator is the Extraction Orchestrator (spec.md §4.8): the
// per-identifier state machine that ties the Normalizer, Registry, Budget
// Selector, Download Pool, Archive Expander, Format Probe, and Extent
// Merger together, plus the multi-identifier batch driver that runs them
// with per-identifier failure isolation.
//
// Grounded on the teacher's internal/checker.Checker (the thin
// orchestration layer cmd/root.go drives -- normalize, dispatch to a
// downloader, report) generalized from a single linear validate-then-report
// flow into an explicit state machine with a metadata/download/fallback
// branch and bounded recursion for adapters that hand back a landing page.
package orchestrator

import (
	"context"
	"os"

	"github.com/google/uuid"
	"github.com/pkg/errors"

	"github.com/btraven00/geoextent-core/internal/budget"
	"github.com/btraven00/geoextent-core/internal/config"
	"github.com/btraven00/geoextent-core/internal/envelope"
	"github.com/btraven00/geoextent-core/internal/errs"
	"github.com/btraven00/geoextent-core/internal/fetch"
	"github.com/btraven00/geoextent-core/internal/identifier"
	"github.com/btraven00/geoextent-core/internal/logging"
	"github.com/btraven00/geoextent-core/internal/model"
	"github.com/btraven00/geoextent-core/internal/probe"
	"github.com/btraven00/geoextent-core/internal/provider"
	"github.com/btraven00/geoextent-core/internal/registry"
)

// maxFollowDepth is spec.md §9's bounded-recursion cap for adapters that
// delegate to another provider via a landing page (DEIMS-SDR -> Zenodo).
const maxFollowDepth = 2

// Orchestrator drives extraction for one or many identifiers.
type Orchestrator struct {
	Registry *registry.Registry
	Probes   *probe.Registry
	Config   config.Config
}

// New constructs an Orchestrator.
func New(reg *registry.Registry, probes *probe.Registry, cfg config.Config) *Orchestrator {
	return &Orchestrator{Registry: reg, Probes: probes, Config: cfg}
}

// RunBatch processes every raw identifier sequentially, isolating failures
// so one bad identifier never aborts the rest (spec.md §4.8 "multi-identifier
// batch processing").
func (o *Orchestrator) RunBatch(ctx context.Context, rawIdentifiers []string) model.BatchResult {
	var batch model.BatchResult
	batch.Total = len(rawIdentifiers)

	var envelopes []*model.Envelope

	for _, raw := range rawIdentifiers {
		res := o.RunOne(ctx, raw)
		batch.Results = append(batch.Results, res)
		if res.Err == nil {
			batch.Successful++
			if res.Envelope != nil {
				envelopes = append(envelopes, res.Envelope)
			}
		} else {
			batch.Failed++
		}
	}

	if len(envelopes) > 0 {
		batch.MergedEnvelope = envelope.Merge(o.Config.UseConvexHull, envelopes...)
	}

	return batch
}

// RunOne runs the full state machine for a single raw identifier, applying
// the configured run deadline, and guarantees the identifier's scratch
// directory is removed on every exit path, including cancellation
// (spec.md §4.8 "temp-directory lifecycle").
func (o *Orchestrator) RunOne(ctx context.Context, raw string) model.ExtractionResult {
	runID := uuid.NewString()
	log := logging.ForRun(runID)

	runCtx := ctx
	var cancel context.CancelFunc
	if o.Config.RunDeadline > 0 {
		runCtx, cancel = context.WithTimeout(ctx, o.Config.RunDeadline)
		defer cancel()
	}

	id, err := identifier.Normalize(raw, o.Registry)
	if err != nil {
		return model.ExtractionResult{Identifier: model.Identifier{Raw: raw}, Err: err}
	}

	tempDir, err := os.MkdirTemp("", "geoextent-"+runID+"-*")
	if err != nil {
		return model.ExtractionResult{Identifier: id, Err: errors.Wrap(err, "create scratch directory")}
	}
	defer func() {
		if rmErr := os.RemoveAll(tempDir); rmErr != nil {
			log.Warn().Err(rmErr).Str("dir", tempDir).Msg("failed to clean up scratch directory")
		}
	}()

	result := o.runState(runCtx, id, tempDir, 0, newVisitedSet())
	if runCtx.Err() != nil && result.Err == nil {
		result.TimedOut = true
	}
	return result
}

// visitedSet breaks cycles in the follow_external chain (spec.md §9
// "Cyclic references"), keyed on (provider, dataset_key) plus the canonical
// form, which tells datasets apart while Normalize leaves DatasetKey empty.
type visitedSet struct {
	seen map[string]struct{}
}

func newVisitedSet() *visitedSet {
	return &visitedSet{seen: make(map[string]struct{})}
}

func (v *visitedSet) visit(providerName string, id model.Identifier) bool {
	key := providerName + "\x00" + id.Key() + "\x00" + id.Canonical
	if _, ok := v.seen[key]; ok {
		return false
	}
	v.seen[key] = struct{}{}
	return true
}

// runState implements the START -> METADATA/DOWNLOAD/METADATA_FALLBACK
// state machine (spec.md §4.8) for one resolved identifier, recursing into
// a followed landing page up to maxFollowDepth.
func (o *Orchestrator) runState(ctx context.Context, id model.Identifier, tempDir string, depth int, visited *visitedSet) model.ExtractionResult {
	if ctx.Err() != nil {
		return model.ExtractionResult{Identifier: id, Err: ctx.Err(), TimedOut: true}
	}

	adapter, ok := o.Registry.Resolve(ctx, id)
	if !ok {
		return model.ExtractionResult{Identifier: id, Err: errs.New(errs.KindUnrecognizedID, "", nil, map[string]any{"input": id.Raw})}
	}

	if !visited.visit(adapter.FriendlyName(), id) {
		return model.ExtractionResult{
			Identifier: id,
			Provider:   adapter.FriendlyName(),
			Err:        errs.Newf(errs.KindProviderPermanent, adapter.FriendlyName(), "cyclic follow_external reference detected for %s", id.Key()),
		}
	}

	switch o.Config.Strategy {
	case config.StrategyMetadataOnly:
		return o.runMetadata(ctx, adapter, id, tempDir, depth, visited)
	case config.StrategyDownloadOnly:
		return o.runDownload(ctx, adapter, id, tempDir)
	case config.StrategyMetadataFirst:
		res := o.runMetadata(ctx, adapter, id, tempDir, depth, visited)
		if res.Err == nil && res.Envelope != nil {
			return res
		}
		return o.runDownload(ctx, adapter, id, tempDir)
	default: // StrategyAuto
		dl := o.runDownload(ctx, adapter, id, tempDir)
		empty := dl.Err != nil || (dl.Envelope == nil && dl.Temporal == nil)
		if empty && o.Config.MetadataFallbackEnabled && adapter.SupportsMetadata() {
			res := o.runMetadata(ctx, adapter, id, tempDir, depth, visited)
			if res.Err == nil && (res.Envelope != nil || res.Temporal != nil) {
				res.StrategyUsed = model.StrategyMetadataFallback
				return res
			}
		}
		return dl
	}
}

func (o *Orchestrator) runMetadata(ctx context.Context, adapter provider.Adapter, id model.Identifier, tempDir string, depth int, visited *visitedSet) model.ExtractionResult {
	if !adapter.SupportsMetadata() {
		return model.ExtractionResult{Identifier: id, Provider: adapter.FriendlyName(), Err: errs.New(errs.KindEmptyResult, adapter.FriendlyName(), nil, nil)}
	}

	meta, err := adapter.FetchMetadata(ctx, id)
	if err != nil {
		return model.ExtractionResult{Identifier: id, Provider: adapter.FriendlyName(), Err: err}
	}

	if meta.LandingPage != "" && o.Config.FollowExternalMetadataLinks && depth < maxFollowDepth {
		followed, err := identifier.Normalize(meta.LandingPage, o.Registry)
		if err == nil {
			return o.runState(ctx, followed, tempDir, depth+1, visited)
		}
	}

	if meta.Envelope != nil {
		if verr := envelope.Validate(meta.Envelope, envelope.ValidationOptions{AssumeWGS84ForUngeoreferenced: o.Config.AssumeWGS84ForUngeoreferenced}); verr != nil {
			return model.ExtractionResult{Identifier: id, Provider: adapter.FriendlyName(), Err: verr}
		}
	}

	return model.ExtractionResult{
		Identifier:   id,
		Envelope:     meta.Envelope,
		Temporal:     meta.Temporal,
		StrategyUsed: model.StrategyMetadata,
		Provider:     adapter.FriendlyName(),
	}
}

func (o *Orchestrator) runDownload(ctx context.Context, adapter provider.Adapter, id model.Identifier, tempDir string) model.ExtractionResult {
	filter := sortedKeys(o.Config.ExtraGeospatialExtensionSet())

	descriptors, err := adapter.EnumerateFiles(ctx, id, nil)
	if err != nil {
		return model.ExtractionResult{Identifier: id, Provider: adapter.FriendlyName(), Err: err}
	}
	if len(descriptors) == 0 {
		return model.ExtractionResult{Identifier: id, Provider: adapter.FriendlyName(), Err: errs.New(errs.KindEmptyResult, adapter.FriendlyName(), nil, nil)}
	}

	selection, err := budget.Select(descriptors, budget.Options{
		Limit:           o.Config.MaxDownloadSize,
		Method:          budget.Method(o.Config.SelectionMethod),
		Seed:            o.Config.SelectionSeed,
		GeospatialOnly:  o.Config.GeospatialOnly,
		ExtraExtensions: toSet(filter),
		SoftLimit:       o.Config.DownloadSizeSoftLimit,
		Provider:        adapter.FriendlyName(),
	})
	if err != nil {
		return model.ExtractionResult{Identifier: id, Provider: adapter.FriendlyName(), Err: err}
	}

	pool := fetch.New(fetch.Options{Parallelism: o.Config.Parallelism, TempDir: tempDir, MaxTotalBytes: o.Config.MaxDownloadSize})
	fileResults, err := pool.Run(ctx, selection.Selected, nil)
	if err != nil {
		return model.ExtractionResult{Identifier: id, Provider: adapter.FriendlyName(), Err: err, Warnings: selection.Warnings}
	}

	var details []model.FileExtent
	var envelopes []*model.Envelope
	var intervals []*model.TimeInterval

	for _, fr := range fileResults {
		if fr.Status != fetch.StatusCompleted {
			details = append(details, model.FileExtent{Name: fr.Descriptor.Name, Err: errors.New(fr.Reason)})
			continue
		}
		for _, path := range fr.LocalPaths {
			if ctx.Err() != nil {
				break
			}
			dec, ok := o.Probes.Find(path)
			if !ok {
				continue
			}
			env, iv, err := dec.Decode(ctx, path, o.Config.AssumeWGS84ForUngeoreferenced)
			details = append(details, model.FileExtent{Name: fr.Descriptor.Name, Envelope: env, Temporal: iv, Err: err})
			if err == nil {
				if env != nil {
					envelopes = append(envelopes, env)
				}
				if iv != nil {
					intervals = append(intervals, iv)
				}
			}
		}
	}

	if len(envelopes) == 0 && len(intervals) == 0 {
		return model.ExtractionResult{
			Identifier:     id,
			Provider:       adapter.FriendlyName(),
			Err:            errs.New(errs.KindEmptyResult, adapter.FriendlyName(), nil, nil),
			PerFileDetails: details,
			Warnings:       selection.Warnings,
		}
	}

	merged := envelope.Merge(o.Config.UseConvexHull, envelopes...)
	mergedTemporal := envelope.MergeTemporal(intervals...)

	if merged != nil {
		if verr := envelope.Validate(merged, envelope.ValidationOptions{AssumeWGS84ForUngeoreferenced: o.Config.AssumeWGS84ForUngeoreferenced}); verr != nil {
			return model.ExtractionResult{Identifier: id, Provider: adapter.FriendlyName(), Err: verr, PerFileDetails: details, Warnings: selection.Warnings}
		}
	}

	return model.ExtractionResult{
		Identifier:     id,
		Envelope:       merged,
		Temporal:       mergedTemporal,
		StrategyUsed:   model.StrategyDownload,
		Provider:       adapter.FriendlyName(),
		PerFileDetails: details,
		Warnings:       selection.Warnings,
	}
}

func sortedKeys(set map[string]struct{}) []string {
	out := make([]string, 0, len(set))
	for k := range set {
		out = append(out, k)
	}
	return out
}

func toSet(keys []string) map[string]struct{} {
	set := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}
