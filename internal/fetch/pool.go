// Package fetch is the Download Pool (spec.md §4.4): a bounded-concurrency
// fetcher that streams selected descriptors to a scoped temporary
// directory, retries transient failures with backoff, invokes the Archive
// Expander on each completed file, and respects a single cooperative
// cancellation signal checked between chunks and between files.
//
// Grounded on the teacher's internal/extractor.WorkerPool (a
// channel-and-waitgroup worker pool for parallel PDF extraction), but
// rebuilt on github.com/sourcegraph/conc's structured-concurrency pool
// (also in the teacher's go.mod, unused by the sampled teacher files) --
// conc's pool.WithMaxGoroutines already gives bounded concurrency and
// panics-don't-leak semantics that the teacher's hand-rolled channels would
// otherwise have to reimplement.
package fetch

import (
	"context"
	"io"
	"math"
	"math/rand"
	"net/http"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sourcegraph/conc/pool"

	"github.com/btraven00/geoextent-core/internal/archive"
	"github.com/btraven00/geoextent-core/internal/errs"
	"github.com/btraven00/geoextent-core/internal/logging"
	"github.com/btraven00/geoextent-core/internal/model"
)

const (
	defaultChunkSize = 1 << 20 // 1 MiB, spec.md §4.4
	maxAttempts      = 3
	baseBackoff      = 200 * time.Millisecond
)

var errUnsupportedPlatform = errors.New("free disk space check unsupported on this platform")

// Status is the terminal state of one file fetch.
type Status string

const (
	StatusCompleted Status = "completed"
	StatusSkipped   Status = "skipped"
	StatusFailed    Status = "failed"
)

// FileResult is the outcome of fetching one descriptor.
type FileResult struct {
	Descriptor  model.FileDescriptor
	Status      Status
	LocalPaths  []string // after archive expansion, may be >1
	Reason      string
	BytesWritten int64
}

// Options configures a Pool.
type Options struct {
	Parallelism   int
	TempDir       string
	MaxTotalBytes int64 // 0 == unbounded; backpressure cue (spec.md §4.4)
	ReserveBytes  int64 // stop scheduling new work below this free-space floor
	Client        *http.Client
}

// Pool is the bounded-concurrency fetcher (spec.md §4.4).
type Pool struct {
	opts   Options
	client *http.Client
}

// New constructs a Pool. Parallelism defaults to 4 (spec.md §6.1).
func New(opts Options) *Pool {
	if opts.Parallelism <= 0 {
		opts.Parallelism = 4
	}
	client := opts.Client
	if client == nil {
		client = &http.Client{Timeout: 60 * time.Second}
	}
	return &Pool{opts: opts, client: client}
}

// ProgressFunc is invoked (possibly concurrently, from worker goroutines)
// on every byte range written -- the UI/progress-reporting layer that
// consumes it is an external collaborator (spec.md §1 Non-goals); this hook
// only exists so that layer has something to attach to.
type ProgressFunc func(name string, written, total int64)

// Run fetches every descriptor concurrently, bounded by opts.Parallelism,
// honoring ctx cancellation between chunks and between files. Ordering
// between files is not guaranteed (spec.md §4.4) -- callers merge results
// commutatively.
func (p *Pool) Run(ctx context.Context, descriptors []model.FileDescriptor, onProgress ProgressFunc) ([]FileResult, error) {
	log := logging.L()

	results := make([]FileResult, len(descriptors))
	grp := pool.New().WithMaxGoroutines(p.opts.Parallelism)

	// totalBytes and anySucceeded are read and written from every worker
	// goroutine grp.Go schedules, so both need the same mutex-guarded
	// access archive.expansionBudget uses for its equivalent shared counter.
	var mu sync.Mutex
	var totalBytes int64
	var anySucceeded bool

	for i, d := range descriptors {
		i, d := i, d
		grp.Go(func() {
			if ctx.Err() != nil {
				results[i] = FileResult{Descriptor: d, Status: StatusFailed, Reason: "cancelled"}
				return
			}

			mu.Lock()
			soFar := totalBytes
			mu.Unlock()
			if p.overBudget(soFar) {
				results[i] = FileResult{Descriptor: d, Status: StatusSkipped, Reason: "backpressure: budget or disk reserve exceeded"}
				return
			}

			res := p.fetchOne(ctx, d, onProgress)
			results[i] = res
			if res.Status == StatusCompleted {
				mu.Lock()
				anySucceeded = true
				totalBytes += res.BytesWritten
				mu.Unlock()
			}
		})
	}

	grp.Wait()

	if !anySucceeded && len(descriptors) > 0 {
		allFailed := true
		for _, r := range results {
			if r.Status != StatusFailed {
				allFailed = false
				break
			}
		}
		if allFailed {
			log.Warn().Msg("every file in this run failed to fetch")
			return results, errs.New(errs.KindAllFilesFailed, "", nil, nil)
		}
	}

	return results, nil
}

func (p *Pool) overBudget(totalSoFar int64) bool {
	if p.opts.MaxTotalBytes > 0 && totalSoFar > p.opts.MaxTotalBytes+graceMargin(p.opts.MaxTotalBytes) {
		return true
	}
	if p.opts.ReserveBytes > 0 {
		free, err := freeSpace(p.opts.TempDir)
		if err == nil && free < p.opts.ReserveBytes {
			return true
		}
	}
	return false
}

func graceMargin(limit int64) int64 {
	// Small grace margin over the budget before backpressure kicks in
	// (spec.md §4.4), proportional so tiny budgets aren't immediately tripped.
	m := limit / 20 // 5%
	if m < defaultChunkSize {
		m = defaultChunkSize
	}
	return m
}

func (p *Pool) fetchOne(ctx context.Context, d model.FileDescriptor, onProgress ProgressFunc) FileResult {
	if d.Restricted {
		return FileResult{Descriptor: d, Status: StatusSkipped, Reason: "restricted: " + d.RestrictedWhy}
	}

	target := filepath.Join(p.opts.TempDir, filepath.FromSlash(d.Name))
	if err := os.MkdirAll(filepath.Dir(target), 0o755); err != nil {
		return FileResult{Descriptor: d, Status: StatusFailed, Reason: err.Error()}
	}

	written, skipped, err := p.downloadWithRetry(ctx, d, target, onProgress)
	if err != nil {
		status := StatusFailed
		if skipped {
			status = StatusSkipped
		}
		return FileResult{Descriptor: d, Status: status, Reason: err.Error()}
	}

	paths := []string{target}
	if exp, err := archive.Expand(ctx, target, target+".d", archive.Options{}); err == nil && len(exp) > 0 {
		full := make([]string, len(exp))
		for i, rel := range exp {
			full[i] = filepath.Join(target+".d", rel)
		}
		paths = full
	}

	return FileResult{Descriptor: d, Status: StatusCompleted, LocalPaths: paths, BytesWritten: written}
}

// downloadWithRetry implements spec.md §4.4's retry policy: exponential
// backoff with jitter, maximum 3 attempts on transient failure; 4xx is
// declared Skipped (the boolean result) and not retried.
func (p *Pool) downloadWithRetry(ctx context.Context, d model.FileDescriptor, target string, onProgress ProgressFunc) (int64, bool, error) {
	var lastErr error

	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if ctx.Err() != nil {
			return 0, false, ctx.Err()
		}

		written, status, err := p.downloadOnce(ctx, d, target, onProgress)
		if err == nil {
			return written, false, nil
		}

		if status >= 400 && status < 500 {
			return 0, true, errs.NewFileFetchFailed(d.Name, errors.Wrap(err, "client error, not retried").Error())
		}

		lastErr = err
		if attempt < maxAttempts {
			backoff := jitteredBackoff(attempt)
			select {
			case <-time.After(backoff):
			case <-ctx.Done():
				return 0, false, ctx.Err()
			}
		}
	}

	return 0, false, errs.NewFileFetchFailed(d.Name, lastErr.Error())
}

func jitteredBackoff(attempt int) time.Duration {
	base := time.Duration(math.Pow(2, float64(attempt-1))) * baseBackoff
	jitter := time.Duration(rand.Int63n(int64(base) / 2))
	return base + jitter
}

func (p *Pool) downloadOnce(ctx context.Context, d model.FileDescriptor, target string, onProgress ProgressFunc) (int64, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.URL, http.NoBody)
	if err != nil {
		return 0, 0, errors.Wrap(err, "build request")
	}

	resp, err := p.client.Do(req)
	if err != nil {
		return 0, 0, errors.Wrap(err, "request failed")
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, resp.StatusCode, errors.Errorf("unexpected status %d", resp.StatusCode)
	}

	total := resp.ContentLength
	if total <= 0 && d.SizeKnown() {
		total = d.SizeOrZero()
	}

	out, err := os.Create(target)
	if err != nil {
		return 0, resp.StatusCode, errors.Wrap(err, "create target file")
	}
	defer out.Close()

	written, err := copyChunked(ctx, out, resp.Body, d.Name, total, onProgress)
	if err != nil {
		return written, resp.StatusCode, err
	}

	return written, resp.StatusCode, nil
}

// copyChunked streams in defaultChunkSize increments, honoring cancellation
// between chunks (spec.md §4.4, §5 "Suspension points").
func copyChunked(ctx context.Context, dst io.Writer, src io.Reader, name string, total int64, onProgress ProgressFunc) (int64, error) {
	buf := make([]byte, defaultChunkSize)
	var written int64

	for {
		if err := ctx.Err(); err != nil {
			return written, err
		}

		n, readErr := src.Read(buf)
		if n > 0 {
			if _, werr := dst.Write(buf[:n]); werr != nil {
				return written, werr
			}
			written += int64(n)
			if onProgress != nil {
				onProgress(name, written, total)
			}
		}

		if readErr == io.EOF {
			return written, nil
		}
		if readErr != nil {
			return written, readErr
		}
	}
}

func freeSpace(path string) (int64, error) {
	return freeSpaceOS(path)
}
