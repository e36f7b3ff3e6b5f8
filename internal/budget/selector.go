// Package budget implements the Size Budget Selector (spec.md §4.3): given
// an ordered list of FileDescriptors and a total-size limit, select a
// subset satisfying the limit under a configurable tie-break policy.
//
// Grounded on the teacher's pkg/downloaders.DownloadOptions selection knobs
// (MaxConcurrent, IncludeRaw/ExcludeSupplementary) generalized into a
// standalone, pure selection algorithm -- the teacher never separates
// "decide what to fetch" from "fetch it"; this core does, because the
// budget decision must be able to fail closed with ErrBudgetExceeded before
// a single byte is requested (spec.md §4.3 "Soft limit").
package budget

import (
	"math"
	"math/rand"
	"sort"

	"github.com/btraven00/geoextent-core/internal/errs"
	"github.com/btraven00/geoextent-core/internal/model"
)

// Method is the selection ordering policy (spec.md §4.3).
type Method string

const (
	MethodOrdered  Method = "ordered"
	MethodRandom   Method = "random"
	MethodSmallest Method = "smallest"
	MethodLargest  Method = "largest"
)

// Options configures one selection call.
type Options struct {
	Limit            int64
	Method           Method
	Seed             int64
	GeospatialOnly   bool
	ExtraExtensions  map[string]struct{}
	SoftLimit        bool
	Provider         string // attribution for ErrBudgetExceeded
}

// group is the atomic selection unit: descriptors sharing a GroupKey move
// together (spec.md §4.3 step 2).
type group struct {
	key         string
	descriptors []model.FileDescriptor
	size        int64  // sum of known sizes
	sizeKnown   bool   // false if any constituent's size is unknown
	order       int    // first-seen provider order, for ordered/tie-break
}

// Result is the outcome of Select.
type Result struct {
	Selected []model.FileDescriptor
	Skipped  []model.FileDescriptor
	Warnings []string
}

// Select implements spec.md §4.3's algorithm end to end.
func Select(descriptors []model.FileDescriptor, opts Options) (Result, error) {
	var res Result

	// Restricted descriptors never enter selection; each is reported as
	// skipped with a warning.
	usable := make([]model.FileDescriptor, 0, len(descriptors))
	for _, d := range descriptors {
		if d.Restricted {
			res.Skipped = append(res.Skipped, d)
			res.Warnings = append(res.Warnings, "restricted file excluded from selection: "+d.Name)
			continue
		}
		usable = append(usable, d)
	}

	filtered := usable
	if opts.GeospatialOnly {
		var geoWarnings []string
		filtered, geoWarnings = partitionGeospatial(usable, opts.ExtraExtensions)
		res.Warnings = append(res.Warnings, geoWarnings...)
	}

	groups := groupBy(filtered)

	if opts.Limit <= 0 {
		// Limit <= 0 means unbounded (spec.md §6.1 default for
		// max_download_size) -- select everything in the configured order,
		// skipping both the soft-limit check and the fill loop's cap.
		ordered := reorder(groups, opts.Method, opts.Seed)
		for _, g := range ordered {
			res.Selected = append(res.Selected, g.descriptors...)
		}
		return res, nil
	}

	if opts.SoftLimit {
		var total int64
		anyUnknown := false
		for _, g := range groups {
			if !g.sizeKnown {
				anyUnknown = true
				continue
			}
			total += g.size
		}
		// An unknown-size group makes the true total unknowable, so it is
		// treated as exceeding the limit too -- the estimate reported is a
		// lower bound in that case.
		if anyUnknown || total > opts.Limit {
			return res, errs.NewBudgetExceeded(opts.Provider, total, opts.Limit)
		}
	}

	ordered := reorder(groups, opts.Method, opts.Seed)

	var cumulative int64
	selectedGroups := make([]group, 0, len(ordered))
	skippedGroups := make([]group, 0)

	for _, g := range ordered {
		gSize := g.size
		if !g.sizeKnown {
			// spec.md §9 Open Question resolved fail-closed: unknown size
			// sorts last under smallest (see lessBySize) and is never
			// silently counted as 0 here -- treat as unbounded so it can
			// never appear to "fit".
			gSize = math.MaxInt64
		}

		// Compared against the remaining room rather than cumulative+gSize,
		// which would overflow for an unknown-size group.
		if gSize <= opts.Limit-cumulative {
			cumulative += gSize
			selectedGroups = append(selectedGroups, g)
		} else {
			skippedGroups = append(skippedGroups, g)
		}
	}

	for _, g := range selectedGroups {
		res.Selected = append(res.Selected, g.descriptors...)
	}
	for _, g := range skippedGroups {
		res.Skipped = append(res.Skipped, g.descriptors...)
		if !g.sizeKnown {
			res.Warnings = append(res.Warnings, "size unknown, excluded under fail-closed policy: "+g.key)
		}
	}

	return res, nil
}

func partitionGeospatial(descriptors []model.FileDescriptor, extra map[string]struct{}) ([]model.FileDescriptor, []string) {
	var geo, rest []model.FileDescriptor
	for _, d := range descriptors {
		if model.IsGeospatialExtension(d.Name, extra) {
			geo = append(geo, d)
		} else {
			rest = append(rest, d)
		}
	}
	_ = rest // non-geospatial descriptors are dropped entirely (spec.md §4.3 step 1)
	var warnings []string
	if len(rest) > 0 {
		warnings = append(warnings, "dropped non-geospatial descriptors under geospatial_only filter")
	}
	return geo, warnings
}

func groupBy(descriptors []model.FileDescriptor) []group {
	index := make(map[string]int)
	var groups []group

	for i, d := range descriptors {
		key := d.GroupKey
		if key == "" {
			key = "\x00single:" + d.Name // ungrouped descriptors are their own singleton group
		}

		gi, ok := index[key]
		if !ok {
			gi = len(groups)
			index[key] = gi
			groups = append(groups, group{key: key, sizeKnown: true, order: i})
		}

		groups[gi].descriptors = append(groups[gi].descriptors, d)
		if !d.SizeKnown() {
			groups[gi].sizeKnown = false
		} else {
			groups[gi].size += d.SizeOrZero()
		}
	}

	return groups
}

func reorder(groups []group, method Method, seed int64) []group {
	out := make([]group, len(groups))
	copy(out, groups)

	switch method {
	case MethodSmallest:
		sort.SliceStable(out, func(i, j int) bool {
			return lessBySize(out[i], out[j])
		})
	case MethodLargest:
		sort.SliceStable(out, func(i, j int) bool {
			return lessBySize(out[j], out[i])
		})
	case MethodRandom:
		// Per-group shuffling only (spec.md §9 fixes the ambiguous upstream
		// per-file-vs-per-group randomization), deterministic under seed.
		r := rand.New(rand.NewSource(seed))
		r.Shuffle(len(out), func(i, j int) { out[i], out[j] = out[j], out[i] })
	case MethodOrdered, "":
		sort.SliceStable(out, func(i, j int) bool { return out[i].order < out[j].order })
	}

	return out
}

// lessBySize orders unknown-size groups last, then by size ascending, with
// provider order as the final tie-break (spec.md §4.3 "Tie-break").
func lessBySize(a, b group) bool {
	if a.sizeKnown != b.sizeKnown {
		return a.sizeKnown // known sizes sort before unknown
	}
	if a.sizeKnown && a.size != b.size {
		return a.size < b.size
	}
	return a.order < b.order
}
