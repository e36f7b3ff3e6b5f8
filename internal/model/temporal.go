package model

import "time"

// TimeInterval is (start, end) with start <= end when both are known;
// either endpoint may be nil, meaning an open interval (spec.md §3).
type TimeInterval struct {
	Start *time.Time
	End   *time.Time
}

// IsEmpty reports whether both endpoints are null -- a merge of fully-null
// inputs stays null per spec.md §4.9.
func (t TimeInterval) IsEmpty() bool {
	return t.Start == nil && t.End == nil
}

// MergeTimeIntervals computes min(start) and max(end) across all inputs,
// treating a nil endpoint as open (-inf / +inf) for the purpose of the
// comparison: if any input leaves a bound open, the merged bound is nil
// (not a sentinel time). Associative and commutative (spec.md §8).
func MergeTimeIntervals(intervals ...TimeInterval) TimeInterval {
	var (
		minStart        *time.Time
		maxEnd          *time.Time
		startOpen       bool
		endOpen         bool
		sawAnyStart     bool
		sawAnyEnd       bool
	)

	for _, iv := range intervals {
		sawAnyStart = true
		sawAnyEnd = true

		if iv.Start == nil {
			startOpen = true
		} else if minStart == nil || iv.Start.Before(*minStart) {
			t := *iv.Start
			minStart = &t
		}

		if iv.End == nil {
			endOpen = true
		} else if maxEnd == nil || iv.End.After(*maxEnd) {
			t := *iv.End
			maxEnd = &t
		}
	}

	var out TimeInterval
	if sawAnyStart && !startOpen {
		out.Start = minStart
	}
	if sawAnyEnd && !endOpen {
		out.End = maxEnd
	}
	return out
}
