// Package errs unifies the error taxonomy used across the extraction core
// into a single tagged error type, instead of the mix of exceptions, nil
// returns, and silent skips a source implementation in a dynamic language
// would reach for.
package errs

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind identifies a class of failure the orchestrator and its collaborators
// can produce. Concrete type names beyond Kind are intentionally not part of
// the public contract -- callers should switch on Kind, not on Go type.
type Kind string

const (
	KindMalformedIdentifier   Kind = "malformed_identifier"
	KindUnrecognizedID        Kind = "unrecognized_identifier"
	KindProviderTransient     Kind = "provider_transient"
	KindProviderPermanent     Kind = "provider_permanent"
	KindBudgetExceeded        Kind = "budget_exceeded"
	KindFileFetchFailed       Kind = "file_fetch_failed"
	KindArchiveUnsafe         Kind = "archive_unsafe"
	KindDecodeFailed          Kind = "decode_failed"
	KindEmptyResult           Kind = "empty_result"
	KindInvalidWGS84          Kind = "invalid_wgs84"
	KindCancelled             Kind = "cancelled"
	KindDeadlineExceeded      Kind = "deadline_exceeded"
	KindAllFilesFailed        Kind = "all_files_failed"
)

// CoreError is the single error shape surfaced across package boundaries.
// It always carries a Kind plus, when known, the attributing provider's
// friendly name -- so a caller can render "Zenodo: dataset not found"
// without parsing a message string.
type CoreError struct {
	Err      error
	Kind     Kind
	Provider string
	Detail   map[string]any
}

func (e *CoreError) Error() string {
	if e.Provider != "" {
		return fmt.Sprintf("%s: %s: %v", e.Provider, e.Kind, e.Err)
	}
	return fmt.Sprintf("%s: %v", e.Kind, e.Err)
}

func (e *CoreError) Unwrap() error { return e.Err }

// New wraps err (or a plain message if err is nil) into a CoreError of the
// given kind, attributing it to provider when non-empty.
func New(kind Kind, provider string, err error, detail map[string]any) *CoreError {
	if err == nil {
		err = errors.New(string(kind))
	}
	return &CoreError{
		Kind:     kind,
		Provider: provider,
		Err:      errors.WithStack(err),
		Detail:   detail,
	}
}

// Newf is New with a formatted message instead of a wrapped error.
func Newf(kind Kind, provider, format string, args ...any) *CoreError {
	return New(kind, provider, fmt.Errorf(format, args...), nil)
}

// Is reports whether err (or anything it wraps) is a CoreError of kind k.
func Is(err error, k Kind) bool {
	var ce *CoreError
	if errors.As(err, &ce) {
		return ce.Kind == k
	}
	return false
}

// BudgetExceeded names the fields of a KindBudgetExceeded failure, surfaced
// so the caller can decide whether to retry with a raised limit.
// NewBudgetExceeded carries them in CoreError.Provider and in Detail under
// "estimated" and "limit"; it does not store a BudgetExceeded value.
type BudgetExceeded struct {
	Provider  string
	Estimated int64
	Limit     int64
}

func NewBudgetExceeded(provider string, estimated, limit int64) *CoreError {
	return New(KindBudgetExceeded, provider, fmt.Errorf("estimated size %d exceeds limit %d", estimated, limit), map[string]any{
		"estimated": estimated,
		"limit":     limit,
	})
}

// FileFetchFailed names the fields of a single-file failure that must never
// abort a run -- it is collected into the run's warning sink instead.
// NewFileFetchFailed carries them in Detail under "name" and "reason".
type FileFetchFailed struct {
	Name   string
	Reason string
}

func NewFileFetchFailed(name, reason string) *CoreError {
	return New(KindFileFetchFailed, "", fmt.Errorf("%s: %s", name, reason), map[string]any{
		"name":   name,
		"reason": reason,
	})
}
