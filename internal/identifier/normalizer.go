// Package identifier canonicalizes DOI, DOI URL, bare handle, and provider
// landing URL forms to a single provider-neutral representation (spec.md
// §4.1), grounded on the teacher's pkg/validators.DOIValidator /
// URLValidator prefix-stripping and internal/checker.normalizeTarget
// URL-vs-DOI-vs-bare-handle dispatch.
package identifier

import (
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/btraven00/geoextent-core/internal/errs"
	"github.com/btraven00/geoextent-core/internal/model"
)

var (
	doiPrefixes = []string{
		"doi:", "DOI:", "https://doi.org/", "http://doi.org/",
		"https://dx.doi.org/", "http://dx.doi.org/",
	}

	doiPattern    = regexp.MustCompile(`^10\.\d{4,}(?:\.\d+)*/.+$`)
	bareHandleRE  = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]*$`)
)

// Matcher is implemented by the provider registry: given a normalized
// candidate string, report whether some registered adapter recognizes it.
// The Normalizer depends only on this narrow interface, not the full
// registry, to avoid an import cycle between internal/identifier and
// internal/registry.
type Matcher interface {
	AnyMatches(candidate string) bool
}

// Normalize implements spec.md §4.1. registry may be nil, in which case the
// "reject if no provider matches" rule is skipped -- useful for tests that
// only want the string transform.
func Normalize(raw string, registry Matcher) (model.Identifier, error) {
	if err := checkMalformed(raw); err != nil {
		return model.Identifier{}, err
	}

	trimmed := strings.TrimSpace(raw)

	decoded, err := url.QueryUnescape(trimmed)
	if err != nil {
		decoded = trimmed // decoding is best-effort; keep the raw string on failure
	}

	candidate, err := canonicalize(decoded)
	if err != nil {
		return model.Identifier{}, err
	}

	if registry != nil && !registry.AnyMatches(candidate) {
		return model.Identifier{}, errs.New(errs.KindUnrecognizedID, "", nil, map[string]any{"input": raw})
	}

	return model.Identifier{
		Raw:       raw,
		Canonical: candidate,
	}, nil
}

func checkMalformed(raw string) error {
	if strings.TrimSpace(raw) == "" {
		return errs.New(errs.KindMalformedIdentifier, "", nil, map[string]any{"reason": "empty"})
	}
	for _, r := range raw {
		if unicode.IsControl(r) {
			return errs.New(errs.KindMalformedIdentifier, "", nil, map[string]any{"reason": "control character"})
		}
	}
	return nil
}

// canonicalize prefers, in order: a registered provider-native handle form
// (left to the registry to recognize against the DOI/URL forms below -- the
// normalizer itself only distinguishes DOI vs URL vs bare handle), then a
// DOI, then a URL.
func canonicalize(s string) (string, error) {
	// Strip DOI-resolver prefixes to expose the bare DOI.
	for _, p := range doiPrefixes {
		if strings.HasPrefix(s, p) {
			s = s[len(p):]
			break
		}
	}

	if doiPattern.MatchString(s) {
		return canonicalDOI(s), nil
	}

	if u, err := url.Parse(s); err == nil && u.Scheme != "" && u.Host != "" {
		return s, nil
	}

	if bareHandleRE.MatchString(s) {
		return s, nil
	}

	return "", errs.New(errs.KindUnrecognizedID, "", nil, map[string]any{"input": s})
}

// canonicalDOI lowercases only the registrant prefix, preserving the
// suffix's case exactly (DOI suffixes are case-sensitive per spec.md §4.1).
func canonicalDOI(doi string) string {
	idx := strings.IndexByte(doi, '/')
	if idx < 0 {
		return strings.ToLower(doi)
	}
	return strings.ToLower(doi[:idx]) + doi[idx:]
}

// IsIdempotent is a test helper asserting spec.md §8's normalize(normalize(X))
// == normalize(X) invariant for a given input, without needing a registry.
func IsIdempotent(raw string) (bool, error) {
	first, err := Normalize(raw, nil)
	if err != nil {
		return false, err
	}
	second, err := Normalize(first.Canonical, nil)
	if err != nil {
		return false, err
	}
	return first.Canonical == second.Canonical, nil
}
