package model

// Identifier is the normalized, provider-neutral form produced by
// internal/identifier. ProviderTag and DatasetKey (DOI suffix, UUID, numeric
// record id) are not filled in by Normalize; adapters parse Canonical when
// DatasetKey is empty.
//
// Normalization is idempotent: normalizing an already-normalized Identifier's
// Raw string yields an equal Identifier.
type Identifier struct {
	Raw         string
	ProviderTag string
	DatasetKey  string
	// Canonical is the preferred string form: a registered provider-native
	// handle if one exists, else a DOI, else a URL (spec.md §4.1).
	Canonical string
}

// String returns the canonical form.
func (id Identifier) String() string {
	return id.Canonical
}

// Key returns the (provider, dataset_key) pair used for cycle detection in
// bounded-recursion follow_external resolution (spec.md §9).
func (id Identifier) Key() string {
	return id.ProviderTag + ":" + id.DatasetKey
}
