package model

// ConcurrencyGroup is a named lock domain ensuring at most one active
// publish attempt per logical release
type ConcurrencyGroup string

// NewConcurrencyGroup derives the group key from the workflow name and ref.
// When the ref is absent it falls back to the run identifier so unrelated
// manual runs never collide on a shared key.
func NewConcurrencyGroup(workflow, ref, runID string) ConcurrencyGroup {
	if ref == "" {
		return ConcurrencyGroup(workflow + "-" + runID)
	}
	return ConcurrencyGroup(workflow + "-" + ref)
}
