package sentinel

import "errors"

// Sentinel errors for storage facts. Stores return these (optionally
// wrapped) so services can translate them into coded domain errors.
//
// These represent factual states about stored entities, not validation
// failures:
// - ErrNotFound: entity does not exist in store
// - ErrAlreadyUsed: key or name already taken
// - ErrInvalidState: entity in wrong lifecycle state for the mutation
// - ErrRetired: key was purged by the expiry sweep and is permanently spent
//
// For validation errors (bad input, bounds), use pkg/domain-errors directly.
var (
	ErrNotFound     = errors.New("not found")
	ErrAlreadyUsed  = errors.New("already used")
	ErrInvalidState = errors.New("invalid state")
	ErrRetired      = errors.New("retired")
)
