package model

import "errors"

var (
	// ErrNotFound is returned when a referenced record does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidValue is returned for negative prices, non-positive quantities,
	// malformed codes and similar input the engine refuses at the boundary.
	ErrInvalidValue = errors.New("invalid value")

	// ErrDuplicateComponent is returned when an item is already part of an assembly.
	ErrDuplicateComponent = errors.New("component already present in assembly")

	// ErrPersistence wraps failures reported by the storage layer.
	ErrPersistence = errors.New("persistence error")

	// ErrEstimateLocked is returned when mutating an estimate that was converted to a job.
	ErrEstimateLocked = errors.New("estimate is locked")

	// ErrInvalidState is returned for lifecycle transitions that are not allowed.
	ErrInvalidState = errors.New("invalid state")
)
