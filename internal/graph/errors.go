package graph

import "errors"

// Sentinel errors for store operations.
var (
	// ErrInvalidArgument is returned when a required identity or value
	// argument (qualified name, span, node, or edge) is missing at a
	// construction or mutation call boundary. It signals a caller
	// contract violation, not a recoverable runtime condition; the
	// failed call leaves the store unchanged.
	ErrInvalidArgument = errors.New("invalid argument")

	// ErrSealed is returned when attempting to mutate a sealed store.
	// Seal is one-way; once called, the store is read-only.
	ErrSealed = errors.New("store is sealed and cannot be modified")
)
