package core

import (
	"errors"
	"fmt"
)

var (
	// ErrWalk wraps any filesystem failure during a walk. The walk is aborted.
	ErrWalk = errors.New("filesystem walk failed")

	// ErrInvariant marks a graph that is not a well-formed tree
	ErrInvariant = errors.New("graph invariant violated")

	// ErrParentNotFound is returned when an entry's parent directory has not
	// been created yet. It always wraps ErrInvariant.
	ErrParentNotFound = fmt.Errorf("%w: parent vertex not found", ErrInvariant)

	// ErrNoSnapshot means a store holds no persisted graph
	ErrNoSnapshot = errors.New("no persisted graph")

	// ErrCorruptSnapshot means a store holds a graph that cannot be rebuilt
	ErrCorruptSnapshot = errors.New("persisted graph is corrupt")

	// ErrUnknownSource is returned for a source that is neither relational nor cache
	ErrUnknownSource = errors.New("unknown graph source")
)
