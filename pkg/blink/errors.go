package blink

import (
	"errors"
	"fmt"
)

// ErrOutOfMemory is returned, wrapped with context, whenever a delegate
// cannot supply the memory an arena needs to satisfy a request: the host
// allocator failed, or a requested size exceeds the arena's configured
// maximum chunk size. Every failure mode in this package collapses to this
// single error kind; callers that care about the reason inspect the
// wrapped message, not a distinct error value.
var ErrOutOfMemory = errors.New("blink: out of memory")

func outOfMemory(cause error) error {
	if cause == nil {
		return ErrOutOfMemory
	}
	return fmt.Errorf("%w: %w", ErrOutOfMemory, cause)
}

func outOfMemoryf(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrOutOfMemory, fmt.Sprintf(format, args...))
}
