package obtree

import (
	"errors"
	"strconv"
)

//goland:noinspection GoUnusedGlobalVariable
var (
	// ErrDuplicateKey is returned by Add when the key already exists.
	ErrDuplicateKey = errors.New("obtree: key already exists")

	// ErrKeyNotFound is returned by Get when the key is absent.
	ErrKeyNotFound = errors.New("obtree: key not found")

	// ErrInvalidRange is returned by Range when end < start.
	ErrInvalidRange = errors.New("obtree: invalid range: end before start")

	// ErrInvalidCursor is returned by a cursor write on an out-of-bounds position.
	ErrInvalidCursor = errors.New("obtree: cursor is not positioned on a valid entry")

	// ErrCorruption is returned by Validate when an invariant is violated.
	ErrCorruption = errors.New("obtree: tree invariant violated")
)

// AllocationError reports that the configured Allocator could not satisfy a
// request. Per the allocator contract (spec §4.1, §7) this is always fatal:
// it is never returned as an error value, it is panicked so a caller cannot
// silently swallow it by forgetting to check an error return.
type AllocationError struct {
	Size int
	Err  error
}

func (e *AllocationError) Error() string {
	msg := "obtree: allocation of " + strconv.Itoa(e.Size) + " bytes failed"
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *AllocationError) Unwrap() error { return e.Err }
