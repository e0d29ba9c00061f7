package generator

import (
	"errors"
	"fmt"

	"github.com/talgya/zoneforge/internal/world"
)

var (
	// ErrUnreachable is reported when A* exhausts its open set.
	ErrUnreachable = errors.New("zone center unreachable")

	// ErrEmptyZone is reported when tessellation leaves a zone with no tiles.
	ErrEmptyZone = errors.New("zone received no tiles")
)

// InvalidZoneError is raised (as a panic value) on a lookup of a zone id the
// run does not know. Like world.OutOfBoundsError it signals a pipeline bug.
type InvalidZoneError struct {
	ID world.ZoneID
}

func (e *InvalidZoneError) Error() string {
	return fmt.Sprintf("invalid zone id %d", e.ID)
}

// ConnectionError reports a declared connection that could not be carved.
type ConnectionError struct {
	From, To world.ZoneID
	Err      error
}

func (e *ConnectionError) Error() string {
	return fmt.Sprintf("connect zones %d-%d: %v", e.From, e.To, e.Err)
}

func (e *ConnectionError) Unwrap() error { return e.Err }

// GenerationError is the single failure type Generate returns. The map is
// discarded; retrying with another seed is the caller's decision.
type GenerationError struct {
	Phase Phase
	Seed  int64
	Err   error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("generation failed in %s (seed %d): %v", e.Phase, e.Seed, e.Err)
}

func (e *GenerationError) Unwrap() error { return e.Err }
