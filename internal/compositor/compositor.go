// Package compositor manages the Wayland connection: it tracks the
// live set of outputs and presents pixel buffers on per-output
// background surfaces. The rest of the daemon consumes it through the
// Conn and Surface interfaces so the scheduler can run against fakes.
package compositor

import (
	"errors"
)

// ErrStaleGeometry is returned by Surface.Commit when the output
// geometry changed between render and commit. The caller re-runs the
// scale/crop step against fresh geometry and retries once.
var ErrStaleGeometry = errors.New("output geometry changed since render")

// Output is a read-only snapshot of one display output.
type Output struct {
	Name   string
	Width  int32 // current mode width in pixels
	Height int32 // current mode height in pixels
	Scale  int32
}

// EventKind classifies output registry events.
type EventKind int

const (
	OutputAdded EventKind = iota
	OutputRemoved
	OutputChanged
)

func (k EventKind) String() string {
	switch k {
	case OutputAdded:
		return "added"
	case OutputRemoved:
		return "removed"
	case OutputChanged:
		return "changed"
	default:
		return "unknown"
	}
}

// OutputEvent is one add/remove/geometry-change notification, delivered
// in the order the compositor reports them.
type OutputEvent struct {
	Kind   EventKind
	Output Output
}

// Conn is the compositor interaction surface the daemon consumes.
type Conn interface {
	// Outputs returns a snapshot of the currently known outputs.
	Outputs() []Output
	// Events delivers output add/remove/change events in arrival order.
	Events() <-chan OutputEvent
	// CreateSurface creates a background surface bound to the named output.
	CreateSurface(outputName string) (Surface, error)
	// Done is closed when the connection is lost. Loss is terminal.
	Done() <-chan struct{}
	// Err returns the connection error after Done is closed.
	Err() error
	// Close tears down the connection.
	Close()
}

// Surface is one output's background surface.
type Surface interface {
	// Size returns the pixel dimensions a frame must be rendered at.
	Size() (width, height int32)
	// Commit presents a frame of RGBA pixels of the given dimensions.
	Commit(pix []byte, width, height int32) error
	// Destroy releases the surface and its buffers.
	Destroy()
}
