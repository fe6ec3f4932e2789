// Package protocols provides hand-written bindings for the Wayland
// protocols a wallpaper daemon needs: the core compositor/surface/shm
// objects, wl_output, and the wlr-layer-shell extension.
package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	CompositorInterface = "wl_compositor"
	SurfaceInterface    = "wl_surface"
)

// Compositor represents the wl_compositor global
type Compositor struct {
	wl.BaseProxy
}

// NewCompositor creates a new compositor proxy
func NewCompositor(ctx *wl.Context) *Compositor {
	compositor := &Compositor{}
	compositor.SetContext(ctx)
	// ID is assigned by Registry.Bind
	return compositor
}

// CreateSurface creates a new surface
func (c *Compositor) CreateSurface() (*Surface, error) {
	surface := &Surface{}
	surface.SetContext(c.Context())
	surface.SetID(c.Context().AllocateID())
	c.Context().Register(surface)

	// Opcode 0: create_surface
	const opcode = 0

	err := c.Context().SendRequest(c, opcode, surface)
	if err != nil {
		c.Context().Unregister(surface)
		return nil, err
	}

	return surface, nil
}

// Destroy unregisters the compositor proxy (no destructor in protocol)
func (c *Compositor) Destroy() error {
	c.Context().Unregister(c)
	return nil
}

// Dispatch handles incoming events (wl_compositor has no events)
func (c *Compositor) Dispatch(_ *wl.Event) {
	// Compositor has no events
}

// Surface represents a wl_surface
type Surface struct {
	wl.BaseProxy
}

// Attach attaches a buffer to the surface
func (s *Surface) Attach(buffer *Buffer, x, y int32) error {
	// Opcode 1: attach
	const opcode = 1
	if buffer == nil {
		return s.Context().SendRequest(s, opcode, nil, x, y)
	}
	return s.Context().SendRequest(s, opcode, buffer, x, y)
}

// Damage marks a region of the surface as needing repaint
// (surface-local coordinates)
func (s *Surface) Damage(x, y, width, height int32) error {
	// Opcode 2: damage
	const opcode = 2
	return s.Context().SendRequest(s, opcode, x, y, width, height)
}

// Commit atomically applies all pending surface state
func (s *Surface) Commit() error {
	// Opcode 6: commit
	const opcode = 6
	return s.Context().SendRequest(s, opcode)
}

// SetBufferScale sets the scale factor of the attached buffer
func (s *Surface) SetBufferScale(scale int32) error {
	// Opcode 8: set_buffer_scale
	const opcode = 8
	return s.Context().SendRequest(s, opcode, scale)
}

// DamageBuffer marks a region as damaged in buffer coordinates
// (since version 4)
func (s *Surface) DamageBuffer(x, y, width, height int32) error {
	// Opcode 9: damage_buffer
	const opcode = 9
	return s.Context().SendRequest(s, opcode, x, y, width, height)
}

// Destroy destroys the surface
func (s *Surface) Destroy() error {
	// Opcode 0: destroy
	const opcode = 0
	err := s.Context().SendRequest(s, opcode)
	s.Context().Unregister(s)
	return err
}

// Dispatch handles incoming events. The enter/leave events carry
// output tracking the daemon does not need; each surface is already
// pinned to one output through the layer shell.
func (s *Surface) Dispatch(_ *wl.Event) {
}
