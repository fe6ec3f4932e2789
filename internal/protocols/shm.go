package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	ShmInterface     = "wl_shm"
	ShmPoolInterface = "wl_shm_pool"
	BufferInterface  = "wl_buffer"
)

// Pixel formats (wl_shm.format). The fourcc formats match
// drm_fourcc.h; ABGR8888 is the little-endian layout of Go's RGBA
// byte order (R,G,B,A in memory).
const (
	FormatARGB8888 uint32 = 0
	FormatXRGB8888 uint32 = 1
	FormatABGR8888 uint32 = 0x34324241
	FormatXBGR8888 uint32 = 0x34324258
)

// Shm represents the wl_shm global
type Shm struct {
	wl.BaseProxy
	formatHandler func(uint32)
}

// NewShm creates a new shm proxy
func NewShm(ctx *wl.Context) *Shm {
	shm := &Shm{}
	shm.SetContext(ctx)
	// ID is assigned by Registry.Bind
	return shm
}

// SetFormatHandler sets the handler for advertised pixel formats
func (s *Shm) SetFormatHandler(handler func(uint32)) {
	s.formatHandler = handler
}

// CreatePool creates a shared memory pool backed by fd
func (s *Shm) CreatePool(fd int, size int32) (*ShmPool, error) {
	pool := &ShmPool{}
	pool.SetContext(s.Context())
	pool.SetID(s.Context().AllocateID())
	s.Context().Register(pool)

	// Opcode 0: create_pool
	const opcode = 0

	// The fd travels via SCM_RIGHTS only; the uintptr argument keeps it
	// out of the message body, same as the virtual keyboard keymap request.
	err := s.Context().SendRequestWithFDs(s, opcode, []int{fd}, pool, uintptr(fd), size)
	if err != nil {
		s.Context().Unregister(pool)
		return nil, err
	}

	return pool, nil
}

// Destroy unregisters the shm proxy (no destructor in protocol v1)
func (s *Shm) Destroy() error {
	s.Context().Unregister(s)
	return nil
}

// Dispatch handles incoming events
func (s *Shm) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // format
		if s.formatHandler != nil {
			s.formatHandler(event.Uint32())
		}
	}
}

// ShmPool represents a wl_shm_pool
type ShmPool struct {
	wl.BaseProxy
}

// CreateBuffer creates a buffer backed by a slice of the pool
func (p *ShmPool) CreateBuffer(offset, width, height, stride int32, format uint32) (*Buffer, error) {
	buffer := &Buffer{}
	buffer.SetContext(p.Context())
	buffer.SetID(p.Context().AllocateID())
	p.Context().Register(buffer)

	// Opcode 0: create_buffer
	const opcode = 0

	err := p.Context().SendRequest(p, opcode, buffer, offset, width, height, stride, format)
	if err != nil {
		p.Context().Unregister(buffer)
		return nil, err
	}

	return buffer, nil
}

// Destroy destroys the pool. Buffers created from the pool stay valid.
func (p *ShmPool) Destroy() error {
	// Opcode 1: destroy
	const opcode = 1
	err := p.Context().SendRequest(p, opcode)
	p.Context().Unregister(p)
	return err
}

// Resize grows the pool
func (p *ShmPool) Resize(size int32) error {
	// Opcode 2: resize
	const opcode = 2
	return p.Context().SendRequest(p, opcode, size)
}

// Dispatch handles incoming events (wl_shm_pool has no events)
func (p *ShmPool) Dispatch(_ *wl.Event) {
	// Shm pool has no events
}

// Buffer represents a wl_buffer
type Buffer struct {
	wl.BaseProxy
	releaseHandler func()
}

// SetReleaseHandler sets the handler for the release event, fired when
// the compositor no longer reads from the buffer
func (b *Buffer) SetReleaseHandler(handler func()) {
	b.releaseHandler = handler
}

// Destroy destroys the buffer
func (b *Buffer) Destroy() error {
	// Opcode 0: destroy
	const opcode = 0
	err := b.Context().SendRequest(b, opcode)
	b.Context().Unregister(b)
	return err
}

// Dispatch handles incoming events
func (b *Buffer) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // release
		if b.releaseHandler != nil {
			b.releaseHandler()
		}
	}
}
