package compositor

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/sys/unix"

	"github.com/bnema/wallmon/internal/logger"
	"github.com/bnema/wallmon/internal/protocols"
)

const configureTimeout = 5 * time.Second

var errSurfaceClosed = errors.New("layer surface closed by compositor")

// waylandSurface is one output's layer-shell background surface plus
// the shm frame currently attached to it.
type waylandSurface struct {
	conn         *Wayland
	output       *outputState
	surface      *protocols.Surface
	layerSurface *protocols.LayerSurface

	mu         sync.Mutex
	width      int32 // logical, from the latest configure
	height     int32
	closed     bool
	frame      *shmFrame
	configured chan struct{}
}

// shmFrame is one committed buffer: the memfd mapping and its wl_buffer.
// It is kept alive until the next commit replaces it, by which point
// the compositor has taken the new buffer and released the old one.
type shmFrame struct {
	data   []byte
	buffer *protocols.Buffer
}

func (f *shmFrame) release() {
	if f == nil {
		return
	}
	if f.buffer != nil {
		if err := f.buffer.Destroy(); err != nil {
			logger.Debug("wl_buffer destroy failed", "error", err)
		}
	}
	if f.data != nil {
		if err := unix.Munmap(f.data); err != nil {
			logger.Debug("munmap failed", "error", err)
		}
	}
}

// CreateSurface creates a background surface on the named output and
// waits for the compositor's initial configure before returning, so
// Size() is valid immediately.
func (w *Wayland) CreateSurface(outputName string) (Surface, error) {
	st := w.lookupOutput(outputName)
	if st == nil {
		return nil, fmt.Errorf("unknown output %q", outputName)
	}

	surface, err := w.compositor.CreateSurface()
	if err != nil {
		return nil, fmt.Errorf("failed to create surface: %w", err)
	}

	layerSurface, err := w.layerShell.GetLayerSurface(surface, st.proxy, protocols.LayerBackground, "wallmon")
	if err != nil {
		_ = surface.Destroy()
		return nil, fmt.Errorf("failed to create layer surface: %w", err)
	}

	s := &waylandSurface{
		conn:         w,
		output:       st,
		surface:      surface,
		layerSurface: layerSurface,
		configured:   make(chan struct{}, 1),
	}

	layerSurface.SetConfigureHandler(func(serial, width, height uint32) {
		if err := layerSurface.AckConfigure(serial); err != nil {
			logger.Error("ack_configure failed", "output", outputName, "error", err)
			return
		}
		s.mu.Lock()
		s.width, s.height = int32(width), int32(height)
		s.mu.Unlock()
		select {
		case s.configured <- struct{}{}:
		default:
		}
	})
	layerSurface.SetClosedHandler(func() {
		s.mu.Lock()
		s.closed = true
		s.mu.Unlock()
	})

	if err := s.setup(); err != nil {
		s.Destroy()
		return nil, err
	}

	select {
	case <-s.configured:
	case <-time.After(configureTimeout):
		s.Destroy()
		return nil, fmt.Errorf("timeout waiting for layer surface configure on %s", outputName)
	case <-w.done:
		return nil, fmt.Errorf("connection lost while configuring surface on %s", outputName)
	}

	return s, nil
}

// setup applies the background role state: anchored to all edges,
// ignoring exclusive zones, never taking keyboard focus. The empty
// commit at the end requests the initial configure.
func (s *waylandSurface) setup() error {
	if err := s.layerSurface.SetAnchor(protocols.AnchorAll); err != nil {
		return err
	}
	if err := s.layerSurface.SetExclusiveZone(-1); err != nil {
		return err
	}
	if err := s.layerSurface.SetSize(0, 0); err != nil {
		return err
	}
	if err := s.layerSurface.SetKeyboardInteractivity(0); err != nil {
		return err
	}
	return s.surface.Commit()
}

// Size returns the pixel dimensions a frame must be rendered at: the
// configured logical size multiplied by the output's current scale.
func (s *waylandSurface) Size() (int32, int32) {
	s.mu.Lock()
	width, height := s.width, s.height
	s.mu.Unlock()

	s.conn.mu.Lock()
	scale := s.output.snapshot().Scale
	s.conn.mu.Unlock()

	return width * scale, height * scale
}

// Commit uploads an RGBA frame into a fresh shm pool and attaches it.
// The frame must match the current Size(); otherwise ErrStaleGeometry
// is returned so the caller can re-render against fresh geometry.
func (s *waylandSurface) Commit(pix []byte, width, height int32) error {
	s.mu.Lock()
	closed := s.closed
	s.mu.Unlock()
	if closed {
		return errSurfaceClosed
	}

	curWidth, curHeight := s.Size()
	if width != curWidth || height != curHeight {
		return ErrStaleGeometry
	}

	stride := width * 4
	size := stride * height
	if int(size) != len(pix) {
		return fmt.Errorf("frame size mismatch: %d bytes for %dx%d", len(pix), width, height)
	}

	fd, err := unix.MemfdCreate("wallmon-shm", unix.MFD_CLOEXEC)
	if err != nil {
		return fmt.Errorf("memfd_create failed: %w", err)
	}
	if err := unix.Ftruncate(fd, int64(size)); err != nil {
		unix.Close(fd)
		return fmt.Errorf("ftruncate failed: %w", err)
	}
	data, err := unix.Mmap(fd, 0, int(size), unix.PROT_READ|unix.PROT_WRITE, unix.MAP_SHARED)
	if err != nil {
		unix.Close(fd)
		return fmt.Errorf("mmap failed: %w", err)
	}
	copy(data, pix)

	pool, err := s.conn.shm.CreatePool(fd, size)
	if err != nil {
		_ = unix.Munmap(data)
		unix.Close(fd)
		return fmt.Errorf("create_pool failed: %w", err)
	}
	// The pool holds its own reference to the fd after create_pool.
	unix.Close(fd)

	buffer, err := pool.CreateBuffer(0, width, height, stride, protocols.FormatABGR8888)
	if err != nil {
		_ = pool.Destroy()
		_ = unix.Munmap(data)
		return fmt.Errorf("create_buffer failed: %w", err)
	}
	if err := pool.Destroy(); err != nil {
		logger.Debug("shm pool destroy failed", "error", err)
	}

	s.conn.mu.Lock()
	scale := s.output.snapshot().Scale
	s.conn.mu.Unlock()

	frame := &shmFrame{data: data, buffer: buffer}
	if err := s.attach(frame, width, height, scale); err != nil {
		frame.release()
		return err
	}

	s.mu.Lock()
	previous := s.frame
	s.frame = frame
	s.mu.Unlock()
	previous.release()

	return nil
}

func (s *waylandSurface) attach(f *shmFrame, width, height, scale int32) error {
	if err := s.surface.SetBufferScale(scale); err != nil {
		return err
	}
	if err := s.surface.Attach(f.buffer, 0, 0); err != nil {
		return err
	}
	if err := s.surface.DamageBuffer(0, 0, width, height); err != nil {
		return err
	}
	return s.surface.Commit()
}

// Destroy releases the layer surface, the wl_surface and the last frame.
func (s *waylandSurface) Destroy() {
	s.mu.Lock()
	frame := s.frame
	s.frame = nil
	s.closed = true
	s.mu.Unlock()

	if err := s.layerSurface.Destroy(); err != nil {
		logger.Debug("layer surface destroy failed", "error", err)
	}
	if err := s.surface.Destroy(); err != nil {
		logger.Debug("surface destroy failed", "error", err)
	}
	frame.release()
}
