package compositor

import (
	"fmt"
	"sync"

	"github.com/bnema/wlturbo/wl"

	"github.com/bnema/wallmon/internal/logger"
	"github.com/bnema/wallmon/internal/protocols"
)

// Wayland is the live-compositor implementation of Conn.
type Wayland struct {
	display    *wl.Display
	registry   *wl.Registry
	ctx        *wl.Context
	compositor *protocols.Compositor
	shm        *protocols.Shm
	layerShell *protocols.LayerShell

	mu      sync.Mutex
	outputs map[uint32]*outputState // keyed by registry global name

	events  chan OutputEvent
	done    chan struct{}
	err     error
	failed  sync.Once
	closing bool
}

// outputState accumulates wl_output properties until the done event
// publishes them as one atomic snapshot.
type outputState struct {
	globalName uint32
	proxy      *protocols.Output

	name      string
	width     int32
	height    int32
	scale     int32
	announced bool
	last      Output
}

func (st *outputState) snapshot() Output {
	scale := st.scale
	if scale < 1 {
		scale = 1
	}
	return Output{Name: st.name, Width: st.width, Height: st.height, Scale: scale}
}

// Connect establishes the Wayland connection, binds the globals the
// daemon needs and collects the initial output set. The connection is
// fatal on loss: Done is closed and Err reports the cause.
func Connect() (*Wayland, error) {
	display, err := wl.Connect("")
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Wayland display: %w", err)
	}

	w := &Wayland{
		display: display,
		ctx:     display.Context(),
		outputs: make(map[uint32]*outputState),
		events:  make(chan OutputEvent, 16),
		done:    make(chan struct{}),
	}

	w.registry = display.GetRegistry()
	w.registry.AddGlobalHandler(w)
	w.registry.AddGlobalRemoveHandler(w)

	// First roundtrip announces globals and sends our binds; the second
	// flushes the initial wl_output property bursts so Outputs() is
	// complete before the caller starts.
	if err := display.Roundtrip(); err != nil {
		w.Close()
		return nil, fmt.Errorf("initial roundtrip failed: %w", err)
	}
	if w.compositor == nil {
		w.Close()
		return nil, fmt.Errorf("wl_compositor not advertised by compositor")
	}
	if w.shm == nil {
		w.Close()
		return nil, fmt.Errorf("wl_shm not advertised by compositor")
	}
	if w.layerShell == nil {
		w.Close()
		return nil, fmt.Errorf("zwlr_layer_shell_v1 not available - compositor does not support wlr-layer-shell")
	}
	if err := display.Roundtrip(); err != nil {
		w.Close()
		return nil, fmt.Errorf("output roundtrip failed: %w", err)
	}

	go w.dispatchLoop()

	return w, nil
}

func (w *Wayland) dispatchLoop() {
	for {
		if err := w.display.Dispatch(); err != nil {
			w.fail(fmt.Errorf("compositor connection lost: %w", err))
			return
		}
	}
}

func (w *Wayland) fail(err error) {
	w.failed.Do(func() {
		w.mu.Lock()
		closing := w.closing
		if !closing {
			w.err = err
		}
		w.mu.Unlock()
		if !closing {
			logger.Error("compositor connection lost", "error", err)
		}
		close(w.done)
	})
}

// HandleRegistryGlobal implements wl.RegistryGlobalHandler
func (w *Wayland) HandleRegistryGlobal(event wl.RegistryGlobalEvent) {
	switch event.Interface {
	case protocols.CompositorInterface:
		compositor := protocols.NewCompositor(w.ctx)
		if err := w.registry.Bind(event.Name, event.Interface, min(event.Version, 4), compositor); err != nil {
			logger.Error("failed to bind wl_compositor", "error", err)
			return
		}
		w.compositor = compositor

	case protocols.ShmInterface:
		shm := protocols.NewShm(w.ctx)
		if err := w.registry.Bind(event.Name, event.Interface, 1, shm); err != nil {
			logger.Error("failed to bind wl_shm", "error", err)
			return
		}
		w.shm = shm

	case protocols.LayerShellInterface:
		shell := protocols.NewLayerShell(w.ctx)
		if err := w.registry.Bind(event.Name, event.Interface, 1, shell); err != nil {
			logger.Error("failed to bind layer shell", "error", err)
			return
		}
		w.layerShell = shell

	case protocols.OutputInterface:
		if event.Version < protocols.OutputVersion {
			logger.Warn("wl_output too old, no name event; output ignored",
				"version", event.Version)
			return
		}
		w.bindOutput(event.Name)
	}
}

func (w *Wayland) bindOutput(globalName uint32) {
	output := protocols.NewOutput(w.ctx)
	if err := w.registry.Bind(globalName, protocols.OutputInterface, protocols.OutputVersion, output); err != nil {
		logger.Error("failed to bind wl_output", "error", err)
		return
	}

	st := &outputState{globalName: globalName, proxy: output, scale: 1}

	output.SetNameHandler(func(name string) {
		w.mu.Lock()
		st.name = name
		w.mu.Unlock()
	})
	output.SetModeHandler(func(flags uint32, width, height, _ int32) {
		if flags&protocols.ModeCurrent == 0 {
			return
		}
		w.mu.Lock()
		st.width, st.height = width, height
		w.mu.Unlock()
	})
	output.SetScaleHandler(func(factor int32) {
		w.mu.Lock()
		st.scale = factor
		w.mu.Unlock()
	})
	output.SetDoneHandler(func() {
		w.publishOutput(st)
	})

	w.mu.Lock()
	w.outputs[globalName] = st
	w.mu.Unlock()
}

// publishOutput emits Added on the first done event and Changed on
// later ones that carry a different snapshot.
func (w *Wayland) publishOutput(st *outputState) {
	w.mu.Lock()
	snap := st.snapshot()
	if snap.Name == "" {
		w.mu.Unlock()
		// done before name should not happen on a v4 output
		logger.Warn("output announced without a name, ignoring")
		return
	}
	first := !st.announced
	changed := snap != st.last
	st.announced = true
	st.last = snap
	w.mu.Unlock()
	if first {
		logger.Info("output connected", "output", snap.Name,
			"size", fmt.Sprintf("%dx%d", snap.Width, snap.Height), "scale", snap.Scale)
		w.emit(OutputEvent{Kind: OutputAdded, Output: snap})
	} else if changed {
		logger.Info("output geometry changed", "output", snap.Name,
			"size", fmt.Sprintf("%dx%d", snap.Width, snap.Height), "scale", snap.Scale)
		w.emit(OutputEvent{Kind: OutputChanged, Output: snap})
	}
}

// HandleRegistryGlobalRemove implements wl.RegistryGlobalRemoveHandler
func (w *Wayland) HandleRegistryGlobalRemove(event wl.RegistryGlobalRemoveEvent) {
	w.mu.Lock()
	st, ok := w.outputs[event.Name]
	if ok {
		delete(w.outputs, event.Name)
	}
	w.mu.Unlock()
	if !ok || !st.announced {
		return
	}

	logger.Info("output disconnected", "output", st.last.Name)
	w.emit(OutputEvent{Kind: OutputRemoved, Output: st.last})
	if err := st.proxy.Release(); err != nil {
		logger.Debug("wl_output release failed", "output", st.last.Name, "error", err)
	}
}

func (w *Wayland) emit(event OutputEvent) {
	select {
	case w.events <- event:
	case <-w.done:
	}
}

// Outputs returns a snapshot of the announced outputs.
func (w *Wayland) Outputs() []Output {
	w.mu.Lock()
	defer w.mu.Unlock()

	outputs := make([]Output, 0, len(w.outputs))
	for _, st := range w.outputs {
		if st.announced {
			outputs = append(outputs, st.last)
		}
	}
	return outputs
}

// Events delivers output events in compositor order.
func (w *Wayland) Events() <-chan OutputEvent {
	return w.events
}

// Done is closed when the connection is lost or closed.
func (w *Wayland) Done() <-chan struct{} {
	return w.done
}

// Err returns the terminal connection error, if any.
func (w *Wayland) Err() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.err
}

// Close tears down the connection. A Close-initiated disconnect is not
// reported as an error.
func (w *Wayland) Close() {
	w.mu.Lock()
	w.closing = true
	w.mu.Unlock()
	if w.ctx != nil {
		_ = w.ctx.Close()
	}
	w.fail(nil)
}

func (w *Wayland) lookupOutput(name string) *outputState {
	w.mu.Lock()
	defer w.mu.Unlock()
	for _, st := range w.outputs {
		if st.announced && st.last.Name == name {
			return st
		}
	}
	return nil
}
