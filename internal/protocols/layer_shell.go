package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface names
const (
	LayerShellInterface   = "zwlr_layer_shell_v1"
	LayerSurfaceInterface = "zwlr_layer_surface_v1"
)

// Shell layers (zwlr_layer_shell_v1.layer)
const (
	LayerBackground uint32 = 0
	LayerBottom     uint32 = 1
	LayerTop        uint32 = 2
	LayerOverlay    uint32 = 3
)

// Anchor bits (zwlr_layer_surface_v1.anchor)
const (
	AnchorTop    uint32 = 1
	AnchorBottom uint32 = 2
	AnchorLeft   uint32 = 4
	AnchorRight  uint32 = 8
	// AnchorAll stretches the surface across the whole output.
	AnchorAll = AnchorTop | AnchorBottom | AnchorLeft | AnchorRight
)

// LayerShell represents the zwlr_layer_shell_v1 global
type LayerShell struct {
	wl.BaseProxy
}

// NewLayerShell creates a new layer shell proxy
func NewLayerShell(ctx *wl.Context) *LayerShell {
	shell := &LayerShell{}
	shell.SetContext(ctx)
	// ID is assigned by Registry.Bind
	return shell
}

// GetLayerSurface assigns a surface to a layer on the given output
func (ls *LayerShell) GetLayerSurface(surface *Surface, output *Output, layer uint32, namespace string) (*LayerSurface, error) {
	layerSurface := &LayerSurface{}
	layerSurface.SetContext(ls.Context())
	layerSurface.SetID(ls.Context().AllocateID())
	ls.Context().Register(layerSurface)

	// Opcode 0: get_layer_surface
	const opcode = 0

	err := ls.Context().SendRequest(ls, opcode, layerSurface, surface, output, layer, namespace)
	if err != nil {
		ls.Context().Unregister(layerSurface)
		return nil, err
	}

	return layerSurface, nil
}

// Destroy destroys the layer shell
func (ls *LayerShell) Destroy() error {
	// Opcode 1: destroy
	const opcode = 1
	err := ls.Context().SendRequest(ls, opcode)
	ls.Context().Unregister(ls)
	return err
}

// Dispatch handles incoming events (layer shell has no events)
func (ls *LayerShell) Dispatch(_ *wl.Event) {
	// Layer shell has no events
}

// LayerSurface represents a zwlr_layer_surface_v1
type LayerSurface struct {
	wl.BaseProxy
	configureHandler func(serial, width, height uint32)
	closedHandler    func()
}

// SetConfigureHandler sets the handler for configure events. The
// handler must acknowledge the serial before the next commit.
func (ls *LayerSurface) SetConfigureHandler(handler func(serial, width, height uint32)) {
	ls.configureHandler = handler
}

// SetClosedHandler sets the handler for the closed event
func (ls *LayerSurface) SetClosedHandler(handler func()) {
	ls.closedHandler = handler
}

// SetSize requests a size; 0,0 lets the compositor size the surface to
// the anchored region
func (ls *LayerSurface) SetSize(width, height uint32) error {
	// Opcode 0: set_size
	const opcode = 0
	return ls.Context().SendRequest(ls, opcode, width, height)
}

// SetAnchor anchors the surface to the given output edges
func (ls *LayerSurface) SetAnchor(anchor uint32) error {
	// Opcode 1: set_anchor
	const opcode = 1
	return ls.Context().SendRequest(ls, opcode, anchor)
}

// SetExclusiveZone sets the exclusive zone; -1 means the surface does
// not care about other exclusive zones and fills the whole output
func (ls *LayerSurface) SetExclusiveZone(zone int32) error {
	// Opcode 2: set_exclusive_zone
	const opcode = 2
	return ls.Context().SendRequest(ls, opcode, zone)
}

// SetMargin sets margins from the anchored edges
func (ls *LayerSurface) SetMargin(top, right, bottom, left int32) error {
	// Opcode 3: set_margin
	const opcode = 3
	return ls.Context().SendRequest(ls, opcode, top, right, bottom, left)
}

// SetKeyboardInteractivity sets keyboard focus behavior
func (ls *LayerSurface) SetKeyboardInteractivity(interactivity uint32) error {
	// Opcode 4: set_keyboard_interactivity
	const opcode = 4
	return ls.Context().SendRequest(ls, opcode, interactivity)
}

// AckConfigure acknowledges a configure event
func (ls *LayerSurface) AckConfigure(serial uint32) error {
	// Opcode 6: ack_configure
	const opcode = 6
	return ls.Context().SendRequest(ls, opcode, serial)
}

// Destroy destroys the layer surface
func (ls *LayerSurface) Destroy() error {
	// Opcode 7: destroy
	const opcode = 7
	err := ls.Context().SendRequest(ls, opcode)
	ls.Context().Unregister(ls)
	return err
}

// Dispatch handles incoming events
func (ls *LayerSurface) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // configure
		if ls.configureHandler != nil {
			serial := event.Uint32()
			width := event.Uint32()
			height := event.Uint32()
			ls.configureHandler(serial, width, height)
		}
	case 1: // closed
		if ls.closedHandler != nil {
			ls.closedHandler()
		}
		ls.Context().Unregister(ls)
	}
}
