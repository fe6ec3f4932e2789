package protocols

import (
	"github.com/bnema/wlturbo/wl"
)

// Protocol interface name
const (
	OutputInterface = "wl_output"
	// OutputVersion is the version we bind: v4 adds the name event,
	// which is the stable identity the config file refers to.
	OutputVersion = 4
)

// Mode flags (wl_output.mode)
const (
	ModeCurrent   uint32 = 0x1
	ModePreferred uint32 = 0x2
)

// Output represents a wl_output global
type Output struct {
	wl.BaseProxy
	geometryHandler    func(x, y, physWidth, physHeight, subpixel int32, make, model string, transform int32)
	modeHandler        func(flags uint32, width, height, refresh int32)
	doneHandler        func()
	scaleHandler       func(factor int32)
	nameHandler        func(string)
	descriptionHandler func(string)
}

// NewOutput creates a new output proxy
func NewOutput(ctx *wl.Context) *Output {
	output := &Output{}
	output.SetContext(ctx)
	// ID is assigned by Registry.Bind
	return output
}

// SetGeometryHandler sets the handler for geometry events
func (o *Output) SetGeometryHandler(handler func(x, y, physWidth, physHeight, subpixel int32, make, model string, transform int32)) {
	o.geometryHandler = handler
}

// SetModeHandler sets the handler for mode events
func (o *Output) SetModeHandler(handler func(flags uint32, width, height, refresh int32)) {
	o.modeHandler = handler
}

// SetDoneHandler sets the handler for done events; all properties sent
// since the last done form one atomic update
func (o *Output) SetDoneHandler(handler func()) {
	o.doneHandler = handler
}

// SetScaleHandler sets the handler for scale events
func (o *Output) SetScaleHandler(handler func(int32)) {
	o.scaleHandler = handler
}

// SetNameHandler sets the handler for name events (since version 4)
func (o *Output) SetNameHandler(handler func(string)) {
	o.nameHandler = handler
}

// SetDescriptionHandler sets the handler for description events (since version 4)
func (o *Output) SetDescriptionHandler(handler func(string)) {
	o.descriptionHandler = handler
}

// Release releases the output (since version 3)
func (o *Output) Release() error {
	// Opcode 0: release
	const opcode = 0
	err := o.Context().SendRequest(o, opcode)
	o.Context().Unregister(o)
	return err
}

// Dispatch handles incoming events
func (o *Output) Dispatch(event *wl.Event) {
	switch event.Opcode {
	case 0: // geometry
		if o.geometryHandler != nil {
			x := event.Int32()
			y := event.Int32()
			physWidth := event.Int32()
			physHeight := event.Int32()
			subpixel := event.Int32()
			makeStr := event.String()
			model := event.String()
			transform := event.Int32()
			o.geometryHandler(x, y, physWidth, physHeight, subpixel, makeStr, model, transform)
		}
	case 1: // mode
		if o.modeHandler != nil {
			flags := event.Uint32()
			width := event.Int32()
			height := event.Int32()
			refresh := event.Int32()
			o.modeHandler(flags, width, height, refresh)
		}
	case 2: // done
		if o.doneHandler != nil {
			o.doneHandler()
		}
	case 3: // scale
		if o.scaleHandler != nil {
			o.scaleHandler(event.Int32())
		}
	case 4: // name (since version 4)
		if o.nameHandler != nil {
			o.nameHandler(event.String())
		}
	case 5: // description (since version 4)
		if o.descriptionHandler != nil {
			o.descriptionHandler(event.String())
		}
	}
}
