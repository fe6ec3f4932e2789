package compositor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConn() *Wayland {
	return &Wayland{
		outputs: make(map[uint32]*outputState),
		events:  make(chan OutputEvent, 16),
		done:    make(chan struct{}),
	}
}

func TestPublishOutput(t *testing.T) {
	w := testConn()
	st := &outputState{globalName: 7, name: "eDP-1", width: 1920, height: 1080, scale: 1}
	w.outputs[7] = st

	t.Run("first done announces the output", func(t *testing.T) {
		w.publishOutput(st)
		ev := <-w.events
		assert.Equal(t, OutputAdded, ev.Kind)
		assert.Equal(t, Output{Name: "eDP-1", Width: 1920, Height: 1080, Scale: 1}, ev.Output)
	})

	t.Run("done without property change is silent", func(t *testing.T) {
		w.publishOutput(st)
		select {
		case ev := <-w.events:
			t.Fatalf("unexpected event %v", ev)
		default:
		}
	})

	t.Run("done after a mode switch emits changed", func(t *testing.T) {
		st.width, st.height = 2560, 1440
		w.publishOutput(st)
		ev := <-w.events
		assert.Equal(t, OutputChanged, ev.Kind)
		assert.Equal(t, int32(2560), ev.Output.Width)
	})

	t.Run("zero scale is floored to one", func(t *testing.T) {
		st.scale = 0
		assert.Equal(t, int32(1), st.snapshot().Scale)
	})
}

func TestPublishOutputWithoutNameIsIgnored(t *testing.T) {
	w := testConn()
	st := &outputState{globalName: 3, width: 800, height: 600, scale: 1}
	w.outputs[3] = st

	w.publishOutput(st)
	select {
	case ev := <-w.events:
		t.Fatalf("unexpected event %v", ev)
	default:
	}
}

func TestOutputsSnapshotSkipsUnannounced(t *testing.T) {
	w := testConn()
	announced := &outputState{globalName: 1, name: "DP-1", width: 1920, height: 1080, scale: 2}
	announced.announced = true
	announced.last = announced.snapshot()
	w.outputs[1] = announced
	w.outputs[2] = &outputState{globalName: 2, name: "DP-2"}

	outs := w.Outputs()
	require.Len(t, outs, 1)
	assert.Equal(t, "DP-1", outs[0].Name)
	assert.Equal(t, int32(2), outs[0].Scale)
}
