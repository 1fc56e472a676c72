package cmd

import (
	"context"
	"testing"

	"github.com/bnema/pointerlock/pointerlock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubDisplay announces a fixed set of globals and fails every bind, which
// is enough to exercise the recorder.
type stubDisplay struct {
	globals []pointerlock.Global
	reg     *stubRegistry
}

func (d *stubDisplay) GetRegistry() (pointerlock.Registry, error) {
	d.reg = &stubRegistry{}
	return d.reg, nil
}

func (d *stubDisplay) Roundtrip() error {
	if d.reg != nil && d.reg.handler != nil {
		for _, g := range d.globals {
			d.reg.handler(g)
		}
		d.globals = nil
	}
	return nil
}

type stubRegistry struct {
	handler func(pointerlock.Global)
}

func (r *stubRegistry) SetGlobalHandler(f func(pointerlock.Global)) { r.handler = f }

func (r *stubRegistry) BindCompositor(uint32, uint32) (pointerlock.Compositor, error) {
	return nil, assert.AnError
}

func (r *stubRegistry) BindSeat(uint32, uint32) (pointerlock.Seat, error) {
	return nil, assert.AnError
}

func (r *stubRegistry) BindPointerConstraints(uint32, uint32) (pointerlock.PointerConstraints, error) {
	return nil, assert.AnError
}

func (r *stubRegistry) BindRelativePointerManager(uint32, uint32) (pointerlock.RelativePointerManager, error) {
	return nil, assert.AnError
}

func TestGlobalRecorder(t *testing.T) {
	d := &stubDisplay{globals: []pointerlock.Global{
		{Name: 1, Interface: pointerlock.InterfaceCompositor, Version: 6},
		{Name: 2, Interface: pointerlock.InterfaceSeat, Version: 9},
		{Name: 3, Interface: "wl_shm", Version: 1},
	}}
	rec := newGlobalRecorder(d)

	s := pointerlock.New()
	err := s.Initialize(context.Background(), rec, nil)
	require.Error(t, err)
	s.Close()

	seen := rec.globals()
	assert.Equal(t, uint32(6), seen[pointerlock.InterfaceCompositor])
	assert.Equal(t, uint32(9), seen[pointerlock.InterfaceSeat])
	assert.Equal(t, []string{pointerlock.InterfaceCompositor, pointerlock.InterfaceSeat, "wl_shm"}, rec.names())
}

type interruptingStub struct {
	stubDisplay
	interrupted bool
}

func (d *interruptingStub) Interrupt() error {
	d.interrupted = true
	return nil
}

func TestGlobalRecorderForwardsInterrupt(t *testing.T) {
	d := &interruptingStub{}
	require.NoError(t, newGlobalRecorder(d).Interrupt())
	assert.True(t, d.interrupted)

	assert.Error(t, newGlobalRecorder(&stubDisplay{}).Interrupt())
}

func TestProbeRows(t *testing.T) {
	rows := probeRows(map[string]uint32{
		pointerlock.InterfaceCompositor:         6,
		pointerlock.InterfacePointerConstraints: 1,
	}, false)

	require.Len(t, rows, 5)
	assert.Equal(t, pointerlock.InterfaceCompositor, rows[0].Label)
	assert.True(t, rows[0].OK)
	assert.Equal(t, "version 6", rows[0].Value)

	assert.False(t, rows[1].OK)
	assert.Equal(t, "not advertised", rows[1].Value)

	assert.True(t, rows[2].OK)
	assert.False(t, rows[3].OK)

	assert.Equal(t, "wl_pointer", rows[4].Label)
	assert.False(t, rows[4].OK)

	rows = probeRows(nil, true)
	assert.True(t, rows[4].OK)
	assert.Equal(t, "acquired", rows[4].Value)
}
