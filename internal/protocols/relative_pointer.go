package protocols

import (
	"fmt"

	"github.com/bnema/pointerlock/internal/logger"
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// Protocol interface names for relative pointer
const (
	RelativePointerManagerInterface = "zwp_relative_pointer_manager_v1"
	RelativePointerInterface        = "zwp_relative_pointer_v1"
)

var (
	_ client.Dispatcher = (*RelativePointerManager)(nil)
	_ client.Dispatcher = (*RelativePointer)(nil)
)

// RelativePointerManager is the zwp_relative_pointer_manager_v1 global.
type RelativePointerManager struct {
	client.BaseProxy
}

func NewRelativePointerManager(ctx *client.Context) *RelativePointerManager {
	m := &RelativePointerManager{}
	ctx.Register(m)
	return m
}

// GetRelativePointer creates a relative pointer for the given wl_pointer.
func (m *RelativePointerManager) GetRelativePointer(pointer Object) (*RelativePointer, error) {
	rel := NewRelativePointer(m.Context())

	const opcode = 1
	const _reqBufLen = 8 + 4 + 4
	var _reqBuf [_reqBufLen]byte
	header(_reqBuf[:], m.ID(), _reqBufLen, opcode)
	client.PutUint32(_reqBuf[8:12], rel.ID())
	client.PutUint32(_reqBuf[12:16], objectID(pointer))
	if err := m.Context().WriteMsg(_reqBuf[:], nil); err != nil {
		m.Context().Unregister(rel)
		return nil, err
	}

	return rel, nil
}

// Destroy destroys the relative pointer manager
func (m *RelativePointerManager) Destroy() error {
	return destroyRequest(m)
}

// Dispatch handles incoming events (the manager has none)
func (m *RelativePointerManager) Dispatch(_ uint32, _ int, _ []byte) {}

// RelativeMotionEvent is the raw relative_motion event. The timestamp is in
// microseconds, split into high and low words.
type RelativeMotionEvent struct {
	UtimeHi   uint32
	UtimeLo   uint32
	Dx        float64
	Dy        float64
	DxUnaccel float64
	DyUnaccel float64
}

// relativeMotionLen is the body size of relative_motion: two uints and four
// fixed-point numbers.
const relativeMotionLen = 6 * 4

// RelativePointer is a zwp_relative_pointer_v1 object.
type RelativePointer struct {
	client.BaseProxy
	relativeMotionHandler func(RelativeMotionEvent)
}

func NewRelativePointer(ctx *client.Context) *RelativePointer {
	r := &RelativePointer{}
	ctx.Register(r)
	return r
}

func (r *RelativePointer) SetRelativeMotionHandler(f func(RelativeMotionEvent)) {
	r.relativeMotionHandler = f
}

// Destroy destroys the relative pointer
func (r *RelativePointer) Destroy() error {
	return destroyRequest(r)
}

// Dispatch handles incoming events
func (r *RelativePointer) Dispatch(opcode uint32, _ int, data []byte) {
	switch opcode {
	case 0: // relative_motion
		if r.relativeMotionHandler == nil {
			return
		}
		e, err := decodeRelativeMotion(data)
		if err != nil {
			logger.Warnf("Dropping malformed relative_motion event: %v", err)
			return
		}
		r.relativeMotionHandler(e)
	}
}

func decodeRelativeMotion(data []byte) (RelativeMotionEvent, error) {
	var e RelativeMotionEvent
	if len(data) < relativeMotionLen {
		return e, fmt.Errorf("relative_motion: got %d bytes, want %d", len(data), relativeMotionLen)
	}
	l := 0
	e.UtimeHi = client.Uint32(data[l : l+4])
	l += 4
	e.UtimeLo = client.Uint32(data[l : l+4])
	l += 4
	e.Dx = client.Fixed(data[l : l+4])
	l += 4
	e.Dy = client.Fixed(data[l : l+4])
	l += 4
	e.DxUnaccel = client.Fixed(data[l : l+4])
	l += 4
	e.DyUnaccel = client.Fixed(data[l : l+4])
	return e, nil
}
