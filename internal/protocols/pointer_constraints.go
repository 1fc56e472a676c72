// Package protocols provides hand-written client bindings for the unstable
// Wayland protocols used for pointer locking: pointer-constraints-unstable-v1
// and relative-pointer-unstable-v1. Requests and events are marshalled the
// same way go-wayland's generated bindings do it.
package protocols

import (
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// Protocol interface names for pointer constraints
const (
	PointerConstraintsInterface = "zwp_pointer_constraints_v1"
	LockedPointerInterface      = "zwp_locked_pointer_v1"
	ConfinedPointerInterface    = "zwp_confined_pointer_v1"
)

// Lifetime of a pointer constraint.
const (
	// LifetimeOneshot constraints are destroyed once deactivated.
	LifetimeOneshot uint32 = 1
	// LifetimePersistent constraints reactivate when the pointer re-enters
	// the surface.
	LifetimePersistent uint32 = 2
)

// ErrorAlreadyConstrained is the protocol error sent when a surface/pointer
// pair already has a constraint.
const ErrorAlreadyConstrained = 1

var (
	_ client.Dispatcher = (*PointerConstraints)(nil)
	_ client.Dispatcher = (*LockedPointer)(nil)
	_ client.Dispatcher = (*ConfinedPointer)(nil)
)

// Object is any protocol object passed as a request argument.
type Object interface {
	ID() uint32
}

// objectID encodes o as an object argument; nil is the null object.
func objectID(o Object) uint32 {
	if o == nil {
		return 0
	}
	return o.ID()
}

// header fills the 8 byte message header of a request of size bytes.
func header(dst []byte, sender uint32, size int, opcode uint32) {
	client.PutUint32(dst[0:4], sender)
	client.PutUint32(dst[4:8], uint32(size<<16)|opcode&0x0000ffff)
}

// destroyRequest sends the argument-less destructor at opcode 0 and drops p
// from its context.
func destroyRequest(p client.Proxy) error {
	const opcode = 0
	const _reqBufLen = 8
	var _reqBuf [_reqBufLen]byte
	header(_reqBuf[:], p.ID(), _reqBufLen, opcode)
	defer p.Context().Unregister(p)
	return p.Context().WriteMsg(_reqBuf[:], nil)
}

// PointerConstraints is the zwp_pointer_constraints_v1 global.
type PointerConstraints struct {
	client.BaseProxy
}

// NewPointerConstraints registers a new, unbound manager proxy. Bind it with
// client.Registry.Bind.
func NewPointerConstraints(ctx *client.Context) *PointerConstraints {
	m := &PointerConstraints{}
	ctx.Register(m)
	return m
}

// Destroy destroys the pointer constraints manager
func (m *PointerConstraints) Destroy() error {
	return destroyRequest(m)
}

// LockPointer requests a lock of pointer on surface. A nil region means the
// whole surface.
func (m *PointerConstraints) LockPointer(surface, pointer, region Object, lifetime uint32) (*LockedPointer, error) {
	locked := NewLockedPointer(m.Context())
	const opcode = 1
	if err := m.constrain(opcode, locked, surface, pointer, region, lifetime); err != nil {
		m.Context().Unregister(locked)
		return nil, err
	}
	return locked, nil
}

// ConfinePointer requests that pointer stays within region on surface.
func (m *PointerConstraints) ConfinePointer(surface, pointer, region Object, lifetime uint32) (*ConfinedPointer, error) {
	confined := NewConfinedPointer(m.Context())
	const opcode = 2
	if err := m.constrain(opcode, confined, surface, pointer, region, lifetime); err != nil {
		m.Context().Unregister(confined)
		return nil, err
	}
	return confined, nil
}

// constrain sends lock_pointer or confine_pointer; both share one signature.
func (m *PointerConstraints) constrain(opcode uint32, id, surface, pointer, region Object, lifetime uint32) error {
	return m.Context().WriteMsg(constraintRequest(m.ID(), opcode, id, surface, pointer, region, lifetime), nil)
}

func constraintRequest(sender, opcode uint32, id, surface, pointer, region Object, lifetime uint32) []byte {
	const _reqBufLen = 8 + 4 + 4 + 4 + 4 + 4
	_reqBuf := make([]byte, _reqBufLen)
	header(_reqBuf, sender, _reqBufLen, opcode)
	l := 8
	client.PutUint32(_reqBuf[l:l+4], objectID(id))
	l += 4
	client.PutUint32(_reqBuf[l:l+4], objectID(surface))
	l += 4
	client.PutUint32(_reqBuf[l:l+4], objectID(pointer))
	l += 4
	client.PutUint32(_reqBuf[l:l+4], objectID(region))
	l += 4
	client.PutUint32(_reqBuf[l:l+4], lifetime)
	return _reqBuf
}

// Dispatch handles incoming events (the manager has none)
func (m *PointerConstraints) Dispatch(_ uint32, _ int, _ []byte) {}

// LockedPointer is a zwp_locked_pointer_v1 object.
type LockedPointer struct {
	client.BaseProxy
	lockedHandler   func()
	unlockedHandler func()
}

func NewLockedPointer(ctx *client.Context) *LockedPointer {
	l := &LockedPointer{}
	ctx.Register(l)
	return l
}

// SetLockedHandler sets the handler for the locked event, sent when the
// compositor activates the lock.
func (l *LockedPointer) SetLockedHandler(f func()) {
	l.lockedHandler = f
}

// SetUnlockedHandler sets the handler for the unlocked event.
func (l *LockedPointer) SetUnlockedHandler(f func()) {
	l.unlockedHandler = f
}

// SetCursorPositionHint tells the compositor where the cursor should appear
// once the lock is released.
func (l *LockedPointer) SetCursorPositionHint(surfaceX, surfaceY float64) error {
	const opcode = 1
	const _reqBufLen = 8 + 4 + 4
	var _reqBuf [_reqBufLen]byte
	header(_reqBuf[:], l.ID(), _reqBufLen, opcode)
	client.PutFixed(_reqBuf[8:12], surfaceX)
	client.PutFixed(_reqBuf[12:16], surfaceY)
	return l.Context().WriteMsg(_reqBuf[:], nil)
}

// SetRegion updates the lock region; nil means the whole surface.
func (l *LockedPointer) SetRegion(region Object) error {
	const opcode = 2
	return l.Context().WriteMsg(setRegionRequest(l.ID(), opcode, region), nil)
}

func setRegionRequest(sender, opcode uint32, region Object) []byte {
	const _reqBufLen = 8 + 4
	_reqBuf := make([]byte, _reqBufLen)
	header(_reqBuf, sender, _reqBufLen, opcode)
	client.PutUint32(_reqBuf[8:12], objectID(region))
	return _reqBuf
}

// Destroy destroys the locked pointer
func (l *LockedPointer) Destroy() error {
	return destroyRequest(l)
}

// Dispatch handles incoming events
func (l *LockedPointer) Dispatch(opcode uint32, _ int, _ []byte) {
	switch opcode {
	case 0: // locked
		if l.lockedHandler != nil {
			l.lockedHandler()
		}
	case 1: // unlocked
		if l.unlockedHandler != nil {
			l.unlockedHandler()
		}
	}
}

// ConfinedPointer is a zwp_confined_pointer_v1 object.
type ConfinedPointer struct {
	client.BaseProxy
	confinedHandler   func()
	unconfinedHandler func()
}

func NewConfinedPointer(ctx *client.Context) *ConfinedPointer {
	c := &ConfinedPointer{}
	ctx.Register(c)
	return c
}

func (c *ConfinedPointer) SetConfinedHandler(f func()) {
	c.confinedHandler = f
}

func (c *ConfinedPointer) SetUnconfinedHandler(f func()) {
	c.unconfinedHandler = f
}

// SetRegion updates the confinement region
func (c *ConfinedPointer) SetRegion(region Object) error {
	const opcode = 1
	return c.Context().WriteMsg(setRegionRequest(c.ID(), opcode, region), nil)
}

// Destroy destroys the confined pointer
func (c *ConfinedPointer) Destroy() error {
	return destroyRequest(c)
}

// Dispatch handles incoming events
func (c *ConfinedPointer) Dispatch(opcode uint32, _ int, _ []byte) {
	switch opcode {
	case 0: // confined
		if c.confinedHandler != nil {
			c.confinedHandler()
		}
	case 1: // unconfined
		if c.unconfinedHandler != nil {
			c.unconfinedHandler()
		}
	}
}
