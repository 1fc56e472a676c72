// Package pointerlock locks the Wayland pointer to a surface and relays
// relative motion deltas to a caller-supplied sink.
//
// It uses two protocol extensions on top of the core protocol:
// pointer-constraints-unstable-v1 to hold the lock and
// relative-pointer-unstable-v1 to receive unaccelerated motion while the
// cursor is frozen.
//
// # Basic Usage
//
//	st := pointerlock.New()
//	st.SetMotionSink(func(dx, dy, dxUnaccel, dyUnaccel float64) {
//		// look around
//	})
//	if err := st.Initialize(ctx, display, surface); err != nil {
//		return err
//	}
//	if err := st.Lock(); err != nil {
//		return err
//	}
//	defer st.Unlock()
//
// The package only talks to the narrow interfaces declared here. The wlclient
// package implements them on top of go-wayland.
//
// All protocol events are delivered from whatever goroutine dispatches the
// connection. State serializes access internally, so Lock, Unlock and the
// event handlers may run on different goroutines, but the connection itself
// must only be dispatched from one.
package pointerlock

import (
	"errors"
	"sync"
	"time"

	"github.com/bnema/pointerlock/internal/logger"
)

// Interface names of the globals bound during discovery.
const (
	InterfaceCompositor             = "wl_compositor"
	InterfaceSeat                   = "wl_seat"
	InterfacePointerConstraints     = "zwp_pointer_constraints_v1"
	InterfaceRelativePointerManager = "zwp_relative_pointer_manager_v1"
)

// CapabilityPointer is the wl_seat pointer capability bit.
const CapabilityPointer uint32 = 1

// Lifetime of a pointer lock.
type Lifetime uint32

const (
	// LifetimeOneshot locks end for good once the compositor deactivates them.
	LifetimeOneshot Lifetime = 1
	// LifetimePersistent locks reactivate when the pointer re-enters the
	// surface.
	LifetimePersistent Lifetime = 2
)

func (l Lifetime) String() string {
	switch l {
	case LifetimeOneshot:
		return "oneshot"
	case LifetimePersistent:
		return "persistent"
	default:
		return "unknown"
	}
}

var (
	ErrDiscovery          = errors.New("wayland registry unavailable")
	ErrRoundtrip          = errors.New("wayland roundtrip failed")
	ErrMissingCapability  = errors.New("required wayland interfaces not available")
	ErrAlreadyInitialized = errors.New("pointer lock already initialized")
	ErrNotReady           = errors.New("pointer constraints, pointer, or surface not available")
	ErrAlreadyLocked      = errors.New("pointer already locked")
	ErrLockFailed         = errors.New("failed to lock pointer")
)

// Object is any protocol object with an id.
type Object interface {
	ID() uint32
}

// Global is one global announced by the registry.
type Global struct {
	Name      uint32
	Interface string
	Version   uint32
}

// Display is the borrowed connection.
type Display interface {
	GetRegistry() (Registry, error)
	// Roundtrip blocks until every request sent so far has been processed
	// and the resulting events dispatched.
	Roundtrip() error
}

// Interrupter is implemented by displays whose blocked Roundtrip can be cut
// short from another goroutine. The connection is unusable afterwards.
type Interrupter interface {
	Interrupt() error
}

// Registry binds the globals this package needs.
type Registry interface {
	SetGlobalHandler(func(Global))
	BindCompositor(name, version uint32) (Compositor, error)
	BindSeat(name, version uint32) (Seat, error)
	BindPointerConstraints(name, version uint32) (PointerConstraints, error)
	BindRelativePointerManager(name, version uint32) (RelativePointerManager, error)
}

// Surface is the borrowed surface the pointer is locked to.
type Surface interface {
	Object
}

type Compositor interface {
	CreateRegion() (Region, error)
	Release() error
}

type Region interface {
	Object
	Add(x, y, width, height int32) error
	Destroy() error
}

type Seat interface {
	SetCapabilitiesHandler(func(capabilities uint32))
	GetPointer() (Pointer, error)
	Release() error
}

type Pointer interface {
	Object
	Release() error
}

type PointerConstraints interface {
	LockPointer(surface Surface, pointer Pointer, region Region, lifetime Lifetime) (LockedPointer, error)
	Destroy() error
}

type LockedPointer interface {
	SetLockedHandler(func())
	SetUnlockedHandler(func())
	Destroy() error
}

type RelativePointerManager interface {
	GetRelativePointer(pointer Pointer) (RelativePointer, error)
	Destroy() error
}

type RelativePointer interface {
	SetRelativeMotionHandler(func(MotionEvent))
	Destroy() error
}

// State is the aggregate for one surface. The zero value is ready to use.
type State struct {
	mu sync.Mutex

	lifetime         Lifetime
	roundtripTimeout time.Duration

	display Display
	surface Surface

	// gen is bumped whenever a discovery attempt ends without success, so
	// handlers registered by that attempt stop mutating state.
	gen         uint64
	registry    Registry
	initialized bool

	compositor      Compositor
	seat            Seat
	constraints     PointerConstraints
	relativeManager RelativePointerManager

	pointer      Pointer
	pointerState deviceState

	locked   LockedPointer
	relative RelativePointer
	active   bool

	sink MotionFunc
}

// Option configures a State.
type Option func(*State)

// WithLifetime selects the lock lifetime. The default is LifetimePersistent.
func WithLifetime(l Lifetime) Option {
	return func(s *State) {
		s.lifetime = l
	}
}

// WithRoundtripTimeout bounds each discovery roundtrip. Zero relies on the
// context passed to Initialize alone.
func WithRoundtripTimeout(d time.Duration) Option {
	return func(s *State) {
		s.roundtripTimeout = d
	}
}

// WithMotionSink installs the motion sink up front.
func WithMotionSink(fn MotionFunc) Option {
	return func(s *State) {
		s.sink = fn
	}
}

func New(opts ...Option) *State {
	s := &State{}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Status is a snapshot of which objects a State currently holds.
type Status struct {
	Initialized            bool
	Compositor             bool
	Seat                   bool
	PointerConstraints     bool
	RelativePointerManager bool
	Pointer                bool
	Locked                 bool
	Relaying               bool
	// Active reports whether the compositor has confirmed the lock.
	Active bool
}

func (s *State) Status() Status {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Status{
		Initialized:            s.initialized,
		Compositor:             s.compositor != nil,
		Seat:                   s.seat != nil,
		PointerConstraints:     s.constraints != nil,
		RelativePointerManager: s.relativeManager != nil,
		Pointer:                s.pointer != nil,
		Locked:                 s.locked != nil,
		Relaying:               s.relative != nil,
		Active:                 s.active,
	}
}

// Ready reports whether Lock has everything it needs.
func (s *State) Ready() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.constraints != nil && s.pointer != nil && s.surface != nil
}

// Locked reports whether a lock is held.
func (s *State) Locked() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.locked != nil
}

// Active reports whether the compositor has activated the held lock.
func (s *State) Active() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.active
}

// Compositor returns the bound compositor, or nil before discovery.
func (s *State) Compositor() Compositor {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.compositor
}

// SetSurface replaces the surface used by later Lock calls. A held lock is
// not moved.
func (s *State) SetSurface(surface Surface) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.surface = surface
}

// Close unlocks and releases every object bound by Initialize. The borrowed
// display and surface are left alone. The State can be initialized again
// afterwards.
func (s *State) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.releaseLocked()
	s.display = nil
	s.surface = nil
}

// releaseLocked drops every protocol object the State owns. s.mu must be held.
func (s *State) releaseLocked() {
	s.unlockLocked()

	if s.pointer != nil {
		if err := s.pointer.Release(); err != nil {
			logger.Debug("Failed to release pointer", "error", err)
		}
		s.pointer = nil
	}
	s.pointerState = deviceAbsent

	if s.relativeManager != nil {
		if err := s.relativeManager.Destroy(); err != nil {
			logger.Debug("Failed to destroy relative pointer manager", "error", err)
		}
		s.relativeManager = nil
	}
	if s.constraints != nil {
		if err := s.constraints.Destroy(); err != nil {
			logger.Debug("Failed to destroy pointer constraints", "error", err)
		}
		s.constraints = nil
	}
	if s.seat != nil {
		if err := s.seat.Release(); err != nil {
			logger.Debug("Failed to release seat", "error", err)
		}
		s.seat = nil
	}
	if s.compositor != nil {
		if err := s.compositor.Release(); err != nil {
			logger.Debug("Failed to release compositor", "error", err)
		}
		s.compositor = nil
	}

	s.registry = nil
	s.initialized = false
}

func (s *State) lifetimeOrDefault() Lifetime {
	if s.lifetime == 0 {
		return LifetimePersistent
	}
	return s.lifetime
}
