// Package wlclient implements the pointerlock interfaces on top of
// go-wayland's client package.
//
// Hosts that already hold a *client.Display wrap it with Wrap; a
// *client.Surface satisfies pointerlock.Surface as is.
package wlclient

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"github.com/bnema/pointerlock/internal/logger"
	"github.com/bnema/pointerlock/internal/protocols"
	"github.com/bnema/pointerlock/pointerlock"
	"github.com/rajveermalviya/go-wayland/wayland/client"
)

// Minimum versions of the destructor requests used on release.
const (
	pointerReleaseSince = 3
	seatReleaseSince    = 5
)

// Display adapts a go-wayland display connection.
type Display struct {
	display *client.Display
	owned   bool

	mu     sync.Mutex
	closed bool
}

// Connect opens a new connection. An empty name uses $WAYLAND_DISPLAY, a
// relative one is looked up in $XDG_RUNTIME_DIR and an absolute one is used
// as the socket path.
func Connect(name string) (*Display, error) {
	addr, err := socketPath(name)
	if err != nil {
		return nil, err
	}
	display, err := client.Connect(addr)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to Wayland display: %w", err)
	}
	display.SetErrorHandler(func(e client.DisplayErrorEvent) {
		logger.Error("Wayland protocol error", "code", e.Code, "message", e.Message)
	})
	return &Display{display: display, owned: true}, nil
}

// socketPath resolves a display name the way libwayland does. go-wayland
// only consults $XDG_RUNTIME_DIR for the empty name.
func socketPath(name string) (string, error) {
	if name == "" || filepath.IsAbs(name) {
		return name, nil
	}
	runtimeDir := os.Getenv("XDG_RUNTIME_DIR")
	if runtimeDir == "" {
		return "", fmt.Errorf("XDG_RUNTIME_DIR is not set, cannot resolve display %q", name)
	}
	return filepath.Join(runtimeDir, name), nil
}

// Wrap adapts a connection owned by the host. Close leaves it open.
func Wrap(display *client.Display) *Display {
	return &Display{display: display}
}

// Raw returns the underlying go-wayland display.
func (d *Display) Raw() *client.Display {
	return d.display
}

func (d *Display) GetRegistry() (pointerlock.Registry, error) {
	r, err := d.display.GetRegistry()
	if err != nil {
		return nil, fmt.Errorf("failed to get registry: %w", err)
	}
	return &registry{registry: r, ctx: d.display.Context()}, nil
}

// Roundtrip sends wl_display.sync and dispatches until its callback fires.
func (d *Display) Roundtrip() error {
	callback, err := d.display.Sync()
	if err != nil {
		return fmt.Errorf("failed to sync display: %w", err)
	}
	defer func() {
		if err := callback.Destroy(); err != nil {
			logger.Debug("Failed to destroy sync callback", "error", err)
		}
	}()

	done := false
	callback.SetDoneHandler(func(client.CallbackDoneEvent) {
		done = true
	})
	for !done {
		if err := d.display.Context().Dispatch(); err != nil {
			return fmt.Errorf("failed to dispatch events: %w", err)
		}
	}
	return nil
}

// Run dispatches events until ctx is done or the connection fails. A
// blocked read can only be cut short by closing the socket, so when ctx ends
// Run closes the connection, owned or not, and returns once the dispatching
// goroutine has exited. No handler runs after Run returns, and the
// compositor has dropped every object of the connection by then.
func (d *Display) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		for {
			if err := d.display.Context().Dispatch(); err != nil {
				errCh <- err
				return
			}
		}
	}()

	select {
	case err := <-errCh:
		return fmt.Errorf("wayland dispatch failed: %w", err)
	case <-ctx.Done():
	}

	if err := d.disconnect(); err != nil {
		logger.Debug("Failed to close Wayland connection", "error", err)
	}
	<-errCh
	return ctx.Err()
}

// Interrupt closes the connection, owned or not, so that a Roundtrip or Run
// blocked on another goroutine returns.
func (d *Display) Interrupt() error {
	return d.disconnect()
}

// Closed reports whether the connection has been closed by Run, Interrupt
// or Close.
func (d *Display) Closed() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.closed
}

// Close closes the connection if it was opened by Connect.
func (d *Display) Close() error {
	if !d.owned {
		return nil
	}
	return d.disconnect()
}

func (d *Display) disconnect() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed || d.display == nil {
		return nil
	}
	d.closed = true
	return d.display.Context().Close()
}

type registry struct {
	registry *client.Registry
	ctx      *client.Context
}

func (r *registry) SetGlobalHandler(f func(pointerlock.Global)) {
	r.registry.SetGlobalHandler(func(e client.RegistryGlobalEvent) {
		f(pointerlock.Global{Name: e.Name, Interface: e.Interface, Version: e.Version})
	})
}

func (r *registry) bind(name uint32, iface string, version uint32, proxy client.Proxy) error {
	if err := r.registry.Bind(name, iface, version, proxy); err != nil {
		r.ctx.Unregister(proxy)
		return fmt.Errorf("failed to bind %s: %w", iface, err)
	}
	return nil
}

func (r *registry) BindCompositor(name, version uint32) (pointerlock.Compositor, error) {
	c := client.NewCompositor(r.ctx)
	if err := r.bind(name, pointerlock.InterfaceCompositor, version, c); err != nil {
		return nil, err
	}
	return &Compositor{compositor: c}, nil
}

func (r *registry) BindSeat(name, version uint32) (pointerlock.Seat, error) {
	s := client.NewSeat(r.ctx)
	if err := r.bind(name, pointerlock.InterfaceSeat, version, s); err != nil {
		return nil, err
	}
	return &seat{seat: s, version: version}, nil
}

func (r *registry) BindPointerConstraints(name, version uint32) (pointerlock.PointerConstraints, error) {
	m := protocols.NewPointerConstraints(r.ctx)
	if err := r.bind(name, protocols.PointerConstraintsInterface, version, m); err != nil {
		return nil, err
	}
	return &pointerConstraints{manager: m}, nil
}

func (r *registry) BindRelativePointerManager(name, version uint32) (pointerlock.RelativePointerManager, error) {
	m := protocols.NewRelativePointerManager(r.ctx)
	if err := r.bind(name, protocols.RelativePointerManagerInterface, version, m); err != nil {
		return nil, err
	}
	return &relativePointerManager{manager: m}, nil
}

// Compositor adapts wl_compositor. Hosts without a surface of their own can
// use CreateSurface.
type Compositor struct {
	compositor *client.Compositor
}

func (c *Compositor) CreateRegion() (pointerlock.Region, error) {
	r, err := c.compositor.CreateRegion()
	if err != nil {
		return nil, fmt.Errorf("failed to create region: %w", err)
	}
	return &region{region: r}, nil
}

// CreateSurface creates a bare wl_surface with no role.
func (c *Compositor) CreateSurface() (*client.Surface, error) {
	s, err := c.compositor.CreateSurface()
	if err != nil {
		return nil, fmt.Errorf("failed to create surface: %w", err)
	}
	return s, nil
}

// Release drops the proxy; wl_compositor has no destructor request.
func (c *Compositor) Release() error {
	return nil
}

type region struct {
	region *client.Region
}

func (r *region) ID() uint32 {
	return r.region.ID()
}

func (r *region) Add(x, y, width, height int32) error {
	return r.region.Add(x, y, width, height)
}

func (r *region) Destroy() error {
	return r.region.Destroy()
}

type seat struct {
	seat    *client.Seat
	version uint32
}

func (s *seat) SetCapabilitiesHandler(f func(uint32)) {
	s.seat.SetCapabilitiesHandler(func(e client.SeatCapabilitiesEvent) {
		f(uint32(e.Capabilities))
	})
}

func (s *seat) GetPointer() (pointerlock.Pointer, error) {
	p, err := s.seat.GetPointer()
	if err != nil {
		return nil, fmt.Errorf("failed to get pointer: %w", err)
	}
	return &pointer{pointer: p, version: s.version}, nil
}

// Release sends wl_seat.release when the bound version has it.
func (s *seat) Release() error {
	if s.version < seatReleaseSince {
		return nil
	}
	return s.seat.Release()
}

type pointer struct {
	pointer *client.Pointer
	version uint32
}

func (p *pointer) ID() uint32 {
	return p.pointer.ID()
}

// Release sends wl_pointer.release when the bound version has it.
func (p *pointer) Release() error {
	if p.version < pointerReleaseSince {
		return nil
	}
	return p.pointer.Release()
}

type pointerConstraints struct {
	manager *protocols.PointerConstraints
}

var errNoSurface = errors.New("surface and pointer are required")

func (m *pointerConstraints) LockPointer(surface pointerlock.Surface, pointer pointerlock.Pointer, region pointerlock.Region, lifetime pointerlock.Lifetime) (pointerlock.LockedPointer, error) {
	if surface == nil || pointer == nil {
		return nil, errNoSurface
	}
	// A nil region interface stays nil here, which encodes as "whole surface".
	var r protocols.Object
	if region != nil {
		r = region
	}
	locked, err := m.manager.LockPointer(surface, pointer, r, uint32(lifetime))
	if err != nil {
		return nil, fmt.Errorf("failed to send lock_pointer: %w", err)
	}
	return locked, nil
}

func (m *pointerConstraints) Destroy() error {
	return m.manager.Destroy()
}

type relativePointerManager struct {
	manager *protocols.RelativePointerManager
}

func (m *relativePointerManager) GetRelativePointer(p pointerlock.Pointer) (pointerlock.RelativePointer, error) {
	rel, err := m.manager.GetRelativePointer(p)
	if err != nil {
		return nil, fmt.Errorf("failed to send get_relative_pointer: %w", err)
	}
	return &relativePointer{relative: rel}, nil
}

func (m *relativePointerManager) Destroy() error {
	return m.manager.Destroy()
}

type relativePointer struct {
	relative *protocols.RelativePointer
}

func (r *relativePointer) SetRelativeMotionHandler(f func(pointerlock.MotionEvent)) {
	r.relative.SetRelativeMotionHandler(func(e protocols.RelativeMotionEvent) {
		f(pointerlock.MotionEvent(e))
	})
}

func (r *relativePointer) Destroy() error {
	return r.relative.Destroy()
}
