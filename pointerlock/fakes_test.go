package pointerlock

import (
	"errors"
	"sync"
)

var errFake = errors.New("fake failure")

// fakeDisplay emulates the ordering of a real connection: every event queued
// while a roundtrip is being dispatched is only delivered by the next one.
type fakeDisplay struct {
	mu      sync.Mutex
	queue   []func()
	nextID  uint32
	globals []Global
	caps    uint32

	registry       *fakeRegistry
	registryErr    error
	roundtrips     int
	roundtripErr   error
	roundtripBlock chan struct{}
	// blockFrom is the number of completed roundtrips after which
	// roundtripBlock takes effect.
	blockFrom int
	returned  int

	bindErr    map[string]error
	pointerErr error
	lockErr    error
	relErr     error
	regionErr  error
}

func newFakeDisplay(globals ...Global) *fakeDisplay {
	return &fakeDisplay{
		globals: globals,
		caps:    CapabilityPointer,
		bindErr: map[string]error{},
	}
}

func allGlobals() []Global {
	return []Global{
		{Name: 1, Interface: InterfaceCompositor, Version: 6},
		{Name: 2, Interface: InterfaceSeat, Version: 9},
		{Name: 3, Interface: "wl_shm", Version: 1},
		{Name: 4, Interface: InterfacePointerConstraints, Version: 1},
		{Name: 5, Interface: InterfaceRelativePointerManager, Version: 1},
	}
}

func (d *fakeDisplay) id() uint32 {
	d.nextID++
	return d.nextID
}

func (d *fakeDisplay) enqueue(f func()) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.queue = append(d.queue, f)
}

func (d *fakeDisplay) GetRegistry() (Registry, error) {
	if d.registryErr != nil {
		return nil, d.registryErr
	}
	d.registry = &fakeRegistry{display: d}
	reg := d.registry
	for _, g := range d.globals {
		g := g
		d.enqueue(func() { reg.announce(g) })
	}
	return reg, nil
}

func (d *fakeDisplay) Roundtrip() error {
	defer func() {
		d.mu.Lock()
		d.returned++
		d.mu.Unlock()
	}()

	d.mu.Lock()
	block := d.roundtripBlock != nil && d.roundtrips >= d.blockFrom
	d.mu.Unlock()
	if block {
		<-d.roundtripBlock
		return errFake
	}
	if d.roundtripErr != nil {
		return d.roundtripErr
	}

	d.mu.Lock()
	d.roundtrips++
	batch := d.queue
	d.queue = nil
	d.mu.Unlock()

	for _, f := range batch {
		f()
	}
	return nil
}

func (d *fakeDisplay) roundtripsReturned() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.returned
}

// interruptibleDisplay unblocks a stalled roundtrip when interrupted.
type interruptibleDisplay struct {
	*fakeDisplay
	interrupts int
}

func (d *interruptibleDisplay) Interrupt() error {
	d.interrupts++
	close(d.roundtripBlock)
	return nil
}

type fakeRegistry struct {
	display *fakeDisplay
	handler func(Global)
	binds   []Global

	compositor  *fakeCompositor
	seat        *fakeSeat
	constraints *fakeConstraints
	relManager  *fakeRelativeManager
}

func (r *fakeRegistry) SetGlobalHandler(f func(Global)) {
	r.handler = f
}

func (r *fakeRegistry) announce(g Global) {
	if r.handler != nil {
		r.handler(g)
	}
}

func (r *fakeRegistry) bind(iface string, name, version uint32) error {
	if err := r.display.bindErr[iface]; err != nil {
		return err
	}
	r.binds = append(r.binds, Global{Name: name, Interface: iface, Version: version})
	return nil
}

func (r *fakeRegistry) BindCompositor(name, version uint32) (Compositor, error) {
	if err := r.bind(InterfaceCompositor, name, version); err != nil {
		return nil, err
	}
	r.compositor = &fakeCompositor{display: r.display}
	return r.compositor, nil
}

func (r *fakeRegistry) BindSeat(name, version uint32) (Seat, error) {
	if err := r.bind(InterfaceSeat, name, version); err != nil {
		return nil, err
	}
	seat := &fakeSeat{display: r.display}
	r.seat = seat
	caps := r.display.caps
	r.display.enqueue(func() { seat.emit(caps) })
	return seat, nil
}

func (r *fakeRegistry) BindPointerConstraints(name, version uint32) (PointerConstraints, error) {
	if err := r.bind(InterfacePointerConstraints, name, version); err != nil {
		return nil, err
	}
	r.constraints = &fakeConstraints{display: r.display}
	return r.constraints, nil
}

func (r *fakeRegistry) BindRelativePointerManager(name, version uint32) (RelativePointerManager, error) {
	if err := r.bind(InterfaceRelativePointerManager, name, version); err != nil {
		return nil, err
	}
	r.relManager = &fakeRelativeManager{display: r.display}
	return r.relManager, nil
}

type fakeSurface struct{ id uint32 }

func (s *fakeSurface) ID() uint32 { return s.id }

type fakeCompositor struct {
	display  *fakeDisplay
	regions  []*fakeRegion
	released bool
}

func (c *fakeCompositor) CreateRegion() (Region, error) {
	if c.display.regionErr != nil {
		return nil, c.display.regionErr
	}
	r := &fakeRegion{id: c.display.id()}
	c.regions = append(c.regions, r)
	return r, nil
}

func (c *fakeCompositor) Release() error {
	c.released = true
	return nil
}

type fakeRegion struct {
	id        uint32
	rects     [][4]int32
	destroyed bool
}

func (r *fakeRegion) ID() uint32 { return r.id }

func (r *fakeRegion) Add(x, y, width, height int32) error {
	r.rects = append(r.rects, [4]int32{x, y, width, height})
	return nil
}

func (r *fakeRegion) Destroy() error {
	r.destroyed = true
	return nil
}

type fakeSeat struct {
	display     *fakeDisplay
	handler     func(uint32)
	getPointers int
	pointers    []*fakePointer
	released    bool
}

func (s *fakeSeat) SetCapabilitiesHandler(f func(uint32)) {
	s.handler = f
}

func (s *fakeSeat) emit(caps uint32) {
	if s.handler != nil {
		s.handler(caps)
	}
}

func (s *fakeSeat) GetPointer() (Pointer, error) {
	s.getPointers++
	if s.display.pointerErr != nil {
		return nil, s.display.pointerErr
	}
	p := &fakePointer{id: s.display.id()}
	s.pointers = append(s.pointers, p)
	return p, nil
}

func (s *fakeSeat) Release() error {
	s.released = true
	return nil
}

type fakePointer struct {
	id       uint32
	released bool
}

func (p *fakePointer) ID() uint32 { return p.id }

func (p *fakePointer) Release() error {
	p.released = true
	return nil
}

type lockRequest struct {
	surface  Surface
	pointer  Pointer
	region   Region
	lifetime Lifetime
}

type fakeConstraints struct {
	display   *fakeDisplay
	requests  []lockRequest
	locks     []*fakeLocked
	destroyed bool
}

func (c *fakeConstraints) LockPointer(surface Surface, pointer Pointer, region Region, lifetime Lifetime) (LockedPointer, error) {
	c.requests = append(c.requests, lockRequest{surface, pointer, region, lifetime})
	if c.display.lockErr != nil {
		return nil, c.display.lockErr
	}
	l := &fakeLocked{}
	c.locks = append(c.locks, l)
	return l, nil
}

func (c *fakeConstraints) Destroy() error {
	c.destroyed = true
	return nil
}

type fakeLocked struct {
	onLocked   func()
	onUnlocked func()
	destroyed  bool
}

func (l *fakeLocked) SetLockedHandler(f func())   { l.onLocked = f }
func (l *fakeLocked) SetUnlockedHandler(f func()) { l.onUnlocked = f }

func (l *fakeLocked) Destroy() error {
	l.destroyed = true
	return nil
}

type fakeRelativeManager struct {
	display   *fakeDisplay
	relatives []*fakeRelative
	destroyed bool
}

func (m *fakeRelativeManager) GetRelativePointer(Pointer) (RelativePointer, error) {
	if m.display.relErr != nil {
		return nil, m.display.relErr
	}
	r := &fakeRelative{}
	m.relatives = append(m.relatives, r)
	return r, nil
}

func (m *fakeRelativeManager) Destroy() error {
	m.destroyed = true
	return nil
}

type fakeRelative struct {
	handler   func(MotionEvent)
	destroyed bool
}

func (r *fakeRelative) SetRelativeMotionHandler(f func(MotionEvent)) {
	r.handler = f
}

func (r *fakeRelative) emit(e MotionEvent) {
	if r.handler != nil {
		r.handler(e)
	}
}

func (r *fakeRelative) Destroy() error {
	r.destroyed = true
	return nil
}
