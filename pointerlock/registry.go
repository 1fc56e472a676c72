package pointerlock

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/bnema/pointerlock/internal/logger"
)

// bindVersion is the version every global is bound at.
const bindVersion = 1

// binder binds one announced global into s. s.mu is held.
type binder func(s *State, name uint32) error

var binders = map[string]binder{
	InterfaceCompositor:             bindCompositor,
	InterfaceSeat:                   bindSeat,
	InterfacePointerConstraints:     bindPointerConstraints,
	InterfaceRelativePointerManager: bindRelativePointerManager,
}

func bindCompositor(s *State, name uint32) error {
	if s.compositor != nil {
		return nil
	}
	c, err := s.registry.BindCompositor(name, bindVersion)
	if err != nil {
		return err
	}
	s.compositor = c
	return nil
}

func bindSeat(s *State, name uint32) error {
	if s.seat != nil {
		return nil
	}
	seat, err := s.registry.BindSeat(name, bindVersion)
	if err != nil {
		return err
	}
	s.seat = seat
	seat.SetCapabilitiesHandler(func(caps uint32) {
		s.handleCapabilities(seat, caps)
	})
	return nil
}

func bindPointerConstraints(s *State, name uint32) error {
	if s.constraints != nil {
		return nil
	}
	pc, err := s.registry.BindPointerConstraints(name, bindVersion)
	if err != nil {
		return err
	}
	s.constraints = pc
	return nil
}

func bindRelativePointerManager(s *State, name uint32) error {
	if s.relativeManager != nil {
		return nil
	}
	rm, err := s.registry.BindRelativePointerManager(name, bindVersion)
	if err != nil {
		return err
	}
	s.relativeManager = rm
	return nil
}

// Initialize discovers and binds the compositor, seat, pointer constraints
// manager and relative pointer manager, and waits for the seat to hand out a
// pointer. On failure everything bound by this call is released again, so
// Initialize can simply be retried.
func (s *State) Initialize(ctx context.Context, display Display, surface Surface) error {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return ErrAlreadyInitialized
	}
	s.gen++
	gen := s.gen
	s.display = display
	s.surface = surface
	s.mu.Unlock()

	registry, err := display.GetRegistry()
	if err == nil && registry == nil {
		err = errors.New("display returned no registry")
	}
	if err != nil {
		s.rollback(gen)
		logger.Error("Failed to get Wayland registry", "error", err)
		return fmt.Errorf("%w: %w", ErrDiscovery, err)
	}

	s.mu.Lock()
	s.registry = registry
	s.mu.Unlock()
	registry.SetGlobalHandler(func(g Global) {
		s.handleGlobal(gen, g)
	})

	// The first roundtrip delivers every global announcement. Binding the
	// seat makes the compositor send its capabilities, which only the second
	// roundtrip is guaranteed to deliver.
	for i := 0; i < 2; i++ {
		stalled, err := s.roundtrip(ctx, display)
		if err != nil {
			if stalled {
				s.abandon(gen)
			} else {
				s.rollback(gen)
			}
			logger.Error("Wayland roundtrip failed during discovery", "error", err)
			return err
		}
	}

	s.mu.Lock()
	missing := s.missingLocked()
	if len(missing) == 0 {
		s.initialized = true
	}
	s.mu.Unlock()

	if len(missing) > 0 {
		s.rollback(gen)
		logger.Error("Failed to initialize all required Wayland interfaces", "missing", strings.Join(missing, ", "))
		return fmt.Errorf("%w: %s", ErrMissingCapability, strings.Join(missing, ", "))
	}

	logger.Debug("Wayland pointer lock initialized")
	return nil
}

func (s *State) handleGlobal(gen uint64, g Global) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen || s.registry == nil {
		return
	}
	bind, ok := binders[g.Interface]
	if !ok {
		return
	}
	if err := bind(s, g.Name); err != nil {
		logger.Warn("Failed to bind global", "interface", g.Interface, "name", g.Name, "error", err)
		return
	}
	logger.Debug("Bound global", "interface", g.Interface, "name", g.Name, "advertised_version", g.Version)
}

// missingLocked lists the required objects that are not bound. s.mu must be
// held.
func (s *State) missingLocked() []string {
	var missing []string
	if s.compositor == nil {
		missing = append(missing, InterfaceCompositor)
	}
	if s.seat == nil {
		missing = append(missing, InterfaceSeat)
	}
	if s.constraints == nil {
		missing = append(missing, InterfacePointerConstraints)
	}
	if s.relativeManager == nil {
		missing = append(missing, InterfaceRelativePointerManager)
	}
	if s.pointer == nil {
		missing = append(missing, "wl_pointer")
	}
	return missing
}

// rollback undoes a failed discovery attempt, unless a newer one has started.
func (s *State) rollback(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	s.gen++
	s.releaseLocked()
	s.display = nil
	s.surface = nil
}

// abandon forgets a failed discovery attempt without sending any request.
// It follows a stalled roundtrip, after which the connection is either
// closed or still owned by the abandoned dispatch.
func (s *State) abandon(gen uint64) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if gen != s.gen {
		return
	}
	s.gen++
	s.locked, s.relative, s.active = nil, nil, false
	s.pointer, s.pointerState = nil, deviceAbsent
	s.relativeManager, s.constraints = nil, nil
	s.seat, s.compositor = nil, nil
	s.registry, s.initialized = nil, false
	s.display, s.surface = nil, nil
}

// roundtrip runs display.Roundtrip but gives up when ctx is done, reporting
// the roundtrip as stalled. A stalled roundtrip is interrupted and waited
// for when the display is an Interrupter. Otherwise its goroutine lingers
// until the connection answers or dies, and nobody else may dispatch the
// connection meanwhile.
func (s *State) roundtrip(ctx context.Context, display Display) (stalled bool, err error) {
	if s.roundtripTimeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.roundtripTimeout)
		defer cancel()
	}
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("%w: %w", ErrRoundtrip, err)
	}

	done := make(chan error, 1)
	go func() {
		done <- display.Roundtrip()
	}()

	select {
	case err := <-done:
		if err != nil {
			return false, fmt.Errorf("%w: %w", ErrRoundtrip, err)
		}
		return false, nil
	case <-ctx.Done():
	}

	in, ok := display.(Interrupter)
	if !ok {
		logger.Warn("Abandoned Wayland roundtrip, the connection may be unusable", "error", ctx.Err())
		return true, fmt.Errorf("%w: %w", ErrRoundtrip, ctx.Err())
	}
	if ierr := in.Interrupt(); ierr != nil {
		logger.Warn("Failed to interrupt Wayland roundtrip", "error", ierr)
		return true, fmt.Errorf("%w: %w", ErrRoundtrip, ctx.Err())
	}
	<-done
	logger.Warn("Interrupted stalled Wayland roundtrip, the connection is closed", "error", ctx.Err())
	return true, fmt.Errorf("%w: %w", ErrRoundtrip, ctx.Err())
}
