package pointerlock

import (
	"errors"
	"fmt"
	"math"

	"github.com/bnema/pointerlock/internal/logger"
)

// Lock locks the pointer to the surface and, when a relative pointer manager
// is bound, starts relaying relative motion to the sink. Failing to create
// the relative pointer is logged but does not fail the lock.
func (s *State) Lock() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.constraints == nil || s.pointer == nil || s.surface == nil {
		logger.Error("Pointer constraints, pointer, or surface not available")
		return ErrNotReady
	}
	if s.locked != nil {
		return ErrAlreadyLocked
	}

	region, err := s.lockRegionLocked()
	if err != nil {
		logger.Error("Failed to create lock region", "error", err)
		return fmt.Errorf("%w: %w", ErrLockFailed, err)
	}
	if region != nil {
		defer func() {
			if err := region.Destroy(); err != nil {
				logger.Debug("Failed to destroy lock region", "error", err)
			}
		}()
	}

	locked, err := s.constraints.LockPointer(s.surface, s.pointer, region, s.lifetimeOrDefault())
	if err == nil && locked == nil {
		err = errors.New("compositor returned no locked pointer")
	}
	if err != nil {
		logger.Error("Failed to lock pointer", "error", err)
		return fmt.Errorf("%w: %w", ErrLockFailed, err)
	}

	s.locked = locked
	s.active = false
	locked.SetLockedHandler(func() {
		s.setActive(locked, true)
	})
	locked.SetUnlockedHandler(func() {
		s.setActive(locked, false)
	})

	s.subscribeLocked()

	logger.Info("Pointer locked", "lifetime", s.lifetimeOrDefault(), "relative_motion", s.relative != nil)
	return nil
}

// lockRegionLocked builds the transient region spanning the whole signed
// 32-bit plane. Without a compositor it returns nil, which the protocol
// treats as the entire surface.
func (s *State) lockRegionLocked() (Region, error) {
	if s.compositor == nil {
		return nil, nil
	}
	region, err := s.compositor.CreateRegion()
	if err != nil {
		return nil, err
	}
	if err := region.Add(0, 0, math.MaxInt32, math.MaxInt32); err != nil {
		if derr := region.Destroy(); derr != nil {
			logger.Debug("Failed to destroy lock region", "error", derr)
		}
		return nil, err
	}
	return region, nil
}

// subscribeLocked creates the relative pointer for the current lock. s.mu
// must be held.
func (s *State) subscribeLocked() {
	if s.relativeManager == nil {
		logger.Debug("No relative pointer manager, pointer locked without relative motion")
		return
	}

	rel, err := s.relativeManager.GetRelativePointer(s.pointer)
	if err == nil && rel == nil {
		err = errors.New("compositor returned no relative pointer")
	}
	if err != nil {
		logger.Error("Failed to create relative pointer", "error", err)
		return
	}

	rel.SetRelativeMotionHandler(func(e MotionEvent) {
		s.handleMotion(rel, e)
	})
	s.relative = rel
}

func (s *State) setActive(locked LockedPointer, active bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.locked != locked {
		return
	}
	s.active = active
	logger.Debug("Pointer lock state changed", "active", active)
}

// Unlock destroys the lock and the relative pointer. It is safe to call when
// nothing is locked.
func (s *State) Unlock() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.unlockLocked() {
		logger.Info("Pointer unlocked and relative pointer disabled")
	}
}

// unlockLocked reports whether anything was released. s.mu must be held.
func (s *State) unlockLocked() bool {
	released := false
	if s.locked != nil {
		if err := s.locked.Destroy(); err != nil {
			logger.Warn("Failed to destroy locked pointer", "error", err)
		}
		s.locked = nil
		released = true
	}
	if s.relative != nil {
		if err := s.relative.Destroy(); err != nil {
			logger.Warn("Failed to destroy relative pointer", "error", err)
		}
		s.relative = nil
		released = true
	}
	s.active = false
	return released
}

// Toggle unlocks when locked and locks otherwise. It reports whether the
// pointer is locked afterwards.
func (s *State) Toggle() (bool, error) {
	if s.Locked() {
		s.Unlock()
		return false, nil
	}
	if err := s.Lock(); err != nil {
		return false, err
	}
	return true, nil
}
