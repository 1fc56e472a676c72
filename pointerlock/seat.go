package pointerlock

import "github.com/bnema/pointerlock/internal/logger"

// deviceState tracks one seat device class.
type deviceState int

const (
	deviceAbsent deviceState = iota
	deviceAcquired
	deviceReleased
)

func (d deviceState) String() string {
	switch d {
	case deviceAbsent:
		return "absent"
	case deviceAcquired:
		return "acquired"
	case deviceReleased:
		return "released"
	default:
		return "unknown"
	}
}

// handleCapabilities acquires a pointer when the seat gains the pointer
// capability and releases it, along with any lock, when the seat loses it.
func (s *State) handleCapabilities(seat Seat, caps uint32) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.seat == nil || s.seat != seat {
		return
	}

	hasPointer := caps&CapabilityPointer != 0
	switch {
	case hasPointer && s.pointer == nil:
		p, err := seat.GetPointer()
		if err != nil {
			logger.Warn("Failed to get pointer from seat", "error", err)
			return
		}
		s.pointer = p
		s.pointerState = deviceAcquired
		logger.Debug("Acquired pointer device", "id", p.ID())

	case !hasPointer && s.pointer != nil:
		if s.unlockLocked() {
			logger.Warn("Seat lost its pointer, lock released")
		}
		if err := s.pointer.Release(); err != nil {
			logger.Debug("Failed to release pointer", "error", err)
		}
		s.pointer = nil
		s.pointerState = deviceReleased
		logger.Info("Pointer capability removed from seat")
	}
}
