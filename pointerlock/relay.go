package pointerlock

import "time"

// MotionFunc receives relative motion: the accelerated deltas followed by the
// unaccelerated ones, in surface-local units.
type MotionFunc func(dx, dy, dxUnaccel, dyUnaccel float64)

// MotionEvent is a raw relative_motion event. The deltas arrive as 24.8
// fixed-point numbers and are already converted, so every value is a
// multiple of 1/256.
type MotionEvent struct {
	UtimeHi   uint32
	UtimeLo   uint32
	Dx        float64
	Dy        float64
	DxUnaccel float64
	DyUnaccel float64
}

// Time returns the event timestamp, which has microsecond granularity and an
// undefined base.
func (e MotionEvent) Time() time.Duration {
	us := uint64(e.UtimeHi)<<32 | uint64(e.UtimeLo)
	return time.Duration(us) * time.Microsecond
}

// SetMotionSink replaces the sink. A nil sink drops every event. Events are
// never queued: whatever arrives while no sink is set is lost.
func (s *State) SetMotionSink(fn MotionFunc) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.sink = fn
}

// handleMotion forwards one event from rel, if rel is still the live relative
// pointer. The sink runs without s.mu held so it may call back into s.
func (s *State) handleMotion(rel RelativePointer, e MotionEvent) {
	s.mu.Lock()
	if s.relative != rel {
		s.mu.Unlock()
		return
	}
	sink := s.sink
	s.mu.Unlock()

	if sink == nil {
		return
	}
	sink(e.Dx, e.Dy, e.DxUnaccel, e.DyUnaccel)
}
