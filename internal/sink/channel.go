package sink

import "sync/atomic"

// Channel hands samples to a consumer goroutine. Sends never block the
// dispatch thread: when the channel is full the sample is dropped and counted.
type Channel struct {
	ch      chan<- Motion
	dropped atomic.Uint64
}

func NewChannel(ch chan<- Motion) *Channel {
	return &Channel{ch: ch}
}

// Motion has the pointerlock.MotionFunc signature.
func (c *Channel) Motion(dx, dy, dxUnaccel, dyUnaccel float64) {
	select {
	case c.ch <- Motion{Dx: dx, Dy: dy, DxUnaccel: dxUnaccel, DyUnaccel: dyUnaccel}:
	default:
		c.dropped.Add(1)
	}
}

// Dropped reports how many samples were discarded on a full channel.
func (c *Channel) Dropped() uint64 {
	return c.dropped.Load()
}
