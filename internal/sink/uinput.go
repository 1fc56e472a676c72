package sink

import (
	"fmt"
	"math"
	"sync"

	"github.com/ThomasT75/uinput"
	"github.com/bnema/pointerlock/internal/logger"
)

// Mover is the part of a uinput virtual mouse the relay needs.
type Mover interface {
	Move(x, y int32) error
	Close() error
}

// UinputOptions tune how deltas become integer mouse moves.
type UinputOptions struct {
	// Sensitivity scales every delta. Zero means 1.
	Sensitivity float64
	// Unaccelerated forwards dx_unaccel/dy_unaccel instead of dx/dy.
	Unaccelerated bool
}

// Uinput replays relative motion on a virtual mouse. Fractions of a pixel are
// carried over to the next sample so slow movement is not lost.
type Uinput struct {
	mu     sync.Mutex
	mouse  Mover
	opts   UinputOptions
	remX   float64
	remY   float64
	closed bool
}

// OpenUinput creates a virtual mouse on the given uinput device node.
func OpenUinput(path, name string, opts UinputOptions) (*Uinput, error) {
	mouse, err := uinput.CreateMouse(path, []byte(name))
	if err != nil {
		return nil, fmt.Errorf("failed to create virtual mouse: %w", err)
	}
	logger.Infof("Created virtual mouse %q on %s", name, path)
	return NewUinput(mouse, opts), nil
}

// NewUinput wraps an existing mover.
func NewUinput(mouse Mover, opts UinputOptions) *Uinput {
	if opts.Sensitivity == 0 {
		opts.Sensitivity = 1
	}
	return &Uinput{mouse: mouse, opts: opts}
}

// Motion has the pointerlock.MotionFunc signature.
func (u *Uinput) Motion(dx, dy, dxUnaccel, dyUnaccel float64) {
	if u.opts.Unaccelerated {
		dx, dy = dxUnaccel, dyUnaccel
	}

	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return
	}

	u.remX += dx * u.opts.Sensitivity
	u.remY += dy * u.opts.Sensitivity
	x := math.Trunc(u.remX)
	y := math.Trunc(u.remY)
	u.remX -= x
	u.remY -= y

	if x == 0 && y == 0 {
		return
	}
	if err := u.mouse.Move(int32(x), int32(y)); err != nil {
		logger.Warn("Failed to move virtual mouse", "error", err)
	}
}

// Close destroys the virtual mouse. Later samples are ignored.
func (u *Uinput) Close() error {
	u.mu.Lock()
	defer u.mu.Unlock()
	if u.closed {
		return nil
	}
	u.closed = true
	return u.mouse.Close()
}
