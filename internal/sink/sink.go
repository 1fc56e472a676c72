// Package sink provides destinations for relative motion relayed by a
// pointerlock.State. Every constructor returns a pointerlock.MotionFunc (or a
// type with a Motion method that can be passed as one).
package sink

import (
	"github.com/bnema/pointerlock/internal/logger"
	"github.com/bnema/pointerlock/pointerlock"
)

// Motion is one relative motion sample in surface-local pixels.
type Motion struct {
	Dx, Dy               float64
	DxUnaccel, DyUnaccel float64
}

// Log writes every sample at debug level.
func Log() pointerlock.MotionFunc {
	return func(dx, dy, dxUnaccel, dyUnaccel float64) {
		logger.Debug("Relative motion",
			"dx", dx, "dy", dy,
			"dx_unaccel", dxUnaccel, "dy_unaccel", dyUnaccel)
	}
}

// Tee forwards each sample to every non-nil sink, in order.
func Tee(sinks ...pointerlock.MotionFunc) pointerlock.MotionFunc {
	var live []pointerlock.MotionFunc
	for _, s := range sinks {
		if s != nil {
			live = append(live, s)
		}
	}
	return func(dx, dy, dxUnaccel, dyUnaccel float64) {
		for _, s := range live {
			s(dx, dy, dxUnaccel, dyUnaccel)
		}
	}
}
