package sink

import (
	"errors"
	"fmt"
	"io"
	"sync"
	"time"

	"github.com/bnema/pointerlock/internal/logger"
)

var ErrBatchClosed = errors.New("batch writer closed")

// BatchWriter coalesces small writes. A batch is handed to the underlying
// writer when the next write would push it past maxSize, maxDelay after the
// batch was started, or on Flush and Close.
//
// The first failed write is sticky: its batch is dropped, nothing is written
// afterwards, and every later Write, Flush and Close returns the error.
type BatchWriter struct {
	mu     sync.Mutex
	out    io.Writer
	batch  []byte
	limit  int
	delay  time.Duration
	timer  *time.Timer
	epoch  uint64
	err    error
	closed bool
}

func NewBatchWriter(w io.Writer, maxDelay time.Duration, maxSize int) *BatchWriter {
	return &BatchWriter{
		out:   w,
		batch: make([]byte, 0, maxSize),
		limit: maxSize,
		delay: maxDelay,
	}
}

func (bw *BatchWriter) Write(p []byte) (int, error) {
	bw.mu.Lock()
	defer bw.mu.Unlock()

	switch {
	case bw.err != nil:
		return 0, bw.err
	case bw.closed:
		return 0, ErrBatchClosed
	}

	if len(bw.batch)+len(p) > bw.limit {
		if err := bw.writeOutLocked(); err != nil {
			return 0, err
		}
	}
	bw.batch = append(bw.batch, p...)

	if bw.timer == nil {
		epoch := bw.epoch
		bw.timer = time.AfterFunc(bw.delay, func() { bw.expire(epoch) })
	}
	return len(p), nil
}

// Flush writes the pending batch now.
func (bw *BatchWriter) Flush() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.err != nil {
		return bw.err
	}
	return bw.writeOutLocked()
}

// Close writes what is left and rejects later writes. It does not close the
// underlying writer.
func (bw *BatchWriter) Close() error {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if bw.closed || bw.err != nil {
		bw.closed = true
		return bw.err
	}
	bw.closed = true
	return bw.writeOutLocked()
}

// expire is the timer callback of the batch started in epoch. A batch that
// was already written out has moved the epoch on.
func (bw *BatchWriter) expire(epoch uint64) {
	bw.mu.Lock()
	defer bw.mu.Unlock()
	if epoch != bw.epoch || bw.err != nil {
		return
	}
	if err := bw.writeOutLocked(); err != nil {
		logger.Warn("Delayed batch write failed", "error", err)
	}
}

// writeOutLocked ends the current batch and writes it. bw.mu must be held.
func (bw *BatchWriter) writeOutLocked() error {
	bw.epoch++
	if bw.timer != nil {
		bw.timer.Stop()
		bw.timer = nil
	}
	if len(bw.batch) == 0 {
		return nil
	}

	_, err := bw.out.Write(bw.batch)
	bw.batch = bw.batch[:0]
	if err != nil {
		bw.err = fmt.Errorf("batched write failed: %w", err)
	}
	return bw.err
}
