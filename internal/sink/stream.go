package sink

import (
	"encoding/binary"
	"errors"
	"fmt"
	"io"
	"math"
	"sync"

	"github.com/bnema/pointerlock/internal/logger"
	"google.golang.org/protobuf/encoding/protowire"
)

// Field numbers of a motion record.
const (
	fieldSeq       protowire.Number = 1
	fieldDx        protowire.Number = 2
	fieldDy        protowire.Number = 3
	fieldDxUnaccel protowire.Number = 4
	fieldDyUnaccel protowire.Number = 5
)

// MaxRecordSize bounds a record accepted by ReadMotion.
const MaxRecordSize = 1 << 16

var ErrRecordTooLarge = errors.New("motion record too large")

// Stream writes each sample as a protobuf record behind a 4-byte big-endian
// length prefix. Records carry a sequence number so readers can spot gaps.
type Stream struct {
	mu  sync.Mutex
	w   io.Writer
	seq uint64
	buf []byte
	err error
}

func NewStream(w io.Writer) *Stream {
	return &Stream{w: w}
}

// Motion has the pointerlock.MotionFunc signature. After the first write
// error the stream stops writing; the error is available from Err.
func (s *Stream) Motion(dx, dy, dxUnaccel, dyUnaccel float64) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return
	}

	s.seq++
	s.buf = appendRecord(s.buf[:0], s.seq, Motion{dx, dy, dxUnaccel, dyUnaccel})

	if _, err := s.w.Write(s.buf); err != nil {
		s.err = fmt.Errorf("failed to write motion record: %w", err)
		logger.Error("Motion stream stopped", "error", err)
	}
}

// Err returns the write error that stopped the stream, if any.
func (s *Stream) Err() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.err
}

func appendRecord(b []byte, seq uint64, m Motion) []byte {
	b = append(b, 0, 0, 0, 0)
	start := len(b)

	b = protowire.AppendTag(b, fieldSeq, protowire.VarintType)
	b = protowire.AppendVarint(b, seq)
	for _, f := range []struct {
		num protowire.Number
		v   float64
	}{
		{fieldDx, m.Dx},
		{fieldDy, m.Dy},
		{fieldDxUnaccel, m.DxUnaccel},
		{fieldDyUnaccel, m.DyUnaccel},
	} {
		if f.v == 0 {
			continue
		}
		b = protowire.AppendTag(b, f.num, protowire.Fixed64Type)
		b = protowire.AppendFixed64(b, math.Float64bits(f.v))
	}

	binary.BigEndian.PutUint32(b[start-4:start], uint32(len(b)-start))
	return b
}

// ReadMotion reads one record written by Stream. It returns io.EOF only
// when r is exhausted on a record boundary.
func ReadMotion(r io.Reader) (Motion, uint64, error) {
	var hdr [4]byte
	if _, err := io.ReadFull(r, hdr[:]); err != nil {
		if errors.Is(err, io.ErrUnexpectedEOF) {
			return Motion{}, 0, fmt.Errorf("failed to read length: %w", err)
		}
		return Motion{}, 0, err
	}

	n := binary.BigEndian.Uint32(hdr[:])
	if n > MaxRecordSize {
		return Motion{}, 0, fmt.Errorf("%w: %d bytes", ErrRecordTooLarge, n)
	}
	data := make([]byte, n)
	if _, err := io.ReadFull(r, data); err != nil {
		if err == io.EOF {
			err = io.ErrUnexpectedEOF
		}
		return Motion{}, 0, fmt.Errorf("failed to read record: %w", err)
	}

	return decodeRecord(data)
}

func decodeRecord(b []byte) (Motion, uint64, error) {
	var (
		m   Motion
		seq uint64
	)
	for len(b) > 0 {
		num, typ, n := protowire.ConsumeTag(b)
		if n < 0 {
			return Motion{}, 0, fmt.Errorf("bad tag: %w", protowire.ParseError(n))
		}
		b = b[n:]

		switch {
		case num == fieldSeq && typ == protowire.VarintType:
			v, n := protowire.ConsumeVarint(b)
			if n < 0 {
				return Motion{}, 0, fmt.Errorf("bad sequence: %w", protowire.ParseError(n))
			}
			seq = v
			b = b[n:]
		case num >= fieldDx && num <= fieldDyUnaccel && typ == protowire.Fixed64Type:
			v, n := protowire.ConsumeFixed64(b)
			if n < 0 {
				return Motion{}, 0, fmt.Errorf("bad field %d: %w", num, protowire.ParseError(n))
			}
			f := math.Float64frombits(v)
			switch num {
			case fieldDx:
				m.Dx = f
			case fieldDy:
				m.Dy = f
			case fieldDxUnaccel:
				m.DxUnaccel = f
			case fieldDyUnaccel:
				m.DyUnaccel = f
			}
			b = b[n:]
		default:
			n := protowire.ConsumeFieldValue(num, typ, b)
			if n < 0 {
				return Motion{}, 0, fmt.Errorf("bad field %d: %w", num, protowire.ParseError(n))
			}
			b = b[n:]
		}
	}
	return m, seq, nil
}
