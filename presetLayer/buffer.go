package presetLayer

import (
	"errors"

	"github.com/e1732a364fed/blinkpipe/utils"
)

// MeasureFunc tells the length of the frame at the head of pending.
// (0, nil) or an error wrapping utils.ErrFrameTooShort means the length can't be decided yet.
// Any other error is fatal to the stream.
type MeasureFunc func(pending []byte) (int, error)

// FrameFunc receives one whole frame. The frame is only valid during the call.
type FrameFunc func(frame []byte) error

// AdvancedBuffer reassembles frames from a stream cut at arbitrary places.
// However the stream is split into Put calls, the same frames come out, in order, exactly once.
//
// It is not safe for concurrent use; a preset owns one per direction.
type AdvancedBuffer struct {
	measure     MeasureFunc
	onFrame     FrameFunc
	maxFrameLen int

	pending []byte
}

func NewAdvancedBuffer(maxFrameLen int, measure MeasureFunc, onFrame FrameFunc) *AdvancedBuffer {
	return &AdvancedBuffer{
		measure:     measure,
		onFrame:     onFrame,
		maxFrameLen: maxFrameLen,
	}
}

// Put feeds p and calls the FrameFunc for every frame that becomes complete.
//
// On error the pending data is dropped; the stream can't be resynchronized anyway.
func (ab *AdvancedBuffer) Put(p []byte) error {
	buf := p
	if len(ab.pending) > 0 {
		ab.pending = append(ab.pending, p...)
		buf = ab.pending
	}

	off, err := ab.split(buf)
	if err != nil {
		ab.Reset()
		return err
	}

	rest := buf[off:]
	if len(rest) > ab.maxFrameLen {
		ab.Reset()
		return utils.ErrInErr{ErrDesc: "pending data over frame limit", ErrDetail: utils.ErrFrameTooLarge, Data: len(rest)}
	}

	//frames given to onFrame pointed into buf, they are dead now, so we can compact.
	ab.pending = append(ab.pending[:0], rest...)
	return nil
}

// split returns how many bytes at the head of buf were delivered as frames.
func (ab *AdvancedBuffer) split(buf []byte) (off int, err error) {
	for off < len(buf) {
		rest := buf[off:]

		n, err := ab.measure(rest)
		if err != nil {
			if errors.Is(err, utils.ErrFrameTooShort) {
				return off, nil
			}
			return off, err
		}
		if n <= 0 {
			return off, nil
		}
		if n > ab.maxFrameLen {
			return off, utils.ErrInErr{ErrDesc: "frame over limit", ErrDetail: utils.ErrFrameTooLarge, Data: n}
		}
		if n > len(rest) {
			return off, nil
		}

		off += n
		if err := ab.onFrame(rest[:n]); err != nil {
			return off, err
		}
	}
	return
}

// Len returns the number of bytes waiting for the rest of their frame.
func (ab *AdvancedBuffer) Len() int {
	return len(ab.pending)
}

func (ab *AdvancedBuffer) Reset() {
	ab.pending = nil
}
