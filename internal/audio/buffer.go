// Package audio holds the in-memory PCM representation used while assembling
// a dialogue, plus decoding, conforming and loudness helpers.
package audio

import (
	"errors"
	"fmt"
	"time"
)

// ErrFormatMismatch is returned when buffers with different layouts are joined
var ErrFormatMismatch = errors.New("audio format mismatch")

// Buffer is interleaved signed 16-bit PCM
type Buffer struct {
	Samples    []int16
	SampleRate int
	Channels   int
}

// NewBuffer returns an empty buffer with the given layout
func NewBuffer(sampleRate, channels int) *Buffer {
	return &Buffer{SampleRate: sampleRate, Channels: channels}
}

// Silence returns a zero-filled buffer lasting d
func Silence(d time.Duration, sampleRate, channels int) *Buffer {
	frames := FramesFor(d, sampleRate)
	return &Buffer{
		Samples:    make([]int16, frames*channels),
		SampleRate: sampleRate,
		Channels:   channels,
	}
}

// FramesFor converts a duration to a whole number of frames
func FramesFor(d time.Duration, sampleRate int) int {
	if d <= 0 || sampleRate <= 0 {
		return 0
	}
	return int(d.Nanoseconds() * int64(sampleRate) / int64(time.Second))
}

// Frames returns the number of sample frames
func (b *Buffer) Frames() int {
	if b == nil || b.Channels == 0 {
		return 0
	}
	return len(b.Samples) / b.Channels
}

// Duration returns the playback length
func (b *Buffer) Duration() time.Duration {
	if b == nil || b.SampleRate == 0 {
		return 0
	}
	return time.Duration(int64(b.Frames()) * int64(time.Second) / int64(b.SampleRate))
}

// SameFormat reports whether o can be appended to b without conversion
func (b *Buffer) SameFormat(o *Buffer) bool {
	return b.SampleRate == o.SampleRate && b.Channels == o.Channels
}

// Append adds o to the end of b
func (b *Buffer) Append(o *Buffer) error {
	if o == nil {
		return nil
	}
	if !b.SameFormat(o) {
		return fmt.Errorf("%w: %d Hz/%d ch vs %d Hz/%d ch", ErrFormatMismatch,
			b.SampleRate, b.Channels, o.SampleRate, o.Channels)
	}
	b.Samples = append(b.Samples, o.Samples...)
	return nil
}

// AppendSilence adds d of silence to the end of b
func (b *Buffer) AppendSilence(d time.Duration) {
	n := FramesFor(d, b.SampleRate) * b.Channels
	b.Samples = append(b.Samples, make([]int16, n)...)
}

// Slice returns frames [fromFrame, toFrame) as a new buffer. Bounds are clamped.
func (b *Buffer) Slice(fromFrame, toFrame int) *Buffer {
	total := b.Frames()
	if fromFrame < 0 {
		fromFrame = 0
	}
	if fromFrame > total {
		fromFrame = total
	}
	if toFrame > total {
		toFrame = total
	}
	if toFrame < fromFrame {
		toFrame = fromFrame
	}
	out := make([]int16, (toFrame-fromFrame)*b.Channels)
	copy(out, b.Samples[fromFrame*b.Channels:toFrame*b.Channels])
	return &Buffer{Samples: out, SampleRate: b.SampleRate, Channels: b.Channels}
}

// Clone returns a deep copy
func (b *Buffer) Clone() *Buffer {
	out := make([]int16, len(b.Samples))
	copy(out, b.Samples)
	return &Buffer{Samples: out, SampleRate: b.SampleRate, Channels: b.Channels}
}
