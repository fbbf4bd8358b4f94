package audio

import (
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/dooshek/duologue/pkg/wav"
)

func tone(frames int, amplitude int16, rate, channels int) *Buffer {
	b := &Buffer{SampleRate: rate, Channels: channels, Samples: make([]int16, frames*channels)}
	for f := 0; f < frames; f++ {
		v := amplitude
		if f%2 == 1 {
			v = -amplitude
		}
		for c := 0; c < channels; c++ {
			b.Samples[f*channels+c] = v
		}
	}
	return b
}

func TestSilenceDuration(t *testing.T) {
	s := Silence(500*time.Millisecond, 24000, 2)
	if s.Frames() != 12000 {
		t.Fatalf("frames = %d, want 12000", s.Frames())
	}
	if s.Duration() != 500*time.Millisecond {
		t.Fatalf("duration = %v", s.Duration())
	}
	for _, v := range s.Samples {
		if v != 0 {
			t.Fatal("silence contains non-zero sample")
		}
	}
}

func TestAppendRejectsMismatchedFormat(t *testing.T) {
	a := NewBuffer(24000, 1)
	if err := a.Append(NewBuffer(16000, 1)); !errors.Is(err, ErrFormatMismatch) {
		t.Fatalf("got %v, want ErrFormatMismatch", err)
	}
}

func TestConformResamplesAndDownmixes(t *testing.T) {
	src := tone(22050, 1000, 22050, 2)
	out, err := Conform(src, 24000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if out.Channels != 1 || out.SampleRate != 24000 {
		t.Fatalf("format = %d Hz/%d ch", out.SampleRate, out.Channels)
	}
	if out.Frames() != 24000 {
		t.Fatalf("frames = %d, want 24000", out.Frames())
	}
	if len(src.Samples) != 44100 {
		t.Fatal("source buffer modified")
	}
}

func TestConformUpmixesMono(t *testing.T) {
	src := &Buffer{Samples: []int16{1, 2, 3}, SampleRate: 8000, Channels: 1}
	out, err := Conform(src, 8000, 2)
	if err != nil {
		t.Fatal(err)
	}
	want := []int16{1, 1, 2, 2, 3, 3}
	for i := range want {
		if out.Samples[i] != want[i] {
			t.Fatalf("samples = %v, want %v", out.Samples, want)
		}
	}
}

func TestNormalizeReachesTarget(t *testing.T) {
	quiet := tone(4800, 500, 24000, 1)
	loud := tone(4800, 12000, 24000, 1)

	Normalize(quiet, -20, -1)
	Normalize(loud, -20, -1)

	for name, b := range map[string]*Buffer{"quiet": quiet, "loud": loud} {
		if got := Measure(b).RMSDBFS; math.Abs(got+20) > 0.1 {
			t.Errorf("%s rms = %.2f dBFS, want -20", name, got)
		}
	}
}

func TestNormalizeRespectsCeiling(t *testing.T) {
	// one spike and mostly quiet samples: the RMS target would clip
	b := &Buffer{SampleRate: 8000, Channels: 1, Samples: make([]int16, 1000)}
	b.Samples[0] = 16000
	for i := 1; i < len(b.Samples); i++ {
		b.Samples[i] = 10
	}

	Normalize(b, -20, -1)

	if peak := Measure(b).PeakDBFS; peak > -0.99 {
		t.Fatalf("peak = %.2f dBFS exceeds ceiling", peak)
	}
}

func TestNormalizeLeavesSilenceAlone(t *testing.T) {
	s := Silence(100*time.Millisecond, 8000, 1)
	if gain := Normalize(s, -20, -1); gain != 0 {
		t.Fatalf("gain = %v on silence", gain)
	}
}

func TestNativeDecoderWAV(t *testing.T) {
	data, _ := wav.Encode([]int16{100, -100, 100, -100}, 1, 12000)
	buf, err := NativeDecoder{}.Decode(context.Background(), Encoded{Data: data, Format: "wav"}, 24000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if buf.SampleRate != 24000 || buf.Frames() != 8 {
		t.Fatalf("got %d Hz, %d frames", buf.SampleRate, buf.Frames())
	}
}

func TestNativeDecoderPCM(t *testing.T) {
	raw := wav.SamplesToBytes([]int16{7, 8, 9})
	buf, err := NativeDecoder{}.Decode(context.Background(), Encoded{Data: raw, Format: "pcm", SampleRate: 24000, Channels: 1}, 24000, 1)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf.Samples) != 3 || buf.Samples[2] != 9 {
		t.Fatalf("samples = %v", buf.Samples)
	}
}

func TestNativeDecoderRejectsMP3(t *testing.T) {
	_, err := NativeDecoder{}.Decode(context.Background(), Encoded{Data: []byte("ID3"), Format: "mp3"}, 24000, 1)
	if !errors.Is(err, ErrUnsupportedFormat) {
		t.Fatalf("got %v", err)
	}
}

func TestSliceClampsBounds(t *testing.T) {
	b := tone(10, 5, 8000, 1)
	if got := b.Slice(-3, 4).Frames(); got != 4 {
		t.Errorf("frames = %d", got)
	}
	if got := b.Slice(8, 99).Frames(); got != 2 {
		t.Errorf("frames = %d", got)
	}
	if got := b.Slice(6, 2).Frames(); got != 0 {
		t.Errorf("frames = %d", got)
	}
}

func TestNativeDecoderDropsPartialFrame(t *testing.T) {
	raw := wav.SamplesToBytes([]int16{1, 2, 3})
	buf, err := NativeDecoder{}.Decode(context.Background(), Encoded{Data: raw, Format: "pcm", SampleRate: 24000, Channels: 2}, 24000, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(buf.Samples)%buf.Channels != 0 {
		t.Fatalf("buffer carries a partial frame: %d samples for %d channels", len(buf.Samples), buf.Channels)
	}
	if buf.Frames() != 1 || buf.Samples[0] != 1 || buf.Samples[1] != 2 {
		t.Fatalf("samples = %v", buf.Samples)
	}
}

func TestConformDropsPartialFrame(t *testing.T) {
	src := &Buffer{Samples: []int16{10, 20, 30, 40, 50}, SampleRate: 8000, Channels: 2}
	out, err := Conform(src, 8000, 2)
	if err != nil {
		t.Fatal(err)
	}
	if len(out.Samples) != 4 {
		t.Fatalf("samples = %v, want 4 whole-frame samples", out.Samples)
	}

	// Appending after the trimmed clip keeps left and right aligned
	next := &Buffer{Samples: []int16{-1, 1}, SampleRate: 8000, Channels: 2}
	if err := out.Append(next); err != nil {
		t.Fatal(err)
	}
	if out.Samples[4] != -1 || out.Samples[5] != 1 {
		t.Errorf("interleave shifted: %v", out.Samples)
	}
	if len(src.Samples) != 5 {
		t.Error("input was modified")
	}
}
