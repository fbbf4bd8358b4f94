package audio

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/pkg/wav"
	"github.com/google/uuid"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ErrUnsupportedFormat is returned when encoded audio cannot be decoded
var ErrUnsupportedFormat = errors.New("unsupported audio format")

func init() {
	ffmpeg.LogCompiledCommand = false
}

// Encoded is provider output before decoding. SampleRate and Channels are
// only needed for headerless PCM.
type Encoded struct {
	Data       []byte
	Format     string
	SampleRate int
	Channels   int
}

// Decoder turns provider output into PCM in the caller's working format
type Decoder interface {
	Decode(ctx context.Context, in Encoded, sampleRate, channels int) (*Buffer, error)
}

// NativeDecoder handles WAV and raw PCM without external tools
type NativeDecoder struct{}

func (NativeDecoder) Decode(_ context.Context, in Encoded, sampleRate, channels int) (*Buffer, error) {
	buf, err := decodeNative(in)
	if err != nil {
		return nil, err
	}
	return Conform(buf, sampleRate, channels)
}

func decodeNative(in Encoded) (*Buffer, error) {
	switch strings.ToLower(in.Format) {
	case "pcm":
		if in.SampleRate <= 0 {
			return nil, fmt.Errorf("pcm input without sample rate")
		}
		ch := in.Channels
		if ch <= 0 {
			ch = 1
		}
		return &Buffer{Samples: wholeFrames(wav.BytesToSamples(in.Data), ch), SampleRate: in.SampleRate, Channels: ch}, nil
	case "wav", "":
		pcm, err := wav.Decode(in.Data)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrUnsupportedFormat, err)
		}
		return &Buffer{Samples: wholeFrames(pcm.Samples, pcm.Channels), SampleRate: pcm.SampleRate, Channels: pcm.Channels}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, in.Format)
	}
}

// FFmpegDecoder decodes WAV/PCM natively and shells out to ffmpeg for
// compressed formats. Intermediate files live in WorkDir and are removed
// before Decode returns.
type FFmpegDecoder struct {
	WorkDir string
}

func (d FFmpegDecoder) Decode(ctx context.Context, in Encoded, sampleRate, channels int) (*Buffer, error) {
	if buf, err := decodeNative(in); err == nil {
		return Conform(buf, sampleRate, channels)
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	ext := strings.ToLower(in.Format)
	if ext == "" {
		ext = "bin"
	}
	id := uuid.NewString()
	srcPath := filepath.Join(d.WorkDir, id+"."+ext)
	dstPath := filepath.Join(d.WorkDir, id+".wav")
	defer os.Remove(srcPath)
	defer os.Remove(dstPath)

	if err := os.WriteFile(srcPath, in.Data, 0o600); err != nil {
		return nil, fmt.Errorf("failed to write intermediate %s: %w", ext, err)
	}

	err := ffmpeg.Input(srcPath).
		Output(dstPath, ffmpeg.KwArgs{
			"loglevel": "error",
			"acodec":   "pcm_s16le",
			"ar":       sampleRate,
			"ac":       channels,
			"f":        "wav",
		}).
		OverWriteOutput().
		Run()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode of %s failed: %w", ext, err)
	}

	data, err := os.ReadFile(dstPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read decoded audio: %w", err)
	}
	pcm, err := wav.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("ffmpeg produced unreadable wav: %w", err)
	}
	logger.Debugf("Decoded %d bytes of %s into %d samples", len(in.Data), ext, len(pcm.Samples))

	return Conform(&Buffer{Samples: wholeFrames(pcm.Samples, pcm.Channels), SampleRate: pcm.SampleRate, Channels: pcm.Channels}, sampleRate, channels)
}

// wholeFrames drops a trailing partial frame left by a truncated stream
func wholeFrames(samples []int16, channels int) []int16 {
	if channels <= 0 {
		return samples
	}
	return samples[:len(samples)-len(samples)%channels]
}
