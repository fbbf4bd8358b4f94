// Package exporter writes a rendered dialogue to its final file.
package exporter

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/dooshek/duologue/internal/audio"
	"github.com/dooshek/duologue/internal/fileops"
	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/pkg/wav"
	"github.com/google/uuid"
	ffmpeg "github.com/u2takey/ffmpeg-go"
)

// ExportError reports a failure to produce the output file. No partial file
// is left at Path.
type ExportError struct {
	Path string
	Err  error
}

func (e *ExportError) Error() string {
	return fmt.Sprintf("export %s: %v", e.Path, e.Err)
}

func (e *ExportError) Unwrap() error {
	return e.Err
}

// Artifact describes a written file
type Artifact struct {
	Path     string
	Format   string
	Size     int64
	Duration time.Duration
}

type encoding struct {
	muxer string
	codec string
}

// encoded formats go through ffmpeg
var encodings = map[string]encoding{
	"mp3":  {muxer: "mp3", codec: "libmp3lame"},
	"ogg":  {muxer: "ogg", codec: "libvorbis"},
	"opus": {muxer: "opus", codec: "libopus"},
	"flac": {muxer: "flac", codec: "flac"},
	"aac":  {muxer: "adts", codec: "aac"},
}

// Formats lists every format Export accepts
func Formats() []string {
	return []string{"wav", "pcm", "mp3", "ogg", "opus", "flac", "aac"}
}

// Exporter writes artifacts. Intermediate files for encoded formats live in
// WorkDir, or the system temp directory when it is empty.
type Exporter struct {
	WorkDir string
}

// FormatFor returns format, or the one implied by the path extension, or wav
func FormatFor(path, format string) string {
	if format != "" {
		return strings.ToLower(format)
	}
	if ext := strings.TrimPrefix(filepath.Ext(path), "."); ext != "" {
		return strings.ToLower(ext)
	}
	return "wav"
}

// Export writes buf to path in the given format. The file appears
// atomically or not at all.
func (e Exporter) Export(ctx context.Context, buf *audio.Buffer, path, format string) (*Artifact, error) {
	format = FormatFor(path, format)

	if buf == nil || buf.Frames() == 0 {
		return nil, &ExportError{Path: path, Err: errors.New("no audio to export")}
	}
	if err := ctx.Err(); err != nil {
		return nil, &ExportError{Path: path, Err: err}
	}

	var err error
	switch format {
	case "wav":
		err = e.writeWAV(buf, path)
	case "pcm":
		err = fileops.WriteFileAtomic(path, wav.SamplesToBytes(buf.Samples), 0o644)
	default:
		enc, ok := encodings[format]
		if !ok {
			return nil, &ExportError{Path: path, Err: fmt.Errorf("%w: %s (supported: %v)", audio.ErrUnsupportedFormat, format, Formats())}
		}
		err = e.encode(ctx, buf, path, enc)
	}
	if err != nil {
		return nil, &ExportError{Path: path, Err: err}
	}

	info, err := os.Stat(path)
	if err != nil {
		return nil, &ExportError{Path: path, Err: err}
	}

	logger.Infof("Exported %s (%s, %s)", path, format, buf.Duration().Round(time.Millisecond))
	return &Artifact{
		Path:     path,
		Format:   format,
		Size:     info.Size(),
		Duration: buf.Duration(),
	}, nil
}

func (e Exporter) writeWAV(buf *audio.Buffer, path string) error {
	data, err := wav.Encode(buf.Samples, buf.Channels, buf.SampleRate)
	if err != nil {
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	return fileops.WriteFileAtomic(path, data, 0o644)
}

// encode converts through an intermediate WAV and moves the result into place
func (e Exporter) encode(ctx context.Context, buf *audio.Buffer, path string, enc encoding) error {
	dir := e.WorkDir
	if dir == "" {
		dir = os.TempDir()
	}

	id := uuid.NewString()
	srcPath := filepath.Join(dir, id+".wav")
	dstPath := filepath.Join(dir, id+"."+enc.muxer)
	defer os.Remove(srcPath)
	defer os.Remove(dstPath)

	data, err := wav.Encode(buf.Samples, buf.Channels, buf.SampleRate)
	if err != nil {
		return fmt.Errorf("failed to encode wav: %w", err)
	}
	if err := os.WriteFile(srcPath, data, 0o600); err != nil {
		return fmt.Errorf("failed to write intermediate wav: %w", err)
	}

	err = ffmpeg.Input(srcPath).
		Output(dstPath, ffmpeg.KwArgs{
			"loglevel": "error",
			"acodec":   enc.codec,
			"f":        enc.muxer,
		}).
		OverWriteOutput().
		Run()
	if err != nil {
		return fmt.Errorf("ffmpeg %s encoding failed: %w", enc.codec, err)
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	encoded, err := os.Open(dstPath)
	if err != nil {
		return fmt.Errorf("failed to open encoded audio: %w", err)
	}
	defer encoded.Close()

	return fileops.ReplaceFile(path, 0o644, func(f *os.File) error {
		_, err := io.Copy(f, encoded)
		return err
	})
}
