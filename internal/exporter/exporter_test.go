package exporter

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dooshek/duologue/internal/audio"
	"github.com/dooshek/duologue/pkg/wav"
)

func tone() *audio.Buffer {
	b := audio.Silence(250*time.Millisecond, 8000, 1)
	for i := range b.Samples {
		b.Samples[i] = int16(i % 100)
	}
	return b
}

func TestExportWAV(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dialogue.wav")

	art, err := Exporter{}.Export(context.Background(), tone(), path, "")
	if err != nil {
		t.Fatal(err)
	}
	if art.Format != "wav" || art.Duration != 250*time.Millisecond {
		t.Errorf("artifact = %+v", art)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatal(err)
	}
	if int64(len(data)) != art.Size {
		t.Errorf("size = %d, file has %d bytes", art.Size, len(data))
	}
	pcm, err := wav.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if pcm.SampleRate != 8000 || pcm.Channels != 1 || len(pcm.Samples) != 2000 || pcm.Samples[99] != 99 {
		t.Errorf("decoded %d Hz, %d ch, %d samples", pcm.SampleRate, pcm.Channels, len(pcm.Samples))
	}
}

func TestExportPCM(t *testing.T) {
	path := filepath.Join(t.TempDir(), "dialogue.raw")

	art, err := Exporter{}.Export(context.Background(), tone(), path, "PCM")
	if err != nil {
		t.Fatal(err)
	}
	if art.Format != "pcm" || art.Size != 4000 {
		t.Errorf("artifact = %+v", art)
	}
}

func TestExportUnsupportedFormat(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "dialogue.xyz")

	_, err := Exporter{}.Export(context.Background(), tone(), path, "")

	var exportErr *ExportError
	if !errors.As(err, &exportErr) || exportErr.Path != path {
		t.Fatalf("error = %v, want *ExportError for %s", err, path)
	}
	if !errors.Is(err, audio.ErrUnsupportedFormat) {
		t.Errorf("error does not wrap ErrUnsupportedFormat: %v", err)
	}
	if entries, _ := os.ReadDir(dir); len(entries) != 0 {
		t.Errorf("left %d files behind", len(entries))
	}
}

func TestExportUnwritableDestination(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "file")
	if err := os.WriteFile(blocker, []byte("x"), 0o644); err != nil {
		t.Fatal(err)
	}

	_, err := Exporter{}.Export(context.Background(), tone(), filepath.Join(blocker, "out.wav"), "wav")
	var exportErr *ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("error = %v, want *ExportError", err)
	}
}

func TestExportEmptyBuffer(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.wav")
	if _, err := (Exporter{}).Export(context.Background(), audio.NewBuffer(8000, 1), path, ""); err == nil {
		t.Fatal("expected error for empty buffer")
	}
	if _, err := os.Stat(path); !os.IsNotExist(err) {
		t.Error("file created for empty buffer")
	}
}

func TestFormatFor(t *testing.T) {
	tests := []struct{ path, format, want string }{
		{"a.mp3", "", "mp3"},
		{"a.MP3", "", "mp3"},
		{"a.wav", "flac", "flac"},
		{"noext", "", "wav"},
	}
	for _, tt := range tests {
		if got := FormatFor(tt.path, tt.format); got != tt.want {
			t.Errorf("FormatFor(%q, %q) = %q, want %q", tt.path, tt.format, got, tt.want)
		}
	}
}
