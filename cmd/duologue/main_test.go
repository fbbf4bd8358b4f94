package main

import (
	"path/filepath"
	"testing"
	"time"

	"github.com/dooshek/duologue/internal/assembler"
	"github.com/dooshek/duologue/internal/audio"
	"github.com/dooshek/duologue/internal/dialogue"
	"github.com/dooshek/duologue/internal/types"
)

func TestDefaultOutPath(t *testing.T) {
	out := types.OutputConfig{Dir: "renders", Format: "wav"}

	tests := []struct {
		script, format, want string
	}{
		{"scripts/episode1.txt", "", filepath.Join("renders", "episode1.wav")},
		{"scripts/episode1.txt", "MP3", filepath.Join("renders", "episode1.mp3")},
		{"-", "", filepath.Join("renders", "dialogue.wav")},
	}
	for _, tt := range tests {
		if got := defaultOutPath(out, tt.script, tt.format); got != tt.want {
			t.Errorf("defaultOutPath(%q, %q) = %q, want %q", tt.script, tt.format, got, tt.want)
		}
	}
}

func TestUsageOf(t *testing.T) {
	second := audio.Silence(time.Second, 8000, 1)
	clips := []assembler.Clip{
		{Ordinal: 0, Speaker: dialogue.Host, Provider: "minimax", Characters: 10, Audio: second},
		{Ordinal: 1, Speaker: dialogue.Guest, Provider: "aliyun", Characters: 5, Audio: second, Silence: true},
		{Ordinal: 2, Speaker: dialogue.Host, Provider: "minimax", Characters: 7, Audio: second},
	}

	usage := usageOf(clips)
	if len(usage) != 2 {
		t.Fatalf("got %d usage entries, want 2", len(usage))
	}

	mm := usage[0]
	if mm.Provider != "minimax" || mm.Characters != 17 || mm.Turns != 2 || mm.Failures != 0 {
		t.Errorf("unexpected minimax usage: %+v", mm)
	}
	if mm.AudioSeconds != 2 {
		t.Errorf("minimax audio = %v, want 2", mm.AudioSeconds)
	}

	ali := usage[1]
	if ali.Provider != "aliyun" || ali.Failures != 1 || ali.AudioSeconds != 0 {
		t.Errorf("unexpected aliyun usage: %+v", ali)
	}
}

func TestHumanSize(t *testing.T) {
	tests := map[int64]string{
		512:         "512 B",
		2048:        "2.0 KB",
		5 * 1 << 20: "5.0 MB",
	}
	for in, want := range tests {
		if got := humanSize(in); got != want {
			t.Errorf("humanSize(%d) = %q, want %q", in, got, want)
		}
	}
}
