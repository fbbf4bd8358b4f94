package pipeline

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dooshek/duologue/internal/audio"
	"github.com/dooshek/duologue/internal/dialogue"
	"github.com/dooshek/duologue/internal/exporter"
	"github.com/dooshek/duologue/internal/fileops"
	"github.com/dooshek/duologue/internal/tts"
	"github.com/dooshek/duologue/internal/types"
	"github.com/dooshek/duologue/pkg/wav"
)

type toneAdapter struct {
	name  string
	fail  bool
	calls atomic.Int32
}

func (a *toneAdapter) Synthesize(_ context.Context, text string, _ tts.VoiceProfile, _ tts.AudioFormat) tts.Result {
	a.calls.Add(1)
	if a.fail {
		return tts.Result{OK: false, Provider: a.name, Status: 503, Err: errors.New("unavailable")}
	}
	samples := make([]int16, 80*len(text))
	for i := range samples {
		samples[i] = 1200
	}
	data, _ := wav.Encode(samples, 1, 8000)
	return tts.Result{OK: true, Provider: a.name, Format: tts.FormatWAV, Audio: data}
}

func (a *toneAdapter) Name() string        { return a.name }
func (a *toneAdapter) Voices() []tts.Voice { return nil }

type fixture struct {
	pipeline *Pipeline
	host     *toneAdapter
	guest    *toneAdapter
	tempRoot string
	outDir   string
}

func newFixture(t *testing.T, guestFails bool) *fixture {
	t.Helper()
	off := false
	cfg := types.Config{
		Dialogue: types.DialogueConfig{
			SampleRate: 8000,
			Channels:   1,
			Normalize:  &off,
		},
	}

	f := &fixture{
		host:     &toneAdapter{name: "host-tts"},
		guest:    &toneAdapter{name: "guest-tts", fail: guestFails},
		tempRoot: t.TempDir(),
		outDir:   t.TempDir(),
	}
	p, err := New(cfg,
		WithAdapters(f.host, f.guest),
		WithDecoder(audio.NativeDecoder{}),
		WithFileOps(fileops.NewFileOps(t.TempDir(), f.tempRoot)),
	)
	if err != nil {
		t.Fatal(err)
	}
	f.pipeline = p
	return f
}

func (f *fixture) assertWorkDirsReleased(t *testing.T) {
	t.Helper()
	entries, err := os.ReadDir(f.tempRoot)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 0 {
		t.Errorf("%d work directories left behind", len(entries))
	}
}

const script = "[Host]Hello there.\n[Guest]Hi, thanks for having me.\n[Host]Great to have you."

func TestRunWritesArtifact(t *testing.T) {
	f := newFixture(t, false)
	out := filepath.Join(f.outDir, "dialogue.wav")

	report, err := f.pipeline.Run(context.Background(), script, out, "")
	if err != nil {
		t.Fatal(err)
	}

	if report.Turns != 3 || report.Failures != 0 {
		t.Errorf("report = %+v", report)
	}
	textFrames := 80 * (len("Hello there.") + len("Hi, thanks for having me.") + len("Great to have you."))
	gapFrames := 2 * audio.FramesFor(800*time.Millisecond, 8000)
	want := time.Duration(textFrames+gapFrames) * time.Second / 8000
	if report.Artifact.Duration != want {
		t.Errorf("duration = %s, want %s", report.Artifact.Duration, want)
	}

	data, err := os.ReadFile(out)
	if err != nil {
		t.Fatal(err)
	}
	pcm, err := wav.Decode(data)
	if err != nil {
		t.Fatal(err)
	}
	if len(pcm.Samples) != textFrames+gapFrames {
		t.Errorf("file has %d samples, want %d", len(pcm.Samples), textFrames+gapFrames)
	}
	f.assertWorkDirsReleased(t)
}

func TestRunContinuesPastFailedTurn(t *testing.T) {
	f := newFixture(t, true)
	out := filepath.Join(f.outDir, "dialogue.wav")

	report, err := f.pipeline.Run(context.Background(), script, out, "wav")
	if err != nil {
		t.Fatal(err)
	}
	if report.Failures != 1 || len(report.Timeline.Segments) != 3 {
		t.Errorf("failures = %d, segments = %d", report.Failures, len(report.Timeline.Segments))
	}
	if !report.Timeline.Segments[1].Clip.Silence {
		t.Error("failed guest turn is not a placeholder")
	}
	if _, err := os.Stat(out); err != nil {
		t.Errorf("artifact missing: %v", err)
	}
}

func TestRunRejectsUntaggedScript(t *testing.T) {
	f := newFixture(t, false)
	out := filepath.Join(f.outDir, "dialogue.wav")

	_, err := f.pipeline.Run(context.Background(), "just plain text", out, "")

	var parseErr *dialogue.ParseError
	if !errors.As(err, &parseErr) {
		t.Fatalf("error = %v, want *dialogue.ParseError", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("artifact written for an unparseable script")
	}
	if f.host.calls.Load()+f.guest.calls.Load() != 0 {
		t.Error("adapters called for an unparseable script")
	}
}

func TestRunCancelled(t *testing.T) {
	f := newFixture(t, false)
	out := filepath.Join(f.outDir, "dialogue.wav")

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := f.pipeline.Run(ctx, script, out, ""); !errors.Is(err, context.Canceled) {
		t.Fatalf("error = %v, want context.Canceled", err)
	}
	if _, err := os.Stat(out); !os.IsNotExist(err) {
		t.Error("artifact written after cancellation")
	}
	f.assertWorkDirsReleased(t)
}

func TestRunExportFailureReleasesWorkDir(t *testing.T) {
	f := newFixture(t, false)
	out := filepath.Join(f.outDir, "dialogue.xyz")

	_, err := f.pipeline.Run(context.Background(), script, out, "")
	var exportErr *exporter.ExportError
	if !errors.As(err, &exportErr) {
		t.Fatalf("error = %v, want *exporter.ExportError", err)
	}
	f.assertWorkDirsReleased(t)
}

func TestNewUnknownProvider(t *testing.T) {
	cfg := types.Config{Dialogue: types.DialogueConfig{
		Host:  types.SpeakerConfig{Provider: "nope"},
		Guest: types.SpeakerConfig{Provider: types.ProviderSiliconFlow},
	}}
	_, err := New(cfg, WithFileOps(fileops.NewFileOps(t.TempDir(), t.TempDir())))
	if !errors.Is(err, tts.ErrUnknownProvider) {
		t.Errorf("error = %v, want ErrUnknownProvider", err)
	}
}

func TestNewHeterogeneousProviders(t *testing.T) {
	cfg := types.Config{
		Keys: types.Keys{SiliconFlow: "sf", ElevenLabs: "el"},
		Dialogue: types.DialogueConfig{
			Host:  types.SpeakerConfig{Provider: types.ProviderSiliconFlow, Voice: "alex"},
			Guest: types.SpeakerConfig{Provider: types.ProviderElevenLabs},
		},
	}
	p, err := New(cfg, WithFileOps(fileops.NewFileOps(t.TempDir(), t.TempDir())))
	if err != nil {
		t.Fatal(err)
	}
	if p.host.Name() != types.ProviderSiliconFlow || p.guest.Name() != types.ProviderElevenLabs {
		t.Errorf("adapters = %s/%s", p.host.Name(), p.guest.Name())
	}
	if p.Config().Dialogue.BaseSilence() != 500*time.Millisecond {
		t.Errorf("defaults not applied")
	}
}
