package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/dooshek/duologue/internal/fileops"
	"github.com/dooshek/duologue/internal/types"
)

func TestLoadParsesYAMLAndFillsDefaults(t *testing.T) {
	dir := t.TempDir()
	yamlData := `
keys:
  elevenlabs_api_key: file-key
dialogue:
  host:
    provider: elevenlabs
    voice: rachel
  guest:
    provider: minimax
  base_silence_ms: 400
`
	if err := os.WriteFile(filepath.Join(dir, "duologue.yaml"), []byte(yamlData), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(fileops.NewFileOps(dir, ""), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}

	if cfg.Dialogue.Host.Provider != types.ProviderElevenLabs || cfg.Dialogue.Host.Voice != "rachel" {
		t.Errorf("host profile not parsed: %+v", cfg.Dialogue.Host)
	}
	if cfg.Dialogue.Guest.Provider != types.ProviderMiniMax {
		t.Errorf("guest provider = %q", cfg.Dialogue.Guest.Provider)
	}
	if cfg.Dialogue.BaseSilence() != 400*time.Millisecond {
		t.Errorf("base silence = %v, want 400ms", cfg.Dialogue.BaseSilence())
	}
	if cfg.Dialogue.SpeakerChangeExtra() != 300*time.Millisecond || cfg.Dialogue.Concurrency != 4 {
		t.Errorf("defaults not applied: %+v", cfg.Dialogue)
	}
	if cfg.Providers.MiniMax.DefaultModel != "speech-02-turbo-preview" {
		t.Errorf("minimax default model = %q", cfg.Providers.MiniMax.DefaultModel)
	}
}

func TestLoadKeepsExplicitZeroGaps(t *testing.T) {
	dir := t.TempDir()
	yamlData := `
dialogue:
  base_silence_ms: 0
  speaker_change_extra_ms: 0
`
	if err := os.WriteFile(filepath.Join(dir, "duologue.yaml"), []byte(yamlData), 0o644); err != nil {
		t.Fatal(err)
	}

	cfg, err := Load(fileops.NewFileOps(dir, ""), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := cfg.Dialogue.BaseSilence(); got != 0 {
		t.Errorf("base silence = %v, want 0", got)
	}
	if got := cfg.Dialogue.SpeakerChangeExtra(); got != 0 {
		t.Errorf("speaker-change extra = %v, want 0", got)
	}
	if got := cfg.Dialogue.FailureSilence(); got != time.Second {
		t.Errorf("failure silence = %v, want the 1s default", got)
	}
}

func TestLoadMissingFileUsesDefaults(t *testing.T) {
	cfg, err := Load(fileops.NewFileOps(t.TempDir(), ""), "")
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if cfg.Dialogue.Strategy != types.StrategyPerTurn {
		t.Errorf("strategy = %q", cfg.Dialogue.Strategy)
	}
	if !cfg.Dialogue.NormalizeEnabled() {
		t.Error("normalization should default to enabled")
	}
}

func TestApplyEnvOverridesOnlySetValues(t *testing.T) {
	cfg := types.Config{Keys: types.Keys{MiniMax: "from-file", OpenAI: "keep"}}
	env := map[string]string{"MINIMAX_API_KEY": "from-env", "MINIMAX_GROUP_ID": "42"}

	applyEnv(&cfg, func(k string) string { return env[k] })

	if cfg.Keys.MiniMax != "from-env" {
		t.Errorf("MiniMax key = %q", cfg.Keys.MiniMax)
	}
	if cfg.Keys.MiniMaxGroupID != "42" {
		t.Errorf("group id = %q", cfg.Keys.MiniMaxGroupID)
	}
	if cfg.Keys.OpenAI != "keep" {
		t.Errorf("OpenAI key overwritten: %q", cfg.Keys.OpenAI)
	}
}
