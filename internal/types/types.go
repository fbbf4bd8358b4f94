package types

import (
	"time"

	"github.com/sashabaranov/go-openai"
)

// Provider names accepted by the synthesis registry
const (
	ProviderSiliconFlow = "siliconflow"
	ProviderMiniMax     = "minimax"
	ProviderAliyun      = "aliyun"
	ProviderElevenLabs  = "elevenlabs"
	ProviderOpenAI      = "openai"
	ProviderRealtime    = "realtime"
)

// Assembly strategies
const (
	StrategyPerTurn      = "per-turn"
	StrategyProportional = "proportional"
)

// Keys holds provider credentials
type Keys struct {
	SiliconFlow    string `yaml:"siliconflow_api_key"`
	MiniMax        string `yaml:"minimax_api_key"`
	MiniMaxGroupID string `yaml:"minimax_group_id"`
	Aliyun         string `yaml:"dashscope_api_key"`
	ElevenLabs     string `yaml:"elevenlabs_api_key"`
	OpenAI         string `yaml:"openai_api_key"`
}

// ProviderSettings holds per-provider endpoint and default identifiers
type ProviderSettings struct {
	BaseURL      string `yaml:"base_url"`
	DefaultModel string `yaml:"default_model"`
	DefaultVoice string `yaml:"default_voice"`
}

// ProvidersConfig groups settings for every synthesis backend
type ProvidersConfig struct {
	SiliconFlow ProviderSettings `yaml:"siliconflow"`
	MiniMax     ProviderSettings `yaml:"minimax"`
	Aliyun      ProviderSettings `yaml:"aliyun"`
	ElevenLabs  ProviderSettings `yaml:"elevenlabs"`
	OpenAI      ProviderSettings `yaml:"openai"`
	Realtime    ProviderSettings `yaml:"realtime"`
}

// Settings returns the settings block for the named provider
func (p ProvidersConfig) Settings(name string) ProviderSettings {
	switch name {
	case ProviderSiliconFlow:
		return p.SiliconFlow
	case ProviderMiniMax:
		return p.MiniMax
	case ProviderAliyun:
		return p.Aliyun
	case ProviderElevenLabs:
		return p.ElevenLabs
	case ProviderOpenAI:
		return p.OpenAI
	case ProviderRealtime:
		return p.Realtime
	default:
		return ProviderSettings{}
	}
}

// SpeakerConfig is the voice profile configured for one speaker role
type SpeakerConfig struct {
	Provider        string            `yaml:"provider"`
	Voice           string            `yaml:"voice"`
	Model           string            `yaml:"model"`
	Speed           float64           `yaml:"speed"`
	Gain            float64           `yaml:"gain"`
	Stability       float64           `yaml:"stability"`
	SimilarityBoost float64           `yaml:"similarity_boost"`
	Params          map[string]string `yaml:"params"`
}

// DialogueConfig holds assembly settings for a run
type DialogueConfig struct {
	Host              SpeakerConfig `yaml:"host"`
	Guest             SpeakerConfig `yaml:"guest"`
	BaseSilenceMs     *int          `yaml:"base_silence_ms"`
	SpeakerChangeMs   *int          `yaml:"speaker_change_extra_ms"`
	FailureSilenceMs  *int          `yaml:"failure_silence_ms"`
	Concurrency       int           `yaml:"concurrency"`
	TimeoutSeconds    int           `yaml:"timeout_seconds"`
	SampleRate        int           `yaml:"sample_rate"`
	Channels          int           `yaml:"channels"`
	Normalize         *bool         `yaml:"normalize"`
	NormalizeTargetDB float64       `yaml:"normalize_target_dbfs"`
	Strategy          string        `yaml:"strategy"`
	LenientTags       bool          `yaml:"lenient_tags"`
}

// BaseSilence returns the gap between consecutive same-speaker turns
func (d DialogueConfig) BaseSilence() time.Duration {
	return millis(d.BaseSilenceMs)
}

// SpeakerChangeExtra returns the extra gap added at a speaker change
func (d DialogueConfig) SpeakerChangeExtra() time.Duration {
	return millis(d.SpeakerChangeMs)
}

// FailureSilence returns the duration of the placeholder for a failed turn
func (d DialogueConfig) FailureSilence() time.Duration {
	return millis(d.FailureSilenceMs)
}

// Timeout returns the per-call synthesis timeout
func (d DialogueConfig) Timeout() time.Duration {
	return time.Duration(d.TimeoutSeconds) * time.Second
}

// NormalizeEnabled reports whether clips are loudness-normalized
func (d DialogueConfig) NormalizeEnabled() bool {
	return d.Normalize == nil || *d.Normalize
}

// millis converts an optional millisecond setting. Unset and negative
// values are zero.
func millis(ms *int) time.Duration {
	if ms == nil || *ms < 0 {
		return 0
	}
	return time.Duration(*ms) * time.Millisecond
}

// IntPtr returns a pointer to v, for optional config fields
func IntPtr(v int) *int {
	return &v
}

// LLMConfig holds settings for script conversion and translation
type LLMConfig struct {
	APIKey             string  `yaml:"api_key"`
	BaseURL            string  `yaml:"base_url"`
	Model              string  `yaml:"model"`
	Temperature        float32 `yaml:"temperature"`
	IdleTimeoutSeconds int     `yaml:"idle_timeout_seconds"`
}

// OutputConfig holds defaults for exported artifacts
type OutputConfig struct {
	Dir    string `yaml:"dir"`
	Format string `yaml:"format"`
}

type Config struct {
	Keys      Keys            `yaml:"keys"`
	Providers ProvidersConfig `yaml:"providers"`
	Dialogue  DialogueConfig  `yaml:"dialogue"`
	LLM       LLMConfig       `yaml:"llm"`
	Output    OutputConfig    `yaml:"output"`
}

// WithDefaults returns a copy of the config with every unset field filled in
func (c Config) WithDefaults() Config {
	d := &c.Dialogue
	if d.Host.Provider == "" {
		d.Host.Provider = ProviderSiliconFlow
	}
	if d.Guest.Provider == "" {
		d.Guest.Provider = ProviderSiliconFlow
	}
	if d.Host.Speed == 0 {
		d.Host.Speed = 1.0
	}
	if d.Guest.Speed == 0 {
		d.Guest.Speed = 1.0
	}
	if d.BaseSilenceMs == nil {
		d.BaseSilenceMs = IntPtr(500)
	}
	if d.SpeakerChangeMs == nil {
		d.SpeakerChangeMs = IntPtr(300)
	}
	if d.FailureSilenceMs == nil {
		d.FailureSilenceMs = IntPtr(1000)
	}
	if d.Concurrency <= 0 {
		d.Concurrency = 4
	}
	if d.TimeoutSeconds <= 0 {
		d.TimeoutSeconds = 60
	}
	if d.SampleRate <= 0 {
		d.SampleRate = 24000
	}
	if d.Channels <= 0 {
		d.Channels = 1
	}
	if d.NormalizeTargetDB == 0 {
		d.NormalizeTargetDB = -20
	}
	if d.Strategy == "" {
		d.Strategy = StrategyPerTurn
	}

	p := &c.Providers
	setDefault(&p.SiliconFlow, "https://api.siliconflow.cn/v1", "FunAudioLLM/CosyVoice2-0.5B", "anna")
	setDefault(&p.MiniMax, "https://api.minimax.chat/v1", "speech-02-turbo-preview", "female-chengshu")
	setDefault(&p.Aliyun, "wss://dashscope.aliyuncs.com/api-ws/v1/inference/", "cosyvoice-v2", "longxiaochun_v2")
	setDefault(&p.ElevenLabs, "https://api.elevenlabs.io/v1", "eleven_multilingual_v2", "21m00Tcm4TlvDq8ikWAM")
	setDefault(&p.OpenAI, "", string(openai.TTSModel1HD), string(openai.VoiceNova))
	setDefault(&p.Realtime, "", "gpt-4o-realtime-preview", string(openai.VoiceNova))

	if c.LLM.Model == "" {
		c.LLM.Model = OpenAIModelGPT4oMini
	}
	if c.LLM.APIKey == "" {
		c.LLM.APIKey = c.Keys.OpenAI
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = 0.7
	}
	if c.LLM.IdleTimeoutSeconds <= 0 {
		c.LLM.IdleTimeoutSeconds = 30
	}

	if c.Output.Format == "" {
		c.Output.Format = "wav"
	}
	if c.Output.Dir == "" {
		c.Output.Dir = "output"
	}

	return c
}

func setDefault(s *ProviderSettings, baseURL, model, voice string) {
	if s.BaseURL == "" {
		s.BaseURL = baseURL
	}
	if s.DefaultModel == "" {
		s.DefaultModel = model
	}
	if s.DefaultVoice == "" {
		s.DefaultVoice = voice
	}
}

const (
	OpenAIModelGPT4oMini string = string(openai.GPT4oMini)
	OpenAIModelGPT4o     string = string(openai.GPT4o)
)
