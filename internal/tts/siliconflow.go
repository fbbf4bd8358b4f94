package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/types"
)

// siliconFlowSampleRate is requested for headerless PCM output
const siliconFlowSampleRate = 24000

var siliconFlowModels = []string{
	"FunAudioLLM/CosyVoice2-0.5B",
	"fishaudio/fish-speech-1.5",
	"fishaudio/fish-speech-1.4",
	"RVC-Boss/GPT-SoVITS",
}

var siliconFlowVoices = []Voice{
	{ID: "alex", Name: "Alex (male, steady)"},
	{ID: "benjamin", Name: "Benjamin (male, deep)"},
	{ID: "charles", Name: "Charles (male, magnetic)"},
	{ID: "david", Name: "David (male, cheerful)"},
	{ID: "anna", Name: "Anna (female, calm)"},
	{ID: "bella", Name: "Bella (female, passionate)"},
	{ID: "claire", Name: "Claire (female, gentle)"},
	{ID: "diana", Name: "Diana (female, lively)"},
}

// SiliconFlowProvider synthesizes speech with the SiliconFlow speech API
type SiliconFlowProvider struct {
	client   *http.Client
	apiKey   string
	settings types.ProviderSettings
}

// NewSiliconFlowProvider creates a SiliconFlow adapter
func NewSiliconFlowProvider(cfg types.Config) (Adapter, error) {
	if cfg.Keys.SiliconFlow == "" {
		return nil, errors.New("SiliconFlow API key is not set")
	}
	return &SiliconFlowProvider{
		client:   &http.Client{},
		apiKey:   cfg.Keys.SiliconFlow,
		settings: cfg.Providers.SiliconFlow,
	}, nil
}

type siliconFlowRequest struct {
	Model          string  `json:"model"`
	Input          string  `json:"input"`
	Voice          string  `json:"voice"`
	ResponseFormat string  `json:"response_format"`
	SampleRate     int     `json:"sample_rate,omitempty"`
	Stream         bool    `json:"stream"`
	Speed          float64 `json:"speed"`
	Gain           float64 `json:"gain"`
}

// Synthesize implements Adapter
func (p *SiliconFlowProvider) Synthesize(ctx context.Context, text string, profile VoiceProfile, format AudioFormat) Result {
	model := profile.Model
	if !contains(siliconFlowModels, model) {
		model = p.settings.DefaultModel
	}
	format = pickFormat(format, FormatWAV, FormatMP3, FormatWAV, FormatPCM, FormatOpus)

	req := siliconFlowRequest{
		Model:          model,
		Input:          text,
		Voice:          p.voice(model, profile.VoiceID),
		ResponseFormat: string(format),
		Speed:          clamp(orDefault(profile.Speed, 1.0), 0.25, 4.0),
		Gain:           clamp(profile.Gain, -10, 10),
	}
	if format == FormatPCM {
		req.SampleRate = siliconFlowSampleRate
	}

	logger.Debugf("SiliconFlow TTS: %d chars, model %s, voice %s", len(text), req.Model, req.Voice)

	resp, err := postJSON(ctx, p.client, strings.TrimRight(p.settings.BaseURL, "/")+"/audio/speech",
		map[string]string{"Authorization": "Bearer " + p.apiKey}, req)
	if err != nil {
		return failure(p.Name(), 0, err)
	}
	if !resp.ok() {
		return failure(p.Name(), resp.Status, resp.statusError())
	}
	if resp.isJSON() || len(resp.Body) == 0 {
		return failure(p.Name(), resp.Status, fmt.Errorf("malformed response: expected audio, got %d bytes of %q", len(resp.Body), resp.ContentType))
	}

	result := success(p.Name(), format, resp.Body)
	if format == FormatPCM {
		result.SampleRate = siliconFlowSampleRate
		result.Channels = 1
	}
	return result
}

// voice resolves the wire voice identifier. Presets are qualified with the
// model; uploaded voices (speech:...) and qualified ids pass through.
func (p *SiliconFlowProvider) voice(model, id string) string {
	if id == "" {
		id = p.settings.DefaultVoice
	}
	if strings.Contains(id, ":") {
		return id
	}
	return model + ":" + id
}

// Name implements Adapter
func (p *SiliconFlowProvider) Name() string {
	return types.ProviderSiliconFlow
}

// Voices implements Adapter
func (p *SiliconFlowProvider) Voices() []Voice {
	return siliconFlowVoices
}
