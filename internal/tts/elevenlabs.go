package tts

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/types"
)

const elevenLabsOutputFormat = "mp3_44100_128"

var elevenLabsModels = []string{
	"eleven_multilingual_v2",
	"eleven_turbo_v2_5",
	"eleven_flash_v2_5",
	"eleven_monolingual_v1",
}

var elevenLabsVoices = []Voice{
	{ID: "21m00Tcm4TlvDq8ikWAM", Name: "Rachel"},
	{ID: "EXAVITQu4vr4xnSDxMaL", Name: "Sarah"},
	{ID: "ErXwobaYiN019PkySvjV", Name: "Antoni"},
	{ID: "TxGEqnHWrfWFTfGW9XjX", Name: "Josh"},
	{ID: "pNInz6obpgDQGcFmaJgB", Name: "Adam"},
	{ID: "XB0fDUnXU5powFXDhCwa", Name: "Charlotte"},
}

// ElevenLabsProvider synthesizes speech with the ElevenLabs API
type ElevenLabsProvider struct {
	client   *http.Client
	apiKey   string
	settings types.ProviderSettings
}

// NewElevenLabsProvider creates an ElevenLabs adapter
func NewElevenLabsProvider(cfg types.Config) (Adapter, error) {
	if cfg.Keys.ElevenLabs == "" {
		return nil, errors.New("ElevenLabs API key is not set")
	}
	return &ElevenLabsProvider{
		client:   &http.Client{},
		apiKey:   cfg.Keys.ElevenLabs,
		settings: cfg.Providers.ElevenLabs,
	}, nil
}

type elevenLabsRequest struct {
	Text          string                  `json:"text"`
	ModelID       string                  `json:"model_id"`
	VoiceSettings elevenLabsVoiceSettings `json:"voice_settings"`
}

type elevenLabsVoiceSettings struct {
	Stability       float64 `json:"stability"`
	SimilarityBoost float64 `json:"similarity_boost"`
	Speed           float64 `json:"speed"`
}

// Synthesize implements Adapter. The API has no volume control, so gain is
// ignored here. Output is always MP3.
func (p *ElevenLabsProvider) Synthesize(ctx context.Context, text string, profile VoiceProfile, format AudioFormat) Result {
	model := profile.Model
	if !contains(elevenLabsModels, model) {
		model = p.settings.DefaultModel
	}
	voice := profile.VoiceID
	if voice == "" {
		voice = p.settings.DefaultVoice
	}

	text = StripMarkup(text)
	if text == "" {
		return failure(p.Name(), 0, errors.New("nothing to synthesize after removing markup"))
	}

	req := elevenLabsRequest{
		Text:    text,
		ModelID: model,
		VoiceSettings: elevenLabsVoiceSettings{
			Stability:       clamp(orDefault(profile.Stability, 0.75), 0, 1),
			SimilarityBoost: clamp(orDefault(profile.SimilarityBoost, 0.75), 0, 1),
			Speed:           clamp(orDefault(profile.Speed, 1.0), 0.7, 1.2),
		},
	}

	logger.Debugf("ElevenLabs TTS: %d chars, model %s, voice %s", len(text), model, voice)

	endpoint := fmt.Sprintf("%s/text-to-speech/%s?output_format=%s",
		strings.TrimRight(p.settings.BaseURL, "/"), url.PathEscape(voice), elevenLabsOutputFormat)
	resp, err := postJSON(ctx, p.client, endpoint, map[string]string{
		"xi-api-key": p.apiKey,
		"Accept":     "audio/mpeg",
	}, req)
	if err != nil {
		return failure(p.Name(), 0, err)
	}
	if !resp.ok() {
		return failure(p.Name(), resp.Status, resp.statusError())
	}
	if resp.isJSON() || len(resp.Body) == 0 {
		return failure(p.Name(), resp.Status, fmt.Errorf("malformed response: expected audio, got %d bytes of %q", len(resp.Body), resp.ContentType))
	}

	return success(p.Name(), FormatMP3, resp.Body)
}

// Name implements Adapter
func (p *ElevenLabsProvider) Name() string {
	return types.ProviderElevenLabs
}

// Voices implements Adapter
func (p *ElevenLabsProvider) Voices() []Voice {
	return elevenLabsVoices
}
