package tts

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/types"
	"github.com/sashabaranov/go-openai"
)

// openAIPCMSampleRate is the rate of OpenAI pcm output
const openAIPCMSampleRate = 24000

var openAIModels = []string{
	string(openai.TTSModel1),
	string(openai.TTSModel1HD),
	"gpt-4o-mini-tts",
}

var openAIVoices = []Voice{
	{ID: string(openai.VoiceAlloy), Name: "Alloy (neutral, balanced)"},
	{ID: string(openai.VoiceEcho), Name: "Echo (male, clear)"},
	{ID: string(openai.VoiceFable), Name: "Fable (British accent)"},
	{ID: string(openai.VoiceOnyx), Name: "Onyx (deep male)"},
	{ID: string(openai.VoiceNova), Name: "Nova (young female)"},
	{ID: string(openai.VoiceShimmer), Name: "Shimmer (warm female)"},
}

// OpenAITTSProvider synthesizes speech with the OpenAI speech endpoint
type OpenAITTSProvider struct {
	client   *openai.Client
	settings types.ProviderSettings
}

// NewOpenAITTSProvider creates an OpenAI speech adapter
func NewOpenAITTSProvider(cfg types.Config) (Adapter, error) {
	if cfg.Keys.OpenAI == "" {
		return nil, errors.New("OpenAI API key is not set")
	}

	clientConfig := openai.DefaultConfig(cfg.Keys.OpenAI)
	if cfg.Providers.OpenAI.BaseURL != "" {
		clientConfig.BaseURL = cfg.Providers.OpenAI.BaseURL
	}

	return &OpenAITTSProvider{
		client:   openai.NewClientWithConfig(clientConfig),
		settings: cfg.Providers.OpenAI,
	}, nil
}

// Synthesize implements Adapter. The endpoint has no volume control, so gain
// is ignored here.
func (p *OpenAITTSProvider) Synthesize(ctx context.Context, text string, profile VoiceProfile, format AudioFormat) Result {
	model := profile.Model
	if !contains(openAIModels, model) {
		model = p.settings.DefaultModel
	}
	voice := profile.VoiceID
	if !contains(voiceIDs(openAIVoices), voice) {
		voice = p.settings.DefaultVoice
	}
	format = pickFormat(format, FormatMP3, FormatMP3, FormatOpus, FormatAAC, FormatFLAC, FormatWAV, FormatPCM)

	text = StripMarkup(text)
	if text == "" {
		return failure(p.Name(), 0, errors.New("nothing to synthesize after removing markup"))
	}

	logger.Debugf("OpenAI TTS: %d chars, model %s, voice %s", len(text), model, voice)

	response, err := p.client.CreateSpeech(ctx, openai.CreateSpeechRequest{
		Model:          openai.SpeechModel(model),
		Input:          text,
		Voice:          openai.SpeechVoice(voice),
		Speed:          clamp(orDefault(profile.Speed, 1.0), 0.25, 4.0),
		ResponseFormat: openai.SpeechResponseFormat(format),
	})
	if err != nil {
		return failure(p.Name(), apiStatus(err), fmt.Errorf("TTS request failed: %w", err))
	}
	defer response.Close()

	audioData, err := io.ReadAll(response)
	if err != nil {
		return failure(p.Name(), 0, fmt.Errorf("failed to read audio data: %w", err))
	}
	if len(audioData) == 0 {
		return failure(p.Name(), 0, errors.New("malformed response: no audio data"))
	}

	logger.Debugf("Generated %d bytes of %s audio (%s)", len(audioData), format, formatSize(len(audioData)))

	result := success(p.Name(), format, audioData)
	if format == FormatPCM {
		result.SampleRate = openAIPCMSampleRate
		result.Channels = 1
	}
	return result
}

// Name implements Adapter
func (p *OpenAITTSProvider) Name() string {
	return types.ProviderOpenAI
}

// Voices implements Adapter
func (p *OpenAITTSProvider) Voices() []Voice {
	return openAIVoices
}

// apiStatus extracts the HTTP status from a go-openai error
func apiStatus(err error) int {
	var apiErr *openai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.HTTPStatusCode
	}
	var reqErr *openai.RequestError
	if errors.As(err, &reqErr) {
		return reqErr.HTTPStatusCode
	}
	return 0
}

// formatSize provides a human-readable size
func formatSize(bytes int) string {
	if bytes < 1024 {
		return fmt.Sprintf("%d B", bytes)
	} else if bytes < 1024*1024 {
		return fmt.Sprintf("%.1f KB", float64(bytes)/1024)
	} else {
		return fmt.Sprintf("%.1f MB", float64(bytes)/(1024*1024))
	}
}
