package tts

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"

	openairt "github.com/WqyJh/go-openai-realtime"
	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/types"
)

// realtimeSampleRate is the rate of Realtime API PCM16 output
const realtimeSampleRate = 24000

const realtimeInstructions = "You are a text-to-speech system. Read the provided text aloud exactly as written, " +
	"in the language it is written in. Do not add any commentary or explanation."

var realtimeModels = []string{
	"gpt-4o-realtime-preview",
	"gpt-4o-realtime-preview-2024-12-17",
	"gpt-4o-realtime-preview-2024-10-01",
	"gpt-4o-mini-realtime-preview",
	"gpt-4o-mini-realtime-preview-2024-12-17",
}

// RealtimeTTSProvider synthesizes speech through an OpenAI Realtime session
type RealtimeTTSProvider struct {
	client   *openairt.Client
	settings types.ProviderSettings
}

// NewRealtimeTTSProvider creates a Realtime API adapter
func NewRealtimeTTSProvider(cfg types.Config) (Adapter, error) {
	if cfg.Keys.OpenAI == "" {
		return nil, errors.New("OpenAI API key is not set")
	}

	clientConfig := openairt.DefaultConfig(cfg.Keys.OpenAI)
	if cfg.Providers.Realtime.BaseURL != "" {
		clientConfig.BaseURL = cfg.Providers.Realtime.BaseURL
	}

	return &RealtimeTTSProvider{
		client:   openairt.NewClientWithConfig(clientConfig),
		settings: cfg.Providers.Realtime,
	}, nil
}

// Synthesize implements Adapter. Output is always 24 kHz mono PCM16; speed and
// gain are not exposed by the session API.
func (p *RealtimeTTSProvider) Synthesize(ctx context.Context, text string, profile VoiceProfile, _ AudioFormat) Result {
	model := profile.Model
	if !contains(realtimeModels, model) {
		model = p.settings.DefaultModel
	}
	voice := profile.VoiceID
	if !contains(voiceIDs(openAIVoices), voice) {
		voice = p.settings.DefaultVoice
	}

	text = StripMarkup(text)
	if text == "" {
		return failure(p.Name(), 0, errors.New("nothing to synthesize after removing markup"))
	}

	logger.Debugf("Realtime TTS: %d chars, model %s, voice %s", len(text), model, voice)

	audio, err := p.collectAudio(ctx, model, voice, text)
	if err != nil {
		return failure(p.Name(), 0, err)
	}

	result := success(p.Name(), FormatPCM, audio)
	result.SampleRate = realtimeSampleRate
	result.Channels = 1
	return result
}

func (p *RealtimeTTSProvider) collectAudio(ctx context.Context, model, voice, text string) ([]byte, error) {
	conn, err := p.client.Connect(ctx, openairt.WithModel(model))
	if err != nil {
		return nil, fmt.Errorf("realtime API connection failed: %w", err)
	}
	defer conn.Close()

	err = conn.SendMessage(ctx, &openairt.SessionUpdateEvent{
		Session: openairt.ClientSession{
			Modalities:        []openairt.Modality{openairt.ModalityText, openairt.ModalityAudio},
			Voice:             openairt.Voice(voice),
			OutputAudioFormat: openairt.AudioFormatPcm16,
			Instructions:      realtimeInstructions,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("session update failed: %w", err)
	}

	err = conn.SendMessage(ctx, &openairt.ConversationItemCreateEvent{
		Item: openairt.MessageItem{
			Type: openairt.MessageItemTypeMessage,
			Role: openairt.MessageRoleUser,
			Content: []openairt.MessageContentPart{
				{
					Type: openairt.MessageContentTypeInputText,
					Text: text,
				},
			},
		},
	})
	if err != nil {
		return nil, fmt.Errorf("conversation item creation failed: %w", err)
	}

	// Request response with audio and text (API requires both)
	err = conn.SendMessage(ctx, &openairt.ResponseCreateEvent{
		Response: openairt.ResponseCreateParams{
			Modalities:        []openairt.Modality{openairt.ModalityAudio, openairt.ModalityText},
			Voice:             openairt.Voice(voice),
			OutputAudioFormat: openairt.AudioFormatPcm16,
		},
	})
	if err != nil {
		return nil, fmt.Errorf("response creation failed: %w", err)
	}

	var audioData []byte
	for {
		event, err := conn.ReadMessage(ctx)
		if err != nil {
			return nil, fmt.Errorf("message read failed: %w", err)
		}

		switch event.ServerEventType() {
		case openairt.ServerEventTypeResponseAudioDelta:
			deltaEvent := event.(openairt.ResponseAudioDeltaEvent)
			audioChunk, err := base64.StdEncoding.DecodeString(deltaEvent.Delta)
			if err != nil {
				logger.Warnf("Failed to decode audio delta: %v", err)
				continue
			}
			audioData = append(audioData, audioChunk...)

		case openairt.ServerEventTypeResponseDone:
			if len(audioData) == 0 {
				return nil, errors.New("no audio data received")
			}
			return audioData, nil

		case openairt.ServerEventTypeError:
			errorEvent := event.(openairt.ErrorEvent)
			return nil, fmt.Errorf("realtime API error: %s: %s", errorEvent.Error.Type, errorEvent.Error.Message)

		default:
			logger.Debugf("Received event: %s", event.ServerEventType())
		}
	}
}

// Name implements Adapter
func (p *RealtimeTTSProvider) Name() string {
	return types.ProviderRealtime
}

// Voices implements Adapter
func (p *RealtimeTTSProvider) Voices() []Voice {
	return openAIVoices
}
