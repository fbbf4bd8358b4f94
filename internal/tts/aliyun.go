package tts

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/types"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

const aliyunSampleRate = 22050

var aliyunModels = []string{
	"cosyvoice-v1",
	"cosyvoice-v2",
}

var aliyunVoices = []Voice{
	{ID: "longxiaochun_v2", Name: "Longxiaochun (female, gentle)"},
	{ID: "longxiaoxia_v2", Name: "Longxiaoxia (female, calm)"},
	{ID: "longwan_v2", Name: "Longwan (female, warm)"},
	{ID: "longcheng_v2", Name: "Longcheng (male, bright)"},
	{ID: "longhua_v2", Name: "Longhua (female, lively)"},
	{ID: "longshu_v2", Name: "Longshu (male, narrator)"},
}

// AliyunProvider synthesizes speech with CosyVoice over the DashScope
// duplex websocket
type AliyunProvider struct {
	dialer   *websocket.Dialer
	apiKey   string
	settings types.ProviderSettings
}

// NewAliyunProvider creates a DashScope CosyVoice adapter
func NewAliyunProvider(cfg types.Config) (Adapter, error) {
	if cfg.Keys.Aliyun == "" {
		return nil, errors.New("DashScope API key is not set")
	}
	return &AliyunProvider{
		dialer:   websocket.DefaultDialer,
		apiKey:   cfg.Keys.Aliyun,
		settings: cfg.Providers.Aliyun,
	}, nil
}

type dashScopeHeader struct {
	Action       string `json:"action,omitempty"`
	TaskID       string `json:"task_id"`
	Streaming    string `json:"streaming,omitempty"`
	Event        string `json:"event,omitempty"`
	ErrorCode    string `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`
}

type dashScopeMessage struct {
	Header  dashScopeHeader `json:"header"`
	Payload interface{}     `json:"payload"`
}

type dashScopeRunPayload struct {
	TaskGroup  string              `json:"task_group"`
	Task       string              `json:"task"`
	Function   string              `json:"function"`
	Model      string              `json:"model"`
	Parameters dashScopeParameters `json:"parameters"`
	Input      struct{}            `json:"input"`
}

type dashScopeParameters struct {
	TextType   string  `json:"text_type"`
	Voice      string  `json:"voice"`
	Format     string  `json:"format"`
	SampleRate int     `json:"sample_rate"`
	Volume     int     `json:"volume"`
	Rate       float64 `json:"rate"`
	Pitch      float64 `json:"pitch"`
}

type dashScopeTextPayload struct {
	Input struct {
		Text string `json:"text,omitempty"`
	} `json:"input"`
}

// Synthesize implements Adapter. Gain maps to volume 0..100 with 0 dB at 50.
func (p *AliyunProvider) Synthesize(ctx context.Context, text string, profile VoiceProfile, format AudioFormat) Result {
	model := profile.Model
	if !contains(aliyunModels, model) {
		model = p.settings.DefaultModel
	}
	voice := profile.VoiceID
	if voice == "" {
		voice = p.settings.DefaultVoice
	}
	format = pickFormat(format, FormatWAV, FormatWAV, FormatMP3, FormatPCM)

	header := http.Header{}
	header.Set("Authorization", "bearer "+p.apiKey)

	conn, resp, err := p.dialer.DialContext(ctx, p.settings.BaseURL, header)
	if err != nil {
		status := 0
		if resp != nil {
			status = resp.StatusCode
		}
		return failure(p.Name(), status, fmt.Errorf("websocket connection failed: %w", err))
	}
	defer conn.Close()

	// Unblock reads when the caller gives up
	stop := context.AfterFunc(ctx, func() {
		conn.SetReadDeadline(time.Now())
	})
	defer stop()

	taskID := uuid.NewString()
	logger.Debugf("DashScope TTS task %s: %d chars, model %s, voice %s", taskID, len(text), model, voice)

	run := dashScopeMessage{
		Header: dashScopeHeader{Action: "run-task", TaskID: taskID, Streaming: "duplex"},
		Payload: dashScopeRunPayload{
			TaskGroup: "audio",
			Task:      "tts",
			Function:  "SpeechSynthesizer",
			Model:     model,
			Parameters: dashScopeParameters{
				TextType:   "PlainText",
				Voice:      voice,
				Format:     string(format),
				SampleRate: aliyunSampleRate,
				Volume:     int(clamp((profile.Gain+1)*50, 0, 100)),
				Rate:       clamp(orDefault(profile.Speed, 1.0), 0.5, 2.0),
				Pitch:      1.0,
			},
		},
	}
	if err := conn.WriteJSON(run); err != nil {
		return failure(p.Name(), 0, fmt.Errorf("failed to send run-task: %w", err))
	}

	var audio []byte
	started := false
	for {
		msgType, data, err := conn.ReadMessage()
		if err != nil {
			if ctx.Err() != nil {
				err = ctx.Err()
			}
			return failure(p.Name(), 0, fmt.Errorf("message read failed: %w", err))
		}

		if msgType == websocket.BinaryMessage {
			audio = append(audio, data...)
			continue
		}

		var event dashScopeMessage
		if err := json.Unmarshal(data, &event); err != nil {
			return failure(p.Name(), 0, fmt.Errorf("malformed event: %w", err))
		}

		switch event.Header.Event {
		case "task-started":
			if started {
				continue
			}
			started = true
			if err := p.sendText(conn, taskID, text); err != nil {
				return failure(p.Name(), 0, err)
			}

		case "task-finished":
			if len(audio) == 0 {
				return failure(p.Name(), 0, errors.New("malformed response: no audio data"))
			}
			result := success(p.Name(), format, audio)
			if format == FormatPCM {
				result.SampleRate = aliyunSampleRate
				result.Channels = 1
			}
			return result

		case "task-failed":
			return failure(p.Name(), 0, fmt.Errorf("task failed: %s: %s", event.Header.ErrorCode, event.Header.ErrorMessage))

		default:
			logger.Debugf("DashScope event: %s", event.Header.Event)
		}
	}
}

// sendText streams the whole text then closes the task input
func (p *AliyunProvider) sendText(conn *websocket.Conn, taskID, text string) error {
	var body dashScopeTextPayload
	body.Input.Text = text
	cont := dashScopeMessage{
		Header:  dashScopeHeader{Action: "continue-task", TaskID: taskID, Streaming: "duplex"},
		Payload: body,
	}
	if err := conn.WriteJSON(cont); err != nil {
		return fmt.Errorf("failed to send continue-task: %w", err)
	}

	finish := dashScopeMessage{
		Header:  dashScopeHeader{Action: "finish-task", TaskID: taskID, Streaming: "duplex"},
		Payload: dashScopeTextPayload{},
	}
	if err := conn.WriteJSON(finish); err != nil {
		return fmt.Errorf("failed to send finish-task: %w", err)
	}
	return nil
}

// Name implements Adapter
func (p *AliyunProvider) Name() string {
	return types.ProviderAliyun
}

// Voices implements Adapter
func (p *AliyunProvider) Voices() []Voice {
	return aliyunVoices
}
