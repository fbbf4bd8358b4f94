package tts

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"

	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/types"
)

const (
	miniMaxSampleRate = 32000
	miniMaxBitrate    = 128000
)

var miniMaxModels = []string{
	"speech-02-hd-preview",
	"speech-02-turbo-preview",
	"speech-01-turbo",
}

var miniMaxVoices = []Voice{
	{ID: "male-qn-qingse", Name: "Qingse (male, youthful)"},
	{ID: "male-qn-jingying", Name: "Jingying (male, elite)"},
	{ID: "presenter_male", Name: "Presenter (male)"},
	{ID: "female-shaonv", Name: "Shaonv (female, young)"},
	{ID: "female-chengshu", Name: "Chengshu (female, mature)"},
	{ID: "presenter_female", Name: "Presenter (female)"},
}

// MiniMaxProvider synthesizes speech with the MiniMax T2A v2 API
type MiniMaxProvider struct {
	client   *http.Client
	apiKey   string
	groupID  string
	settings types.ProviderSettings
}

// NewMiniMaxProvider creates a MiniMax adapter
func NewMiniMaxProvider(cfg types.Config) (Adapter, error) {
	if cfg.Keys.MiniMax == "" || cfg.Keys.MiniMaxGroupID == "" {
		return nil, errors.New("MiniMax API key and group id must both be set")
	}
	return &MiniMaxProvider{
		client:   &http.Client{},
		apiKey:   cfg.Keys.MiniMax,
		groupID:  cfg.Keys.MiniMaxGroupID,
		settings: cfg.Providers.MiniMax,
	}, nil
}

type miniMaxRequest struct {
	Model        string              `json:"model"`
	Text         string              `json:"text"`
	Stream       bool                `json:"stream"`
	VoiceSetting miniMaxVoiceSetting `json:"voice_setting"`
	AudioSetting miniMaxAudioSetting `json:"audio_setting"`
}

type miniMaxVoiceSetting struct {
	VoiceID string  `json:"voice_id"`
	Speed   float64 `json:"speed"`
	Vol     float64 `json:"vol"`
	Pitch   int     `json:"pitch"`
}

type miniMaxAudioSetting struct {
	SampleRate int    `json:"sample_rate"`
	Bitrate    int    `json:"bitrate"`
	Format     string `json:"format"`
	Channel    int    `json:"channel"`
}

type miniMaxResponse struct {
	Data *struct {
		Audio string `json:"audio"`
	} `json:"data"`
	ExtraInfo struct {
		AudioFormat     string `json:"audio_format"`
		AudioSampleRate int    `json:"audio_sample_rate"`
		AudioChannel    int    `json:"audio_channel"`
	} `json:"extra_info"`
	BaseResp struct {
		StatusCode int    `json:"status_code"`
		StatusMsg  string `json:"status_msg"`
	} `json:"base_resp"`
}

// Synthesize implements Adapter
func (p *MiniMaxProvider) Synthesize(ctx context.Context, text string, profile VoiceProfile, format AudioFormat) Result {
	model := profile.Model
	if !contains(miniMaxModels, model) {
		model = p.settings.DefaultModel
	}
	voice := profile.VoiceID
	if voice == "" {
		voice = p.settings.DefaultVoice
	}
	format = pickFormat(format, FormatMP3, FormatMP3, FormatWAV, FormatPCM, FormatFLAC)

	text = StripMarkup(text)
	if text == "" {
		return failure(p.Name(), 0, errors.New("nothing to synthesize after removing markup"))
	}

	req := miniMaxRequest{
		Model:  model,
		Text:   text,
		Stream: false,
		VoiceSetting: miniMaxVoiceSetting{
			VoiceID: voice,
			Speed:   clamp(orDefault(profile.Speed, 1.0), 0.5, 2.0),
			Vol:     clamp(profile.Gain+1, 0, 2),
		},
		AudioSetting: miniMaxAudioSetting{
			SampleRate: miniMaxSampleRate,
			Bitrate:    miniMaxBitrate,
			Format:     string(format),
			Channel:    1,
		},
	}

	logger.Debugf("MiniMax TTS: %d chars, model %s, voice %s", len(text), model, voice)

	endpoint := strings.TrimRight(p.settings.BaseURL, "/") + "/t2a_v2?GroupId=" + url.QueryEscape(p.groupID)
	resp, err := postJSON(ctx, p.client, endpoint, map[string]string{"Authorization": "Bearer " + p.apiKey}, req)
	if err != nil {
		return failure(p.Name(), 0, err)
	}
	if !resp.ok() {
		return failure(p.Name(), resp.Status, resp.statusError())
	}

	var body miniMaxResponse
	if err := json.Unmarshal(resp.Body, &body); err != nil {
		return failure(p.Name(), resp.Status, fmt.Errorf("malformed response: %w", err))
	}
	if body.BaseResp.StatusCode != 0 {
		return failure(p.Name(), body.BaseResp.StatusCode, fmt.Errorf("API error: %s", body.BaseResp.StatusMsg))
	}
	if body.Data == nil || body.Data.Audio == "" {
		return failure(p.Name(), resp.Status, errors.New("malformed response: no audio data"))
	}

	audio, err := hex.DecodeString(body.Data.Audio)
	if err != nil {
		return failure(p.Name(), resp.Status, fmt.Errorf("malformed response: audio is not hex: %w", err))
	}

	if f := AudioFormat(body.ExtraInfo.AudioFormat); f != "" {
		format = f
	}
	result := success(p.Name(), format, audio)
	if format == FormatPCM {
		result.SampleRate = miniMaxSampleRate
		if body.ExtraInfo.AudioSampleRate > 0 {
			result.SampleRate = body.ExtraInfo.AudioSampleRate
		}
		result.Channels = 1
		if body.ExtraInfo.AudioChannel > 0 {
			result.Channels = body.ExtraInfo.AudioChannel
		}
	}
	return result
}

// Name implements Adapter
func (p *MiniMaxProvider) Name() string {
	return types.ProviderMiniMax
}

// Voices implements Adapter
func (p *MiniMaxProvider) Voices() []Voice {
	return miniMaxVoices
}
