package tts

import (
	"context"
	"fmt"
	"strings"
)

// Adapter is the uniform synthesis capability every backend implements.
// Synthesize never panics or returns an error: failures come back as a
// Result with OK set to false.
type Adapter interface {
	// Synthesize converts text to audio using the given voice profile
	Synthesize(ctx context.Context, text string, profile VoiceProfile, format AudioFormat) Result

	// Name returns the registry name of the provider
	Name() string

	// Voices returns the preset voices of the provider
	Voices() []Voice
}

// AudioFormat represents supported audio formats
type AudioFormat string

const (
	FormatOpus AudioFormat = "opus"
	FormatMP3  AudioFormat = "mp3"
	FormatAAC  AudioFormat = "aac"
	FormatFLAC AudioFormat = "flac"
	FormatPCM  AudioFormat = "pcm"
	FormatWAV  AudioFormat = "wav"
)

// VoiceProfile is the set of synthesis parameters bound to one speaker role
type VoiceProfile struct {
	Provider        string
	VoiceID         string
	Model           string
	Speed           float64
	Gain            float64
	Stability       float64
	SimilarityBoost float64
	Params          map[string]string
}

// Voice is a preset voice offered by a provider
type Voice struct {
	ID   string
	Name string
}

// Result is the outcome of one synthesis call
type Result struct {
	OK     bool
	Format AudioFormat
	Audio  []byte
	// SampleRate and Channels are set when Format is headerless PCM
	SampleRate int
	Channels   int

	Provider string
	Status   int
	Err      error
}

func success(provider string, format AudioFormat, audio []byte) Result {
	return Result{OK: true, Provider: provider, Format: format, Audio: audio}
}

func failure(provider string, status int, err error) Result {
	return Result{OK: false, Provider: provider, Status: status, Err: err}
}

// Error describes the failure for logging
func (r Result) Error() string {
	if r.OK {
		return ""
	}
	var b strings.Builder
	b.WriteString(r.Provider)
	if r.Status != 0 {
		fmt.Fprintf(&b, " status %d", r.Status)
	}
	if r.Err != nil {
		b.WriteString(": ")
		b.WriteString(r.Err.Error())
	}
	return b.String()
}

// pickFormat returns requested if it is supported, fallback otherwise
func pickFormat(requested AudioFormat, fallback AudioFormat, supported ...AudioFormat) AudioFormat {
	for _, f := range supported {
		if f == requested {
			return requested
		}
	}
	return fallback
}
