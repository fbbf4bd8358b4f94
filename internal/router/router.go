// Package router resolves each dialogue turn to the synthesis adapter and
// voice profile bound to its speaker.
package router

import (
	"errors"
	"fmt"

	"github.com/dooshek/duologue/internal/dialogue"
	"github.com/dooshek/duologue/internal/tts"
	"github.com/dooshek/duologue/internal/types"
)

// ErrUnboundSpeaker is returned when a turn's speaker has no adapter
var ErrUnboundSpeaker = errors.New("no synthesis binding for speaker")

// Binding pairs an adapter with the profile it synthesizes for one role
type Binding struct {
	Adapter tts.Adapter
	Profile tts.VoiceProfile
}

// Router is a read-only lookup from speaker role to binding. It is safe
// for concurrent use.
type Router struct {
	bindings map[dialogue.Speaker]Binding
}

// New binds the two speaker roles. Host and guest may use different
// providers.
func New(host, guest Binding) (*Router, error) {
	r := &Router{bindings: make(map[dialogue.Speaker]Binding, 2)}
	for speaker, b := range map[dialogue.Speaker]Binding{dialogue.Host: host, dialogue.Guest: guest} {
		if b.Adapter == nil {
			return nil, fmt.Errorf("%w: %s", ErrUnboundSpeaker, speaker)
		}
		r.bindings[speaker] = b
	}
	return r, nil
}

// Route returns the binding for the turn's speaker
func (r *Router) Route(turn dialogue.Turn) (Binding, error) {
	b, ok := r.bindings[turn.Speaker]
	if !ok {
		return Binding{}, fmt.Errorf("%w: %s (turn %d)", ErrUnboundSpeaker, turn.Speaker, turn.Ordinal)
	}
	return b, nil
}

// ProfileFromConfig converts a configured speaker into a voice profile
func ProfileFromConfig(sc types.SpeakerConfig) tts.VoiceProfile {
	var params map[string]string
	if len(sc.Params) > 0 {
		params = make(map[string]string, len(sc.Params))
		for k, v := range sc.Params {
			params[k] = v
		}
	}
	return tts.VoiceProfile{
		Provider:        sc.Provider,
		VoiceID:         sc.Voice,
		Model:           sc.Model,
		Speed:           sc.Speed,
		Gain:            sc.Gain,
		Stability:       sc.Stability,
		SimilarityBoost: sc.SimilarityBoost,
		Params:          params,
	}
}
