package tts

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/types"
)

// ErrUnknownProvider is returned for names that were never registered
var ErrUnknownProvider = errors.New("unknown TTS provider")

// Factory builds an adapter from the run configuration
type Factory func(cfg types.Config) (Adapter, error)

// Registry maps provider names to adapter factories
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// DefaultRegistry returns a registry with every built-in provider
func DefaultRegistry() *Registry {
	r := NewRegistry()
	r.Register(types.ProviderSiliconFlow, NewSiliconFlowProvider)
	r.Register(types.ProviderMiniMax, NewMiniMaxProvider)
	r.Register(types.ProviderAliyun, NewAliyunProvider)
	r.Register(types.ProviderElevenLabs, NewElevenLabsProvider)
	r.Register(types.ProviderOpenAI, NewOpenAITTSProvider)
	r.Register(types.ProviderRealtime, NewRealtimeTTSProvider)
	return r
}

// Register adds or replaces a factory
func (r *Registry) Register(name string, factory Factory) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.factories[name] = factory
}

// New creates an adapter for the named provider
func (r *Registry) New(name string, cfg types.Config) (Adapter, error) {
	r.mu.RLock()
	factory, ok := r.factories[name]
	r.mu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %s (supported: %v)", ErrUnknownProvider, name, r.Names())
	}

	adapter, err := factory(cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create TTS provider %s: %w", name, err)
	}

	logger.Debugf("Initialized TTS provider: %s", adapter.Name())
	return adapter, nil
}

// Names returns the registered provider names in sorted order
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// PresetVoices returns the built-in voice list of a provider without
// creating an adapter
func PresetVoices(name string) ([]Voice, error) {
	switch name {
	case types.ProviderSiliconFlow:
		return siliconFlowVoices, nil
	case types.ProviderMiniMax:
		return miniMaxVoices, nil
	case types.ProviderAliyun:
		return aliyunVoices, nil
	case types.ProviderElevenLabs:
		return elevenLabsVoices, nil
	case types.ProviderOpenAI, types.ProviderRealtime:
		return openAIVoices, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, name)
	}
}
