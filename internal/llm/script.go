package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/types"
)

const storyPrompt = `You are a radio host who turns written stories into a lively spoken dialogue between a host and a guest.
The guest tells the story in a casual, gossipy voice; the host asks short follow-up questions and adds sharp comments.
Always let the guest open the conversation. Keep each host line under 100 characters.
You may use these inline speech markers: <strong>text</strong> for emphasis, <laughter>text</laughter>,
and [breath], [noise], [laughter], [cough], [clucking], [accent], [quick_breath], [hissing], [sigh], [lipsmack], [mm].
A line may start with a short speaking instruction followed by <|endofprompt|>.
Format: every line must start with [Host] or [Guest] immediately followed by the spoken text, with no space after the tag.
Output only the dialogue.`

const translatePrompt = `You are a professional translator of spoken dialogue scripts.
Translate the script into %s so it sounds natural when read aloud.
Rules:
1. Keep the original line structure.
2. Keep speaker tags such as [Host], [Guest], [主持人] and [嘉宾] exactly as written.
3. Keep all inline markup such as <strong>, [breath] and [laughter].
4. Output only the translated script.`

// Scripter produces dialogue scripts with a chat-completion provider
type Scripter struct {
	provider    Provider
	model       string
	temperature float32
}

// NewScripter creates a Scripter from the LLM configuration
func NewScripter(provider Provider, cfg types.LLMConfig) *Scripter {
	return &Scripter{
		provider:    provider,
		model:       cfg.Model,
		temperature: cfg.Temperature,
	}
}

// ConvertStory rewrites a story as a tagged two-speaker script. An empty
// customPrompt selects the built-in instructions. On failure the partial
// script is returned along with the error.
func (s *Scripter) ConvertStory(ctx context.Context, story, customPrompt string, onChunk func(string)) (string, error) {
	prompt := customPrompt
	if prompt == "" {
		prompt = storyPrompt
	}
	return s.run(ctx, "convert story", prompt, story, onChunk)
}

// Translate translates a tagged script into language, keeping tags and markup
func (s *Scripter) Translate(ctx context.Context, script, language string, onChunk func(string)) (string, error) {
	if language == "" {
		language = "English"
	}
	return s.run(ctx, "translate script", fmt.Sprintf(translatePrompt, language), script, onChunk)
}

func (s *Scripter) run(ctx context.Context, task, system, user string, onChunk func(string)) (string, error) {
	if strings.TrimSpace(user) == "" {
		return "", fmt.Errorf("%s: input is empty", task)
	}

	logger.Infof("Starting %s with model %s (%d chars)", task, s.model, len(user))

	text, err := s.provider.Stream(ctx, CompletionRequest{
		Model: s.model,
		Messages: []ChatCompletionMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: user},
		},
		Temperature: s.temperature,
	}, onChunk)
	if err != nil {
		return text, fmt.Errorf("%s: %w", task, err)
	}

	logger.Debugf("Finished %s: %d chars", task, len(text))
	return text, nil
}
