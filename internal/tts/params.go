package tts

import (
	"math"
	"regexp"
	"strings"
)

// clamp limits v to [lo, hi]. NaN becomes lo.
func clamp(v, lo, hi float64) float64 {
	if math.IsNaN(v) {
		return lo
	}
	return math.Max(lo, math.Min(v, hi))
}

// orDefault returns def when v is zero
func orDefault(v, def float64) float64 {
	if v == 0 {
		return def
	}
	return v
}

// contains reports whether s is in list
func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// voiceIDs flattens a preset list to identifiers
func voiceIDs(voices []Voice) []string {
	ids := make([]string, len(voices))
	for i, v := range voices {
		ids[i] = v.ID
	}
	return ids
}

// emotionTags are the bracketed sound-event tags CosyVoice understands
var emotionTags = []string{
	"breath", "noise", "laughter", "cough", "clucking",
	"accent", "quick_breath", "hissing", "sigh", "lipsmack", "mm",
}

var (
	instructionPrefix = regexp.MustCompile(`(?s)^.*<\|endofprompt\|>`)
	htmlTag           = regexp.MustCompile(`<[^>]+>`)
	emotionTag        = regexp.MustCompile(`\[(` + strings.Join(emotionTags, "|") + `)\]`)
	spaceRun          = regexp.MustCompile(`[ \t]{2,}`)
)

// StripMarkup removes markup that only CosyVoice-style backends interpret:
// a natural-language instruction ending in <|endofprompt|>, HTML-style tags
// such as <strong> and <laughter>, and bracketed sound-event tags. Enclosed
// text is kept.
func StripMarkup(text string) string {
	text = instructionPrefix.ReplaceAllString(text, "")
	text = htmlTag.ReplaceAllString(text, "")
	text = emotionTag.ReplaceAllString(text, "")
	text = spaceRun.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
