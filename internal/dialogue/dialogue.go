// Package dialogue turns a role-tagged script into ordered speaker turns.
package dialogue

import (
	"fmt"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Speaker is the role a turn is attributed to
type Speaker int

const (
	Host Speaker = iota
	Guest
)

func (s Speaker) String() string {
	switch s {
	case Host:
		return "host"
	case Guest:
		return "guest"
	default:
		return fmt.Sprintf("speaker(%d)", int(s))
	}
}

// Turn is one attributed block of dialogue. Text keeps inline markup.
type Turn struct {
	Ordinal int
	Speaker Speaker
	Text    string
}

// ParseError reports a script from which no turn could be recovered
type ParseError struct {
	Reason string
}

func (e *ParseError) Error() string {
	return "parse dialogue: " + e.Reason
}

// roleTokens is the fixed tag vocabulary. Both the English and the Chinese
// spelling are accepted.
var roleTokens = []struct {
	tag     string
	speaker Speaker
}{
	{"[Host]", Host},
	{"[Guest]", Guest},
	{"[主持人]", Host},
	{"[嘉宾]", Guest},
}

// Parser splits scripts into turns.
type Parser struct {
	// Lenient lets a role tag followed by whitespace still open a turn.
	// In strict mode such a tag is kept as literal text.
	Lenient bool
}

// Parse parses text with a strict Parser
func Parse(text string) ([]Turn, error) {
	return Parser{}.Parse(text)
}

// Parse returns the turns of text in source order. Empty turns are dropped.
// Consecutive turns of the same speaker stay separate.
func (p Parser) Parse(text string) ([]Turn, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Reason: "script is empty"}
	}

	var (
		turns   []Turn
		current *Speaker
		start   int
		sawTag  bool
	)

	flush := func(end int) {
		if current == nil {
			return
		}
		body := strings.TrimSpace(text[start:end])
		if body == "" {
			return
		}
		turns = append(turns, Turn{
			Ordinal: len(turns),
			Speaker: *current,
			Text:    body,
		})
	}

	for i := 0; i < len(text); {
		if text[i] != '[' {
			i++
			continue
		}
		speaker, width, ok := p.matchToken(text[i:])
		if !ok {
			i++
			continue
		}
		flush(i)
		sawTag = true
		s := speaker
		current = &s
		i += width
		start = i
	}
	flush(len(text))

	if !sawTag {
		return nil, &ParseError{Reason: "no role tags found"}
	}
	if len(turns) == 0 {
		return nil, &ParseError{Reason: "every tagged turn is empty"}
	}
	return turns, nil
}

// matchToken reports whether s begins with a role token that opens a turn
func (p Parser) matchToken(s string) (Speaker, int, bool) {
	for _, rt := range roleTokens {
		if !strings.HasPrefix(s, rt.tag) {
			continue
		}
		if p.Lenient {
			return rt.speaker, len(rt.tag), true
		}
		next, _ := utf8.DecodeRuneInString(s[len(rt.tag):])
		if next == utf8.RuneError && len(s) == len(rt.tag) {
			// a tag at the very end of input opens an empty turn
			return rt.speaker, len(rt.tag), true
		}
		if unicode.IsSpace(next) {
			return 0, 0, false
		}
		return rt.speaker, len(rt.tag), true
	}
	return 0, 0, false
}

// CountBySpeaker returns how many turns each speaker has
func CountBySpeaker(turns []Turn) map[Speaker]int {
	counts := make(map[Speaker]int, 2)
	for _, t := range turns {
		counts[t.Speaker]++
	}
	return counts
}
