package assembler

import (
	"context"
	"fmt"
	"strings"
	"unicode/utf8"

	"github.com/dooshek/duologue/internal/audio"
	"github.com/dooshek/duologue/internal/dialogue"
	"github.com/dooshek/duologue/internal/logger"
)

// lineSeparator joins one speaker's lines into a single utterance
const lineSeparator = "\n"

// AssembleProportional is the legacy strategy: each speaker's lines are
// synthesized as one utterance, and the track is cut back into lines in
// proportion to each line's share of that speaker's characters. Boundaries
// assume a constant speaking rate and are approximate.
//
// Every gap is the base silence. When only one speaker has lines its track
// is laid out without gaps.
func (a *Assembler) AssembleProportional(ctx context.Context, turns []dialogue.Turn) (*Timeline, error) {
	if len(turns) == 0 {
		return nil, fmt.Errorf("no turns to synthesize")
	}

	lines := make(map[dialogue.Speaker][]dialogue.Turn)
	var speakers []dialogue.Speaker
	for _, t := range turns {
		if _, ok := lines[t.Speaker]; !ok {
			speakers = append(speakers, t.Speaker)
		}
		lines[t.Speaker] = append(lines[t.Speaker], t)
	}

	// One synthetic turn per speaker; ordinals index into speakers
	merged := make([]dialogue.Turn, len(speakers))
	for i, sp := range speakers {
		texts := make([]string, len(lines[sp]))
		for k, t := range lines[sp] {
			texts[k] = t.Text
		}
		merged[i] = dialogue.Turn{Ordinal: i, Speaker: sp, Text: strings.Join(texts, lineSeparator)}
	}

	tracks, err := a.Synthesize(ctx, merged)
	if err != nil {
		return nil, err
	}

	// Cut each speaker's track into per-line clips
	cut := make(map[dialogue.Speaker][]Clip, len(speakers))
	for _, track := range tracks {
		sp := speakers[track.Ordinal]
		cut[sp] = a.sliceTrack(track, lines[sp])
	}

	next := make(map[dialogue.Speaker]int, len(speakers))
	clips := make([]Clip, len(turns))
	for i, t := range turns {
		clips[i] = cut[t.Speaker][next[t.Speaker]]
		next[t.Speaker]++
	}

	gap := a.opts.BaseSilence
	if len(speakers) == 1 {
		gap = 0
	}
	tl := &Timeline{
		Segments:   make([]Segment, len(clips)),
		SampleRate: a.opts.SampleRate,
		Channels:   a.opts.Channels,
	}
	for i, c := range clips {
		tl.Segments[i] = Segment{Clip: c}
		if i+1 < len(clips) {
			tl.Segments[i].Gap = gap
		}
	}
	return tl, nil
}

// sliceTrack splits a whole-speaker track at character-count boundaries.
// A failed track yields one silence placeholder per line.
func (a *Assembler) sliceTrack(track Clip, lines []dialogue.Turn) []Clip {
	clips := make([]Clip, len(lines))

	counts := make([]int, len(lines))
	total := 0
	for i, l := range lines {
		counts[i] = utf8.RuneCountInString(l.Text)
		total += counts[i]
	}

	frames := track.Audio.Frames()
	from, seen := 0, 0
	for i, l := range lines {
		clip := Clip{
			Ordinal:    l.Ordinal,
			Speaker:    l.Speaker,
			Provider:   track.Provider,
			Characters: counts[i],
			Format:     track.Format,
			GainDB:     track.GainDB,
		}
		if track.Silence {
			clip.Silence = true
			clip.Audio = audio.Silence(a.opts.FailureSilence, a.opts.SampleRate, a.opts.Channels)
			clips[i] = clip
			continue
		}

		seen += counts[i]
		to := frames
		if i+1 < len(lines) && total > 0 {
			to = int(int64(seen) * int64(frames) / int64(total))
		}
		clip.Audio = track.Audio.Slice(from, to)
		clips[i] = clip
		from = to
	}

	logger.Debugf("Split %s track of %d frames into %d lines", track.Speaker, frames, len(lines))
	return clips
}
