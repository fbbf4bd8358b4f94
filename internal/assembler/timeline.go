package assembler

import (
	"time"

	"github.com/dooshek/duologue/internal/audio"
)

// Segment is a clip followed by the gap before the next clip
type Segment struct {
	Clip Clip
	Gap  time.Duration
}

// Timeline is the ordered layout of a rendered dialogue
type Timeline struct {
	Segments   []Segment
	SampleRate int
	Channels   int
}

// BuildTimeline lays clips out in order. The gap after a clip is the base
// silence, plus the speaker-change extra when the next clip has a different
// speaker. The last segment has no gap.
func BuildTimeline(clips []Clip, opts Options) *Timeline {
	t := &Timeline{
		Segments:   make([]Segment, len(clips)),
		SampleRate: opts.SampleRate,
		Channels:   opts.Channels,
	}
	for i, c := range clips {
		seg := Segment{Clip: c}
		if i+1 < len(clips) {
			seg.Gap = opts.BaseSilence
			if clips[i+1].Speaker != c.Speaker {
				seg.Gap += opts.SpeakerChangeExtra
			}
		}
		t.Segments[i] = seg
	}
	return t
}

// Render concatenates every clip and gap into one buffer
func (t *Timeline) Render() *audio.Buffer {
	total := 0
	for _, s := range t.Segments {
		total += len(s.Clip.Audio.Samples) + audio.FramesFor(s.Gap, t.SampleRate)*t.Channels
	}

	out := audio.NewBuffer(t.SampleRate, t.Channels)
	out.Samples = make([]int16, 0, total)
	for _, s := range t.Segments {
		out.Samples = append(out.Samples, s.Clip.Audio.Samples...)
		out.AppendSilence(s.Gap)
	}
	return out
}

// Duration is the length of the rendered timeline
func (t *Timeline) Duration() time.Duration {
	var d time.Duration
	for _, s := range t.Segments {
		d += s.Clip.Audio.Duration() + s.Gap
	}
	return d
}

// Failures counts silence placeholders
func (t *Timeline) Failures() int {
	n := 0
	for _, s := range t.Segments {
		if s.Clip.Silence {
			n++
		}
	}
	return n
}

// Clips returns the clips in timeline order
func (t *Timeline) Clips() []Clip {
	clips := make([]Clip, len(t.Segments))
	for i, s := range t.Segments {
		clips[i] = s.Clip
	}
	return clips
}
