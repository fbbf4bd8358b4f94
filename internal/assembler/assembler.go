// Package assembler synthesizes dialogue turns concurrently and stitches
// the resulting clips into one timeline in turn order.
package assembler

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/dooshek/duologue/internal/audio"
	"github.com/dooshek/duologue/internal/dialogue"
	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/router"
	"github.com/dooshek/duologue/internal/tts"
	"github.com/dooshek/duologue/internal/types"
)

// peakCeilingDBFS bounds normalization gain so clips never clip
const peakCeilingDBFS = -1.0

// Options controls synthesis scheduling and timeline layout
type Options struct {
	SampleRate         int
	Channels           int
	BaseSilence        time.Duration
	SpeakerChangeExtra time.Duration
	FailureSilence     time.Duration
	Concurrency        int
	Timeout            time.Duration
	Normalize          bool
	TargetDBFS         float64
	// Format is requested from providers. Adapters may return another.
	Format   tts.AudioFormat
	Strategy string
}

// OptionsFromConfig derives assembly options from the dialogue config
func OptionsFromConfig(d types.DialogueConfig) Options {
	return Options{
		SampleRate:         d.SampleRate,
		Channels:           d.Channels,
		BaseSilence:        d.BaseSilence(),
		SpeakerChangeExtra: d.SpeakerChangeExtra(),
		FailureSilence:     d.FailureSilence(),
		Concurrency:        d.Concurrency,
		Timeout:            d.Timeout(),
		Normalize:          d.NormalizeEnabled(),
		TargetDBFS:         d.NormalizeTargetDB,
		Format:             tts.FormatWAV,
		Strategy:           d.Strategy,
	}
}

// Clip is the synthesized audio of one turn, or its silence placeholder
type Clip struct {
	Ordinal    int
	Speaker    dialogue.Speaker
	Provider   string
	Characters int
	Audio      *audio.Buffer
	Silence    bool
	// Format is what the provider actually returned
	Format tts.AudioFormat
	// GainDB is the normalization gain applied to the clip
	GainDB float64
}

// Assembler turns parsed turns into a timeline
type Assembler struct {
	router  *router.Router
	decoder audio.Decoder
	opts    Options
}

// New creates an assembler. Zero option values get working defaults.
func New(r *router.Router, decoder audio.Decoder, opts Options) *Assembler {
	if opts.Concurrency <= 0 {
		opts.Concurrency = 1
	}
	if opts.SampleRate <= 0 {
		opts.SampleRate = 24000
	}
	if opts.Channels <= 0 {
		opts.Channels = 1
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 60 * time.Second
	}
	if opts.Format == "" {
		opts.Format = tts.FormatWAV
	}
	return &Assembler{router: r, decoder: decoder, opts: opts}
}

// Assemble synthesizes every turn and lays the clips out with the
// configured strategy
func (a *Assembler) Assemble(ctx context.Context, turns []dialogue.Turn) (*Timeline, error) {
	if a.opts.Strategy == types.StrategyProportional {
		return a.AssembleProportional(ctx, turns)
	}

	clips, err := a.Synthesize(ctx, turns)
	if err != nil {
		return nil, err
	}
	return BuildTimeline(clips, a.opts), nil
}

type job struct {
	turn    dialogue.Turn
	binding router.Binding
}

// Synthesize runs one synthesis call per turn with at most
// Options.Concurrency calls in flight and returns the clips sorted by
// ordinal. A failed call yields a silence placeholder. Once ctx is done no
// further calls start; calls already running finish under their own
// timeout and ctx.Err() is returned.
func (a *Assembler) Synthesize(ctx context.Context, turns []dialogue.Turn) ([]Clip, error) {
	if len(turns) == 0 {
		return nil, errors.New("no turns to synthesize")
	}

	jobs := make([]job, len(turns))
	for i, turn := range turns {
		b, err := a.router.Route(turn)
		if err != nil {
			return nil, err
		}
		jobs[i] = job{turn: turn, binding: b}
	}

	sem := make(chan struct{}, a.opts.Concurrency)
	results := make(chan Clip, len(jobs))
	var wg sync.WaitGroup

dispatch:
	for _, j := range jobs {
		select {
		case <-ctx.Done():
			break dispatch
		case sem <- struct{}{}:
		}
		if ctx.Err() != nil {
			<-sem
			break dispatch
		}

		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			defer func() { <-sem }()
			results <- a.synthesizeTurn(ctx, j)
		}(j)
	}

	wg.Wait()
	close(results)

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("synthesis cancelled: %w", err)
	}

	clips := make([]Clip, 0, len(jobs))
	for c := range results {
		clips = append(clips, c)
	}
	sort.Slice(clips, func(i, k int) bool { return clips[i].Ordinal < clips[k].Ordinal })

	return clips, nil
}

// synthesizeTurn never fails: problems become a silence clip
func (a *Assembler) synthesizeTurn(ctx context.Context, j job) Clip {
	callCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), a.opts.Timeout)
	defer cancel()

	clip := Clip{
		Ordinal:    j.turn.Ordinal,
		Speaker:    j.turn.Speaker,
		Provider:   j.binding.Adapter.Name(),
		Characters: utf8.RuneCountInString(j.turn.Text),
	}

	start := time.Now()
	res := j.binding.Adapter.Synthesize(callCtx, j.turn.Text, j.binding.Profile, a.opts.Format)
	if !res.OK {
		return a.silence(clip, res.Status, res.Err)
	}

	buf, err := a.decoder.Decode(callCtx, audio.Encoded{
		Data:       res.Audio,
		Format:     string(res.Format),
		SampleRate: res.SampleRate,
		Channels:   res.Channels,
	}, a.opts.SampleRate, a.opts.Channels)
	if err != nil {
		return a.silence(clip, 0, fmt.Errorf("undecodable %s audio: %w", res.Format, err))
	}
	if buf.Frames() == 0 {
		return a.silence(clip, 0, errors.New("provider returned empty audio"))
	}

	if a.opts.Normalize {
		clip.GainDB = audio.Normalize(buf, a.opts.TargetDBFS, peakCeilingDBFS)
	}
	clip.Audio = buf
	clip.Format = res.Format

	logger.Debugf("Turn %d (%s) synthesized by %s: %s of audio in %s",
		clip.Ordinal, clip.Speaker, clip.Provider, buf.Duration().Round(time.Millisecond), time.Since(start).Round(time.Millisecond))
	return clip
}

func (a *Assembler) silence(clip Clip, status int, err error) Clip {
	fields := map[string]interface{}{
		"ordinal":  clip.Ordinal,
		"speaker":  clip.Speaker.String(),
		"provider": clip.Provider,
	}
	if status != 0 {
		fields["status"] = status
	}
	if err != nil {
		fields["error"] = err.Error()
	}
	logger.Warnw("Synthesis failed, substituting silence", fields)

	clip.Silence = true
	clip.Audio = audio.Silence(a.opts.FailureSilence, a.opts.SampleRate, a.opts.Channels)
	return clip
}
