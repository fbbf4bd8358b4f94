// Package pipeline runs one script-to-audio render: parse, route,
// synthesize, assemble and export.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/dooshek/duologue/internal/assembler"
	"github.com/dooshek/duologue/internal/audio"
	"github.com/dooshek/duologue/internal/dialogue"
	"github.com/dooshek/duologue/internal/exporter"
	"github.com/dooshek/duologue/internal/fileops"
	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/router"
	"github.com/dooshek/duologue/internal/tts"
	"github.com/dooshek/duologue/internal/types"
)

// Pipeline holds everything a render needs. The configuration is read-only
// after New.
type Pipeline struct {
	cfg      types.Config
	parser   dialogue.Parser
	registry *tts.Registry
	fileOps  fileops.FileOps
	decoder  func(workDir string) audio.Decoder
	host     tts.Adapter
	guest    tts.Adapter
	router   *router.Router
}

// Option customizes a Pipeline
type Option func(*Pipeline)

// WithRegistry sets the provider registry used to build adapters
func WithRegistry(r *tts.Registry) Option {
	return func(p *Pipeline) { p.registry = r }
}

// WithAdapters binds adapters directly instead of building them from the
// registry
func WithAdapters(host, guest tts.Adapter) Option {
	return func(p *Pipeline) {
		p.host = host
		p.guest = guest
	}
}

// WithDecoder replaces the ffmpeg-backed decoder
func WithDecoder(d audio.Decoder) Option {
	return func(p *Pipeline) {
		p.decoder = func(string) audio.Decoder { return d }
	}
}

// WithFileOps sets where work directories are created
func WithFileOps(f fileops.FileOps) Option {
	return func(p *Pipeline) { p.fileOps = f }
}

// New validates cfg and builds one adapter per speaker role. Unknown
// provider names and missing credentials fail here, before any synthesis.
func New(cfg types.Config, opts ...Option) (*Pipeline, error) {
	p := &Pipeline{
		cfg:      cfg.WithDefaults(),
		registry: tts.DefaultRegistry(),
		decoder: func(workDir string) audio.Decoder {
			return audio.FFmpegDecoder{WorkDir: workDir}
		},
	}
	for _, opt := range opts {
		opt(p)
	}
	p.parser = dialogue.Parser{Lenient: p.cfg.Dialogue.LenientTags}

	if p.fileOps == nil {
		f, err := fileops.NewDefaultFileOps()
		if err != nil {
			return nil, fmt.Errorf("failed to initialize file operations: %w", err)
		}
		p.fileOps = f
	}

	d := p.cfg.Dialogue
	var err error
	if p.host == nil {
		if p.host, err = p.registry.New(d.Host.Provider, p.cfg); err != nil {
			return nil, fmt.Errorf("host voice: %w", err)
		}
	}
	if p.guest == nil {
		if p.guest, err = p.registry.New(d.Guest.Provider, p.cfg); err != nil {
			return nil, fmt.Errorf("guest voice: %w", err)
		}
	}

	p.router, err = router.New(
		router.Binding{Adapter: p.host, Profile: router.ProfileFromConfig(d.Host)},
		router.Binding{Adapter: p.guest, Profile: router.ProfileFromConfig(d.Guest)},
	)
	if err != nil {
		return nil, err
	}

	logger.Debugf("Pipeline ready: host=%s guest=%s strategy=%s", p.host.Name(), p.guest.Name(), d.Strategy)
	return p, nil
}

// Config returns the effective configuration
func (p *Pipeline) Config() types.Config {
	return p.cfg
}

// Report summarizes a finished render
type Report struct {
	Artifact *exporter.Artifact
	Timeline *assembler.Timeline
	Turns    int
	Failures int
	Elapsed  time.Duration
}

// Run renders script to outPath. A script without turns fails with
// *dialogue.ParseError and produces no file. Cancelling ctx stops new
// synthesis calls; the work directory is removed however Run returns.
func (p *Pipeline) Run(ctx context.Context, script, outPath, format string) (*Report, error) {
	start := time.Now()

	turns, err := p.parser.Parse(script)
	if err != nil {
		return nil, err
	}
	counts := dialogue.CountBySpeaker(turns)
	logger.Infof("Parsed %d turns (host: %d, guest: %d)", len(turns), counts[dialogue.Host], counts[dialogue.Guest])

	if err := ctx.Err(); err != nil {
		return nil, err
	}

	workDir, release, err := p.fileOps.NewWorkDir()
	if err != nil {
		return nil, fmt.Errorf("failed to create work directory: %w", err)
	}
	defer release()

	asm := assembler.New(p.router, p.decoder(workDir), assembler.OptionsFromConfig(p.cfg.Dialogue))
	timeline, err := asm.Assemble(ctx, turns)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	if failures := timeline.Failures(); failures > 0 {
		logger.Warnf("%d of %d turns replaced with silence", failures, len(turns))
	}

	artifact, err := exporter.Exporter{WorkDir: workDir}.Export(ctx, timeline.Render(), outPath, format)
	if err != nil {
		return nil, err
	}

	return &Report{
		Artifact: artifact,
		Timeline: timeline,
		Turns:    len(turns),
		Failures: timeline.Failures(),
		Elapsed:  time.Since(start),
	}, nil
}
