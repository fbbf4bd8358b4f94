package main

import (
	"context"
	"flag"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/dooshek/duologue/internal/fileops"
	"github.com/dooshek/duologue/internal/llm"
	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/stats"
	"github.com/dooshek/duologue/internal/tts"
	"github.com/fatih/color"
)

type command func(fs *flag.FlagSet, args []string) error

var subcommands = map[string]command{
	"convert":   runConvert,
	"translate": runTranslate,
	"voices":    runVoices,
	"stats":     runStats,
}

func runConvert(fs *flag.FlagSet, args []string) error {
	common := addCommonFlags(fs)
	in := fs.String("in", "-", "Story file to convert (- reads stdin)")
	out := fs.String("out", "", "Write the script to this file instead of stdout")
	prompt := fs.String("prompt", "", "File with custom conversion instructions")
	fs.Parse(args)

	customPrompt := ""
	if *prompt != "" {
		p, err := readInput(*prompt)
		if err != nil {
			return err
		}
		customPrompt = p
	}

	return runScripter(common, *in, *out, func(ctx context.Context, s *llm.Scripter, input string, onChunk func(string)) (string, error) {
		return s.ConvertStory(ctx, input, customPrompt, onChunk)
	})
}

func runTranslate(fs *flag.FlagSet, args []string) error {
	common := addCommonFlags(fs)
	in := fs.String("in", "-", "Script file to translate (- reads stdin)")
	out := fs.String("out", "", "Write the translation to this file instead of stdout")
	lang := fs.String("lang", "English", "Target language")
	fs.Parse(args)

	return runScripter(common, *in, *out, func(ctx context.Context, s *llm.Scripter, input string, onChunk func(string)) (string, error) {
		return s.Translate(ctx, input, *lang, onChunk)
	})
}

type scripterTask func(ctx context.Context, s *llm.Scripter, input string, onChunk func(string)) (string, error)

// runScripter streams an LLM task to stdout. When the task fails midway the
// partial text is kept in out+".partial".
func runScripter(common commonFlags, in, out string, task scripterTask) error {
	cfg, closeLog, err := common.setup()
	if err != nil {
		return err
	}
	defer closeLog()

	input, err := readInput(in)
	if err != nil {
		return err
	}

	provider, err := llm.NewProvider(cfg.LLM)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	onChunk := func(chunk string) {
		fmt.Print(chunk)
	}
	if out != "" {
		onChunk = nil
	}

	text, err := task(ctx, llm.NewScripter(provider, cfg.LLM), input, onChunk)
	if out == "" {
		fmt.Println()
	}
	if err != nil {
		if out != "" && text != "" {
			partial := out + ".partial"
			if werr := fileops.WriteFileAtomic(partial, []byte(text), 0o644); werr != nil {
				logger.Error("Failed to save partial output", werr)
			} else {
				color.Yellow("⚠️  Partial output saved to %s", partial)
			}
		}
		return err
	}

	if out != "" {
		if err := fileops.WriteFileAtomic(out, []byte(text), 0o644); err != nil {
			return err
		}
		color.Green("✅ Saved %s", out)
	}
	return nil
}

func runVoices(fs *flag.FlagSet, args []string) error {
	provider := fs.String("provider", "", "Only list voices of this provider")
	fs.Parse(args)

	names := tts.DefaultRegistry().Names()
	if *provider != "" {
		names = []string{*provider}
	}

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	for _, name := range names {
		voices, err := tts.PresetVoices(name)
		if err != nil {
			return err
		}
		bold.Println(name)
		for _, v := range voices {
			cyan.Printf("  %-28s", v.ID)
			fmt.Println(v.Name)
		}
	}
	return nil
}

func runStats(fs *flag.FlagSet, args []string) error {
	reset := fs.Bool("reset", false, "Clear all recorded statistics")
	fs.Parse(args)

	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return fmt.Errorf("failed to initialize file operations: %w", err)
	}
	sm := stats.NewStatsManager(fileOps)

	if *reset {
		if err := sm.Reset(); err != nil {
			return err
		}
		color.Green("✅ Statistics cleared")
		return nil
	}

	s := sm.GetStats()
	if s.Renders == 0 {
		color.Yellow("No renders recorded yet")
		return nil
	}

	bold := color.New(color.Bold)
	cyan := color.New(color.FgCyan)
	yellow := color.New(color.FgYellow)

	bold.Printf("📊 %d renders\n", s.Renders)
	for _, name := range s.ProviderNames() {
		p := s.Providers[name]
		cyan.Printf("  %-12s", name)
		fmt.Printf("%8d chars %6d turns %8.1fs audio", p.Characters, p.Turns, p.AudioSeconds)
		if p.Failures > 0 {
			yellow.Printf("  %d failed", p.Failures)
		}
		fmt.Println()
	}
	return nil
}
