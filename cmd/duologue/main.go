package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/dooshek/duologue/internal/assembler"
	"github.com/dooshek/duologue/internal/config"
	"github.com/dooshek/duologue/internal/dialogue"
	"github.com/dooshek/duologue/internal/fileops"
	"github.com/dooshek/duologue/internal/logger"
	"github.com/dooshek/duologue/internal/notification"
	"github.com/dooshek/duologue/internal/pipeline"
	"github.com/dooshek/duologue/internal/playback"
	"github.com/dooshek/duologue/internal/stats"
	"github.com/dooshek/duologue/internal/types"
	"github.com/fatih/color"
)

func init() {
	flag.Usage = usageFor(flag.CommandLine)
}

// usageFor prints flags with the -- prefix
func usageFor(fs *flag.FlagSet) func() {
	return func() {
		out := fs.Output()
		fmt.Fprintf(out, "Usage of %s:\n", fs.Name())
		fs.VisitAll(func(f *flag.Flag) {
			fmt.Fprintf(out, "  --%s", f.Name)
			name, usage := flag.UnquoteUsage(f)
			if len(name) > 0 {
				fmt.Fprintf(out, " %s", name)
			}
			fmt.Fprintf(out, "\n    \t%s", usage)
			if f.DefValue != "" && f.DefValue != "false" {
				fmt.Fprintf(out, " (default %q)", f.DefValue)
			}
			fmt.Fprintf(out, "\n")
		})
		if fs == flag.CommandLine {
			fmt.Fprintln(out, "\nSubcommands: convert, translate, voices, stats (run with --help for flags)")
		}
	}
}

// commonFlags are accepted by every command
type commonFlags struct {
	configPath  *string
	logLevel    *string
	logFilename *string
}

func addCommonFlags(fs *flag.FlagSet) commonFlags {
	return commonFlags{
		configPath:  fs.String("config", "", "Path to the YAML config file (default ~/.config/duologue/duologue.yaml)"),
		logLevel:    fs.String("log-level", "info", "Set log level (debug|info|warn|error)"),
		logFilename: fs.String("log-filename", "", "Log to file instead of stderr"),
	}
}

// setup applies logging flags and loads the configuration. The returned
// func closes the log file.
func (c commonFlags) setup() (types.Config, func(), error) {
	logger.SetLevel(*c.logLevel)
	closeLog := func() {}
	if *c.logFilename != "" {
		if err := logger.SetOutputFile(*c.logFilename); err != nil {
			return types.Config{}, closeLog, fmt.Errorf("error setting log file: %w", err)
		}
		closeLog = logger.CloseLogFile
	}

	path := *c.configPath
	if path != "" {
		abs, err := filepath.Abs(path)
		if err != nil {
			return types.Config{}, closeLog, fmt.Errorf("invalid config path: %w", err)
		}
		path = abs
	}

	cfg, err := config.LoadConfig(path)
	if err != nil {
		return types.Config{}, closeLog, fmt.Errorf("error loading config: %w", err)
	}
	return cfg, closeLog, nil
}

func main() {
	if len(os.Args) > 1 {
		if cmd, ok := subcommands[os.Args[1]]; ok {
			fs := flag.NewFlagSet(os.Args[1], flag.ExitOnError)
			fs.Usage = usageFor(fs)
			if err := cmd(fs, os.Args[2:]); err != nil {
				logger.Error(fmt.Sprintf("%s failed", os.Args[1]), err)
				os.Exit(1)
			}
			return
		}
	}

	common := addCommonFlags(flag.CommandLine)
	scriptPath := flag.String("script", "", "Dialogue script to render (- reads stdin)")
	outPath := flag.String("out", "", "Output file (default <output.dir>/<script name>.<format>)")
	format := flag.String("format", "", "Output format: wav, mp3, ogg, opus, flac, aac, pcm (default from --out or config)")
	hostProvider := flag.String("host-provider", "", "Override the host's TTS provider")
	guestProvider := flag.String("guest-provider", "", "Override the guest's TTS provider")
	strategy := flag.String("strategy", "", "Assembly strategy: per-turn or proportional")
	play := flag.Bool("play", false, "Play the result after rendering")
	notify := flag.Bool("notify", false, "Send a desktop notification when done")
	initConfig := flag.Bool("init-config", false, "Write a default config file and exit")
	flag.Parse()

	if *initConfig {
		if err := config.SaveConfig(types.Config{}.WithDefaults()); err != nil {
			logger.Error("Error writing config", err)
			os.Exit(1)
		}
		color.Green("✅ Default config written to ~/.config/duologue/duologue.yaml")
		return
	}

	cfg, closeLog, err := common.setup()
	if err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
	defer closeLog()

	if *scriptPath == "" {
		flag.Usage()
		os.Exit(2)
	}

	if *hostProvider != "" {
		cfg.Dialogue.Host.Provider = *hostProvider
	}
	if *guestProvider != "" {
		cfg.Dialogue.Guest.Provider = *guestProvider
	}
	if *strategy != "" {
		cfg.Dialogue.Strategy = *strategy
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	var notifier notification.Notifier = notification.NewSilent()
	if *notify {
		notifier = notification.New()
	}

	report, err := render(ctx, cfg, *scriptPath, *outPath, *format)
	if err != nil {
		var parseErr *dialogue.ParseError
		if errors.As(err, &parseErr) {
			color.Red("❌ %v", parseErr)
		}
		logger.Error("Render failed", err)
		notifier.NotifyRenderFailed(err)
		closeLog()
		os.Exit(1)
	}

	printSummary(report)
	notifier.NotifyRenderComplete(report.Artifact.Path, report.Artifact.Duration, report.Failures)

	if *play {
		if err := playback.Play(ctx, report.Timeline.Render()); err != nil && !errors.Is(err, context.Canceled) {
			logger.Error("Playback failed", err)
		}
	}
}

func render(ctx context.Context, cfg types.Config, scriptPath, outPath, format string) (*pipeline.Report, error) {
	script, err := readInput(scriptPath)
	if err != nil {
		return nil, err
	}

	fileOps, err := fileops.NewDefaultFileOps()
	if err != nil {
		return nil, fmt.Errorf("failed to initialize file operations: %w", err)
	}

	p, err := pipeline.New(cfg, pipeline.WithFileOps(fileOps))
	if err != nil {
		return nil, err
	}
	cfg = p.Config()

	if outPath == "" {
		outPath = defaultOutPath(cfg.Output, scriptPath, format)
	}
	if format == "" && filepath.Ext(outPath) == "" {
		format = cfg.Output.Format
	}

	logger.Infof("🎙️ Rendering %s (host: %s, guest: %s)", scriptPath, cfg.Dialogue.Host.Provider, cfg.Dialogue.Guest.Provider)
	report, err := p.Run(ctx, script, outPath, format)
	if err != nil {
		return nil, err
	}

	if err := stats.NewStatsManager(fileOps).AddRender(usageOf(report.Timeline.Clips())); err != nil {
		logger.Warnf("Could not record stats: %v", err)
	}
	return report, nil
}

// readInput reads a file, or stdin for "-"
func readInput(path string) (string, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(os.Stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return "", fmt.Errorf("failed to read %s: %w", path, err)
	}
	return string(data), nil
}

func defaultOutPath(out types.OutputConfig, scriptPath, format string) string {
	if format == "" {
		format = out.Format
	}
	name := "dialogue"
	if scriptPath != "-" {
		name = strings.TrimSuffix(filepath.Base(scriptPath), filepath.Ext(scriptPath))
	}
	return filepath.Join(out.Dir, name+"."+strings.ToLower(format))
}

// usageOf aggregates per-provider usage from rendered clips
func usageOf(clips []assembler.Clip) []stats.Usage {
	byProvider := make(map[string]*stats.Usage)
	var order []string
	for _, c := range clips {
		u, ok := byProvider[c.Provider]
		if !ok {
			u = &stats.Usage{Provider: c.Provider}
			byProvider[c.Provider] = u
			order = append(order, c.Provider)
		}
		u.Characters += c.Characters
		u.Turns++
		if c.Silence {
			u.Failures++
		} else {
			u.AudioSeconds += c.Audio.Duration().Seconds()
		}
	}

	usage := make([]stats.Usage, 0, len(order))
	for _, name := range order {
		usage = append(usage, *byProvider[name])
	}
	return usage
}

func printSummary(r *pipeline.Report) {
	bold := color.New(color.Bold)
	green := color.New(color.FgGreen)
	yellow := color.New(color.FgYellow)
	cyan := color.New(color.FgCyan)

	green.Printf("\n✅ %s\n", r.Artifact.Path)
	cyan.Print("   Duration: ")
	fmt.Println(r.Artifact.Duration.Round(time.Millisecond))
	cyan.Print("   Size:     ")
	fmt.Println(humanSize(r.Artifact.Size))
	cyan.Print("   Turns:    ")
	fmt.Println(r.Turns)
	if r.Failures > 0 {
		yellow.Printf("   ⚠️  %d turns replaced with silence (see log for details)\n", r.Failures)
	}
	bold.Printf("   Rendered in %s\n\n", r.Elapsed.Round(time.Millisecond))
}

func humanSize(bytes int64) string {
	const unit = 1024
	if bytes < unit {
		return fmt.Sprintf("%d B", bytes)
	}
	div, exp := int64(unit), 0
	for n := bytes / unit; n >= unit; n /= unit {
		div *= unit
		exp++
	}
	return fmt.Sprintf("%.1f %cB", float64(bytes)/float64(div), "KMGTPE"[exp])
}
