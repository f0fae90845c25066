package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/apresai/dialoguegen/internal/config"
	"github.com/apresai/dialoguegen/internal/dialogue"
	"github.com/apresai/dialoguegen/internal/observability"
	"github.com/apresai/dialoguegen/internal/pipeline"
	"github.com/apresai/dialoguegen/internal/progress"
	"github.com/apresai/dialoguegen/internal/record"
)

var Version = "dev"

var rootCmd = &cobra.Command{
	Use:               "dialoguegen",
	Short:             "Generate and save NPC dialogue lines for game characters",
	SilenceUsage:      true,
	PersistentPreRunE: setup,
	RunE: func(cmd *cobra.Command, args []string) error {
		return runEditor(cmd.Context(), app)
	},
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version information",
	// skip setup: version must work with a broken environment
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "dialoguegen %s\n", Version)
	},
}

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate one line of dialogue for a character",
	Args:  cobra.NoArgs,
	RunE:  runGenerate,
}

var saveCmd = &cobra.Command{
	Use:   "save [text...]",
	Short: "Save a dialogue line as a JSON record",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runSave,
}

var charactersCmd = &cobra.Command{
	Use:   "characters",
	Short: "List available characters",
	Args:  cobra.NoArgs,
	RunE:  runCharacters,
}

var (
	flagCharacter string
	flagInput     string
	flagSave      bool
	flagOutputDir string
	flagDelay     time.Duration
	flagSeed      int64
	flagVerbose   bool
	flagTimestamp string
	flagProfiles  string
	flagLogLevel  string
	flagLogFile   string
)

// deps is everything a command needs, built once per invocation.
type deps struct {
	cfg     config.Config
	log     *slog.Logger
	catalog *dialogue.Catalog
	picker  *dialogue.Picker
	writer  *record.Writer
	tp      *sdktrace.TracerProvider
	logFile *os.File
}

var app *deps

func init() {
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(generateCmd)
	rootCmd.AddCommand(saveCmd)
	rootCmd.AddCommand(charactersCmd)

	rootCmd.PersistentFlags().StringVar(&flagProfiles, "profiles", "", "Character profile YAML file (overrides DIALOGUEGEN_PROFILES)")
	rootCmd.PersistentFlags().StringVar(&flagLogLevel, "log-level", "", "Log level: debug, info, warn, error (overrides DIALOGUEGEN_LOG_LEVEL)")
	rootCmd.PersistentFlags().StringVar(&flagLogFile, "log-file", "", "Write logs to this file instead of stderr")

	generateCmd.Flags().StringVarP(&flagCharacter, "character", "c", "", "Character id, e.g. \"City Guard\"")
	generateCmd.Flags().StringVarP(&flagInput, "input", "i", "", "What the player says (recorded in logs only)")
	generateCmd.Flags().BoolVar(&flagSave, "save", false, "Save the generated line as a JSON record")
	generateCmd.Flags().StringVarP(&flagOutputDir, "output", "o", "", "Directory for saved records (overrides DIALOGUEGEN_OUTPUT_DIR)")
	generateCmd.Flags().DurationVar(&flagDelay, "delay", dialogue.DefaultDelay, "Simulated generation delay")
	generateCmd.Flags().Int64Var(&flagSeed, "seed", 0, "Random seed (0 draws a fresh one)")
	generateCmd.Flags().BoolVarP(&flagVerbose, "verbose", "v", false, "Enable detailed logging instead of the progress bar")
	_ = generateCmd.MarkFlagRequired("character")

	saveCmd.Flags().StringVarP(&flagCharacter, "character", "c", "", "Character id the line belongs to")
	saveCmd.Flags().StringVarP(&flagOutputDir, "output", "o", "", "Directory for the record (overrides DIALOGUEGEN_OUTPUT_DIR)")
	saveCmd.Flags().StringVar(&flagTimestamp, "timestamp", "", "dateCreated value (default: now, in DIALOGUEGEN_TIME_LAYOUT)")
	_ = saveCmd.MarkFlagRequired("character")
}

// Execute runs the command tree. Teardown runs even when a command fails,
// so spans are flushed and the log file is closed.
func Execute() error {
	defer teardown()
	return rootCmd.Execute()
}

// setup loads config, applies flag overrides and builds the shared deps.
func setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}
	applyFlags(cmd, &cfg)
	if err := cfg.Validate(); err != nil {
		return err
	}

	d := &deps{cfg: cfg}
	app = d
	logOut, err := d.logWriter(cmd)
	if err != nil {
		return err
	}
	level, err := observability.ParseLevel(cfg.LogLevel)
	if err != nil {
		return err
	}
	if cmd == generateCmd && !flagVerbose && d.logFile == nil && flagLogLevel == "" {
		// keep stderr for the progress bar
		level = max(level, slog.LevelWarn)
	}
	if flagVerbose {
		level = slog.LevelDebug
	}
	d.log = observability.InitLogger(logOut, level, cfg.LogFormat)

	tp, err := observability.InitTracer(cmd.Context(), "dialoguegen", Version, cfg.Tracing)
	if err != nil {
		d.log.Warn("Failed to init tracer, continuing without tracing", "error", err)
	} else {
		d.tp = tp
	}

	d.catalog, err = cfg.Catalog()
	if err != nil {
		return err
	}
	d.picker = dialogue.NewPicker(d.catalog, cfg.Seed)
	d.writer = record.NewWriter(record.WithSeed(cfg.Seed), record.WithKnownCharacters(d.catalog))
	return nil
}

func teardown() {
	if app == nil {
		return
	}
	if app.tp != nil && app.log != nil {
		if err := app.tp.Shutdown(context.Background()); err != nil {
			app.log.Error("Tracer shutdown error", "error", err)
		}
	}
	if app.logFile != nil {
		app.logFile.Close()
	}
	app = nil
}

func applyFlags(cmd *cobra.Command, cfg *config.Config) {
	if flagProfiles != "" {
		cfg.ProfilesFile = flagProfiles
	}
	if flagLogLevel != "" {
		cfg.LogLevel = strings.ToLower(flagLogLevel)
	}
	if flagOutputDir != "" {
		cfg.OutputDir = flagOutputDir
	}
	if f := cmd.Flags().Lookup("delay"); f != nil && f.Changed {
		cfg.Delay = flagDelay
	}
	if f := cmd.Flags().Lookup("seed"); f != nil && f.Changed {
		cfg.Seed = flagSeed
	}
}

// logWriter picks the log destination. The editor owns the terminal, so it
// only logs when a file is given.
func (d *deps) logWriter(cmd *cobra.Command) (io.Writer, error) {
	if flagLogFile != "" {
		f, err := os.OpenFile(flagLogFile, os.O_WRONLY|os.O_CREATE|os.O_APPEND, 0644)
		if err != nil {
			return nil, fmt.Errorf("open log file: %w", err)
		}
		d.logFile = f
		return f, nil
	}
	if !cmd.HasParent() {
		return io.Discard, nil
	}
	return cmd.ErrOrStderr(), nil
}

func (d *deps) generator(opts ...dialogue.Option) *dialogue.Generator {
	opts = append([]dialogue.Option{
		dialogue.WithDelay(d.cfg.Delay),
		dialogue.WithLogger(d.log),
	}, opts...)
	return dialogue.NewGenerator(d.picker, opts...)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	opts := pipeline.Options{
		Character:  flagCharacter,
		Input:      flagInput,
		Save:       flagSave,
		OutputDir:  app.cfg.OutputDir,
		TimeLayout: app.cfg.TimeLayout,
		Logger:     app.log,
	}

	// Wire up progress bar when not in verbose mode
	var genOpts []dialogue.Option
	if !flagVerbose {
		r := newRenderer(cmd.ErrOrStderr())
		defer r.Finish()
		opts.OnProgress = r.Handle
		genOpts = append(genOpts, dialogue.WithProgress(r.Handle))
	}

	out, err := pipeline.Run(cmd.Context(), app.generator(genOpts...), app.writer, opts)
	if out != nil {
		fmt.Fprintln(cmd.OutOrStdout(), out.Text)
	}
	if err != nil {
		return err
	}
	if out.File != "" {
		fmt.Fprintln(cmd.OutOrStdout(), out.File)
	}
	return nil
}

func newRenderer(w io.Writer) *progress.BarRenderer {
	if f, ok := w.(*os.File); ok {
		return progress.NewBarRenderer(f)
	}
	return progress.NewPlainRenderer(w)
}

func runSave(cmd *cobra.Command, args []string) error {
	ts := flagTimestamp
	if ts == "" {
		ts = app.cfg.Timestamp(time.Now())
	}
	text := strings.Join(args, " ")

	path, err := app.writer.Save(flagCharacter, text, ts, app.cfg.OutputDir)
	if err != nil {
		return err
	}
	app.log.InfoContext(cmd.Context(), "Dialogue saved", "character", flagCharacter, "path", path)
	fmt.Fprintln(cmd.OutOrStdout(), path)
	return nil
}

func runCharacters(cmd *cobra.Command, args []string) error {
	w := cmd.OutOrStdout()
	fmt.Fprintln(w, "\nAvailable characters:")
	fmt.Fprintf(w, "\n  %-20s %-6s %s\n", "ID", "LINES", "SAMPLE")
	fmt.Fprintf(w, "  %s\n", strings.Repeat("─", 60))
	for _, p := range app.catalog.Profiles() {
		fmt.Fprintf(w, "  %-20s %-6d %s\n", p.ID, len(p.Lines), truncate(p.Lines[0], 40))
	}
	fmt.Fprintln(w)
	return nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
