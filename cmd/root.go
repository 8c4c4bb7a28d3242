package cmd

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/andresmejia3/facemark/internal/annotate"
	"github.com/andresmejia3/facemark/internal/config"
	"github.com/andresmejia3/facemark/internal/faces"
	"github.com/andresmejia3/facemark/internal/faces/dlib"
	"github.com/andresmejia3/facemark/internal/match"
	"github.com/andresmejia3/facemark/internal/types"
	"github.com/andresmejia3/facemark/internal/utils"
)

// Options holds shared settings for the detect and recognize commands
type Options struct {
	Model       types.Model
	Upsample    int
	Strategy    match.Strategy
	KnownPaths  []string
	UnknownPath string
	OutputPath  string
	NoShow      bool
	Labels      bool
}

var (
	// Engine is the face library handle shared by subcommands
	Engine faces.Engine
	// Cfg is the resolved configuration
	Cfg *config.Config

	configPath string
	modelsDir  string
	quiet      bool

	openEngine = func(dir string) (faces.Engine, error) {
		e, err := dlib.New(dir)
		if err != nil {
			return nil, err
		}
		return e, nil
	}
)

// Version is the application version.
const Version = "0.1.0"

var rootCmd = &cobra.Command{
	Use:     "facemark",
	Short:   "Detect faces in photos and find a known face among strangers",
	Version: Version, // This enables the --version flag
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if !needsEngine(cmd) {
			return nil
		}
		cfg, err := config.Load(configPath)
		if err != nil {
			return err
		}
		if modelsDir != "" {
			cfg.ModelsDir = modelsDir
		}
		Cfg = cfg

		if !quiet {
			fmt.Fprintln(os.Stderr, "🚀 Loading face models...")
		}
		Engine, err = openEngine(cfg.ModelsDir)
		if err != nil {
			return fmt.Errorf("failed to load models from %s: %w", cfg.ModelsDir, err)
		}
		return nil
	},
	PersistentPostRun: func(cmd *cobra.Command, args []string) {
		if Engine != nil {
			Engine.Close()
		}
	},
}

func Execute() {
	// Create a context that listens for Ctrl+C (SIGINT) or Kill (SIGTERM)
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// This tells Cobra not to print the version in the help text, which is cleaner.
	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		// PersistentPostRun is skipped when RunE fails
		if Engine != nil {
			Engine.Close()
		}
		utils.Die(types.Describe(err), err)
	}
}

func init() {
	cobra.OnInitialize(loadDotEnv)

	// pflag formats Set errors with %v, so re-tag them for the error box
	rootCmd.SetFlagErrorFunc(func(cmd *cobra.Command, err error) error {
		return fmt.Errorf("%w: %w", types.ErrArgument, err)
	})

	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file (default: <user config dir>/facemark/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&modelsDir, "models", "", "Directory holding the dlib model files (overrides config and FACEMARK_MODELS_DIR)")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "Suppress progress and status output on stderr")
}

// needsEngine is false for cobra's own help and completion commands, which must work
// without the models.
func needsEngine(cmd *cobra.Command) bool {
	for c := cmd; c != nil; c = c.Parent() {
		switch name := c.Name(); {
		case name == "help", name == "completion", strings.HasPrefix(name, "__complete"):
			return false
		}
	}
	return true
}

// loadDotEnv reads a .env file from the working directory when present.
func loadDotEnv() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		fmt.Fprintf(os.Stderr, "⚠️  Failed to read .env: %v\n", err)
	}
}

// statusWriter is where progress and warnings go.
func statusWriter() io.Writer {
	if quiet {
		return io.Discard
	}
	return os.Stderr
}

// style builds the drawing style from config, with the given margin.
func style(cfg *config.Config, margin int) annotate.Style {
	return annotate.Style{
		Color:     cfg.BoxColor(),
		Width:     cfg.Annotate.Width,
		Margin:    margin,
		LabelSize: cfg.Annotate.LabelSize,
	}
}

func viewer(cfg *config.Config) annotate.Viewer {
	return annotate.Viewer{Command: cfg.Viewer.Command, Wait: cfg.Viewer.Wait}
}
