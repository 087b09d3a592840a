// Package cmd implements the polyglot command line.
package cmd

import (
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/MeKo-Tech/polyglot/internal/config"
	"github.com/MeKo-Tech/polyglot/internal/resolve"
	"github.com/MeKo-Tech/polyglot/internal/version"
)

// Exit codes returned by Execute.
const (
	ExitOK        = 0
	ExitError     = 1
	ExitAmbiguous = 2
)

// app holds the state shared by one command tree.
type app struct {
	loader  *config.Loader
	cfg     *config.Config
	cfgFile string
}

// NewRootCommand builds a fresh command tree with its own viper instance,
// so several trees can run in one process.
func NewRootCommand() *cobra.Command {
	a := &app{loader: config.NewLoaderWithViper(viper.New())}

	rootCmd := &cobra.Command{
		Use:   "polyglot",
		Short: "Language detection and translation front-end",
		Long: `polyglot detects the language of short texts with fast local heuristics,
asks a remote service only when the heuristics have nothing to go on, and
translates through LibreTranslate or OpenAI.

Detection tiers, in order:
- romanized Hindi (vocabulary, patterns, phonetic fragments)
- Unicode script ranges
- Latin diacritics and function words
- English as the default

Examples:
  polyglot detect "namaste dost"
  polyglot detect --resolve --explain "xyz123"
  polyglot translate --to en "bonjour mon ami"
  polyglot serve --port 8080`,
		Version:       version.String(),
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if err := a.initConfig(cmd); err != nil {
				return err
			}
			setupLogging(cmd.ErrOrStderr(), a.cfg)
			return nil
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	rootCmd.PersistentFlags().StringVar(&a.cfgFile, "config", "",
		"config file (default is search in ., $HOME, $HOME/.config/polyglot, /etc/polyglot)")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output (equivalent to --log-level=debug)")
	rootCmd.PersistentFlags().String("log-level", "info", "log level (debug, info, warn, error)")

	v := a.loader.GetViper()
	_ = v.BindPFlag("verbose", rootCmd.PersistentFlags().Lookup("verbose"))
	_ = v.BindPFlag("log_level", rootCmd.PersistentFlags().Lookup("log-level"))

	rootCmd.AddCommand(
		newDetectCmd(a),
		newTranslateCmd(a),
		newBatchCmd(a),
		newHistoryCmd(a),
		newLanguagesCmd(a),
		newServeCmd(a),
		newConfigCmd(a),
	)
	return rootCmd
}

// Execute runs the command line and returns the process exit code.
func Execute() int {
	rootCmd := NewRootCommand()
	err := rootCmd.Execute()
	if err == nil {
		return ExitOK
	}
	fmt.Fprintln(rootCmd.ErrOrStderr(), "Error:", err)
	return ExitCode(err)
}

// ExitCode maps a command error to the process exit code.
func ExitCode(err error) int {
	switch {
	case err == nil:
		return ExitOK
	case errors.Is(err, resolve.ErrAmbiguous):
		return ExitAmbiguous
	default:
		return ExitError
	}
}

// initConfig reads in config file and ENV variables if set.
func (a *app) initConfig(cmd *cobra.Command) error {
	if a.cfg != nil {
		return nil
	}
	// config init must work even when the existing file is broken
	load := a.loader.LoadWithFile
	if cmd.Annotations["skip-validation"] == "true" {
		load = a.loader.LoadWithFileWithoutValidation
	}
	cfg, err := load(a.cfgFile)
	if err != nil {
		return fmt.Errorf("loading configuration: %w", err)
	}
	a.cfg = cfg
	return nil
}

// setupLogging installs a JSON slog handler on w.
func setupLogging(w io.Writer, cfg *config.Config) {
	var logLevel slog.Level
	if cfg.Verbose {
		logLevel = slog.LevelDebug
	} else {
		switch cfg.LogLevel {
		case "debug":
			logLevel = slog.LevelDebug
		case "warn":
			logLevel = slog.LevelWarn
		case "error":
			logLevel = slog.LevelError
		default:
			logLevel = slog.LevelInfo
		}
	}

	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: logLevel,
	}))
	slog.SetDefault(logger)
}

// outputFormat returns the --format flag if given, else the configured format.
func (a *app) outputFormat(cmd *cobra.Command) string {
	if cmd.Flags().Changed("format") {
		f, _ := cmd.Flags().GetString("format")
		return f
	}
	if a.cfg.Output.Format != "" {
		return a.cfg.Output.Format
	}
	return "text"
}
