// Package main provides the codebook binary entry point.
// Codebook validates codebook documents that map codewords to targets,
// decodes spot traces against them, and keeps a registry of known codebooks.
package main

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"runtime"
	"strings"

	"github.com/spf13/cobra"

	"github.com/c360studio/codebook/config"
)

const (
	Version   = "0.1.0"
	BuildTime = "dev"
	appName   = "codebook"
)

func main() {
	// Add panic recovery
	defer func() {
		if r := recover(); r != nil {
			buf := make([]byte, 4096)
			n := runtime.Stack(buf, false)
			_, _ = fmt.Fprintf(os.Stderr, "PANIC: %v\nStack trace:\n%s\n", r, string(buf[:n]))
			os.Exit(2)
		}
	}()

	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

// app holds state shared by every subcommand once flags are parsed.
type app struct {
	configPath string
	logLevel   string
	output     string

	cfg    *config.Config
	logger *slog.Logger
}

func rootCmd() *cobra.Command {
	a := &app{}

	cmd := &cobra.Command{
		Use:   appName,
		Short: "Codebook validation and decoding toolkit",
		Long: `Codebook works with codebook documents: a format version plus a list of
mappings from codewords to the targets they identify.

It provides:
- Schema and semantic validation of JSON and YAML codebooks
- Trace building and decoding of spot results against a codebook
- A file watcher and a NATS validation service
- A local SQLite registry of named codebooks`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup(cmd)
		},
	}

	cmd.PersistentFlags().StringVarP(&a.configPath, "config", "c", "", "Config file path (YAML)")
	cmd.PersistentFlags().StringVar(&a.logLevel, "log-level", "info", "Log level (debug, info, warn, error)")
	cmd.PersistentFlags().StringVar(&a.output, "output", "text", "Output format (text, json)")

	cmd.AddCommand(
		validateCmd(a),
		inspectCmd(a),
		generateCmd(a),
		decodeCmd(a),
		watchCmd(a),
		serveCmd(a),
		storeCmd(a),
		versionCmd(),
	)

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s (build: %s)\n", appName, Version, BuildTime)
		},
	}
}

// setup configures logging and loads layered configuration.
func (a *app) setup(cmd *cobra.Command) error {
	switch a.output {
	case outputText, outputJSON:
	default:
		return fmt.Errorf("unknown output format %q (want %s or %s)", a.output, outputText, outputJSON)
	}

	a.logger = newLogger(cmd.ErrOrStderr(), a.logLevel)
	slog.SetDefault(a.logger)

	cfg, err := config.NewLoader(a.logger).Load(a.configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	a.cfg = cfg
	return nil
}

func newLogger(w io.Writer, logLevel string) *slog.Logger {
	level := slog.LevelInfo
	switch strings.ToLower(logLevel) {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}
