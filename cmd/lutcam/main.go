package main

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/coreman2200/funtimes-lutcam/internal/config"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

type rootFlags struct {
	debug      bool
	configPath string
}

func newRootCmd() *cobra.Command {
	f := &rootFlags{}
	cmd := &cobra.Command{
		Use:          "lutcam",
		Short:        "Camera capture core with live .cube colour grading",
		SilenceUsage: true,
		PersistentPreRun: func(*cobra.Command, []string) {
			setupLogging(config.Log{}, f.debug)
		},
	}
	cmd.PersistentFlags().BoolVar(&f.debug, "debug", false, "enable debug logging")
	cmd.PersistentFlags().StringVar(&f.configPath, "config", "lutcam.yaml", "path to config (.yaml or .toml)")

	cmd.AddCommand(serveCmd(f), applyCmd(), inspectCmd(), genCmd(), configCmd(f))
	return cmd
}

// loadConfig reads the config file; a missing file falls back to defaults.
func (f *rootFlags) loadConfig() (*config.Config, error) {
	cfg, err := config.Load(f.configPath)
	switch {
	case err == nil:
	case errors.Is(err, fs.ErrNotExist):
		log.Warn().Str("path", f.configPath).Msg("config not found; using defaults")
		cfg = config.Default()
	default:
		return nil, err
	}
	setupLogging(cfg.Log, f.debug)
	return cfg, nil
}

func setupLogging(c config.Log, debug bool) {
	zerolog.TimeFieldFormat = time.RFC3339
	if strings.EqualFold(c.Format, "json") {
		log.Logger = zerolog.New(os.Stdout).With().Timestamp().Logger()
	} else {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.Kitchen})
	}
	lvl, err := zerolog.ParseLevel(strings.ToLower(c.Level))
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	if debug {
		lvl = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(lvl)
}
