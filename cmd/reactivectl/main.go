package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/config"
	"github.com/vango-dev/reactive/internal/errors"
)

// Version information set at build time.
var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

// globals holds the persistent flags shared by every command.
type globals struct {
	configPath string
	logLevel   string
	logFormat  string
	noColor    bool

	cfg config.Config
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		errors.PrintError(os.Stderr, err)
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	g := &globals{cfg: config.Default()}

	rootCmd := &cobra.Command{
		Use:   "reactivectl",
		Short: "Play mutation scripts against reactive collections",
		Long: `reactivectl drives an integer collection and a tree of views derived
from it with YAML mutation scripts.

  • play prints every view after every step and can verify that each
    view matches a recompute from scratch
  • serve replays a script forever and streams every list view over
    WebSocket, with Prometheus metrics on the side`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return g.load()
		},
	}

	flags := rootCmd.PersistentFlags()
	flags.StringVarP(&g.configPath, "config", "c", "", "Configuration file (.yaml, .yml or .json)")
	flags.StringVar(&g.logLevel, "log-level", "", "Log level: debug, info, warn, error (default from config)")
	flags.StringVar(&g.logFormat, "log-format", "", "Log format: text or json (default from config)")
	flags.BoolVar(&g.noColor, "no-color", false, "Disable colored error output")

	rootCmd.AddCommand(
		playCmd(g),
		serveCmd(g),
		versionCmd(),
	)
	return rootCmd
}

// load reads the configuration file, if any, and applies flag overrides.
func (g *globals) load() error {
	if g.noColor {
		errors.DisableColors()
	}

	if g.configPath != "" {
		cfg, err := config.FromFile(g.configPath)
		if err != nil {
			return err
		}
		g.cfg = cfg
	}

	if g.logLevel != "" {
		g.cfg.Log.Level = g.logLevel
	}
	if g.logFormat != "" {
		g.cfg.Log.Format = g.logFormat
	}
	return g.cfg.Validate()
}
