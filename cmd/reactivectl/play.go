package main

import (
	"github.com/spf13/cobra"

	"github.com/vango-dev/reactive/internal/script"
	"github.com/vango-dev/reactive/pkg/telemetry"
)

func playCmd(g *globals) *cobra.Command {
	var (
		verify     bool
		logChanges bool
	)

	cmd := &cobra.Command{
		Use:   "play <script.yaml>",
		Short: "Play a mutation script and print every view after every step",
		Long: `Play a mutation script from start to end.

The root collection and every view are printed after the initial build and
after each step. With --verify every view is also compared with a rebuild
from the current root content, and the first divergence fails the run.

Examples:
  reactivectl play demo.yaml
  reactivectl play --verify demo.yaml
  reactivectl play --log-changes --log-level=debug demo.yaml`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPlay(cmd, g, args[0], verify, logChanges)
		},
	}

	cmd.Flags().BoolVar(&verify, "verify", false, "Check every view against a recompute after every step")
	cmd.Flags().BoolVar(&logChanges, "log-changes", false, "Log every change and recompute to stderr")

	return cmd
}

func runPlay(cmd *cobra.Command, g *globals, path string, verify, logChanges bool) error {
	logger, err := newLogger(g.cfg, cmd.ErrOrStderr())
	if err != nil {
		return err
	}

	s, err := script.Load(path)
	if err != nil {
		return err
	}

	opts := []script.Option{
		script.WithVerify(verify),
		script.WithLogger(logger),
	}
	if logChanges {
		opts = append(opts, script.WithObserver(telemetry.NewLogger(logger)))
	}

	p, err := script.NewPlayer(s, cmd.OutOrStdout(), opts...)
	if err != nil {
		return err
	}
	defer p.Close()

	return p.Run(cmd.Context())
}
