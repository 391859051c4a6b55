// Package cli implements pairctl, an operator tool that talks to a running
// Pairline server over its HTTP API and signaling socket.
package cli

import (
	"context"
	"os"
	"os/signal"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
)

type rootOptions struct {
	url     string
	codec   string
	timeout time.Duration
	verbose bool
}

func NewRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:   "pairctl",
		Short: "Inspect and exercise a Pairline signaling server",
		Long: `pairctl drives a Pairline server the way a browser would: it can wait
for a random partner, open or join a named room, and read the server's
counters and ICE configuration.

Examples:
  pairctl find --wait 30s
  pairctl create lobby
  pairctl stats --url https://pair.example`,
		SilenceErrors: true,
		SilenceUsage:  true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.WarnLevel
			if opts.verbose {
				level = zerolog.DebugLevel
			}
			log.Logger = zerolog.New(zerolog.ConsoleWriter{Out: cmd.ErrOrStderr()}).Level(level).With().Timestamp().Logger()
		},
	}

	root.PersistentFlags().StringVar(&opts.url, "url", "http://localhost:8080", "server base URL")
	root.PersistentFlags().StringVar(&opts.codec, "codec", "json", "wire codec the server runs with (json|msgpack)")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "HTTP request and dial timeout")
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newFindCmd(opts),
		newCreateCmd(opts),
		newJoinCmd(opts),
		newStatsCmd(opts),
		newICECmd(opts),
	)
	return root
}

// Execute runs pairctl until the command finishes or the user interrupts.
func Execute() int {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt)
	defer cancel()

	if err := NewRootCmd().ExecuteContext(ctx); err != nil {
		PrintError(os.Stderr, err.Error())
		return 1
	}
	return 0
}
