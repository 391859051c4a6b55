package cli

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/dkeye/Pairline/internal/probe"
	"github.com/dkeye/Pairline/internal/protocol"
	json "github.com/goccy/go-json"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/vmihailenco/msgpack/v5"
)

func newFindCmd(opts *rootOptions) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "find",
		Short: "Wait for a random partner and print signaling events",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), cmd.OutOrStdout(), opts, wait, protocol.KindFind, nil)
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "stop after this long (0 waits until interrupted)")
	return cmd
}

func newCreateCmd(opts *rootOptions) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "create <room-id>",
		Short: "Open a named room and wait for someone to join",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), cmd.OutOrStdout(), opts, wait, protocol.KindCreateRoom, args[0])
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "stop after this long (0 waits until interrupted)")
	return cmd
}

func newJoinCmd(opts *rootOptions) *cobra.Command {
	var wait time.Duration
	cmd := &cobra.Command{
		Use:   "join <room-id>",
		Short: "Join a named room",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSession(cmd.Context(), cmd.OutOrStdout(), opts, wait, protocol.KindJoinRoom, args[0])
		},
	}
	cmd.Flags().DurationVar(&wait, "wait", 0, "stop after this long (0 waits until interrupted)")
	return cmd
}

// runSession sends one request and prints every event until ctx ends,
// wait elapses or the server drops the connection.
func runSession(ctx context.Context, out io.Writer, opts *rootOptions, wait time.Duration, kind protocol.Kind, payload any) error {
	codec, err := protocol.NewCodec(opts.codec)
	if err != nil {
		return err
	}
	wsURL, err := probe.SignalURL(opts.url)
	if err != nil {
		return err
	}

	dialCtx, cancelDial := context.WithTimeout(ctx, opts.timeout)
	c, err := probe.Dial(dialCtx, wsURL, codec, nil)
	cancelDial()
	if err != nil {
		return err
	}
	defer c.Close()
	log.Debug().Str("module", "cli").Str("url", wsURL).Str("codec", codec.Name()).Msg("connected")

	if wait > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, wait)
		defer cancel()
	}

	if err := c.Send(kind, payload); err != nil {
		return fmt.Errorf("send %s: %w", kind, err)
	}

	events := make(chan protocol.Envelope)
	errc := make(chan error, 1)
	go func() {
		for {
			env, err := c.Next(24 * time.Hour)
			if err != nil {
				errc <- err
				return
			}
			select {
			case events <- env:
			case <-ctx.Done():
				return
			}
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case env := <-events:
			printEvent(out, codec, env)
		case err := <-errc:
			return fmt.Errorf("connection lost: %w", err)
		}
	}
}

func printEvent(w io.Writer, codec protocol.Codec, env protocol.Envelope) {
	label := kindStyle(env.Type).Render(string(env.Type))
	if len(env.Payload) == 0 {
		fmt.Fprintln(w, label)
		return
	}
	fmt.Fprintln(w, label, MutedStyle.Render(payloadText(codec, env.Payload)))
}

// payloadText renders a payload as JSON regardless of the wire codec.
func payloadText(codec protocol.Codec, payload []byte) string {
	if !codec.Binary() {
		return string(payload)
	}
	var v any
	if err := msgpack.Unmarshal(payload, &v); err != nil {
		return fmt.Sprintf("<%d bytes>", len(payload))
	}
	b, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	return string(b)
}
