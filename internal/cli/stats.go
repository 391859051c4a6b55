package cli

import (
	"fmt"
	"io"
	"strings"

	"github.com/dkeye/Pairline/internal/adapters/rtc"
	"github.com/dkeye/Pairline/internal/app/orch"
	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"
)

func newStatsCmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show live connection, pairing and room counters",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var st orch.Stats
			if err := getJSON(cmd.Context(), opts, "/api/stats", &st); err != nil {
				return err
			}
			renderStats(cmd.OutOrStdout(), st)
			return nil
		},
	}
}

func newICECmd(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "ice",
		Short: "Show the ICE servers handed to clients",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var resp rtc.ICEResponse
			if err := getJSON(cmd.Context(), opts, "/api/ice", &resp); err != nil {
				return err
			}
			renderICE(cmd.OutOrStdout(), resp)
			return nil
		},
	}
}

func renderStats(w io.Writer, st orch.Stats) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.SetTitle("Pairline")
	t.AppendHeader(table.Row{"Metric", "Value"})
	t.AppendRows([]table.Row{
		{"Connections", st.Connections},
		{"Waiting", st.Waiting},
		{"Pairs", st.Pairs},
		{"Rooms", st.Rooms},
		{"Rooms in use", st.RoomsInUse},
	})
	t.Render()
}

func renderICE(w io.Writer, resp rtc.ICEResponse) {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleRounded)
	t.AppendHeader(table.Row{"#", "URLs", "Username", "Credential"})
	for i, s := range resp.ICEServers {
		cred := ""
		if v := fmt.Sprint(s.Credential); v != "" && v != "<nil>" {
			cred = "***"
		}
		t.AppendRow(table.Row{i + 1, strings.Join(s.URLs, "\n"), s.Username, cred})
	}
	t.Render()
}
