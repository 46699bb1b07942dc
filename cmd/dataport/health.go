package main

import (
	"context"
	"fmt"
	"io"
	"sort"

	"github.com/brizzai/dataport-cli/internal/session"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newHealthCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the DataPort health endpoints",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			probe, _ := cmd.Flags().GetString("probe")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				status, err := a.Manager.Health(ctx, session.Probe(probe))
				if err != nil {
					return err
				}
				if err := render(cmd.OutOrStdout(), formatOf(cmd), status, func(w io.Writer) error {
					return printHealth(w, status)
				}); err != nil {
					return err
				}
				if !status.Healthy {
					return fmt.Errorf("%s probe returned status %d", status.Probe, status.StatusCode)
				}
				return nil
			})
		},
	}
	cmd.Flags().String("probe", string(session.ProbeBasic), "Probe to run (basic|live|ready|detailed)")
	return cmd
}

func printHealth(w io.Writer, status *session.HealthStatus) error {
	if status.Healthy {
		pterm.Success.WithWriter(w).Printfln("%s: healthy (%d)", status.URL, status.StatusCode)
	} else {
		pterm.Error.WithWriter(w).Printfln("%s: unhealthy (%d)", status.URL, status.StatusCode)
	}
	if len(status.Details) == 0 {
		return nil
	}

	keys := make([]string, 0, len(status.Details))
	for k := range status.Details {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	rows := make([][]string, 0, len(keys))
	for _, k := range keys {
		rows = append(rows, []string{k, fmt.Sprint(status.Details[k])})
	}
	return pterm.DefaultTable.WithWriter(w).WithData(rows).Render()
}
