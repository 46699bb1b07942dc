package main

import (
	"context"
	"errors"
	"io/fs"
	"os"

	"github.com/brizzai/dataport-cli/internal/logger"
	"github.com/brizzai/dataport-cli/internal/parser"
	"github.com/brizzai/dataport-cli/internal/session"
	"github.com/brizzai/dataport-cli/internal/tui"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

const defaultSelectionFile = "selection.yaml"

func newMCPCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mcp",
		Short: "Serve the DataPort API as MCP tools",
		Long: `Start a Model Context Protocol server exposing one tool per DataPort API route,
plus session tools. Calls run as the logged in user; use --mode to pick stdio, sse
or http transport and --selection to narrow the exposed routes.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, func(ctx context.Context, a *app) error {
				// stdout may carry the protocol, so session notices only go to the log
				defer a.Manager.Subscribe(func(e session.SessionEnded) {
					logger.Warn("DataPort session ended, run `dataport login` to sign in again",
						zap.String("reason", string(e.Reason)))
				})()
				if a.Manager.State() == session.StateAnonymous {
					logger.Warn("not logged in, API tools will fail until `dataport login` is run")
				}
				return a.Server.Start(ctx)
			})
		},
	}
	cmd.AddCommand(newMCPSelectCmd())
	return cmd
}

func newMCPSelectCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "select",
		Short: "Choose which API routes become MCP tools",
		Long: `Open an editor listing every route of the API schema. Exclude routes, rewrite
tool descriptions, and save the result as a selection file for "dataport mcp --selection".
An existing selection file is loaded first.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out, _ := cmd.Flags().GetString("out")
			return withApp(cmd, func(ctx context.Context, a *app) error {
				source := a.Server.SchemaSource()
				if err := a.Parser.Init(ctx, source, ""); err != nil {
					return err
				}
				routeTools := a.Parser.GetRouteTools()

				existing := parser.NewSelection()
				if path := a.Config.Server.SelectionFile; path != "" {
					if _, err := os.Stat(path); err == nil {
						if err := existing.Load(path); err != nil {
							return err
						}
					} else if !errors.Is(err, fs.ErrNotExist) {
						return err
					}
					if out == "" {
						out = path
					}
				}
				if out == "" {
					out = defaultSelectionFile
				}

				p := tea.NewProgram(tui.NewSelectionApp(routeTools, tui.SelectionOptions{
					Source:     source,
					Existing:   existing,
					OutputPath: out,
				}), tea.WithAltScreen(), tea.WithContext(ctx))
				m, err := p.Run()
				if err != nil {
					return err
				}

				final := m.(tui.SelectionApp)
				path, saved := final.Saved()
				if !saved {
					pterm.Info.WithWriter(cmd.OutOrStdout()).Println("Selection not saved")
					return nil
				}
				kept := 0
				for _, item := range final.RouteItems() {
					if !item.Excluded {
						kept++
					}
				}
				pterm.Info.WithWriter(cmd.OutOrStdout()).Printfln("Saved %s. Kept %s tools out of %s.",
					path, pterm.LightGreen(kept), pterm.White(len(routeTools)))
				return nil
			})
		},
	}
	cmd.Flags().String("out", "", "Where to write the selection file (default: --selection or selection.yaml)")
	return cmd
}
