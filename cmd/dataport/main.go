package main

import (
	"context"
	"os"
	"os/signal"
	"runtime/debug"
	"syscall"

	"github.com/brizzai/dataport-cli/internal/config"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func main() {
	defer func() {
		if r := recover(); r != nil {
			pterm.Error.Printf("\nCaught panic: %v\n", r)
			pterm.Error.Printf("%s\n", debug.Stack())
			os.Exit(2)
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		pterm.Error.Println(err)
		stop()
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "dataport",
		Short: "Command line client for the DataPort API",
		Long: `dataport signs you in to a DataPort server and sends authenticated requests to
its REST API. Expired access tokens are refreshed transparently; when the refresh
token is no longer accepted the session ends and you are asked to log in again.

"dataport mcp" exposes the API to AI assistants as Model Context Protocol tools.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		// Place version check in PreRun to ensure flags are parsed first
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if versionFlag, _ := cmd.Flags().GetBool("version"); versionFlag {
				pterm.Info.WithWriter(cmd.OutOrStdout()).Println(config.GetVersionInfo())
				os.Exit(0)
			}
			format, _ := cmd.Flags().GetString("output")
			return validateFormat(format)
		},
		RunE: func(cmd *cobra.Command, args []string) error {
			return cmd.Help()
		},
	}

	flags := rootCmd.PersistentFlags()
	config.InitFlags(flags)
	flags.StringP("output", "o", string(formatText), "Output format (text|json|yaml)")
	flags.BoolP("version", "v", false, "Show version information")

	rootCmd.AddCommand(
		newLoginCmd(),
		newLogoutCmd(),
		newWhoamiCmd(),
		newStatusCmd(),
		newRefreshCmd(),
		newRequestCmd(),
		newHealthCmd(),
		newMCPCmd(),
	)
	return rootCmd
}
