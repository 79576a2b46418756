// Package main is the entry point for the vectorinspector CLI.
//
// The CLI opens a configured connection profile, inspects collections and
// moves items in and out of them. All commands share one fx application
// assembled from the v1 packages.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

// Version information set via ldflags during build.
var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// globalFlags are shared by every subcommand.
type globalFlags struct {
	configPath string
	profile    string
	logLevel   string
}

func rootCmd() *cobra.Command {
	flags := &globalFlags{}

	cmd := &cobra.Command{
		Use:   "vectorinspector",
		Short: "Inspect vector databases from the command line",
		Long: `vectorinspector connects to Chroma, Qdrant, Pinecone, pgvector, LanceDB
and Milvus through one interface. It lists collections, pages through items,
runs similarity searches and exports or imports collections as JSON or CSV.

Connection profiles are read from the config file (--config) or from
./vectorinspector.yaml and ~/.vector-inspector/config.yaml.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVarP(&flags.configPath, "config", "c", "", "path to the config file")
	cmd.PersistentFlags().StringVarP(&flags.profile, "profile", "p", "", "connection profile id or name")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "", "log level (debug, info, warning, error)")

	cmd.AddCommand(profilesCmd(flags))
	cmd.AddCommand(collectionsCmd(flags))
	cmd.AddCommand(infoCmd(flags))
	cmd.AddCommand(browseCmd(flags))
	cmd.AddCommand(searchCmd(flags))
	cmd.AddCommand(exportCmd(flags))
	cmd.AddCommand(importCmd(flags))
	cmd.AddCommand(modelsCmd(flags))
	cmd.AddCommand(settingsCmd(flags))
	cmd.AddCommand(versionCmd())

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "vectorinspector version %s\n", version)
			fmt.Fprintf(out, "  commit: %s\n", commit)
			fmt.Fprintf(out, "  built:  %s\n", date)
		},
	}
}
