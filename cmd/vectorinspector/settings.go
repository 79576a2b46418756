package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/vectorinspector/v1/settings"
)

var settingKeys = []string{
	settings.KeyCacheEnabled,
	settings.KeyTelemetryEnabled,
	settings.KeyDefaultNResults,
	settings.KeyAutoGenerateEmbeddings,
	settings.KeyBreadcrumbEnabled,
	settings.KeyBreadcrumbElideMode,
}

func settingsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "settings",
		Short: "Show or change user settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), flags, func(ctx context.Context, svc services) error {
				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintf(tw, "# %s\n", svc.Settings.Path())
				for _, key := range settingKeys {
					fmt.Fprintf(tw, "%s\t%v\n", key, svc.Settings.Get(key))
				}
				return tw.Flush()
			})
		},
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "set <key> <value>",
		Short: "Change a setting",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), flags, func(ctx context.Context, svc services) error {
				return svc.Settings.Set(args[0], settingValue(args[1]))
			})
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "reset",
		Short: "Restore the default settings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), flags, func(ctx context.Context, svc services) error {
				return svc.Settings.Clear()
			})
		},
	})

	return cmd
}

// settingValue stores booleans and integers with their JSON type.
func settingValue(s string) any {
	if b, err := strconv.ParseBool(s); err == nil {
		return b
	}
	if n, err := strconv.Atoi(s); err == nil {
		return n
	}
	return s
}
