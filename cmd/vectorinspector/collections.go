package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

func profilesCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "profiles",
		Short: "List configured connection profiles",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := flags.config()
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tNAME\tPROVIDER\tTYPE")
			for _, p := range cfg.Profiles {
				typ := p.Config.Type
				if typ == "" {
					typ = "-"
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\n", p.ID, p.Name, p.Provider, typ)
			}
			return tw.Flush()
		},
	}
}

func collectionsCmd(flags *globalFlags) *cobra.Command {
	var databases bool

	cmd := &cobra.Command{
		Use:   "collections",
		Short: "List the collections of a profile",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfile(cmd.Context(), flags, func(ctx context.Context, svc services, id string, _ vectordb.Connection) error {
				out := cmd.OutOrStdout()
				if databases {
					for _, db := range svc.Providers.Databases(ctx) {
						fmt.Fprintln(out, db)
					}
					return nil
				}
				names, err := svc.Connections.RefreshCollections(ctx, id)
				if err != nil {
					return err
				}
				for _, name := range names {
					fmt.Fprintln(out, name)
				}
				return nil
			})
		},
	}

	cmd.Flags().BoolVar(&databases, "databases", false, "list databases instead of collections")
	return cmd
}

func infoCmd(flags *globalFlags) *cobra.Command {
	var showConnection bool

	cmd := &cobra.Command{
		Use:   "info [collection]",
		Short: "Show collection or connection details",
		Long: `Show the details of a collection as JSON: item count, vector dimension,
distance metric, metadata fields and the resolved embedding model.
With --connection, or without a collection, show the connection instead.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfile(cmd.Context(), flags, func(ctx context.Context, svc services, id string, conn vectordb.Connection) error {
				if showConnection || len(args) == 0 {
					inst, _ := svc.Connections.Get(id)
					return printJSON(cmd.OutOrStdout(), map[string]any{
						"id":          inst.ID,
						"name":        inst.DisplayName(),
						"state":       inst.State,
						"info":        conn.ConnectionInfo(),
						"operators":   conn.SupportedFilterOperators(),
						"collections": inst.Collections,
					})
				}
				info := svc.Providers.CollectionInfo(ctx, args[0])
				if info == nil {
					return fmt.Errorf("collection %q not found", args[0])
				}
				svc.Connections.SetActiveCollection(id, args[0])
				return printJSON(cmd.OutOrStdout(), info)
			})
		},
	}

	cmd.Flags().BoolVar(&showConnection, "connection", false, "show connection details")
	return cmd
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
