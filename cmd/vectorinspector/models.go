package main

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/vectorinspector/v1/embedding"
	"github.com/Aleph-Alpha/vectorinspector/v1/settings"
)

func modelsCmd(flags *globalFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "models",
		Short: "List embedding models and manage collection bindings",
	}

	cmd.AddCommand(modelsListCmd(flags))
	cmd.AddCommand(modelsBindCmd(flags))
	cmd.AddCommand(modelsUnbindCmd(flags))
	cmd.AddCommand(modelsAddCmd(flags))
	cmd.AddCommand(modelsRemoveCmd(flags))
	return cmd
}

func modelsListCmd(flags *globalFlags) *cobra.Command {
	var dimension int

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List known and custom embedding models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withServices(cmd.Context(), flags, func(ctx context.Context, svc services) error {
				var models []embedding.ModelInfo
				if dimension > 0 {
					models = svc.Settings.ModelsForDimension(svc.Registry, dimension)
				} else {
					// A nil registry and dimension zero yield every custom model.
					models = append(svc.Registry.All(), svc.Settings.ModelsForDimension(nil, 0)...)
				}

				tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
				fmt.Fprintln(tw, "NAME\tTYPE\tDIMENSION\tSOURCE\tDESCRIPTION")
				for _, m := range models {
					fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", m.Name, m.Type, m.Dimension, m.Source, m.Description)
				}
				return tw.Flush()
			})
		},
	}

	cmd.Flags().IntVarP(&dimension, "dimension", "d", 0, "only models producing vectors of this size")
	return cmd
}

func modelsBindCmd(flags *globalFlags) *cobra.Command {
	var typ string

	cmd := &cobra.Command{
		Use:   "bind <collection> <model>",
		Short: "Use a model for text queries against a collection",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfileSettings(cmd.Context(), flags, func(svc services, profileID string) error {
				t := typ
				if t == "" {
					t = settings.ModelTypeUserConfigured
					if m, ok := svc.Registry.ByName(args[1]); ok {
						t = m.Type
					}
				}
				if err := svc.Settings.SaveEmbeddingModel(profileID, args[0], args[1], t); err != nil {
					return err
				}
				fmt.Fprintf(cmd.ErrOrStderr(), "Bound %s to %s\n", args[1], args[0])
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&typ, "type", "", "model type (default from the registry)")
	return cmd
}

func modelsUnbindCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "unbind <collection>",
		Short: "Remove the model binding of a collection",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return withProfileSettings(cmd.Context(), flags, func(svc services, profileID string) error {
				return svc.Settings.RemoveEmbeddingModel(profileID, args[0])
			})
		},
	}
}

func modelsAddCmd(flags *globalFlags) *cobra.Command {
	var (
		typ         string
		description string
	)

	cmd := &cobra.Command{
		Use:   "add <name> <dimension>",
		Short: "Register a custom embedding model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := strconv.Atoi(args[1])
			if err != nil || dim <= 0 {
				return fmt.Errorf("invalid dimension %q", args[1])
			}
			return withServices(cmd.Context(), flags, func(ctx context.Context, svc services) error {
				return svc.Settings.AddCustomModel(args[0], dim, typ, description)
			})
		},
	}

	cmd.Flags().StringVar(&typ, "type", "sentence-transformer", "model type")
	cmd.Flags().StringVar(&description, "description", "", "free-form description")
	return cmd
}

func modelsRemoveCmd(flags *globalFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "remove <name> <dimension>",
		Short: "Remove a custom embedding model",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			dim, err := strconv.Atoi(args[1])
			if err != nil {
				return fmt.Errorf("invalid dimension %q", args[1])
			}
			return withServices(cmd.Context(), flags, func(ctx context.Context, svc services) error {
				return svc.Settings.RemoveCustomModel(args[0], dim)
			})
		},
	}
}

// withServices runs fn against the assembled app without opening a
// connection.
func withServices(ctx context.Context, flags *globalFlags, fn func(context.Context, services) error) error {
	cfg, err := flags.config()
	if err != nil {
		return err
	}
	return run(ctx, cfg, fn)
}

// withProfileSettings resolves the selected profile id without connecting.
func withProfileSettings(ctx context.Context, flags *globalFlags, fn func(services, string) error) error {
	cfg, err := flags.config()
	if err != nil {
		return err
	}
	p, err := cfg.profile(flags.profile)
	if err != nil {
		return err
	}
	return run(ctx, cfg, func(_ context.Context, svc services) error {
		return fn(svc, p.ID)
	})
}
