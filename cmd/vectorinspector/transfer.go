package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/vectorinspector/v1/embedding"
	"github.com/Aleph-Alpha/vectorinspector/v1/exchange"
	"github.com/Aleph-Alpha/vectorinspector/v1/taskrunner"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

func exportCmd(flags *globalFlags) *cobra.Command {
	var (
		format string
		limit  int
	)

	cmd := &cobra.Command{
		Use:   "export <collection> <file>",
		Short: "Export a collection to JSON or CSV",
		Long: `Export every item of a collection, embeddings included. The format is
taken from the file extension unless --format is given. A file of "-"
writes to standard output.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, path := args[0], args[1]
			f, err := resolveFormat(format, path)
			if err != nil {
				return err
			}
			return withProfile(cmd.Context(), flags, func(ctx context.Context, svc services, id string, conn vectordb.Connection) error {
				var w io.Writer = cmd.OutOrStdout()
				if path != "-" {
					file, err := os.Create(path)
					if err != nil {
						return err
					}
					defer file.Close()
					w = file
				}

				res, err := runTask(ctx, cmd, svc.Runner, "export:"+id+":"+collection, func(ctx context.Context, progress taskrunner.ProgressFunc) (any, error) {
					progress("Loading "+collection, 0)
					n, err := exchange.ExportCollection(ctx, conn, collection, w, f, limit)
					if err != nil {
						return nil, err
					}
					progress(fmt.Sprintf("Exported %d items", n), 100)
					return n, nil
				})
				if err != nil {
					return err
				}
				if path != "-" {
					fmt.Fprintf(cmd.ErrOrStderr(), "Exported %d items to %s\n", res, path)
				}
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "json or csv")
	cmd.Flags().IntVar(&limit, "limit", 0, "maximum number of items (0 exports up to the scan cap)")
	return cmd
}

func importCmd(flags *globalFlags) *cobra.Command {
	var (
		format    string
		batchSize int
		create    bool
		distance  string
	)

	cmd := &cobra.Command{
		Use:   "import <collection> <file>",
		Short: "Import items from JSON or CSV into a collection",
		Long: `Add the items of an export file to a collection. Items without
embeddings are embedded by the provider or the configured embedding endpoint.
With --create the collection is created first, sized to the embeddings in
the file. A file of "-" reads standard input.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			collection, path := args[0], args[1]
			f, err := resolveFormat(format, path)
			if err != nil {
				return err
			}
			batch, err := readBatch(cmd, path, f)
			if err != nil {
				return err
			}

			return withProfile(cmd.Context(), flags, func(ctx context.Context, svc services, id string, conn vectordb.Connection) error {
				if create {
					dim := 0
					if batch.HasEmbeddings() {
						dim = len(batch.Item(0).Embedding)
					} else if m, ok := svc.Registry.ByName(embedding.DefaultModelName); ok {
						dim = m.Dimension
					}
					if ok, msg := svc.Providers.CreateCollection(ctx, collection, dim, distance); !ok {
						return errors.New(msg)
					}
					svc.Connections.RefreshCollections(ctx, id)
				}

				res, err := runTask(ctx, cmd, svc.Runner, "import:"+id+":"+collection, func(ctx context.Context, progress taskrunner.ProgressFunc) (any, error) {
					size := batchSize
					if size <= 0 {
						size = exchange.DefaultImportBatchSize
					}
					added := 0
					for start := 0; start < batch.Len(); start += size {
						n, err := exchange.ImportCollection(ctx, conn, collection, batch.Slice(start, size), size)
						added += n
						if err != nil {
							return added, err
						}
						progress(fmt.Sprintf("Imported %d of %d items", added, batch.Len()), added*100/batch.Len())
					}
					return added, nil
				})
				if err != nil {
					return err
				}
				svc.Cache.Invalidate(id, collection)
				fmt.Fprintf(cmd.ErrOrStderr(), "Imported %d items into %s\n", res, collection)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&format, "format", "", "json or csv")
	cmd.Flags().IntVar(&batchSize, "batch-size", exchange.DefaultImportBatchSize, "items per add request")
	cmd.Flags().BoolVar(&create, "create", false, "create the collection first")
	cmd.Flags().StringVar(&distance, "distance", string(vectordb.DistanceCosine), "distance metric for --create")
	return cmd
}

func readBatch(cmd *cobra.Command, path string, f exchange.Format) (*vectordb.ItemBatch, error) {
	if path == "-" {
		return exchange.Read(cmd.InOrStdin(), f)
	}
	file, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer file.Close()
	return exchange.Read(file, f)
}

func resolveFormat(flag, path string) (exchange.Format, error) {
	if flag != "" {
		return exchange.ParseFormat(flag)
	}
	if path == "-" {
		return exchange.FormatJSON, nil
	}
	return exchange.FormatFromPath(path)
}

// runTask runs fn on the background runner and blocks until it finishes or
// ctx is cancelled. Progress goes to stderr.
func runTask(ctx context.Context, cmd *cobra.Command, r *taskrunner.Runner, key string, fn taskrunner.TaskFunc) (any, error) {
	type outcome struct {
		result any
		err    error
	}
	done := make(chan outcome, 1)
	stderr := cmd.ErrOrStderr()

	r.Start(key, fn, taskrunner.Callbacks{
		OnSuccess: func(result any) { done <- outcome{result: result} },
		OnError:   func(err error) { done <- outcome{err: err} },
		OnProgress: func(message string, percent int) {
			fmt.Fprintf(stderr, "[%3d%%] %s\n", percent, message)
		},
	})

	select {
	case o := <-done:
		return o.result, o.err
	case <-ctx.Done():
		r.Cancel(key)
		return nil, ctx.Err()
	}
}
