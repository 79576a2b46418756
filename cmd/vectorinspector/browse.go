package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/Aleph-Alpha/vectorinspector/v1/browse"
	"github.com/Aleph-Alpha/vectorinspector/v1/vectordb"
)

// maxDocumentWidth truncates documents in search tables.
const maxDocumentWidth = 60

func browseCmd(flags *globalFlags) *cobra.Command {
	var (
		page       int
		pageSize   int
		where      string
		embeddings bool
	)

	cmd := &cobra.Command{
		Use:   "browse <collection>",
		Short: "Page through the items of a collection",
		Long: `Print one page of items as JSON. --where takes a Chroma-style filter,
for example '{"genre": "news", "year": {"$gte": 2020}}'.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			filter, err := parseWhere(where)
			if err != nil {
				return err
			}
			return withProfile(cmd.Context(), flags, func(ctx context.Context, svc services, id string, conn vectordb.Connection) error {
				svc.Connections.SetActiveCollection(id, args[0])
				p, err := svc.Loader.LoadPage(ctx, conn, browse.PageRequest{
					Database:   id,
					Collection: args[0],
					Page:       page,
					PageSize:   pageSize,
					Filter:     filter,
				})
				if err != nil {
					return err
				}
				items := p.Items.Items()
				if !embeddings {
					for i := range items {
						items[i].Embedding = nil
					}
				}
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"collection":      args[0],
					"page":            p.Page,
					"page_size":       p.PageSize,
					"has_more":        p.HasMore,
					"metadata_fields": browse.MetadataFields(p.Items),
					"items":           items,
				})
			})
		},
	}

	cmd.Flags().IntVar(&page, "page", 1, "page number, starting at 1")
	cmd.Flags().IntVar(&pageSize, "page-size", 50, "items per page")
	cmd.Flags().StringVar(&where, "where", "", "metadata filter as JSON")
	cmd.Flags().BoolVar(&embeddings, "embeddings", false, "include embeddings in the output")
	return cmd
}

func searchCmd(flags *globalFlags) *cobra.Command {
	var (
		nResults int
		where    string
		byID     string
		asJSON   bool
	)

	cmd := &cobra.Command{
		Use:   "search <collection> [query text]",
		Short: "Run a similarity search",
		Long: `Search a collection by text, or with the stored vector of an item (--id).
Text queries are embedded by the provider or by the configured embedding
endpoint, using the model bound to the collection.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			text := strings.Join(args[1:], " ")
			if text == "" && byID == "" {
				return errors.New("query text or --id is required")
			}
			whereMap, err := parseWhereMap(where)
			if err != nil {
				return err
			}
			return withProfile(cmd.Context(), flags, func(ctx context.Context, svc services, id string, conn vectordb.Connection) error {
				collection := args[0]
				svc.Connections.SetActiveCollection(id, collection)

				n := nResults
				if n <= 0 {
					n = svc.Settings.DefaultNResults()
				}
				in := browse.SearchInput{
					Database:   id,
					Collection: collection,
					Text:       text,
					NResults:   n,
					Where:      whereMap,
				}

				var (
					res *vectordb.SearchResult
					err error
				)
				if byID != "" {
					res, err = svc.Searcher.SearchByID(ctx, conn, in, byID)
				} else {
					res, err = svc.Searcher.Search(ctx, conn, in)
				}
				if err != nil {
					return err
				}

				metric := vectordb.DistanceCosine
				if info := svc.Providers.CollectionInfo(ctx, collection); info != nil {
					if m, err := vectordb.ParseDistance(info.Distance); err == nil {
						metric = m
					}
				}
				return printResults(cmd, res, metric, asJSON)
			})
		},
	}

	cmd.Flags().IntVarP(&nResults, "n-results", "n", 0, "number of results (default from settings)")
	cmd.Flags().StringVar(&where, "where", "", "metadata filter as JSON")
	cmd.Flags().StringVar(&byID, "id", "", "search with the vector of this item")
	cmd.Flags().BoolVar(&asJSON, "json", false, "print results as JSON")
	return cmd
}

func printResults(cmd *cobra.Command, res *vectordb.SearchResult, metric vectordb.Distance, asJSON bool) error {
	sims := browse.Similarities(res, metric)
	score := func(i int) float64 {
		if i < len(sims) {
			return sims[i]
		}
		return 0
	}
	items := res.Items()

	if asJSON {
		type hit struct {
			vectordb.Item
			Distance   float32 `json:"distance"`
			Similarity float64 `json:"similarity"`
		}
		hits := make([]hit, len(items))
		for i, it := range items {
			it.Embedding = nil
			hits[i] = hit{Item: it, Similarity: score(i)}
			if i < len(res.Distances) {
				hits[i].Distance = res.Distances[i]
			}
		}
		return printJSON(cmd.OutOrStdout(), hits)
	}

	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintf(tw, "RANK\tID\tSIMILARITY\tDOCUMENT\n")
	for i, it := range items {
		fmt.Fprintf(tw, "%d\t%s\t%.4f\t%s\n", i+1, it.ID, score(i), truncate(deref(it.Document), maxDocumentWidth))
	}
	return tw.Flush()
}

func parseWhereMap(where string) (map[string]any, error) {
	if strings.TrimSpace(where) == "" {
		return nil, nil
	}
	var m map[string]any
	if err := json.Unmarshal([]byte(where), &m); err != nil {
		return nil, fmt.Errorf("parse --where: %w", err)
	}
	return m, nil
}

func parseWhere(where string) (*vectordb.FilterSet, error) {
	m, err := parseWhereMap(where)
	if err != nil {
		return nil, err
	}
	return vectordb.ParseWhere(m)
}

func truncate(s string, n int) string {
	s = strings.ReplaceAll(s, "\n", " ")
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
