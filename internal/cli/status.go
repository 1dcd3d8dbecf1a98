package cli

import (
	"context"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/casegraph/casegraph/internal/graph"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show knowledge base statistics",
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			stats, vectors, err := eng.Stats(context.Background())
			if err != nil {
				return fmt.Errorf("get stats: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out)
			fmt.Fprintln(out, headerStyle.Render("Knowledge Base Status"))
			fmt.Fprintln(out)
			fmt.Fprintf(out, "  %s%s\n", labelStyle.Render("Backend:"), valueStyle.Render(cfg.Storage.Backend))
			fmt.Fprintf(out, "  %s%d\n", labelStyle.Render("Cases:"), stats.CaseCount)
			fmt.Fprintf(out, "  %s%d\n", labelStyle.Render("Tombstones:"), stats.TombstoneCount)
			fmt.Fprintf(out, "  %s%d\n", labelStyle.Render("Entities:"), stats.EntityCount)
			fmt.Fprintf(out, "  %s%d\n", labelStyle.Render("Edges:"), stats.EdgeCount)
			fmt.Fprintf(out, "  %s%d\n", labelStyle.Render("Vectors:"), vectors)

			if len(stats.EdgesByRelation) > 0 {
				fmt.Fprintln(out)
				fmt.Fprintf(out, "  %s\n", headerStyle.Render("Edges by relation"))
				for _, rel := range sortedRelations(stats.EdgesByRelation) {
					fmt.Fprintf(out, "    %-20s %d\n", rel, stats.EdgesByRelation[rel])
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}
}

func sortedRelations(m map[graph.Relation]int64) []graph.Relation {
	keys := make([]graph.Relation, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return keys[i] < keys[j] })
	return keys
}
