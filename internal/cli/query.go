package cli

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/casegraph/casegraph/internal/graph"
)

func newQueryCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "query",
		Short: "Query the knowledge graph",
	}

	cmd.AddCommand(newQueryCaseCmd())
	cmd.AddCommand(newQueryNeighborsCmd())

	return cmd
}

func newQueryCaseCmd() *cobra.Command {
	var jsonOut bool

	cmd := &cobra.Command{
		Use:   "case <case-id>",
		Short: "Show a stored test case",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			c, err := eng.Case(context.Background(), args[0])
			if err != nil {
				return fmt.Errorf("get case %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				return enc.Encode(c)
			}

			fmt.Fprintln(out)
			fmt.Fprintln(out, headerStyle.Render(c.Title))
			fmt.Fprintf(out, "  %s%s\n", labelStyle.Render("ID:"), valueStyle.Render(c.ID))
			if c.Inactive {
				fmt.Fprintf(out, "  %s%s\n", labelStyle.Render("State:"), valueStyle.Render("removed (tombstone)"))
			}
			fmt.Fprintf(out, "  %s\n", labelStyle.Render("Steps:"))
			for i, step := range c.Steps {
				fmt.Fprintf(out, "    %d. %s\n", i+1, step)
			}
			fmt.Fprintf(out, "  %s%s\n", labelStyle.Render("Expected:"), valueStyle.Render(c.ExpectedResult))
			if len(c.EntityIDs) > 0 {
				fmt.Fprintf(out, "  %s\n", labelStyle.Render("Entities:"))
				for _, id := range c.EntityIDs {
					fmt.Fprintf(out, "    %s\n", id)
				}
			}
			fmt.Fprintln(out)
			return nil
		},
	}

	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit the case as JSON")

	return cmd
}

func newQueryNeighborsCmd() *cobra.Command {
	var (
		relation string
		depth    int
	)

	cmd := &cobra.Command{
		Use:   "neighbors <node-id>",
		Short: "List nodes connected to a case or entity",
		Long: `List the ids of nodes reachable from a case or entity node.

The relation defaults to "tests"; --depth bounds the traversal. Entity node
ids look like "Action:login", case node ids are content hashes.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, _, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			ids, err := eng.Neighbors(context.Background(), args[0], graph.Relation(relation), depth)
			if err != nil {
				return fmt.Errorf("neighbors of %s: %w", args[0], err)
			}

			out := cmd.OutOrStdout()
			if len(ids) == 0 {
				fmt.Fprintln(out, "(no neighbors)")
				return nil
			}
			for _, id := range ids {
				fmt.Fprintln(out, id)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&relation, "relation", "r", string(graph.RelationTests), "edge relation to follow")
	cmd.Flags().IntVarP(&depth, "depth", "d", 1, "maximum traversal depth")

	return cmd
}
