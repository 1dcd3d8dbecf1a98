package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/casegraph/casegraph/pkg/uatgen"
)

func newGenerateCmd() *cobra.Command {
	var (
		topK          int
		jsonOut       bool
		save          bool
		linkVariables bool
	)

	cmd := &cobra.Command{
		Use:   "generate <user story>",
		Short: "Generate test-case candidates from a user story",
		Long: `Generate ranked UAT test-case candidates from a free-text user story.

The story is matched against historical cases in the knowledge base; close
matches are adapted to the story's entities, and a bare template fills in
when nothing similar exists. Pass --save to persist every candidate back
into the knowledge base.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			story := strings.Join(args, " ")

			eng, cfg, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx := context.Background()
			results, err := eng.Generate(ctx, story, topK)
			if err != nil {
				return fmt.Errorf("generate: %w", err)
			}

			out := cmd.OutOrStdout()
			if jsonOut {
				enc := json.NewEncoder(out)
				enc.SetIndent("", "  ")
				if err := enc.Encode(results); err != nil {
					return fmt.Errorf("encode results: %w", err)
				}
			} else {
				printResults(cmd, story, results)
			}

			if save {
				for _, r := range results {
					id, err := eng.Save(ctx, r, linkVariables)
					if err != nil {
						return fmt.Errorf("save candidate %q: %w", r.Candidate.Case.Title, err)
					}
					fmt.Fprintf(cmd.OutOrStdout(), "Saved %s\n", id)
				}
				if err := maybeSnapshot(eng, cfg); err != nil {
					return fmt.Errorf("write snapshot: %w", err)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVarP(&topK, "top-k", "k", 0, "number of similar cases to retrieve (0 = configured default)")
	cmd.Flags().BoolVar(&jsonOut, "json", false, "emit results as JSON")
	cmd.Flags().BoolVar(&save, "save", false, "persist generated candidates into the knowledge base")
	cmd.Flags().BoolVar(&linkVariables, "link-variables", false, "record uses-variable edges when saving")

	return cmd
}

func printResults(cmd *cobra.Command, story string, results []uatgen.Result) {
	out := cmd.OutOrStdout()

	fmt.Fprintln(out)
	fmt.Fprintln(out, headerStyle.Render("Generated Test Cases"))
	fmt.Fprintf(out, "%s\n\n", labelStyle.Render("Story:")+valueStyle.Render(story))

	for i, r := range results {
		c := r.Candidate
		origin := "template"
		if c.Adapted {
			origin = "adapted from " + c.SourceCaseID
		}

		fmt.Fprintf(out, "%s %s\n", headerStyle.Render(fmt.Sprintf("%d.", i+1)), c.Case.Title)
		fmt.Fprintf(out, "   %s%s\n", labelStyle.Render("Score:"),
			scoreStyle.Render(fmt.Sprintf("%.3f (similarity %.3f, overlap %.2f)", c.Score, c.Similarity, c.Overlap)))
		fmt.Fprintf(out, "   %s%s\n", labelStyle.Render("Origin:"), valueStyle.Render(origin))
		fmt.Fprintf(out, "   %s\n", labelStyle.Render("Steps:"))
		for j, step := range c.Case.Steps {
			fmt.Fprintf(out, "     %d. %s\n", j+1, step)
		}
		fmt.Fprintf(out, "   %s%s\n", labelStyle.Render("Expected:"), valueStyle.Render(c.Case.ExpectedResult))

		if verbose && len(c.Entities) > 0 {
			fmt.Fprintf(out, "   %s\n", labelStyle.Render("Entities:"))
			for _, e := range c.Entities {
				fmt.Fprintf(out, "     %s: %s\n", e.Type, e.Value)
			}
		}

		if len(r.Variables) > 0 {
			fmt.Fprintf(out, "   %s\n", labelStyle.Render("Variables:"))
			for _, v := range r.Variables {
				if v.DefaultValue != "" {
					fmt.Fprintf(out, "     [%s] (%s, default %q)\n", v.Name, v.Category, v.DefaultValue)
				} else {
					fmt.Fprintf(out, "     [%s] (%s)\n", v.Name, v.Category)
				}
			}
		}
		fmt.Fprintln(out)
	}
}
