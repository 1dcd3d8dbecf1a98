package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"
)

func newRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <case-id>...",
		Short: "Remove cases from the knowledge base",
		Long: `Remove one or more cases from the knowledge base.

Removed cases are tombstoned in the graph and deleted from the vector
index, so they no longer influence generation. Removing an already removed
or unknown case is not an error.`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			ctx := context.Background()
			out := cmd.OutOrStdout()
			for _, id := range args {
				if err := eng.Remove(ctx, id); err != nil {
					return fmt.Errorf("remove %s: %w", id, err)
				}
				fmt.Fprintf(out, "Removed %s\n", id)
			}
			return maybeSnapshot(eng, cfg)
		},
	}
}
