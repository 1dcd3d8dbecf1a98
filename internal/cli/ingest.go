package cli

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/casegraph/casegraph/internal/ingest"
)

func newIngestCmd() *cobra.Command {
	var watch bool

	cmd := &cobra.Command{
		Use:   "ingest [dir...]",
		Short: "Load historical test-case documents into the knowledge base",
		Long: `Ingest historical test-case YAML documents into the knowledge graph and
vector index.

Directories given as arguments are walked recursively; without arguments the
configured ingest paths are used. With --watch the command keeps running and
re-ingests files as they change.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			eng, cfg, err := openEngine()
			if err != nil {
				return err
			}
			defer eng.Close()

			dirs := args
			if len(dirs) == 0 {
				dirs = cfg.Ingest.Paths
			}
			if len(dirs) == 0 {
				return fmt.Errorf("no ingest directories; pass them as arguments or set ingest.paths in config")
			}

			logf := func(format string, args ...any) {
				fmt.Fprintf(cmd.ErrOrStderr(), format+"\n", args...)
			}
			in := eng.NewIngester(logf)

			ctx := context.Background()
			out := cmd.OutOrStdout()
			for _, dir := range dirs {
				stats, err := in.IngestDir(ctx, dir)
				if err != nil {
					return fmt.Errorf("ingest %s: %w", dir, err)
				}
				fmt.Fprintf(out, "%s: %d cases from %d files\n", dir, stats.CasesIngested, stats.FilesIngested)
				for _, msg := range stats.Errors {
					fmt.Fprintf(cmd.ErrOrStderr(), "  warning: %s\n", msg)
				}
			}
			if err := maybeSnapshot(eng, cfg); err != nil {
				return fmt.Errorf("write snapshot: %w", err)
			}

			if !watch {
				return nil
			}

			debounce := ingest.DefaultDebounce
			if cfg.Ingest.DebounceMillis > 0 {
				debounce = time.Duration(cfg.Ingest.DebounceMillis) * time.Millisecond
			}

			watchCtx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
			defer cancel()

			fmt.Fprintln(out, "Watching for changes (Ctrl+C to stop)...")
			if err := in.Watch(watchCtx, dirs, debounce); err != nil {
				return fmt.Errorf("watch: %w", err)
			}
			return maybeSnapshot(eng, cfg)
		},
	}

	cmd.Flags().BoolVarP(&watch, "watch", "w", false, "keep running and re-ingest files as they change")

	return cmd
}
