package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/charmbracelet/huh"
	"github.com/spf13/cobra"

	"github.com/casegraph/casegraph/internal/config"
)

func newInitCmd() *cobra.Command {
	var (
		yes     bool
		force   bool
		backend string
	)

	cmd := &cobra.Command{
		Use:   "init",
		Short: "Initialize a .casegraph.yaml config file",
		Long: `Initialize a casegraph project in the current directory.

Creates a .casegraph.yaml configuration file. By default an interactive
wizard collects the project name, storage backend, and generation tuning
parameters; pass --yes to write the defaults without prompting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cwd, err := os.Getwd()
			if err != nil {
				return fmt.Errorf("get working directory: %w", err)
			}

			path := filepath.Join(cwd, config.DefaultConfigFile+"."+config.DefaultConfigType)
			if _, err := os.Stat(path); err == nil && !force {
				return fmt.Errorf("%s already exists; use --force to overwrite", path)
			}

			cfg := config.Default()
			cfg.Project.Name = filepath.Base(cwd)
			if backend != "" {
				cfg.Storage.Backend = backend
			}

			if !yes {
				if err := runInitForm(cfg); err != nil {
					return err
				}
			}

			if err := cfg.Validate(); err != nil {
				return err
			}
			if err := config.WriteConfig(cfg, path); err != nil {
				return fmt.Errorf("write config file: %w", err)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Created %s\n", path)
			fmt.Fprintln(out)
			fmt.Fprintln(out, "Next steps:")
			fmt.Fprintln(out, "  1. Put historical test-case YAML documents under a directory (e.g. testcases/)")
			fmt.Fprintln(out, "  2. Run 'casegraph ingest testcases/' to build the knowledge base")
			fmt.Fprintln(out, "  3. Run 'casegraph generate \"<user story>\"' to generate candidates")
			return nil
		},
	}

	cmd.Flags().BoolVarP(&yes, "yes", "y", false, "write defaults without prompting")
	cmd.Flags().BoolVar(&force, "force", false, "overwrite an existing config file")
	cmd.Flags().StringVar(&backend, "backend", "", "storage backend (embedded or memory)")

	return cmd
}

// runInitForm runs the interactive wizard, mutating cfg in place.
func runInitForm(cfg *config.Config) error {
	var (
		topK     = strconv.Itoa(cfg.Generation.TopK)
		minScore = strconv.FormatFloat(cfg.Generation.MinScore, 'f', -1, 64)
	)

	backendOptions := []huh.Option[string]{
		huh.NewOption("Embedded (durable BadgerDB stores)", config.StorageEmbedded),
		huh.NewOption("In-memory (optional YAML snapshot)", config.StorageMemory),
	}

	form := huh.NewForm(
		huh.NewGroup(
			huh.NewInput().
				Title("Project name").
				Value(&cfg.Project.Name).
				Validate(func(s string) error {
					if strings.TrimSpace(s) == "" {
						return fmt.Errorf("project name cannot be empty")
					}
					return nil
				}),
			huh.NewSelect[string]().
				Title("Storage backend").
				Options(backendOptions...).
				Value(&cfg.Storage.Backend),
		).Title("Project Setup"),

		huh.NewGroup(
			huh.NewInput().
				Title("Similar cases retrieved per story (top_k)").
				Value(&topK).
				Validate(func(s string) error {
					n, err := strconv.Atoi(strings.TrimSpace(s))
					if err != nil || n <= 0 {
						return fmt.Errorf("top_k must be a positive integer")
					}
					return nil
				}),
			huh.NewInput().
				Title("Minimum combined score for reusing retrieved cases").
				Value(&minScore).
				Validate(func(s string) error {
					f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
					if err != nil || f < 0 || f > 1 {
						return fmt.Errorf("min_score must be between 0 and 1")
					}
					return nil
				}),
		).Title("Generation Tuning"),
	)

	if err := form.Run(); err != nil {
		return fmt.Errorf("init wizard: %w", err)
	}

	cfg.Generation.TopK, _ = strconv.Atoi(strings.TrimSpace(topK))
	cfg.Generation.MinScore, _ = strconv.ParseFloat(strings.TrimSpace(minScore), 64)
	return nil
}
