package cli

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/casegraph/casegraph/internal/config"
	"github.com/casegraph/casegraph/pkg/uatgen"
)

// Style definitions shared by the output-producing commands.
var (
	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.AdaptiveColor{Light: "#5A56E0", Dark: "#7571F9"})
	labelStyle = lipgloss.NewStyle().
			Faint(true).
			Width(16)
	valueStyle = lipgloss.NewStyle()
	scoreStyle = lipgloss.NewStyle().
			Foreground(lipgloss.AdaptiveColor{Light: "#2E7D32", Dark: "#81C784"})
)

// openEngine loads the configuration and assembles the generation engine.
// Callers must Close the returned engine.
func openEngine() (*uatgen.Engine, *config.Config, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	eng, err := uatgen.New(cfg)
	if err != nil {
		return nil, nil, fmt.Errorf("open knowledge base: %w", err)
	}
	return eng, cfg, nil
}

// maybeSnapshot persists the graph when the memory backend has a snapshot
// file configured. The embedded backend is durable on its own.
func maybeSnapshot(eng *uatgen.Engine, cfg *config.Config) error {
	if cfg.Storage.Backend != config.StorageMemory || cfg.Storage.SnapshotPath == "" {
		return nil
	}
	return eng.Snapshot()
}
