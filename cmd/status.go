package cmd

import (
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/parley/internal/config"
	"github.com/guilhermegouw/parley/internal/provider"
	"github.com/guilhermegouw/parley/internal/session"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show configuration, storage and model tiers",
		Long: `Display the current parley status including:
  - Config file and data directory
  - Storage backend and schema version
  - Classifier and generator
  - Model tier used for each session mode`,
		Args: cobra.NoArgs,
		RunE: runStatus,
	}
}

func runStatus(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()

	fmt.Fprintln(out, "parley status")
	fmt.Fprintln(out, strings.Repeat("─", 40))
	fmt.Fprintln(out)

	fmt.Fprintf(out, "Config File:    %s\n", cfg.Path())
	fmt.Fprintf(out, "Data Directory: %s\n", cfg.DataDir())
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Storage:")
	fmt.Fprintf(out, "  Backend: %s\n", cfg.Storage.Type)
	if cfg.Storage.Type == config.StorageSQLite {
		fmt.Fprintf(out, "  Path:    %s\n", cfg.DBPath())
		printSchemaVersion(cmd, out)
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Classifier:")
	fmt.Fprintf(out, "  Type:    %s\n", describePort(cfg.Classifier.Type, cfg.Classifier.URL))
	fmt.Fprintf(out, "  Timeout: %s\n", cfg.Classifier.Timeout.Std())
	if cfg.Classifier.Fallback {
		fmt.Fprintln(out, "  Fallback: keyword")
	}
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Generator:")
	fmt.Fprintf(out, "  Type:    %s\n", describePort(cfg.Generator.Type, cfg.Generator.URL))
	fmt.Fprintf(out, "  Timeout: %s\n", cfg.Generator.Timeout.Std())
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Models:")
	printModelConfig(out, cfg, session.ModeSpecialized)
	printModelConfig(out, cfg, session.ModeDefault)
	fmt.Fprintln(out)

	fmt.Fprintln(out, "Providers:")
	if len(cfg.Providers) == 0 {
		fmt.Fprintln(out, "  No providers configured")
	} else {
		ids := make([]string, 0, len(cfg.Providers))
		for id := range cfg.Providers {
			ids = append(ids, id)
		}
		sort.Strings(ids)
		for _, id := range ids {
			printProviderStatus(out, id, cfg.Providers[id])
		}
	}
	return nil
}

func printSchemaVersion(cmd *cobra.Command, out io.Writer) {
	a, err := newApp(commandContext(cmd), cmd, false)
	if err != nil {
		fmt.Fprintf(out, "  Schema:  unavailable (%v)\n", err)
		return
	}
	defer a.Close() //nolint:errcheck // best effort on exit

	v, err := a.db.Version()
	if err != nil {
		fmt.Fprintf(out, "  Schema:  unavailable (%v)\n", err)
		return
	}
	fmt.Fprintf(out, "  Schema:  version %d\n", v)
}

func describePort(typ, url string) string {
	if url == "" {
		return typ
	}
	return fmt.Sprintf("%s (%s)", typ, url)
}

func printModelConfig(out io.Writer, cfg *config.Config, m session.Mode) {
	tier := provider.TierFor(m)
	label := fmt.Sprintf("  %-12s", string(m)+":")
	model, ok := cfg.Model(tier)
	if !ok {
		fmt.Fprintf(out, "%s (not configured)\n", label)
		return
	}
	fmt.Fprintf(out, "%s %s (%s, %s tier)\n", label, model.Model, model.Provider, tier)
}

func printProviderStatus(out io.Writer, id string, p *config.ProviderConfig) {
	name := p.Name
	if name == "" {
		name = id
	}

	status := "API Key"
	if p.APIKey == "" {
		status = "Not configured"
	}
	if p.Disable {
		status = "Disabled"
	}

	fmt.Fprintf(out, "  %s (%s): %s\n", name, p.Type, status)
}
