package cmd

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/guilhermegouw/parley/internal/config"
)

func newConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Read and edit the configuration file",
		Long: `Read and edit the configuration file in place.

Keys use dot notation:
  parley config set storage.type memory
  parley config set models.large.model gpt-4o
  parley config set classifier.fallback true
  parley config get generator.url`,
	}

	cmd.AddCommand(
		&cobra.Command{
			Use:   "init",
			Short: "Write a starter config file",
			Args:  cobra.NoArgs,
			RunE:  runConfigInit,
		},
		&cobra.Command{
			Use:   "path",
			Short: "Print the config file path",
			Args:  cobra.NoArgs,
			Run: func(cmd *cobra.Command, _ []string) {
				fmt.Fprintln(cmd.OutOrStdout(), configPath(cmd))
			},
		},
		&cobra.Command{
			Use:   "get <key>",
			Short: "Print one field",
			Args:  cobra.ExactArgs(1),
			RunE:  runConfigGet,
		},
		&cobra.Command{
			Use:   "set <key> <value>",
			Short: "Set one field",
			Args:  cobra.ExactArgs(2),
			RunE:  runConfigSet,
		},
		&cobra.Command{
			Use:   "validate",
			Short: "Check the configuration",
			Args:  cobra.NoArgs,
			RunE:  runConfigValidate,
		},
	)
	return cmd
}

func configPath(cmd *cobra.Command) string {
	if p, _ := cmd.Flags().GetString("config"); p != "" { //nolint:errcheck // flag is registered on root
		return p
	}
	return config.GlobalConfigPath()
}

func runConfigInit(cmd *cobra.Command, _ []string) error {
	path := configPath(cmd)
	written, err := config.WriteDefault(path)
	if err != nil {
		return err
	}
	if !written {
		fmt.Fprintf(cmd.OutOrStdout(), "Config already exists: %s\n", path)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Wrote %s\n", path)
	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	v, ok, err := config.GetField(configPath(cmd), args[0])
	if err != nil {
		return err
	}
	if !ok {
		return fmt.Errorf("%s is not set", args[0])
	}
	fmt.Fprintln(cmd.OutOrStdout(), v)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	path := configPath(cmd)
	if err := config.SetField(path, args[0], args[1]); err != nil {
		return err
	}
	// Catch values that make the file unloadable right away.
	if _, err := config.Load(path); err != nil {
		return fmt.Errorf("%s updated, but the configuration is now invalid: %w", path, err)
	}
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig(cmd)
	if err != nil {
		return err
	}
	res := config.Validate(cfg)
	for _, w := range res.WarningStrings() {
		fmt.Fprintf(cmd.OutOrStdout(), "warning: %s\n", w)
	}
	if !res.IsValid {
		return res.Error()
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Configuration is valid.")
	return nil
}
