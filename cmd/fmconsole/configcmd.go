package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/abelbrown/fmconsole/internal/config"
)

func (c *cli) configCmd() *cobra.Command {
	var initFile bool
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Show the effective configuration",
		Long: `Show the configuration after file and FMCONSOLE_* environment overrides,
with the token masked. --init writes the defaults to the config file if it
does not exist yet.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if initFile {
				return c.initConfig(cmd.OutOrStdout())
			}
			return printConfig(cmd.OutOrStdout(), c.cfg)
		},
	}
	cmd.Flags().BoolVar(&initFile, "init", false, "write a default config file")
	return cmd
}

func (c *cli) initConfig(out io.Writer) error {
	path := c.configPath
	if path == "" {
		path = config.ConfigPath()
	}
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("%s already exists", path)
	} else if !errors.Is(err, os.ErrNotExist) {
		return err
	}
	if err := config.DefaultConfig().Save(path); err != nil {
		return fmt.Errorf("failed to write config: %w", err)
	}
	fmt.Fprintf(out, "wrote %s\n", path)
	return nil
}

func printConfig(out io.Writer, cfg *config.Config) error {
	shown := *cfg
	if shown.API.Token != "" {
		shown.API.Token = "********"
	}
	data, err := json.MarshalIndent(shown, "", "  ")
	if err != nil {
		return err
	}
	fmt.Fprintln(out, string(data))
	return nil
}
