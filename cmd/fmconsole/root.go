package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/cobra"

	"github.com/abelbrown/fmconsole/internal/config"
	"github.com/abelbrown/fmconsole/internal/controller"
	"github.com/abelbrown/fmconsole/internal/fetch"
	"github.com/abelbrown/fmconsole/internal/logging"
	"github.com/abelbrown/fmconsole/internal/store"
)

// cli holds what every subcommand shares: flags from the root command and
// the config loaded before any subcommand runs.
type cli struct {
	configPath string
	verbose    bool

	cfg *config.Config
}

func newRootCmd() *cobra.Command {
	c := &cli{}

	root := &cobra.Command{
		Use:           "fmconsole",
		Short:         "Browse facility management lists from the terminal",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return c.setup(cmd)
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			logging.Close()
		},
	}

	fs := root.PersistentFlags()
	fs.StringVar(&c.configPath, "config", "", "config file (default ~/.fmconsole/config.json)")
	fs.BoolVarP(&c.verbose, "verbose", "v", false, "log to stderr instead of the log file")

	root.AddCommand(
		c.tuiCmd(),
		c.listCmd(),
		c.prefetchCmd(),
		c.snapshotsCmd(),
		c.configCmd(),
		c.devapiCmd(),
	)
	return root
}

// setup loads config and routes logging. Verbose runs log debug lines to
// stderr; everything else logs info and above to a dated file so the TUI
// stays clean.
func (c *cli) setup(cmd *cobra.Command) error {
	cfg, err := config.Load(c.configPath)
	if err != nil {
		return err
	}
	c.cfg = cfg

	if c.verbose {
		logging.SetOutput(cmd.ErrOrStderr())
		logging.SetLevel(log.DebugLevel)
		return nil
	}
	if err := logging.Init(cfg.Dir()); err != nil {
		// Logging is best effort; keep going without it.
		fmt.Fprintln(cmd.ErrOrStderr(), "warning:", err)
		logging.SetOutput(nil)
		return nil
	}
	logging.SetLevel(log.InfoLevel)
	return nil
}

func (c *cli) openStore() (*store.Store, error) {
	if err := os.MkdirAll(c.cfg.Dir(), 0755); err != nil {
		return nil, fmt.Errorf("failed to create data directory: %w", err)
	}
	return store.Open(c.cfg.DBPath())
}

func (c *cli) newFetcher() *fetch.Fetcher {
	return fetch.NewFetcher(c.cfg.Timeout(), fetch.WithRateLimit(c.cfg.API.RequestsPerSecond, c.cfg.API.Burst))
}

// resource resolves name to a configured resource. An empty name means the
// configured default, or the first resource.
func (c *cli) resource(name string) (controller.Resource, error) {
	if name == "" {
		name = c.cfg.UI.DefaultResource
	}
	if name == "" && len(c.cfg.Resources) > 0 {
		name = c.cfg.Resources[0].Name
	}
	rc, ok := c.cfg.Resource(name)
	if !ok {
		return controller.Resource{}, fmt.Errorf("unknown resource %q (have: %s)", name, strings.Join(c.cfg.ResourceNames(), ", "))
	}
	return controller.ResourceFromConfig(rc, c.cfg.UI.PerPage), nil
}

func firstArg(args []string) string {
	if len(args) == 0 {
		return ""
	}
	return args[0]
}
