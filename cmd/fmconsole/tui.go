package main

import (
	"context"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/spf13/cobra"

	"github.com/abelbrown/fmconsole/internal/controller"
	"github.com/abelbrown/fmconsole/internal/logging"
	"github.com/abelbrown/fmconsole/internal/ui"
)

func (c *cli) tuiCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "tui [resource]",
		Short: "Open the interactive list screen",
		Long: `Open the interactive list screen for a resource (the configured default
when none is named). Search with /, page with n and p, sort with s and S.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return c.runTUI(cmd.Context(), firstArg(args))
		},
	}
}

func (c *cli) runTUI(ctx context.Context, name string) error {
	res, err := c.resource(name)
	if err != nil {
		return err
	}

	st, err := c.openStore()
	if err != nil {
		return err
	}
	defer st.Close()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	lc, err := controller.New(ctx, res, c.cfg.RequestContext(), c.newFetcher(), controller.WithSnapshots(st))
	if err != nil {
		return err
	}
	defer lc.Close()

	app := ui.NewApp(lc, lc.Resource(), c.cfg.Debounce())
	program := tea.NewProgram(app, tea.WithAltScreen(), tea.WithContext(ctx))

	go ui.Forward(ctx, program, lc.Subscribe())

	logging.Info("tui: started", "resource", res.Name)
	_, err = program.Run()
	return err
}
