package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/abelbrown/fmconsole/internal/devapi"
	"github.com/abelbrown/fmconsole/internal/logging"
)

func (c *cli) devapiCmd() *cobra.Command {
	var (
		addr  string
		token string
		delay time.Duration
	)
	cmd := &cobra.Command{
		Use:   "devapi",
		Short: "Serve sample lists for development",
		Long: `Serve sample headquarters, sites, regions and company lists that answer
the same query parameters as the real backend. Point the console at it with
FMCONSOLE_API_BASE_URL=http://localhost:8089 and the same token.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDevAPI(cmd.Context(), cmd.OutOrStdout(), addr, token, delay)
		},
	}
	fs := cmd.Flags()
	fs.StringVar(&addr, "addr", "localhost:8089", "listen address")
	fs.StringVar(&token, "token", "dev", "required access token (empty disables auth)")
	fs.DurationVar(&delay, "delay", 0, "artificial response delay")
	return cmd
}

func runDevAPI(ctx context.Context, out io.Writer, addr, token string, delay time.Duration) error {
	api := devapi.New(token, devapi.SampleFixtures()...)
	api.SetDelay(delay)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api,
		ReadHeaderTimeout: 5 * time.Second,
	}

	fmt.Fprintf(out, "serving %d lists on http://%s\n", len(api.Paths()), addr)
	for _, p := range api.Paths() {
		fmt.Fprintf(out, "  /%s.json\n", p)
	}

	errc := make(chan error, 1)
	go func() { errc <- srv.ListenAndServe() }()

	select {
	case err := <-errc:
		return err
	case <-ctx.Done():
	}

	logging.Info("devapi: shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return err
	}
	if err := <-errc; !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
