package main

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/JonMunkholm/wite2/internal/web"
)

func newServeCmd(a *app) *cobra.Command {
	var (
		host string
		port int
	)
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve audit reports and queries over HTTP",
		Long: `Start the read-only web viewer: a dashboard of the scenarios in the data
directory, audit reports, chain traces and the audit history, plus a JSON
API under /api. The server never modifies scenario files.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if host != "" {
				a.cfg.Server.Host = host
			}
			if port != 0 {
				a.cfg.Server.Port = port
			}

			var hist web.HistoryReader
			store, err := a.openHistory(cmd)
			if err != nil {
				return err
			}
			if store != nil {
				defer store.Close()
				hist = store
			}

			srv := web.NewServer(a.cfg, hist)
			errCh := make(chan error, 1)
			go func() { errCh <- srv.Start() }()

			select {
			case err := <-errCh:
				if errors.Is(err, http.ErrServerClosed) {
					return nil
				}
				return err
			case <-cmd.Context().Done():
			}

			slog.Info("shutting down...")
			ctx, cancel := context.WithTimeout(context.Background(), a.cfg.Server.ShutdownTimeout)
			defer cancel()
			if err := srv.Shutdown(ctx); err != nil {
				return err
			}
			slog.Info("server stopped")
			return nil
		},
	}
	f := cmd.Flags()
	f.StringVar(&host, "host", "", "listen address (env SERVER_HOST)")
	f.IntVar(&port, "port", 0, "listen port (env SERVER_PORT)")
	return cmd
}
