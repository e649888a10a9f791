package main

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/joelkehle/pharma-discovery/internal/webapp"
)

var serveAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the upload form, JSON views and report downloads",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		addr := cfg.Server.Addr
		if serveAddr != "" {
			addr = serveAddr
		}
		a := buildApp(cfg, logger)
		handler := webapp.NewServer(a.orch, a.pubmed, a.store, a.pdf, logger)

		srv := &http.Server{Addr: addr, Handler: handler, ReadHeaderTimeout: 10 * time.Second}
		ctx := cmd.Context()
		go func() {
			<-ctx.Done()
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			_ = srv.Shutdown(shutdownCtx)
		}()
		logger.Info().Str("addr", addr).Str("data_dir", cfg.DataDir).Msg("server_listening")
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", "", "listen address (overrides server.addr and PORT)")
}
