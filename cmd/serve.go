package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"github.com/lehigh-university-libraries/woundlabel/internal/auth"
	"github.com/lehigh-university-libraries/woundlabel/internal/catalog"
	"github.com/lehigh-university-libraries/woundlabel/internal/handlers"
	"github.com/lehigh-university-libraries/woundlabel/internal/images"
	"github.com/lehigh-university-libraries/woundlabel/internal/labeling"
	"github.com/lehigh-university-libraries/woundlabel/internal/storage"
)

func newServeCmd(opts *rootOptions) *cobra.Command {
	var port int

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start web server for the labeling interface",
		Long: `Starts the labeling web interface.

The image catalog, the label store and the rater credential are checked
before the server starts listening; any of them missing stops startup.`,
		Example: `  # Start server on the configured port (default 8888)
  woundlabel serve

  # Start server on custom port
  woundlabel serve --port 3000`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := opts.cfg
			if cmd.Flags().Changed("port") {
				cfg.Server.Port = port
			}
			if err := cfg.Validate(); err != nil {
				return fmt.Errorf("invalid configuration: %w", err)
			}

			checker, err := auth.NewStaticChecker(cfg.Auth.Username, cfg.Auth.PasswordHash, cfg.Auth.LoginInterval(), cfg.Auth.LoginBurst)
			if err != nil {
				return fmt.Errorf("invalid credential configuration: %w", err)
			}

			cat, err := catalog.Load(cfg.Catalog.Path)
			if err != nil {
				return fmt.Errorf("failed to load image catalog: %w", err)
			}

			store, err := openLabelStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}
			defer store.Close()

			blobs, err := openBlobStore(cmd.Context(), cfg)
			if err != nil {
				return err
			}

			service := labeling.NewService(cat, store, newExporter(blobs, cfg))
			handler := handlers.New(
				storage.New(cfg.Session.TTL()),
				service,
				images.NewFetcher(blobs, cfg.Image.CacheTTL()),
				checker,
			)

			addr := fmt.Sprintf(":%d", cfg.Server.Port)
			server := &http.Server{
				Addr:              addr,
				Handler:           handler.Routes(),
				ReadHeaderTimeout: 10 * time.Second,
			}

			// Start server in goroutine
			serverErr := make(chan error, 1)
			go func() {
				slog.Info("Labeling interface available", "addr", addr, "url", "http://localhost"+addr, "images", cat.Len())
				if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
					serverErr <- err
				}
			}()

			// Wait for context cancellation (Ctrl+C) or server error
			select {
			case <-cmd.Context().Done():
				slog.Info("Shutting down server...")
				// Give server 5 seconds to shut down gracefully
				shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
				defer cancel()
				if err := server.Shutdown(shutdownCtx); err != nil {
					slog.Error("Server shutdown failed", "err", err)
					return err
				}
				slog.Info("Server stopped")
				return nil
			case err := <-serverErr:
				return err
			}
		},
	}

	cmd.Flags().IntVarP(&port, "port", "p", 8888, "Port to listen on (overrides server.port)")

	return cmd
}
