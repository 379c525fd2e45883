package main

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"folio/api/internal/app"
	"folio/api/internal/assets"
	"folio/api/internal/auth"
	"folio/api/internal/live"
	"folio/api/internal/search"
)

func newServeCmd(rt *cliEnv) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), rt)
		},
	}
}

func runServe(ctx context.Context, rt *cliEnv) error {
	cfg := rt.cfg
	log := rt.log

	dataStore, closeStore, err := openStore(ctx, rt)
	if err != nil {
		log.Error().Err(err).Msg("store setup failed")
		return err
	}
	defer closeStore()

	var meiliClient *search.Meili
	if strings.TrimSpace(cfg.MeiliURL) != "" {
		meiliClient = search.NewMeili(cfg.MeiliURL, cfg.MeiliMasterKey, log.With().Str("component", "search").Logger())
		defer meiliClient.Close()
	}
	searchService := search.NewService(meiliClient, search.NewStoreScan(dataStore), log)

	serviceOpts := []app.Option{
		app.WithLogger(log.With().Str("component", "service").Logger()),
		app.WithSearch(searchService),
	}
	var httpOpts []app.HTTPOption
	if strings.TrimSpace(cfg.MinIOEndpoint) != "" {
		objects, err := assets.NewMinIO(ctx, cfg.MinIOEndpoint, cfg.MinIOAccessKey, cfg.MinIOSecretKey, cfg.MinIOBucket, cfg.MinIOUseSSL)
		if err != nil {
			log.Error().Err(err).Str("endpoint", cfg.MinIOEndpoint).Msg("object storage setup failed")
			return err
		}
		serviceOpts = append(serviceOpts, app.WithAssets(objects))
		httpOpts = append(httpOpts, app.WithUploads(objects))
	}
	service := app.New(cfg, dataStore, serviceOpts...)

	httpOpts = append(httpOpts,
		app.WithProjector(live.NewProjector(dataStore, log.With().Str("component", "live").Logger())),
		app.WithSearchService(searchService),
		app.WithRequestLogger(log.With().Str("component", "http").Logger()),
	)
	httpServer := app.NewHTTPServer(service, auth.NewTokens(cfg.TokenSecret), cfg.CORSOrigin, httpOpts...)
	server := &http.Server{
		Addr:              cfg.Addr,
		Handler:           httpServer.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", cfg.Addr).Str("store", cfg.StoreDriver).Msg("folio API listening")
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			log.Error().Err(err).Msg("server failed")
			return err
		}
		return nil
	case <-ctx.Done():
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(shutdownCtx); err != nil {
		log.Warn().Err(err).Msg("shutdown error")
	}
	log.Info().Msg("folio API stopped")
	return nil
}
