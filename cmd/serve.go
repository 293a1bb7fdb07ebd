package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/auth"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/database"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/middleware"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/server"
	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newServeCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()
			return serve(ctx)
		},
	}
}

func serve(ctx context.Context) error {
	if configuration.Env == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := server.OpenDatabase(configuration)
	if err != nil {
		return err
	}

	blobs, err := server.NewBlobStore(ctx, configuration)
	if err != nil {
		return err
	}

	oauth := auth.NewOAuthService(db, configuration.JWTSecret, configuration.TokenTTL, configuration.WebClientID)
	if err := oauth.EnsureWebClient(ctx); err != nil {
		return err
	}

	deps := server.Deps{Config: configuration, DB: db, Blobs: blobs, OAuth: oauth}
	if configuration.RedisURL != "" {
		client, err := database.NewRedisClient(ctx, configuration.RedisURL)
		if err != nil {
			log.WithError(err).Warn("Redis unavailable, recipe creation is not rate limited")
		} else {
			defer client.Close()
			deps.RateCounter = middleware.NewRedisCounter(client)
		}
	}

	srv := &http.Server{
		Addr:              fmt.Sprintf("%v:%d", configuration.Host, configuration.Port),
		Handler:           server.NewRouter(deps),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Infof("Starting server on %s:%d", configuration.Host, configuration.Port)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
