package main

import (
	"github.com/franciscosanchezn/gin-foodgram-api/internal/auth"
	"github.com/franciscosanchezn/gin-foodgram-api/internal/server"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
)

func newMigrateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Create or update the database schema",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := server.OpenDatabase(configuration)
			if err != nil {
				return err
			}
			oauth := auth.NewOAuthService(db, configuration.JWTSecret, configuration.TokenTTL, configuration.WebClientID)
			if err := oauth.EnsureWebClient(cmd.Context()); err != nil {
				return err
			}
			log.Info("Database is up to date")
			return nil
		},
	}
}

func newPurgeTokensCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "purge-tokens",
		Short: "Delete expired access tokens from the token store",
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := server.OpenDatabase(configuration)
			if err != nil {
				return err
			}
			oauth := auth.NewOAuthService(db, configuration.JWTSecret, configuration.TokenTTL, configuration.WebClientID)
			n, err := oauth.PurgeExpiredTokens(cmd.Context())
			if err != nil {
				return err
			}
			log.WithField("count", n).Info("Purged expired tokens")
			return nil
		},
	}
}
