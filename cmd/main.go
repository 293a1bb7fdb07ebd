package main

import (
	"os"

	"github.com/franciscosanchezn/gin-foodgram-api/internal/config"
	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	_ "github.com/franciscosanchezn/gin-foodgram-api/docs" // registers the swagger spec
)

var configuration *config.Config

// @title Foodgram API
// @version 1.0
// @description Recipe sharing: publish recipes, follow authors, keep favorites and a shopping list.
// @host localhost:8080
// @BasePath /
// @securityDefinitions.apikey BearerAuth
// @in header
// @name Authorization
// @description Type "Bearer" or "Token" followed by a space and the access token.
func main() {
	rootCmd := &cobra.Command{
		Use:   "foodgram",
		Short: "Foodgram recipe sharing API",
		Long: `foodgram serves the recipe sharing API and manages its database.

Examples:
  foodgram serve
  foodgram migrate
  foodgram load-ingredients data/ingredients.csv
  foodgram create-client --role admin`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			loadDotenvFile()
			setUpLogger()
			conf, err := config.LoadConfig()
			if err != nil {
				return err
			}
			configuration = conf
			return nil
		},
	}

	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newMigrateCmd())
	rootCmd.AddCommand(newPurgeTokensCmd())
	rootCmd.AddCommand(newLoadTagsCmd())
	rootCmd.AddCommand(newLoadIngredientsCmd())
	rootCmd.AddCommand(newCreateClientCmd())

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// loadDotenvFile loads environment variables from a .env file
// If the file is not found, it will log a warning and use system environment variables
func loadDotenvFile() {
	if err := godotenv.Load(); err != nil {
		log.Warn("No .env file found, using system environment variables")
	}
}

// setUpLogger initializes the logger with a JSON formatter and sets the log level based on the environment.
// LOG_LEVEL, when valid, takes precedence.
func setUpLogger() {
	log.SetFormatter(&log.JSONFormatter{})
	environment := config.GetEnvWithDefault("APP_ENV", "development")
	switch environment {
	case "development":
		log.SetLevel(log.DebugLevel)
	case "production":
		log.SetLevel(log.ErrorLevel)
	default:
		log.SetLevel(log.InfoLevel)
	}
	if lvl, err := log.ParseLevel(os.Getenv("LOG_LEVEL")); err == nil {
		log.SetLevel(lvl)
	}
}
