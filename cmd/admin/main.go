// Command admin runs maintenance tasks against the configured database.
package main

import (
	"os"

	"comexiger-backend/internal/config"
	"comexiger-backend/internal/database"
	"comexiger-backend/internal/logger"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gorm.io/gorm"
)

var rootCmd = &cobra.Command{
	Use:           "admin",
	Short:         "Herramientas de administración de comexiger-backend",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		log.Error().Err(err).Msg("admin")
		os.Exit(1)
	}
}

// connect loads the configuration and opens the database.
func connect() (*config.Config, *gorm.DB, zerolog.Logger, error) {
	cfg := config.Load()
	l := logger.New(cfg.AppEnv, cfg.LogLevel)
	db, err := database.Open(cfg, l)
	if err != nil {
		return nil, nil, l, err
	}
	return cfg, db, l, nil
}
