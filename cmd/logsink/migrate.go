package main

import (
	"github.com/deppfellow/nginx-log-sink/internal/config"
	"github.com/deppfellow/nginx-log-sink/internal/database"
	"github.com/deppfellow/nginx-log-sink/internal/logger"
	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply database migrations and exit",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.LoadConfig()
		if err != nil {
			return err
		}

		log := logger.NewLoggerWithService(cfg.Observability, nil)
		return database.Migrate(cmd.Context(), &log, cfg)
	},
}
