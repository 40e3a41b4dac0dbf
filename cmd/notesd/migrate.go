package main

import (
	"context"

	"github.com/golang/glog"
	"github.com/spf13/cobra"

	"example.com/notesync/internal/config"
	"example.com/notesync/internal/db"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema (idempotent)",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := config.Load()
		if cfg.DatabaseURL == "" {
			glog.Exit("DATABASE_URL is required")
		}

		ctx := context.Background()
		dbConn, err := db.Open(ctx, cfg.DatabaseURL, cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime, cfg.ConnMaxIdleTime)
		if err != nil {
			glog.Exit(err)
		}
		defer dbConn.SQL.Close()

		if err := dbConn.Migrate(ctx); err != nil {
			glog.Exit(err)
		}
		glog.Info("schema applied")
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
