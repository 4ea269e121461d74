package main

import (
	"context"
	"fmt"

	"shop-service/config"
	"shop-service/internal/store"

	"github.com/spf13/cobra"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Apply the database schema",
	Long: `Apply the embedded PostgreSQL schema. Every statement is idempotent,
so running it against an up-to-date database is a no-op.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()

		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		if err := db.Migrate(context.Background()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "schema applied")
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
