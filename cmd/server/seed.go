package main

import (
	"context"
	"errors"
	"fmt"

	"shop-service/config"
	"shop-service/internal/auth"
	"shop-service/internal/models"
	"shop-service/internal/store"

	"github.com/spf13/cobra"
)

var seedCategories = []string{
	"Sweet", "Cake", "Cookie", "Pudding", "Jelly",
	"Donut", "Chocolate", "Mochi", "Thai Dessert", "Ice Cream",
}

// seedUsers all share one password hash
func seedUsers(passwordHash string) []models.User {
	users := []models.User{
		{Email: "admin@nysdev.com", Name: "admin", Role: models.RoleAdmin, Address: "123 Maple Street, Springfield"},
		{Email: "john.doe@example.com", Name: "John Doe", Role: models.RoleUser, Address: "123 Maple Street, Springfield"},
		{Email: "jane.smith@example.com", Name: "Jane Smith", Role: models.RoleUser, Address: "456 Oak Avenue, Riverdale"},
		{Email: "alice.wong@example.com", Name: "Alice Wong", Role: models.RoleUser, Address: "789 Pine Road, Metropolis"},
		{Email: "bob.jones@example.com", Name: "Bob Jones", Role: models.RoleUser, Address: "101 Elm Street, Gotham"},
	}
	for i := range users {
		users[i].Password = passwordHash
	}
	return users
}

var seedCmd = &cobra.Command{
	Use:   "seed",
	Short: "Insert demo users and categories",
	Long: `Insert the demo accounts and dessert categories. Rows that already
exist are left untouched. SEED_USER_PASSWORD sets the password of every
seeded account.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg := config.Load()
		if cfg.Seed.UserPassword == "" {
			return errors.New("SEED_USER_PASSWORD is required")
		}

		hash, err := auth.HashPassword(cfg.Seed.UserPassword)
		if err != nil {
			return err
		}

		db, err := store.NewStore(cfg.Database.URL)
		if err != nil {
			return err
		}
		defer db.Close()

		inserted, err := db.Seed(context.Background(), seedUsers(hash), seedCategories)
		if err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "seeded %d rows\n", inserted)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(seedCmd)
}
