package store

import (
	"context"
	"fmt"

	"shop-service/internal/models"
)

// Seed inserts users and categories, skipping rows that already exist
func (s *Store) Seed(ctx context.Context, users []models.User, categories []string) (int64, error) {
	var inserted int64

	err := s.WithTx(ctx, func(repo Repository) error {
		q := repo.(*queries)

		for _, u := range users {
			res, err := q.q.ExecContext(ctx, `
				INSERT INTO users (email, name, password, picture, role, enabled, address)
				VALUES ($1, $2, $3, $4, $5, TRUE, $6)
				ON CONFLICT DO NOTHING`,
				u.Email, u.Name, u.Password, u.Picture, u.Role, u.Address)
			if err != nil {
				return fmt.Errorf("failed to seed user %s: %w", u.Email, translate(err))
			}
			n, _ := res.RowsAffected()
			inserted += n
		}

		for _, name := range categories {
			res, err := q.q.ExecContext(ctx,
				"INSERT INTO categories (name) VALUES ($1) ON CONFLICT (name) DO NOTHING", name)
			if err != nil {
				return fmt.Errorf("failed to seed category %s: %w", name, translate(err))
			}
			n, _ := res.RowsAffected()
			inserted += n
		}
		return nil
	})

	return inserted, err
}
