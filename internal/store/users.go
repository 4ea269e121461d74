package store

import (
	"context"

	"shop-service/internal/models"

	"github.com/jmoiron/sqlx"
)

const userColumns = `id, email, name, password, picture, role, enabled, address, created_at, updated_at`

// CreateUser inserts a new user
func (s *queries) CreateUser(ctx context.Context, user *models.User) error {
	query := `
		INSERT INTO users (email, name, password, picture, role, enabled, address)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := sqlx.GetContext(ctx, s.q, user, query,
		user.Email, user.Name, user.Password, user.Picture, user.Role, user.Enabled, user.Address)
	return translate(err)
}

// GetUserByID retrieves a user by ID
func (s *queries) GetUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "id = $1", id)
}

// LockUserByID loads a user and holds its row lock until the surrounding
// transaction ends. Writers of per-user rows take it first.
func (s *queries) LockUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.getUser(ctx, "id = $1 FOR UPDATE", id)
}

// GetUserByEmail retrieves a user by email
func (s *queries) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.getUser(ctx, "email = $1", email)
}

// GetUserByName retrieves a user by display name
func (s *queries) GetUserByName(ctx context.Context, name string) (*models.User, error) {
	return s.getUser(ctx, "name = $1", name)
}

func (s *queries) getUser(ctx context.Context, where string, arg interface{}) (*models.User, error) {
	var user models.User
	err := sqlx.GetContext(ctx, s.q, &user, "SELECT "+userColumns+" FROM users WHERE "+where, arg)
	if err != nil {
		return nil, translate(err)
	}
	return &user, nil
}

// ListUsers retrieves all users
func (s *queries) ListUsers(ctx context.Context) ([]models.User, error) {
	users := []models.User{}
	err := sqlx.SelectContext(ctx, s.q, &users, "SELECT "+userColumns+" FROM users ORDER BY id")
	return users, translate(err)
}

// SetUserEnabled enables or bans a user
func (s *queries) SetUserEnabled(ctx context.Context, id int64, enabled bool) error {
	return expectOne(s.q.ExecContext(ctx,
		"UPDATE users SET enabled = $1, updated_at = NOW() WHERE id = $2", enabled, id))
}

// SetUserRole overwrites a user's role
func (s *queries) SetUserRole(ctx context.Context, id int64, role string) error {
	return expectOne(s.q.ExecContext(ctx,
		"UPDATE users SET role = $1, updated_at = NOW() WHERE id = $2", role, id))
}

// SetUserAddress overwrites a user's shipping address
func (s *queries) SetUserAddress(ctx context.Context, id int64, address string) error {
	return expectOne(s.q.ExecContext(ctx,
		"UPDATE users SET address = $1, updated_at = NOW() WHERE id = $2", address, id))
}
