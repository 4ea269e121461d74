package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// UserService is the admin surface over accounts
type UserService struct {
	store  DataStore
	logger *zap.Logger
}

// NewUserService creates a new user service
func NewUserService(store DataStore) *UserService {
	return &UserService{
		store:  store,
		logger: util.GetLogger(),
	}
}

// ChangeStatusRequest enables or bans a user. Enabled is a pointer so an
// absent field can be told apart from false.
type ChangeStatusRequest struct {
	ID      int64 `json:"id"`
	Enabled *bool `json:"enabled"`
}

// ChangeRoleRequest sets a user's role
type ChangeRoleRequest struct {
	ID   int64  `json:"id"`
	Role string `json:"role"`
}

// AddressRequest represents a shipping address update
type AddressRequest struct {
	Address string `json:"address"`
}

// ListUsers returns the admin view of every user
func (s *UserService) ListUsers(ctx context.Context) ([]models.UserSummary, error) {
	users, err := s.store.ListUsers(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}

	summaries := make([]models.UserSummary, 0, len(users))
	for _, u := range users {
		summaries = append(summaries, models.UserSummary{
			ID:      u.ID,
			Email:   u.Email,
			Role:    u.Role,
			Enabled: u.Enabled,
			Address: u.Address,
		})
	}
	return summaries, nil
}

// ChangeUserStatus enables or disables a user
func (s *UserService) ChangeUserStatus(ctx context.Context, req *ChangeStatusRequest) error {
	if req.ID == 0 || req.Enabled == nil {
		return newError(KindInvalidInput, "Invalid input")
	}

	if err := s.store.SetUserEnabled(ctx, req.ID, *req.Enabled); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, "User not found")
		}
		return fmt.Errorf("failed to change user status: %w", err)
	}

	s.logger.Info("User status changed", zap.Int64("user_id", req.ID), zap.Bool("enabled", *req.Enabled))
	return nil
}

// ChangeUserRole overwrites a user's role
func (s *UserService) ChangeUserRole(ctx context.Context, req *ChangeRoleRequest) error {
	role := strings.TrimSpace(req.Role)
	if req.ID == 0 || role == "" {
		return newError(KindInvalidInput, "Invalid input")
	}
	if role != models.RoleUser && role != models.RoleAdmin {
		return newError(KindInvalidInput, fmt.Sprintf("unknown role %q", req.Role))
	}

	if err := s.store.SetUserRole(ctx, req.ID, role); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return newError(KindNotFound, "User not found")
		}
		return fmt.Errorf("failed to change user role: %w", err)
	}

	s.logger.Info("User role changed", zap.Int64("user_id", req.ID), zap.String("role", role))
	return nil
}
