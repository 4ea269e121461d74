package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"shop-service/internal/auth"
	"shop-service/internal/models"
	"shop-service/internal/store"
	"shop-service/internal/util"

	"go.uber.org/zap"
)

// AuthService handles registration, login and bearer token resolution
type AuthService struct {
	store  DataStore
	tokens TokenManager
	logger *zap.Logger
}

// NewAuthService creates a new auth service
func NewAuthService(store DataStore, tokens TokenManager) *AuthService {
	return &AuthService{
		store:  store,
		tokens: tokens,
		logger: util.GetLogger(),
	}
}

// RegisterRequest represents a sign-up form
type RegisterRequest struct {
	Email           string `json:"email" binding:"required,email"`
	Name            string `json:"name" binding:"required,min=3"`
	Password        string `json:"password" binding:"required,min=6"`
	ConfirmPassword string `json:"confirmPassword" binding:"required,min=6,eqfield=Password"`
}

// LoginRequest represents a login form
type LoginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required,min=6"`
}

// TokenUser is the claim set echoed back to the client at login
type TokenUser struct {
	ID    int64  `json:"id"`
	Email string `json:"email"`
	Role  string `json:"role"`
}

// LoginResponse represents a successful login
type LoginResponse struct {
	Message string    `json:"message"`
	User    TokenUser `json:"user"`
	Token   string    `json:"token"`
}

// Register creates a USER account. Email clashes are a conflict, name
// clashes a plain rejection.
func (s *AuthService) Register(ctx context.Context, req *RegisterRequest) error {
	ctx, span := util.StartSpan(ctx, "AuthService.Register")
	defer span.End()

	email := strings.TrimSpace(req.Email)

	_, err := s.store.GetUserByEmail(ctx, email)
	switch {
	case err == nil:
		util.AuthAttemptsTotal.WithLabelValues("register", "duplicate_email").Inc()
		return newError(KindConflict, "Duplicated Email")
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("failed to check email: %w", err)
	}

	_, err = s.store.GetUserByName(ctx, req.Name)
	switch {
	case err == nil:
		util.AuthAttemptsTotal.WithLabelValues("register", "duplicate_name").Inc()
		return newError(KindInvalidInput, "The name is already in use")
	case !errors.Is(err, store.ErrNotFound):
		return fmt.Errorf("failed to check name: %w", err)
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		return fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		Email:    email,
		Name:     req.Name,
		Password: hashed,
		Role:     models.RoleUser,
		Enabled:  true,
	}
	if err := s.store.CreateUser(ctx, user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			return wrapError(KindConflict, "Duplicated Email", err)
		}
		return fmt.Errorf("failed to create user: %w", err)
	}

	util.AuthAttemptsTotal.WithLabelValues("register", "success").Inc()
	s.logger.Info("User registered", zap.Int64("user_id", user.ID))
	return nil
}

// Login checks credentials and issues a signed token
func (s *AuthService) Login(ctx context.Context, req *LoginRequest) (*LoginResponse, error) {
	ctx, span := util.StartSpan(ctx, "AuthService.Login")
	defer span.End()

	user, err := s.store.GetUserByEmail(ctx, strings.TrimSpace(req.Email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			util.AuthAttemptsTotal.WithLabelValues("login", "unknown_email").Inc()
			return nil, newError(KindNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.Enabled {
		util.AuthAttemptsTotal.WithLabelValues("login", "banned").Inc()
		return nil, newError(KindInvalidInput, "User is banned")
	}

	if !auth.CheckPassword(user.Password, req.Password) {
		util.AuthAttemptsTotal.WithLabelValues("login", "bad_password").Inc()
		return nil, newError(KindInvalidInput, "Invalid Password")
	}

	token, err := s.tokens.Issue(user.ID, user.Email, user.Role)
	if err != nil {
		return nil, err
	}

	util.AuthAttemptsTotal.WithLabelValues("login", "success").Inc()
	return &LoginResponse{
		Message: "Login successful",
		User:    TokenUser{ID: user.ID, Email: user.Email, Role: user.Role},
		Token:   token,
	}, nil
}

// Authenticate resolves a bearer token to a live, enabled user
func (s *AuthService) Authenticate(ctx context.Context, rawToken string) (*models.User, error) {
	if rawToken == "" {
		return nil, newError(KindUnauthenticated, "Unauthorized, no token sent")
	}

	claims, err := s.tokens.Verify(rawToken)
	if err != nil {
		if errors.Is(err, auth.ErrTokenExpired) {
			return nil, wrapError(KindUnauthenticated, "session expired", err)
		}
		return nil, wrapError(KindUnauthenticated, "invalid token", err)
	}

	user, err := s.store.GetUserByID(ctx, claims.ID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindUnauthenticated, "User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	if !user.Enabled {
		return nil, newError(KindAccountDisabled, "This user is banned")
	}
	return user, nil
}

// CurrentUser returns the profile view of a user
func (s *AuthService) CurrentUser(ctx context.Context, userID int64) (*models.UserProfile, error) {
	user, err := s.store.GetUserByID(ctx, userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, newError(KindNotFound, "User not found")
		}
		return nil, fmt.Errorf("failed to load user: %w", err)
	}

	return &models.UserProfile{
		ID:    user.ID,
		Email: user.Email,
		Name:  user.Name,
		Role:  user.Role,
	}, nil
}
