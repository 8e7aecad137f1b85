package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"tenurix/internal/apperror"
	"tenurix/internal/auth"
	"tenurix/internal/repository"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"
)

type LoginUserRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

type LoginResponse struct {
	Token       string    `json:"token"`
	ExpiresAt   time.Time `json:"expires_at"`
	UserID      int64     `json:"user_id"`
	Email       string    `json:"email"`
	FullName    string    `json:"full_name"`
	RoleName    string    `json:"role_name"`
	Permissions []string  `json:"permissions"`
}

// MeResponse describes the caller as seen by the server: the snapshot in
// the token, not the current database state.
type MeResponse struct {
	UserID      int64    `json:"user_id"`
	Email       string   `json:"email"`
	FullName    string   `json:"full_name,omitempty"`
	Role        string   `json:"role"`
	Permissions []string `json:"permissions"`
}

// UserService defines the interface for business logic related to User
type UserService interface {
	Login(ctx context.Context, req LoginUserRequest) (*LoginResponse, error)
	Me(ctx context.Context, session auth.Session) (*MeResponse, error)
}

type userService struct {
	repo   repository.UserRepository
	tokens *auth.TokenManager
}

// NewUserService returns a new instance of UserService
func NewUserService(repo repository.UserRepository, tokens *auth.TokenManager) UserService {
	return &userService{repo: repo, tokens: tokens}
}

// Login verifies credentials for an active user and issues a token that
// carries the role's permission keys. Permissions granted or revoked later
// apply only after the next login.
func (s *userService) Login(ctx context.Context, req LoginUserRequest) (*LoginResponse, error) {
	email := strings.TrimSpace(req.Email)
	if email == "" {
		return nil, apperror.Validation("email", "email is required")
	}
	if req.Password == "" {
		return nil, apperror.Validation("password", "password is required")
	}

	user, err := s.repo.GetActiveByEmail(ctx, email)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperror.Unauthenticated("invalid email or password")
	}
	if err != nil {
		return nil, apperror.Internal("failed to load user", err)
	}

	if user.PasswordHash == "" {
		return nil, apperror.Unauthenticated("invalid email or password")
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, apperror.Unauthenticated("invalid email or password")
	}

	if user.Role == nil {
		return nil, apperror.Unauthorized("user has no role assigned")
	}
	perms := make([]string, 0, len(user.Role.Permissions))
	for _, p := range user.Role.Permissions {
		perms = append(perms, p.Key)
	}
	// Normalized and sorted, the same view the session will expose.
	perms = auth.NewPermissionSet(perms...).Keys()

	token, expiresAt, err := s.tokens.Issue(user.ID, user.Email, user.Role.Name, perms)
	if err != nil {
		return nil, apperror.Internal("failed to generate token", err)
	}

	return &LoginResponse{
		Token:       token,
		ExpiresAt:   expiresAt,
		UserID:      user.ID,
		Email:       user.Email,
		FullName:    user.FullName,
		RoleName:    user.Role.Name,
		Permissions: perms,
	}, nil
}

func (s *userService) Me(ctx context.Context, session auth.Session) (*MeResponse, error) {
	userID, err := session.UserID()
	if err != nil {
		return nil, err
	}

	res := &MeResponse{
		UserID:      userID,
		Email:       session.Email(),
		Role:        session.Role(),
		Permissions: session.Permissions(),
	}
	user, err := s.repo.GetByID(ctx, userID)
	switch {
	case err == nil:
		res.FullName = user.FullName
	case errors.Is(err, gorm.ErrRecordNotFound):
		// The token outlived the account; report the snapshot only.
	default:
		return nil, apperror.Internal("failed to load user", err)
	}
	return res, nil
}

// HashPassword is used by the seed command to provision accounts.
func HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}
