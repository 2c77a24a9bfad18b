package service

import (
	"context"
	"strings"
	"time"

	"wishlist/internal/model"
	"wishlist/internal/repository"
	"wishlist/internal/util"

	"golang.org/x/crypto/bcrypt"
)

const passwordHashCost = 10

type RegisterRequest struct {
	Name     string `json:"name" validate:"required,min=2,max=100"`
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required,min=6,max=72"`
}

type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

type AuthResponse struct {
	Token     string            `json:"token"`
	ExpiresAt time.Time         `json:"expires_at"`
	User      model.UserSummary `json:"user"`
}

type AuthService interface {
	Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error)
	Login(ctx context.Context, req LoginRequest) (*AuthResponse, error)
	GetMe(ctx context.Context, userID string) (*model.UserSummary, error)
}

type authService struct {
	userRepo  repository.UserRepository
	jwtSecret string
	tokenTTL  time.Duration
}

func NewAuthService(userRepo repository.UserRepository, jwtSecret string, tokenTTL time.Duration) AuthService {
	return &authService{
		userRepo:  userRepo,
		jwtSecret: jwtSecret,
		tokenTTL:  tokenTTL,
	}
}

// Register creates an account and signs the new user in
func (s *authService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = model.NormalizeEmail(req.Email)
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	if _, err := s.userRepo.FindByEmail(ctx, req.Email); err == nil {
		return nil, newError(KindInvalidState, "User with this email already exists.")
	} else if !repository.IsNotFound(err) {
		return nil, internalError("Failed to create account", err)
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), passwordHashCost)
	if err != nil {
		return nil, internalError("Failed to create account", err)
	}
	hashed := string(hash)

	user := &model.User{
		Name:         req.Name,
		Email:        req.Email,
		PasswordHash: &hashed,
	}
	if err := s.userRepo.Create(ctx, user); err != nil {
		if repository.IsDuplicate(err) {
			return nil, newError(KindInvalidState, "User with this email already exists.")
		}
		return nil, internalError("Failed to create account", err)
	}

	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	if err := validateStruct(req); err != nil {
		return nil, err
	}

	invalid := newError(KindUnauthenticated, "Invalid email or password")

	user, err := s.userRepo.FindByEmail(ctx, req.Email)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, invalid
		}
		return nil, internalError("Failed to sign in", err)
	}
	if user.PasswordHash == nil {
		return nil, invalid
	}
	if err := bcrypt.CompareHashAndPassword([]byte(*user.PasswordHash), []byte(req.Password)); err != nil {
		return nil, invalid
	}

	return s.issue(user)
}

func (s *authService) GetMe(ctx context.Context, userID string) (*model.UserSummary, error) {
	if userID == "" {
		return nil, errUnauthenticated
	}
	user, err := s.userRepo.FindByID(ctx, userID)
	if err != nil {
		if repository.IsNotFound(err) {
			return nil, errUnauthenticated
		}
		return nil, internalError("Failed to load user", err)
	}
	summary := user.Summary()
	return &summary, nil
}

func (s *authService) issue(user *model.User) (*AuthResponse, error) {
	token, err := util.GenerateToken(user.ID, user.Email, s.jwtSecret, s.tokenTTL)
	if err != nil {
		return nil, internalError("Failed to issue token", err)
	}
	return &AuthResponse{
		Token:     token,
		ExpiresAt: time.Now().Add(s.tokenTTL),
		User:      user.Summary(),
	}, nil
}
