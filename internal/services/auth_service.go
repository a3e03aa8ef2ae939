package services

import (
	"context"
	"errors"
	"strings"
	"time"

	"delivery_api/internal/auth"
	"delivery_api/internal/models"
	"delivery_api/internal/repository"
	"delivery_api/internal/validation"
	"delivery_api/pkg/apperrors"

	"golang.org/x/crypto/bcrypt"
)

type RegisterInput struct {
	Name     string `json:"name" binding:"required,trimmedlen=3-100"`
	Email    string `json:"email" binding:"required,email,max=255"`
	Password string `json:"password" binding:"required,min=6"`
	Phone    string `json:"phone" binding:"max=20"`
	Document string `json:"document" binding:"max=14"`
}

func (in *RegisterInput) Validate() error {
	return validation.Struct(in)
}

// AuthResult is returned by register and login.
type AuthResult struct {
	User  models.UserProfile `json:"user"`
	Token string             `json:"token"`
}

type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*AuthResult, error)
	Login(ctx context.Context, email, password string) (*AuthResult, error)
	Me(ctx context.Context, userID uint) (*models.User, error)
	Verify(token string) (auth.Caller, error)
	HashPassword(password string) (string, error)
}

type authService struct {
	users     repository.UserRepository
	tokens    *auth.TokenManager
	cost      int
	dummyHash []byte
	now       func() time.Time
}

func NewAuthService(users repository.UserRepository, tokens *auth.TokenManager, bcryptCost int) AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	// Compared against when the email is unknown so both failure paths cost
	// one bcrypt comparison.
	dummy, _ := bcrypt.GenerateFromPassword([]byte("not-a-real-password"), bcryptCost)
	return &authService{
		users:     users,
		tokens:    tokens,
		cost:      bcryptCost,
		dummyHash: dummy,
		now:       time.Now,
	}
}

func (s *authService) HashPassword(password string) (string, error) {
	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return "", err
	}
	return string(hashed), nil
}

func (s *authService) Register(ctx context.Context, in RegisterInput) (*AuthResult, error) {
	if err := in.Validate(); err != nil {
		return nil, err
	}

	hashed, err := s.HashPassword(in.Password)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}

	user := &models.User{
		Name:         strings.TrimSpace(in.Name),
		Email:        in.Email,
		PasswordHash: hashed,
		Phone:        strings.TrimSpace(in.Phone),
		Document:     strings.TrimSpace(in.Document),
		IsActive:     true,
	}
	if err := s.users.Create(ctx, user, models.GroupCustomer); err != nil {
		return nil, err
	}

	return s.issue(user)
}

func (s *authService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil, apperrors.NewValidationError("email and password are required")
	}

	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.From(err)
		}
		bcrypt.CompareHashAndPassword(s.dummyHash, []byte(password))
		return nil, apperrors.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.NewInvalidCredentialsError()
	}
	if !user.IsActive {
		return nil, apperrors.NewInvalidCredentialsError()
	}

	now := s.now()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	user.LastLoginAt = &now

	return s.issue(user)
}

func (s *authService) Me(ctx context.Context, userID uint) (*models.User, error) {
	user, err := s.users.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return nil, apperrors.NewUnauthenticatedError("user no longer exists")
		}
		return nil, apperrors.From(err)
	}
	if !user.IsActive {
		return nil, apperrors.NewUnauthenticatedError("user is inactive")
	}
	return user, nil
}

func (s *authService) Verify(token string) (auth.Caller, error) {
	claims, err := s.tokens.Verify(token)
	if err != nil {
		return auth.Caller{}, err
	}
	return claims.Caller(), nil
}

func (s *authService) issue(user *models.User) (*AuthResult, error) {
	token, err := s.tokens.Issue(user)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	return &AuthResult{User: user.Profile(), Token: token}, nil
}
