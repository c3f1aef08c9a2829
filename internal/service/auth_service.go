package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/dom/foodorder-backend/internal/domain"
	"github.com/dom/foodorder-backend/internal/repository"
	"github.com/google/uuid"
	"gorm.io/gorm"
)

var (
	ErrInvalidCredentials = errors.New("incorrect email or password")
	ErrEmailExists        = errors.New("email already registered")
)

type AuthService struct {
	userRepo repository.UserRepository
	tokens   *TokenIssuer
	google   *GoogleProvider
}

func NewAuthService(userRepo repository.UserRepository, tokens *TokenIssuer, google *GoogleProvider) *AuthService {
	return &AuthService{
		userRepo: userRepo,
		tokens:   tokens,
		google:   google,
	}
}

type RegisterInput struct {
	Email    string
	Password string
	FullName *string
}

type LoginInput struct {
	Email    string
	Password string
}

type AuthResult struct {
	User         *domain.User
	AccessToken  string
	RefreshToken string
}

func (s *AuthService) Tokens() *TokenIssuer {
	return s.tokens
}

func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	// Check if email exists
	existing, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err == nil && existing != nil {
		return nil, ErrEmailExists
	}
	if err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	hashed, err := hashPassword(input.Password)
	if err != nil {
		return nil, err
	}

	user := &domain.User{
		ID:           uuid.New(),
		Email:        input.Email,
		PasswordHash: &hashed,
		FullName:     input.FullName,
		CreatedAt:    time.Now(),
		UpdatedAt:    time.Now(),
	}

	if err := s.userRepo.Create(ctx, user); err != nil {
		// lost a race with a concurrent register for the same email
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, ErrEmailExists
		}
		return nil, err
	}

	return user, nil
}

func (s *AuthService) Login(ctx context.Context, input LoginInput) (*AuthResult, error) {
	user, err := s.userRepo.GetByEmail(ctx, input.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if !user.HasPassword() || !comparePassword(*user.PasswordHash, input.Password) {
		return nil, ErrInvalidCredentials
	}

	return s.generateTokens(user)
}

// Authenticate resolves a token to its user. Tokens whose subject no longer
// exists are rejected with ErrInvalidToken.
func (s *AuthService) Authenticate(ctx context.Context, token string) (*domain.User, error) {
	email, err := s.tokens.Subject(token)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("%w: unknown subject", ErrInvalidToken)
		}
		return nil, err
	}
	return user, nil
}

// Refresh mints a new access token. The refresh token itself is not rotated.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (string, error) {
	user, err := s.Authenticate(ctx, refreshToken)
	if err != nil {
		return "", err
	}
	return s.tokens.AccessToken(user.Email)
}

func (s *AuthService) GoogleAuthURL() (string, error) {
	return s.google.AuthURL()
}

// GoogleLogin completes the OAuth callback: the user is looked up by email,
// created when missing, and linked to the Google account when not linked yet.
func (s *AuthService) GoogleLogin(ctx context.Context, code string) (*AuthResult, error) {
	profile, err := s.google.Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	user, err := s.userRepo.GetByEmail(ctx, profile.Email)
	switch {
	case errors.Is(err, gorm.ErrRecordNotFound):
		user = &domain.User{
			ID:        uuid.New(),
			Email:     profile.Email,
			FullName:  &profile.Name,
			GoogleID:  &profile.ID,
			CreatedAt: time.Now(),
			UpdatedAt: time.Now(),
		}
		if err := s.userRepo.Create(ctx, user); err != nil {
			return nil, err
		}
	case err != nil:
		return nil, err
	case !user.HasGoogleID():
		user.GoogleID = &profile.ID
		user.UpdatedAt = time.Now()
		if err := s.userRepo.Update(ctx, user); err != nil {
			return nil, err
		}
	}

	return s.generateTokens(user)
}

func (s *AuthService) generateTokens(user *domain.User) (*AuthResult, error) {
	accessToken, err := s.tokens.AccessToken(user.Email)
	if err != nil {
		return nil, err
	}

	refreshToken, err := s.tokens.RefreshToken(user.Email)
	if err != nil {
		return nil, err
	}

	return &AuthResult{
		User:         user,
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
	}, nil
}
