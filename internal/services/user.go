package services

import (
	"context"
	"errors"
	"fmt"

	"github.com/tablehop/apiserver/internal/auth"
	"github.com/tablehop/apiserver/internal/store"
	"github.com/tablehop/apiserver/types"
	"golang.org/x/crypto/bcrypt"
)

// DefaultBcryptCost is the hashing cost used for stored passwords.
const DefaultBcryptCost = 10

// MaxPasswordBytes is the longest password bcrypt accepts.
const MaxPasswordBytes = 72

// UserRepository defines persistence operations for users.
type UserRepository interface {
	GetByUsername(ctx context.Context, username string) (types.User, error)
	Create(ctx context.Context, user types.User) (types.User, error)
}

// TokenIssuer issues and revokes bearer tokens.
type TokenIssuer interface {
	Issue(username string) (string, error)
	Revoke(ctx context.Context, claims *auth.Claims) error
}

// UserService encapsulates registration, login and logout.
type UserService struct {
	repo       UserRepository
	tokens     TokenIssuer
	bcryptCost int
}

func NewUserService(repo UserRepository, tokens TokenIssuer, bcryptCost int) *UserService {
	if bcryptCost == 0 {
		bcryptCost = DefaultBcryptCost
	}
	return &UserService{repo: repo, tokens: tokens, bcryptCost: bcryptCost}
}

// Register stores a new user with a bcrypt hash of password. Passwords
// over MaxPasswordBytes are rejected with ErrPasswordTooLong.
func (s *UserService) Register(ctx context.Context, username, password string) (types.User, error) {
	if len(password) > MaxPasswordBytes {
		return types.User{}, ErrPasswordTooLong
	}
	if _, err := s.repo.GetByUsername(ctx, username); err == nil {
		return types.User{}, ErrUsernameTaken
	} else if !errors.Is(err, store.ErrNotFound) {
		return types.User{}, fmt.Errorf("check user: %w", err)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		if errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return types.User{}, ErrPasswordTooLong
		}
		return types.User{}, fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Username:     username,
		PasswordHash: string(hashed),
	})
	if err != nil {
		if errors.Is(err, store.ErrConflict) {
			return types.User{}, ErrUsernameTaken
		}
		return types.User{}, fmt.Errorf("create user: %w", err)
	}
	return user, nil
}

// Login checks the credentials and returns a freshly issued token.
// Failures wrap ErrInvalidCredentials as ErrUnknownUser or ErrWrongPassword.
func (s *UserService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.repo.GetByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrUnknownUser
		}
		return "", fmt.Errorf("load user: %w", err)
	}

	// No stored hash can match a password bcrypt refuses to hash.
	if len(password) > MaxPasswordBytes {
		return "", ErrWrongPassword
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) || errors.Is(err, bcrypt.ErrPasswordTooLong) {
			return "", ErrWrongPassword
		}
		return "", fmt.Errorf("compare password: %w", err)
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}

// Logout revokes the token the claims were read from.
func (s *UserService) Logout(ctx context.Context, claims *auth.Claims) error {
	return s.tokens.Revoke(ctx, claims)
}
