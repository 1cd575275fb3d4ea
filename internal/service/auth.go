// Package service provides the business logic for accounts, profiles and
// motto uploads, delegating persistence to repository interfaces.
package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/atinyakov/mottokeeper/internal/common"
	"github.com/atinyakov/mottokeeper/internal/models"
	"golang.org/x/crypto/bcrypt"
)

// maxPasswordBytes is the longest input bcrypt hashes.
const maxPasswordBytes = 72

// ErrPasswordTooLong is returned by Register for passwords bcrypt cannot hash.
var ErrPasswordTooLong = errors.New("password is longer than 72 bytes")

// AuthRepository defines the persistence operations
// required by the authentication service.
type AuthRepository interface {
	// UserExists returns true if a user with the given username exists.
	UserExists(ctx context.Context, username string) (bool, error)
	// CreateUser inserts a user with no motto and returns it with its ID.
	CreateUser(ctx context.Context, username, passwordHash string) (*models.User, error)
	// GetUserByUsername returns common.ErrNotFound when no row matches.
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// TokenIssuer mints bearer tokens for authenticated usernames.
type TokenIssuer interface {
	Issue(username string) (string, error)
}

// AuthService implements registration and login.
type AuthService struct {
	repo   AuthRepository
	tokens TokenIssuer
	cost   int
}

// NewAuthService constructs an AuthService. A cost outside bcrypt's range
// falls back to bcrypt.DefaultCost.
func NewAuthService(repo AuthRepository, tokens TokenIssuer, bcryptCost int) *AuthService {
	if bcryptCost < bcrypt.MinCost || bcryptCost > bcrypt.MaxCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &AuthService{repo: repo, tokens: tokens, cost: bcryptCost}
}

// Register creates the user and returns it together with a fresh token.
// Returns common.ErrAlreadyExists when the username is taken.
func (s *AuthService) Register(ctx context.Context, username, password string) (*models.User, string, error) {
	if len(password) > maxPasswordBytes {
		return nil, "", ErrPasswordTooLong
	}

	exists, err := s.repo.UserExists(ctx, username)
	if err != nil {
		return nil, "", err
	}
	if exists {
		return nil, "", common.ErrAlreadyExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.cost)
	if err != nil {
		return nil, "", fmt.Errorf("hash password: %w", err)
	}

	user, err := s.repo.CreateUser(ctx, username, string(hash))
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return nil, "", fmt.Errorf("issue token: %w", err)
	}
	return user, token, nil
}

// Login verifies the credentials and returns a fresh token.
// Returns common.ErrNotFound for unknown users and
// common.ErrInvalidCredentials for a wrong password.
func (s *AuthService) Login(ctx context.Context, username, password string) (string, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return "", err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
			return "", common.ErrInvalidCredentials
		}
		return "", fmt.Errorf("compare password: %w", err)
	}

	token, err := s.tokens.Issue(user.Username)
	if err != nil {
		return "", fmt.Errorf("issue token: %w", err)
	}
	return token, nil
}
