package service

import (
	"context"
	"fmt"

	"github.com/atinyakov/mottokeeper/internal/models"
)

// ProfileRepository reads user records.
type ProfileRepository interface {
	GetUserByUsername(ctx context.Context, username string) (*models.User, error)
}

// Decrypter reverses motto encryption.
type Decrypter interface {
	Decrypt(ciphertext string) (string, error)
}

// ProfileService builds the user view with the motto decrypted.
type ProfileService struct {
	repo   ProfileRepository
	cipher Decrypter
}

// NewProfileService constructs a ProfileService.
func NewProfileService(repo ProfileRepository, cipher Decrypter) *ProfileService {
	return &ProfileService{repo: repo, cipher: cipher}
}

// Get returns the profile of username. Motto is nil until the first
// successful upload.
func (s *ProfileService) Get(ctx context.Context, username string) (*models.Profile, error) {
	user, err := s.repo.GetUserByUsername(ctx, username)
	if err != nil {
		return nil, err
	}

	profile := &models.Profile{ID: user.ID, Username: user.Username}
	if user.Motto != nil {
		motto, err := s.cipher.Decrypt(*user.Motto)
		if err != nil {
			return nil, fmt.Errorf("decrypt motto: %w", err)
		}
		profile.Motto = &motto
	}
	return profile, nil
}
