// Package users provides the repository for persisted user accounts.
package users

import (
	"context"

	"github.com/adarshn/notebox/internal/server/models"
)

// Repository is the persistence contract for user accounts. Implementations
// return common.ErrNotFound for missing rows and common.ErrAlreadyExists on
// unique-constraint violations.
type Repository interface {
	Create(ctx context.Context, user *models.User) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	// GetByLogin resolves a user by username or (lowercased) email.
	GetByLogin(ctx context.Context, login string) (*models.User, error)
	// GetByUsernameOrEmail is the duplicate check used at registration.
	GetByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*models.User, error)
	// UpdateProfile overwrites the mutable profile fields of an unverified
	// account retrying registration.
	UpdateProfile(ctx context.Context, user *models.User) (*models.User, error)
	// MarkVerified flips is_verified and clears the verification token.
	MarkVerified(ctx context.Context, id string) error
	// SetRefreshToken stores the single valid refresh token; an empty token
	// clears it (logout).
	SetRefreshToken(ctx context.Context, id, token string) error
	UpdatePassword(ctx context.Context, id, passwordHash string) error
	UpdateAccount(ctx context.Context, id, username, fullname string) (*models.User, error)
	UpdateAvatar(ctx context.Context, id, avatarURL string) (*models.User, error)
}
