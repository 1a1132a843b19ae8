// Package services contains server-side business logic. This file implements
// UserService, which handles registration, email verification, login, token
// rotation, and account maintenance.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/adarshn/notebox/internal/common"
	"github.com/adarshn/notebox/internal/server/auth"
	"github.com/adarshn/notebox/internal/server/avatars"
	"github.com/adarshn/notebox/internal/server/config"
	"github.com/adarshn/notebox/internal/server/mail"
	"github.com/adarshn/notebox/internal/server/models"
	"github.com/adarshn/notebox/internal/server/repositories/repomanager"
)

// verificationTokenBytes is the entropy of an email verification token; the
// hex-encoded result is 64 characters.
const verificationTokenBytes = 32

// TokenPair bundles a short-lived access token and a long-lived refresh token.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// RegisterInput carries the multipart registration payload.
type RegisterInput struct {
	Username          string
	Email             string
	Fullname          string
	Password          string
	Avatar            []byte
	AvatarContentType string
}

// UserService provides the authentication and account lifecycle:
//   - Register: create (or re-initialize an unverified) account and send the
//     verification email
//   - VerifyEmail: flip the verified flag for a matching token
//   - Login: verify credentials, gate on verification, mint a token pair
//   - Refresh: rotate the stored refresh token and mint a new pair
//   - Logout / ChangePassword / UpdateAccount / UpdateAvatar / GetByID
type UserService struct {
	db                           *sql.DB
	repomanager                  repomanager.RepositoryManager
	mailer                       mail.Mailer
	avatars                      avatars.Store
	accessSecret                 []byte
	refreshSecret                []byte
	accessTokenValidityDuration  time.Duration
	refreshTokenValidityDuration time.Duration
}

// NewUserService constructs a UserService using repositories and server config.
func NewUserService(db *sql.DB, m repomanager.RepositoryManager, mailer mail.Mailer, store avatars.Store, cfg *config.Config) *UserService {
	return &UserService{
		db:                           db,
		repomanager:                  m,
		mailer:                       mailer,
		avatars:                      store,
		accessSecret:                 []byte(cfg.AccessTokenSecret),
		refreshSecret:                []byte(cfg.RefreshTokenSecret),
		accessTokenValidityDuration:  cfg.AccessTokenValidityDuration,
		refreshTokenValidityDuration: cfg.RefreshTokenValidityDuration,
	}
}

func (in *RegisterInput) normalize() {
	in.Username = strings.TrimSpace(in.Username)
	in.Email = strings.ToLower(strings.TrimSpace(in.Email))
	in.Fullname = strings.TrimSpace(in.Fullname)
}

func (in *RegisterInput) validate() error {
	if in.Username == "" || in.Email == "" || in.Fullname == "" || in.Password == "" {
		return fmt.Errorf("%w: all fields are required", common.ErrValidation)
	}
	if len(in.Username) < 3 {
		return fmt.Errorf("%w: username must be at least 3 characters", common.ErrValidation)
	}
	if len(in.Fullname) < 3 {
		return fmt.Errorf("%w: fullname must be at least 3 characters", common.ErrValidation)
	}
	if len(in.Password) < 6 {
		return fmt.Errorf("%w: password must be at least 6 characters", common.ErrValidation)
	}
	if !strings.Contains(in.Email, "@") {
		return fmt.Errorf("%w: invalid email address", common.ErrValidation)
	}
	if len(in.Avatar) == 0 {
		return fmt.Errorf("%w: avatar is required", common.ErrValidation)
	}
	return nil
}

// Register creates an unverified account and dispatches the verification
// email. If an unverified account already holds the username or email, its
// profile is overwritten with the new data and the email is resent; the
// returned resent flag distinguishes that path. A verified duplicate is
// rejected with common.ErrAlreadyExists.
func (s *UserService) Register(ctx context.Context, in RegisterInput) (*models.User, bool, error) {
	in.normalize()
	if err := in.validate(); err != nil {
		return nil, false, err
	}

	repo := s.repomanager.Users(s.db)

	existing, err := repo.GetByUsernameOrEmail(ctx, in.Username, in.Email)
	if err != nil && !errors.Is(err, common.ErrNotFound) {
		return nil, false, fmt.Errorf("error checking existing user: %w", err)
	}

	if existing != nil {
		if existing.IsVerified {
			return nil, false, fmt.Errorf("%w: username or email already exists", common.ErrAlreadyExists)
		}
		return s.reinitializeUnverified(ctx, existing, in)
	}

	token, err := common.MakeRandHexString(verificationTokenBytes)
	if err != nil {
		return nil, false, fmt.Errorf("error generating verification token: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, false, fmt.Errorf("error hashing password: %w", err)
	}

	avatarURL, err := s.avatars.Upload(ctx, in.Avatar, in.AvatarContentType)
	if err != nil {
		return nil, false, fmt.Errorf("error uploading avatar: %w", err)
	}

	user := &models.User{
		ID:                uuid.NewString(),
		Username:          in.Username,
		Email:             in.Email,
		Fullname:          in.Fullname,
		AvatarURL:         avatarURL,
		PasswordHash:      hash,
		VerificationToken: token,
	}

	created, err := repo.Create(ctx, user)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, false, fmt.Errorf("%w: username or email already exists", common.ErrAlreadyExists)
		}
		return nil, false, fmt.Errorf("error creating user: %w", err)
	}

	// The record stays PendingVerification if dispatch fails; there is no
	// retry queue.
	if err := s.mailer.SendVerificationEmail(ctx, created.Email, created.Fullname, token); err != nil {
		return nil, false, fmt.Errorf("error sending verification email: %w", err)
	}

	return created, false, nil
}

// reinitializeUnverified overwrites the profile of an abandoned signup with
// the newly submitted data, regenerates the verification token, and resends
// the email.
func (s *UserService) reinitializeUnverified(ctx context.Context, existing *models.User, in RegisterInput) (*models.User, bool, error) {
	repo := s.repomanager.Users(s.db)

	token, err := common.MakeRandHexString(verificationTokenBytes)
	if err != nil {
		return nil, false, fmt.Errorf("error generating verification token: %w", err)
	}

	hash, err := auth.HashPassword(in.Password)
	if err != nil {
		return nil, false, fmt.Errorf("error hashing password: %w", err)
	}

	avatarURL, err := s.avatars.Upload(ctx, in.Avatar, in.AvatarContentType)
	if err != nil {
		return nil, false, fmt.Errorf("error uploading avatar: %w", err)
	}

	existing.Username = in.Username
	existing.Fullname = in.Fullname
	existing.PasswordHash = hash
	existing.AvatarURL = avatarURL
	existing.VerificationToken = token

	updated, err := repo.UpdateProfile(ctx, existing)
	if err != nil {
		return nil, false, fmt.Errorf("error updating unverified user: %w", err)
	}

	if err := s.mailer.SendVerificationEmail(ctx, updated.Email, updated.Fullname, token); err != nil {
		return nil, false, fmt.Errorf("error sending verification email: %w", err)
	}

	return updated, true, nil
}

// VerifyEmail marks the account matching the token as verified and clears
// the token. An unknown token fails with an explicit error instead of
// touching any record.
func (s *UserService) VerifyEmail(ctx context.Context, token string) error {
	if token == "" {
		return fmt.Errorf("%w: verification token missing", common.ErrValidation)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByVerificationToken(ctx, token)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: invalid or expired verification token", common.ErrNotFound)
		}
		return fmt.Errorf("error looking up verification token: %w", err)
	}

	if err := repo.MarkVerified(ctx, user.ID); err != nil {
		return fmt.Errorf("error marking user verified: %w", err)
	}
	return nil
}

// Login verifies credentials for a username or email, gates on email
// verification, and returns the user with a fresh token pair.
func (s *UserService) Login(ctx context.Context, login, password string) (*models.User, *TokenPair, error) {
	login = strings.TrimSpace(login)
	if login == "" || password == "" {
		return nil, nil, fmt.Errorf("%w: all fields are required", common.ErrValidation)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByLogin(ctx, login)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, nil, fmt.Errorf("%w: user not found", common.ErrNotFound)
		}
		return nil, nil, fmt.Errorf("error looking up user: %w", err)
	}

	if !user.IsVerified {
		return nil, nil, fmt.Errorf("%w: please verify your email before logging in", common.ErrUnauthorized)
	}

	if !auth.CheckPassword(password, user.PasswordHash) {
		return nil, nil, fmt.Errorf("%w: invalid password", common.ErrValidation)
	}

	pair, err := s.issueTokenPair(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	return user, pair, nil
}

// Refresh validates a presented refresh token, confirms it is the one
// currently stored on the user (single-active-token policy), and rotates it.
// A cryptographically valid but already-rotated token is rejected.
func (s *UserService) Refresh(ctx context.Context, presented string) (*TokenPair, error) {
	if presented == "" {
		return nil, fmt.Errorf("%w: refresh token is required", common.ErrInvalidToken)
	}

	claims, err := auth.ParseRefreshToken(presented, s.refreshSecret)
	if err != nil {
		return nil, err
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: user no longer exists", common.ErrInvalidToken)
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	if user.RefreshToken != presented {
		return nil, fmt.Errorf("%w: refresh token is expired or used", common.ErrInvalidToken)
	}

	return s.issueTokenPair(ctx, user)
}

// Logout clears the stored refresh token, returning the session to the
// anonymous state.
func (s *UserService) Logout(ctx context.Context, userID string) error {
	repo := s.repomanager.Users(s.db)
	if err := repo.SetRefreshToken(ctx, userID, ""); err != nil {
		return fmt.Errorf("error clearing refresh token: %w", err)
	}
	return nil
}

// ChangePassword verifies the current password and stores a new hash.
func (s *UserService) ChangePassword(ctx context.Context, userID, current, newPassword, confirm string) error {
	if current == "" || newPassword == "" || confirm == "" {
		return fmt.Errorf("%w: all fields are required", common.ErrValidation)
	}
	if newPassword != confirm {
		return fmt.Errorf("%w: new password and confirm password do not match", common.ErrValidation)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return fmt.Errorf("%w: user not found", common.ErrNotFound)
		}
		return fmt.Errorf("error looking up user: %w", err)
	}

	if !auth.CheckPassword(current, user.PasswordHash) {
		return fmt.Errorf("%w: current password is incorrect", common.ErrValidation)
	}

	hash, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("error hashing password: %w", err)
	}

	if err := repo.UpdatePassword(ctx, userID, hash); err != nil {
		return fmt.Errorf("error updating password: %w", err)
	}
	return nil
}

// UpdateAccount renames the account's username/fullname pair.
func (s *UserService) UpdateAccount(ctx context.Context, userID, username, fullname string) (*models.User, error) {
	username = strings.TrimSpace(username)
	fullname = strings.TrimSpace(fullname)
	if username == "" || fullname == "" {
		return nil, fmt.Errorf("%w: all fields are required", common.ErrValidation)
	}
	if len(username) < 3 {
		return nil, fmt.Errorf("%w: username must be at least 3 characters", common.ErrValidation)
	}

	repo := s.repomanager.Users(s.db)

	user, err := repo.UpdateAccount(ctx, userID, username, fullname)
	if err != nil {
		if errors.Is(err, common.ErrAlreadyExists) {
			return nil, fmt.Errorf("%w: username already taken", common.ErrAlreadyExists)
		}
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error updating account: %w", err)
	}
	return user, nil
}

// UpdateAvatar uploads a replacement avatar, swaps the stored URL, and
// best-effort deletes the previous object.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, data []byte, contentType string) (*models.User, error) {
	if len(data) == 0 {
		return nil, fmt.Errorf("%w: avatar file is missing", common.ErrValidation)
	}

	repo := s.repomanager.Users(s.db)

	current, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, fmt.Errorf("%w: user not found", common.ErrNotFound)
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}

	avatarURL, err := s.avatars.Upload(ctx, data, contentType)
	if err != nil {
		return nil, fmt.Errorf("error uploading avatar: %w", err)
	}

	updated, err := repo.UpdateAvatar(ctx, userID, avatarURL)
	if err != nil {
		return nil, fmt.Errorf("error updating avatar: %w", err)
	}

	if current.AvatarURL != "" {
		_ = s.avatars.Delete(ctx, current.AvatarURL)
	}

	return updated, nil
}

// GetByID resolves a user id to its record; the auth guard uses it to attach
// the request identity.
func (s *UserService) GetByID(ctx context.Context, userID string) (*models.User, error) {
	repo := s.repomanager.Users(s.db)

	user, err := repo.GetByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return nil, common.ErrNotFound
		}
		return nil, fmt.Errorf("error looking up user: %w", err)
	}
	return user, nil
}

// issueTokenPair mints a new access/refresh pair and persists the refresh
// token as the single valid one, replacing any prior value, before returning.
func (s *UserService) issueTokenPair(ctx context.Context, user *models.User) (*TokenPair, error) {
	access, err := auth.GenerateAccessToken(user, s.accessSecret, s.accessTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}

	refresh, err := auth.GenerateRefreshToken(user, s.refreshSecret, s.refreshTokenValidityDuration)
	if err != nil {
		return nil, common.ErrInternal
	}

	repo := s.repomanager.Users(s.db)
	if err := repo.SetRefreshToken(ctx, user.ID, refresh); err != nil {
		return nil, common.ErrInternal
	}

	return &TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}
