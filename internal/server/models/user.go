// Package models defines the persisted entities of the NoteBox server and
// their public (sanitized) views.
package models

import "time"

// User is a registered account. PasswordHash is a bcrypt digest and is never
// exposed through the API; RefreshToken holds the single currently-valid
// refresh JWT (empty when logged out); VerificationToken is set only while
// the account is pending email verification.
type User struct {
	ID                string
	Username          string
	Email             string
	Fullname          string
	AvatarURL         string
	PasswordHash      string
	IsVerified        bool
	VerificationToken string
	RefreshToken      string
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// PublicUser is the view of a user safe to return to clients: the password
// hash and token fields are stripped.
type PublicUser struct {
	ID         string    `json:"id"`
	Username   string    `json:"username"`
	Email      string    `json:"email"`
	Fullname   string    `json:"fullname"`
	AvatarURL  string    `json:"avatar"`
	IsVerified bool      `json:"isVerified"`
	CreatedAt  time.Time `json:"createdAt"`
	UpdatedAt  time.Time `json:"updatedAt"`
}

// Public strips credentials and tokens from the user record.
func (u *User) Public() *PublicUser {
	return &PublicUser{
		ID:         u.ID,
		Username:   u.Username,
		Email:      u.Email,
		Fullname:   u.Fullname,
		AvatarURL:  u.AvatarURL,
		IsVerified: u.IsVerified,
		CreatedAt:  u.CreatedAt,
		UpdatedAt:  u.UpdatedAt,
	}
}

// OwnerSummary is the compact owner projection embedded in note listings.
type OwnerSummary struct {
	ID        string `json:"id"`
	Username  string `json:"username"`
	Fullname  string `json:"fullname"`
	AvatarURL string `json:"avatar"`
}

// Summary returns the owner projection for note listings.
func (u *User) Summary() *OwnerSummary {
	return &OwnerSummary{
		ID:        u.ID,
		Username:  u.Username,
		Fullname:  u.Fullname,
		AvatarURL: u.AvatarURL,
	}
}
