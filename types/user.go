package types

import "time"

// User represents an account in the system.
// It contains identity, credential, and audit metadata.
type User struct {
	// ID is the unique identifier of the user.
	ID int `json:"id" db:"id"`

	// Email is the user's unique email address, stored trimmed and lowercased.
	Email string `json:"email" db:"email"`

	// Name is the user's display or full name.
	Name string `json:"name" db:"name"`

	// Avatar is an optional reference (URL or object key) to the user's avatar.
	Avatar *string `json:"avatar" db:"avatar"`

	// PasswordHash stores the hashed representation of the user's password.
	// This field is never exposed in API responses.
	PasswordHash string `json:"-" db:"password_hash"`

	// ResetPasswordToken holds the SHA-256 digest of the currently live
	// password-reset token, if any. The plaintext token is never stored.
	ResetPasswordToken *string `json:"-" db:"reset_password_token"`

	// ResetPasswordExpires is the absolute expiry of the live reset token.
	ResetPasswordExpires *time.Time `json:"-" db:"reset_password_expires"`

	// CreatedAt is the timestamp when the user account was created.
	CreatedAt time.Time `json:"created_at" db:"created_at"`

	// UpdatedAt is the timestamp of the most recent update to the user account.
	UpdatedAt time.Time `json:"updated_at" db:"updated_at"`
}
