package services

import "errors"

// ErrInvalidCredentials is returned for a failed login. Unknown email and
// wrong password are deliberately indistinguishable.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrEmailTaken is returned when registering an email that already has an
// account.
var ErrEmailTaken = errors.New("email already registered")

// ErrUserNotFound is returned when an account referenced by a valid token
// no longer exists.
var ErrUserNotFound = errors.New("user not found")

// ErrInvalidResetToken is returned for any failed password reset: wrong
// token, expired token, or one that was already consumed. Callers cannot
// tell which.
var ErrInvalidResetToken = errors.New("reset token invalid or expired")
