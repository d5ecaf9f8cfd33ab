package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/my-app/apiserver/internal/auth"
	"github.com/my-app/apiserver/internal/events"
	"github.com/my-app/apiserver/internal/mail"
	"github.com/my-app/apiserver/internal/store"
	"github.com/my-app/apiserver/types"
)

const eventPublishTimeout = 5 * time.Second

// AuthResult is returned by the session operations that issue tokens.
type AuthResult struct {
	AccessToken  string     `json:"accessToken"`
	RefreshToken string     `json:"refreshToken"`
	ExpiresIn    int        `json:"expiresIn"`
	User         types.User `json:"user"`
}

// AuthService orchestrates the session lifecycle: login, registration,
// token refresh, logout, and the password-reset flow.
//
// Refresh policy: every refresh rotates the refresh token. Tokens are
// stateless, so the previous refresh token stays verifiable until its own
// expiry; logout is therefore best-effort (no server-side deny-list).
type AuthService struct {
	repo        UserRepository
	tokens      *auth.TokenManager
	mailer      mail.Mailer
	publisher   *events.Publisher
	log         *slog.Logger
	frontendURL string
}

// NewAuthService constructs an AuthService. publisher may be nil when no
// broker is configured.
func NewAuthService(
	repo UserRepository,
	tokens *auth.TokenManager,
	mailer mail.Mailer,
	publisher *events.Publisher,
	log *slog.Logger,
	frontendURL string,
) *AuthService {
	return &AuthService{
		repo:        repo,
		tokens:      tokens,
		mailer:      mailer,
		publisher:   publisher,
		log:         log,
		frontendURL: frontendURL,
	}
}

// NormalizeEmail canonicalizes an email for lookup and storage.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Login verifies credentials and issues a fresh token pair. Unknown email
// and wrong password both return ErrInvalidCredentials.
func (s *AuthService) Login(ctx context.Context, email, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil, ErrInvalidCredentials
		}
		return nil, fmt.Errorf("login: %w", err)
	}

	if !auth.CheckPassword(user.PasswordHash, password) {
		return nil, ErrInvalidCredentials
	}

	result, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user logged in", "user_id", user.ID)
	return result, nil
}

// Register creates an account and issues a token pair. The duplicate check
// races with concurrent registrations; the store's unique index decides
// the winner and the loser surfaces as ErrEmailTaken.
func (s *AuthService) Register(ctx context.Context, email, name, password string) (*AuthResult, error) {
	email = NormalizeEmail(email)

	if _, err := s.repo.GetByEmail(ctx, email); err == nil {
		return nil, ErrEmailTaken
	} else if !isNotFound(err) {
		return nil, fmt.Errorf("register: %w", err)
	}

	hashed, err := auth.HashPassword(password)
	if err != nil {
		return nil, fmt.Errorf("register: hash password: %w", err)
	}

	user, err := s.repo.Create(ctx, types.User{
		Email:        email,
		Name:         strings.TrimSpace(name),
		PasswordHash: hashed,
	})
	if err != nil {
		if isDuplicate(err) {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("register: %w", err)
	}

	result, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}

	s.log.InfoContext(ctx, "user registered", "user_id", user.ID)
	s.publish(ctx, events.TopicUserRegistered, user)
	return result, nil
}

// Refresh exchanges a valid refresh token for a new token pair. Any
// verification failure, a wrong token type, or a vanished account all
// surface as auth.ErrInvalidToken.
func (s *AuthService) Refresh(ctx context.Context, refreshToken string) (*AuthResult, error) {
	claims, err := s.tokens.Verify(refreshToken)
	if err != nil {
		return nil, auth.ErrInvalidToken
	}
	if claims.TokenType != auth.TokenTypeRefresh {
		return nil, auth.ErrInvalidToken
	}

	userID, err := claims.UserID()
	if err != nil {
		return nil, auth.ErrInvalidToken
	}

	user, err := s.repo.GetByID(ctx, userID)
	if err != nil {
		if isNotFound(err) {
			return nil, auth.ErrInvalidToken
		}
		return nil, fmt.Errorf("refresh: %w", err)
	}

	return s.issuePair(user)
}

// Logout acknowledges a logout. Tokens are stateless, so there is nothing
// to revoke server-side; clients discard their pair.
func (s *AuthService) Logout(ctx context.Context, userID int) {
	s.log.InfoContext(ctx, "user logged out", "user_id", userID)
}

// RequestPasswordReset issues a single-use reset token and emails it to
// the account. For an unknown email it silently succeeds with no side
// effect, so callers cannot probe which addresses exist. Mail failures are
// logged and swallowed for the same reason.
func (s *AuthService) RequestPasswordReset(ctx context.Context, email string) error {
	email = NormalizeEmail(email)

	user, err := s.repo.GetByEmail(ctx, email)
	if err != nil {
		if isNotFound(err) {
			return nil
		}
		return fmt.Errorf("request password reset: %w", err)
	}

	token, digest, err := auth.NewResetToken()
	if err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}

	expires := time.Now().Add(auth.ResetTokenTTL)
	if err := s.repo.SetResetToken(ctx, user.ID, digest, expires); err != nil {
		return fmt.Errorf("request password reset: %w", err)
	}

	resetLink := fmt.Sprintf("%s/reset-password?token=%s", s.frontendURL, token)
	body := fmt.Sprintf(
		"You requested a password reset. Open the link below to choose a new password:\n\n%s\n\nThe link expires in 1 hour. If you did not request a reset, ignore this message.",
		resetLink,
	)
	if err := s.mailer.Send(ctx, user.Email, "Reset your password", body); err != nil {
		s.log.ErrorContext(ctx, "password reset mail failed", "user_id", user.ID, "error", err)
	}
	return nil
}

// ResetPassword consumes a reset token and sets the new password. Wrong,
// expired, and already-used tokens fail identically.
func (s *AuthService) ResetPassword(ctx context.Context, token, newPassword string) error {
	hashed, err := auth.HashPassword(newPassword)
	if err != nil {
		return fmt.Errorf("reset password: hash password: %w", err)
	}

	digest := auth.HashResetToken(token)
	user, err := s.repo.ConsumeResetToken(ctx, digest, hashed, time.Now())
	if err != nil {
		if isNotFound(err) {
			return ErrInvalidResetToken
		}
		return fmt.Errorf("reset password: %w", err)
	}

	s.log.InfoContext(ctx, "password reset", "user_id", user.ID)
	s.publish(ctx, events.TopicUserPasswordChanged, user)
	return nil
}

// GetUserByID resolves an account for the auth guard.
func (s *AuthService) GetUserByID(ctx context.Context, id int) (types.User, error) {
	user, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if isNotFound(err) {
			return types.User{}, ErrUserNotFound
		}
		return types.User{}, err
	}
	return user, nil
}

func (s *AuthService) issuePair(user types.User) (*AuthResult, error) {
	accessToken, err := s.tokens.IssueAccess(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue access token: %w", err)
	}
	refreshToken, err := s.tokens.IssueRefresh(user.ID, user.Email)
	if err != nil {
		return nil, fmt.Errorf("issue refresh token: %w", err)
	}
	return &AuthResult{
		AccessToken:  accessToken,
		RefreshToken: refreshToken,
		ExpiresIn:    int(s.tokens.AccessTTL().Seconds()),
		User:         user,
	}, nil
}

func (s *AuthService) publish(ctx context.Context, topic string, user types.User) {
	if s.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), eventPublishTimeout)
	defer cancel()

	event := events.UserEvent{UserID: user.ID, Email: user.Email, At: time.Now()}
	if _, err := s.publisher.PublishUserEvent(ctx, topic, event); err != nil {
		s.log.ErrorContext(ctx, "event publish failed", "topic", topic, "error", err)
	}
}

func isNotFound(err error) bool {
	return errors.Is(err, store.ErrNotFound)
}

func isDuplicate(err error) bool {
	return errors.Is(err, store.ErrDuplicate)
}
