package services

import (
	"context"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/my-app/apiserver/internal/auth"
	"github.com/my-app/apiserver/internal/store"
	"github.com/my-app/apiserver/types"
)

// fakeUserRepo is an in-memory UserRepository with the same uniqueness
// semantics as the SQL store.
type fakeUserRepo struct {
	mu     sync.Mutex
	nextID int
	users  map[int]types.User
}

func newFakeUserRepo() *fakeUserRepo {
	return &fakeUserRepo{nextID: 1, users: make(map[int]types.User)}
}

func (r *fakeUserRepo) GetByID(_ context.Context, id int) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	return user, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, user := range r.users {
		if user.Email == email {
			return user, nil
		}
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Create(_ context.Context, user types.User) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, existing := range r.users {
		if existing.Email == user.Email {
			return types.User{}, store.ErrDuplicate
		}
	}
	user.ID = r.nextID
	r.nextID++
	now := time.Now()
	user.CreatedAt = now
	user.UpdatedAt = now
	r.users[user.ID] = user
	return user, nil
}

func (r *fakeUserRepo) List(_ context.Context, offset, limit int) ([]types.User, int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	items := make([]types.User, 0, len(r.users))
	for id := 1; id < r.nextID; id++ {
		if user, ok := r.users[id]; ok {
			items = append(items, user)
		}
	}
	total := len(items)
	if offset >= len(items) {
		return nil, total, nil
	}
	items = items[offset:]
	if limit < len(items) {
		items = items[:limit]
	}
	return items, total, nil
}

func (r *fakeUserRepo) UpdateProfile(_ context.Context, id int, name string, avatar *string) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return types.User{}, store.ErrNotFound
	}
	user.Name = name
	user.Avatar = avatar
	user.UpdatedAt = time.Now()
	r.users[id] = user
	return user, nil
}

func (r *fakeUserRepo) SetResetToken(_ context.Context, id int, digest string, expires time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	user, ok := r.users[id]
	if !ok {
		return store.ErrNotFound
	}
	user.ResetPasswordToken = &digest
	user.ResetPasswordExpires = &expires
	r.users[id] = user
	return nil
}

func (r *fakeUserRepo) ConsumeResetToken(_ context.Context, digest, passwordHash string, now time.Time) (types.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for id, user := range r.users {
		if user.ResetPasswordToken == nil || *user.ResetPasswordToken != digest {
			continue
		}
		if user.ResetPasswordExpires == nil || !user.ResetPasswordExpires.After(now) {
			continue
		}
		user.PasswordHash = passwordHash
		user.ResetPasswordToken = nil
		user.ResetPasswordExpires = nil
		user.UpdatedAt = now
		r.users[id] = user
		return user, nil
	}
	return types.User{}, store.ErrNotFound
}

func (r *fakeUserRepo) Delete(_ context.Context, id int) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.users[id]; !ok {
		return store.ErrNotFound
	}
	delete(r.users, id)
	return nil
}

// fakeMailer records every message it is asked to send.
type fakeMailer struct {
	mu       sync.Mutex
	messages []fakeMessage
}

type fakeMessage struct {
	to      string
	subject string
	body    string
}

func (m *fakeMailer) Send(_ context.Context, to, subject, body string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.messages = append(m.messages, fakeMessage{to: to, subject: subject, body: body})
	return nil
}

func (m *fakeMailer) sent() []fakeMessage {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]fakeMessage(nil), m.messages...)
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func newTestAuthService(t *testing.T) (*AuthService, *fakeUserRepo, *fakeMailer, *auth.TokenManager) {
	t.Helper()
	tokens, err := auth.NewTokenManager("test-secret", 15*time.Minute, 7*24*time.Hour)
	require.NoError(t, err)
	repo := newFakeUserRepo()
	mailer := &fakeMailer{}
	svc := NewAuthService(repo, tokens, mailer, nil, discardLogger(), "http://localhost:5173")
	return svc, repo, mailer, tokens
}

// resetTokenFromMail digs the raw reset token out of the mailed link.
func resetTokenFromMail(t *testing.T, body string) string {
	t.Helper()
	const marker = "reset-password?token="
	i := strings.Index(body, marker)
	require.GreaterOrEqual(t, i, 0, "mail body %q has no reset link", body)
	token := body[i+len(marker):]
	if j := strings.IndexAny(token, " \n"); j >= 0 {
		token = token[:j]
	}
	return token
}

func TestRegisterThenLogin(t *testing.T) {
	t.Parallel()

	svc, _, _, tokens := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "A@X.com ", "Alice", "secret1")
	require.NoError(t, err)
	assert.Equal(t, "a@x.com", registered.User.Email)
	assert.Equal(t, "Alice", registered.User.Name)
	assert.Equal(t, 900, registered.ExpiresIn)

	loggedIn, err := svc.Login(ctx, "a@x.com", "secret1")
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, loggedIn.User.ID)

	claims, err := tokens.Verify(loggedIn.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenTypeAccess, claims.TokenType)
	id, err := claims.UserID()
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, id)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@x.com", "Alice", "secret1")
	require.NoError(t, err)

	_, err = svc.Register(ctx, "A@X.COM", "Other", "secret2")
	assert.ErrorIs(t, err, ErrEmailTaken)
}

func TestRegister_ConcurrentDuplicate(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()

	const attempts = 8
	errs := make(chan error, attempts)
	var wg sync.WaitGroup
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := svc.Register(ctx, "race@x.com", "Racer", "secret1")
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	var ok, taken int
	for err := range errs {
		switch {
		case err == nil:
			ok++
		case assert.ErrorIs(t, err, ErrEmailTaken):
			taken++
		}
	}
	assert.Equal(t, 1, ok)
	assert.Equal(t, attempts-1, taken)
}

func TestLogin_InvalidCredentialsUniform(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@x.com", "Alice", "secret1")
	require.NoError(t, err)

	_, unknownErr := svc.Login(ctx, "nobody@x.com", "secret1")
	_, wrongErr := svc.Login(ctx, "a@x.com", "wrongpass1")

	assert.ErrorIs(t, unknownErr, ErrInvalidCredentials)
	assert.ErrorIs(t, wrongErr, ErrInvalidCredentials)
}

func TestRefresh_RotatesPair(t *testing.T) {
	t.Parallel()

	svc, _, _, tokens := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "a@x.com", "Alice", "secret1")
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, registered.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, registered.User.ID, refreshed.User.ID)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.NotEmpty(t, refreshed.RefreshToken)

	claims, err := tokens.Verify(refreshed.RefreshToken)
	require.NoError(t, err)
	assert.Equal(t, auth.TokenTypeRefresh, claims.TokenType)
}

func TestRefresh_RejectsAccessToken(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "a@x.com", "Alice", "secret1")
	require.NoError(t, err)

	_, err = svc.Refresh(ctx, registered.AccessToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRefresh_DeletedUser(t *testing.T) {
	t.Parallel()

	svc, repo, _, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "a@x.com", "Alice", "secret1")
	require.NoError(t, err)
	require.NoError(t, repo.Delete(ctx, registered.User.ID))

	_, err = svc.Refresh(ctx, registered.RefreshToken)
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRefresh_Garbage(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestAuthService(t)

	_, err := svc.Refresh(context.Background(), "not-a-token")
	assert.ErrorIs(t, err, auth.ErrInvalidToken)
}

func TestRequestPasswordReset_UnknownEmailSilent(t *testing.T) {
	t.Parallel()

	svc, _, mailer, _ := newTestAuthService(t)

	err := svc.RequestPasswordReset(context.Background(), "nobody@x.com")
	require.NoError(t, err)
	assert.Empty(t, mailer.sent())
}

func TestPasswordResetFlow(t *testing.T) {
	t.Parallel()

	svc, _, mailer, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@x.com", "Alice", "secret1")
	require.NoError(t, err)

	require.NoError(t, svc.RequestPasswordReset(ctx, "a@x.com"))
	sent := mailer.sent()
	require.Len(t, sent, 1)
	assert.Equal(t, "a@x.com", sent[0].to)

	token := resetTokenFromMail(t, sent[0].body)
	require.NoError(t, svc.ResetPassword(ctx, token, "newpass1"))

	_, err = svc.Login(ctx, "a@x.com", "secret1")
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(ctx, "a@x.com", "newpass1")
	require.NoError(t, err)
}

func TestResetPassword_SingleUse(t *testing.T) {
	t.Parallel()

	svc, _, mailer, _ := newTestAuthService(t)
	ctx := context.Background()

	_, err := svc.Register(ctx, "a@x.com", "Alice", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.RequestPasswordReset(ctx, "a@x.com"))

	token := resetTokenFromMail(t, mailer.sent()[0].body)
	require.NoError(t, svc.ResetPassword(ctx, token, "newpass1"))

	err = svc.ResetPassword(ctx, token, "anotherpass1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPassword_WrongToken(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestAuthService(t)

	err := svc.ResetPassword(context.Background(), strings.Repeat("ab", 32), "newpass1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestResetPassword_Expired(t *testing.T) {
	t.Parallel()

	svc, repo, mailer, _ := newTestAuthService(t)
	ctx := context.Background()

	registered, err := svc.Register(ctx, "a@x.com", "Alice", "secret1")
	require.NoError(t, err)
	require.NoError(t, svc.RequestPasswordReset(ctx, "a@x.com"))

	// Backdate the stored expiry to the past.
	user, err := repo.GetByID(ctx, registered.User.ID)
	require.NoError(t, err)
	require.NotNil(t, user.ResetPasswordToken)
	require.NoError(t, repo.SetResetToken(ctx, user.ID, *user.ResetPasswordToken, time.Now().Add(-time.Minute)))

	token := resetTokenFromMail(t, mailer.sent()[0].body)
	err = svc.ResetPassword(ctx, token, "newpass1")
	assert.ErrorIs(t, err, ErrInvalidResetToken)
}

func TestGetUserByID_NotFound(t *testing.T) {
	t.Parallel()

	svc, _, _, _ := newTestAuthService(t)

	_, err := svc.GetUserByID(context.Background(), 99)
	assert.ErrorIs(t, err, ErrUserNotFound)
}
