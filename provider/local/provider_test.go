package local_test

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/contiq/contiq/provider/hosted"
	"github.com/contiq/contiq/provider/local"
	"github.com/contiq/contiq/session"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
	"github.com/uptrace/bun/dialect/sqlitedialect"
	"github.com/uptrace/bun/driver/sqliteshim"
)

const (
	testSecret   = "test-signing-secret"
	testPassword = "secret123"
)

var dbSeq atomic.Int64

func newTestStore(t *testing.T) *local.Store {
	t.Helper()

	dsn := fmt.Sprintf("file:store%d?mode=memory&cache=shared", dbSeq.Add(1))
	sqldb, err := sql.Open(sqliteshim.ShimName, dsn)
	require.NoError(t, err)
	t.Cleanup(func() { _ = sqldb.Close() })

	db := bun.NewDB(sqldb, sqlitedialect.New())

	store := local.NewStore(db)
	require.NoError(t, store.CreateSchema(context.Background()))
	return store
}

// bcrypt at the configured cost is slow, so every test shares one hash.
var (
	hashOnce     sync.Once
	passwordHash string
)

func testPasswordHash(t *testing.T) string {
	t.Helper()
	hashOnce.Do(func() {
		hash, err := local.HashPassword(testPassword)
		if err != nil {
			t.Fatalf("hashing test password: %v", err)
		}
		passwordHash = hash
	})
	return passwordHash
}

func seedUser(t *testing.T, store *local.Store, email string, validated bool) *local.User {
	t.Helper()

	user, err := store.Register(context.Background(), &local.User{
		Email:          email,
		PasswordHash:   testPasswordHash(t),
		EmailValidated: validated,
	})
	require.NoError(t, err)
	return user
}

func TestStoreGetByEmail(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "user@example.com", true)

	user, err := store.GetByEmail(context.Background(), "USER@example.com")
	require.NoError(t, err)
	assert.Equal(t, "user@example.com", user.Email)

	_, err = store.GetByEmail(context.Background(), "missing@example.com")
	assert.ErrorIs(t, err, local.ErrUserNotFound)
}

func TestStoreRegisterDuplicate(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "user@example.com", true)

	_, err := store.Register(context.Background(), &local.User{
		Email:        "user@example.com",
		PasswordHash: testPasswordHash(t),
	})
	assert.ErrorIs(t, err, local.ErrEmailTaken)
}

func TestSignInMintsValidToken(t *testing.T) {
	store := newTestStore(t)
	user := seedUser(t, store, "user@example.com", true)

	provider := local.New(store, testSecret)
	defer provider.Close()

	events, cancel := provider.Subscribe()
	defer cancel()

	require.NoError(t, provider.SignInWithPassword(context.Background(), "user@example.com", testPassword))

	event := <-events
	assert.Equal(t, session.EventSignedIn, event.Type)
	require.NotNil(t, event.Account)

	// The minted token verifies with the same shared-secret validator the
	// middleware uses.
	tokenUser, err := hosted.NewTokenValidator(testSecret).Validate(event.Account.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID.String(), tokenUser.ID)
	assert.Equal(t, "user@example.com", tokenUser.Email)

	account, err := provider.GetSession(context.Background())
	require.NoError(t, err)
	require.NotNil(t, account)
	assert.Equal(t, user.ID.String(), account.User.ID)
}

func TestSignInWrongPassword(t *testing.T) {
	store := newTestStore(t)
	user := seedUser(t, store, "user@example.com", true)

	provider := local.New(store, testSecret)
	defer provider.Close()

	err := provider.SignInWithPassword(context.Background(), "user@example.com", "wrong-password")
	assert.True(t, session.IsAuthKind(err, session.TextCodeInvalidCredentials))

	// The failed attempt is recorded against the account.
	reloaded, err := store.GetByEmail(context.Background(), user.Email)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.LoginAttempts)
	assert.NotNil(t, reloaded.LoginAttemptAt)
}

func TestSignInUnknownEmail(t *testing.T) {
	store := newTestStore(t)

	provider := local.New(store, testSecret)
	defer provider.Close()

	err := provider.SignInWithPassword(context.Background(), "missing@example.com", testPassword)
	assert.True(t, session.IsAuthKind(err, session.TextCodeInvalidCredentials))
}

func TestSignInUnconfirmedEmail(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "pending@example.com", false)

	provider := local.New(store, testSecret)
	defer provider.Close()

	err := provider.SignInWithPassword(context.Background(), "pending@example.com", testPassword)
	assert.True(t, session.IsAuthKind(err, session.TextCodeInvalidCredentials))
}

func TestSignInThrottlesAfterMaxAttempts(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "user@example.com", true)

	provider := local.New(store, testSecret)
	defer provider.Close()

	for i := 0; i < local.MaxLoginAttempts; i++ {
		err := provider.SignInWithPassword(context.Background(), "user@example.com", "wrong-password")
		assert.True(t, session.IsAuthKind(err, session.TextCodeInvalidCredentials))
	}

	// Once throttled even the correct password is rejected.
	err := provider.SignInWithPassword(context.Background(), "user@example.com", testPassword)
	assert.True(t, session.IsAuthKind(err, session.TextCodeRateLimited))
}

func TestThrottleResetsOnSuccessfulLogin(t *testing.T) {
	store := newTestStore(t)
	user := seedUser(t, store, "user@example.com", true)

	provider := local.New(store, testSecret)
	defer provider.Close()

	for i := 0; i < local.MaxLoginAttempts-1; i++ {
		_ = provider.SignInWithPassword(context.Background(), "user@example.com", "wrong-password")
	}

	require.NoError(t, provider.SignInWithPassword(context.Background(), "user@example.com", testPassword))

	reloaded, err := store.GetByEmail(context.Background(), user.Email)
	require.NoError(t, err)
	assert.Equal(t, 0, reloaded.LoginAttempts)
	assert.Nil(t, reloaded.LoginAttemptAt)
	assert.NotNil(t, reloaded.LoggedInAt)
}

func TestSignUpPendingConfirmation(t *testing.T) {
	store := newTestStore(t)

	provider := local.New(store, testSecret)
	defer provider.Close()

	events, cancel := provider.Subscribe()
	defer cancel()

	require.NoError(t, provider.SignUp(context.Background(), "new@example.com", testPassword))

	// The account exists but no session starts until confirmation.
	user, err := store.GetByEmail(context.Background(), "new@example.com")
	require.NoError(t, err)
	assert.False(t, user.EmailValidated)

	account, err := provider.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, account)

	select {
	case event := <-events:
		t.Fatalf("unexpected event %s for unconfirmed signup", event.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestSignUpWithAutoConfirm(t *testing.T) {
	store := newTestStore(t)

	provider := local.New(store, testSecret).WithAutoConfirm(true)
	defer provider.Close()

	events, cancel := provider.Subscribe()
	defer cancel()

	require.NoError(t, provider.SignUp(context.Background(), "new@example.com", testPassword))

	event := <-events
	assert.Equal(t, session.EventSignedIn, event.Type)
	require.NotNil(t, event.Account)
	assert.Equal(t, "new@example.com", event.Account.User.Email)
}

func TestSignUpDuplicateAccount(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "user@example.com", true)

	provider := local.New(store, testSecret)
	defer provider.Close()

	err := provider.SignUp(context.Background(), "user@example.com", testPassword)
	assert.True(t, session.IsAuthKind(err, session.TextCodeDuplicateAccount))
}

func TestSignOut(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "user@example.com", true)

	provider := local.New(store, testSecret)
	defer provider.Close()

	require.NoError(t, provider.SignInWithPassword(context.Background(), "user@example.com", testPassword))

	events, cancel := provider.Subscribe()
	defer cancel()

	require.NoError(t, provider.SignOut(context.Background()))

	event := <-events
	assert.Equal(t, session.EventSignedOut, event.Type)
	assert.Nil(t, event.Account)

	account, err := provider.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, account)

	// Signing out again is a harmless no-op with no extra event.
	require.NoError(t, provider.SignOut(context.Background()))
	select {
	case extra := <-events:
		t.Fatalf("unexpected event %s for repeated sign-out", extra.Type)
	case <-time.After(50 * time.Millisecond):
	}
}

func TestExpiredTokenEndsSession(t *testing.T) {
	store := newTestStore(t)
	seedUser(t, store, "user@example.com", true)

	provider := local.New(store, testSecret).WithTokenTTL(time.Millisecond)
	defer provider.Close()

	require.NoError(t, provider.SignInWithPassword(context.Background(), "user@example.com", testPassword))

	events, cancel := provider.Subscribe()
	defer cancel()

	time.Sleep(10 * time.Millisecond)

	account, err := provider.GetSession(context.Background())
	require.NoError(t, err)
	assert.Nil(t, account)

	event := <-events
	assert.Equal(t, session.EventSignedOut, event.Type)
}
