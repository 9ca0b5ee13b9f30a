package guardware_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/contiq/contiq/middleware/guardware"
	"github.com/contiq/contiq/provider/hosted"
	"github.com/contiq/contiq/session"
	"github.com/gofiber/fiber/v2"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubProvider is a minimal identity provider whose sign-in always succeeds.
type stubProvider struct {
	bus     *session.Broadcaster
	account *session.Account
}

func newStubProvider() *stubProvider {
	return &stubProvider{bus: session.NewBroadcaster()}
}

func (p *stubProvider) GetSession(ctx context.Context) (*session.Account, error) {
	return p.account, nil
}

func (p *stubProvider) SignInWithPassword(ctx context.Context, email, password string) error {
	account := &session.Account{
		User:        session.User{ID: "usr-" + email, Email: email},
		AccessToken: "token",
	}
	p.account = account
	p.bus.Emit(session.Event{Type: session.EventSignedIn, Account: account})
	return nil
}

func (p *stubProvider) SignUp(ctx context.Context, email, password string) error { return nil }

func (p *stubProvider) SignOut(ctx context.Context) error {
	p.account = nil
	p.bus.Emit(session.Event{Type: session.EventSignedOut})
	return nil
}

func (p *stubProvider) Subscribe() (<-chan session.Event, func()) {
	return p.bus.Subscribe()
}

func newTestApp(t *testing.T) (*fiber.App, *session.Registry) {
	t.Helper()

	registry := session.NewRegistry(func() session.IdentityProvider {
		return newStubProvider()
	})
	t.Cleanup(registry.Close)

	app := fiber.New()
	app.Use("/dashboard", guardware.New(guardware.Config{
		Registry:   registry,
		CookieName: "sid",
		LoadingHandler: func(c *fiber.Ctx) error {
			return c.Status(http.StatusAccepted).SendString("loading")
		},
	}))
	app.Get("/dashboard", func(c *fiber.Ctx) error {
		user := guardware.UserFromContext(c)
		require.NotNil(t, user)
		return c.SendString("hello " + user.Email)
	})
	app.Post("/dashboard/publish", func(c *fiber.Ctx) error {
		return c.SendString("published")
	})

	return app, registry
}

func signedInSession(t *testing.T, registry *session.Registry) string {
	t.Helper()

	sid, store := registry.Create(context.Background())
	require.NoError(t, store.SignIn(context.Background(), "user@example.com", "secret123"))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, store.Wait(ctx, func(s session.Session) bool { return s.User != nil }))

	return sid
}

func requestWithSid(method, path, sid string) *http.Request {
	req := httptest.NewRequest(method, path, nil)
	if sid != "" {
		req.AddCookie(&http.Cookie{Name: "sid", Value: sid})
	}
	return req
}

func rejectedRouteCookie(res *http.Response) string {
	for _, cookie := range res.Cookies() {
		if cookie.Name == guardware.DefaultRejectedRouteKey {
			return cookie.Value
		}
	}
	return ""
}

func TestGuardRedirectsWithoutCookie(t *testing.T) {
	app, _ := newTestApp(t)

	res, err := app.Test(requestWithSid(http.MethodGet, "/dashboard", ""))
	require.NoError(t, err)

	assert.Equal(t, http.StatusFound, res.StatusCode)
	assert.Equal(t, "/login", res.Header.Get("Location"))
	assert.Equal(t, "/dashboard", rejectedRouteCookie(res))
}

func TestGuardRedirectsUnknownSession(t *testing.T) {
	app, _ := newTestApp(t)

	res, err := app.Test(requestWithSid(http.MethodGet, "/dashboard", "no-such-session"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, res.StatusCode)
}

func TestGuardUsesSeeOtherForNonGet(t *testing.T) {
	app, _ := newTestApp(t)

	res, err := app.Test(requestWithSid(http.MethodPost, "/dashboard/publish", ""))
	require.NoError(t, err)
	assert.Equal(t, http.StatusSeeOther, res.StatusCode)
}

func TestGuardAllowsAuthenticatedSession(t *testing.T) {
	app, registry := newTestApp(t)
	sid := signedInSession(t, registry)

	res, err := app.Test(requestWithSid(http.MethodGet, "/dashboard", sid))
	require.NoError(t, err)
	assert.Equal(t, http.StatusOK, res.StatusCode)
}

func TestGuardRedirectsAfterSignOut(t *testing.T) {
	app, registry := newTestApp(t)
	sid := signedInSession(t, registry)

	store, ok := registry.Get(sid)
	require.True(t, ok)
	require.NoError(t, store.SignOut(context.Background()))

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	require.NoError(t, store.Wait(ctx, func(s session.Session) bool { return s.User == nil }))

	// The very next request on a protected route bounces.
	res, err := app.Test(requestWithSid(http.MethodGet, "/dashboard", sid))
	require.NoError(t, err)
	assert.Equal(t, http.StatusFound, res.StatusCode)
}

// staticResolver hands out one fixed store for any session ID.
type staticResolver struct {
	store *session.Store
}

func (r staticResolver) Get(id string) (*session.Store, bool) {
	return r.store, r.store != nil
}

func TestGuardRendersLoadingState(t *testing.T) {
	// A store that has not resolved its initial provider query yet.
	loading := session.NewStore(newStubProvider())
	t.Cleanup(loading.Close)

	app := fiber.New()
	app.Use(guardware.New(guardware.Config{
		Registry:   staticResolver{store: loading},
		CookieName: "sid",
		LoadingHandler: func(c *fiber.Ctx) error {
			return c.Status(http.StatusAccepted).SendString("loading")
		},
	}))
	app.Get("/", func(c *fiber.Ctx) error { return c.SendString("never") })

	res, err := app.Test(requestWithSid(http.MethodGet, "/", "any"))
	require.NoError(t, err)
	assert.Equal(t, http.StatusAccepted, res.StatusCode)
}

func mintTestToken(t *testing.T, secret, subject, email string, expiresAt time.Time) string {
	t.Helper()

	claims := jwt.MapClaims{
		"sub":   subject,
		"email": email,
		"exp":   expiresAt.Unix(),
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	require.NoError(t, err)
	return signed
}

func TestRequireToken(t *testing.T) {
	const secret = "api-test-secret"
	validator := hosted.NewTokenValidator(secret)

	app := fiber.New()
	app.Use("/api", guardware.RequireToken(validator))
	app.Get("/api/me", func(c *fiber.Ctx) error {
		user := guardware.UserFromContext(c)
		require.NotNil(t, user)
		return c.JSON(user)
	})

	t.Run("missing token", func(t *testing.T) {
		res, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/me", nil))
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("garbage token", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer not-a-token")
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("expired token", func(t *testing.T) {
		token := mintTestToken(t, secret, "usr-1", "user@example.com", time.Now().Add(-time.Minute))
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusUnauthorized, res.StatusCode)
	})

	t.Run("valid token", func(t *testing.T) {
		token := mintTestToken(t, secret, "usr-1", "user@example.com", time.Now().Add(time.Hour))
		req := httptest.NewRequest(http.MethodGet, "/api/me", nil)
		req.Header.Set("Authorization", "Bearer "+token)
		res, err := app.Test(req)
		require.NoError(t, err)
		assert.Equal(t, http.StatusOK, res.StatusCode)
	})
}
