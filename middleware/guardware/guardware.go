// Package guardware gates protected routes on the session store's state.
// Every request re-evaluates the guard against a fresh snapshot, so a
// sign-out flips the very next request on a protected route to a redirect.
package guardware

import (
	"net/http"
	"strings"
	"time"

	"github.com/contiq/contiq/session"
	"github.com/gofiber/fiber/v2"
)

// Locals keys for the resolved request identity.
const (
	UserKey  = "guardware:user"
	StoreKey = "guardware:store"
)

// DefaultLoginPath is where unauthenticated requests are sent.
const DefaultLoginPath = "/login"

// DefaultRejectedRouteKey names the cookie that remembers the route a
// redirect bounced off of.
const DefaultRejectedRouteKey = "contiq_rejected_route"

// StoreResolver resolves a browser-session cookie value to its store.
// *session.Registry satisfies it.
type StoreResolver interface {
	Get(id string) (*session.Store, bool)
}

// Config wires the guard middleware.
type Config struct {
	// Registry resolves browser-session cookies to session stores.
	Registry StoreResolver

	// CookieName is the browser-session cookie.
	CookieName string

	// LoginPath overrides DefaultLoginPath.
	LoginPath string

	// RejectedRouteKey overrides DefaultRejectedRouteKey.
	RejectedRouteKey string

	// LoadingHandler renders while the snapshot is still loading. The
	// default renders the loading partial.
	LoadingHandler fiber.Handler

	Logger session.Logger
}

func (cfg *Config) defaults() {
	if cfg.CookieName == "" {
		cfg.CookieName = "contiq_sid"
	}
	if cfg.LoginPath == "" {
		cfg.LoginPath = DefaultLoginPath
	}
	if cfg.RejectedRouteKey == "" {
		cfg.RejectedRouteKey = DefaultRejectedRouteKey
	}
	if cfg.Logger == nil {
		cfg.Logger = session.DefaultLogger()
	}
	if cfg.LoadingHandler == nil {
		cfg.LoadingHandler = func(c *fiber.Ctx) error {
			return c.Render("partials/loading", fiber.Map{})
		}
	}
}

// New builds the guard middleware. It resolves the request's store from the
// browser-session cookie, evaluates the guard on a snapshot, and either
// passes the request through with the user in Locals, renders the loading
// state, or redirects to the login page remembering the rejected route.
func New(cfg Config) fiber.Handler {
	cfg.defaults()

	return func(c *fiber.Ctx) error {
		snap := session.Session{}

		var store *session.Store
		if sid := c.Cookies(cfg.CookieName); sid != "" {
			if resolved, ok := cfg.Registry.Get(sid); ok {
				store = resolved
				snap = resolved.Snapshot()
			}
		}

		switch session.Evaluate(snap) {
		case session.DecisionAllow:
			c.Locals(UserKey, snap.User)
			c.Locals(StoreKey, store)
			return c.Next()

		case session.DecisionLoading:
			return cfg.LoadingHandler(c)

		default:
			cfg.Logger.Info("redirecting unauthenticated request", "path", c.OriginalURL())
			SetRedirect(c, cfg.RejectedRouteKey)

			status := http.StatusSeeOther
			if c.Method() == fiber.MethodGet {
				status = http.StatusFound
			}
			return c.Redirect(cfg.LoginPath, status)
		}
	}
}

// TokenValidator verifies an access token and resolves its user.
type TokenValidator interface {
	Validate(tokenString string) (*session.User, error)
}

// RequireToken guards JSON API routes on a Bearer access token. Failures
// answer 401 with a JSON body instead of redirecting.
func RequireToken(validator TokenValidator) fiber.Handler {
	return func(c *fiber.Ctx) error {
		header := c.Get(fiber.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"error": "missing bearer token",
			})
		}

		user, err := validator.Validate(token)
		if err != nil {
			return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
				"error": "invalid or expired token",
			})
		}

		c.Locals(UserKey, user)
		return c.Next()
	}
}

// TokenOrSession guards JSON API routes. Requests carrying a bearer token
// are validated against it; everything else falls back to the browser
// session cookie. Failures answer 401 JSON either way.
func TokenOrSession(validator TokenValidator, resolver StoreResolver, cookieName string) fiber.Handler {
	tokenGuard := RequireToken(validator)

	return func(c *fiber.Ctx) error {
		if c.Get(fiber.HeaderAuthorization) != "" {
			return tokenGuard(c)
		}

		if sid := c.Cookies(cookieName); sid != "" {
			if store, ok := resolver.Get(sid); ok {
				if snap := store.Snapshot(); snap.Authenticated() {
					c.Locals(UserKey, snap.User)
					c.Locals(StoreKey, store)
					return c.Next()
				}
			}
		}

		return c.Status(http.StatusUnauthorized).JSON(fiber.Map{
			"error": "authentication required",
		})
	}
}

// UserFromContext returns the authenticated user the guard resolved, nil on
// unguarded routes.
func UserFromContext(c *fiber.Ctx) *session.User {
	user, _ := c.Locals(UserKey).(*session.User)
	return user
}

// StoreFromContext returns the request's session store, nil when the guard
// resolved the user from a token instead.
func StoreFromContext(c *fiber.Ctx) *session.Store {
	store, _ := c.Locals(StoreKey).(*session.Store)
	return store
}

// SetRedirect remembers the rejected route in a short-lived cookie so the
// login flow can send the user back.
func SetRedirect(c *fiber.Ctx, key string) {
	c.Cookie(&fiber.Cookie{
		Name:     key,
		Value:    c.OriginalURL(),
		Expires:  time.Now().Add(5 * time.Minute),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

// GetRedirect pops the remembered route, falling back to def.
func GetRedirect(c *fiber.Ctx, key, def string) string {
	target := c.Cookies(key)
	if target == "" {
		return def
	}
	DeleteCookie(c, key)
	return target
}

// DeleteCookie expires a cookie immediately.
func DeleteCookie(c *fiber.Ctx, name string) {
	c.Cookie(&fiber.Cookie{
		Name:     name,
		Value:    "",
		Expires:  time.Now().Add(-24 * 365 * time.Hour),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}
