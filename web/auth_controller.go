package web

import (
	"context"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"

	"github.com/contiq/contiq/middleware/guardware"
	"github.com/contiq/contiq/session"
)

// signInWait bounds how long a login request waits for the provider's
// sign-in event to land in the store.
const signInWait = 5 * time.Second

// AuthController serves the login and signup pages and drives the session
// operations behind them.
type AuthController struct {
	Registry         *session.Registry
	CookieName       string
	SessionTTL       time.Duration
	RejectedRouteKey string
	Logger           session.Logger
}

func NewAuthController(registry *session.Registry, cookieName string, sessionTTL time.Duration) *AuthController {
	return &AuthController{
		Registry:         registry,
		CookieName:       cookieName,
		SessionTTL:       sessionTTL,
		RejectedRouteKey: guardware.DefaultRejectedRouteKey,
		Logger:           session.DefaultLogger(),
	}
}

func (a *AuthController) WithLogger(logger session.Logger) *AuthController {
	if logger != nil {
		a.Logger = logger
	}
	return a
}

// LoginRequest is the login form payload.
type LoginRequest struct {
	Email    string `form:"email" json:"email"`
	Password string `form:"password" json:"password"`
}

func (r LoginRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required),
	)
}

// SignupRequest is the signup form payload.
type SignupRequest struct {
	Email           string `form:"email" json:"email"`
	Password        string `form:"password" json:"password"`
	ConfirmPassword string `form:"confirm_password" json:"confirm_password"`
}

func (r SignupRequest) Validate() error {
	return validation.ValidateStruct(&r,
		validation.Field(&r.Email, validation.Required, is.Email),
		validation.Field(&r.Password, validation.Required, validation.Length(6, 100)),
		validation.Field(&r.ConfirmPassword, validation.Required, validation.By(func(value any) error {
			if value != r.Password {
				return validation.NewError("validation_password_match", "passwords do not match")
			}
			return nil
		})),
	)
}

// LoginShow renders the login form; an already signed-in browser goes
// straight to the dashboard.
func (a *AuthController) LoginShow(c *fiber.Ctx) error {
	if a.currentSession(c).Authenticated() {
		return c.Redirect("/dashboard", fiber.StatusFound)
	}

	return c.Render("login", fiber.Map{})
}

// LoginPost signs the browser session in. Failures render the form again
// with the inline message for the error kind; local state is only trusted
// once the provider's sign-in event lands.
func (a *AuthController) LoginPost(c *fiber.Ctx) error {
	payload := new(LoginRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).Render("login", fiber.Map{
			"error": "Could not read the form. Please try again.",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Render("login", fiber.Map{
			"error": "Please enter a valid email and password",
			"email": payload.Email,
		})
	}

	sid, store, created := a.resolveOrCreate(c)

	if err := store.SignIn(c.Context(), payload.Email, payload.Password); err != nil {
		a.Logger.Info("sign-in rejected", "kind", session.KindOf(err))
		if created {
			a.Registry.Destroy(sid)
		}
		return c.Render("login", fiber.Map{
			"error": session.UserMessage(err),
			"email": payload.Email,
		})
	}

	ctx, cancel := context.WithTimeout(c.Context(), signInWait)
	defer cancel()
	if err := store.Wait(ctx, session.Session.Authenticated); err != nil {
		a.Logger.Warn("sign-in event never arrived", "error", err)
		if created {
			a.Registry.Destroy(sid)
		}
		return c.Render("login", fiber.Map{
			"error": session.UserMessage(session.ErrAuthUnknown),
			"email": payload.Email,
		})
	}

	a.setSessionCookie(c, sid)

	target := guardware.GetRedirect(c, a.RejectedRouteKey, "/dashboard")
	return c.Redirect(target, fiber.StatusSeeOther)
}

// SignupShow renders the registration form.
func (a *AuthController) SignupShow(c *fiber.Ctx) error {
	if a.currentSession(c).Authenticated() {
		return c.Redirect("/dashboard", fiber.StatusFound)
	}

	return c.Render("signup", fiber.Map{})
}

// SignupPost registers a new account. Registration may leave the account
// pending email confirmation; in that case the form renders the
// check-your-email state instead of starting a session.
func (a *AuthController) SignupPost(c *fiber.Ctx) error {
	payload := new(SignupRequest)
	if err := c.BodyParser(payload); err != nil {
		return c.Status(fiber.StatusBadRequest).Render("signup", fiber.Map{
			"error": "Could not read the form. Please try again.",
		})
	}

	if err := payload.Validate(); err != nil {
		return c.Render("signup", fiber.Map{
			"error": validationMessage(err),
			"email": payload.Email,
		})
	}

	sid, store, created := a.resolveOrCreate(c)

	if err := store.SignUp(c.Context(), payload.Email, payload.Password); err != nil {
		a.Logger.Info("sign-up rejected", "kind", session.KindOf(err))
		if created {
			a.Registry.Destroy(sid)
		}
		return c.Render("signup", fiber.Map{
			"error": session.UserMessage(err),
			"email": payload.Email,
		})
	}

	a.setSessionCookie(c, sid)

	// With auto-confirm the sign-in event follows immediately; give it a
	// moment before deciding which state to show.
	ctx, cancel := context.WithTimeout(c.Context(), time.Second)
	defer cancel()
	if store.Wait(ctx, session.Session.Authenticated) == nil {
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}

	return c.Render("signup", fiber.Map{
		"confirmation_sent": true,
		"email":             payload.Email,
	})
}

// Logout signs the browser session out. On provider failure the session
// cookie and local state stay untouched; the user remains signed in.
func (a *AuthController) Logout(c *fiber.Ctx) error {
	sid := c.Cookies(a.CookieName)
	store, ok := a.Registry.Get(sid)
	if !ok {
		return c.Redirect("/", fiber.StatusSeeOther)
	}

	if err := store.SignOut(c.Context()); err != nil {
		a.Logger.Warn("sign-out failed, keeping session", "kind", session.KindOf(err))
		return c.Redirect("/dashboard", fiber.StatusSeeOther)
	}

	ctx, cancel := context.WithTimeout(c.Context(), signInWait)
	defer cancel()
	_ = store.Wait(ctx, func(s session.Session) bool { return s.User == nil })

	a.Registry.Destroy(sid)
	guardware.DeleteCookie(c, a.CookieName)

	return c.Redirect("/", fiber.StatusSeeOther)
}

func (a *AuthController) currentSession(c *fiber.Ctx) session.Session {
	if sid := c.Cookies(a.CookieName); sid != "" {
		if store, ok := a.Registry.Get(sid); ok {
			return store.Snapshot()
		}
	}
	return session.Session{}
}

// resolveOrCreate returns the browser's session store, creating a fresh one
// when the cookie is absent or stale. created reports whether this request
// minted the entry; until a cookie points at it, a failed attempt must
// destroy it rather than leave it for TTL eviction.
func (a *AuthController) resolveOrCreate(c *fiber.Ctx) (sid string, store *session.Store, created bool) {
	if sid := c.Cookies(a.CookieName); sid != "" {
		if store, ok := a.Registry.Get(sid); ok {
			return sid, store, false
		}
	}
	sid, store = a.Registry.Create(c.Context())
	return sid, store, true
}

func (a *AuthController) setSessionCookie(c *fiber.Ctx, sid string) {
	c.Cookie(&fiber.Cookie{
		Name:     a.CookieName,
		Value:    sid,
		Expires:  time.Now().Add(a.SessionTTL),
		HTTPOnly: true,
		SameSite: "Lax",
	})
}

func validationMessage(err error) string {
	if err == nil {
		return ""
	}
	if errs, ok := err.(validation.Errors); ok {
		for _, fieldErr := range errs {
			return fieldErr.Error()
		}
	}
	return "Please check the form and try again"
}
