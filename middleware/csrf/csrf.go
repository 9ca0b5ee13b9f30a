// Package csrf protects the HTML form routes with stateless, HMAC-signed
// tokens. Tokens are bound to the browser-session cookie, so a token minted
// for one browser cannot be replayed from another.
package csrf

import (
	"crypto/hmac"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/base64"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

var (
	ErrTokenMismatch    = errors.New("CSRF token mismatch")
	ErrTokenMissing     = errors.New("CSRF token missing")
	ErrTokenExpired     = errors.New("CSRF token expired")
	ErrSecureKeyMissing = errors.New("CSRF secure key required")
)

// DefaultTokenLength is the nonce length in bytes.
const DefaultTokenLength = 32

// DefaultContextKey is the Locals key holding the request's CSRF token.
const DefaultContextKey = "csrf_token"

// DefaultFormField is the form field checked on unsafe methods.
const DefaultFormField = "_csrf"

// DefaultHeaderName is the header checked when the form field is absent.
const DefaultHeaderName = "X-CSRF-Token"

// DefaultExpiration bounds token age.
const DefaultExpiration = 4 * time.Hour

// Config wires the middleware.
type Config struct {
	// SecureKey signs tokens. Required.
	SecureKey []byte

	// SessionCookie names the cookie whose value tokens are bound to. An
	// empty cookie still yields a valid anonymous binding, which covers the
	// login and signup forms.
	SessionCookie string

	TokenLength int
	ContextKey  string
	FormField   string
	HeaderName  string
	Expiration  time.Duration

	// Next skips the middleware when it returns true.
	Next func(c *fiber.Ctx) bool

	// ErrorHandler answers rejected requests. The default responds 403.
	ErrorHandler func(c *fiber.Ctx, err error) error
}

func (cfg *Config) defaults() {
	if cfg.TokenLength == 0 {
		cfg.TokenLength = DefaultTokenLength
	}
	if cfg.ContextKey == "" {
		cfg.ContextKey = DefaultContextKey
	}
	if cfg.FormField == "" {
		cfg.FormField = DefaultFormField
	}
	if cfg.HeaderName == "" {
		cfg.HeaderName = DefaultHeaderName
	}
	if cfg.Expiration == 0 {
		cfg.Expiration = DefaultExpiration
	}
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(c *fiber.Ctx, err error) error {
			return c.Status(http.StatusForbidden).SendString("Forbidden")
		}
	}
}

// New builds the middleware. Safe methods mint a fresh token into Locals so
// templates can embed it; unsafe methods must echo a valid token back through
// the form field or header.
func New(cfg Config) fiber.Handler {
	cfg.defaults()

	return func(c *fiber.Ctx) error {
		if cfg.Next != nil && cfg.Next(c) {
			return c.Next()
		}

		if len(cfg.SecureKey) == 0 {
			return cfg.ErrorHandler(c, ErrSecureKeyMissing)
		}

		switch c.Method() {
		case fiber.MethodGet, fiber.MethodHead, fiber.MethodOptions, fiber.MethodTrace:
		default:
			token := c.FormValue(cfg.FormField)
			if token == "" {
				token = c.Get(cfg.HeaderName)
			}
			if token == "" {
				return cfg.ErrorHandler(c, ErrTokenMissing)
			}
			if err := validateToken(cfg, token, c.Cookies(cfg.SessionCookie)); err != nil {
				return cfg.ErrorHandler(c, err)
			}
		}

		token, err := generateToken(cfg, c.Cookies(cfg.SessionCookie))
		if err != nil {
			return cfg.ErrorHandler(c, err)
		}
		c.Locals(cfg.ContextKey, token)

		return c.Next()
	}
}

// TokenFromContext returns the token New stored for this request.
func TokenFromContext(c *fiber.Ctx) string {
	token, _ := c.Locals(DefaultContextKey).(string)
	return token
}

func generateToken(cfg Config, sessionKey string) (string, error) {
	nonce := make([]byte, cfg.TokenLength)
	if _, err := io.ReadFull(rand.Reader, nonce); err != nil {
		return "", err
	}

	timestamp := time.Now().UTC().Unix()
	payload := fmt.Sprintf("%d:%s:%s", timestamp, hex.EncodeToString(nonce), sessionKey)

	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload))
	signature := mac.Sum(nil)

	token := fmt.Sprintf("%s:%s", payload, hex.EncodeToString(signature))
	return base64.RawURLEncoding.EncodeToString([]byte(token)), nil
}

func validateToken(cfg Config, token, sessionKey string) error {
	decoded, err := base64.RawURLEncoding.DecodeString(token)
	if err != nil {
		return ErrTokenMismatch
	}

	parts := strings.Split(string(decoded), ":")
	if len(parts) != 4 {
		return ErrTokenMismatch
	}

	timestampStr, nonceHex, sessionFromToken, signatureHex := parts[0], parts[1], parts[2], parts[3]

	timestamp, err := strconv.ParseInt(timestampStr, 10, 64)
	if err != nil {
		return ErrTokenMismatch
	}

	if _, err := hex.DecodeString(nonceHex); err != nil {
		return ErrTokenMismatch
	}

	signature, err := hex.DecodeString(signatureHex)
	if err != nil {
		return ErrTokenMismatch
	}

	payload := strings.Join(parts[:3], ":")
	mac := hmac.New(sha256.New, cfg.SecureKey)
	mac.Write([]byte(payload))
	expected := mac.Sum(nil)

	if !hmac.Equal(signature, expected) {
		return ErrTokenMismatch
	}

	if subtle.ConstantTimeCompare([]byte(sessionFromToken), []byte(sessionKey)) != 1 {
		return ErrTokenMismatch
	}

	if cfg.Expiration > 0 {
		expiresAt := time.Unix(timestamp, 0).Add(cfg.Expiration)
		if time.Now().UTC().After(expiresAt) {
			return ErrTokenExpired
		}
	}

	return nil
}
