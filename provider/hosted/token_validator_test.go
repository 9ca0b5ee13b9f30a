package hosted_test

import (
	"testing"
	"time"

	"github.com/contiq/contiq/provider/hosted"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "test-signing-secret"

type mintOptions struct {
	subject   string
	email     string
	expiresAt time.Time
	method    jwt.SigningMethod
}

func mintToken(t *testing.T, opts mintOptions) string {
	t.Helper()

	if opts.method == nil {
		opts.method = jwt.SigningMethodHS256
	}
	if opts.expiresAt.IsZero() {
		opts.expiresAt = time.Now().Add(time.Hour)
	}

	claims := jwt.MapClaims{
		"sub":   opts.subject,
		"email": opts.email,
		"exp":   opts.expiresAt.Unix(),
		"iat":   time.Now().Unix(),
	}

	signed, err := jwt.NewWithClaims(opts.method, claims).SignedString([]byte(testSecret))
	require.NoError(t, err)
	return signed
}

func TestValidateReturnsUser(t *testing.T) {
	validator := hosted.NewTokenValidator(testSecret)

	token := mintToken(t, mintOptions{subject: "usr-1", email: "user@example.com"})

	user, err := validator.Validate(token)
	require.NoError(t, err)
	assert.Equal(t, "usr-1", user.ID)
	assert.Equal(t, "user@example.com", user.Email)
}

func TestValidateRejectsExpiredToken(t *testing.T) {
	validator := hosted.NewTokenValidator(testSecret)

	token := mintToken(t, mintOptions{
		subject:   "usr-1",
		email:     "user@example.com",
		expiresAt: time.Now().Add(-time.Minute),
	})

	_, err := validator.Validate(token)
	assert.ErrorIs(t, err, hosted.ErrTokenExpired)
}

func TestValidateRejectsWrongSecret(t *testing.T) {
	validator := hosted.NewTokenValidator("a-different-secret")

	token := mintToken(t, mintOptions{subject: "usr-1", email: "user@example.com"})

	_, err := validator.Validate(token)
	assert.ErrorIs(t, err, hosted.ErrTokenInvalid)
}

func TestValidateRejectsGarbage(t *testing.T) {
	validator := hosted.NewTokenValidator(testSecret)

	for _, token := range []string{"", "not-a-token", "a.b.c"} {
		_, err := validator.Validate(token)
		assert.ErrorIs(t, err, hosted.ErrTokenInvalid)
	}
}

func TestValidateRequiresSubject(t *testing.T) {
	validator := hosted.NewTokenValidator(testSecret)

	token := mintToken(t, mintOptions{email: "user@example.com"})

	_, err := validator.Validate(token)
	assert.ErrorIs(t, err, hosted.ErrTokenInvalid)
}
