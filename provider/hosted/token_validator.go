package hosted

import (
	"fmt"

	"github.com/contiq/contiq/session"
	"github.com/golang-jwt/jwt/v5"
	goerrors "github.com/goliatone/go-errors"
)

// ErrTokenInvalid is returned for tokens that fail signature or claim checks.
var ErrTokenInvalid = goerrors.New("invalid access token", goerrors.CategoryAuth).
	WithTextCode("TOKEN_INVALID").
	WithCode(goerrors.CodeUnauthorized)

// ErrTokenExpired is returned for well-formed tokens past their expiry.
var ErrTokenExpired = goerrors.New("access token expired", goerrors.CategoryAuth).
	WithTextCode("TOKEN_EXPIRED").
	WithCode(goerrors.CodeUnauthorized)

// accessClaims is the shape of the service's access tokens.
type accessClaims struct {
	jwt.RegisteredClaims
	Email string `json:"email"`
}

// TokenValidator verifies service-issued access tokens with the shared
// signing secret and extracts the user they were issued to.
type TokenValidator struct {
	secret []byte
	logger session.Logger
}

func NewTokenValidator(signingSecret string) *TokenValidator {
	return &TokenValidator{
		secret: []byte(signingSecret),
		logger: session.DefaultLogger(),
	}
}

func (v *TokenValidator) WithLogger(logger session.Logger) *TokenValidator {
	if logger != nil {
		v.logger = logger
	}
	return v
}

// Validate parses and verifies a token string, returning the user it
// identifies.
func (v *TokenValidator) Validate(tokenString string) (*session.User, error) {
	token, err := jwt.ParseWithClaims(tokenString, &accessClaims{}, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			v.logger.Error("token validator encountered unexpected signing method", "alg", t.Header["alg"])
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return v.secret, nil
	})

	if err != nil {
		if goerrors.Is(err, jwt.ErrTokenExpired) {
			return nil, ErrTokenExpired
		}
		return nil, ErrTokenInvalid
	}

	claims, ok := token.Claims.(*accessClaims)
	if !ok || !token.Valid || claims.Subject == "" {
		return nil, ErrTokenInvalid
	}

	return &session.User{
		ID:    claims.Subject,
		Email: claims.Email,
	}, nil
}
