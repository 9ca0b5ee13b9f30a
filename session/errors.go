package session

import (
	goerrors "github.com/goliatone/go-errors"
)

// Text codes for the closed AuthError taxonomy. Every failure the identity
// provider can produce is mapped to exactly one of these at the provider
// boundary; nothing downstream matches on provider-specific strings.
const (
	TextCodeInvalidCredentials = "INVALID_CREDENTIALS"
	TextCodeDuplicateAccount   = "DUPLICATE_ACCOUNT"
	TextCodeRegistrationFailed = "REGISTRATION_FAILED"
	TextCodeRateLimited        = "RATE_LIMITED"
	TextCodeNetwork            = "NETWORK_FAILURE"
	TextCodeUnknown            = "UNKNOWN_AUTH_FAILURE"
)

// ErrInvalidCredentials is returned when the provider rejects an email and
// password combination.
var ErrInvalidCredentials = goerrors.New("invalid email or password", goerrors.CategoryAuth).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeUnauthorized)

// ErrDuplicateAccount is returned when registering an email that already has
// an account.
var ErrDuplicateAccount = goerrors.New("an account with this email already exists", goerrors.CategoryConflict).
	WithTextCode(TextCodeDuplicateAccount).
	WithCode(goerrors.CodeConflict)

// ErrRegistrationFailed is returned when the provider rejects a registration
// for any reason other than a duplicate account or rate limiting.
var ErrRegistrationFailed = goerrors.New("unable to register account", goerrors.CategoryOperation).
	WithTextCode(TextCodeRegistrationFailed).
	WithCode(goerrors.CodeBadRequest)

// ErrRateLimited is returned when the provider throttles the request.
var ErrRateLimited = goerrors.New("too many attempts", goerrors.CategoryRateLimit).
	WithTextCode(TextCodeRateLimited).
	WithCode(goerrors.CodeBadRequest)

// ErrNetwork is returned when the provider cannot be reached at all.
var ErrNetwork = goerrors.New("unable to reach the identity service", goerrors.CategoryOperation).
	WithTextCode(TextCodeNetwork).
	WithCode(goerrors.CodeInternal)

// ErrAuthUnknown is the fallback for provider failures that fit no other kind.
var ErrAuthUnknown = goerrors.New("authentication request failed", goerrors.CategoryAuth).
	WithTextCode(TextCodeUnknown).
	WithCode(goerrors.CodeInternal)

// ErrCredentialsRequired is returned before the provider is ever contacted
// when email or password is empty.
var ErrCredentialsRequired = goerrors.New("email and password are required", goerrors.CategoryBadInput).
	WithTextCode(TextCodeInvalidCredentials).
	WithCode(goerrors.CodeBadRequest)

// KindOf returns the AuthError text code carried by err, or TextCodeUnknown
// when err carries none. A nil err returns the empty string.
func KindOf(err error) string {
	if err == nil {
		return ""
	}

	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) && richErr.TextCode != "" {
		return richErr.TextCode
	}

	return TextCodeUnknown
}

// IsAuthKind reports whether err carries the given AuthError text code.
func IsAuthKind(err error, textCode string) bool {
	return err != nil && KindOf(err) == textCode
}

// UserMessage maps an AuthError to the inline message shown next to the
// login and signup forms. It never exposes provider detail.
func UserMessage(err error) string {
	switch KindOf(err) {
	case "":
		return ""
	case TextCodeInvalidCredentials:
		return "Invalid email or password"
	case TextCodeDuplicateAccount:
		return "An account with this email already exists"
	case TextCodeRegistrationFailed:
		return "We could not create your account. Please try again."
	case TextCodeRateLimited:
		return "Too many attempts. Please try again later"
	case TextCodeNetwork:
		return "Unable to connect to the server. Please check your internet connection."
	default:
		return "An error occurred during sign in. Please try again."
	}
}
