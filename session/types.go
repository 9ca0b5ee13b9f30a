package session

import (
	"context"
	"fmt"
)

type Logger interface {
	Debug(format string, args ...any)
	Info(format string, args ...any)
	Warn(format string, args ...any)
	Error(format string, args ...any)
}

// EventType identifies a provider-emitted session change
type EventType string

const (
	EventSignedIn       EventType = "SIGNED_IN"
	EventSignedOut      EventType = "SIGNED_OUT"
	EventTokenRefreshed EventType = "TOKEN_REFRESHED"
	EventUserUpdated    EventType = "USER_UPDATED"
)

// Event is a session change notification from the identity provider.
// Account carries the resulting session; it is nil for EventSignedOut.
type Event struct {
	Type    EventType
	Account *Account
}

// IdentityProvider is the service of record for credentials and session
// issuance. All provider error shapes are mapped into the closed AuthError
// taxonomy at this boundary; callers never see raw provider errors.
type IdentityProvider interface {
	// GetSession returns the existing session, or nil if there is none.
	GetSession(ctx context.Context) (*Account, error)

	// SignInWithPassword exchanges credentials for a session. A successful
	// call emits EventSignedIn on the subscription channel.
	SignInWithPassword(ctx context.Context, email, password string) error

	// SignUp registers a new account. Registration may require out-of-band
	// email confirmation, so a nil error does not imply an active session.
	SignUp(ctx context.Context, email, password string) error

	// SignOut terminates the current session. A successful call emits
	// EventSignedOut on the subscription channel.
	SignOut(ctx context.Context) error

	// Subscribe registers for session change events. The returned function
	// tears the subscription down; no event is delivered after it returns.
	Subscribe() (<-chan Event, func())
}

// DefaultLogger returns the stdout logger used when none is injected.
func DefaultLogger() Logger {
	return defLogger{}
}

type defLogger struct{}

func (d defLogger) Error(format string, args ...any) {
	fmt.Printf("[ERR] SESSION "+newline(format), args...)
}

func (d defLogger) Warn(format string, args ...any) {
	fmt.Printf("[WRN] SESSION "+newline(format), args...)
}

func (d defLogger) Info(format string, args ...any) {
	fmt.Printf("[INF] SESSION "+newline(format), args...)
}

func (d defLogger) Debug(format string, args ...any) {
	fmt.Printf("[DBG] SESSION "+newline(format), args...)
}

func newline(s string) string {
	if len(s) > 0 && s[len(s)-1] != '\n' {
		s += "\n"
	}
	return s
}
