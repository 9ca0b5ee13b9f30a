package session

import (
	"time"
)

// User is the authenticated identity as the dashboard sees it.
type User struct {
	ID    string `json:"id"`
	Email string `json:"email"`
}

// Account is the provider-side view of an active session: the user plus the
// tokens issued for it.
type Account struct {
	User         User
	AccessToken  string
	RefreshToken string
	ExpiresAt    time.Time
}

// Expired reports whether the account's access token is past its expiry.
// Accounts without an expiry never expire locally.
func (a *Account) Expired(now time.Time) bool {
	if a == nil || a.ExpiresAt.IsZero() {
		return false
	}
	return now.After(a.ExpiresAt)
}

// State is the lifecycle position of a session snapshot.
type State string

const (
	// StateUninitialized means the first provider query has not resolved yet.
	StateUninitialized State = "uninitialized"
	// StateUnauthenticated means the provider reported no active session.
	StateUnauthenticated State = "unauthenticated"
	// StateAuthenticated means a valid provider session exists.
	StateAuthenticated State = "authenticated"
)

// Session is a point-in-time snapshot of the store's state. User is non-nil
// if and only if a valid session exists with the identity provider; Loading
// is true only until the initial provider query resolves, and never again.
type Session struct {
	User    *User
	Loading bool
}

func (s Session) State() State {
	switch {
	case s.Loading:
		return StateUninitialized
	case s.User == nil:
		return StateUnauthenticated
	default:
		return StateAuthenticated
	}
}

// Authenticated reports whether the snapshot carries a signed-in user.
func (s Session) Authenticated() bool {
	return !s.Loading && s.User != nil
}
