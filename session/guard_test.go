package session_test

import (
	"testing"

	"github.com/contiq/contiq/session"
	"github.com/stretchr/testify/assert"
)

func TestEvaluateDecisionTable(t *testing.T) {
	user := &session.User{ID: "usr-1", Email: "user@example.com"}

	// The complete 2x2 matrix. There is no fifth case.
	tests := []struct {
		name     string
		snap     session.Session
		expected session.Decision
	}{
		{
			name:     "loading without user",
			snap:     session.Session{Loading: true},
			expected: session.DecisionLoading,
		},
		{
			name:     "loading with user",
			snap:     session.Session{Loading: true, User: user},
			expected: session.DecisionLoading,
		},
		{
			name:     "resolved without user",
			snap:     session.Session{},
			expected: session.DecisionRedirect,
		},
		{
			name:     "resolved with user",
			snap:     session.Session{User: user},
			expected: session.DecisionAllow,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, session.Evaluate(tt.snap))
		})
	}
}

func TestEvaluateIsPure(t *testing.T) {
	snap := session.Session{User: &session.User{ID: "usr-1"}}

	for i := 0; i < 3; i++ {
		assert.Equal(t, session.DecisionAllow, session.Evaluate(snap))
	}
}

func TestSessionState(t *testing.T) {
	assert.Equal(t, session.StateUninitialized, session.Session{Loading: true}.State())
	assert.Equal(t, session.StateUnauthenticated, session.Session{}.State())
	assert.Equal(t, session.StateAuthenticated, session.Session{User: &session.User{}}.State())

	assert.False(t, session.Session{Loading: true}.Authenticated())
	assert.False(t, session.Session{}.Authenticated())
	assert.True(t, session.Session{User: &session.User{}}.Authenticated())
}
