package session

// Decision is the route guard's verdict for a protected view.
type Decision string

const (
	// DecisionLoading means the session is not known yet; render a
	// placeholder, do not redirect.
	DecisionLoading Decision = "loading"
	// DecisionRedirect means no user is signed in; send to the login view.
	DecisionRedirect Decision = "redirect"
	// DecisionAllow means a user is signed in; render protected content.
	DecisionAllow Decision = "allow"
)

// Evaluate gates rendering of protected views. It is a pure function of the
// snapshot: no I/O, no internal state, and it cannot fail. Callers must
// re-evaluate on every render so that a sign-out while a protected view is
// mounted immediately produces a redirect.
//
// The full decision table:
//
//	loading            -> DecisionLoading
//	!loading, no user  -> DecisionRedirect
//	!loading, user     -> DecisionAllow
func Evaluate(snap Session) Decision {
	if snap.Loading {
		return DecisionLoading
	}
	if snap.User == nil {
		return DecisionRedirect
	}
	return DecisionAllow
}
