// Package view decides which dashboard screen may be shown for a session.
package view

import "github.com/Mohsinsiddi/tokendash/internal/session"

// View is a dashboard screen.
type View int

const (
	Home View = iota
	User
	Admin
	AccessDenied
)

func (v View) String() string {
	switch v {
	case Home:
		return "home"
	case User:
		return "user"
	case Admin:
		return "admin"
	case AccessDenied:
		return "access-denied"
	}
	return "unknown"
}

// Router holds no state; both methods are pure.
type Router struct{}

// Navigate returns the view after a request to move from current to
// requested. Gated views are unreachable while disconnected, in which case
// current is kept. Admin is always reachable once connected; Resolve decides
// what it shows.
func (Router) Navigate(current, requested View, s session.Session) View {
	switch requested {
	case Home:
		return Home
	case User, Admin:
		if !s.Connected {
			return current
		}
		return requested
	case AccessDenied:
		// Only Resolve produces it.
		return current
	}
	return current
}

// Resolve returns the screen to render for v. A disconnected session always
// sees Home; a non-privileged one sees AccessDenied in place of Admin.
func (Router) Resolve(v View, s session.Session) View {
	if !s.Connected {
		return Home
	}
	if v == Admin && !s.IsPrivileged {
		return AccessDenied
	}
	return v
}

// Back is where the AccessDenied screen leads.
func (Router) Back() View { return User }
