// Package guard decides which view a navigation resolves to.
package guard

import "strings"

// Route is a navigable view.
type Route string

const (
	RouteRoot      Route = "/"
	RouteLogin     Route = "/login"
	RouteRegister  Route = "/register"
	RouteOTP       Route = "/otp"
	RouteDashboard Route = "/dashboard"
)

// SessionView is what the guard needs to know about the session.
// *session.Store satisfies it.
type SessionView interface {
	HasCredential() bool
	HasPendingChallenge() bool
}

// Decision is the outcome of resolving a path.
type Decision struct {
	Route Route
	// Redirected is true when Route differs from the requested view.
	Redirected bool
}

// Resolve maps a requested path to the view that should render. It holds
// no state and must be called on every navigation.
func Resolve(path string, s SessionView) Decision {
	requested := normalize(path)
	target := requested

	switch requested {
	case RouteLogin, RouteRegister:
	case RouteOTP:
		if !s.HasPendingChallenge() {
			target = RouteLogin
		}
	default:
		// "/" and unknown paths land on the dashboard, guarded below.
		target = RouteDashboard
	}

	if target == RouteDashboard && !s.HasCredential() {
		target = RouteLogin
	}
	return Decision{Route: target, Redirected: target != requested}
}

func normalize(path string) Route {
	path = strings.TrimSpace(path)
	if i := strings.IndexAny(path, "?#"); i >= 0 {
		path = path[:i]
	}
	if path == "" {
		return RouteRoot
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
	}
	return Route(strings.ToLower(path))
}
