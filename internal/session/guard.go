package session

import "context"

// Route names an entry point of the front end.
type Route string

const (
	RouteLogin      Route = "login"
	RouteRegister   Route = "register"
	RouteFacilities Route = "facilities"
)

// Guard decides where a navigation request may go.
type Guard struct {
	store *Store
}

func NewGuard(store *Store) *Guard {
	return &Guard{store: store}
}

func isAuthRoute(r Route) bool {
	return r == RouteLogin || r == RouteRegister
}

// Decide waits for the session to be restored, then sends unauthenticated
// users to login and authenticated users away from the auth screens.
func (g *Guard) Decide(ctx context.Context, requested Route) (Route, error) {
	if err := g.store.Wait(ctx); err != nil {
		return "", err
	}

	authed := g.store.IsAuthenticated()
	switch {
	case !authed && !isAuthRoute(requested):
		return RouteLogin, nil
	case authed && isAuthRoute(requested):
		return RouteFacilities, nil
	default:
		return requested, nil
	}
}
