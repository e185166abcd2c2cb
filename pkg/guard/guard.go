// Package guard implements the navigation guard that runs before every
// route transition: routes declaring requiresAuth bounce anonymous
// sessions to login, guest-only routes bounce authenticated sessions home.
package guard

import (
	"github.com/flmelody/defender-console-go/pkg/session"
)

// Route carries the per-route attributes declared once at route-table
// construction.
type Route struct {
	Name         string
	RequiresAuth bool
	GuestOnly    bool
}

// Decision is the guard's verdict for a transition.
type Decision int

const (
	// Proceed lets the transition continue unchanged.
	Proceed Decision = iota
	// RedirectLogin sends the visitor to the login route.
	RedirectLogin
	// RedirectHome sends the visitor to the default route.
	RedirectHome
)

// Guard consults the session store synchronously on every transition. It
// performs no I/O and cannot suspend.
type Guard struct {
	session *session.Store
}

// New creates a navigation guard over the given session store.
func New(s *session.Store) *Guard {
	return &Guard{session: s}
}

// Decide applies the rule table, first match wins: auth-required route
// without a session redirects to login; guest-only route with a session
// redirects home; everything else proceeds.
func (g *Guard) Decide(route Route) Decision {
	authenticated := g.session.IsAuthenticated()
	if route.RequiresAuth && !authenticated {
		return RedirectLogin
	}
	if route.GuestOnly && authenticated {
		return RedirectHome
	}
	return Proceed
}

// RouteTable is the declared route metadata, keyed by route name.
type RouteTable map[string]Route

// Lookup returns the declared route, or a zero-attribute route for
// unknown names so unknown targets proceed unchanged.
func (t RouteTable) Lookup(name string) Route {
	if r, ok := t[name]; ok {
		return r
	}
	return Route{Name: name}
}

// AdminRoutes mirrors the admin console's route table: login is
// guest-only, every screen under the layout requires authentication.
func AdminRoutes() RouteTable {
	table := RouteTable{
		"login": {Name: "login", GuestOnly: true},
	}
	for _, name := range []string{
		"dashboard",
		"users",
		"ip-white-list",
		"ip-black-list",
		"waf-rules",
		"access-logs",
		"geo-block",
		"authorized-domains",
		"licenses",
		"oauth-clients",
		"security-events",
		"bot-management",
		"system-settings",
	} {
		table[name] = Route{Name: name, RequiresAuth: true}
	}
	return table
}

// GuardRoutes mirrors the guard app's route table, which only serves the
// login screen.
func GuardRoutes() RouteTable {
	return RouteTable{
		"login": {Name: "login"},
	}
}
