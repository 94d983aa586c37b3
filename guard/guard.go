package guard

import (
	"net/url"

	"github.com/MrEthical07/goAuthClient/claims"
)

// ReturnParam is the query parameter carrying the originally requested
// location on a login redirect.
const ReturnParam = "returnUrl"

// Source is the session view a guard consults.
type Source interface {
	IsAuthenticated() bool
	Claims() (*claims.Claims, bool)
}

// Routes names the redirect targets.
type Routes struct {
	Login string
	Home  string
}

// DefaultRoutes matches the Client's default route configuration.
var DefaultRoutes = Routes{
	Login: "/auth/login",
	Home:  "/",
}

// Decision is the outcome of a guard. Redirect is set iff Allowed is false.
type Decision struct {
	Allowed  bool
	Redirect string
}

func allow() Decision {
	return Decision{Allowed: true}
}

func redirect(target string) Decision {
	return Decision{Redirect: target}
}

// Auth allows iff src reports an authenticated session. Otherwise it
// redirects to the login route, preserving requested for the post-login
// redirect.
func Auth(src Source, requested string, routes Routes) Decision {
	if src != nil && src.IsAuthenticated() {
		return allow()
	}
	return redirect(LoginRedirect(routes, requested))
}

// Admin allows iff the session is authenticated and its claims carry the
// staff or superuser flag. An unauthenticated caller is handled like [Auth];
// an authenticated but unprivileged one is sent to the home route.
func Admin(src Source, requested string, routes Routes) Decision {
	if d := Auth(src, requested, routes); !d.Allowed {
		return d
	}
	c, ok := src.Claims()
	if !ok || !c.Admin() {
		return redirect(home(routes))
	}
	return allow()
}

// Permission allows iff the session is authenticated and holds every perm.
func Permission(src Source, requested string, routes Routes, perms ...string) Decision {
	if d := Auth(src, requested, routes); !d.Allowed {
		return d
	}
	c, ok := src.Claims()
	if !ok || !c.HasAllPermissions(perms...) {
		return redirect(home(routes))
	}
	return allow()
}

// LoginRedirect builds the login target for requested. An empty requested
// location yields the bare login route.
func LoginRedirect(routes Routes, requested string) string {
	login := routes.Login
	if login == "" {
		login = DefaultRoutes.Login
	}
	if requested == "" {
		return login
	}
	return login + "?" + url.Values{ReturnParam: {requested}}.Encode()
}

func home(routes Routes) string {
	if routes.Home == "" {
		return DefaultRoutes.Home
	}
	return routes.Home
}
