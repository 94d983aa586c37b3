package guard

import "net/http"

// RequireAuth returns middleware enforcing [Auth].
func RequireAuth(src Source, routes Routes) func(http.Handler) http.Handler {
	return require(func(r *http.Request) Decision {
		return Auth(src, requestedLocation(r), routes)
	})
}

// RequireAdmin returns middleware enforcing [Admin].
func RequireAdmin(src Source, routes Routes) func(http.Handler) http.Handler {
	return require(func(r *http.Request) Decision {
		return Admin(src, requestedLocation(r), routes)
	})
}

// RequirePermission returns middleware enforcing [Permission].
func RequirePermission(src Source, routes Routes, perms ...string) func(http.Handler) http.Handler {
	return require(func(r *http.Request) Decision {
		return Permission(src, requestedLocation(r), routes, perms...)
	})
}

func require(decide func(*http.Request) Decision) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			d := decide(r)
			if !d.Allowed {
				http.Redirect(w, r, d.Redirect, http.StatusFound)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func requestedLocation(r *http.Request) string {
	return r.URL.RequestURI()
}
