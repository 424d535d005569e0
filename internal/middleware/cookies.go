package middleware

import (
	"context"
	"net/http"
)

type cookiesKey struct{}

// CookieParser exposes the request cookies as a name to value map in the
// request context. Later duplicates of a name are ignored.
func CookieParser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		parsed := make(map[string]string)
		for _, c := range r.Cookies() {
			if _, seen := parsed[c.Name]; !seen {
				parsed[c.Name] = c.Value
			}
		}
		ctx := context.WithValue(r.Context(), cookiesKey{}, parsed)
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

// Cookies returns the parsed cookies, or nil when CookieParser did not run.
func Cookies(ctx context.Context) map[string]string {
	parsed, _ := ctx.Value(cookiesKey{}).(map[string]string)
	return parsed
}

// Cookie returns one parsed cookie value, falling back to the raw header.
func Cookie(r *http.Request, name string) (string, bool) {
	if parsed := Cookies(r.Context()); parsed != nil {
		v, ok := parsed[name]
		return v, ok
	}
	c, err := r.Cookie(name)
	if err != nil {
		return "", false
	}
	return c.Value, true
}
