package middleware

import "net/http"

const (
	corsAllowMethods = "GET, POST, PUT, DELETE, OPTIONS, PATCH"
	corsAllowHeaders = "Content-Type, Authorization, X-Requested-With"
)

// CORSMiddleware sets the cross-origin headers the dashboard frontend needs.
// With no configured origin list every origin is reflected back; the API is
// protected by tokens, not by origin checks.
type CORSMiddleware struct {
	// nil means reflect any origin
	origins map[string]struct{}
}

// NewCORSMiddleware creates a CORS middleware restricted to the given
// origins, or open to all when none are given.
func NewCORSMiddleware(allowedOrigins ...string) *CORSMiddleware {
	c := &CORSMiddleware{}
	if len(allowedOrigins) > 0 {
		c.origins = make(map[string]struct{}, len(allowedOrigins))
		for _, origin := range allowedOrigins {
			c.origins[origin] = struct{}{}
		}
	}
	return c
}

// Wrap adds CORS headers to cross-origin requests and short-circuits
// preflight OPTIONS requests.
func (c *CORSMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if origin := r.Header.Get("Origin"); origin != "" && c.allows(origin) {
			h := w.Header()
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Methods", corsAllowMethods)
			h.Set("Access-Control-Allow-Headers", corsAllowHeaders)
			h.Set("Access-Control-Allow-Credentials", "true")
			h.Set("Access-Control-Max-Age", "86400")
			h.Add("Vary", "Origin")
		}

		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusOK)
			return
		}
		next.ServeHTTP(w, r)
	})
}

func (c *CORSMiddleware) allows(origin string) bool {
	if c.origins == nil {
		return true
	}
	if _, ok := c.origins[origin]; ok {
		return true
	}
	_, ok := c.origins["*"]
	return ok
}
