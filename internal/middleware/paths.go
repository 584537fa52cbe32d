package middleware

import (
	"net/http"
	"strings"
)

// skipList matches request paths excluded from an auth scheme. Entries are
// exact paths or prefix globs ending in "*" ("/webhook/*"). Both auth
// middlewares share this so webhook and health routes behave the same under
// either scheme.
type skipList []string

func (s skipList) matches(path string) bool {
	for _, entry := range s {
		if prefix, isGlob := strings.CutSuffix(entry, "*"); isGlob {
			if strings.HasPrefix(path, prefix) {
				return true
			}
			continue
		}
		if entry == path {
			return true
		}
	}
	return false
}

// bearerToken returns the token from an "Authorization: Bearer" header, or
// an empty string.
func bearerToken(r *http.Request) string {
	token, ok := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer ")
	if !ok {
		return ""
	}
	return token
}
