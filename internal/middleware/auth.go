package middleware

import (
	"crypto/subtle"
	"log"
	"net/http"
	"strings"
	"sync"
)

// APIKeyConfig holds webhook API key authentication configuration.
// Webhook ingestion endpoints sit outside the JWT session flow, so they get
// their own static-key scheme. When no keys are configured the middleware
// passes everything through.
type APIKeyConfig struct {
	// Keys is the list of valid API keys
	Keys []string

	// SkipPaths are paths that don't require a key. Entries ending in
	// "*" match by prefix.
	SkipPaths []string
}

// APIKeyMiddleware provides API key authentication for webhook endpoints
type APIKeyMiddleware struct {
	config *APIKeyConfig
	mu     sync.RWMutex
	skip   skipList
}

// NewAPIKeyMiddleware creates a new API key middleware
func NewAPIKeyMiddleware(config *APIKeyConfig) *APIKeyMiddleware {
	return &APIKeyMiddleware{
		config: config,
		skip:   skipList(config.SkipPaths),
	}
}

// Wrap wraps an http.Handler with API key authentication
func (m *APIKeyMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		m.mu.RLock()
		keys := m.config.Keys
		m.mu.RUnlock()

		// No keys configured means ingestion is open
		if len(keys) == 0 || m.skip.matches(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		apiKey := extractAPIKey(r)
		if apiKey == "" {
			m.unauthorized(w, "Missing API key")
			return
		}

		if !validAPIKey(apiKey, keys) {
			log.Printf("APIKeyMiddleware: Invalid API key attempt from %s", r.RemoteAddr)
			m.unauthorized(w, "Invalid API key")
			return
		}

		next.ServeHTTP(w, r)
	})
}

// extractAPIKey pulls the key from the Authorization header (Bearer/ApiKey),
// the X-API-Key header, or the api_key query parameter. The query form
// exists because GCP webhook configs can only set a URL.
func extractAPIKey(r *http.Request) string {
	if key := bearerToken(r); key != "" {
		return key
	}
	if key, ok := strings.CutPrefix(r.Header.Get("Authorization"), "ApiKey "); ok {
		return key
	}
	if key := r.Header.Get("X-API-Key"); key != "" {
		return key
	}
	return r.URL.Query().Get("api_key")
}

// validAPIKey compares against every configured key in constant time
func validAPIKey(provided string, validKeys []string) bool {
	for _, valid := range validKeys {
		if subtle.ConstantTimeCompare([]byte(provided), []byte(valid)) == 1 {
			return true
		}
	}
	return false
}

// unauthorized sends an unauthorized response
func (m *APIKeyMiddleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.Header().Set("WWW-Authenticate", "Bearer realm=\"API\"")
	w.WriteHeader(http.StatusUnauthorized)
	if _, err := w.Write([]byte(`{"error":"` + message + `"}`)); err != nil {
		log.Printf("Failed to write error response: %v", err)
	}
}

// SetKeys replaces the valid key list
func (m *APIKeyMiddleware) SetKeys(keys []string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.config.Keys = keys
}
