package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func serveCORS(t *testing.T, c *CORSMiddleware, method, origin string) *httptest.ResponseRecorder {
	t.Helper()
	handler := c.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(method, "/api/services", nil)
	if origin != "" {
		req.Header.Set("Origin", origin)
	}
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, req)
	return w
}

func TestCORSMiddleware_OpenReflectsAnyOrigin(t *testing.T) {
	w := serveCORS(t, NewCORSMiddleware(), http.MethodGet, "https://dashboard.example.com")

	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://dashboard.example.com" {
		t.Errorf("Allow-Origin = %q, want the request origin reflected", got)
	}
	if w.Header().Get("Access-Control-Allow-Credentials") != "true" {
		t.Error("expected Allow-Credentials on a cross-origin response")
	}
	if w.Header().Get("Vary") != "Origin" {
		t.Errorf("Vary = %q, want Origin", w.Header().Get("Vary"))
	}
}

func TestCORSMiddleware_RestrictedList(t *testing.T) {
	c := NewCORSMiddleware("https://ops.example.com")

	allowed := serveCORS(t, c, http.MethodGet, "https://ops.example.com")
	if allowed.Header().Get("Access-Control-Allow-Origin") != "https://ops.example.com" {
		t.Error("listed origin should get CORS headers")
	}

	denied := serveCORS(t, c, http.MethodGet, "https://evil.example.com")
	if denied.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("unlisted origin must not get CORS headers")
	}
	// The request itself still reaches the handler
	if denied.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", denied.Code)
	}
}

func TestCORSMiddleware_Preflight(t *testing.T) {
	w := serveCORS(t, NewCORSMiddleware(), http.MethodOptions, "https://dashboard.example.com")

	if w.Code != http.StatusOK {
		t.Errorf("preflight status = %d, want 200", w.Code)
	}
	if w.Body.Len() != 0 {
		t.Errorf("preflight body length = %d, want 0", w.Body.Len())
	}
	if w.Header().Get("Access-Control-Allow-Methods") == "" {
		t.Error("preflight response should list allowed methods")
	}
}

func TestCORSMiddleware_SameOriginUntouched(t *testing.T) {
	w := serveCORS(t, NewCORSMiddleware(), http.MethodGet, "")

	if w.Header().Get("Access-Control-Allow-Origin") != "" {
		t.Error("same-origin requests should not get CORS headers")
	}
}
