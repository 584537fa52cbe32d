package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestAPIKeyMiddleware_NoKeysConfigured(t *testing.T) {
	middleware := NewAPIKeyMiddleware(&APIKeyConfig{})

	handler := middleware.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/webhook/alert/custom", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_MissingKey(t *testing.T) {
	middleware := NewAPIKeyMiddleware(&APIKeyConfig{
		Keys: []string{"test-key"},
	})

	handler := middleware.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/webhook/alert/custom", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_InvalidKey(t *testing.T) {
	middleware := NewAPIKeyMiddleware(&APIKeyConfig{
		Keys: []string{"valid-key"},
	})

	handler := middleware.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/webhook/alert/custom", nil)
	req.Header.Set("X-API-Key", "invalid-key")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_ValidKey_XAPIKey(t *testing.T) {
	middleware := NewAPIKeyMiddleware(&APIKeyConfig{
		Keys: []string{"valid-key"},
	})

	handler := middleware.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/webhook/alert/custom", nil)
	req.Header.Set("X-API-Key", "valid-key")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_ValidKey_Bearer(t *testing.T) {
	middleware := NewAPIKeyMiddleware(&APIKeyConfig{
		Keys: []string{"valid-key"},
	})

	handler := middleware.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/webhook/alert/gcp", nil)
	req.Header.Set("Authorization", "Bearer valid-key")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_ValidKey_QueryParam(t *testing.T) {
	middleware := NewAPIKeyMiddleware(&APIKeyConfig{
		Keys: []string{"valid-key"},
	})

	handler := middleware.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/webhook/alert/gcp?api_key=valid-key", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_SkipPath(t *testing.T) {
	middleware := NewAPIKeyMiddleware(&APIKeyConfig{
		Keys:      []string{"valid-key"},
		SkipPaths: []string{"/health"},
	})

	handler := middleware.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/health", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_SkipPathWildcard(t *testing.T) {
	middleware := NewAPIKeyMiddleware(&APIKeyConfig{
		Keys:      []string{"valid-key"},
		SkipPaths: []string{"/public/*"},
	})

	handler := middleware.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/public/status", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestAPIKeyMiddleware_SetKeys(t *testing.T) {
	middleware := NewAPIKeyMiddleware(&APIKeyConfig{
		Keys: []string{"old-key"},
	})
	middleware.SetKeys([]string{"new-key"})

	handler := middleware.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/webhook/alert/custom", nil)
	req.Header.Set("X-API-Key", "old-key")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401 for revoked key, got %d", rec.Code)
	}

	req = httptest.NewRequest(http.MethodPost, "/webhook/alert/custom", nil)
	req.Header.Set("X-API-Key", "new-key")
	rec = httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200 for new key, got %d", rec.Code)
	}
}

func TestJWTAuthMiddleware_TokenRoundTrip(t *testing.T) {
	middleware := NewJWTAuthMiddleware(&JWTAuthConfig{
		Enabled:        true,
		AdminEmail:     "admin@example.com",
		JWTSecret:      "test-secret",
		JWTExpiryHours: 1,
	})

	token, err := middleware.GenerateToken("admin@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	claims, err := middleware.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken failed: %v", err)
	}
	if claims.Email != "admin@example.com" {
		t.Errorf("Email = %q, want %q", claims.Email, "admin@example.com")
	}
	if claims.Issuer != "opsimate" {
		t.Errorf("Issuer = %q, want %q", claims.Issuer, "opsimate")
	}
}

func TestJWTAuthMiddleware_RejectsBadToken(t *testing.T) {
	middleware := NewJWTAuthMiddleware(&JWTAuthConfig{
		Enabled:        true,
		JWTSecret:      "test-secret",
		JWTExpiryHours: 1,
	})

	handler := middleware.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	req.Header.Set("Authorization", "Bearer not-a-token")
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusUnauthorized {
		t.Errorf("Expected status 401, got %d", rec.Code)
	}
}

func TestJWTAuthMiddleware_SkipsWebhookPaths(t *testing.T) {
	middleware := NewJWTAuthMiddleware(&JWTAuthConfig{
		Enabled:   true,
		JWTSecret: "test-secret",
		SkipPaths: []string{"/health", "/webhook/*", "/api/auth/*"},
	})

	handler := middleware.Wrap(okHandler())

	req := httptest.NewRequest(http.MethodPost, "/webhook/alert/custom", nil)
	rec := httptest.NewRecorder()

	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Errorf("Expected status 200, got %d", rec.Code)
	}
}

func TestJWTAuthMiddleware_RejectsForeignIssuer(t *testing.T) {
	middleware := NewJWTAuthMiddleware(&JWTAuthConfig{
		Enabled:        true,
		JWTSecret:      "test-secret",
		JWTExpiryHours: 1,
	})

	// Correctly signed, but not issued by this server
	foreign := jwt.NewWithClaims(jwt.SigningMethodHS256, UserClaims{
		Email: "admin@example.com",
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "some-other-service",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	})
	token, err := foreign.SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := middleware.ValidateToken(token); err == nil {
		t.Error("token with a foreign issuer must not validate")
	}
}

func TestJWTAuthMiddleware_UserReachesContext(t *testing.T) {
	middleware := NewJWTAuthMiddleware(&JWTAuthConfig{
		Enabled:        true,
		JWTSecret:      "test-secret",
		JWTExpiryHours: 1,
	})

	token, err := middleware.GenerateToken("admin@example.com")
	if err != nil {
		t.Fatalf("GenerateToken failed: %v", err)
	}

	var gotUser string
	handler := middleware.Wrap(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotUser = GetUserFromContext(r.Context())
		w.WriteHeader(http.StatusOK)
	}))

	req := httptest.NewRequest(http.MethodGet, "/api/providers", nil)
	req.Header.Set("Authorization", "Bearer "+token)
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, want 200", rec.Code)
	}
	if gotUser != "admin@example.com" {
		t.Errorf("context user = %q, want admin@example.com", gotUser)
	}
}

func TestValidateCredentials(t *testing.T) {
	hash, err := HashPassword("correct horse")
	if err != nil {
		t.Fatalf("HashPassword failed: %v", err)
	}

	middleware := NewJWTAuthMiddleware(&JWTAuthConfig{
		AdminEmail:        "admin@example.com",
		AdminPasswordHash: hash,
	})

	if !middleware.ValidateCredentials("admin@example.com", "correct horse") {
		t.Error("Expected valid credentials to pass")
	}
	if middleware.ValidateCredentials("admin@example.com", "wrong") {
		t.Error("Expected wrong password to fail")
	}
	if middleware.ValidateCredentials("other@example.com", "correct horse") {
		t.Error("Expected wrong email to fail")
	}
}
