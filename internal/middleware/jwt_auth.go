package middleware

import (
	"context"
	"crypto/subtle"
	"log"
	"net/http"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"golang.org/x/crypto/bcrypt"

	"github.com/opsimate/opsimate/internal/api"
)

// tokenIssuer is stamped into every session token and enforced on parse
const tokenIssuer = "opsimate"

// UserClaims is the session token payload. Email doubles as the audit actor.
type UserClaims struct {
	Email string `json:"email"`
	jwt.RegisteredClaims
}

// JWTAuthConfig configures the single-admin session scheme. The admin
// account comes from the environment; there is no user table.
type JWTAuthConfig struct {
	// Enabled turns enforcement on. When false every request passes.
	Enabled bool

	// AdminEmail is the only login the server accepts
	AdminEmail string

	// AdminPasswordHash is the bcrypt hash of the admin password
	AdminPasswordHash string

	// JWTSecret signs session tokens
	JWTSecret string

	// JWTExpiryHours bounds the session lifetime
	JWTExpiryHours int

	// SkipPaths lists routes outside the session flow (health, login,
	// webhooks). Entries ending in "*" match by prefix.
	SkipPaths []string
}

// JWTAuthMiddleware guards the dashboard API with bearer-token sessions.
// Configuration is fixed at construction.
type JWTAuthMiddleware struct {
	config *JWTAuthConfig
	skip   skipList
}

// NewJWTAuthMiddleware creates a JWT session middleware from the config.
func NewJWTAuthMiddleware(config *JWTAuthConfig) *JWTAuthMiddleware {
	return &JWTAuthMiddleware{
		config: config,
		skip:   skipList(config.SkipPaths),
	}
}

// HashPassword hashes a password with bcrypt at the default cost.
func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	return string(hash), err
}

// CheckPassword reports whether password matches the bcrypt hash.
func CheckPassword(password, hash string) bool {
	return bcrypt.CompareHashAndPassword([]byte(hash), []byte(password)) == nil
}

// GenerateToken issues an HS256 session token for the given login.
func (m *JWTAuthMiddleware) GenerateToken(email string) (string, error) {
	now := time.Now()
	claims := UserClaims{
		Email: email,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   email,
			Issuer:    tokenIssuer,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Duration(m.config.JWTExpiryHours) * time.Hour)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(m.config.JWTSecret))
}

// ValidateToken checks the signature, expiry, signing method, and issuer of
// a session token and returns its claims.
func (m *JWTAuthMiddleware) ValidateToken(tokenString string) (*UserClaims, error) {
	var claims UserClaims
	_, err := jwt.ParseWithClaims(tokenString, &claims,
		func(*jwt.Token) (interface{}, error) {
			return []byte(m.config.JWTSecret), nil
		},
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithIssuer(tokenIssuer),
	)
	if err != nil {
		return nil, err
	}
	return &claims, nil
}

// ValidateCredentials checks a login attempt against the configured admin
// account. The email comparison is constant time so probing for the admin
// address is no faster than probing passwords.
func (m *JWTAuthMiddleware) ValidateCredentials(email, password string) bool {
	if subtle.ConstantTimeCompare([]byte(email), []byte(m.config.AdminEmail)) != 1 {
		return false
	}
	return CheckPassword(password, m.config.AdminPasswordHash)
}

// Wrap enforces a valid session token on every route not on the skip list.
func (m *JWTAuthMiddleware) Wrap(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if !m.config.Enabled || m.skip.matches(r.URL.Path) {
			next.ServeHTTP(w, r)
			return
		}

		token := bearerToken(r)
		if token == "" {
			m.unauthorized(w, "Missing authentication token")
			return
		}

		claims, err := m.ValidateToken(token)
		if err != nil {
			log.Printf("JWTAuthMiddleware: Invalid token from %s: %v", r.RemoteAddr, err)
			m.unauthorized(w, "Invalid or expired token")
			return
		}

		next.ServeHTTP(w, r.WithContext(withUser(r.Context(), claims.Email)))
	})
}

func (m *JWTAuthMiddleware) unauthorized(w http.ResponseWriter, message string) {
	w.Header().Set("WWW-Authenticate", "Bearer realm=\"API\"")
	api.RespondError(w, http.StatusUnauthorized, message)
}

type userContextKey struct{}

func withUser(ctx context.Context, email string) context.Context {
	return context.WithValue(ctx, userContextKey{}, email)
}

// GetUserFromContext returns the authenticated email from the request
// context, or an empty string when auth is disabled or skipped.
func GetUserFromContext(ctx context.Context) string {
	email, _ := ctx.Value(userContextKey{}).(string)
	return email
}
