package middleware

import (
	"context"
	"crypto/rsa"
	"errors"
	"log"
	"net/http"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Roles issued by the identity service
const (
	RoleAdmin     = "ADMIN"
	RoleDietitian = "DIETITIAN"
)

// cacheEntry stores verified JWT claims keyed by JTI (JWT ID)
type cacheEntry struct {
	claims jwt.MapClaims
	exp    int64
}

// AuthMiddleware validates RS256 tokens signed by the identity service and
// enforces role-based access. Verified claims are cached by JTI so repeated
// requests from the same session skip the RSA verification.
type AuthMiddleware struct {
	publicKey   *rsa.PublicKey
	cache       sync.Map
	janitorStop chan bool
}

const cacheCleanupInterval = 10 * time.Minute

// NewAuthMiddleware creates a new JWT authentication middleware.
// publicKey: RSA public key from the identity service (mounted via ConfigMap).
func NewAuthMiddleware(publicKey *rsa.PublicKey) *AuthMiddleware {
	m := &AuthMiddleware{
		publicKey:   publicKey,
		janitorStop: make(chan bool),
	}
	go m.startJanitor(cacheCleanupInterval)
	return m
}

// Context keys for storing user information
type contextKey string

const (
	UserIDKey contextKey = "userID"
	RoleKey   contextKey = "role"
)

// parseToken returns verified claims, consulting the JTI cache first
func (m *AuthMiddleware) parseToken(tokenString string) (jwt.MapClaims, error) {
	// Peek at the claims without verifying to get the cache key
	parser := new(jwt.Parser)
	unverified, _, err := parser.ParseUnverified(tokenString, jwt.MapClaims{})
	if err != nil {
		return nil, err
	}
	claims, ok := unverified.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	exp, err := expiryUnix(claims)
	if err != nil {
		return nil, err
	}
	if time.Now().Unix() > exp {
		return nil, errors.New("token expired")
	}

	jti, _ := claims["jti"].(string)
	if jti != "" {
		if entry, ok := m.cache.Load(jti); ok {
			cached := entry.(cacheEntry)
			if time.Now().Unix() < cached.exp {
				return cached.claims, nil
			}
			m.cache.Delete(jti)
		}
	}

	// Cold path: full RSA verification
	token, err := jwt.Parse(tokenString, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodRSA); !ok {
			return nil, jwt.ErrSignatureInvalid
		}
		return m.publicKey, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, jwt.ErrSignatureInvalid
	}

	verified, ok := token.Claims.(jwt.MapClaims)
	if !ok {
		return nil, errors.New("invalid token claims")
	}

	if jti != "" {
		m.cache.Store(jti, cacheEntry{claims: verified, exp: exp})
	}
	return verified, nil
}

func expiryUnix(claims jwt.MapClaims) (int64, error) {
	switch v := claims["exp"].(type) {
	case float64:
		return int64(v), nil
	case int64:
		return v, nil
	}
	return 0, errors.New("missing expiration claim")
}

// RequireAuth validates the bearer token and adds user id and role to the
// request context
func (m *AuthMiddleware) RequireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		authHeader := r.Header.Get("Authorization")
		if authHeader == "" {
			http.Error(w, "missing authorization header", http.StatusUnauthorized)
			return
		}

		tokenString := strings.TrimPrefix(authHeader, "Bearer ")
		if tokenString == authHeader {
			http.Error(w, "invalid authorization header", http.StatusUnauthorized)
			return
		}

		claims, err := m.parseToken(tokenString)
		if err != nil {
			log.Printf("Token validation failed: %v", err)
			http.Error(w, "invalid or expired token", http.StatusUnauthorized)
			return
		}

		userID, ok := claims["sub"].(string)
		if !ok || userID == "" {
			http.Error(w, "invalid token: missing user ID", http.StatusUnauthorized)
			return
		}
		role, ok := claims["role"].(string)
		if !ok || role == "" {
			http.Error(w, "invalid token: missing role", http.StatusUnauthorized)
			return
		}

		ctx := context.WithValue(r.Context(), UserIDKey, userID)
		ctx = context.WithValue(ctx, RoleKey, role)
		next(w, r.WithContext(ctx))
	}
}

// RequireRole allows access only to users carrying one of the given roles
func (m *AuthMiddleware) RequireRole(next http.HandlerFunc, roles ...string) http.HandlerFunc {
	return m.RequireAuth(func(w http.ResponseWriter, r *http.Request) {
		role, ok := GetRole(r.Context())
		if !ok {
			http.Error(w, "internal server error", http.StatusInternalServerError)
			return
		}
		for _, allowed := range roles {
			if role == allowed {
				next(w, r)
				return
			}
		}
		log.Printf("Role mismatch: required one of %v, got %s", roles, role)
		http.Error(w, "forbidden", http.StatusForbidden)
	})
}

// startJanitor periodically sweeps expired cache entries
func (m *AuthMiddleware) startJanitor(interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			now := time.Now().Unix()
			m.cache.Range(func(key, value interface{}) bool {
				if entry, ok := value.(cacheEntry); ok && now >= entry.exp {
					m.cache.Delete(key)
				}
				return true
			})
		case <-m.janitorStop:
			return
		}
	}
}

// Stop stops the background janitor (for graceful shutdown)
func (m *AuthMiddleware) Stop() {
	close(m.janitorStop)
}

// GetUserID extracts the user id from a request context
func GetUserID(ctx context.Context) (string, bool) {
	userID, ok := ctx.Value(UserIDKey).(string)
	return userID, ok
}

// GetRole extracts the role from a request context
func GetRole(ctx context.Context) (string, bool) {
	role, ok := ctx.Value(RoleKey).(string)
	return role, ok
}
