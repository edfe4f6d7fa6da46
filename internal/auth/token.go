package auth

import (
	"fmt"
	"strconv"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/sopami/sopami/internal/shared"
)

// TokenVerifier resolves a verified user identifier from a bearer credential.
type TokenVerifier interface {
	Verify(tokenString string) (int64, error)
}

// TokenManager issues and verifies HS256 access tokens. The subject claim
// carries the user id; nothing else about the user is embedded.
type TokenManager struct {
	secret []byte
	ttl    time.Duration
}

// NewTokenManager creates a token manager from a shared secret.
func NewTokenManager(secret string, ttl time.Duration) (*TokenManager, error) {
	if secret == "" {
		return nil, fmt.Errorf("auth: jwt secret is required")
	}
	return &TokenManager{secret: []byte(secret), ttl: ttl}, nil
}

// Issue signs a new access token for the given user id.
func (m *TokenManager) Issue(userID int64) (string, error) {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": strconv.FormatInt(userID, 10),
		"jti": uuid.NewString(),
		"iat": now.Unix(),
		"exp": now.Add(m.ttl).Unix(),
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString(m.secret)
	if err != nil {
		return "", fmt.Errorf("auth: sign token: %w", err)
	}
	return signed, nil
}

// Verify validates an HS256 token and extracts the user id from the subject.
func (m *TokenManager) Verify(tokenString string) (int64, error) {
	tok, err := jwt.Parse(tokenString, func(token *jwt.Token) (any, error) {
		if token.Method == nil || token.Method.Alg() != jwt.SigningMethodHS256.Alg() {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return m.secret, nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}))
	if err != nil {
		return 0, fmt.Errorf("%w: %v", shared.ErrUnauthenticated, err)
	}

	claims, ok := tok.Claims.(jwt.MapClaims)
	if !ok {
		return 0, fmt.Errorf("%w: unsupported claim type %T", shared.ErrUnauthenticated, tok.Claims)
	}
	sub, ok := claims["sub"].(string)
	if !ok {
		return 0, fmt.Errorf("%w: subject claim missing", shared.ErrUnauthenticated)
	}
	userID, err := strconv.ParseInt(sub, 10, 64)
	if err != nil || userID <= 0 {
		return 0, fmt.Errorf("%w: malformed subject %q", shared.ErrUnauthenticated, sub)
	}
	return userID, nil
}

var _ TokenVerifier = (*TokenManager)(nil)
