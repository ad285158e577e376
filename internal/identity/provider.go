// Package identity resolves bearer tokens to the users that own them.
package identity

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrTokenRequired = errors.New("token required")
	ErrTokenInvalid  = errors.New("token invalid")
)

// Role distinguishes learners from content authors.
type Role string

const (
	RoleLearner Role = "learner"
	RoleAuthor  Role = "author"
)

// Identity is the resolved owner of a token.
type Identity struct {
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	ExpiresAt time.Time `json:"expires_at"`
}

// Provider looks up the identity behind a token. Implementations are the
// source of truth the Resolver caches in front of.
type Provider interface {
	Lookup(ctx context.Context, token string) (*Identity, error)
}

// Claims extends JWT standard claims with the caller's role. The subject is
// the user id.
type Claims struct {
	jwt.RegisteredClaims
	Role Role `json:"role"`
}

// JWTProvider verifies HS256 tokens signed with a shared secret.
type JWTProvider struct {
	secret []byte
}

// NewJWTProvider creates a new JWTProvider.
func NewJWTProvider(secret string) *JWTProvider {
	return &JWTProvider{secret: []byte(secret)}
}

// Issue signs a token for userID. Used by tooling and tests; production
// tokens come from the identity service.
func (p *JWTProvider) Issue(userID uuid.UUID, role Role, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Subject:   userID.String(),
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
		Role: role,
	}
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return token.SignedString(p.secret)
}

// Lookup parses and validates a token.
func (p *JWTProvider) Lookup(_ context.Context, tokenStr string) (*Identity, error) {
	if tokenStr == "" {
		return nil, ErrTokenRequired
	}

	token, err := jwt.ParseWithClaims(tokenStr, &Claims{}, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return p.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, ErrTokenInvalid
	}

	userID, err := uuid.Parse(claims.Subject)
	if err != nil {
		return nil, fmt.Errorf("%w: subject is not a user id", ErrTokenInvalid)
	}

	id := &Identity{UserID: userID, Role: claims.Role}
	if id.Role == "" {
		id.Role = RoleLearner
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	return id, nil
}
