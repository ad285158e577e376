package identity

import (
	"context"
	"encoding/hex"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stemsi/practice-backend/internal/config"
	"github.com/stemsi/practice-backend/internal/metrics"
	"golang.org/x/crypto/blake2b"
)

// Resolver is a read-through cache in front of a Provider. Entries live for
// at most ttl and never past the token's own expiry; there is no invalidation.
type Resolver struct {
	provider Provider
	rdb      *redis.Client
	ttl      time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(provider Provider, rdb *redis.Client, ttl time.Duration, log zerolog.Logger) *Resolver {
	return &Resolver{
		provider: provider,
		rdb:      rdb,
		ttl:      ttl,
		now:      time.Now,
		log:      log.With().Str("component", "identity_resolver").Logger(),
	}
}

// UserIDFromToken returns the id of the user that owns token.
func (r *Resolver) UserIDFromToken(ctx context.Context, token string) (uuid.UUID, error) {
	id, err := r.Resolve(ctx, token)
	if err != nil {
		return uuid.Nil, err
	}
	return id.UserID, nil
}

// Resolve returns the identity behind token, consulting the cache first.
// Cache failures degrade to a provider lookup.
func (r *Resolver) Resolve(ctx context.Context, token string) (*Identity, error) {
	if token == "" {
		return nil, ErrTokenRequired
	}
	key := config.CacheKey.IdentityTokenKey(digest(token))

	raw, err := r.rdb.Get(ctx, key).Bytes()
	switch {
	case err == nil:
		var id Identity
		if jsonErr := json.Unmarshal(raw, &id); jsonErr == nil && !r.expired(&id) {
			metrics.IdentityCache.WithLabelValues("hit").Inc()
			return &id, nil
		}
	case !errors.Is(err, redis.Nil):
		r.log.Warn().Err(err).Msg("identity cache read failed")
	}
	metrics.IdentityCache.WithLabelValues("miss").Inc()

	id, err := r.provider.Lookup(ctx, token)
	if err != nil {
		return nil, err
	}
	r.store(ctx, key, id)
	return id, nil
}

func (r *Resolver) store(ctx context.Context, key string, id *Identity) {
	ttl := r.ttl
	if !id.ExpiresAt.IsZero() {
		if left := id.ExpiresAt.Sub(r.now()); left < ttl {
			ttl = left
		}
	}
	if ttl <= 0 {
		return
	}

	raw, err := json.Marshal(id)
	if err != nil {
		return
	}
	if err := r.rdb.Set(ctx, key, raw, ttl).Err(); err != nil {
		r.log.Warn().Err(err).Msg("identity cache write failed")
	}
}

func (r *Resolver) expired(id *Identity) bool {
	return !id.ExpiresAt.IsZero() && !r.now().Before(id.ExpiresAt)
}

// digest keeps raw tokens out of the cache keyspace.
func digest(token string) string {
	sum := blake2b.Sum256([]byte(token))
	return hex.EncodeToString(sum[:])
}
