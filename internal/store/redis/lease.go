// Package redis keeps run coordination state in Redis.
package redis

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLeaseHeld is returned when another run owns the lease.
var ErrLeaseHeld = errors.New("lease held by another run")

// releaseScript deletes the lease only if it still carries our token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Store handles Redis operations for run coordination
type Store struct {
	client redis.UniversalClient
}

// NewStore creates a new Redis store
func NewStore(client redis.UniversalClient) *Store {
	return &Store{client: client}
}

// Lease is an acquired run lease. It expires on its own after its TTL.
type Lease struct {
	store *Store
	key   string
	token string
}

// Key returns the Redis key of the lease.
func (l *Lease) Key() string { return l.key }

// Token returns the value identifying this holder.
func (l *Lease) Token() string { return l.token }

// AcquireLease takes the lease for profile, or returns ErrLeaseHeld.
func (s *Store) AcquireLease(ctx context.Context, profile string, ttl time.Duration) (*Lease, error) {
	if ttl <= 0 {
		return nil, fmt.Errorf("lease ttl must be > 0, got %v", ttl)
	}

	key := LeaseKey(profile)
	token := uuid.NewString()

	ok, err := s.client.SetNX(ctx, key, token, ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire lease: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrLeaseHeld, key)
	}
	return &Lease{store: s, key: key, token: token}, nil
}

// Release drops the lease if it is still ours. It reports whether a key was deleted.
func (l *Lease) Release(ctx context.Context) (bool, error) {
	n, err := releaseScript.Run(ctx, l.store.client, []string{l.key}, l.token).Int()
	if err != nil {
		return false, fmt.Errorf("failed to release lease: %w", err)
	}
	return n == 1, nil
}

// Holder returns the token currently stored for profile, or "" when free.
func (s *Store) Holder(ctx context.Context, profile string) (string, error) {
	token, err := s.client.Get(ctx, LeaseKey(profile)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return "", nil
		}
		return "", fmt.Errorf("failed to read lease: %w", err)
	}
	return token, nil
}

// Profiles lists the profiles that hold a lease or have a saved outcome.
func (s *Store) Profiles(ctx context.Context) ([]string, error) {
	seen := make(map[string]struct{})
	var profiles []string

	for _, prefix := range []string{KeyPrefixLease, KeyPrefixOutcome} {
		iter := s.client.Scan(ctx, 0, prefix+"*", 100).Iterator()
		for iter.Next(ctx) {
			profile, err := ExtractProfile(iter.Val())
			if err != nil {
				continue
			}
			if _, ok := seen[profile]; ok {
				continue
			}
			seen[profile] = struct{}{}
			profiles = append(profiles, profile)
		}
		if err := iter.Err(); err != nil {
			return nil, fmt.Errorf("failed to scan %s keys: %w", prefix, err)
		}
	}

	sort.Strings(profiles)
	return profiles, nil
}
