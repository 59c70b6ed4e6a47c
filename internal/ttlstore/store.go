// Package ttlstore provides the shared key-value store with per-key expiry
// used for rate windows, blocks and pending challenges.
package ttlstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/munai7/TrustGate/internal/models"
)

// ErrKeyNotFound is returned when a key does not exist or has expired
var ErrKeyNotFound = errors.New("key not found")

// Store is implemented by RedisStore and MemoryStore. Every operation is
// atomic per key; there are no cross-key transactions.
type Store interface {
	// WindowAdmit prunes members of the sliding window at key that are older
	// than window, counts what remains, records now as a new unique member and
	// refreshes the key expiry to ttl. It returns the count before recording.
	WindowAdmit(ctx context.Context, key string, now time.Time, window, ttl time.Duration) (int64, error)

	Set(ctx context.Context, key, value string, ttl time.Duration) error
	Get(ctx context.Context, key string) (string, error)
	// GetDel reads and removes key in one step
	GetDel(ctx context.Context, key string) (string, error)
	Exists(ctx context.Context, key string) (bool, error)
	// TTL returns the remaining lifetime of key, or ErrKeyNotFound
	TTL(ctx context.Context, key string) (time.Duration, error)
	// Delete reports whether key existed
	Delete(ctx context.Context, key string) (bool, error)

	// AddMember adds member to the set at key and extends the set expiry to ttl
	AddMember(ctx context.Context, key, member string, ttl time.Duration) error
	Members(ctx context.Context, key string) ([]string, error)
	RemoveMembers(ctx context.Context, key string, members ...string) error
	// ScanKeys lists keys beginning with prefix
	ScanKeys(ctx context.Context, prefix string) ([]string, error)

	Ping(ctx context.Context) error
}

// unavailable wraps a backend failure so callers can tell it from a business denial
func unavailable(op string, err error) error {
	return fmt.Errorf("%w: ttlstore %s: %w", models.ErrDependencyUnavailable, op, err)
}
