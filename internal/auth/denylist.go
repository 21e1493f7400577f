package auth

import (
	"context"
	"sync"
	"time"

	"github.com/aryan2621/Npmmer/internal/repository"
)

var _ repository.TokenDenylist = (*MemoryDenylist)(nil)

// MemoryDenylist is a process-local TokenDenylist, used when no Redis URL is
// configured. Revocations are lost on restart.
type MemoryDenylist struct {
	mu      sync.Mutex
	revoked map[string]time.Time // token ID → token expiry
	now     func() time.Time
}

// NewMemoryDenylist returns an empty denylist.
func NewMemoryDenylist() *MemoryDenylist {
	return &MemoryDenylist{
		revoked: make(map[string]time.Time),
		now:     time.Now,
	}
}

// Revoke records tokenID until expiresAt. Entries whose tokens have expired
// are dropped on each call, which keeps the map bounded by the number of live
// revoked tokens.
func (d *MemoryDenylist) Revoke(_ context.Context, tokenID string, expiresAt time.Time) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := d.now()
	for id, exp := range d.revoked {
		if !exp.After(now) {
			delete(d.revoked, id)
		}
	}
	if expiresAt.After(now) {
		d.revoked[tokenID] = expiresAt
	}
	return nil
}

// IsRevoked reports whether tokenID was revoked and has not yet expired.
func (d *MemoryDenylist) IsRevoked(_ context.Context, tokenID string) (bool, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	exp, ok := d.revoked[tokenID]
	return ok && exp.After(d.now()), nil
}

// Len returns the number of entries currently held.
func (d *MemoryDenylist) Len() int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return len(d.revoked)
}
