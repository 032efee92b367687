package auth

import (
	"context"
	"sync"
)

// Blacklist is the revocation set consulted before any signature check.
// Entries are never evicted, even after the token itself has expired.
type Blacklist interface {
	Add(ctx context.Context, token string) error
	Contains(ctx context.Context, token string) (bool, error)
}

// MemoryBlacklist is a lock-guarded in-process set.  It is empty at startup
// and lost on restart.
type MemoryBlacklist struct {
	mu     sync.RWMutex
	tokens map[string]struct{}
}

func NewMemoryBlacklist() *MemoryBlacklist {
	return &MemoryBlacklist{tokens: make(map[string]struct{})}
}

func (b *MemoryBlacklist) Add(_ context.Context, token string) error {
	b.mu.Lock()
	b.tokens[token] = struct{}{}
	b.mu.Unlock()
	return nil
}

func (b *MemoryBlacklist) Contains(_ context.Context, token string) (bool, error) {
	b.mu.RLock()
	_, ok := b.tokens[token]
	b.mu.RUnlock()
	return ok, nil
}

// Len reports how many tokens have been revoked.
func (b *MemoryBlacklist) Len() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.tokens)
}
