// Package cache stores upstream search responses between runs. Callers get an
// explicit Cache instance; there is no package-level state.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/vmud/newshub/internal/globaltime"
	"github.com/vmud/newshub/internal/news"
)

type Cache interface {
	Get(ctx context.Context, key string) ([]news.CandidateItem, bool, error)
	Set(ctx context.Context, key string, items []news.CandidateItem, ttl time.Duration) error
}

// Key builds "articles:{provider}:{queryHash}" where the hash covers parts.
func Key(provider string, parts ...string) string {
	sum := sha256.Sum256([]byte(strings.Join(parts, "\x1f")))
	return "articles:" + provider + ":" + hex.EncodeToString(sum[:])
}

type memoryEntry struct {
	items     []news.CandidateItem
	expiresAt time.Time
}

// Memory is an in-process Cache used when no Redis is configured.
type Memory struct {
	mu      sync.Mutex
	entries map[string]memoryEntry
}

func NewMemory() *Memory {
	return &Memory{entries: map[string]memoryEntry{}}
}

func (m *Memory) Get(_ context.Context, key string) ([]news.CandidateItem, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok {
		return nil, false, nil
	}
	if !globaltime.Now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return nil, false, nil
	}
	return append([]news.CandidateItem(nil), entry.items...), true, nil
}

func (m *Memory) Set(_ context.Context, key string, items []news.CandidateItem, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	m.entries[key] = memoryEntry{
		items:     append([]news.CandidateItem(nil), items...),
		expiresAt: globaltime.Now().Add(ttl),
	}
	return nil
}
