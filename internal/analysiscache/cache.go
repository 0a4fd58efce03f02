// Package analysiscache caches completed mediation decisions keyed by a
// message fingerprint, so semantically repeated input does not burn a
// second completion call.
//
// The cache is strictly a cost optimization: only true model verdicts go
// in (never transport failures, parse failures, or safety fallbacks), and
// an expired or missing entry simply means the orchestrator runs the full
// pipeline again.
package analysiscache

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"strings"
	"sync"
	"time"

	"github.com/liaizen/mediation-plane/pkg/models"
)

// Cache is the decision-cache contract the orchestrator depends on.
// Implementations: Memory (in-process, default) and Redis (shared).
type Cache interface {
	// Get returns the cached decision for a fingerprint, or ok=false on a
	// miss or expired entry.
	Get(ctx context.Context, fingerprint string) (*models.Decision, bool, error)
	// Set stores a decision under a fingerprint.
	Set(ctx context.Context, fingerprint string, d *models.Decision) error
}

// Fingerprint derives the cache key for a message. Text is lowercased and
// whitespace-trimmed so trivial formatting differences hit the same entry;
// sender and receiver are part of the key because the same words carry
// different risk depending on who says them to whom.
func Fingerprint(text, senderID, receiverID string) string {
	input := strings.ToLower(strings.TrimSpace(text)) + "|" +
		strings.ToLower(senderID) + "|" + strings.ToLower(receiverID)
	sum := md5.Sum([]byte(input))
	return hex.EncodeToString(sum[:])
}

// ── In-Process Cache ────────────────────────────────────────

type entry struct {
	decision   *models.Decision
	insertedAt time.Time
}

// Memory is a thread-safe in-process Cache with TTL expiry and
// oldest-entry eviction at capacity.
type Memory struct {
	mu      sync.Mutex
	entries map[string]entry
	maxAge  time.Duration
	maxSize int
	now     func() time.Time
}

// NewMemory creates an in-process cache.
func NewMemory(maxAge time.Duration, maxSize int) *Memory {
	return &Memory{
		entries: make(map[string]entry),
		maxAge:  maxAge,
		maxSize: maxSize,
		now:     time.Now,
	}
}

// Get returns the cached decision, evicting it first if it has outlived
// the configured max age.
func (m *Memory) Get(_ context.Context, fingerprint string) (*models.Decision, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	e, ok := m.entries[fingerprint]
	if !ok {
		return nil, false, nil
	}
	if m.now().Sub(e.insertedAt) > m.maxAge {
		delete(m.entries, fingerprint)
		return nil, false, nil
	}
	return e.decision, true, nil
}

// Set stores a decision. At capacity the single oldest entry by insertion
// time is evicted first.
func (m *Memory) Set(_ context.Context, fingerprint string, d *models.Decision) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[fingerprint]; !exists && len(m.entries) >= m.maxSize {
		var oldestKey string
		var oldestTime time.Time
		first := true
		for k, e := range m.entries {
			if first || e.insertedAt.Before(oldestTime) {
				oldestKey = k
				oldestTime = e.insertedAt
				first = false
			}
		}
		if oldestKey != "" {
			delete(m.entries, oldestKey)
		}
	}

	m.entries[fingerprint] = entry{decision: d, insertedAt: m.now()}
	return nil
}

// Len reports the current entry count.
func (m *Memory) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}
