package reputation

import (
	"context"
	"strings"
	"sync"
	"time"

	"github.com/aruiz/llm-phish-triage/internal/core"
	"go.uber.org/zap"
)

type memoryEntry struct {
	rep       core.DomainReputation
	expiresAt time.Time
}

// MemoryStore is an in-memory implementation of the ReputationStore
// interface. Entries arrive from an external feeder or the config seed
// list; the pipeline only reads.
type MemoryStore struct {
	entries     map[string]*memoryEntry
	mu          sync.RWMutex
	logger      *zap.Logger
	ttl         time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMemoryStore creates a new in-memory reputation store. seedTrusted
// domains are preloaded as trusted entries that never expire.
func NewMemoryStore(seedTrusted []string, ttl, cleanupFreq time.Duration, logger *zap.Logger) *MemoryStore {
	store := &MemoryStore{
		entries:     make(map[string]*memoryEntry),
		logger:      logger,
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	for _, domain := range seedTrusted {
		store.entries[strings.ToLower(domain)] = &memoryEntry{
			rep: core.DomainReputation{
				Domain:  strings.ToLower(domain),
				Trusted: true,
				Score:   1.0,
			},
		}
	}

	// Start background cleanup
	go store.startCleanupTask()

	return store
}

// Lookup returns the reputation entry for a domain, or nil when unknown.
func (s *MemoryStore) Lookup(ctx context.Context, domain string) (*core.DomainReputation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entry, ok := s.entries[strings.ToLower(domain)]
	if !ok {
		return nil, nil
	}
	if !entry.expiresAt.IsZero() && time.Now().After(entry.expiresAt) {
		return nil, nil
	}

	rep := entry.rep
	return &rep, nil
}

// Set stores a reputation entry. Used by the feeder, never by the
// classification pipeline.
func (s *MemoryStore) Set(rep core.DomainReputation) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.entries[strings.ToLower(rep.Domain)] = &memoryEntry{
		rep:       rep,
		expiresAt: time.Now().Add(s.ttl),
	}
}

// Cleanup removes expired entries
func (s *MemoryStore) Cleanup(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := time.Now()
	expiredCount := 0

	for domain, entry := range s.entries {
		if !entry.expiresAt.IsZero() && now.After(entry.expiresAt) {
			delete(s.entries, domain)
			expiredCount++
		}
	}

	s.logger.Debug("Cleaned up expired reputation entries", zap.Int("expired_count", expiredCount))
	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (s *MemoryStore) startCleanupTask() {
	ticker := time.NewTicker(s.cleanupFreq)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			if err := s.Cleanup(context.Background()); err != nil {
				s.logger.Error("Failed to clean up reputation store", zap.Error(err))
			}
		case <-s.stopCh:
			return
		}
	}
}

// Stop stops the background cleanup task
func (s *MemoryStore) Stop() {
	close(s.stopCh)
}
