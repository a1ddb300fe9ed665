package reputation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aruiz/llm-phish-triage/internal/core"
	_ "github.com/mattn/go-sqlite3"
	"go.uber.org/zap"
)

// SQLiteStore is a SQLite implementation of the ReputationStore interface
type SQLiteStore struct {
	db          *sql.DB
	logger      *zap.Logger
	ttl         time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewSQLiteStore creates a new SQLite reputation store
func NewSQLiteStore(dbPath string, ttl, cleanupFreq time.Duration, logger *zap.Logger) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open SQLite database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_reputation (
			domain TEXT PRIMARY KEY,
			trusted BOOLEAN,
			score REAL,
			last_seen INTEGER,
			expires_at TIMESTAMP
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	// Index on expires_at for faster cleanup
	_, err = db.Exec(`
		CREATE INDEX IF NOT EXISTS idx_expires_at ON domain_reputation(expires_at)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create index: %w", err)
	}

	store := &SQLiteStore{
		db:          db,
		logger:      logger,
		ttl:         ttl,
		cleanupFreq: cleanupFreq,
		stopCh:      make(chan struct{}),
	}

	// Start background cleanup
	go store.startCleanupTask()

	return store, nil
}

// Lookup returns the reputation entry for a domain, or nil when unknown.
func (s *SQLiteStore) Lookup(ctx context.Context, domain string) (*core.DomainReputation, error) {
	var rep core.DomainReputation

	err := s.db.QueryRowContext(ctx, `
		SELECT domain, trusted, score, last_seen
		FROM domain_reputation
		WHERE domain = ? AND expires_at > datetime('now')
	`, strings.ToLower(domain)).Scan(&rep.Domain, &rep.Trusted, &rep.Score, &rep.LastSeen)

	if err != nil {
		if err == sql.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query reputation: %w", err)
	}

	return &rep, nil
}

// Set stores a reputation entry. Used by the feeder, never by the
// classification pipeline.
func (s *SQLiteStore) Set(ctx context.Context, rep core.DomainReputation) error {
	expiresAt := time.Now().Add(s.ttl)

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO domain_reputation (domain, trusted, score, last_seen, expires_at)
		VALUES (?, ?, ?, ?, ?)
	`, strings.ToLower(rep.Domain), rep.Trusted, rep.Score, rep.LastSeen, expiresAt.Format(time.RFC3339))

	if err != nil {
		return fmt.Errorf("failed to insert reputation entry: %w", err)
	}

	return nil
}

// Cleanup removes expired entries
func (s *SQLiteStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM domain_reputation
		WHERE expires_at <= datetime('now')
	`)

	if err != nil {
		return fmt.Errorf("failed to clean up expired entries: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		s.logger.Warn("Failed to get rows affected during cleanup", zap.Error(err))
	} else {
		s.logger.Debug("Cleaned up expired reputation entries", zap.Int64("expired_count", rowsAffected))
	}

	return nil
}

// startCleanupTask starts a background task to clean up expired entries
func (s *SQLiteStore) startCleanupTask() {
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

// Stop stops the background cleanup task and closes the database connection
func (s *SQLiteStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close SQLite database", zap.Error(err))
	}
}
