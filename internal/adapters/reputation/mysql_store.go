package reputation

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/aruiz/llm-phish-triage/internal/core"
	_ "github.com/go-sql-driver/mysql"
	"go.uber.org/zap"
)

// MySQLStore is a MySQL implementation of the ReputationStore interface
type MySQLStore struct {
	db          *sql.DB
	logger      *zap.Logger
	ttl         time.Duration
	cleanupFreq time.Duration
	stopCh      chan struct{}
}

// NewMySQLStore creates a new MySQL reputation store
func NewMySQLStore(dsn string, ttl, cleanupFreq time.Duration, logger *zap.Logger) (*MySQLStore, error) {
	db, err := sql.Open("mysql", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open MySQL database: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to connect to MySQL database: %w", err)
	}

	_, err = db.Exec(`
		CREATE TABLE IF NOT EXISTS domain_reputation (
			domain VARCHAR(255) PRIMARY KEY,
			trusted BOOLEAN,
			score FLOAT,
			last_seen BIGINT,
			expires_at TIMESTAMP,
			INDEX idx_expires_at (expires_at)
		)
	`)
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create table: %w", err)
	}

	store := &MySQLStore{
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
func (s *MySQLStore) Lookup(ctx context.Context, domain string) (*core.DomainReputation, error) {
	var rep core.DomainReputation

	err := s.db.QueryRowContext(ctx, `
		SELECT domain, trusted, score, last_seen
		FROM domain_reputation
		WHERE domain = ? AND expires_at > NOW()
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
func (s *MySQLStore) Set(ctx context.Context, rep core.DomainReputation) error {
	expiresAt := time.Now().Add(s.ttl)

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO domain_reputation (domain, trusted, score, last_seen, expires_at)
		VALUES (?, ?, ?, ?, ?)
		ON DUPLICATE KEY UPDATE
			trusted = VALUES(trusted),
			score = VALUES(score),
			last_seen = VALUES(last_seen),
			expires_at = VALUES(expires_at)
	`, strings.ToLower(rep.Domain), rep.Trusted, rep.Score, rep.LastSeen, expiresAt.Format("2006-01-02 15:04:05"))

	if err != nil {
		return fmt.Errorf("failed to insert reputation entry: %w", err)
	}

	return nil
}

// Cleanup removes expired entries
func (s *MySQLStore) Cleanup(ctx context.Context) error {
	result, err := s.db.ExecContext(ctx, `
		DELETE FROM domain_reputation
		WHERE expires_at <= NOW()
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
func (s *MySQLStore) startCleanupTask() {
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
func (s *MySQLStore) Stop() {
	close(s.stopCh)
	if err := s.db.Close(); err != nil {
		s.logger.Error("Failed to close MySQL database", zap.Error(err))
	}
}
