package factory

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/aruiz/llm-phish-triage/internal/adapters/reputation"
	"github.com/aruiz/llm-phish-triage/internal/config"
	"github.com/aruiz/llm-phish-triage/internal/core"
	"go.uber.org/zap"
)

// ReputationFactory creates reputation stores based on configuration
type ReputationFactory struct {
	cfg    *config.Config
	logger *zap.Logger
}

// NewReputationFactory creates a new reputation factory
func NewReputationFactory(cfg *config.Config, logger *zap.Logger) *ReputationFactory {
	return &ReputationFactory{
		cfg:    cfg,
		logger: logger,
	}
}

// CreateReputationStore creates a reputation store based on the
// configuration. Returns nil when the store is disabled; the URL
// analyzer treats a nil store as "no reputation data".
func (f *ReputationFactory) CreateReputationStore() (core.ReputationStore, error) {
	if !f.cfg.GetBool("reputation.enabled") {
		return nil, nil
	}

	ttl, err := f.cfg.GetDuration("reputation.ttl")
	if err != nil {
		return nil, fmt.Errorf("invalid reputation TTL: %w", err)
	}
	cleanupFreq, err := f.cfg.GetDuration("reputation.cleanup_frequency")
	if err != nil {
		return nil, fmt.Errorf("invalid reputation cleanup frequency: %w", err)
	}

	storeType := f.cfg.GetString("reputation.type")
	switch storeType {
	case "memory":
		seed := f.cfg.GetStringSlice("reputation.seed_trusted")
		return reputation.NewMemoryStore(seed, ttl, cleanupFreq, f.logger), nil
	case "sqlite":
		sqlitePath := f.cfg.GetString("reputation.sqlite_path")
		if err := os.MkdirAll(filepath.Dir(sqlitePath), 0755); err != nil {
			return nil, fmt.Errorf("failed to create SQLite directory: %w", err)
		}
		return reputation.NewSQLiteStore(sqlitePath, ttl, cleanupFreq, f.logger)
	case "mysql":
		mysqlDSN := f.cfg.GetString("reputation.mysql_dsn")
		return reputation.NewMySQLStore(mysqlDSN, ttl, cleanupFreq, f.logger)
	default:
		return nil, fmt.Errorf("unsupported reputation store type: %s", storeType)
	}
}
