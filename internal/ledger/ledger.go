// Package ledger is the ambient persistence layer backing the
// Authenticator's usage counters and the orchestrator's decision audit
// log and settings store. It is deliberately separate from the
// credential/tunnel/pipeline-run JSON files (spec §6.1-6.3): those are
// the system of record with exact-rewrite semantics; this is observability
// and rate-limit bookkeeping, batched for throughput, generalized from the
// teacher's own GORM+SQLite persistence (internal/models/database.go) and
// its TaskLog/Settings tables.
package ledger

import (
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// UsageRow is the persisted daily usage count for one credential key.
type UsageRow struct {
	Key   string `gorm:"primaryKey;size:512"`
	Day   string `gorm:"primaryKey;size:10"` // YYYY-MM-DD, UTC
	Count int    `gorm:"not null;default:0"`
}

// AuditRow is one entry in the decision audit log: every allow or deny
// the policy evaluator returns (worker requests to /validate, /, any
// unmapped path, and non-orchestrator calls to /orchestrator/*).
// Orchestrator admin calls and authentication failures are not recorded.
// Keyed by a UUID primary key,
// generalized from the teacher's internal/models.Agent.ID/Team.ID.
type AuditRow struct {
	ID        string `gorm:"primaryKey;size:36" json:"id"`
	Timestamp int64  `gorm:"index" json:"timestamp"` // unix seconds, UTC
	Agent     string `gorm:"size:255;index" json:"agent"`
	Tunnel    string `gorm:"size:255;index" json:"tunnel"`
	Path      string `gorm:"size:512" json:"path"`
	Method    string `gorm:"size:16" json:"method"`
	Allowed   bool   `json:"allowed"`
	Reason    string `gorm:"type:text" json:"reason"`
}

// BeforeCreate assigns a UUID primary key if one was not already set.
func (r *AuditRow) BeforeCreate(tx *gorm.DB) error {
	if r.ID == "" {
		r.ID = uuid.NewString()
	}
	return nil
}

// SettingRow is a small operator-tunable key-value pair, generalized from
// the teacher's internal/models.Settings.
type SettingRow struct {
	Key   string `gorm:"primaryKey;size:255"`
	Value string `gorm:"type:text"`
}

// Open opens (creating if absent) a SQLite database at dbPath and
// auto-migrates the ledger tables.
func Open(dbPath string) (*gorm.DB, error) {
	db, err := gorm.Open(sqlite.Open(dbPath), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("opening ledger database: %w", err)
	}

	sqlDB, err := db.DB()
	if err != nil {
		return nil, fmt.Errorf("getting underlying sql.DB: %w", err)
	}
	if _, err := sqlDB.Exec("PRAGMA journal_mode=WAL"); err != nil {
		slog.Warn("failed to enable WAL mode", "error", err)
	}

	if err := db.AutoMigrate(&UsageRow{}, &AuditRow{}, &SettingRow{}); err != nil {
		return nil, fmt.Errorf("auto-migrating ledger tables: %w", err)
	}

	slog.Info("ledger database initialized", "path", dbPath)
	return db, nil
}
