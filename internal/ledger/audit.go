package ledger

import (
	"log/slog"
	"time"

	"gorm.io/gorm"
)

// AuditLog records every policy decision for later inspection via the
// supplemental GET /orchestrator/audit endpoint (SPEC_FULL.md
// "Supplemental features" #1).
type AuditLog struct {
	db *gorm.DB
}

// NewAuditLog wraps db for audit logging.
func NewAuditLog(db *gorm.DB) *AuditLog {
	return &AuditLog{db: db}
}

// Record writes one decision. Failures are logged, not propagated — the
// audit log is an ambient concern and must never block or fail a
// request's own allow/deny outcome.
func (a *AuditLog) Record(agent, tunnel, method, path string, allowed bool, reason string) {
	row := AuditRow{
		Timestamp: time.Now().UTC().Unix(),
		Agent:     agent,
		Tunnel:    tunnel,
		Path:      path,
		Method:    method,
		Allowed:   allowed,
		Reason:    reason,
	}
	if err := a.db.Create(&row).Error; err != nil {
		slog.Warn("audit log write failed", "error", err)
	}
}

// Recent returns up to limit of the most recent audit rows, optionally
// filtered by tunnel and/or agent.
func (a *AuditLog) Recent(tunnel, agent string, limit int) ([]AuditRow, error) {
	q := a.db.Order("timestamp desc")
	if tunnel != "" {
		q = q.Where("tunnel = ?", tunnel)
	}
	if agent != "" {
		q = q.Where("agent = ?", agent)
	}
	if limit <= 0 || limit > 1000 {
		limit = 100
	}
	var rows []AuditRow
	if err := q.Limit(limit).Find(&rows).Error; err != nil {
		return nil, err
	}
	return rows, nil
}
