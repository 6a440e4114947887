package repository

import (
    "context"
    "database/sql"
    "encoding/json"
    "log"

    "github.com/cmis-dev/event-registration/internal/model"
)

// AuditRepo appends rows to the audit_logs table.  Auditing is
// best-effort: a failed insert is logged and swallowed so that it can
// never block or fail the action being audited.
type AuditRepo struct {
    db *sql.DB
}

// NewAuditRepo returns a new AuditRepo bound to the given database.
func NewAuditRepo(db *sql.DB) *AuditRepo { return &AuditRepo{db: db} }

// Record appends one audit entry.  actorID may be zero for system
// actions; details is serialized to JSON.  Failures are not returned.
func (r *AuditRepo) Record(ctx context.Context, actorID uint64, action string, details map[string]any) {
    if details == nil {
        details = map[string]any{}
    }
    body, err := json.Marshal(details)
    if err != nil {
        log.Printf("audit: marshal details for %s failed: %v", action, err)
        return
    }
    entry := model.AuditLog{Action: action, Details: string(body)}
    if actorID != 0 {
        entry.UserID = &actorID
    }
    if err := r.insert(ctx, &entry); err != nil {
        log.Printf("audit: record %s failed: %v", action, err)
    }
}

func (r *AuditRepo) insert(ctx context.Context, entry *model.AuditLog) error {
    res, err := r.db.ExecContext(ctx,
        `INSERT INTO audit_logs (user_id, action, details) VALUES (?, ?, ?)`,
        nullU64(entry.UserID), entry.Action, entry.Details)
    if err != nil {
        return err
    }
    id, err := res.LastInsertId()
    if err != nil {
        return err
    }
    entry.ID = uint64(id)
    return nil
}
