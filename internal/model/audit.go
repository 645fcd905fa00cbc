package model

import "time"

// AuditLog records the outcome of a mutating operation. One row is
// written per attempt, successful or not, by the audit middleware.
type AuditLog struct {
	ID           uint64    // audit_logs.id
	UserID       *uint64   // audit_logs.user_id (nullable, SET NULL on user delete)
	Service      string    // audit_logs.service
	Action       string    // audit_logs.action
	ResourceType string    // audit_logs.resource_type
	ResourceID   *uint64   // audit_logs.resource_id (nullable)
	Success      bool      // audit_logs.success
	ErrorMessage *string   // audit_logs.error_message (nullable)
	IPAddress    string    // audit_logs.ip_address
	UserAgent    string    // audit_logs.user_agent
	CreatedAt    time.Time // audit_logs.created_at
}
