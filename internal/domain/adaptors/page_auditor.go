package adaptors

import (
	"context"

	"web_accessibility_analyzer/internal/domain/models"
)

// PageAuditor hands out audit sessions. Each session owns its automation
// resources until Close is called.
type PageAuditor interface {
	NewSession(ctx context.Context) (AuditSession, error)
}

type AuditSession interface {
	Audit(ctx context.Context, url string) (*models.AuditResult, error)
	Close() error
}
