package adaptors

import (
	"context"

	"web_accessibility_analyzer/internal/domain/models"
)

// AnalysisStore persists Analysis records.
type AnalysisStore interface {
	Create(ctx context.Context, url string) (*models.Analysis, error)
	List(ctx context.Context) ([]*models.Analysis, error)
	Get(ctx context.Context, id string) (*models.Analysis, error)
	Update(ctx context.Context, id string, t models.Transition) error
	Delete(ctx context.Context, id string) error
	Ping(ctx context.Context) error
}
