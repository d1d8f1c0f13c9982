package adaptors

import "web_accessibility_analyzer/internal/domain/models"

const (
	EventAnalysisCreated = "analysis.created"
	EventAnalysisUpdated = "analysis.updated"
	EventAnalysisDeleted = "analysis.deleted"
)

// AnalysisNotifier receives analysis changes for push delivery. Notify must not block.
type AnalysisNotifier interface {
	Notify(event string, analysis *models.Analysis)
}

// NopNotifier discards every notification.
type NopNotifier struct{}

func (NopNotifier) Notify(string, *models.Analysis) {}
