package service

import "web_accessibility_analyzer/internal/domain/models"

const (
	// perIssuePenalty is subtracted for every violated or incomplete rule.
	perIssuePenalty = 5
	maxScore        = 100
)

// Grade buckets a score for display: good is rendered green, fair yellow, poor red.
type Grade string

const (
	GradeGood Grade = "good"
	GradeFair Grade = "fair"
	GradePoor Grade = "poor"
)

// Score maps an audit result to 0..100: 100 minus 5 per violation or
// incomplete rule, floored at 0.
func Score(result *models.AuditResult) int {
	totalIssues := result.IssueCount()
	if totalIssues == 0 {
		return maxScore
	}
	return max(0, maxScore-perIssuePenalty*totalIssues)
}

func GradeFor(score int) Grade {
	switch {
	case score >= 80:
		return GradeGood
	case score >= 60:
		return GradeFair
	default:
		return GradePoor
	}
}
