package models

import "encoding/json"

// AuditResult is the structured output of the accessibility rule engine.
type AuditResult struct {
	Violations []RuleResult `json:"violations"`
	Incomplete []RuleResult `json:"incomplete"`
	Passes     []RuleResult `json:"passes"`
}

// RuleResult is one rule outcome together with the nodes it matched.
type RuleResult struct {
	ID          string       `json:"id"`
	Impact      string       `json:"impact,omitempty"`
	Tags        []string     `json:"tags,omitempty"`
	Help        string       `json:"help"`
	Description string       `json:"description"`
	HelpURL     string       `json:"helpUrl"`
	Nodes       []NodeResult `json:"nodes"`
}

type NodeResult struct {
	HTML           string `json:"html"`
	Impact         string `json:"impact,omitempty"`
	FailureSummary string `json:"failureSummary,omitempty"`
	// Target is kept raw: axe emits nested selector arrays for shadow DOM nodes.
	Target json.RawMessage `json:"target,omitempty"`
}

// IssueCount is the number of rules that failed or could not be decided.
func (r *AuditResult) IssueCount() int {
	if r == nil {
		return 0
	}
	return len(r.Violations) + len(r.Incomplete)
}

// Normalize replaces nil lists with empty ones so the payload always
// serializes as three arrays.
func (r *AuditResult) Normalize() *AuditResult {
	if r.Violations == nil {
		r.Violations = []RuleResult{}
	}
	if r.Incomplete == nil {
		r.Incomplete = []RuleResult{}
	}
	if r.Passes == nil {
		r.Passes = []RuleResult{}
	}
	return r
}
