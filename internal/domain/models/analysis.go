package models

import (
	"fmt"
	"time"
)

// Status is the lifecycle state of an Analysis.
type Status string

const (
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusError      Status = "error"
)

func (s Status) Valid() bool {
	switch s {
	case StatusProcessing, StatusCompleted, StatusError:
		return true
	}
	return false
}

// IsTerminal reports whether no further transition is allowed from s.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError
}

// Analysis is one accessibility audit request and its outcome.
// Score and Results are nil unless Status is StatusCompleted.
type Analysis struct {
	ID        string       `json:"id"`
	URL       string       `json:"url"`
	Status    Status       `json:"status"`
	Score     *int         `json:"score"`
	Results   *AuditResult `json:"results"`
	CreatedAt time.Time    `json:"createdAt"`
	UpdatedAt time.Time    `json:"updatedAt"`
}

// Transition moves a processing Analysis into a terminal state.
// Build it with Complete or Fail; the zero value is not a valid transition.
type Transition struct {
	status  Status
	score   int
	results *AuditResult
	at      time.Time
}

// Complete builds the processing -> completed transition.
func Complete(score int, results *AuditResult, at time.Time) (Transition, error) {
	if score < 0 || score > 100 {
		return Transition{}, fmt.Errorf("score %d out of range [0,100]", score)
	}
	if results == nil {
		return Transition{}, fmt.Errorf("completed analysis requires results")
	}
	return Transition{status: StatusCompleted, score: score, results: results, at: at}, nil
}

// Fail builds the processing -> error transition.
func Fail(at time.Time) Transition {
	return Transition{status: StatusError, at: at}
}

func (t Transition) Status() Status { return t.status }

func (t Transition) At() time.Time { return t.at }

// Score returns the score carried by a completed transition, nil otherwise.
func (t Transition) Score() *int {
	if t.status != StatusCompleted {
		return nil
	}
	score := t.score
	return &score
}

// Results returns the audit payload carried by a completed transition, nil otherwise.
func (t Transition) Results() *AuditResult {
	if t.status != StatusCompleted {
		return nil
	}
	return t.results
}

func (t Transition) Valid() bool {
	return t.status.IsTerminal() && !t.at.IsZero()
}

// Apply returns a copy of a with the transition applied.
func (t Transition) Apply(a Analysis) Analysis {
	a.Status = t.status
	a.Score = t.Score()
	a.Results = t.Results()
	a.UpdatedAt = t.at
	return a
}
