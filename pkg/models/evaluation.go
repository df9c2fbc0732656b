package models

import "time"

// EvaluationStatus is the outcome of a single rule evaluation
type EvaluationStatus string

const (
	EvaluationStatusPass  EvaluationStatus = "pass"
	EvaluationStatusFail  EvaluationStatus = "fail"
	EvaluationStatusError EvaluationStatus = "error"
)

// EvaluationResult is the verdict for one rule over one document set.
// Details records every resolved operand path and its value (including nulls)
// so failures can be audited without re-running the rule.
type EvaluationResult struct {
	RuleID  string           `json:"rule_id"`
	Result  EvaluationStatus `json:"result"`
	Reason  *string          `json:"reason"`
	Details map[string]any   `json:"details"`
}

// EvaluationSummary aggregates a batch of results
type EvaluationSummary struct {
	TotalRules  int     `json:"total_rules"`
	PassedRules int     `json:"passed_rules"`
	FailedRules int     `json:"failed_rules"`
	ErrorRules  int     `json:"error_rules"`
	PassRate    float64 `json:"pass_rate"`
}

// Summarize computes the summary for a batch of results.
func Summarize(results []EvaluationResult) EvaluationSummary {
	s := EvaluationSummary{TotalRules: len(results)}
	for _, r := range results {
		switch r.Result {
		case EvaluationStatusPass:
			s.PassedRules++
		case EvaluationStatusFail:
			s.FailedRules++
		case EvaluationStatusError:
			s.ErrorRules++
		}
	}
	if s.TotalRules > 0 {
		s.PassRate = float64(s.PassedRules) / float64(s.TotalRules) * 100
	}
	return s
}

// EvaluationReport is a persisted batch evaluation
type EvaluationReport struct {
	ID          string             `json:"id" db:"id"`
	TenantID    string             `json:"tenant_id" db:"tenant_id"`
	DocumentIDs []string           `json:"document_ids" db:"-"`
	Results     []EvaluationResult `json:"results" db:"-"`
	Summary     EvaluationSummary  `json:"summary" db:"-"`
	CreatedAt   time.Time          `json:"created_at" db:"created_at"`
}
