package dto

import (
	"time"

	"github.com/stackbill/stackbill/internal/types"
)

// BillingRunRequest is the optional body of the daily billing endpoint. The
// as_of override exists for replays and tests; production cron sends an
// empty body and the run anchors to today in the billing timezone.
type BillingRunRequest struct {
	AsOf string `json:"as_of,omitempty"`
}

// AsOfDay parses the override, or returns the zero day when absent.
func (r *BillingRunRequest) AsOfDay() (types.BillingDay, error) {
	if r == nil || r.AsOf == "" {
		return types.BillingDay{}, nil
	}
	return types.ParseBillingDay(r.AsOf)
}

// Phase result outcomes.
const (
	OutcomeSucceeded = "succeeded"
	OutcomeFailed    = "failed"
	OutcomeSkipped   = "skipped"
)

// SubscriptionResult is the outcome of processing one subscription within a
// phase.
type SubscriptionResult struct {
	TenantID       string `json:"tenant_id"`
	SubscriptionID string `json:"subscription_id"`
	Action         string `json:"action"`
	Outcome        string `json:"outcome"`
	Error          string `json:"error,omitempty"`
}

// PhaseSummary aggregates one phase of the daily run.
type PhaseSummary struct {
	Phase     string               `json:"phase"`
	Processed int                  `json:"processed"`
	Succeeded int                  `json:"succeeded"`
	Failed    int                  `json:"failed"`
	Skipped   int                  `json:"skipped"`
	Results   []SubscriptionResult `json:"results,omitempty"`
}

// Add folds one result into the phase counters.
func (p *PhaseSummary) Add(result SubscriptionResult) {
	p.Processed++
	switch result.Outcome {
	case OutcomeSucceeded:
		p.Succeeded++
	case OutcomeFailed:
		p.Failed++
	default:
		p.Skipped++
	}
	p.Results = append(p.Results, result)
}

// BillingRunSummary is the full report of one daily run.
type BillingRunSummary struct {
	RunID       string           `json:"run_id"`
	AsOf        types.BillingDay `json:"as_of"`
	StartedAt   time.Time        `json:"started_at"`
	CompletedAt time.Time        `json:"completed_at"`
	Phases      []PhaseSummary   `json:"phases"`
}

// TotalFailed counts failures across all phases.
func (s *BillingRunSummary) TotalFailed() int {
	total := 0
	for _, p := range s.Phases {
		total += p.Failed
	}
	return total
}
