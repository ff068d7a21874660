package deploy

import (
	"fmt"
	"time"

	"github.com/nerrad567/moku-core/internal/model"
)

// SlotOutcome is what happened to one slot during a deployment.
type SlotOutcome string

// Slot outcomes.
const (
	OutcomeDeployed     SlotOutcome = "deployed"
	OutcomeSkipped      SlotOutcome = "skipped"
	OutcomeFailed       SlotOutcome = "failed"
	OutcomeNotAttempted SlotOutcome = "not_attempted"
)

// Status is the overall result of a deployment.
type Status string

// Deployment statuses.
const (
	// StatusDeployed means every slot was deployed or intentionally
	// skipped and the routing (if any) was applied.
	StatusDeployed Status = "deployed"

	// StatusPartialSuccess means every slot succeeded but routing failed.
	StatusPartialSuccess Status = "partial_success"

	// StatusError means a slot failed and the run stopped.
	StatusError Status = "error"
)

// SlotResult is the per-slot entry of a Report.
type SlotResult struct {
	Slot       int              `json:"slot"`
	Instrument model.Instrument `json:"instrument"`
	Outcome    SlotOutcome      `json:"outcome"`
	Message    string           `json:"message,omitempty"`
}

// Report describes a deployment run.
type Report struct {
	ID                string       `json:"id"`
	Device            string       `json:"device"`
	Platform          string       `json:"platform"`
	Status            Status       `json:"status"`
	Slots             []SlotResult `json:"slots"`
	RoutingDeclared   int          `json:"routing_declared"`
	RoutingConfigured bool         `json:"routing_configured"`
	Error             string       `json:"error,omitempty"`
	StartedAt         time.Time    `json:"started_at"`
	CompletedAt       time.Time    `json:"completed_at"`
}

// SlotsWith returns the slot numbers with the given outcome, ascending.
func (r *Report) SlotsWith(outcome SlotOutcome) []int {
	out := []int{}
	for _, s := range r.Slots {
		if s.Outcome == outcome {
			out = append(out, s.Slot)
		}
	}
	return out
}

// SlotsConfigured returns the slots that were deployed.
func (r *Report) SlotsConfigured() []int {
	return r.SlotsWith(OutcomeDeployed)
}

// Duration returns how long the run took.
func (r *Report) Duration() time.Duration {
	return r.CompletedAt.Sub(r.StartedAt)
}

// Err returns nil for a full deployment and an error wrapping
// ErrPartialDeployment otherwise.
func (r *Report) Err() error {
	switch r.Status {
	case StatusDeployed:
		return nil
	case StatusPartialSuccess:
		return fmt.Errorf("%w: slots %v deployed, routing not applied: %s", ErrPartialDeployment, r.SlotsConfigured(), r.Error)
	default:
		return fmt.Errorf("%w: slots %v deployed before failure: %s", ErrPartialDeployment, r.SlotsConfigured(), r.Error)
	}
}
