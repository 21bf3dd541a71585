// Package tryon abstracts virtual try-on vendors behind a uniform Provider
// interface so the orchestrator never sees vendor-specific wire shapes.
package tryon

import (
	"context"

	"atelier/internal/domain"
)

// SubmitOutcome is the normalized response to a generation submission.
// Synchronous vendors return result URLs directly; asynchronous ones return a
// vendor job id to poll.
type SubmitOutcome struct {
	JobID      string
	ResultURLs []string
	Async      bool
}

// StatusReport is the normalized response to a status poll.
type StatusReport struct {
	Status       domain.JobStatus
	ResultURLs   []string
	ErrorMessage string
}

// Provider is the contract implemented by all try-on vendors.
type Provider interface {
	Name() string
	Submit(ctx context.Context, params domain.TryOnParams) (SubmitOutcome, error)
	Status(ctx context.Context, providerJobID string) (StatusReport, error)
}
