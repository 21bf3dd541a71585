package tryon

import (
	"context"
	"strings"

	"atelier/internal/domain"
)

// Stub is a synchronous development provider: it answers every submission
// with the actor image itself, one copy per requested sample, at zero vendor
// cost.
type Stub struct{}

// NewStub returns the development provider.
func NewStub() *Stub { return &Stub{} }

func (s *Stub) Name() string { return "stub" }

func (s *Stub) Submit(ctx context.Context, params domain.TryOnParams) (SubmitOutcome, error) {
	if strings.TrimSpace(params.ModelImage) == "" || strings.TrimSpace(params.GarmentImage) == "" {
		return SubmitOutcome{}, domain.NewError(domain.KindMissingImages, "model and garment images are required", nil)
	}
	samples := params.NumSamples
	if samples < 1 {
		samples = 1
	}
	urls := make([]string, samples)
	for i := range urls {
		urls[i] = params.ModelImage
	}
	return SubmitOutcome{ResultURLs: urls, Async: false}, nil
}

// Status never applies to the stub: it has no asynchronous jobs.
func (s *Stub) Status(ctx context.Context, providerJobID string) (StatusReport, error) {
	return StatusReport{}, domain.NewError(domain.KindUnknown, "stub provider has no asynchronous jobs", nil)
}

var _ Provider = (*Stub)(nil)
