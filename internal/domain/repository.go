package domain

import "context"

// JobRepository defines persistence for try-on job records.
type JobRepository interface {
	Create(ctx context.Context, job *TryOnJob) error
	UpdateStatus(ctx context.Context, jobID string, status JobStatus, failure *Error, results []TryOnResult) error
	SetProviderJobID(ctx context.Context, jobID, providerJobID string) error
	GetByID(ctx context.Context, jobID string) (*TryOnJob, error)
	ListByStatus(ctx context.Context, status JobStatus, limit int) ([]TryOnJob, error)
}
