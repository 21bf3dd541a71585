package repo

import (
	"context"
	"sort"
	"sync"
	"time"

	"atelier/internal/domain"
)

// JobRepositoryMemory implements domain.JobRepository in process memory.
// It backs development without a database and the orchestration tests.
type JobRepositoryMemory struct {
	mu   sync.RWMutex
	jobs map[string]*domain.TryOnJob
}

func NewJobRepositoryMemory() *JobRepositoryMemory {
	return &JobRepositoryMemory{jobs: make(map[string]*domain.TryOnJob)}
}

func (r *JobRepositoryMemory) Create(ctx context.Context, job *domain.TryOnJob) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	clone := *job
	r.jobs[job.ID] = &clone
	return nil
}

func (r *JobRepositoryMemory) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, failure *domain.Error, results []domain.TryOnResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.Status = status
	job.UpdatedAt = time.Now()
	if failure != nil {
		job.ErrorMessage = failure.Message
		job.ErrorKind = failure.Kind
	}
	if len(results) > 0 {
		job.Results = append([]domain.TryOnResult(nil), results...)
	}
	return nil
}

func (r *JobRepositoryMemory) SetProviderJobID(ctx context.Context, jobID, providerJobID string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return domain.ErrNotFound
	}
	job.ProviderJobID = providerJobID
	job.UpdatedAt = time.Now()
	return nil
}

func (r *JobRepositoryMemory) GetByID(ctx context.Context, jobID string) (*domain.TryOnJob, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	job, ok := r.jobs[jobID]
	if !ok {
		return nil, domain.ErrNotFound
	}
	clone := *job
	clone.Results = append([]domain.TryOnResult(nil), job.Results...)
	return &clone, nil
}

func (r *JobRepositoryMemory) ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]domain.TryOnJob, error) {
	if limit <= 0 {
		limit = 50
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	var jobs []domain.TryOnJob
	for _, job := range r.jobs {
		if job.Status == status {
			jobs = append(jobs, *job)
		}
	}
	sort.Slice(jobs, func(i, j int) bool { return jobs[i].CreatedAt.Before(jobs[j].CreatedAt) })
	if len(jobs) > limit {
		jobs = jobs[:limit]
	}
	return jobs, nil
}
