package repo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"atelier/internal/domain"
)

// JobRepositoryPG implements domain.JobRepository on PostgreSQL.
type JobRepositoryPG struct {
	pool *pgxpool.Pool
}

// NewJobRepository creates a job repository backed by PostgreSQL.
func NewJobRepository(pool *pgxpool.Pool) *JobRepositoryPG {
	return &JobRepositoryPG{pool: pool}
}

// Create inserts a new try-on job record.
func (r *JobRepositoryPG) Create(ctx context.Context, job *domain.TryOnJob) error {
	settings, err := json.Marshal(job.Settings)
	if err != nil {
		return fmt.Errorf("repo: marshal settings: %w", err)
	}
	query := `
INSERT INTO tryon_jobs (id, status, provider, provider_job_id, settings_json, error_message, error_kind, created_by, created_at, updated_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10);
`
	_, err = r.pool.Exec(ctx, query,
		job.ID,
		job.Status,
		job.Provider,
		job.ProviderJobID,
		settings,
		job.ErrorMessage,
		job.ErrorKind,
		job.CreatedBy,
		job.CreatedAt,
		job.UpdatedAt,
	)
	return err
}

// UpdateStatus updates job status and optionally failure/result payloads.
func (r *JobRepositoryPG) UpdateStatus(ctx context.Context, jobID string, status domain.JobStatus, failure *domain.Error, results []domain.TryOnResult) error {
	var resultsJSON []byte
	if len(results) > 0 {
		var err error
		resultsJSON, err = json.Marshal(results)
		if err != nil {
			return fmt.Errorf("repo: marshal results: %w", err)
		}
	}
	var errMsg, errKind *string
	if failure != nil {
		errMsg = &failure.Message
		kind := string(failure.Kind)
		errKind = &kind
	}
	query := `
UPDATE tryon_jobs
SET status = $2,
    updated_at = NOW(),
    error_message = COALESCE($3, error_message),
    error_kind = COALESCE($4, error_kind),
    results_json = COALESCE($5, results_json)
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, status, errMsg, errKind, resultsJSON)
	return err
}

// SetProviderJobID records the vendor-side job identifier.
func (r *JobRepositoryPG) SetProviderJobID(ctx context.Context, jobID, providerJobID string) error {
	query := `
UPDATE tryon_jobs
SET provider_job_id = $2,
    updated_at = NOW()
WHERE id = $1;
`
	_, err := r.pool.Exec(ctx, query, jobID, providerJobID)
	return err
}

// GetByID fetches a job by its identifier.
func (r *JobRepositoryPG) GetByID(ctx context.Context, jobID string) (*domain.TryOnJob, error) {
	query := `
SELECT id, status, provider, provider_job_id, settings_json, results_json, error_message, error_kind, created_by, created_at, updated_at
FROM tryon_jobs
WHERE id = $1;
`
	row := r.pool.QueryRow(ctx, query, jobID)
	job, err := scanJob(row)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrNotFound
		}
		return nil, err
	}
	return job, nil
}

// ListByStatus returns up to limit jobs in the given state, oldest first.
// The sweeper uses it to find asynchronous jobs orphaned by expired
// client sessions.
func (r *JobRepositoryPG) ListByStatus(ctx context.Context, status domain.JobStatus, limit int) ([]domain.TryOnJob, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
SELECT id, status, provider, provider_job_id, settings_json, results_json, error_message, error_kind, created_by, created_at, updated_at
FROM tryon_jobs
WHERE status = $1
ORDER BY created_at ASC
LIMIT $2;
`
	rows, err := r.pool.Query(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var jobs []domain.TryOnJob
	for rows.Next() {
		job, err := scanJob(rows)
		if err != nil {
			return nil, err
		}
		jobs = append(jobs, *job)
	}
	return jobs, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanJob(row rowScanner) (*domain.TryOnJob, error) {
	var (
		job         domain.TryOnJob
		settingsRaw []byte
		resultsRaw  []byte
	)
	if err := row.Scan(
		&job.ID,
		&job.Status,
		&job.Provider,
		&job.ProviderJobID,
		&settingsRaw,
		&resultsRaw,
		&job.ErrorMessage,
		&job.ErrorKind,
		&job.CreatedBy,
		&job.CreatedAt,
		&job.UpdatedAt,
	); err != nil {
		return nil, err
	}
	if len(settingsRaw) > 0 {
		if err := json.Unmarshal(settingsRaw, &job.Settings); err != nil {
			return nil, fmt.Errorf("repo: unmarshal settings: %w", err)
		}
	}
	if len(resultsRaw) > 0 {
		if err := json.Unmarshal(resultsRaw, &job.Results); err != nil {
			return nil, fmt.Errorf("repo: unmarshal results: %w", err)
		}
	}
	return &job, nil
}
