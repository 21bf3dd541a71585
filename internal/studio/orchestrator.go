// Package studio drives the try-on generation pipeline: job lifecycle,
// result caching, and the two-phase preview/finalize workflow.
package studio

import (
	"bytes"
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"image/png"
	"io"
	mrand "math/rand/v2"
	"net/http"
	"strings"
	"time"

	"github.com/disintegration/imaging"
	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"atelier/internal/domain"
	"atelier/internal/imgproc"
	"atelier/internal/providers/edit"
	"atelier/internal/providers/tryon"
	"atelier/internal/retry"
	"atelier/internal/storage"
)

// touchUpInstruction is the fixed cleanup prompt sent to the image-edit
// vendor after a successful generation.
const touchUpInstruction = "Subtly clean up compositing artifacts and smooth the garment drape. Keep pose, face, colors and background unchanged."

const maxResultBytes = 20 << 20

type OrchestratorOptions struct {
	Provider   tryon.Provider
	Repo       domain.JobRepository
	Cache      ResultCache
	Store      storage.ObjectStore
	Editor     edit.Editor
	HTTPClient *http.Client
	Logger     zerolog.Logger
	MaxRetries uint64
	RetryBase  time.Duration
}

// Orchestrator owns the try-on job lifecycle. The repository owns
// persistence; the orchestrator owns which transitions are legal and
// when they happen.
type Orchestrator struct {
	provider   tryon.Provider
	repo       domain.JobRepository
	cache      ResultCache
	store      storage.ObjectStore
	editor     edit.Editor
	httpClient *http.Client
	logger     zerolog.Logger
	maxRetries uint64
	retryBase  time.Duration

	now      func() time.Time
	randSeed func() int64
}

func NewOrchestrator(opts OrchestratorOptions) *Orchestrator {
	cache := opts.Cache
	if cache == nil {
		cache = NewMemoryResultCache()
	}
	client := opts.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}
	maxRetries := opts.MaxRetries
	if maxRetries == 0 {
		maxRetries = 2
	}
	base := opts.RetryBase
	if base <= 0 {
		base = retry.DefaultBase
	}
	return &Orchestrator{
		provider:   opts.Provider,
		repo:       opts.Repo,
		cache:      cache,
		store:      opts.Store,
		editor:     opts.Editor,
		httpClient: client,
		logger:     opts.Logger,
		maxRetries: maxRetries,
		retryBase:  base,
		now:        time.Now,
		randSeed:   func() int64 { return mrand.Int64N(domain.SeedUpperBound) },
	}
}

// CreateJob validates the request, assigns a seed when the caller left
// it unset, and persists the job in the queued state.
func (o *Orchestrator) CreateJob(ctx context.Context, params domain.TryOnParams, createdBy string) (*domain.TryOnJob, error) {
	if strings.TrimSpace(params.ModelImage) == "" || strings.TrimSpace(params.GarmentImage) == "" {
		return nil, domain.NewError(domain.KindMissingImages, "model and garment images are required", nil)
	}
	if params.NumSamples == 0 {
		params.NumSamples = 1
	}
	if params.NumSamples < 1 || params.NumSamples > domain.MaxSamples {
		return nil, domain.NewError(domain.KindInvalidInput, fmt.Sprintf("num_samples must be between 1 and %d", domain.MaxSamples), nil)
	}
	if params.Seed != nil && (*params.Seed < 0 || *params.Seed >= domain.SeedUpperBound) {
		return nil, domain.NewError(domain.KindInvalidInput, "seed out of range", nil)
	}
	if params.Mode == "" {
		params.Mode = domain.ModeBalanced
	}
	if params.Seed == nil {
		seed := o.randSeed()
		params.Seed = &seed
	}

	now := o.now()
	job := &domain.TryOnJob{
		ID:        uuid.NewString(),
		Status:    domain.JobStatusQueued,
		Provider:  o.provider.Name(),
		Settings:  params,
		CreatedBy: createdBy,
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := o.repo.Create(ctx, job); err != nil {
		return nil, err
	}
	return job, nil
}

// Submit moves a queued job forward: a cache hit completes it without a
// vendor call, a synchronous vendor response completes it after results
// are fetched and stored, and an asynchronous response records the
// vendor job id and leaves it running for PollTick.
func (o *Orchestrator) Submit(ctx context.Context, jobID string) (*domain.TryOnJob, error) {
	job, err := o.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status != domain.JobStatusQueued {
		return job, nil
	}

	fingerprint := Fingerprint(job.Settings)
	if cached, ok := o.cache.Get(fingerprint); ok {
		o.logger.Info().Str("job_id", job.ID).Msg("studio: served from result cache")
		return job, o.transition(ctx, job, domain.JobStatusSucceeded, nil, cached)
	}

	outcome, err := retry.Do(ctx, o.maxRetries, o.retryBase, job.ID, o.logger,
		func(ctx context.Context) (tryon.SubmitOutcome, error) {
			return o.provider.Submit(ctx, job.Settings)
		})
	if err != nil {
		if terr := o.transition(ctx, job, domain.JobStatusFailed, domain.AsError(err), nil); terr != nil {
			return job, terr
		}
		return job, err
	}

	if !outcome.Async {
		if err := o.transition(ctx, job, domain.JobStatusRunning, nil, nil); err != nil {
			return job, err
		}
		if err := o.completeWithURLs(ctx, job, fingerprint, outcome.ResultURLs); err != nil {
			return job, err
		}
		return job, nil
	}

	if err := o.repo.SetProviderJobID(ctx, job.ID, outcome.JobID); err != nil {
		return job, err
	}
	job.ProviderJobID = outcome.JobID
	return job, o.transition(ctx, job, domain.JobStatusRunning, nil, nil)
}

// PollTick advances one running asynchronous job by a single status
// check. Only a vendor-reported failure fails the job: an error in the
// status call itself surfaces to the caller with the job left running,
// so a later tick can still land the result. A persistence failure
// after a vendor success likewise leaves the job running; the vendor
// job is terminal and re-queryable, so the next tick repeats
// fetch-and-persist.
func (o *Orchestrator) PollTick(ctx context.Context, jobID string) (*domain.TryOnJob, error) {
	job, err := o.repo.GetByID(ctx, jobID)
	if err != nil {
		return nil, err
	}
	if job.Status.Terminal() || job.ProviderJobID == "" {
		return job, nil
	}

	report, err := retry.Do(ctx, o.maxRetries, o.retryBase, job.ID, o.logger,
		func(ctx context.Context) (tryon.StatusReport, error) {
			return o.provider.Status(ctx, job.ProviderJobID)
		})
	if err != nil {
		o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("studio: status check failed, job stays running")
		return job, err
	}

	switch report.Status {
	case domain.JobStatusQueued, domain.JobStatusRunning:
		return job, nil
	case domain.JobStatusFailed:
		msg := report.ErrorMessage
		if msg == "" {
			msg = "vendor reported failure"
		}
		failure := domain.NewError(domain.KindOf(errors.New(msg)), msg, nil)
		return job, o.transition(ctx, job, domain.JobStatusFailed, failure, nil)
	default:
		if err := o.completeWithURLs(ctx, job, Fingerprint(job.Settings), report.ResultURLs); err != nil {
			o.logger.Warn().Err(err).Str("job_id", job.ID).Msg("studio: persist failed, job stays running")
			return job, nil
		}
		return job, nil
	}
}

// transition applies the state machine before touching the repository.
func (o *Orchestrator) transition(ctx context.Context, job *domain.TryOnJob, to domain.JobStatus, failure *domain.Error, results []domain.TryOnResult) error {
	if !job.Status.CanTransition(to) {
		return fmt.Errorf("studio: illegal transition %s -> %s for job %s: %w", job.Status, to, job.ID, domain.ErrStaleStatus)
	}
	if err := o.repo.UpdateStatus(ctx, job.ID, to, failure, results); err != nil {
		return err
	}
	job.Status = to
	job.Results = results
	if failure != nil {
		job.ErrorMessage = failure.Message
		job.ErrorKind = failure.Kind
	}
	job.UpdatedAt = o.now()
	return nil
}

// completeWithURLs downloads every vendor output, runs the optional
// touch-up, stores the bytes, caches the results, and marks the job
// succeeded.
func (o *Orchestrator) completeWithURLs(ctx context.Context, job *domain.TryOnJob, fingerprint string, urls []string) error {
	if len(urls) == 0 {
		failure := domain.NewError(domain.KindAPIError, "vendor succeeded without any output", nil)
		if terr := o.transition(ctx, job, domain.JobStatusFailed, failure, nil); terr != nil {
			return terr
		}
		return failure
	}

	baseSeed := int64(0)
	if job.Settings.Seed != nil {
		baseSeed = *job.Settings.Seed
	}
	results := make([]domain.TryOnResult, 0, len(urls))
	for i, url := range urls {
		data, err := o.download(ctx, url)
		if err != nil {
			return fmt.Errorf("studio: fetch result %d: %w", i, err)
		}
		data = o.touchUp(ctx, job.ID, data)
		key, err := o.store.Write(ctx, fmt.Sprintf("jobs/%s/%d.png", job.ID, i), data)
		if err != nil {
			return fmt.Errorf("studio: store result %d: %w", i, err)
		}
		stored, err := o.store.URL(ctx, key)
		if err != nil {
			return fmt.Errorf("studio: resolve result url %d: %w", i, err)
		}
		result := domain.TryOnResult{
			ImageURL:  stored,
			Seed:      baseSeed + int64(i),
			Params:    job.Settings,
			CreatedAt: o.now(),
			RequestID: job.ID,
		}
		if job.Settings.ReturnBase64 {
			result.Base64 = base64.StdEncoding.EncodeToString(data)
		}
		results = append(results, result)
	}

	if err := o.transition(ctx, job, domain.JobStatusSucceeded, nil, results); err != nil {
		return err
	}
	o.cache.Set(fingerprint, results)
	return nil
}

func (o *Orchestrator) download(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("http %d fetching %s", resp.StatusCode, url)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxResultBytes))
}

// touchUp runs the pad -> edit -> crop round trip. Any failure falls
// back to the raw vendor bytes; touch-up never fails a job.
func (o *Orchestrator) touchUp(ctx context.Context, jobID string, raw []byte) []byte {
	if o.editor == nil {
		return raw
	}
	img, err := imaging.Decode(bytes.NewReader(raw))
	if err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("studio: touch-up decode failed, keeping raw result")
		return raw
	}
	ratio := imgproc.AspectRatio(img)
	padded := imgproc.PadToSquare(img)
	var buf bytes.Buffer
	if err := png.Encode(&buf, padded); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("studio: touch-up encode failed, keeping raw result")
		return raw
	}
	edited, err := o.editor.Edit(ctx, edit.Request{
		ImagePNG:    buf.Bytes(),
		Instruction: touchUpInstruction,
		Size:        edit.Size1024,
	})
	if err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("studio: touch-up call failed, keeping raw result")
		return raw
	}
	editedImg, err := imaging.Decode(bytes.NewReader(edited))
	if err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("studio: touch-up result unreadable, keeping raw result")
		return raw
	}
	cropped := imgproc.CropToAspectRatio(editedImg, ratio)
	var out bytes.Buffer
	if err := png.Encode(&out, cropped); err != nil {
		o.logger.Warn().Err(err).Str("job_id", jobID).Msg("studio: touch-up crop encode failed, keeping raw result")
		return raw
	}
	return out.Bytes()
}
