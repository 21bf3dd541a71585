package studio

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"atelier/internal/domain"
)

// SessionStore holds ephemeral studio sessions. Sessions are never
// durable; losing them on restart is by contract.
type SessionStore interface {
	Get(id string) (*domain.Session, bool)
	Put(session *domain.Session)
	Delete(id string)
}

// MemorySessionStore is the in-process SessionStore.
type MemorySessionStore struct {
	mu       sync.RWMutex
	sessions map[string]*domain.Session
}

func NewMemorySessionStore() *MemorySessionStore {
	return &MemorySessionStore{sessions: make(map[string]*domain.Session)}
}

func (s *MemorySessionStore) Get(id string) (*domain.Session, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	session, ok := s.sessions[id]
	if !ok {
		return nil, false
	}
	clone := *session
	return &clone, true
}

func (s *MemorySessionStore) Put(session *domain.Session) {
	clone := *session
	s.mu.Lock()
	s.sessions[session.ID] = &clone
	s.mu.Unlock()
}

func (s *MemorySessionStore) Delete(id string) {
	s.mu.Lock()
	delete(s.sessions, id)
	s.mu.Unlock()
}

const (
	defaultPollInterval = 2 * time.Second
	defaultPollCeiling  = 60 * time.Second
	defaultPreviewCount = 3
)

type ControllerOptions struct {
	Orchestrator *Orchestrator
	Sessions     SessionStore
	Logger       zerolog.Logger
	PollInterval time.Duration
	PollCeiling  time.Duration
}

// Controller drives the two-phase workflow: a cheap multi-sample preview
// followed by one expensive seed-locked finalize. The expensive quality
// mode is paid at most once per chosen composition.
type Controller struct {
	orc          *Orchestrator
	sessions     SessionStore
	logger       zerolog.Logger
	pollInterval time.Duration
	pollCeiling  time.Duration
	now          func() time.Time
}

func NewController(opts ControllerOptions) *Controller {
	sessions := opts.Sessions
	if sessions == nil {
		sessions = NewMemorySessionStore()
	}
	interval := opts.PollInterval
	if interval <= 0 {
		interval = defaultPollInterval
	}
	ceiling := opts.PollCeiling
	if ceiling <= 0 {
		ceiling = defaultPollCeiling
	}
	return &Controller{
		orc:          opts.Orchestrator,
		sessions:     sessions,
		logger:       opts.Logger,
		pollInterval: interval,
		pollCeiling:  ceiling,
		now:          time.Now,
	}
}

// StartPreview opens a new session and generates the candidate gallery.
// Preview always runs in performance mode with a vendor-assigned seed.
func (c *Controller) StartPreview(ctx context.Context, params domain.TryOnParams, createdBy string) (*domain.Session, error) {
	params.Mode = domain.ModePerformance
	params.Seed = nil
	if params.NumSamples == 0 {
		params.NumSamples = defaultPreviewCount
	}

	job, err := c.runJob(ctx, params, createdBy)
	if err != nil {
		return nil, err
	}

	now := c.now()
	session := &domain.Session{
		ID:             uuid.NewString(),
		Params:         params,
		PreviewResults: job.Results,
		Seeds:          seedsOf(job.Results),
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	c.sessions.Put(session)
	return session, nil
}

// Finalize re-renders the selected candidate in quality mode with the
// exact seed of that candidate. It never picks a different seed.
func (c *Controller) Finalize(ctx context.Context, sessionID string, selectedIndex int) (*domain.Session, error) {
	session, ok := c.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if selectedIndex < 0 || selectedIndex >= len(session.Seeds) {
		return nil, domain.NewError(domain.KindInvalidInput,
			fmt.Sprintf("selected index %d out of range, session has %d candidates", selectedIndex, len(session.Seeds)), nil)
	}

	seed := session.Seeds[selectedIndex]
	params := session.Params
	params.Mode = domain.ModeQuality
	params.NumSamples = 1
	params.Seed = &seed

	job, err := c.runJob(ctx, params, "")
	if err != nil {
		return nil, err
	}
	if len(job.Results) == 0 {
		return nil, domain.NewError(domain.KindAPIError, "finalize produced no result", nil)
	}

	idx := selectedIndex
	session.SelectedIndex = &idx
	session.FinalResult = &job.Results[0]
	session.UpdatedAt = c.now()
	c.sessions.Put(session)
	return session, nil
}

// Reroll discards the current candidates and generates a fresh preview
// gallery under the same parameters.
func (c *Controller) Reroll(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, ok := c.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrNotFound
	}

	params := session.Params
	params.Mode = domain.ModePerformance
	params.Seed = nil

	job, err := c.runJob(ctx, params, "")
	if err != nil {
		return nil, err
	}

	session.PreviewResults = job.Results
	session.Seeds = seedsOf(job.Results)
	session.SelectedIndex = nil
	session.FinalResult = nil
	session.UpdatedAt = c.now()
	c.sessions.Put(session)
	return session, nil
}

// Recreate repeats the finalize render for the already-selected
// candidate. The seed is unchanged, so the result cache usually answers
// without a vendor call.
func (c *Controller) Recreate(ctx context.Context, sessionID string) (*domain.Session, error) {
	session, ok := c.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	if session.SelectedIndex == nil {
		return nil, domain.NewError(domain.KindInvalidInput, "no candidate selected yet", nil)
	}
	return c.Finalize(ctx, sessionID, *session.SelectedIndex)
}

// Session returns the current session state.
func (c *Controller) Session(sessionID string) (*domain.Session, error) {
	session, ok := c.sessions.Get(sessionID)
	if !ok {
		return nil, domain.ErrNotFound
	}
	return session, nil
}

// runJob creates, submits, and waits for one job.
func (c *Controller) runJob(ctx context.Context, params domain.TryOnParams, createdBy string) (*domain.TryOnJob, error) {
	job, err := c.orc.CreateJob(ctx, params, createdBy)
	if err != nil {
		return nil, err
	}
	job, err = c.orc.Submit(ctx, job.ID)
	if err != nil {
		return nil, err
	}
	return c.awaitJob(ctx, job)
}

// awaitJob polls a running job at a fixed interval until it reaches a
// terminal state or the ceiling expires. On timeout the session surfaces
// an error but the vendor job is not cancelled; it may still finish and
// be persisted by a later sweep.
func (c *Controller) awaitJob(ctx context.Context, job *domain.TryOnJob) (*domain.TryOnJob, error) {
	if job.Status == domain.JobStatusSucceeded {
		return job, nil
	}
	if job.Status == domain.JobStatusFailed {
		return nil, jobFailure(job)
	}

	deadline := time.NewTimer(c.pollCeiling)
	defer deadline.Stop()
	ticker := time.NewTicker(c.pollInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-deadline.C:
			c.logger.Warn().Str("job_id", job.ID).Msg("studio: poll ceiling reached, vendor job left running")
			return nil, domain.NewError(domain.KindAPITimeout,
				fmt.Sprintf("generation did not finish within %s", c.pollCeiling), nil)
		case <-ticker.C:
			polled, err := c.orc.PollTick(ctx, job.ID)
			if err != nil {
				return nil, err
			}
			switch polled.Status {
			case domain.JobStatusSucceeded:
				return polled, nil
			case domain.JobStatusFailed:
				return nil, jobFailure(polled)
			}
		}
	}
}

func jobFailure(job *domain.TryOnJob) error {
	msg := job.ErrorMessage
	if msg == "" {
		msg = "generation failed"
	}
	kind := job.ErrorKind
	if kind == "" {
		kind = domain.KindUnknown
	}
	return domain.NewError(kind, msg, nil)
}

func seedsOf(results []domain.TryOnResult) []int64 {
	seeds := make([]int64, len(results))
	for i, r := range results {
		seeds[i] = r.Seed
	}
	return seeds
}
