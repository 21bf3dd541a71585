package quality

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"time"

	"github.com/disintegration/imaging"
	"github.com/rs/zerolog"

	"atelier/internal/domain"
)

// Refined-pass thresholds. These run server side on the downscaled copy the
// client ships with the upload.
const (
	croppingFailVariance = 0.25
	croppingWarnVariance = 0.15
	minBackgroundContrast = 0.2

	minCenterPresence = 0.2
	maxCenterPresence = 0.85
	minActorAspect    = 0.5
	maxActorAspect    = 1.2
)

// defaultBudget is the hard ceiling on one refined analysis. Past it we
// degrade instead of blocking the upload.
const defaultBudget = 12 * time.Second

// defaultCacheTTL and defaultCacheSize bound the analysis memo.
const (
	defaultCacheTTL  = time.Hour
	defaultCacheSize = 100
)

// Analyzer runs the refined server-side heuristics. Analysis is never fatal:
// any internal failure degrades to a single warn issue.
type Analyzer struct {
	cache  Cache
	logger zerolog.Logger
	budget time.Duration
}

// AnalyzerOption customizes an Analyzer.
type AnalyzerOption func(*Analyzer)

// WithCache swaps the memo store.
func WithCache(c Cache) AnalyzerOption {
	return func(a *Analyzer) { a.cache = c }
}

// WithBudget overrides the execution ceiling.
func WithBudget(d time.Duration) AnalyzerOption {
	return func(a *Analyzer) { a.budget = d }
}

// NewAnalyzer builds an Analyzer with an hour-long, size-capped memo.
func NewAnalyzer(logger zerolog.Logger, opts ...AnalyzerOption) *Analyzer {
	a := &Analyzer{
		cache:  NewTTLCache(defaultCacheTTL, defaultCacheSize),
		logger: logger,
		budget: defaultBudget,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Analyze decodes the downscaled copy and computes the refined statistics.
// Repeat submissions of the same payload within the TTL are served from the
// memo. Decode failures, panics and budget overruns all collapse into the
// degraded partial.
func (a *Analyzer) Analyze(ctx context.Context, payload []byte, kind domain.PhotoKind) domain.AnalysisPartial {
	key := cacheKey(kind, payload)
	if cached, ok := a.cache.Get(key); ok {
		return cached
	}

	ctx, cancel := context.WithTimeout(ctx, a.budget)
	defer cancel()

	done := make(chan domain.AnalysisPartial, 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				a.logger.Error().Interface("panic", r).Msg("quality: refined analysis panicked")
				done <- degradedPartial()
			}
		}()
		done <- a.analyze(payload, kind)
	}()

	select {
	case partial := <-done:
		a.cache.Set(key, partial)
		return partial
	case <-ctx.Done():
		a.logger.Warn().Str("kind", string(kind)).Msg("quality: refined analysis exceeded budget")
		return degradedPartial()
	}
}

func (a *Analyzer) analyze(payload []byte, kind domain.PhotoKind) domain.AnalysisPartial {
	img, err := imaging.Decode(bytes.NewReader(payload), imaging.AutoOrientation(true))
	if err != nil {
		a.logger.Warn().Err(err).Msg("quality: decode failed, degrading")
		return degradedPartial()
	}
	b := img.Bounds()
	work := downscale(img)
	m := computeMetrics(work, b.Dx(), b.Dy())

	var issues []domain.PhotoIssue
	issues = appendCroppingIssues(issues, m)
	switch kind {
	case domain.PhotoKindActor:
		issues = appendPresenceIssues(issues, m)
	case domain.PhotoKindGarment:
		issues = appendContrastIssue(issues, m)
	}
	return domain.AnalysisPartial{Issues: issues, Metrics: &m}
}

func appendCroppingIssues(issues []domain.PhotoIssue, m domain.PhotoMetrics) []domain.PhotoIssue {
	switch {
	case m.BorderVariance > croppingFailVariance:
		issues = append(issues, domain.PhotoIssue{
			ID:       "cropping-severe",
			Severity: domain.SeverityFail,
			Message:  "The subject appears to run off the edge of the frame.",
			Fix:      "Step back so the whole subject fits with a margin.",
			Metric:   metric(m.BorderVariance),
		})
	case m.BorderVariance > croppingWarnVariance:
		issues = append(issues, domain.PhotoIssue{
			ID:       "cropping-risk",
			Severity: domain.SeverityWarn,
			Message:  "The subject sits close to the edge of the frame.",
			Fix:      "Leave more margin around the subject.",
			Metric:   metric(m.BorderVariance),
		})
	}
	return issues
}

// appendPresenceIssues is a coarse face/person-presence proxy for actor
// photos: center-region brightness plus aspect-ratio plausibility. It is not
// face detection and does not pretend to be.
func appendPresenceIssues(issues []domain.PhotoIssue, m domain.PhotoMetrics) []domain.PhotoIssue {
	presence := m.CenterBrightness >= minCenterPresence && m.CenterBrightness <= maxCenterPresence
	plausible := m.AspectRatio >= minActorAspect && m.AspectRatio <= maxActorAspect
	switch {
	case !presence && !plausible:
		issues = append(issues, domain.PhotoIssue{
			ID:       "no-face-detected",
			Severity: domain.SeverityFail,
			Message:  "No person could be made out in the photo.",
			Fix:      "Upload a front-facing photo of the actor.",
			Metric:   metric(m.CenterBrightness),
		})
	case !presence || !plausible:
		issues = append(issues, domain.PhotoIssue{
			ID:       "face-too-small",
			Severity: domain.SeverityWarn,
			Message:  "The person occupies only a small part of the frame.",
			Fix:      "Move closer or crop tighter on the actor.",
			Metric:   metric(m.CenterBrightness),
		})
	}
	return issues
}

func appendContrastIssue(issues []domain.PhotoIssue, m domain.PhotoMetrics) []domain.PhotoIssue {
	if m.BackgroundContrast < minBackgroundContrast {
		issues = append(issues, domain.PhotoIssue{
			ID:       "background-contrast",
			Severity: domain.SeverityWarn,
			Message:  "The garment blends into the background.",
			Fix:      "Photograph the garment against a contrasting backdrop.",
			Metric:   metric(m.BackgroundContrast),
		})
	}
	return issues
}

// degradedPartial is the never-fatal fallback: analysis must not block the
// upload path.
func degradedPartial() domain.AnalysisPartial {
	return domain.AnalysisPartial{
		Issues: []domain.PhotoIssue{{
			ID:       "server-unavailable",
			Severity: domain.SeverityWarn,
			Message:  "Refined quality checks were unavailable for this upload.",
			Fix:      "The photo was accepted using basic checks only.",
		}},
	}
}

// cacheKey hashes the full payload rather than a prefix so visually distinct
// images can never share an entry.
func cacheKey(kind domain.PhotoKind, payload []byte) string {
	sum := sha256.Sum256(payload)
	return string(kind) + ":" + hex.EncodeToString(sum[:])
}
