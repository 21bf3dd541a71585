package quality

import (
	"image"

	"atelier/internal/domain"
)

// Thresholds for the cheap first-pass checks. These mirror what the studio
// front end runs before an upload leaves the browser.
const (
	minLongEdgeFail   = 800
	minLongEdgeWarn   = 1200
	minAspectRatio    = 0.4
	maxAspectRatio    = 2.5
	blurFailVariance  = 50
	blurWarnVariance  = 100
	minMeanLuminance  = 0.15
	maxMeanLuminance  = 0.85
	maxClippedFrac    = 0.05
	maxEdgeDensity    = 0.3
	actorMinLongEdge  = 1500
	actorMinWidth     = 800
	garmentMinLong    = 1000
)

// QuickCheck runs the fast in-process heuristics on an uploaded image: the
// resolution, blur, brightness and clutter checks of the first gate. The
// result is a partial; Combine merges it with the refined pass and scores it.
func QuickCheck(img image.Image, kind domain.PhotoKind) domain.AnalysisPartial {
	b := img.Bounds()
	origW, origH := b.Dx(), b.Dy()
	work := downscale(img)
	m := computeMetrics(work, origW, origH)

	var issues []domain.PhotoIssue
	issues = appendResolutionIssues(issues, m, kind)
	issues = appendBlurIssues(issues, m)
	issues = appendBrightnessIssues(issues, m)
	issues = appendClutterIssue(issues, m)

	return domain.AnalysisPartial{Issues: issues, Metrics: &m}
}

func appendResolutionIssues(issues []domain.PhotoIssue, m domain.PhotoMetrics, kind domain.PhotoKind) []domain.PhotoIssue {
	longEdge := max(m.Width, m.Height)
	switch {
	case longEdge < minLongEdgeFail:
		issues = append(issues, domain.PhotoIssue{
			ID:       "resolution-too-low",
			Severity: domain.SeverityFail,
			Message:  "The photo resolution is too low for generation.",
			Fix:      "Upload a photo with a long edge of at least 800 pixels.",
			Metric:   metric(float64(longEdge)),
		})
	case longEdge < minLongEdgeWarn:
		issues = append(issues, domain.PhotoIssue{
			ID:       "resolution-low",
			Severity: domain.SeverityWarn,
			Message:  "The photo resolution is on the low side.",
			Fix:      "A long edge of 1200 pixels or more gives better results.",
			Metric:   metric(float64(longEdge)),
		})
	}
	if m.AspectRatio > 0 && (m.AspectRatio < minAspectRatio || m.AspectRatio > maxAspectRatio) {
		issues = append(issues, domain.PhotoIssue{
			ID:       "aspect-extreme",
			Severity: domain.SeverityWarn,
			Message:  "The photo has an extreme aspect ratio.",
			Fix:      "Crop closer to the subject before uploading.",
			Metric:   metric(m.AspectRatio),
		})
	}
	switch kind {
	case domain.PhotoKindActor:
		if longEdge < actorMinLongEdge && m.Width < actorMinWidth {
			issues = append(issues, domain.PhotoIssue{
				ID:       "actor-too-small",
				Severity: domain.SeverityWarn,
				Message:  "The actor occupies too few pixels for a clean composite.",
				Fix:      "Use a larger full-body photo.",
				Metric:   metric(float64(longEdge)),
			})
		}
	case domain.PhotoKindGarment:
		if longEdge < garmentMinLong {
			issues = append(issues, domain.PhotoIssue{
				ID:       "garment-too-small",
				Severity: domain.SeverityWarn,
				Message:  "The garment photo is small; fabric detail may be lost.",
				Fix:      "Upload a garment photo with a long edge of 1000 pixels or more.",
				Metric:   metric(float64(longEdge)),
			})
		}
	}
	return issues
}

func appendBlurIssues(issues []domain.PhotoIssue, m domain.PhotoMetrics) []domain.PhotoIssue {
	switch {
	case m.LaplacianVariance < blurFailVariance:
		issues = append(issues, domain.PhotoIssue{
			ID:       "blur-severe",
			Severity: domain.SeverityFail,
			Message:  "The photo is severely blurred.",
			Fix:      "Retake the photo with steadier hands or better focus.",
			Metric:   metric(m.LaplacianVariance),
		})
	case m.LaplacianVariance < blurWarnVariance:
		issues = append(issues, domain.PhotoIssue{
			ID:       "blur-moderate",
			Severity: domain.SeverityWarn,
			Message:  "The photo looks slightly soft.",
			Fix:      "Sharper focus will improve garment detail.",
			Metric:   metric(m.LaplacianVariance),
		})
	}
	return issues
}

func appendBrightnessIssues(issues []domain.PhotoIssue, m domain.PhotoMetrics) []domain.PhotoIssue {
	if m.MeanLuminance < minMeanLuminance {
		issues = append(issues, domain.PhotoIssue{
			ID:       "brightness-low",
			Severity: domain.SeverityWarn,
			Message:  "The photo is underexposed.",
			Fix:      "Retake with more light.",
			Metric:   metric(m.MeanLuminance),
		})
	} else if m.MeanLuminance > maxMeanLuminance {
		issues = append(issues, domain.PhotoIssue{
			ID:       "brightness-high",
			Severity: domain.SeverityWarn,
			Message:  "The photo is overexposed.",
			Fix:      "Retake with less direct light.",
			Metric:   metric(m.MeanLuminance),
		})
	}
	if m.ClippedFraction > maxClippedFrac {
		issues = append(issues, domain.PhotoIssue{
			ID:       "brightness-clipped",
			Severity: domain.SeverityWarn,
			Message:  "Parts of the photo are clipped to pure black or white.",
			Fix:      "Avoid harsh backlighting and direct flash.",
			Metric:   metric(m.ClippedFraction),
		})
	}
	return issues
}

func appendClutterIssue(issues []domain.PhotoIssue, m domain.PhotoMetrics) []domain.PhotoIssue {
	if m.EdgeDensity > maxEdgeDensity {
		issues = append(issues, domain.PhotoIssue{
			ID:       "clutter-high",
			Severity: domain.SeverityWarn,
			Message:  "The background looks busy.",
			Fix:      "Shoot against a plain background.",
			Metric:   metric(m.EdgeDensity),
		})
	}
	return issues
}

func metric(v float64) *float64 { return &v }
