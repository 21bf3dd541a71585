package domain

import "time"

// AnalysisVersion is stamped onto every PhotoAnalysisResult so stored reports
// can be recomputed when the heuristics change.
const AnalysisVersion = "2"

// PhotoKind enumerates the catalog photo categories the heuristics understand.
type PhotoKind string

const (
	PhotoKindActor   PhotoKind = "actor"
	PhotoKindGarment PhotoKind = "garment"
)

// Severity is an ordered quality level attached to a detected photo issue.
type Severity string

const (
	SeverityPass Severity = "pass"
	SeverityWarn Severity = "warn"
	SeverityFail Severity = "fail"
)

// Rank orders severities as pass < warn < fail.
func (s Severity) Rank() int {
	switch s {
	case SeverityFail:
		return 2
	case SeverityWarn:
		return 1
	default:
		return 0
	}
}

// MaxSeverity returns the higher of two severities.
func MaxSeverity(a, b Severity) Severity {
	if b.Rank() > a.Rank() {
		return b
	}
	return a
}

// PhotoIssue is a single detected problem. Issues are identified by a stable
// string key; an analysis carries at most one issue per ID.
type PhotoIssue struct {
	ID       string   `json:"id"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	Fix      string   `json:"fix,omitempty"`
	Metric   *float64 `json:"metric,omitempty"`
}

// PhotoMetrics holds the raw image statistics backing the issues. Fields that
// only one side of the pipeline computes stay zero on the other side.
type PhotoMetrics struct {
	Width              int     `json:"width"`
	Height             int     `json:"height"`
	AspectRatio        float64 `json:"aspect_ratio"`
	LaplacianVariance  float64 `json:"laplacian_variance"`
	MeanLuminance      float64 `json:"mean_luminance"`
	ClippedFraction    float64 `json:"clipped_fraction"`
	EdgeDensity        float64 `json:"edge_density"`
	BorderVariance     float64 `json:"border_variance,omitempty"`
	CenterBrightness   float64 `json:"center_brightness,omitempty"`
	BackgroundContrast float64 `json:"background_contrast,omitempty"`
}

// AnalysisPartial is one side's contribution before merging: issues plus the
// metrics they were derived from. Partials are not scored.
type AnalysisPartial struct {
	Issues  []PhotoIssue  `json:"issues"`
	Metrics *PhotoMetrics `json:"metrics,omitempty"`
}

// PhotoAnalysisResult is the merged, scored quality report for one upload.
// Results are immutable once produced; a re-upload produces a fresh one.
type PhotoAnalysisResult struct {
	Kind          PhotoKind     `json:"kind"`
	Score         int           `json:"score"`
	Status        Severity      `json:"status"`
	Issues        []PhotoIssue  `json:"issues"`
	ClientMetrics *PhotoMetrics `json:"client_metrics,omitempty"`
	ServerMetrics *PhotoMetrics `json:"server_metrics,omitempty"`
	AnalyzedAt    time.Time     `json:"analyzed_at"`
	Version       string        `json:"version"`
}
