package domain

import "time"

// GenerationMode selects the vendor's speed/fidelity trade-off.
type GenerationMode string

const (
	ModePerformance GenerationMode = "performance"
	ModeBalanced    GenerationMode = "balanced"
	ModeQuality     GenerationMode = "quality"
)

// SeedUpperBound caps vendor seeds to a signed 32-bit range.
const SeedUpperBound = int64(1) << 31

// MaxSamples is the most outputs a single try-on request may ask for.
const MaxSamples = 4

// TryOnParams is the full parameter set for one try-on generation request.
// A nil Seed lets the orchestrator pick one.
type TryOnParams struct {
	ModelImage       string         `json:"model_image"`
	GarmentImage     string         `json:"garment_image"`
	Category         string         `json:"category"`
	Mode             GenerationMode `json:"mode"`
	Seed             *int64         `json:"seed,omitempty"`
	NumSamples       int            `json:"num_samples"`
	GarmentPhotoType string         `json:"garment_photo_type,omitempty"`
	SegmentationFree bool           `json:"segmentation_free"`
	ModerationLevel  string         `json:"moderation_level,omitempty"`
	OutputFormat     string         `json:"output_format,omitempty"`
	ReturnBase64     bool           `json:"return_base64"`
}

// TryOnResult is one generated composition. A multi-sample request yields one
// result per sample with sequential seeds.
type TryOnResult struct {
	ImageURL  string      `json:"image_url,omitempty"`
	Base64    string      `json:"base64,omitempty"`
	Seed      int64       `json:"seed"`
	Params    TryOnParams `json:"params"`
	CreatedAt time.Time   `json:"created_at"`
	RequestID string      `json:"request_id"`
}

// JobStatus enumerates try-on job lifecycle states.
type JobStatus string

const (
	JobStatusQueued    JobStatus = "queued"
	JobStatusRunning   JobStatus = "running"
	JobStatusSucceeded JobStatus = "succeeded"
	JobStatusFailed    JobStatus = "failed"
)

// Terminal reports whether a status admits no further transitions.
func (s JobStatus) Terminal() bool {
	return s == JobStatusSucceeded || s == JobStatusFailed
}

// CanTransition defines the job state machine:
// queued -> running -> {succeeded, failed} and queued -> {succeeded, failed}.
func (s JobStatus) CanTransition(to JobStatus) bool {
	if s.Terminal() {
		return false
	}
	switch s {
	case JobStatusQueued:
		return to == JobStatusRunning || to == JobStatusSucceeded || to == JobStatusFailed
	case JobStatusRunning:
		return to == JobStatusSucceeded || to == JobStatusFailed
	default:
		return false
	}
}

// TryOnJob is the durable record of one generation. The store owns
// persistence; the orchestrator owns the lifecycle.
type TryOnJob struct {
	ID            string      `json:"id"`
	Status        JobStatus   `json:"status"`
	Provider      string      `json:"provider"`
	ProviderJobID string      `json:"provider_job_id,omitempty"`
	Settings      TryOnParams `json:"settings"`
	Results       []TryOnResult `json:"results,omitempty"`
	ErrorMessage  string      `json:"error_message,omitempty"`
	ErrorKind     ErrorKind   `json:"error_kind,omitempty"`
	CreatedBy     string      `json:"created_by,omitempty"`
	CreatedAt     time.Time   `json:"created_at"`
	UpdatedAt     time.Time   `json:"updated_at"`
}

// Session is the ephemeral client-held state of one studio interaction.
// It is never persisted; navigation discards it.
type Session struct {
	ID             string        `json:"id"`
	Params         TryOnParams   `json:"params"`
	PreviewResults []TryOnResult `json:"preview_results"`
	Seeds          []int64       `json:"seeds"`
	SelectedIndex  *int          `json:"selected_index,omitempty"`
	FinalResult    *TryOnResult  `json:"final_result,omitempty"`
	CreatedAt      time.Time     `json:"created_at"`
	UpdatedAt      time.Time     `json:"updated_at"`
}
