package tryon

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"atelier/internal/domain"
)

// ErrMissingAPIKey indicates the client was configured without credentials.
var ErrMissingAPIKey = errors.New("fashn: api key is required")

// FashnOptions configures the try-on vendor client.
type FashnOptions struct {
	APIKey         string
	BaseURL        string
	ModelName      string
	HTTPClient     *http.Client
	Logger         zerolog.Logger
	RequestTimeout time.Duration
}

// Fashn performs HTTP calls to the asynchronous try-on vendor. Responses are
// parsed through an explicit normalization step because the vendor's shapes
// vary: the output may be a URL string, an array of URLs or an object, and
// the job id may live under three different field names.
type Fashn struct {
	apiKey     string
	baseURL    string
	modelName  string
	httpClient *http.Client
	logger     zerolog.Logger
}

// NewFashn constructs a vendor client with sane defaults.
func NewFashn(opts FashnOptions) *Fashn {
	httpClient := opts.HTTPClient
	if httpClient == nil {
		timeout := opts.RequestTimeout
		if timeout <= 0 {
			timeout = 45 * time.Second
		}
		httpClient = &http.Client{Timeout: timeout}
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.fashn.ai/v1"
	}
	modelName := strings.TrimSpace(opts.ModelName)
	if modelName == "" {
		modelName = "tryon-v1.6"
	}
	return &Fashn{
		apiKey:     strings.TrimSpace(opts.APIKey),
		baseURL:    baseURL,
		modelName:  modelName,
		httpClient: httpClient,
		logger:     opts.Logger,
	}
}

func (c *Fashn) Name() string { return "fashn" }

// HasCredentials reports whether the client can perform remote calls.
func (c *Fashn) HasCredentials() bool { return c.apiKey != "" }

type runRequest struct {
	ModelName string    `json:"model_name"`
	Inputs    runInputs `json:"inputs"`
}

type runInputs struct {
	ModelImage       string `json:"model_image"`
	GarmentImage     string `json:"garment_image"`
	Category         string `json:"category,omitempty"`
	Mode             string `json:"mode,omitempty"`
	Seed             *int64 `json:"seed,omitempty"`
	NumSamples       int    `json:"num_samples,omitempty"`
	GarmentPhotoType string `json:"garment_photo_type,omitempty"`
	SegmentationFree bool   `json:"segmentation_free"`
	ModerationLevel  string `json:"moderation_level,omitempty"`
	OutputFormat     string `json:"output_format,omitempty"`
	ReturnBase64     bool   `json:"return_base64"`
}

// vendorEnvelope is the raw, heterogeneous vendor response. Output stays raw
// until parseOutput classifies its shape.
type vendorEnvelope struct {
	Output       json.RawMessage `json:"output"`
	ID           string          `json:"id"`
	JobID        string          `json:"job_id"`
	PredictionID string          `json:"prediction_id"`
	Status       string          `json:"status"`
	Error        string          `json:"error"`
	Message      string          `json:"message"`
}

// Submit posts the generation request to the vendor run endpoint.
func (c *Fashn) Submit(ctx context.Context, params domain.TryOnParams) (SubmitOutcome, error) {
	if !c.HasCredentials() {
		return SubmitOutcome{}, ErrMissingAPIKey
	}
	if strings.TrimSpace(params.ModelImage) == "" || strings.TrimSpace(params.GarmentImage) == "" {
		return SubmitOutcome{}, domain.NewError(domain.KindMissingImages, "model and garment images are required", nil)
	}
	payload := runRequest{
		ModelName: c.modelName,
		Inputs: runInputs{
			ModelImage:       params.ModelImage,
			GarmentImage:     params.GarmentImage,
			Category:         params.Category,
			Mode:             string(params.Mode),
			Seed:             params.Seed,
			NumSamples:       params.NumSamples,
			GarmentPhotoType: params.GarmentPhotoType,
			SegmentationFree: params.SegmentationFree,
			ModerationLevel:  params.ModerationLevel,
			OutputFormat:     params.OutputFormat,
			ReturnBase64:     params.ReturnBase64,
		},
	}
	envelope, err := c.post(ctx, c.baseURL+"/run", payload)
	if err != nil {
		return SubmitOutcome{}, err
	}
	urls, err := parseOutput(envelope.Output)
	if err != nil {
		return SubmitOutcome{}, domain.NewError(domain.KindAPIError, err.Error(), err)
	}
	jobID := firstNonEmpty(envelope.ID, envelope.JobID, envelope.PredictionID)
	if len(urls) == 0 && jobID == "" {
		return SubmitOutcome{}, domain.NewError(domain.KindAPIError, "vendor returned neither output nor job id", nil)
	}
	if len(urls) > 0 {
		return SubmitOutcome{JobID: jobID, ResultURLs: urls, Async: false}, nil
	}
	c.logger.Debug().Str("vendor_job_id", jobID).Msg("fashn: submission accepted")
	return SubmitOutcome{JobID: jobID, Async: true}, nil
}

// Status polls the vendor status endpoint and normalizes its vocabulary.
func (c *Fashn) Status(ctx context.Context, providerJobID string) (StatusReport, error) {
	if !c.HasCredentials() {
		return StatusReport{}, ErrMissingAPIKey
	}
	if strings.TrimSpace(providerJobID) == "" {
		return StatusReport{}, domain.NewError(domain.KindInvalidInput, "provider job id is required", nil)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/status/"+providerJobID, nil)
	if err != nil {
		return StatusReport{}, fmt.Errorf("fashn: build status request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	envelope, err := c.do(req)
	if err != nil {
		return StatusReport{}, err
	}
	status, err := normalizeStatus(envelope.Status)
	if err != nil {
		return StatusReport{}, domain.NewError(domain.KindAPIError, err.Error(), err)
	}
	urls, err := parseOutput(envelope.Output)
	if err != nil {
		return StatusReport{}, domain.NewError(domain.KindAPIError, err.Error(), err)
	}
	if status == domain.JobStatusSucceeded && len(urls) == 0 {
		// Some vendor deployments omit the output on terminal polls; they
		// publish results under a conventional path instead.
		urls = []string{fmt.Sprintf("%s/results/%s/0.png", c.baseURL, providerJobID)}
		c.logger.Warn().Str("vendor_job_id", providerJobID).Msg("fashn: succeeded without output, using conventional result url")
	}
	return StatusReport{Status: status, ResultURLs: urls, ErrorMessage: envelope.Error}, nil
}

func (c *Fashn) post(ctx context.Context, endpoint string, payload any) (*vendorEnvelope, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("fashn: encode request: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("fashn: build request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	return c.do(req)
}

func (c *Fashn) do(req *http.Request) (*vendorEnvelope, error) {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(req.Context().Err(), context.DeadlineExceeded) {
			return nil, domain.NewError(domain.KindAPITimeout, "vendor call timed out", err)
		}
		return nil, domain.NewError(domain.KindAPIError, err.Error(), err)
	}
	defer resp.Body.Close()
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, domain.NewError(domain.KindAPIError, "read vendor response", err)
	}
	var envelope vendorEnvelope
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil && resp.StatusCode < 300 {
			return nil, domain.NewError(domain.KindAPIError, "undecodable vendor response", err)
		}
	}
	if resp.StatusCode >= 300 {
		message := firstNonEmpty(envelope.Error, envelope.Message, strings.TrimSpace(string(raw)))
		return nil, domain.NewError(kindForHTTPStatus(resp.StatusCode), message, nil)
	}
	return &envelope, nil
}

func kindForHTTPStatus(code int) domain.ErrorKind {
	switch {
	case code == http.StatusForbidden:
		return domain.KindModerationRejected
	case code == http.StatusTooManyRequests:
		return domain.KindRateLimit
	case code == http.StatusGatewayTimeout:
		return domain.KindAPITimeout
	case code >= 500:
		return domain.KindAPIError
	case code >= 400:
		return domain.KindInvalidInput
	default:
		return domain.KindUnknown
	}
}

// parseOutput classifies the vendor's output field: absent, a URL string, an
// array of URL strings, or an object carrying a url. Anything else is an
// explicit error rather than a silent nil.
func parseOutput(raw json.RawMessage) ([]string, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '"':
		var single string
		if err := json.Unmarshal(trimmed, &single); err != nil {
			return nil, fmt.Errorf("fashn: malformed output string: %w", err)
		}
		if single == "" {
			return nil, nil
		}
		return []string{single}, nil
	case '[':
		var many []string
		if err := json.Unmarshal(trimmed, &many); err != nil {
			return nil, fmt.Errorf("fashn: malformed output array: %w", err)
		}
		urls := make([]string, 0, len(many))
		for _, u := range many {
			if strings.TrimSpace(u) != "" {
				urls = append(urls, u)
			}
		}
		return urls, nil
	case '{':
		var obj struct {
			URL string `json:"url"`
		}
		if err := json.Unmarshal(trimmed, &obj); err != nil {
			return nil, fmt.Errorf("fashn: malformed output object: %w", err)
		}
		if obj.URL == "" {
			return nil, fmt.Errorf("fashn: output object carries no url")
		}
		return []string{obj.URL}, nil
	default:
		return nil, fmt.Errorf("fashn: unexpected output shape: %s", string(trimmed))
	}
}

// normalizeStatus maps the vendor's status vocabulary onto the job state
// machine. Unknown words fail loudly.
func normalizeStatus(raw string) (domain.JobStatus, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "completed", "done", "succeeded", "success":
		return domain.JobStatusSucceeded, nil
	case "processing", "in_progress", "running", "starting":
		return domain.JobStatusRunning, nil
	case "queued", "pending", "in_queue":
		return domain.JobStatusQueued, nil
	case "error", "failed", "canceled", "cancelled":
		return domain.JobStatusFailed, nil
	default:
		return "", fmt.Errorf("fashn: unknown vendor status %q", raw)
	}
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}

var _ Provider = (*Fashn)(nil)
