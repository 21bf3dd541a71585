// Package edit calls the image-edit vendor used for the optional
// touch-up stage. Inputs are square PNGs; callers pad before calling
// and crop the result back afterwards.
package edit

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"image/png"
	"io"
	"net/http"
	"strings"
	"time"
)

// Size is the square output dimension the vendor accepts.
type Size string

const (
	Size256  Size = "256x256"
	Size512  Size = "512x512"
	Size1024 Size = "1024x1024"
)

func (s Size) Valid() bool {
	switch s {
	case Size256, Size512, Size1024:
		return true
	}
	return false
}

const maxImageBytes = 4 << 20

// Request carries one touch-up call. ImagePNG must be a square PNG of
// at most 4 MiB.
type Request struct {
	ImagePNG    []byte
	Instruction string
	Size        Size
}

// Editor is the touch-up provider surface.
type Editor interface {
	Name() string
	Edit(ctx context.Context, req Request) ([]byte, error)
}

type ClientOptions struct {
	BaseURL    string
	APIKey     string
	Model      string
	HTTPClient *http.Client
	Timeout    time.Duration
}

type Client struct {
	httpClient *http.Client
	baseURL    string
	model      string
	token      string
}

func NewClient(opts ClientOptions) *Client {
	base := strings.TrimRight(opts.BaseURL, "/")
	if base == "" {
		base = "https://dashscope-intl.aliyuncs.com/api/v1"
	}
	model := strings.TrimSpace(opts.Model)
	if model == "" {
		model = "qwen-image-edit"
	}
	client := opts.HTTPClient
	if client == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 60 * time.Second
		}
		client = &http.Client{Timeout: timeout}
	}
	return &Client{
		httpClient: client,
		baseURL:    base,
		model:      model,
		token:      strings.TrimSpace(opts.APIKey),
	}
}

func (c *Client) Name() string { return "qwen-edit" }

func (c *Client) HasCredentials() bool { return c != nil && c.token != "" }

type editRequest struct {
	Model string `json:"model"`
	Input struct {
		Messages []struct {
			Role    string        `json:"role"`
			Content []interface{} `json:"content"`
		} `json:"messages"`
	} `json:"input"`
	Parameters struct {
		Size      string `json:"size,omitempty"`
		Watermark bool   `json:"watermark"`
	} `json:"parameters"`
}

type editResp struct {
	Output struct {
		Choices []struct {
			Message struct {
				Content []map[string]string `json:"content"`
			} `json:"message"`
		} `json:"choices"`
	} `json:"output"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Edit sends one square PNG plus an instruction and returns the edited
// PNG bytes. The vendor may answer with an inline data URL or a hosted
// URL; hosted results are fetched with the same client.
func (c *Client) Edit(ctx context.Context, req Request) ([]byte, error) {
	if c == nil {
		return nil, errors.New("edit client not configured")
	}
	if c.token == "" {
		return nil, errors.New("edit: API key is missing")
	}
	if err := validate(req); err != nil {
		return nil, err
	}

	var payload editRequest
	payload.Model = c.model
	msg := struct {
		Role    string        `json:"role"`
		Content []interface{} `json:"content"`
	}{
		Role: "user",
		Content: []interface{}{
			map[string]string{"image": "data:image/png;base64," + base64.StdEncoding.EncodeToString(req.ImagePNG)},
			map[string]string{"text": req.Instruction},
		},
	}
	payload.Input.Messages = append(payload.Input.Messages, msg)
	payload.Parameters.Size = string(req.Size)

	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	endpoint := c.baseURL + "/services/aigc/multimodal-generation/generation"
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.token)

	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out editResp
	if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
		if resp.StatusCode >= http.StatusBadRequest {
			return nil, fmt.Errorf("edit: http %d", resp.StatusCode)
		}
		return nil, err
	}
	if resp.StatusCode >= http.StatusBadRequest {
		if out.Message != "" {
			return nil, fmt.Errorf("edit error: %s (%s)", out.Message, out.Code)
		}
		return nil, fmt.Errorf("edit: http %d", resp.StatusCode)
	}
	if len(out.Output.Choices) == 0 || len(out.Output.Choices[0].Message.Content) == 0 {
		if out.Message != "" {
			return nil, fmt.Errorf("edit error: %s (%s)", out.Message, out.Code)
		}
		return nil, errors.New("edit: empty response")
	}
	result := strings.TrimSpace(out.Output.Choices[0].Message.Content[0]["image"])
	if result == "" {
		return nil, errors.New("edit: missing image in response")
	}
	return c.fetchResult(ctx, result)
}

func validate(req Request) error {
	if len(req.ImagePNG) == 0 {
		return errors.New("edit: image required")
	}
	if len(req.ImagePNG) > maxImageBytes {
		return fmt.Errorf("edit: image is %d bytes, limit is %d", len(req.ImagePNG), maxImageBytes)
	}
	if !req.Size.Valid() {
		return fmt.Errorf("edit: unsupported size %q", req.Size)
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(req.ImagePNG))
	if err != nil {
		return fmt.Errorf("edit: image must be PNG: %w", err)
	}
	if cfg.Width != cfg.Height {
		return fmt.Errorf("edit: image must be square, got %dx%d", cfg.Width, cfg.Height)
	}
	if strings.TrimSpace(req.Instruction) == "" {
		return errors.New("edit: instruction required")
	}
	return nil
}

func (c *Client) fetchResult(ctx context.Context, ref string) ([]byte, error) {
	if rest, ok := strings.CutPrefix(ref, "data:image/png;base64,"); ok {
		decoded, err := base64.StdEncoding.DecodeString(rest)
		if err != nil {
			return nil, fmt.Errorf("edit: decode inline result: %w", err)
		}
		return decoded, nil
	}
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodGet, ref, nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode >= http.StatusBadRequest {
		return nil, fmt.Errorf("edit: fetch result http %d", resp.StatusCode)
	}
	return io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
}
