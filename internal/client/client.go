// Package client talks to the playlist2album HTTP API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"
	"time"

	"github.com/jaki95/playlist2album/internal/api"
	"github.com/jaki95/playlist2album/internal/domain"
	"github.com/jaki95/playlist2album/internal/job"
	"github.com/jaki95/playlist2album/internal/progress"
)

const (
	DefaultBaseURL = "http://localhost:8080"

	// DefaultTimeout covers a synchronous finalize of a long playlist.
	DefaultTimeout = 10 * time.Minute
)

type Client struct {
	baseURL    string
	httpClient *http.Client
}

// Option configures the Client.
type Option func(*Client)

// WithHTTPClient sets a custom HTTP client.
func WithHTTPClient(httpClient *http.Client) Option {
	return func(c *Client) {
		c.httpClient = httpClient
	}
}

func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimSuffix(baseURL, "/"),
		httpClient: &http.Client{Timeout: DefaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// APIError is a non-2xx answer from the api.
type APIError struct {
	StatusCode int
	Message    string
	Endpoint   string
	Status     job.Status
}

func (e *APIError) Error() string {
	return fmt.Sprintf("api error: %s (status %d, endpoint: %s)", e.Message, e.StatusCode, e.Endpoint)
}

func (c *Client) CreateJob(ctx context.Context, playlistURL string, album domain.AlbumMeta) (*api.CreateJobResponse, error) {
	var resp api.CreateJobResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs", api.CreateJobRequest{PlaylistURL: playlistURL, Album: album}, &resp)
	return &resp, err
}

func (c *Client) Job(ctx context.Context, jobID string) (*job.Job, error) {
	var resp job.Job
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID), nil, &resp)
	return &resp, err
}

func (c *Client) Progress(ctx context.Context, jobID string) (*progress.State, error) {
	var resp progress.State
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID)+"/progress", nil, &resp)
	return &resp, err
}

func (c *Client) Manifest(ctx context.Context, jobID string) (*api.ManifestResponse, error) {
	var resp api.ManifestResponse
	err := c.do(ctx, http.MethodGet, "/api/jobs/"+url.PathEscape(jobID)+"/manifest", nil, &resp)
	return &resp, err
}

func (c *Client) Finalize(ctx context.Context, jobID string, req api.FinalizeRequest) (*api.FinalizeResponse, error) {
	var resp api.FinalizeResponse
	err := c.do(ctx, http.MethodPost, "/api/jobs/"+url.PathEscape(jobID)+"/finalize", req, &resp)
	return &resp, err
}

// WaitFetched polls progress until the fetch phase ends. onUpdate, if set,
// sees every polled state.
func (c *Client) WaitFetched(ctx context.Context, jobID string, interval time.Duration, onUpdate func(progress.State)) (*progress.State, error) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		state, err := c.Progress(ctx, jobID)
		if err != nil {
			return nil, err
		}
		if onUpdate != nil {
			onUpdate(*state)
		}
		if state.Done() {
			return state, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

// Download writes the artifact behind ref to w. ref is either an absolute
// URL or a server-relative download path.
func (c *Client) Download(ctx context.Context, ref string, w io.Writer) error {
	target := ref
	if !strings.HasPrefix(ref, "http://") && !strings.HasPrefix(ref, "https://") {
		target = c.baseURL + "/download/" + url.PathEscape(path.Base(ref))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp, ref)
	}
	if _, err := io.Copy(w, resp.Body); err != nil {
		return fmt.Errorf("failed to save artifact: %w", err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, method, endpoint string, body, result any) error {
	var reader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+endpoint, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return apiError(resp, endpoint)
	}
	if err := json.NewDecoder(resp.Body).Decode(result); err != nil {
		return fmt.Errorf("failed to decode response: %w", err)
	}
	return nil
}

func apiError(resp *http.Response, endpoint string) error {
	apiErr := &APIError{StatusCode: resp.StatusCode, Endpoint: endpoint, Message: resp.Status}

	var payload api.ErrorResponse
	data, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
	if json.Unmarshal(data, &payload) == nil && payload.Error != "" {
		apiErr.Message = payload.Error
		apiErr.Status = payload.Status
	}
	return apiErr
}
