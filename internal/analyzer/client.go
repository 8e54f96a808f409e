package analyzer

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/caesium-cloud/jobassist/internal/job"
	"github.com/caesium-cloud/jobassist/internal/metrics"
	"github.com/pkg/errors"
)

const (
	analyzePath   = "/api/analyze-job"
	preFilterPath = "/api/pre-filter-jobs"
)

// Remote is the AI analysis backend.
type Remote interface {
	Analyze(ctx context.Context, j job.Job, p Profile) (json.RawMessage, error)
	PreFilter(ctx context.Context, jobs []job.Job, p Profile) (PreFilterResult, error)
}

// PreFilterResult lists the postings worth a full analysis.
type PreFilterResult struct {
	FilteredJobs  []job.Job `json:"filteredJobs"`
	OriginalCount int       `json:"originalCount"`
	FilteredCount int       `json:"filteredCount"`
	Fallback      bool      `json:"fallback,omitempty"`
}

// Client wraps HTTP interaction with the analysis backend.
type Client struct {
	baseURL    *url.URL
	httpClient *http.Client
}

// NewClient constructs a client for the backend at baseURL.
func NewClient(baseURL string, timeout time.Duration) (*Client, error) {
	u, err := url.Parse(baseURL)
	if err != nil {
		return nil, errors.Wrapf(err, "invalid analyzer url %q", baseURL)
	}

	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("analyzer url %q must be absolute", baseURL)
	}

	return &Client{
		baseURL:    u,
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

type analyzeRequest struct {
	JobData     job.Job `json:"job_data"`
	UserProfile Profile `json:"user_profile"`
}

type preFilterRequest struct {
	Jobs        []job.Job `json:"jobs"`
	UserProfile Profile   `json:"user_profile"`
}

// Analyze scores a single posting. The response body is returned
// as-is.
func (c *Client) Analyze(ctx context.Context, j job.Job, p Profile) (json.RawMessage, error) {
	var out json.RawMessage
	if err := c.post(ctx, analyzePath, analyzeRequest{JobData: j, UserProfile: p}, &out); err != nil {
		return nil, errors.Wrap(err, "job analysis failed")
	}

	if !json.Valid(out) {
		return nil, errors.New("job analysis failed: response is not valid json")
	}

	return out, nil
}

// PreFilter asks the backend which postings are worth analyzing.
func (c *Client) PreFilter(ctx context.Context, jobs []job.Job, p Profile) (PreFilterResult, error) {
	var out PreFilterResult
	if err := c.post(ctx, preFilterPath, preFilterRequest{Jobs: jobs, UserProfile: p}, &out); err != nil {
		return PreFilterResult{}, errors.Wrap(err, "job pre-filter failed")
	}

	return out, nil
}

func (c *Client) resolve(path string) string {
	return strings.TrimSuffix(c.baseURL.String(), "/") + path
}

func (c *Client) post(ctx context.Context, path string, body, v any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.resolve(path), bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	status := "error"
	defer func() {
		metrics.AnalyzerRequestDurationSeconds.
			WithLabelValues(path, status).
			Observe(time.Since(start).Seconds())
	}()

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	status = strconv.Itoa(resp.StatusCode)

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		_, _ = io.Copy(io.Discard, resp.Body)
		return fmt.Errorf("request failed: %s", resp.Status)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}
