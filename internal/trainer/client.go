package trainer

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/goccy/go-json"
	"golang.org/x/time/rate"

	"github.com/samcharles93/kiln/internal/logger"
)

// DefaultPollInterval paces job status polling during Wait.
const DefaultPollInterval = 2 * time.Second

// Client talks to the training service's job API.
type Client struct {
	baseURL      string
	httpClient   *http.Client
	pollInterval time.Duration
}

// NewClient creates a client for the given base URL, e.g. http://127.0.0.1:8090.
func NewClient(baseURL string) *Client {
	return &Client{
		baseURL:      baseURL,
		httpClient:   &http.Client{Timeout: 30 * time.Second},
		pollInterval: DefaultPollInterval,
	}
}

type apiError struct {
	Error struct {
		Message string `json:"message"`
		Code    string `json:"code"`
	} `json:"error"`
}

// CreateJob submits a fine-tuning job.
func (c *Client) CreateJob(ctx context.Context, spec JobSpec) (*Job, error) {
	body, err := json.Marshal(spec)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	var job Job
	if err := c.do(req, &job); err != nil {
		return nil, fmt.Errorf("create job: %w", err)
	}
	return &job, nil
}

// GetJob fetches the current state of a job.
func (c *Client) GetJob(ctx context.Context, id string) (*Job, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/jobs/"+id, nil)
	if err != nil {
		return nil, err
	}
	var job Job
	if err := c.do(req, &job); err != nil {
		return nil, fmt.Errorf("get job %s: %w", id, err)
	}
	return &job, nil
}

// ListEvents returns job events after the given cursor.
func (c *Client) ListEvents(ctx context.Context, id string, after int) ([]Event, error) {
	url := c.baseURL + "/v1/jobs/" + id + "/events?after=" + strconv.Itoa(after)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, err
	}
	var events []Event
	if err := c.do(req, &events); err != nil {
		return nil, fmt.Errorf("list events for %s: %w", id, err)
	}
	return events, nil
}

// CancelJob asks the service to stop a job.
func (c *Client) CancelJob(ctx context.Context, id string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/v1/jobs/"+id+"/cancel", nil)
	if err != nil {
		return err
	}
	var job Job
	if err := c.do(req, &job); err != nil {
		return fmt.Errorf("cancel job %s: %w", id, err)
	}
	return nil
}

// Wait polls a job until it reaches a terminal status, relaying progress
// events to the logger as they arrive. There is no retry on failure; a
// failed run is restarted manually.
func (c *Client) Wait(ctx context.Context, id string, log logger.Logger) (*Job, error) {
	limiter := rate.NewLimiter(rate.Every(c.pollInterval), 1)
	seen := 0
	for {
		if err := limiter.Wait(ctx); err != nil {
			return nil, err
		}
		job, err := c.GetJob(ctx, id)
		if err != nil {
			return nil, err
		}

		events, err := c.ListEvents(ctx, id, seen)
		if err != nil {
			return nil, err
		}
		for _, ev := range events {
			seen++
			switch ev.Level {
			case "warn", "warning":
				log.Warn(ev.Message, "job", id)
			case "error":
				log.Error(ev.Message, "job", id)
			default:
				log.Info(ev.Message, "job", id)
			}
		}

		if job.Status.Terminal() {
			return job, nil
		}
	}
}

func (c *Client) do(req *http.Request, out any) error {
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return err
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		var apiErr apiError
		if json.Unmarshal(raw, &apiErr) == nil && apiErr.Error.Message != "" {
			return fmt.Errorf("trainer service: %s (status %d)", apiErr.Error.Message, resp.StatusCode)
		}
		return fmt.Errorf("trainer service: status %d", resp.StatusCode)
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
