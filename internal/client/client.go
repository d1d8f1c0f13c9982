package client

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"web_accessibility_analyzer/internal/domain/models"
	"web_accessibility_analyzer/internal/pkg/errors"

	log "github.com/sirupsen/logrus"
)

const (
	DefaultPollInterval = 3 * time.Second
	defaultTimeout      = 10 * time.Second
)

// APIError is a non-2xx answer from the analysis API.
type APIError struct {
	StatusCode int
	Message    string
	Detail     string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("api error %d: %s: %s", e.StatusCode, e.Message, e.Detail)
	}
	return fmt.Sprintf("api error %d: %s", e.StatusCode, e.Message)
}

// Unwrap lets callers match a 404 with errors.ErrNotFound.
func (e *APIError) Unwrap() error {
	if e.StatusCode == http.StatusNotFound {
		return errors.ErrNotFound
	}
	return nil
}

// Client talks to the /api/analyses endpoints.
type Client struct {
	baseURL string
	http    *http.Client
	log     *log.Logger
}

func New(baseURL string, httpClient *http.Client, log *log.Logger) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: defaultTimeout}
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    httpClient,
		log:     log,
	}
}

func (c *Client) Create(ctx context.Context, pageURL string) (*models.Analysis, error) {
	var resp struct {
		Message  string           `json:"message"`
		Analysis *models.Analysis `json:"analysis"`
	}
	if err := c.do(ctx, http.MethodPost, "/api/analyses", map[string]string{"url": pageURL}, &resp); err != nil {
		return nil, err
	}
	if resp.Analysis == nil {
		return nil, errors.New(`create response carried no analysis`)
	}
	return resp.Analysis, nil
}

func (c *Client) List(ctx context.Context) ([]*models.Analysis, error) {
	var analyses []*models.Analysis
	if err := c.do(ctx, http.MethodGet, "/api/analyses", nil, &analyses); err != nil {
		return nil, err
	}
	return analyses, nil
}

func (c *Client) Get(ctx context.Context, id string) (*models.Analysis, error) {
	var analysis models.Analysis
	if err := c.do(ctx, http.MethodGet, "/api/analyses/"+url.PathEscape(id), nil, &analysis); err != nil {
		return nil, err
	}
	return &analysis, nil
}

func (c *Client) Delete(ctx context.Context, id string) error {
	return c.do(ctx, http.MethodDelete, "/api/analyses/"+url.PathEscape(id), nil, nil)
}

// Watch polls the analysis until it reaches a terminal status or ctx ends.
// fn is called with the first observed state and after every status change.
// The poll loop lives only for the duration of the call.
func (c *Client) Watch(ctx context.Context, id string, interval time.Duration, fn func(*models.Analysis)) (*models.Analysis, error) {
	if interval <= 0 {
		interval = DefaultPollInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	var last models.Status
	for {
		a, err := c.Get(ctx, id)
		if err != nil {
			return nil, err
		}
		if a.Status != last {
			last = a.Status
			if fn != nil {
				fn(a)
			}
		}
		if a.Status.IsTerminal() {
			return a, nil
		}

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-ticker.C:
		}
	}
}

func (c *Client) do(ctx context.Context, method, path string, body, out any) error {
	var reader io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		if err != nil {
			return errors.Wrap(err, `failed to encode request`)
		}
		reader = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return errors.Wrap(err, `failed to create request`)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return errors.Wrap(err, `request failed`)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return errors.Wrap(err, `failed to read response body`)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		apiErr := &APIError{StatusCode: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
		var errBody struct {
			Message string `json:"message"`
			Error   string `json:"error"`
		}
		if json.Unmarshal(data, &errBody) == nil && errBody.Message != "" {
			apiErr.Message = errBody.Message
			apiErr.Detail = errBody.Error
		}
		c.log.WithFields(log.Fields{`method`: method, `path`: path, `status`: resp.StatusCode}).Debug(`api call failed`)
		return apiErr
	}

	if out == nil {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return errors.Wrap(err, `failed to decode response`)
	}
	return nil
}
