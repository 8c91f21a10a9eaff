// Package bugswarm talks to the BugSwarm dataset REST API.
package bugswarm

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/ahnaf005/llm-bug-report/internal/artifact"
)

const defaultBaseURL = "https://api.bugswarm.org/v1"

// Client implements artifact.Provider over HTTP.
type Client struct {
	client  *http.Client
	baseURL string
	token   string
	limiter *rate.Limiter
}

// Options configures a Client.
type Options struct {
	BaseURL           string
	Token             string
	Timeout           time.Duration
	RequestsPerSecond float64 // 0 = unlimited
	Burst             int
}

// NewClient constructs a Client with sane defaults.
func NewClient(opts Options) *Client {
	baseURL := opts.BaseURL
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	timeout := opts.Timeout
	if timeout == 0 {
		timeout = 60 * time.Second
	}
	limiter := rate.NewLimiter(rate.Inf, 1)
	if opts.RequestsPerSecond > 0 {
		burst := opts.Burst
		if burst <= 0 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(opts.RequestsPerSecond), burst)
	}

	return &Client{
		client:  &http.Client{Timeout: timeout},
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   opts.Token,
		limiter: limiter,
	}
}

var _ artifact.Provider = (*Client)(nil)

type pageResponse struct {
	Items []artifact.Record `json:"_items"`
	Links struct {
		Next *struct {
			Href string `json:"href"`
		} `json:"next"`
	} `json:"_links"`
}

// Filter pages through /artifacts with the query's where clause.
func (c *Client) Filter(ctx context.Context, q artifact.Query) ([]artifact.Record, error) {
	var out []artifact.Record
	for page := 1; ; page++ {
		params := url.Values{}
		params.Set("where", q.Where())
		params.Set("page", strconv.Itoa(page))

		res, err := c.get(ctx, "/artifacts?"+params.Encode())
		if err != nil {
			return nil, fmt.Errorf("filter artifacts: %w", err)
		}
		var body pageResponse
		err = decodeJSON(res, &body)
		if err != nil {
			return nil, fmt.Errorf("filter artifacts: %w", err)
		}
		out = append(out, body.Items...)
		if body.Links.Next == nil || len(body.Items) == 0 {
			return out, nil
		}
	}
}

// Find fetches one artifact record.
func (c *Client) Find(ctx context.Context, id string) (artifact.Record, error) {
	res, err := c.get(ctx, "/artifacts/"+url.PathEscape(id))
	if err != nil {
		return artifact.Record{}, fmt.Errorf("find artifact %s: %w", id, err)
	}
	if res.StatusCode == http.StatusNotFound {
		res.Body.Close()
		return artifact.Record{}, artifact.NotFound("artifact", id)
	}
	var rec artifact.Record
	if err := decodeJSON(res, &rec); err != nil {
		return artifact.Record{}, fmt.Errorf("find artifact %s: %w", id, err)
	}
	if rec.ImageTag == "" {
		rec.ImageTag = id
	}
	return rec, nil
}

// Diff fetches the structured code change. A missing diff yields an empty Diff.
func (c *Client) Diff(ctx context.Context, id string) (artifact.Diff, error) {
	res, err := c.get(ctx, "/diffs/"+url.PathEscape(id))
	if err != nil {
		return nil, fmt.Errorf("get diff %s: %w", id, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return nil, nil
	}
	if err := checkStatus(res); err != nil {
		return nil, fmt.Errorf("get diff %s: %w", id, err)
	}
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return nil, fmt.Errorf("get diff %s: read body: %w", id, err)
	}
	if len(strings.TrimSpace(string(b))) > 0 && !json.Valid(b) {
		return nil, fmt.Errorf("get diff %s: response is not JSON", id)
	}
	return artifact.Diff(b), nil
}

// BuildLog fetches the raw log of a job.
func (c *Client) BuildLog(ctx context.Context, jobID string) (string, error) {
	res, err := c.get(ctx, "/logs/"+url.PathEscape(jobID))
	if err != nil {
		return "", fmt.Errorf("get build log %s: %w", jobID, err)
	}
	defer res.Body.Close()
	if res.StatusCode == http.StatusNotFound {
		return "", artifact.NotFound("build log", jobID)
	}
	if err := checkStatus(res); err != nil {
		return "", fmt.Errorf("get build log %s: %w", jobID, err)
	}
	b, err := io.ReadAll(res.Body)
	if err != nil {
		return "", fmt.Errorf("get build log %s: read body: %w", jobID, err)
	}
	return string(b), nil
}

func (c *Client) get(ctx context.Context, path string) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+path, nil)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.token != "" {
		req.Header.Set("Authorization", "token "+c.token)
	}
	res, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("send request: %w", err)
	}
	return res, nil
}

func checkStatus(res *http.Response) error {
	if res.StatusCode >= 300 {
		b, _ := io.ReadAll(io.LimitReader(res.Body, 4096))
		return fmt.Errorf("bugswarm: status %d: %s", res.StatusCode, strings.TrimSpace(string(b)))
	}
	return nil
}

func decodeJSON(res *http.Response, v any) error {
	defer res.Body.Close()
	if err := checkStatus(res); err != nil {
		return err
	}
	if err := json.NewDecoder(res.Body).Decode(v); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}
