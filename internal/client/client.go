// Package client is a typed HTTP client for the review API.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"mdreview/api/internal/reviewapi"
)

const (
	defaultTimeout = 30 * time.Second
	// waitTimeout sits above the server's 300s wait ceiling.
	waitTimeout = 330 * time.Second
)

// APIError is a non-2xx response decoded from the API error envelope.
type APIError struct {
	Status  int
	Code    string
	Message string
	Details *reviewapi.ErrorDetails
}

func (e *APIError) Error() string {
	if e.Code == "" {
		return fmt.Sprintf("api error %d: %s", e.Status, e.Message)
	}
	return fmt.Sprintf("api error %d %s: %s", e.Status, e.Code, e.Message)
}

// IsNotFound reports whether err is a 404 from the API.
func IsNotFound(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound
}

type Client struct {
	baseURL    string
	httpClient *http.Client
	waitClient *http.Client
	limiter    *rate.Limiter
}

type Option func(*Client)

// WithHTTPClient replaces both the regular and the long-poll HTTP clients.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) {
		c.httpClient = h
		c.waitClient = h
	}
}

func WithRateLimit(every time.Duration, burst int) Option {
	return func(c *Client) {
		c.limiter = rate.NewLimiter(rate.Every(every), burst)
	}
}

func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		waitClient: &http.Client{Timeout: waitTimeout},
		limiter:    rate.NewLimiter(rate.Every(100*time.Millisecond), 10),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the API root the client talks to.
func (c *Client) BaseURL() string {
	return c.baseURL
}

func (c *Client) CreateReview(ctx context.Context, req reviewapi.CreateReviewRequest) (reviewapi.CreatedReview, error) {
	var out reviewapi.CreatedReview
	err := c.doJSON(ctx, c.httpClient, http.MethodPost, "/api/reviews", req, &out)
	return out, err
}

func (c *Client) GetReview(ctx context.Context, id string) (reviewapi.Review, error) {
	var out reviewapi.Review
	err := c.doJSON(ctx, c.httpClient, http.MethodGet, "/api/reviews/"+url.PathEscape(id), nil, &out)
	return out, err
}

func (c *Client) SubmitDecision(ctx context.Context, id string, req reviewapi.DecisionRequest) (reviewapi.Decision, error) {
	var out reviewapi.Decision
	err := c.doJSON(ctx, c.httpClient, http.MethodPost, "/api/reviews/"+url.PathEscape(id)+"/submit", req, &out)
	return out, err
}

func (c *Client) CreateThread(ctx context.Context, reviewID string, req reviewapi.CreateThreadRequest) (reviewapi.Thread, error) {
	var out reviewapi.Thread
	err := c.doJSON(ctx, c.httpClient, http.MethodPost, "/api/reviews/"+url.PathEscape(reviewID)+"/threads", req, &out)
	return out, err
}

func (c *Client) AddReply(ctx context.Context, threadID string, req reviewapi.ReplyRequest) (reviewapi.Comment, error) {
	var out reviewapi.Comment
	err := c.doJSON(ctx, c.httpClient, http.MethodPost, "/api/threads/"+url.PathEscape(threadID)+"/replies", req, &out)
	return out, err
}

func (c *Client) ResolveThread(ctx context.Context, threadID string, resolved bool) (reviewapi.ThreadResolution, error) {
	var out reviewapi.ThreadResolution
	err := c.doJSON(ctx, c.httpClient, http.MethodPatch, "/api/threads/"+url.PathEscape(threadID), reviewapi.ResolveRequest{Resolved: &resolved}, &out)
	return out, err
}

// WaitResult holds exactly one of Decision or Pending.
type WaitResult struct {
	Decision *reviewapi.DecisionResult
	Pending  *reviewapi.PendingResult
}

// WaitForReview long-polls the server. A 408 is a normal pending result, not
// an error.
func (c *Client) WaitForReview(ctx context.Context, id string, timeoutSeconds int) (WaitResult, error) {
	path := "/api/reviews/" + url.PathEscape(id) + "/wait?timeout=" + strconv.Itoa(timeoutSeconds)
	resp, err := c.do(ctx, c.waitClient, http.MethodGet, path, nil)
	if err != nil {
		return WaitResult{}, err
	}
	defer resp.Body.Close()

	switch resp.StatusCode {
	case http.StatusOK:
		var out reviewapi.DecisionResult
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return WaitResult{}, fmt.Errorf("decode wait response: %w", err)
		}
		return WaitResult{Decision: &out}, nil
	case http.StatusRequestTimeout:
		var out reviewapi.PendingResult
		if err := json.NewDecoder(resp.Body).Decode(&out); err != nil {
			return WaitResult{}, fmt.Errorf("decode pending response: %w", err)
		}
		return WaitResult{Pending: &out}, nil
	default:
		return WaitResult{}, decodeAPIError(resp)
	}
}

// Export downloads a review export and returns the body with the server's
// suggested filename.
func (c *Client) Export(ctx context.Context, id, format string) ([]byte, string, error) {
	path := "/api/reviews/" + url.PathEscape(id) + "/export"
	if format != "" {
		path += "?format=" + url.QueryEscape(format)
	}
	resp, err := c.do(ctx, c.httpClient, http.MethodGet, path, nil)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", decodeAPIError(resp)
	}
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, "", fmt.Errorf("read export: %w", err)
	}
	filename := ""
	if _, params, err := mime.ParseMediaType(resp.Header.Get("Content-Disposition")); err == nil {
		filename = params["filename"]
	}
	return data, filename, nil
}

// SearchResult mirrors one hit of the search endpoint.
type SearchResult struct {
	Type     string `json:"type"`
	ID       string `json:"id"`
	Title    string `json:"title"`
	Snippet  string `json:"snippet"`
	ReviewID string `json:"reviewId"`
	Status   string `json:"status"`
}

type SearchResponse struct {
	Results []SearchResult `json:"results"`
	Total   int            `json:"total"`
	Query   string         `json:"query"`
}

func (c *Client) Search(ctx context.Context, query, resultType string, limit int) (SearchResponse, error) {
	values := url.Values{}
	values.Set("q", query)
	if resultType != "" {
		values.Set("type", resultType)
	}
	if limit > 0 {
		values.Set("limit", strconv.Itoa(limit))
	}
	var out SearchResponse
	err := c.doJSON(ctx, c.httpClient, http.MethodGet, "/api/search?"+values.Encode(), nil, &out)
	return out, err
}

func (c *Client) doJSON(ctx context.Context, h *http.Client, method, path string, body, out any) error {
	resp, err := c.do(ctx, h, method, path, body)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(resp)
	}
	if out == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decode %s %s: %w", method, path, err)
	}
	return nil
}

func (c *Client) do(ctx context.Context, h *http.Client, method, path string, body any) (*http.Response, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, fmt.Errorf("rate limit: %w", err)
	}

	var reader io.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("encode request: %w", err)
		}
		reader = bytes.NewReader(buf)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return nil, fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := h.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%s %s: %w", method, path, err)
	}
	return resp, nil
}

func decodeAPIError(resp *http.Response) error {
	apiErr := &APIError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	var body reviewapi.ErrorBody
	if err := json.NewDecoder(resp.Body).Decode(&body); err == nil {
		apiErr.Code = body.Code
		if body.Error != "" {
			apiErr.Message = body.Error
		}
		apiErr.Details = body.Details
	}
	return apiErr
}
