package client

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdreview/api/internal/reviewapi"
)

func newServer(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return New(srv.URL + "/")
}

func TestCreateReviewSendsJSON(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/api/reviews", r.URL.Path)
		assert.Equal(t, "application/json", r.Header.Get("Content-Type"))

		var body reviewapi.CreateReviewRequest
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, "# Plan", body.Content)
		assert.Equal(t, "agent", body.Source)

		w.WriteHeader(http.StatusCreated)
		_ = json.NewEncoder(w).Encode(reviewapi.CreatedReview{ID: "r1", Slug: "abc123def456", URL: "http://x/review/abc123def456", Status: "pending"})
	})

	got, err := c.CreateReview(context.Background(), reviewapi.CreateReviewRequest{Content: "# Plan", Source: "agent"})
	require.NoError(t, err)
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, "pending", got.Status)
}

func TestAPIErrorDecoding(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"code":"VALIDATION_ERROR","error":"Invalid request data","details":{"issues":[{"field":"body","message":"body is required"}]}}`)
	})

	_, err := c.AddReply(context.Background(), "t1", reviewapi.ReplyRequest{})
	var apiErr *APIError
	require.ErrorAs(t, err, &apiErr)
	assert.Equal(t, http.StatusBadRequest, apiErr.Status)
	assert.Equal(t, "VALIDATION_ERROR", apiErr.Code)
	require.NotNil(t, apiErr.Details)
	assert.Equal(t, "body", apiErr.Details.Issues[0].Field)
	assert.False(t, IsNotFound(err))
}

func TestNotFound(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":"NOT_FOUND","error":"Review not found"}`)
	})

	_, err := c.GetReview(context.Background(), "missing")
	assert.True(t, IsNotFound(err))
	assert.Contains(t, err.Error(), "Review not found")
}

func TestWaitForReviewDecision(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/reviews/r1/wait", r.URL.Path)
		assert.Equal(t, "120", r.URL.Query().Get("timeout"))
		_, _ = io.WriteString(w, `{"id":"r1","status":"approved","decisionMessage":null,"decidedAt":"2026-03-01T12:00:00Z","threads":[],"summary":{"totalThreads":0,"resolvedThreads":0,"unresolvedThreads":0,"totalComments":0}}`)
	})

	got, err := c.WaitForReview(context.Background(), "r1", 120)
	require.NoError(t, err)
	require.NotNil(t, got.Decision)
	assert.Nil(t, got.Pending)
	assert.Equal(t, "approved", got.Decision.Status)
	assert.Equal(t, time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC), got.Decision.DecidedAt.UTC())
}

func TestWaitForReviewPending(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusRequestTimeout)
		_, _ = io.WriteString(w, `{"status":"pending","message":"Review still pending. Poll again.","timedOut":true}`)
	})

	got, err := c.WaitForReview(context.Background(), "r1", 1)
	require.NoError(t, err)
	require.NotNil(t, got.Pending)
	assert.True(t, got.Pending.TimedOut)
	assert.Nil(t, got.Decision)
}

func TestExportReturnsFilename(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "json", r.URL.Query().Get("format"))
		w.Header().Set("Content-Disposition", `attachment; filename="review-abc123def456.json"`)
		_, _ = io.WriteString(w, `{"review":{}}`)
	})

	data, name, err := c.Export(context.Background(), "r1", "json")
	require.NoError(t, err)
	assert.Equal(t, "review-abc123def456.json", name)
	assert.JSONEq(t, `{"review":{}}`, string(data))
}

func TestResolveThreadSendsFlag(t *testing.T) {
	c := newServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPatch, r.Method)
		var body map[string]any
		assert.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Equal(t, false, body["resolved"])
		_, _ = io.WriteString(w, `{"id":"t1","resolved":false,"resolvedAt":null}`)
	})

	got, err := c.ResolveThread(context.Background(), "t1", false)
	require.NoError(t, err)
	assert.False(t, got.Resolved)
	assert.Nil(t, got.ResolvedAt)
}

func TestRateLimiterHonoursContext(t *testing.T) {
	c := New("http://127.0.0.1:0", WithRateLimit(time.Hour, 1))
	ctx, cancel := context.WithCancel(context.Background())

	// the single burst token is spent by the first call's limiter wait
	_, _ = c.GetReview(ctx, "r1")
	cancel()

	_, err := c.GetReview(ctx, "r1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "rate limit")
}
