package search

import (
	"encoding/json"
	"testing"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func rawHit(t *testing.T, fields map[string]any) meili.Hit {
	t.Helper()
	hit := meili.Hit{}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		require.NoError(t, err)
		hit[k] = raw
	}
	return hit
}

func TestHitToResultReview(t *testing.T) {
	hit := rawHit(t, map[string]any{
		"id":      "r1",
		"slug":    "abc123def456",
		"title":   "",
		"status":  "pending",
		"content": "plain content",
		"_formatted": map[string]any{
			"content": "plain <mark>content</mark>",
		},
	})

	got := hitToResult(hit, ResultReview)
	assert.Equal(t, ResultReview, got.Type)
	assert.Equal(t, "r1", got.ID)
	assert.Equal(t, "r1", got.ReviewID)
	assert.Equal(t, "abc123def456", got.Title, "untitled reviews fall back to the slug")
	assert.Equal(t, "plain <mark>content</mark>", got.Snippet)
	assert.Equal(t, "pending", got.Status)
}

func TestHitToResultThread(t *testing.T) {
	hit := rawHit(t, map[string]any{
		"id":           "t1",
		"reviewId":     "r1",
		"selectedText": "Some heading",
		"comments":     "needs work",
		"resolved":     true,
	})

	got := hitToResult(hit, ResultThread)
	assert.Equal(t, ResultThread, got.Type)
	assert.Equal(t, "r1", got.ReviewID)
	assert.Equal(t, "Some heading", got.Title)
	assert.Equal(t, "needs work", got.Snippet)
	assert.Equal(t, "resolved", got.Status)
}

func TestBuildQueries(t *testing.T) {
	all := buildQueries(Query{Text: "auth"})
	require.Len(t, all, 2)
	assert.Equal(t, idxReviews, all[0].IndexUID)
	assert.Equal(t, int64(20), all[0].Limit)
	assert.Nil(t, all[0].Filter)

	threads := buildQueries(Query{Text: "auth", FilterType: ResultThread, FilterReviewID: "r1", Limit: 5})
	require.Len(t, threads, 1)
	assert.Equal(t, idxThreads, threads[0].IndexUID)
	assert.Equal(t, int64(5), threads[0].Limit)
	assert.Equal(t, []string{`reviewId = "r1"`}, threads[0].Filter)
}

func TestServiceSearchBlankQuery(t *testing.T) {
	svc := NewService(nil, NewPgFTS(nil))

	resp := svc.Search(Query{Text: "   "})
	assert.Equal(t, []Result{}, resp.Results)
	assert.Zero(t, resp.Total)
}

func TestServiceWithoutBackends(t *testing.T) {
	svc := NewService(nil, nil)

	resp := svc.Search(Query{Text: "anything"})
	assert.Equal(t, []Result{}, resp.Results)

	// indexing without Meilisearch is a no-op
	svc.IndexReview(ReviewRecord{ID: "r1"})
	svc.IndexThread(ThreadRecord{ID: "t1"})
	svc.ReindexAll(nil, nil)
}
