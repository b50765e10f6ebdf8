package app

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"mdreview/api/internal/reviewapi"
	"mdreview/api/internal/store"
	"mdreview/api/internal/util"
)

func requireValidation(t *testing.T, err error, fields ...string) {
	t.Helper()
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, http.StatusBadRequest, domainErr.Status)
	assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	assert.Equal(t, "Invalid request data", domainErr.Message)

	details, ok := domainErr.Details.(*reviewapi.ErrorDetails)
	require.True(t, ok)
	got := make([]string, 0, len(details.Issues))
	for _, issue := range details.Issues {
		got = append(got, issue.Field)
	}
	assert.ElementsMatch(t, fields, got)
}

func TestCreateReviewAssignsIDAndSlug(t *testing.T) {
	created := time.Now().UTC()
	var stored store.Review
	fs := &fakeStore{
		createReviewFn: func(_ context.Context, review store.Review) (store.Review, error) {
			stored = review
			review.Status = store.StatusPending
			review.CreatedAt = created
			return review, nil
		},
	}
	fsearch := &fakeSearch{}
	svc := New(testConfig(), fs, fsearch, nil)

	got, err := svc.CreateReview(context.Background(), reviewapi.CreateReviewRequest{
		Content: "# Plan\n\nDo the thing.",
		Title:   strPtr("  Plan  "),
	})
	require.NoError(t, err)

	assert.Len(t, stored.Slug, util.SlugLength)
	assert.Equal(t, store.SourceManual, stored.Source)
	require.NotNil(t, stored.Title)
	assert.Equal(t, "Plan", *stored.Title)
	assert.Equal(t, stored.ID, got.ID)
	assert.Equal(t, "http://localhost:8787/review/"+stored.Slug, got.URL)
	assert.Equal(t, store.StatusPending, got.Status)
	assert.Equal(t, created, got.CreatedAt)

	require.Len(t, fsearch.reviews, 1)
	assert.Equal(t, "Plan", fsearch.reviews[0].Title)
}

func TestCreateReviewValidation(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.CreateReview(context.Background(), reviewapi.CreateReviewRequest{
		Content: "   ",
		Title:   strPtr(strings.Repeat("t", 256)),
		Source:  "robot",
		AgentID: strPtr(strings.Repeat("a", 101)),
	})
	requireValidation(t, err, "content", "title", "source", "agentId")
}

func TestGetReviewNotFound(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.GetReview(context.Background(), reviewID)
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, http.StatusNotFound, domainErr.Status)
	assert.Equal(t, "Review not found", domainErr.Message)
}

func TestSubmitDecisionPublishesWakeup(t *testing.T) {
	now := time.Now().UTC()
	var gotStatus string
	var gotMessage *string
	fs := &fakeStore{
		submitDecisionFn: func(_ context.Context, id, status string, message *string) (store.Review, error) {
			gotStatus, gotMessage = status, message
			return store.Review{ID: id, Status: status, DecisionMessage: message, DecidedAt: &now}, nil
		},
	}
	notifier := &fakeNotifier{}
	svc := New(testConfig(), fs, nil, notifier)

	got, err := svc.SubmitDecision(context.Background(), reviewID, reviewapi.DecisionRequest{
		Status:  "changes_requested",
		Message: strPtr("Split step 2"),
	})
	require.NoError(t, err)

	assert.Equal(t, store.StatusChangesRequested, gotStatus)
	require.NotNil(t, gotMessage)
	assert.Equal(t, "Split step 2", *gotMessage)
	assert.Equal(t, &now, got.DecidedAt)
	assert.Equal(t, []string{reviewID}, notifier.Published())
}

func TestSubmitDecisionRejectsUnknownStatus(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.SubmitDecision(context.Background(), reviewID, reviewapi.DecisionRequest{Status: "pending"})
	requireValidation(t, err, "status")
}

func TestCreateThreadValidation(t *testing.T) {
	tests := []struct {
		name   string
		input  reviewapi.CreateThreadRequest
		fields []string
	}{
		{
			name:   "lines below one",
			input:  reviewapi.CreateThreadRequest{StartLine: 0, EndLine: 0, SelectedText: "x", Body: "y"},
			fields: []string{"startLine", "endLine"},
		},
		{
			name:   "inverted range",
			input:  reviewapi.CreateThreadRequest{StartLine: 5, EndLine: 3, SelectedText: "x", Body: "y"},
			fields: []string{"endLine"},
		},
		{
			name:   "blank text and body",
			input:  reviewapi.CreateThreadRequest{StartLine: 1, EndLine: 1, SelectedText: " ", Body: "\n"},
			fields: []string{"selectedText", "body"},
		},
		{
			name: "bad author",
			input: reviewapi.CreateThreadRequest{
				StartLine: 1, EndLine: 1, SelectedText: "x", Body: "y",
				AuthorType: "bot", AuthorName: strPtr(strings.Repeat("n", 101)),
			},
			fields: []string{"authorType", "authorName"},
		},
	}

	svc := newTestService(&fakeStore{
		createThreadFn: func(context.Context, store.Thread, store.Comment) (store.Thread, error) {
			t.Fatal("store must not be called on invalid input")
			return store.Thread{}, nil
		},
	})
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := svc.CreateThread(context.Background(), reviewID, tt.input)
			requireValidation(t, err, tt.fields...)
		})
	}
}

func TestCreateThreadDefaultsAuthorAndIndexes(t *testing.T) {
	var gotThread store.Thread
	var gotComment store.Comment
	fs := &fakeStore{
		createThreadFn: func(_ context.Context, thread store.Thread, first store.Comment) (store.Thread, error) {
			gotThread, gotComment = thread, first
			thread.Comments = []store.Comment{first}
			return thread, nil
		},
	}
	fsearch := &fakeSearch{}
	svc := New(testConfig(), fs, fsearch, nil)

	got, err := svc.CreateThread(context.Background(), reviewID, reviewapi.CreateThreadRequest{
		StartLine: 3, EndLine: 3, SelectedText: "Step 2", Body: "  Split this.  ",
	})
	require.NoError(t, err)

	assert.Equal(t, reviewID, gotThread.ReviewID)
	assert.Equal(t, store.AuthorHuman, gotComment.AuthorType)
	assert.Nil(t, gotComment.AuthorName)
	assert.Equal(t, "Split this.", gotComment.Body)
	assert.Equal(t, 3, got.StartLine)
	require.Len(t, got.Comments, 1)
	assert.Equal(t, "Split this.", got.Comments[0].Body)

	require.Len(t, fsearch.threads, 1)
	assert.Equal(t, "Split this.", fsearch.threads[0].Comments)
}

func TestCreateThreadUnknownReview(t *testing.T) {
	svc := newTestService(&fakeStore{
		createThreadFn: func(context.Context, store.Thread, store.Comment) (store.Thread, error) {
			return store.Thread{}, store.ErrNotFound
		},
	})

	_, err := svc.CreateThread(context.Background(), reviewID, reviewapi.CreateThreadRequest{
		StartLine: 1, EndLine: 1, SelectedText: "x", Body: "y",
	})
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, http.StatusNotFound, domainErr.Status)
}

func TestAddReplyReindexesThread(t *testing.T) {
	fs := &fakeStore{
		getThreadFn: func(_ context.Context, id string) (store.Thread, error) {
			return store.Thread{ID: id, ReviewID: reviewID, SelectedText: "x", Comments: []store.Comment{{Body: "a"}, {Body: "b"}}}, nil
		},
	}
	fsearch := &fakeSearch{}
	svc := New(testConfig(), fs, fsearch, nil)

	got, err := svc.AddReply(context.Background(), threadID, reviewapi.ReplyRequest{Body: "b", AuthorType: "agent", AuthorName: strPtr("AI Agent")})
	require.NoError(t, err)
	assert.Equal(t, "agent", got.AuthorType)
	require.NotNil(t, got.AuthorName)
	assert.Equal(t, "AI Agent", *got.AuthorName)

	require.Len(t, fsearch.threads, 1)
	assert.Equal(t, "a\nb", fsearch.threads[0].Comments)
}

func TestResolveThreadRequiresFlag(t *testing.T) {
	svc := newTestService(&fakeStore{})

	_, err := svc.ResolveThread(context.Background(), threadID, reviewapi.ResolveRequest{})
	requireValidation(t, err, "resolved")
}

func TestResolveThreadReturnsNotFound(t *testing.T) {
	svc := newTestService(&fakeStore{})
	resolved := true

	_, err := svc.ResolveThread(context.Background(), threadID, reviewapi.ResolveRequest{Resolved: &resolved})
	var domainErr *DomainError
	require.ErrorAs(t, err, &domainErr)
	assert.Equal(t, "Thread not found", domainErr.Message)
}

func TestServiceSearchSkipsBlankQuery(t *testing.T) {
	fsearch := &fakeSearch{}
	svc := New(testConfig(), &fakeStore{}, fsearch, nil)

	resp := svc.Search(searchQuery("  "))
	assert.Empty(t, resp.Results)
	assert.Empty(t, fsearch.queries)

	resp = svc.Search(searchQuery("plan"))
	assert.Equal(t, 1, resp.Total)
}

func TestMapError(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		status int
		code   string
	}{
		{"domain", domainError(http.StatusConflict, "CONFLICT", "x", nil), http.StatusConflict, "CONFLICT"},
		{"not found", store.ErrNotFound, http.StatusNotFound, "NOT_FOUND"},
		{"other", errors.New("boom"), http.StatusInternalServerError, "SERVER_ERROR"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			status, code, _, _ := mapError(tt.err)
			assert.Equal(t, tt.status, status)
			assert.Equal(t, tt.code, code)
		})
	}
}
