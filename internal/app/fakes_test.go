package app

import (
	"context"
	"sync"

	"mdreview/api/internal/config"
	"mdreview/api/internal/search"
	"mdreview/api/internal/store"
)

type fakeStore struct {
	createReviewFn   func(context.Context, store.Review) (store.Review, error)
	getReviewFn      func(context.Context, string) (store.Review, error)
	getThreadFn      func(context.Context, string) (store.Thread, error)
	submitDecisionFn func(context.Context, string, string, *string) (store.Review, error)
	createThreadFn   func(context.Context, store.Thread, store.Comment) (store.Thread, error)
	addReplyFn       func(context.Context, string, store.Comment) (store.Comment, error)
	resolveThreadFn  func(context.Context, string, bool) (store.Thread, error)
	pingFn           func(context.Context) error
}

func (f *fakeStore) CreateReview(ctx context.Context, review store.Review) (store.Review, error) {
	if f.createReviewFn != nil {
		return f.createReviewFn(ctx, review)
	}
	review.Status = store.StatusPending
	return review, nil
}

func (f *fakeStore) GetReview(ctx context.Context, id string) (store.Review, error) {
	if f.getReviewFn != nil {
		return f.getReviewFn(ctx, id)
	}
	return store.Review{}, store.ErrNotFound
}

func (f *fakeStore) GetThread(ctx context.Context, id string) (store.Thread, error) {
	if f.getThreadFn != nil {
		return f.getThreadFn(ctx, id)
	}
	return store.Thread{}, store.ErrNotFound
}

func (f *fakeStore) SubmitDecision(ctx context.Context, id, status string, message *string) (store.Review, error) {
	if f.submitDecisionFn != nil {
		return f.submitDecisionFn(ctx, id, status, message)
	}
	return store.Review{}, store.ErrNotFound
}

func (f *fakeStore) CreateThread(ctx context.Context, thread store.Thread, first store.Comment) (store.Thread, error) {
	if f.createThreadFn != nil {
		return f.createThreadFn(ctx, thread, first)
	}
	first.ThreadID = thread.ID
	thread.Comments = []store.Comment{first}
	return thread, nil
}

func (f *fakeStore) AddReply(ctx context.Context, threadID string, reply store.Comment) (store.Comment, error) {
	if f.addReplyFn != nil {
		return f.addReplyFn(ctx, threadID, reply)
	}
	reply.ThreadID = threadID
	return reply, nil
}

func (f *fakeStore) ResolveThread(ctx context.Context, threadID string, resolved bool) (store.Thread, error) {
	if f.resolveThreadFn != nil {
		return f.resolveThreadFn(ctx, threadID, resolved)
	}
	return store.Thread{}, store.ErrNotFound
}

func (f *fakeStore) Ping(ctx context.Context) error {
	if f.pingFn != nil {
		return f.pingFn(ctx)
	}
	return nil
}

type fakeNotifier struct {
	mu        sync.Mutex
	published []string
}

func (n *fakeNotifier) Publish(_ context.Context, reviewID string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.published = append(n.published, reviewID)
	return nil
}

func (n *fakeNotifier) Subscribe(ctx context.Context, reviewID string) (<-chan struct{}, func(), error) {
	return make(chan struct{}), func() {}, nil
}

func (n *fakeNotifier) Published() []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]string(nil), n.published...)
}

type fakeSearch struct {
	mu      sync.Mutex
	reviews []search.ReviewRecord
	threads []search.ThreadRecord
	queries []search.Query
}

func (f *fakeSearch) Search(q search.Query) search.Response {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.queries = append(f.queries, q)
	return search.Response{Results: []search.Result{{Type: search.ResultReview, ID: "r1", ReviewID: "r1"}}, Total: 1, Query: q.Text}
}

func (f *fakeSearch) IndexReview(r search.ReviewRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.reviews = append(f.reviews, r)
}

func (f *fakeSearch) IndexThread(t search.ThreadRecord) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.threads = append(f.threads, t)
}

func testConfig() config.Config {
	return config.Config{BaseURL: "http://localhost:8787", CORSOrigin: "*", WaitPollIntervalMS: 10}
}

func newTestService(fs *fakeStore) *Service {
	return New(testConfig(), fs, nil, nil)
}

func strPtr(s string) *string { return &s }

const (
	reviewID = "6f1c1c2e-3c55-4b5e-9d3e-0d6a8b1f2a10"
	threadID = "0b7e3f4a-8c2d-4e1f-a5b6-c7d8e9f0a1b2"
)

func searchQuery(text string) search.Query {
	return search.Query{Text: text, Limit: 20}
}
