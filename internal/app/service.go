package app

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"mdreview/api/internal/config"
	"mdreview/api/internal/decision"
	"mdreview/api/internal/export"
	"mdreview/api/internal/logging"
	"mdreview/api/internal/reviewapi"
	"mdreview/api/internal/search"
	"mdreview/api/internal/store"
	"mdreview/api/internal/util"
)

const (
	maxTitleLength      = 255
	maxAgentIDLength    = 100
	maxAuthorNameLength = 100
)

type dataStore interface {
	CreateReview(context.Context, store.Review) (store.Review, error)
	GetReview(context.Context, string) (store.Review, error)
	GetThread(context.Context, string) (store.Thread, error)
	SubmitDecision(context.Context, string, string, *string) (store.Review, error)
	CreateThread(context.Context, store.Thread, store.Comment) (store.Thread, error)
	AddReply(context.Context, string, store.Comment) (store.Comment, error)
	ResolveThread(context.Context, string, bool) (store.Thread, error)
	Ping(context.Context) error
}

// Notifier fans decision wakeups out to waiting requests.
type Notifier interface {
	Publish(ctx context.Context, reviewID string) error
	Subscribe(ctx context.Context, reviewID string) (<-chan struct{}, func(), error)
}

// Searcher is the search facade used for queries and incremental indexing.
type Searcher interface {
	Search(q search.Query) search.Response
	IndexReview(r search.ReviewRecord)
	IndexThread(t search.ThreadRecord)
}

type Service struct {
	cfg      config.Config
	store    dataStore
	search   Searcher
	notifier Notifier
	waiter   *decision.Waiter
	exporter *export.Service
	log      zerolog.Logger
}

// New wires the service. searchService and notifier are optional.
func New(cfg config.Config, dataStore dataStore, searchService Searcher, notifier Notifier) *Service {
	opts := []decision.Option{
		decision.WithPollInterval(cfg.WaitPollInterval()),
		decision.WithLogger(logging.Component("decision")),
	}
	if notifier != nil {
		opts = append(opts, decision.WithSubscriber(notifier))
	}
	return &Service{
		cfg:      cfg,
		store:    dataStore,
		search:   searchService,
		notifier: notifier,
		waiter:   decision.NewWaiter(dataStore, opts...),
		exporter: export.NewService(dataStore),
		log:      logging.Component("app"),
	}
}

func (s *Service) Ping(ctx context.Context) error {
	return s.store.Ping(ctx)
}

func (s *Service) CreateReview(ctx context.Context, input reviewapi.CreateReviewRequest) (reviewapi.CreatedReview, error) {
	var problems issues
	if strings.TrimSpace(input.Content) == "" {
		problems.add("content", "content is required")
	}
	title := trimmedOrNil(input.Title)
	if title != nil && utf8.RuneCountInString(*title) > maxTitleLength {
		problems.add("title", fmt.Sprintf("title must be at most %d characters", maxTitleLength))
	}
	source := strings.TrimSpace(input.Source)
	if source == "" {
		source = store.SourceManual
	}
	if source != store.SourceManual && source != store.SourceAgent {
		problems.add("source", "source must be one of manual, agent")
	}
	agentID := trimmedOrNil(input.AgentID)
	if agentID != nil && utf8.RuneCountInString(*agentID) > maxAgentIDLength {
		problems.add("agentId", fmt.Sprintf("agentId must be at most %d characters", maxAgentIDLength))
	}
	if err := problems.err(); err != nil {
		return reviewapi.CreatedReview{}, err
	}

	slug, err := util.NewSlug()
	if err != nil {
		return reviewapi.CreatedReview{}, fmt.Errorf("generate slug: %w", err)
	}
	review, err := s.store.CreateReview(ctx, store.Review{
		ID:      util.NewID(),
		Slug:    slug,
		Content: input.Content,
		Title:   title,
		Source:  source,
		AgentID: agentID,
	})
	if err != nil {
		return reviewapi.CreatedReview{}, err
	}

	if s.search != nil {
		s.search.IndexReview(reviewRecord(review))
	}
	s.log.Info().Str("review_id", review.ID).Str("source", review.Source).Msg("review created")

	return reviewapi.CreatedReview{
		ID:        review.ID,
		Slug:      review.Slug,
		URL:       s.reviewURL(review.Slug),
		Status:    review.Status,
		CreatedAt: review.CreatedAt,
	}, nil
}

func (s *Service) GetReview(ctx context.Context, id string) (reviewapi.Review, error) {
	review, err := s.store.GetReview(ctx, id)
	if err != nil {
		return reviewapi.Review{}, reviewNotFound(err)
	}
	return s.reviewView(review), nil
}

func (s *Service) SubmitDecision(ctx context.Context, id string, input reviewapi.DecisionRequest) (reviewapi.Decision, error) {
	var problems issues
	status := strings.TrimSpace(input.Status)
	switch status {
	case store.StatusApproved, store.StatusRejected, store.StatusChangesRequested:
	default:
		problems.add("status", "status must be one of approved, rejected, changes_requested")
	}
	if err := problems.err(); err != nil {
		return reviewapi.Decision{}, err
	}

	review, err := s.store.SubmitDecision(ctx, id, status, trimmedOrNil(input.Message))
	if err != nil {
		return reviewapi.Decision{}, reviewNotFound(err)
	}

	if s.notifier != nil {
		if err := s.notifier.Publish(ctx, review.ID); err != nil {
			s.log.Warn().Err(err).Str("review_id", review.ID).Msg("publish decision wakeup")
		}
	}
	if s.search != nil {
		s.search.IndexReview(reviewRecord(review))
	}
	s.log.Info().Str("review_id", review.ID).Str("status", review.Status).Msg("decision submitted")

	return reviewapi.Decision{
		ID:              review.ID,
		Status:          review.Status,
		DecisionMessage: review.DecisionMessage,
		DecidedAt:       review.DecidedAt,
	}, nil
}

func (s *Service) CreateThread(ctx context.Context, reviewID string, input reviewapi.CreateThreadRequest) (reviewapi.Thread, error) {
	var problems issues
	if input.StartLine < 1 {
		problems.add("startLine", "startLine must be an integer >= 1")
	}
	if input.EndLine < 1 {
		problems.add("endLine", "endLine must be an integer >= 1")
	}
	if input.StartLine >= 1 && input.EndLine >= 1 && input.StartLine > input.EndLine {
		problems.add("endLine", "endLine must be greater than or equal to startLine")
	}
	if strings.TrimSpace(input.SelectedText) == "" {
		problems.add("selectedText", "selectedText is required")
	}
	if strings.TrimSpace(input.Body) == "" {
		problems.add("body", "body is required")
	}
	authorType, authorName := validateAuthor(&problems, input.AuthorType, input.AuthorName)
	if err := problems.err(); err != nil {
		return reviewapi.Thread{}, err
	}

	thread, err := s.store.CreateThread(ctx,
		store.Thread{
			ID:           util.NewID(),
			ReviewID:     reviewID,
			StartLine:    input.StartLine,
			EndLine:      input.EndLine,
			SelectedText: input.SelectedText,
		},
		store.Comment{
			ID:         util.NewID(),
			Body:       strings.TrimSpace(input.Body),
			AuthorType: authorType,
			AuthorName: authorName,
		},
	)
	if err != nil {
		return reviewapi.Thread{}, reviewNotFound(err)
	}

	if s.search != nil {
		s.search.IndexThread(threadRecord(thread))
	}
	return threadView(thread), nil
}

func (s *Service) AddReply(ctx context.Context, threadID string, input reviewapi.ReplyRequest) (reviewapi.Comment, error) {
	var problems issues
	if strings.TrimSpace(input.Body) == "" {
		problems.add("body", "body is required")
	}
	authorType, authorName := validateAuthor(&problems, input.AuthorType, input.AuthorName)
	if err := problems.err(); err != nil {
		return reviewapi.Comment{}, err
	}

	comment, err := s.store.AddReply(ctx, threadID, store.Comment{
		ID:         util.NewID(),
		Body:       strings.TrimSpace(input.Body),
		AuthorType: authorType,
		AuthorName: authorName,
	})
	if err != nil {
		return reviewapi.Comment{}, threadNotFound(err)
	}

	s.reindexThread(ctx, threadID)
	return commentView(comment), nil
}

func (s *Service) ResolveThread(ctx context.Context, threadID string, input reviewapi.ResolveRequest) (reviewapi.ThreadResolution, error) {
	var problems issues
	if input.Resolved == nil {
		problems.add("resolved", "resolved must be a boolean")
	}
	if err := problems.err(); err != nil {
		return reviewapi.ThreadResolution{}, err
	}

	thread, err := s.store.ResolveThread(ctx, threadID, *input.Resolved)
	if err != nil {
		return reviewapi.ThreadResolution{}, threadNotFound(err)
	}

	s.reindexThread(ctx, threadID)
	return reviewapi.ThreadResolution{
		ID:         thread.ID,
		Resolved:   thread.Resolved,
		ResolvedAt: thread.ResolvedAt,
	}, nil
}

// WaitForDecision blocks until the review is decided, the timeout elapses or
// ctx is cancelled.
func (s *Service) WaitForDecision(ctx context.Context, reviewID string, timeoutSeconds int) (decision.Outcome, error) {
	out, err := s.waiter.Wait(ctx, reviewID, time.Duration(timeoutSeconds)*time.Second)
	if err != nil {
		if errors.Is(err, decision.ErrAborted) {
			return decision.Outcome{}, err
		}
		return decision.Outcome{}, reviewNotFound(err)
	}
	return out, nil
}

func (s *Service) ExportReview(ctx context.Context, reviewID string, format export.Format) (*export.Result, error) {
	result, err := s.exporter.Export(ctx, export.Request{ReviewID: reviewID, Format: format})
	if err != nil {
		if errors.Is(err, export.ErrPDFDependencyMissing) {
			return nil, domainError(http.StatusServiceUnavailable, "EXPORT_UNAVAILABLE", "PDF export is not available on this server", nil)
		}
		return nil, reviewNotFound(err)
	}
	return result, nil
}

func (s *Service) Search(q search.Query) search.Response {
	if s.search == nil || strings.TrimSpace(q.Text) == "" {
		return search.Response{Results: []search.Result{}, Query: q.Text}
	}
	return s.search.Search(q)
}

func (s *Service) reindexThread(ctx context.Context, threadID string) {
	if s.search == nil {
		return
	}
	thread, err := s.store.GetThread(ctx, threadID)
	if err != nil {
		s.log.Warn().Err(err).Str("thread_id", threadID).Msg("load thread for indexing")
		return
	}
	s.search.IndexThread(threadRecord(thread))
}

func validateAuthor(problems *issues, rawType string, rawName *string) (string, *string) {
	authorType := strings.TrimSpace(rawType)
	if authorType == "" {
		authorType = store.AuthorHuman
	}
	if authorType != store.AuthorHuman && authorType != store.AuthorAgent {
		problems.add("authorType", "authorType must be one of human, agent")
	}
	name := trimmedOrNil(rawName)
	if name != nil && utf8.RuneCountInString(*name) > maxAuthorNameLength {
		problems.add("authorName", fmt.Sprintf("authorName must be at most %d characters", maxAuthorNameLength))
	}
	return authorType, name
}

func trimmedOrNil(value *string) *string {
	if value == nil {
		return nil
	}
	trimmed := strings.TrimSpace(*value)
	if trimmed == "" {
		return nil
	}
	return &trimmed
}

func reviewNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Review not found")
	}
	return err
}

func threadNotFound(err error) error {
	if errors.Is(err, store.ErrNotFound) {
		return notFound("Thread not found")
	}
	return err
}
