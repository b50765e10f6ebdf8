// Package reviewapi holds the JSON shapes exchanged between the review API
// server and its clients.
package reviewapi

import "time"

const (
	StatusPending          = "pending"
	StatusApproved         = "approved"
	StatusRejected         = "rejected"
	StatusChangesRequested = "changes_requested"

	AuthorHuman = "human"
	AuthorAgent = "agent"

	SourceManual = "manual"
	SourceAgent  = "agent"

	// PendingMessage is returned when a wait times out without a decision.
	PendingMessage = "Review still pending. Poll again."
)

type Review struct {
	ID              string     `json:"id"`
	Slug            string     `json:"slug"`
	URL             string     `json:"url"`
	Content         string     `json:"content"`
	Title           *string    `json:"title"`
	Status          string     `json:"status"`
	DecisionMessage *string    `json:"decisionMessage"`
	DecidedAt       *time.Time `json:"decidedAt"`
	Source          string     `json:"source"`
	Threads         []Thread   `json:"threads"`
	CreatedAt       time.Time  `json:"createdAt"`
	UpdatedAt       time.Time  `json:"updatedAt"`
}

type Thread struct {
	ID           string     `json:"id"`
	StartLine    int        `json:"startLine"`
	EndLine      int        `json:"endLine"`
	SelectedText string     `json:"selectedText"`
	Resolved     bool       `json:"resolved"`
	ResolvedAt   *time.Time `json:"resolvedAt"`
	Comments     []Comment  `json:"comments"`
	CreatedAt    time.Time  `json:"createdAt"`
}

type Comment struct {
	ID         string    `json:"id"`
	Body       string    `json:"body"`
	AuthorType string    `json:"authorType"`
	AuthorName *string   `json:"authorName"`
	CreatedAt  time.Time `json:"createdAt"`
}

type CreatedReview struct {
	ID        string    `json:"id"`
	Slug      string    `json:"slug"`
	URL       string    `json:"url"`
	Status    string    `json:"status"`
	CreatedAt time.Time `json:"createdAt"`
}

type Decision struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	DecisionMessage *string    `json:"decisionMessage"`
	DecidedAt       *time.Time `json:"decidedAt"`
}

type Summary struct {
	TotalThreads      int `json:"totalThreads"`
	ResolvedThreads   int `json:"resolvedThreads"`
	UnresolvedThreads int `json:"unresolvedThreads"`
	TotalComments     int `json:"totalComments"`
}

// Summarize counts threads and comments on the client side.
func Summarize(threads []Thread) Summary {
	return Tally(threads,
		func(t Thread) bool { return t.Resolved },
		func(t Thread) int { return len(t.Comments) },
	)
}

// Tally builds a Summary over any thread representation.
func Tally[T any](threads []T, resolved func(T) bool, comments func(T) int) Summary {
	s := Summary{TotalThreads: len(threads)}
	for _, t := range threads {
		if resolved(t) {
			s.ResolvedThreads++
		}
		s.TotalComments += comments(t)
	}
	s.UnresolvedThreads = s.TotalThreads - s.ResolvedThreads
	return s
}

// DecisionResult is the body of a wait that observed a decision.
type DecisionResult struct {
	ID              string     `json:"id"`
	Status          string     `json:"status"`
	DecisionMessage *string    `json:"decisionMessage"`
	DecidedAt       *time.Time `json:"decidedAt"`
	Threads         []Thread   `json:"threads"`
	Summary         Summary    `json:"summary"`
}

// PendingResult is the body of a wait that timed out.
type PendingResult struct {
	Status   string `json:"status"`
	Message  string `json:"message"`
	TimedOut bool   `json:"timedOut"`
}

type ThreadResolution struct {
	ID         string     `json:"id"`
	Resolved   bool       `json:"resolved"`
	ResolvedAt *time.Time `json:"resolvedAt"`
}

type CreateReviewRequest struct {
	Content string  `json:"content"`
	Title   *string `json:"title,omitempty"`
	Source  string  `json:"source,omitempty"`
	AgentID *string `json:"agentId,omitempty"`
}

type DecisionRequest struct {
	Status  string  `json:"status"`
	Message *string `json:"message,omitempty"`
}

type CreateThreadRequest struct {
	StartLine    int     `json:"startLine"`
	EndLine      int     `json:"endLine"`
	SelectedText string  `json:"selectedText"`
	Body         string  `json:"body"`
	AuthorType   string  `json:"authorType,omitempty"`
	AuthorName   *string `json:"authorName,omitempty"`
}

type ReplyRequest struct {
	Body       string  `json:"body"`
	AuthorType string  `json:"authorType,omitempty"`
	AuthorName *string `json:"authorName,omitempty"`
}

type ResolveRequest struct {
	Resolved *bool `json:"resolved"`
}

// Issue is one field-level validation failure.
type Issue struct {
	Field   string `json:"field"`
	Message string `json:"message"`
}

// ErrorBody is the shape of every non-2xx JSON response.
type ErrorBody struct {
	Code    string        `json:"code"`
	Error   string        `json:"error"`
	Details *ErrorDetails `json:"details,omitempty"`
}

type ErrorDetails struct {
	Issues []Issue `json:"issues,omitempty"`
}
