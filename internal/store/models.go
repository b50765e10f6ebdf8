package store

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
)

type Review struct {
	ID              string
	Slug            string
	Content         string
	Title           *string
	Status          string
	DecisionMessage *string
	DecidedAt       *time.Time
	Source          string
	AgentID         *string
	CreatedAt       time.Time
	UpdatedAt       time.Time
	ExpiresAt       *time.Time
	Threads         []Thread
}

type Thread struct {
	ID           string
	ReviewID     string
	StartLine    int
	EndLine      int
	SelectedText string
	Resolved     bool
	ResolvedAt   *time.Time
	CreatedAt    time.Time
	UpdatedAt    time.Time
	Comments     []Comment
}

type Comment struct {
	ID         string
	ThreadID   string
	Body       string
	AuthorType string
	AuthorName *string
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// IsDecided reports whether the review carries a terminal decision.
func (r Review) IsDecided() bool {
	return r.Status != StatusPending
}
