package annotate

import (
	"context"
	"errors"
	"strings"
	"time"
)

var (
	ErrNothingSelected  = errors.New("no committed selection")
	ErrEmptyBody        = errors.New("comment body is empty")
	ErrSubmitInFlight   = errors.New("submission already in flight")
	ErrAlreadySubmitted = errors.New("selection already submitted")
)

// ThreadRequest is what gets sent to the create-thread operation.
type ThreadRequest struct {
	StartLine    int
	EndLine      int
	SelectedText string
	Body         string
}

// CreateFunc persists a new thread with its first comment.
type CreateFunc func(ctx context.Context, req ThreadRequest) (ThreadSpan, error)

// Ticket captures a committed selection by value for one submission.
type Ticket struct {
	Selection FinalSelection
	Body      string
}

// Request builds the create-thread payload for the ticket.
func (t Ticket) Request() ThreadRequest {
	return ThreadRequest{
		StartLine:    t.Selection.StartLine,
		EndLine:      t.Selection.EndLine,
		SelectedText: t.Selection.BlockContent,
		Body:         t.Body,
	}
}

// Submitter binds committed selections to comment bodies and guards against
// duplicate submissions of the same selection.
type Submitter struct {
	inflight map[uint64]struct{}
}

func NewSubmitter() *Submitter {
	return &Submitter{inflight: make(map[uint64]struct{})}
}

// Begin validates body and captures the current committed selection.
func (s *Submitter) Begin(sel *Selection, body string) (Ticket, error) {
	body = strings.TrimSpace(body)
	if body == "" {
		return Ticket{}, ErrEmptyBody
	}
	final, ok := sel.Final()
	if !ok {
		return Ticket{}, ErrNothingSelected
	}
	if sel.Pending() {
		return Ticket{}, ErrAlreadySubmitted
	}
	if _, busy := s.inflight[final.Generation]; busy {
		return Ticket{}, ErrSubmitInFlight
	}
	s.inflight[final.Generation] = struct{}{}
	return Ticket{Selection: final, Body: body}, nil
}

// Complete records the outcome of a submission. A failure leaves the
// selection committed for retry. A success arms the auto-expire timer only
// if the ticket's selection is still the committed one; it reports whether
// that happened.
func (s *Submitter) Complete(sel *Selection, ticket Ticket, err error, now time.Time) bool {
	delete(s.inflight, ticket.Selection.Generation)
	if err != nil {
		return false
	}
	return sel.MarkSubmitted(ticket.Selection, now)
}

// InFlight reports whether the committed selection has a submission running.
func (s *Submitter) InFlight(sel *Selection) bool {
	final, ok := sel.Final()
	if !ok {
		return false
	}
	_, busy := s.inflight[final.Generation]
	return busy
}

// Submit runs Begin, create and Complete in sequence.
func (s *Submitter) Submit(ctx context.Context, sel *Selection, body string, create CreateFunc) (ThreadSpan, error) {
	ticket, err := s.Begin(sel, body)
	if err != nil {
		return ThreadSpan{}, err
	}
	thread, err := create(ctx, ticket.Request())
	s.Complete(sel, ticket, err, time.Now())
	if err != nil {
		return ThreadSpan{}, err
	}
	return thread, nil
}
