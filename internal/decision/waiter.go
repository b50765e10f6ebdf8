// Package decision implements the bounded long-poll that lets a caller block
// until a human records a decision on a review.
package decision

import (
	"context"
	"errors"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"mdreview/api/internal/store"
)

const (
	// DefaultTimeoutSeconds applies when the caller gives no usable timeout.
	DefaultTimeoutSeconds = 300
	// MaxTimeoutSeconds caps every wait regardless of caller input.
	MaxTimeoutSeconds = 300
	// DefaultPollInterval is the sleep between two review reads.
	DefaultPollInterval = 2 * time.Second
)

// ErrAborted means the caller went away before a decision or timeout.
var ErrAborted = errors.New("wait aborted by client")

// Fetcher reads a review with its threads and comments.
type Fetcher interface {
	GetReview(ctx context.Context, id string) (store.Review, error)
}

// Subscriber delivers a wakeup whenever a decision may have been recorded
// for a review. It only shortens the sleep between polls.
type Subscriber interface {
	Subscribe(ctx context.Context, reviewID string) (<-chan struct{}, func(), error)
}

// Outcome is the terminal result of a wait that did not error.
type Outcome struct {
	Decided  bool
	TimedOut bool
	Review   store.Review
	Summary  Summary
}

type Waiter struct {
	fetcher  Fetcher
	notifier Subscriber
	interval time.Duration
	now      func() time.Time
	log      zerolog.Logger
}

type Option func(*Waiter)

func WithPollInterval(d time.Duration) Option {
	return func(w *Waiter) {
		if d > 0 {
			w.interval = d
		}
	}
}

func WithSubscriber(s Subscriber) Option {
	return func(w *Waiter) { w.notifier = s }
}

func WithClock(now func() time.Time) Option {
	return func(w *Waiter) { w.now = now }
}

func WithLogger(l zerolog.Logger) Option {
	return func(w *Waiter) { w.log = l }
}

func NewWaiter(fetcher Fetcher, opts ...Option) *Waiter {
	w := &Waiter{
		fetcher:  fetcher,
		interval: DefaultPollInterval,
		now:      time.Now,
		log:      zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(w)
	}
	return w
}

// ParseTimeout turns the raw timeout query value into seconds. Only the
// leading integer counts, so "3.5" and "10s" read as 3 and 10. Absent,
// unparseable and non-positive values fall back to the default; everything
// is capped at the ceiling.
func ParseTimeout(raw string) int {
	seconds, err := strconv.Atoi(leadingInt(strings.TrimSpace(raw)))
	switch {
	case errors.Is(err, strconv.ErrRange) && seconds > 0:
		seconds = MaxTimeoutSeconds
	case err != nil || seconds <= 0:
		seconds = DefaultTimeoutSeconds
	}
	return min(seconds, MaxTimeoutSeconds)
}

// leadingInt returns the optional sign and digits that prefix s.
func leadingInt(s string) string {
	end := 0
	if end < len(s) && (s[end] == '+' || s[end] == '-') {
		end++
	}
	for end < len(s) && s[end] >= '0' && s[end] <= '9' {
		end++
	}
	return s[:end]
}

// Wait polls the review until it leaves pending, the timeout elapses or ctx
// is cancelled. Cancellation is checked before every read.
func (w *Waiter) Wait(ctx context.Context, reviewID string, timeout time.Duration) (Outcome, error) {
	if timeout <= 0 {
		timeout = DefaultTimeoutSeconds * time.Second
	}
	timeout = min(timeout, MaxTimeoutSeconds*time.Second)

	var wake <-chan struct{}
	if w.notifier != nil {
		ch, unsubscribe, err := w.notifier.Subscribe(ctx, reviewID)
		if err != nil {
			w.log.Warn().Err(err).Str("review_id", reviewID).Msg("decision subscribe failed, polling only")
		} else {
			defer unsubscribe()
			wake = ch
		}
	}

	started := w.now()
	polls := 0
	for w.now().Sub(started) < timeout {
		if ctx.Err() != nil {
			return Outcome{}, ErrAborted
		}

		review, err := w.fetcher.GetReview(ctx, reviewID)
		if err != nil {
			if ctx.Err() != nil {
				return Outcome{}, ErrAborted
			}
			return Outcome{}, err
		}
		polls++

		if review.IsDecided() {
			w.log.Debug().Str("review_id", reviewID).Int("polls", polls).Str("status", review.Status).Msg("decision observed")
			return Outcome{Decided: true, Review: review, Summary: Summarize(review)}, nil
		}

		if err := w.sleep(ctx, wake); err != nil {
			return Outcome{}, err
		}
	}

	w.log.Debug().Str("review_id", reviewID).Int("polls", polls).Msg("wait timed out")
	return Outcome{TimedOut: true}, nil
}

func (w *Waiter) sleep(ctx context.Context, wake <-chan struct{}) error {
	timer := time.NewTimer(w.interval)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ErrAborted
	case <-timer.C:
	case <-wake:
	}
	return nil
}
