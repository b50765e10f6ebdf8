package decision

import (
	"mdreview/api/internal/reviewapi"
	"mdreview/api/internal/store"
)

// Summary counts threads and comments of a review.
type Summary = reviewapi.Summary

func Summarize(review store.Review) Summary {
	return reviewapi.Tally(review.Threads,
		func(t store.Thread) bool { return t.Resolved },
		func(t store.Thread) int { return len(t.Comments) },
	)
}
