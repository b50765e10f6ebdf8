package search

// ResultType identifies the kind of entity in a search result.
type ResultType string

const (
	ResultReview ResultType = "review"
	ResultThread ResultType = "thread"
)

// Result is a single search hit returned to the caller.
type Result struct {
	Type     ResultType `json:"type"`
	ID       string     `json:"id"`
	Title    string     `json:"title"`
	Snippet  string     `json:"snippet"`
	ReviewID string     `json:"reviewId"`
	Status   string     `json:"status,omitempty"`
}

// Query describes a search request.
type Query struct {
	Text           string
	FilterType     ResultType // empty = all types
	FilterReviewID string
	Limit          int
	Offset         int
}

// Response is the envelope returned by the search endpoint.
type Response struct {
	Results []Result `json:"results"`
	Total   int      `json:"total"`
	Query   string   `json:"query"`
}

// Searcher can execute a full-text search.
type Searcher interface {
	Search(q Query) ([]Result, int, error)
	Healthy() bool
}

// Indexer can push entities into a search index.
type Indexer interface {
	IndexReview(r ReviewRecord) error
	IndexThread(t ThreadRecord) error
}

// ReviewRecord is the data we index for a review.
type ReviewRecord struct {
	ID      string `json:"id"`
	Slug    string `json:"slug"`
	Title   string `json:"title"`
	Status  string `json:"status"`
	Content string `json:"content"`
}

// ThreadRecord is the data we index for a thread. Comments holds every
// comment body of the thread joined by newlines.
type ThreadRecord struct {
	ID           string `json:"id"`
	ReviewID     string `json:"reviewId"`
	SelectedText string `json:"selectedText"`
	Comments     string `json:"comments"`
	Resolved     bool   `json:"resolved"`
}
