package search

import (
	"encoding/json"
	"fmt"
	"strings"
	"sync/atomic"
	"time"

	meili "github.com/meilisearch/meilisearch-go"
	"github.com/rs/zerolog"

	"mdreview/api/internal/logging"
)

const (
	idxReviews = "mdreview_reviews"
	idxThreads = "mdreview_threads"

	healthInterval = 10 * time.Second
)

// Meili implements Searcher and Indexer via Meilisearch.
type Meili struct {
	client  meili.ServiceManager
	healthy atomic.Bool
	done    chan struct{}
	log     zerolog.Logger
}

// NewMeili creates a Meilisearch client and configures indexes.
// An unreachable server is not fatal: the health loop keeps probing it.
func NewMeili(url, apiKey string) *Meili {
	client := meili.New(url, meili.WithAPIKey(apiKey))

	m := &Meili{
		client: client,
		done:   make(chan struct{}),
		log:    logging.Component("search"),
	}

	if _, err := client.Health(); err != nil {
		m.log.Warn().Err(err).Str("url", url).Msg("meilisearch unavailable")
		m.healthy.Store(false)
	} else {
		m.healthy.Store(true)
		m.configureIndexes()
	}

	go m.healthLoop()
	return m
}

type indexSpec struct {
	uid        string
	filterable []string
	searchable []string
}

var indexSpecs = []indexSpec{
	{uid: idxReviews, filterable: []string{"status"}, searchable: []string{"title", "content"}},
	{uid: idxThreads, filterable: []string{"reviewId", "resolved"}, searchable: []string{"selectedText", "comments"}},
}

func (m *Meili) configureIndexes() {
	for _, spec := range indexSpecs {
		if _, err := m.client.CreateIndex(&meili.IndexConfig{Uid: spec.uid, PrimaryKey: "id"}); err != nil {
			// already exists on every start after the first
			m.log.Debug().Err(err).Str("index", spec.uid).Msg("create index")
		}

		index := m.client.Index(spec.uid)
		filterable := make([]interface{}, 0, len(spec.filterable))
		for _, attr := range spec.filterable {
			filterable = append(filterable, attr)
		}
		if _, err := index.UpdateFilterableAttributes(&filterable); err != nil {
			m.log.Warn().Err(err).Str("index", spec.uid).Msg("update filterable attributes")
		}
		if _, err := index.UpdateSearchableAttributes(&spec.searchable); err != nil {
			m.log.Warn().Err(err).Str("index", spec.uid).Msg("update searchable attributes")
		}
	}
}

func (m *Meili) healthLoop() {
	ticker := time.NewTicker(healthInterval)
	defer ticker.Stop()
	for {
		select {
		case <-m.done:
			return
		case <-ticker.C:
			_, err := m.client.Health()
			wasHealthy := m.healthy.Load()
			m.healthy.Store(err == nil)
			if err == nil && !wasHealthy {
				m.log.Info().Msg("meilisearch recovered, reconfiguring indexes")
				m.configureIndexes()
			}
		}
	}
}

// Close stops the background health monitor.
func (m *Meili) Close() {
	close(m.done)
}

// Healthy reports whether Meilisearch is reachable.
func (m *Meili) Healthy() bool {
	return m.healthy.Load()
}

// Search queries both indexes (or a filtered subset) and merges results.
func (m *Meili) Search(q Query) ([]Result, int, error) {
	if !m.healthy.Load() {
		return nil, 0, fmt.Errorf("meilisearch unhealthy")
	}

	queries := buildQueries(q)
	if len(queries) == 0 {
		return nil, 0, nil
	}

	resp, err := m.client.MultiSearch(&meili.MultiSearchRequest{
		Queries: queries,
	})
	if err != nil {
		m.healthy.Store(false)
		return nil, 0, fmt.Errorf("meilisearch multi-search: %w", err)
	}

	var results []Result
	total := 0
	for _, sr := range resp.Results {
		total += int(sr.EstimatedTotalHits)
		rtyp := indexToResultType(sr.IndexUID)
		for _, hit := range sr.Hits {
			results = append(results, hitToResult(hit, rtyp))
		}
	}

	return results, total, nil
}

func buildQueries(q Query) []*meili.SearchRequest {
	limit := int64(q.Limit)
	if limit <= 0 {
		limit = 20
	}

	targetIndexes := []struct {
		uid  string
		rtyp ResultType
	}{
		{idxReviews, ResultReview},
		{idxThreads, ResultThread},
	}

	var queries []*meili.SearchRequest
	for _, ti := range targetIndexes {
		if q.FilterType != "" && q.FilterType != ti.rtyp {
			continue
		}
		sr := &meili.SearchRequest{
			IndexUID:              ti.uid,
			Query:                 q.Text,
			Limit:                 limit,
			Offset:                int64(q.Offset),
			AttributesToHighlight: []string{"*"},
			HighlightPreTag:       "<mark>",
			HighlightPostTag:      "</mark>",
			ShowRankingScore:      true,
		}
		if q.FilterReviewID != "" {
			key := "reviewId"
			if ti.rtyp == ResultReview {
				key = "id"
			}
			sr.Filter = []string{fmt.Sprintf("%s = %q", key, q.FilterReviewID)}
		}
		queries = append(queries, sr)
	}
	return queries
}

func indexToResultType(uid string) ResultType {
	switch uid {
	case idxReviews:
		return ResultReview
	case idxThreads:
		return ResultThread
	default:
		return ""
	}
}

func hitToResult(hit meili.Hit, rtyp ResultType) Result {
	r := Result{Type: rtyp}
	r.ID = decodeString(hit, "id")

	switch rtyp {
	case ResultReview:
		r.Title = firstNonBlank(decodeFormattedString(hit, "title"), decodeString(hit, "title"), decodeString(hit, "slug"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "content"), decodeString(hit, "content"))
		r.Status = decodeString(hit, "status")
		r.ReviewID = r.ID
	case ResultThread:
		r.Title = firstNonBlank(decodeFormattedString(hit, "selectedText"), decodeString(hit, "selectedText"))
		r.Snippet = firstNonBlank(decodeFormattedString(hit, "comments"), decodeString(hit, "comments"))
		r.ReviewID = decodeString(hit, "reviewId")
		if decodeBool(hit, "resolved") {
			r.Status = "resolved"
		} else {
			r.Status = "open"
		}
	}
	return r
}

func decodeString(hit meili.Hit, key string) string {
	raw, ok := hit[key]
	if !ok {
		return ""
	}

	var s string
	if err := json.Unmarshal(raw, &s); err == nil {
		return s
	}
	return ""
}

func decodeBool(hit meili.Hit, key string) bool {
	raw, ok := hit[key]
	if !ok {
		return false
	}
	var b bool
	_ = json.Unmarshal(raw, &b)
	return b
}

func decodeFormattedString(hit meili.Hit, key string) string {
	raw, ok := hit["_formatted"]
	if !ok {
		return ""
	}
	var formatted map[string]json.RawMessage
	if err := json.Unmarshal(raw, &formatted); err != nil {
		return ""
	}
	var s string
	if err := json.Unmarshal(formatted[key], &s); err != nil {
		return ""
	}
	return strings.TrimSpace(s)
}

func firstNonBlank(values ...string) string {
	for _, value := range values {
		if strings.TrimSpace(value) != "" {
			return value
		}
	}
	return ""
}

func addDocuments[T any](m *Meili, uid string, docs []T) error {
	if len(docs) == 0 {
		return nil
	}
	if _, err := m.client.Index(uid).AddDocuments(docs, nil); err != nil {
		return fmt.Errorf("meilisearch add to %s: %w", uid, err)
	}
	return nil
}

// IndexReview adds or updates a review in the search index.
func (m *Meili) IndexReview(r ReviewRecord) error {
	return addDocuments(m, idxReviews, []ReviewRecord{r})
}

// IndexThread adds or updates a thread in the search index.
func (m *Meili) IndexThread(t ThreadRecord) error {
	return addDocuments(m, idxThreads, []ThreadRecord{t})
}

func (m *Meili) IndexReviews(reviews []ReviewRecord) error {
	return addDocuments(m, idxReviews, reviews)
}

func (m *Meili) IndexThreads(threads []ThreadRecord) error {
	return addDocuments(m, idxThreads, threads)
}
