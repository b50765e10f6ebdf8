package search

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
)

// PgFTS implements Searcher using PostgreSQL full-text search as a fallback.
type PgFTS struct {
	db *sql.DB
}

// NewPgFTS creates a PostgreSQL FTS searcher.
func NewPgFTS(db *sql.DB) *PgFTS {
	return &PgFTS{db: db}
}

// Healthy always returns true: if Postgres is down, the whole app is down.
func (p *PgFTS) Healthy() bool {
	return true
}

const (
	reviewVector  = "to_tsvector('english', coalesce(r.title, '') || ' ' || r.content)"
	threadVector  = "to_tsvector('english', t.selected_text)"
	commentVector = "to_tsvector('english', c.body)"
)

// Search executes a UNION ALL query across reviews and threads using
// plainto_tsquery and ts_rank, with ts_headline for snippets. A thread
// matches on its selected text or on any of its comments.
func (p *PgFTS) Search(q Query) ([]Result, int, error) {
	if strings.TrimSpace(q.Text) == "" {
		return nil, 0, nil
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 20
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}

	tsQuery := "plainto_tsquery('english', $1)"
	args := []any{q.Text}
	argN := 2

	var subQueries []string

	if q.FilterType == "" || q.FilterType == ResultReview {
		where := reviewVector + " @@ " + tsQuery
		if q.FilterReviewID != "" {
			where += fmt.Sprintf(" AND r.id::text = $%d", argN)
			args = append(args, q.FilterReviewID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'review'::text AS type, r.id::text AS id, coalesce(r.title, r.slug) AS title,
				ts_headline('english', r.content, %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				r.id::text AS review_id, r.status,
				ts_rank(%s, %s) AS rank
			FROM reviews r
			WHERE %s`, tsQuery, reviewVector, tsQuery, where))
	}

	if q.FilterType == "" || q.FilterType == ResultThread {
		where := fmt.Sprintf(`(%s @@ %s OR EXISTS (
				SELECT 1 FROM comments c WHERE c.thread_id = t.id AND %s @@ %s))`,
			threadVector, tsQuery, commentVector, tsQuery)
		if q.FilterReviewID != "" {
			where += fmt.Sprintf(" AND t.review_id::text = $%d", argN)
			args = append(args, q.FilterReviewID)
			argN++
		}
		subQueries = append(subQueries, fmt.Sprintf(`
			SELECT 'thread'::text AS type, t.id::text AS id, t.selected_text AS title,
				ts_headline('english', coalesce((
					SELECT string_agg(c.body, ' ' ORDER BY c.created_at) FROM comments c WHERE c.thread_id = t.id
				), ''), %s, 'MaxFragments=1,MaxWords=30') AS snippet,
				t.review_id::text AS review_id,
				CASE WHEN t.resolved THEN 'resolved' ELSE 'open' END AS status,
				ts_rank(%s, %s) AS rank
			FROM threads t
			WHERE %s`, tsQuery, threadVector, tsQuery, where))
	}

	if len(subQueries) == 0 {
		return nil, 0, nil
	}

	countSQL := fmt.Sprintf("SELECT count(*) FROM (%s) sub",
		strings.Join(subQueries, " UNION ALL "))

	dataSQL := fmt.Sprintf(`SELECT type, id, title, snippet, review_id, status
		FROM (%s) sub
		ORDER BY rank DESC
		LIMIT %d OFFSET %d`,
		strings.Join(subQueries, " UNION ALL "),
		limit, offset)

	ctx := context.Background()

	var total int
	if err := p.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("pgfts count: %w", err)
	}

	rows, err := p.db.QueryContext(ctx, dataSQL, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("pgfts query: %w", err)
	}
	defer rows.Close()

	var results []Result
	for rows.Next() {
		var r Result
		var typ string
		if err := rows.Scan(&typ, &r.ID, &r.Title, &r.Snippet, &r.ReviewID, &r.Status); err != nil {
			return nil, 0, fmt.Errorf("pgfts scan: %w", err)
		}
		r.Type = ResultType(typ)
		results = append(results, r)
	}

	return results, total, rows.Err()
}

// LoadAllRecords returns all searchable records for full reindexing.
func (p *PgFTS) LoadAllRecords(ctx context.Context) ([]ReviewRecord, []ThreadRecord, error) {
	reviewRows, err := p.db.QueryContext(ctx, `
		SELECT id::text, slug, coalesce(title, ''), status, content
		FROM reviews
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load reviews: %w", err)
	}
	defer reviewRows.Close()

	reviews := make([]ReviewRecord, 0)
	for reviewRows.Next() {
		var r ReviewRecord
		if err := reviewRows.Scan(&r.ID, &r.Slug, &r.Title, &r.Status, &r.Content); err != nil {
			return nil, nil, fmt.Errorf("scan review: %w", err)
		}
		reviews = append(reviews, r)
	}
	if err := reviewRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate reviews: %w", err)
	}

	threadRows, err := p.db.QueryContext(ctx, `
		SELECT t.id::text, t.review_id::text, t.selected_text, t.resolved,
			coalesce(string_agg(c.body, E'\n' ORDER BY c.created_at), '')
		FROM threads t
		LEFT JOIN comments c ON c.thread_id = t.id
		GROUP BY t.id
	`)
	if err != nil {
		return nil, nil, fmt.Errorf("load threads: %w", err)
	}
	defer threadRows.Close()

	threads := make([]ThreadRecord, 0)
	for threadRows.Next() {
		var t ThreadRecord
		if err := threadRows.Scan(&t.ID, &t.ReviewID, &t.SelectedText, &t.Resolved, &t.Comments); err != nil {
			return nil, nil, fmt.Errorf("scan thread: %w", err)
		}
		threads = append(threads, t)
	}
	if err := threadRows.Err(); err != nil {
		return nil, nil, fmt.Errorf("iterate threads: %w", err)
	}

	return reviews, threads, nil
}
