package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// ErrNotFound is returned when a review or thread id does not exist.
var ErrNotFound = errors.New("not found")

type PostgresStore struct {
	db *sql.DB
}

func NewPostgresStore(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

func (s *PostgresStore) DB() *sql.DB {
	return s.db
}

func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *PostgresStore) CreateReview(ctx context.Context, review Review) (Review, error) {
	err := s.db.QueryRowContext(ctx, `
		INSERT INTO reviews (id, slug, content, title, source, agent_id, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING status, created_at, updated_at
	`, review.ID, review.Slug, review.Content, review.Title, review.Source, review.AgentID, review.ExpiresAt).Scan(
		&review.Status,
		&review.CreatedAt,
		&review.UpdatedAt,
	)
	if err != nil {
		return Review{}, fmt.Errorf("insert review: %w", err)
	}
	review.Threads = []Thread{}
	return review, nil
}

// GetReview loads a review with its threads and their comments, both ordered
// by creation time.
func (s *PostgresStore) GetReview(ctx context.Context, id string) (Review, error) {
	if !validID(id) {
		return Review{}, ErrNotFound
	}

	var review Review
	err := s.db.QueryRowContext(ctx, `
		SELECT id, slug, content, title, status, decision_message, decided_at, source, agent_id, created_at, updated_at, expires_at
		FROM reviews
		WHERE id=$1
	`, id).Scan(
		&review.ID,
		&review.Slug,
		&review.Content,
		&review.Title,
		&review.Status,
		&review.DecisionMessage,
		&review.DecidedAt,
		&review.Source,
		&review.AgentID,
		&review.CreatedAt,
		&review.UpdatedAt,
		&review.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Review{}, ErrNotFound
	}
	if err != nil {
		return Review{}, fmt.Errorf("get review: %w", err)
	}

	threads, err := s.listThreads(ctx, id)
	if err != nil {
		return Review{}, err
	}
	comments, err := s.listReviewComments(ctx, id)
	if err != nil {
		return Review{}, err
	}
	for i := range threads {
		threads[i].Comments = comments[threads[i].ID]
		if threads[i].Comments == nil {
			threads[i].Comments = []Comment{}
		}
	}
	review.Threads = threads
	return review, nil
}

func (s *PostgresStore) listThreads(ctx context.Context, reviewID string) ([]Thread, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, review_id, start_line, end_line, selected_text, resolved, resolved_at, created_at, updated_at
		FROM threads
		WHERE review_id=$1
		ORDER BY created_at ASC, id ASC
	`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list threads: %w", err)
	}
	defer rows.Close()

	items := make([]Thread, 0)
	for rows.Next() {
		var item Thread
		if err := rows.Scan(
			&item.ID,
			&item.ReviewID,
			&item.StartLine,
			&item.EndLine,
			&item.SelectedText,
			&item.Resolved,
			&item.ResolvedAt,
			&item.CreatedAt,
			&item.UpdatedAt,
		); err != nil {
			return nil, fmt.Errorf("scan thread: %w", err)
		}
		items = append(items, item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate threads: %w", err)
	}
	return items, nil
}

func (s *PostgresStore) listReviewComments(ctx context.Context, reviewID string) (map[string][]Comment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.id, c.thread_id, c.body, c.author_type, c.author_name, c.created_at, c.updated_at
		FROM comments c
		JOIN threads t ON t.id = c.thread_id
		WHERE t.review_id=$1
		ORDER BY c.created_at ASC, c.id ASC
	`, reviewID)
	if err != nil {
		return nil, fmt.Errorf("list comments: %w", err)
	}
	defer rows.Close()

	byThread := make(map[string][]Comment)
	for rows.Next() {
		item, err := scanComment(rows)
		if err != nil {
			return nil, err
		}
		byThread[item.ThreadID] = append(byThread[item.ThreadID], item)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate comments: %w", err)
	}
	return byThread, nil
}

// GetThread loads a single thread with its comments.
func (s *PostgresStore) GetThread(ctx context.Context, id string) (Thread, error) {
	if !validID(id) {
		return Thread{}, ErrNotFound
	}

	var item Thread
	err := s.db.QueryRowContext(ctx, `
		SELECT id, review_id, start_line, end_line, selected_text, resolved, resolved_at, created_at, updated_at
		FROM threads
		WHERE id=$1
	`, id).Scan(
		&item.ID,
		&item.ReviewID,
		&item.StartLine,
		&item.EndLine,
		&item.SelectedText,
		&item.Resolved,
		&item.ResolvedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Thread{}, ErrNotFound
	}
	if err != nil {
		return Thread{}, fmt.Errorf("get thread: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, thread_id, body, author_type, author_name, created_at, updated_at
		FROM comments
		WHERE thread_id=$1
		ORDER BY created_at ASC, id ASC
	`, id)
	if err != nil {
		return Thread{}, fmt.Errorf("list thread comments: %w", err)
	}
	defer rows.Close()

	item.Comments = make([]Comment, 0)
	for rows.Next() {
		comment, err := scanComment(rows)
		if err != nil {
			return Thread{}, err
		}
		item.Comments = append(item.Comments, comment)
	}
	if err := rows.Err(); err != nil {
		return Thread{}, fmt.Errorf("iterate thread comments: %w", err)
	}
	return item, nil
}

// SubmitDecision overwrites the review's decision and stamps decided_at.
func (s *PostgresStore) SubmitDecision(ctx context.Context, id, status string, message *string) (Review, error) {
	if !validID(id) {
		return Review{}, ErrNotFound
	}

	var review Review
	err := s.db.QueryRowContext(ctx, `
		UPDATE reviews
		SET status=$2, decision_message=$3, decided_at=NOW(), updated_at=NOW()
		WHERE id=$1
		RETURNING id, slug, content, title, status, decision_message, decided_at, source, agent_id, created_at, updated_at, expires_at
	`, id, status, message).Scan(
		&review.ID,
		&review.Slug,
		&review.Content,
		&review.Title,
		&review.Status,
		&review.DecisionMessage,
		&review.DecidedAt,
		&review.Source,
		&review.AgentID,
		&review.CreatedAt,
		&review.UpdatedAt,
		&review.ExpiresAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Review{}, ErrNotFound
	}
	if err != nil {
		return Review{}, fmt.Errorf("submit decision: %w", err)
	}
	return review, nil
}

// CreateThread inserts a thread and its first comment in one transaction.
// An agent-authored thread on a decided review puts the review back to
// pending.
func (s *PostgresStore) CreateThread(ctx context.Context, thread Thread, first Comment) (Thread, error) {
	if !validID(thread.ReviewID) {
		return Thread{}, ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Thread{}, fmt.Errorf("begin create thread tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var status string
	err = tx.QueryRowContext(ctx, `SELECT status FROM reviews WHERE id=$1 FOR UPDATE`, thread.ReviewID).Scan(&status)
	if errors.Is(err, sql.ErrNoRows) {
		return Thread{}, ErrNotFound
	}
	if err != nil {
		return Thread{}, fmt.Errorf("lock review: %w", err)
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO threads (id, review_id, start_line, end_line, selected_text)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING resolved, resolved_at, created_at, updated_at
	`, thread.ID, thread.ReviewID, thread.StartLine, thread.EndLine, thread.SelectedText).Scan(
		&thread.Resolved,
		&thread.ResolvedAt,
		&thread.CreatedAt,
		&thread.UpdatedAt,
	)
	if err != nil {
		return Thread{}, fmt.Errorf("insert thread: %w", err)
	}

	first.ThreadID = thread.ID
	comment, err := insertComment(ctx, tx, first)
	if err != nil {
		return Thread{}, err
	}

	if first.AuthorType == AuthorAgent && status != StatusPending {
		if err := reopenReview(ctx, tx, thread.ReviewID); err != nil {
			return Thread{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Thread{}, fmt.Errorf("commit create thread: %w", err)
	}

	thread.Comments = []Comment{comment}
	return thread, nil
}

// AddReply appends a comment to a thread. An agent reply reopens the owning
// review when it has been decided.
func (s *PostgresStore) AddReply(ctx context.Context, threadID string, reply Comment) (Comment, error) {
	if !validID(threadID) {
		return Comment{}, ErrNotFound
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return Comment{}, fmt.Errorf("begin add reply tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var reviewID, status string
	err = tx.QueryRowContext(ctx, `
		SELECT r.id, r.status
		FROM threads t
		JOIN reviews r ON r.id = t.review_id
		WHERE t.id=$1
		FOR UPDATE OF r
	`, threadID).Scan(&reviewID, &status)
	if errors.Is(err, sql.ErrNoRows) {
		return Comment{}, ErrNotFound
	}
	if err != nil {
		return Comment{}, fmt.Errorf("lock thread review: %w", err)
	}

	reply.ThreadID = threadID
	comment, err := insertComment(ctx, tx, reply)
	if err != nil {
		return Comment{}, err
	}

	if reply.AuthorType == AuthorAgent && status != StatusPending {
		if err := reopenReview(ctx, tx, reviewID); err != nil {
			return Comment{}, err
		}
	}

	if err := tx.Commit(); err != nil {
		return Comment{}, fmt.Errorf("commit add reply: %w", err)
	}
	return comment, nil
}

// ResolveThread sets the resolved flag, stamping resolved_at when resolving
// and clearing it otherwise.
func (s *PostgresStore) ResolveThread(ctx context.Context, threadID string, resolved bool) (Thread, error) {
	if !validID(threadID) {
		return Thread{}, ErrNotFound
	}

	var item Thread
	err := s.db.QueryRowContext(ctx, `
		UPDATE threads
		SET resolved=$2, resolved_at=CASE WHEN $2::boolean THEN NOW() ELSE NULL END, updated_at=NOW()
		WHERE id=$1
		RETURNING id, review_id, start_line, end_line, selected_text, resolved, resolved_at, created_at, updated_at
	`, threadID, resolved).Scan(
		&item.ID,
		&item.ReviewID,
		&item.StartLine,
		&item.EndLine,
		&item.SelectedText,
		&item.Resolved,
		&item.ResolvedAt,
		&item.CreatedAt,
		&item.UpdatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return Thread{}, ErrNotFound
	}
	if err != nil {
		return Thread{}, fmt.Errorf("resolve thread: %w", err)
	}
	return item, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanComment(row rowScanner) (Comment, error) {
	var item Comment
	if err := row.Scan(
		&item.ID,
		&item.ThreadID,
		&item.Body,
		&item.AuthorType,
		&item.AuthorName,
		&item.CreatedAt,
		&item.UpdatedAt,
	); err != nil {
		return Comment{}, fmt.Errorf("scan comment: %w", err)
	}
	return item, nil
}

func insertComment(ctx context.Context, tx *sql.Tx, comment Comment) (Comment, error) {
	err := tx.QueryRowContext(ctx, `
		INSERT INTO comments (id, thread_id, body, author_type, author_name)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING created_at, updated_at
	`, comment.ID, comment.ThreadID, comment.Body, comment.AuthorType, comment.AuthorName).Scan(
		&comment.CreatedAt,
		&comment.UpdatedAt,
	)
	if err != nil {
		return Comment{}, fmt.Errorf("insert comment: %w", err)
	}
	return comment, nil
}

func reopenReview(ctx context.Context, tx *sql.Tx, reviewID string) error {
	_, err := tx.ExecContext(ctx, `
		UPDATE reviews
		SET status='pending', decision_message=NULL, decided_at=NULL, updated_at=NOW()
		WHERE id=$1
	`, reviewID)
	if err != nil {
		return fmt.Errorf("reopen review: %w", err)
	}
	return nil
}

func validID(id string) bool {
	_, err := uuid.Parse(id)
	return err == nil
}
