package store

import (
	"context"
	"database/sql"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	dsn := strings.TrimSpace(os.Getenv("MDREVIEW_TEST_DATABASE_URL"))
	if dsn == "" {
		t.Skip("MDREVIEW_TEST_DATABASE_URL is not set")
	}
	db, err := Open(context.Background(), dsn)
	if err != nil {
		t.Fatalf("open database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func migratedStore(t *testing.T) *PostgresStore {
	t.Helper()
	db := openTestDB(t)
	ctx := context.Background()
	if err := resetPublicSchema(ctx, db); err != nil {
		t.Fatalf("reset schema: %v", err)
	}
	if err := ApplyMigrations(ctx, db, filepath.Join("..", "..", "db", "migrations")); err != nil {
		t.Fatalf("apply migrations: %v", err)
	}
	return NewPostgresStore(db)
}

func seedReview(t *testing.T, s *PostgresStore) Review {
	t.Helper()
	review, err := s.CreateReview(context.Background(), Review{
		ID:      uuid.NewString(),
		Slug:    strings.ReplaceAll(uuid.NewString(), "-", "")[:12],
		Content: "# Plan\n\nStep one.\n",
		Source:  SourceAgent,
	})
	if err != nil {
		t.Fatalf("create review: %v", err)
	}
	return review
}

func seedThread(t *testing.T, s *PostgresStore, reviewID, author string) Thread {
	t.Helper()
	thread, err := s.CreateThread(context.Background(), Thread{
		ID:           uuid.NewString(),
		ReviewID:     reviewID,
		StartLine:    3,
		EndLine:      3,
		SelectedText: "Step one.",
	}, Comment{ID: uuid.NewString(), Body: "why?", AuthorType: author})
	if err != nil {
		t.Fatalf("create thread: %v", err)
	}
	return thread
}

func TestCreateThreadIsAtomic(t *testing.T) {
	s := migratedStore(t)
	ctx := context.Background()
	review := seedReview(t, s)

	_, err := s.CreateThread(ctx, Thread{
		ID:           uuid.NewString(),
		ReviewID:     review.ID,
		StartLine:    1,
		EndLine:      1,
		SelectedText: "Plan",
	}, Comment{ID: uuid.NewString(), Body: "bad author", AuthorType: "robot"})
	if err == nil {
		t.Fatal("expected comment insert to fail")
	}
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) {
		t.Fatalf("expected PostgreSQL error, got: %v", err)
	}
	if pgErr.SQLState() != "23514" {
		t.Fatalf("expected SQLSTATE 23514 (check_violation), got: %s", pgErr.SQLState())
	}

	var threads int
	if err := s.DB().QueryRowContext(ctx, `SELECT COUNT(*) FROM threads WHERE review_id=$1`, review.ID).Scan(&threads); err != nil {
		t.Fatalf("count threads: %v", err)
	}
	if threads != 0 {
		t.Fatalf("expected no thread without a comment, found %d", threads)
	}

	thread := seedThread(t, s, review.ID, AuthorHuman)
	if len(thread.Comments) != 1 {
		t.Fatalf("expected exactly one comment, got %d", len(thread.Comments))
	}
}

func TestCreateThreadUnknownReview(t *testing.T) {
	s := migratedStore(t)
	_, err := s.CreateThread(context.Background(), Thread{
		ID:           uuid.NewString(),
		ReviewID:     uuid.NewString(),
		StartLine:    1,
		EndLine:      1,
		SelectedText: "x",
	}, Comment{ID: uuid.NewString(), Body: "x", AuthorType: AuthorHuman})
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestReplyReopensDecidedReviewOnlyForAgents(t *testing.T) {
	s := migratedStore(t)
	ctx := context.Background()
	review := seedReview(t, s)
	thread := seedThread(t, s, review.ID, AuthorHuman)

	message := "LGTM"
	if _, err := s.SubmitDecision(ctx, review.ID, StatusApproved, &message); err != nil {
		t.Fatalf("submit decision: %v", err)
	}

	if _, err := s.AddReply(ctx, thread.ID, Comment{ID: uuid.NewString(), Body: "thanks", AuthorType: AuthorHuman}); err != nil {
		t.Fatalf("human reply: %v", err)
	}
	got, err := s.GetReview(ctx, review.ID)
	if err != nil {
		t.Fatalf("get review: %v", err)
	}
	if got.Status != StatusApproved || got.DecidedAt == nil {
		t.Fatalf("human reply must not reopen: status=%s decidedAt=%v", got.Status, got.DecidedAt)
	}

	if _, err := s.AddReply(ctx, thread.ID, Comment{ID: uuid.NewString(), Body: "fixed", AuthorType: AuthorAgent}); err != nil {
		t.Fatalf("agent reply: %v", err)
	}
	got, err = s.GetReview(ctx, review.ID)
	if err != nil {
		t.Fatalf("get review: %v", err)
	}
	if got.Status != StatusPending || got.DecidedAt != nil || got.DecisionMessage != nil {
		t.Fatalf("agent reply must reopen: status=%s decidedAt=%v message=%v", got.Status, got.DecidedAt, got.DecisionMessage)
	}
	if len(got.Threads) != 1 || len(got.Threads[0].Comments) != 3 {
		t.Fatalf("expected 1 thread with 3 comments, got %+v", got.Threads)
	}
	if got.Threads[0].Comments[0].Body != "why?" || got.Threads[0].Comments[2].Body != "fixed" {
		t.Fatalf("comments out of order: %+v", got.Threads[0].Comments)
	}
}

func TestAgentThreadReopensDecidedReview(t *testing.T) {
	s := migratedStore(t)
	ctx := context.Background()
	review := seedReview(t, s)

	if _, err := s.SubmitDecision(ctx, review.ID, StatusChangesRequested, nil); err != nil {
		t.Fatalf("submit decision: %v", err)
	}
	seedThread(t, s, review.ID, AuthorAgent)

	got, err := s.GetReview(ctx, review.ID)
	if err != nil {
		t.Fatalf("get review: %v", err)
	}
	if got.Status != StatusPending {
		t.Fatalf("expected pending after agent thread, got %s", got.Status)
	}
}

func TestResolveThreadStampsResolvedAt(t *testing.T) {
	s := migratedStore(t)
	ctx := context.Background()
	review := seedReview(t, s)
	thread := seedThread(t, s, review.ID, AuthorHuman)

	resolved, err := s.ResolveThread(ctx, thread.ID, true)
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if !resolved.Resolved || resolved.ResolvedAt == nil {
		t.Fatalf("expected resolvedAt to be stamped: %+v", resolved)
	}

	reopened, err := s.ResolveThread(ctx, thread.ID, false)
	if err != nil {
		t.Fatalf("unresolve: %v", err)
	}
	if reopened.Resolved || reopened.ResolvedAt != nil {
		t.Fatalf("expected resolvedAt to be cleared: %+v", reopened)
	}

	if _, err := s.ResolveThread(ctx, uuid.NewString(), true); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestGetReviewNotFound(t *testing.T) {
	s := migratedStore(t)
	for _, id := range []string{uuid.NewString(), "not-a-uuid"} {
		if _, err := s.GetReview(context.Background(), id); !errors.Is(err, ErrNotFound) {
			t.Fatalf("GetReview(%q): expected ErrNotFound, got %v", id, err)
		}
	}
}
