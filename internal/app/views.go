package app

import (
	"strings"

	"mdreview/api/internal/decision"
	"mdreview/api/internal/reviewapi"
	"mdreview/api/internal/search"
	"mdreview/api/internal/store"
)

func (s *Service) reviewURL(slug string) string {
	return s.cfg.BaseURL + "/review/" + slug
}

func (s *Service) reviewView(r store.Review) reviewapi.Review {
	return reviewapi.Review{
		ID:              r.ID,
		Slug:            r.Slug,
		URL:             s.reviewURL(r.Slug),
		Content:         r.Content,
		Title:           r.Title,
		Status:          r.Status,
		DecisionMessage: r.DecisionMessage,
		DecidedAt:       r.DecidedAt,
		Source:          r.Source,
		Threads:         threadViews(r.Threads),
		CreatedAt:       r.CreatedAt,
		UpdatedAt:       r.UpdatedAt,
	}
}

func threadViews(threads []store.Thread) []reviewapi.Thread {
	out := make([]reviewapi.Thread, 0, len(threads))
	for _, t := range threads {
		out = append(out, threadView(t))
	}
	return out
}

func threadView(t store.Thread) reviewapi.Thread {
	comments := make([]reviewapi.Comment, 0, len(t.Comments))
	for _, c := range t.Comments {
		comments = append(comments, commentView(c))
	}
	return reviewapi.Thread{
		ID:           t.ID,
		StartLine:    t.StartLine,
		EndLine:      t.EndLine,
		SelectedText: t.SelectedText,
		Resolved:     t.Resolved,
		ResolvedAt:   t.ResolvedAt,
		Comments:     comments,
		CreatedAt:    t.CreatedAt,
	}
}

func commentView(c store.Comment) reviewapi.Comment {
	return reviewapi.Comment{
		ID:         c.ID,
		Body:       c.Body,
		AuthorType: c.AuthorType,
		AuthorName: c.AuthorName,
		CreatedAt:  c.CreatedAt,
	}
}

func decisionView(out decision.Outcome) reviewapi.DecisionResult {
	r := out.Review
	return reviewapi.DecisionResult{
		ID:              r.ID,
		Status:          r.Status,
		DecisionMessage: r.DecisionMessage,
		DecidedAt:       r.DecidedAt,
		Threads:         threadViews(r.Threads),
		Summary:         out.Summary,
	}
}

func reviewRecord(r store.Review) search.ReviewRecord {
	rec := search.ReviewRecord{ID: r.ID, Slug: r.Slug, Status: r.Status, Content: r.Content}
	if r.Title != nil {
		rec.Title = *r.Title
	}
	return rec
}

func threadRecord(t store.Thread) search.ThreadRecord {
	bodies := make([]string, 0, len(t.Comments))
	for _, c := range t.Comments {
		bodies = append(bodies, c.Body)
	}
	return search.ThreadRecord{
		ID:           t.ID,
		ReviewID:     t.ReviewID,
		SelectedText: t.SelectedText,
		Comments:     strings.Join(bodies, "\n"),
		Resolved:     t.Resolved,
	}
}
