package export

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"html/template"

	"gopkg.in/yaml.v3"

	"mdreview/api/internal/store"
)

// DataStore defines the interface for data access
type DataStore interface {
	GetReview(ctx context.Context, id string) (store.Review, error)
}

// Service provides review export functionality
type Service struct {
	store DataStore
	pdf   func(ctx context.Context, html string) ([]byte, error)
}

// NewService creates a new export service
func NewService(store DataStore) *Service {
	return &Service{store: store, pdf: printPDF}
}

// Export generates an export in the requested format
func (s *Service) Export(ctx context.Context, req Request) (*Result, error) {
	review, err := s.store.GetReview(ctx, req.ReviewID)
	if err != nil {
		return nil, fmt.Errorf("get review: %w", err)
	}

	base := "review-" + fileSlug(review.Slug)
	switch req.Format {
	case FormatYAML, "":
		var buf bytes.Buffer
		enc := yaml.NewEncoder(&buf)
		enc.SetIndent(2)
		if err := enc.Encode(BuildPayload(review)); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		if err := enc.Close(); err != nil {
			return nil, fmt.Errorf("encode yaml: %w", err)
		}
		return &Result{Data: buf.Bytes(), Filename: base + ".yaml", MimeType: "text/yaml"}, nil
	case FormatJSON:
		data, err := json.MarshalIndent(BuildPayload(review), "", "  ")
		if err != nil {
			return nil, fmt.Errorf("encode json: %w", err)
		}
		return &Result{Data: data, Filename: base + ".json", MimeType: "application/json"}, nil
	case FormatHTML:
		html, err := s.renderHTML(review)
		if err != nil {
			return nil, err
		}
		return &Result{Data: []byte(html), Filename: base + ".html", MimeType: "text/html; charset=utf-8"}, nil
	case FormatPDF:
		html, err := s.renderHTML(review)
		if err != nil {
			return nil, err
		}
		data, err := s.pdf(ctx, html)
		if err != nil {
			return nil, err
		}
		return &Result{Data: data, Filename: base + ".pdf", MimeType: "application/pdf"}, nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedFormat, req.Format)
	}
}

// BuildPayload projects a review onto the structured export shape.
func BuildPayload(review store.Review) Payload {
	p := Payload{
		Review: ReviewInfo{
			ID:              review.ID,
			Title:           review.Title,
			Status:          review.Status,
			DecisionMessage: review.DecisionMessage,
			DecidedAt:       review.DecidedAt,
		},
		Threads: make([]Thread, 0, len(review.Threads)),
	}
	for _, t := range review.Threads {
		thread := Thread{
			ID:           t.ID,
			StartLine:    t.StartLine,
			EndLine:      t.EndLine,
			SelectedText: t.SelectedText,
			Resolved:     t.Resolved,
			Comments:     make([]Comment, 0, len(t.Comments)),
		}
		for _, c := range t.Comments {
			thread.Comments = append(thread.Comments, Comment{
				Body:       c.Body,
				AuthorType: c.AuthorType,
				AuthorName: c.AuthorName,
				CreatedAt:  c.CreatedAt,
			})
		}
		p.Threads = append(p.Threads, thread)
	}
	return p
}

func (s *Service) renderHTML(review store.Review) (string, error) {
	content, err := MarkdownToHTML([]byte(review.Content))
	if err != nil {
		return "", fmt.Errorf("render markdown: %w", err)
	}

	data := TemplateData{
		Title:       review.Slug,
		Status:      review.Status,
		ContentHTML: template.HTML(content),
		CreatedAt:   review.CreatedAt,
		DecidedAt:   review.DecidedAt,
		Threads:     make([]TemplateThread, 0, len(review.Threads)),
	}
	if review.Title != nil && *review.Title != "" {
		data.Title = *review.Title
	}
	if review.DecisionMessage != nil {
		data.DecisionMessage = *review.DecisionMessage
	}
	for _, t := range review.Threads {
		thread := TemplateThread{
			StartLine:    t.StartLine,
			EndLine:      t.EndLine,
			SelectedText: t.SelectedText,
			Resolved:     t.Resolved,
		}
		for _, c := range t.Comments {
			author := c.AuthorType
			if c.AuthorName != nil && *c.AuthorName != "" {
				author = *c.AuthorName
			}
			thread.Comments = append(thread.Comments, TemplateComment{
				Author:     author,
				AuthorType: c.AuthorType,
				Body:       c.Body,
				CreatedAt:  c.CreatedAt,
			})
		}
		data.Threads = append(data.Threads, thread)
	}

	html, err := RenderReviewHTML(data)
	if err != nil {
		return "", fmt.Errorf("render template: %w", err)
	}
	return html, nil
}
