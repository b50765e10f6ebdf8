package export

import (
	"context"
	"encoding/json"
	"errors"
	"html/template"
	"strings"
	"testing"
	"time"

	"mdreview/api/internal/store"
)

type fakeStore struct {
	review store.Review
	err    error
}

func (f fakeStore) GetReview(context.Context, string) (store.Review, error) {
	return f.review, f.err
}

func strPtr(s string) *string { return &s }

func sampleReview() store.Review {
	created := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)
	return store.Review{
		ID:        "6f1c1c2e-3c55-4b5e-9d3e-0d6a8b1f2a10",
		Slug:      "abc123def456",
		Title:     strPtr("Export Test Review"),
		Status:    store.StatusPending,
		Content:   "# Export Test\n\nContent to export\n\n<script>alert(1)</script>\n",
		CreatedAt: created,
		Threads: []store.Thread{
			{
				ID:           "t1",
				StartLine:    1,
				EndLine:      1,
				SelectedText: "# Export Test",
				Comments: []store.Comment{
					{Body: "This is a comment", AuthorType: store.AuthorHuman, AuthorName: strPtr("Reviewer"), CreatedAt: created},
					{Body: "Agreed", AuthorType: store.AuthorAgent, CreatedAt: created.Add(time.Minute)},
				},
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tests := []struct {
		input   string
		want    Format
		wantErr bool
	}{
		{"", FormatYAML, false},
		{"yaml", FormatYAML, false},
		{"JSON", FormatJSON, false},
		{"html", FormatHTML, false},
		{"pdf", FormatPDF, false},
		{"docx", "", true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseFormat(tt.input)
			if tt.wantErr {
				if !errors.Is(err, ErrUnsupportedFormat) {
					t.Fatalf("ParseFormat(%q) error = %v, want ErrUnsupportedFormat", tt.input, err)
				}
				return
			}
			if err != nil || got != tt.want {
				t.Fatalf("ParseFormat(%q) = %q, %v; want %q", tt.input, got, err, tt.want)
			}
		})
	}
}

func TestExportYAML(t *testing.T) {
	svc := NewService(fakeStore{review: sampleReview()})

	result, err := svc.Export(context.Background(), Request{ReviewID: "id", Format: FormatYAML})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.Filename != "review-abc123def456.yaml" {
		t.Errorf("filename = %q", result.Filename)
	}
	if result.MimeType != "text/yaml" {
		t.Errorf("mime = %q", result.MimeType)
	}

	body := string(result.Data)
	for _, want := range []string{"review:", "title: Export Test Review", "status: pending", "threads:", "startLine: 1", "body: This is a comment"} {
		if !strings.Contains(body, want) {
			t.Errorf("yaml missing %q:\n%s", want, body)
		}
	}
}

func TestExportJSON(t *testing.T) {
	svc := NewService(fakeStore{review: sampleReview()})

	result, err := svc.Export(context.Background(), Request{ReviewID: "id", Format: FormatJSON})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.Filename != "review-abc123def456.json" {
		t.Errorf("filename = %q", result.Filename)
	}

	var data map[string]any
	if err := json.Unmarshal(result.Data, &data); err != nil {
		t.Fatalf("invalid json: %v", err)
	}
	review := data["review"].(map[string]any)
	if review["title"] != "Export Test Review" || review["status"] != "pending" {
		t.Errorf("unexpected review block: %v", review)
	}
	if v, ok := review["decisionMessage"]; !ok || v != nil {
		t.Errorf("decisionMessage should be present and null, got %v", v)
	}
	threads := data["threads"].([]any)
	if len(threads) != 1 {
		t.Fatalf("expected 1 thread, got %d", len(threads))
	}
	comments := threads[0].(map[string]any)["comments"].([]any)
	if len(comments) != 2 {
		t.Fatalf("expected 2 comments, got %d", len(comments))
	}
	if name, ok := comments[1].(map[string]any)["authorName"]; !ok || name != nil {
		t.Errorf("agent comment authorName should be null, got %v", name)
	}
}

func TestExportHTMLSanitizesContent(t *testing.T) {
	svc := NewService(fakeStore{review: sampleReview()})

	result, err := svc.Export(context.Background(), Request{ReviewID: "id", Format: FormatHTML})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	html := string(result.Data)
	if strings.Contains(html, "<script>") {
		t.Error("script tag survived sanitising")
	}
	if !strings.Contains(html, "<h1") || !strings.Contains(html, "Export Test</h1>") {
		t.Error("markdown heading not rendered")
	}
	if !strings.Contains(html, "Reviewer") || !strings.Contains(html, "Line 1") {
		t.Error("thread block missing")
	}
}

func TestExportPDFUsesPrinter(t *testing.T) {
	svc := NewService(fakeStore{review: sampleReview()})
	var printed string
	svc.pdf = func(_ context.Context, html string) ([]byte, error) {
		printed = html
		return []byte("%PDF-1.7"), nil
	}

	result, err := svc.Export(context.Background(), Request{ReviewID: "id", Format: FormatPDF})
	if err != nil {
		t.Fatalf("Export() error = %v", err)
	}
	if result.MimeType != "application/pdf" || result.Filename != "review-abc123def456.pdf" {
		t.Errorf("unexpected result %q %q", result.MimeType, result.Filename)
	}
	if !strings.Contains(printed, "Export Test Review") {
		t.Error("printer did not receive rendered html")
	}
}

func TestExportErrors(t *testing.T) {
	svc := NewService(fakeStore{err: store.ErrNotFound})
	if _, err := svc.Export(context.Background(), Request{ReviewID: "id"}); !errors.Is(err, store.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}

	svc = NewService(fakeStore{review: sampleReview()})
	if _, err := svc.Export(context.Background(), Request{ReviewID: "id", Format: "docx"}); !errors.Is(err, ErrUnsupportedFormat) {
		t.Errorf("expected ErrUnsupportedFormat, got %v", err)
	}
}

func TestFileSlug(t *testing.T) {
	tests := []struct {
		input    string
		expected string
	}{
		{"abc123def456", "abc123def456"},
		{"My Review v1.2", "My-Review-v12"},
		{"Special!@#$%Chars", "SpecialChars"},
		{"", "review"},
		{"!!!", "review"},
		{"Very Long Title That Exceeds Fifty Characters Limit", "Very-Long-Title-That-Exceeds-Fifty-Characters-Limi"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			if got := fileSlug(tt.input); got != tt.expected {
				t.Errorf("fileSlug(%q) = %q, want %q", tt.input, got, tt.expected)
			}
		})
	}
}

func TestFindChromeMissing(t *testing.T) {
	t.Setenv("PATH", t.TempDir())
	if _, err := findChrome(); !errors.Is(err, ErrPDFDependencyMissing) {
		t.Errorf("expected ErrPDFDependencyMissing, got %v", err)
	}
}

func TestRenderReviewHTML(t *testing.T) {
	decided := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	data := TemplateData{
		Title:           "Test Review",
		Status:          "approved",
		DecisionMessage: "Ship it",
		ContentHTML:     template.HTML("<p>This is the content.</p>"),
		DecidedAt:       &decided,
		Threads: []TemplateThread{
			{StartLine: 3, EndLine: 5, SelectedText: "a <b> range", Comments: []TemplateComment{{Author: "agent", AuthorType: "agent", Body: "noted"}}},
		},
	}

	html, err := RenderReviewHTML(data)
	if err != nil {
		t.Fatalf("RenderReviewHTML() error = %v", err)
	}

	for _, want := range []string{"Test Review", "APPROVED", "Ship it", "Lines 3-5", "Decided Mar 2, 2026", "<p>This is the content.</p>", "a &lt;b&gt; range"} {
		if !strings.Contains(html, want) {
			t.Errorf("HTML missing %q", want)
		}
	}
}
