// Package export renders a review and its threads as a downloadable file.
package export

import (
	"errors"
	"fmt"
	"strings"
	"time"
)

// Format represents the export output format
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatHTML Format = "html"
	FormatPDF  Format = "pdf"
)

// ParseFormat maps a query value to a Format. Empty means YAML.
func ParseFormat(raw string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(raw))); f {
	case "":
		return FormatYAML, nil
	case FormatYAML, FormatJSON, FormatHTML, FormatPDF:
		return f, nil
	default:
		return "", fmt.Errorf("%w: %s", ErrUnsupportedFormat, raw)
	}
}

// Request contains parameters for an export operation
type Request struct {
	ReviewID string
	Format   Format
}

// Payload is the structured body of YAML and JSON exports.
type Payload struct {
	Review  ReviewInfo `json:"review" yaml:"review"`
	Threads []Thread   `json:"threads" yaml:"threads"`
}

type ReviewInfo struct {
	ID              string     `json:"id" yaml:"id"`
	Title           *string    `json:"title" yaml:"title"`
	Status          string     `json:"status" yaml:"status"`
	DecisionMessage *string    `json:"decisionMessage" yaml:"decisionMessage"`
	DecidedAt       *time.Time `json:"decidedAt" yaml:"decidedAt"`
}

type Thread struct {
	ID           string    `json:"id" yaml:"id"`
	StartLine    int       `json:"startLine" yaml:"startLine"`
	EndLine      int       `json:"endLine" yaml:"endLine"`
	SelectedText string    `json:"selectedText" yaml:"selectedText"`
	Resolved     bool      `json:"resolved" yaml:"resolved"`
	Comments     []Comment `json:"comments" yaml:"comments"`
}

type Comment struct {
	Body       string    `json:"body" yaml:"body"`
	AuthorType string    `json:"authorType" yaml:"authorType"`
	AuthorName *string   `json:"authorName" yaml:"authorName"`
	CreatedAt  time.Time `json:"createdAt" yaml:"createdAt"`
}

// Result contains the export output
type Result struct {
	Data     []byte
	Filename string
	MimeType string
}

var (
	// ErrUnsupportedFormat indicates an unknown export format was requested.
	ErrUnsupportedFormat = errors.New("export format unsupported")
	// ErrPDFDependencyMissing indicates PDF export runtime dependencies are unavailable.
	ErrPDFDependencyMissing = errors.New("export pdf dependency missing")
)
