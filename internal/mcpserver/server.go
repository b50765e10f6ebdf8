// Package mcpserver exposes the review workflow to coding agents as MCP
// tools over stdio.
package mcpserver

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"strings"

	"github.com/modelcontextprotocol/go-sdk/mcp"
	"github.com/rs/zerolog"

	"mdreview/api/internal/client"
	"mdreview/api/internal/logging"
	"mdreview/api/internal/reviewapi"
)

const (
	serverName    = "mdreview"
	serverVersion = "0.2.0"

	agentAuthorName = "AI Agent"
)

// API is the subset of the review client the tools call.
type API interface {
	CreateReview(ctx context.Context, req reviewapi.CreateReviewRequest) (reviewapi.CreatedReview, error)
	GetReview(ctx context.Context, id string) (reviewapi.Review, error)
	WaitForReview(ctx context.Context, id string, timeoutSeconds int) (client.WaitResult, error)
	AddReply(ctx context.Context, threadID string, req reviewapi.ReplyRequest) (reviewapi.Comment, error)
}

type Server struct {
	api      API
	readFile func(string) ([]byte, error)
	log      zerolog.Logger
}

type Option func(*Server)

// WithReadFile replaces os.ReadFile for request_review.
func WithReadFile(fn func(string) ([]byte, error)) Option {
	return func(s *Server) { s.readFile = fn }
}

func New(api API, opts ...Option) *Server {
	s := &Server{api: api, readFile: os.ReadFile, log: logging.Component("mcp")}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// MCPServer builds an MCP server with every review tool registered.
func (s *Server) MCPServer() *mcp.Server {
	srv := mcp.NewServer(&mcp.Implementation{Name: serverName, Version: serverVersion}, nil)
	s.Register(srv)
	return srv
}

// Run serves the tools over stdin/stdout until ctx is done or the peer
// disconnects.
func (s *Server) Run(ctx context.Context) error {
	s.log.Info().Str("version", serverVersion).Msg("mcp server running on stdio")
	return s.MCPServer().Run(ctx, &mcp.StdioTransport{})
}

func (s *Server) Register(srv *mcp.Server) {
	s.registerRequestReview(srv)
	s.registerWaitForReview(srv)
	s.registerGetReviewStatus(srv)
	s.registerAddComment(srv)
}

func inputSchema(properties map[string]any, required []string) map[string]any {
	schema := map[string]any{
		"type":       "object",
		"properties": properties,
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

func textResult(text string, structured any) *mcp.CallToolResult {
	return &mcp.CallToolResult{
		Content:           []mcp.Content{&mcp.TextContent{Text: text}},
		StructuredContent: structured,
	}
}

func errorResult(err error) *mcp.CallToolResult {
	var res mcp.CallToolResult
	res.SetError(err)
	return &res
}

func decodeArgs(req *mcp.CallToolRequest, target any) error {
	if len(req.Params.Arguments) == 0 {
		return nil
	}
	if err := json.Unmarshal(req.Params.Arguments, target); err != nil {
		return fmt.Errorf("invalid arguments: %w", err)
	}
	return nil
}

// --- request_review ---

type requestReviewArgs struct {
	FilePath string  `json:"filePath"`
	Title    *string `json:"title"`
}

func (s *Server) registerRequestReview(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "request_review",
		Title:       "Request Review",
		Description: "Create a markdown document review and get a shareable URL. Share this URL with the reviewer and they can add inline comments and approve/reject the document.",
		InputSchema: inputSchema(map[string]any{
			"filePath": map[string]any{"type": "string", "description": "The path to the markdown file to review"},
			"title":    map[string]any{"type": "string", "description": "Optional title for the review"},
		}, []string{"filePath"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args requestReviewArgs
		if err := decodeArgs(req, &args); err != nil {
			return errorResult(err), nil
		}
		if strings.TrimSpace(args.FilePath) == "" {
			return errorResult(fmt.Errorf("filePath is required")), nil
		}

		content, err := s.readFile(args.FilePath)
		if err != nil {
			res := textResult(fmt.Sprintf("Error: Failed to read file at %q\n\n%s", args.FilePath, err.Error()), nil)
			res.IsError = true
			return res, nil
		}

		created, err := s.api.CreateReview(ctx, reviewapi.CreateReviewRequest{
			Content: string(content),
			Title:   args.Title,
			Source:  reviewapi.SourceAgent,
		})
		if err != nil {
			return errorResult(err), nil
		}
		s.log.Info().Str("review_id", created.ID).Str("file", args.FilePath).Msg("review requested")

		text := fmt.Sprintf("Review created successfully!\n\nReview URL: %s\n\n"+
			"Share this URL with your reviewer. They can:\n"+
			"- Add inline comments by selecting text\n"+
			"- Approve, reject, or request changes\n\n"+
			"Use 'wait_for_review' with reviewId %q to wait for the review to complete.", created.URL, created.ID)
		return textResult(text, map[string]any{
			"reviewId": created.ID,
			"url":      created.URL,
			"status":   created.Status,
		}), nil
	})
}

// --- wait_for_review ---

type waitArgs struct {
	ReviewID       string   `json:"reviewId"`
	TimeoutSeconds *float64 `json:"timeoutSeconds"`
}

func (s *Server) registerWaitForReview(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "wait_for_review",
		Title:       "Wait for Review",
		Description: "Wait for a review to be completed (approved, rejected, or changes requested). This will block until the reviewer makes a decision or the timeout is reached.",
		InputSchema: inputSchema(map[string]any{
			"reviewId": map[string]any{"type": "string", "description": "The review ID to wait for"},
			"timeoutSeconds": map[string]any{
				"type":        "number",
				"minimum":     1,
				"maximum":     300,
				"default":     300,
				"description": "Maximum time to wait in seconds (default: 300)",
			},
		}, []string{"reviewId"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args waitArgs
		if err := decodeArgs(req, &args); err != nil {
			return errorResult(err), nil
		}
		if strings.TrimSpace(args.ReviewID) == "" {
			return errorResult(fmt.Errorf("reviewId is required")), nil
		}
		timeout := 300
		if args.TimeoutSeconds != nil {
			if *args.TimeoutSeconds < 1 || *args.TimeoutSeconds > 300 {
				return errorResult(fmt.Errorf("timeoutSeconds must be between 1 and 300")), nil
			}
			timeout = int(math.Ceil(*args.TimeoutSeconds))
		}

		result, err := s.api.WaitForReview(ctx, args.ReviewID, timeout)
		if err != nil {
			return errorResult(err), nil
		}
		if result.Decision == nil {
			text := fmt.Sprintf("Review is still pending after %d seconds. You can call wait_for_review again to continue waiting.", timeout)
			return textResult(text, map[string]any{"status": reviewapi.StatusPending, "timedOut": true}), nil
		}

		d := result.Decision
		text := fmt.Sprintf("Review completed!\n\nStatus: %s\nMessage: %s\n\n%s",
			strings.ToUpper(d.Status), reviewapi.MessageOrNone(d.DecisionMessage), reviewapi.Report(d.Summary, d.Threads))
		return textResult(text, d), nil
	})
}

// --- get_review_status ---

type statusArgs struct {
	ReviewID       string `json:"reviewId"`
	IncludeContent bool   `json:"includeContent"`
}

func (s *Server) registerGetReviewStatus(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "get_review_status",
		Title:       "Get Review Status",
		Description: "Get the current status of a review without waiting. Use this to check if a review has been completed.",
		InputSchema: inputSchema(map[string]any{
			"reviewId": map[string]any{"type": "string", "description": "The review ID to check"},
			"includeContent": map[string]any{
				"type":        "boolean",
				"default":     false,
				"description": "Include the full markdown content in the response",
			},
		}, []string{"reviewId"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args statusArgs
		if err := decodeArgs(req, &args); err != nil {
			return errorResult(err), nil
		}
		if strings.TrimSpace(args.ReviewID) == "" {
			return errorResult(fmt.Errorf("reviewId is required")), nil
		}

		review, err := s.api.GetReview(ctx, args.ReviewID)
		if err != nil {
			return errorResult(err), nil
		}

		summary := reviewapi.Summarize(review.Threads)
		title := "(untitled)"
		if review.Title != nil && *review.Title != "" {
			title = *review.Title
		}
		text := fmt.Sprintf("Review Status: %s\nTitle: %s\nMessage: %s\nURL: %s\n\n%s",
			strings.ToUpper(review.Status), title, reviewapi.MessageOrNone(review.DecisionMessage), review.URL,
			reviewapi.Report(summary, review.Threads))

		structured := map[string]any{
			"status":          review.Status,
			"decisionMessage": review.DecisionMessage,
			"decidedAt":       review.DecidedAt,
			"threads":         review.Threads,
			"summary":         summary,
		}
		if args.IncludeContent {
			structured["content"] = review.Content
		}
		return textResult(text, structured), nil
	})
}

// --- add_comment ---

type addCommentArgs struct {
	ThreadID string `json:"threadId"`
	Body     string `json:"body"`
}

func (s *Server) registerAddComment(srv *mcp.Server) {
	tool := &mcp.Tool{
		Name:        "add_comment",
		Title:       "Add Comment",
		Description: "Add a reply to an existing comment thread. Use this to respond to reviewer feedback.",
		InputSchema: inputSchema(map[string]any{
			"threadId": map[string]any{"type": "string", "description": "The thread ID to reply to"},
			"body":     map[string]any{"type": "string", "description": "The comment text"},
		}, []string{"threadId", "body"}),
	}

	srv.AddTool(tool, func(ctx context.Context, req *mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		var args addCommentArgs
		if err := decodeArgs(req, &args); err != nil {
			return errorResult(err), nil
		}
		if strings.TrimSpace(args.ThreadID) == "" {
			return errorResult(fmt.Errorf("threadId is required")), nil
		}

		name := agentAuthorName
		comment, err := s.api.AddReply(ctx, args.ThreadID, reviewapi.ReplyRequest{
			Body:       args.Body,
			AuthorType: reviewapi.AuthorAgent,
			AuthorName: &name,
		})
		if err != nil {
			return errorResult(err), nil
		}

		text := fmt.Sprintf("Comment added successfully!\n\nThread: %s\nComment: %s", args.ThreadID, comment.Body)
		return textResult(text, map[string]any{
			"commentId": comment.ID,
			"createdAt": comment.CreatedAt,
		}), nil
	})
}
