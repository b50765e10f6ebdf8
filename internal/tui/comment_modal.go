package tui

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

// CommentModal collects a multi-line body for a new thread or a decision
// message.
type CommentModal struct {
	textarea   textarea.Model
	title      string
	label      string
	context    string
	allowEmpty bool
	submitted  bool
	cancelled  bool
}

// NewCommentModal opens the modal for a committed selection.
func NewCommentModal(startLine, endLine int, contextText string, width int) CommentModal {
	m := newModal("Add Review Comment", lineRangeLabel(startLine, endLine), width)
	m.context = previewText(contextText, 100)
	m.textarea.Placeholder = "Enter your review comment..."
	return m
}

// NewDecisionModal opens the modal for an optional decision message.
func NewDecisionModal(status string, width int) CommentModal {
	m := newModal(decisionTitle(status), "Optional message for the author", width)
	m.textarea.Placeholder = "Message (optional)..."
	m.allowEmpty = true
	return m
}

func newModal(title, label string, width int) CommentModal {
	ta := textarea.New()
	ta.ShowLineNumbers = false
	ta.CharLimit = 0
	ta.SetWidth(max(width-10, 20))
	ta.SetHeight(5)
	ta.Focus()

	return CommentModal{
		textarea: ta,
		title:    title,
		label:    label,
	}
}

// Update handles messages.
func (m CommentModal) Update(msg tea.Msg) (CommentModal, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		switch msg.String() {
		case "ctrl+s":
			if m.allowEmpty || strings.TrimSpace(m.textarea.Value()) != "" {
				m.submitted = true
				return m, nil
			}
		case "esc":
			m.cancelled = true
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.textarea, cmd = m.textarea.Update(msg)
	return m, cmd
}

// View renders the modal.
func (m CommentModal) View() string {
	labelStyle := lipgloss.NewStyle().
		Foreground(colorGray).
		MarginBottom(1)

	contextStyle := lipgloss.NewStyle().
		Foreground(colorMuted).
		Italic(true).
		MarginBottom(1)

	parts := []string{
		titleStyle.MarginBottom(1).Render(m.title),
		labelStyle.Render(m.label),
	}
	if m.context != "" {
		parts = append(parts, contextStyle.Render("\""+m.context+"\""))
	}
	parts = append(parts,
		m.textarea.View(),
		helpStyle.MarginTop(1).Render("ctrl+s: submit "+iconDot+" esc: cancel"),
	)
	return modalStyle.Render(strings.Join(parts, "\n"))
}

func (m CommentModal) Submitted() bool {
	return m.submitted
}

func (m CommentModal) Cancelled() bool {
	return m.cancelled
}

// Value returns the entered text, trimmed.
func (m CommentModal) Value() string {
	return strings.TrimSpace(m.textarea.Value())
}

func lineRangeLabel(startLine, endLine int) string {
	if startLine == endLine {
		return fmt.Sprintf("Line %d", startLine)
	}
	return fmt.Sprintf("Lines %d-%d", startLine, endLine)
}

func decisionTitle(status string) string {
	switch status {
	case "approved":
		return "Approve Review"
	case "changes_requested":
		return "Request Changes"
	case "rejected":
		return "Reject Review"
	default:
		return "Submit Decision"
	}
}

func previewText(text string, limit int) string {
	text = strings.Join(strings.Fields(text), " ")
	runes := []rune(text)
	if len(runes) <= limit {
		return text
	}
	return string(runes[:limit-3]) + "..."
}
