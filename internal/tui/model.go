package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/textarea"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"mdreview/api/internal/annotate"
	"mdreview/api/internal/reviewapi"
)

const (
	defaultRefreshInterval = 3 * time.Second
	expireInterval         = annotate.GraceWindow
	requestTimeout         = 15 * time.Second

	headerRows = 2
	footerRows = 1
	scrollStep = 3
)

// API is the subset of the review API the terminal surface talks to.
type API interface {
	GetReview(ctx context.Context, id string) (reviewapi.Review, error)
	CreateThread(ctx context.Context, reviewID string, req reviewapi.CreateThreadRequest) (reviewapi.Thread, error)
	SubmitDecision(ctx context.Context, id string, req reviewapi.DecisionRequest) (reviewapi.Decision, error)
}

type Options struct {
	ReviewID        string
	AuthorName      string
	RefreshInterval time.Duration
}

type mode int

const (
	modeBrowse mode = iota
	modeComment
	modeDecision
)

type (
	reviewLoadedMsg struct {
		review reviewapi.Review
		err    error
	}
	refreshTickMsg   struct{}
	expireTickMsg    struct{}
	threadCreatedMsg struct {
		ticket annotate.Ticket
		thread reviewapi.Thread
		err    error
	}
	decisionMsg struct {
		decision reviewapi.Decision
		err      error
	}
)

// Model is the Bubble Tea model for reviewing one document.
type Model struct {
	api          API
	reviewID     string
	authorName   string
	refreshEvery time.Duration
	now          func() time.Time

	review  *reviewapi.Review
	threads map[string]reviewapi.Thread
	doc     *document
	rows    []string

	registry   *annotate.Registry
	layout     annotate.Layout
	highlights *annotate.HighlightIndex
	selection  annotate.Selection
	submitter  *annotate.Submitter

	cursor       int
	offset       int
	activeThread string
	width        int
	height       int

	mode     mode
	modal    CommentModal
	decision string

	notice string
	err    error
}

func New(api API, opts Options) *Model {
	refresh := opts.RefreshInterval
	if refresh <= 0 {
		refresh = defaultRefreshInterval
	}
	return &Model{
		api:          api,
		reviewID:     opts.ReviewID,
		authorName:   strings.TrimSpace(opts.AuthorName),
		refreshEvery: refresh,
		now:          time.Now,
		threads:      make(map[string]reviewapi.Thread),
		registry:     annotate.NewRegistry(),
		highlights:   annotate.NewHighlightIndex(nil),
		submitter:    annotate.NewSubmitter(),
		width:        80,
		height:       24,
	}
}

// Run starts the program in the alternate screen with mouse tracking.
func Run(ctx context.Context, api API, opts Options) error {
	p := tea.NewProgram(New(api, opts),
		tea.WithContext(ctx),
		tea.WithAltScreen(),
		tea.WithMouseCellMotion(),
	)
	_, err := p.Run()
	return err
}

func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.loadReview(), m.scheduleRefresh(), scheduleExpire())
}

func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.rerender()
		return m, nil

	case reviewLoadedMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("load review: %w", msg.err)
			return m, nil
		}
		m.setReview(msg.review)
		m.selection.Expire(m.now(), m.highlights)
		m.rerender()
		return m, nil

	case refreshTickMsg:
		return m, tea.Batch(m.loadReview(), m.scheduleRefresh())

	case expireTickMsg:
		if m.selection.Expire(m.now(), m.highlights) {
			m.rerender()
		}
		return m, scheduleExpire()

	case threadCreatedMsg:
		return m, m.handleThreadCreated(msg)

	case decisionMsg:
		if msg.err != nil {
			m.err = fmt.Errorf("submit decision: %w", msg.err)
			return m, nil
		}
		m.err = nil
		m.notice = "Decision recorded: " + strings.ToUpper(msg.decision.Status)
		return m, m.loadReview()

	case tea.MouseMsg:
		if m.mode != modeBrowse {
			return m, nil
		}
		return m, m.handleMouse(msg)

	case tea.KeyMsg:
		if m.mode != modeBrowse {
			return m, m.updateModal(msg)
		}
		return m.handleKey(msg)
	}

	if m.mode != modeBrowse {
		return m, m.updateModal(msg)
	}
	return m, nil
}

func (m *Model) setReview(review reviewapi.Review) {
	if m.review == nil || m.review.Content != review.Content {
		m.doc = newDocument(review.Content)
	}
	m.review = &review

	spans := make([]annotate.ThreadSpan, 0, len(review.Threads))
	m.threads = make(map[string]reviewapi.Thread, len(review.Threads))
	for _, t := range review.Threads {
		spans = append(spans, annotate.ThreadSpan{
			ID:        t.ID,
			StartLine: t.StartLine,
			EndLine:   t.EndLine,
			Resolved:  t.Resolved,
		})
		m.threads[t.ID] = t
	}
	m.highlights.Rebuild(spans)

	if m.cursor >= len(m.doc.blocks) {
		m.cursor = max(len(m.doc.blocks)-1, 0)
	}
	if _, ok := m.threads[m.activeThread]; !ok {
		m.activeThread = ""
	}
	m.syncActiveThread()
}

func (m *Model) handleThreadCreated(msg threadCreatedMsg) tea.Cmd {
	m.submitter.Complete(&m.selection, msg.ticket, msg.err, m.now())
	if msg.err != nil {
		m.err = fmt.Errorf("create thread: %w", msg.err)
		m.rerender()
		return nil
	}
	m.err = nil
	m.notice = "Comment added on " + lineRangeLabel(msg.thread.StartLine, msg.thread.EndLine)
	m.activeThread = msg.thread.ID
	m.rerender()
	return m.loadReview()
}

func (m *Model) handleMouse(msg tea.MouseMsg) tea.Cmd {
	row, onDoc := m.rowAt(msg.Y)

	switch {
	case msg.Button == tea.MouseButtonWheelUp:
		m.scroll(-scrollStep)
	case msg.Button == tea.MouseButtonWheelDown:
		m.scroll(scrollStep)
	case msg.Action == tea.MouseActionPress && msg.Button == tea.MouseButtonLeft:
		idx, ok := m.layout.BlockAt(row)
		if !onDoc || !ok {
			if m.selection.Cancel() {
				m.rerender()
			}
			return nil
		}
		if m.selection.Start(idx) {
			m.cursor = idx
			m.syncActiveThread()
			m.rerender()
		}
	case msg.Action == tea.MouseActionMotion:
		if onDoc && m.selection.ExtendAt(&m.layout, row) {
			m.rerender()
		}
	case msg.Action == tea.MouseActionRelease:
		if m.selection.State() != annotate.Dragging {
			return nil
		}
		if onDoc {
			m.selection.ExtendAt(&m.layout, row)
		}
		if m.selection.Commit(m.registry) {
			return m.openCommentModal()
		}
		m.rerender()
	}
	return nil
}

func (m *Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "j", "down":
		m.moveCursor(1)
	case "k", "up":
		m.moveCursor(-1)
	case "g", "home":
		m.moveCursor(-m.cursor)
	case "G", "end":
		m.moveCursor(m.registry.Len())
	case "pgdown", "ctrl+d":
		m.scroll(m.viewHeight() / 2)
	case "pgup", "ctrl+u":
		m.scroll(-m.viewHeight() / 2)
	case "c":
		if m.selection.DirectAdd(m.registry, m.cursor) {
			return m, m.openCommentModal()
		}
	case "enter":
		if _, ok := m.selection.Final(); ok && !m.selection.Pending() && !m.submitter.InFlight(&m.selection) {
			return m, m.openCommentModal()
		}
	case "esc":
		if m.selection.Cancel() {
			m.rerender()
		}
	case "n":
		m.cycleThread()
	case "r":
		return m, m.loadReview()
	case "A":
		return m, m.openDecisionModal(reviewapi.StatusApproved)
	case "X":
		return m, m.openDecisionModal(reviewapi.StatusChangesRequested)
	case "R":
		return m, m.openDecisionModal(reviewapi.StatusRejected)
	}
	return m, nil
}

func (m *Model) openCommentModal() tea.Cmd {
	final, ok := m.selection.Final()
	if !ok {
		return nil
	}
	m.modal = NewCommentModal(final.StartLine, final.EndLine, final.BlockContent, m.modalWidth())
	m.mode = modeComment
	m.rerender()
	return textarea.Blink
}

func (m *Model) openDecisionModal(status string) tea.Cmd {
	if m.review == nil {
		return nil
	}
	m.decision = status
	m.modal = NewDecisionModal(status, m.modalWidth())
	m.mode = modeDecision
	return textarea.Blink
}

func (m *Model) updateModal(msg tea.Msg) tea.Cmd {
	var cmd tea.Cmd
	m.modal, cmd = m.modal.Update(msg)

	switch {
	case m.modal.Cancelled():
		if m.mode == modeComment {
			m.selection.Cancel()
		}
		m.mode = modeBrowse
		m.rerender()
		return nil
	case m.modal.Submitted():
		body := m.modal.Value()
		current := m.mode
		m.mode = modeBrowse
		if current == modeDecision {
			return m.submitDecision(m.decision, body)
		}
		ticket, err := m.submitter.Begin(&m.selection, body)
		if err != nil {
			m.err = err
			m.rerender()
			return nil
		}
		m.rerender()
		return m.createThread(ticket)
	}
	return cmd
}

func (m *Model) loadReview() tea.Cmd {
	api, id := m.api, m.reviewID
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		review, err := api.GetReview(ctx, id)
		return reviewLoadedMsg{review: review, err: err}
	}
}

func (m *Model) createThread(ticket annotate.Ticket) tea.Cmd {
	api, id := m.api, m.reviewID
	req := ticket.Request()
	var author *string
	if m.authorName != "" {
		name := m.authorName
		author = &name
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		thread, err := api.CreateThread(ctx, id, reviewapi.CreateThreadRequest{
			StartLine:    req.StartLine,
			EndLine:      req.EndLine,
			SelectedText: req.SelectedText,
			Body:         req.Body,
			AuthorType:   reviewapi.AuthorHuman,
			AuthorName:   author,
		})
		return threadCreatedMsg{ticket: ticket, thread: thread, err: err}
	}
}

func (m *Model) submitDecision(status, message string) tea.Cmd {
	api, id := m.api, m.reviewID
	var msgPtr *string
	if message != "" {
		msgPtr = &message
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), requestTimeout)
		defer cancel()
		decision, err := api.SubmitDecision(ctx, id, reviewapi.DecisionRequest{Status: status, Message: msgPtr})
		return decisionMsg{decision: decision, err: err}
	}
}

func (m *Model) scheduleRefresh() tea.Cmd {
	return tea.Tick(m.refreshEvery, func(time.Time) tea.Msg {
		return refreshTickMsg{}
	})
}

func scheduleExpire() tea.Cmd {
	return tea.Tick(expireInterval, func(time.Time) tea.Msg {
		return expireTickMsg{}
	})
}

func (m *Model) rerender() {
	if m.doc == nil {
		return
	}
	m.rows = m.renderPass()
	m.clampOffset()
}

func (m *Model) moveCursor(delta int) {
	n := m.registry.Len()
	if n == 0 {
		return
	}
	m.cursor = min(max(m.cursor+delta, 0), n-1)
	m.syncActiveThread()
	m.rerender()

	top, bottom, ok := m.layout.Rows(m.cursor)
	if !ok {
		return
	}
	vh := m.viewHeight()
	if top < m.offset {
		m.offset = top
	} else if bottom >= m.offset+vh {
		m.offset = bottom - vh + 1
	}
	m.clampOffset()
}

func (m *Model) scroll(delta int) {
	m.offset += delta
	m.clampOffset()
}

func (m *Model) clampOffset() {
	limit := max(len(m.rows)-m.viewHeight(), 0)
	m.offset = min(max(m.offset, 0), limit)
}

// syncActiveThread keeps the active thread on one anchored at the cursor.
func (m *Model) syncActiveThread() {
	ids := m.cursorThreads()
	if len(ids) == 0 {
		m.activeThread = ""
		return
	}
	for _, id := range ids {
		if id == m.activeThread {
			return
		}
	}
	m.activeThread = ids[0]
}

func (m *Model) cycleThread() {
	ids := m.cursorThreads()
	if len(ids) < 2 {
		return
	}
	next := 0
	for i, id := range ids {
		if id == m.activeThread {
			next = (i + 1) % len(ids)
			break
		}
	}
	m.activeThread = ids[next]
	m.rerender()
}

func (m *Model) cursorThreads() []string {
	if m.doc == nil || m.cursor >= len(m.doc.blocks) {
		return nil
	}
	b := m.doc.blocks[m.cursor]
	return m.highlights.ThreadsForRange(b.StartLine, b.EndLine)
}

func (m *Model) allResolved(start, end int) bool {
	for _, id := range m.highlights.ThreadsForRange(start, end) {
		if !m.threads[id].Resolved {
			return false
		}
	}
	return true
}

// rowAt converts a screen row into a document row.
func (m *Model) rowAt(y int) (int, bool) {
	if y < headerRows || y >= headerRows+m.viewHeight() {
		return 0, false
	}
	row := m.offset + y - headerRows
	if row >= len(m.rows) {
		return 0, false
	}
	return row, true
}

func (m *Model) viewHeight() int {
	return max(m.height-headerRows-footerRows-threadPanelRows, 1)
}

func (m *Model) contentWidth() int {
	return max(m.width-gutterWidth, 20)
}

func (m *Model) modalWidth() int {
	return min(m.width-4, 80)
}

func (m *Model) View() string {
	if m.review == nil {
		if m.err != nil {
			return errorStyle.Render(m.err.Error()) + "\n" + helpStyle.Render("q: quit")
		}
		return helpStyle.Render("Loading review...")
	}
	if m.mode != modeBrowse {
		return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, m.modal.View())
	}

	var b strings.Builder
	b.WriteString(m.renderHeader())
	b.WriteByte('\n')

	vh := m.viewHeight()
	end := min(m.offset+vh, len(m.rows))
	for i := m.offset; i < end; i++ {
		b.WriteString(m.rows[i])
		b.WriteByte('\n')
	}
	for i := end - m.offset; i < vh; i++ {
		b.WriteByte('\n')
	}

	b.WriteString(m.renderThreadPanel())
	b.WriteByte('\n')
	b.WriteString(m.renderFooter())
	return b.String()
}

func (m *Model) renderHeader() string {
	title := "(untitled)"
	if m.review.Title != nil && *m.review.Title != "" {
		title = *m.review.Title
	}
	summary := reviewapi.Summarize(m.review.Threads)
	line1 := titleStyle.Render(title) + "  " + statusStyle(m.review.Status).Render(strings.ToUpper(m.review.Status))
	line2 := helpStyle.Render(fmt.Sprintf("%d threads %s %d unresolved %s %d comments %s selection: %s",
		summary.TotalThreads, iconDot, summary.UnresolvedThreads, iconDot, summary.TotalComments, iconDot, m.selection.State()))
	return line1 + "\n" + line2
}

func (m *Model) renderThreadPanel() string {
	lines := make([]string, 0, threadPanelRows)
	t, ok := m.threads[m.activeThread]
	if !ok {
		lines = append(lines, helpStyle.Render("No threads on this block."))
	} else {
		state := "UNRESOLVED"
		if t.Resolved {
			state = "RESOLVED"
		}
		header := fmt.Sprintf("[%s] %s", state, lineRangeLabel(t.StartLine, t.EndLine))
		if ids := m.cursorThreads(); len(ids) > 1 {
			header += helpStyle.Render(fmt.Sprintf("  (%d threads, n: next)", len(ids)))
		}
		lines = append(lines, threadStyle.Render(header))
		for _, c := range t.Comments {
			author := c.AuthorType
			if c.AuthorName != nil && *c.AuthorName != "" {
				author = *c.AuthorName
			}
			lines = append(lines, cursorStyle.Render(author+":")+" "+previewText(c.Body, max(m.width-len(author)-4, 10)))
		}
	}
	if len(lines) > threadPanelRows-1 {
		lines = lines[:threadPanelRows-1]
	}
	for len(lines) < threadPanelRows-1 {
		lines = append(lines, "")
	}
	return panelStyle.Width(max(m.width, 1)).Render(strings.Join(lines, "\n"))
}

func (m *Model) renderFooter() string {
	switch {
	case m.err != nil:
		return errorStyle.Render(m.err.Error())
	case m.notice != "":
		return noticeStyle.Render(m.notice)
	}
	return helpStyle.Render(strings.Join([]string{
		"drag/c: comment", "esc: clear", "n: next thread", "A: approve", "X: changes", "R: reject", "q: quit",
	}, " "+iconDot+" "))
}
