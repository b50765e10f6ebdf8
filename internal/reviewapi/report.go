package reviewapi

import (
	"fmt"
	"strings"
)

// MessageOrNone returns the decision message or "(none)".
func MessageOrNone(message *string) string {
	if message == nil || *message == "" {
		return "(none)"
	}
	return *message
}

// Report renders the summary block followed by one entry per thread, or
// "No comments." when there are none.
func Report(summary Summary, threads []Thread) string {
	var b strings.Builder
	fmt.Fprintf(&b, "Summary:\n- Total threads: %d\n- Resolved: %d\n- Unresolved: %d\n- Total comments: %d\n\n",
		summary.TotalThreads, summary.ResolvedThreads, summary.UnresolvedThreads, summary.TotalComments)

	if len(threads) == 0 {
		b.WriteString("No comments.")
		return b.String()
	}

	b.WriteString("Comments:\n")
	for i, t := range threads {
		if i > 0 {
			b.WriteString("\n\n")
		}
		state := "UNRESOLVED"
		if t.Resolved {
			state = "RESOLVED"
		}
		fmt.Fprintf(&b, "[%s] \"%s\"", state, t.SelectedText)
		for _, c := range t.Comments {
			fmt.Fprintf(&b, "\n  - %s: %s", c.AuthorType, c.Body)
		}
	}
	return b.String()
}
