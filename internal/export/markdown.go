package export

import (
	"bytes"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

var (
	markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))
	policy   = bluemonday.UGCPolicy()
)

// MarkdownToHTML renders GitHub-flavored markdown and strips anything the
// UGC policy does not allow.
func MarkdownToHTML(source []byte) (string, error) {
	var buf bytes.Buffer
	if err := markdown.Convert(source, &buf); err != nil {
		return "", err
	}
	return policy.Sanitize(buf.String()), nil
}
