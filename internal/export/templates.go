package export

import (
	"bytes"
	"embed"
	"html/template"
	"strconv"
	"strings"
	"time"
)

//go:embed templates/*.html
var templateFS embed.FS

var reviewTemplate *template.Template

func init() {
	funcMap := template.FuncMap{
		"upper": strings.ToUpper,
		"formatDate": func(t time.Time, layout string) string {
			return t.Format(layout)
		},
		"deref": func(t *time.Time) time.Time {
			if t == nil {
				return time.Time{}
			}
			return *t
		},
		"lineRange": func(start, end int) string {
			if start == end {
				return "Line " + strconv.Itoa(start)
			}
			return "Lines " + strconv.Itoa(start) + "-" + strconv.Itoa(end)
		},
	}

	templateContent, err := templateFS.ReadFile("templates/review.html")
	if err != nil {
		reviewTemplate = template.Must(template.New("review").Funcs(funcMap).Parse(fallbackTemplate))
		return
	}

	reviewTemplate = template.Must(template.New("review").Funcs(funcMap).Parse(string(templateContent)))
}

// TemplateData holds data for review template rendering
type TemplateData struct {
	Title           string
	Status          string
	DecisionMessage string
	ContentHTML     template.HTML
	CreatedAt       time.Time
	DecidedAt       *time.Time
	Threads         []TemplateThread
}

// TemplateThread holds thread data for template
type TemplateThread struct {
	StartLine    int
	EndLine      int
	SelectedText string
	Resolved     bool
	Comments     []TemplateComment
}

// TemplateComment holds comment data for template
type TemplateComment struct {
	Author     string
	AuthorType string
	Body       string
	CreatedAt  time.Time
}

// RenderReviewHTML renders the review template with provided data
func RenderReviewHTML(data TemplateData) (string, error) {
	var buf bytes.Buffer
	if err := reviewTemplate.Execute(&buf, data); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// fallbackTemplate is used if the embedded template fails to load
const fallbackTemplate = `<!DOCTYPE html>
<html>
<head>
  <meta charset="UTF-8">
  <title>{{.Title}}</title>
</head>
<body>
  <h1>{{.Title}}</h1>
  <p>{{upper .Status}}</p>
  <div>{{.ContentHTML}}</div>
  {{range .Threads}}<div>{{.SelectedText}}{{range .Comments}}<p>{{.Author}}: {{.Body}}</p>{{end}}</div>{{end}}
</body>
</html>`
