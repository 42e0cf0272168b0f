package report

import (
	"bytes"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/template"
	"time"

	"github.com/charmbracelet/glamour"

	"github.com/couchcryptid/streamflow-eda/internal/domain"
)

// FileName is the name of the Markdown report inside the output directory.
const FileName = "report.md"

var markdownTemplate = template.Must(template.New("report").Funcs(template.FuncMap{
	"date":     func(t time.Time) string { return t.Format(domain.DateLayout) },
	"datetime": func(t time.Time) string { return t.UTC().Format(time.RFC3339) },
	"cell":     func(s string) string { return strings.ReplaceAll(s, "|", `\|`) },
}).Parse(`# {{.Title}}

Site **{{.Site.ID}}**{{with .Site.Name}} ({{.}}){{end}}, parameter {{.Site.Parameter}}, statistic {{.Site.Statistic}}.
{{.N}} daily values from {{date .Range.Start}} to {{date .Range.End}}.

_Generated {{datetime .GeneratedAt}}._
{{range $s := .Sections}}
## {{$s.Title}}

{{$s.Text}}
{{if $s.Stats}}
| Statistic | Value |
|---|---|
{{range $s.Stats}}| {{cell .Name}} | {{cell .Value}} |
{{end}}{{end}}{{range $s.Plots}}
![{{$s.Title}}]({{.}})
{{end}}{{end}}`))

// WriteMarkdown renders the report as Markdown.
func (r *Report) WriteMarkdown(w io.Writer) error {
	if err := markdownTemplate.Execute(w, r); err != nil {
		return fmt.Errorf("render report: %w", err)
	}
	return nil
}

// Markdown returns the report as a Markdown string.
func (r *Report) Markdown() (string, error) {
	var buf bytes.Buffer
	if err := r.WriteMarkdown(&buf); err != nil {
		return "", err
	}
	return buf.String(), nil
}

// WriteFile writes report.md into dir and returns its path.
func (r *Report) WriteFile(dir string) (string, error) {
	md, err := r.Markdown()
	if err != nil {
		return "", err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("create output dir: %w", err)
	}
	path := filepath.Join(dir, FileName)
	if err := os.WriteFile(path, []byte(md), 0o644); err != nil {
		return "", fmt.Errorf("write %s: %w", path, err)
	}
	return path, nil
}

// Print renders the Markdown for a terminal and writes it to w.
func (r *Report) Print(w io.Writer, width int) error {
	md, err := r.Markdown()
	if err != nil {
		return err
	}
	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(width),
	)
	if err != nil {
		return fmt.Errorf("terminal renderer: %w", err)
	}
	out, err := renderer.Render(md)
	if err != nil {
		return fmt.Errorf("render for terminal: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}
