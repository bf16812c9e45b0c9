package tracker

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jersjar7/Fit14-sub001/internal/archive"
	"github.com/jersjar7/Fit14-sub001/internal/plan"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
)

// PlanExport is a plan rendered for sharing.
type PlanExport struct {
	Title    string
	Markdown string
	// HTML is a standalone document rendered from Markdown.
	HTML string
}

//nolint:gochecknoglobals // stateless and safe for concurrent use.
var markdown = goldmark.New(goldmark.WithExtensions(extension.GFM))

//nolint:gochecknoglobals // parsed once.
var exportDocument = template.Must(template.New("export").Parse(`<!doctype html>
<html lang="en">
<head>
<meta charset="utf-8">
<meta name="viewport" content="width=device-width, initial-scale=1">
<title>{{ .Title }}</title>
</head>
<body>
<main>
{{ .Body }}
</main>
</body>
</html>
`))

//nolint:gochecknoglobals // escapes inline markdown in user and generator text.
var markdownEscaper = strings.NewReplacer(
	`\`, `\\`, "`", "\\`", `*`, `\*`, `_`, `\_`, `[`, `\[`, `]`, `\]`, `#`, `\#`, `<`, `\<`, `|`, `\|`,
)

// ExportPlan renders a plan, archived or not, as a markdown checklist and as HTML.
func (s *Service) ExportPlan(ctx context.Context, id uuid.UUID) (PlanExport, error) {
	p, err := s.Plan(ctx, id)
	if err != nil {
		return PlanExport{}, err
	}
	export, err := RenderPlan(p, s.now())
	if err != nil {
		return PlanExport{}, fmt.Errorf("render plan %s: %w", id, err)
	}
	return export, nil
}

// RenderPlan renders p with its progress as of now.
func RenderPlan(p plan.WorkoutPlan, now time.Time) (PlanExport, error) {
	title := strings.TrimSpace(p.PlanTitle)
	if title == "" {
		title = archive.DefaultTitle
	}
	md := planMarkdown(p, title, now)

	var body bytes.Buffer
	if err := markdown.Convert([]byte(md), &body); err != nil {
		return PlanExport{}, fmt.Errorf("convert markdown: %w", err)
	}
	var doc bytes.Buffer
	if err := exportDocument.Execute(&doc, struct {
		Title string
		Body  template.HTML
	}{
		Title: title,
		//nolint:gosec // goldmark omits raw HTML by default.
		Body: template.HTML(body.String()),
	}); err != nil {
		return PlanExport{}, fmt.Errorf("execute export template: %w", err)
	}
	return PlanExport{
		Title:    title,
		Markdown: md,
		HTML:     doc.String(),
	}, nil
}

func planMarkdown(p plan.WorkoutPlan, title string, now time.Time) string {
	var b strings.Builder
	fmt.Fprintf(&b, "# %s\n\n", markdownEscaper.Replace(title))
	if summary := strings.TrimSpace(p.Summary); summary != "" {
		fmt.Fprintf(&b, "%s\n\n", markdownEscaper.Replace(summary))
	}
	if goals := strings.TrimSpace(p.UserGoalsText); goals != "" {
		fmt.Fprintf(&b, "**Goals:** %s\n\n", markdownEscaper.Replace(goals))
	}

	progress := p.Progress(now)
	fmt.Fprintf(&b, "**Status:** %s. %d of %d days completed (%.0f%%).\n\n",
		p.Status, progress.CompletedDays, progress.TotalDays, progress.ProgressPercentage)

	for _, d := range p.Days {
		fmt.Fprintf(&b, "## Day %d: %s", d.DayNumber, d.Date.Format("Mon, Jan 2"))
		if focus := strings.TrimSpace(d.Focus); focus != "" {
			fmt.Fprintf(&b, " (%s)", markdownEscaper.Replace(focus))
		}
		b.WriteString("\n\n")
		if len(d.Exercises) == 0 {
			b.WriteString("Rest day.\n\n")
			continue
		}
		for _, e := range d.Exercises {
			check := " "
			if e.IsCompleted {
				check = "x"
			}
			fmt.Fprintf(&b, "- [%s] %s: %d x %d %s\n", check, markdownEscaper.Replace(e.Name), e.Sets, e.Quantity, e.Unit)
			if instructions := strings.TrimSpace(e.Instructions); instructions != "" {
				fmt.Fprintf(&b, "  %s\n", markdownEscaper.Replace(strings.Join(strings.Fields(instructions), " ")))
			}
		}
		b.WriteString("\n")
	}
	return b.String()
}
