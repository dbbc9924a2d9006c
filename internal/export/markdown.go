package export

import (
	"fmt"
	"strings"
	"time"

	"github.com/scansort/scansort/internal/batch"
	"github.com/scansort/scansort/internal/extract"
)

// RenderMarkdown produces the per-document report: metadata header
// with the batch's processing status, the final page order, and the
// full extracted text page by page.
func RenderMarkdown(g batch.DocumentGroup, sources []string, texts []extract.PageText, status batch.Status, generated time.Time) string {
	var b strings.Builder

	title := g.Title
	if title == "" {
		title = "Untitled document"
	}

	fmt.Fprintf(&b, "# %s\n\n", title)
	fmt.Fprintf(&b, "- **Category:** %s\n", g.Category)
	if g.SubCategory != "" {
		fmt.Fprintf(&b, "- **Subcategory:** %s\n", g.SubCategory)
	}
	fmt.Fprintf(&b, "- **Pages:** %d (%s)\n", len(g.Pages), joinPages(g.Pages))
	if status != "" {
		fmt.Fprintf(&b, "- **Status:** %s\n", status)
	}
	if len(sources) > 0 {
		fmt.Fprintf(&b, "- **Source files:** %s\n", strings.Join(sources, ", "))
	}
	fmt.Fprintf(&b, "- **Generated:** %s\n\n", generated.UTC().Format(time.RFC3339))

	b.WriteString("## Extracted Text\n")
	for _, pt := range texts {
		fmt.Fprintf(&b, "\n### Page %d\n\n", pt.Number)
		text := strings.TrimSpace(pt.Text)
		if text == "" {
			b.WriteString("_No text could be extracted from this page._\n")
			continue
		}
		b.WriteString(text)
		b.WriteString("\n")
	}

	return b.String()
}

func joinPages(pages []int) string {
	parts := make([]string, len(pages))
	for i, n := range pages {
		parts[i] = fmt.Sprintf("%d", n)
	}
	return strings.Join(parts, ", ")
}
