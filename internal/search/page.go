package search

import (
	"fmt"
	"strings"

	"github.com/fr8labs/leadbot/internal/crm"
)

// Page is one rendered page of search results.
type Page struct {
	Doctype crm.Doctype
	Query   string
	Number  int
	Start   int
	Items   []crm.ListItem
	HasPrev bool
	HasMore bool
}

// Empty reports whether the page holds no results.
func (p Page) Empty() bool {
	return len(p.Items) == 0
}

// Header renders the page header line, e.g. "Page 1 | Found 5 leads:".
func (p Page) Header() string {
	label := p.Doctype.Label()
	if len(p.Items) != 1 {
		label += "s"
	}
	return fmt.Sprintf("Page %d | Found %d %s:", p.Number, len(p.Items), label)
}

// Line renders one result row:
// [index] name | organization — display | status | Owner: owner | date.
func (p Page) Line(i int) string {
	item := p.Items[i]
	return fmt.Sprintf("*[%d] %s* | %s — %s | %s | Owner: %s | %s",
		p.Start+i+1,
		item.Name,
		orDash(item.Organization),
		item.DisplayName(),
		orDash(item.Status),
		orDash(item.Owner),
		item.ModifiedDate(),
	)
}

// Text renders the full message body: header plus one row per result,
// separated by blank lines.
func (p Page) Text() string {
	lines := make([]string, 0, len(p.Items)+1)
	lines = append(lines, p.Header())
	for i := range p.Items {
		lines = append(lines, p.Line(i))
	}
	return strings.Join(lines, "\n\n")
}

func orDash(s string) string {
	if s == "" {
		return "—"
	}
	return s
}
