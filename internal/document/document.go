package document

import "strings"

// Document is a loaded source file: its base name plus per-page text.
// Non-paginated formats load as a single page.
type Document struct {
	Name  string
	Path  string
	Pages []string
}

// Text returns the concatenated page text the chunker operates on.
func (d Document) Text() string {
	return strings.Join(d.Pages, "\n")
}
