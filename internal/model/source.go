package model

import "strings"

// SourceType classifies where a source came from.
type SourceType string

const (
	SourceWeb      SourceType = "web"
	SourceInternal SourceType = "internal"
	SourceBeroe    SourceType = "beroe"
)

// Source is a single evidence source produced by a research agent.
type Source struct {
	Type    SourceType `json:"type"`
	Name    string     `json:"name"`
	URL     string     `json:"url,omitempty"`
	Snippet string     `json:"snippet,omitempty"`
}

// Key returns the de-duplication identity for the source: the normalised URL
// when present, otherwise the lowercased name.
func (s Source) Key() string {
	if s.URL != "" {
		return NormalizeURL(s.URL)
	}
	return strings.ToLower(strings.TrimSpace(s.Name))
}

// Internal reports whether the source is cited with a B-class id.
func (s Source) Internal() bool {
	return s.Type == SourceInternal || s.Type == SourceBeroe
}

// NormalizeURL canonicalises a URL for identity comparison: lowercase,
// scheme and www stripped, trailing slash and fragment removed.
func NormalizeURL(raw string) string {
	u := strings.ToLower(strings.TrimSpace(raw))
	u = strings.TrimPrefix(u, "https://")
	u = strings.TrimPrefix(u, "http://")
	u = strings.TrimPrefix(u, "www.")
	if i := strings.IndexByte(u, '#'); i >= 0 {
		u = u[:i]
	}
	return strings.TrimSuffix(u, "/")
}

// Citation ties a citation id to its source and the sections that used it.
type Citation struct {
	ID             string   `json:"id"` // "B1", "W2", ...
	Source         Source   `json:"source"`
	UsedInSections []string `json:"used_in_sections,omitempty"`
}

// CitationClass returns 'B' or 'W' for a well-formed citation id, or 0.
func CitationClass(id string) byte {
	if len(id) < 2 {
		return 0
	}
	if id[0] == 'B' || id[0] == 'W' {
		return id[0]
	}
	return 0
}

// CitationNumber returns the numeric part of a citation id, or -1 when the
// id is not of the form B<n>/W<n>.
func CitationNumber(id string) int {
	if CitationClass(id) == 0 {
		return -1
	}
	n := 0
	for i := 1; i < len(id); i++ {
		c := id[i]
		if c < '0' || c > '9' {
			return -1
		}
		n = n*10 + int(c-'0')
	}
	return n
}
