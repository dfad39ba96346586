package adapter

import (
	"html"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
)

const unknownLocation = "USA"

// extractText converts an HTML or HTML-encoded string to plain text.
// Entities are unescaped first so double-encoded payloads parse as markup,
// then block elements are padded so their text does not run together.
func extractText(content string) string {
	if content == "" {
		return ""
	}
	unescaped := html.UnescapeString(content)
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(unescaped))
	if err != nil {
		return strings.Join(strings.Fields(unescaped), " ")
	}
	doc.Find("br, p, div, li, tr, h1, h2, h3, h4, h5, h6").AppendHtml(" ")
	return strings.Join(strings.Fields(doc.Text()), " ")
}

// truncate returns at most n runes of s.
func truncate(s string, n int) string {
	if n <= 0 {
		return s
	}
	i := 0
	for pos := range s {
		if i == n {
			return s[:pos]
		}
		i++
	}
	return s
}

// parseTime tries RFC 3339 and a few common provider layouts.
func parseTime(s string) *time.Time {
	if s == "" {
		return nil
	}
	for _, layout := range []string{time.RFC3339, time.RFC3339Nano, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t
		}
	}
	return nil
}

// positive returns a pointer to v, or nil when v is not a real amount.
func positive(v float64) *float64 {
	if v <= 0 {
		return nil
	}
	return &v
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
