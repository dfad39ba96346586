package adapter

import (
	"testing"
	"time"
)

func TestExtractText(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want string
	}{
		{"empty", "", ""},
		{"plain", "  just   text ", "just text"},
		{"block elements", "<div>one</div><div>two</div><ul><li>a</li><li>b</li></ul>", "one two a b"},
		{"double encoded", "&lt;b&gt;bold&lt;/b&gt; &amp; more", "bold & more"},
		{"line breaks", "first<br>second", "first second"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := extractText(tt.in); got != tt.want {
				t.Errorf("extractText(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	if got := truncate("héllo", 2); got != "hé" {
		t.Errorf("truncate = %q, want hé", got)
	}
	if got := truncate("abc", 10); got != "abc" {
		t.Errorf("truncate = %q, want abc", got)
	}
	if got := truncate("abc", 0); got != "abc" {
		t.Errorf("truncate with n=0 = %q, want abc", got)
	}
}

func TestParseTime(t *testing.T) {
	tests := []struct {
		in   string
		want time.Time
		ok   bool
	}{
		{"2026-10-12T09:00:00Z", time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC), true},
		{"2026-10-12T09:00:00", time.Date(2026, 10, 12, 9, 0, 0, 0, time.UTC), true},
		{"2026-10-12", time.Date(2026, 10, 12, 0, 0, 0, 0, time.UTC), true},
		{"last tuesday", time.Time{}, false},
		{"", time.Time{}, false},
	}
	for _, tt := range tests {
		got := parseTime(tt.in)
		if (got != nil) != tt.ok {
			t.Errorf("parseTime(%q) = %v, want ok=%v", tt.in, got, tt.ok)
			continue
		}
		if got != nil && !got.Equal(tt.want) {
			t.Errorf("parseTime(%q) = %v, want %v", tt.in, *got, tt.want)
		}
	}
}

func TestParseRetryAfter(t *testing.T) {
	tests := []struct {
		in   string
		want time.Duration
	}{
		{"", 0},
		{"30", 30 * time.Second},
		{"Wed, 21 Oct 2026 07:28:00 GMT", 0},
	}
	for _, tt := range tests {
		if got := parseRetryAfter(tt.in); got != tt.want {
			t.Errorf("parseRetryAfter(%q) = %v, want %v", tt.in, got, tt.want)
		}
	}
}
