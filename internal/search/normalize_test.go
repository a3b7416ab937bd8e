package search

import (
	"encoding/json"
	"strings"
	"testing"
)

func TestClamp(t *testing.T) {
	tests := []struct {
		name     string
		in       string
		n        int
		expected string
	}{
		{"plain", "hello", 10, "hello"},
		{"collapse whitespace", "a \t b\n\nc", 10, "a b c"},
		{"trim", "  padded  ", 10, "padded"},
		{"truncate", "abcdefghij", 4, "abcd"},
		{"empty", "", 10, ""},
		{"only whitespace", " \n\t ", 10, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := clamp(tt.in, tt.n); got != tt.expected {
				t.Errorf("clamp(%q, %d) = %q, want %q", tt.in, tt.n, got, tt.expected)
			}
		})
	}
}

func TestPickImage(t *testing.T) {
	tests := []struct {
		name     string
		raw      string
		expected string
	}{
		{"string image", `{"image": "http://x/a.jpg"}`, "http://x/a.jpg"},
		{"object url", `{"thumbnail": {"url": "http://x/t.jpg"}}`, "http://x/t.jpg"},
		{"object src", `{"thumbnail": {"src": "http://x/s.jpg"}}`, "http://x/s.jpg"},
		{"img key", `{"img": "https://x/i.png"}`, "https://x/i.png"},
		{"priority order", `{"image": "http://x/first.jpg", "thumbnail": "http://x/second.jpg"}`, "http://x/first.jpg"},
		{"non-http rejected", `{"image": "data:image/png;base64,xxx"}`, ""},
		{"falls through to next key", `{"image": "not-a-url", "thumbnail": "http://x/t.jpg"}`, "http://x/t.jpg"},
		{"absent", `{"title": "no image"}`, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var item map[string]json.RawMessage
			if err := json.Unmarshal([]byte(tt.raw), &item); err != nil {
				t.Fatalf("bad test fixture: %v", err)
			}
			if got := pickImage(item); got != tt.expected {
				t.Errorf("pickImage() = %q, want %q", got, tt.expected)
			}
		})
	}
}

func TestParseAge(t *testing.T) {
	tests := []struct {
		name      string
		raw       string
		wantKnown bool
		wantDays  int
	}{
		{"days ago", "2 days ago", true, 2},
		{"single day", "1 day ago", true, 1},
		{"hours ago", "3 hours ago", true, 0},
		{"weeks ago", "2 weeks ago", true, 14},
		{"months ago", "1 month ago", true, 30},
		{"mixed case", "5 Days Ago", true, 5},
		{"empty", "", false, 0},
		{"garbage", "sometime last year maybe", false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := parseAge(tt.raw)
			if got.Known != tt.wantKnown {
				t.Errorf("parseAge(%q).Known = %v, want %v", tt.raw, got.Known, tt.wantKnown)
			}
			if got.Days != tt.wantDays {
				t.Errorf("parseAge(%q).Days = %d, want %d", tt.raw, got.Days, tt.wantDays)
			}
		})
	}
}

func TestParseAgeAbsolute(t *testing.T) {
	got := parseAge("2025-02-01T10:30:00Z")
	if !got.Known {
		t.Fatal("parseAge() RFC3339 timestamp not recognized")
	}
	if got.Time.IsZero() {
		t.Error("parseAge() did not keep the absolute timestamp")
	}

	if got := parseAge("2025-02-01"); !got.Known {
		t.Error("parseAge() date-only timestamp not recognized")
	}
}

func TestClampRuneSafety(t *testing.T) {
	// Truncation must not split multi-byte runes.
	in := strings.Repeat("é", 300)
	out := clamp(in, 220)
	if len([]rune(out)) != 220 {
		t.Errorf("clamp() kept %d runes, want 220", len([]rune(out)))
	}
}
