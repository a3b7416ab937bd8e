package search

import (
	"encoding/json"
	"regexp"
	"strconv"
	"strings"
	"time"
)

var whitespaceRe = regexp.MustCompile(`\s+`)

// clamp collapses internal whitespace, trims, and truncates s to n runes.
func clamp(s string, n int) string {
	s = whitespaceRe.ReplaceAllString(s, " ")
	s = strings.TrimSpace(s)

	runes := []rune(s)
	if len(runes) > n {
		return string(runes[:n])
	}
	return s
}

// pickImage extracts an image URL from a raw result item. Providers return
// images under several keys and in both string and object form; the first
// http-prefixed candidate wins. Absence yields "", not an error.
func pickImage(item map[string]json.RawMessage) string {
	for _, key := range []string{"image", "thumbnail", "img"} {
		raw, ok := item[key]
		if !ok {
			continue
		}

		var s string
		if err := json.Unmarshal(raw, &s); err == nil {
			if strings.HasPrefix(s, "http") {
				return s
			}
			continue
		}

		var obj struct {
			URL string `json:"url"`
			Src string `json:"src"`
		}
		if err := json.Unmarshal(raw, &obj); err == nil {
			for _, u := range []string{obj.URL, obj.Src} {
				if strings.HasPrefix(u, "http") {
					return u
				}
			}
		}
	}
	return ""
}

var relativeAgeRe = regexp.MustCompile(`(?i)^(\d+)\s+(minute|hour|day|week|month)s?\s+ago$`)

// parseAge turns a provider "age" field into an AgeInfo. Relative phrases
// become a day count, absolute timestamps are kept as-is, and anything else
// is an unknown age.
func parseAge(raw string) AgeInfo {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return AgeInfo{}
	}

	if m := relativeAgeRe.FindStringSubmatch(raw); m != nil {
		n, err := strconv.Atoi(m[1])
		if err != nil {
			return AgeInfo{}
		}
		days := 0
		switch strings.ToLower(m[2]) {
		case "minute", "hour":
			days = 0
		case "day":
			days = n
		case "week":
			days = n * 7
		case "month":
			days = n * 30
		}
		return AgeInfo{Known: true, Days: days}
	}

	for _, layout := range []string{time.RFC3339, "2006-01-02T15:04:05", "2006-01-02"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return AgeInfo{Known: true, Time: t}
		}
	}

	return AgeInfo{}
}
