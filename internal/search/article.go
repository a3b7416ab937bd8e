package search

import "time"

// Limits protecting downstream storage. Raw provider fields are clamped to
// these lengths at the fetch boundary.
const (
	maxTitleLen       = 220
	maxDescriptionLen = 800
	maxURLLen         = 500
	maxTermLen        = 140
)

// AgeInfo is the parsed publication age of an article. Providers report age
// either as a relative phrase ("2 days ago") or an absolute timestamp;
// anything unparsable is an unknown age, which keeps the article eligible.
type AgeInfo struct {
	Known bool      `json:"known"`
	Days  int       `json:"days,omitempty"`
	Time  time.Time `json:"time,omitempty"`
}

// Article is the canonical search result record. It is created here at the
// fetch boundary, validated once, and never mutated downstream.
type Article struct {
	Term        string  `json:"term"`
	URL         string  `json:"url"`
	Title       string  `json:"title"`
	Description string  `json:"description"`
	ImageURL    string  `json:"image_url"`
	Domain      string  `json:"domain"`
	Age         AgeInfo `json:"age"`
}
