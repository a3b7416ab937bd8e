// Package dedup tracks article URLs that have already been processed so a
// URL published in a prior run is never rewritten or published again.
package dedup

import (
	"sort"

	"github.com/matthewxmurphy/creatornewsdesk/internal/store"
)

// Ledger is a persisted set of previously seen article URLs. URLs are
// compared as exact strings; the dedup key must match whatever the fetcher
// emitted verbatim, so no canonicalization happens here.
type Ledger struct {
	path string
	seen map[string]bool
}

// Load reads the ledger from its JSON file. A missing or unreadable file
// yields an empty ledger.
func Load(path string) *Ledger {
	var urls []string
	store.Load(path, &urls)

	seen := make(map[string]bool, len(urls))
	for _, u := range urls {
		seen[u] = true
	}

	return &Ledger{path: path, seen: seen}
}

// Has reports whether url was processed in this or any prior run.
func (l *Ledger) Has(url string) bool {
	return l.seen[url]
}

// Mark records url as processed. In-memory only until Persist is called.
func (l *Ledger) Mark(url string) {
	l.seen[url] = true
}

// Len returns the number of URLs in the ledger.
func (l *Ledger) Len() int {
	return len(l.seen)
}

// Persist writes the ledger back to disk. Entries are sorted so repeated
// save/load cycles produce byte-identical files.
func (l *Ledger) Persist() error {
	urls := make([]string, 0, len(l.seen))
	for u := range l.seen {
		urls = append(urls, u)
	}
	sort.Strings(urls)

	return store.Save(l.path, urls)
}
