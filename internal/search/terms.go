package search

import (
	"sort"
	"strings"

	"github.com/matthewxmurphy/creatornewsdesk/internal/config"
)

// Terms builds the deduplicated search phrase list for a site. Queries come
// from the nested category -> brand -> phrase structure as "brand phrase",
// plus any flat terms, clamped and deduplicated case-insensitively while
// preserving order. Map keys are walked sorted so the query order is stable
// across runs.
func Terms(site *config.Site) []string {
	var raw []string

	categories := make([]string, 0, len(site.Search.Structure))
	for category := range site.Search.Structure {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		brands := site.Search.Structure[category]

		names := make([]string, 0, len(brands))
		for brand := range brands {
			names = append(names, brand)
		}
		sort.Strings(names)

		for _, brand := range names {
			phrases := brands[brand]
			if len(phrases) == 0 {
				raw = append(raw, brand)
				continue
			}
			for _, phrase := range phrases {
				raw = append(raw, brand+" "+phrase)
			}
		}
	}

	raw = append(raw, site.Search.Terms...)

	seen := make(map[string]bool, len(raw))
	out := make([]string, 0, len(raw))
	for _, t := range raw {
		t = clamp(t, maxTermLen)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, t)
	}

	return out
}
