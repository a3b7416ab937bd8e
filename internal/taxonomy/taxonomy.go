// Package taxonomy maps free-text category and tag names to WordPress term
// IDs, creating missing terms and caching the mapping between runs.
package taxonomy

import (
	"fmt"
	"log"
	"strings"

	"github.com/matthewxmurphy/creatornewsdesk/internal/config"
	"github.com/matthewxmurphy/creatornewsdesk/internal/store"
	"github.com/matthewxmurphy/creatornewsdesk/internal/wordpress"
)

// TermAPI is the slice of the WordPress client the resolver consumes.
type TermAPI interface {
	Categories() ([]wordpress.Term, error)
	Tags() ([]wordpress.Term, error)
	CreateCategory(name, description string) (int, error)
	CreateTag(name string) (int, error)
}

// Cache maps lowercased term names to WordPress IDs, one map per taxonomy
// kind. It is constructed at orchestrator start, handed to the resolver,
// and persisted at end of run; no hidden global state.
type Cache struct {
	path       string
	Categories map[string]int `json:"categories"`
	Tags       map[string]int `json:"tags"`
}

// LoadCache reads the cache file; missing or corrupt files yield an empty
// cache.
func LoadCache(path string) *Cache {
	c := &Cache{path: path}
	store.Load(path, c)
	if c.Categories == nil {
		c.Categories = make(map[string]int)
	}
	if c.Tags == nil {
		c.Tags = make(map[string]int)
	}
	return c
}

// Persist writes the cache back to disk.
func (c *Cache) Persist() error {
	return store.Save(c.path, c)
}

// Resolver resolves term names against WordPress through the cache.
//
// Lookup order: cache, then a refetch of all terms from WordPress, then
// term creation. Two concurrent runs can still race WordPress into
// duplicate terms; the pipeline assumes a single writer and does not guard
// against that.
type Resolver struct {
	wp    TermAPI
	cache *Cache

	fetchedCategories bool
	fetchedTags       bool
}

// NewResolver creates a resolver over wp using cache.
func NewResolver(wp TermAPI, cache *Cache) *Resolver {
	return &Resolver{wp: wp, cache: cache}
}

// Category resolves a category name to its WordPress ID, creating the
// category when it does not exist.
func (r *Resolver) Category(name string) (int, error) {
	return r.resolve(name, r.cache.Categories, r.refreshCategories, func() (int, error) {
		return r.wp.CreateCategory(name, "")
	})
}

// Tag resolves a single tag name to its WordPress ID.
func (r *Resolver) Tag(name string) (int, error) {
	return r.resolve(name, r.cache.Tags, r.refreshTags, func() (int, error) {
		return r.wp.CreateTag(name)
	})
}

// Tags resolves a batch of tag names. A name that fails to resolve is
// logged and skipped rather than failing the batch.
func (r *Resolver) Tags(names []string) []int {
	ids := make([]int, 0, len(names))
	for _, name := range names {
		id, err := r.Tag(name)
		if err != nil {
			log.Printf("✗ Tag %q not resolved: %v", name, err)
			continue
		}
		ids = append(ids, id)
	}
	return ids
}

func (r *Resolver) resolve(name string, cache map[string]int, refresh func() error, create func() (int, error)) (int, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return 0, fmt.Errorf("empty term name")
	}

	if id, ok := cache[key]; ok {
		return id, nil
	}

	// Cache miss: the term may exist in WordPress from a previous run or
	// manual edit, so refetch before creating.
	if err := refresh(); err != nil {
		return 0, err
	}
	if id, ok := cache[key]; ok {
		return id, nil
	}

	id, err := create()
	if err != nil {
		return 0, err
	}
	cache[key] = id
	return id, nil
}

func (r *Resolver) refreshCategories() error {
	if r.fetchedCategories {
		return nil
	}
	terms, err := r.wp.Categories()
	if err != nil {
		return err
	}
	for _, t := range terms {
		r.cache.Categories[strings.ToLower(t.Name)] = t.ID
	}
	r.fetchedCategories = true
	return nil
}

func (r *Resolver) refreshTags() error {
	if r.fetchedTags {
		return nil
	}
	terms, err := r.wp.Tags()
	if err != nil {
		return err
	}
	for _, t := range terms {
		r.cache.Tags[strings.ToLower(t.Name)] = t.ID
	}
	r.fetchedTags = true
	return nil
}

// SyncStats summarizes one taxonomy sync pass.
type SyncStats struct {
	CategoriesCreated  int
	ExistingCategories int
}

// Sync walks the site's brand structure and creates any category missing
// from WordPress: one per top-level category and one per brand.
func (r *Resolver) Sync(site *config.Site) (SyncStats, error) {
	var stats SyncStats

	if err := r.refreshCategories(); err != nil {
		return stats, fmt.Errorf("fetching existing categories: %w", err)
	}
	stats.ExistingCategories = len(r.cache.Categories)

	var names []string
	for category, brands := range site.Search.Structure {
		names = append(names, category)
		for brand := range brands {
			names = append(names, brand)
		}
	}

	for _, name := range names {
		key := strings.ToLower(name)
		if _, ok := r.cache.Categories[key]; ok {
			continue
		}
		id, err := r.wp.CreateCategory(name, "")
		if err != nil {
			log.Printf("✗ Creating category %q: %v", name, err)
			continue
		}
		r.cache.Categories[key] = id
		stats.CategoriesCreated++
		log.Printf("✓ Created category: %s", name)
	}

	return stats, nil
}
