// Package pipeline orchestrates one end-to-end run: search, dedup and rate
// gates, LLM rewrite, taxonomy resolution, and the publish state machine,
// with per-item state persistence and status reporting.
package pipeline

import (
	"log"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/matthewxmurphy/creatornewsdesk/internal/config"
	"github.com/matthewxmurphy/creatornewsdesk/internal/dedup"
	"github.com/matthewxmurphy/creatornewsdesk/internal/publish"
	"github.com/matthewxmurphy/creatornewsdesk/internal/ratelimit"
	"github.com/matthewxmurphy/creatornewsdesk/internal/rewrite"
	"github.com/matthewxmurphy/creatornewsdesk/internal/search"
)

// Searcher fetches articles for one query.
type Searcher interface {
	Search(query string, count int, freshness string) []search.Article
}

// ArticleRewriter turns a fetched article into post content.
type ArticleRewriter interface {
	Rewrite(article search.Article) (*rewrite.Post, error)
}

// TermResolver maps category and tag names to WordPress term IDs.
type TermResolver interface {
	Category(name string) (int, error)
	Tags(names []string) []int
}

// PostPublisher runs one post through the publish state machine.
type PostPublisher interface {
	Publish(post *rewrite.Post, categoryID int, tagIDs []int) (*publish.Result, error)
}

// Options tunes a single run.
type Options struct {
	// Limit caps how many articles are rewritten this run. Zero means
	// unlimited (the rate limiter still applies).
	Limit int
	// FetchOnly stops after search: articles are listed, nothing is
	// generated or persisted.
	FetchOnly bool
	// DryRun goes through search and the dedup/rate gates but stops short
	// of the LLM and WordPress, leaving all state files untouched.
	DryRun bool
}

// Orchestrator wires the pipeline stages together. It assumes a single
// writer: state files are read at start and persisted after each item.
type Orchestrator struct {
	cfg      *config.Config
	site     *config.Site
	searcher Searcher
	rewriter ArticleRewriter
	resolver TermResolver
	pub      PostPublisher
	seen     *dedup.Ledger
	limiter  *ratelimit.Limiter
	reporter *Reporter

	persistTaxonomy func() error
}

// New creates an orchestrator over explicit collaborators.
func New(cfg *config.Config, site *config.Site, searcher Searcher, rewriter ArticleRewriter, resolver TermResolver, pub PostPublisher, seen *dedup.Ledger, limiter *ratelimit.Limiter, reporter *Reporter) *Orchestrator {
	return &Orchestrator{
		cfg:      cfg,
		site:     site,
		searcher: searcher,
		rewriter: rewriter,
		resolver: resolver,
		pub:      pub,
		seen:     seen,
		limiter:  limiter,
		reporter: reporter,
	}
}

// Run executes one pipeline pass and returns its stats. Errors before any
// side effect are fatal; everything after is soft-fail and lands in the
// stats and status instead.
func (o *Orchestrator) Run(opts Options) (Stats, error) {
	var stats Stats

	if !o.cfg.RunEnabled {
		log.Println("→ Pipeline disabled (run_enabled=false), nothing to do")
		return stats, nil
	}

	status := &Status{
		Running: true,
		RunID:   uuid.NewString(),
		Started: time.Now().UTC().Format(time.RFC3339),
	}
	o.report(status, opts)
	defer func() {
		status.Running = false
		status.Completed = time.Now().UTC().Format(time.RFC3339)
		status.Stats = stats
		o.report(status, opts)
	}()

	terms := search.Terms(o.site)
	log.Printf("→ Run %s: %d search terms", status.RunID, len(terms))

	hourly, daily := o.limiter.Remaining()
	log.Printf("→ Generation budget: %d hourly, %d daily", hourly, daily)

	capped := false
	for _, term := range terms {
		if capped {
			break
		}

		articles := o.searcher.Search(term, o.site.Search.PerTerm, o.site.Search.Freshness)
		stats.Fetched += len(articles)

		for i := range articles {
			article := articles[i]

			if o.seen.Has(article.URL) {
				stats.Skipped++
				continue
			}

			if opts.FetchOnly {
				log.Printf("→ Fetched: %s", article)
				continue
			}

			if opts.Limit > 0 && stats.Processed >= opts.Limit {
				capped = true
				break
			}

			if !o.limiter.Allow() {
				log.Println("→ Generation caps reached, stopping")
				capped = true
				break
			}

			if opts.DryRun {
				log.Printf("→ Would rewrite: %s", article)
				stats.Processed++
				continue
			}

			o.processArticle(article, &stats, status)
			o.persist(status)
		}
	}

	log.Printf("✓ Run complete: %d fetched, %d processed, %d created, %d published, %d skipped, %d errors",
		stats.Fetched, stats.Processed, stats.Created, stats.Published, stats.Skipped, stats.Errors)
	return stats, nil
}

// processArticle takes one article through rewrite, taxonomy, and publish.
func (o *Orchestrator) processArticle(article search.Article, stats *Stats, status *Status) {
	stats.Processed++
	o.limiter.Record(time.Now())

	post, err := o.rewriter.Rewrite(article)
	if err != nil {
		switch rewrite.KindOf(err) {
		case rewrite.QualityReject:
			// The same article would fail quality again next run, so the
			// URL is marked processed to stop re-generating it.
			log.Printf("→ Quality reject: %s (%v)", article, err)
			o.seen.Mark(article.URL)
			stats.Skipped++
		default:
			log.Printf("✗ Rewrite failed for %s: %v", article, err)
			status.LastError = err.Error()
			stats.Errors++
		}
		return
	}

	categoryID := 0
	if name := categoryFor(o.site, article.Term); name != "" {
		id, err := o.resolver.Category(name)
		if err != nil {
			log.Printf("✗ Category %q not resolved: %v", name, err)
		} else {
			categoryID = id
		}
	}
	tagIDs := o.resolver.Tags(post.Tags)

	result, err := o.pub.Publish(post, categoryID, tagIDs)
	if err != nil {
		// Draft creation failed; the URL stays unmarked so a later run
		// retries it.
		log.Printf("✗ Publish failed for %s: %v", article, err)
		status.LastError = err.Error()
		stats.Errors++
		return
	}

	stats.Created++
	if result.State == publish.StatePublished || result.State == publish.StateSocialPosted || result.State == publish.StateSocialSkipped {
		stats.Published++
	}
	o.seen.Mark(article.URL)
	status.LastPost = post.Headline
	status.Stats = *stats
}

// persist flushes the ledgers and status after each item so a crash loses
// at most the article in flight.
func (o *Orchestrator) persist(status *Status) {
	if err := o.seen.Persist(); err != nil {
		log.Printf("✗ Persisting processed URLs: %v", err)
	}
	if err := o.limiter.Persist(); err != nil {
		log.Printf("✗ Persisting usage ledger: %v", err)
	}
	if o.persistTaxonomy != nil {
		if err := o.persistTaxonomy(); err != nil {
			log.Printf("✗ Persisting taxonomy cache: %v", err)
		}
	}
	if o.reporter != nil {
		o.reporter.Report(status)
	}
}

// report pushes status unless the run is a dry run, which must leave no
// trace on disk or the dashboard.
func (o *Orchestrator) report(status *Status, opts Options) {
	if opts.DryRun || opts.FetchOnly || o.reporter == nil {
		return
	}
	o.reporter.Report(status)
}

// categoryFor maps a search term back to its site category by matching the
// brand prefix the term was built from. Categories are walked sorted so an
// ambiguous term always resolves the same way.
func categoryFor(site *config.Site, term string) string {
	lower := strings.ToLower(term)

	categories := make([]string, 0, len(site.Search.Structure))
	for category := range site.Search.Structure {
		categories = append(categories, category)
	}
	sort.Strings(categories)

	for _, category := range categories {
		for brand := range site.Search.Structure[category] {
			b := strings.ToLower(brand)
			if lower == b || strings.HasPrefix(lower, b+" ") {
				return category
			}
		}
	}
	return ""
}
