package pipeline

import (
	"fmt"

	"github.com/matthewxmurphy/creatornewsdesk/internal/config"
	"github.com/matthewxmurphy/creatornewsdesk/internal/dedup"
	"github.com/matthewxmurphy/creatornewsdesk/internal/publish"
	"github.com/matthewxmurphy/creatornewsdesk/internal/ratelimit"
	"github.com/matthewxmurphy/creatornewsdesk/internal/rewrite"
	"github.com/matthewxmurphy/creatornewsdesk/internal/search"
	"github.com/matthewxmurphy/creatornewsdesk/internal/taxonomy"
	"github.com/matthewxmurphy/creatornewsdesk/internal/wordpress"
)

// FromConfig wires an orchestrator with real collaborators for the active
// site. Credentials are validated here, before any side effect.
func FromConfig(cfg *config.Config) (*Orchestrator, error) {
	site, err := cfg.ActiveSite()
	if err != nil {
		return nil, err
	}
	if err := site.Validate(); err != nil {
		return nil, err
	}

	rewriter, err := rewrite.New(site.LLM)
	if err != nil {
		return nil, fmt.Errorf("building rewriter: %w", err)
	}

	auth := site.Auth()
	wp := wordpress.NewClient(auth.APIBase, auth.User, auth.AppPassword)

	cache := taxonomy.LoadCache(cfg.Paths.Taxonomy)
	resolver := taxonomy.NewResolver(wp, cache)

	var social publish.SocialPoster
	if site.Social.WebhookURL != "" {
		social = publish.NewWebhookPoster(site.Social.WebhookURL)
	}
	publisher := publish.New(wp, publish.NewHTTPImageSource(), social, cfg.PublishMode)

	o := New(
		cfg,
		site,
		search.NewClient(site.BraveKeys, site.Search.SkipDomains),
		rewriter,
		resolver,
		publisher,
		dedup.Load(cfg.Paths.Processed),
		ratelimit.Load(cfg.Paths.Usage, cfg.HourlyCap, cfg.DailyCap),
		NewReporter(cfg.Paths.Status, cfg.DashboardURL),
	)
	o.persistTaxonomy = cache.Persist
	return o, nil
}
