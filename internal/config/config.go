// Package config loads pipeline configuration from a YAML settings file
// with environment-variable overrides.
package config

import (
	"encoding/json"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Defaults applied when neither file nor environment provides a value.
const (
	DefaultHourlyCap   = 8
	DefaultDailyCap    = 180
	DefaultPerTerm     = 10
	DefaultPublishMode = "draft"
	DefaultMinWords    = 400
)

// WPAuth holds WordPress REST API credentials for one auth profile.
type WPAuth struct {
	APIBase     string `yaml:"api_base" json:"api_base"`
	User        string `yaml:"user" json:"user"`
	AppPassword string `yaml:"app_password" json:"app_password"`
	Weight      int    `yaml:"weight" json:"weight"`
}

// SearchConfig describes what to search for and what to discard.
type SearchConfig struct {
	// Structure maps category -> brand -> search phrases, mirroring the
	// site's editorial taxonomy. Queries are built as "brand phrase".
	Structure   map[string]map[string][]string `yaml:"structure" json:"structure"`
	Terms       []string                       `yaml:"terms" json:"terms"`
	SkipDomains []string                       `yaml:"skip_domains" json:"skip_domains"`
	Freshness   string                         `yaml:"freshness" json:"freshness"`
	PerTerm     int                            `yaml:"per_term" json:"per_term"`
}

// LLMConfig selects the rewrite provider and model.
type LLMConfig struct {
	Provider         string `yaml:"provider" json:"provider"` // local | openai | xai | anthropic
	BaseURL          string `yaml:"base_url" json:"base_url"`
	Model            string `yaml:"model" json:"model"`
	APIKey           string `yaml:"api_key" json:"api_key"`
	FallbackProvider string `yaml:"fallback_provider" json:"fallback_provider"`
	FallbackModel    string `yaml:"fallback_model" json:"fallback_model"`
	MinWords         int    `yaml:"min_words" json:"min_words"`
	FetchSource      bool   `yaml:"fetch_source" json:"fetch_source"`
}

// ImageConfig lists image generation providers in fallback order.
type ImageConfig struct {
	OpenClawURL string `yaml:"openclaw_url" json:"openclaw_url"`
	ComfyUIURL  string `yaml:"comfyui_url" json:"comfyui_url"`
}

// SocialConfig points at the social-posting webhook.
type SocialConfig struct {
	WebhookURL string `yaml:"webhook_url" json:"webhook_url"`
}

// Site is one publishing target with its own keys and search structure.
type Site struct {
	Name         string       `yaml:"name" json:"name"`
	Active       bool         `yaml:"active" json:"active"`
	WordPress    WPAuth       `yaml:"wordpress" json:"wordpress"`
	AuthProfiles []WPAuth     `yaml:"auth_profiles" json:"auth_profiles"`
	BraveKeys    []string     `yaml:"brave_keys" json:"brave_keys"`
	Search       SearchConfig `yaml:"search" json:"search"`
	LLM          LLMConfig    `yaml:"llm" json:"llm"`
	Images       ImageConfig  `yaml:"images" json:"images"`
	Social       SocialConfig `yaml:"social" json:"social"`
}

// Paths locates the flat JSON state files.
type Paths struct {
	Processed string `yaml:"processed" json:"processed"`
	Usage     string `yaml:"usage" json:"usage"`
	Taxonomy  string `yaml:"taxonomy" json:"taxonomy"`
	Status    string `yaml:"status" json:"status"`
}

// Config is the full pipeline configuration.
type Config struct {
	Sites        []Site `yaml:"sites" json:"sites"`
	HourlyCap    int    `yaml:"hourly_cap" json:"hourly_cap"`
	DailyCap     int    `yaml:"daily_cap" json:"daily_cap"`
	PublishMode  string `yaml:"publish_mode" json:"publish_mode"`
	RunEnabled   bool   `yaml:"run_enabled" json:"run_enabled"`
	DashboardURL string `yaml:"dashboard_url" json:"dashboard_url"`
	Paths        Paths  `yaml:"paths" json:"paths"`
}

// Load reads configuration from path and applies environment overrides.
// A .env file in the working directory is loaded first, best-effort.
// A missing config file is not an error; the environment alone can carry
// a minimal single-site setup.
func Load(path string) (*Config, error) {
	godotenv.Load()

	cfg := &Config{
		HourlyCap:   DefaultHourlyCap,
		DailyCap:    DefaultDailyCap,
		PublishMode: DefaultPublishMode,
		RunEnabled:  true,
		Paths: Paths{
			Processed: ".processed_urls.json",
			Usage:     ".cnd_image_usage.json",
			Taxonomy:  ".wp_cache.json",
			Status:    "pipeline_status.json",
		},
	}

	if data, err := os.ReadFile(path); err == nil {
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if len(cfg.Sites) == 0 {
		cfg.Sites = []Site{{Name: "default", Active: true}}
		cfg.applyEnvSite(&cfg.Sites[0])
	}

	return cfg, nil
}

// ActiveSite returns the first site flagged active, falling back to the
// first configured site.
func (c *Config) ActiveSite() (*Site, error) {
	if len(c.Sites) == 0 {
		return nil, fmt.Errorf("no sites configured")
	}
	for i := range c.Sites {
		if c.Sites[i].Active {
			return &c.Sites[i], nil
		}
	}
	return &c.Sites[0], nil
}

// Auth picks the WordPress credentials for a run. With auth profiles
// configured one is chosen by weight, spreading API load across accounts;
// otherwise the site's primary credentials are used.
func (s *Site) Auth() WPAuth {
	if len(s.AuthProfiles) == 0 {
		return s.WordPress
	}

	total := 0
	for _, p := range s.AuthProfiles {
		total += max(p.Weight, 1)
	}

	n := rand.Intn(total)
	for _, p := range s.AuthProfiles {
		w := max(p.Weight, 1)
		if n < w {
			return p
		}
		n -= w
	}
	return s.AuthProfiles[0]
}

// Validate checks the credentials required before the pipeline may cause
// any side effect. Failures here are fatal at startup.
func (s *Site) Validate() error {
	if len(s.AuthProfiles) > 0 {
		for i, p := range s.AuthProfiles {
			if p.APIBase == "" || p.User == "" || p.AppPassword == "" {
				return fmt.Errorf("site %q: auth profile %d is incomplete", s.Name, i)
			}
		}
	} else {
		if s.WordPress.APIBase == "" {
			return fmt.Errorf("site %q: wordpress api_base is required", s.Name)
		}
		if s.WordPress.User == "" || s.WordPress.AppPassword == "" {
			return fmt.Errorf("site %q: wordpress credentials are required", s.Name)
		}
	}
	if len(s.BraveKeys) == 0 {
		return fmt.Errorf("site %q: at least one Brave API key is required", s.Name)
	}
	return nil
}

// applyEnv applies process-wide environment overrides.
func (c *Config) applyEnv() {
	if v := os.Getenv("PUBLISH_MODE"); v != "" {
		c.PublishMode = v
	}
	if v := os.Getenv("DASHBOARD_URL"); v != "" {
		c.DashboardURL = v
	}
	if v := os.Getenv("CND_HOURLY_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.HourlyCap = n
		}
	}
	if v := os.Getenv("CND_DAILY_CAP"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			c.DailyCap = n
		}
	}
	if v := os.Getenv("CND_RUN_ENABLED"); v != "" {
		c.RunEnabled = v == "1"
	}

	for i := range c.Sites {
		c.applyEnvSite(&c.Sites[i])
	}
}

// applyEnvSite fills site-level gaps from the environment. Environment
// values only apply where the file left a field empty, so a multi-site
// config file wins over the single-site env vars.
func (c *Config) applyEnvSite(s *Site) {
	if s.WordPress.APIBase == "" {
		s.WordPress.APIBase = os.Getenv("WP_API_BASE")
	}
	if s.WordPress.User == "" {
		s.WordPress.User = os.Getenv("WP_USER")
	}
	if s.WordPress.AppPassword == "" {
		s.WordPress.AppPassword = os.Getenv("WP_APP_PASSWORD")
	}

	if len(s.BraveKeys) == 0 {
		if v := os.Getenv("BRAVE_API_KEYS_JSON"); v != "" {
			var keys []string
			if err := json.Unmarshal([]byte(v), &keys); err == nil {
				s.BraveKeys = keys
			}
		}
	}
	if len(s.BraveKeys) == 0 {
		if v := os.Getenv("BRAVE_API_KEY"); v != "" {
			s.BraveKeys = []string{v}
		}
	}

	if len(s.Search.Terms) == 0 {
		if v := os.Getenv("SEARCH_TERMS_JSON"); v != "" {
			var terms []string
			if err := json.Unmarshal([]byte(v), &terms); err == nil {
				s.Search.Terms = terms
			}
		}
	}
	if s.Search.PerTerm == 0 {
		s.Search.PerTerm = DefaultPerTerm
	}

	if s.LLM.BaseURL == "" {
		s.LLM.BaseURL = os.Getenv("LOCAL_LLM_BASE_URL")
	}
	if s.LLM.Model == "" {
		s.LLM.Model = os.Getenv("LOCAL_LLM_MODEL")
	}
	if s.LLM.Provider == "" {
		s.LLM.Provider = "local"
	}
	if s.LLM.APIKey == "" {
		switch s.LLM.Provider {
		case "xai":
			s.LLM.APIKey = os.Getenv("XAI_API_KEY")
		case "openai":
			s.LLM.APIKey = os.Getenv("OPENAI_API_KEY")
		case "anthropic":
			s.LLM.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
	}
	if s.LLM.MinWords == 0 {
		s.LLM.MinWords = DefaultMinWords
	}

	if s.Images.OpenClawURL == "" {
		s.Images.OpenClawURL = os.Getenv("OPENCLAW_URL")
	}
	if s.Images.ComfyUIURL == "" {
		s.Images.ComfyUIURL = os.Getenv("COMFYUI_URL")
	}
}
