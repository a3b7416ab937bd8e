package main

import (
	"fmt"
	"log"
	"net/http"
	"os"

	"github.com/robfig/cron/v3"
	"github.com/spf13/cobra"

	"github.com/matthewxmurphy/creatornewsdesk/internal/config"
	"github.com/matthewxmurphy/creatornewsdesk/internal/dashboard"
	"github.com/matthewxmurphy/creatornewsdesk/internal/imageworker"
	"github.com/matthewxmurphy/creatornewsdesk/internal/pipeline"
	"github.com/matthewxmurphy/creatornewsdesk/internal/publish"
	"github.com/matthewxmurphy/creatornewsdesk/internal/ratelimit"
	"github.com/matthewxmurphy/creatornewsdesk/internal/search"
	"github.com/matthewxmurphy/creatornewsdesk/internal/taxonomy"
	"github.com/matthewxmurphy/creatornewsdesk/internal/wordpress"
)

var (
	configFile  string
	debugMode   bool
	runLimit    int
	fetchLimit  int
	imagesLimit int
	fetchOnly   bool
	dryRun      bool
	provider    string
	publishMode string
	serveAddr   string
	cronSpec    string
)

var rootCmd = &cobra.Command{
	Use:   "newsdesk",
	Short: "Automated news pipeline for creator-focused publishing",
	Long: `newsdesk fetches tech news, rewrites it with an LLM, and publishes
the results to WordPress with featured images and social announcements.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		setDebugMode(debugMode)
	},
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline once",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		o, err := pipeline.FromConfig(cfg)
		if err != nil {
			log.Fatalf("Pipeline setup failed: %v", err)
		}

		if _, err := o.Run(pipeline.Options{Limit: runLimit, FetchOnly: fetchOnly, DryRun: dryRun}); err != nil {
			log.Fatalf("Pipeline run failed: %v", err)
		}
	},
}

var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "Search for articles without generating anything",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		o, err := pipeline.FromConfig(cfg)
		if err != nil {
			log.Fatalf("Pipeline setup failed: %v", err)
		}

		if _, err := o.Run(pipeline.Options{Limit: fetchLimit, FetchOnly: true}); err != nil {
			log.Fatalf("Fetch failed: %v", err)
		}
	},
}

var taxonomyCmd = &cobra.Command{
	Use:   "taxonomy",
	Short: "Create missing WordPress categories from the search structure",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		site, err := cfg.ActiveSite()
		if err != nil {
			log.Fatalf("Configuration error: %v", err)
		}
		if err := site.Validate(); err != nil {
			log.Fatalf("Configuration error: %v", err)
		}

		auth := site.Auth()
		wp := wordpress.NewClient(auth.APIBase, auth.User, auth.AppPassword)
		cache := taxonomy.LoadCache(cfg.Paths.Taxonomy)
		resolver := taxonomy.NewResolver(wp, cache)

		stats, err := resolver.Sync(site)
		if err != nil {
			log.Fatalf("Taxonomy sync failed: %v", err)
		}
		if err := cache.Persist(); err != nil {
			log.Printf("✗ Persisting taxonomy cache: %v", err)
		}

		log.Printf("✓ Taxonomy sync: %d existing, %d created", stats.ExistingCategories, stats.CategoriesCreated)
	},
}

var imagesCmd = &cobra.Command{
	Use:   "images",
	Short: "Generate featured images for posts that have none",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		w, err := buildImageWorker(cfg)
		if err != nil {
			log.Fatalf("Image worker setup failed: %v", err)
		}

		if _, err := w.Run(imagesLimit); err != nil {
			log.Fatalf("Image worker failed: %v", err)
		}
	},
}

var termsCmd = &cobra.Command{
	Use:   "terms",
	Short: "Print the search term list for the active site",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()
		site, err := cfg.ActiveSite()
		if err != nil {
			log.Fatalf("Configuration error: %v", err)
		}

		for _, term := range search.Terms(site) {
			fmt.Println(term)
		}
	},
}

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the dashboard server with scheduled workers",
	Run: func(cmd *cobra.Command, args []string) {
		cfg := loadConfig()

		runPipeline := func() {
			o, err := pipeline.FromConfig(cfg)
			if err != nil {
				log.Printf("✗ Pipeline setup failed: %v", err)
				return
			}
			if _, err := o.Run(pipeline.Options{}); err != nil {
				log.Printf("✗ Pipeline run failed: %v", err)
			}
		}

		srv := dashboard.New(cfg.Paths.Status, configFile, runPipeline)

		scheduler := cron.New()
		// Featured-image backfill runs at the top of every hour.
		scheduler.AddFunc("0 * * * *", func() {
			w, err := buildImageWorker(cfg)
			if err != nil {
				log.Printf("✗ Image worker setup failed: %v", err)
				return
			}
			if _, err := w.Run(5); err != nil {
				log.Printf("✗ Image worker failed: %v", err)
			}
		})
		if cronSpec != "" {
			scheduler.AddFunc(cronSpec, runPipeline)
		}
		scheduler.Start()
		defer scheduler.Stop()

		log.Printf("→ Dashboard listening on %s", serveAddr)
		if err := http.ListenAndServe(serveAddr, srv.Routes()); err != nil {
			log.Fatalf("Server failed: %v", err)
		}
	},
}

// loadConfig loads configuration and applies the command-line overrides
// shared by the subcommands.
func loadConfig() *config.Config {
	cfg, err := config.Load(configFile)
	if err != nil {
		log.Fatalf("Loading config: %v", err)
	}

	if publishMode != "" {
		cfg.PublishMode = publishMode
	}
	if provider != "" {
		for i := range cfg.Sites {
			cfg.Sites[i].LLM.Provider = provider
		}
	}
	return cfg
}

// buildImageWorker wires the image worker for the active site.
func buildImageWorker(cfg *config.Config) (*imageworker.Worker, error) {
	site, err := cfg.ActiveSite()
	if err != nil {
		return nil, err
	}
	if err := site.Validate(); err != nil {
		return nil, err
	}

	auth := site.Auth()
	wp := wordpress.NewClient(auth.APIBase, auth.User, auth.AppPassword)
	limiter := ratelimit.Load(cfg.Paths.Usage, cfg.HourlyCap, cfg.DailyCap)

	return imageworker.New(
		wp,
		imageworker.Providers(site.Images),
		publish.NewHTTPImageSource(),
		limiter,
		cfg.RunEnabled,
	), nil
}

// setDebugMode switches log output between the terse default and a
// timestamped file:line format for debugging.
func setDebugMode(enabled bool) {
	if enabled {
		log.SetFlags(log.LstdFlags | log.Lmicroseconds | log.Lshortfile)
	} else {
		log.SetFlags(log.LstdFlags)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "config.yaml", "Path to the settings file")
	rootCmd.PersistentFlags().BoolVar(&debugMode, "debug", false, "Enable debug logging")

	runCmd.Flags().IntVar(&runLimit, "limit", 0, "Maximum articles to process (0 = unlimited)")
	runCmd.Flags().BoolVar(&fetchOnly, "fetch-only", false, "Search only, generate nothing")
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Go through the gates but touch nothing")
	runCmd.Flags().StringVar(&provider, "provider", "", "Override the LLM provider (local | openai | xai | anthropic)")
	runCmd.Flags().StringVar(&publishMode, "publish-mode", "", "Override the publish mode (draft | publish)")

	fetchCmd.Flags().IntVar(&fetchLimit, "limit", 0, "Maximum articles to list (0 = unlimited)")

	imagesCmd.Flags().IntVar(&imagesLimit, "limit", 5, "Maximum posts to process")

	serveCmd.Flags().StringVar(&serveAddr, "addr", ":8888", "Listen address")
	serveCmd.Flags().StringVar(&cronSpec, "pipeline-cron", "", "Cron spec for scheduled pipeline runs (empty = manual only)")

	rootCmd.AddCommand(runCmd, fetchCmd, taxonomyCmd, imagesCmd, termsCmd, serveCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Println(err)
		os.Exit(1)
	}
}
