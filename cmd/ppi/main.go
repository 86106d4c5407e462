package main

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sort"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/rchejfec/passive-policy-intelligence/internal/collect"
	"github.com/rchejfec/passive-policy-intelligence/internal/config"
	"github.com/rchejfec/passive-policy-intelligence/internal/database"
	"github.com/rchejfec/passive-policy-intelligence/internal/digest"
	"github.com/rchejfec/passive-policy-intelligence/internal/embedding"
	"github.com/rchejfec/passive-policy-intelligence/internal/kb"
	"github.com/rchejfec/passive-policy-intelligence/internal/pipeline"
	"github.com/rchejfec/passive-policy-intelligence/internal/server"
)

var version = "dev"

var (
	verbose    bool
	configPath string
	cfg        *config.Config
)

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

var rootCmd = &cobra.Command{
	Use:     "ppi",
	Short:   "Passive policy intelligence digests",
	Long:    "ppi monitors policy sources, scores articles against semantic anchors, and delivers a daily digest of what matters.",
	Version: version,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if verbose {
			log.SetFlags(log.LstdFlags | log.Lshortfile)
		} else {
			log.SetFlags(log.LstdFlags)
		}

		// API keys and the webhook URL come from the environment.
		_ = godotenv.Load()

		// Skip config loading for init and version
		if cmd.Name() == "init" || cmd.Name() == "version" {
			return nil
		}

		path, err := config.ResolveConfigPath(configPath)
		if err != nil {
			return err
		}
		cfg, err = config.Load(path)
		if err != nil {
			return fmt.Errorf("loading config: %w", err)
		}
		return nil
	},
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose output")
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "Path to config file")

	rootCmd.AddCommand(initCmd)
	rootCmd.AddCommand(versionCmd)
	rootCmd.AddCommand(statusCmd)
	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(collectCmd)
	rootCmd.AddCommand(digestCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(anchorsCmd)
	rootCmd.AddCommand(kbCmd)
	rootCmd.AddCommand(sourcesCmd)
	rootCmd.AddCommand(resetCmd)
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version",
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Println("ppi", version)
	},
}

var initCmd = &cobra.Command{
	Use:   "init",
	Short: "Initialize configuration in ~/.config/ppi/",
	RunE: func(cmd *cobra.Command, args []string) error {
		target := filepath.Join(config.ConfigDir(), "config.yaml")
		if _, err := os.Stat(target); err == nil {
			fmt.Printf("Config already exists: %s\n", target)
			return nil
		}

		if err := os.MkdirAll(config.ConfigDir(), 0o755); err != nil {
			return fmt.Errorf("creating config directory: %w", err)
		}

		if err := os.WriteFile(target, config.DefaultConfigYAML, 0o644); err != nil {
			return fmt.Errorf("writing config: %w", err)
		}

		fmt.Printf("Created config: %s\n", target)
		fmt.Println("Edit it to configure sources, thresholds, and the embedding provider.")
		return nil
	},
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show database and pipeline status",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		stats, err := db.GetStats()
		if err != nil {
			return fmt.Errorf("getting stats: %w", err)
		}

		fmt.Printf("Database: %s\n\n", db.Path())
		fmt.Println("Sources:")
		fmt.Printf("  Active: %d\n", stats.ActiveSources)
		fmt.Println("\nArticles:")
		fmt.Printf("  Total: %d\n", stats.TotalArticles)
		fmt.Printf("  Awaiting indexing: %d\n", stats.UnindexedArticles)
		fmt.Printf("  Awaiting analysis: %d\n", stats.UnanalyzedArticles)
		fmt.Printf("  Awaiting enrichment: %d\n", stats.UnenrichedArticles)
		fmt.Printf("  Org highlights: %d\n", stats.OrgHighlights)
		fmt.Println("\nAnchors:")
		fmt.Printf("  Active: %d\n", stats.ActiveAnchors)
		fmt.Printf("  Matches recorded: %d\n", stats.TotalMatches)
		fmt.Println("\nDigests:")
		fmt.Printf("  Generated: %d\n", stats.TotalDigests)

		if run, _ := db.GetLastRun(); run != nil {
			started := ""
			if run.StartedAt != nil {
				started = *run.StartedAt
			}
			fmt.Printf("\nLast run: %s (%s)\n", started, run.Status)
			fmt.Printf("  Fetched %d, indexed %d, analyzed %d, %d highlights\n",
				run.ArticlesFetched, run.ArticlesIndexed, run.ArticlesAnalyzed, run.HighlightsFound)
		}
		return nil
	},
}

// --- run command ---

var (
	dryRun   bool
	daysBack int
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the full pipeline: collect -> fetch -> index -> analyze -> enrich",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		pipe := pipeline.New(cfg, db, daysBack)

		var result *pipeline.Result
		if dryRun {
			result = pipe.DryRun()
		} else {
			result = pipe.Run(context.Background())
		}

		for i, step := range result.Steps {
			fmt.Printf("\nStep %d/%d: %s\n", i+1, len(result.Steps), step.Name)
			if step.Err != nil {
				fmt.Printf("  Error: %v\n", step.Err)
			} else {
				fmt.Printf("  %s\n", step.Summary)
			}
		}

		if !dryRun {
			if result.Failed() {
				return fmt.Errorf("pipeline finished with errors")
			}
			fmt.Println("\nPipeline complete! Run 'ppi digest' to deliver the digest.")
		}
		return nil
	},
}

func init() {
	runCmd.Flags().BoolVar(&dryRun, "dry-run", false, "Show what would be done without executing")
	runCmd.Flags().IntVar(&daysBack, "days-back", 2, "Feed lookback window (days)")
}

// --- collect command ---

var collectCmd = &cobra.Command{
	Use:   "collect",
	Short: "Collect articles from active sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		fmt.Println("Collecting articles from sources...")

		collector := collect.NewCollector(db, daysBack)
		result, err := collector.Collect()
		if err != nil {
			return err
		}

		fmt.Println("\nCollection complete:")
		fmt.Printf("  Total found: %d\n", result.TotalFound)
		fmt.Printf("  New articles: %d\n", result.NewArticles)
		fmt.Printf("  Duplicates skipped: %d\n", result.Duplicates)

		if len(result.Sources) > 0 {
			fmt.Println("\nArticles by source:")
			// Sort sources by count descending
			type kv struct {
				key string
				val int
			}
			var sorted []kv
			for k, v := range result.Sources {
				sorted = append(sorted, kv{k, v})
			}
			sort.Slice(sorted, func(i, j int) bool { return sorted[i].val > sorted[j].val })
			for _, s := range sorted {
				fmt.Printf("  %s: %d\n", s.key, s.val)
			}
		}
		return nil
	},
}

func init() {
	collectCmd.Flags().IntVar(&daysBack, "days-back", 2, "Feed lookback window (days)")
}

// --- digest command ---

var (
	digestPreview bool
	digestForce   bool
)

var digestCmd = &cobra.Command{
	Use:   "digest",
	Short: "Select, render, and deliver the digest",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		engine := digest.NewEngine(db, cfg.Digest)

		if digestPreview {
			body, result, err := engine.Preview()
			if err != nil {
				return err
			}
			if result.Skipped != "" {
				fmt.Printf("Nothing to preview: %s\n", result.Skipped)
				return nil
			}
			fmt.Println(body)
			fmt.Printf("\n(%d items from %d candidates; nothing was sent)\n", result.Items, result.Candidates)
			return nil
		}

		result, err := engine.Deliver(digestForce)
		if err != nil {
			return err
		}
		if result.Skipped != "" {
			fmt.Printf("Digest skipped: %s\n", result.Skipped)
			return nil
		}
		fmt.Printf("Digest #%d sent: %d items from %d candidates\n", result.DigestID, result.Items, result.Candidates)
		return nil
	},
}

func init() {
	digestCmd.Flags().BoolVar(&digestPreview, "preview", false, "Print the digest without sending or marking articles")
	digestCmd.Flags().BoolVar(&digestForce, "force", false, "Send even outside the morning window")
}

// --- serve command ---

var servePort int

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the local web server",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		port := servePort
		if port == 0 {
			port = cfg.Server.Port
		}
		fmt.Printf("Starting server at http://localhost:%d\n", port)
		fmt.Println("Press Ctrl+C to stop")
		return server.Serve(db, port)
	},
}

func init() {
	serveCmd.Flags().IntVarP(&servePort, "port", "p", 0, "Port to run server on (default from config)")
}

// --- anchors command ---

var anchorsCmd = &cobra.Command{
	Use:   "anchors",
	Short: "Manage semantic anchors",
}

var anchorsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all anchors",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		anchors, err := db.GetAllAnchors()
		if err != nil {
			return err
		}
		if len(anchors) == 0 {
			fmt.Println("No anchors defined. Add one with: ppi anchors add")
			return nil
		}

		fmt.Println("Semantic Anchors:")
		fmt.Println()
		for _, a := range anchors {
			icon := " "
			if a.IsActive {
				icon = "*"
			}
			fmt.Printf("  [%d] %s %s\n", a.ID, icon, a.Name)
			if a.Description != nil && *a.Description != "" {
				desc := *a.Description
				if len(desc) > 60 {
					desc = desc[:60] + "..."
				}
				fmt.Printf("        %s\n", desc)
			}
			components, _ := db.GetAnchorComponents(a.ID)
			for _, c := range components {
				fmt.Printf("        - %s: %s\n", c.Type, c.ComponentID)
			}
		}
		return nil
	},
}

var anchorTags []string

var anchorsAddCmd = &cobra.Command{
	Use:   "add [name] [description]",
	Short: "Add a new anchor built from tag components",
	Args:  cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		name := args[0]
		description := ""
		if len(args) > 1 {
			description = args[1]
		}

		var components []database.AnchorComponent
		for _, tag := range anchorTags {
			components = append(components, database.AnchorComponent{Type: "tag", ComponentID: tag})
		}

		id, err := db.InsertAnchor(name, description, "cli", components)
		if err != nil {
			return err
		}
		if id == 0 {
			return fmt.Errorf("anchor %q already exists", name)
		}
		fmt.Printf("Added anchor [%d]: %s\n", id, name)
		return nil
	},
}

var anchorsDeactivateCmd = &cobra.Command{
	Use:   "deactivate [id]",
	Short: "Deactivate an anchor (history is kept)",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setAnchorActive(args[0], false) },
}

var anchorsReactivateCmd = &cobra.Command{
	Use:   "reactivate [id]",
	Short: "Reactivate a deactivated anchor",
	Args:  cobra.ExactArgs(1),
	RunE:  func(cmd *cobra.Command, args []string) error { return setAnchorActive(args[0], true) },
}

func setAnchorActive(idArg string, active bool) error {
	db, err := openDB()
	if err != nil {
		return err
	}
	defer db.Close()

	id, err := strconv.ParseInt(idArg, 10, 64)
	if err != nil {
		return fmt.Errorf("invalid anchor ID: %s", idArg)
	}
	if err := db.SetAnchorActive(id, active); err != nil {
		return err
	}
	state := "deactivated"
	if active {
		state = "reactivated"
	}
	fmt.Printf("Anchor [%d] %s\n", id, state)
	return nil
}

func init() {
	anchorsAddCmd.Flags().StringSliceVar(&anchorTags, "tag", nil, "Tag component (repeatable)")
	anchorsCmd.AddCommand(anchorsListCmd)
	anchorsCmd.AddCommand(anchorsAddCmd)
	anchorsCmd.AddCommand(anchorsDeactivateCmd)
	anchorsCmd.AddCommand(anchorsReactivateCmd)
}

// --- kb command ---

var (
	kbType    string
	kbProgram string
	kbTitle   string
)

var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "Manage the knowledge base anchors score against",
}

var kbTagsCmd = &cobra.Command{
	Use:   "tags [name]...",
	Short: "Embed tag names so anchors can reference them",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ing, err := newIngestor(db)
		if err != nil {
			return err
		}
		n, err := ing.EmbedTags(context.Background(), args)
		if err != nil {
			return err
		}
		fmt.Printf("Embedded %d tags\n", n)
		return nil
	},
}

var kbAddCmd = &cobra.Command{
	Use:   "add [url-or-path]",
	Short: "Index a reference document into the knowledge base",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		ing, err := newIngestor(db)
		if err != nil {
			return err
		}

		var program, title *string
		if kbProgram != "" {
			program = &kbProgram
		}
		if kbTitle != "" {
			title = &kbTitle
		}
		if err := ing.AddDocument(context.Background(), args[0], kbType, program, title); err != nil {
			return err
		}
		fmt.Printf("Indexed %s\n", args[0])
		return nil
	},
}

func newIngestor(db *database.DB) (*kb.Ingestor, error) {
	emb := cfg.Embedding
	embedder := embedding.CreateEmbedder(emb.Provider, emb.OllamaModel, emb.OllamaURL, emb.OpenAIModel, emb.APIKeyEnv)
	if embedder == nil {
		return nil, fmt.Errorf("no embedding provider available")
	}
	return kb.NewIngestor(db, embedder, cfg.Index.ChunkSize, cfg.Index.ChunkOverlap), nil
}

func init() {
	kbAddCmd.Flags().StringVar(&kbType, "type", "article", "Document type (article, report, program_charter)")
	kbAddCmd.Flags().StringVar(&kbProgram, "program", "", "Program tag the document belongs to")
	kbAddCmd.Flags().StringVar(&kbTitle, "title", "", "Document title")
	kbCmd.AddCommand(kbTagsCmd)
	kbCmd.AddCommand(kbAddCmd)
}

// --- sources command ---

var sourcesCmd = &cobra.Command{
	Use:   "sources",
	Short: "Manage monitored sources",
}

var sourcesListCmd = &cobra.Command{
	Use:   "list",
	Short: "List all sources",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		sources, err := db.GetAllSources()
		if err != nil {
			return err
		}
		if len(sources) == 0 {
			fmt.Println("No sources defined. Add one with: ppi sources add")
			return nil
		}

		fmt.Println("Sources:")
		fmt.Println()
		for _, s := range sources {
			icon := " "
			if s.IsActive {
				icon = "*"
			}
			feed := ""
			if s.FeedURL != nil {
				feed = *s.FeedURL
			}
			fmt.Printf("  [%d] %s %s (%s)\n", s.ID, icon, s.Name, s.Category)
			if feed != "" {
				fmt.Printf("        %s\n", feed)
			}
		}
		return nil
	},
}

var sourcesAddCmd = &cobra.Command{
	Use:   "add [name] [category] [feed-url]",
	Short: "Add a new source",
	Args:  cobra.RangeArgs(2, 3),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		var feedURL *string
		if len(args) > 2 {
			feedURL = &args[2]
		}

		id, err := db.InsertSource(args[0], args[1], feedURL)
		if err != nil {
			return err
		}
		if id == 0 {
			return fmt.Errorf("source %q already exists", args[0])
		}
		fmt.Printf("Added source [%d]: %s\n", id, args[0])
		return nil
	},
}

var sourcesToggleCmd = &cobra.Command{
	Use:   "toggle [id]",
	Short: "Toggle a source's active state",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		id, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid source ID: %s", args[0])
		}
		if err := db.ToggleSource(id); err != nil {
			return err
		}
		source, err := db.GetSource(id)
		if err != nil {
			return err
		}
		if source == nil {
			return fmt.Errorf("source [%d] not found", id)
		}
		state := "inactive"
		if source.IsActive {
			state = "active"
		}
		fmt.Printf("Source [%d] %s is now %s\n", id, source.Name, state)
		return nil
	},
}

func init() {
	sourcesCmd.AddCommand(sourcesListCmd)
	sourcesCmd.AddCommand(sourcesAddCmd)
	sourcesCmd.AddCommand(sourcesToggleCmd)
}

// --- reset command ---

var (
	resetLimit  int
	resetOffset int
)

var resetCmd = &cobra.Command{
	Use:   "reset",
	Short: "Deliberately rewind pipeline state",
}

var resetAnalysisCmd = &cobra.Command{
	Use:   "analysis",
	Short: "Delete all matches and rescore every article",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ResetAnalysis()
		if err != nil {
			return err
		}
		fmt.Printf("Reset analysis for %d articles\n", n)
		return nil
	},
}

var resetEnrichmentCmd = &cobra.Command{
	Use:   "enrichment",
	Short: "Clear highlight flags so articles are reclassified",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ResetEnrichment(resetLimit, resetOffset)
		if err != nil {
			return err
		}
		fmt.Printf("Reset enrichment for %d articles\n", n)
		return nil
	},
}

var resetSentCmd = &cobra.Command{
	Use:   "sent",
	Short: "Clear sent flags so articles become digest candidates again",
	RunE: func(cmd *cobra.Command, args []string) error {
		db, err := openDB()
		if err != nil {
			return err
		}
		defer db.Close()

		n, err := db.ResetSent()
		if err != nil {
			return err
		}
		fmt.Printf("Reset sent flag for %d articles\n", n)
		return nil
	},
}

func init() {
	resetEnrichmentCmd.Flags().IntVar(&resetLimit, "limit", 0, "Reset at most N articles (0 = all)")
	resetEnrichmentCmd.Flags().IntVar(&resetOffset, "offset", 0, "Skip the first N enriched articles")
	resetCmd.AddCommand(resetAnalysisCmd)
	resetCmd.AddCommand(resetEnrichmentCmd)
	resetCmd.AddCommand(resetSentCmd)
}

func openDB() (*database.DB, error) {
	dataDir := cfg.GetDataDir()
	if err := os.MkdirAll(dataDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return database.Open(cfg.DatabasePath())
}
