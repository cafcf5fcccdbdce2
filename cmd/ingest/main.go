package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"time"

	"github.com/fatih/color"
	"github.com/policyscan/policyscan/internal/models"
	cfgPkg "github.com/policyscan/policyscan/pkg/config"
	"github.com/policyscan/policyscan/pkg/ingest"
	"github.com/policyscan/policyscan/pkg/llm"
	"github.com/policyscan/policyscan/pkg/policies"
	"github.com/policyscan/policyscan/pkg/scraper"
	"github.com/policyscan/policyscan/pkg/store"
	"github.com/schollz/progressbar/v3"
)

type Config struct {
	URLs        string
	DBUrl       string
	TableName   string
	VectorDim   int
	APIKey      string
	BaseURL     string
	Model       string
	EmbedModel  string
	MaxTokens   int
	Temperature float64
	Method      string
	Embeddings  bool
	BatchDelay  time.Duration
}

func main() {
	config := parseFlags()

	if err := run(config); err != nil {
		log.Fatal(err)
	}
}

func parseFlags() Config {
	var config Config
	var configPath string

	flag.StringVar(&configPath, "config", "", "Path to config file")
	flag.StringVar(&config.URLs, "urls", "", "Comma-separated policy URLs (default: built-in sample list)")
	flag.StringVar(&config.DBUrl, "db-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
	flag.StringVar(&config.TableName, "table", "", "PostgreSQL table name")
	flag.IntVar(&config.VectorDim, "vector-dim", 0, "Embedding vector dimension")
	flag.StringVar(&config.APIKey, "api-key", os.Getenv("OPENAI_API_KEY"), "OpenAI API key")
	flag.StringVar(&config.BaseURL, "llm-url", "", "OpenAI-compatible base URL")
	flag.StringVar(&config.Model, "model", "", "Chat model for classification")
	flag.StringVar(&config.EmbedModel, "embed-model", "", "Embedding model")
	flag.IntVar(&config.MaxTokens, "max-tokens", 0, "Maximum tokens for the classification response")
	flag.Float64Var(&config.Temperature, "temperature", 0, "Classification temperature")
	flag.StringVar(&config.Method, "method", "", "Capture method: http, browser, or empty for auto")
	flag.BoolVar(&config.Embeddings, "embeddings", true, "Compute embeddings for related-policy lookups")
	flag.DurationVar(&config.BatchDelay, "batch-delay", 2*time.Second, "Pause between URLs")
	flag.Parse()

	if cfg, err := cfgPkg.LoadConfig(configPath); err == nil {
		if config.DBUrl == "" {
			config.DBUrl = cfg.Database.URL
		}
		if config.TableName == "" {
			config.TableName = cfg.Database.TableName
		}
		if config.VectorDim == 0 {
			config.VectorDim = cfg.Database.VectorDim
		}
		if config.APIKey == "" {
			config.APIKey = cfg.LLM.APIKey
		}
		if config.BaseURL == "" {
			config.BaseURL = cfg.LLM.BaseURL
		}
		if config.Model == "" {
			config.Model = cfg.LLM.Model
		}
		if config.EmbedModel == "" {
			config.EmbedModel = cfg.LLM.EmbeddingModel
		}
		if config.MaxTokens == 0 {
			config.MaxTokens = cfg.LLM.MaxTokens
		}
		if config.Temperature == 0 {
			config.Temperature = cfg.LLM.Temperature
		}
	}

	return config
}

func getProgressBar(total int, description string) *progressbar.ProgressBar {
	return progressbar.NewOptions(total,
		progressbar.OptionSetDescription(color.BlueString(description)),
		progressbar.OptionSetItsString("policies"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetTheme(progressbar.Theme{
			Saucer:        "█",
			SaucerHead:    "█",
			SaucerPadding: "░",
			BarStart:      "[",
			BarEnd:        "]",
		}),
		progressbar.OptionEnableColorCodes(true),
		progressbar.OptionSetWidth(40),
		progressbar.OptionShowElapsedTimeOnFinish(),
		progressbar.OptionSetRenderBlankState(true),
	)
}

func run(config Config) error {
	if config.DBUrl == "" {
		return fmt.Errorf("database URL is required (set -db-url or DATABASE_URL)")
	}

	urls := scraper.DefaultURLs
	if config.URLs != "" {
		urls = nil
		for _, u := range strings.Split(config.URLs, ",") {
			if u = strings.TrimSpace(u); u != "" {
				urls = append(urls, u)
			}
		}
	}

	sc := scraper.New()
	defer sc.Close()

	classifier, err := llm.NewClassifierWithConfig(llm.ClassifierConfig{
		Model:       config.Model,
		Temperature: config.Temperature,
		MaxTokens:   config.MaxTokens,
		APIKey:      config.APIKey,
		BaseURL:     config.BaseURL,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize classifier: %v", err)
	}

	policyStore, err := store.NewWithConfig(store.PolicyStoreConfig{
		ConnString: config.DBUrl,
		TableName:  config.TableName,
		VectorDim:  config.VectorDim,
	})
	if err != nil {
		return fmt.Errorf("failed to initialize policy store: %v", err)
	}
	defer policyStore.Close()

	service := policies.NewService(policyStore)

	var opts []ingest.Option
	switch config.Method {
	case "":
	case "http", "browser":
		opts = append(opts, ingest.WithMethod(models.CaptureMethod(config.Method)))
	default:
		return fmt.Errorf("unknown capture method %q (want http or browser)", config.Method)
	}
	if config.Embeddings {
		embedder, err := llm.NewEmbedderWithConfig(llm.EmbedderConfig{
			Model:   config.EmbedModel,
			APIKey:  config.APIKey,
			BaseURL: config.BaseURL,
		})
		if err != nil {
			return fmt.Errorf("failed to initialize embedder: %v", err)
		}
		opts = append(opts, ingest.WithEmbedder(embedder))
	}

	ingestor := ingest.New(sc, classifier, service, opts...)

	color.Blue("\nIngesting %d privacy policies\n", len(urls))
	bar := getProgressBar(len(urls), "Scraping and classifying...")

	// Drive URLs one at a time so the bar tracks real progress. The pause
	// between requests keeps us polite to the scraped sites.
	ctx := context.Background()
	outcomes := make([]ingest.Outcome, 0, len(urls))
	for idx, u := range urls {
		policy, err := ingestor.IngestURL(ctx, u)
		outcomes = append(outcomes, ingest.Outcome{URL: u, Policy: policy, Err: err})
		bar.Add(1)

		if idx < len(urls)-1 {
			time.Sleep(config.BatchDelay)
		}
	}
	bar.Finish()
	fmt.Println()

	succeeded := 0
	for _, outcome := range outcomes {
		if outcome.Err != nil {
			color.Red("✗ %s: %v", outcome.URL, outcome.Err)
			continue
		}
		succeeded++
		color.Green("✓ %s", outcome.URL)
		fmt.Printf("  %s [%s]\n", outcome.Policy.Title, outcome.Policy.Category)
	}

	color.Blue("\nDone: %d/%d policies stored\n", succeeded, len(urls))
	return nil
}
