package scraper

import (
	"context"
	"fmt"
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/policyscan/policyscan/internal/models"
	"github.com/policyscan/policyscan/internal/urlcheck"
	"github.com/policyscan/policyscan/pkg/processor"
	"golang.org/x/time/rate"
)

type ScraperConfig struct {
	HTTPTimeout time.Duration // fast-path request timeout
	NavTimeout  time.Duration // slow-path navigation timeout
	SettleDelay time.Duration // wait after navigation before capturing HTML
	BatchDelay  time.Duration // pause between URLs in batch scraping
	UserAgent   string
}

// Scraper fetches privacy-policy pages. The fast path is a plain HTTP GET;
// the slow path renders the page in a shared headless browser that is
// started on first use and torn down by Close.
type Scraper struct {
	config    ScraperConfig
	client    *http.Client
	limiter   *rate.Limiter
	processor processor.Processor

	mu      sync.Mutex
	browser *browser
}

// DefaultURLs is the built-in sample list for batch scraping.
var DefaultURLs = []string{
	"https://policies.google.com/privacy",
	"https://www.facebook.com/privacy/policy",
	"https://www.microsoft.com/privacy/privacystatement",
	"https://www.apple.com/privacy/privacy-policy",
	"https://www.amazon.com/gp/help/customer/display.html?nodeId=468496",
}

const defaultUserAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/91.0.4472.124 Safari/537.36"

func NewWithConfig(config ScraperConfig) *Scraper {
	if config.HTTPTimeout == 0 {
		config.HTTPTimeout = 15 * time.Second
	}
	if config.NavTimeout == 0 {
		config.NavTimeout = 30 * time.Second
	}
	if config.SettleDelay == 0 {
		config.SettleDelay = 3 * time.Second
	}
	if config.BatchDelay == 0 {
		config.BatchDelay = 2 * time.Second
	}
	if config.UserAgent == "" {
		config.UserAgent = defaultUserAgent
	}

	return &Scraper{
		config: config,
		client: &http.Client{
			Timeout: config.HTTPTimeout,
		},
		// One request per BatchDelay keeps batch scraping polite.
		limiter:   rate.NewLimiter(rate.Every(config.BatchDelay), 1),
		processor: processor.New(),
	}
}

func New() *Scraper {
	return NewWithConfig(ScraperConfig{})
}

// ScrapeURL fetches and extracts one policy page. When preferred is empty
// the fast path is tried first and the slow path is the fallback; a
// non-empty preferred method is used exclusively. Failures are captured in
// the result, never raised.
func (s *Scraper) ScrapeURL(ctx context.Context, rawURL string, preferred models.CaptureMethod) models.ScrapeResult {
	if !urlcheck.IsValid(rawURL) {
		return models.ScrapeResult{Success: false, Error: fmt.Sprintf("invalid URL provided: %q", rawURL)}
	}

	switch preferred {
	case models.MethodHTTP:
		return s.scrapeStatic(ctx, rawURL)
	case models.MethodBrowser:
		return s.scrapeRendered(ctx, rawURL)
	}

	// Most policy pages are served statically, so the cheap fetch goes
	// first and the browser is reserved for failures.
	result := s.scrapeStatic(ctx, rawURL)
	if result.Success {
		return result
	}
	return s.scrapeRendered(ctx, rawURL)
}

// ScrapeAll scrapes each URL sequentially with a fixed inter-request delay.
// A nil or empty slice scrapes the built-in sample list. One result is
// collected per URL regardless of individual failures.
func (s *Scraper) ScrapeAll(ctx context.Context, urls []string) []models.ScrapeResult {
	if len(urls) == 0 {
		urls = DefaultURLs
	}

	results := make([]models.ScrapeResult, 0, len(urls))
	for _, u := range urls {
		if !urlcheck.IsValid(u) {
			results = append(results, models.ScrapeResult{Success: false, Error: fmt.Sprintf("invalid URL provided: %q", u)})
			continue
		}

		if err := s.limiter.Wait(ctx); err != nil {
			results = append(results, models.ScrapeResult{Success: false, Error: err.Error()})
			continue
		}

		log.Printf("scraping %s", u)
		results = append(results, s.ScrapeURL(ctx, u, ""))
	}

	return results
}

func (s *Scraper) scrapeStatic(ctx context.Context, rawURL string) models.ScrapeResult {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, rawURL, nil)
	if err != nil {
		return models.ScrapeResult{Success: false, Error: fmt.Sprintf("http fetch failed: %v", err)}
	}

	req.Header.Set("User-Agent", s.config.UserAgent)
	req.Header.Set("Accept", "text/html,application/xhtml+xml,application/xml;q=0.9,image/webp,*/*;q=0.8")
	req.Header.Set("Accept-Language", "pt-BR,pt;q=0.9,en;q=0.8")
	req.Header.Set("Upgrade-Insecure-Requests", "1")

	resp, err := s.client.Do(req)
	if err != nil {
		return models.ScrapeResult{Success: false, Error: fmt.Sprintf("http fetch failed: %v", err)}
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return models.ScrapeResult{Success: false, Error: fmt.Sprintf("http fetch failed: status code %d", resp.StatusCode)}
	}

	doc, err := goquery.NewDocumentFromReader(resp.Body)
	if err != nil {
		return models.ScrapeResult{Success: false, Error: fmt.Sprintf("http fetch failed: %v", err)}
	}

	policy := s.extractPolicy(doc, rawURL, models.MethodHTTP)
	return models.ScrapeResult{Success: true, Policy: policy}
}

// Close tears down the shared browser instance. Safe to call more than once
// and before the browser was ever started.
func (s *Scraper) Close() {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser != nil {
		s.browser.close()
		s.browser = nil
	}
}
