package scraper

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"
	"github.com/chromedp/cdproto/cdp"
	"github.com/chromedp/cdproto/fetch"
	"github.com/chromedp/cdproto/network"
	"github.com/chromedp/chromedp"
	"github.com/policyscan/policyscan/internal/models"
)

// browser wraps a headless Chrome instance shared across slow-path scrapes.
// Each capture runs in its own tab; the instance itself lives until close.
type browser struct {
	allocCtx    context.Context
	allocCancel context.CancelFunc
	ctx         context.Context
	cancel      context.CancelFunc
}

func newBrowser(userAgent string) (*browser, error) {
	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.UserAgent(userAgent),
		chromedp.NoSandbox,
		chromedp.DisableGPU,
		chromedp.WindowSize(1366, 768),
	)

	allocCtx, allocCancel := chromedp.NewExecAllocator(context.Background(), opts...)
	ctx, cancel := chromedp.NewContext(allocCtx)

	// Run with no tasks starts the browser process eagerly so a broken
	// Chrome install fails here instead of mid-scrape.
	if err := chromedp.Run(ctx); err != nil {
		cancel()
		allocCancel()
		return nil, err
	}

	return &browser{
		allocCtx:    allocCtx,
		allocCancel: allocCancel,
		ctx:         ctx,
		cancel:      cancel,
	}, nil
}

func (b *browser) close() {
	b.cancel()
	b.allocCancel()
}

func (s *Scraper) getBrowser() (*browser, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.browser == nil {
		b, err := newBrowser(s.config.UserAgent)
		if err != nil {
			return nil, err
		}
		s.browser = b
	}
	return s.browser, nil
}

func (s *Scraper) scrapeRendered(ctx context.Context, rawURL string) models.ScrapeResult {
	if err := ctx.Err(); err != nil {
		return models.ScrapeResult{Success: false, Error: fmt.Sprintf("browser fetch failed: %v", err)}
	}

	b, err := s.getBrowser()
	if err != nil {
		return models.ScrapeResult{Success: false, Error: fmt.Sprintf("browser fetch failed: %v", err)}
	}

	html, err := b.capture(ctx, rawURL, s.config)
	if err != nil {
		return models.ScrapeResult{Success: false, Error: fmt.Sprintf("browser fetch failed: %v", err)}
	}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return models.ScrapeResult{Success: false, Error: fmt.Sprintf("browser fetch failed: %v", err)}
	}

	policy := s.extractPolicy(doc, rawURL, models.MethodBrowser)
	return models.ScrapeResult{Success: true, Policy: policy}
}

// capture renders rawURL in a fresh tab and returns the resulting HTML.
// Image/stylesheet/font/media requests are blocked; policy text never
// depends on them and skipping them cuts navigation time.
func (b *browser) capture(ctx context.Context, rawURL string, config ScraperConfig) (string, error) {
	tabCtx, cancel := chromedp.NewContext(b.ctx)
	defer cancel()

	// The tab context descends from the shared browser, not the caller,
	// so caller cancellation has to be relayed onto the tab by hand.
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	blockSubresources(tabCtx)

	navCtx, navCancel := context.WithTimeout(tabCtx, config.NavTimeout)
	defer navCancel()

	err := chromedp.Run(navCtx,
		fetch.Enable(),
		chromedp.Navigate(rawURL),
		chromedp.WaitReady("body", chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}

	dismissCookieConsent(tabCtx)

	var html string
	captureCtx, captureCancel := context.WithTimeout(tabCtx, config.SettleDelay+10*time.Second)
	defer captureCancel()

	err = chromedp.Run(captureCtx,
		chromedp.Sleep(config.SettleDelay),
		chromedp.OuterHTML("html", &html, chromedp.ByQuery),
	)
	if err != nil {
		return "", err
	}

	return html, nil
}

// blockSubresources fails image/stylesheet/font/media requests and lets
// everything else through.
func blockSubresources(ctx context.Context) {
	chromedp.ListenTarget(ctx, func(ev interface{}) {
		e, ok := ev.(*fetch.EventRequestPaused)
		if !ok {
			return
		}

		go func() {
			c := chromedp.FromContext(ctx)
			exec := cdp.WithExecutor(ctx, c.Target)

			switch e.ResourceType {
			case network.ResourceTypeImage,
				network.ResourceTypeStylesheet,
				network.ResourceTypeFont,
				network.ResourceTypeMedia:
				_ = fetch.FailRequest(e.RequestID, network.ErrorReasonBlockedByClient).Do(exec)
			default:
				_ = fetch.ContinueRequest(e.RequestID).Do(exec)
			}
		}()
	})
}

var consentSelectors = []string{
	`button[id*="accept"]`,
	`button[class*="accept"]`,
	`[data-testid*="accept"]`,
}

// consentClickScript clicks the first button whose label looks like a
// cookie-consent acceptance.
const consentClickScript = `(() => {
	const labels = ["aceitar", "accept", "concordo", "ok"];
	for (const el of document.querySelectorAll("button, [role=button]")) {
		const text = (el.textContent || "").trim().toLowerCase();
		if (labels.some(l => text === l || text.startsWith(l + " "))) {
			el.click();
			return true;
		}
	}
	return false;
})()`

// dismissCookieConsent probes a fixed list of likely selectors and button
// labels. Best-effort: every failure is swallowed.
func dismissCookieConsent(ctx context.Context) {
	for _, selector := range consentSelectors {
		clickCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
		err := chromedp.Run(clickCtx, chromedp.Click(selector, chromedp.ByQuery, chromedp.NodeVisible))
		cancel()

		if err == nil {
			settle(ctx)
			return
		}
	}

	var clicked bool
	evalCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()

	if err := chromedp.Run(evalCtx, chromedp.Evaluate(consentClickScript, &clicked)); err == nil && clicked {
		settle(ctx)
	}
}

func settle(ctx context.Context) {
	settleCtx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	_ = chromedp.Run(settleCtx, chromedp.Sleep(time.Second))
}
