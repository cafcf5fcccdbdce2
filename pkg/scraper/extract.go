package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/policyscan/policyscan/internal/models"
)

// contentSelectors are probed in order; class/role hints likely to wrap the
// policy body come before generic layout containers.
var contentSelectors = []string{
	`div[class*="privacy"]`,
	`div[class*="policy"]`,
	`section[class*="privacy"]`,
	`section[class*="policy"]`,
	`article[class*="privacy"]`,
	`article[class*="policy"]`,
	".privacy-policy-content",
	".policy-content",
	".privacy-content",
	`[role="main"]`,
	"main",
	".main-content",
	".content",
	"#content",
	"article",
}

var titleSelectors = []string{
	"h1",
	".page-title",
	".policy-title",
	".privacy-title",
	`[class*="title"]`,
}

const chromeSelectors = "script, style, nav, header, footer, aside, .sidebar, .navigation, .menu, .ads, .advertisement, .cookie-banner, .cookie-notice"

const interactiveSelectors = "button, input, select, textarea, .btn, .button, .link, .social, .share"

const (
	minContentLength  = 500
	goodContentLength = 1000
)

// extractPolicy pulls the best-guess title and body text out of a parsed
// page. Among selector matches the longest text above the minimum length
// wins; a weak best candidate falls back to the stripped body text.
func (s *Scraper) extractPolicy(doc *goquery.Document, url string, method models.CaptureMethod) *models.Policy {
	doc.Find(chromeSelectors).Remove()

	title := strings.TrimSpace(doc.Find("title").Text())
	if title == "" {
		title = extractHeadingTitle(doc)
	}

	var content string
	for _, selector := range contentSelectors {
		element := doc.Find(selector)
		if element.Length() == 0 {
			continue
		}

		element.Find(chromeSelectors).Remove()

		text := strings.TrimSpace(element.Text())
		if len(text) > len(content) && len(text) > minContentLength {
			content = text
		}
	}

	if len(content) < goodContentLength {
		doc.Find(interactiveSelectors).Remove()
		content = strings.TrimSpace(doc.Find("body").Text())
	}

	return &models.Policy{
		SourceURL: url,
		Title:     s.processor.CleanTitle(title),
		Content:   s.processor.CleanContent(content),
		Method:    method,
	}
}

func extractHeadingTitle(doc *goquery.Document) string {
	for _, selector := range titleSelectors {
		element := doc.Find(selector).First()
		if element.Length() == 0 {
			continue
		}
		if text := strings.TrimSpace(element.Text()); text != "" {
			return text
		}
	}
	return ""
}
