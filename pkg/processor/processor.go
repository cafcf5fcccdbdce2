package processor

import (
	"regexp"
	"strings"
)

type ProcessorConfig struct {
	MinSentenceLength int
	ExtraBoilerplate  []string
}

// Processor cleans up scraped titles and policy text. It is a heuristic
// signal-extraction filter, not a summarizer: it may drop legitimate short
// sentences and is best-effort by design.
type Processor struct {
	config      ProcessorConfig
	boilerplate []*regexp.Regexp
}

// titleSuffixes strip trailing site-name decorations ("Privacy | Acme").
var titleSuffixes = []*regexp.Regexp{
	regexp.MustCompile(`\s*\|\s*.*$`),
	regexp.MustCompile(`\s*-\s*.*$`),
	regexp.MustCompile(`\s*–\s*.*$`),
}

// boilerplatePatterns match chrome text that survives DOM stripping:
// consent prompts, share/print widgets and dated "last updated" lines.
var boilerplatePatterns = []string{
	`(?i)(?:cookie|privacidade|política)\s+(?:settings|configurações)`,
	`(?i)(?:aceitar|accept)\s+(?:cookies|todos)`,
	`(?i)(?:back to top|voltar ao topo)`,
	`(?i)(?:share|compartilhar)\s+(?:this|este)`,
	`(?i)(?:print|imprimir)\s+(?:page|página)`,
	`(?i)(?:download|baixar)\s+(?:pdf)`,
	`(?i)(?:last updated|última atualização).*?(?:\d{1,2}[/\-.]\d{1,2}[/\-.]\d{2,4})`,
}

var sentenceSplit = regexp.MustCompile(`[.!?]`)

// placeholderMarkers flag sentences that are error pages or script residue
// rather than policy text.
var placeholderMarkers = []string{"javascript", "error", "404"}

func NewWithConfig(config ProcessorConfig) Processor {
	if config.MinSentenceLength == 0 {
		config.MinSentenceLength = 50
	}

	patterns := make([]*regexp.Regexp, 0, len(boilerplatePatterns)+len(config.ExtraBoilerplate))
	for _, p := range boilerplatePatterns {
		patterns = append(patterns, regexp.MustCompile(p))
	}
	for _, p := range config.ExtraBoilerplate {
		patterns = append(patterns, regexp.MustCompile(p))
	}

	return Processor{
		config:      config,
		boilerplate: patterns,
	}
}

func New() Processor {
	return NewWithConfig(ProcessorConfig{})
}

// CleanTitle trims whatever follows a pipe, dash or en-dash. If trimming
// leaves nothing usable, the original title is returned unchanged.
func (p *Processor) CleanTitle(title string) string {
	if title == "" {
		return ""
	}

	cleaned := strings.TrimSpace(title)
	for _, re := range titleSuffixes {
		cleaned = re.ReplaceAllString(cleaned, "")
	}
	cleaned = strings.TrimSpace(cleaned)

	if cleaned == "" {
		return strings.TrimSpace(title)
	}
	return cleaned
}

// CleanContent normalizes whitespace, removes boilerplate phrases, then
// keeps only sentence-like units long enough to carry meaning.
func (p *Processor) CleanContent(content string) string {
	if content == "" {
		return ""
	}

	cleaned := strings.Join(strings.Fields(content), " ")

	for _, re := range p.boilerplate {
		cleaned = re.ReplaceAllString(cleaned, "")
	}

	sentences := sentenceSplit.Split(cleaned, -1)
	meaningful := make([]string, 0, len(sentences))

	for _, sentence := range sentences {
		trimmed := strings.TrimSpace(sentence)
		if len(trimmed) <= p.config.MinSentenceLength {
			continue
		}
		if containsMarker(trimmed) {
			continue
		}
		meaningful = append(meaningful, trimmed)
	}

	return strings.TrimSpace(strings.Join(meaningful, ". "))
}

func containsMarker(sentence string) bool {
	lower := strings.ToLower(sentence)
	for _, marker := range placeholderMarkers {
		if strings.Contains(lower, marker) {
			return true
		}
	}
	return false
}
