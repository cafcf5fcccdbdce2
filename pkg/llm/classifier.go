package llm

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"regexp"
	"strings"
	"time"

	"github.com/policyscan/policyscan/internal/models"
	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/llms/openai"
	"github.com/tmc/langchaingo/schema"
)

// ClassifierConfig represents the configuration for the policy classifier.
type ClassifierConfig struct {
	Model       string
	Temperature float64
	MaxTokens   int
	APIKey      string // falls back to OPENAI_API_KEY
	BaseURL     string
	BatchDelay  time.Duration
}

// Classifier labels privacy-policy text against the fixed taxonomy using a
// chat-completion call. Classification is a best-effort annotation: every
// failure degrades to the OUTROS fallback instead of propagating.
type Classifier struct {
	config ClassifierConfig
	model  llms.Model
}

const systemPrompt = "You are an expert in privacy-policy and data-protection analysis. Your task is to classify the provided content into one of the predefined categories."

// maxContentChars bounds the content prefix embedded in the prompt.
const maxContentChars = 4000

var categoryDescriptions = map[string]string{
	"DADOS PESSOAIS GERAIS":       "Collection and use of basic personal data (name, email, phone, etc.)",
	"DADOS FINANCEIROS":           "Handling of financial information, credit cards, banking data",
	"DADOS LOCALIZACAO":           "Collection and use of geolocation and user-location data",
	"COOKIES TRACKING":            "Use of cookies, tracking pixels and similar technologies",
	"MARKETING PUBLICIDADE":       "Use of data for marketing, targeted advertising and promotional communication",
	"COMPARTILHAMENTO TERCEIROS":  "Sharing of data with partners, vendors or other third parties",
	"SEGURANCA PROTECAO":          "Security measures, data protection and fraud prevention",
	"DIREITOS USUARIO":            "Data-subject rights under LGPD and GDPR (access, correction, deletion)",
	"RETENCAO DADOS":              "Storage period and retention of personal data",
	"MENORES IDADE":               "Policies specific to children and under-age users",
	"TRANSFERENCIA INTERNACIONAL": "Transfer of data to other countries or jurisdictions",
	models.CategoryOther:          "Policies that do not fit any of the specific categories",
}

// NewClassifierWithConfig creates a Classifier with the given configuration.
func NewClassifierWithConfig(config ClassifierConfig) (*Classifier, error) {
	if config.Model == "" {
		config.Model = "gpt-3.5-turbo"
	}
	if config.Temperature <= 0 {
		config.Temperature = 0.3
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 500
	}
	if config.BatchDelay == 0 {
		config.BatchDelay = time.Second
	}

	opts := []openai.Option{openai.WithModel(config.Model)}
	if config.APIKey != "" {
		opts = append(opts, openai.WithToken(config.APIKey))
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}

	model, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM: %w", err)
	}

	return &Classifier{
		config: config,
		model:  model,
	}, nil
}

// Classify labels content (with an optional title) and returns the category
// plus a 0-100 confidence. It never returns an error: call failures and
// unparseable replies resolve to {OUTROS, 0}.
func (c *Classifier) Classify(ctx context.Context, content, title string) models.Classification {
	prompt := c.buildPrompt(content, title)

	messages := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, systemPrompt),
		llms.TextParts(schema.ChatMessageTypeHuman, prompt),
	}

	response, err := c.model.GenerateContent(ctx, messages,
		llms.WithTemperature(c.config.Temperature),
		llms.WithMaxTokens(c.config.MaxTokens),
	)
	if err != nil {
		log.Printf("classification call failed: %v", err)
		return models.Classification{Category: models.CategoryOther, Confidence: 0}
	}

	if len(response.Choices) == 0 || response.Choices[0].Content == "" {
		log.Printf("classification call returned an empty reply")
		return models.Classification{Category: models.CategoryOther, Confidence: 0}
	}

	return parseClassification(response.Choices[0].Content)
}

// BatchItem is one entry for ClassifyAll.
type BatchItem struct {
	ID      string
	Content string
	Title   string
}

// BatchResult pairs a classification with the item id it belongs to.
type BatchResult struct {
	models.Classification
	ID string
}

// ClassifyAll classifies items sequentially with a fixed inter-call delay
// to respect external rate limits. Individual failures never abort the
// batch.
func (c *Classifier) ClassifyAll(ctx context.Context, items []BatchItem) []BatchResult {
	results := make([]BatchResult, 0, len(items))

	for i, item := range items {
		result := c.Classify(ctx, item.Content, item.Title)
		results = append(results, BatchResult{Classification: result, ID: item.ID})

		if i < len(items)-1 {
			select {
			case <-time.After(c.config.BatchDelay):
			case <-ctx.Done():
				return results
			}
		}
	}

	return results
}

func (c *Classifier) buildPrompt(content, title string) string {
	var b strings.Builder

	b.WriteString("Analyze the following privacy-policy content and classify it into the most appropriate category.\n\n")

	if title != "" {
		fmt.Fprintf(&b, "TITLE: %s\n\n", title)
	}

	truncated := truncateRunes(content, maxContentChars)
	marker := ""
	if len(truncated) < len(content) {
		marker = " ..."
	}
	fmt.Fprintf(&b, "CONTENT:\n%s%s\n\n", truncated, marker)

	b.WriteString("AVAILABLE CATEGORIES:\n")
	for i, category := range models.Categories {
		fmt.Fprintf(&b, "%d. %s: %s\n", i+1, category, categoryDescriptions[category])
	}

	b.WriteString(`
Reply EXACTLY in the following JSON format:
{
  "category": "CHOSEN_CATEGORY",
  "confidence": 85
}

Where:
- category: must be exactly one of the categories listed above
- confidence: a number from 0 to 100 indicating your confidence in the classification
`)

	return b.String()
}

// truncateRunes caps s at max characters without splitting a UTF-8
// sequence; the Portuguese policy text here is full of multi-byte runes.
func truncateRunes(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max])
}

var jsonObjectPattern = regexp.MustCompile(`(?s)\{.*\}`)

// parseClassification extracts the first brace-delimited JSON object from a
// reply, tolerating surrounding prose. The two fields degrade
// independently: an unknown or non-string category falls back to OUTROS, a
// missing, non-numeric or out-of-[0,100] confidence to 50. Only a reply
// with no parseable JSON object at all resolves to {OUTROS, 0}.
func parseClassification(reply string) models.Classification {
	match := jsonObjectPattern.FindString(reply)
	if match == "" {
		log.Printf("classification reply contained no JSON object")
		return models.Classification{Category: models.CategoryOther, Confidence: 0}
	}

	var fields map[string]json.RawMessage
	if err := json.Unmarshal([]byte(match), &fields); err != nil {
		log.Printf("failed to parse classification reply: %v", err)
		return models.Classification{Category: models.CategoryOther, Confidence: 0}
	}

	category := models.CategoryOther
	var label string
	if raw, ok := fields["category"]; ok && json.Unmarshal(raw, &label) == nil && models.IsCategory(label) {
		category = label
	}

	confidence := 50
	var value float64
	if raw, ok := fields["confidence"]; ok && json.Unmarshal(raw, &value) == nil && value >= 0 && value <= 100 {
		confidence = int(value)
	}

	return models.Classification{Category: category, Confidence: confidence}
}
