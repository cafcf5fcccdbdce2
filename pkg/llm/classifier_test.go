package llm

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"
	"unicode/utf8"

	"github.com/policyscan/policyscan/internal/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tmc/langchaingo/llms"
)

// stubModel replays canned replies (or errors) instead of calling OpenAI.
type stubModel struct {
	reply string
	err   error
	calls int
}

func (s *stubModel) GenerateContent(ctx context.Context, messages []llms.MessageContent, options ...llms.CallOption) (*llms.ContentResponse, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	return &llms.ContentResponse{
		Choices: []*llms.ContentChoice{{Content: s.reply}},
	}, nil
}

func (s *stubModel) Call(ctx context.Context, prompt string, options ...llms.CallOption) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	return s.reply, nil
}

func newStubClassifier(t *testing.T, stub *stubModel) *Classifier {
	t.Helper()
	return &Classifier{
		config: ClassifierConfig{
			Model:       "testmodel",
			Temperature: 0.3,
			MaxTokens:   500,
			BatchDelay:  time.Millisecond,
		},
		model: stub,
	}
}

func TestParseClassification(t *testing.T) {
	tests := []struct {
		name       string
		reply      string
		category   string
		confidence int
	}{
		{
			name:       "clean json",
			reply:      `{"category": "COOKIES TRACKING", "confidence": 92}`,
			category:   "COOKIES TRACKING",
			confidence: 92,
		},
		{
			name:       "json surrounded by prose",
			reply:      "Sure! Here is the classification:\n{\"category\": \"DADOS FINANCEIROS\", \"confidence\": 77}\nLet me know if you need anything else.",
			category:   "DADOS FINANCEIROS",
			confidence: 77,
		},
		{
			name:       "unknown category coerced",
			reply:      `{"category": "BANANAS", "confidence": 80}`,
			category:   models.CategoryOther,
			confidence: 80,
		},
		{
			name:       "confidence above range",
			reply:      `{"category": "DADOS LOCALIZACAO", "confidence": 150}`,
			category:   "DADOS LOCALIZACAO",
			confidence: 50,
		},
		{
			name:       "confidence below range",
			reply:      `{"category": "DADOS LOCALIZACAO", "confidence": -3}`,
			category:   "DADOS LOCALIZACAO",
			confidence: 50,
		},
		{
			// A bad confidence value must not discard a valid category.
			name:       "confidence not a number",
			reply:      `{"category": "MENORES IDADE", "confidence": "high"}`,
			category:   "MENORES IDADE",
			confidence: 50,
		},
		{
			name:       "category not a string",
			reply:      `{"category": 7, "confidence": 64}`,
			category:   models.CategoryOther,
			confidence: 64,
		},
		{
			name:       "confidence missing",
			reply:      `{"category": "MENORES IDADE"}`,
			category:   "MENORES IDADE",
			confidence: 50,
		},
		{
			name:       "no json at all",
			reply:      "I cannot classify this content.",
			category:   models.CategoryOther,
			confidence: 0,
		},
		{
			name:       "broken json",
			reply:      `{"category": "OUTROS", "confidence":`,
			category:   models.CategoryOther,
			confidence: 0,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := parseClassification(tt.reply)
			assert.Equal(t, tt.category, result.Category)
			assert.Equal(t, tt.confidence, result.Confidence)
		})
	}
}

func TestClassifyHappyPath(t *testing.T) {
	stub := &stubModel{reply: `{"category": "DIREITOS USUARIO", "confidence": 88}`}
	c := newStubClassifier(t, stub)

	result := c.Classify(context.Background(), "you may request deletion of your data", "User rights")
	assert.Equal(t, "DIREITOS USUARIO", result.Category)
	assert.Equal(t, 88, result.Confidence)
	assert.Equal(t, 1, stub.calls)
}

func TestClassifyCallFailureFallsBack(t *testing.T) {
	stub := &stubModel{err: fmt.Errorf("quota exceeded")}
	c := newStubClassifier(t, stub)

	result := c.Classify(context.Background(), "some content", "")
	assert.Equal(t, models.CategoryOther, result.Category)
	assert.Equal(t, 0, result.Confidence)
}

func TestBuildPromptTruncatesContent(t *testing.T) {
	c := newStubClassifier(t, &stubModel{})

	long := strings.Repeat("x", maxContentChars+500)
	prompt := c.buildPrompt(long, "A Title")

	assert.Contains(t, prompt, "TITLE: A Title")
	assert.Contains(t, prompt, " ...")
	assert.NotContains(t, prompt, strings.Repeat("x", maxContentChars+1))

	for _, category := range models.Categories {
		assert.Contains(t, prompt, category)
	}
}

func TestTruncateRunes(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		max      int
		expected string
	}{
		{"shorter than max", "dados", 10, "dados"},
		{"exact length", "dados", 5, "dados"},
		{"ascii cut", "dados pessoais", 5, "dados"},
		{"multibyte cut keeps whole runes", "proteção", 7, "proteçã"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := truncateRunes(tt.input, tt.max)
			assert.Equal(t, tt.expected, got)
			assert.True(t, utf8.ValidString(got))
		})
	}
}

func TestBuildPromptTruncatesOnRuneBoundary(t *testing.T) {
	c := newStubClassifier(t, &stubModel{})

	long := strings.Repeat("çã", maxContentChars) // every rune is multi-byte
	prompt := c.buildPrompt(long, "")

	assert.True(t, utf8.ValidString(prompt))
	assert.Contains(t, prompt, string([]rune(long)[:maxContentChars])+" ...")
}

func TestBuildPromptWithoutTitle(t *testing.T) {
	c := newStubClassifier(t, &stubModel{})

	prompt := c.buildPrompt("short content", "")
	assert.NotContains(t, prompt, "TITLE:")
	assert.Contains(t, prompt, "short content")
}

func TestClassifyAll(t *testing.T) {
	stub := &stubModel{reply: `{"category": "RETENCAO DADOS", "confidence": 70}`}
	c := newStubClassifier(t, stub)

	items := []BatchItem{
		{ID: "a", Content: "retention periods"},
		{ID: "b", Content: "more retention periods"},
	}

	results := c.ClassifyAll(context.Background(), items)
	require.Len(t, results, 2)
	assert.Equal(t, "a", results[0].ID)
	assert.Equal(t, "b", results[1].ID)
	assert.Equal(t, "RETENCAO DADOS", results[0].Category)
	assert.Equal(t, 2, stub.calls)
}

func TestNewClassifierRejectsNegativeMaxTokens(t *testing.T) {
	_, err := NewClassifierWithConfig(ClassifierConfig{APIKey: "test-key", MaxTokens: -1})
	assert.Error(t, err)
}
