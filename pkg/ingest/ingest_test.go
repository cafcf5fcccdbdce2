package ingest

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/policyscan/policyscan/internal/models"
	"github.com/policyscan/policyscan/pkg/policies"
	"github.com/policyscan/policyscan/pkg/store"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeScraper struct {
	result     models.ScrapeResult
	calls      int
	lastMethod models.CaptureMethod
}

func (f *fakeScraper) ScrapeURL(_ context.Context, url string, preferred models.CaptureMethod) models.ScrapeResult {
	f.calls++
	f.lastMethod = preferred
	return f.result
}

func (f *fakeScraper) Close() {}

type fakeClassifier struct {
	result models.Classification
	calls  int
}

func (f *fakeClassifier) Classify(_ context.Context, content, title string) models.Classification {
	f.calls++
	return f.result
}

type fakeEmbedder struct {
	vec   []float32
	err   error
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	return f.vec, f.err
}

func scrapedPolicy(url string) *models.Policy {
	return &models.Policy{
		SourceURL: url,
		Title:     "Privacy Policy",
		Content:   "we collect your personal data for the purposes described below",
		Method:    models.MethodHTTP,
	}
}

func TestIngestURL(t *testing.T) {
	url := "https://x.test/privacy"
	scraper := &fakeScraper{result: models.ScrapeResult{Success: true, Policy: scrapedPolicy(url)}}
	classifier := &fakeClassifier{result: models.Classification{Category: "COOKIES TRACKING", Confidence: 90}}
	svc := policies.NewService(store.NewMemoryStore())

	ing := New(scraper, classifier, svc)

	saved, err := ing.IngestURL(context.Background(), url)
	require.NoError(t, err)

	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, url, saved.SourceURL)
	assert.Equal(t, "Privacy Policy", saved.Title)
	assert.Equal(t, "COOKIES TRACKING", saved.Category)
	assert.Equal(t, models.MethodHTTP, saved.Method)
	assert.False(t, saved.CreatedAt.IsZero())

	// The record is actually persisted.
	found, err := svc.Get(context.Background(), saved.ID)
	require.NoError(t, err)
	assert.Equal(t, saved.ID, found.ID)
}

func TestIngestURLScrapeFailureShortCircuits(t *testing.T) {
	scraper := &fakeScraper{result: models.ScrapeResult{Success: false, Error: "http fetch failed: connection refused"}}
	classifier := &fakeClassifier{}
	svc := policies.NewService(store.NewMemoryStore())

	ing := New(scraper, classifier, svc)

	_, err := ing.IngestURL(context.Background(), "https://down.test/privacy")
	require.Error(t, err)

	assert.Contains(t, err.Error(), "policy ingestion failed")
	assert.Contains(t, err.Error(), "scraping failed")
	assert.Contains(t, err.Error(), "connection refused")

	// Neither the classifier nor the store was touched.
	assert.Equal(t, 0, classifier.calls)
	list, listErr := svc.List(context.Background())
	require.NoError(t, listErr)
	assert.Empty(t, list)
}

func TestIngestURLDuplicateWrapsStoreError(t *testing.T) {
	url := "https://x.test/privacy"
	scraper := &fakeScraper{result: models.ScrapeResult{Success: true, Policy: scrapedPolicy(url)}}
	classifier := &fakeClassifier{result: models.Classification{Category: models.CategoryOther}}
	svc := policies.NewService(store.NewMemoryStore())

	ing := New(scraper, classifier, svc)

	_, err := ing.IngestURL(context.Background(), url)
	require.NoError(t, err)

	_, err = ing.IngestURL(context.Background(), url)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "policy ingestion failed")
	assert.Contains(t, err.Error(), "already exists")
}

func TestIngestURLEmbedsBestEffort(t *testing.T) {
	url := "https://x.test/privacy"
	scraper := &fakeScraper{result: models.ScrapeResult{Success: true, Policy: scrapedPolicy(url)}}
	classifier := &fakeClassifier{result: models.Classification{Category: models.CategoryOther}}
	embedder := &fakeEmbedder{err: fmt.Errorf("quota exceeded")}
	svc := policies.NewService(store.NewMemoryStore())

	ing := New(scraper, classifier, svc, WithEmbedder(embedder))

	// An embedding failure never fails the ingestion.
	saved, err := ing.IngestURL(context.Background(), url)
	require.NoError(t, err)
	assert.NotEmpty(t, saved.ID)
	assert.Equal(t, 1, embedder.calls)
}

func TestIngestURLForwardsMethod(t *testing.T) {
	url := "https://x.test/privacy"
	scraper := &fakeScraper{result: models.ScrapeResult{Success: true, Policy: scrapedPolicy(url)}}
	classifier := &fakeClassifier{result: models.Classification{Category: "COOKIES TRACKING", Confidence: 90}}
	svc := policies.NewService(store.NewMemoryStore())

	ing := New(scraper, classifier, svc, WithMethod(models.MethodBrowser))

	_, err := ing.IngestURL(context.Background(), url)
	require.NoError(t, err)
	assert.Equal(t, models.MethodBrowser, scraper.lastMethod)
}

func TestIngestAllCollectsPerURL(t *testing.T) {
	scraper := &fakeScraper{result: models.ScrapeResult{Success: false, Error: "nope"}}
	classifier := &fakeClassifier{}
	svc := policies.NewService(store.NewMemoryStore())

	ing := New(scraper, classifier, svc, WithBatchDelay(time.Millisecond))

	outcomes := ing.IngestAll(context.Background(), []string{"https://a.test", "https://b.test"})
	require.Len(t, outcomes, 2)

	for _, outcome := range outcomes {
		assert.Error(t, outcome.Err)
		assert.Nil(t, outcome.Policy)
	}
	assert.Equal(t, 2, scraper.calls)
}
