package ingest

import (
	"context"
	"fmt"
	"log"
	"time"

	"github.com/policyscan/policyscan/internal/apperr"
	"github.com/policyscan/policyscan/internal/models"
	"github.com/policyscan/policyscan/internal/types"
	"github.com/policyscan/policyscan/pkg/policies"
)

// Ingestor composes scraping, classification and persistence for one URL.
// Callers see a single "ingestion failed" error shape regardless of which
// stage broke.
type Ingestor struct {
	scraper    types.Scraper
	classifier types.Classifier
	embedder   types.Embedder // optional; nil skips embeddings
	policies   *policies.Service
	method     models.CaptureMethod // empty means auto
	batchDelay time.Duration
}

type Option func(*Ingestor)

// WithEmbedder enables best-effort content embeddings for the
// related-policies lookup.
func WithEmbedder(e types.Embedder) Option {
	return func(i *Ingestor) { i.embedder = e }
}

// WithMethod pins every scrape to one capture method instead of the
// default auto fallback.
func WithMethod(m models.CaptureMethod) Option {
	return func(i *Ingestor) { i.method = m }
}

// WithBatchDelay overrides the pause between URLs in IngestAll.
func WithBatchDelay(d time.Duration) Option {
	return func(i *Ingestor) { i.batchDelay = d }
}

func New(scraper types.Scraper, classifier types.Classifier, svc *policies.Service, opts ...Option) *Ingestor {
	ing := &Ingestor{
		scraper:    scraper,
		classifier: classifier,
		policies:   svc,
		batchDelay: 2 * time.Second,
	}
	for _, opt := range opts {
		opt(ing)
	}
	return ing
}

// IngestURL scrapes, classifies and persists one privacy-policy page,
// returning the stored record with its generated id and timestamps.
func (i *Ingestor) IngestURL(ctx context.Context, url string) (*models.Policy, error) {
	result := i.scraper.ScrapeURL(ctx, url, i.method)
	if !result.Success || result.Policy == nil {
		return nil, wrapIngestError(apperr.New(fmt.Sprintf("scraping failed: %s", result.Error), 400))
	}

	extracted := result.Policy
	classification := i.classifier.Classify(ctx, extracted.Content, extracted.Title)

	saved, err := i.policies.Create(ctx, models.Policy{
		SourceURL: url,
		Title:     extracted.Title,
		Content:   extracted.Content,
		Category:  classification.Category,
		Method:    extracted.Method,
	})
	if err != nil {
		return nil, wrapIngestError(err)
	}

	// Embeddings are an annotation, not part of the record's correctness;
	// a failure here never fails the ingestion.
	if i.embedder != nil {
		if embedding, err := i.embedder.Embed(ctx, saved.Content); err != nil {
			log.Printf("embedding failed for %s: %v", url, err)
		} else if err := i.policies.SetEmbedding(ctx, saved.ID, embedding); err != nil {
			log.Printf("storing embedding failed for %s: %v", url, err)
		}
	}

	return saved, nil
}

// IngestAll ingests each URL sequentially with a fixed inter-URL delay. One
// outcome is collected per URL; individual failures never abort the batch.
func (i *Ingestor) IngestAll(ctx context.Context, urls []string) []Outcome {
	outcomes := make([]Outcome, 0, len(urls))

	for idx, url := range urls {
		policy, err := i.IngestURL(ctx, url)
		outcomes = append(outcomes, Outcome{URL: url, Policy: policy, Err: err})

		if idx < len(urls)-1 {
			select {
			case <-time.After(i.batchDelay):
			case <-ctx.Done():
				return outcomes
			}
		}
	}

	return outcomes
}

// Outcome is the per-URL result of a batch ingestion.
type Outcome struct {
	URL    string
	Policy *models.Policy
	Err    error
}

func wrapIngestError(err error) error {
	ae := apperr.From(err)
	return apperr.Wrap(fmt.Sprintf("policy ingestion failed: %s", ae.Message), ae.StatusCode, err)
}
