package types

import (
	"context"

	"github.com/policyscan/policyscan/internal/models"
)

// Core interfaces

// Scraper fetches a privacy-policy page and extracts its title and body
// text. Failures are captured inside the result, never raised.
type Scraper interface {
	ScrapeURL(ctx context.Context, url string, preferred models.CaptureMethod) models.ScrapeResult
	Close()
}

// Classifier labels extracted policy text against the fixed taxonomy.
type Classifier interface {
	Classify(ctx context.Context, content, title string) models.Classification
}

// Embedder turns policy text into a vector for similarity lookups.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// PolicyRepository is the storage contract for policy records. Lookups on
// missing ids return (nil, nil) / (false, nil); the service layer turns
// those into not-found errors.
type PolicyRepository interface {
	Save(ctx context.Context, p models.Policy) (*models.Policy, error)
	FindAll(ctx context.Context) ([]models.Policy, error)
	Search(ctx context.Context, params SearchParams) (*SearchResult, error)
	FindByID(ctx context.Context, id string) (*models.Policy, error)
	Update(ctx context.Context, id string, update models.PolicyUpdate) (*models.Policy, error)
	Delete(ctx context.Context, id string) (bool, error)
	SetEmbedding(ctx context.Context, id string, embedding []float32) error
	Related(ctx context.Context, id string, limit int) ([]models.Policy, error)
}

// SearchParams selects a page of policies matching an optional term.
type SearchParams struct {
	Term     string
	Page     int
	PageSize int
}

// SearchResult is one page of matches plus the totals needed for paging.
type SearchResult struct {
	Policies   []models.Policy
	Total      int
	Page       int
	PageSize   int
	TotalPages int
}
