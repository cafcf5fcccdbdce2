package policies

import (
	"context"

	"github.com/policyscan/policyscan/internal/apperr"
	"github.com/policyscan/policyscan/internal/models"
	"github.com/policyscan/policyscan/internal/types"
)

const (
	defaultPageSize = 10
	maxPageSize     = 100
)

// Service wraps the repository with the write-time invariants: categories
// outside the taxonomy are coerced to OUTROS, and missing ids surface as
// not-found errors instead of the repository's nil results.
type Service struct {
	repo types.PolicyRepository
}

func NewService(repo types.PolicyRepository) *Service {
	return &Service{repo: repo}
}

func (s *Service) Create(ctx context.Context, p models.Policy) (*models.Policy, error) {
	if !models.IsCategory(p.Category) {
		p.Category = models.CategoryOther
	}
	return s.repo.Save(ctx, p)
}

func (s *Service) List(ctx context.Context) ([]models.Policy, error) {
	return s.repo.FindAll(ctx)
}

func (s *Service) Search(ctx context.Context, term string, page, pageSize int) (*types.SearchResult, error) {
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	if pageSize > maxPageSize {
		pageSize = maxPageSize
	}

	return s.repo.Search(ctx, types.SearchParams{
		Term:     term,
		Page:     page,
		PageSize: pageSize,
	})
}

func (s *Service) Get(ctx context.Context, id string) (*models.Policy, error) {
	p, err := s.repo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.New("policy not found", 404)
	}
	return p, nil
}

func (s *Service) Update(ctx context.Context, id string, update models.PolicyUpdate) (*models.Policy, error) {
	if update.Category != nil && !models.IsCategory(*update.Category) {
		other := models.CategoryOther
		update.Category = &other
	}

	p, err := s.repo.Update(ctx, id, update)
	if err != nil {
		return nil, err
	}
	if p == nil {
		return nil, apperr.New("policy not found", 404)
	}
	return p, nil
}

func (s *Service) Delete(ctx context.Context, id string) error {
	deleted, err := s.repo.Delete(ctx, id)
	if err != nil {
		return err
	}
	if !deleted {
		return apperr.New("policy not found", 404)
	}
	return nil
}

func (s *Service) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	return s.repo.SetEmbedding(ctx, id, embedding)
}

// Related returns policies closest in embedding space to the given one.
func (s *Service) Related(ctx context.Context, id string, limit int) ([]models.Policy, error) {
	// 404 on an unknown id rather than an empty neighbor list.
	if _, err := s.Get(ctx, id); err != nil {
		return nil, err
	}
	return s.repo.Related(ctx, id, limit)
}
