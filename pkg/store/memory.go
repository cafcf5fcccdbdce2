package store

import (
	"context"
	"math"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/policyscan/policyscan/internal/apperr"
	"github.com/policyscan/policyscan/internal/models"
	"github.com/policyscan/policyscan/internal/types"
)

// MemoryStore is an in-memory PolicyRepository with the same contract as
// PolicyStore. It backs tests and local development without Postgres.
type MemoryStore struct {
	mu         sync.RWMutex
	policies   map[string]models.Policy
	embeddings map[string][]float32
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		policies:   make(map[string]models.Policy),
		embeddings: make(map[string][]float32),
	}
}

func (ms *MemoryStore) Save(_ context.Context, p models.Policy) (*models.Policy, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	for _, existing := range ms.policies {
		if existing.SourceURL == p.SourceURL {
			return nil, apperr.New("a policy with source URL "+p.SourceURL+" already exists", 500)
		}
	}

	now := time.Now()
	p.ID = uuid.NewString()
	p.CreatedAt = now
	p.UpdatedAt = now
	ms.policies[p.ID] = p

	saved := p
	return &saved, nil
}

func (ms *MemoryStore) FindAll(_ context.Context) ([]models.Policy, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()
	return ms.sorted(), nil
}

func (ms *MemoryStore) Search(_ context.Context, params types.SearchParams) (*types.SearchResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 10
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	term := strings.ToLower(params.Term)
	matches := []models.Policy{}
	for _, p := range ms.sorted() {
		if term == "" ||
			strings.Contains(strings.ToLower(p.Title), term) ||
			strings.Contains(strings.ToLower(p.Content), term) ||
			strings.Contains(strings.ToLower(p.Category), term) {
			matches = append(matches, p)
		}
	}

	total := len(matches)
	totalPages := (total + params.PageSize - 1) / params.PageSize

	start := (params.Page - 1) * params.PageSize
	if start > total {
		start = total
	}
	end := start + params.PageSize
	if end > total {
		end = total
	}

	return &types.SearchResult{
		Policies:   matches[start:end],
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

func (ms *MemoryStore) FindByID(_ context.Context, id string) (*models.Policy, error) {
	ms.mu.RLock()
	defer ms.mu.RUnlock()

	p, ok := ms.policies[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (ms *MemoryStore) Update(_ context.Context, id string, update models.PolicyUpdate) (*models.Policy, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	p, ok := ms.policies[id]
	if !ok {
		return nil, nil
	}

	if update.Title != nil {
		p.Title = *update.Title
	}
	if update.SourceURL != nil {
		p.SourceURL = *update.SourceURL
	}
	if update.Content != nil {
		p.Content = *update.Content
	}
	if update.Category != nil {
		p.Category = *update.Category
	}
	if update.Method != nil {
		p.Method = *update.Method
	}
	p.UpdatedAt = time.Now()

	ms.policies[id] = p
	return &p, nil
}

func (ms *MemoryStore) Delete(_ context.Context, id string) (bool, error) {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if _, ok := ms.policies[id]; !ok {
		return false, nil
	}
	delete(ms.policies, id)
	delete(ms.embeddings, id)
	return true, nil
}

func (ms *MemoryStore) SetEmbedding(_ context.Context, id string, embedding []float32) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.embeddings[id] = embedding
	return nil
}

// Related ranks by cosine distance over stored embeddings, mirroring the
// Postgres implementation.
func (ms *MemoryStore) Related(_ context.Context, id string, limit int) ([]models.Policy, error) {
	if limit <= 0 {
		limit = 5
	}

	ms.mu.RLock()
	defer ms.mu.RUnlock()

	ref, ok := ms.embeddings[id]
	if !ok {
		return []models.Policy{}, nil
	}

	type scored struct {
		policy   models.Policy
		distance float64
	}

	candidates := []scored{}
	for pid, emb := range ms.embeddings {
		if pid == id {
			continue
		}
		p, ok := ms.policies[pid]
		if !ok {
			continue
		}
		candidates = append(candidates, scored{policy: p, distance: cosineDistance(ref, emb)})
	}

	sort.Slice(candidates, func(i, j int) bool {
		return candidates[i].distance < candidates[j].distance
	})

	if len(candidates) > limit {
		candidates = candidates[:limit]
	}

	result := make([]models.Policy, 0, len(candidates))
	for _, c := range candidates {
		result = append(result, c.policy)
	}
	return result, nil
}

func (ms *MemoryStore) sorted() []models.Policy {
	all := make([]models.Policy, 0, len(ms.policies))
	for _, p := range ms.policies {
		all = append(all, p)
	}
	sort.Slice(all, func(i, j int) bool {
		if all[i].CreatedAt.Equal(all[j].CreatedAt) {
			return all[i].ID > all[j].ID
		}
		return all[i].CreatedAt.After(all[j].CreatedAt)
	})
	return all
}

func cosineDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		return 2
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 2
	}
	return 1 - dot/(math.Sqrt(normA)*math.Sqrt(normB))
}
