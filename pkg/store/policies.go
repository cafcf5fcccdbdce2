package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"
	"github.com/policyscan/policyscan/internal/apperr"
	"github.com/policyscan/policyscan/internal/models"
	"github.com/policyscan/policyscan/internal/types"
)

type PolicyStoreConfig struct {
	ConnString string
	TableName  string
	VectorDim  int
}

// PolicyStore is the canonical owner of policy records, backed by a single
// Postgres table. Lookups on missing ids return (nil, nil) / (false, nil);
// not-found is the service layer's concern.
type PolicyStore struct {
	config PolicyStoreConfig
	pool   *pgxpool.Pool
}

func NewWithConfig(config PolicyStoreConfig) (*PolicyStore, error) {
	if config.TableName == "" {
		config.TableName = "policies"
	}
	if config.VectorDim == 0 {
		config.VectorDim = 1536 // OpenAI text-embedding-3-small
	}

	pool, err := pgxpool.New(context.Background(), config.ConnString)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to database: %w", err)
	}

	ps := &PolicyStore{
		config: config,
		pool:   pool,
	}

	if err := ps.initialize(); err != nil {
		pool.Close()
		return nil, err
	}

	return ps, nil
}

func (ps *PolicyStore) initialize() error {
	ctx := context.Background()

	_, err := ps.pool.Exec(ctx, "CREATE EXTENSION IF NOT EXISTS vector")
	if err != nil {
		return fmt.Errorf("failed to create vector extension: %w", err)
	}

	createTable := fmt.Sprintf(`
		CREATE TABLE IF NOT EXISTS %s (
			id UUID PRIMARY KEY,
			title TEXT NOT NULL,
			source_url TEXT NOT NULL UNIQUE,
			content TEXT NOT NULL,
			category TEXT NOT NULL,
			method TEXT,
			embedding vector(%d),
			created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
		)`, ps.config.TableName, ps.config.VectorDim)

	_, err = ps.pool.Exec(ctx, createTable)
	if err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	createIndex := fmt.Sprintf(
		"CREATE INDEX IF NOT EXISTS %s_created_at_idx ON %s (created_at DESC)",
		ps.config.TableName, ps.config.TableName)

	_, err = ps.pool.Exec(ctx, createIndex)
	if err != nil {
		return fmt.Errorf("failed to create index: %w", err)
	}

	return nil
}

const policyColumns = "id, title, source_url, content, category, method, created_at, updated_at"

func scanPolicy(row pgx.Row) (*models.Policy, error) {
	var p models.Policy
	var method *string

	err := row.Scan(&p.ID, &p.Title, &p.SourceURL, &p.Content, &p.Category, &method, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		return nil, err
	}

	if method != nil {
		p.Method = models.CaptureMethod(*method)
	}
	return &p, nil
}

// Save inserts a new policy and returns it with the generated id and
// server-assigned timestamps. A source-URL collision surfaces as an error,
// never a silent upsert.
func (ps *PolicyStore) Save(ctx context.Context, p models.Policy) (*models.Policy, error) {
	stmt := fmt.Sprintf(`
		INSERT INTO %s (id, title, source_url, content, category, method)
		VALUES ($1, $2, $3, $4, $5, NULLIF($6, ''))
		RETURNING %s`, ps.config.TableName, policyColumns)

	row := ps.pool.QueryRow(ctx, stmt, uuid.NewString(), p.Title, p.SourceURL, p.Content, p.Category, string(p.Method))

	saved, err := scanPolicy(row)
	if err != nil {
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Wrap(fmt.Sprintf("a policy with source URL %q already exists", p.SourceURL), 500, err)
		}
		return nil, apperr.Wrap("failed to save policy", 500, err)
	}

	return saved, nil
}

// FindAll returns every policy, most recently created first.
func (ps *PolicyStore) FindAll(ctx context.Context) ([]models.Policy, error) {
	query := fmt.Sprintf("SELECT %s FROM %s ORDER BY created_at DESC", policyColumns, ps.config.TableName)

	rows, err := ps.pool.Query(ctx, query)
	if err != nil {
		return nil, apperr.Wrap("failed to list policies", 500, err)
	}
	defer rows.Close()

	return collectPolicies(rows)
}

// Search returns one page of policies matching the optional term with a
// case-insensitive substring match over title, content and category.
func (ps *PolicyStore) Search(ctx context.Context, params types.SearchParams) (*types.SearchResult, error) {
	if params.Page < 1 {
		params.Page = 1
	}
	if params.PageSize < 1 {
		params.PageSize = 10
	}

	where := "($1 = '' OR title ILIKE '%' || $1 || '%' OR content ILIKE '%' || $1 || '%' OR category ILIKE '%' || $1 || '%')"

	countQuery := fmt.Sprintf("SELECT count(*) FROM %s WHERE %s", ps.config.TableName, where)

	var total int
	if err := ps.pool.QueryRow(ctx, countQuery, params.Term).Scan(&total); err != nil {
		return nil, apperr.Wrap("failed to search policies", 500, err)
	}

	pageQuery := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE %s
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`, policyColumns, ps.config.TableName, where)

	offset := (params.Page - 1) * params.PageSize
	rows, err := ps.pool.Query(ctx, pageQuery, params.Term, params.PageSize, offset)
	if err != nil {
		return nil, apperr.Wrap("failed to search policies", 500, err)
	}
	defer rows.Close()

	policies, err := collectPolicies(rows)
	if err != nil {
		return nil, err
	}

	totalPages := (total + params.PageSize - 1) / params.PageSize

	return &types.SearchResult{
		Policies:   policies,
		Total:      total,
		Page:       params.Page,
		PageSize:   params.PageSize,
		TotalPages: totalPages,
	}, nil
}

// FindByID returns (nil, nil) when no policy has the id.
func (ps *PolicyStore) FindByID(ctx context.Context, id string) (*models.Policy, error) {
	query := fmt.Sprintf("SELECT %s FROM %s WHERE id = $1", policyColumns, ps.config.TableName)

	p, err := scanPolicy(ps.pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, apperr.Wrap("failed to fetch policy", 500, err)
	}

	return p, nil
}

// Update applies the non-nil fields of update and re-stamps updated_at.
// Returns (nil, nil) when no policy has the id.
func (ps *PolicyStore) Update(ctx context.Context, id string, update models.PolicyUpdate) (*models.Policy, error) {
	sets := []string{"updated_at = now()"}
	args := []interface{}{id}

	addSet := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if update.Title != nil {
		addSet("title", *update.Title)
	}
	if update.SourceURL != nil {
		addSet("source_url", *update.SourceURL)
	}
	if update.Content != nil {
		addSet("content", *update.Content)
	}
	if update.Category != nil {
		addSet("category", *update.Category)
	}
	if update.Method != nil {
		addSet("method", string(*update.Method))
	}

	stmt := fmt.Sprintf("UPDATE %s SET %s WHERE id = $1 RETURNING %s",
		ps.config.TableName, strings.Join(sets, ", "), policyColumns)

	p, err := scanPolicy(ps.pool.QueryRow(ctx, stmt, args...))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		var pgErr *pgconn.PgError
		if errors.As(err, &pgErr) && pgErr.Code == "23505" {
			return nil, apperr.Wrap("a policy with that source URL already exists", 500, err)
		}
		return nil, apperr.Wrap("failed to update policy", 500, err)
	}

	return p, nil
}

// Delete removes the policy and reports whether a row was actually deleted.
func (ps *PolicyStore) Delete(ctx context.Context, id string) (bool, error) {
	stmt := fmt.Sprintf("DELETE FROM %s WHERE id = $1", ps.config.TableName)

	tag, err := ps.pool.Exec(ctx, stmt, id)
	if err != nil {
		return false, apperr.Wrap("failed to delete policy", 500, err)
	}

	return tag.RowsAffected() > 0, nil
}

// SetEmbedding stores the content embedding used for similarity lookups.
func (ps *PolicyStore) SetEmbedding(ctx context.Context, id string, embedding []float32) error {
	stmt := fmt.Sprintf("UPDATE %s SET embedding = $2 WHERE id = $1", ps.config.TableName)

	_, err := ps.pool.Exec(ctx, stmt, id, pgvector.NewVector(embedding))
	if err != nil {
		return apperr.Wrap("failed to store policy embedding", 500, err)
	}

	return nil
}

// Related returns up to limit policies closest in embedding space to the
// given policy. Policies without an embedding are excluded.
func (ps *PolicyStore) Related(ctx context.Context, id string, limit int) ([]models.Policy, error) {
	if limit <= 0 {
		limit = 5
	}

	query := fmt.Sprintf(`
		SELECT %s FROM %s
		WHERE id <> $1
		  AND embedding IS NOT NULL
		ORDER BY embedding <=> (SELECT embedding FROM %s WHERE id = $1)
		LIMIT $2`, policyColumns, ps.config.TableName, ps.config.TableName)

	rows, err := ps.pool.Query(ctx, query, id, limit)
	if err != nil {
		return nil, apperr.Wrap("failed to find related policies", 500, err)
	}
	defer rows.Close()

	return collectPolicies(rows)
}

func collectPolicies(rows pgx.Rows) ([]models.Policy, error) {
	policies := []models.Policy{}
	for rows.Next() {
		p, err := scanPolicy(rows)
		if err != nil {
			return nil, apperr.Wrap("failed to scan policy row", 500, err)
		}
		policies = append(policies, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, apperr.Wrap("failed to read policy rows", 500, err)
	}
	return policies, nil
}

// Close releases the underlying connection pool.
func (ps *PolicyStore) Close() {
	if ps.pool != nil {
		ps.pool.Close()
	}
}
