package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"inventory-catalog/internal/domain"

	"github.com/google/uuid"
)

// CategoryRepository is the category side of the storage port
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	List(ctx context.Context) ([]*domain.Category, error)
	FindByID(ctx context.Context, id string) (*domain.Category, error)
	FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Category, error)
}

type categoryRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewCategoryRepository creates a PostgreSQL backed CategoryRepository
func NewCategoryRepository(db *sql.DB, queryTimeout time.Duration) CategoryRepository {
	return &categoryRepository{db: db, timeout: queryTimeout}
}

// Create inserts a new category. ID and CreatedAt are assigned when empty.
func (r *categoryRepository) Create(ctx context.Context, category *domain.Category) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	if category.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate uuid v7: %w", err)
		}
		category.ID = id.String()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = time.Now().UTC()
	}

	query := `
		INSERT INTO categories (id, name, created_at)
		VALUES ($1, $2, $3)
	`

	_, err := r.db.ExecContext(ctx, query, category.ID, category.Name, category.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return domain.ErrCategoryAlreadyExists
		}
		return storageErr("create category", err)
	}

	return nil
}

// List retrieves all categories ordered by name
func (r *categoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id::text, name, created_at
		FROM categories
		ORDER BY name ASC
	`

	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	defer rows.Close()

	categories := []*domain.Category{}
	for rows.Next() {
		category := &domain.Category{}
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
			return nil, storageErr("scan category", err)
		}
		categories = append(categories, category)
	}

	if err = rows.Err(); err != nil {
		return nil, storageErr("iterate categories", err)
	}

	return categories, nil
}

// FindByID retrieves a category by ID. An id that is not a UUID cannot exist.
func (r *categoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	categoryID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrCategoryNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id::text, name, created_at
		FROM categories
		WHERE id = $1
	`

	category := &domain.Category{}
	err = r.db.QueryRowContext(ctx, query, categoryID).Scan(
		&category.ID,
		&category.Name,
		&category.CreatedAt,
	)

	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, storageErr("find category by ID", err)
	}

	return category, nil
}

// FindByIDs resolves many category ids in one round trip. Unknown ids are omitted.
func (r *categoryRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Category, error) {
	found := make(map[string]*domain.Category, len(ids))
	if len(ids) == 0 {
		return found, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `
		SELECT id::text, name, created_at
		FROM categories
		WHERE id::text = ANY($1::text[])
	`

	rows, err := r.db.QueryContext(ctx, query, ids)
	if err != nil {
		return nil, storageErr("resolve categories", err)
	}
	defer rows.Close()

	for rows.Next() {
		category := &domain.Category{}
		if err := rows.Scan(&category.ID, &category.Name, &category.CreatedAt); err != nil {
			return nil, storageErr("scan category", err)
		}
		found[category.ID] = category
	}

	if err = rows.Err(); err != nil {
		return nil, storageErr("iterate categories", err)
	}

	return found, nil
}
