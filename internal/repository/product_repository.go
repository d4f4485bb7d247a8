package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"inventory-catalog/internal/domain"

	"github.com/google/uuid"
)

// ProductRepository is the product side of the storage port
type ProductRepository interface {
	FindByName(ctx context.Context, name string) (*domain.Product, error)
	Query(ctx context.Context, filter ProductFilter, sort SortSpec, skip, limit int) ([]*domain.Product, error)
	Count(ctx context.Context, filter ProductFilter) (int, error)
	Insert(ctx context.Context, product domain.NewProduct) (*domain.Product, error)
	Delete(ctx context.Context, id string) (*domain.Product, error)
}

type productRepository struct {
	db      *sql.DB
	timeout time.Duration
}

// NewProductRepository creates a PostgreSQL backed ProductRepository.
// Every statement runs under queryTimeout.
func NewProductRepository(db *sql.DB, queryTimeout time.Duration) ProductRepository {
	return &productRepository{db: db, timeout: queryTimeout}
}

// productColumns selects a product with its category ids in reference order
const productColumns = `
	p.id::text, p.name, p.description, p.quantity, p.created_at,
	COALESCE((
		SELECT string_agg(pc.category_id::text, ',' ORDER BY pc.position)
		FROM product_categories pc
		WHERE pc.product_id = p.id
	), '')
`

var sortColumns = map[string]string{
	"created_at": "p.created_at",
	"name":       "p.name",
	"quantity":   "p.quantity",
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProduct(row rowScanner) (*domain.Product, error) {
	product := &domain.Product{}
	var categoryIDs string
	err := row.Scan(
		&product.ID,
		&product.Name,
		&product.Description,
		&product.Quantity,
		&product.CreatedAt,
		&categoryIDs,
	)
	if err != nil {
		return nil, err
	}
	product.CreatedAt = product.CreatedAt.UTC()
	product.CategoryIDs = []string{}
	if categoryIDs != "" {
		product.CategoryIDs = strings.Split(categoryIDs, ",")
	}
	return product, nil
}

// whereClause renders the filter predicate starting at placeholder argIndex
func whereClause(filter ProductFilter, argIndex int) (string, []any) {
	conditions := []string{}
	args := []any{}

	if filter.Search != "" {
		conditions = append(conditions, fmt.Sprintf(`p.name ILIKE $%d ESCAPE '\'`, argIndex))
		args = append(args, likePattern(filter.Search))
		argIndex++
	}

	if len(filter.CategoryIDs) > 0 {
		conditions = append(conditions, fmt.Sprintf(`EXISTS (
			SELECT 1 FROM product_categories pc
			WHERE pc.product_id = p.id AND pc.category_id::text = ANY($%d::text[])
		)`, argIndex))
		args = append(args, filter.CategoryIDs)
	}

	if len(conditions) == 0 {
		return "", args
	}
	return "WHERE " + strings.Join(conditions, " AND "), args
}

// FindByName retrieves a product by its exact name
func (r *productRepository) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	query := `SELECT ` + productColumns + ` FROM products p WHERE p.name = $1`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, name))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, storageErr("find product by name", err)
	}
	return product, nil
}

// Query retrieves one page of products matching the filter
func (r *productRepository) Query(ctx context.Context, filter ProductFilter, sort SortSpec, skip, limit int) ([]*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// Validate sort field to prevent SQL injection
	column, ok := sortColumns[sort.Field]
	if !ok {
		column = sortColumns["created_at"]
	}
	order := sort.Order
	if order != SortOrderAsc && order != SortOrderDesc {
		order = SortOrderDesc
	}

	where, args := whereClause(filter, 1)
	argIndex := len(args) + 1

	query := fmt.Sprintf(`
		SELECT %s
		FROM products p
		%s
		ORDER BY %s %s, p.id %s
		LIMIT $%d OFFSET $%d
	`, productColumns, where, column, order, order, argIndex, argIndex+1)
	args = append(args, limit, skip)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, storageErr("query products", err)
	}
	defer rows.Close()

	products := []*domain.Product{}
	for rows.Next() {
		product, err := scanProduct(rows)
		if err != nil {
			return nil, storageErr("scan product", err)
		}
		products = append(products, product)
	}

	if err = rows.Err(); err != nil {
		return nil, storageErr("iterate products", err)
	}

	return products, nil
}

// Count returns the number of products matching the filter
func (r *productRepository) Count(ctx context.Context, filter ProductFilter) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	where, args := whereClause(filter, 1)

	var total int
	err := r.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM products p "+where, args...).Scan(&total)
	if err != nil {
		return 0, storageErr("count products", err)
	}
	return total, nil
}

// Insert persists an admitted product together with its category references.
// The products_name_key constraint turns a concurrent duplicate into ErrProductNameTaken.
func (r *productRepository) Insert(ctx context.Context, np domain.NewProduct) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate uuid v7: %w", err)
	}

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, storageErr("begin insert product", err)
	}
	defer tx.Rollback()

	product := &domain.Product{
		ID:          id.String(),
		Name:        np.Name,
		Description: np.Description,
		Quantity:    np.Quantity,
		CategoryIDs: append([]string{}, np.CategoryIDs...),
	}

	err = tx.QueryRowContext(ctx, `
		INSERT INTO products (id, name, description, quantity)
		VALUES ($1, $2, $3, $4)
		RETURNING created_at
	`, id, product.Name, product.Description, product.Quantity).Scan(&product.CreatedAt)
	if err != nil {
		if isPgUniqueViolation(err) {
			return nil, domain.ErrProductNameTaken
		}
		return nil, storageErr("insert product", err)
	}
	product.CreatedAt = product.CreatedAt.UTC()

	for position, categoryID := range product.CategoryIDs {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO product_categories (product_id, category_id, position)
			VALUES ($1, $2, $3)
		`, id, categoryID, position)
		if err != nil {
			return nil, storageErr("insert product category", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, storageErr("commit insert product", err)
	}

	return product, nil
}

// Delete removes a product permanently and returns what was removed
func (r *productRepository) Delete(ctx context.Context, id string) (*domain.Product, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, domain.ErrProductNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	// The outer select still sees the product_categories rows removed by the cascade
	query := `
		WITH p AS (
			DELETE FROM products WHERE id = $1
			RETURNING id, name, description, quantity, created_at
		)
		SELECT ` + productColumns + ` FROM p
	`

	product, err := scanProduct(r.db.QueryRowContext(ctx, query, productID))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrProductNotFound
		}
		return nil, storageErr("delete product", err)
	}
	return product, nil
}
