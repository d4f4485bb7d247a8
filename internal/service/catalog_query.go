package service

import (
	"context"
	"fmt"
	"math"
	"slices"
	"strings"

	"inventory-catalog/internal/domain"
	"inventory-catalog/internal/repository"

	"golang.org/x/sync/errgroup"
)

// DefaultPageSize applies when a listing request has no usable page size
const DefaultPageSize = 10

// ListProductsParams is a listing request. Zero or negative paging values fall back to defaults.
type ListProductsParams struct {
	Page        int
	PageSize    int
	Search      string
	CategoryIDs []string
}

// ProductPage is one page of a product listing
type ProductPage struct {
	Items    []domain.ProductListing
	Total    int
	Page     int
	PageSize int
	Pages    int
}

// BuildProductFilter maps raw search input onto a ProductFilter.
// The search text is matched as given, so only an empty search disables it.
// Blank ids are ignored.
func BuildProductFilter(search string, categoryIDs []string) repository.ProductFilter {
	filter := repository.ProductFilter{Search: search}
	for _, id := range categoryIDs {
		id = strings.TrimSpace(id)
		if id == "" || slices.Contains(filter.CategoryIDs, id) {
			continue
		}
		filter.CategoryIDs = append(filter.CategoryIDs, id)
	}
	return filter
}

// TotalPages is ceil(total / pageSize), zero for an empty result
func TotalPages(total, pageSize int) int {
	if total <= 0 || pageSize <= 0 {
		return 0
	}
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	return pages
}

// pageOffset returns (page-1)*pageSize, saturating instead of overflowing
func pageOffset(page, pageSize int) int {
	if page-1 > math.MaxInt/pageSize {
		return math.MaxInt
	}
	return (page - 1) * pageSize
}

// CatalogQuery answers paginated, filtered product listings.
// It holds no mutable state and is safe for concurrent use.
type CatalogQuery struct {
	products        repository.ProductRepository
	categories      repository.CategoryRepository
	defaultPageSize int
}

// NewCatalogQuery creates a CatalogQuery over the given repositories
func NewCatalogQuery(products repository.ProductRepository, categories repository.CategoryRepository, defaultPageSize int) *CatalogQuery {
	if defaultPageSize < 1 {
		defaultPageSize = DefaultPageSize
	}
	return &CatalogQuery{
		products:        products,
		categories:      categories,
		defaultPageSize: defaultPageSize,
	}
}

// ListProducts returns the requested page, newest products first, with categories populated
func (q *CatalogQuery) ListProducts(ctx context.Context, params ListProductsParams) (*ProductPage, error) {
	page := params.Page
	if page < 1 {
		page = 1
	}
	pageSize := params.PageSize
	if pageSize < 1 {
		pageSize = q.defaultPageSize
	}

	filter := BuildProductFilter(params.Search, params.CategoryIDs)

	var (
		total    int
		products []*domain.Product
	)
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		total, err = q.products.Count(gctx, filter)
		if err != nil {
			return fmt.Errorf("count products: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		products, err = q.products.Query(gctx, filter, repository.SortNewestFirst, pageOffset(page, pageSize), pageSize)
		if err != nil {
			return fmt.Errorf("query products: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	items, err := q.populate(ctx, products)
	if err != nil {
		return nil, err
	}

	return &ProductPage{
		Items:    items,
		Total:    total,
		Page:     page,
		PageSize: pageSize,
		Pages:    TotalPages(total, pageSize),
	}, nil
}

// populate resolves every category reference on the page with a single lookup
func (q *CatalogQuery) populate(ctx context.Context, products []*domain.Product) ([]domain.ProductListing, error) {
	items := make([]domain.ProductListing, 0, len(products))
	if len(products) == 0 {
		return items, nil
	}

	ids := []string{}
	for _, p := range products {
		for _, id := range p.CategoryIDs {
			if !slices.Contains(ids, id) {
				ids = append(ids, id)
			}
		}
	}

	known, err := q.categories.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("resolve categories: %w", err)
	}

	for _, p := range products {
		items = append(items, p.Populate(known))
	}
	return items, nil
}
