package service

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"inventory-catalog/internal/domain"
	"inventory-catalog/internal/pkg/clock"
	"inventory-catalog/internal/repository"

	"github.com/stretchr/testify/require"
)

var testEpoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

var errStoreDown = errors.New("connection refused")

// newTestStore returns a memory store holding the given category names
func newTestStore(t testing.TB, names ...string) (*repository.MemoryStore, *clock.Mock, map[string]*domain.Category) {
	t.Helper()

	clk := clock.NewMock(testEpoch)
	store := repository.NewMemoryStore(clk)
	categories := make(map[string]*domain.Category, len(names))
	for _, name := range names {
		c := &domain.Category{Name: name}
		require.NoError(t, store.Categories().Create(context.Background(), c))
		categories[name] = c
	}
	return store, clk, categories
}

func newTestService(t testing.TB, store *repository.MemoryStore) ProductService {
	t.Helper()

	svc, err := NewProductService(store.Products(), store.Categories(), DefaultPageSize)
	require.NoError(t, err)
	return svc
}

// failingProducts is a ProductRepository whose every call fails
type failingProducts struct{}

func (failingProducts) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	return nil, errStoreDown
}

func (failingProducts) Query(ctx context.Context, filter repository.ProductFilter, sort repository.SortSpec, skip, limit int) ([]*domain.Product, error) {
	return nil, errStoreDown
}

func (failingProducts) Count(ctx context.Context, filter repository.ProductFilter) (int, error) {
	return 0, errStoreDown
}

func (failingProducts) Insert(ctx context.Context, product domain.NewProduct) (*domain.Product, error) {
	return nil, errStoreDown
}

func (failingProducts) Delete(ctx context.Context, id string) (*domain.Product, error) {
	return nil, errStoreDown
}

// failingCategories is a CategoryRepository whose every call fails
type failingCategories struct{}

func (failingCategories) Create(ctx context.Context, category *domain.Category) error {
	return errStoreDown
}

func (failingCategories) List(ctx context.Context) ([]*domain.Category, error) {
	return nil, errStoreDown
}

func (failingCategories) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	return nil, errStoreDown
}

func (failingCategories) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Category, error) {
	return nil, errStoreDown
}

// racingProducts reports every name as free but refuses the insert,
// as when another writer claims the name in between
type racingProducts struct {
	repository.ProductRepository
}

func (racingProducts) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	return nil, domain.ErrProductNotFound
}

func (racingProducts) Insert(ctx context.Context, product domain.NewProduct) (*domain.Product, error) {
	return nil, domain.ErrProductNameTaken
}

// caseFoldingCategories resolves ids in any letter case, the way a store that
// parses ids into a native type does, and always returns the stored spelling
type caseFoldingCategories struct {
	repository.CategoryRepository
}

func (c caseFoldingCategories) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	return c.CategoryRepository.FindByID(ctx, strings.ToLower(id))
}
