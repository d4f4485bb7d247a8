package repository

import (
	"cmp"
	"context"
	"fmt"
	"slices"
	"strings"
	"sync"

	"inventory-catalog/internal/domain"
	"inventory-catalog/internal/pkg/clock"

	"github.com/google/uuid"
)

// MemoryStore keeps products and categories in process memory.
// It backs STORAGE_DRIVER=memory and stands in for a real store in tests.
type MemoryStore struct {
	mu         sync.RWMutex
	clock      clock.Clock
	seq        int64
	products   []memoryProduct
	categories map[string]*domain.Category
}

type memoryProduct struct {
	seq     int64
	product domain.Product
}

// NewMemoryStore creates an empty store stamping records with clk
func NewMemoryStore(clk clock.Clock) *MemoryStore {
	if clk == nil {
		clk = clock.New()
	}
	return &MemoryStore{
		clock:      clk,
		categories: make(map[string]*domain.Category),
	}
}

// Products returns the store's ProductRepository view
func (s *MemoryStore) Products() ProductRepository {
	return memoryProducts{s}
}

// Categories returns the store's CategoryRepository view
func (s *MemoryStore) Categories() CategoryRepository {
	return memoryCategories{s}
}

// Clear removes every product, keeping categories
func (s *MemoryStore) Clear() {
	s.mu.Lock()
	s.products = nil
	s.mu.Unlock()
}

// DeleteCategory removes a category without touching products referencing it
func (s *MemoryStore) DeleteCategory(id string) {
	s.mu.Lock()
	delete(s.categories, id)
	s.mu.Unlock()
}

func cloneProduct(p domain.Product) *domain.Product {
	p.CategoryIDs = append([]string{}, p.CategoryIDs...)
	return &p
}

func cloneCategory(c *domain.Category) *domain.Category {
	cp := *c
	return &cp
}

type memoryProducts struct{ s *MemoryStore }

func (r memoryProducts) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	for _, mp := range r.s.products {
		if mp.product.Name == name {
			return cloneProduct(mp.product), nil
		}
	}
	return nil, domain.ErrProductNotFound
}

func (r memoryProducts) matching(filter ProductFilter) []memoryProduct {
	matched := []memoryProduct{}
	for _, mp := range r.s.products {
		if filter.Matches(&mp.product) {
			matched = append(matched, mp)
		}
	}
	return matched
}

func (r memoryProducts) Query(ctx context.Context, filter ProductFilter, sort SortSpec, skip, limit int) ([]*domain.Product, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	matched := r.matching(filter)

	slices.SortStableFunc(matched, func(a, b memoryProduct) int {
		var c int
		switch sort.Field {
		case "name":
			c = strings.Compare(a.product.Name, b.product.Name)
		case "quantity":
			c = cmp.Compare(a.product.Quantity, b.product.Quantity)
		default:
			c = a.product.CreatedAt.Compare(b.product.CreatedAt)
		}
		if c == 0 {
			c = cmp.Compare(a.seq, b.seq)
		}
		if sort.Order == SortOrderAsc {
			return c
		}
		return -c
	})

	products := []*domain.Product{}
	if skip < 0 || skip >= len(matched) || limit <= 0 {
		return products, nil
	}
	end := min(skip+limit, len(matched))
	if skip+limit < skip {
		end = len(matched)
	}
	for _, mp := range matched[skip:end] {
		products = append(products, cloneProduct(mp.product))
	}
	return products, nil
}

func (r memoryProducts) Count(ctx context.Context, filter ProductFilter) (int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	return len(r.matching(filter)), nil
}

func (r memoryProducts) Insert(ctx context.Context, np domain.NewProduct) (*domain.Product, error) {
	id, err := uuid.NewV7()
	if err != nil {
		return nil, fmt.Errorf("generate uuid v7: %w", err)
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, mp := range r.s.products {
		if mp.product.Name == np.Name {
			return nil, domain.ErrProductNameTaken
		}
	}

	r.s.seq++
	product := domain.Product{
		ID:          id.String(),
		Name:        np.Name,
		Description: np.Description,
		Quantity:    np.Quantity,
		CategoryIDs: append([]string{}, np.CategoryIDs...),
		CreatedAt:   r.s.clock.Now(),
	}
	r.s.products = append(r.s.products, memoryProduct{seq: r.s.seq, product: product})

	return cloneProduct(product), nil
}

func (r memoryProducts) Delete(ctx context.Context, id string) (*domain.Product, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for i, mp := range r.s.products {
		if mp.product.ID == id {
			r.s.products = slices.Delete(r.s.products, i, i+1)
			return cloneProduct(mp.product), nil
		}
	}
	return nil, domain.ErrProductNotFound
}

type memoryCategories struct{ s *MemoryStore }

func (r memoryCategories) Create(ctx context.Context, category *domain.Category) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	for _, c := range r.s.categories {
		if c.Name == category.Name {
			return domain.ErrCategoryAlreadyExists
		}
	}

	if category.ID == "" {
		id, err := uuid.NewV7()
		if err != nil {
			return fmt.Errorf("generate uuid v7: %w", err)
		}
		category.ID = id.String()
	}
	if category.CreatedAt.IsZero() {
		category.CreatedAt = r.s.clock.Now()
	}
	r.s.categories[category.ID] = cloneCategory(category)
	return nil
}

func (r memoryCategories) List(ctx context.Context) ([]*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	categories := make([]*domain.Category, 0, len(r.s.categories))
	for _, c := range r.s.categories {
		categories = append(categories, cloneCategory(c))
	}
	slices.SortFunc(categories, func(a, b *domain.Category) int {
		return cmp.Or(strings.Compare(a.Name, b.Name), strings.Compare(a.ID, b.ID))
	})
	return categories, nil
}

func (r memoryCategories) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	c, ok := r.s.categories[id]
	if !ok {
		return nil, domain.ErrCategoryNotFound
	}
	return cloneCategory(c), nil
}

func (r memoryCategories) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Category, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	found := make(map[string]*domain.Category, len(ids))
	for _, id := range ids {
		if c, ok := r.s.categories[id]; ok {
			found[id] = cloneCategory(c)
		}
	}
	return found, nil
}
