// Package repotest holds the behavior every storage adapter must share.
package repotest

import (
	"context"
	"fmt"
	"testing"

	"inventory-catalog/internal/domain"
	"inventory-catalog/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// AdapterFactory returns empty repositories backed by one store,
// plus an id in the store's format that matches nothing
type AdapterFactory func(t *testing.T) (repository.ProductRepository, repository.CategoryRepository, string)

// ProductNames lists the names of products in order
func ProductNames(products []*domain.Product) []string {
	names := make([]string, 0, len(products))
	for _, p := range products {
		names = append(names, p.Name)
	}
	return names
}

// MustCategory creates a category or fails the test
func MustCategory(t *testing.T, repo repository.CategoryRepository, name string) *domain.Category {
	t.Helper()

	c := &domain.Category{Name: name}
	require.NoError(t, repo.Create(context.Background(), c))
	return c
}

// MustInsert inserts a product or fails the test
func MustInsert(t *testing.T, repo repository.ProductRepository, name string, categoryIDs ...string) *domain.Product {
	t.Helper()

	p, err := repo.Insert(context.Background(), domain.NewProduct{
		Name:        name,
		Description: "Description of " + name,
		Quantity:    len(name),
		CategoryIDs: categoryIDs,
	})
	require.NoError(t, err)
	return p
}

// RunAdapterContract checks newAdapter against the storage port semantics
func RunAdapterContract(t *testing.T, newAdapter AdapterFactory) {
	t.Run("insert and find by name", func(t *testing.T) {
		products, categories, _ := newAdapter(t)
		ctx := context.Background()
		a := MustCategory(t, categories, "Electronics")
		b := MustCategory(t, categories, "Home & Garden")

		inserted := MustInsert(t, products, "Drill", b.ID, a.ID)
		assert.NotEmpty(t, inserted.ID)
		assert.False(t, inserted.CreatedAt.IsZero())
		assert.Equal(t, []string{b.ID, a.ID}, inserted.CategoryIDs)

		found, err := products.FindByName(ctx, "Drill")
		require.NoError(t, err)
		assert.Equal(t, inserted.ID, found.ID)
		assert.Equal(t, "Description of Drill", found.Description)
		assert.Equal(t, 5, found.Quantity)
		assert.Equal(t, []string{b.ID, a.ID}, found.CategoryIDs)
		assert.True(t, inserted.CreatedAt.Equal(found.CreatedAt))

		_, err = products.FindByName(ctx, "drill")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
	})

	t.Run("duplicate name is rejected", func(t *testing.T) {
		products, categories, _ := newAdapter(t)
		c := MustCategory(t, categories, "Books")
		MustInsert(t, products, "Atlas", c.ID)

		_, err := products.Insert(context.Background(), domain.NewProduct{
			Name: "Atlas", Description: "again", Quantity: 1, CategoryIDs: []string{c.ID},
		})
		assert.ErrorIs(t, err, domain.ErrProductNameTaken)

		total, err := products.Count(context.Background(), repository.ProductFilter{})
		require.NoError(t, err)
		assert.Equal(t, 1, total)
	})

	t.Run("query orders newest first and pages", func(t *testing.T) {
		products, categories, _ := newAdapter(t)
		ctx := context.Background()
		c := MustCategory(t, categories, "Books")
		for i := 0; i < 7; i++ {
			MustInsert(t, products, fmt.Sprintf("Book %d", i), c.ID)
		}

		page, err := products.Query(ctx, repository.ProductFilter{}, repository.SortNewestFirst, 0, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"Book 6", "Book 5", "Book 4"}, ProductNames(page))

		page, err = products.Query(ctx, repository.ProductFilter{}, repository.SortNewestFirst, 6, 3)
		require.NoError(t, err)
		assert.Equal(t, []string{"Book 0"}, ProductNames(page))

		page, err = products.Query(ctx, repository.ProductFilter{}, repository.SortNewestFirst, 7, 3)
		require.NoError(t, err)
		assert.Empty(t, page)

		page, err = products.Query(ctx, repository.ProductFilter{}, repository.SortSpec{Field: "created_at", Order: repository.SortOrderAsc}, 0, 2)
		require.NoError(t, err)
		assert.Equal(t, []string{"Book 0", "Book 1"}, ProductNames(page))
	})

	t.Run("search is a literal case-insensitive substring", func(t *testing.T) {
		products, categories, _ := newAdapter(t)
		ctx := context.Background()
		c := MustCategory(t, categories, "Clothing")
		MustInsert(t, products, "100% Cotton Shirt", c.ID)
		MustInsert(t, products, "Cotton_Socks", c.ID)
		MustInsert(t, products, "Wool (Blend) Hat", c.ID)
		MustInsert(t, products, "COTTON candy", c.ID)

		tests := []struct {
			search string
			want   []string
		}{
			{"cotton", []string{"COTTON candy", "Cotton_Socks", "100% Cotton Shirt"}},
			{"%", []string{"100% Cotton Shirt"}},
			{"_", []string{"Cotton_Socks"}},
			{"(blend)", []string{"Wool (Blend) Hat"}},
			{".*", []string{}},
		}
		for _, tt := range tests {
			filter := repository.ProductFilter{Search: tt.search}

			page, err := products.Query(ctx, filter, repository.SortNewestFirst, 0, 10)
			require.NoError(t, err)
			assert.Equal(t, tt.want, ProductNames(page), "search %q", tt.search)

			total, err := products.Count(ctx, filter)
			require.NoError(t, err)
			assert.Equal(t, len(tt.want), total, "count %q", tt.search)
		}
	})

	t.Run("category filter matches any listed category", func(t *testing.T) {
		products, categories, unknownID := newAdapter(t)
		ctx := context.Background()
		electronics := MustCategory(t, categories, "Electronics")
		sports := MustCategory(t, categories, "Sports")
		books := MustCategory(t, categories, "Books")
		MustInsert(t, products, "Watch", electronics.ID, sports.ID)
		MustInsert(t, products, "Ball", sports.ID)
		MustInsert(t, products, "Novel", books.ID)

		page, err := products.Query(ctx, repository.ProductFilter{CategoryIDs: []string{electronics.ID, books.ID}}, repository.SortNewestFirst, 0, 10)
		require.NoError(t, err)
		assert.Equal(t, []string{"Novel", "Watch"}, ProductNames(page))

		total, err := products.Count(ctx, repository.ProductFilter{Search: "a", CategoryIDs: []string{sports.ID}})
		require.NoError(t, err)
		assert.Equal(t, 2, total)

		total, err = products.Count(ctx, repository.ProductFilter{CategoryIDs: []string{unknownID, "not-an-id"}})
		require.NoError(t, err)
		assert.Equal(t, 0, total)
	})

	t.Run("delete returns the removed product", func(t *testing.T) {
		products, categories, unknownID := newAdapter(t)
		ctx := context.Background()
		c := MustCategory(t, categories, "Sports")
		p := MustInsert(t, products, "Racket", c.ID)

		deleted, err := products.Delete(ctx, p.ID)
		require.NoError(t, err)
		assert.Equal(t, "Racket", deleted.Name)
		assert.Equal(t, []string{c.ID}, deleted.CategoryIDs)

		_, err = products.Delete(ctx, p.ID)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
		_, err = products.Delete(ctx, unknownID)
		assert.ErrorIs(t, err, domain.ErrProductNotFound)
		_, err = products.Delete(ctx, "not-an-id")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)

		_, err = products.FindByName(ctx, "Racket")
		assert.ErrorIs(t, err, domain.ErrProductNotFound)

		// The name is free again
		MustInsert(t, products, "Racket", c.ID)
	})

	t.Run("categories", func(t *testing.T) {
		_, categories, unknownID := newAdapter(t)
		ctx := context.Background()
		sports := MustCategory(t, categories, "Sports")
		books := MustCategory(t, categories, "Books")
		assert.NotEmpty(t, sports.ID)
		assert.False(t, sports.CreatedAt.IsZero())

		err := categories.Create(ctx, &domain.Category{Name: "Sports"})
		assert.ErrorIs(t, err, domain.ErrCategoryAlreadyExists)

		list, err := categories.List(ctx)
		require.NoError(t, err)
		require.Len(t, list, 2)
		assert.Equal(t, "Books", list[0].Name)
		assert.Equal(t, "Sports", list[1].Name)

		found, err := categories.FindByID(ctx, books.ID)
		require.NoError(t, err)
		assert.Equal(t, "Books", found.Name)

		_, err = categories.FindByID(ctx, unknownID)
		assert.ErrorIs(t, err, domain.ErrCategoryNotFound)
		_, err = categories.FindByID(ctx, "not-an-id")
		assert.ErrorIs(t, err, domain.ErrCategoryNotFound)

		resolved, err := categories.FindByIDs(ctx, []string{sports.ID, unknownID, "not-an-id", books.ID})
		require.NoError(t, err)
		assert.Len(t, resolved, 2)
		assert.Equal(t, "Sports", resolved[sports.ID].Name)
		assert.Equal(t, "Books", resolved[books.ID].Name)

		resolved, err = categories.FindByIDs(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, resolved)
	})
}
