package service

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"inventory-catalog/internal/domain"
	"inventory-catalog/internal/repository"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// seedProducts inserts products one second apart, oldest first
func seedProducts(t testing.TB, svc ProductService, clk interface{ Advance(time.Duration) }, n int, categoryID string) {
	t.Helper()

	for i := 0; i < n; i++ {
		_, err := svc.CreateProduct(context.Background(), Candidate{
			Name:        fmt.Sprintf("Product %02d", i),
			Description: "seeded",
			Quantity:    "1",
			Categories:  []string{categoryID},
		})
		require.NoError(t, err)
		clk.Advance(time.Second)
	}
}

func listingNames(items []domain.ProductListing) []string {
	names := make([]string, 0, len(items))
	for _, item := range items {
		names = append(names, item.Name)
	}
	return names
}

func TestBuildProductFilter(t *testing.T) {
	tests := []struct {
		name   string
		search string
		ids    []string
		want   repository.ProductFilter
	}{
		{"empty", "", nil, repository.ProductFilter{}},
		{"blank search kept", "   ", nil, repository.ProductFilter{Search: "   "}},
		{"surrounding spaces kept", "  drill ", nil, repository.ProductFilter{Search: "  drill "}},
		{"blank ids dropped", "", []string{"", " "}, repository.ProductFilter{}},
		{"ids deduplicated", "", []string{"a", " b", "a"}, repository.ProductFilter{CategoryIDs: []string{"a", "b"}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, BuildProductFilter(tt.search, tt.ids))
		})
	}
}

func TestTotalPages(t *testing.T) {
	assert.Equal(t, 0, TotalPages(0, 10))
	assert.Equal(t, 1, TotalPages(1, 10))
	assert.Equal(t, 1, TotalPages(10, 10))
	assert.Equal(t, 3, TotalPages(25, 10))
	assert.Equal(t, 25, TotalPages(25, 1))
}

func TestListProducts_PagesNewestFirst(t *testing.T) {
	store, clk, categories := newTestStore(t, "Books")
	svc := newTestService(t, store)
	seedProducts(t, svc, clk, 25, categories["Books"].ID)
	ctx := context.Background()

	first, err := svc.ListProducts(ctx, ListProductsParams{Page: 1, PageSize: 10})
	require.NoError(t, err)
	assert.Equal(t, 25, first.Total)
	assert.Equal(t, 3, first.Pages)
	assert.Len(t, first.Items, 10)
	assert.Equal(t, "Product 24", first.Items[0].Name)

	third, err := svc.ListProducts(ctx, ListProductsParams{Page: 3, PageSize: 10})
	require.NoError(t, err)
	assert.Len(t, third.Items, 5)
	assert.Equal(t, "Product 00", third.Items[4].Name)

	beyond, err := svc.ListProducts(ctx, ListProductsParams{Page: 4, PageSize: 10})
	require.NoError(t, err)
	assert.Empty(t, beyond.Items)
	assert.Equal(t, 25, beyond.Total)
	assert.Equal(t, 3, beyond.Pages)
}

func TestListProducts_Defaults(t *testing.T) {
	store, clk, categories := newTestStore(t, "Books")
	svc := newTestService(t, store)
	seedProducts(t, svc, clk, 12, categories["Books"].ID)

	page, err := svc.ListProducts(context.Background(), ListProductsParams{Page: -3, PageSize: 0})
	require.NoError(t, err)
	assert.Equal(t, 1, page.Page)
	assert.Equal(t, DefaultPageSize, page.PageSize)
	assert.Len(t, page.Items, DefaultPageSize)
	assert.Equal(t, 2, page.Pages)
}

func TestListProducts_EmptyCatalog(t *testing.T) {
	store, _, _ := newTestStore(t)
	svc := newTestService(t, store)

	page, err := svc.ListProducts(context.Background(), ListProductsParams{})
	require.NoError(t, err)
	assert.NotNil(t, page.Items)
	assert.Empty(t, page.Items)
	assert.Equal(t, 0, page.Total)
	assert.Equal(t, 0, page.Pages)
}

func TestListProducts_HugePageDoesNotOverflow(t *testing.T) {
	store, clk, categories := newTestStore(t, "Books")
	svc := newTestService(t, store)
	seedProducts(t, svc, clk, 3, categories["Books"].ID)

	page, err := svc.ListProducts(context.Background(), ListProductsParams{Page: 1 << 62, PageSize: 1 << 20})
	require.NoError(t, err)
	assert.Empty(t, page.Items)
	assert.Equal(t, 3, page.Total)
}

func TestListProducts_SearchAndCategoryFilters(t *testing.T) {
	store, clk, categories := newTestStore(t, "Electronics", "Home & Garden", "Books")
	svc := newTestService(t, store)
	ctx := context.Background()
	electronics := categories["Electronics"].ID
	garden := categories["Home & Garden"].ID
	books := categories["Books"].ID

	for _, c := range []Candidate{
		{Name: "Cordless Drill", Description: "d", Quantity: "5", Categories: []string{electronics, garden}},
		{Name: "Drill Bits", Description: "d", Quantity: "50", Categories: []string{garden}},
		{Name: "Novel", Description: "d", Quantity: "2", Categories: []string{books}},
	} {
		_, err := svc.CreateProduct(ctx, c)
		require.NoError(t, err)
		clk.Advance(time.Minute)
	}

	page, err := svc.ListProducts(ctx, ListProductsParams{Search: "DRILL"})
	require.NoError(t, err)
	assert.Equal(t, []string{"Drill Bits", "Cordless Drill"}, listingNames(page.Items))

	page, err = svc.ListProducts(ctx, ListProductsParams{CategoryIDs: []string{electronics, books}})
	require.NoError(t, err)
	assert.Equal(t, []string{"Novel", "Cordless Drill"}, listingNames(page.Items))

	page, err = svc.ListProducts(ctx, ListProductsParams{Search: "drill", CategoryIDs: []string{electronics}})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, []domain.CategoryRef{
		{ID: electronics, Name: "Electronics"},
		{ID: garden, Name: "Home & Garden"},
	}, page.Items[0].Categories)

	// Regex metacharacters are matched literally
	page, err = svc.ListProducts(ctx, ListProductsParams{Search: "dr.ll"})
	require.NoError(t, err)
	assert.Empty(t, page.Items)

	page, err = svc.ListProducts(ctx, ListProductsParams{CategoryIDs: []string{"unknown"}})
	require.NoError(t, err)
	assert.Equal(t, 0, page.Total)
}

func TestListProducts_DropsDanglingCategoryRefs(t *testing.T) {
	store, _, categories := newTestStore(t, "Clothing", "Sports")
	svc := newTestService(t, store)
	ctx := context.Background()

	_, err := svc.CreateProduct(ctx, Candidate{
		Name:        "Jersey",
		Description: "d",
		Quantity:    "1",
		Categories:  []string{categories["Clothing"].ID, categories["Sports"].ID},
	})
	require.NoError(t, err)

	store.DeleteCategory(categories["Clothing"].ID)

	page, err := svc.ListProducts(ctx, ListProductsParams{})
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	assert.Equal(t, []domain.CategoryRef{{ID: categories["Sports"].ID, Name: "Sports"}}, page.Items[0].Categories)
}

func TestListProducts_StoreFailure(t *testing.T) {
	q := NewCatalogQuery(failingProducts{}, failingCategories{}, 0)

	_, err := q.ListProducts(context.Background(), ListProductsParams{})
	assert.ErrorIs(t, err, errStoreDown)
}

// Property: walking every page yields the full newest-first listing exactly once
func TestProperty_PaginationPartitionsTheCatalog(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("pages are bounded, counted and disjoint", prop.ForAll(
		func(n int, pageSize int) bool {
			store, clk, categories := newTestStore(t, "Books")
			svc := newTestService(t, store)
			seedProducts(t, svc, clk, n, categories["Books"].ID)
			ctx := context.Background()

			seen := []string{}
			pages := TotalPages(n, pageSize)
			for p := 1; p <= pages+1; p++ {
				page, err := svc.ListProducts(ctx, ListProductsParams{Page: p, PageSize: pageSize})
				if err != nil {
					t.Logf("FAIL: page %d: %v", p, err)
					return false
				}
				if page.Total != n || page.Pages != pages || len(page.Items) > pageSize {
					t.Logf("FAIL: page %d of size %d reported total=%d pages=%d items=%d", p, pageSize, page.Total, page.Pages, len(page.Items))
					return false
				}
				seen = append(seen, listingNames(page.Items)...)
			}

			if len(seen) != n {
				return false
			}
			for i, name := range seen {
				if name != fmt.Sprintf("Product %02d", n-1-i) {
					return false
				}
			}
			return true
		},
		gen.IntRange(0, 30),
		gen.IntRange(1, 12),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

// Property: search matches exactly the names containing the term, ignoring case
func TestProperty_SearchIsCaseInsensitiveSubstring(t *testing.T) {
	store, clk, categories := newTestStore(t, "Books")
	svc := newTestService(t, store)
	ctx := context.Background()

	names := []string{"Garden Hose", "garden gnome", "GARDENING Book", "Hose Reel", "Rake"}
	for _, name := range names {
		_, err := svc.CreateProduct(ctx, Candidate{Name: name, Description: "d", Quantity: "1", Categories: []string{categories["Books"].ID}})
		require.NoError(t, err)
		clk.Advance(time.Second)
	}

	properties := gopter.NewProperties(nil)

	properties.Property("listing agrees with a lower-cased substring test", prop.ForAll(
		func(term string) bool {
			page, err := svc.ListProducts(ctx, ListProductsParams{Search: term, PageSize: 100})
			if err != nil {
				return false
			}
			want := 0
			for _, name := range names {
				if strings.Contains(strings.ToLower(name), strings.ToLower(strings.TrimSpace(term))) {
					want++
				}
			}
			return page.Total == want && len(page.Items) == want
		},
		gen.OneConstOf("garden", "GARDEN", "hose", "HoSe", "ing", "rake", "xyz", "", " r", "e"),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
