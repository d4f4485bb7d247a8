package database

import (
	"context"
	"errors"
	"testing"

	"inventory-catalog/internal/domain"
	"inventory-catalog/internal/pkg/clock"
	"inventory-catalog/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestSeedCategories_IsIdempotent(t *testing.T) {
	store := repository.NewMemoryStore(clock.New())
	ctx := context.Background()

	created, err := SeedCategories(ctx, store.Categories(), DefaultCategories, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, len(DefaultCategories), created)

	created, err = SeedCategories(ctx, store.Categories(), DefaultCategories, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, 0, created)

	categories, err := store.Categories().List(ctx)
	require.NoError(t, err)

	names := make([]string, 0, len(categories))
	for _, c := range categories {
		names = append(names, c.Name)
	}
	assert.Equal(t, []string{"Books", "Clothing", "Electronics", "Home & Garden", "Sports"}, names)
}

type brokenCategories struct {
	repository.CategoryRepository
}

func (brokenCategories) Create(ctx context.Context, category *domain.Category) error {
	return errors.New("disk full")
}

func TestSeedCategories_StopsOnStoreFailure(t *testing.T) {
	created, err := SeedCategories(context.Background(), brokenCategories{}, DefaultCategories, zap.NewNop())
	require.Error(t, err)
	assert.Contains(t, err.Error(), `"Electronics"`)
	assert.Equal(t, 0, created)
}
