package database

import (
	"context"
	"errors"
	"fmt"

	"inventory-catalog/internal/domain"
	"inventory-catalog/internal/repository"

	"go.uber.org/zap"
)

// DefaultCategories are created on first start so products can be admitted right away
var DefaultCategories = []string{
	"Electronics",
	"Clothing",
	"Books",
	"Home & Garden",
	"Sports",
}

// SeedCategories creates any of names that do not exist yet and returns how many it created
func SeedCategories(ctx context.Context, categories repository.CategoryRepository, names []string, logger *zap.Logger) (int, error) {
	created := 0
	for _, name := range names {
		err := categories.Create(ctx, &domain.Category{Name: name})
		switch {
		case err == nil:
			created++
		case errors.Is(err, domain.ErrCategoryAlreadyExists):
		default:
			return created, fmt.Errorf("failed to seed category %q: %w", name, err)
		}
	}

	if created > 0 {
		logger.Info("Seeded categories", zap.Int("created", created))
	}
	return created, nil
}
