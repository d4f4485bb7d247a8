//go:build integration

package database

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"inventory-catalog/internal/config"
	"inventory-catalog/internal/domain"
	"inventory-catalog/internal/repository"
	"inventory-catalog/internal/repository/repotest"

	"github.com/google/uuid"
	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

func openPostgresAdapters(t *testing.T) (Service, config.DatabaseConfig) {
	t.Helper()

	cfg := startPostgres(t)
	svc, err := New(context.Background(), cfg, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	require.NoError(t, RunMigrations(svc.DB(), zap.NewNop()))
	return svc, cfg
}

func TestPostgresAdapters_Contract(t *testing.T) {
	svc, cfg := openPostgresAdapters(t)

	repotest.RunAdapterContract(t, func(t *testing.T) (repository.ProductRepository, repository.CategoryRepository, string) {
		_, err := svc.DB().Exec(`TRUNCATE product_categories, products, categories`)
		require.NoError(t, err)
		return repository.NewProductRepository(svc.DB(), cfg.QueryTimeout),
			repository.NewCategoryRepository(svc.DB(), cfg.QueryTimeout),
			uuid.NewString()
	})
}

func TestMongoAdapters_Contract(t *testing.T) {
	ctx := context.Background()

	container, err := mongodb.Run(ctx, "mongo:7")
	require.NoError(t, err)
	t.Cleanup(func() { container.Terminate(context.Background()) })

	uri, err := container.ConnectionString(ctx)
	require.NoError(t, err)

	svc, err := ConnectMongo(ctx, config.MongoConfig{URI: uri, Database: "catalog_test"}, 5, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { svc.Close() })
	require.Equal(t, "up", svc.Health(ctx)["status"])

	repotest.RunAdapterContract(t, func(t *testing.T) (repository.ProductRepository, repository.CategoryRepository, string) {
		// Deleting documents keeps the unique indexes in place
		for _, name := range []string{repository.ProductsCollection, repository.CategoriesCollection} {
			_, err := svc.Database().Collection(name).DeleteMany(ctx, bson.M{})
			require.NoError(t, err)
		}
		return repository.NewMongoProductRepository(svc.Database(), 5*time.Second),
			repository.NewMongoCategoryRepository(svc.Database(), 5*time.Second),
			primitive.NewObjectID().Hex()
	})
}

// Property: an inserted product reads back with every attribute intact,
// and after deletion it is gone from listing and lookup
func TestProperty_PostgresInsertAndDeleteRoundTrip(t *testing.T) {
	svc, cfg := openPostgresAdapters(t)
	ctx := context.Background()
	products := repository.NewProductRepository(svc.DB(), cfg.QueryTimeout)
	categories := repository.NewCategoryRepository(svc.DB(), cfg.QueryTimeout)

	pool := []string{}
	for _, name := range DefaultCategories {
		pool = append(pool, repotest.MustCategory(t, categories, name).ID)
	}

	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 30
	properties := gopter.NewProperties(parameters)
	run := 0

	properties.Property("insert preserves attributes and delete removes", prop.ForAll(
		func(description string, quantity int, picks []int) bool {
			run++
			name := fmt.Sprintf("Product %d", run)
			ids := []string{}
			for _, p := range picks {
				ids = append(ids, pool[p%len(pool)])
			}

			inserted, err := products.Insert(ctx, domain.NewProduct{
				Name: name, Description: description, Quantity: quantity, CategoryIDs: ids,
			})
			if err != nil {
				t.Logf("insert: %v", err)
				return false
			}

			found, err := products.FindByName(ctx, name)
			if err != nil || found.ID != inserted.ID || found.Description != description ||
				found.Quantity != quantity || len(found.CategoryIDs) != len(ids) {
				return false
			}
			for i := range ids {
				if found.CategoryIDs[i] != ids[i] {
					return false
				}
			}

			if _, err := products.Delete(ctx, inserted.ID); err != nil {
				return false
			}
			_, err = products.FindByName(ctx, name)
			if !errors.Is(err, domain.ErrProductNotFound) {
				return false
			}
			total, err := products.Count(ctx, repository.ProductFilter{Search: name})
			return err == nil && total == 0
		},
		gen.AlphaString().SuchThat(func(s string) bool { return s != "" }),
		gen.IntRange(0, 1_000_000),
		gen.SliceOfN(3, gen.IntRange(0, 100)).SuchThat(func(v []int) bool { return len(v) > 0 }),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
