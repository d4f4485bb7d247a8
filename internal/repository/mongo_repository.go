package repository

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"inventory-catalog/internal/domain"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	ProductsCollection   = "products"
	CategoriesCollection = "categories"
)

type productDocument struct {
	ID          primitive.ObjectID   `bson:"_id,omitempty"`
	Name        string               `bson:"name"`
	Description string               `bson:"description"`
	Quantity    int                  `bson:"quantity"`
	Categories  []primitive.ObjectID `bson:"categories"`
	CreatedAt   time.Time            `bson:"createdAt"`
}

func (d productDocument) toDomain() *domain.Product {
	ids := make([]string, 0, len(d.Categories))
	for _, id := range d.Categories {
		ids = append(ids, id.Hex())
	}
	return &domain.Product{
		ID:          d.ID.Hex(),
		Name:        d.Name,
		Description: d.Description,
		Quantity:    d.Quantity,
		CategoryIDs: ids,
		CreatedAt:   d.CreatedAt.UTC(),
	}
}

type categoryDocument struct {
	ID        primitive.ObjectID `bson:"_id,omitempty"`
	Name      string             `bson:"name"`
	CreatedAt time.Time          `bson:"createdAt"`
}

func (d categoryDocument) toDomain() *domain.Category {
	return &domain.Category{ID: d.ID.Hex(), Name: d.Name, CreatedAt: d.CreatedAt.UTC()}
}

// objectIDs keeps the ids that are valid ObjectIDs. The result is never nil
// so an all-invalid list still encodes as an empty array.
func objectIDs(ids []string) []primitive.ObjectID {
	oids := make([]primitive.ObjectID, 0, len(ids))
	for _, id := range ids {
		oid, err := primitive.ObjectIDFromHex(id)
		if err != nil {
			continue
		}
		oids = append(oids, oid)
	}
	return oids
}

// mongoFilter translates ProductFilter into a query document
func mongoFilter(filter ProductFilter) bson.M {
	query := bson.M{}
	if filter.Search != "" {
		query["name"] = primitive.Regex{Pattern: regexp.QuoteMeta(filter.Search), Options: "i"}
	}
	if len(filter.CategoryIDs) > 0 {
		query["categories"] = bson.M{"$in": objectIDs(filter.CategoryIDs)}
	}
	return query
}

var mongoSortFields = map[string]string{
	"created_at": "createdAt",
	"name":       "name",
	"quantity":   "quantity",
}

func mongoSort(sort SortSpec) bson.D {
	field, ok := mongoSortFields[sort.Field]
	if !ok {
		field = "createdAt"
	}
	dir := -1
	if sort.Order == SortOrderAsc {
		dir = 1
	}
	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}

// EnsureMongoIndexes creates the unique name index and the category lookup index
func EnsureMongoIndexes(ctx context.Context, db *mongo.Database) error {
	_, err := db.Collection(ProductsCollection).Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "name", Value: 1}}, Options: options.Index().SetUnique(true)},
		{Keys: bson.D{{Key: "categories", Value: 1}}},
		{Keys: bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}},
	})
	if err != nil {
		return fmt.Errorf("failed to create product indexes: %w", err)
	}

	_, err = db.Collection(CategoriesCollection).Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "name", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return fmt.Errorf("failed to create category indexes: %w", err)
	}
	return nil
}

type mongoProductRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewMongoProductRepository creates a MongoDB backed ProductRepository
func NewMongoProductRepository(db *mongo.Database, queryTimeout time.Duration) ProductRepository {
	return &mongoProductRepository{coll: db.Collection(ProductsCollection), timeout: queryTimeout}
}

func (r *mongoProductRepository) FindByName(ctx context.Context, name string) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var doc productDocument
	if err := r.coll.FindOne(ctx, bson.M{"name": name}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		return nil, storageErr("find product by name", err)
	}
	return doc.toDomain(), nil
}

func (r *mongoProductRepository) Query(ctx context.Context, filter ProductFilter, sort SortSpec, skip, limit int) ([]*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	opts := options.Find().
		SetSort(mongoSort(sort)).
		SetSkip(int64(skip)).
		SetLimit(int64(limit))

	cursor, err := r.coll.Find(ctx, mongoFilter(filter), opts)
	if err != nil {
		return nil, storageErr("query products", err)
	}

	var docs []productDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr("decode products", err)
	}

	products := make([]*domain.Product, 0, len(docs))
	for _, doc := range docs {
		products = append(products, doc.toDomain())
	}
	return products, nil
}

func (r *mongoProductRepository) Count(ctx context.Context, filter ProductFilter) (int, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	total, err := r.coll.CountDocuments(ctx, mongoFilter(filter))
	if err != nil {
		return 0, storageErr("count products", err)
	}
	return int(total), nil
}

func (r *mongoProductRepository) Insert(ctx context.Context, np domain.NewProduct) (*domain.Product, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc := productDocument{
		ID:          primitive.NewObjectID(),
		Name:        np.Name,
		Description: np.Description,
		Quantity:    np.Quantity,
		Categories:  objectIDs(np.CategoryIDs),
		// BSON dates carry millisecond precision
		CreatedAt: time.Now().UTC().Truncate(time.Millisecond),
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if isMongoDuplicateKey(err) {
			return nil, domain.ErrProductNameTaken
		}
		return nil, storageErr("insert product", err)
	}
	return doc.toDomain(), nil
}

func (r *mongoProductRepository) Delete(ctx context.Context, id string) (*domain.Product, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrProductNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var doc productDocument
	if err := r.coll.FindOneAndDelete(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrProductNotFound
		}
		return nil, storageErr("delete product", err)
	}
	return doc.toDomain(), nil
}

type mongoCategoryRepository struct {
	coll    *mongo.Collection
	timeout time.Duration
}

// NewMongoCategoryRepository creates a MongoDB backed CategoryRepository
func NewMongoCategoryRepository(db *mongo.Database, queryTimeout time.Duration) CategoryRepository {
	return &mongoCategoryRepository{coll: db.Collection(CategoriesCollection), timeout: queryTimeout}
}

func (r *mongoCategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	doc := categoryDocument{Name: category.Name, CreatedAt: category.CreatedAt}
	if category.ID != "" {
		oid, err := primitive.ObjectIDFromHex(category.ID)
		if err != nil {
			return fmt.Errorf("invalid category id %q: %w", category.ID, err)
		}
		doc.ID = oid
	} else {
		doc.ID = primitive.NewObjectID()
	}
	if doc.CreatedAt.IsZero() {
		doc.CreatedAt = time.Now().UTC().Truncate(time.Millisecond)
	}

	if _, err := r.coll.InsertOne(ctx, doc); err != nil {
		if isMongoDuplicateKey(err) {
			return domain.ErrCategoryAlreadyExists
		}
		return storageErr("create category", err)
	}

	category.ID = doc.ID.Hex()
	category.CreatedAt = doc.CreatedAt
	return nil
}

func (r *mongoCategoryRepository) List(ctx context.Context) ([]*domain.Category, error) {
	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "name", Value: 1}}))
	if err != nil {
		return nil, storageErr("list categories", err)
	}
	return decodeCategories(ctx, cursor)
}

func (r *mongoCategoryRepository) FindByID(ctx context.Context, id string) (*domain.Category, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, domain.ErrCategoryNotFound
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	var doc categoryDocument
	if err := r.coll.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, domain.ErrCategoryNotFound
		}
		return nil, storageErr("find category by ID", err)
	}
	return doc.toDomain(), nil
}

func (r *mongoCategoryRepository) FindByIDs(ctx context.Context, ids []string) (map[string]*domain.Category, error) {
	found := make(map[string]*domain.Category, len(ids))
	oids := objectIDs(ids)
	if len(oids) == 0 {
		return found, nil
	}

	ctx, cancel := context.WithTimeout(ctx, r.timeout)
	defer cancel()

	cursor, err := r.coll.Find(ctx, bson.M{"_id": bson.M{"$in": oids}})
	if err != nil {
		return nil, storageErr("resolve categories", err)
	}
	categories, err := decodeCategories(ctx, cursor)
	if err != nil {
		return nil, err
	}
	for _, c := range categories {
		found[c.ID] = c
	}
	return found, nil
}

func decodeCategories(ctx context.Context, cursor *mongo.Cursor) ([]*domain.Category, error) {
	var docs []categoryDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, storageErr("decode categories", err)
	}
	categories := make([]*domain.Category, 0, len(docs))
	for _, doc := range docs {
		categories = append(categories, doc.toDomain())
	}
	return categories, nil
}
