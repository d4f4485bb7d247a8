package service

import (
	"context"
	"errors"
	"fmt"

	"inventory-catalog/internal/domain"
	"inventory-catalog/internal/repository"
)

// ProductService defines the interface for catalog business logic
type ProductService interface {
	CreateProduct(ctx context.Context, candidate Candidate) (*domain.ProductListing, error)
	ListProducts(ctx context.Context, params ListProductsParams) (*ProductPage, error)
	DeleteProduct(ctx context.Context, id string) (*domain.Product, error)
	ListCategories(ctx context.Context) ([]*domain.Category, error)
}

type productService struct {
	productRepo  repository.ProductRepository
	categoryRepo repository.CategoryRepository
	validator    *ProductValidator
	query        *CatalogQuery
}

// NewProductService creates a new instance of ProductService
func NewProductService(
	productRepo repository.ProductRepository,
	categoryRepo repository.CategoryRepository,
	defaultPageSize int,
) (ProductService, error) {
	validator, err := NewProductValidator(productRepo, categoryRepo)
	if err != nil {
		return nil, err
	}

	return &productService{
		productRepo:  productRepo,
		categoryRepo: categoryRepo,
		validator:    validator,
		query:        NewCatalogQuery(productRepo, categoryRepo, defaultPageSize),
	}, nil
}

// CreateProduct admits and stores a candidate, returning it with categories populated
func (s *productService) CreateProduct(ctx context.Context, candidate Candidate) (*domain.ProductListing, error) {
	admission, err := s.validator.Validate(ctx, candidate)
	if err != nil {
		return nil, err
	}

	product, err := s.productRepo.Insert(ctx, admission.Product)
	if err != nil {
		// Another request took the name between validation and insert
		if errors.Is(err, domain.ErrProductNameTaken) {
			return nil, &domain.ValidationError{Violations: []domain.Violation{
				{Field: "name", Message: MsgNameNotUnique},
			}}
		}
		return nil, fmt.Errorf("failed to create product: %w", err)
	}

	listing := domain.ProductListing{Product: *product, Categories: admission.CategoryRefs()}
	return &listing, nil
}

// ListProducts returns one page of the catalog
func (s *productService) ListProducts(ctx context.Context, params ListProductsParams) (*ProductPage, error) {
	page, err := s.query.ListProducts(ctx, params)
	if err != nil {
		return nil, fmt.Errorf("failed to list products: %w", err)
	}
	return page, nil
}

// DeleteProduct removes a product by id and returns what was removed
func (s *productService) DeleteProduct(ctx context.Context, id string) (*domain.Product, error) {
	product, err := s.productRepo.Delete(ctx, id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			return nil, err
		}
		return nil, fmt.Errorf("failed to delete product: %w", err)
	}
	return product, nil
}

// ListCategories returns every category ordered by name
func (s *productService) ListCategories(ctx context.Context) ([]*domain.Category, error) {
	categories, err := s.categoryRepo.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list categories: %w", err)
	}
	return categories, nil
}
