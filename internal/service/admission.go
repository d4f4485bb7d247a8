package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"slices"
	"strconv"
	"strings"

	"inventory-catalog/internal/domain"
	"inventory-catalog/internal/repository"

	"github.com/go-playground/validator/v10"
	"golang.org/x/sync/errgroup"
)

const (
	MsgNameRequired        = "Name is required"
	MsgNameNotUnique       = "Product name must be unique"
	MsgDescriptionRequired = "Description is required"
	MsgQuantityInvalid     = "Quantity must be a non-negative integer"
	MsgCategoriesRequired  = "At least one category is required"
)

// fieldMessages maps a structurally invalid field to its violation message
var fieldMessages = map[string]string{
	"name":        MsgNameRequired,
	"description": MsgDescriptionRequired,
	"quantity":    MsgQuantityInvalid,
	"categories":  MsgCategoriesRequired,
}

var fieldOrder = []string{"name", "description", "quantity", "categories"}

// integerPattern accepts base-10 integers without leading zeros
var integerPattern = regexp.MustCompile(`^[-+]?(0|[1-9][0-9]*)$`)

// Candidate is an unvalidated product submission. Quantity is kept as
// submitted text so that non-numeric input becomes a violation, not a decode error.
type Candidate struct {
	Name        string   `json:"name" validate:"required"`
	Description string   `json:"description" validate:"required"`
	Quantity    string   `json:"quantity" validate:"nonnegint"`
	Categories  []string `json:"categories" validate:"min=1"`
}

// Admission is the go-ahead to persist a candidate
type Admission struct {
	Product domain.NewProduct
	// Categories holds every referenced category, looked up during validation
	Categories map[string]*domain.Category
}

// CategoryRefs returns the admitted product's categories in reference order
func (a *Admission) CategoryRefs() []domain.CategoryRef {
	refs := make([]domain.CategoryRef, 0, len(a.Product.CategoryIDs))
	for _, id := range a.Product.CategoryIDs {
		if c, ok := a.Categories[id]; ok {
			refs = append(refs, domain.CategoryRef{ID: c.ID, Name: c.Name})
		}
	}
	return refs
}

// ProductValidator decides whether a candidate may be admitted.
// It reads from the store but never writes.
type ProductValidator struct {
	validate   *validator.Validate
	products   repository.ProductRepository
	categories repository.CategoryRepository
}

// NewProductValidator creates a ProductValidator over the given repositories
func NewProductValidator(products repository.ProductRepository, categories repository.CategoryRepository) (*ProductValidator, error) {
	v := validator.New()

	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		name, _, _ := strings.Cut(fld.Tag.Get("json"), ",")
		if name == "-" {
			return ""
		}
		return name
	})

	if err := v.RegisterValidation("nonnegint", validateNonNegativeInt); err != nil {
		return nil, fmt.Errorf("register nonnegint validator: %w", err)
	}

	return &ProductValidator{
		validate:   v,
		products:   products,
		categories: categories,
	}, nil
}

func validateNonNegativeInt(fl validator.FieldLevel) bool {
	_, ok := parseQuantity(fl.Field().String())
	return ok
}

func parseQuantity(s string) (int, bool) {
	if !integerPattern.MatchString(s) {
		return 0, false
	}
	n, err := strconv.Atoi(s)
	if err != nil || n < 0 {
		return 0, false
	}
	return n, true
}

// Validate runs the structural checks and then the store-backed integrity checks,
// returning every violation found as a *domain.ValidationError. Any other error
// comes from the store.
func (v *ProductValidator) Validate(ctx context.Context, c Candidate) (*Admission, error) {
	violations := v.CheckStructure(c)

	integrity, found, err := v.CheckIntegrity(ctx, c)
	if err != nil {
		return nil, err
	}
	violations = append(violations, integrity...)

	if len(violations) > 0 {
		sortViolations(violations)
		return nil, &domain.ValidationError{Violations: violations}
	}

	// Stored references use the id the store returned, not the submitted spelling
	categoryIDs := make([]string, 0, len(c.Categories))
	categories := make(map[string]*domain.Category, len(found))
	for _, id := range c.Categories {
		category := found[id]
		categoryIDs = append(categoryIDs, category.ID)
		categories[category.ID] = category
	}

	quantity, _ := parseQuantity(c.Quantity)
	return &Admission{
		Product: domain.NewProduct{
			Name:        c.Name,
			Description: c.Description,
			Quantity:    quantity,
			CategoryIDs: categoryIDs,
		},
		Categories: categories,
	}, nil
}

// CheckStructure validates the candidate's shape without touching the store
func (v *ProductValidator) CheckStructure(c Candidate) []domain.Violation {
	err := v.validate.Struct(c)
	if err == nil {
		return nil
	}

	var fieldErrs validator.ValidationErrors
	if !errors.As(err, &fieldErrs) {
		return []domain.Violation{{Field: "body", Message: err.Error()}}
	}

	violations := make([]domain.Violation, 0, len(fieldErrs))
	for _, fe := range fieldErrs {
		msg, ok := fieldMessages[fe.Field()]
		if !ok {
			msg = "is invalid"
		}
		violations = append(violations, domain.Violation{Field: fe.Field(), Message: msg})
	}
	return violations
}

// CheckIntegrity verifies name uniqueness and that every category id resolves.
// It also returns the categories it found so callers need not look them up again.
func (v *ProductValidator) CheckIntegrity(ctx context.Context, c Candidate) ([]domain.Violation, map[string]*domain.Category, error) {
	var (
		nameViolations     []domain.Violation
		categoryViolations []domain.Violation
		found              = make(map[string]*domain.Category, len(c.Categories))
	)

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		if c.Name == "" {
			return nil
		}
		_, err := v.products.FindByName(gctx, c.Name)
		switch {
		case err == nil:
			nameViolations = append(nameViolations, domain.Violation{Field: "name", Message: MsgNameNotUnique})
		case errors.Is(err, domain.ErrProductNotFound):
		default:
			return fmt.Errorf("check product name: %w", err)
		}
		return nil
	})

	g.Go(func() error {
		reported := []string{}
		for _, id := range c.Categories {
			if _, ok := found[id]; ok || slices.Contains(reported, id) {
				continue
			}
			category, err := v.categories.FindByID(gctx, id)
			switch {
			case err == nil:
				found[id] = category
			case errors.Is(err, domain.ErrCategoryNotFound):
				reported = append(reported, id)
				categoryViolations = append(categoryViolations, domain.Violation{
					Field:   "categories",
					Message: "Invalid category ID: " + id,
				})
			default:
				return fmt.Errorf("check category %q: %w", id, err)
			}
		}
		return nil
	})

	if err := g.Wait(); err != nil {
		return nil, nil, err
	}

	return append(nameViolations, categoryViolations...), found, nil
}

func sortViolations(violations []domain.Violation) {
	slices.SortStableFunc(violations, func(a, b domain.Violation) int {
		return slices.Index(fieldOrder, a.Field) - slices.Index(fieldOrder, b.Field)
	})
}
