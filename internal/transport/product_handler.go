package transport

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"strconv"
	"strings"
	"time"

	"inventory-catalog/internal/domain"
	"inventory-catalog/internal/middleware"
	"inventory-catalog/internal/service"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// QuantityInput accepts a quantity sent either as a JSON number or as a string.
// Anything else is kept as its raw text so validation reports it.
type QuantityInput string

func (q *QuantityInput) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)

	var s string
	if err := json.Unmarshal(data, &s); err == nil {
		*q = QuantityInput(s)
		return nil
	}

	var n json.Number
	if err := json.Unmarshal(data, &n); err == nil {
		*q = QuantityInput(normalizeNumber(n))
		return nil
	}

	if string(data) == "null" {
		*q = ""
		return nil
	}
	*q = QuantityInput(data)
	return nil
}

// TextInput keeps a JSON string as is. Any other JSON value reads as empty
// so the field is reported as missing.
type TextInput string

func (t *TextInput) UnmarshalJSON(data []byte) error {
	var s string
	if err := json.Unmarshal(data, &s); err != nil {
		s = ""
	}
	*t = TextInput(s)
	return nil
}

// CategoryIDsInput accepts the category list in any JSON shape. A value that
// is not an array reads as no categories, and an element that is not a string
// keeps its JSON text so it is reported as an invalid id.
type CategoryIDsInput []string

func (c *CategoryIDsInput) UnmarshalJSON(data []byte) error {
	var elements []json.RawMessage
	if err := json.Unmarshal(data, &elements); err != nil || elements == nil {
		*c = nil
		return nil
	}

	ids := make([]string, 0, len(elements))
	for _, element := range elements {
		var id string
		if bytes.Equal(element, []byte("null")) || json.Unmarshal(element, &id) != nil {
			id = compactJSON(element)
		}
		ids = append(ids, id)
	}
	*c = ids
	return nil
}

func compactJSON(raw json.RawMessage) string {
	var buf bytes.Buffer
	if err := json.Compact(&buf, raw); err != nil {
		return string(raw)
	}
	return buf.String()
}

// normalizeNumber renders integral numbers such as 5.0 or 1e2 in plain integer form
func normalizeNumber(n json.Number) string {
	if _, err := strconv.ParseInt(n.String(), 10, 64); err == nil {
		return n.String()
	}
	f, err := n.Float64()
	if err != nil || f != math.Trunc(f) || math.Abs(f) > 1<<53 {
		return n.String()
	}
	return strconv.FormatInt(int64(f), 10)
}

// CreateProductRequest represents the product creation payload
type CreateProductRequest struct {
	Name        TextInput        `json:"name"`
	Description TextInput        `json:"description"`
	Quantity    QuantityInput    `json:"quantity"`
	Categories  CategoryIDsInput `json:"categories"`
}

// CategoryResponse represents a category reference in responses
type CategoryResponse struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductResponse represents a product with its categories populated
type ProductResponse struct {
	ID          string             `json:"id"`
	Name        string             `json:"name"`
	Description string             `json:"description"`
	Quantity    int                `json:"quantity"`
	Categories  []CategoryResponse `json:"categories"`
	CreatedAt   time.Time          `json:"created_at"`
}

// ProductListResponse represents one page of products
type ProductListResponse struct {
	Products []ProductResponse `json:"products"`
	Total    int               `json:"total"`
	Page     int               `json:"page"`
	Pages    int               `json:"pages"`
}

// MessageResponse is a bare confirmation
type MessageResponse struct {
	Message string `json:"message"`
}

func toProductResponse(listing domain.ProductListing) ProductResponse {
	categories := make([]CategoryResponse, 0, len(listing.Categories))
	for _, c := range listing.Categories {
		categories = append(categories, CategoryResponse{ID: c.ID, Name: c.Name})
	}
	return ProductResponse{
		ID:          listing.ID,
		Name:        listing.Name,
		Description: listing.Description,
		Quantity:    listing.Quantity,
		Categories:  categories,
		CreatedAt:   listing.CreatedAt,
	}
}

// ProductHandler handles HTTP requests for catalog operations
type ProductHandler struct {
	productService service.ProductService
	logger         *zap.Logger
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(productService service.ProductService, logger *zap.Logger) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		logger:         logger,
	}
}

// RegisterRoutes registers all product routes
func (h *ProductHandler) RegisterRoutes(r chi.Router) {
	r.Route("/api/products", func(r chi.Router) {
		r.Get("/", h.ListProducts)
		r.With(middleware.RequireJSON).Post("/", h.CreateProduct)
		r.Get("/categories", h.ListCategories)
		r.Delete("/{id}", h.DeleteProduct)
	})
}

// CreateProduct handles product admission
func (h *ProductHandler) CreateProduct(w http.ResponseWriter, r *http.Request) {
	var req CreateProductRequest
	if err := middleware.DecodeJSON(w, r, &req); err != nil {
		h.logger.Debug("Invalid product payload", zap.Error(err))

		status := http.StatusBadRequest
		if errors.Is(err, middleware.ErrBodyTooLarge) {
			status = http.StatusRequestEntityTooLarge
		}
		middleware.RespondWithError(w, status, err.Error())
		return
	}

	listing, err := h.productService.CreateProduct(r.Context(), service.Candidate{
		Name:        string(req.Name),
		Description: string(req.Description),
		Quantity:    string(req.Quantity),
		Categories:  req.Categories,
	})
	if err != nil {
		var verr *domain.ValidationError
		if errors.As(err, &verr) {
			h.logger.Debug("Product rejected", zap.String("name", string(req.Name)), zap.Error(err))
			middleware.RespondWithValidationErrors(w, verr.Violations)
			return
		}

		h.logger.Error("Failed to create product", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to create product")
		return
	}

	h.logger.Info("Product created", zap.String("product_id", listing.ID))
	middleware.RespondWithJSON(w, http.StatusCreated, toProductResponse(*listing))
}

// queryInt parses a positive integer query parameter. Zero means absent or unusable.
func queryInt(r *http.Request, key string) int {
	n, err := strconv.Atoi(strings.TrimSpace(r.URL.Query().Get(key)))
	if err != nil || n < 1 {
		return 0
	}
	return n
}

// queryList collects comma separated values from every occurrence of key
func queryList(r *http.Request, key string) []string {
	values := []string{}
	for _, raw := range r.URL.Query()[key] {
		values = append(values, strings.Split(raw, ",")...)
	}
	return values
}

// ListProducts handles paginated catalog listing
func (h *ProductHandler) ListProducts(w http.ResponseWriter, r *http.Request) {
	page, err := h.productService.ListProducts(r.Context(), service.ListProductsParams{
		Page:        queryInt(r, "page"),
		PageSize:    queryInt(r, "limit"),
		Search:      r.URL.Query().Get("search"),
		CategoryIDs: queryList(r, "categories"),
	})
	if err != nil {
		h.logger.Error("Failed to list products", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list products")
		return
	}

	products := make([]ProductResponse, 0, len(page.Items))
	for _, item := range page.Items {
		products = append(products, toProductResponse(item))
	}

	middleware.RespondWithJSON(w, http.StatusOK, ProductListResponse{
		Products: products,
		Total:    page.Total,
		Page:     page.Page,
		Pages:    page.Pages,
	})
}

// DeleteProduct handles product removal
func (h *ProductHandler) DeleteProduct(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")

	product, err := h.productService.DeleteProduct(r.Context(), id)
	if err != nil {
		if errors.Is(err, domain.ErrProductNotFound) {
			middleware.RespondWithError(w, http.StatusNotFound, "Product not found")
			return
		}

		h.logger.Error("Failed to delete product", zap.String("product_id", id), zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to delete product")
		return
	}

	h.logger.Info("Product deleted", zap.String("product_id", product.ID))
	middleware.RespondWithJSON(w, http.StatusOK, MessageResponse{Message: "Product deleted"})
}

// ListCategories handles category listing
func (h *ProductHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	categories, err := h.productService.ListCategories(r.Context())
	if err != nil {
		h.logger.Error("Failed to list categories", zap.Error(err))
		middleware.RespondWithError(w, http.StatusInternalServerError, "failed to list categories")
		return
	}

	response := make([]CategoryResponse, 0, len(categories))
	for _, c := range categories {
		response = append(response, CategoryResponse{ID: c.ID, Name: c.Name})
	}
	middleware.RespondWithJSON(w, http.StatusOK, response)
}
