package domain

import (
	"time"
)

// Product represents a stocked item in the catalog
type Product struct {
	ID          string    `json:"id" db:"id"`
	Name        string    `json:"name" db:"name"`
	Description string    `json:"description" db:"description"`
	Quantity    int       `json:"quantity" db:"quantity"`
	CategoryIDs []string  `json:"category_ids" db:"-"`
	CreatedAt   time.Time `json:"created_at" db:"created_at"`
}

// NewProduct is an admitted product that has not been persisted yet.
// The store assigns ID and CreatedAt on insert.
type NewProduct struct {
	Name        string
	Description string
	Quantity    int
	CategoryIDs []string
}

// Category represents a product category
type Category struct {
	ID        string    `json:"id" db:"id"`
	Name      string    `json:"name" db:"name"`
	CreatedAt time.Time `json:"created_at" db:"created_at"`
}

// CategoryRef is a category reference resolved for display
type CategoryRef struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// ProductListing is a product with its category references populated
type ProductListing struct {
	Product
	Categories []CategoryRef `json:"categories"`
}

// Populate resolves the product's category ids against known categories.
// Ids that no longer resolve are left out.
func (p *Product) Populate(known map[string]*Category) ProductListing {
	refs := make([]CategoryRef, 0, len(p.CategoryIDs))
	for _, id := range p.CategoryIDs {
		c, ok := known[id]
		if !ok {
			continue
		}
		refs = append(refs, CategoryRef{ID: c.ID, Name: c.Name})
	}
	return ProductListing{Product: *p, Categories: refs}
}
