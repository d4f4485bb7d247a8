package repository

import (
	"slices"
	"strings"

	"inventory-catalog/internal/domain"
)

// SortOrder represents the sort direction
type SortOrder string

const (
	SortOrderAsc  SortOrder = "ASC"
	SortOrderDesc SortOrder = "DESC"
)

// SortSpec orders a product query. Every adapter breaks ties on the product id
// in the same direction so repeated calls page deterministically.
type SortSpec struct {
	Field string
	Order SortOrder
}

// SortNewestFirst orders by creation time, most recent first
var SortNewestFirst = SortSpec{Field: "created_at", Order: SortOrderDesc}

// ProductFilter selects products for listing and counting.
// A zero value matches every product.
type ProductFilter struct {
	// Search is a case-insensitive literal substring of the product name
	Search string
	// CategoryIDs matches products referencing at least one of the ids
	CategoryIDs []string
}

// Matches reports whether p satisfies the filter. The SQL and document
// adapters translate exactly this predicate.
func (f ProductFilter) Matches(p *domain.Product) bool {
	if f.Search != "" && !strings.Contains(strings.ToLower(p.Name), strings.ToLower(f.Search)) {
		return false
	}
	if len(f.CategoryIDs) > 0 && !slices.ContainsFunc(p.CategoryIDs, func(id string) bool {
		return slices.Contains(f.CategoryIDs, id)
	}) {
		return false
	}
	return true
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns a literal substring into an ILIKE pattern
func likePattern(s string) string {
	return "%" + likeEscaper.Replace(s) + "%"
}
