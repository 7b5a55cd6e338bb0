package domain

import (
	"context"
	"iter"
	"strings"

	"github.com/shopspring/decimal"
)

// Criteria selects products in a search. Zero fields do not filter.
type Criteria struct {
	Title    string
	Author   string
	Category string
	MinPrice decimal.NullDecimal
	MaxPrice decimal.NullDecimal
	// InStockOnly keeps products with at least one free unit.
	InStockOnly bool
	// Filter is a boolean expression over the product fields.
	Filter string
}

// MatchesText applies the title, author, category and price criteria.
// Title and author match case-insensitive substrings. A product without a
// price never matches a price bound.
func (c Criteria) MatchesText(p Product) bool {
	if c.Title != "" && !containsFold(p.Title, c.Title) {
		return false
	}
	if c.Author != "" && !containsFold(p.Author, c.Author) {
		return false
	}
	if c.Category != "" && !strings.EqualFold(p.Category, c.Category) {
		return false
	}
	if c.MinPrice.Valid && (!p.Price.Valid || p.Price.Decimal.LessThan(c.MinPrice.Decimal)) {
		return false
	}
	if c.MaxPrice.Valid && (!p.Price.Valid || p.Price.Decimal.GreaterThan(c.MaxPrice.Decimal)) {
		return false
	}
	return true
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// ProductRepository stores products and their stock counters.
type ProductRepository interface {
	// FindByID returns a NotFound error for an unknown id.
	FindByID(ctx context.Context, id string) (Product, error)
	// Search yields products matching the text and price criteria, ordered
	// by id. Each range over the result runs the query again.
	Search(ctx context.Context, c Criteria) iter.Seq2[Product, error]
	// Mutate applies fn to the current record and persists the result. When
	// fn fails nothing is written and its error is returned.
	Mutate(ctx context.Context, id string, fn func(p *Product) error) (Product, error)
	// Upsert creates a product or updates its catalog fields. The stock
	// counters of an existing product are kept.
	Upsert(ctx context.Context, p Product) error
}

// Predicate decides whether a product passes a compiled search filter.
type Predicate interface {
	Match(p Product) (bool, error)
}

// FilterCompiler turns a filter expression into a Predicate. It returns an
// InvalidInput error for an expression that does not compile.
type FilterCompiler interface {
	Compile(expr string) (Predicate, error)
}
