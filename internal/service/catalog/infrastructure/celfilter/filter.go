// Package celfilter evaluates catalog search filters written in CEL, e.g.
//
//	category == "Fiction" && price < 20.0 && free > 0
package celfilter

import (
	"sync"

	"github.com/google/cel-go/cel"

	"globalbooks/internal/pkg/apperr"
	"globalbooks/internal/service/catalog/domain"
)

const maxCached = 256

// Compiler compiles expressions against the product variables and caches
// the resulting programs by source text.
type Compiler struct {
	env *cel.Env

	mu    sync.Mutex
	cache map[string]*Filter
}

func NewCompiler() (*Compiler, error) {
	env, err := cel.NewEnv(
		cel.Variable("id", cel.StringType),
		cel.Variable("title", cel.StringType),
		cel.Variable("author", cel.StringType),
		cel.Variable("category", cel.StringType),
		cel.Variable("price", cel.DoubleType),
		cel.Variable("hasPrice", cel.BoolType),
		cel.Variable("available", cel.IntType),
		cel.Variable("reserved", cel.IntType),
		cel.Variable("free", cel.IntType),
	)
	if err != nil {
		return nil, err
	}
	return &Compiler{env: env, cache: make(map[string]*Filter)}, nil
}

func (c *Compiler) Compile(expr string) (domain.Predicate, error) {
	c.mu.Lock()
	if f, ok := c.cache[expr]; ok {
		c.mu.Unlock()
		return f, nil
	}
	c.mu.Unlock()

	ast, iss := c.env.Compile(expr)
	if iss.Err() != nil {
		return nil, apperr.InvalidInput("invalid filter: %v", iss.Err())
	}
	if !ast.OutputType().IsExactType(cel.BoolType) {
		return nil, apperr.InvalidInput("filter must be a boolean expression, got %s", ast.OutputType())
	}
	prg, err := c.env.Program(ast)
	if err != nil {
		return nil, apperr.InvalidInput("invalid filter: %v", err)
	}
	f := &Filter{expr: expr, prg: prg}

	c.mu.Lock()
	if len(c.cache) >= maxCached {
		clear(c.cache)
	}
	c.cache[expr] = f
	c.mu.Unlock()
	return f, nil
}

// Filter is a compiled expression. It is safe for concurrent use.
type Filter struct {
	expr string
	prg  cel.Program
}

// Match reports whether p satisfies the expression. A product without a price
// is seen with price 0 and hasPrice false.
func (f *Filter) Match(p domain.Product) (bool, error) {
	var price float64
	if p.Price.Valid {
		price = p.Price.Decimal.InexactFloat64()
	}
	out, _, err := f.prg.Eval(map[string]any{
		"id":        p.ID,
		"title":     p.Title,
		"author":    p.Author,
		"category":  p.Category,
		"price":     price,
		"hasPrice":  p.Price.Valid,
		"available": int64(p.AvailableQuantity),
		"reserved":  int64(p.ReservedQuantity),
		"free":      int64(p.Free()),
	})
	if err != nil {
		return false, apperr.InvalidInput("evaluate filter %q on product %s: %v", f.expr, p.ID, err)
	}
	matched, ok := out.Value().(bool)
	if !ok {
		return false, apperr.InvalidInput("filter %q did not yield a boolean", f.expr)
	}
	return matched, nil
}
