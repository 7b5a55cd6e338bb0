package domain

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globalbooks/internal/pkg/apperr"
)

func product(available, reserved int) Product {
	return Product{ID: "B1", AvailableQuantity: available, ReservedQuantity: reserved}
}

func TestProduct_Reserve(t *testing.T) {
	p := product(5, 0)
	require.NoError(t, p.Reserve(2))
	assert.Equal(t, 2, p.ReservedQuantity)
	assert.Equal(t, 3, p.Free())

	err := p.Reserve(4)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))
	assert.Equal(t, 2, p.ReservedQuantity)

	require.NoError(t, p.Reserve(3))
	assert.Equal(t, 0, p.Free())
}

func TestProduct_Release(t *testing.T) {
	p := product(5, 3)
	clamped, err := p.Release(2)
	require.NoError(t, err)
	assert.False(t, clamped)
	assert.Equal(t, 1, p.ReservedQuantity)

	clamped, err = p.Release(4)
	require.NoError(t, err)
	assert.True(t, clamped)
	assert.Equal(t, 0, p.ReservedQuantity)
	assert.Equal(t, 5, p.AvailableQuantity)
}

func TestProduct_DeductAndRestore(t *testing.T) {
	p := product(5, 2)
	require.NoError(t, p.Deduct(2))
	assert.Equal(t, 3, p.AvailableQuantity)
	assert.Equal(t, 0, p.ReservedQuantity)

	err := p.Deduct(1)
	assert.True(t, apperr.IsKind(err, apperr.KindInsufficientStock))

	require.NoError(t, p.Restore(2))
	assert.Equal(t, 5, p.AvailableQuantity)
	assert.Equal(t, 2, p.ReservedQuantity)
}

func TestProduct_NonPositiveQuantity(t *testing.T) {
	for _, op := range []Operation{OperationReserve, OperationRelease, OperationDeduct, OperationRestore} {
		for _, qty := range []int{0, -1} {
			p := product(5, 1)
			_, err := p.Apply(op, qty)
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput), "%s %d", op, qty)
			assert.Equal(t, product(5, 1), p)
		}
	}
}

func TestParseOperation(t *testing.T) {
	op, err := ParseOperation("reserve")
	require.NoError(t, err)
	assert.Equal(t, OperationReserve, op)

	_, err = ParseOperation("STEAL")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestProduct_Quote(t *testing.T) {
	p := Product{ID: "B1", Price: decimal.NewNullDecimal(decimal.RequireFromString("12.50"))}
	q, err := p.Quote(3)
	require.NoError(t, err)
	assert.True(t, decimal.RequireFromString("37.50").Equal(q.Total))

	_, err = p.Quote(0)
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))

	_, err = Product{ID: "B2"}.Quote(1)
	assert.Equal(t, apperr.CodeCalculationError, apperr.CodeOf(err))
}

func TestCriteria_MatchesText(t *testing.T) {
	p := Product{
		ID: "B1", Title: "The Go Programming Language", Author: "Donovan", Category: "Programming",
		Price: decimal.NewNullDecimal(decimal.NewFromInt(40)),
	}
	noPrice := Product{ID: "B2", Title: "Untitled"}

	assert.True(t, Criteria{}.MatchesText(p))
	assert.True(t, Criteria{Title: "go prog"}.MatchesText(p))
	assert.True(t, Criteria{Author: "DONO", Category: "programming"}.MatchesText(p))
	assert.False(t, Criteria{Category: "Program"}.MatchesText(p))
	assert.True(t, Criteria{MinPrice: decimal.NewNullDecimal(decimal.NewFromInt(40))}.MatchesText(p))
	assert.False(t, Criteria{MaxPrice: decimal.NewNullDecimal(decimal.NewFromInt(39))}.MatchesText(p))
	assert.False(t, Criteria{MinPrice: decimal.NewNullDecimal(decimal.Zero)}.MatchesText(noPrice))
}
