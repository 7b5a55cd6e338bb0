package domain

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"globalbooks/internal/pkg/apperr"
)

var addr = ShippingAddress{Street: "1 Main St", City: "Springfield", Zip: "12345"}

func item(t *testing.T, id string, qty int, price string) OrderItem {
	t.Helper()
	it, err := NewOrderItem(id, qty, decimal.RequireFromString(price))
	require.NoError(t, err)
	return it
}

func TestNewID(t *testing.T) {
	seen := map[string]struct{}{}
	for i := 0; i < 1000; i++ {
		id := NewID()
		assert.True(t, ValidID(id), id)
		seen[id] = struct{}{}
	}
	assert.Greater(t, len(seen), 990)

	assert.False(t, ValidID("ORD-abc12345"))
	assert.False(t, ValidID("ORD-1234567"))
	assert.False(t, ValidID("XYZ-12345678"))
}

func TestNewOrder_TotalIsSumOfSubtotals(t *testing.T) {
	now := time.Now()
	o, err := NewOrder("ORD-00000001", "C1", "CARD", addr, []OrderItem{
		item(t, "B1", 2, "10.00"),
		item(t, "B2", 3, "0.10"),
	}, now)
	require.NoError(t, err)

	assert.Equal(t, StatusPending, o.Status)
	assert.True(t, decimal.RequireFromString("20.30").Equal(o.TotalAmount()))
	sum := decimal.Zero
	for _, it := range o.Items() {
		assert.True(t, it.UnitPrice.Mul(decimal.NewFromInt(int64(it.Quantity))).Equal(it.Subtotal))
		sum = sum.Add(it.Subtotal)
	}
	assert.True(t, sum.Equal(o.TotalAmount()))
	assert.Equal(t, "USA", o.ShippingAddress.Country)
}

func TestOrder_ItemsAreCopies(t *testing.T) {
	o, err := NewOrder("ORD-00000001", "C1", "CARD", addr, []OrderItem{item(t, "B1", 1, "5")}, time.Now())
	require.NoError(t, err)

	items := o.Items()
	items[0].Quantity = 99
	assert.Equal(t, 1, o.Items()[0].Quantity)
}

func TestNewOrder_Validation(t *testing.T) {
	items := []OrderItem{item(t, "B1", 1, "5")}
	tests := []struct {
		name     string
		customer string
		payment  string
		addr     ShippingAddress
		items    []OrderItem
	}{
		{"no customer", "", "CARD", addr, items},
		{"no payment", "C1", " ", addr, items},
		{"no street", "C1", "CARD", ShippingAddress{City: "X", Zip: "1"}, items},
		{"no items", "C1", "CARD", addr, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := NewOrder("ORD-00000001", tt.customer, tt.payment, tt.addr, tt.items, time.Now())
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
		})
	}

	_, err := NewOrderItem("B1", 0, decimal.NewFromInt(1))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
	_, err = NewOrderItem("B1", 1, decimal.NewFromInt(-1))
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestTransitionTable(t *testing.T) {
	all := []Status{StatusPending, StatusConfirmed, StatusShipped, StatusDelivered, StatusCancelled}
	allowed := map[Status][]Status{
		StatusPending:   {StatusConfirmed, StatusCancelled},
		StatusConfirmed: {StatusShipped, StatusCancelled},
		StatusShipped:   {StatusDelivered},
	}
	for _, from := range all {
		for _, to := range all {
			want := false
			for _, a := range allowed[from] {
				if a == to {
					want = true
				}
			}
			assert.Equal(t, want, CanTransition(from, to), "%s -> %s", from, to)
		}
	}
	assert.True(t, StatusDelivered.IsTerminal())
	assert.True(t, StatusCancelled.IsTerminal())
	assert.False(t, StatusShipped.IsTerminal())
}

func TestOrder_TransitionTo(t *testing.T) {
	o, err := NewOrder("ORD-00000001", "C1", "CARD", addr, []OrderItem{item(t, "B1", 1, "5")}, time.Now())
	require.NoError(t, err)

	err = o.TransitionTo(StatusShipped, time.Now())
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
	assert.Equal(t, StatusPending, o.Status)

	require.NoError(t, o.TransitionTo(StatusConfirmed, time.Now()))
	assert.Equal(t, StatusConfirmed, o.Status)
}

func TestOrder_TransitionFromFinalStatus(t *testing.T) {
	o, err := NewOrder("ORD-00000002", "C1", "CARD", addr, []OrderItem{item(t, "B1", 1, "5")}, time.Now())
	require.NoError(t, err)
	require.NoError(t, o.TransitionTo(StatusCancelled, time.Now()))

	err = o.TransitionTo(StatusPending, time.Now())
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidTransition))
	assert.Contains(t, err.Error(), "cannot change status")
	assert.Equal(t, StatusCancelled, o.Status)
}

func TestParseStatus(t *testing.T) {
	st, err := ParseStatus("shipped")
	require.NoError(t, err)
	assert.Equal(t, StatusShipped, st)

	_, err = ParseStatus("LOST")
	assert.True(t, apperr.IsKind(err, apperr.KindInvalidInput))
}

func TestCheckDeletable(t *testing.T) {
	for st, want := range map[Status]bool{
		StatusPending: true, StatusCancelled: true,
		StatusConfirmed: false, StatusShipped: false, StatusDelivered: false,
	} {
		o := Rehydrate("ORD-00000001", "C1", st, "CARD", addr, nil, time.Now(), time.Now())
		err := o.CheckDeletable()
		if want {
			assert.NoError(t, err, st)
		} else {
			assert.True(t, apperr.IsKind(err, apperr.KindInvalidState), st)
		}
	}
}
