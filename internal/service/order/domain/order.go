package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"globalbooks/internal/pkg/apperr"
)

const (
	idPrefix       = "ORD-"
	idSuffixLength = 8
	defaultCountry = "USA"
)

// NewID returns "ORD-" followed by 8 uppercase hex characters of a random UUID.
func NewID() string {
	raw := strings.ReplaceAll(uuid.NewString(), "-", "")
	return idPrefix + strings.ToUpper(raw[:idSuffixLength])
}

// ValidID reports whether id has the ORD-XXXXXXXX shape.
func ValidID(id string) bool {
	suffix, ok := strings.CutPrefix(id, idPrefix)
	if !ok || len(suffix) != idSuffixLength {
		return false
	}
	for _, r := range suffix {
		if !(r >= 'A' && r <= 'Z' || r >= '0' && r <= '9') {
			return false
		}
	}
	return true
}

type ShippingAddress struct {
	Street  string `json:"street"`
	City    string `json:"city"`
	State   string `json:"state,omitempty"`
	Zip     string `json:"zipCode"`
	Country string `json:"country"`
}

// Normalize trims every field and fills in the default country.
func (a ShippingAddress) Normalize() ShippingAddress {
	a.Street = strings.TrimSpace(a.Street)
	a.City = strings.TrimSpace(a.City)
	a.State = strings.TrimSpace(a.State)
	a.Zip = strings.TrimSpace(a.Zip)
	a.Country = strings.TrimSpace(a.Country)
	if a.Country == "" {
		a.Country = defaultCountry
	}
	return a
}

func (a ShippingAddress) Validate() error {
	var missing []string
	if strings.TrimSpace(a.Street) == "" {
		missing = append(missing, "street")
	}
	if strings.TrimSpace(a.City) == "" {
		missing = append(missing, "city")
	}
	if strings.TrimSpace(a.Zip) == "" {
		missing = append(missing, "zipCode")
	}
	if len(missing) > 0 {
		return apperr.InvalidInput("shipping address is missing %s", strings.Join(missing, ", "))
	}
	return nil
}

// OrderItem is one line of an order. UnitPrice is the price at order time.
type OrderItem struct {
	ProductID string
	Quantity  int
	UnitPrice decimal.Decimal
	Subtotal  decimal.Decimal
}

func NewOrderItem(productID string, qty int, unitPrice decimal.Decimal) (OrderItem, error) {
	if strings.TrimSpace(productID) == "" {
		return OrderItem{}, apperr.InvalidInput("item product id is required")
	}
	if qty <= 0 {
		return OrderItem{}, apperr.InvalidInput("item %s: quantity must be positive, got %d", productID, qty)
	}
	if unitPrice.IsNegative() {
		return OrderItem{}, apperr.InvalidInput("item %s: price must not be negative", productID)
	}
	return OrderItem{
		ProductID: productID,
		Quantity:  qty,
		UnitPrice: unitPrice,
		Subtotal:  unitPrice.Mul(decimal.NewFromInt(int64(qty))),
	}, nil
}

// Order is the aggregate root. Items are fixed at creation and TotalAmount is
// always their sum.
type Order struct {
	ID              string
	CustomerID      string
	Status          Status
	PaymentMethod   string
	ShippingAddress ShippingAddress
	CreatedAt       time.Time
	UpdatedAt       time.Time

	items       []OrderItem
	totalAmount decimal.Decimal
}

// NewOrder creates a PENDING order.
func NewOrder(id, customerID, paymentMethod string, addr ShippingAddress, items []OrderItem, now time.Time) (*Order, error) {
	if strings.TrimSpace(customerID) == "" {
		return nil, apperr.InvalidInput("customerId is required")
	}
	if strings.TrimSpace(paymentMethod) == "" {
		return nil, apperr.InvalidInput("paymentMethod is required")
	}
	if err := addr.Validate(); err != nil {
		return nil, err
	}
	if len(items) == 0 {
		return nil, apperr.InvalidInput("order must contain at least one item")
	}
	return Rehydrate(id, customerID, StatusPending, paymentMethod, addr.Normalize(), items, now, now), nil
}

// Rehydrate rebuilds an order read from storage.
func Rehydrate(id, customerID string, status Status, paymentMethod string, addr ShippingAddress, items []OrderItem, createdAt, updatedAt time.Time) *Order {
	o := &Order{
		ID:              id,
		CustomerID:      customerID,
		Status:          status,
		PaymentMethod:   paymentMethod,
		ShippingAddress: addr,
		CreatedAt:       createdAt,
		UpdatedAt:       updatedAt,
		items:           make([]OrderItem, len(items)),
	}
	copy(o.items, items)
	o.totalAmount = decimal.Zero
	for _, it := range o.items {
		o.totalAmount = o.totalAmount.Add(it.Subtotal)
	}
	return o
}

// Items returns a copy of the order lines.
func (o *Order) Items() []OrderItem {
	out := make([]OrderItem, len(o.items))
	copy(out, o.items)
	return out
}

func (o *Order) TotalAmount() decimal.Decimal {
	return o.totalAmount
}

// TransitionTo moves the order to next if the transition table allows it.
func (o *Order) TransitionTo(next Status, now time.Time) error {
	if o.Status.IsTerminal() {
		return apperr.New(apperr.KindInvalidTransition, apperr.CodeInvalidTransition,
			"order %s is %s and cannot change status", o.ID, o.Status)
	}
	if !CanTransition(o.Status, next) {
		return apperr.New(apperr.KindInvalidTransition, apperr.CodeInvalidTransition,
			"order %s cannot move from %s to %s", o.ID, o.Status, next)
	}
	o.Status = next
	o.UpdatedAt = now
	return nil
}

// CheckDeletable fails with InvalidState unless the order is PENDING or CANCELLED.
func (o *Order) CheckDeletable() error {
	if !o.Status.Deletable() {
		return apperr.New(apperr.KindInvalidState, apperr.CodeInvalidState,
			"order %s cannot be deleted in status %s", o.ID, o.Status)
	}
	return nil
}

// Clone returns an independent copy.
func (o *Order) Clone() *Order {
	c := *o
	c.items = o.Items()
	return &c
}
