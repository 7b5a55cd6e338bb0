package domain

import (
	"strings"

	"globalbooks/internal/pkg/apperr"
)

// Operation names an inventory mutation.
type Operation string

const (
	OperationReserve Operation = "RESERVE"
	OperationRelease Operation = "RELEASE"
	OperationDeduct  Operation = "DEDUCT"
	// OperationRestore undoes a Deduct.
	OperationRestore Operation = "RESTORE"
)

// ParseOperation accepts the operation name in any case.
func ParseOperation(s string) (Operation, error) {
	op := Operation(strings.ToUpper(strings.TrimSpace(s)))
	switch op {
	case OperationReserve, OperationRelease, OperationDeduct, OperationRestore:
		return op, nil
	}
	return "", apperr.InvalidInput("unknown inventory operation %q", s)
}

func checkQuantity(qty int) error {
	if qty <= 0 {
		return apperr.InvalidInput("quantity must be positive, got %d", qty)
	}
	return nil
}

// Reserve sets qty free units aside.
func (p *Product) Reserve(qty int) error {
	if err := checkQuantity(qty); err != nil {
		return err
	}
	if qty > p.Free() {
		return apperr.InsufficientStock(p.ID, qty, p.Free())
	}
	p.ReservedQuantity += qty
	return nil
}

// Release returns qty reserved units to the free pool. Releasing more than is
// reserved drops the reservation to zero and reports clamped.
func (p *Product) Release(qty int) (clamped bool, err error) {
	if err := checkQuantity(qty); err != nil {
		return false, err
	}
	if qty > p.ReservedQuantity {
		p.ReservedQuantity = 0
		return true, nil
	}
	p.ReservedQuantity -= qty
	return false, nil
}

// Deduct consumes qty reserved units: they leave both counters.
func (p *Product) Deduct(qty int) error {
	if err := checkQuantity(qty); err != nil {
		return err
	}
	if qty > p.ReservedQuantity {
		return apperr.New(apperr.KindInsufficientStock, apperr.CodeInsufficientStock,
			"cannot deduct %d units of product %s: only %d reserved", qty, p.ID, p.ReservedQuantity)
	}
	p.ReservedQuantity -= qty
	p.AvailableQuantity -= qty
	return nil
}

// Restore puts back qty units taken by Deduct, still reserved.
func (p *Product) Restore(qty int) error {
	if err := checkQuantity(qty); err != nil {
		return err
	}
	p.ReservedQuantity += qty
	p.AvailableQuantity += qty
	return nil
}

// Apply runs op against p. clamped is only ever true for a Release.
func (p *Product) Apply(op Operation, qty int) (clamped bool, err error) {
	switch op {
	case OperationReserve:
		return false, p.Reserve(qty)
	case OperationRelease:
		return p.Release(qty)
	case OperationDeduct:
		return false, p.Deduct(qty)
	case OperationRestore:
		return false, p.Restore(qty)
	}
	return false, apperr.InvalidInput("unknown inventory operation %q", op)
}
