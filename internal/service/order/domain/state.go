package domain

import (
	"strings"

	"globalbooks/internal/pkg/apperr"
)

// Status is a stage of the order lifecycle.
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusConfirmed Status = "CONFIRMED"
	StatusShipped   Status = "SHIPPED"
	StatusDelivered Status = "DELIVERED"
	StatusCancelled Status = "CANCELLED"
)

// Transitions lists, for each status, the statuses an order may move to.
// Statuses without an entry are terminal.
var Transitions = map[Status]map[Status]struct{}{
	StatusPending: {
		StatusConfirmed: {},
		StatusCancelled: {},
	},
	StatusConfirmed: {
		StatusShipped:   {},
		StatusCancelled: {},
	},
	StatusShipped: {
		StatusDelivered: {},
	},
	StatusDelivered: {},
	StatusCancelled: {},
}

// ParseStatus accepts a status name in any case.
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	if _, ok := Transitions[st]; !ok {
		return "", apperr.InvalidInput("unknown order status %q", s)
	}
	return st, nil
}

// CanTransition reports whether the table allows from -> to.
func CanTransition(from, to Status) bool {
	_, ok := Transitions[from][to]
	return ok
}

// IsTerminal reports whether no transition leaves s.
func (s Status) IsTerminal() bool {
	return len(Transitions[s]) == 0
}

// Deletable reports whether an order in this status may be removed.
func (s Status) Deletable() bool {
	return s == StatusPending || s == StatusCancelled
}
