package domain

import (
	"errors"
	"fmt"

	"github.com/dejobratic/centralcompras/internal/validation"
)

// Status is the lifecycle label of an order.
type Status string

const (
	StatusPending   Status = "pending"
	StatusApproved  Status = "approved"
	StatusSeparated Status = "separated"
	StatusShipped   Status = "shipped"
	StatusDelivered Status = "delivered"
	StatusCancelled Status = "cancelled"
)

var (
	// ErrInvalidStatus is returned for labels outside the allowed set.
	ErrInvalidStatus = fmt.Errorf("%w: unknown order status", validation.ErrInvalid)
	// ErrTransitionNotAllowed is returned when the policy rejects a status change.
	ErrTransitionNotAllowed = errors.New("order status transition not allowed")
)

// Statuses lists every allowed label.
func Statuses() []Status {
	return []Status{StatusPending, StatusApproved, StatusSeparated, StatusShipped, StatusDelivered, StatusCancelled}
}

// ParseStatus accepts only the exact allowed labels.
func ParseStatus(raw string) (Status, error) {
	for _, s := range Statuses() {
		if string(s) == raw {
			return s, nil
		}
	}
	return "", fmt.Errorf("%w %q", ErrInvalidStatus, raw)
}

// IsTerminal reports whether no further transition is expected.
func (s Status) IsTerminal() bool {
	return s == StatusDelivered || s == StatusCancelled
}

// TransitionPolicy decides whether an order may move between two allowed labels.
type TransitionPolicy interface {
	Check(from, to Status) error
}

// PermissiveTransitions lets any allowed label follow any other.
type PermissiveTransitions struct{}

func (PermissiveTransitions) Check(Status, Status) error {
	return nil
}

// StrictTransitions enforces the forward-only fulfilment flow. Cancellation is
// possible from every non-terminal status.
type StrictTransitions struct{}

var strictEdges = map[Status][]Status{
	StatusPending:   {StatusApproved, StatusSeparated, StatusCancelled},
	StatusApproved:  {StatusSeparated, StatusCancelled},
	StatusSeparated: {StatusShipped, StatusCancelled},
	StatusShipped:   {StatusDelivered, StatusCancelled},
}

func (StrictTransitions) Check(from, to Status) error {
	if from.IsTerminal() {
		return fmt.Errorf("%w: %s is terminal", ErrTransitionNotAllowed, from)
	}
	for _, next := range strictEdges[from] {
		if next == to {
			return nil
		}
	}
	return fmt.Errorf("%w: %s to %s", ErrTransitionNotAllowed, from, to)
}

// PolicyFor returns StrictTransitions when strict is set.
func PolicyFor(strict bool) TransitionPolicy {
	if strict {
		return StrictTransitions{}
	}
	return PermissiveTransitions{}
}
