package commands

import (
	"context"
	"fmt"

	"github.com/dejobratic/centralcompras/internal/orders/domain"
	"github.com/dejobratic/centralcompras/internal/orders/ports"
)

type SetStatusCommand struct {
	OrderID int64
	Status  string
	// ExpectedVersion, when set, must match the stored version.
	ExpectedVersion *int
}

// SetStatusResult reports the transition that was stored.
type SetStatusResult struct {
	Order *domain.Order
	From  domain.Status
}

type StatusHandler interface {
	Handle(ctx context.Context, cmd SetStatusCommand) (*SetStatusResult, error)
}

type SetStatusCommandHandler struct {
	repo   ports.OrderRepository
	events ports.EventBus
	policy domain.TransitionPolicy
}

// NewSetStatusCommandHandler wires the handler. A nil policy permits every transition.
func NewSetStatusCommandHandler(repo ports.OrderRepository, events ports.EventBus, policy domain.TransitionPolicy) *SetStatusCommandHandler {
	if policy == nil {
		policy = domain.PermissiveTransitions{}
	}
	return &SetStatusCommandHandler{repo: repo, events: events, policy: policy}
}

// Handle validates the label before touching the store, so a rejected status
// leaves the order as it was.
func (h *SetStatusCommandHandler) Handle(ctx context.Context, cmd SetStatusCommand) (*SetStatusResult, error) {
	status, err := domain.ParseStatus(cmd.Status)
	if err != nil {
		return nil, err
	}

	current, err := h.repo.GetByID(ctx, cmd.OrderID)
	if err != nil {
		return nil, err
	}

	if cmd.ExpectedVersion != nil && *cmd.ExpectedVersion != current.Version {
		return nil, fmt.Errorf("%w: expected version %d, found %d", ports.ErrConflict, *cmd.ExpectedVersion, current.Version)
	}

	if err := h.policy.Check(current.Status, status); err != nil {
		return nil, err
	}

	updated, err := h.repo.UpdateStatus(ctx, cmd.OrderID, current.Version, status)
	if err != nil {
		return nil, err
	}

	result := &SetStatusResult{Order: updated, From: current.Status}

	if err := h.events.PublishOrderStatusChanged(ctx, updated.ID, current.Status, status); err != nil {
		return result, fmt.Errorf("%w: %w", ErrEventNotPublished, err)
	}

	return result, nil
}
