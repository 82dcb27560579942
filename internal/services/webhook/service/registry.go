package service

import (
	"context"
	"fmt"

	"codefrog/internal/platform/logger"
	"codefrog/internal/services/webhook/domain"
)

// Handler processes one decoded event payload
type Handler func(ctx context.Context, event domain.Event) (string, error)

// key pairs an event name with its action, action is empty for
// actionless events
type key struct {
	event  string
	action string
}

// Registry maps (event, action) pairs to handlers. It is populated once at
// construction and read-only afterwards.
type Registry struct {
	handlers map[key]Handler
}

// NewRegistry returns an empty registry
func NewRegistry() *Registry {
	return &Registry{handlers: map[key]Handler{}}
}

// Register binds a handler to an (event, action) pair
func (r *Registry) Register(event, action string, h Handler) {
	r.handlers[key{event: event, action: action}] = h
}

// Dispatch routes the event to its handler. Deliveries without a handler
// are reported as unhandled, never as an error.
func (r *Registry) Dispatch(ctx context.Context, event domain.Event) (domain.Outcome, error) {
	h, ok := r.handlers[key{event: event.Name, action: event.Action}]
	if !ok {
		logger.C(ctx).Debug().
			Str("event", event.Name).
			Str("action", event.Action).
			Msg("unhandled webhook delivery")
		return domain.Outcome{Handled: false, Message: fmt.Sprintf("no handler for %s/%s", event.Name, event.Action)}, nil
	}

	msg, err := h(ctx, event)
	if err != nil {
		return domain.Outcome{}, err
	}
	return domain.Outcome{Handled: true, Message: msg}, nil
}
