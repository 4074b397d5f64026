package core

import (
	"context"
	"time"
)

// Product event types.
const (
	EventProductCreated = "product.created"
	EventProductUpdated = "product.updated"
	EventProductDeleted = "product.deleted"
)

// ProductEvent describes a committed product change.
type ProductEvent struct {
	Type       string    `json:"type"`
	ProductID  string    `json:"productId"`
	Barcode    string    `json:"barcode"`
	OccurredAt time.Time `json:"occurredAt"`
	Product    *Product  `json:"product,omitempty"`
}

// EventPublisher delivers product events after the write has committed.
type EventPublisher interface {
	Publish(ctx context.Context, event ProductEvent) error
}

// NopPublisher discards events.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, ProductEvent) error { return nil }

// publish sends an event and logs a failure. The write it describes has
// already committed, so the error never reaches the caller.
func (s *Service) publish(ctx context.Context, eventType string, p *Product) {
	event := ProductEvent{
		Type:       eventType,
		ProductID:  p.ID,
		Barcode:    p.Barcode,
		OccurredAt: s.now(),
	}
	if eventType != EventProductDeleted {
		event.Product = p
	}
	if err := s.events.Publish(ctx, event); err != nil {
		s.logger(ctx).Warn("product event not published",
			"type", eventType,
			"product_id", p.ID,
			"error", err,
		)
	}
}
