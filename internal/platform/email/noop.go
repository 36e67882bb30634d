// Package email holds adapters for the outbound email collaborator.
// Real delivery belongs to the hosting storefront; this service only
// ships a no-op adapter so it runs standalone.
package email

import (
	"context"
	"log"
)

// NoopSender satisfies domain.EmailSender without sending anything.
type NoopSender struct{}

// NewNoopSender creates a no-op email adapter.
func NewNoopSender() *NoopSender {
	return &NoopSender{}
}

// SendPaymentConfirmation logs the would-be confirmation and succeeds.
func (s *NoopSender) SendPaymentConfirmation(ctx context.Context, merchantOrderID string, amount float64) error {
	log.Printf("email disabled: skipping confirmation for order %s (amount %.2f)", merchantOrderID, amount)
	return nil
}
