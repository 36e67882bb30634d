// Package domain contains the core business entities and interfaces for the payment service.
package domain

import (
	"context"
	"encoding/json"
)

// PaymentGateway defines the interface for the upstream payment processor.
// The processor is consumed only through its published HTTP contract;
// this port abstracts the wire details away from the service layer.
type PaymentGateway interface {
	// CreatePayment opens a payment with the gateway and returns the raw
	// upstream response so the checkout UI gets the provider's own fields
	// (redirect URL, order id) unmodified.
	CreatePayment(ctx context.Context, intent PaymentIntent) (json.RawMessage, error)

	// GetStatus fetches the current order status from the gateway.
	// The result reflects upstream truth at call time and is never cached.
	GetStatus(ctx context.Context, merchantOrderID string) (*GatewayStatusResponse, error)
}

// OrderRepository is the port to the storefront's order persistence.
// The document store behind it is an external collaborator; this service
// never implements it, the hosting application does.
type OrderRepository interface {
	// MarkOrderPaid records a successful payment against an order.
	MarkOrderPaid(ctx context.Context, merchantOrderID, transactionID string) error
}

// EmailSender is the port to outbound email delivery, another external
// collaborator. Sends are best-effort: a failed confirmation email must
// never fail the payment operation it is attached to.
type EmailSender interface {
	// SendPaymentConfirmation notifies the buyer that payment succeeded.
	SendPaymentConfirmation(ctx context.Context, merchantOrderID string, amount float64) error
}
