// Package domain contains the core business entities and interfaces for the payment service.
// This is the innermost layer - it has no dependencies on external frameworks
// or infrastructure.
package domain

import "time"

// CanonicalStatus is the application's own payment state vocabulary.
// The upstream gateway's raw states are reconciled onto these three values.
type CanonicalStatus string

const (
	StatusPending CanonicalStatus = "PENDING"
	StatusSuccess CanonicalStatus = "SUCCESS"
	StatusFailed  CanonicalStatus = "FAILED"
)

// Response codes paired with the canonical statuses.
const (
	CodePaymentSuccess = "PAYMENT_SUCCESS"
	CodePaymentFailed  = "PAYMENT_FAILED"
	CodePaymentPending = "PAYMENT_PENDING"
)

// AccessToken is the upstream OAuth credential. Owned exclusively by the
// token cache; never persisted outside process memory.
type AccessToken struct {
	Value     string
	ExpiresAt int64 // absolute epoch seconds, as reported by the token endpoint
}

// UsableAt reports whether the token is still valid at the given time,
// keeping a safety buffer so a token never expires mid-flight.
func (t AccessToken) UsableAt(nowEpoch, safetyBufferSeconds int64) bool {
	return t.Value != "" && nowEpoch+safetyBufferSeconds < t.ExpiresAt
}

// PaymentIntent is the request to open a payment with the gateway.
// AmountMinor is in minor currency units (paise); the major-to-minor
// conversion happens exactly once, at the API boundary.
type PaymentIntent struct {
	MerchantOrderID string
	AmountMinor     int64
	ExpireAfter     int64 // seconds until the checkout page expires
	RedirectURL     string
}

// TransactionDetail is one payment attempt reported by the gateway
// under an order.
type TransactionDetail struct {
	TransactionID string  `json:"transactionId"`
	PaymentMode   string  `json:"paymentMode,omitempty"`
	Amount        float64 `json:"amount"`
	State         string  `json:"state"`
	ErrorCode     string  `json:"errorCode,omitempty"`
}

// PaymentStatusResult is the reconciled view of an order's payment state.
// It is derived fresh on every status query and never cached, so it always
// reflects upstream truth.
type PaymentStatusResult struct {
	OrderID         string              `json:"orderId"`
	MerchantOrderID string              `json:"merchantOrderId"`
	TransactionID   string              `json:"transactionId,omitempty"`
	Amount          float64             `json:"amount"` // major units
	Status          CanonicalStatus     `json:"status"`
	RawStatus       string              `json:"rawStatus"`
	PaymentDetails  []TransactionDetail `json:"paymentDetails,omitempty"`
	UpdatedAt       time.Time           `json:"updatedAt"`
}

// GatewayStatusResponse is the raw order-status payload from the gateway.
// Amounts are in minor units here; the reconciler performs the one and
// only division back to major units.
type GatewayStatusResponse struct {
	OrderID        string                 `json:"orderId"`
	State          string                 `json:"state"`
	Amount         int64                  `json:"amount"`
	ExpireAt       int64                  `json:"expireAt,omitempty"`
	CreateTime     int64                  `json:"createTime,omitempty"`
	IntegrityHash  string                 `json:"integrityHash,omitempty"`
	PaymentDetails []GatewayPaymentDetail `json:"paymentDetails,omitempty"`
}

// GatewayPaymentDetail is one raw transaction record from the gateway.
type GatewayPaymentDetail struct {
	TransactionID string `json:"transactionId"`
	PaymentMode   string `json:"paymentMode,omitempty"`
	Timestamp     int64  `json:"timestamp,omitempty"`
	Amount        int64  `json:"amount"`
	State         string `json:"state"`
	ErrorCode     string `json:"errorCode,omitempty"`
}
