// Package payment implements the core business logic for the
// payment-gateway integration: intent creation, status reconciliation
// and response signing.
package payment

import (
	"fmt"
	"log"
	"strings"
	"time"

	"github.com/shopstack/shopstack-payments/internal/checksum"
	"github.com/shopstack/shopstack-payments/internal/domain"
	"github.com/shopstack/shopstack-payments/internal/metrics"
)

// Reconciler maps the gateway's raw status vocabulary onto the
// application's canonical state machine and verifies the processor's
// integrity hash against tampering.
type Reconciler struct {
	signer *checksum.Signer
}

// NewReconciler creates a Reconciler using the same signer (and secret)
// as the rest of the service; the tamper check is never computed against
// a separate key.
func NewReconciler(signer *checksum.Signer) *Reconciler {
	return &Reconciler{signer: signer}
}

// mapStatus folds the raw upstream state onto the canonical enum.
// The upstream vocabulary is not fully enumerated, so anything
// unrecognized stays PENDING rather than guessing a terminal state.
func mapStatus(rawState string) (domain.CanonicalStatus, string) {
	switch strings.ToUpper(rawState) {
	case "COMPLETED", "SUCCESS":
		return domain.StatusSuccess, domain.CodePaymentSuccess
	case "FAILED", "FAILURE":
		return domain.StatusFailed, domain.CodePaymentFailed
	default:
		return domain.StatusPending, domain.CodePaymentPending
	}
}

// Reconcile derives a fresh PaymentStatusResult from the gateway's raw
// status payload. When the payload carries an integrityHash, the hash is
// recomputed locally and a mismatch aborts reconciliation - the canonical
// result is withheld from the caller.
func (r *Reconciler) Reconcile(merchantOrderID string, resp *domain.GatewayStatusResponse) (*domain.PaymentStatusResult, string, error) {
	if resp.IntegrityHash != "" {
		if err := r.verifyIntegrity(merchantOrderID, resp); err != nil {
			return nil, "", err
		}
	}

	status, code := mapStatus(resp.State)

	result := &domain.PaymentStatusResult{
		OrderID:         resp.OrderID,
		MerchantOrderID: merchantOrderID,
		// The gateway reports minor units; this division is the only
		// place amounts are converted back to major units.
		Amount:    float64(resp.Amount) / 100,
		Status:    status,
		RawStatus: resp.State,
		UpdatedAt: time.Now().UTC(),
	}

	for _, detail := range resp.PaymentDetails {
		result.PaymentDetails = append(result.PaymentDetails, domain.TransactionDetail{
			TransactionID: detail.TransactionID,
			PaymentMode:   detail.PaymentMode,
			Amount:        float64(detail.Amount) / 100,
			State:         detail.State,
			ErrorCode:     detail.ErrorCode,
		})
		if result.TransactionID == "" {
			result.TransactionID = detail.TransactionID
		}
	}

	return result, code, nil
}

// verifyIntegrity recomputes the processor's tamper hash over
// (merchantOrderId, amount, createTime-or-now) and compares in constant
// time. A mismatch is a security incident: it is logged for audit with
// the order id and the observed amount/status, counted, and surfaced as
// an integrity violation.
func (r *Reconciler) verifyIntegrity(merchantOrderID string, resp *domain.GatewayStatusResponse) error {
	ts := resp.CreateTime
	if ts == 0 {
		ts = time.Now().Unix()
	}

	manifest := fmt.Sprintf("%s|%d|%d", merchantOrderID, resp.Amount, ts)
	if r.signer.VerifyRaw([]byte(manifest), resp.IntegrityHash) {
		return nil
	}

	metrics.IncIntegrityFailure()
	log.Printf("SECURITY: integrity hash mismatch for order %s (amount=%d state=%s)",
		merchantOrderID, resp.Amount, resp.State)

	return domain.NewPaymentError(domain.ErrIntegrityViolation,
		"payment status failed integrity verification",
		"SECURITY_VERIFICATION_FAILED")
}
