package payment

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"math"
	"net"
	"net/url"
	"strings"

	"github.com/shopstack/shopstack-payments/internal/checksum"
	"github.com/shopstack/shopstack-payments/internal/domain"
)

// paymentExpirySeconds is how long the checkout page stays open: 20 minutes.
const paymentExpirySeconds = 1200

// Service orchestrates the payment flows: validate, convert the amount to
// minor units at the boundary, call the gateway, reconcile and sign.
type Service struct {
	gateway    domain.PaymentGateway
	signer     *checksum.Signer
	reconciler *Reconciler
	mailer     domain.EmailSender
	orders     domain.OrderRepository
}

// NewService creates a payment service with the required dependencies.
// The mailer and order repository belong to the hosting storefront and
// may be nil; both are best-effort side channels either way.
func NewService(gateway domain.PaymentGateway, signer *checksum.Signer, mailer domain.EmailSender, orders domain.OrderRepository) *Service {
	return &Service{
		gateway:    gateway,
		signer:     signer,
		reconciler: NewReconciler(signer),
		mailer:     mailer,
		orders:     orders,
	}
}

// CreatePaymentInput is the validated boundary input for a checkout attempt.
// Amount is in major units (rupees) exactly as the client supplied it.
type CreatePaymentInput struct {
	MerchantOrderID string
	Amount          float64

	// Host is the inbound request's host, used to derive the redirect URL
	// the buyer returns to after checkout.
	Host string
}

// CreatePayment opens a payment with the gateway and returns the raw
// upstream response for the checkout UI.
func (s *Service) CreatePayment(ctx context.Context, in CreatePaymentInput) (json.RawMessage, error) {
	if in.MerchantOrderID == "" {
		return nil, domain.NewPaymentError(domain.ErrValidation,
			"merchantOrderId is required", "VALIDATION_ERROR")
	}
	if in.Amount <= 0 {
		return nil, domain.NewPaymentError(domain.ErrValidation,
			"amount must be greater than 0", "VALIDATION_ERROR")
	}

	// Major-to-minor conversion happens exactly once, here at the
	// boundary. Nothing downstream multiplies or divides again until
	// the reconciler inverts it.
	amountMinor := int64(math.Round(in.Amount * 100))

	intent := domain.PaymentIntent{
		MerchantOrderID: in.MerchantOrderID,
		AmountMinor:     amountMinor,
		ExpireAfter:     paymentExpirySeconds,
		RedirectURL:     redirectURLFor(in.Host, in.MerchantOrderID),
	}

	raw, err := s.gateway.CreatePayment(ctx, intent)
	if err != nil {
		return nil, err
	}

	log.Printf("created payment intent for order %s, amount %.2f", in.MerchantOrderID, in.Amount)
	return raw, nil
}

// StatusEnvelope is the signed status response handed back to the caller.
// The checksum lets the client prove integrity when it later echoes the
// payload back as verification data.
type StatusEnvelope struct {
	Result   *domain.PaymentStatusResult
	Code     string
	Checksum string
}

// CheckStatus queries the gateway for the order's current state,
// reconciles it onto the canonical status machine and signs the result.
// The result is derived fresh on every call and never cached.
func (s *Service) CheckStatus(ctx context.Context, merchantOrderID string) (*StatusEnvelope, error) {
	if merchantOrderID == "" {
		return nil, domain.NewPaymentError(domain.ErrValidation,
			"merchantOrderId is required", "VALIDATION_ERROR")
	}

	raw, err := s.gateway.GetStatus(ctx, merchantOrderID)
	if err != nil {
		return nil, err
	}

	result, code, err := s.reconciler.Reconcile(merchantOrderID, raw)
	if err != nil {
		return nil, err
	}

	sum, err := s.signer.Sign(result)
	if err != nil {
		return nil, fmt.Errorf("failed to sign status result: %w", err)
	}

	if result.Status == domain.StatusSuccess {
		s.recordSuccess(ctx, result)
	}

	return &StatusEnvelope{Result: result, Code: code, Checksum: sum}, nil
}

// VerifyClientAssertion checks a client-supplied verification payload
// against its checksum. Malformed checksums are a validation problem;
// a well-formed checksum that does not match is an integrity violation.
func (s *Service) VerifyClientAssertion(verificationData any, providedChecksum string) error {
	ok, err := s.signer.Verify(verificationData, providedChecksum)
	if err != nil {
		return domain.NewPaymentError(domain.ErrValidation,
			"checksum is not valid hex", "VALIDATION_ERROR")
	}
	if !ok {
		return domain.NewPaymentError(domain.ErrIntegrityViolation,
			"client checksum verification failed", "SECURITY_VERIFICATION_FAILED")
	}
	return nil
}

// recordSuccess notifies the storefront's collaborators about a successful
// payment. Both are best-effort side channels: a failed order update or
// confirmation email never fails the status operation it is attached to.
func (s *Service) recordSuccess(ctx context.Context, result *domain.PaymentStatusResult) {
	if s.orders != nil {
		if err := s.orders.MarkOrderPaid(ctx, result.MerchantOrderID, result.TransactionID); err != nil {
			log.Printf("order update failed for %s: %v", result.MerchantOrderID, err)
		}
	}
	if s.mailer != nil {
		if err := s.mailer.SendPaymentConfirmation(ctx, result.MerchantOrderID, result.Amount); err != nil {
			log.Printf("confirmation email failed for order %s: %v", result.MerchantOrderID, err)
		}
	}
}

// redirectURLFor builds the URL the buyer is sent back to after checkout.
// The scheme downgrades to http only for loopback development hosts;
// anything else gets https so the redirect never travels in plaintext
// in production.
func redirectURLFor(host, merchantOrderID string) string {
	scheme := "https"
	if isLoopbackHost(host) {
		scheme = "http"
	}
	return fmt.Sprintf("%s://%s/payment/result?merchantOrderId=%s",
		scheme, host, url.QueryEscape(merchantOrderID))
}

// isLoopbackHost reports whether the host (possibly host:port) refers to
// a local development machine.
func isLoopbackHost(host string) bool {
	hostname := host
	if h, _, err := net.SplitHostPort(host); err == nil {
		hostname = h
	}
	if hostname == "localhost" || strings.HasSuffix(hostname, ".localhost") {
		return true
	}
	if ip := net.ParseIP(strings.Trim(hostname, "[]")); ip != nil {
		return ip.IsLoopback()
	}
	return false
}
