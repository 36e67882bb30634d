// Package api contains the HTTP handlers and routing for the payment service.
package api

import (
	"encoding/json"
	"errors"
	"io"
	"log"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/shopstack/shopstack-payments/internal/domain"
	"github.com/shopstack/shopstack-payments/internal/metrics"
	"github.com/shopstack/shopstack-payments/internal/payment"
)

// Handler contains the HTTP handlers for the payment API.
type Handler struct {
	paymentService *payment.Service
}

// NewHandler creates a new API handler with the payment service.
func NewHandler(paymentService *payment.Service) *Handler {
	return &Handler{
		paymentService: paymentService,
	}
}

// CreatePaymentRequest is the JSON body for the create-payment endpoint.
// Amount arrives in major units (rupees); conversion to minor units is
// the service's job, not the client's.
type CreatePaymentRequest struct {
	Amount          float64 `json:"amount" binding:"required,gt=0"`
	MerchantOrderID string  `json:"merchantOrderId" binding:"required"`
}

// StatusVerification is the optional body on a status check: the client
// echoes back a previously signed payload to authenticate its own state.
type StatusVerification struct {
	VerificationData json.RawMessage `json:"verificationData"`
	Checksum         string          `json:"checksum"`
}

// StatusResponse is the signed response for the status endpoint.
type StatusResponse struct {
	Success  bool                        `json:"success"`
	Code     string                      `json:"code"`
	Message  string                      `json:"message"`
	Data     *domain.PaymentStatusResult `json:"data"`
	Checksum string                      `json:"checksum"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Success  bool            `json:"success"`
	Error    string          `json:"error"`
	Code     string          `json:"code,omitempty"`
	Upstream json.RawMessage `json:"upstream,omitempty"`
}

// CreatePayment handles POST /payments.
// On success the upstream's raw JSON passes through so the checkout UI
// gets the provider's redirect fields unmodified.
func (h *Handler) CreatePayment(c *gin.Context) {
	var req CreatePaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		metrics.IncRequest("create_payment", "validation_error")
		c.JSON(http.StatusBadRequest, ErrorResponse{
			Success: false,
			Error:   "amount and merchantOrderId are required",
			Code:    "VALIDATION_ERROR",
		})
		return
	}

	raw, err := h.paymentService.CreatePayment(c.Request.Context(), payment.CreatePaymentInput{
		MerchantOrderID: req.MerchantOrderID,
		Amount:          req.Amount,
		Host:            c.Request.Host,
	})
	if err != nil {
		metrics.IncRequest("create_payment", "error")
		h.handleServiceError(c, err, req.MerchantOrderID)
		return
	}

	metrics.IncRequest("create_payment", "success")
	c.Data(http.StatusOK, "application/json", raw)
}

// PaymentStatus handles GET|POST /payments/:merchantOrderId/status.
// A POST may carry {verificationData, checksum}; when present, the
// checksum is verified before any upstream call happens.
func (h *Handler) PaymentStatus(c *gin.Context) {
	merchantOrderID := c.Param("merchantOrderId")

	if c.Request.Method == http.MethodPost {
		if err := h.verifyClientBody(c, merchantOrderID); err != nil {
			metrics.IncRequest("payment_status", "verification_error")
			h.handleServiceError(c, err, merchantOrderID)
			return
		}
	}

	envelope, err := h.paymentService.CheckStatus(c.Request.Context(), merchantOrderID)
	if err != nil {
		metrics.IncRequest("payment_status", "error")
		h.handleServiceError(c, err, merchantOrderID)
		return
	}

	metrics.IncRequest("payment_status", "success")
	c.JSON(http.StatusOK, StatusResponse{
		Success:  true,
		Code:     envelope.Code,
		Message:  statusMessage(envelope.Code),
		Data:     envelope.Result,
		Checksum: envelope.Checksum,
	})
}

// verifyClientBody reads an optional verification envelope from the
// request body. An empty body is fine; a present checksum must verify.
func (h *Handler) verifyClientBody(c *gin.Context, merchantOrderID string) error {
	body, err := io.ReadAll(c.Request.Body)
	if err != nil || len(body) == 0 {
		return nil
	}

	var verification StatusVerification
	if err := json.Unmarshal(body, &verification); err != nil {
		return domain.NewPaymentError(domain.ErrValidation,
			"request body is not valid JSON", "VALIDATION_ERROR")
	}
	if verification.Checksum == "" {
		return nil
	}

	return h.paymentService.VerifyClientAssertion(verification.VerificationData, verification.Checksum)
}

// Health handles GET /health.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "shopstack-payments",
	})
}

// statusMessage maps a response code to its human-readable message.
func statusMessage(code string) string {
	switch code {
	case domain.CodePaymentSuccess:
		return "Payment successful"
	case domain.CodePaymentFailed:
		return "Payment failed"
	default:
		return "Payment pending"
	}
}

// handleServiceError maps domain errors to HTTP responses. Integrity
// violations are security events and get logged with the client IP and
// the affected order before the response goes out.
func (h *Handler) handleServiceError(c *gin.Context, err error, merchantOrderID string) {
	var gatewayErr *domain.GatewayHTTPError
	if errors.As(err, &gatewayErr) {
		// Mirror the upstream status and keep the raw body available
		// to operators; nothing gets swallowed.
		resp := ErrorResponse{
			Success: false,
			Error:   "payment gateway rejected the request",
			Code:    "UPSTREAM_GATEWAY_ERROR",
		}
		if json.Valid(gatewayErr.Body) {
			resp.Upstream = gatewayErr.Body
		}
		log.Printf("gateway error for order %s: status %d, body %s",
			merchantOrderID, gatewayErr.StatusCode, gatewayErr.Body)
		c.JSON(gatewayErr.StatusCode, resp)
		return
	}

	var paymentErr *domain.PaymentError
	if errors.As(err, &paymentErr) {
		statusCode := http.StatusInternalServerError
		switch {
		case errors.Is(paymentErr.Err, domain.ErrValidation):
			statusCode = http.StatusBadRequest
		case errors.Is(paymentErr.Err, domain.ErrIntegrityViolation):
			statusCode = http.StatusBadRequest
			log.Printf("SECURITY: integrity failure from %s for order %s: %s",
				c.ClientIP(), merchantOrderID, paymentErr.Message)
		case errors.Is(paymentErr.Err, domain.ErrRateLimited):
			statusCode = http.StatusTooManyRequests
		case errors.Is(paymentErr.Err, domain.ErrUpstreamAuth):
			statusCode = http.StatusBadGateway
		}

		c.JSON(statusCode, ErrorResponse{
			Success: false,
			Error:   paymentErr.Message,
			Code:    paymentErr.Code,
		})
		return
	}

	if errors.Is(err, domain.ErrUpstreamAuth) {
		c.JSON(http.StatusBadGateway, ErrorResponse{
			Success: false,
			Error:   "failed to authorize with the payment gateway",
			Code:    "UPSTREAM_AUTH_ERROR",
		})
		return
	}

	// Generic error: full detail to logs, generic message to the caller.
	log.Printf("internal error for order %s: %v", merchantOrderID, err)
	c.JSON(http.StatusInternalServerError, ErrorResponse{
		Success: false,
		Error:   "Internal server error",
		Code:    "INTERNAL_ERROR",
	})
}
