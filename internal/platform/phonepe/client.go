package phonepe

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/shopstack/shopstack-payments/config"
	"github.com/shopstack/shopstack-payments/internal/domain"
	"github.com/shopstack/shopstack-payments/internal/metrics"
)

// authScheme is PhonePe's bearer scheme for the checkout API.
const authScheme = "O-Bearer"

// Client implements domain.PaymentGateway over the PhonePe checkout API.
// It is a thin wire client: create-payment and get-status, nothing else.
// Status mapping and amount normalization live in the payment package.
type Client struct {
	cfg        config.PhonePeConfig
	tokens     *TokenCache
	httpClient *http.Client
}

// NewClient creates a gateway client using the given token cache for
// authorization. Both upstream calls carry a bounded timeout so a slow
// gateway cannot exhaust caller resources.
func NewClient(cfg config.PhonePeConfig, tokens *TokenCache) *Client {
	return &Client{
		cfg:    cfg,
		tokens: tokens,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// createPaymentRequest is the JSON body for the pay endpoint.
// Amount is in minor units; the checkout page expires after ExpireAfter
// seconds (the service fixes this at 20 minutes).
type createPaymentRequest struct {
	MerchantOrderID string      `json:"merchantOrderId"`
	Amount          int64       `json:"amount"`
	ExpireAfter     int64       `json:"expireAfter"`
	PaymentFlow     paymentFlow `json:"paymentFlow"`
}

type paymentFlow struct {
	Type         string       `json:"type"`
	MerchantURLs merchantURLs `json:"merchantUrls"`
}

type merchantURLs struct {
	RedirectURL string `json:"redirectUrl"`
}

// CreatePayment POSTs a payment intent to the gateway and returns the raw
// upstream response body. Upstream errors surface with their status code
// and body preserved.
func (c *Client) CreatePayment(ctx context.Context, intent domain.PaymentIntent) (json.RawMessage, error) {
	body := createPaymentRequest{
		MerchantOrderID: intent.MerchantOrderID,
		Amount:          intent.AmountMinor,
		ExpireAfter:     intent.ExpireAfter,
		PaymentFlow: paymentFlow{
			Type: "PG_CHECKOUT",
			MerchantURLs: merchantURLs{
				RedirectURL: intent.RedirectURL,
			},
		},
	}

	jsonBody, err := json.Marshal(body)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal payment request: %w", err)
	}

	raw, err := c.do(ctx, "create_payment", http.MethodPost, c.cfg.BaseURL+c.cfg.PayPath, jsonBody)
	if err != nil {
		return nil, err
	}
	return raw, nil
}

// GetStatus issues a GET against the order-status resource and decodes
// the gateway's raw status payload.
func (c *Client) GetStatus(ctx context.Context, merchantOrderID string) (*domain.GatewayStatusResponse, error) {
	statusURL := c.cfg.BaseURL + fmt.Sprintf(c.cfg.StatusPathFormat, merchantOrderID)

	raw, err := c.do(ctx, "get_status", http.MethodGet, statusURL, nil)
	if err != nil {
		return nil, err
	}

	var status domain.GatewayStatusResponse
	if err := json.Unmarshal(raw, &status); err != nil {
		return nil, fmt.Errorf("failed to decode status response: %w", err)
	}
	return &status, nil
}

// do performs one authorized request. Exactly one upstream call per
// logical operation; failures propagate immediately.
func (c *Client) do(ctx context.Context, operation, method, requestURL string, body []byte) (json.RawMessage, error) {
	token, err := c.tokens.GetToken(ctx)
	if err != nil {
		return nil, err
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, requestURL, reader)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", authScheme+" "+token.Value)
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	resp, err := c.httpClient.Do(req)
	metrics.ObserveUpstream(operation, time.Since(start).Seconds())
	if err != nil {
		metrics.IncUpstreamCall(operation, "network_error")
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstreamGateway, err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		metrics.IncUpstreamCall(operation, "read_error")
		return nil, fmt.Errorf("failed to read gateway response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		metrics.IncUpstreamCall(operation, "upstream_error")
		return nil, &domain.GatewayHTTPError{
			StatusCode: resp.StatusCode,
			Body:       respBody,
		}
	}

	metrics.IncUpstreamCall(operation, "success")
	return respBody, nil
}
