// Package phonepe implements the domain.PaymentGateway interface against
// the PhonePe checkout API, consumed through its published HTTP contract.
package phonepe

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"github.com/shopstack/shopstack-payments/config"
	"github.com/shopstack/shopstack-payments/internal/domain"
	"github.com/shopstack/shopstack-payments/internal/metrics"
)

// safetyBufferSeconds keeps a margin before expiry so a token is never
// used when it could expire mid-flight.
const safetyBufferSeconds = 60

// TokenCache is the process-wide cache of the upstream access credential.
// One instance is constructed at startup and injected into the gateway
// client; there is no ambient module-level state.
type TokenCache struct {
	mu    sync.Mutex
	token domain.AccessToken

	cfg        config.PhonePeConfig
	httpClient *http.Client
}

// NewTokenCache creates a TokenCache for the configured token endpoint.
func NewTokenCache(cfg config.PhonePeConfig) *TokenCache {
	return &TokenCache{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: 10 * time.Second,
		},
	}
}

// tokenResponse is the JSON body from the token endpoint. expires_at is
// an absolute epoch timestamp, not a duration.
type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresAt   int64  `json:"expires_at"`
}

// GetToken returns a valid credential, transparently refreshing if the
// cached one is missing, expired, or inside the safety buffer.
//
// The whole read-check-refresh-write sequence runs under the mutex, so
// when the token has just expired only one caller performs the upstream
// request and every concurrent caller blocks until that refresh lands.
func (tc *TokenCache) GetToken(ctx context.Context) (domain.AccessToken, error) {
	tc.mu.Lock()
	defer tc.mu.Unlock()

	if tc.token.UsableAt(time.Now().Unix(), safetyBufferSeconds) {
		return tc.token, nil
	}

	token, err := tc.refresh(ctx)
	if err != nil {
		// Leave the stale token untouched; a later call can retry
		// without having destroyed working state.
		metrics.IncTokenRefresh("failure")
		return domain.AccessToken{}, err
	}

	metrics.IncTokenRefresh("success")
	tc.token = token
	return token, nil
}

// refresh performs the client-credentials POST against the token endpoint.
// No retry happens here - retry policy belongs to the caller.
func (tc *TokenCache) refresh(ctx context.Context) (domain.AccessToken, error) {
	form := url.Values{}
	form.Set("client_id", tc.cfg.ClientID)
	form.Set("client_version", tc.cfg.ClientVersion)
	form.Set("client_secret", tc.cfg.ClientSecret)
	form.Set("grant_type", "client_credentials")

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, tc.cfg.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("failed to create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := tc.httpClient.Do(req)
	if err != nil {
		return domain.AccessToken{}, fmt.Errorf("%w: %v", domain.ErrUpstreamAuth, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(resp.Body)
		return domain.AccessToken{}, fmt.Errorf("%w: token endpoint returned status %d: %s",
			domain.ErrUpstreamAuth, resp.StatusCode, string(body))
	}

	var tokenResp tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&tokenResp); err != nil {
		return domain.AccessToken{}, fmt.Errorf("%w: failed to decode token response: %v", domain.ErrUpstreamAuth, err)
	}
	if tokenResp.AccessToken == "" {
		return domain.AccessToken{}, fmt.Errorf("%w: token endpoint returned an empty access_token", domain.ErrUpstreamAuth)
	}

	return domain.AccessToken{
		Value:     tokenResp.AccessToken,
		ExpiresAt: tokenResp.ExpiresAt,
	}, nil
}
