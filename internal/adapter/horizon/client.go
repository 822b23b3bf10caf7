// Package horizon implements the ledger valuation source against a
// Horizon-style HTTP API.
package horizon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/lumenpulse/analytics-backend/internal/domain"
)

const (
	defaultTimeout = 10 * time.Second
	maxRetries     = 3
	retryDelay     = 500 * time.Millisecond

	// nativeAssetCode is the code reported for the network's native asset,
	// which Horizon returns without a code or issuer.
	nativeAssetCode = "XLM"
)

// Client fetches account holdings from a Horizon server.
// It implements domain.ValuationSource.
type Client struct {
	baseURL string
	http    *http.Client
}

// NewClient creates a new Horizon client with a bounded request timeout.
// A zero timeout falls back to the default.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}

	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: timeout},
	}
}

// accountResponse is the subset of the Horizon account record we consume.
type accountResponse struct {
	Balances []struct {
		Balance     string `json:"balance"`
		AssetType   string `json:"asset_type"`
		AssetCode   string `json:"asset_code"`
		AssetIssuer string `json:"asset_issuer"`
	} `json:"balances"`
}

// FetchHoldings returns the account's current balances as unpriced holdings.
// A 404 from Horizon maps to domain.ErrAccountNotFound and is not retried;
// transient failures are retried with a linear delay before being reported
// as domain.ErrSourceUnavailable.
func (c *Client) FetchHoldings(ctx context.Context, stellarAddress string) ([]domain.Holding, error) {
	url := fmt.Sprintf("%s/accounts/%s", c.baseURL, stellarAddress)

	var lastErr error
	for attempt := 0; attempt < maxRetries; attempt++ {
		if attempt > 0 {
			select {
			case <-ctx.Done():
				return nil, fmt.Errorf("fetch holdings cancelled: %w", ctx.Err())
			case <-time.After(retryDelay * time.Duration(attempt)):
			}
		}

		holdings, err := c.fetchOnce(ctx, url)
		if err == nil {
			return holdings, nil
		}
		if errors.Is(err, domain.ErrAccountNotFound) {
			return nil, err
		}
		lastErr = err
	}

	return nil, fmt.Errorf("horizon request failed after %d attempts: %v: %w", maxRetries, lastErr, domain.ErrSourceUnavailable)
}

func (c *Client) fetchOnce(ctx context.Context, url string) ([]domain.Holding, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to build horizon request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("horizon request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, fmt.Errorf("ledger account missing: %w", domain.ErrAccountNotFound)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("horizon returned status %d", resp.StatusCode)
	}

	var account accountResponse
	if err := json.NewDecoder(resp.Body).Decode(&account); err != nil {
		return nil, fmt.Errorf("failed to decode horizon response: %w", err)
	}

	holdings := make([]domain.Holding, 0, len(account.Balances))
	for _, balance := range account.Balances {
		amount, err := decimal.NewFromString(balance.Balance)
		if err != nil {
			return nil, fmt.Errorf("failed to parse balance %q: %w", balance.Balance, err)
		}

		holding := domain.Holding{
			AssetCode: balance.AssetCode,
			Amount:    amount,
		}
		if balance.AssetType == "native" {
			holding.AssetCode = nativeAssetCode
		} else if balance.AssetIssuer != "" {
			issuer := balance.AssetIssuer
			holding.Issuer = &issuer
		}

		holdings = append(holdings, holding)
	}

	return holdings, nil
}
