package hyper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"
)

const (
	DefaultAPIURL = "https://api.hyperliquid-testnet.xyz"
	DefaultWSURL  = "wss://api.hyperliquid-testnet.xyz/ws"
)

// Client is the REST info client. It only hits the public info endpoint and
// never signs anything; order signing lives in the external exec agent.
type Client struct {
	baseURL    string
	httpClient *http.Client
	limiter    *rate.Limiter
}

func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultAPIURL
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
		// The public info endpoint tolerates ~10 req/s per IP.
		limiter: rate.NewLimiter(rate.Limit(10), 20),
	}
}

// GetIndexPrices fetches mid prices for the requested symbols. Symbols the
// venue does not quote are simply absent from the result.
func (c *Client) GetIndexPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if len(symbols) == 0 {
		return map[string]float64{}, nil
	}
	mids, err := c.allMids(ctx)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if raw, ok := mids[sym]; ok {
			price, err := strconv.ParseFloat(raw, 64)
			if err != nil || price <= 0 {
				continue
			}
			out[sym] = price
		}
	}
	return out, nil
}

func (c *Client) allMids(ctx context.Context) (map[string]string, error) {
	if err := c.limiter.Wait(ctx); err != nil {
		return nil, err
	}
	body, err := json.Marshal(map[string]string{"type": "allMids"})
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/info", bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("info request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("info request returned status %d", resp.StatusCode)
	}
	var mids map[string]string
	if err := json.NewDecoder(resp.Body).Decode(&mids); err != nil {
		return nil, fmt.Errorf("failed to decode allMids response: %w", err)
	}
	return mids, nil
}
