package hyper

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/vaultcraft/execd/pkg/models"
)

// ExecClient shapes the wire payloads the exec agent sends to the venue.
// It performs no network IO itself.
type ExecClient struct{}

// BuildOpenOrder builds the dry-run/open payload for an order.
func (ExecClient) BuildOpenOrder(order models.Order) map[string]interface{} {
	payload := map[string]interface{}{
		"type":        "open",
		"symbol":      order.Symbol,
		"side":        string(order.Side),
		"size":        order.Size,
		"reduce_only": order.ReduceOnly,
	}
	if order.Leverage > 0 {
		payload["leverage"] = order.Leverage
	}
	if order.OrderType == models.OrderTypeLimit {
		payload["order_type"] = string(order.OrderType)
		payload["limit_price"] = order.LimitPrice
		if order.TimeInForce != "" {
			payload["time_in_force"] = order.TimeInForce
		}
	}
	if order.StopLoss > 0 {
		payload["stop_loss"] = order.StopLoss
	}
	if order.TakeProfit > 0 {
		payload["take_profit"] = order.TakeProfit
	}
	return payload
}

// BuildCloseOrder builds the close payload. A nil size means "close the
// whole leg" and is left for the venue to resolve.
func (ExecClient) BuildCloseOrder(symbol string, size *float64) map[string]interface{} {
	payload := map[string]interface{}{
		"type":   "close",
		"symbol": symbol,
	}
	if size != nil {
		payload["size"] = *size
	}
	return payload
}

// AgentDriver executes orders through an external signing agent. The agent
// holds the trading key and speaks the venue's signed wire protocol; this
// driver only ships it well-formed payloads and relays acks.
type AgentDriver struct {
	baseURL    string
	httpClient *http.Client
	exec       ExecClient
}

func NewAgentDriver(baseURL string, timeout time.Duration) (*AgentDriver, error) {
	if baseURL == "" {
		return nil, fmt.Errorf("exec agent URL not configured")
	}
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &AgentDriver{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}, nil
}

func (d *AgentDriver) Open(ctx context.Context, order models.Order) (map[string]interface{}, error) {
	return d.post(ctx, "/exec/open", d.exec.BuildOpenOrder(order))
}

func (d *AgentDriver) Close(ctx context.Context, symbol string, size *float64) (map[string]interface{}, error) {
	return d.post(ctx, "/exec/close", d.exec.BuildCloseOrder(symbol, size))
}

func (d *AgentDriver) post(ctx context.Context, path string, payload map[string]interface{}) (map[string]interface{}, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, d.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := d.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exec agent request failed: %w", err)
	}
	defer resp.Body.Close()

	var ack map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&ack); err != nil {
		return nil, fmt.Errorf("failed to decode exec agent response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("exec agent returned status %d", resp.StatusCode)
	}
	return map[string]interface{}{"ack": ack}, nil
}
