package exec

import (
	"context"
	"strings"

	"github.com/vaultcraft/execd/pkg/models"
)

// MockGoldDriver is the deterministic testing venue. Every order fills
// immediately at the configured fixed price.
type MockGoldDriver struct {
	price float64
}

func NewMockGoldDriver(price float64) *MockGoldDriver {
	return &MockGoldDriver{price: price}
}

func (d *MockGoldDriver) Open(ctx context.Context, order models.Order) (map[string]interface{}, error) {
	return map[string]interface{}{
		"ack": map[string]interface{}{
			"status": "filled",
			"venue":  "mock_gold",
			"symbol": strings.ToUpper(order.Symbol),
			"side":   string(order.Side),
			"size":   order.Size,
			"price":  d.price,
		},
	}, nil
}

func (d *MockGoldDriver) Close(ctx context.Context, symbol string, size *float64) (map[string]interface{}, error) {
	ack := map[string]interface{}{
		"status": "closed",
		"venue":  "mock_gold",
		"symbol": strings.ToUpper(symbol),
		"price":  d.price,
	}
	if size != nil {
		ack["size"] = *size
	}
	return map[string]interface{}{"ack": ack}, nil
}
