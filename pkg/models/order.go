package models

type OrderSide string

const (
	OrderSideBuy  OrderSide = "buy"
	OrderSideSell OrderSide = "sell"
)

type OrderType string

const (
	OrderTypeMarket OrderType = "market"
	OrderTypeLimit  OrderType = "limit"
)

// Order is the immutable request a caller submits to the dispatcher.
// Zero-valued numeric fields mean "not supplied"; an empty Venue resolves
// to the primary venue.
type Order struct {
	Symbol      string    `json:"symbol"`
	Size        float64   `json:"size"`
	Side        OrderSide `json:"side"`
	Venue       string    `json:"venue,omitempty"`
	ReduceOnly  bool      `json:"reduce_only,omitempty"`
	Leverage    float64   `json:"leverage,omitempty"`
	OrderType   OrderType `json:"order_type,omitempty"`
	LimitPrice  float64   `json:"limit_price,omitempty"`
	TimeInForce string    `json:"time_in_force,omitempty"`
	StopLoss    float64   `json:"stop_loss,omitempty"`
	TakeProfit  float64   `json:"take_profit,omitempty"`
}

// Opposite returns the side that unwinds exposure created by s.
func (s OrderSide) Opposite() OrderSide {
	if s == OrderSideBuy {
		return OrderSideSell
	}
	return OrderSideBuy
}

// ExecutionOutcome is the result contract of every dispatcher call.
// OK=false guarantees no ledger mutation happened for the call.
type ExecutionOutcome struct {
	OK       bool        `json:"ok"`
	Payload  interface{} `json:"payload,omitempty"`
	Attempts int         `json:"attempts,omitempty"`
	Venue    string      `json:"venue,omitempty"`
	DryRun   bool        `json:"dry_run,omitempty"`
	Mode     string      `json:"mode,omitempty"`
	Error    string      `json:"error,omitempty"`
}
