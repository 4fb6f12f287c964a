package hyper

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/sirupsen/logrus"
)

// MidsStream maintains a live view of venue mid prices over the websocket
// feed and tracks which vaults have been registered for user events. It is
// the primary ("SDK-style") price source; callers fall back to the REST
// client whenever the stream has nothing to offer.
type MidsStream struct {
	url       string
	conn      *websocket.Conn
	mu        sync.Mutex
	connected bool
	mids      map[string]float64
	midsMu    sync.RWMutex
	vaults    map[string]bool
	logger    *logrus.Logger
}

type wsMessage struct {
	Channel string          `json:"channel"`
	Data    json.RawMessage `json:"data"`
}

type subscribeMessage struct {
	Method       string            `json:"method"`
	Subscription map[string]string `json:"subscription"`
}

func NewMidsStream(url string, logger *logrus.Logger) *MidsStream {
	if url == "" {
		url = DefaultWSURL
	}
	return &MidsStream{
		url:    url,
		mids:   make(map[string]float64),
		vaults: make(map[string]bool),
		logger: logger,
	}
}

func (ms *MidsStream) Connect(ctx context.Context) error {
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.connected {
		return nil
	}

	dialer := websocket.Dialer{HandshakeTimeout: 10 * time.Second}
	conn, _, err := dialer.DialContext(ctx, ms.url, nil)
	if err != nil {
		return fmt.Errorf("failed to connect to websocket: %w", err)
	}
	ms.conn = conn
	ms.connected = true

	sub := subscribeMessage{
		Method:       "subscribe",
		Subscription: map[string]string{"type": "allMids"},
	}
	if err := conn.WriteJSON(sub); err != nil {
		ms.handleDisconnectLocked()
		return fmt.Errorf("failed to subscribe to allMids: %w", err)
	}

	go ms.readLoop(ctx)
	go ms.keepAlive(ctx)

	return nil
}

// RegisterVault subscribes to user events for a vault. Fire-and-forget: the
// dispatcher does not depend on it succeeding.
func (ms *MidsStream) RegisterVault(vault string) {
	if vault == "" {
		return
	}
	ms.mu.Lock()
	defer ms.mu.Unlock()

	if ms.vaults[vault] {
		return
	}
	ms.vaults[vault] = true
	if !ms.connected {
		return
	}
	sub := subscribeMessage{
		Method:       "subscribe",
		Subscription: map[string]string{"type": "userEvents", "user": vault},
	}
	if err := ms.conn.WriteJSON(sub); err != nil {
		ms.logger.WithError(err).WithField("vault", vault).Warn("vault registration failed")
	}
}

// GetIndexPrices serves prices from the last received allMids frame. An
// empty map just means the stream has no data yet.
func (ms *MidsStream) GetIndexPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	ms.midsMu.RLock()
	defer ms.midsMu.RUnlock()
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if price, ok := ms.mids[sym]; ok && price > 0 {
			out[sym] = price
		}
	}
	return out, nil
}

func (ms *MidsStream) readLoop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		default:
			var msg wsMessage
			if err := ms.conn.ReadJSON(&msg); err != nil {
				ms.logger.WithError(err).Error("Failed to read websocket message")
				ms.handleDisconnect()
				return
			}
			if msg.Channel == "allMids" {
				ms.applyMids(msg.Data)
			}
		}
	}
}

func (ms *MidsStream) applyMids(data json.RawMessage) {
	var frame struct {
		Mids map[string]string `json:"mids"`
	}
	if err := json.Unmarshal(data, &frame); err != nil {
		ms.logger.WithError(err).Error("Failed to decode allMids frame")
		return
	}
	ms.midsMu.Lock()
	for sym, raw := range frame.Mids {
		if price, err := strconv.ParseFloat(raw, 64); err == nil && price > 0 {
			ms.mids[sym] = price
		}
	}
	ms.midsMu.Unlock()
}

func (ms *MidsStream) keepAlive(ctx context.Context) {
	ticker := time.NewTicker(30 * time.Second)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			ms.mu.Lock()
			if ms.connected {
				if err := ms.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
					ms.logger.WithError(err).Error("Failed to send ping")
					ms.handleDisconnectLocked()
				}
			}
			ms.mu.Unlock()
		}
	}
}

func (ms *MidsStream) handleDisconnect() {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.handleDisconnectLocked()
}

func (ms *MidsStream) handleDisconnectLocked() {
	ms.connected = false
	if ms.conn != nil {
		ms.conn.Close()
	}
}
