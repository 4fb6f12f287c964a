package hyper

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestGetIndexPrices(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/info", r.URL.Path)

		var req map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "allMids", req["type"])

		json.NewEncoder(w).Encode(map[string]string{
			"ETH":  "3000.5",
			"BTC":  "60000",
			"JUNK": "not-a-number",
			"NEG":  "-1",
		})
	}))
	defer server.Close()

	client := NewClient(server.URL, 5*time.Second)
	prices, err := client.GetIndexPrices(context.Background(), []string{"ETH", "BTC", "JUNK", "NEG", "DOGE"})
	require.NoError(t, err)

	assert.Equal(t, 3000.5, prices["ETH"])
	assert.Equal(t, 60000.0, prices["BTC"])
	// Unparseable, non-positive and unknown symbols are absent.
	assert.NotContains(t, prices, "JUNK")
	assert.NotContains(t, prices, "NEG")
	assert.NotContains(t, prices, "DOGE")
}

func TestGetIndexPricesEmptyRequest(t *testing.T) {
	client := NewClient("http://127.0.0.1:1", time.Second)
	prices, err := client.GetIndexPrices(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, prices)
}

func TestGetIndexPricesServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second)
	_, err := client.GetIndexPrices(context.Background(), []string{"ETH"})
	assert.Error(t, err)
}
