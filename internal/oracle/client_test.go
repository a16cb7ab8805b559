package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillm/trade-journal/internal/domain"
	"github.com/kirillm/trade-journal/internal/parsing"
)

const testAddress = "0x4ed4E862860beD51a9570b96d89aF5E1B0Efefed"

func completionServer(t *testing.T, status int, content string) *httptest.Server {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v1/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		if status != http.StatusOK {
			_, _ = w.Write([]byte(`{"error":{"message":"upstream exploded","type":"server_error"}}`))
			return
		}
		body := map[string]interface{}{
			"id":     "chatcmpl-1",
			"object": "chat.completion",
			"model":  "test-model",
			"choices": []map[string]interface{}{{
				"index":         0,
				"finish_reason": "stop",
				"message":       map[string]string{"role": "assistant", "content": content},
			}},
		}
		_ = json.NewEncoder(w).Encode(body)
	}))
	t.Cleanup(srv.Close)
	return srv
}

func newTestClient(t *testing.T, srv *httptest.Server) *Client {
	t.Helper()
	c, err := NewClient(Config{
		APIKey:  "test-key",
		BaseURL: srv.URL + "/v1",
		Model:   "test-model",
		Timeout: 5 * time.Second,
	}, nil, nil)
	require.NoError(t, err)
	return c
}

func TestNewClientRequiresKey(t *testing.T) {
	_, err := NewClient(Config{}, nil, nil)
	assert.True(t, errors.Is(err, domain.ErrInvalidInput))
}

func TestExtractPerp(t *testing.T) {
	content := "```json\n" + `{"trade_type":"BUY","token_symbol":"hype","venue_type":"perp","exchange":"Hyperliquid",
"leverage":"3x","position_type":null,"amount_value":100000,"amount_currency":"USD"}` + "\n```"
	c := newTestClient(t, completionServer(t, http.StatusOK, content))

	trades, err := c.Extract(context.Background(), "100K hype 3x hyperliquid")
	require.NoError(t, err)
	require.Len(t, trades, 1)

	trade := trades[0]
	assert.True(t, trade.IsPerp)
	assert.Equal(t, "HYPE", trade.TokenSymbol)
	assert.Equal(t, domain.ExchangeHyperliquid, trade.Exchange)
	assert.Equal(t, domain.ExchangeHyperliquid, trade.Chain)
	assert.Equal(t, domain.PositionLong, trade.PositionType)
	require.NotNil(t, trade.Leverage)
	assert.Equal(t, 3.0, *trade.Leverage)
	assert.Equal(t, 100000.0, *trade.AmountSpent)
}

func TestExtractSpotAddress(t *testing.T) {
	content := `{"trade_type":"buy","contract_address":"` + testAddress + `","chain":"ETH",
"venue_type":"spot","amount_value":"1K","amount_currency":"usdc","market_cap":"50M"}`
	c := newTestClient(t, completionServer(t, http.StatusOK, content))

	trades, err := c.Extract(context.Background(), "whatever")
	require.NoError(t, err)

	trade := trades[0]
	assert.Equal(t, domain.TradeBuy, trade.TradeType)
	assert.Equal(t, testAddress, trade.ContractAddress)
	assert.Equal(t, domain.ChainEthereum, trade.Chain)
	assert.Equal(t, 1000.0, *trade.AmountSpent)
	assert.Equal(t, "USDC", trade.SpendCurrency)
	assert.Equal(t, 50_000_000.0, *trade.MarketCap)
	assert.False(t, trade.IsVenueTrade())
}

func TestExtractAddressWithoutChainUsesFallback(t *testing.T) {
	content := `{"trade_type":"BUY","contract_address":"` + testAddress + `","chain":null,"venue_type":"spot"}`
	c := newTestClient(t, completionServer(t, http.StatusOK, content))

	trades, err := c.Extract(context.Background(), "whatever")
	require.NoError(t, err)
	assert.Equal(t, domain.ChainBase, trades[0].Chain)
	assert.Contains(t, trades[0].MissingFields, parsing.FieldAmount)
}

func TestExtractFailures(t *testing.T) {
	tests := []struct {
		name    string
		status  int
		content string
	}{
		{"api error", http.StatusInternalServerError, ""},
		{"not json", http.StatusOK, "I think you bought something"},
		{"no identity", http.StatusOK, `{"trade_type":"BUY","venue_type":"spot"}`},
		{"bad address", http.StatusOK, `{"trade_type":"BUY","contract_address":"0xnothex","venue_type":"spot"}`},
		{"perp without exchange", http.StatusOK, `{"trade_type":"BUY","token_symbol":"BTC","venue_type":"perp"}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, completionServer(t, tt.status, tt.content))
			_, err := c.Extract(context.Background(), "msg")
			require.Error(t, err)
			assert.True(t, errors.Is(err, domain.ErrOracleUnavailable))
		})
	}
}

func TestParserFallsBackOnOracleError(t *testing.T) {
	c := newTestClient(t, completionServer(t, http.StatusInternalServerError, ""))
	p := parsing.NewParser(parsing.NewRuleExtractor(nil, nil), c, nil)

	result := p.Parse(context.Background(), "Sold PEPE for $3000")
	require.True(t, result.Success)
	assert.Equal(t, "PEPE", result.Trades[0].TokenSymbol)
	assert.Equal(t, domain.ConfidenceLow, result.Trades[0].ParseConfidence)
}

func TestExtractJSON(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{`{"a":1}`, `{"a":1}`},
		{"```json\n{\"a\":1}\n```", "\n{\"a\":1}\n"},
		{"Here:\n```\n[1]\n```\nbye", "\n[1]\n"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, extractJSON(tt.in))
	}
}

func TestFlexFloat(t *testing.T) {
	tests := []struct {
		in   string
		want *float64
	}{
		{`null`, nil},
		{`""`, nil},
		{`2.5`, domain.Float64Ptr(2.5)},
		{`"3x"`, domain.Float64Ptr(3)},
		{`"$1.5K"`, domain.Float64Ptr(1500)},
		{`"2M"`, domain.Float64Ptr(2_000_000)},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f flexFloat
			require.NoError(t, json.Unmarshal([]byte(tt.in), &f))
			assert.Equal(t, tt.want, f.Value)
		})
	}
}
