package market

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillm/trade-journal/internal/domain"
)

const (
	pepeAddress = "0x6982508145454Ce325dDbE47a25d4ec3d2311933"
	pairAddress = "0xA43fe16908251ee70EF74718545e4FE6C5cCEc9f"
)

const tokenPairsBody = `{"schemaVersion":"1.0.0","pairs":[
 {"chainId":"ethereum","dexId":"uniswap","pairAddress":"0xeth1",
  "baseToken":{"address":"0x6982508145454Ce325dDbE47a25d4ec3d2311933","name":"Pepe","symbol":"PEPE"},
  "quoteToken":{"address":"0xC02a","name":"Wrapped Ether","symbol":"WETH"},
  "priceUsd":"0.00001","liquidity":{"usd":5000000},"fdv":4200000000,"volume":{"h24":1000},"priceChange":{"h24":-2.5}},
 {"chainId":"base","dexId":"aerodrome","pairAddress":"0xbase1",
  "baseToken":{"address":"0x6982508145454Ce325dDbE47a25d4ec3d2311933","name":"Pepe","symbol":"PEPE"},
  "quoteToken":{"address":"0x4200","name":"Wrapped Ether","symbol":"WETH"},
  "priceUsd":"0.000011","liquidity":{"usd":1000},"marketCap":4100000000},
 {"chainId":"base","dexId":"uniswap","pairAddress":"0xbase2",
  "baseToken":{"address":"0x6982508145454Ce325dDbE47a25d4ec3d2311933","name":"Pepe","symbol":"PEPE"},
  "quoteToken":{"address":"0x4200","name":"Wrapped Ether","symbol":"WETH"},
  "priceUsd":"0.000012","liquidity":{"usd":90000}}
]}`

func newTestServer(t *testing.T, handler http.HandlerFunc) *DexScreenerClient {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)
	return NewDexScreenerClient(DexScreenerConfig{BaseURL: srv.URL, Timeout: time.Second}, nil)
}

func TestLookupPrefersChainOrder(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/tokens/"+pepeAddress, r.URL.Path)
		_, _ = w.Write([]byte(tokenPairsBody))
	})

	info, err := client.Lookup(context.Background(), pepeAddress, "")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, domain.ChainBase, info.Chain)
	assert.Equal(t, "PEPE", info.Symbol)
	assert.Equal(t, "Pepe", info.Name)
	require.NotNil(t, info.PriceUSD)
	assert.Equal(t, 0.000012, *info.PriceUSD)
	assert.Equal(t, "https://dexscreener.com/base/0xbase2", info.DexURL)
}

func TestLookupUsesChainHint(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(tokenPairsBody))
	})

	info, err := client.Lookup(context.Background(), pepeAddress, "ethereum")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, domain.ChainEthereum, info.Chain)
	require.NotNil(t, info.MarketCap)
	assert.Equal(t, 4200000000.0, *info.MarketCap, "fdv used when marketCap is absent")
	assert.Equal(t, 5000000.0, *info.LiquidityUSD)
	assert.Equal(t, -2.5, *info.PriceChange24h)
}

func TestLookupNotFound(t *testing.T) {
	tests := []struct {
		name   string
		status int
		body   string
	}{
		{"404", http.StatusNotFound, ""},
		{"null pairs", http.StatusOK, `{"schemaVersion":"1.0.0","pairs":null}`},
		{"empty pairs", http.StatusOK, `{"pairs":[]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			info, err := client.Lookup(context.Background(), pepeAddress, "")
			assert.NoError(t, err)
			assert.Nil(t, info)
		})
	}
}

func TestLookupServiceErrors(t *testing.T) {
	tests := []struct {
		name        string
		status      int
		body        string
		rateLimited bool
	}{
		{"429", http.StatusTooManyRequests, "", true},
		{"500", http.StatusInternalServerError, "oops", false},
		{"malformed", http.StatusOK, "{not json", false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})
			info, err := client.Lookup(context.Background(), pepeAddress, "")
			require.Error(t, err)
			assert.Nil(t, info)
			assert.True(t, errors.Is(err, domain.ErrMarketData))
			assert.Equal(t, tt.rateLimited, errors.Is(err, domain.ErrRateLimited))
		})
	}
}

func TestLookupTimeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	t.Cleanup(func() {
		close(release)
		srv.Close()
	})

	client := NewDexScreenerClient(DexScreenerConfig{BaseURL: srv.URL, Timeout: 50 * time.Millisecond}, nil)
	_, err := client.Lookup(context.Background(), pepeAddress, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrMarketData))
}

func TestClientSideRateLimitFailsFast(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		_, _ = w.Write([]byte(`{"pairs":[]}`))
	}))
	t.Cleanup(srv.Close)

	client := NewDexScreenerClient(DexScreenerConfig{BaseURL: srv.URL, RequestsPerMinute: 1}, nil)

	_, err := client.Lookup(context.Background(), pepeAddress, "")
	require.NoError(t, err)

	start := time.Now()
	_, err = client.Lookup(context.Background(), pepeAddress, "")
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrRateLimited))
	assert.Less(t, time.Since(start), time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestResolvePair(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/latest/dex/pairs/ethereum/"+pairAddress, r.URL.Path)
		_, _ = w.Write([]byte(`{"pairs":null,"pair":{"chainId":"ethereum","pairAddress":"` + pairAddress + `",
"baseToken":{"address":"` + pepeAddress + `","name":"Pepe","symbol":"PEPE"},
"quoteToken":{"address":"0xC02a","symbol":"WETH"},"priceUsd":"0.00002"}}`))
	})

	info, err := client.ResolvePair(context.Background(), pairAddress, "Ethereum")
	require.NoError(t, err)
	require.NotNil(t, info)

	assert.Equal(t, pepeAddress, info.ContractAddress)
	assert.Equal(t, "PEPE", info.Symbol)
	assert.Equal(t, 0.00002, *info.PriceUSD)
	assert.Equal(t, "https://dexscreener.com/ethereum/"+pairAddress, info.DexURL)
}

func TestResolvePairMissing(t *testing.T) {
	client := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"pairs":null,"pair":null}`))
	})

	info, err := client.ResolvePair(context.Background(), pairAddress, "ethereum")
	assert.NoError(t, err)
	assert.Nil(t, info)

	info, err = client.ResolvePair(context.Background(), pairAddress, "")
	assert.NoError(t, err)
	assert.Nil(t, info)
}
