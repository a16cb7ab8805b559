package market

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"golang.org/x/time/rate"

	"github.com/kirillm/trade-journal/internal/domain"
	"github.com/kirillm/trade-journal/pkg/utils"
)

const (
	DefaultBaseURL           = "https://api.dexscreener.com"
	DefaultTimeout           = 10 * time.Second
	DefaultRequestsPerMinute = 300

	dexScreenerWebURL = "https://dexscreener.com"
)

// TokenRef токен в паре
type TokenRef struct {
	Address string `json:"address"`
	Name    string `json:"name"`
	Symbol  string `json:"symbol"`
}

// Pair листинг токена на DEX
type Pair struct {
	ChainID     string   `json:"chainId"`
	DexID       string   `json:"dexId"`
	URL         string   `json:"url"`
	PairAddress string   `json:"pairAddress"`
	BaseToken   TokenRef `json:"baseToken"`
	QuoteToken  TokenRef `json:"quoteToken"`
	PriceUSD    string   `json:"priceUsd"`
	Liquidity   *struct {
		USD *float64 `json:"usd"`
	} `json:"liquidity"`
	Volume *struct {
		H24 *float64 `json:"h24"`
	} `json:"volume"`
	PriceChange *struct {
		H24 *float64 `json:"h24"`
	} `json:"priceChange"`
	FDV       *float64 `json:"fdv"`
	MarketCap *float64 `json:"marketCap"`
}

func (p Pair) liquidity() float64 {
	if p.Liquidity == nil || p.Liquidity.USD == nil {
		return 0
	}
	return *p.Liquidity.USD
}

type pairsResponse struct {
	Pairs []Pair `json:"pairs"`
	Pair  *Pair  `json:"pair"`
}

// DexScreenerConfig параметры клиента
type DexScreenerConfig struct {
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	ChainPreference   []string
}

// DexScreenerClient резолвер на публичном API DEX Screener.
// Запросы сверх лимита сразу завершаются ошибкой, без ожидания.
type DexScreenerClient struct {
	baseURL    string
	client     *http.Client
	limiter    *rate.Limiter
	preference []string
	logger     *utils.Logger
}

var _ Resolver = (*DexScreenerClient)(nil)

// NewDexScreenerClient создает клиент с ограничением частоты запросов
func NewDexScreenerClient(cfg DexScreenerConfig, logger *utils.Logger) *DexScreenerClient {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.RequestsPerMinute <= 0 {
		cfg.RequestsPerMinute = DefaultRequestsPerMinute
	}
	if len(cfg.ChainPreference) == 0 {
		cfg.ChainPreference = DefaultChainPreference
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}

	perSecond := rate.Limit(float64(cfg.RequestsPerMinute) / 60.0)
	return &DexScreenerClient{
		baseURL:    strings.TrimRight(cfg.BaseURL, "/"),
		client:     &http.Client{Timeout: cfg.Timeout},
		limiter:    rate.NewLimiter(perSecond, cfg.RequestsPerMinute),
		preference: cfg.ChainPreference,
		logger:     logger.Named("dexscreener"),
	}
}

// Lookup ищет токен по адресу во всех сетях и выбирает лучший листинг
func (d *DexScreenerClient) Lookup(ctx context.Context, address, chainHint string) (*domain.TokenInfo, error) {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil, nil
	}

	var resp pairsResponse
	found, err := d.get(ctx, "/latest/dex/tokens/"+url.PathEscape(address), &resp)
	if err != nil || !found {
		return nil, err
	}

	pair, ok := SelectBestPair(resp.Pairs, chainHint, d.preference)
	if !ok {
		return nil, nil
	}
	return pairToTokenInfo(pair, address), nil
}

// ResolvePair получает токен по адресу пары (ссылки DEX Screener часто содержат пару)
func (d *DexScreenerClient) ResolvePair(ctx context.Context, pairAddress, chain string) (*domain.TokenInfo, error) {
	pairAddress = strings.TrimSpace(pairAddress)
	chain = strings.ToLower(strings.TrimSpace(chain))
	if pairAddress == "" || chain == "" {
		return nil, nil
	}

	var resp pairsResponse
	path := fmt.Sprintf("/latest/dex/pairs/%s/%s", url.PathEscape(chain), url.PathEscape(pairAddress))
	found, err := d.get(ctx, path, &resp)
	if err != nil || !found {
		return nil, err
	}

	pair := resp.Pair
	if pair == nil && len(resp.Pairs) > 0 {
		pair = &resp.Pairs[0]
	}
	if pair == nil {
		return nil, nil
	}

	address := pair.BaseToken.Address
	if address == "" {
		address = pairAddress
	}
	return pairToTokenInfo(*pair, address), nil
}

// get выполняет GET и декодирует JSON. false без ошибки означает 404.
func (d *DexScreenerClient) get(ctx context.Context, path string, out interface{}) (bool, error) {
	if !d.limiter.Allow() {
		return false, fmt.Errorf("%w: %w: client-side limit reached", domain.ErrMarketData, domain.ErrRateLimited)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, d.baseURL+path, nil)
	if err != nil {
		return false, fmt.Errorf("%w: failed to create request: %v", domain.ErrMarketData, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := d.client.Do(req)
	if err != nil {
		var netErr interface{ Timeout() bool }
		if errors.As(err, &netErr) && netErr.Timeout() {
			return false, fmt.Errorf("%w: request timed out", domain.ErrMarketData)
		}
		return false, fmt.Errorf("%w: failed to execute request: %v", domain.ErrMarketData, err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusTooManyRequests:
		return false, fmt.Errorf("%w: %w: rate limited by DEX Screener", domain.ErrMarketData, domain.ErrRateLimited)
	case resp.StatusCode >= 300:
		return false, fmt.Errorf("%w: unexpected status %d", domain.ErrMarketData, resp.StatusCode)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return false, fmt.Errorf("%w: failed to read response: %v", domain.ErrMarketData, err)
	}
	if err := json.Unmarshal(body, out); err != nil {
		return false, fmt.Errorf("%w: failed to unmarshal response: %v", domain.ErrMarketData, err)
	}

	d.logger.Debug("GET %s -> %d (%d bytes)", path, resp.StatusCode, len(body))
	return true, nil
}

// pairToTokenInfo берет токен пары, совпадающий с адресом (base или quote)
func pairToTokenInfo(p Pair, address string) *domain.TokenInfo {
	token := p.BaseToken
	if !strings.EqualFold(p.BaseToken.Address, address) && strings.EqualFold(p.QuoteToken.Address, address) {
		token = p.QuoteToken
	}

	info := &domain.TokenInfo{
		ContractAddress: token.Address,
		Chain:           strings.ToLower(p.ChainID),
		Symbol:          token.Symbol,
		Name:            token.Name,
		MarketCap:       p.MarketCap,
	}
	if info.ContractAddress == "" {
		info.ContractAddress = address
	}
	if info.Symbol == "" {
		info.Symbol = domain.UnknownSymbol
	}
	if info.Chain == "" {
		info.Chain = domain.ChainUnknown
	}
	if info.MarketCap == nil {
		info.MarketCap = p.FDV
	}

	if p.PriceUSD != "" {
		if v, err := strconv.ParseFloat(p.PriceUSD, 64); err == nil {
			info.PriceUSD = &v
		}
	}
	if p.Liquidity != nil {
		info.LiquidityUSD = p.Liquidity.USD
	}
	if p.Volume != nil {
		info.Volume24h = p.Volume.H24
	}
	if p.PriceChange != nil {
		info.PriceChange24h = p.PriceChange.H24
	}

	pairAddress := p.PairAddress
	if pairAddress == "" {
		pairAddress = address
	}
	info.DexURL = fmt.Sprintf("%s/%s/%s", dexScreenerWebURL, info.Chain, pairAddress)
	return info
}
