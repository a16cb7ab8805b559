package market

import (
	"context"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kirillm/trade-journal/internal/domain"
)

// Resolver источник рыночных данных.
// Не найдено: (nil, nil). Ошибка сервиса оборачивает domain.ErrMarketData.
type Resolver interface {
	Lookup(ctx context.Context, address, chainHint string) (*domain.TokenInfo, error)
	ResolvePair(ctx context.Context, pairAddress, chain string) (*domain.TokenInfo, error)
}

// DefaultChainPreference порядок сетей, когда сеть не указана
var DefaultChainPreference = []string{
	domain.ChainSolana,
	domain.ChainBase,
	domain.ChainBSC,
	domain.ChainEthereum,
}

// stableCurrencies валюты, сумма в которых равна сумме в USD
var stableCurrencies = map[string]bool{
	"USD":  true,
	"USDC": true,
	"USDT": true,
	"DAI":  true,
	"BUSD": true,
}

// IsStableCurrency проверяет долларовую валюту
func IsStableCurrency(currency string) bool {
	return stableCurrencies[strings.ToUpper(strings.TrimSpace(currency))]
}

// SelectBestPair выбирает листинг токена.
// Если сеть-подсказка есть среди пар: лучшая ликвидность в ней.
// Иначе: сеть с наивысшим приоритетом, затем ликвидность. Неизвестные сети в конце.
func SelectBestPair(pairs []Pair, chainHint string, preference []string) (Pair, bool) {
	if len(pairs) == 0 {
		return Pair{}, false
	}

	hint := strings.ToLower(strings.TrimSpace(chainHint))
	if hint != "" {
		var best *Pair
		for i := range pairs {
			if strings.ToLower(pairs[i].ChainID) != hint {
				continue
			}
			if best == nil || pairs[i].liquidity() > best.liquidity() {
				best = &pairs[i]
			}
		}
		if best != nil {
			return *best, true
		}
	}

	rank := make(map[string]int, len(preference))
	for i, c := range preference {
		rank[strings.ToLower(c)] = i
	}
	priority := func(p Pair) int {
		if r, ok := rank[strings.ToLower(p.ChainID)]; ok {
			return r
		}
		return len(preference)
	}

	sorted := make([]Pair, len(pairs))
	copy(sorted, pairs)
	sort.SliceStable(sorted, func(i, j int) bool {
		pi, pj := priority(sorted[i]), priority(sorted[j])
		if pi != pj {
			return pi < pj
		}
		return sorted[i].liquidity() > sorted[j].liquidity()
	})
	return sorted[0], true
}

// TokensFromSpend количество токенов по сумме и цене.
// Только для долларовых валют; иначе nil.
func TokensFromSpend(amount float64, currency string, priceUSD *float64) *float64 {
	if priceUSD == nil || *priceUSD <= 0 || amount <= 0 || !IsStableCurrency(currency) {
		return nil
	}
	tokens, _ := decimal.NewFromFloat(amount).Div(decimal.NewFromFloat(*priceUSD)).Float64()
	return &tokens
}
