package oracle

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillm/trade-journal/internal/chain"
	"github.com/kirillm/trade-journal/internal/domain"
	"github.com/kirillm/trade-journal/internal/parsing"
)

// tradeGuess ответ модели. Числа могут прийти строкой ("3x", "1.5K").
type tradeGuess struct {
	TradeType       string    `json:"trade_type"`
	TokenSymbol     *string   `json:"token_symbol"`
	ContractAddress *string   `json:"contract_address"`
	Chain           *string   `json:"chain"`
	VenueType       string    `json:"venue_type"`
	Exchange        *string   `json:"exchange"`
	Leverage        flexFloat `json:"leverage"`
	PositionType    *string   `json:"position_type"`
	AmountValue     flexFloat `json:"amount_value"`
	AmountCurrency  *string   `json:"amount_currency"`
	MarketCap       flexFloat `json:"market_cap"`
	NotesURL        *string   `json:"notes_url"`
	DexScreenerURL  *string   `json:"dex_screener_url"`
}

// flexFloat число или строка с суффиксом; null остается nil
type flexFloat struct {
	Value *float64
}

func (f *flexFloat) UnmarshalJSON(data []byte) error {
	s := strings.TrimSpace(string(data))
	if s == "null" || s == `""` {
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err == nil {
		f.Value = &n
		return nil
	}

	var str string
	if err := json.Unmarshal(data, &str); err != nil {
		return fmt.Errorf("not a number: %s", s)
	}
	str = strings.TrimSpace(strings.TrimPrefix(strings.TrimSpace(str), "$"))
	str = strings.TrimSuffix(strings.TrimSuffix(str, "x"), "X")

	suffix := ""
	if n := len(str); n > 0 && strings.ContainsAny(str[n-1:], "KkMmBb") {
		suffix = str[n-1:]
		str = str[:n-1]
	}
	v, err := parsing.ParseNumberWithSuffix(str, suffix)
	if err != nil {
		return err
	}
	f.Value = &v
	return nil
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return strings.TrimSpace(*s)
}

// toParsedTrade нормализует ответ модели в ParsedTrade
func (g tradeGuess) toParsedTrade(raw string) (domain.ParsedTrade, error) {
	trade := domain.ParsedTrade{
		TradeType:       strings.ToUpper(strings.TrimSpace(g.TradeType)),
		TokenSymbol:     strings.ToUpper(strings.TrimPrefix(deref(g.TokenSymbol), "$")),
		ContractAddress: deref(g.ContractAddress),
		Exchange:        strings.ToLower(deref(g.Exchange)),
		AmountSpent:     g.AmountValue.Value,
		SpendCurrency:   strings.ToUpper(deref(g.AmountCurrency)),
		MarketCap:       g.MarketCap.Value,
		Leverage:        g.Leverage.Value,
		NotesURL:        deref(g.NotesURL),
		DexScreenerURL:  deref(g.DexScreenerURL),
		RawMessage:      raw,
	}
	if trade.TradeType != domain.TradeBuy && trade.TradeType != domain.TradeSell {
		trade.TradeType = domain.TradeBuy
	}

	venue := strings.ToLower(strings.TrimSpace(g.VenueType))
	switch {
	case venue == venuePerp || venue == "futures" || venue == "perpetual":
		trade.IsPerp = true
		trade.PositionType = strings.ToUpper(deref(g.PositionType))
		if trade.PositionType != domain.PositionShort {
			trade.PositionType = domain.PositionLong
		}
	case trade.Exchange != "" && trade.ContractAddress == "":
		trade.IsCEXSpot = true
	}

	if trade.IsVenueTrade() {
		if trade.TokenSymbol == "" || trade.Exchange == "" {
			return trade, errors.New("venue trade without symbol or exchange")
		}
		trade.Chain = trade.Exchange
		trade.ContractAddress = ""
	} else {
		trade.Chain = chain.NormalizeChain(deref(g.Chain))
		switch {
		case trade.ContractAddress != "":
			if chain.Classify(trade.ContractAddress) == domain.AddressUnknown {
				return trade, fmt.Errorf("invalid contract address %q", trade.ContractAddress)
			}
		case trade.TradeType == domain.TradeSell && trade.TokenSymbol != "":
			trade.MissingFields = append(trade.MissingFields, domain.FieldContractAddress)
		default:
			return trade, errors.New("no contract address or symbol")
		}
	}

	if trade.AmountSpent == nil {
		trade.MissingFields = append(trade.MissingFields, parsing.FieldAmount)
	} else if trade.SpendCurrency == "" {
		trade.SpendCurrency = domain.CurrencyUSD
	}
	return trade, nil
}
