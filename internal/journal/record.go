package journal

import (
	"context"
	"fmt"
	"strings"

	"github.com/kirillm/trade-journal/internal/accounting"
	"github.com/kirillm/trade-journal/internal/domain"
	"github.com/kirillm/trade-journal/internal/market"
)

// draft подготовленная к записи сделка
type draft struct {
	parsed  domain.ParsedTrade
	address string
	chain   string
	symbol  *string
	name    *string

	tokens *float64
	price  *float64
	value  *float64
	mcap   *float64
	dexURL string

	// позиция, выбранная при выходе по символу
	position *domain.Position
}

func (s *Service) recordVenueTrade(ctx context.Context, parsed domain.ParsedTrade, batchID string) (*Outcome, error) {
	symbol := strings.ToUpper(parsed.TokenSymbol)
	exchange := strings.ToLower(parsed.Exchange)
	out := &Outcome{TradeType: parsed.TradeType, Symbol: symbol, Venue: exchange}

	kind := "Spot"
	if parsed.IsPerp {
		kind = "Perp"
	}
	d := &draft{
		parsed:  parsed,
		address: domain.VenueAddress(symbol, exchange),
		chain:   exchange,
		symbol:  domain.StringPtr(symbol),
		name:    domain.StringPtr(fmt.Sprintf("%s %s on %s", symbol, kind, titleCase(exchange))),
	}

	// для биржевых сделок в долларах: 1 токен = 1 USD номинала
	if parsed.AmountSpent != nil && market.IsStableCurrency(currencyOf(parsed)) {
		d.price = domain.Float64Ptr(1.0)
		d.tokens = domain.Float64Ptr(*parsed.AmountSpent)
		d.value = domain.Float64Ptr(*parsed.AmountSpent)
	} else if parsed.AmountSpent != nil {
		out.warn("⚠️ Amount in %s, USD value unknown", currencyOf(parsed))
	}

	return s.commit(ctx, d, batchID, out)
}

func (s *Service) recordSpotTrade(ctx context.Context, parsed domain.ParsedTrade, batchID string) (*Outcome, error) {
	out := &Outcome{TradeType: parsed.TradeType, Symbol: strings.ToUpper(parsed.TokenSymbol)}
	d := &draft{
		parsed:  parsed,
		address: parsed.ContractAddress,
		chain:   parsed.Chain,
		symbol:  domain.NonEmptyPtr(strings.ToUpper(parsed.TokenSymbol)),
		mcap:    parsed.MarketCap,
		dexURL:  parsed.DexScreenerURL,
	}

	if info := s.lookup(ctx, parsed, out); info != nil {
		if info.Chain != "" {
			d.chain = info.Chain
		}
		if info.ContractAddress != "" {
			d.address = info.ContractAddress
		}
		// заглушка резолвера не затирает известный символ
		if info.Symbol != "" && info.Symbol != domain.UnknownSymbol {
			d.symbol = domain.StringPtr(info.Symbol)
		}
		d.name = domain.NonEmptyPtr(info.Name)
		d.price = info.PriceUSD
		if d.mcap == nil {
			d.mcap = info.MarketCap
		}
		if d.dexURL == "" {
			d.dexURL = info.DexURL
		}
	}
	if d.chain == "" {
		d.chain = domain.ChainUnknown
	}
	if d.symbol != nil {
		out.Symbol = *d.symbol
	} else if out.Symbol == "" {
		out.Symbol = domain.UnknownSymbol
	}

	if parsed.AmountSpent != nil {
		currency := currencyOf(parsed)
		if market.IsStableCurrency(currency) {
			d.value = domain.Float64Ptr(*parsed.AmountSpent)
			d.tokens = market.TokensFromSpend(*parsed.AmountSpent, currency, d.price)
		} else {
			out.warn("⚠️ Amount in %s, token count and USD value unknown", currency)
		}
	}

	return s.commit(ctx, d, batchID, out)
}

func (s *Service) recordSymbolExit(ctx context.Context, parsed domain.ParsedTrade, batchID string) (*Outcome, error) {
	symbol := strings.ToUpper(parsed.TokenSymbol)
	out := &Outcome{TradeType: parsed.TradeType, Symbol: symbol}

	open, err := s.store.GetOpenPositionsBySymbol(ctx, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get open positions for %s: %w", symbol, err)
	}
	candidates := make([]*domain.Position, 0, len(open))
	for i := range open {
		candidates = append(candidates, &open[i])
	}

	res := accounting.ResolveExit(candidates, symbol)
	switch res.Outcome {
	case accounting.ExitNone:
		s.logger.Info("exit by symbol: %v", res.Err(symbol))
		out.Message = fmt.Sprintf("No open position found for %s", symbol)
		return out, nil
	case accounting.ExitAmbiguous:
		s.logger.Info("exit by symbol: %v", res.Err(symbol))
		out.Candidates = res.Candidates
		out.Message = formatCandidates(symbol, res.Candidates)
		return out, nil
	}

	pos := res.Position
	d := &draft{
		parsed:   parsed,
		address:  pos.ContractAddress,
		chain:    pos.Chain,
		symbol:   domain.StringPtr(pos.DisplaySymbol()),
		position: pos,
	}
	out.Symbol = pos.DisplaySymbol()

	if pos.ContractAddress == domain.VenueAddress(pos.DisplaySymbol(), pos.Chain) {
		out.Venue = pos.Chain
		d.price = domain.Float64Ptr(1.0)
	} else {
		lookupTrade := parsed
		lookupTrade.ContractAddress = pos.ContractAddress
		lookupTrade.Chain = pos.Chain
		if info := s.lookup(ctx, lookupTrade, out); info != nil {
			d.price = info.PriceUSD
			d.mcap = info.MarketCap
			d.dexURL = info.DexURL
		}
	}

	if parsed.AmountSpent != nil {
		currency := currencyOf(parsed)
		if market.IsStableCurrency(currency) {
			d.value = domain.Float64Ptr(*parsed.AmountSpent)
			d.tokens = market.TokensFromSpend(*parsed.AmountSpent, currency, d.price)
		} else {
			out.warn("⚠️ Amount in %s, token count and USD value unknown", currency)
		}
	}

	return s.commit(ctx, d, batchID, out)
}

// commit записывает токен, позицию и сделку одной транзакцией
func (s *Service) commit(ctx context.Context, d *draft, batchID string, out *Outcome) (*Outcome, error) {
	var warnings []string

	err := s.store.WithinTx(ctx, func(tx domain.Store) error {
		warnings = warnings[:0]

		token, err := tx.GetOrCreateToken(ctx, d.address, d.chain, d.symbol, d.name)
		if err != nil {
			return fmt.Errorf("failed to get or create token: %w", err)
		}

		pos := d.position
		if pos == nil {
			pos, err = tx.GetOpenPosition(ctx, token.ID, nil)
			if err != nil {
				return fmt.Errorf("failed to get open position: %w", err)
			}
		}
		if pos == nil && d.parsed.TradeType == domain.TradeSell {
			warnings = append(warnings, fmt.Sprintf("⚠️ No open position found for %s. Recording trade anyway.", token.DisplaySymbol()))
		}
		if pos == nil {
			pos, err = tx.CreatePosition(ctx, token.ID, nil)
			if err != nil {
				return fmt.Errorf("failed to create position: %w", err)
			}
		}

		trade := &domain.Trade{
			TokenID:          token.ID,
			PositionID:       &pos.ID,
			TradeType:        d.parsed.TradeType,
			AmountSpent:      d.parsed.AmountSpent,
			AmountTokens:     d.tokens,
			PriceUSD:         d.price,
			TotalValueUSD:    d.value,
			MarketCapAtTrade: d.mcap,
			SourceMessage:    d.parsed.RawMessage,
			NotesURL:         domain.NonEmptyPtr(d.parsed.NotesURL),
			DexScreenerURL:   domain.NonEmptyPtr(d.dexURL),
			MessageID:        batchID,
			TradeTimestamp:   s.now(),
		}
		if d.parsed.AmountSpent != nil {
			trade.SpendCurrency = domain.StringPtr(currencyOf(d.parsed))
		}
		if err := tx.CreateTrade(ctx, trade); err != nil {
			return fmt.Errorf("failed to create trade: %w", err)
		}

		if accounting.CanApply(d.tokens, d.value) {
			totals, err := accounting.Apply(accounting.FromPosition(pos), d.parsed.TradeType, *d.tokens, *d.value)
			if err != nil {
				return fmt.Errorf("failed to apply trade to position %d: %w", pos.ID, err)
			}
			if err := tx.UpdatePosition(ctx, pos.ID, totals.ToUpdate()); err != nil {
				return fmt.Errorf("failed to update position %d: %w", pos.ID, err)
			}
		} else if d.parsed.TradeType == domain.TradeSell {
			warnings = append(warnings, "⚠️ Price unknown: trade recorded, position accounting deferred")
		} else if d.parsed.AmountSpent == nil {
			warnings = append(warnings, "⚠️ Amount not specified: position totals not updated")
		}

		updated, err := tx.GetPosition(ctx, pos.ID)
		if err != nil {
			return fmt.Errorf("failed to reload position %d: %w", pos.ID, err)
		}
		out.Trade = trade
		out.Position = updated
		return nil
	})
	if err != nil {
		return nil, err
	}

	out.Recorded = true
	out.Warnings = append(out.Warnings, warnings...)
	s.logger.Info("recorded %s %s (trade %d, position %d, message %s)",
		out.TradeType, out.Symbol, out.Trade.ID, out.Position.ID, batchID)
	return out, nil
}

func currencyOf(p domain.ParsedTrade) string {
	if p.SpendCurrency == "" {
		return domain.CurrencyUSD
	}
	return strings.ToUpper(p.SpendCurrency)
}

func titleCase(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
