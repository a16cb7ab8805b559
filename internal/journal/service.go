// Package journal связывает разбор сообщений, рыночные данные, учет позиций и хранилище.
package journal

import (
	"context"
	"errors"
	"fmt"
	"runtime/debug"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/kirillm/trade-journal/internal/domain"
	"github.com/kirillm/trade-journal/internal/market"
	"github.com/kirillm/trade-journal/internal/parsing"
	"github.com/kirillm/trade-journal/pkg/utils"
)

const (
	genericFailure = "❌ Something went wrong while recording that message. Please try again."
	parseFailure   = "❌ Couldn't parse that message:\n%s"
)

// Options дополнительные параметры сервиса
type Options struct {
	Environment string
	Now         func() time.Time
}

// Service основной сценарий: сообщение -> сделки -> позиции -> ответ
type Service struct {
	parser   *parsing.Parser
	resolver market.Resolver
	store    domain.Store
	logger   *utils.Logger
	env      string
	now      func() time.Time
}

// NewService создает сервис. resolver может быть nil: тогда цены не запрашиваются.
func NewService(parser *parsing.Parser, resolver market.Resolver, store domain.Store, logger *utils.Logger, opts Options) *Service {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if opts.Now == nil {
		opts.Now = func() time.Time { return time.Now().UTC() }
	}
	if opts.Environment == "" {
		opts.Environment = "local"
	}
	return &Service{
		parser:   parser,
		resolver: resolver,
		store:    store,
		logger:   logger.Named("journal"),
		env:      opts.Environment,
		now:      opts.Now,
	}
}

// Handle обрабатывает одно сообщение и возвращает текст ответа.
// Внутренние ошибки и паники не выходят наружу: пользователь получает общий ответ.
func (s *Service) Handle(ctx context.Context, text string) (reply string) {
	defer func() {
		if r := recover(); r != nil {
			s.logger.Error("panic while handling message: %v\n%s", r, debug.Stack())
			reply = genericFailure
		}
	}()

	result := s.parser.Parse(ctx, text)
	if !result.Success {
		return fmt.Sprintf(parseFailure, result.ErrorMessage)
	}

	batchID := uuid.NewString()
	s.logger.Info("message %s: %d trade(s) parsed", batchID, len(result.Trades))

	parts := make([]string, 0, len(result.Trades))
	for _, parsed := range result.Trades {
		out, err := s.Record(ctx, parsed, batchID)
		if err != nil {
			s.logger.Error("message %s: failed to record trade: %v", batchID, err)
			parts = append(parts, genericFailure)
			continue
		}
		parts = append(parts, formatOutcome(out))
	}
	return strings.Join(parts, "\n\n")
}

// Outcome результат обработки одной сделки
type Outcome struct {
	Recorded   bool
	TradeType  string
	Symbol     string
	Venue      string
	Trade      *domain.Trade
	Position   *domain.Position
	Candidates []*domain.Position
	Warnings   []string
	Message    string
}

func (o *Outcome) warn(format string, args ...interface{}) {
	o.Warnings = append(o.Warnings, fmt.Sprintf(format, args...))
}

// Record сохраняет одну разобранную сделку: биржевую, спотовую по адресу или выход по символу
func (s *Service) Record(ctx context.Context, parsed domain.ParsedTrade, batchID string) (*Outcome, error) {
	if parsed.TradeType == "" {
		parsed.TradeType = domain.TradeBuy
	}

	switch {
	case parsed.IsVenueTrade():
		return s.recordVenueTrade(ctx, parsed, batchID)
	case parsed.ContractAddress != "":
		return s.recordSpotTrade(ctx, parsed, batchID)
	case parsed.TradeType == domain.TradeSell && parsed.TokenSymbol != "":
		return s.recordSymbolExit(ctx, parsed, batchID)
	default:
		return &Outcome{
			TradeType: parsed.TradeType,
			Message:   "No contract address found. Please include the contract address or DEX Screener link.",
		}, nil
	}
}

// lookup запрашивает рыночные данные. Ошибки сервиса превращаются в предупреждение.
func (s *Service) lookup(ctx context.Context, parsed domain.ParsedTrade, out *Outcome) *domain.TokenInfo {
	if s.resolver == nil {
		out.warn("⚠️ Market data is disabled, price unknown")
		return nil
	}

	info, err := s.resolver.Lookup(ctx, parsed.ContractAddress, parsed.Chain)
	if err == nil && info == nil && parsed.Chain != "" && parsed.Chain != domain.ChainUnknown {
		s.logger.Debug("token %s not found, trying as pair address on %s", parsed.ContractAddress, parsed.Chain)
		info, err = s.resolver.ResolvePair(ctx, parsed.ContractAddress, parsed.Chain)
	}

	switch {
	case errors.Is(err, domain.ErrRateLimited):
		s.logger.Warn("market data rate limited for %s: %v", parsed.ContractAddress, err)
		out.warn("⚠️ DEX Screener rate limit reached, price unknown. Please wait a moment before the next trade.")
		return nil
	case err != nil:
		s.logger.Warn("market data lookup failed for %s: %v", parsed.ContractAddress, err)
		out.warn("⚠️ Could not fetch price: %v", err)
		return nil
	case info == nil:
		s.logger.Warn("token %s not found on DEX Screener", parsed.ContractAddress)
		out.warn("⚠️ Token not found on DEX Screener, price unknown")
		return nil
	}

	s.logger.Info("found token %s on %s @ %v", info.Symbol, info.Chain, derefFloat(info.PriceUSD))
	return info
}

func derefFloat(v *float64) interface{} {
	if v == nil {
		return "n/a"
	}
	return *v
}
