package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kirillm/trade-journal/internal/domain"
)

// ==================== Данные ====================

// OpenPositions открытые и частично закрытые позиции
func (s *Service) OpenPositions(ctx context.Context) ([]domain.Position, error) {
	positions, err := s.store.ListOpenPositions(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to list open positions: %w", err)
	}
	return positions, nil
}

// RecentTrades последние сделки журнала; limit <= 0 означает значение по умолчанию
func (s *Service) RecentTrades(ctx context.Context, limit int) ([]domain.Trade, error) {
	if limit <= 0 {
		limit = domain.DefaultLogLimit
	}
	trades, err := s.store.ListTrades(ctx, domain.TradeFilter{Limit: limit})
	if err != nil {
		return nil, fmt.Errorf("failed to list trades: %w", err)
	}
	return trades, nil
}

// Stats агрегированная статистика
func (s *Service) Stats(ctx context.Context) (*domain.Stats, error) {
	st, err := s.store.AggregateStats(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate stats: %w", err)
	}
	return st, nil
}

// ==================== Ответы для чата ====================

// ListOpenPositions открытые позиции в виде текста
func (s *Service) ListOpenPositions(ctx context.Context) (string, error) {
	positions, err := s.OpenPositions(ctx)
	if err != nil {
		return "", err
	}
	return formatPositions(positions), nil
}

// ListRecentTrades журнал последних сделок в виде текста
func (s *Service) ListRecentTrades(ctx context.Context, limit int) (string, error) {
	if limit <= 0 {
		limit = domain.DefaultLogLimit
	}
	trades, err := s.RecentTrades(ctx, limit)
	if err != nil {
		return "", err
	}
	return formatTrades(trades, limit), nil
}

// GetStats статистика в виде текста
func (s *Service) GetStats(ctx context.Context) (string, error) {
	st, err := s.Stats(ctx)
	if err != nil {
		return "", err
	}
	return formatStats(st), nil
}

// Status состояние сервиса: хранилище, парсер, рыночные данные
func (s *Service) Status(ctx context.Context) string {
	var sb strings.Builder
	sb.WriteString("🤖 Bot Status\n")
	sb.WriteString(separator + "\n")
	sb.WriteString("✅ Bot: Online\n")
	sb.WriteString(fmt.Sprintf("🌍 Environment: %s\n", s.env))

	if st, err := s.store.AggregateStats(ctx); err != nil {
		s.logger.Error("status: storage check failed: %v", err)
		sb.WriteString("❌ Storage: unavailable\n")
	} else {
		sb.WriteString(fmt.Sprintf("✅ Storage: OK (%d trades)\n", st.TotalTrades))
	}

	if s.parser.HasOracle() {
		sb.WriteString("✅ Parser: LLM with pattern fallback\n")
	} else {
		sb.WriteString("⚪ Parser: patterns only\n")
	}
	if s.resolver != nil {
		sb.WriteString("✅ Market data: DEX Screener\n")
	} else {
		sb.WriteString("⚪ Market data: disabled\n")
	}

	sb.WriteString(fmt.Sprintf("\n🕐 %s", s.now().Format(time.RFC1123)))
	return sb.String()
}
