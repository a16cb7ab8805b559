package repository

import (
	"context"

	"github.com/kirillm/trade-journal/internal/domain"
)

// StatsRepository агрегаты по журналу
type StatsRepository struct {
	db DBTX
}

// NewStatsRepository создает новый репозиторий статистики
func NewStatsRepository(db DBTX) *StatsRepository {
	return &StatsRepository{db: db}
}

// Aggregate считает сделки, позиции, реализованный PnL и вложения (сумма покупок в USD)
func (r *StatsRepository) Aggregate(ctx context.Context) (*domain.Stats, error) {
	query := `
		SELECT
			(SELECT COUNT(*) FROM trades),
			(SELECT COUNT(*) FROM positions),
			(SELECT COUNT(*) FROM positions WHERE status IN ('OPEN', 'PARTIAL')),
			(SELECT COALESCE(SUM(realized_pnl_usd), 0) FROM positions),
			(SELECT COALESCE(SUM(total_value_usd), 0) FROM trades WHERE trade_type = 'BUY')
	`
	var s domain.Stats
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.TotalTrades,
		&s.TotalPositions,
		&s.OpenPositions,
		&s.RealizedPnLUSD,
		&s.TotalInvestedUSD,
	)
	if err != nil {
		return nil, err
	}
	return &s, nil
}
