package repository

import (
	"context"
	"time"

	"github.com/kirillm/trade-journal/internal/domain"
)

// TradeRepository реализует работу с журналом сделок
type TradeRepository struct {
	db DBTX
}

// NewTradeRepository создает новый репозиторий для сделок
func NewTradeRepository(db DBTX) *TradeRepository {
	return &TradeRepository{db: db}
}

var _ domain.TradeRepository = (*TradeRepository)(nil)

// Create сохраняет новую сделку. Записи журнала не изменяются.
func (r *TradeRepository) Create(ctx context.Context, trade *domain.Trade) error {
	if trade.TradeTimestamp.IsZero() {
		trade.TradeTimestamp = time.Now().UTC()
	}

	query := `
		INSERT INTO trades (token_id, position_id, wallet_id, trade_type, amount_spent, spend_currency,
		                    amount_tokens, price_usd, total_value_usd, market_cap_at_trade,
		                    source_message, notes_url, dexscreener_url, message_id, trade_timestamp, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, NOW())
		RETURNING id, created_at
	`
	return r.db.QueryRowContext(
		ctx,
		query,
		trade.TokenID,
		trade.PositionID,
		trade.WalletID,
		trade.TradeType,
		trade.AmountSpent,
		trade.SpendCurrency,
		trade.AmountTokens,
		trade.PriceUSD,
		trade.TotalValueUSD,
		trade.MarketCapAtTrade,
		trade.SourceMessage,
		trade.NotesURL,
		trade.DexScreenerURL,
		trade.MessageID,
		trade.TradeTimestamp,
	).Scan(&trade.ID, &trade.CreatedAt)
}

// List возвращает последние сделки, новые первыми
func (r *TradeRepository) List(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error) {
	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultLogLimit
	}

	query := `
		SELECT tr.id, tr.token_id, tr.position_id, tr.wallet_id, tr.trade_type, tr.amount_spent,
		       tr.spend_currency, tr.amount_tokens, tr.price_usd, tr.total_value_usd,
		       tr.market_cap_at_trade, tr.source_message, tr.notes_url, tr.dexscreener_url,
		       tr.message_id, tr.trade_timestamp, tr.created_at,
		       t.symbol, t.chain, p.status
		FROM trades tr
		JOIN tokens t ON t.id = tr.token_id
		LEFT JOIN positions p ON p.id = tr.position_id
		WHERE ($1::BIGINT IS NULL OR tr.token_id = $1)
		ORDER BY tr.trade_timestamp DESC, tr.id DESC
		LIMIT $2
	`
	rows, err := r.db.QueryContext(ctx, query, filter.TokenID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var trades []domain.Trade
	for rows.Next() {
		var tr domain.Trade
		err := rows.Scan(
			&tr.ID,
			&tr.TokenID,
			&tr.PositionID,
			&tr.WalletID,
			&tr.TradeType,
			&tr.AmountSpent,
			&tr.SpendCurrency,
			&tr.AmountTokens,
			&tr.PriceUSD,
			&tr.TotalValueUSD,
			&tr.MarketCapAtTrade,
			&tr.SourceMessage,
			&tr.NotesURL,
			&tr.DexScreenerURL,
			&tr.MessageID,
			&tr.TradeTimestamp,
			&tr.CreatedAt,
			&tr.Symbol,
			&tr.Chain,
			&tr.PositionStatus,
		)
		if err != nil {
			return nil, err
		}
		trades = append(trades, tr)
	}

	return trades, rows.Err()
}
