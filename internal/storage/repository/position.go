package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillm/trade-journal/internal/domain"
)

// PositionRepository реализует работу с позициями
type PositionRepository struct {
	db DBTX
}

// NewPositionRepository создает новый репозиторий для позиций
func NewPositionRepository(db DBTX) *PositionRepository {
	return &PositionRepository{db: db}
}

var _ domain.PositionRepository = (*PositionRepository)(nil)

const positionSelect = `
	SELECT p.id, p.token_id, p.wallet_id, p.total_bought, p.total_sold, p.remaining_tokens,
	       p.total_cost_usd, p.total_proceeds_usd, p.realized_pnl_usd, p.status,
	       p.opened_at, p.closed_at, t.symbol, t.contract_address, t.chain
	FROM positions p
	JOIN tokens t ON t.id = p.token_id
`

// Create открывает новую пустую позицию
func (r *PositionRepository) Create(ctx context.Context, tokenID int64, walletID *int64) (*domain.Position, error) {
	query := `
		INSERT INTO positions (token_id, wallet_id, status, opened_at)
		VALUES ($1, $2, $3, NOW())
		RETURNING id
	`
	var id int64
	if err := r.db.QueryRowContext(ctx, query, tokenID, walletID, domain.StatusOpen).Scan(&id); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Get возвращает позицию по id или nil
func (r *PositionRepository) Get(ctx context.Context, id int64) (*domain.Position, error) {
	pos, err := scanPosition(r.db.QueryRowContext(ctx, positionSelect+` WHERE p.id = $1`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return pos, err
}

// GetOpen возвращает последнюю открытую позицию по токену.
// walletID == nil: позиция любого кошелька.
func (r *PositionRepository) GetOpen(ctx context.Context, tokenID int64, walletID *int64) (*domain.Position, error) {
	query := positionSelect + `
		WHERE p.token_id = $1
		  AND p.status IN ('OPEN', 'PARTIAL')
		  AND ($2::BIGINT IS NULL OR p.wallet_id = $2)
		ORDER BY p.opened_at DESC, p.id DESC
		LIMIT 1
	`
	pos, err := scanPosition(r.db.QueryRowContext(ctx, query, tokenID, walletID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return pos, err
}

// GetOpenBySymbol возвращает открытые позиции по символу токена
func (r *PositionRepository) GetOpenBySymbol(ctx context.Context, symbol string) ([]domain.Position, error) {
	query := positionSelect + `
		WHERE upper(t.symbol) = upper($1) AND p.status IN ('OPEN', 'PARTIAL')
		ORDER BY p.opened_at DESC, p.id DESC
	`
	return r.queryPositions(ctx, query, symbol)
}

// ListOpen возвращает все открытые и частично закрытые позиции
func (r *PositionRepository) ListOpen(ctx context.Context) ([]domain.Position, error) {
	query := positionSelect + `
		WHERE p.status IN ('OPEN', 'PARTIAL')
		ORDER BY p.opened_at DESC, p.id DESC
	`
	return r.queryPositions(ctx, query)
}

// Update частично обновляет позицию: меняются только заданные поля
func (r *PositionRepository) Update(ctx context.Context, id int64, upd domain.PositionUpdate) error {
	var (
		sets []string
		args []interface{}
	)
	add := func(column string, value interface{}) {
		args = append(args, value)
		sets = append(sets, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if upd.TotalBought != nil {
		add("total_bought", *upd.TotalBought)
	}
	if upd.TotalSold != nil {
		add("total_sold", *upd.TotalSold)
	}
	if upd.RemainingTokens != nil {
		add("remaining_tokens", *upd.RemainingTokens)
	}
	if upd.TotalCostUSD != nil {
		add("total_cost_usd", *upd.TotalCostUSD)
	}
	if upd.TotalProceedsUSD != nil {
		add("total_proceeds_usd", *upd.TotalProceedsUSD)
	}
	if upd.RealizedPnLUSD != nil {
		add("realized_pnl_usd", *upd.RealizedPnLUSD)
	}
	if upd.Status != nil {
		add("status", *upd.Status)
		if *upd.Status == domain.StatusClosed {
			sets = append(sets, "closed_at = COALESCE(closed_at, NOW())")
		} else {
			sets = append(sets, "closed_at = NULL")
		}
	}
	if len(sets) == 0 {
		return nil
	}

	args = append(args, id)
	query := fmt.Sprintf("UPDATE positions SET %s WHERE id = $%d", strings.Join(sets, ", "), len(args))

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%w: position %d", domain.ErrNotFound, id)
	}
	return nil
}

func (r *PositionRepository) queryPositions(ctx context.Context, query string, args ...interface{}) ([]domain.Position, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var positions []domain.Position
	for rows.Next() {
		pos, err := scanPosition(rows)
		if err != nil {
			return nil, err
		}
		positions = append(positions, *pos)
	}
	return positions, rows.Err()
}

func scanPosition(row rowScanner) (*domain.Position, error) {
	var p domain.Position
	err := row.Scan(
		&p.ID,
		&p.TokenID,
		&p.WalletID,
		&p.TotalBought,
		&p.TotalSold,
		&p.RemainingTokens,
		&p.TotalCostUSD,
		&p.TotalProceedsUSD,
		&p.RealizedPnLUSD,
		&p.Status,
		&p.OpenedAt,
		&p.ClosedAt,
		&p.Symbol,
		&p.ContractAddress,
		&p.Chain,
	)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
