package repository

import (
	"context"
	"strings"

	"github.com/kirillm/trade-journal/internal/domain"
)

// WalletRepository реализует работу с кошельками
type WalletRepository struct {
	db DBTX
}

// NewWalletRepository создает новый репозиторий для кошельков
func NewWalletRepository(db DBTX) *WalletRepository {
	return &WalletRepository{db: db}
}

var _ domain.WalletRepository = (*WalletRepository)(nil)

// GetOrCreate возвращает кошелек по (адрес, сеть) или создает его
func (r *WalletRepository) GetOrCreate(ctx context.Context, address, chain string, nickname *string) (*domain.Wallet, error) {
	query := `
		INSERT INTO wallets (address, chain, nickname, created_at)
		VALUES ($1, $2, $3, NOW())
		ON CONFLICT ((lower(address)), chain) DO UPDATE
		SET nickname = COALESCE(EXCLUDED.nickname, wallets.nickname)
		RETURNING id, address, chain, nickname, created_at
	`
	var w domain.Wallet
	err := r.db.QueryRowContext(ctx, query, address, strings.ToLower(chain), nickname).Scan(
		&w.ID, &w.Address, &w.Chain, &w.Nickname, &w.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &w, nil
}
