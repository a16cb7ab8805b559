package domain

import "context"

// TokenRepository определяет интерфейс для работы с токенами
type TokenRepository interface {
	GetOrCreate(ctx context.Context, address, chain string, symbol, name *string) (*Token, error)
	Get(ctx context.Context, address, chain string) (*Token, error)
	GetByID(ctx context.Context, id int64) (*Token, error)
	FindBySymbol(ctx context.Context, symbol string) ([]Token, error)
}

// WalletRepository определяет интерфейс для работы с кошельками
type WalletRepository interface {
	GetOrCreate(ctx context.Context, address, chain string, nickname *string) (*Wallet, error)
}

// PositionRepository определяет интерфейс для работы с позициями
type PositionRepository interface {
	Create(ctx context.Context, tokenID int64, walletID *int64) (*Position, error)
	Get(ctx context.Context, id int64) (*Position, error)
	GetOpen(ctx context.Context, tokenID int64, walletID *int64) (*Position, error)
	GetOpenBySymbol(ctx context.Context, symbol string) ([]Position, error)
	ListOpen(ctx context.Context) ([]Position, error)
	Update(ctx context.Context, id int64, upd PositionUpdate) error
}

// TradeRepository определяет интерфейс для работы с журналом сделок
type TradeRepository interface {
	Create(ctx context.Context, trade *Trade) error
	List(ctx context.Context, filter TradeFilter) ([]Trade, error)
}

// Store хранилище журнала. Реализации: PostgreSQL и in-memory.
type Store interface {
	GetOrCreateToken(ctx context.Context, address, chain string, symbol, name *string) (*Token, error)
	GetToken(ctx context.Context, address, chain string) (*Token, error)
	GetTokenByID(ctx context.Context, id int64) (*Token, error)
	FindTokensBySymbol(ctx context.Context, symbol string) ([]Token, error)

	GetOrCreateWallet(ctx context.Context, address, chain string, nickname *string) (*Wallet, error)

	CreatePosition(ctx context.Context, tokenID int64, walletID *int64) (*Position, error)
	GetPosition(ctx context.Context, id int64) (*Position, error)
	GetOpenPosition(ctx context.Context, tokenID int64, walletID *int64) (*Position, error)
	GetOpenPositionsBySymbol(ctx context.Context, symbol string) ([]Position, error)
	ListOpenPositions(ctx context.Context) ([]Position, error)
	UpdatePosition(ctx context.Context, id int64, upd PositionUpdate) error

	CreateTrade(ctx context.Context, trade *Trade) error
	ListTrades(ctx context.Context, filter TradeFilter) ([]Trade, error)

	AggregateStats(ctx context.Context) (*Stats, error)

	// WithinTx выполняет fn атомарно. Внутри fn следует использовать только переданный Store.
	WithinTx(ctx context.Context, fn func(tx Store) error) error
}
