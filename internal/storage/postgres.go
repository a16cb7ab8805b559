package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq"

	"github.com/kirillm/trade-journal/internal/domain"
	"github.com/kirillm/trade-journal/internal/storage/repository"
)

// PostgresStorage является фасадом для работы с PostgreSQL через репозитории
type PostgresStorage struct {
	db        *sql.DB
	tx        *sql.Tx
	tokens    *repository.TokenRepository
	wallets   *repository.WalletRepository
	positions *repository.PositionRepository
	trades    *repository.TradeRepository
	stats     *repository.StatsRepository
}

var _ domain.Store = (*PostgresStorage)(nil)

// PostgresConfig параметры подключения и пула
type PostgresConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// DSN строка подключения lib/pq
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// NewPostgresStorage подключается по конфигурации и применяет миграции
func NewPostgresStorage(ctx context.Context, cfg PostgresConfig) (*PostgresStorage, error) {
	return OpenPostgres(ctx, cfg.DSN(), cfg.MaxOpenConns, cfg.MaxIdleConns, cfg.ConnMaxLifetime)
}

// OpenPostgres подключается по DSN и применяет миграции
func OpenPostgres(ctx context.Context, dsn string, maxOpenConns, maxIdleConns int, connMaxLifetime time.Duration) (*PostgresStorage, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrDatabaseConnection, err)
	}

	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("%w: failed to ping database: %v", domain.ErrDatabaseConnection, err)
	}

	// Настройка connection pool из конфигурации
	if maxOpenConns > 0 {
		db.SetMaxOpenConns(maxOpenConns)
	}
	if maxIdleConns > 0 {
		db.SetMaxIdleConns(maxIdleConns)
	}
	if connMaxLifetime > 0 {
		db.SetConnMaxLifetime(connMaxLifetime)
	}

	storage := newPostgresStorage(db, nil, db)

	if err := storage.migrate(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return storage, nil
}

func newPostgresStorage(db *sql.DB, tx *sql.Tx, q repository.DBTX) *PostgresStorage {
	return &PostgresStorage{
		db:        db,
		tx:        tx,
		tokens:    repository.NewTokenRepository(q),
		wallets:   repository.NewWalletRepository(q),
		positions: repository.NewPositionRepository(q),
		trades:    repository.NewTradeRepository(q),
		stats:     repository.NewStatsRepository(q),
	}
}

func (s *PostgresStorage) migrate(ctx context.Context) error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS tokens (
			id BIGSERIAL PRIMARY KEY,
			contract_address TEXT NOT NULL,
			chain VARCHAR(32) NOT NULL,
			symbol VARCHAR(64),
			name TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_tokens_address_chain ON tokens ((lower(contract_address)), chain)`,
		`CREATE INDEX IF NOT EXISTS idx_tokens_symbol ON tokens ((upper(symbol)))`,
		`CREATE TABLE IF NOT EXISTS wallets (
			id BIGSERIAL PRIMARY KEY,
			address TEXT NOT NULL,
			chain VARCHAR(32) NOT NULL,
			nickname TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		`CREATE UNIQUE INDEX IF NOT EXISTS idx_wallets_address_chain ON wallets ((lower(address)), chain)`,
		`CREATE TABLE IF NOT EXISTS positions (
			id BIGSERIAL PRIMARY KEY,
			token_id BIGINT NOT NULL REFERENCES tokens(id),
			wallet_id BIGINT REFERENCES wallets(id),
			total_bought NUMERIC NOT NULL DEFAULT 0,
			total_sold NUMERIC NOT NULL DEFAULT 0,
			remaining_tokens NUMERIC NOT NULL DEFAULT 0,
			total_cost_usd NUMERIC NOT NULL DEFAULT 0,
			total_proceeds_usd NUMERIC NOT NULL DEFAULT 0,
			realized_pnl_usd NUMERIC NOT NULL DEFAULT 0,
			status VARCHAR(10) NOT NULL DEFAULT 'OPEN',
			opened_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			closed_at TIMESTAMPTZ
		)`,
		`CREATE TABLE IF NOT EXISTS trades (
			id BIGSERIAL PRIMARY KEY,
			token_id BIGINT NOT NULL REFERENCES tokens(id),
			position_id BIGINT REFERENCES positions(id),
			wallet_id BIGINT REFERENCES wallets(id),
			trade_type VARCHAR(4) NOT NULL,
			amount_spent NUMERIC,
			spend_currency VARCHAR(16),
			amount_tokens NUMERIC,
			price_usd NUMERIC,
			total_value_usd NUMERIC,
			market_cap_at_trade NUMERIC,
			source_message TEXT NOT NULL,
			notes_url TEXT,
			dexscreener_url TEXT,
			message_id VARCHAR(64) NOT NULL,
			trade_timestamp TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		)`,
		// Индексы
		`CREATE INDEX IF NOT EXISTS idx_positions_token ON positions(token_id)`,
		`CREATE INDEX IF NOT EXISTS idx_positions_status ON positions(status)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_token ON trades(token_id)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_timestamp ON trades(trade_timestamp)`,
		`CREATE INDEX IF NOT EXISTS idx_trades_message ON trades(message_id)`,
	}

	for _, migration := range migrations {
		if _, err := s.db.ExecContext(ctx, migration); err != nil {
			return fmt.Errorf("migration failed: %w", err)
		}
	}

	return nil
}

// Ping проверяет соединение
func (s *PostgresStorage) Ping(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

// Close закрывает пул соединений
func (s *PostgresStorage) Close() error {
	return s.db.Close()
}

// WithinTx выполняет fn в транзакции. Вложенный вызов использует текущую транзакцию.
func (s *PostgresStorage) WithinTx(ctx context.Context, fn func(tx domain.Store) error) (err error) {
	if s.tx != nil {
		return fn(s)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	defer func() {
		if p := recover(); p != nil {
			_ = tx.Rollback()
			panic(p)
		}
		if err != nil {
			_ = tx.Rollback()
			return
		}
		if cerr := tx.Commit(); cerr != nil {
			err = fmt.Errorf("failed to commit transaction: %w", cerr)
		}
	}()

	return fn(newPostgresStorage(s.db, tx, tx))
}

// ==================== TOKENS ====================

func (s *PostgresStorage) GetOrCreateToken(ctx context.Context, address, chain string, symbol, name *string) (*domain.Token, error) {
	return s.tokens.GetOrCreate(ctx, address, chain, symbol, name)
}

func (s *PostgresStorage) GetToken(ctx context.Context, address, chain string) (*domain.Token, error) {
	return s.tokens.Get(ctx, address, chain)
}

func (s *PostgresStorage) GetTokenByID(ctx context.Context, id int64) (*domain.Token, error) {
	return s.tokens.GetByID(ctx, id)
}

func (s *PostgresStorage) FindTokensBySymbol(ctx context.Context, symbol string) ([]domain.Token, error) {
	return s.tokens.FindBySymbol(ctx, symbol)
}

// ==================== WALLETS ====================

func (s *PostgresStorage) GetOrCreateWallet(ctx context.Context, address, chain string, nickname *string) (*domain.Wallet, error) {
	return s.wallets.GetOrCreate(ctx, address, chain, nickname)
}

// ==================== POSITIONS ====================

func (s *PostgresStorage) CreatePosition(ctx context.Context, tokenID int64, walletID *int64) (*domain.Position, error) {
	return s.positions.Create(ctx, tokenID, walletID)
}

func (s *PostgresStorage) GetPosition(ctx context.Context, id int64) (*domain.Position, error) {
	return s.positions.Get(ctx, id)
}

func (s *PostgresStorage) GetOpenPosition(ctx context.Context, tokenID int64, walletID *int64) (*domain.Position, error) {
	return s.positions.GetOpen(ctx, tokenID, walletID)
}

func (s *PostgresStorage) GetOpenPositionsBySymbol(ctx context.Context, symbol string) ([]domain.Position, error) {
	return s.positions.GetOpenBySymbol(ctx, symbol)
}

func (s *PostgresStorage) ListOpenPositions(ctx context.Context) ([]domain.Position, error) {
	return s.positions.ListOpen(ctx)
}

func (s *PostgresStorage) UpdatePosition(ctx context.Context, id int64, upd domain.PositionUpdate) error {
	return s.positions.Update(ctx, id, upd)
}

// ==================== TRADES ====================

func (s *PostgresStorage) CreateTrade(ctx context.Context, trade *domain.Trade) error {
	return s.trades.Create(ctx, trade)
}

func (s *PostgresStorage) ListTrades(ctx context.Context, filter domain.TradeFilter) ([]domain.Trade, error) {
	return s.trades.List(ctx, filter)
}

// ==================== STATS ====================

func (s *PostgresStorage) AggregateStats(ctx context.Context) (*domain.Stats, error) {
	return s.stats.Aggregate(ctx)
}
