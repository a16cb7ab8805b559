package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/kirillm/trade-journal/internal/domain"
)

// TokenRepository реализует работу с токенами
type TokenRepository struct {
	db DBTX
}

// NewTokenRepository создает новый репозиторий для токенов
func NewTokenRepository(db DBTX) *TokenRepository {
	return &TokenRepository{db: db}
}

var _ domain.TokenRepository = (*TokenRepository)(nil)

const tokenColumns = `id, contract_address, chain, symbol, name, created_at`

// GetOrCreate возвращает токен по (адрес без учета регистра, сеть) или создает его.
// Переданные symbol/name перезаписывают сохраненные, nil их не стирает.
func (r *TokenRepository) GetOrCreate(ctx context.Context, address, chain string, symbol, name *string) (*domain.Token, error) {
	query := `
		INSERT INTO tokens (contract_address, chain, symbol, name, created_at)
		VALUES ($1, $2, $3, $4, NOW())
		ON CONFLICT ((lower(contract_address)), chain) DO UPDATE
		SET symbol = COALESCE(EXCLUDED.symbol, tokens.symbol),
		    name = COALESCE(EXCLUDED.name, tokens.name)
		RETURNING ` + tokenColumns
	return scanToken(r.db.QueryRowContext(ctx, query, address, strings.ToLower(chain), symbol, name))
}

// Get возвращает токен или nil, если его нет
func (r *TokenRepository) Get(ctx context.Context, address, chain string) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE lower(contract_address) = lower($1) AND chain = $2`
	token, err := scanToken(r.db.QueryRowContext(ctx, query, address, strings.ToLower(chain)))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return token, err
}

// GetByID возвращает токен по id или nil
func (r *TokenRepository) GetByID(ctx context.Context, id int64) (*domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE id = $1`
	token, err := scanToken(r.db.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	return token, err
}

// FindBySymbol ищет токены по символу без учета регистра
func (r *TokenRepository) FindBySymbol(ctx context.Context, symbol string) ([]domain.Token, error) {
	query := `SELECT ` + tokenColumns + ` FROM tokens WHERE upper(symbol) = upper($1) ORDER BY id`
	rows, err := r.db.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var tokens []domain.Token
	for rows.Next() {
		token, err := scanToken(rows)
		if err != nil {
			return nil, err
		}
		tokens = append(tokens, *token)
	}
	return tokens, rows.Err()
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanToken(row rowScanner) (*domain.Token, error) {
	var t domain.Token
	err := row.Scan(&t.ID, &t.ContractAddress, &t.Chain, &t.Symbol, &t.Name, &t.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &t, nil
}
