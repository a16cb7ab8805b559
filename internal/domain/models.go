package domain

import (
	"strings"
	"time"
)

// Token представляет актив, идентифицируемый парой (адрес контракта, сеть).
// Для перпов и CEX-спота адрес синтетический: "{SYMBOL}_{exchange}".
type Token struct {
	ID              int64     `db:"id"`
	ContractAddress string    `db:"contract_address"`
	Chain           string    `db:"chain"`
	Symbol          *string   `db:"symbol"`
	Name            *string   `db:"name"`
	CreatedAt       time.Time `db:"created_at"`
}

// DisplaySymbol возвращает символ токена или заглушку
func (t *Token) DisplaySymbol() string {
	if t.Symbol != nil && *t.Symbol != "" {
		return *t.Symbol
	}
	return UnknownSymbol
}

// Wallet представляет кошелек пользователя
type Wallet struct {
	ID        int64     `db:"id"`
	Address   string    `db:"address"`
	Chain     string    `db:"chain"`
	Nickname  *string   `db:"nickname"`
	CreatedAt time.Time `db:"created_at"`
}

// Position представляет накопленную позицию по одному токену
type Position struct {
	ID               int64      `db:"id"`
	TokenID          int64      `db:"token_id"`
	WalletID         *int64     `db:"wallet_id"`
	TotalBought      float64    `db:"total_bought"`
	TotalSold        float64    `db:"total_sold"`
	RemainingTokens  float64    `db:"remaining_tokens"`
	TotalCostUSD     float64    `db:"total_cost_usd"`
	TotalProceedsUSD float64    `db:"total_proceeds_usd"`
	RealizedPnLUSD   float64    `db:"realized_pnl_usd"`
	Status           string     `db:"status"` // OPEN, PARTIAL, CLOSED
	OpenedAt         time.Time  `db:"opened_at"`
	ClosedAt         *time.Time `db:"closed_at"`

	// Поля токена (JOIN) для отображения
	Symbol          *string `db:"symbol"`
	ContractAddress string  `db:"contract_address"`
	Chain           string  `db:"chain"`
}

// DisplaySymbol возвращает символ токена позиции
func (p *Position) DisplaySymbol() string {
	if p.Symbol != nil && *p.Symbol != "" {
		return *p.Symbol
	}
	return UnknownSymbol
}

// IsOpen сообщает, можно ли еще продавать из позиции
func (p *Position) IsOpen() bool {
	return p.Status == StatusOpen || p.Status == StatusPartial
}

// PositionUpdate частичное обновление позиции; nil поля не меняются
type PositionUpdate struct {
	TotalBought      *float64
	TotalSold        *float64
	RemainingTokens  *float64
	TotalCostUSD     *float64
	TotalProceedsUSD *float64
	RealizedPnLUSD   *float64
	Status           *string
}

// Trade представляет неизменяемую запись журнала сделок
type Trade struct {
	ID               int64     `db:"id"`
	TokenID          int64     `db:"token_id"`
	PositionID       *int64    `db:"position_id"`
	WalletID         *int64    `db:"wallet_id"`
	TradeType        string    `db:"trade_type"` // BUY or SELL
	AmountSpent      *float64  `db:"amount_spent"`
	SpendCurrency    *string   `db:"spend_currency"`
	AmountTokens     *float64  `db:"amount_tokens"`
	PriceUSD         *float64  `db:"price_usd"`
	TotalValueUSD    *float64  `db:"total_value_usd"`
	MarketCapAtTrade *float64  `db:"market_cap_at_trade"`
	SourceMessage    string    `db:"source_message"`
	NotesURL         *string   `db:"notes_url"`
	DexScreenerURL   *string   `db:"dexscreener_url"`
	MessageID        string    `db:"message_id"` // общий UUID для всех сделок одного сообщения
	TradeTimestamp   time.Time `db:"trade_timestamp"`
	CreatedAt        time.Time `db:"created_at"`

	// Поля токена и позиции (JOIN) для журнала
	Symbol         *string `db:"symbol"`
	Chain          string  `db:"chain"`
	PositionStatus *string `db:"position_status"`
}

// TradeFilter задает выборку журнала
type TradeFilter struct {
	TokenID *int64
	Limit   int
}

// ParsedTrade структурированный результат разбора одного упоминания сделки
type ParsedTrade struct {
	TradeType       string // пусто, если направление не найдено
	ContractAddress string
	Chain           string
	TokenSymbol     string
	AmountSpent     *float64
	SpendCurrency   string
	MarketCap       *float64
	NotesURL        string
	DexScreenerURL  string

	IsPerp       bool
	IsCEXSpot    bool
	Exchange     string
	PositionType string // LONG/SHORT для перпов
	Leverage     *float64

	RawMessage      string
	ParseConfidence string
	MissingFields   []string
}

// IsVenueTrade сообщает, относится ли сделка к бирже, а не к токену в сети
func (p *ParsedTrade) IsVenueTrade() bool {
	return p.IsPerp || p.IsCEXSpot
}

// HasMissing проверяет, отмечено ли поле как отсутствующее
func (p *ParsedTrade) HasMissing(field string) bool {
	for _, f := range p.MissingFields {
		if f == field {
			return true
		}
	}
	return false
}

// ParseResult результат разбора всего сообщения
type ParseResult struct {
	Trades       []ParsedTrade
	RawMessage   string
	Success      bool
	ErrorMessage string
}

// ChainInfo результат классификации адреса
type ChainInfo struct {
	Chain       string
	AddressType string
	Confidence  string
}

// TokenInfo рыночные данные токена от резолвера
type TokenInfo struct {
	ContractAddress string
	Chain           string
	Symbol          string
	Name            string
	PriceUSD        *float64
	MarketCap       *float64
	LiquidityUSD    *float64
	Volume24h       *float64
	PriceChange24h  *float64
	DexURL          string
}

// Stats агрегированная статистика журнала
type Stats struct {
	TotalTrades      int     `json:"total_trades"`
	TotalPositions   int     `json:"total_positions"`
	OpenPositions    int     `json:"open_positions"`
	RealizedPnLUSD   float64 `json:"realized_pnl_usd"`
	TotalInvestedUSD float64 `json:"total_invested_usd"`
}

// VenueAddress строит синтетический адрес для биржевых сделок
func VenueAddress(symbol, exchange string) string {
	return strings.ToUpper(symbol) + "_" + strings.ToLower(exchange)
}

// Float64Ptr хелпер для опциональных полей
func Float64Ptr(v float64) *float64 { return &v }

func StringPtr(v string) *string { return &v }

// NonEmptyPtr возвращает nil для пустой строки
func NonEmptyPtr(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
