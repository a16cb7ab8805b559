package domain

// Trade types
const (
	TradeBuy  = "BUY"
	TradeSell = "SELL"
)

// Position statuses
const (
	StatusOpen    = "OPEN"
	StatusPartial = "PARTIAL"
	StatusClosed  = "CLOSED"
)

// UnknownSymbol заглушка для токена без символа
const UnknownSymbol = "UNKNOWN"

// Perp position types
const (
	PositionLong  = "LONG"
	PositionShort = "SHORT"
)

// Parse confidence tiers
const (
	ConfidenceHigh   = "high"
	ConfidenceMedium = "medium"
	ConfidenceLow    = "low"
)

// Address shapes
const (
	AddressEVM     = "evm"
	AddressSolana  = "solana"
	AddressUnknown = "unknown"
)

// Chains
const (
	ChainSolana      = "solana"
	ChainEthereum    = "ethereum"
	ChainBase        = "base"
	ChainBSC         = "bsc"
	ChainArbitrum    = "arbitrum"
	ChainPolygon     = "polygon"
	ChainOptimism    = "optimism"
	ChainAvalanche   = "avalanche"
	ChainHyperliquid = "hyperliquid"
	ChainUnknown     = "unknown"
)

// Venues
const (
	ExchangeHyperliquid = "hyperliquid"
	ExchangeBinance     = "binance"
	ExchangeBybit       = "bybit"
	ExchangeDYDX        = "dydx"
	ExchangeGMX         = "gmx"
)

// Currencies
const (
	CurrencyUSD = "USD"
)

// Missing field markers
const (
	FieldContractAddress = "contract_address"
	FieldTradeType       = "trade_type"
)

// Telegram
const (
	MaxMessageLength = 4096
	DefaultLogLimit  = 20
)
