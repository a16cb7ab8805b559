package telegram

import (
	"fmt"
)

// Lang представляет язык служебных сообщений бота
type Lang string

const (
	LangEN Lang = "en"
	LangRU Lang = "ru"
)

// Formatter служебные тексты бота. Ответы журнала не переводятся.
type Formatter struct {
	lang Lang
}

// NewFormatter создает новый форматтер
func NewFormatter(lang Lang) *Formatter {
	if lang != LangRU && lang != LangEN {
		lang = LangEN
	}
	return &Formatter{lang: lang}
}

// GetLang возвращает текущий язык
func (f *Formatter) GetLang() Lang {
	return f.lang
}

var translations = map[string]map[Lang]string{
	"access_denied":     {LangEN: "⛔ Access denied", LangRU: "⛔ Доступ запрещен"},
	"error":             {LangEN: "❌ Error", LangRU: "❌ Ошибка"},
	"processing":        {LangEN: "⏳ Processing...", LangRU: "⏳ Обрабатываю..."},
	"loading_positions": {LangEN: "⏳ Loading positions...", LangRU: "⏳ Загружаю позиции..."},
	"loading_log":       {LangEN: "⏳ Loading trade log...", LangRU: "⏳ Загружаю журнал..."},
	"loading_stats":     {LangEN: "⏳ Loading stats...", LangRU: "⏳ Считаю статистику..."},
	"checking_status":   {LangEN: "⏳ Checking status...", LangRU: "⏳ Проверяю статус..."},
	"started":           {LangEN: "🤖 Trade Journal Bot started", LangRU: "🤖 Бот-журнал сделок запущен"},
}

// T переводит строку
func (f *Formatter) T(key string) string {
	if tr, ok := translations[key]; ok {
		if text, ok := tr[f.lang]; ok {
			return text
		}
		return tr[LangEN]
	}
	return key
}

// FormatError форматирует ошибку для пользователя
func (f *Formatter) FormatError(err error) string {
	return fmt.Sprintf("%s: %v", f.T("error"), err)
}

// FormatWelcome приветствие для /start
func (f *Formatter) FormatWelcome() string {
	return `Welcome to your Trade Journal Bot!

Send me a message about your trades and I'll log them for you.

Examples:
• $1.5K USDC on https://dexscreener.com/base/0x...
• 100K hype 3x hyperliquid
• 10K BTC Spot Binance

I'll automatically:
• Parse the message
• Look up token prices
• Track your positions

Commands:
/positions - Show open positions
/log - Show trade history
/stats - Show journal stats
/help - Show examples`
}

// FormatHelp справка для /help
func (f *Formatter) FormatHelp() string {
	return `Trade Journal Bot Help

📝 Logging Trades:
Just send a natural message describing the trade.

Examples:
• $1.5K USDC on https://dexscreener.com/base/0x...
• Bought 1K USDC of 0x4ed4E862... at 50M mcap
• 100K hype 3x hyperliquid
• Long ETH on HL $500
• 10K BTC Spot Binance
• Sold PEPE for $3000

Supported:
• DEX trades (with contract address or DEX Screener link)
• Perps on Hyperliquid, Binance, Bybit, dYdX, GMX
• CEX spot trades

Commands:
/positions - Show open positions (alias /balance)
/log [N] - Show last N trades
/stats - Show journal stats
/status - Check bot health
/help - Show this message`
}
