package journal

import (
	"fmt"
	"math"
	"strings"

	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"github.com/kirillm/trade-journal/internal/accounting"
	"github.com/kirillm/trade-journal/internal/chain"
	"github.com/kirillm/trade-journal/internal/domain"
	"github.com/kirillm/trade-journal/internal/market"
)

const separator = "─────────────────────────"

var printer = message.NewPrinter(language.English)

// usd форматирует сумму с разделителями разрядов: $1,500.00, -$50.00
func usd(v float64) string {
	if v < 0 {
		return printer.Sprintf("-$%.2f", -v)
	}
	return printer.Sprintf("$%.2f", v)
}

// usdWhole как usd, но без центов
func usdWhole(v float64) string {
	if v < 0 {
		return printer.Sprintf("-$%.0f", -v)
	}
	return printer.Sprintf("$%.0f", v)
}

// signedUSD добавляет знак: +$2,000.00
func signedUSD(v float64) string {
	if v > 0 {
		return "+" + usd(v)
	}
	return usd(v)
}

// compact сокращает большие числа: 1.6M, 2.5K
func compact(v float64) string {
	abs := math.Abs(v)
	switch {
	case abs >= 1e9:
		return fmt.Sprintf("%.1fB", v/1e9)
	case abs >= 1e6:
		return fmt.Sprintf("%.1fM", v/1e6)
	case abs >= 1e3:
		return fmt.Sprintf("%.1fK", v/1e3)
	default:
		return printer.Sprintf("%.2f", v)
	}
}

// tokenAmount количество токенов: крупные с разделителями, мелкие с точностью
func tokenAmount(v float64) string {
	if math.Abs(v) >= 1 {
		return printer.Sprintf("%.2f", v)
	}
	return fmt.Sprintf("%.6f", v)
}

func formatOutcome(out *Outcome) string {
	if !out.Recorded {
		msg := out.Message
		if msg == "" {
			msg = "Nothing recorded."
		}
		return "ℹ️ " + msg
	}

	var sb strings.Builder
	t := out.Trade

	icon := "🟢"
	verb := "Spent"
	if out.TradeType == domain.TradeSell {
		icon = "🔴"
		verb = "Received"
	}
	sb.WriteString(fmt.Sprintf("%s %s %s", icon, out.TradeType, out.Symbol))
	if out.Venue != "" {
		sb.WriteString(fmt.Sprintf(" (%s)", out.Venue))
	}
	sb.WriteString("\n")

	if t.AmountSpent != nil {
		currency := domain.CurrencyUSD
		if t.SpendCurrency != nil {
			currency = *t.SpendCurrency
		}
		if market.IsStableCurrency(currency) {
			sb.WriteString(fmt.Sprintf("%s: %s %s\n", verb, usd(*t.AmountSpent), currency))
		} else {
			sb.WriteString(fmt.Sprintf("%s: %s %s\n", verb, tokenAmount(*t.AmountSpent), currency))
		}
	}
	if t.AmountTokens != nil {
		sb.WriteString(fmt.Sprintf("Tokens: %s\n", tokenAmount(*t.AmountTokens)))
	}
	if t.PriceUSD != nil && out.Venue == "" {
		sb.WriteString(fmt.Sprintf("Price: $%.8f\n", *t.PriceUSD))
	}
	if t.MarketCapAtTrade != nil {
		sb.WriteString(fmt.Sprintf("MCAP: $%s\n", compact(*t.MarketCapAtTrade)))
	}

	if p := out.Position; p != nil {
		totals := accounting.FromPosition(p)
		sb.WriteString(fmt.Sprintf("\nPosition: %s (%s)\n", p.DisplaySymbol(), p.Status))
		sb.WriteString(fmt.Sprintf("Holding: %s tokens\n", tokenAmount(p.RemainingTokens)))
		if p.TotalBought > 0 {
			avg, _ := accounting.AverageCost(totals).Float64()
			sb.WriteString(fmt.Sprintf("Avg cost: $%.6f\n", avg))
		}
		if p.RealizedPnLUSD != 0 {
			sb.WriteString(fmt.Sprintf("Realized PnL: %s\n", signedUSD(p.RealizedPnLUSD)))
		}
	}

	for _, w := range out.Warnings {
		sb.WriteString("\n" + w)
	}
	return strings.TrimRight(sb.String(), "\n")
}

func formatCandidates(symbol string, candidates []*domain.Position) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Multiple open positions for %s:\n", symbol))
	for i, p := range candidates {
		sb.WriteString(fmt.Sprintf("%d. %s (%s) - %s tokens\n",
			i+1, chain.ShortAddress(p.ContractAddress), p.Chain, tokenAmount(p.RemainingTokens)))
	}
	sb.WriteString("\nPlease specify which position by including the contract address.")
	return sb.String()
}

func formatPositions(positions []domain.Position) string {
	if len(positions) == 0 {
		return "No open positions."
	}

	var sb strings.Builder
	sb.WriteString("📊 Open Positions\n")
	sb.WriteString(separator + "\n")

	var invested, realized float64
	for _, p := range positions {
		sb.WriteString(fmt.Sprintf("• %s (%s)\n", p.DisplaySymbol(), p.Chain))
		sb.WriteString(fmt.Sprintf("  %s tokens | %s invested\n", compact(p.RemainingTokens), usdWhole(p.TotalCostUSD)))
		if p.Status == domain.StatusPartial {
			sb.WriteString(fmt.Sprintf("  partial, realized %s\n", signedUSD(p.RealizedPnLUSD)))
		}
		invested += p.TotalCostUSD
		realized += p.RealizedPnLUSD
	}

	sb.WriteString(separator + "\n")
	sb.WriteString(fmt.Sprintf("Total invested: %s", usdWhole(invested)))
	if realized != 0 {
		icon := "📈"
		if realized < 0 {
			icon = "📉"
		}
		sb.WriteString(fmt.Sprintf("\n%s Realized PnL: %s", icon, signedUSD(realized)))
	}
	return sb.String()
}

func formatTrades(trades []domain.Trade, limit int) string {
	if len(trades) == 0 {
		return "No trades recorded yet."
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("📒 Trade Log (last %d)\n", limit))
	sb.WriteString(separator + "\n")

	for _, t := range trades {
		icon := "🟢"
		if t.TradeType == domain.TradeSell {
			icon = "🔴"
		}
		symbol := domain.UnknownSymbol
		if t.Symbol != nil && *t.Symbol != "" {
			symbol = *t.Symbol
		}

		amount := "?"
		switch {
		case t.TotalValueUSD != nil:
			amount = "$" + compact(*t.TotalValueUSD)
		case t.AmountSpent != nil && t.SpendCurrency != nil:
			amount = fmt.Sprintf("%s %s", tokenAmount(*t.AmountSpent), *t.SpendCurrency)
		}

		mark := ""
		if t.PositionStatus != nil {
			switch *t.PositionStatus {
			case domain.StatusClosed:
				mark = " ✓"
			case domain.StatusPartial:
				mark = " ◐"
			}
		}

		sb.WriteString(fmt.Sprintf("%s %s | %s (%s) | %s%s\n",
			icon, t.TradeTimestamp.Format("2006-01-02"), symbol, t.Chain, amount, mark))
	}

	sb.WriteString(separator + "\n")
	sb.WriteString("✓ = closed | ◐ = partial")
	return sb.String()
}

func formatStats(st *domain.Stats) string {
	var sb strings.Builder
	sb.WriteString("📈 Journal Stats\n")
	sb.WriteString(separator + "\n")
	sb.WriteString(fmt.Sprintf("Trades: %d\n", st.TotalTrades))
	sb.WriteString(fmt.Sprintf("Positions: %d (%d open)\n", st.TotalPositions, st.OpenPositions))
	sb.WriteString(fmt.Sprintf("Invested: %s\n", usd(st.TotalInvestedUSD)))
	sb.WriteString(fmt.Sprintf("Realized PnL: %s", signedUSD(st.RealizedPnLUSD)))
	return sb.String()
}
