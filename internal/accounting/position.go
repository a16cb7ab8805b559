package accounting

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kirillm/trade-journal/internal/domain"
)

// Totals накопленные значения позиции в точной арифметике
type Totals struct {
	Bought    decimal.Decimal
	Sold      decimal.Decimal
	Remaining decimal.Decimal
	Cost      decimal.Decimal
	Proceeds  decimal.Decimal
	Realized  decimal.Decimal
	Status    string
}

// FromPosition переносит сохраненную позицию в Totals
func FromPosition(p *domain.Position) Totals {
	if p == nil {
		return Totals{Status: domain.StatusOpen}
	}
	return Totals{
		Bought:    decimal.NewFromFloat(p.TotalBought),
		Sold:      decimal.NewFromFloat(p.TotalSold),
		Remaining: decimal.NewFromFloat(p.RemainingTokens),
		Cost:      decimal.NewFromFloat(p.TotalCostUSD),
		Proceeds:  decimal.NewFromFloat(p.TotalProceedsUSD),
		Realized:  decimal.NewFromFloat(p.RealizedPnLUSD),
		Status:    p.Status,
	}
}

// ToUpdate полное обновление всех полей позиции
func (t Totals) ToUpdate() domain.PositionUpdate {
	f := func(d decimal.Decimal) *float64 {
		v, _ := d.Float64()
		return &v
	}
	status := t.Status
	return domain.PositionUpdate{
		TotalBought:      f(t.Bought),
		TotalSold:        f(t.Sold),
		RemainingTokens:  f(t.Remaining),
		TotalCostUSD:     f(t.Cost),
		TotalProceedsUSD: f(t.Proceeds),
		RealizedPnLUSD:   f(t.Realized),
		Status:           &status,
	}
}

// CanApply: учет возможен только при известных количестве токенов и сумме в USD
func CanApply(tokens, valueUSD *float64) bool {
	return tokens != nil && valueUSD != nil && *tokens > 0 && *valueUSD >= 0
}

// Apply применяет сделку к позиции по средней цене входа.
// BUY: растут купленное, остаток и стоимость, статус OPEN.
// SELL: PnL += выручка - проданное * средняя цена; остаток не уходит ниже нуля.
func Apply(t Totals, tradeType string, tokens, valueUSD float64) (Totals, error) {
	if tokens <= 0 {
		return t, fmt.Errorf("%w: token amount must be positive, got %v", domain.ErrInvalidInput, tokens)
	}
	if valueUSD < 0 {
		return t, fmt.Errorf("%w: value must not be negative, got %v", domain.ErrInvalidInput, valueUSD)
	}

	qty := decimal.NewFromFloat(tokens)
	value := decimal.NewFromFloat(valueUSD)

	switch strings.ToUpper(tradeType) {
	case domain.TradeBuy:
		t.Bought = t.Bought.Add(qty)
		t.Remaining = t.Remaining.Add(qty)
		t.Cost = t.Cost.Add(value)
		t.Status = domain.StatusOpen

	case domain.TradeSell:
		// без покупок себестоимость неизвестна: PnL не меняется
		if t.Bought.IsPositive() {
			costOfSold := qty.Mul(AverageCost(t))
			t.Realized = t.Realized.Add(value.Sub(costOfSold))
		}
		t.Sold = t.Sold.Add(qty)
		t.Proceeds = t.Proceeds.Add(value)

		t.Remaining = t.Remaining.Sub(qty)
		if !t.Remaining.IsPositive() {
			t.Remaining = decimal.Zero
			t.Status = domain.StatusClosed
		} else {
			t.Status = domain.StatusPartial
		}

	default:
		return t, fmt.Errorf("%w: unknown trade type %q", domain.ErrInvalidInput, tradeType)
	}

	return t, nil
}

// AverageCost средняя цена токена; ноль, если ничего не куплено
func AverageCost(t Totals) decimal.Decimal {
	if !t.Bought.IsPositive() {
		return decimal.Zero
	}
	return t.Cost.Div(t.Bought)
}

// UnrealizedPnL бумажная прибыль остатка по текущей цене
func UnrealizedPnL(t Totals, price float64) decimal.Decimal {
	if !t.Remaining.IsPositive() {
		return decimal.Zero
	}
	return t.Remaining.Mul(decimal.NewFromFloat(price).Sub(AverageCost(t)))
}
