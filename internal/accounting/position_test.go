package accounting

import (
	"errors"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillm/trade-journal/internal/domain"
)

type fill struct {
	tradeType string
	tokens    float64
	value     float64
}

func applyAll(t *testing.T, fills []fill) Totals {
	t.Helper()
	totals := FromPosition(nil)
	for _, f := range fills {
		var err error
		totals, err = Apply(totals, f.tradeType, f.tokens, f.value)
		require.NoError(t, err)
	}
	return totals
}

func assertDecimal(t *testing.T, expected float64, actual decimal.Decimal) {
	t.Helper()
	assert.True(t, decimal.NewFromFloat(expected).Equal(actual), "expected %v, got %s", expected, actual)
}

func TestAverageCostRealizedPnL(t *testing.T) {
	totals := applyAll(t, []fill{
		{domain.TradeBuy, 1000, 100},
		{domain.TradeBuy, 1000, 300},
	})
	assertDecimal(t, 0.2, AverageCost(totals))

	totals, err := Apply(totals, domain.TradeSell, 500, 150)
	require.NoError(t, err)

	assertDecimal(t, 50, totals.Realized)
	assertDecimal(t, 1500, totals.Remaining)
	assertDecimal(t, 500, totals.Sold)
	assertDecimal(t, 150, totals.Proceeds)
	assert.Equal(t, domain.StatusPartial, totals.Status)
}

func TestRealizedPnLIndependentOfBuyOrder(t *testing.T) {
	sell := fill{domain.TradeSell, 500, 150}

	a := applyAll(t, []fill{{domain.TradeBuy, 1000, 100}, {domain.TradeBuy, 1000, 300}, sell})
	b := applyAll(t, []fill{{domain.TradeBuy, 1000, 300}, {domain.TradeBuy, 1000, 100}, sell})

	assert.True(t, a.Realized.Equal(b.Realized))
	assertDecimal(t, 50, b.Realized)
}

func TestSellExhaustsPosition(t *testing.T) {
	tests := []struct {
		name  string
		fills []fill
	}{
		{"exact", []fill{{domain.TradeBuy, 1000, 100}, {domain.TradeSell, 1000, 250}}},
		{"fractional", []fill{{domain.TradeBuy, 0.1, 1}, {domain.TradeBuy, 0.2, 2}, {domain.TradeSell, 0.3, 4}}},
		{"oversell", []fill{{domain.TradeBuy, 10, 10}, {domain.TradeSell, 10.000000001, 20}}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			totals := applyAll(t, tt.fills)
			assert.Equal(t, domain.StatusClosed, totals.Status)
			assert.True(t, totals.Remaining.IsZero(), "remaining %s", totals.Remaining)
		})
	}
}

func TestBuyNeverDecreasesRemaining(t *testing.T) {
	totals := applyAll(t, []fill{{domain.TradeBuy, 100, 10}, {domain.TradeSell, 40, 8}})
	before := totals.Remaining

	totals, err := Apply(totals, domain.TradeBuy, 5, 1)
	require.NoError(t, err)
	assert.True(t, totals.Remaining.GreaterThan(before))
	assert.Equal(t, domain.StatusOpen, totals.Status)
}

func TestSellWithoutBuys(t *testing.T) {
	totals, err := Apply(FromPosition(nil), domain.TradeSell, 100, 40)
	require.NoError(t, err)

	assert.True(t, totals.Realized.IsZero())
	assertDecimal(t, 40, totals.Proceeds)
	assert.True(t, totals.Remaining.IsZero())
	assert.Equal(t, domain.StatusClosed, totals.Status)
}

func TestApplyRejectsBadInput(t *testing.T) {
	tests := []struct {
		name      string
		tradeType string
		tokens    float64
		value     float64
	}{
		{"zero tokens", domain.TradeBuy, 0, 10},
		{"negative value", domain.TradeBuy, 1, -1},
		{"unknown type", "HOLD", 1, 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Apply(Totals{}, tt.tradeType, tt.tokens, tt.value)
			assert.True(t, errors.Is(err, domain.ErrInvalidInput))
		})
	}
}

func TestCanApply(t *testing.T) {
	assert.True(t, CanApply(domain.Float64Ptr(10), domain.Float64Ptr(1)))
	assert.False(t, CanApply(nil, domain.Float64Ptr(1)))
	assert.False(t, CanApply(domain.Float64Ptr(10), nil))
	assert.False(t, CanApply(domain.Float64Ptr(0), domain.Float64Ptr(1)))
}

func TestPositionRoundTrip(t *testing.T) {
	p := &domain.Position{
		TotalBought:     2000,
		RemainingTokens: 2000,
		TotalCostUSD:    400,
		Status:          domain.StatusOpen,
	}

	totals, err := Apply(FromPosition(p), domain.TradeSell, 500, 150)
	require.NoError(t, err)

	upd := totals.ToUpdate()
	require.NotNil(t, upd.RealizedPnLUSD)
	assert.InDelta(t, 50.0, *upd.RealizedPnLUSD, 1e-9)
	assert.InDelta(t, 1500.0, *upd.RemainingTokens, 1e-9)
	assert.Equal(t, domain.StatusPartial, *upd.Status)
}

func TestUnrealizedPnL(t *testing.T) {
	totals := applyAll(t, []fill{{domain.TradeBuy, 1000, 100}})
	assertDecimal(t, 50, UnrealizedPnL(totals, 0.15))

	closed := applyAll(t, []fill{{domain.TradeBuy, 10, 10}, {domain.TradeSell, 10, 5}})
	assert.True(t, UnrealizedPnL(closed, 100).IsZero())
}
