package memory

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kirillm/trade-journal/internal/domain"
)

const addr = "0xAbCdEf0123456789abcdef0123456789ABCDEF01"

func TestTokenGetOrCreate(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	first, err := s.GetOrCreateToken(ctx, addr, "Base", nil, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.ChainBase, first.Chain)
	assert.Nil(t, first.Symbol)

	second, err := s.GetOrCreateToken(ctx, "0xabcdef0123456789abcdef0123456789abcdef01", domain.ChainBase, domain.StringPtr("PEPE"), nil)
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID, "address match is case-insensitive")
	assert.Equal(t, "PEPE", second.DisplaySymbol(), "missing symbol is backfilled")

	renamed, err := s.GetOrCreateToken(ctx, addr, domain.ChainBase, domain.StringPtr("PEPE2"), domain.StringPtr("Pepe Two"))
	require.NoError(t, err)
	assert.Equal(t, "PEPE2", renamed.DisplaySymbol(), "newer symbol overwrites stored one")
	require.NotNil(t, renamed.Name)
	assert.Equal(t, "Pepe Two", *renamed.Name)

	kept, err := s.GetOrCreateToken(ctx, addr, domain.ChainBase, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, "PEPE2", kept.DisplaySymbol(), "nil never erases")
	require.NotNil(t, kept.Name)

	other, err := s.GetOrCreateToken(ctx, addr, domain.ChainEthereum, nil, nil)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, other.ID)

	found, err := s.GetToken(ctx, addr, domain.ChainBase)
	require.NoError(t, err)
	assert.Equal(t, first.ID, found.ID)

	missing, err := s.GetToken(ctx, addr, domain.ChainSolana)
	require.NoError(t, err)
	assert.Nil(t, missing)

	bySymbol, err := s.FindTokensBySymbol(ctx, "pepe2")
	require.NoError(t, err)
	require.Len(t, bySymbol, 1)
}

func TestPositionLifecycle(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	token, err := s.GetOrCreateToken(ctx, addr, domain.ChainBase, domain.StringPtr("PEPE"), nil)
	require.NoError(t, err)

	pos, err := s.CreatePosition(ctx, token.ID, nil)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusOpen, pos.Status)
	assert.Equal(t, "PEPE", pos.DisplaySymbol())

	open, err := s.GetOpenPosition(ctx, token.ID, nil)
	require.NoError(t, err)
	require.NotNil(t, open)
	assert.Equal(t, pos.ID, open.ID)

	require.NoError(t, s.UpdatePosition(ctx, pos.ID, domain.PositionUpdate{
		TotalBought:     domain.Float64Ptr(1000),
		RemainingTokens: domain.Float64Ptr(1000),
	}))

	got, err := s.GetPosition(ctx, pos.ID)
	require.NoError(t, err)
	assert.Equal(t, 1000.0, got.TotalBought)
	assert.Equal(t, 0.0, got.TotalCostUSD, "fields not in update stay untouched")

	closed := domain.StatusClosed
	require.NoError(t, s.UpdatePosition(ctx, pos.ID, domain.PositionUpdate{Status: &closed}))

	got, err = s.GetPosition(ctx, pos.ID)
	require.NoError(t, err)
	assert.NotNil(t, got.ClosedAt)

	list, err := s.ListOpenPositions(ctx)
	require.NoError(t, err)
	assert.Empty(t, list)

	err = s.UpdatePosition(ctx, 999, domain.PositionUpdate{Status: &closed})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestOpenPositionsBySymbol(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	a, _ := s.GetOrCreateToken(ctx, addr, domain.ChainBase, domain.StringPtr("WIF"), nil)
	b, _ := s.GetOrCreateToken(ctx, "WIFxSolanaMint111111111111111111111111111", domain.ChainSolana, domain.StringPtr("wif"), nil)
	_, err := s.CreatePosition(ctx, a.ID, nil)
	require.NoError(t, err)
	_, err = s.CreatePosition(ctx, b.ID, nil)
	require.NoError(t, err)

	positions, err := s.GetOpenPositionsBySymbol(ctx, "WIF")
	require.NoError(t, err)
	assert.Len(t, positions, 2)
}

func TestTradesAndStats(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	token, _ := s.GetOrCreateToken(ctx, addr, domain.ChainBase, domain.StringPtr("PEPE"), nil)
	pos, _ := s.CreatePosition(ctx, token.ID, nil)

	base := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	for i, tt := range []struct {
		tradeType string
		value     *float64
	}{
		{domain.TradeBuy, domain.Float64Ptr(100)},
		{domain.TradeBuy, nil},
		{domain.TradeSell, domain.Float64Ptr(300)},
	} {
		trade := &domain.Trade{
			TokenID:        token.ID,
			PositionID:     &pos.ID,
			TradeType:      tt.tradeType,
			TotalValueUSD:  tt.value,
			SourceMessage:  "msg",
			MessageID:      "batch",
			TradeTimestamp: base.Add(time.Duration(i) * time.Minute),
		}
		require.NoError(t, s.CreateTrade(ctx, trade))
		assert.NotZero(t, trade.ID)
	}

	trades, err := s.ListTrades(ctx, domain.TradeFilter{Limit: 2})
	require.NoError(t, err)
	require.Len(t, trades, 2)
	assert.Equal(t, domain.TradeSell, trades[0].TradeType, "newest first")
	assert.Equal(t, "PEPE", *trades[0].Symbol)
	assert.Equal(t, domain.StatusOpen, *trades[0].PositionStatus)

	pnl := 200.0
	require.NoError(t, s.UpdatePosition(ctx, pos.ID, domain.PositionUpdate{RealizedPnLUSD: &pnl}))

	stats, err := s.AggregateStats(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, stats.TotalTrades)
	assert.Equal(t, 1, stats.TotalPositions)
	assert.Equal(t, 1, stats.OpenPositions)
	assert.Equal(t, 200.0, stats.RealizedPnLUSD)
	assert.Equal(t, 100.0, stats.TotalInvestedUSD)
}

func TestCreateTradeRequiresToken(t *testing.T) {
	s := NewStore()
	err := s.CreateTrade(context.Background(), &domain.Trade{TokenID: 42, TradeType: domain.TradeBuy})
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestWithinTxRollsBack(t *testing.T) {
	ctx := context.Background()
	s := NewStore()

	boom := errors.New("boom")
	err := s.WithinTx(ctx, func(tx domain.Store) error {
		token, err := tx.GetOrCreateToken(ctx, addr, domain.ChainBase, nil, nil)
		require.NoError(t, err)
		_, err = tx.CreatePosition(ctx, token.ID, nil)
		require.NoError(t, err)
		return boom
	})
	assert.ErrorIs(t, err, boom)

	token, err := s.GetToken(ctx, addr, domain.ChainBase)
	require.NoError(t, err)
	assert.Nil(t, token, "token creation rolled back")

	stats, _ := s.AggregateStats(ctx)
	assert.Zero(t, stats.TotalPositions)

	err = s.WithinTx(ctx, func(tx domain.Store) error {
		_, err := tx.GetOrCreateToken(ctx, addr, domain.ChainBase, nil, nil)
		return err
	})
	require.NoError(t, err)

	token, err = s.GetToken(ctx, addr, domain.ChainBase)
	require.NoError(t, err)
	assert.NotNil(t, token)
}
