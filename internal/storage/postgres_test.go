package storage

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/kirillm/trade-journal/internal/domain"
)

const testAddress = "0x6982508145454Ce325dDbE47a25d4ec3d2311933"

// setupTestStorage поднимает PostgreSQL в контейнере и применяет миграции
func setupTestStorage(t *testing.T) *PostgresStorage {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping postgres integration test in short mode")
	}
	testcontainers.SkipIfProviderIsNotHealthy(t)

	ctx := context.Background()

	container, err := postgres.Run(ctx, "postgres:15-alpine",
		postgres.WithDatabase("testdb"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	require.NoError(t, err, "failed to start postgres container")

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	require.NoError(t, err, "failed to get connection string")

	st, err := OpenPostgres(ctx, dsn, 5, 2, time.Minute)
	require.NoError(t, err, "failed to open storage")

	t.Cleanup(func() {
		st.Close()
		if err := container.Terminate(ctx); err != nil {
			t.Logf("failed to terminate container: %v", err)
		}
	})
	return st
}

func TestPostgresStorage(t *testing.T) {
	st := setupTestStorage(t)
	ctx := context.Background()

	t.Run("migrations are idempotent", func(t *testing.T) {
		require.NoError(t, st.migrate(ctx))
	})

	t.Run("token upsert", func(t *testing.T) {
		first, err := st.GetOrCreateToken(ctx, testAddress, domain.ChainEthereum, nil, nil)
		require.NoError(t, err)
		assert.Nil(t, first.Symbol)

		second, err := st.GetOrCreateToken(ctx, "0x6982508145454ce325ddbe47a25d4ec3d2311933", "Ethereum",
			domain.StringPtr("PEPE"), domain.StringPtr("Pepe"))
		require.NoError(t, err)
		assert.Equal(t, first.ID, second.ID)
		assert.Equal(t, "PEPE", second.DisplaySymbol())

		renamed, err := st.GetOrCreateToken(ctx, testAddress, domain.ChainEthereum, domain.StringPtr("PEPE2"), nil)
		require.NoError(t, err)
		assert.Equal(t, "PEPE2", renamed.DisplaySymbol())
		require.NotNil(t, renamed.Name)
		assert.Equal(t, "Pepe", *renamed.Name)

		restored, err := st.GetOrCreateToken(ctx, testAddress, domain.ChainEthereum, domain.StringPtr("PEPE"), nil)
		require.NoError(t, err)
		assert.Equal(t, "PEPE", restored.DisplaySymbol())

		byID, err := st.GetTokenByID(ctx, first.ID)
		require.NoError(t, err)
		assert.Equal(t, testAddress, byID.ContractAddress)

		missing, err := st.GetToken(ctx, testAddress, domain.ChainBase)
		require.NoError(t, err)
		assert.Nil(t, missing)

		found, err := st.FindTokensBySymbol(ctx, "pepe")
		require.NoError(t, err)
		assert.Len(t, found, 1)
	})

	t.Run("position and trades", func(t *testing.T) {
		token, err := st.GetToken(ctx, testAddress, domain.ChainEthereum)
		require.NoError(t, err)
		require.NotNil(t, token)

		wallet, err := st.GetOrCreateWallet(ctx, "0x1111111111111111111111111111111111111111", domain.ChainEthereum, nil)
		require.NoError(t, err)

		pos, err := st.CreatePosition(ctx, token.ID, &wallet.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusOpen, pos.Status)
		assert.Equal(t, "PEPE", pos.DisplaySymbol())

		open, err := st.GetOpenPosition(ctx, token.ID, nil)
		require.NoError(t, err)
		require.NotNil(t, open)
		assert.Equal(t, pos.ID, open.ID)

		other := int64(999)
		none, err := st.GetOpenPosition(ctx, token.ID, &other)
		require.NoError(t, err)
		assert.Nil(t, none)

		trade := &domain.Trade{
			TokenID:       token.ID,
			PositionID:    &pos.ID,
			TradeType:     domain.TradeBuy,
			AmountSpent:   domain.Float64Ptr(1000),
			SpendCurrency: domain.StringPtr("USDC"),
			AmountTokens:  domain.Float64Ptr(1_000_000),
			PriceUSD:      domain.Float64Ptr(0.001),
			TotalValueUSD: domain.Float64Ptr(1000),
			SourceMessage: "bought pepe",
			MessageID:     "batch-1",
		}
		require.NoError(t, st.CreateTrade(ctx, trade))
		assert.NotZero(t, trade.ID)

		closed := domain.StatusClosed
		require.NoError(t, st.UpdatePosition(ctx, pos.ID, domain.PositionUpdate{
			RealizedPnLUSD:  domain.Float64Ptr(2000),
			RemainingTokens: domain.Float64Ptr(0),
			Status:          &closed,
		}))

		got, err := st.GetPosition(ctx, pos.ID)
		require.NoError(t, err)
		assert.Equal(t, domain.StatusClosed, got.Status)
		assert.NotNil(t, got.ClosedAt)
		assert.Equal(t, 2000.0, got.RealizedPnLUSD)

		trades, err := st.ListTrades(ctx, domain.TradeFilter{TokenID: &token.ID})
		require.NoError(t, err)
		require.Len(t, trades, 1)
		assert.Equal(t, "PEPE", *trades[0].Symbol)
		assert.Equal(t, domain.StatusClosed, *trades[0].PositionStatus)
		assert.Equal(t, 0.001, *trades[0].PriceUSD)

		stats, err := st.AggregateStats(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, stats.TotalTrades)
		assert.Equal(t, 0, stats.OpenPositions)
		assert.Equal(t, 1000.0, stats.TotalInvestedUSD)
		assert.Equal(t, 2000.0, stats.RealizedPnLUSD)

		err = st.UpdatePosition(ctx, 424242, domain.PositionUpdate{Status: &closed})
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("transaction rollback", func(t *testing.T) {
		boom := errors.New("boom")
		err := st.WithinTx(ctx, func(tx domain.Store) error {
			token, err := tx.GetOrCreateToken(ctx, "HYPE_hyperliquid", domain.ExchangeHyperliquid, domain.StringPtr("HYPE"), nil)
			require.NoError(t, err)
			_, err = tx.CreatePosition(ctx, token.ID, nil)
			require.NoError(t, err)
			return boom
		})
		assert.ErrorIs(t, err, boom)

		token, err := st.GetToken(ctx, "HYPE_hyperliquid", domain.ExchangeHyperliquid)
		require.NoError(t, err)
		assert.Nil(t, token)
	})
}
