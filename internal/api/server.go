// Package api read-only HTTP API журнала: позиции, сделки, статистика.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/kirillm/trade-journal/internal/domain"
	"github.com/kirillm/trade-journal/pkg/utils"
)

const maxTradesLimit = 500

// Journal данные журнала для API
type Journal interface {
	OpenPositions(ctx context.Context) ([]domain.Position, error)
	RecentTrades(ctx context.Context, limit int) ([]domain.Trade, error)
	Stats(ctx context.Context) (*domain.Stats, error)
}

// Pinger проверка доступности хранилища
type Pinger interface {
	Ping(ctx context.Context) error
}

type Server struct {
	logger    *utils.Logger
	journal   Journal
	pinger    Pinger
	port      int
	startedAt time.Time
}

type Response struct {
	Success bool        `json:"success"`
	Data    interface{} `json:"data,omitempty"`
	Error   string      `json:"error,omitempty"`
}

type positionView struct {
	ID               int64      `json:"id"`
	Symbol           string     `json:"symbol"`
	ContractAddress  string     `json:"contract_address"`
	Chain            string     `json:"chain"`
	Status           string     `json:"status"`
	TotalBought      float64    `json:"total_bought"`
	TotalSold        float64    `json:"total_sold"`
	RemainingTokens  float64    `json:"remaining_tokens"`
	TotalCostUSD     float64    `json:"total_cost_usd"`
	TotalProceedsUSD float64    `json:"total_proceeds_usd"`
	RealizedPnLUSD   float64    `json:"realized_pnl_usd"`
	OpenedAt         time.Time  `json:"opened_at"`
	ClosedAt         *time.Time `json:"closed_at,omitempty"`
}

type tradeView struct {
	ID               int64     `json:"id"`
	TradeType        string    `json:"trade_type"`
	Symbol           string    `json:"symbol"`
	Chain            string    `json:"chain"`
	PositionID       *int64    `json:"position_id,omitempty"`
	PositionStatus   *string   `json:"position_status,omitempty"`
	AmountSpent      *float64  `json:"amount_spent,omitempty"`
	SpendCurrency    *string   `json:"spend_currency,omitempty"`
	AmountTokens     *float64  `json:"amount_tokens,omitempty"`
	PriceUSD         *float64  `json:"price_usd,omitempty"`
	TotalValueUSD    *float64  `json:"total_value_usd,omitempty"`
	MarketCapAtTrade *float64  `json:"market_cap_at_trade,omitempty"`
	NotesURL         *string   `json:"notes_url,omitempty"`
	DexScreenerURL   *string   `json:"dexscreener_url,omitempty"`
	MessageID        string    `json:"message_id"`
	TradeTimestamp   time.Time `json:"trade_timestamp"`
}

func NewServer(logger *utils.Logger, journal Journal, pinger Pinger, port int) *Server {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Server{
		logger:    logger.Named("api"),
		journal:   journal,
		pinger:    pinger,
		port:      port,
		startedAt: time.Now(),
	}
}

// Handler маршруты API
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", s.handleHealth)
	mux.HandleFunc("/positions", s.handlePositions)
	mux.HandleFunc("/trades", s.handleTrades)
	mux.HandleFunc("/stats", s.handleStats)

	return mux
}

// Run обслуживает запросы до отмены ctx
func (s *Server) Run(ctx context.Context) error {
	addr := fmt.Sprintf(":%d", s.port)
	s.logger.Info("Starting HTTP server on %s", addr)

	server := &http.Server{
		Addr:         addr,
		Handler:      s.Handler(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		errCh <- server.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return fmt.Errorf("http server failed: %w", err)
	case <-ctx.Done():
		s.logger.Info("Stopping HTTP server...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return server.Shutdown(shutdownCtx)
	}
}

// handleHealth - health check endpoint
func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	health := map[string]interface{}{
		"status":    "healthy",
		"timestamp": time.Now().Unix(),
		"uptime":    time.Since(s.startedAt).Round(time.Second).String(),
	}

	if s.pinger != nil {
		if err := s.pinger.Ping(r.Context()); err != nil {
			s.logger.Warn("health check: storage ping failed: %v", err)
			s.sendError(w, fmt.Sprintf("Storage unavailable: %v", err), http.StatusServiceUnavailable)
			return
		}
	}

	s.sendSuccess(w, health)
}

// handlePositions - open positions
func (s *Server) handlePositions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	positions, err := s.journal.OpenPositions(r.Context())
	if err != nil {
		s.logger.Error("failed to list positions: %v", err)
		s.sendError(w, "Failed to get positions", http.StatusInternalServerError)
		return
	}

	views := make([]positionView, 0, len(positions))
	for _, p := range positions {
		views = append(views, positionView{
			ID:               p.ID,
			Symbol:           p.DisplaySymbol(),
			ContractAddress:  p.ContractAddress,
			Chain:            p.Chain,
			Status:           p.Status,
			TotalBought:      p.TotalBought,
			TotalSold:        p.TotalSold,
			RemainingTokens:  p.RemainingTokens,
			TotalCostUSD:     p.TotalCostUSD,
			TotalProceedsUSD: p.TotalProceedsUSD,
			RealizedPnLUSD:   p.RealizedPnLUSD,
			OpenedAt:         p.OpenedAt,
			ClosedAt:         p.ClosedAt,
		})
	}

	s.sendSuccess(w, map[string]interface{}{
		"positions": views,
		"count":     len(views),
	})
}

// handleTrades - recent trades, ?limit=N
func (s *Server) handleTrades(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	limit := getQueryParamInt(r, "limit", domain.DefaultLogLimit)
	if limit < 1 || limit > maxTradesLimit {
		s.sendError(w, fmt.Sprintf("limit must be between 1 and %d", maxTradesLimit), http.StatusBadRequest)
		return
	}

	trades, err := s.journal.RecentTrades(r.Context(), limit)
	if err != nil {
		s.logger.Error("failed to list trades: %v", err)
		s.sendError(w, "Failed to get trades", http.StatusInternalServerError)
		return
	}

	views := make([]tradeView, 0, len(trades))
	for _, t := range trades {
		symbol := domain.UnknownSymbol
		if t.Symbol != nil && *t.Symbol != "" {
			symbol = *t.Symbol
		}
		views = append(views, tradeView{
			ID:               t.ID,
			TradeType:        t.TradeType,
			Symbol:           symbol,
			Chain:            t.Chain,
			PositionID:       t.PositionID,
			PositionStatus:   t.PositionStatus,
			AmountSpent:      t.AmountSpent,
			SpendCurrency:    t.SpendCurrency,
			AmountTokens:     t.AmountTokens,
			PriceUSD:         t.PriceUSD,
			TotalValueUSD:    t.TotalValueUSD,
			MarketCapAtTrade: t.MarketCapAtTrade,
			NotesURL:         t.NotesURL,
			DexScreenerURL:   t.DexScreenerURL,
			MessageID:        t.MessageID,
			TradeTimestamp:   t.TradeTimestamp,
		})
	}

	s.sendSuccess(w, map[string]interface{}{
		"trades": views,
		"count":  len(views),
		"limit":  limit,
	})
}

// handleStats - aggregated stats
func (s *Server) handleStats(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		s.sendError(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	stats, err := s.journal.Stats(r.Context())
	if err != nil {
		s.logger.Error("failed to aggregate stats: %v", err)
		s.sendError(w, "Failed to get stats", http.StatusInternalServerError)
		return
	}

	s.sendSuccess(w, stats)
}

// Helper methods
func (s *Server) sendSuccess(w http.ResponseWriter, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(Response{Success: true, Data: data}); err != nil {
		s.logger.Error("failed to encode response: %v", err)
	}
}

func (s *Server) sendError(w http.ResponseWriter, message string, statusCode int) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	if err := json.NewEncoder(w).Encode(Response{Success: false, Error: message}); err != nil {
		s.logger.Error("failed to encode response: %v", err)
	}
}

// Helper function to parse int query parameter.
// Некорректное значение возвращает -1, чтобы обработчик ответил 400.
func getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	if value := r.URL.Query().Get(key); value != "" {
		intValue, err := strconv.Atoi(value)
		if err != nil {
			return -1
		}
		return intValue
	}
	return defaultValue
}
