// Package memory хранилище журнала в памяти: для тестов и запуска без базы данных.
package memory

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/kirillm/trade-journal/internal/domain"
)

type state struct {
	tokens    map[int64]domain.Token
	wallets   map[int64]domain.Wallet
	positions map[int64]domain.Position
	trades    map[int64]domain.Trade
	nextID    int64
}

func (s *state) clone() *state {
	c := &state{
		tokens:    make(map[int64]domain.Token, len(s.tokens)),
		wallets:   make(map[int64]domain.Wallet, len(s.wallets)),
		positions: make(map[int64]domain.Position, len(s.positions)),
		trades:    make(map[int64]domain.Trade, len(s.trades)),
		nextID:    s.nextID,
	}
	for k, v := range s.tokens {
		c.tokens[k] = v
	}
	for k, v := range s.wallets {
		c.wallets[k] = v
	}
	for k, v := range s.positions {
		c.positions[k] = v
	}
	for k, v := range s.trades {
		c.trades[k] = v
	}
	return c
}

// Store потокобезопасное хранилище в памяти
type Store struct {
	mu   sync.RWMutex
	txMu sync.Mutex
	st   *state
	now  func() time.Time
}

var _ domain.Store = (*Store)(nil)

// NewStore создает пустое хранилище
func NewStore() *Store {
	return &Store{
		st: &state{
			tokens:    make(map[int64]domain.Token),
			wallets:   make(map[int64]domain.Wallet),
			positions: make(map[int64]domain.Position),
			trades:    make(map[int64]domain.Trade),
		},
		now: func() time.Time { return time.Now().UTC() },
	}
}

// Ping всегда успешен: хранилище в процессе
func (s *Store) Ping(_ context.Context) error { return nil }

// Close ничего не освобождает
func (s *Store) Close() error { return nil }

func (s *Store) id() int64 {
	s.st.nextID++
	return s.st.nextID
}

// WithinTx: при ошибке fn состояние откатывается к снимку
func (s *Store) WithinTx(_ context.Context, fn func(tx domain.Store) error) (err error) {
	s.txMu.Lock()
	defer s.txMu.Unlock()

	s.mu.RLock()
	snapshot := s.st.clone()
	s.mu.RUnlock()

	defer func() {
		if p := recover(); p != nil {
			s.restore(snapshot)
			panic(p)
		}
		if err != nil {
			s.restore(snapshot)
		}
	}()

	return fn(s)
}

func (s *Store) restore(snapshot *state) {
	s.mu.Lock()
	s.st = snapshot
	s.mu.Unlock()
}

// ==================== TOKENS ====================

func (s *Store) GetOrCreateToken(_ context.Context, address, chain string, symbol, name *string) (*domain.Token, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain = strings.ToLower(chain)
	for id, t := range s.st.tokens {
		if strings.EqualFold(t.ContractAddress, address) && t.Chain == chain {
			if symbol != nil {
				t.Symbol = symbol
			}
			if name != nil {
				t.Name = name
			}
			s.st.tokens[id] = t
			return &t, nil
		}
	}

	t := domain.Token{
		ID:              s.id(),
		ContractAddress: address,
		Chain:           chain,
		Symbol:          symbol,
		Name:            name,
		CreatedAt:       s.now(),
	}
	s.st.tokens[t.ID] = t
	return &t, nil
}

func (s *Store) GetToken(_ context.Context, address, chain string) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	for _, t := range s.st.tokens {
		if strings.EqualFold(t.ContractAddress, address) && t.Chain == strings.ToLower(chain) {
			return &t, nil
		}
	}
	return nil, nil
}

func (s *Store) GetTokenByID(_ context.Context, id int64) (*domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if t, ok := s.st.tokens[id]; ok {
		return &t, nil
	}
	return nil, nil
}

func (s *Store) FindTokensBySymbol(_ context.Context, symbol string) ([]domain.Token, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var out []domain.Token
	for _, t := range s.st.tokens {
		if t.Symbol != nil && strings.EqualFold(*t.Symbol, symbol) {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

// ==================== WALLETS ====================

func (s *Store) GetOrCreateWallet(_ context.Context, address, chain string, nickname *string) (*domain.Wallet, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	chain = strings.ToLower(chain)
	for id, w := range s.st.wallets {
		if strings.EqualFold(w.Address, address) && w.Chain == chain {
			if nickname != nil {
				w.Nickname = nickname
				s.st.wallets[id] = w
			}
			return &w, nil
		}
	}

	w := domain.Wallet{ID: s.id(), Address: address, Chain: chain, Nickname: nickname, CreatedAt: s.now()}
	s.st.wallets[w.ID] = w
	return &w, nil
}

// ==================== POSITIONS ====================

func (s *Store) CreatePosition(_ context.Context, tokenID int64, walletID *int64) (*domain.Position, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.tokens[tokenID]; !ok {
		return nil, fmt.Errorf("%w: token %d", domain.ErrNotFound, tokenID)
	}

	p := domain.Position{ID: s.id(), TokenID: tokenID, WalletID: walletID, Status: domain.StatusOpen, OpenedAt: s.now()}
	s.st.positions[p.ID] = p
	return s.joinPosition(p), nil
}

func (s *Store) GetPosition(_ context.Context, id int64) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if p, ok := s.st.positions[id]; ok {
		return s.joinPosition(p), nil
	}
	return nil, nil
}

func (s *Store) GetOpenPosition(_ context.Context, tokenID int64, walletID *int64) (*domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	open := s.openPositions(func(p domain.Position) bool {
		if p.TokenID != tokenID {
			return false
		}
		return walletID == nil || (p.WalletID != nil && *p.WalletID == *walletID)
	})
	if len(open) == 0 {
		return nil, nil
	}
	return &open[0], nil
}

func (s *Store) GetOpenPositionsBySymbol(_ context.Context, symbol string) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.openPositions(func(p domain.Position) bool {
		t := s.st.tokens[p.TokenID]
		return t.Symbol != nil && strings.EqualFold(*t.Symbol, symbol)
	}), nil
}

func (s *Store) ListOpenPositions(_ context.Context) ([]domain.Position, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.openPositions(func(domain.Position) bool { return true }), nil
}

func (s *Store) UpdatePosition(_ context.Context, id int64, upd domain.PositionUpdate) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.st.positions[id]
	if !ok {
		return fmt.Errorf("%w: position %d", domain.ErrNotFound, id)
	}

	if upd.TotalBought != nil {
		p.TotalBought = *upd.TotalBought
	}
	if upd.TotalSold != nil {
		p.TotalSold = *upd.TotalSold
	}
	if upd.RemainingTokens != nil {
		p.RemainingTokens = *upd.RemainingTokens
	}
	if upd.TotalCostUSD != nil {
		p.TotalCostUSD = *upd.TotalCostUSD
	}
	if upd.TotalProceedsUSD != nil {
		p.TotalProceedsUSD = *upd.TotalProceedsUSD
	}
	if upd.RealizedPnLUSD != nil {
		p.RealizedPnLUSD = *upd.RealizedPnLUSD
	}
	if upd.Status != nil {
		p.Status = *upd.Status
		if p.Status == domain.StatusClosed {
			if p.ClosedAt == nil {
				now := s.now()
				p.ClosedAt = &now
			}
		} else {
			p.ClosedAt = nil
		}
	}

	s.st.positions[id] = p
	return nil
}

// openPositions открытые позиции по фильтру, новые первыми. Вызывать под блокировкой.
func (s *Store) openPositions(match func(domain.Position) bool) []domain.Position {
	var out []domain.Position
	for _, p := range s.st.positions {
		if p.IsOpen() && match(p) {
			out = append(out, *s.joinPosition(p))
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if !out[i].OpenedAt.Equal(out[j].OpenedAt) {
			return out[i].OpenedAt.After(out[j].OpenedAt)
		}
		return out[i].ID > out[j].ID
	})
	return out
}

func (s *Store) joinPosition(p domain.Position) *domain.Position {
	t := s.st.tokens[p.TokenID]
	p.Symbol = t.Symbol
	p.ContractAddress = t.ContractAddress
	p.Chain = t.Chain
	return &p
}

// ==================== TRADES ====================

func (s *Store) CreateTrade(_ context.Context, trade *domain.Trade) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.st.tokens[trade.TokenID]; !ok {
		return fmt.Errorf("%w: token %d", domain.ErrNotFound, trade.TokenID)
	}
	if trade.PositionID != nil {
		if _, ok := s.st.positions[*trade.PositionID]; !ok {
			return fmt.Errorf("%w: position %d", domain.ErrNotFound, *trade.PositionID)
		}
	}

	trade.ID = s.id()
	trade.CreatedAt = s.now()
	if trade.TradeTimestamp.IsZero() {
		trade.TradeTimestamp = trade.CreatedAt
	}

	stored := *trade
	stored.Symbol, stored.Chain, stored.PositionStatus = nil, "", nil
	s.st.trades[trade.ID] = stored
	return nil
}

func (s *Store) ListTrades(_ context.Context, filter domain.TradeFilter) ([]domain.Trade, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	limit := filter.Limit
	if limit <= 0 {
		limit = domain.DefaultLogLimit
	}

	var out []domain.Trade
	for _, tr := range s.st.trades {
		if filter.TokenID != nil && tr.TokenID != *filter.TokenID {
			continue
		}
		t := s.st.tokens[tr.TokenID]
		tr.Symbol = t.Symbol
		tr.Chain = t.Chain
		if tr.PositionID != nil {
			if p, ok := s.st.positions[*tr.PositionID]; ok {
				status := p.Status
				tr.PositionStatus = &status
			}
		}
		out = append(out, tr)
	}

	sort.Slice(out, func(i, j int) bool {
		if !out[i].TradeTimestamp.Equal(out[j].TradeTimestamp) {
			return out[i].TradeTimestamp.After(out[j].TradeTimestamp)
		}
		return out[i].ID > out[j].ID
	})
	if len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

// ==================== STATS ====================

func (s *Store) AggregateStats(_ context.Context) (*domain.Stats, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	stats := &domain.Stats{
		TotalTrades:    len(s.st.trades),
		TotalPositions: len(s.st.positions),
	}
	for _, p := range s.st.positions {
		if p.IsOpen() {
			stats.OpenPositions++
		}
		stats.RealizedPnLUSD += p.RealizedPnLUSD
	}
	for _, tr := range s.st.trades {
		if tr.TradeType == domain.TradeBuy && tr.TotalValueUSD != nil {
			stats.TotalInvestedUSD += *tr.TotalValueUSD
		}
	}
	return stats, nil
}
