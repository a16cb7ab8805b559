package accounting

import (
	"fmt"
	"strings"

	"github.com/kirillm/trade-journal/internal/domain"
)

// ExitOutcome результат поиска позиции для продажи по символу
type ExitOutcome string

const (
	ExitNone      ExitOutcome = "none"
	ExitSingle    ExitOutcome = "single"
	ExitAmbiguous ExitOutcome = "ambiguous"
)

// ExitResolution выбранная позиция или список кандидатов
type ExitResolution struct {
	Outcome    ExitOutcome
	Position   *domain.Position
	Candidates []*domain.Position
}

// ResolveExit выбирает открытую позицию по символу.
// Ноль совпадений: none; одно: single; больше одного: ambiguous, учет откладывается.
func ResolveExit(positions []*domain.Position, symbol string) ExitResolution {
	var candidates []*domain.Position
	for _, p := range positions {
		if p == nil || !p.IsOpen() {
			continue
		}
		if !strings.EqualFold(p.DisplaySymbol(), symbol) {
			continue
		}
		candidates = append(candidates, p)
	}

	switch len(candidates) {
	case 0:
		return ExitResolution{Outcome: ExitNone}
	case 1:
		return ExitResolution{Outcome: ExitSingle, Position: candidates[0], Candidates: candidates}
	default:
		return ExitResolution{Outcome: ExitAmbiguous, Candidates: candidates}
	}
}

// Err возвращает ошибку для none/ambiguous
func (r ExitResolution) Err(symbol string) error {
	switch r.Outcome {
	case ExitNone:
		return fmt.Errorf("%w: %s", domain.ErrNoPosition, symbol)
	case ExitAmbiguous:
		return fmt.Errorf("%w: %d open positions for %s", domain.ErrAmbiguousExit, len(r.Candidates), symbol)
	}
	return nil
}
