package telegram

import (
	"context"
)

// Journal операции журнала, доступные из чата
type Journal interface {
	Handle(ctx context.Context, text string) string
	ListOpenPositions(ctx context.Context) (string, error)
	ListRecentTrades(ctx context.Context, limit int) (string, error)
	GetStats(ctx context.Context) (string, error)
	Status(ctx context.Context) string
}

// Handlers содержит все обработчики команд
type Handlers struct {
	journal   Journal
	formatter *Formatter
}

// NewHandlers создает новый набор обработчиков
func NewHandlers(journal Journal, formatter *Formatter) *Handlers {
	return &Handlers{journal: journal, formatter: formatter}
}

// registerHandlers регистрирует все обработчики команд
func registerHandlers(router *Router, h *Handlers) {
	router.RegisterHandler(string(CmdStart), h.HandleStart)
	router.RegisterHandler(string(CmdHelp), h.HandleHelp)
	router.RegisterSlowHandler(string(CmdStatus), "checking_status", h.HandleStatus)
	router.RegisterSlowHandler(string(CmdPositions), "loading_positions", h.HandlePositions)
	router.RegisterSlowHandler(string(CmdLog), "loading_log", h.HandleLog)
	router.RegisterSlowHandler(string(CmdStats), "loading_stats", h.HandleStats)
}

// HandleStart обрабатывает /start
func (h *Handlers) HandleStart(_ context.Context, _ *CommandArgs) (string, error) {
	return h.formatter.FormatWelcome(), nil
}

// HandleHelp обрабатывает /help
func (h *Handlers) HandleHelp(_ context.Context, _ *CommandArgs) (string, error) {
	return h.formatter.FormatHelp(), nil
}

// HandleStatus обрабатывает /status
func (h *Handlers) HandleStatus(ctx context.Context, _ *CommandArgs) (string, error) {
	return h.journal.Status(ctx), nil
}

// HandlePositions обрабатывает /positions и /balance
func (h *Handlers) HandlePositions(ctx context.Context, _ *CommandArgs) (string, error) {
	return h.journal.ListOpenPositions(ctx)
}

// HandleLog обрабатывает /log [N]
func (h *Handlers) HandleLog(ctx context.Context, args *CommandArgs) (string, error) {
	return h.journal.ListRecentTrades(ctx, args.Count)
}

// HandleStats обрабатывает /stats
func (h *Handlers) HandleStats(ctx context.Context, _ *CommandArgs) (string, error) {
	return h.journal.GetStats(ctx)
}
