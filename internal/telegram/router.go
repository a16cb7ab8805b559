package telegram

import (
	"context"
	"fmt"
)

// CommandHandler представляет обработчик команды
type CommandHandler func(ctx context.Context, args *CommandArgs) (string, error)

// Router маршрутизирует команды к обработчикам
type Router struct {
	handlers    map[string]CommandHandler
	loadingKeys map[string]string
	authManager *AuthManager
	formatter   *Formatter
}

// NewRouter создает новый роутер
func NewRouter(authManager *AuthManager, formatter *Formatter) *Router {
	return &Router{
		handlers:    make(map[string]CommandHandler),
		loadingKeys: make(map[string]string),
		authManager: authManager,
		formatter:   formatter,
	}
}

// RegisterHandler регистрирует обработчик команды
func (r *Router) RegisterHandler(command string, handler CommandHandler) {
	r.handlers[command] = handler
}

// RegisterSlowHandler регистрирует обработчик, перед которым показывается сообщение загрузки
func (r *Router) RegisterSlowHandler(command, loadingKey string, handler CommandHandler) {
	r.handlers[command] = handler
	r.loadingKeys[command] = loadingKey
}

// LoadingText текст сообщения загрузки для команды или пустая строка
func (r *Router) LoadingText(text string) string {
	args, err := ParseCommand(text)
	if err != nil {
		return ""
	}
	if key, ok := r.loadingKeys[args.Command]; ok {
		return r.formatter.T(key)
	}
	return ""
}

// HandleCommand обрабатывает команду
func (r *Router) HandleCommand(ctx context.Context, userID int64, text string) (string, error) {
	// Проверяем rate limit
	if err := r.authManager.CheckRateLimit(userID); err != nil {
		return r.formatter.FormatError(err), nil
	}

	// Проверяем доступ пользователя
	if !r.authManager.IsAllowed(userID) {
		return r.formatter.T("access_denied"), nil
	}

	// Парсим команду
	args, err := ParseCommand(text)
	if err != nil {
		return r.formatter.FormatError(err), nil
	}

	// Получаем обработчик
	handler, exists := r.handlers[args.Command]
	if !exists {
		return r.formatter.FormatError(fmt.Errorf("unknown command: %s", args.Command)), nil
	}

	response, err := handler(ctx, args)
	if err != nil {
		return r.formatter.FormatError(err), err
	}
	return response, nil
}
