// Package telegram чат-интерфейс журнала: long polling, команды, ответы на сообщения о сделках.
package telegram

import (
	"context"
	"fmt"
	"strings"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"github.com/kirillm/trade-journal/internal/domain"
	"github.com/kirillm/trade-journal/pkg/utils"
)

const handleTimeout = 90 * time.Second

// botAPI часть tgbotapi.BotAPI, которой пользуется бот
type botAPI interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// BotConfig параметры бота
type BotConfig struct {
	Token              string
	AllowedUserIDs     []int64
	Lang               Lang
	RateLimitPerSecond float64
	RateLimitBurst     int
	NotifyOnStart      bool
}

// Bot Telegram-бот журнала сделок
type Bot struct {
	api         botAPI
	logger      *utils.Logger
	router      *Router
	authManager *AuthManager
	formatter   *Formatter
	journal     Journal
	cfg         BotConfig
}

// NewBot создает бота и авторизуется в Telegram
func NewBot(cfg BotConfig, journal Journal, logger *utils.Logger) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.Token)
	if err != nil {
		return nil, fmt.Errorf("failed to create telegram bot: %w", err)
	}

	if logger == nil {
		logger = utils.NewNopLogger()
	}
	logger.Info("Telegram bot authorized: @%s", api.Self.UserName)

	return newBot(api, cfg, journal, logger), nil
}

func newBot(api botAPI, cfg BotConfig, journal Journal, logger *utils.Logger) *Bot {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	authManager := NewAuthManager(cfg.AllowedUserIDs, cfg.RateLimitPerSecond, cfg.RateLimitBurst)
	formatter := NewFormatter(cfg.Lang)

	router := NewRouter(authManager, formatter)
	registerHandlers(router, NewHandlers(journal, formatter))

	return &Bot{
		api:         api,
		logger:      logger.Named("telegram"),
		router:      router,
		authManager: authManager,
		formatter:   formatter,
		journal:     journal,
		cfg:         cfg,
	}
}

// Run обрабатывает обновления до отмены ctx. Сообщения обрабатываются по одному.
func (b *Bot) Run(ctx context.Context) error {
	b.registerCommands()

	if b.authManager.IsRestricted() {
		b.logger.Info("Bot restricted to user IDs: %v", b.cfg.AllowedUserIDs)
	} else {
		b.logger.Warn("ALLOWED_USER_ID is not set: bot is open to all users")
	}

	u := tgbotapi.NewUpdate(0)
	u.Timeout = 60
	updates := b.api.GetUpdatesChan(u)

	if b.cfg.NotifyOnStart {
		for _, id := range b.cfg.AllowedUserIDs {
			b.sendToChat(id, b.formatter.T("started"))
		}
	}

	go b.cleanupRateLimiters(ctx)

	for {
		select {
		case <-ctx.Done():
			b.Stop()
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			b.processUpdate(ctx, update)
		}
	}
}

// Stop останавливает получение обновлений
func (b *Bot) Stop() {
	b.logger.Info("Stopping Telegram bot...")
	b.api.StopReceivingUpdates()
}

// registerCommands публикует меню команд в Telegram
func (b *Bot) registerCommands() {
	cfg := tgbotapi.NewSetMyCommands(
		tgbotapi.BotCommand{Command: "status", Description: "Check if bot is running"},
		tgbotapi.BotCommand{Command: "positions", Description: "Show open positions"},
		tgbotapi.BotCommand{Command: "log", Description: "Show trade history"},
		tgbotapi.BotCommand{Command: "stats", Description: "Show journal stats"},
		tgbotapi.BotCommand{Command: "help", Description: "Show examples"},
		tgbotapi.BotCommand{Command: "start", Description: "Welcome message"},
	)
	if _, err := b.api.Request(cfg); err != nil {
		b.logger.Warn("Failed to register bot commands: %v", err)
		return
	}
	b.logger.Info("Bot commands registered with Telegram")
}

// processUpdate обрабатывает одно обновление
func (b *Bot) processUpdate(ctx context.Context, update tgbotapi.Update) {
	message := update.Message
	if message == nil || message.From == nil || message.Chat == nil {
		return
	}

	chatID := message.Chat.ID
	userID := message.From.ID

	if !b.authManager.IsAllowed(userID) {
		b.logger.Warn("Unauthorized access attempt from user ID: %d", userID)
		b.sendToChat(chatID, b.formatter.T("access_denied"))
		return
	}

	ctx, cancel := context.WithTimeout(ctx, handleTimeout)
	defer cancel()

	if message.IsCommand() {
		b.logger.Info("Command from user %d: %s", userID, message.Text)
		b.respond(chatID, b.router.LoadingText(message.Text), func() string {
			response, err := b.router.HandleCommand(ctx, userID, message.Text)
			if err != nil {
				b.logger.Error("Command error: %v", err)
			}
			return response
		})
		return
	}

	if strings.TrimSpace(message.Text) == "" {
		return
	}

	if err := b.authManager.CheckRateLimit(userID); err != nil {
		b.sendToChat(chatID, b.formatter.FormatError(err))
		return
	}

	b.logger.Info("Trade message from user %d (chat %d)", userID, chatID)
	b.respond(chatID, b.formatter.T("processing"), func() string {
		return b.journal.Handle(ctx, message.Text)
	})
}

// respond показывает сообщение загрузки и заменяет его результатом
func (b *Bot) respond(chatID int64, loadingText string, produce func() string) {
	if loadingText == "" {
		b.sendToChat(chatID, produce())
		return
	}

	loading, err := b.api.Send(tgbotapi.NewMessage(chatID, loadingText))
	if err != nil {
		b.logger.Error("Failed to send loading message to chat %d: %v", chatID, err)
		b.sendToChat(chatID, produce())
		return
	}

	b.editMessage(chatID, loading.MessageID, produce())
}

// editMessage заменяет текст сообщения; хвост длинного ответа уходит отдельными сообщениями
func (b *Bot) editMessage(chatID int64, messageID int, text string) {
	if text == "" {
		return
	}

	parts := splitMessage(text, domain.MaxMessageLength)
	edit := tgbotapi.NewEditMessageText(chatID, messageID, parts[0])
	if _, err := b.api.Send(edit); err != nil {
		b.logger.Error("Failed to edit telegram message in chat %d: %v", chatID, err)
		b.sendToChat(chatID, text)
		return
	}
	for _, part := range parts[1:] {
		b.send(chatID, part)
	}
}

// sendToChat отправляет сообщение в конкретный чат
func (b *Bot) sendToChat(chatID int64, text string) {
	if text == "" {
		return
	}
	for _, part := range splitMessage(text, domain.MaxMessageLength) {
		b.send(chatID, part)
	}
}

func (b *Bot) send(chatID int64, text string) {
	// без ParseMode: адреса и синтетические символы вида HYPE_hyperliquid ломают Markdown
	if _, err := b.api.Send(tgbotapi.NewMessage(chatID, text)); err != nil {
		b.logger.Error("Failed to send telegram message to chat %d: %v", chatID, err)
	}
}

// cleanupRateLimiters периодически очищает старые rate limiters
func (b *Bot) cleanupRateLimiters(ctx context.Context) {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if n := b.authManager.CleanupRateLimiters(); n > 0 {
				b.logger.Debug("Cleaned up %d rate limiters", n)
			}
		}
	}
}

// splitMessage разбивает текст по строкам на части не длиннее maxLength байт
func splitMessage(text string, maxLength int) []string {
	if len(text) <= maxLength {
		return []string{text}
	}

	var messages []string
	currentMessage := ""

	for _, line := range strings.Split(text, "\n") {
		for len(line) > maxLength {
			if currentMessage != "" {
				messages = append(messages, currentMessage)
				currentMessage = ""
			}
			cut := runeBoundary(line, maxLength)
			if cut == 0 {
				cut = maxLength
			}
			messages = append(messages, line[:cut])
			line = line[cut:]
		}

		if currentMessage != "" && len(currentMessage)+len(line)+1 > maxLength {
			messages = append(messages, currentMessage)
			currentMessage = line
			continue
		}
		if currentMessage != "" {
			currentMessage += "\n"
		}
		currentMessage += line
	}

	if currentMessage != "" {
		messages = append(messages, currentMessage)
	}
	return messages
}

// runeBoundary наибольшая позиция <= n, не разрезающая UTF-8 символ
func runeBoundary(s string, n int) int {
	for n > 0 && n < len(s) && !isRuneStart(s[n]) {
		n--
	}
	return n
}

func isRuneStart(b byte) bool {
	return b&0xC0 != 0x80
}
