package oracle

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sashabaranov/go-openai"

	"github.com/kirillm/trade-journal/internal/chain"
	"github.com/kirillm/trade-journal/internal/domain"
	"github.com/kirillm/trade-journal/internal/parsing"
	"github.com/kirillm/trade-journal/pkg/utils"
)

const (
	defaultModel     = "gpt-4o-mini"
	defaultTimeout   = 20 * time.Second
	defaultMaxTokens = 500

	venuePerp = "perp"
)

// Config параметры OpenAI-совместимого API
type Config struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Client LLM-оракул для разбора сообщений о сделках
type Client struct {
	api        *openai.Client
	model      string
	timeout    time.Duration
	maxTokens  int
	classifier *chain.Classifier
	logger     *utils.Logger
}

var _ parsing.Extractor = (*Client)(nil)

// NewClient создает оракул. Без ключа API оракул не настроен.
// classifier определяет сеть адреса, если модель ее не назвала.
func NewClient(cfg Config, classifier *chain.Classifier, logger *utils.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.APIKey) == "" {
		return nil, fmt.Errorf("%w: oracle API key is empty", domain.ErrInvalidInput)
	}
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	if classifier == nil {
		classifier = chain.NewClassifier(domain.ChainBase)
	}

	apiCfg := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		apiCfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	}

	c := &Client{
		api:        openai.NewClientWithConfig(apiCfg),
		model:      cfg.Model,
		timeout:    cfg.Timeout,
		maxTokens:  cfg.MaxTokens,
		classifier: classifier,
		logger:     logger.Named("oracle"),
	}
	if c.model == "" {
		c.model = defaultModel
	}
	if c.timeout <= 0 {
		c.timeout = defaultTimeout
	}
	if c.maxTokens <= 0 {
		c.maxTokens = defaultMaxTokens
	}
	return c, nil
}

func (c *Client) Name() string {
	return "oracle(" + c.model + ")"
}

// Extract отправляет сообщение модели и разбирает ответ.
// Любая ошибка оборачивается в ErrOracleUnavailable.
func (c *Client) Extract(ctx context.Context, text string) ([]domain.ParsedTrade, error) {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:       c.model,
		MaxTokens:   c.maxTokens,
		Temperature: 0,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: extractionPrompt},
			{Role: openai.ChatMessageRoleUser, Content: "Message to parse:\n" + text},
		},
	})
	if err != nil {
		var apiErr *openai.APIError
		if errors.As(err, &apiErr) {
			return nil, fmt.Errorf("%w: status %d: %s", domain.ErrOracleUnavailable, apiErr.HTTPStatusCode, apiErr.Message)
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}
	if len(resp.Choices) == 0 {
		return nil, fmt.Errorf("%w: no choices in response", domain.ErrOracleUnavailable)
	}

	content := resp.Choices[0].Message.Content
	c.logger.Debug("raw response: %s", content)

	guesses, err := decodeGuesses(content)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
	}

	trades := make([]domain.ParsedTrade, 0, len(guesses))
	for _, g := range guesses {
		trade, err := g.toParsedTrade(text)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", domain.ErrOracleUnavailable, err)
		}
		if trade.ContractAddress != "" {
			fromLink := trade.DexScreenerURL != "" && strings.Contains(trade.DexScreenerURL, trade.ContractAddress)
			trade.Chain = c.classifier.Resolve(trade.ContractAddress, trade.Chain, fromLink).Chain
		}
		trades = append(trades, trade)
	}
	return trades, nil
}

// decodeGuesses принимает один объект или массив объектов
func decodeGuesses(content string) ([]tradeGuess, error) {
	raw := strings.TrimSpace(extractJSON(content))
	if raw == "" {
		return nil, errors.New("empty response")
	}

	if strings.HasPrefix(raw, "[") {
		var list []tradeGuess
		if err := json.Unmarshal([]byte(raw), &list); err != nil {
			return nil, fmt.Errorf("failed to parse response: %w", err)
		}
		return list, nil
	}

	var one tradeGuess
	if err := json.Unmarshal([]byte(raw), &one); err != nil {
		return nil, fmt.Errorf("failed to parse response: %w", err)
	}
	return []tradeGuess{one}, nil
}

// extractJSON извлекает JSON из markdown code block
func extractJSON(text string) string {
	start := strings.Index(text, "```")
	if start == -1 {
		return text
	}
	body := text[start+3:]
	body = strings.TrimPrefix(body, "json")
	end := strings.Index(body, "```")
	if end == -1 {
		return body
	}
	return body[:end]
}
