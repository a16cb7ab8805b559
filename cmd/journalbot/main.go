// Command journalbot Telegram-бот журнала сделок: разбор сообщений, цены DEX Screener, учет позиций.
package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"golang.org/x/sync/errgroup"

	"github.com/kirillm/trade-journal/internal/api"
	"github.com/kirillm/trade-journal/internal/chain"
	"github.com/kirillm/trade-journal/internal/config"
	"github.com/kirillm/trade-journal/internal/domain"
	"github.com/kirillm/trade-journal/internal/journal"
	"github.com/kirillm/trade-journal/internal/market"
	"github.com/kirillm/trade-journal/internal/oracle"
	"github.com/kirillm/trade-journal/internal/parsing"
	"github.com/kirillm/trade-journal/internal/storage"
	"github.com/kirillm/trade-journal/internal/storage/memory"
	"github.com/kirillm/trade-journal/internal/telegram"
	"github.com/kirillm/trade-journal/pkg/utils"
)

// journalStore хранилище с проверкой доступности и закрытием
type journalStore interface {
	domain.Store
	Ping(ctx context.Context) error
	Close() error
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger := utils.NewLogger(cfg.LogLevel)
	utils.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Error("journalbot stopped with error: %v", err)
		os.Exit(1)
	}
	logger.Info("journalbot stopped")
}

func run(ctx context.Context, cfg *config.Config, logger *utils.Logger) error {
	store, err := openStore(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer store.Close()

	classifier := chain.NewClassifier(cfg.Parser.DefaultEVMChain)
	vocab := parsing.NewVocabulary(cfg.Parser.DefaultPerpExchange, cfg.Parser.ExtraPerpSymbols...)
	rules := parsing.NewRuleExtractor(vocab, classifier)

	var extractor parsing.Extractor
	if cfg.AI.Enabled() {
		client, err := oracle.NewClient(oracle.Config{
			APIKey:    cfg.AI.APIKey,
			BaseURL:   cfg.AI.BaseURL,
			Model:     cfg.AI.Model,
			Timeout:   cfg.AI.Timeout,
			MaxTokens: cfg.AI.MaxTokens,
		}, classifier, logger)
		if err != nil {
			return fmt.Errorf("failed to create oracle client: %w", err)
		}
		extractor = client
		logger.Info("LLM parser enabled: %s", client.Name())
	} else {
		logger.Info("AI_API_KEY not set: using pattern parser only")
	}
	parser := parsing.NewParser(rules, extractor, logger)

	var resolver market.Resolver
	if cfg.Market.Enabled {
		resolver = market.NewDexScreenerClient(market.DexScreenerConfig{
			BaseURL:           cfg.Market.BaseURL,
			Timeout:           cfg.Market.Timeout,
			RequestsPerMinute: cfg.Market.RequestsPerMinute,
			ChainPreference:   cfg.Market.ChainPreference,
		}, logger)
	} else {
		logger.Warn("DEX Screener disabled: trades will be recorded without prices")
	}

	svc := journal.NewService(parser, resolver, store, logger, journal.Options{Environment: cfg.Environment})

	bot, err := telegram.NewBot(telegram.BotConfig{
		Token:              cfg.Telegram.BotToken,
		AllowedUserIDs:     cfg.Telegram.AllowedUserIDs,
		Lang:               telegram.Lang(cfg.Telegram.Lang),
		RateLimitPerSecond: cfg.Telegram.RateLimitPerSecond,
		RateLimitBurst:     cfg.Telegram.RateLimitBurst,
		NotifyOnStart:      cfg.Telegram.NotifyOnStart,
	}, svc, logger)
	if err != nil {
		return err
	}

	g, ctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		return bot.Run(ctx)
	})

	if cfg.HTTPPort > 0 {
		server := api.NewServer(logger, svc, store, cfg.HTTPPort)
		g.Go(func() error {
			return server.Run(ctx)
		})
	} else {
		logger.Info("HTTP_PORT=0: HTTP API disabled")
	}

	logger.Info("journalbot started (environment: %s, storage: %s)", cfg.Environment, cfg.Storage)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		return err
	}
	return nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *utils.Logger) (journalStore, error) {
	switch cfg.Storage {
	case config.StorageMemory:
		logger.Warn("STORAGE_BACKEND=memory: journal is kept in memory and lost on restart")
		return memory.NewStore(), nil
	default:
		logger.Info("Connecting to PostgreSQL at %s:%d/%s", cfg.Database.Host, cfg.Database.Port, cfg.Database.DBName)
		st, err := storage.NewPostgresStorage(ctx, storage.PostgresConfig{
			Host:            cfg.Database.Host,
			Port:            cfg.Database.Port,
			User:            cfg.Database.User,
			Password:        cfg.Database.Password,
			DBName:          cfg.Database.DBName,
			SSLMode:         cfg.Database.SSLMode,
			MaxOpenConns:    cfg.Database.MaxOpenConns,
			MaxIdleConns:    cfg.Database.MaxIdleConns,
			ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to open storage: %w", err)
		}
		return st, nil
	}
}
