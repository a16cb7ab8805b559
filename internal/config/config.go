package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/kirillm/trade-journal/internal/domain"
)

// Storage backends
const (
	StoragePostgres = "postgres"
	StorageMemory   = "memory"
)

// Config содержит все настройки приложения
type Config struct {
	Telegram    TelegramConfig
	Database    DatabaseConfig
	AI          AIConfig
	Market      MarketConfig
	Parser      ParserConfig
	Storage     string
	HTTPPort    int
	Environment string
	LogLevel    string
}

type TelegramConfig struct {
	BotToken           string
	AllowedUserIDs     []int64
	Lang               string
	RateLimitPerSecond float64
	RateLimitBurst     int
	NotifyOnStart      bool
}

type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	DBName          string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
}

// AIConfig настройки LLM-парсера. Пустой APIKey отключает его.
type AIConfig struct {
	APIKey    string
	BaseURL   string
	Model     string
	Timeout   time.Duration
	MaxTokens int
}

// Enabled сообщает, настроен ли LLM-парсер
func (c AIConfig) Enabled() bool {
	return c.APIKey != ""
}

type MarketConfig struct {
	Enabled           bool
	BaseURL           string
	Timeout           time.Duration
	RequestsPerMinute int
	ChainPreference   []string
}

type ParserConfig struct {
	DefaultEVMChain     string
	DefaultPerpExchange string
	ExtraPerpSymbols    []string
}

// fileConfig YAML-файл с настройками парсера и рыночных данных (JOURNAL_CONFIG_FILE)
type fileConfig struct {
	Environment string `yaml:"environment"`
	Parser      struct {
		DefaultEVMChain     string   `yaml:"default_evm_chain"`
		DefaultPerpExchange string   `yaml:"default_perp_exchange"`
		ExtraPerpSymbols    []string `yaml:"extra_perp_symbols"`
	} `yaml:"parser"`
	Market struct {
		ChainPreference   []string `yaml:"chain_preference"`
		RequestsPerMinute int      `yaml:"requests_per_minute"`
		Timeout           string   `yaml:"timeout"`
	} `yaml:"market"`
	Telegram struct {
		AllowedUserIDs []int64 `yaml:"allowed_user_ids"`
		Lang           string  `yaml:"lang"`
	} `yaml:"telegram"`
}

var evmChains = map[string]bool{
	domain.ChainEthereum:  true,
	domain.ChainBase:      true,
	domain.ChainBSC:       true,
	domain.ChainArbitrum:  true,
	domain.ChainPolygon:   true,
	domain.ChainOptimism:  true,
	domain.ChainAvalanche: true,
}

var perpExchanges = map[string]bool{
	domain.ExchangeHyperliquid: true,
	domain.ExchangeBinance:     true,
	domain.ExchangeBybit:       true,
	domain.ExchangeDYDX:        true,
	domain.ExchangeGMX:         true,
}

// Load загружает конфигурацию из .env файла и переменных окружения
func Load() (*Config, error) {
	// Загружаем .env файл (если есть)
	if err := godotenv.Load(); err != nil {
		fmt.Println("Warning: .env file not found, using environment variables")
	}
	return FromEnv()
}

// FromEnv собирает конфигурацию: значения по умолчанию, затем YAML-файл, затем окружение
func FromEnv() (*Config, error) {
	config := defaults()

	if path := getEnv("JOURNAL_CONFIG_FILE", ""); path != "" {
		if err := config.applyFile(path); err != nil {
			return nil, err
		}
	}

	if err := config.applyEnv(); err != nil {
		return nil, err
	}

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

func defaults() *Config {
	return &Config{
		Telegram: TelegramConfig{
			Lang:               "en",
			RateLimitPerSecond: 2,
			RateLimitBurst:     3,
		},
		Database: DatabaseConfig{
			Host:            "localhost",
			Port:            5432,
			User:            "postgres",
			DBName:          "trade_journal",
			SSLMode:         "disable",
			MaxOpenConns:    10,
			MaxIdleConns:    2,
			ConnMaxLifetime: 5 * time.Minute,
		},
		AI: AIConfig{
			Model:     "gpt-4o-mini",
			Timeout:   20 * time.Second,
			MaxTokens: 500,
		},
		Market: MarketConfig{
			Enabled:           true,
			BaseURL:           "https://api.dexscreener.com",
			Timeout:           10 * time.Second,
			RequestsPerMinute: 300,
			ChainPreference:   []string{domain.ChainSolana, domain.ChainBase, domain.ChainBSC, domain.ChainEthereum},
		},
		Parser: ParserConfig{
			DefaultEVMChain:     domain.ChainBase,
			DefaultPerpExchange: domain.ExchangeHyperliquid,
		},
		Storage:     StoragePostgres,
		HTTPPort:    8080,
		Environment: "local",
		LogLevel:    "info",
	}
}

func (c *Config) applyFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("invalid config file %s: %w", path, err)
	}

	if fc.Environment != "" {
		c.Environment = fc.Environment
	}
	if fc.Parser.DefaultEVMChain != "" {
		c.Parser.DefaultEVMChain = fc.Parser.DefaultEVMChain
	}
	if fc.Parser.DefaultPerpExchange != "" {
		c.Parser.DefaultPerpExchange = fc.Parser.DefaultPerpExchange
	}
	if len(fc.Parser.ExtraPerpSymbols) > 0 {
		c.Parser.ExtraPerpSymbols = fc.Parser.ExtraPerpSymbols
	}
	if len(fc.Market.ChainPreference) > 0 {
		c.Market.ChainPreference = fc.Market.ChainPreference
	}
	if fc.Market.RequestsPerMinute > 0 {
		c.Market.RequestsPerMinute = fc.Market.RequestsPerMinute
	}
	if fc.Market.Timeout != "" {
		timeout, err := time.ParseDuration(fc.Market.Timeout)
		if err != nil {
			return fmt.Errorf("invalid market.timeout in %s: %w", path, err)
		}
		c.Market.Timeout = timeout
	}
	if len(fc.Telegram.AllowedUserIDs) > 0 {
		c.Telegram.AllowedUserIDs = fc.Telegram.AllowedUserIDs
	}
	if fc.Telegram.Lang != "" {
		c.Telegram.Lang = fc.Telegram.Lang
	}
	return nil
}

func (c *Config) applyEnv() error {
	var err error

	c.Telegram.BotToken = getEnv("TELEGRAM_BOT_TOKEN", c.Telegram.BotToken)
	if ids := getEnv("ALLOWED_USER_ID", ""); ids != "" {
		if c.Telegram.AllowedUserIDs, err = parseIDs(ids); err != nil {
			return fmt.Errorf("invalid ALLOWED_USER_ID: %w", err)
		}
	}
	c.Telegram.Lang = getEnv("DEFAULT_LANG", c.Telegram.Lang)
	if c.Telegram.RateLimitPerSecond, err = strconv.ParseFloat(getEnv("TG_RATE_LIMIT", ftoa(c.Telegram.RateLimitPerSecond)), 64); err != nil {
		return fmt.Errorf("invalid TG_RATE_LIMIT: %w", err)
	}
	if c.Telegram.RateLimitBurst, err = strconv.Atoi(getEnv("TG_RATE_BURST", strconv.Itoa(c.Telegram.RateLimitBurst))); err != nil {
		return fmt.Errorf("invalid TG_RATE_BURST: %w", err)
	}
	if c.Telegram.NotifyOnStart, err = strconv.ParseBool(getEnv("TG_NOTIFY_ON_START", strconv.FormatBool(c.Telegram.NotifyOnStart))); err != nil {
		return fmt.Errorf("invalid TG_NOTIFY_ON_START: %w", err)
	}

	c.Storage = strings.ToLower(getEnv("STORAGE_BACKEND", c.Storage))
	c.Database.Host = getEnv("DB_HOST", c.Database.Host)
	if c.Database.Port, err = strconv.Atoi(getEnv("DB_PORT", strconv.Itoa(c.Database.Port))); err != nil {
		return fmt.Errorf("invalid DB_PORT: %w", err)
	}
	c.Database.User = getEnv("DB_USER", c.Database.User)
	c.Database.Password = getEnv("DB_PASSWORD", c.Database.Password)
	c.Database.DBName = getEnv("DB_NAME", c.Database.DBName)
	c.Database.SSLMode = getEnv("DB_SSLMODE", c.Database.SSLMode)
	if c.Database.MaxOpenConns, err = strconv.Atoi(getEnv("DB_MAX_OPEN_CONNS", strconv.Itoa(c.Database.MaxOpenConns))); err != nil {
		return fmt.Errorf("invalid DB_MAX_OPEN_CONNS: %w", err)
	}
	if c.Database.MaxIdleConns, err = strconv.Atoi(getEnv("DB_MAX_IDLE_CONNS", strconv.Itoa(c.Database.MaxIdleConns))); err != nil {
		return fmt.Errorf("invalid DB_MAX_IDLE_CONNS: %w", err)
	}
	if c.Database.ConnMaxLifetime, err = time.ParseDuration(getEnv("DB_CONN_MAX_LIFETIME", c.Database.ConnMaxLifetime.String())); err != nil {
		return fmt.Errorf("invalid DB_CONN_MAX_LIFETIME: %w", err)
	}

	c.AI.APIKey = getEnv("AI_API_KEY", c.AI.APIKey)
	c.AI.BaseURL = getEnv("AI_BASE_URL", c.AI.BaseURL)
	c.AI.Model = getEnv("AI_MODEL", c.AI.Model)
	if c.AI.Timeout, err = time.ParseDuration(getEnv("AI_TIMEOUT", c.AI.Timeout.String())); err != nil {
		return fmt.Errorf("invalid AI_TIMEOUT: %w", err)
	}
	if c.AI.MaxTokens, err = strconv.Atoi(getEnv("AI_MAX_TOKENS", strconv.Itoa(c.AI.MaxTokens))); err != nil {
		return fmt.Errorf("invalid AI_MAX_TOKENS: %w", err)
	}

	if c.Market.Enabled, err = strconv.ParseBool(getEnv("DEXSCREENER_ENABLED", strconv.FormatBool(c.Market.Enabled))); err != nil {
		return fmt.Errorf("invalid DEXSCREENER_ENABLED: %w", err)
	}
	c.Market.BaseURL = getEnv("DEXSCREENER_BASE_URL", c.Market.BaseURL)
	if c.Market.Timeout, err = time.ParseDuration(getEnv("DEXSCREENER_TIMEOUT", c.Market.Timeout.String())); err != nil {
		return fmt.Errorf("invalid DEXSCREENER_TIMEOUT: %w", err)
	}
	if c.Market.RequestsPerMinute, err = strconv.Atoi(getEnv("DEXSCREENER_RPM", strconv.Itoa(c.Market.RequestsPerMinute))); err != nil {
		return fmt.Errorf("invalid DEXSCREENER_RPM: %w", err)
	}
	if pref := getEnv("DEXSCREENER_CHAIN_PREFERENCE", ""); pref != "" {
		c.Market.ChainPreference = splitList(pref)
	}

	c.Parser.DefaultEVMChain = strings.ToLower(getEnv("DEFAULT_EVM_CHAIN", c.Parser.DefaultEVMChain))
	c.Parser.DefaultPerpExchange = strings.ToLower(getEnv("DEFAULT_PERP_EXCHANGE", c.Parser.DefaultPerpExchange))
	if extra := getEnv("EXTRA_PERP_SYMBOLS", ""); extra != "" {
		c.Parser.ExtraPerpSymbols = splitList(extra)
	}

	if c.HTTPPort, err = strconv.Atoi(getEnv("HTTP_PORT", strconv.Itoa(c.HTTPPort))); err != nil {
		return fmt.Errorf("invalid HTTP_PORT: %w", err)
	}
	c.Environment = getEnv("ENVIRONMENT", c.Environment)
	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	return nil
}

// Validate проверяет обязательные поля конфигурации
func (c *Config) Validate() error {
	if strings.TrimSpace(c.Telegram.BotToken) == "" {
		return fmt.Errorf("TELEGRAM_BOT_TOKEN is required")
	}
	if c.Telegram.Lang != "en" && c.Telegram.Lang != "ru" {
		return fmt.Errorf("DEFAULT_LANG must be en or ru, got %q", c.Telegram.Lang)
	}
	if c.Telegram.RateLimitPerSecond <= 0 || c.Telegram.RateLimitBurst <= 0 {
		return fmt.Errorf("TG_RATE_LIMIT and TG_RATE_BURST must be positive")
	}

	switch c.Storage {
	case StoragePostgres:
		if c.Database.DBName == "" {
			return fmt.Errorf("DB_NAME is required")
		}
		if c.Database.Port <= 0 {
			return fmt.Errorf("DB_PORT must be positive")
		}
	case StorageMemory:
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %s or %s, got %q", StoragePostgres, StorageMemory, c.Storage)
	}

	if c.Market.RequestsPerMinute <= 0 {
		return fmt.Errorf("DEXSCREENER_RPM must be positive")
	}
	if c.Market.Timeout <= 0 {
		return fmt.Errorf("DEXSCREENER_TIMEOUT must be positive")
	}
	if !evmChains[c.Parser.DefaultEVMChain] {
		return fmt.Errorf("DEFAULT_EVM_CHAIN %q is not a supported EVM chain", c.Parser.DefaultEVMChain)
	}
	if !perpExchanges[c.Parser.DefaultPerpExchange] {
		return fmt.Errorf("DEFAULT_PERP_EXCHANGE %q is not supported", c.Parser.DefaultPerpExchange)
	}
	if c.HTTPPort < 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 0 and 65535")
	}
	return nil
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func parseIDs(s string) ([]int64, error) {
	var ids []int64
	for _, part := range splitList(s) {
		id, err := strconv.ParseInt(part, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func splitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func ftoa(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
