package parsing

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/kirillm/trade-journal/internal/chain"
	"github.com/kirillm/trade-journal/internal/domain"
	"github.com/kirillm/trade-journal/pkg/utils"
)

const (
	errEmptyMessage = "Empty message"
	errNoAddress    = "No contract address found. Please include the contract address or DEX Screener link."

	// FieldAmount отмечает сделку без распознанной суммы
	FieldAmount = "amount_spent"
)

// Extractor извлекает сделки из текста сообщения.
// Реализации: RuleExtractor (регулярные выражения) и LLM-оракул.
type Extractor interface {
	Name() string
	Extract(ctx context.Context, text string) ([]domain.ParsedTrade, error)
}

// ParseError ошибка разбора с текстом для пользователя
type ParseError struct {
	Message string
}

func (e *ParseError) Error() string {
	return e.Message
}

// Parser выбирает оракул или локальные правила и возвращает ParseResult.
// Ошибки оракула не видны вызывающему: они логируются и происходит откат на правила.
type Parser struct {
	oracle Extractor
	rules  *RuleExtractor
	logger *utils.Logger
}

// NewParser создает парсер. oracle может быть nil.
func NewParser(rules *RuleExtractor, oracle Extractor, logger *utils.Logger) *Parser {
	if logger == nil {
		logger = utils.NewNopLogger()
	}
	return &Parser{
		oracle: oracle,
		rules:  rules,
		logger: logger.Named("parser"),
	}
}

// HasOracle сообщает, настроен ли LLM-оракул
func (p *Parser) HasOracle() bool {
	return p.oracle != nil
}

// Parse разбирает одно сообщение
func (p *Parser) Parse(ctx context.Context, text string) domain.ParseResult {
	result := domain.ParseResult{RawMessage: text}

	if strings.TrimSpace(text) == "" {
		result.ErrorMessage = errEmptyMessage
		return result
	}

	if p.oracle != nil {
		trades, err := p.oracle.Extract(ctx, text)
		if err == nil && len(trades) > 0 {
			for i := range trades {
				trades[i].RawMessage = text
				trades[i].ParseConfidence = domain.ConfidenceHigh
			}
			result.Trades = trades
			result.Success = true
			return result
		}
		if err == nil {
			err = fmt.Errorf("%w: empty extraction", domain.ErrOracleUnavailable)
		}
		p.logger.Warn("%s extraction failed, falling back to rules: %v", p.oracle.Name(), err)
	}

	trades, err := p.rules.Extract(ctx, text)
	if err != nil {
		var perr *ParseError
		if errors.As(err, &perr) {
			result.ErrorMessage = perr.Message
		} else {
			result.ErrorMessage = err.Error()
		}
		return result
	}

	result.Trades = trades
	result.Success = true
	return result
}

// RuleExtractor разбирает сообщения регулярными выражениями
type RuleExtractor struct {
	vocab      *Vocabulary
	classifier *chain.Classifier
}

// NewRuleExtractor создает локальный экстрактор
func NewRuleExtractor(vocab *Vocabulary, classifier *chain.Classifier) *RuleExtractor {
	if vocab == nil {
		vocab = DefaultVocabulary()
	}
	if classifier == nil {
		classifier = chain.NewClassifier(domain.ChainBase)
	}
	return &RuleExtractor{vocab: vocab, classifier: classifier}
}

func (r *RuleExtractor) Name() string {
	return "rules"
}

// Extract: перп, затем CEX-спот, затем адреса, затем продажа по символу
func (r *RuleExtractor) Extract(_ context.Context, text string) ([]domain.ParsedTrade, error) {
	if strings.TrimSpace(text) == "" {
		return nil, &ParseError{Message: errEmptyMessage}
	}

	if r.vocab.IsPerpTrade(text) {
		if trade, ok := r.parsePerp(text); ok {
			return []domain.ParsedTrade{trade}, nil
		}
	}

	if symbol, exchange, ok := r.vocab.ExtractCEXSpotInfo(text); ok {
		return []domain.ParsedTrade{r.parseCEXSpot(text, symbol, exchange)}, nil
	}

	if trades := r.parseAddresses(text); len(trades) > 0 {
		return trades, nil
	}

	tradeType := DetectTradeType(text)
	if tradeType == domain.TradeSell {
		trade := domain.ParsedTrade{
			TradeType:       domain.TradeSell,
			RawMessage:      text,
			ParseConfidence: domain.ConfidenceLow,
			MissingFields:   []string{domain.FieldContractAddress},
			MarketCap:       ExtractMarketCap(text),
		}
		if tickers := ExtractTickers(text); len(tickers) > 0 {
			trade.TokenSymbol = tickers[0]
		}
		r.attachAmount(&trade, text, false)
		r.attachURLs(&trade, text)
		return []domain.ParsedTrade{trade}, nil
	}

	return nil, &ParseError{Message: errNoAddress}
}

func (r *RuleExtractor) parsePerp(text string) (domain.ParsedTrade, bool) {
	symbol, positionType, ok := r.vocab.ExtractPerpInfo(text)
	if !ok {
		return domain.ParsedTrade{}, false
	}

	exchange := r.vocab.DetectExchange(text)
	if exchange == "" {
		exchange = r.vocab.defaultExchange
	}

	trade := domain.ParsedTrade{
		TradeType:       perpDirection(text, positionType),
		TokenSymbol:     symbol,
		Chain:           exchange,
		Exchange:        exchange,
		IsPerp:          true,
		PositionType:    positionType,
		Leverage:        ExtractLeverage(text),
		RawMessage:      text,
		ParseConfidence: domain.ConfidenceMedium,
	}
	r.attachAmount(&trade, text, true)
	r.attachURLs(&trade, text)
	return trade, true
}

// perpDirection: явное ключевое слово, затем SHORT как продажа, иначе покупка
func perpDirection(text, positionType string) string {
	if tradeType := DetectTradeType(text); tradeType != "" {
		return tradeType
	}
	if positionType == domain.PositionShort {
		return domain.TradeSell
	}
	return domain.TradeBuy
}

func (r *RuleExtractor) parseCEXSpot(text, symbol, exchange string) domain.ParsedTrade {
	tradeType := DetectTradeType(text)
	if tradeType == "" {
		tradeType = domain.TradeBuy
	}

	trade := domain.ParsedTrade{
		TradeType:       tradeType,
		TokenSymbol:     symbol,
		Chain:           exchange,
		Exchange:        exchange,
		IsCEXSpot:       true,
		RawMessage:      text,
		ParseConfidence: domain.ConfidenceMedium,
	}
	r.attachAmount(&trade, text, true)
	r.attachURLs(&trade, text)
	return trade
}

type addressCandidate struct {
	address  string
	chain    string
	verified bool
	linkURL  string
}

// collectAddresses: сначала ссылки DEX Screener, затем EVM, затем Solana
func (r *RuleExtractor) collectAddresses(text string) []addressCandidate {
	var out []addressCandidate
	seen := make(map[string]bool)
	add := func(c addressCandidate) {
		key := AddressKey(c.address)
		if seen[key] {
			return
		}
		seen[key] = true
		out = append(out, c)
	}

	for _, link := range ExtractVerifiedLinks(text) {
		add(addressCandidate{address: link.Address, chain: link.Chain, verified: true, linkURL: link.URL})
	}

	// Сеть из текста применяется только к адресам подходящей формы
	textChain := chain.DetectFromText(text)
	evmChain := textChain
	if evmChain == domain.ChainSolana {
		evmChain = ""
	}

	evm := ExtractEVMAddresses(text)
	for _, addr := range evm {
		add(addressCandidate{address: addr, chain: evmChain})
	}

	if len(evm) == 0 || textChain == domain.ChainSolana {
		solanaChain := ""
		if textChain == domain.ChainSolana {
			solanaChain = domain.ChainSolana
		}
		for _, addr := range ExtractSolanaAddresses(stripLinks(text)) {
			add(addressCandidate{address: addr, chain: solanaChain})
		}
	}

	return out
}

func (r *RuleExtractor) parseAddresses(text string) []domain.ParsedTrade {
	candidates := r.collectAddresses(text)
	if len(candidates) == 0 {
		return nil
	}

	tradeType := DetectTradeType(text)
	marketCap := ExtractMarketCap(text)

	trades := make([]domain.ParsedTrade, 0, len(candidates))
	for _, c := range candidates {
		info := r.classifier.Resolve(c.address, c.chain, c.verified)

		trade := domain.ParsedTrade{
			TradeType:       tradeType,
			ContractAddress: c.address,
			Chain:           info.Chain,
			MarketCap:       marketCap,
			DexScreenerURL:  c.linkURL,
			RawMessage:      text,
			ParseConfidence: info.Confidence,
		}
		if trade.TradeType == "" {
			trade.TradeType = domain.TradeBuy
			trade.MissingFields = append(trade.MissingFields, domain.FieldTradeType)
		}
		r.attachAmount(&trade, text, false)
		r.attachURLs(&trade, text)
		trades = append(trades, trade)
	}
	return trades
}

// attachAmount: сначала сумма в криптовалюте, затем в долларах.
// Для биржевых сделок голое число ("100K") считается суммой в USD.
func (r *RuleExtractor) attachAmount(trade *domain.ParsedTrade, text string, allowBare bool) {
	for _, c := range ExtractCryptoAmounts(text) {
		// "10K BTC spot": BTC здесь торгуемый актив, а не валюта оплаты
		if allowBare && strings.EqualFold(c.Currency, trade.TokenSymbol) {
			continue
		}
		trade.AmountSpent = domain.Float64Ptr(c.Amount)
		trade.SpendCurrency = c.Currency
		return
	}
	if usd := ExtractUSDAmounts(text); len(usd) > 0 {
		trade.AmountSpent = domain.Float64Ptr(usd[0])
		trade.SpendCurrency = domain.CurrencyUSD
		return
	}
	if allowBare {
		if bare := ExtractBareAmounts(text); len(bare) > 0 {
			trade.AmountSpent = domain.Float64Ptr(bare[0])
			trade.SpendCurrency = domain.CurrencyUSD
			return
		}
	}
	trade.MissingFields = append(trade.MissingFields, FieldAmount)
}

func (r *RuleExtractor) attachURLs(trade *domain.ParsedTrade, text string) {
	if urls := ExtractURLs(text); len(urls) > 0 {
		trade.NotesURL = urls[0]
	}
	if trade.DexScreenerURL == "" {
		if links := ExtractVerifiedLinks(text); len(links) > 0 {
			trade.DexScreenerURL = links[0].URL
		}
	}
}

// stripLinks убирает ссылки, чтобы пути URL не считались Solana-адресами
func stripLinks(text string) string {
	text = verifiedLinkRe.ReplaceAllString(text, " ")
	return urlRe.ReplaceAllString(text, " ")
}

// FormatParseSummary человекочитаемое описание результата разбора
func FormatParseSummary(result domain.ParseResult) string {
	if !result.Success {
		return "❌ " + result.ErrorMessage
	}

	var sb strings.Builder
	for i, t := range result.Trades {
		if i > 0 {
			sb.WriteString("\n")
		}
		fmt.Fprintf(&sb, "%s", t.TradeType)
		switch {
		case t.IsPerp:
			fmt.Fprintf(&sb, " %s %s perp on %s", t.TokenSymbol, t.PositionType, t.Exchange)
			if t.Leverage != nil {
				fmt.Fprintf(&sb, " %.0fx", *t.Leverage)
			}
		case t.IsCEXSpot:
			fmt.Fprintf(&sb, " %s spot on %s", t.TokenSymbol, t.Exchange)
		case t.ContractAddress != "":
			fmt.Fprintf(&sb, " %s on %s", chain.ShortAddress(t.ContractAddress), t.Chain)
		case t.TokenSymbol != "":
			fmt.Fprintf(&sb, " %s", t.TokenSymbol)
		}
		if t.AmountSpent != nil {
			fmt.Fprintf(&sb, " | %s %s", formatAmount(*t.AmountSpent), t.SpendCurrency)
		}
		if t.MarketCap != nil {
			fmt.Fprintf(&sb, " | mcap %s", formatAmount(*t.MarketCap))
		}
		fmt.Fprintf(&sb, " [%s]", t.ParseConfidence)
		if len(t.MissingFields) > 0 {
			fmt.Fprintf(&sb, " missing: %s", strings.Join(t.MissingFields, ", "))
		}
	}
	return sb.String()
}

func formatAmount(v float64) string {
	switch {
	case v >= 1_000_000_000:
		return fmt.Sprintf("%.2fB", v/1_000_000_000)
	case v >= 1_000_000:
		return fmt.Sprintf("%.2fM", v/1_000_000)
	case v >= 1_000:
		return fmt.Sprintf("%.2fK", v/1_000)
	default:
		return fmt.Sprintf("%.2f", v)
	}
}
