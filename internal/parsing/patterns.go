package parsing

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/kirillm/trade-journal/internal/domain"
)

// VerifiedLink ссылка DEX Screener: сеть из ссылки считается достоверной
type VerifiedLink struct {
	Chain   string
	Address string
	URL     string
}

// CryptoAmount сумма в криптовалюте: "1.5K USDC"
type CryptoAmount struct {
	Amount   float64
	Currency string
}

var (
	evmAddressRe    = regexp.MustCompile(`\b0x[a-fA-F0-9]{40}\b`)
	solanaAddressRe = regexp.MustCompile(`\b[1-9A-HJ-NP-Za-km-z]{32,44}\b`)
	verifiedLinkRe  = regexp.MustCompile(`(?i)(?:https?://)?(?:www\.)?dexscreener\.com/([a-z0-9_-]+)/([a-z0-9]+)`)

	usdAmountRe    = regexp.MustCompile(`\$\s*(\d[\d,]*(?:\.\d+)?)(?:\s*([KkMmBb])\b)?`)
	cryptoAmountRe = regexp.MustCompile(`(?i)\b(\d[\d,]*(?:\.\d+)?)(?:\s*([kmb])\b)?\s*(ETH|SOL|BTC|USDC|USDT|BNB|MATIC|AVAX|FTM)\b`)
	bareAmountRe   = regexp.MustCompile(`\b(\d[\d,]*(?:\.\d+)?)\s*([KkMmBb])?\b`)
	marketCapRe    = regexp.MustCompile(`(?i)(?:\$\s*)?\b(\d[\d,]*(?:\.\d+)?)\s*([kmb])?\s*(?:mcap|mc|market\s*cap)\b`)
	leverageRe     = regexp.MustCompile(`(?i)\b(\d+(?:\.\d+)?)\s*x\b`)

	buyKeywordsRe  = regexp.MustCompile(`(?i)\b(?:bought|buy|buying|entered|entry|ape|aped|aping|grabbed|sniped|sniping|longed|long|in|added)\b`)
	sellKeywordsRe = regexp.MustCompile(`(?i)\b(?:sold|sell|selling|exit|exited|exiting|out|dumped|took\s*profit|tp|closed|short|shorted)\b`)

	urlRe = regexp.MustCompile("https?://[^\\s<>\"{}|\\\\^`\\[\\]]+")

	perpKeywordRe      = regexp.MustCompile(`(?i)\b(?:perps?|perpetuals?|futures?)\b`)
	perpSymbolRe       = regexp.MustCompile(`(?i)\b([a-z]{2,10})\s*(?:perps?|perpetuals?|futures?)\b`)
	spotRe             = regexp.MustCompile(`(?i)\bspot\b`)
	symbolExchangeRe   = regexp.MustCompile(`(?i)\b([a-z]{2,10})\s+(?:on\s+)?(?:hyperliquid|hl|binance|bybit|dydx|gmx)\b`)
	shortRe            = regexp.MustCompile(`(?i)\b(?:short|shorted)\b`)
	wordRe             = regexp.MustCompile(`\b[A-Za-z][A-Za-z0-9]{1,9}\b`)
	cashtagRe          = regexp.MustCompile(`\$([A-Za-z][A-Za-z0-9]{1,9})\b`)
	upperTickerRe      = regexp.MustCompile(`\b[A-Z][A-Z0-9]{1,9}\b`)
	allLettersRe       = regexp.MustCompile(`^[A-Za-z]+$`)
	trailingPunctTrim  = ".,;:!?)'\""
	verifiedLinkDomain = "dexscreener.com"
)

type exchangePattern struct {
	name string
	re   *regexp.Regexp
}

// exchangePatterns проверяются по порядку
var exchangePatterns = []exchangePattern{
	{domain.ExchangeHyperliquid, regexp.MustCompile(`(?i)\b(?:hyperliquid|hl)\b`)},
	{domain.ExchangeBinance, regexp.MustCompile(`(?i)\bbinance\b`)},
	{domain.ExchangeBybit, regexp.MustCompile(`(?i)\bbybit\b`)},
	{domain.ExchangeDYDX, regexp.MustCompile(`(?i)\bdydx\b`)},
	{domain.ExchangeGMX, regexp.MustCompile(`(?i)\bgmx\b`)},
}

// DefaultPerpSymbols символы, которые обычно торгуются как перпы
var DefaultPerpSymbols = []string{
	"BTC", "ETH", "SOL", "BNB", "XRP", "ADA", "AVAX", "MATIC", "DOT", "LINK",
	"ARB", "OP", "APT", "SUI", "SEI", "TIA", "INJ", "NEAR", "FTM",
	"UNI", "AAVE", "CRV", "LDO", "MKR", "SNX", "DYDX", "GMX",
	"DOGE", "SHIB", "PEPE", "WIF", "BONK", "FLOKI",
	"JTO", "JUP", "PYTH", "RAY", "ORCA",
	"HYPE", "PURR",
}

// tickerStopWords заглавные слова, которые не являются тикерами токенов
var tickerStopWords = map[string]bool{
	"USD": true, "USDC": true, "USDT": true, "DAI": true, "BUSD": true,
	"BUY": true, "SELL": true, "SOLD": true, "BOUGHT": true, "TP": true,
	"MC": true, "MCAP": true, "ATH": true, "PNL": true, "CA": true,
	"LONG": true, "SHORT": true, "SPOT": true, "PERP": true, "PERPS": true,
	"I": true, "OUT": true, "IN": true, "HL": true, "DEX": true, "CEX": true,
}

var suffixMultipliers = map[string]decimal.Decimal{
	"":  decimal.NewFromInt(1),
	"K": decimal.NewFromInt(1_000),
	"M": decimal.NewFromInt(1_000_000),
	"B": decimal.NewFromInt(1_000_000_000),
}

// ParseNumberWithSuffix разбирает "1,500" / "1.5" + "K" в точное значение
func ParseNumberWithSuffix(value, suffix string) (float64, error) {
	clean := strings.ReplaceAll(strings.TrimSpace(value), ",", "")
	if clean == "" {
		return 0, fmt.Errorf("%w: empty number", domain.ErrInvalidInput)
	}

	mult, ok := suffixMultipliers[strings.ToUpper(strings.TrimSpace(suffix))]
	if !ok {
		return 0, fmt.Errorf("%w: unknown suffix %q", domain.ErrInvalidInput, suffix)
	}

	d, err := decimal.NewFromString(clean)
	if err != nil {
		return 0, fmt.Errorf("%w: bad number %q", domain.ErrInvalidInput, value)
	}

	f, _ := d.Mul(mult).Float64()
	return f, nil
}

// ExtractEVMAddresses возвращает уникальные EVM-адреса в порядке появления
func ExtractEVMAddresses(text string) []string {
	return uniqueFold(evmAddressRe.FindAllString(text, -1))
}

// ExtractSolanaAddresses возвращает кандидатов в Solana-адреса.
// Строки только из букв отбрасываются: это почти всегда обычные слова.
func ExtractSolanaAddresses(text string) []string {
	var out []string
	for _, m := range solanaAddressRe.FindAllString(text, -1) {
		if allLettersRe.MatchString(m) {
			continue
		}
		out = append(out, m)
	}
	return uniqueExact(out)
}

// ExtractVerifiedLinks находит ссылки вида dexscreener.com/{chain}/{address}
func ExtractVerifiedLinks(text string) []VerifiedLink {
	var links []VerifiedLink
	seen := make(map[string]bool)
	for _, m := range verifiedLinkRe.FindAllStringSubmatch(text, -1) {
		key := strings.ToLower(m[1]) + "/" + AddressKey(m[2])
		if seen[key] {
			continue
		}
		seen[key] = true

		url := m[0]
		if !strings.HasPrefix(strings.ToLower(url), "http") {
			url = "https://" + url
		}
		links = append(links, VerifiedLink{
			Chain:   strings.ToLower(m[1]),
			Address: m[2],
			URL:     url,
		})
	}
	return links
}

// ExtractUSDAmounts находит суммы вида "$1.5K". Суммы, входящие в упоминание капитализации, пропускаются.
func ExtractUSDAmounts(text string) []float64 {
	mcapSpans := marketCapRe.FindAllStringIndex(text, -1)

	var out []float64
	for _, idx := range usdAmountRe.FindAllStringSubmatchIndex(text, -1) {
		if insideAny(idx[0], mcapSpans) {
			continue
		}
		v, err := ParseNumberWithSuffix(text[idx[2]:idx[3]], group(text, idx, 2))
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ExtractCryptoAmounts находит суммы вида "1.5K USDC", "0.5 eth"
func ExtractCryptoAmounts(text string) []CryptoAmount {
	var out []CryptoAmount
	for _, m := range cryptoAmountRe.FindAllStringSubmatch(text, -1) {
		v, err := ParseNumberWithSuffix(m[1], m[2])
		if err != nil {
			continue
		}
		out = append(out, CryptoAmount{Amount: v, Currency: strings.ToUpper(m[3])})
	}
	return out
}

// ExtractBareAmounts находит числа без валюты ("100K"). Кредитное плечо ("3x") не считается суммой.
func ExtractBareAmounts(text string) []float64 {
	mcapSpans := marketCapRe.FindAllStringIndex(text, -1)

	var out []float64
	for _, idx := range bareAmountRe.FindAllStringSubmatchIndex(text, -1) {
		if insideAny(idx[0], mcapSpans) {
			continue
		}
		v, err := ParseNumberWithSuffix(text[idx[2]:idx[3]], group(text, idx, 2))
		if err != nil {
			continue
		}
		out = append(out, v)
	}
	return out
}

// ExtractMarketCap возвращает первое упоминание капитализации
func ExtractMarketCap(text string) *float64 {
	m := marketCapRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := ParseNumberWithSuffix(m[1], m[2])
	if err != nil {
		return nil
	}
	return &v
}

// ExtractLeverage возвращает кредитное плечо ("3x")
func ExtractLeverage(text string) *float64 {
	m := leverageRe.FindStringSubmatch(text)
	if m == nil {
		return nil
	}
	v, err := ParseNumberWithSuffix(m[1], "")
	if err != nil || v <= 0 {
		return nil
	}
	return &v
}

// DetectTradeType возвращает BUY или SELL по ключевым словам.
// Если есть оба набора, побеждает то слово, что встречается раньше. Пустая строка, если слов нет.
func DetectTradeType(text string) string {
	buy := buyKeywordsRe.FindStringIndex(text)
	sell := sellKeywordsRe.FindStringIndex(text)

	switch {
	case buy == nil && sell == nil:
		return ""
	case sell == nil:
		return domain.TradeBuy
	case buy == nil:
		return domain.TradeSell
	case buy[0] <= sell[0]:
		return domain.TradeBuy
	default:
		return domain.TradeSell
	}
}

// IsSpotTrade проверяет слово "spot"
func IsSpotTrade(text string) bool {
	return spotRe.MatchString(text)
}

// HasPerpKeyword проверяет perp/perpetual/futures
func HasPerpKeyword(text string) bool {
	return perpKeywordRe.MatchString(text)
}

// DetectPositionType возвращает SHORT при упоминании шорта, иначе LONG
func DetectPositionType(text string) string {
	if shortRe.MatchString(text) {
		return domain.PositionShort
	}
	return domain.PositionLong
}

// MentionedExchange возвращает первую упомянутую биржу или пустую строку
func MentionedExchange(text string) string {
	for _, p := range exchangePatterns {
		if p.re.MatchString(text) {
			return p.name
		}
	}
	return ""
}

// ExtractURLs возвращает ссылки, кроме ссылок DEX Screener
func ExtractURLs(text string) []string {
	var out []string
	for _, u := range urlRe.FindAllString(text, -1) {
		u = strings.TrimRight(u, trailingPunctTrim)
		if strings.Contains(strings.ToLower(u), verifiedLinkDomain) {
			continue
		}
		out = append(out, u)
	}
	return out
}

// ExtractTickers возвращает упомянутые тикеры: сначала кэштеги ($PEPE), затем слова заглавными
func ExtractTickers(text string) []string {
	var out []string
	seen := make(map[string]bool)
	add := func(s string) {
		s = strings.ToUpper(s)
		if tickerStopWords[s] || seen[s] {
			return
		}
		seen[s] = true
		out = append(out, s)
	}

	for _, m := range cashtagRe.FindAllStringSubmatch(text, -1) {
		add(m[1])
	}
	for _, m := range upperTickerRe.FindAllString(stripAddresses(text), -1) {
		add(m)
	}
	return out
}

// Vocabulary настраиваемый словарь перпов: список символов и биржа по умолчанию
type Vocabulary struct {
	perpSymbols     map[string]bool
	defaultExchange string
}

// NewVocabulary создает словарь. extraSymbols дополняют стандартный список.
func NewVocabulary(defaultExchange string, extraSymbols ...string) *Vocabulary {
	v := &Vocabulary{
		perpSymbols:     make(map[string]bool, len(DefaultPerpSymbols)+len(extraSymbols)),
		defaultExchange: strings.ToLower(strings.TrimSpace(defaultExchange)),
	}
	if v.defaultExchange == "" {
		v.defaultExchange = domain.ExchangeHyperliquid
	}
	for _, s := range DefaultPerpSymbols {
		v.perpSymbols[s] = true
	}
	for _, s := range extraSymbols {
		if s = strings.ToUpper(strings.TrimSpace(s)); s != "" {
			v.perpSymbols[s] = true
		}
	}
	return v
}

// DefaultVocabulary словарь со стандартными символами и Hyperliquid
func DefaultVocabulary() *Vocabulary {
	return NewVocabulary(domain.ExchangeHyperliquid)
}

// IsPerpSymbol проверяет символ по белому списку
func (v *Vocabulary) IsPerpSymbol(symbol string) bool {
	return v.perpSymbols[strings.ToUpper(symbol)]
}

// Symbols возвращает отсортированный список символов
func (v *Vocabulary) Symbols() []string {
	out := make([]string, 0, len(v.perpSymbols))
	for s := range v.perpSymbols {
		out = append(out, s)
	}
	sort.Strings(out)
	return out
}

// HasContractAddress сообщает, есть ли в тексте адрес контракта или ссылка DEX Screener
func HasContractAddress(text string) bool {
	if verifiedLinkRe.MatchString(text) || evmAddressRe.MatchString(text) {
		return true
	}
	return len(ExtractSolanaAddresses(stripLinks(text))) > 0
}

// AddressKey ключ для сравнения адресов: EVM без учета регистра, base58 как есть
func AddressKey(address string) string {
	if len(address) > 2 && (address[:2] == "0x" || address[:2] == "0X") {
		return strings.ToLower(address)
	}
	return address
}

// DetectExchange возвращает упомянутую биржу. Если биржа не названа, но есть
// perp-лексика, возвращается биржа по умолчанию.
func (v *Vocabulary) DetectExchange(text string) string {
	if ex := MentionedExchange(text); ex != "" {
		return ex
	}
	if HasPerpKeyword(text) || ExtractLeverage(text) != nil {
		return v.defaultExchange
	}
	return ""
}

// pairedSymbol ищет символ из белого списка рядом с биржей ("ETH on HL").
// Если пары нет, но биржа упомянута и адреса в тексте нет, берется первое слово из белого списка.
func (v *Vocabulary) pairedSymbol(text string) string {
	for _, m := range symbolExchangeRe.FindAllStringSubmatch(text, -1) {
		if v.IsPerpSymbol(m[1]) {
			return strings.ToUpper(m[1])
		}
	}
	if MentionedExchange(text) != "" && !HasContractAddress(text) {
		return v.firstListedWord(text)
	}
	return ""
}

// firstListedWord первое слово текста из белого списка, кроме названий бирж
func (v *Vocabulary) firstListedWord(text string) string {
	for _, w := range wordRe.FindAllString(stripAddresses(text), -1) {
		if isExchangeWord(w) {
			continue
		}
		if v.IsPerpSymbol(w) {
			return strings.ToUpper(w)
		}
	}
	return ""
}

// IsPerpTrade: не спот, и есть perp-лексика или символ из списка при бирже.
// Одно плечо ("10x") без биржи перпом не считается.
func (v *Vocabulary) IsPerpTrade(text string) bool {
	if IsSpotTrade(text) {
		return false
	}
	if HasPerpKeyword(text) {
		return true
	}
	return v.pairedSymbol(text) != ""
}

// ExtractPerpInfo возвращает символ и LONG/SHORT.
// Порядок: "BTC perps", затем пара символ+биржа, затем символ из списка при perp-лексике.
func (v *Vocabulary) ExtractPerpInfo(text string) (symbol, positionType string, ok bool) {
	for _, m := range perpSymbolRe.FindAllStringSubmatch(text, -1) {
		if !isKeywordWord(m[1]) {
			symbol = strings.ToUpper(m[1])
			break
		}
	}
	if symbol == "" {
		symbol = v.pairedSymbol(text)
	}
	if symbol == "" && HasPerpKeyword(text) {
		symbol = v.firstListedWord(text)
	}
	if symbol == "" {
		return "", "", false
	}
	return symbol, DetectPositionType(text), true
}

// ExtractCEXSpotInfo возвращает символ и биржу для "10K BTC Spot Binance"
func (v *Vocabulary) ExtractCEXSpotInfo(text string) (symbol, exchange string, ok bool) {
	if !IsSpotTrade(text) {
		return "", "", false
	}
	exchange = MentionedExchange(text)
	if exchange == "" {
		return "", "", false
	}
	symbol = v.pairedSymbol(text)
	if symbol == "" {
		return "", "", false
	}
	return symbol, exchange, true
}

// isKeywordWord отсекает служебные слова, пойманные как символ ("long perps")
func isKeywordWord(w string) bool {
	return buyKeywordsRe.MatchString(w) || sellKeywordsRe.MatchString(w) ||
		perpKeywordRe.MatchString(w) || tickerStopWords[strings.ToUpper(w)]
}

func isExchangeWord(w string) bool {
	for _, p := range exchangePatterns {
		if p.re.MatchString(w) {
			return true
		}
	}
	return false
}

// stripAddresses вырезает адреса и ссылки, чтобы их куски не принимались за тикеры
func stripAddresses(text string) string {
	text = urlRe.ReplaceAllString(text, " ")
	text = verifiedLinkRe.ReplaceAllString(text, " ")
	text = evmAddressRe.ReplaceAllString(text, " ")
	return solanaAddressRe.ReplaceAllStringFunc(text, func(s string) string {
		if allLettersRe.MatchString(s) {
			return s
		}
		return " "
	})
}

// uniqueExact для base58: регистр значим
func uniqueExact(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		if seen[s] {
			continue
		}
		seen[s] = true
		out = append(out, s)
	}
	return out
}

func uniqueFold(in []string) []string {
	var out []string
	seen := make(map[string]bool, len(in))
	for _, s := range in {
		key := strings.ToLower(s)
		if seen[key] {
			continue
		}
		seen[key] = true
		out = append(out, s)
	}
	return out
}

func insideAny(pos int, spans [][]int) bool {
	for _, s := range spans {
		if pos >= s[0] && pos < s[1] {
			return true
		}
	}
	return false
}

// group возвращает n-ю подгруппу совпадения или пустую строку
func group(text string, idx []int, n int) string {
	if 2*n+1 >= len(idx) || idx[2*n] < 0 {
		return ""
	}
	return text[idx[2*n]:idx[2*n+1]]
}
