package chain

import (
	"regexp"
	"strings"

	"github.com/ethereum/go-ethereum/common"
	"github.com/mr-tron/base58"

	"github.com/kirillm/trade-journal/internal/domain"
)

const (
	evmAddressLen   = 42
	solanaMinLen    = 32
	solanaMaxLen    = 44
	shortAddressLen = 10
)

// aliases отображает сокращения и альтернативные имена сетей на канонические
var aliases = map[string]string{
	"sol":         domain.ChainSolana,
	"solana":      domain.ChainSolana,
	"eth":         domain.ChainEthereum,
	"ethereum":    domain.ChainEthereum,
	"mainnet":     domain.ChainEthereum,
	"base":        domain.ChainBase,
	"bsc":         domain.ChainBSC,
	"bnb":         domain.ChainBSC,
	"binance":     domain.ChainBSC,
	"arb":         domain.ChainArbitrum,
	"arbitrum":    domain.ChainArbitrum,
	"matic":       domain.ChainPolygon,
	"polygon":     domain.ChainPolygon,
	"op":          domain.ChainOptimism,
	"optimism":    domain.ChainOptimism,
	"avax":        domain.ChainAvalanche,
	"avalanche":   domain.ChainAvalanche,
	"ftm":         "fantom",
	"fantom":      "fantom",
	"zksync":      "zksync",
	"linea":       "linea",
	"blast":       "blast",
	"hl":          domain.ChainHyperliquid,
	"hyperliquid": domain.ChainHyperliquid,
}

type textHint struct {
	re    *regexp.Regexp
	chain string
}

// textHints проверяются по порядку, побеждает первое совпадение
var textHints = []textHint{
	{regexp.MustCompile(`(?i)\bsolana\b`), domain.ChainSolana},
	{regexp.MustCompile(`(?i)\bon\s+sol\b`), domain.ChainSolana},
	{regexp.MustCompile(`(?i)\bethereum\b`), domain.ChainEthereum},
	{regexp.MustCompile(`(?i)\bon\s+eth\b`), domain.ChainEthereum},
	{regexp.MustCompile(`(?i)\bmainnet\b`), domain.ChainEthereum},
	{regexp.MustCompile(`(?i)\bbase\b`), domain.ChainBase},
	{regexp.MustCompile(`(?i)\bbsc\b`), domain.ChainBSC},
	{regexp.MustCompile(`(?i)\bbnb\b`), domain.ChainBSC},
	{regexp.MustCompile(`(?i)\bbinance\s+smart\s+chain\b`), domain.ChainBSC},
	{regexp.MustCompile(`(?i)\barbitrum\b`), domain.ChainArbitrum},
	{regexp.MustCompile(`(?i)\bon\s+arb\b`), domain.ChainArbitrum},
	{regexp.MustCompile(`(?i)\bpolygon\b`), domain.ChainPolygon},
	{regexp.MustCompile(`(?i)\bhyperliquid\b`), domain.ChainHyperliquid},
	{regexp.MustCompile(`(?i)\bon\s+hl\b`), domain.ChainHyperliquid},
}

// Classifier определяет форму адреса и сеть
type Classifier struct {
	fallbackEVMChain string
}

// NewClassifier создает классификатор. fallbackEVMChain используется для
// EVM-адресов без явной сети (по умолчанию base).
func NewClassifier(fallbackEVMChain string) *Classifier {
	fallback := NormalizeChain(fallbackEVMChain)
	if fallback == "" || fallback == domain.ChainUnknown {
		fallback = domain.ChainBase
	}
	return &Classifier{fallbackEVMChain: fallback}
}

// FallbackEVMChain возвращает сеть по умолчанию для EVM-адресов
func (c *Classifier) FallbackEVMChain() string {
	return c.fallbackEVMChain
}

// Classify возвращает evm, solana или unknown. Никогда не паникует.
func Classify(address string) string {
	address = strings.TrimSpace(address)
	switch {
	case IsEVMAddress(address):
		return domain.AddressEVM
	case IsSolanaAddress(address):
		return domain.AddressSolana
	default:
		return domain.AddressUnknown
	}
}

// IsEVMAddress проверяет литеральный префикс 0x и 40 hex-символов
func IsEVMAddress(address string) bool {
	if len(address) != evmAddressLen || !strings.HasPrefix(address, "0x") {
		return false
	}
	return common.IsHexAddress(address)
}

// IsSolanaAddress проверяет длину 32-44 и алфавит base58
func IsSolanaAddress(address string) bool {
	if len(address) < solanaMinLen || len(address) > solanaMaxLen {
		return false
	}
	_, err := base58.Decode(address)
	return err == nil
}

// Resolve определяет сеть адреса.
// Уверенность: high для проверенной ссылки, medium при явно указанной сети, low для догадки по форме.
func (c *Classifier) Resolve(address, explicitChain string, fromVerifiedLink bool) domain.ChainInfo {
	info := domain.ChainInfo{AddressType: Classify(address)}

	if explicit := NormalizeChain(explicitChain); explicit != "" && explicit != domain.ChainUnknown {
		info.Chain = explicit
		if fromVerifiedLink {
			info.Confidence = domain.ConfidenceHigh
		} else {
			info.Confidence = domain.ConfidenceMedium
		}
		return info
	}

	info.Confidence = domain.ConfidenceLow
	switch info.AddressType {
	case domain.AddressSolana:
		info.Chain = domain.ChainSolana
	case domain.AddressEVM:
		info.Chain = c.fallbackEVMChain
	default:
		info.Chain = domain.ChainUnknown
	}
	return info
}

// NormalizeChain приводит имя сети к каноническому. Неизвестные имена возвращаются в нижнем регистре.
func NormalizeChain(name string) string {
	name = strings.ToLower(strings.TrimSpace(name))
	if name == "" {
		return ""
	}
	if canonical, ok := aliases[name]; ok {
		return canonical
	}
	return name
}

// DetectFromText ищет упоминание сети в тексте сообщения. Пустая строка, если сеть не упомянута.
func DetectFromText(text string) string {
	for _, h := range textHints {
		if h.re.MatchString(text) {
			return h.chain
		}
	}
	return ""
}

// ShortAddress сокращает адрес для отображения: 0x1234...abcd
func ShortAddress(address string) string {
	if len(address) <= shortAddressLen+2 {
		return address
	}
	return address[:6] + "..." + address[len(address)-4:]
}
