package chain

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/kirillm/trade-journal/internal/domain"
)

const (
	evmAddr    = "0xAbCdEf0123456789abcdef0123456789ABCDEF01"
	solanaAddr = "EPjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v"
)

func TestClassify(t *testing.T) {
	tests := []struct {
		name    string
		address string
		want    string
	}{
		{"evm mixed case", evmAddr, domain.AddressEVM},
		{"evm lowercase", strings.ToLower(evmAddr), domain.AddressEVM},
		{"solana mint", solanaAddr, domain.AddressSolana},
		{"solana 32 chars", "11111111111111111111111111111112", domain.AddressSolana},
		{"0x with non-hex suffix", "0xZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZZ", domain.AddressUnknown},
		{"hex without 0x prefix", "AbCdEf0123456789abcdef0123456789ABCDEF01ab", domain.AddressUnknown},
		{"uppercase 0X prefix", "0X" + evmAddr[2:], domain.AddressUnknown},
		{"evm too short", evmAddr[:41], domain.AddressUnknown},
		{"solana with forbidden zero", "0PjFWdd5AufqSSqeM2qN1xzybapC8G4wEGGkZwyTDt1v", domain.AddressUnknown},
		{"solana too long", solanaAddr + "abc", domain.AddressUnknown},
		{"empty", "", domain.AddressUnknown},
		{"ticker", "PEPE", domain.AddressUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, Classify(tt.address))
		})
	}
}

func TestClassifyIsTotal(t *testing.T) {
	inputs := []string{"", " ", "0x", "0x0", "💥", strings.Repeat("z", 1000), "\x00\x01", evmAddr + " "}
	for _, in := range inputs {
		got := Classify(in)
		assert.Contains(t, []string{domain.AddressEVM, domain.AddressSolana, domain.AddressUnknown}, got)
	}
}

func TestResolve(t *testing.T) {
	c := NewClassifier("")

	tests := []struct {
		name     string
		address  string
		explicit string
		verified bool
		want     domain.ChainInfo
	}{
		{
			name: "verified link", address: evmAddr, explicit: "ethereum", verified: true,
			want: domain.ChainInfo{Chain: domain.ChainEthereum, AddressType: domain.AddressEVM, Confidence: domain.ConfidenceHigh},
		},
		{
			name: "explicit alias", address: evmAddr, explicit: "ARB",
			want: domain.ChainInfo{Chain: domain.ChainArbitrum, AddressType: domain.AddressEVM, Confidence: domain.ConfidenceMedium},
		},
		{
			name: "evm fallback", address: evmAddr,
			want: domain.ChainInfo{Chain: domain.ChainBase, AddressType: domain.AddressEVM, Confidence: domain.ConfidenceLow},
		},
		{
			name: "solana shape", address: solanaAddr,
			want: domain.ChainInfo{Chain: domain.ChainSolana, AddressType: domain.AddressSolana, Confidence: domain.ConfidenceLow},
		},
		{
			name: "unknown shape", address: "nope",
			want: domain.ChainInfo{Chain: domain.ChainUnknown, AddressType: domain.AddressUnknown, Confidence: domain.ConfidenceLow},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Resolve(tt.address, tt.explicit, tt.verified))
		})
	}
}

func TestResolveConfiguredFallback(t *testing.T) {
	c := NewClassifier("eth")
	assert.Equal(t, domain.ChainEthereum, c.FallbackEVMChain())
	assert.Equal(t, domain.ChainEthereum, c.Resolve(evmAddr, "", false).Chain)
}

func TestNormalizeChain(t *testing.T) {
	assert.Equal(t, domain.ChainBSC, NormalizeChain("BNB"))
	assert.Equal(t, domain.ChainHyperliquid, NormalizeChain(" hl "))
	assert.Equal(t, "sui", NormalizeChain("SUI"))
	assert.Equal(t, "", NormalizeChain("  "))
}

func TestDetectFromText(t *testing.T) {
	tests := []struct {
		text string
		want string
	}{
		{"aped this on solana", domain.ChainSolana},
		{"bought on sol", domain.ChainSolana},
		{"ethereum gem", domain.ChainEthereum},
		{"base szn", domain.ChainBase},
		{"cheap bsc play", domain.ChainBSC},
		{"paid 0.5 BNB", domain.ChainBSC},
		{"arbitrum token", domain.ChainArbitrum},
		{"based dev", ""},
		{"nothing here", ""},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			assert.Equal(t, tt.want, DetectFromText(tt.text))
		})
	}
}

func TestShortAddress(t *testing.T) {
	assert.Equal(t, "0xAbCd...EF01", ShortAddress(evmAddr))
	assert.Equal(t, "short", ShortAddress("short"))
}
