package scanner_test

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/alejandrodnm/consensusbot/internal/domain"
	"github.com/alejandrodnm/consensusbot/internal/scanner"
)

func sampleSignal() domain.ConsensusSignal {
	return domain.ConsensusSignal{
		ID:              "sig-1",
		MarketID:        marketA,
		MarketTitle:     "Fed cuts rates & markets <rally>?",
		MarketSlug:      "fed-cuts",
		Side:            domain.SideNo,
		WalletCount:     3,
		TotalValue:      15000,
		AvgValue:        5000,
		ConfidenceScore: 57,
		ConfidenceLevel: domain.ConfidenceMedium,
		Breakdown:       domain.ScoreBreakdown{WalletCount: 10, Value: 20, Conviction: 15, Distribution: 12, Total: 57},
		Wallets: []domain.SignalWallet{
			{Alias: "alpha", Address: "0xaaa", Value: 7500, PortfolioPercent: 12.5},
			{Address: "0x1234567890abcdef1234", Value: 5000, PortfolioPercent: 4},
			{Alias: "charlie", Address: "0xccc", Value: 2500, PortfolioPercent: 2},
		},
	}
}

func TestFormatSignal(t *testing.T) {
	out := scanner.FormatSignal(sampleSignal())

	assert.Contains(t, out, "MEDIUM (57/100)")
	assert.Contains(t, out, "Fed cuts rates &amp; markets &lt;rally&gt;?")
	assert.Contains(t, out, "Side: <b>NO</b>")
	assert.Contains(t, out, "Wallets: 3 · Total: $15,000 · Avg: $5,000")
	assert.Contains(t, out, "1. alpha · $7,500 (50% of book")
	assert.Contains(t, out, "2. 0x1234…1234")
	assert.Contains(t, out, "https://polymarket.com/event/fed-cuts")
	assert.False(t, strings.HasSuffix(out, "\n"))
}

func TestFormatSignal_TruncatesWallets(t *testing.T) {
	sig := sampleSignal()
	for i := 0; i < 5; i++ {
		sig.Wallets = append(sig.Wallets, domain.SignalWallet{Alias: "extra", Value: 100})
	}

	out := scanner.FormatSignal(sig)

	assert.Contains(t, out, "5. extra")
	assert.NotContains(t, out, "6. extra")
	assert.Contains(t, out, "… and 3 more")
}

func TestFormatSignal_NoSlugNoTitle(t *testing.T) {
	sig := sampleSignal()
	sig.MarketSlug = ""
	sig.MarketTitle = ""

	out := scanner.FormatSignal(sig)

	assert.Contains(t, out, marketA)
	assert.NotContains(t, out, "polymarket.com")
}

func TestFormatSummary(t *testing.T) {
	summary := domain.ScanSummary{
		WalletsTotal:    20,
		WalletsScanned:  18,
		WalletsFailed:   2,
		PositionsFound:  1234,
		SignalsDetected: 2,
		SignalsNew:      1,
		Duration:        42*time.Second + 300*time.Millisecond,
	}
	notified := sampleSignal()
	old := sampleSignal()
	old.ID = ""
	old.MarketTitle = "Old news"

	out := scanner.FormatSummary(summary, []domain.ConsensusSignal{notified, old})

	assert.Contains(t, out, "Wallets scanned: 18/20 (2 failed)")
	assert.Contains(t, out, "Positions found: 1,234")
	assert.Contains(t, out, "Signals detected: 2 (new: 1)")
	assert.Contains(t, out, "Duration: 42s")
	assert.Contains(t, out, "Fed cuts rates")
	assert.NotContains(t, out, "Old news")
}

func TestFormatSummary_NoFailures(t *testing.T) {
	out := scanner.FormatSummary(domain.ScanSummary{WalletsTotal: 3, WalletsScanned: 3}, nil)

	assert.Contains(t, out, "Wallets scanned: 3/3\n")
	assert.NotContains(t, out, "failed")
}
