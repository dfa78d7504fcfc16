package notify_test

import (
	"bytes"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/alejandrodnm/consensusbot/internal/adapters/notify"
	"github.com/alejandrodnm/consensusbot/internal/domain"
)

func TestConsole_Send_StripsHTML(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	err := c.Send(context.Background(), 42, `<b>Fed &amp; rates</b> <a href="https://x">link</a>`)
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "chat 42")
	assert.Contains(t, out, "Fed & rates link")
	assert.NotContains(t, out, "<b>")
}

func TestConsole_PrintSignals(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)
	at := time.Now()

	c.PrintSignals([]domain.ConsensusSignal{
		{
			MarketID: "0xm1", MarketTitle: "Will BTC hit 100k?", Side: domain.SideYes, Day: "2026-03-14",
			WalletCount: 4, TotalValue: 25000, ConfidenceScore: 72,
			ConfidenceLevel: domain.ConfidenceHigh, NotifiedAt: &at,
		},
		{MarketID: "0xm2", Side: domain.SideNo, WalletCount: 3, ConfidenceLevel: domain.ConfidenceLow},
	})

	out := buf.String()
	assert.Contains(t, out, "2 consensus signals")
	assert.Contains(t, out, "Will BTC hit 100k?")
	assert.Contains(t, out, "$25,000")
	assert.Contains(t, out, "HIGH")
	assert.Contains(t, out, "0xm2", "sin título se muestra el market id")
}

func TestConsole_PrintSignals_Empty(t *testing.T) {
	var buf bytes.Buffer
	notify.NewConsoleWriter(&buf).PrintSignals(nil)
	assert.Contains(t, buf.String(), "no consensus signals")
}

func TestConsole_PrintWallets(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	c.PrintWallets([]domain.SmartWallet{
		{ID: 1, Address: "0xaaa", Alias: "alpha", Active: true, AddedAt: time.Now().Add(-time.Hour)},
		{ID: 2, Address: "0xbbb", Active: false},
	})

	out := buf.String()
	assert.Contains(t, out, "roster: 2 wallets (1 active)")
	assert.Contains(t, out, "alpha")
	assert.Contains(t, out, "0xbbb")
}

func TestConsole_PrintTraders(t *testing.T) {
	var buf bytes.Buffer
	c := notify.NewConsoleWriter(&buf)

	c.PrintTraders([]domain.TraderProfile{
		{Address: "0x1234567890abcdef1234567890abcdef12345678", Name: "whale", OverallGain: 1234567, WinRate: 0.712, TotalPositions: 1500, Rank: 1},
	})

	out := buf.String()
	assert.Contains(t, out, "1 traders")
	assert.Contains(t, out, "whale")
	assert.Contains(t, out, "$1,234,567")
	assert.Contains(t, out, "71.2%")
	assert.Contains(t, out, "1,500")
}
