package scanner

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// maxWalletsShown limita las wallets listadas en el mensaje de una señal.
const maxWalletsShown = 5

// FormatSignal renderiza una señal como mensaje HTML de Telegram.
func FormatSignal(sig domain.ConsensusSignal) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "%s <b>CONSENSUS SIGNAL</b> · %s (%d/100)\n\n",
		sig.ConfidenceLevel.Icon(), sig.ConfidenceLevel.Label(), sig.ConfidenceScore)
	fmt.Fprintf(&sb, "<b>%s</b>\n", escape(titleOf(sig)))
	fmt.Fprintf(&sb, "Side: <b>%s</b>\n", sig.Side)
	fmt.Fprintf(&sb, "Wallets: %d · Total: %s · Avg: %s\n",
		sig.WalletCount, money(sig.TotalValue), money(sig.AvgValue))

	if len(sig.Wallets) > 0 {
		sb.WriteString("\n<b>Top wallets</b>\n")
		for i, w := range sig.Wallets {
			if i >= maxWalletsShown {
				fmt.Fprintf(&sb, "… and %d more\n", len(sig.Wallets)-maxWalletsShown)
				break
			}
			share := 0.0
			if sig.TotalValue > 0 {
				share = w.Value / sig.TotalValue * 100
			}
			fmt.Fprintf(&sb, "%d. %s · %s (%.0f%% of book, %.1f%% of portfolio)\n",
				i+1, escape(walletName(w)), money(w.Value), share, w.PortfolioPercent)
		}
	}

	b := sig.Breakdown
	fmt.Fprintf(&sb, "\n<i>score: wallets %d · value %d · conviction %d · distribution %d</i>\n",
		b.WalletCount, b.Value, b.Conviction, b.Distribution)

	if url := sig.MarketURL(); url != "" {
		fmt.Fprintf(&sb, "\n<a href=\"%s\">Open on Polymarket</a>", escape(url))
	}
	return strings.TrimRight(sb.String(), "\n")
}

// FormatSummary renderiza el resumen de fin de ciclo. signals son las señales
// detectadas en el ciclo; se listan sólo las nuevas.
func FormatSummary(summary domain.ScanSummary, signals []domain.ConsensusSignal) string {
	var sb strings.Builder

	sb.WriteString("📊 <b>Consensus scan complete</b>\n")
	fmt.Fprintf(&sb, "Wallets scanned: %d/%d", summary.WalletsScanned, summary.WalletsTotal)
	if summary.WalletsFailed > 0 {
		fmt.Fprintf(&sb, " (%d failed)", summary.WalletsFailed)
	}
	sb.WriteString("\n")
	fmt.Fprintf(&sb, "Positions found: %s\n", humanize.Comma(int64(summary.PositionsFound)))
	fmt.Fprintf(&sb, "Signals detected: %d (new: %d)\n", summary.SignalsDetected, summary.SignalsNew)
	fmt.Fprintf(&sb, "Duration: %s", summary.Duration.Round(time.Second))

	var fresh []string
	for _, sig := range signals {
		if sig.ID == "" {
			continue
		}
		fresh = append(fresh, fmt.Sprintf("%s %s · %s (%d)",
			sig.ConfidenceLevel.Icon(), escape(compact(titleOf(sig), 48)), sig.Side, sig.ConfidenceScore))
	}
	if len(fresh) > 0 {
		sb.WriteString("\n\n")
		sb.WriteString(strings.Join(fresh, "\n"))
	}
	return sb.String()
}

func titleOf(sig domain.ConsensusSignal) string {
	if sig.MarketTitle != "" {
		return sig.MarketTitle
	}
	return sig.MarketID
}

func walletName(w domain.SignalWallet) string {
	if w.Alias != "" {
		return w.Alias
	}
	return domain.ShortAddress(w.Address)
}

// money formatea USDC como "$12,345".
func money(v float64) string {
	return "$" + humanize.CommafWithDigits(v, 0)
}

func escape(s string) string {
	return html.EscapeString(s)
}

// compact trunca s a maxLen runas añadiendo "…".
func compact(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
