package notify

import (
	"context"
	"fmt"
	"html"
	"io"
	"os"
	"regexp"
	"strings"
	"sync"
	"time"

	"github.com/dustin/go-humanize"
	"github.com/olekukonko/tablewriter"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

var htmlTag = regexp.MustCompile(`<[^>]+>`)

// Console implementa ports.Messenger escribiendo a stdout, y además imprime
// los reportes de señales, roster y traders en tablas.
type Console struct {
	mu  sync.Mutex
	out io.Writer
}

// NewConsole crea un notificador que escribe a stdout.
func NewConsole() *Console {
	return &Console{out: os.Stdout}
}

// NewConsoleWriter crea un notificador para tests.
func NewConsoleWriter(w io.Writer) *Console {
	return &Console{out: w}
}

// Send imprime el mensaje en texto plano, sin las etiquetas HTML de Telegram.
func (c *Console) Send(_ context.Context, chatID int64, text string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	fmt.Fprintf(c.out, "[%s] → chat %d\n%s\n\n", time.Now().Format("15:04:05"), chatID, PlainText(text))
	return nil
}

// PlainText quita las etiquetas HTML y deshace los escapes.
func PlainText(text string) string {
	return html.UnescapeString(htmlTag.ReplaceAllString(text, ""))
}

// PrintSignals imprime las señales como tabla, en el orden recibido.
func (c *Console) PrintSignals(signals []domain.ConsensusSignal) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if len(signals) == 0 {
		fmt.Fprintf(c.out, "[%s] no consensus signals\n", time.Now().Format("15:04:05"))
		return
	}

	fmt.Fprintf(c.out, "\n%d consensus signals\n", len(signals))
	table := tablewriter.NewWriter(c.out)
	table.Header("#", "Day", "Market", "Side", "Wallets", "Total", "Score", "Level", "Notified")
	for i, sig := range signals {
		notified := "-"
		if sig.NotifiedAt != nil {
			notified = sig.NotifiedAt.Local().Format("15:04")
		}
		title := sig.MarketTitle
		if title == "" {
			title = sig.MarketID
		}
		table.Append(
			fmt.Sprintf("%d", i+1),
			sig.Day,
			compactName(title, 40),
			string(sig.Side),
			fmt.Sprintf("%d", sig.WalletCount),
			"$"+humanize.CommafWithDigits(sig.TotalValue, 0),
			fmt.Sprintf("%d", sig.ConfidenceScore),
			sig.ConfidenceLevel.Icon()+" "+sig.ConfidenceLevel.Label(),
			notified,
		)
	}
	table.Render()
}

// PrintWallets imprime el roster.
func (c *Console) PrintWallets(wallets []domain.SmartWallet) {
	c.mu.Lock()
	defer c.mu.Unlock()

	active := 0
	for _, w := range wallets {
		if w.Active {
			active++
		}
	}
	fmt.Fprintf(c.out, "\nroster: %d wallets (%d active)\n", len(wallets), active)
	if len(wallets) == 0 {
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("ID", "Address", "Alias", "Active", "Added")
	for _, w := range wallets {
		status := "yes"
		if !w.Active {
			status = "no"
		}
		added := "-"
		if !w.AddedAt.IsZero() {
			added = humanize.Time(w.AddedAt)
		}
		table.Append(fmt.Sprintf("%d", w.ID), w.Address, w.Alias, status, added)
	}
	table.Render()
}

// PrintTraders imprime el resultado de un crawl de traders.
func (c *Console) PrintTraders(traders []domain.TraderProfile) {
	c.mu.Lock()
	defer c.mu.Unlock()

	fmt.Fprintf(c.out, "\n%d traders\n", len(traders))
	if len(traders) == 0 {
		return
	}
	table := tablewriter.NewWriter(c.out)
	table.Header("Rank", "Trader", "Address", "PnL", "Win rate", "Positions")
	for _, t := range traders {
		table.Append(
			fmt.Sprintf("%d", t.Rank),
			compactName(t.Name, 24),
			domain.ShortAddress(t.Address),
			"$"+humanize.CommafWithDigits(t.OverallGain, 0),
			fmt.Sprintf("%.1f%%", t.WinRate*100),
			humanize.Comma(int64(t.TotalPositions)),
		)
	}
	table.Render()
}

// compactName trunca un nombre a maxLen runas.
func compactName(s string, maxLen int) string {
	s = strings.TrimSpace(s)
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-1]) + "…"
}
