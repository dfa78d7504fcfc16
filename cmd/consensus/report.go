package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/consensusbot/internal/adapters/notify"
	"github.com/alejandrodnm/consensusbot/internal/ports"
)

type reportStore interface {
	ports.SignalLedger
	ports.WalletStore
}

// runReport imprime las señales recientes y el roster de wallets.
func runReport(ctx context.Context, store reportStore, console *notify.Console, days int) error {
	if days <= 0 {
		days = 7
	}

	signals, err := store.RecentSignals(ctx, days)
	if err != nil {
		return fmt.Errorf("report: signals: %w", err)
	}
	wallets, err := store.ListWallets(ctx)
	if err != nil {
		return fmt.Errorf("report: wallets: %w", err)
	}

	slog.Info("=== REPORT ===", "days", days, "signals", len(signals), "wallets", len(wallets))
	console.PrintSignals(signals)
	console.PrintWallets(wallets)
	return nil
}
