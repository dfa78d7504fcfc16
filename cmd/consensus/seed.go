package main

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/alejandrodnm/consensusbot/internal/adapters/notify"
	"github.com/alejandrodnm/consensusbot/internal/adapters/polymarket"
	"github.com/alejandrodnm/consensusbot/internal/ports"
)

// runSeed recorre el ranking de traders y añade cada uno al roster.
// Las wallets ya existentes se reactivan; un fallo individual no corta el seed.
func runSeed(ctx context.Context, client *polymarket.Client, wallets ports.WalletStore, console *notify.Console, q polymarket.TraderQuery) error {
	slog.Info("=== SEED MODE: crawling top traders ===",
		"tag", q.Tag,
		"min_win_rate", q.MinWinRate,
		"min_positions", q.MinTotalPositions,
		"max", q.Max,
	)

	traders, err := client.FetchTopTraders(ctx, q)
	if err != nil {
		return fmt.Errorf("seed: fetch traders: %w", err)
	}
	if len(traders) == 0 {
		slog.Warn("no traders matched the filters, roster unchanged")
		return nil
	}

	added := 0
	for _, t := range traders {
		if ctx.Err() != nil {
			break
		}
		if _, err := wallets.AddWallet(ctx, t.Address, t.Name); err != nil {
			slog.Warn("failed to add trader", "wallet", t.Address, "err", err)
			continue
		}
		added++
	}

	console.PrintTraders(traders)
	slog.Info("seed complete", "traders", len(traders), "added", added)
	return nil
}
