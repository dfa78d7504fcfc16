package ports

import (
	"context"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// WalletStore es el roster de smart wallets.
type WalletStore interface {
	// ActiveWallets devuelve las wallets activas, ordenadas por ID.
	ActiveWallets(ctx context.Context) ([]domain.SmartWallet, error)

	// ListWallets devuelve todas las wallets, activas o no.
	ListWallets(ctx context.Context) ([]domain.SmartWallet, error)

	// AddWallet añade (o reactiva) una wallet. Operación administrativa.
	AddWallet(ctx context.Context, address, alias string) (domain.SmartWallet, error)

	// DeactivateWallet marca la wallet como inactiva. Nunca borra.
	DeactivateWallet(ctx context.Context, address string) error
}
