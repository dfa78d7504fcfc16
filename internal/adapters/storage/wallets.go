package storage

import (
	"context"
	"fmt"
	"strings"

	"github.com/ethereum/go-ethereum/common"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// NormalizeAddress valida una dirección EVM y la devuelve en forma canónica (0x + minúsculas).
func NormalizeAddress(address string) (string, error) {
	address = strings.TrimSpace(address)
	if !common.IsHexAddress(address) {
		return "", fmt.Errorf("%w: %q", ErrInvalidAddress, address)
	}
	return domain.CanonicalAddress(common.HexToAddress(address).Hex()), nil
}

// ActiveWallets devuelve el roster activo ordenado por ID.
func (s *SQLiteStorage) ActiveWallets(ctx context.Context) ([]domain.SmartWallet, error) {
	wallets, err := s.queryWallets(ctx, `WHERE active = 1`)
	if err != nil {
		return nil, fmt.Errorf("storage.ActiveWallets: %w", err)
	}
	return wallets, nil
}

// ListWallets devuelve todas las wallets, incluidas las desactivadas.
func (s *SQLiteStorage) ListWallets(ctx context.Context) ([]domain.SmartWallet, error) {
	wallets, err := s.queryWallets(ctx, ``)
	if err != nil {
		return nil, fmt.Errorf("storage.ListWallets: %w", err)
	}
	return wallets, nil
}

// AddWallet añade una wallet al roster. Si ya existía la reactiva, y actualiza
// el alias sólo si se pasa uno no vacío.
func (s *SQLiteStorage) AddWallet(ctx context.Context, address, alias string) (domain.SmartWallet, error) {
	addr, err := NormalizeAddress(address)
	if err != nil {
		return domain.SmartWallet{}, fmt.Errorf("storage.AddWallet: %w", err)
	}
	alias = strings.TrimSpace(alias)

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO wallets (address, alias, active, added_at) VALUES (?, ?, 1, ?)
		ON CONFLICT(address) DO UPDATE SET
			active = 1,
			alias  = CASE WHEN excluded.alias != '' THEN excluded.alias ELSE wallets.alias END
	`, addr, alias, formatTime(s.now())); err != nil {
		return domain.SmartWallet{}, fmt.Errorf("storage.AddWallet: upsert %s: %w", addr, err)
	}

	wallets, err := s.queryWallets(ctx, `WHERE address = ?`, addr)
	if err != nil {
		return domain.SmartWallet{}, fmt.Errorf("storage.AddWallet: reload %s: %w", addr, err)
	}
	if len(wallets) == 0 {
		return domain.SmartWallet{}, fmt.Errorf("storage.AddWallet: %s: %w", addr, ErrWalletNotFound)
	}
	return wallets[0], nil
}

// DeactivateWallet saca una wallet del roster activo (soft delete).
func (s *SQLiteStorage) DeactivateWallet(ctx context.Context, address string) error {
	addr := domain.CanonicalAddress(address)
	res, err := s.db.ExecContext(ctx, `UPDATE wallets SET active = 0 WHERE address = ?`, addr)
	if err != nil {
		return fmt.Errorf("storage.DeactivateWallet: %s: %w", addr, err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return fmt.Errorf("storage.DeactivateWallet: %s: %w", addr, ErrWalletNotFound)
	}
	return nil
}

func (s *SQLiteStorage) queryWallets(ctx context.Context, where string, args ...any) ([]domain.SmartWallet, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, address, alias, active, added_at FROM wallets `+where+` ORDER BY id`, args...)
	if err != nil {
		return nil, fmt.Errorf("query: %w", err)
	}
	defer rows.Close()

	var wallets []domain.SmartWallet
	for rows.Next() {
		var w domain.SmartWallet
		var active int
		var addedAt string
		if err := rows.Scan(&w.ID, &w.Address, &w.Alias, &active, &addedAt); err != nil {
			return nil, fmt.Errorf("scan row: %w", err)
		}
		w.Active = active == 1
		w.AddedAt = parseTime(addedAt)
		wallets = append(wallets, w)
	}
	return wallets, rows.Err()
}
