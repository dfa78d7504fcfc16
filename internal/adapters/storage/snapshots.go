package storage

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/google/uuid"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// SavePositionSnapshot persiste la foto de posiciones netas de una wallet.
func (s *SQLiteStorage) SavePositionSnapshot(ctx context.Context, snap domain.PositionSnapshot) error {
	if snap.ID == "" {
		snap.ID = uuid.NewString()
	}
	if snap.TakenAt.IsZero() {
		snap.TakenAt = s.now()
	}
	positions := snap.Positions
	if positions == nil {
		positions = []domain.NettedPosition{}
	}
	payload, err := json.Marshal(positions)
	if err != nil {
		return fmt.Errorf("storage.SavePositionSnapshot: marshal: %w", err)
	}

	if _, err := s.db.ExecContext(ctx, `
		INSERT INTO position_snapshots
			(id, wallet_id, wallet_address, portfolio_value, raw_count, positions, taken_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, snap.ID, snap.WalletID, snap.WalletAddress, snap.PortfolioValue, snap.RawCount,
		string(payload), formatTime(snap.TakenAt)); err != nil {
		return fmt.Errorf("storage.SavePositionSnapshot: insert %s: %w", snap.WalletAddress, err)
	}
	return nil
}

// LatestSnapshot devuelve el último snapshot de una wallet. ok=false si no hay ninguno.
func (s *SQLiteStorage) LatestSnapshot(ctx context.Context, walletID int64) (snap domain.PositionSnapshot, ok bool, err error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, wallet_id, wallet_address, portfolio_value, raw_count, positions, taken_at
		FROM position_snapshots
		WHERE wallet_id = ?
		ORDER BY taken_at DESC
		LIMIT 1
	`, walletID)
	if err != nil {
		return snap, false, fmt.Errorf("storage.LatestSnapshot: query: %w", err)
	}
	defer rows.Close()

	if !rows.Next() {
		return snap, false, rows.Err()
	}
	var payload, takenAt string
	if err := rows.Scan(&snap.ID, &snap.WalletID, &snap.WalletAddress,
		&snap.PortfolioValue, &snap.RawCount, &payload, &takenAt); err != nil {
		return snap, false, fmt.Errorf("storage.LatestSnapshot: scan row: %w", err)
	}
	if err := json.Unmarshal([]byte(payload), &snap.Positions); err != nil {
		return snap, false, fmt.Errorf("storage.LatestSnapshot: decode positions: %w", err)
	}
	snap.TakenAt = parseTime(takenAt)
	return snap, true, nil
}
