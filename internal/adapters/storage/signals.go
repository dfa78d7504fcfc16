package storage

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/alejandrodnm/consensusbot/internal/domain"
)

// IsAlreadyNotified indica si ya se notificó (market, side) en day.
func (s *SQLiteStorage) IsAlreadyNotified(ctx context.Context, marketID string, side domain.Side, day string) (bool, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(1) FROM signals
		WHERE market_id = ? AND side = ? AND day = ? AND notified_at IS NOT NULL
	`, marketID, string(side), day).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("storage.IsAlreadyNotified: %w", err)
	}
	return n > 0, nil
}

// SaveSignalIfAbsent inserta la señal si no existe otra con el mismo (market, side, day).
// Devuelve el ID asignado, o "" si ya existía (no es un error).
func (s *SQLiteStorage) SaveSignalIfAbsent(ctx context.Context, sig domain.ConsensusSignal) (string, error) {
	if sig.Day == "" {
		return "", fmt.Errorf("storage.SaveSignalIfAbsent: %s/%s: empty day", sig.MarketID, sig.Side)
	}
	id := sig.ID
	if id == "" {
		id = uuid.NewString()
	}
	detectedAt := sig.DetectedAt
	if detectedAt.IsZero() {
		detectedAt = s.now()
	}

	breakdown, err := json.Marshal(sig.Breakdown)
	if err != nil {
		return "", fmt.Errorf("storage.SaveSignalIfAbsent: marshal breakdown: %w", err)
	}
	wallets := sig.Wallets
	if wallets == nil {
		wallets = []domain.SignalWallet{}
	}
	walletsJSON, err := json.Marshal(wallets)
	if err != nil {
		return "", fmt.Errorf("storage.SaveSignalIfAbsent: marshal wallets: %w", err)
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO signals
			(id, market_id, market_title, market_slug, side, day, wallet_count,
			 total_value, avg_value, confidence_score, confidence_level,
			 breakdown, wallets, detected_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(market_id, side, day) DO NOTHING
	`, id, sig.MarketID, sig.MarketTitle, sig.MarketSlug, string(sig.Side), sig.Day, sig.WalletCount,
		sig.TotalValue, sig.AvgValue, sig.ConfidenceScore, string(sig.ConfidenceLevel),
		string(breakdown), string(walletsJSON), formatTime(detectedAt))
	if err != nil {
		return "", fmt.Errorf("storage.SaveSignalIfAbsent: insert %s/%s: %w", sig.MarketID, sig.Side, err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return "", fmt.Errorf("storage.SaveSignalIfAbsent: rows affected: %w", err)
	}
	if n == 0 {
		return "", nil
	}
	return id, nil
}

// MarkNotified marca la señal como notificada. Es idempotente: la primera marca gana.
func (s *SQLiteStorage) MarkNotified(ctx context.Context, id string, at time.Time) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE signals SET notified_at = ? WHERE id = ? AND notified_at IS NULL`,
		formatTime(at), id)
	if err != nil {
		return fmt.Errorf("storage.MarkNotified: %s: %w", id, err)
	}
	if n, _ := res.RowsAffected(); n > 0 {
		return nil
	}

	var exists int
	err = s.db.QueryRowContext(ctx, `SELECT 1 FROM signals WHERE id = ?`, id).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("storage.MarkNotified: %s: %w", id, ErrSignalNotFound)
	}
	if err != nil {
		return fmt.Errorf("storage.MarkNotified: %s: %w", id, err)
	}
	return nil
}

// RecentSignals devuelve las señales detectadas en los últimos days días,
// más recientes primero.
func (s *SQLiteStorage) RecentSignals(ctx context.Context, days int) ([]domain.ConsensusSignal, error) {
	if days <= 0 {
		days = 1
	}
	since := formatTime(s.now().Add(-time.Duration(days) * 24 * time.Hour))

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, market_id, market_title, market_slug, side, day, wallet_count,
		       total_value, avg_value, confidence_score, confidence_level,
		       breakdown, wallets, detected_at, notified_at
		FROM signals
		WHERE detected_at >= ?
		ORDER BY detected_at DESC, confidence_score DESC, market_id
	`, since)
	if err != nil {
		return nil, fmt.Errorf("storage.RecentSignals: query: %w", err)
	}
	defer rows.Close()

	var signals []domain.ConsensusSignal
	for rows.Next() {
		var sig domain.ConsensusSignal
		var side, level, breakdown, wallets, detectedAt string
		var notifiedAt sql.NullString

		if err := rows.Scan(
			&sig.ID, &sig.MarketID, &sig.MarketTitle, &sig.MarketSlug, &side, &sig.Day,
			&sig.WalletCount, &sig.TotalValue, &sig.AvgValue, &sig.ConfidenceScore, &level,
			&breakdown, &wallets, &detectedAt, &notifiedAt,
		); err != nil {
			return nil, fmt.Errorf("storage.RecentSignals: scan row: %w", err)
		}

		sig.Side = domain.Side(side)
		sig.ConfidenceLevel = domain.ConfidenceLevel(level)
		sig.DetectedAt = parseTime(detectedAt)
		if notifiedAt.Valid {
			t := parseTime(notifiedAt.String)
			sig.NotifiedAt = &t
		}
		if err := json.Unmarshal([]byte(breakdown), &sig.Breakdown); err != nil {
			return nil, fmt.Errorf("storage.RecentSignals: decode breakdown %s: %w", sig.ID, err)
		}
		if err := json.Unmarshal([]byte(wallets), &sig.Wallets); err != nil {
			return nil, fmt.Errorf("storage.RecentSignals: decode wallets %s: %w", sig.ID, err)
		}
		signals = append(signals, sig)
	}
	return signals, rows.Err()
}
